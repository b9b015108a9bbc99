package evaluation

import "evalhub/internal/domain/auth"

// Access rules consulted uniformly by every operation instead of per-handler
// role branching. Organization scoping happens before any of these run: the
// store only loads instances from the caller's org, so a cross-org id is
// already ErrNotFound by the time a predicate is asked.

// CanSee reports whether the caller may read the instance and its ratings.
// assigned tells whether an assessor assignment links the caller to the
// instance's employee.
func CanSee(caller Caller, inst Instance, assigned bool) bool {
	if caller.OrgID != inst.OrgID {
		return false
	}
	switch caller.Role {
	case auth.RoleHR:
		return true
	case auth.RoleEmployee:
		return inst.EmployeeID == caller.EmployeeID
	case auth.RoleAssessor:
		if inst.Type == TypeAssessor {
			return inst.AssessorID == caller.EmployeeID
		}
		if inst.EmployeeID == caller.EmployeeID {
			return true
		}
		// An assessor may read an assigned employee's self evaluation once it
		// is finished, to support the review step.
		return assigned && (inst.Status == StatusCompleted || inst.Status == StatusReviewed)
	}
	return false
}

// CanMutate reports whether the caller may write ratings to the instance or
// drive its start/complete transitions.
func CanMutate(caller Caller, inst Instance) bool {
	if caller.OrgID != inst.OrgID {
		return false
	}
	switch caller.Role {
	case auth.RoleHR:
		return true
	case auth.RoleEmployee:
		return inst.Type == TypeSelf && inst.EmployeeID == caller.EmployeeID
	case auth.RoleAssessor:
		if inst.Type == TypeAssessor && inst.AssessorID == caller.EmployeeID {
			return true
		}
		// Assessors who are themselves being evaluated own their self instances.
		return inst.Type == TypeSelf && inst.EmployeeID == caller.EmployeeID
	}
	return false
}

// CanReview reports whether the caller may move the instance to reviewed.
// Review is an assessor/HR action: an assessor reviews their own assessor
// instances, and additionally the self evaluation of any employee they are
// assigned to.
func CanReview(caller Caller, inst Instance, assigned bool) bool {
	if caller.OrgID != inst.OrgID {
		return false
	}
	switch caller.Role {
	case auth.RoleHR:
		return true
	case auth.RoleAssessor:
		if inst.Type == TypeAssessor && inst.AssessorID == caller.EmployeeID {
			return true
		}
		return inst.Type == TypeSelf && assigned
	}
	return false
}
