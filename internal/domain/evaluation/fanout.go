package evaluation

import "context"

// fanOut creates one pending assessor instance per resolved assessor after a
// self evaluation completes. Competency assessments fan out to every assessor
// in the organization; appraisals only to assessors explicitly assigned to
// the employee. The asymmetry is deliberate and preserved as two paths.
//
// Creation is idempotent per (employee, assessor, kind, cycle): the store's
// unique constraint absorbs duplicates, so concurrent or repeated completes
// never produce extra instances. Returns only the instances actually created;
// notifying the new assessors is the caller's concern, not this package's.
func (s *Service) fanOut(ctx context.Context, store StoreAPI, inst Instance) ([]Instance, error) {
	var assessorIDs []string
	var err error
	switch inst.Kind {
	case KindAppraisal:
		assessorIDs, err = store.AssignedAssessorIDs(ctx, inst.OrgID, inst.EmployeeID)
	default:
		assessorIDs, err = s.dir.OrgAssessors(ctx, inst.OrgID)
	}
	if err != nil {
		return nil, err
	}

	var created []Instance
	for _, assessorID := range assessorIDs {
		candidate := Instance{
			OrgID:      inst.OrgID,
			CycleID:    inst.CycleID,
			Type:       TypeAssessor,
			Kind:       inst.Kind,
			EmployeeID: inst.EmployeeID,
			AssessorID: assessorID,
			Status:     StatusPending,
		}
		out, ok, err := store.CreateAssessorInstanceIfAbsent(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if ok {
			created = append(created, out)
		}
	}
	return created, nil
}
