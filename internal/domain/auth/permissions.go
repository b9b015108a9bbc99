package auth

import "context"

const (
	RoleEmployee = "employee"
	RoleAssessor = "assessor"
	RoleHR       = "hr"
)

const (
	PermDirectoryRead    = "directory.read"
	PermDirectoryWrite   = "directory.write"
	PermAssignmentsWrite = "directory.assignments.write"
	PermCyclesRead       = "cycles.read"
	PermCyclesWrite      = "cycles.write"
	PermEvaluationsRead  = "evaluations.read"
	PermEvaluationsWrite = "evaluations.write"
	PermAnalyticsRead    = "analytics.read"
	PermReportsExport    = "reports.export"
	PermNotificationsRead = "notifications.read"
	PermAuditRead         = "audit.read"
)

var DefaultPermissions = []string{
	PermDirectoryRead,
	PermDirectoryWrite,
	PermAssignmentsWrite,
	PermCyclesRead,
	PermCyclesWrite,
	PermEvaluationsRead,
	PermEvaluationsWrite,
	PermAnalyticsRead,
	PermReportsExport,
	PermNotificationsRead,
	PermAuditRead,
}

var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermDirectoryRead,
		PermCyclesRead,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermNotificationsRead,
	},
	RoleAssessor: {
		PermDirectoryRead,
		PermCyclesRead,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermNotificationsRead,
	},
	RoleHR: {
		PermDirectoryRead,
		PermDirectoryWrite,
		PermAssignmentsWrite,
		PermCyclesRead,
		PermCyclesWrite,
		PermEvaluationsRead,
		PermEvaluationsWrite,
		PermAnalyticsRead,
		PermReportsExport,
		PermNotificationsRead,
		PermAuditRead,
	},
}

// Permissions answers role/permission checks from the static role table.
type Permissions struct{}

func (Permissions) HasPermission(ctx context.Context, role, permission string) (bool, error) {
	for _, perm := range RolePermissions[role] {
		if perm == permission {
			return true, nil
		}
	}
	return false, nil
}
