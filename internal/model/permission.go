package model

// Permission represents a string code for a specific administrative action.
type Permission string

const (
	// PermissionSessionsAbandon allows abandoning an in-progress session.
	PermissionSessionsAbandon Permission = "sessions:abandon"

	// PermissionSessionsReap allows forcing the stale session sweep.
	PermissionSessionsReap Permission = "sessions:reap"

	// PermissionResultsRead allows viewing results, analytics and heatmaps.
	PermissionResultsRead Permission = "results:read"

	// PermissionMonitorRead allows attaching to the live monitor.
	PermissionMonitorRead Permission = "monitor:read"

	// PermissionContentRefresh allows invalidating cached assessment content.
	PermissionContentRefresh Permission = "content:refresh"
)

// AllPermissions returns every permission code.
func AllPermissions() []Permission {
	return []Permission{
		PermissionSessionsAbandon,
		PermissionSessionsReap,
		PermissionResultsRead,
		PermissionMonitorRead,
		PermissionContentRefresh,
	}
}

// ParsePermission returns the permission named by code.
func ParsePermission(code string) (Permission, bool) {
	for _, p := range AllPermissions() {
		if string(p) == code {
			return p, true
		}
	}
	return "", false
}
