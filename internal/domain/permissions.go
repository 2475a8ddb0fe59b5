package domain

// Permission keys referenced by code. The full catalog lives in the
// registry seed and may contain keys that no route checks.
const (
	PermDashboardView     PermissionKey = "dashboard.view"
	PermManagementView    PermissionKey = "management.view"
	PermManagementUsers   PermissionKey = "management.users"
	PermOperationsView    PermissionKey = "operations.view"
	PermSupportTickets    PermissionKey = "support.tickets"
	PermSupportFollowUps  PermissionKey = "support.followups"
	PermSupportReviews    PermissionKey = "support.reviews"
	PermSupportManage     PermissionKey = "support.manage"
	PermContentIdeas      PermissionKey = "content.ideas"
	PermNotificationsView PermissionKey = "notifications.view"
	PermAccessManage      PermissionKey = "access.manage"
)

// UnknownKeys returns the requested keys that are missing from the registry.
func UnknownKeys[K comparable](requested []K, known map[K]struct{}) []K {
	var missing []K
	for _, k := range requested {
		if _, ok := known[k]; !ok {
			missing = append(missing, k)
		}
	}
	return missing
}
