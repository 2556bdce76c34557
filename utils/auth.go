package utils

// Permission levels
const (
	AdminPermission = "admin"
	GuestPermission = "guest"
)

// contains checks if a slice of strings contains an element.
func contains(slice []string, item string) bool {
	for _, a := range slice {
		if a == item {
			return true
		}
	}
	return false
}

// CheckPermission returns the permission level for a member's roles against
// the guild's configured admin roles.
func CheckPermission(memberRoleIDs, adminRoleIDs []string) string {
	for _, roleID := range memberRoleIDs {
		if contains(adminRoleIDs, roleID) {
			return AdminPermission
		}
	}
	return GuestPermission
}
