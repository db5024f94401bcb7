// ABOUTME: The host's role→permission model for organization members.
// ABOUTME: Grant capacities are matched against these role names in permission-filtered listings.
package store

// rolePermissions maps each organization role to its permission set. The
// admin role implies every permission and additionally carries membership,
// the member-management permission that gates collaborator management.
//
// manage_group is held by every role: an unfiltered collaboration listing
// (the manage_group default) therefore covers all capacities except
// limited_member, which holds no permissions at all — limited members
// discover their datasets but satisfy no permission-filtered check.
var rolePermissions = map[string][]string{
	"admin":  {"admin", "membership"},
	"editor": {"read", "create_dataset", "update_dataset", "dataset_update", "delete_dataset", "manage_group"},
	"member": {"read", "manage_group"},
}

// roleOrder keeps RolesWithPermission deterministic.
var roleOrder = []string{"admin", "editor", "member"}

// RolesWithPermission returns the organization roles whose permission set
// includes the named permission. The admin role is always included.
func RolesWithPermission(permission string) []string {
	var out []string
	for _, role := range roleOrder {
		if RoleHasPermission(role, permission) {
			out = append(out, role)
		}
	}
	return out
}

// RoleHasPermission reports whether the role's permission set includes the
// named permission. The admin role has every permission.
func RoleHasPermission(role, permission string) bool {
	if role == "admin" {
		return true
	}
	for _, p := range rolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// RolesWithPermission implements part of collab.Directory.
func (s *Store) RolesWithPermission(permission string) []string {
	return RolesWithPermission(permission)
}
