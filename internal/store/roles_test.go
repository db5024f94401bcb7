// ABOUTME: Unit tests for the role→permission model. No database needed.
package store_test

import (
	"reflect"
	"testing"

	"github.com/pdekraker-epa/ckanext-collaborators/internal/store"
)

func TestRolesWithPermission(t *testing.T) {
	t.Parallel()
	cases := []struct {
		permission string
		want       []string
	}{
		{"membership", []string{"admin"}},
		{"dataset_update", []string{"admin", "editor"}},
		{"update_dataset", []string{"admin", "editor"}},
		{"read", []string{"admin", "editor", "member"}},
		{"manage_group", []string{"admin", "editor", "member"}},
		// Unknown permissions still satisfy admin: admin implies everything.
		{"no_such_permission", []string{"admin"}},
	}
	for _, tc := range cases {
		got := store.RolesWithPermission(tc.permission)
		if !reflect.DeepEqual(got, tc.want) {
			t.Errorf("RolesWithPermission(%q) = %v, want %v", tc.permission, got, tc.want)
		}
	}
}

func TestRoleHasPermission(t *testing.T) {
	t.Parallel()
	if !store.RoleHasPermission("admin", "anything") {
		t.Error("admin should hold every permission")
	}
	if store.RoleHasPermission("member", "dataset_update") {
		t.Error("member should not hold dataset_update")
	}
	if store.RoleHasPermission("", "read") {
		t.Error("empty role should hold nothing")
	}
}
