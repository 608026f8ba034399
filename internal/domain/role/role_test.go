package role

import "testing"

func TestSeedPermissions(t *testing.T) {
	roles := map[string]Role{}
	for _, r := range Seed() {
		roles[r.Name] = r
	}

	u, ok := roles[NameUser]
	if !ok {
		t.Fatalf("missing %s role", NameUser)
	}
	if !u.Default {
		t.Fatalf("%s must be the default role", NameUser)
	}

	tests := []struct {
		role Role
		perm Permission
		want bool
	}{
		{u, PermRead, true},
		{u, PermComment, true},
		{u, PermCreate, true},
		{u, PermDelete, false},
		{u, PermAdmin, false},
		{roles[NameAdmin], PermDelete, true},
		{roles[NameAdmin], PermAdmin, true},
	}

	for _, tt := range tests {
		r := tt.role
		if got := r.HasPermission(tt.perm); got != tt.want {
			t.Fatalf("%s.HasPermission(%#x) = %v, want %v", r.Name, tt.perm, got, tt.want)
		}
	}
}

func TestAddRemoveReset(t *testing.T) {
	r := &Role{Name: "x"}

	r.AddPermission(PermRead)
	r.AddPermission(PermRead)
	r.AddPermission(PermDelete)
	if r.Permissions != PermRead|PermDelete {
		t.Fatalf("unexpected permissions %#x", r.Permissions)
	}

	r.RemovePermission(PermRead)
	if r.HasPermission(PermRead) || !r.HasPermission(PermDelete) {
		t.Fatalf("unexpected permissions after remove %#x", r.Permissions)
	}

	r.ResetPermissions()
	if r.Permissions != 0 {
		t.Fatalf("expected no permissions, got %#x", r.Permissions)
	}
}

func TestNilRoleHasNothing(t *testing.T) {
	var r *Role
	if r.HasPermission(PermRead) {
		t.Fatalf("nil role must not have permissions")
	}
}
