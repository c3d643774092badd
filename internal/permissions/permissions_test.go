package permissions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	root  = User{ID: "root", IsActive: true, IsStaff: true, IsSuperuser: true}
	root2 = User{ID: "root2", IsActive: true, IsStaff: true, IsSuperuser: true}
	staff = User{ID: "staff", IsActive: true, IsStaff: true}
	mod   = User{ID: "mod", IsActive: true, IsStaff: true}
	alice = User{ID: "alice", IsActive: true}
	gone  = User{ID: "gone"}
)

func TestBuiltinPolicies(t *testing.T) {
	tests := []struct {
		name     string
		policy   string
		hijacker User
		hijacked User
		want     bool
	}{
		{"superuser on user", SuperusersOnly, root, alice, true},
		{"superuser on superuser", SuperusersOnly, root, root2, true},
		{"staff on user", SuperusersOnly, staff, alice, false},
		{"superuser on inactive", SuperusersOnly, root, gone, false},
		{"self", SuperusersOnly, root, root, false},
		{"inactive hijacker", SuperusersOnly, User{ID: "x", IsSuperuser: true}, alice, false},

		{"staff policy superuser on staff", SuperusersAndStaff, root, staff, true},
		{"staff on user", SuperusersAndStaff, staff, alice, true},
		{"staff on staff", SuperusersAndStaff, staff, mod, false},
		{"staff on superuser", SuperusersAndStaff, staff, root, false},
		{"user on user", SuperusersAndStaff, alice, User{ID: "bob", IsActive: true}, false},
		{"staff on inactive", SuperusersAndStaff, staff, gone, false},
	}

	r := NewRegistry()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			check, err := r.Resolve(tt.policy)
			require.NoError(t, err)
			assert.Equal(t, tt.want, check(tt.hijacker, tt.hijacked))
		})
	}
}

func TestResolveUnknown(t *testing.T) {
	_, err := NewRegistry().Resolve("myapp.permissions.nobody")
	assert.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestRegister(t *testing.T) {
	r := NewRegistry()
	r.Register("myapp.permissions.everyone", func(User, User) bool { return true })

	check, err := r.Resolve("myapp.permissions.everyone")
	require.NoError(t, err)
	assert.True(t, check(alice, staff))
	// self-hijack is refused regardless of policy
	assert.False(t, check(alice, alice))

	assert.Equal(t, []string{
		SuperusersAndStaff,
		SuperusersOnly,
		"myapp.permissions.everyone",
	}, r.IDs())
}
