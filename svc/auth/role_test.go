package auth_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/authsvc/svc/auth"
)

func TestRole_Ordering(t *testing.T) {
	t.Parallel()

	roles := auth.Roles()
	for i := range roles {
		for j := range roles {
			assert.Equal(t, i >= j, roles[i].AtLeast(roles[j]), "%s >= %s", roles[i], roles[j])
			want := 0
			if i < j {
				want = -1
			} else if i > j {
				want = 1
			}
			assert.Equal(t, want, roles[i].Compare(roles[j]))
		}
	}
	assert.False(t, auth.Role(0).AtLeast(auth.RoleUser))
}

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want auth.Role
		ok   bool
	}{
		{"user", auth.RoleUser, true},
		{"Manager", auth.RoleManager, true},
		{" ADMIN ", auth.RoleAdmin, true},
		{"superuser", auth.RoleSuperuser, true},
		{"root", 0, false},
		{"", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			got, err := auth.ParseRole(tt.in)
			if !tt.ok {
				assert.ErrorIs(t, err, auth.ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRole_JSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(map[string]auth.Role{"role": auth.RoleAdmin})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"admin"}`, string(b))

	var out struct {
		Role auth.Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"manager"}`), &out))
	assert.Equal(t, auth.RoleManager, out.Role)

	assert.Error(t, json.Unmarshal([]byte(`{"role":"god"}`), &out))
	_, err = json.Marshal(auth.Role(9))
	assert.Error(t, err)
}
