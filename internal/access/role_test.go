package access

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		in      string
		want    Role
		wantErr bool
	}{
		{in: "guest", want: RoleGuest},
		{in: "member", want: RoleMember},
		{in: "admin", want: RoleAdmin},
		{in: "owner", want: RoleOwner},
		{in: " Owner ", want: RoleOwner},
		{in: "", wantErr: true},
		{in: "superadmin", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRole(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoleOrder(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleAdmin))
	assert.False(t, RoleMember.AtLeast(RoleAdmin))
	assert.False(t, RoleGuest.AtLeast(RoleMember))

	assert.Equal(t, []Role{RoleOwner, RoleAdmin}, RolesAtLeast(RoleAdmin))
	assert.Equal(t, []Role{RoleOwner}, RolesAtLeast(RoleOwner))
	assert.Equal(t, []Role{RoleOwner, RoleAdmin, RoleMember, RoleGuest}, RolesAtLeast(RoleGuest))

	// An empty set would let any member through
	assert.Panics(t, func() { RolesAtLeast(RoleOwner + 1) })
	assert.Panics(t, func() { RolesAtLeast(Role(-1)) })
}

func TestRoleString(t *testing.T) {
	assert.Equal(t, "admin", RoleAdmin.String())
	assert.Equal(t, "role(9)", Role(9).String())
	assert.False(t, Role(-1).Valid())
}

func TestRoleJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{Role: RoleAdmin})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"admin"}`, string(data))

	var decoded struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"owner"}`), &decoded))
	assert.Equal(t, RoleOwner, decoded.Role)

	assert.Error(t, json.Unmarshal([]byte(`{"role":"root"}`), &decoded))
	assert.Error(t, json.Unmarshal([]byte(`{"role":3}`), &decoded))

	_, err = json.Marshal(Role(7))
	assert.Error(t, err)
}

func TestRoleSQL(t *testing.T) {
	v, err := RoleMember.Value()
	require.NoError(t, err)
	assert.Equal(t, "member", v)

	var r Role
	require.NoError(t, r.Scan([]byte("admin")))
	assert.Equal(t, RoleAdmin, r)
	require.NoError(t, r.Scan("guest"))
	assert.Equal(t, RoleGuest, r)

	assert.Error(t, r.Scan(nil))
	assert.Error(t, r.Scan(42))
	assert.Error(t, r.Scan("boss"))
}
