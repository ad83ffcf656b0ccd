package access

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSessions struct {
	user  *User
	err   error
	calls int
}

func (f *fakeSessions) CurrentUser(ctx context.Context) (*User, error) {
	f.calls++
	return f.user, f.err
}

type fakeMemberships struct {
	rows  map[string]Role
	err   error
	calls int
}

func (f *fakeMemberships) GetMembership(ctx context.Context, userID, orgID string) (*Membership, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	role, ok := f.rows[userID+"/"+orgID]
	if !ok {
		return nil, nil
	}
	return &Membership{Role: role}, nil
}

type fakeSuperadmins struct {
	ids map[string]bool
	err error
}

func (f *fakeSuperadmins) IsSuperadmin(ctx context.Context, userID string) (bool, error) {
	return f.ids[userID], f.err
}

func newGuard(user *User, rows map[string]Role, opts ...Option) (*Guard, *fakeSessions, *fakeMemberships) {
	sessions := &fakeSessions{user: user}
	memberships := &fakeMemberships{rows: rows}
	return New(sessions, memberships, opts...), sessions, memberships
}

var u1 = &User{ID: "u1", Email: "u1@example.com"}

func TestRequire_NoSession(t *testing.T) {
	allowedSets := [][]Role{
		nil,
		{RoleOwner},
		{RoleOwner, RoleAdmin},
		AllRoles(),
	}

	for _, allowed := range allowedSets {
		t.Run(fmt.Sprintf("allowed=%v", allowed), func(t *testing.T) {
			guard, _, memberships := newGuard(nil, map[string]Role{"u1/o1": RoleOwner})

			authCtx, err := guard.Require(context.Background(), "o1", allowed...)

			require.ErrorIs(t, err, ErrUnauthorized)
			assert.False(t, IsForbidden(err))
			assert.Nil(t, authCtx)
			assert.Zero(t, memberships.calls, "membership must not be read without a session")
		})
	}
}

func TestRequire_EmptyUserIDIsUnauthorized(t *testing.T) {
	guard, _, _ := newGuard(&User{}, nil)

	_, err := guard.Require(context.Background(), "o1")

	require.ErrorIs(t, err, ErrUnauthorized)
}

func TestRequire_NoMembership(t *testing.T) {
	guard, _, _ := newGuard(u1, map[string]Role{"u1/other": RoleOwner})

	for _, allowed := range [][]Role{nil, {RoleOwner, RoleAdmin}} {
		authCtx, err := guard.Require(context.Background(), "o1", allowed...)

		require.ErrorIs(t, err, ErrForbidden)
		assert.False(t, IsUnauthorized(err))
		assert.Nil(t, authCtx)
	}
}

func TestRequire_EmptyOrganization(t *testing.T) {
	guard, _, memberships := newGuard(u1, map[string]Role{"u1/": RoleOwner})

	_, err := guard.Require(context.Background(), "")

	require.ErrorIs(t, err, ErrForbidden)
	assert.Zero(t, memberships.calls)
}

func TestRequire_AnyMemberReturnsStoredRole(t *testing.T) {
	for _, role := range AllRoles() {
		t.Run(role.String(), func(t *testing.T) {
			guard, _, _ := newGuard(u1, map[string]Role{"u1/o1": role})

			authCtx, err := guard.Require(context.Background(), "o1")

			require.NoError(t, err)
			assert.Equal(t, role, authCtx.Role)
			assert.Equal(t, *u1, authCtx.User)
			assert.Equal(t, "o1", authCtx.OrgID)
			assert.False(t, authCtx.Superadmin)
		})
	}
}

func TestRequire_AllowedRolesGrid(t *testing.T) {
	allowedSets := [][]Role{
		{RoleOwner},
		{RoleOwner, RoleAdmin},
		{RoleMember},
		{RoleGuest, RoleMember},
		AllRoles(),
	}

	for _, role := range AllRoles() {
		for _, allowed := range allowedSets {
			t.Run(fmt.Sprintf("%s in %v", role, allowed), func(t *testing.T) {
				guard, _, _ := newGuard(u1, map[string]Role{"u1/o1": role})

				authCtx, err := guard.Require(context.Background(), "o1", allowed...)

				member := false
				for _, r := range allowed {
					if r == role {
						member = true
					}
				}
				if member {
					require.NoError(t, err)
					assert.Equal(t, role, authCtx.Role)
				} else {
					require.ErrorIs(t, err, ErrForbidden)
					assert.Nil(t, authCtx)
				}
			})
		}
	}
}

func TestRequire_Scenarios(t *testing.T) {
	t.Run("member denied admin operation", func(t *testing.T) {
		guard, _, _ := newGuard(u1, map[string]Role{"u1/o1": RoleMember})

		_, err := guard.Require(context.Background(), "o1", RoleOwner, RoleAdmin)

		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("owner allowed admin operation", func(t *testing.T) {
		guard, _, _ := newGuard(u1, map[string]Role{"u1/o1": RoleOwner})

		authCtx, err := guard.Require(context.Background(), "o1", RoleOwner, RoleAdmin)

		require.NoError(t, err)
		assert.Equal(t, "u1", authCtx.User.ID)
		assert.Equal(t, RoleOwner, authCtx.Role)
	})

	t.Run("no session", func(t *testing.T) {
		guard, _, _ := newGuard(nil, nil)

		_, err := guard.Require(context.Background(), "o1")

		require.ErrorIs(t, err, ErrUnauthorized)
	})
}

func TestRequire_Idempotent(t *testing.T) {
	guard, sessions, memberships := newGuard(u1, map[string]Role{"u1/o1": RoleAdmin})

	first, err1 := guard.Require(context.Background(), "o1", RoleOwner, RoleAdmin)
	second, err2 := guard.Require(context.Background(), "o1", RoleOwner, RoleAdmin)

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.Equal(t, first, second)
	assert.NotSame(t, first, second)
	assert.Equal(t, 2, sessions.calls)
	assert.Equal(t, 2, memberships.calls, "results must not be cached between calls")
}

func TestRequire_CollaboratorErrors(t *testing.T) {
	boom := errors.New("connection refused")

	t.Run("session resolver", func(t *testing.T) {
		guard := New(&fakeSessions{err: boom}, &fakeMemberships{})

		_, err := guard.Require(context.Background(), "o1")

		require.ErrorIs(t, err, boom)
		assert.False(t, IsUnauthorized(err))
		assert.False(t, IsForbidden(err))
	})

	t.Run("membership store", func(t *testing.T) {
		guard := New(&fakeSessions{user: u1}, &fakeMemberships{err: boom})

		_, err := guard.Require(context.Background(), "o1")

		require.ErrorIs(t, err, boom)
		assert.False(t, IsForbidden(err))
	})
}

func TestRequire_SuperadminFallback(t *testing.T) {
	superadmins := &fakeSuperadmins{ids: map[string]bool{"u1": true}}

	t.Run("disabled by default", func(t *testing.T) {
		guard, _, _ := newGuard(u1, nil)

		_, err := guard.Require(context.Background(), "o1")

		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("superadmin without membership acts as owner", func(t *testing.T) {
		guard, _, _ := newGuard(u1, nil, WithSuperadminFallback(superadmins))

		authCtx, err := guard.Require(context.Background(), "o1", RoleOwner, RoleAdmin)

		require.NoError(t, err)
		assert.Equal(t, RoleOwner, authCtx.Role)
		assert.True(t, authCtx.Superadmin)
	})

	t.Run("membership row wins over fallback", func(t *testing.T) {
		guard, _, _ := newGuard(u1, map[string]Role{"u1/o1": RoleMember}, WithSuperadminFallback(superadmins))

		_, err := guard.Require(context.Background(), "o1", RoleOwner, RoleAdmin)

		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("non superadmin still forbidden", func(t *testing.T) {
		other := &User{ID: "u2"}
		guard, _, _ := newGuard(other, nil, WithSuperadminFallback(superadmins))

		_, err := guard.Require(context.Background(), "o1")

		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("store failure", func(t *testing.T) {
		guard, _, _ := newGuard(u1, nil, WithSuperadminFallback(&fakeSuperadmins{err: errors.New("down")}))

		_, err := guard.Require(context.Background(), "o1")

		require.Error(t, err)
		assert.False(t, IsForbidden(err))
	})
}

func TestContextRoundTrip(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	authCtx := &Context{User: *u1, OrgID: "o1", Role: RoleAdmin}
	got, ok := FromContext(WithContext(context.Background(), authCtx))

	require.True(t, ok)
	assert.Same(t, authCtx, got)
}
