// Package access implements the organization-scoped access guard that every
// organization route runs before touching data.
package access

import (
	"context"
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrUnauthorized means no valid caller identity could be resolved.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden means the caller is known but lacks standing in the organization.
	ErrForbidden = errors.New("forbidden")
)

// User is the caller identity produced by a session resolver.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email,omitempty"`
}

// Membership is the point-read result for one (user, organization) pair.
type Membership struct {
	Role Role
}

// SessionResolver resolves the caller of the current request.
// It returns (nil, nil) when the request carries no valid session.
type SessionResolver interface {
	CurrentUser(ctx context.Context) (*User, error)
}

// MembershipStore reads membership rows keyed by (user, organization).
// It returns (nil, nil) when no row exists.
type MembershipStore interface {
	GetMembership(ctx context.Context, userID, orgID string) (*Membership, error)
}

// SuperadminStore reports platform operators.
type SuperadminStore interface {
	IsSuperadmin(ctx context.Context, userID string) (bool, error)
}

// Context is the outcome of a successful check. It belongs to the request that
// produced it and must not be cached.
type Context struct {
	User       User   `json:"user"`
	OrgID      string `json:"org_id"`
	Role       Role   `json:"role"`
	Superadmin bool   `json:"superadmin,omitempty"`
}

// Guard authorizes organization-scoped requests.
type Guard struct {
	sessions    SessionResolver
	memberships MembershipStore
	superadmins SuperadminStore
}

// Option configures a Guard.
type Option func(*Guard)

// WithSuperadminFallback lets superadmins without a membership row act as owner.
func WithSuperadminFallback(store SuperadminStore) Option {
	return func(g *Guard) {
		g.superadmins = store
	}
}

// New creates a guard over the given collaborators.
func New(sessions SessionResolver, memberships MembershipStore, opts ...Option) *Guard {
	g := &Guard{
		sessions:    sessions,
		memberships: memberships,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Require checks that the caller is authenticated and holds a membership in orgID.
// When allowed is non-empty the membership role must also be one of allowed.
//
// Failures match ErrUnauthorized or ErrForbidden via errors.Is. Any other error
// comes from a collaborator and is returned wrapped.
func (g *Guard) Require(ctx context.Context, orgID string, allowed ...Role) (*Context, error) {
	user, err := g.sessions.CurrentUser(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve session: %w", err)
	}
	if user == nil || user.ID == "" {
		return nil, ErrUnauthorized
	}

	if orgID == "" {
		return nil, fmt.Errorf("%w: organization id is empty", ErrForbidden)
	}

	authCtx, err := g.resolveRole(ctx, *user, orgID)
	if err != nil {
		return nil, err
	}

	if len(allowed) > 0 && !slices.Contains(allowed, authCtx.Role) {
		return nil, fmt.Errorf("%w: role %s not in %v", ErrForbidden, authCtx.Role, allowed)
	}

	return authCtx, nil
}

func (g *Guard) resolveRole(ctx context.Context, user User, orgID string) (*Context, error) {
	membership, err := g.memberships.GetMembership(ctx, user.ID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to load membership: %w", err)
	}
	if membership != nil {
		return &Context{User: user, OrgID: orgID, Role: membership.Role}, nil
	}

	if g.superadmins != nil {
		ok, err := g.superadmins.IsSuperadmin(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check superadmin: %w", err)
		}
		if ok {
			return &Context{User: user, OrgID: orgID, Role: RoleOwner, Superadmin: true}, nil
		}
	}

	return nil, fmt.Errorf("%w: no membership", ErrForbidden)
}

// IsUnauthorized reports whether err is an authentication failure.
func IsUnauthorized(err error) bool {
	return errors.Is(err, ErrUnauthorized)
}

// IsForbidden reports whether err is an authorization failure.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
