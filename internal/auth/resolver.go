package auth

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/orbo-dev/orbo/internal/access"
	"github.com/orbo-dev/orbo/internal/session"
)

// UserLookup finds users by ID. It returns (nil, nil) for unknown users.
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*access.User, error)
}

// Resolver resolves the caller from credentials stored in the request context.
// Cookie sessions take precedence over bearer tokens.
type Resolver struct {
	sessions session.Store
	tokens   *TokenManager
	users    UserLookup
	logger   zerolog.Logger
}

// NewResolver creates a resolver. sessions may be nil to disable cookie sessions.
func NewResolver(sessions session.Store, tokens *TokenManager, users UserLookup, logger zerolog.Logger) *Resolver {
	return &Resolver{
		sessions: sessions,
		tokens:   tokens,
		users:    users,
		logger:   logger.With().Str("component", "session_resolver").Logger(),
	}
}

// CurrentUser implements access.SessionResolver.
func (r *Resolver) CurrentUser(ctx context.Context) (*access.User, error) {
	creds := CredentialsFrom(ctx)
	if creds.Empty() {
		return nil, nil
	}

	if creds.SessionID != "" && r.sessions != nil {
		sess, err := r.sessions.Get(ctx, creds.SessionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load session: %w", err)
		}
		if sess != nil {
			user, err := r.existingUser(ctx, sess.UserID)
			if err != nil || user != nil {
				return user, err
			}
			if err := r.sessions.Delete(ctx, sess.SessionID); err != nil {
				r.logger.Warn().Err(err).Msg("Failed to delete session of unknown user")
			}
		} else {
			r.logger.Debug().Msg("Session cookie did not match a live session")
		}
	}

	if creds.BearerToken == "" {
		return nil, nil
	}

	claims, err := r.tokens.ValidateToken(creds.BearerToken)
	if err != nil {
		r.logger.Debug().Err(err).Msg("Rejected bearer token")
		return nil, nil
	}

	return r.existingUser(ctx, claims.UserID)
}

// existingUser loads userID from the user store. Sessions and tokens outlive
// deleted accounts, so a missing user resolves to no caller.
func (r *Resolver) existingUser(ctx context.Context, userID string) (*access.User, error) {
	user, err := r.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	if user == nil {
		r.logger.Warn().Str("user_id", userID).Msg("Credentials for unknown user")
		return nil, nil
	}
	return user, nil
}
