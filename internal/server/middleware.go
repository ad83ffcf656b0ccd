package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/orbo-dev/orbo/internal/access"
	"github.com/orbo-dev/orbo/internal/auth"
)

const (
	userKey       = "user"
	orgIDParam    = "orgId"
	internalError = "Internal server error"
)

func respondWithError(c *gin.Context, log zerolog.Logger, statusCode int, err error, message string) {
	log.Warn().Err(err).Msg(message)
	c.JSON(statusCode, gin.H{"error": message})
	c.Abort()
}

func (s *Server) respondInternal(c *gin.Context, err error, message string) {
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg(message)
	c.JSON(http.StatusInternalServerError, gin.H{"error": internalError})
	c.Abort()
}

// respondWithGuardError maps guard failures onto 401 and 403. Anything else
// came from a collaborator and is a 500.
func (s *Server) respondWithGuardError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, access.ErrUnauthorized):
		respondWithError(c, s.logger, http.StatusUnauthorized, err, "Unauthorized")
	case errors.Is(err, access.ErrForbidden):
		respondWithError(c, s.logger, http.StatusForbidden, err, "Forbidden")
	default:
		s.respondInternal(c, err, "Access check failed")
	}
}

// credentialsMiddleware copies the session cookie and bearer token into the
// request context, where the session resolver reads them.
func credentialsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		creds := auth.ExtractCredentials(c.Request)
		c.Request = c.Request.WithContext(auth.WithCredentials(c.Request.Context(), creds))
		c.Next()
	}
}

// requireUser rejects requests without a resolvable caller
func (s *Server) requireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.resolver.CurrentUser(c.Request.Context())
		if err != nil {
			s.respondInternal(c, err, "Failed to resolve session")
			return
		}
		if user == nil {
			respondWithError(c, s.logger, http.StatusUnauthorized, access.ErrUnauthorized, "Unauthorized")
			return
		}

		c.Set(userKey, user)
		c.Next()
	}
}

// requireOrg runs the access guard for the :orgId route parameter. With no
// roles any member passes.
func (s *Server) requireOrg(allowed ...access.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := s.authorize(c, allowed...); !ok {
			return
		}
		c.Next()
	}
}

// authorize runs the guard for the :orgId route parameter and stores the
// resulting context on the request. On failure the response is already written.
func (s *Server) authorize(c *gin.Context, allowed ...access.Role) (*access.Context, bool) {
	orgID := strings.TrimSpace(c.Param(orgIDParam))
	if orgID == "" {
		respondWithError(c, s.logger, http.StatusBadRequest, errors.New("empty org id"), "Organization ID is required")
		return nil, false
	}

	authCtx, err := s.guard.Require(c.Request.Context(), orgID, allowed...)
	if err != nil {
		s.respondWithGuardError(c, err)
		return nil, false
	}

	c.Set(userKey, &authCtx.User)
	c.Request = c.Request.WithContext(access.WithContext(c.Request.Context(), authCtx))
	return authCtx, true
}

// requireSuperadmin admits platform operators only. It must run after requireUser.
func (s *Server) requireSuperadmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := currentUser(c)
		if !ok {
			respondWithError(c, s.logger, http.StatusUnauthorized, access.ErrUnauthorized, "Unauthorized")
			return
		}

		isSuperadmin, err := s.superadmins.IsSuperadmin(c.Request.Context(), user.ID)
		if err != nil {
			s.respondInternal(c, err, "Failed to check superadmin")
			return
		}
		if !isSuperadmin {
			respondWithError(c, s.logger, http.StatusForbidden, errors.New("not superadmin"), "Superadmin access required")
			return
		}

		c.Next()
	}
}

func currentUser(c *gin.Context) (*access.User, bool) {
	v, exists := c.Get(userKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*access.User)
	return user, ok
}

func accessContext(c *gin.Context) *access.Context {
	authCtx, _ := access.FromContext(c.Request.Context())
	return authCtx
}
