package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbo-dev/orbo/internal/auth"
	"github.com/orbo-dev/orbo/internal/models"
	"github.com/orbo-dev/orbo/internal/session"
	"github.com/orbo-dev/orbo/internal/store"
)

// RegisterRequest represents a sign-up request
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
	Name     string `json:"name" binding:"max=100"`
}

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse represents a login response
type LoginResponse struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *UserDetail `json:"user"`
}

// UserDetail represents user information returned in responses
type UserDetail struct {
	ID         string    `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Superadmin bool      `json:"superadmin"`
	CreatedAt  time.Time `json:"created_at"`
}

func newUserDetail(user *models.User) *UserDetail {
	return &UserDetail{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		CreatedAt: user.CreatedAt,
	}
}

func (s *Server) register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.respondInternal(c, err, "Failed to hash password")
		return
	}

	user := &models.User{
		Email:        req.Email,
		PasswordHash: passwordHash,
		Name:         req.Name,
	}
	if err := s.store.CreateUser(c.Request.Context(), user); err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
			return
		}
		s.respondInternal(c, err, "Failed to create user")
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User registered")

	s.startSession(c, user, http.StatusCreated)
}

func (s *Server) login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := s.store.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
			return
		}
		s.respondInternal(c, err, "Failed to find user")
		return
	}

	if err := auth.VerifyPassword(req.Password, user.PasswordHash); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid email or password"})
		return
	}

	s.logger.Info().Str("user_id", user.ID).Str("email", user.Email).Msg("User logged in")

	s.startSession(c, user, http.StatusOK)
}

// startSession issues both credentials: a bearer token for API clients and a
// cookie-backed session for the browser.
func (s *Server) startSession(c *gin.Context, user *models.User, status int) {
	token, err := s.tokens.GenerateToken(user.ID, user.Email)
	if err != nil {
		s.respondInternal(c, err, "Failed to generate token")
		return
	}

	sess := session.New(user.ID, user.Email, s.config.Auth.SessionTTL)
	if err := s.sessions.Create(c.Request.Context(), sess); err != nil {
		s.respondInternal(c, err, "Failed to create session")
		return
	}
	session.SetCookie(c.Writer, sess.SessionID, sess.ExpiresAt, s.cookieOpts)

	c.JSON(status, LoginResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.config.Auth.TokenTTL).UTC(),
		User:      newUserDetail(user),
	})
}

func (s *Server) logout(c *gin.Context) {
	creds := auth.CredentialsFrom(c.Request.Context())
	if creds.SessionID != "" {
		if err := s.sessions.Delete(c.Request.Context(), creds.SessionID); err != nil {
			s.respondInternal(c, err, "Failed to delete session")
			return
		}
	}

	session.ClearCookie(c.Writer, s.cookieOpts)
	c.Status(http.StatusNoContent)
}

func (s *Server) getCurrentUser(c *gin.Context) {
	caller, _ := currentUser(c)

	user, err := s.store.FindUser(c.Request.Context(), caller.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			respondWithError(c, s.logger, http.StatusUnauthorized, err, "Unauthorized")
			return
		}
		s.respondInternal(c, err, "Failed to find user")
		return
	}

	isSuperadmin, err := s.superadmins.IsSuperadmin(c.Request.Context(), user.ID)
	if err != nil {
		s.respondInternal(c, err, "Failed to check superadmin")
		return
	}

	detail := newUserDetail(user)
	detail.Superadmin = isSuperadmin
	c.JSON(http.StatusOK, detail)
}
