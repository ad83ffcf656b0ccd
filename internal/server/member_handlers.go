package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbo-dev/orbo/internal/access"
	"github.com/orbo-dev/orbo/internal/store"
	"github.com/orbo-dev/orbo/internal/tasks"
)

// AddMemberRequest invites an existing user into the organization
type AddMemberRequest struct {
	Email string `json:"email" binding:"required,email"`
	Role  string `json:"role" binding:"required,orgrole"`
}

// UpdateMemberRequest changes a member's role
type UpdateMemberRequest struct {
	Role string `json:"role" binding:"required,orgrole"`
}

// MemberDetail is one row of an organization's member list
type MemberDetail struct {
	UserID   string      `json:"user_id"`
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Role     access.Role `json:"role"`
	JoinedAt time.Time   `json:"joined_at"`
}

func (s *Server) listMembers(c *gin.Context) {
	authCtx := accessContext(c)

	members, err := s.store.ListMembers(c.Request.Context(), authCtx.OrgID)
	if err != nil {
		s.respondInternal(c, err, "Failed to list members")
		return
	}

	details := make([]MemberDetail, len(members))
	for i, m := range members {
		details[i] = MemberDetail{
			UserID:   m.UserID,
			Email:    m.User.Email,
			Name:     m.User.Name,
			Role:     m.Role,
			JoinedAt: m.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, details)
}

func (s *Server) addMember(c *gin.Context) {
	authCtx := accessContext(c)

	var req AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role, _ := access.ParseRole(req.Role)

	if role == access.RoleOwner && authCtx.Role != access.RoleOwner {
		respondWithError(c, s.logger, http.StatusForbidden, access.ErrForbidden, "Only owners can grant the owner role")
		return
	}

	user, err := s.store.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		s.respondInternal(c, err, "Failed to find user")
		return
	}

	m, err := s.store.AddMember(c.Request.Context(), authCtx.OrgID, user.ID, role)
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			c.JSON(http.StatusConflict, gin.H{"error": "User is already a member"})
			return
		}
		s.respondInternal(c, err, "Failed to add member")
		return
	}

	s.logger.Info().
		Str("org_id", authCtx.OrgID).
		Str("user_id", user.ID).
		Stringer("role", role).
		Str("added_by", authCtx.User.ID).
		Msg("Member added")

	s.recordAudit(c, tasks.AdminActionPayload{
		OrgID:        authCtx.OrgID,
		Action:       "member.add",
		ResourceType: "membership",
		ResourceID:   user.ID,
		Metadata:     map[string]any{"role": role.String()},
	})

	c.JSON(http.StatusCreated, MemberDetail{
		UserID:   user.ID,
		Email:    user.Email,
		Name:     user.Name,
		Role:     m.Role,
		JoinedAt: m.CreatedAt,
	})
}

func (s *Server) updateMemberRole(c *gin.Context) {
	authCtx := accessContext(c)
	userID := c.Param("userId")

	var req UpdateMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role, _ := access.ParseRole(req.Role)

	m, err := s.store.UpdateMemberRole(c.Request.Context(), authCtx.OrgID, userID, role)
	if err != nil {
		s.respondWithMemberError(c, err, "Failed to update member role")
		return
	}

	s.recordAudit(c, tasks.AdminActionPayload{
		OrgID:        authCtx.OrgID,
		Action:       "member.role_change",
		ResourceType: "membership",
		ResourceID:   userID,
		Metadata:     map[string]any{"role": role.String()},
	})

	c.JSON(http.StatusOK, gin.H{"user_id": m.UserID, "role": m.Role})
}

func (s *Server) removeMember(c *gin.Context) {
	authCtx := accessContext(c)
	userID := c.Param("userId")
	ctx := c.Request.Context()

	// Admins manage members and admins; owners are managed by owners
	if authCtx.Role != access.RoleOwner {
		target, err := s.store.GetMembership(ctx, userID, authCtx.OrgID)
		if err != nil {
			s.respondInternal(c, err, "Failed to find membership")
			return
		}
		if target != nil && target.Role == access.RoleOwner {
			respondWithError(c, s.logger, http.StatusForbidden, access.ErrForbidden, "Only owners can remove an owner")
			return
		}
	}

	if err := s.store.RemoveMember(ctx, authCtx.OrgID, userID); err != nil {
		s.respondWithMemberError(c, err, "Failed to remove member")
		return
	}

	s.recordAudit(c, tasks.AdminActionPayload{
		OrgID:        authCtx.OrgID,
		Action:       "member.remove",
		ResourceType: "membership",
		ResourceID:   userID,
	})

	c.Status(http.StatusNoContent)
}

func (s *Server) respondWithMemberError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Member not found"})
	case errors.Is(err, store.ErrLastOwner):
		c.JSON(http.StatusConflict, gin.H{"error": "Organization must keep at least one owner"})
	default:
		s.respondInternal(c, err, message)
	}
}
