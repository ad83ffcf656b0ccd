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

// CreateOrganizationRequest represents a request to create an organization
type CreateOrganizationRequest struct {
	Name string `json:"name" binding:"required,max=100"`
}

// OrganizationDetail is an organization as seen by one of its members
type OrganizationDetail struct {
	ID        string      `json:"id"`
	Name      string      `json:"name"`
	Role      access.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
}

func (s *Server) listMyOrganizations(c *gin.Context) {
	user, _ := currentUser(c)

	memberships, err := s.store.ListUserMemberships(c.Request.Context(), user.ID)
	if err != nil {
		s.respondInternal(c, err, "Failed to list organizations")
		return
	}

	orgs := make([]OrganizationDetail, len(memberships))
	for i, m := range memberships {
		orgs[i] = OrganizationDetail{
			ID:        m.OrgID,
			Name:      m.Organization.Name,
			Role:      m.Role,
			CreatedAt: m.Organization.CreatedAt,
		}
	}

	c.JSON(http.StatusOK, orgs)
}

// @Summary Create organization
// @Description Create an organization owned by the caller
// @Tags organizations
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateOrganizationRequest true "Organization"
// @Success 201 {object} OrganizationDetail
// @Failure 400 {object} map[string]interface{}
// @Router /api/orgs [post]
func (s *Server) createOrganization(c *gin.Context) {
	var req CreateOrganizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, _ := currentUser(c)
	org, err := s.store.CreateOrganization(c.Request.Context(), req.Name, user.ID)
	if err != nil {
		s.respondInternal(c, err, "Failed to create organization")
		return
	}

	s.recordAudit(c, tasks.AdminActionPayload{
		OrgID:        org.ID,
		Action:       "organization.create",
		ResourceType: "organization",
		ResourceID:   org.ID,
		Metadata:     map[string]any{"name": org.Name},
	})

	c.JSON(http.StatusCreated, OrganizationDetail{
		ID:        org.ID,
		Name:      org.Name,
		Role:      access.RoleOwner,
		CreatedAt: org.CreatedAt,
	})
}

func (s *Server) getOrganization(c *gin.Context) {
	authCtx := accessContext(c)

	org, err := s.store.FindOrganization(c.Request.Context(), authCtx.OrgID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Organization not found"})
			return
		}
		s.respondInternal(c, err, "Failed to find organization")
		return
	}

	c.JSON(http.StatusOK, OrganizationDetail{
		ID:        org.ID,
		Name:      org.Name,
		Role:      authCtx.Role,
		CreatedAt: org.CreatedAt,
	})
}

// @Summary Check organization access
// @Description Runs the access guard with the roles named in the role query parameter and returns the caller's authorization context
// @Tags organizations
// @Produce json
// @Security BearerAuth
// @Param orgId path string true "Organization ID"
// @Param role query []string false "Allowed roles (owner, admin, member, guest)"
// @Success 200 {object} access.Context
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/orgs/{orgId}/access [get]
func (s *Server) checkAccess(c *gin.Context) {
	var allowed []access.Role
	for _, name := range c.QueryArray("role") {
		role, err := access.ParseRole(name)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		allowed = append(allowed, role)
	}

	authCtx, ok := s.authorize(c, allowed...)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, authCtx)
}

func (s *Server) listAllOrganizations(c *gin.Context) {
	orgs, err := s.store.ListOrganizations(c.Request.Context())
	if err != nil {
		s.respondInternal(c, err, "Failed to list organizations")
		return
	}
	c.JSON(http.StatusOK, orgs)
}

// GrantSuperadminRequest identifies the user to promote
type GrantSuperadminRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (s *Server) grantSuperadmin(c *gin.Context) {
	var req GrantSuperadminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	target, err := s.store.FindUserByEmail(c.Request.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
			return
		}
		s.respondInternal(c, err, "Failed to find user")
		return
	}

	if err := s.store.GrantSuperadmin(c.Request.Context(), target.ID); err != nil {
		s.respondInternal(c, err, "Failed to grant superadmin")
		return
	}

	s.recordAudit(c, tasks.AdminActionPayload{
		Action:       "superadmin.grant",
		ResourceType: "user",
		ResourceID:   target.ID,
	})

	c.Status(http.StatusNoContent)
}
