package server

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/orbo-dev/orbo/internal/models"
	"github.com/orbo-dev/orbo/internal/store"
	"github.com/orbo-dev/orbo/internal/tasks"
)

var announcementStatusFilters = map[string]bool{
	"all":                        true,
	"upcoming":                   true,
	models.AnnouncementScheduled: true,
	models.AnnouncementSending:   true,
	models.AnnouncementSent:      true,
	models.AnnouncementCancelled: true,
}

// CreateAnnouncementRequest represents a request to schedule an announcement
type CreateAnnouncementRequest struct {
	Title       string    `json:"title" binding:"required,max=200"`
	Content     string    `json:"content" binding:"required"`
	ScheduledAt time.Time `json:"scheduled_at" binding:"required"`
}

// UpdateAnnouncementRequest carries the fields to change; nil fields are kept
type UpdateAnnouncementRequest struct {
	Title       *string    `json:"title" binding:"omitempty,max=200"`
	Content     *string    `json:"content" binding:"omitempty,min=1"`
	ScheduledAt *time.Time `json:"scheduled_at"`
	Status      *string    `json:"status" binding:"omitempty,oneof=scheduled cancelled"`
}

// @Summary List announcements
// @Description List an organization's announcements, optionally filtered by status and scheduled window
// @Tags announcements
// @Produce json
// @Security BearerAuth
// @Param orgId path string true "Organization ID"
// @Param status query string false "all, upcoming, scheduled, sending, sent, cancelled"
// @Param from query string false "RFC3339 lower bound on scheduled_at"
// @Param to query string false "RFC3339 upper bound on scheduled_at"
// @Success 200 {array} models.Announcement
// @Failure 400 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/orgs/{orgId}/announcements [get]
func (s *Server) listAnnouncements(c *gin.Context) {
	authCtx := accessContext(c)

	filter := store.AnnouncementFilter{Status: c.DefaultQuery("status", "all")}
	if !announcementStatusFilters[filter.Status] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter"})
		return
	}

	var err error
	if filter.From, err = parseTimeQuery(c, "from"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid from: expected RFC 3339 time"})
		return
	}
	if filter.To, err = parseTimeQuery(c, "to"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid to: expected RFC 3339 time"})
		return
	}

	announcements, err := s.store.ListAnnouncements(c.Request.Context(), authCtx.OrgID, filter)
	if err != nil {
		s.respondInternal(c, err, "Failed to list announcements")
		return
	}

	if announcements == nil {
		announcements = []models.Announcement{}
	}
	c.JSON(http.StatusOK, announcements)
}

// @Summary Schedule announcement
// @Tags announcements
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param orgId path string true "Organization ID"
// @Param request body CreateAnnouncementRequest true "Announcement"
// @Success 201 {object} models.Announcement
// @Failure 403 {object} map[string]interface{}
// @Router /api/orgs/{orgId}/announcements [post]
func (s *Server) createAnnouncement(c *gin.Context) {
	authCtx := accessContext(c)

	var req CreateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	a := &models.Announcement{
		OrgID:       authCtx.OrgID,
		Title:       req.Title,
		Content:     req.Content,
		ScheduledAt: req.ScheduledAt.UTC(),
		CreatedByID: authCtx.User.ID,
	}
	if err := s.store.CreateAnnouncement(c.Request.Context(), a); err != nil {
		s.respondInternal(c, err, "Failed to create announcement")
		return
	}

	s.recordAudit(c, tasks.AdminActionPayload{
		OrgID:        authCtx.OrgID,
		Action:       "announcement.create",
		ResourceType: "announcement",
		ResourceID:   a.ID,
		Metadata:     map[string]any{"title": a.Title},
	})

	c.JSON(http.StatusCreated, a)
}

func (s *Server) updateAnnouncement(c *gin.Context) {
	authCtx := accessContext(c)
	id := c.Param("id")

	var req UpdateAnnouncementRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updates := map[string]any{}
	if req.Title != nil {
		updates["title"] = *req.Title
	}
	if req.Content != nil {
		updates["content"] = *req.Content
	}
	if req.ScheduledAt != nil {
		updates["scheduled_at"] = req.ScheduledAt.UTC()
	}
	if req.Status != nil {
		updates["status"] = *req.Status
	}

	a, err := s.store.UpdateAnnouncement(c.Request.Context(), authCtx.OrgID, id, updates)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Announcement not found"})
			return
		}
		s.respondInternal(c, err, "Failed to update announcement")
		return
	}

	s.recordAudit(c, tasks.AdminActionPayload{
		OrgID:        authCtx.OrgID,
		Action:       "announcement.update",
		ResourceType: "announcement",
		ResourceID:   id,
		Metadata:     map[string]any{"fields": len(updates)},
	})

	c.JSON(http.StatusOK, a)
}

func (s *Server) deleteAnnouncement(c *gin.Context) {
	authCtx := accessContext(c)
	id := c.Param("id")

	if err := s.store.DeleteAnnouncement(c.Request.Context(), authCtx.OrgID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Announcement not found"})
			return
		}
		s.respondInternal(c, err, "Failed to delete announcement")
		return
	}

	s.recordAudit(c, tasks.AdminActionPayload{
		OrgID:        authCtx.OrgID,
		Action:       "announcement.delete",
		ResourceType: "announcement",
		ResourceID:   id,
	})

	c.Status(http.StatusNoContent)
}

func (s *Server) listAuditLog(c *gin.Context) {
	authCtx := accessContext(c)

	limit := 100
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
			return
		}
		limit = n
	}

	actions, err := s.store.ListAdminActions(c.Request.Context(), authCtx.OrgID, limit)
	if err != nil {
		s.respondInternal(c, err, "Failed to list audit log")
		return
	}

	if actions == nil {
		actions = []models.AdminAction{}
	}
	c.JSON(http.StatusOK, actions)
}

func parseTimeQuery(c *gin.Context, key string) (*time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return nil, err
	}
	// scheduled_at is stored in UTC
	t = t.UTC()
	return &t, nil
}
