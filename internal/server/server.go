// Package server exposes the organization API over HTTP. Every
// organization-scoped route runs the access guard before its handler.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/orbo-dev/orbo/internal/access"
	"github.com/orbo-dev/orbo/internal/auth"
	"github.com/orbo-dev/orbo/internal/config"
	"github.com/orbo-dev/orbo/internal/pgclient"
	"github.com/orbo-dev/orbo/internal/session"
	"github.com/orbo-dev/orbo/internal/store"
	"github.com/orbo-dev/orbo/internal/tasks"
)

// AuditRecorder records privileged mutations. Implementations must not fail
// the request that triggered them.
type AuditRecorder interface {
	RecordAdminAction(ctx context.Context, p tasks.AdminActionPayload)
}

// Dependencies are the process-wide collaborators the server runs on
type Dependencies struct {
	DB    *gorm.DB
	Redis *redis.Client
	Audit AuditRecorder

	// Optional overrides; both default to the local store
	Memberships access.MembershipStore
	Superadmins access.SuperadminStore
}

// Server represents the HTTP server
type Server struct {
	router      *gin.Engine
	config      *config.Config
	logger      zerolog.Logger
	store       *store.Store
	sessions    session.Store
	tokens      *auth.TokenManager
	resolver    *auth.Resolver
	guard       *access.Guard
	superadmins access.SuperadminStore
	audit       AuditRecorder
	cookieOpts  session.CookieOptions
	version     string

	closers []func() error
}

// New creates a server and opens its database, Redis and queue connections
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	db, err := store.Open(cfg.Database.URL, zlog)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Address})
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Address})

	deps := Dependencies{
		DB:    db,
		Redis: rdb,
		Audit: tasks.NewQueueRecorder(asynqClient, zlog),
	}

	var closers []func() error
	if cfg.Database.MembershipSource == config.MembershipSourcePostgres {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		pg, err := pgclient.Connect(ctx, cfg.Database.PostgresURL)
		if err != nil {
			return nil, err
		}
		deps.Memberships = pg
		deps.Superadmins = pg
		closers = append(closers, pg.Close)
		zlog.Info().Msg("Reading memberships from hosted PostgreSQL")
	}

	srv, err := NewWithDependencies(cfg, zlog, version, deps)
	if err != nil {
		return nil, err
	}

	srv.closers = append(srv.closers, closers...)
	srv.closers = append(srv.closers, asynqClient.Close, rdb.Close, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	return srv, nil
}

// NewWithDependencies creates a server over already-open collaborators
func NewWithDependencies(cfg *config.Config, zlog zerolog.Logger, version string, deps Dependencies) (*Server, error) {
	if deps.DB == nil || deps.Redis == nil || deps.Audit == nil {
		return nil, errors.New("server requires a database, a redis client and an audit recorder")
	}

	if err := registerValidators(); err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}

	st := store.New(deps.DB, zlog)
	sessions := session.NewRedisStore(deps.Redis)
	resolver := auth.NewResolver(sessions, tokens, st, zlog)

	memberships := deps.Memberships
	if memberships == nil {
		memberships = st
	}
	superadmins := deps.Superadmins
	if superadmins == nil {
		superadmins = st
	}

	var guardOpts []access.Option
	if cfg.Guard.SuperadminFallback {
		guardOpts = append(guardOpts, access.WithSuperadminFallback(superadmins))
		zlog.Info().Msg("Superadmin fallback enabled for organization routes")
	}

	server := &Server{
		config:      cfg,
		logger:      zlog,
		store:       st,
		sessions:    sessions,
		tokens:      tokens,
		resolver:    resolver,
		guard:       access.New(resolver, memberships, guardOpts...),
		superadmins: superadmins,
		audit:       deps.Audit,
		cookieOpts:  session.CookieOptions{Secure: cfg.Auth.SessionCookieSecure},
		version:     version,
	}

	server.setupRouter()

	return server, nil
}

// registerValidators installs custom binding tags on gin's validator
func registerValidators() error {
	validate, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return errors.New("gin binding engine is not a go-playground validator")
	}

	if err := validate.RegisterValidation("orgrole", func(fl validator.FieldLevel) bool {
		_, err := access.ParseRole(fl.Field().String())
		return err == nil
	}); err != nil {
		return fmt.Errorf("failed to register orgrole validator: %w", err)
	}

	return nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.HTTP.AllowOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")
	api.Use(credentialsMiddleware())

	// Public auth endpoints
	api.POST("/auth/register", s.register)
	api.POST("/auth/login", s.login)
	api.POST("/auth/logout", s.logout)

	authed := api.Group("")
	authed.Use(s.requireUser())
	{
		authed.GET("/auth/me", s.getCurrentUser)
		authed.GET("/orgs", s.listMyOrganizations)
		authed.POST("/orgs", s.createOrganization)
	}

	// Organization routes: the guard runs before every handler
	managers := access.RolesAtLeast(access.RoleAdmin)
	org := api.Group("/orgs/:" + orgIDParam)
	{
		org.GET("", s.requireOrg(), s.getOrganization)
		org.GET("/access", s.requireUser(), s.checkAccess)

		org.GET("/members", s.requireOrg(), s.listMembers)
		org.POST("/members", s.requireOrg(managers...), s.addMember)
		org.PATCH("/members/:userId", s.requireOrg(access.RoleOwner), s.updateMemberRole)
		org.DELETE("/members/:userId", s.requireOrg(managers...), s.removeMember)

		org.GET("/announcements", s.requireOrg(), s.listAnnouncements)
		org.POST("/announcements", s.requireOrg(managers...), s.createAnnouncement)
		org.PATCH("/announcements/:id", s.requireOrg(managers...), s.updateAnnouncement)
		org.DELETE("/announcements/:id", s.requireOrg(managers...), s.deleteAnnouncement)

		org.GET("/audit", s.requireOrg(managers...), s.listAuditLog)
	}

	console := api.Group("/superadmin")
	console.Use(s.requireUser(), s.requireSuperadmin())
	{
		console.GET("/orgs", s.listAllOrganizations)
		console.POST("/superadmins", s.grantSuperadmin)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "orbo-api",
		"version":   s.version,
	})
}

// Handler returns the HTTP handler, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// recordAudit hands a privileged mutation to the audit recorder
func (s *Server) recordAudit(c *gin.Context, p tasks.AdminActionPayload) {
	if user, ok := currentUser(c); ok && p.UserID == "" {
		p.UserID = user.ID
	}
	s.audit.RecordAdminAction(c.Request.Context(), p)
}

// Start starts the HTTP server and blocks until SIGINT or SIGTERM
func (s *Server) Start() error {
	port := ":" + s.config.HTTP.Port

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	srv := &http.Server{
		Addr:              port,
		Handler:           s.router,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		s.logger.Info().Str("port", port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case <-sigChan:
		s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")
	case err := <-errChan:
		s.logger.Error().Err(err).Msg("HTTP server error")
		s.Close()
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.Close()
	s.logger.Info().Msg("Server shutdown complete")
	return nil
}

// Close releases the connections opened by New
func (s *Server) Close() {
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			s.logger.Warn().Err(err).Msg("Error closing connection")
		}
	}
	s.closers = nil
}
