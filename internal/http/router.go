package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/config"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/models"
	"github.com/wenwu/saas-platform/remnawave-provisioner/internal/service"
)

// ServerAdmin covers the server form and product page operations
type ServerAdmin interface {
	SaveServerSettings(ctx context.Context, s models.ServerSettings) error
	GetServerSettings(ctx context.Context, serverID int) (models.ServerSettings, error)
	ListSquads(ctx context.Context, params models.Params) models.SquadListResponse
}

// CallLogReader lists module call log entries, newest first
type CallLogReader interface {
	List(ctx context.Context, serviceID, limit int) ([]models.ModuleCallLog, error)
}

// Deps groups what the router serves
type Deps struct {
	Module  service.Module
	Admin   ServerAdmin
	CallLog CallLogReader
	DB      *gorm.DB
	Metrics http.Handler
}

type Server struct {
	router  *gin.Engine
	handler *Handler
	cfg     *config.Config
	deps    Deps
	srv     *http.Server

	squadLimiter *RateLimiter
}

func NewServer(cfg *config.Config, deps Deps) *Server {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	s := &Server{
		router:  router,
		handler: NewHandler(deps.Module, deps.Admin, deps.CallLog),
		cfg:     cfg,
		deps:    deps,

		// 每个管理员每分钟最多 30 次面板查询
		squadLimiter: NewRateLimiter(30, time.Minute),
	}
	s.srv = &http.Server{
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "remnawave-provisioner",
		})
	})

	if s.deps.Metrics != nil {
		s.router.GET("/metrics", gin.WrapH(s.deps.Metrics))
	}

	// Callbacks - called by the billing host
	callbacks := s.router.Group("/api/callbacks")
	callbacks.Use(InternalAuthMiddleware(s.cfg.InternalSecret))
	{
		callbacks.GET("/meta", s.handler.MetaData)
		callbacks.GET("/config-options", s.handler.ConfigOptions)
		callbacks.GET("/buttons", s.handler.AdminCustomButtons)

		// Lifecycle
		callbacks.POST("/create", s.handler.CreateAccount)
		callbacks.POST("/suspend", s.handler.SuspendAccount)
		callbacks.POST("/unsuspend", s.handler.UnsuspendAccount)
		callbacks.POST("/terminate", s.handler.TerminateAccount)
		callbacks.POST("/change-package", s.handler.ChangePackage)
		callbacks.POST("/test-connection", s.handler.TestConnection)

		// Admin buttons
		callbacks.POST("/sync-status", s.handler.SyncStatus)
		callbacks.POST("/reset-traffic", s.handler.ResetTraffic)
		callbacks.POST("/clear-ips", s.handler.ClearIps)

		// Display
		callbacks.POST("/admin-services-tab", s.handler.AdminServicesTab)
		callbacks.POST("/client-area", s.handler.ClientArea)

		// Server add/edit events
		callbacks.POST("/server-edit", s.handler.ServerEdit)
	}

	// Admin API - operator JWT
	admin := s.router.Group("/api/admin")
	admin.Use(JWTAuthMiddleware(s.cfg.JWT.SecretKey))
	{
		admin.GET("/servers/:id/settings", s.handler.GetServerSettings)
		admin.PUT("/servers/:id/settings", s.handler.PutServerSettings)
		admin.POST("/squads", RateLimitMiddleware(s.squadLimiter), s.handler.ListSquads)
		admin.GET("/logs", s.handler.ListCallLogs)

		if s.deps.DB != nil {
			tables := NewTableBrowser(s.deps.DB)
			db := admin.Group("/db")
			{
				db.GET("/tables", tables.ListTables)
				db.GET("/tables/:table/schema", tables.GetTableSchema)
				db.GET("/tables/:table/rows", tables.QueryRows)
			}
		}
	}
}

// Handler exposes the router for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until Shutdown is called
func (s *Server) Run(addr string) error {
	s.srv.Addr = addr
	if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
