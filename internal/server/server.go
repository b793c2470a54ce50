package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"fitclub/internal/auth"
	"fitclub/internal/config"
	"fitclub/internal/engagement"
	"fitclub/internal/equipment"
	"fitclub/internal/member"
	"fitclub/internal/membership"
	"fitclub/internal/notify"
	"fitclub/internal/schedule"
	"fitclub/internal/session"
	"fitclub/internal/trainer"
)

type Server struct {
	router   *gin.Engine
	http     *http.Server
	db       *sqlx.DB
	config   *config.Config
	notifier *notify.Service
}

func New(db *sqlx.DB, cfg *config.Config, notifier *notify.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(20, 40))

	memberRepo := member.NewRepository(db)
	trainerRepo := trainer.NewRepository(db)
	membershipRepo := membership.NewRepository(db)
	locks := schedule.NewKeyedMutex()

	sessionHandler := session.NewHandler(session.NewService(
		session.NewRepository(db), trainerRepo, membershipRepo, memberRepo, notifier, locks))
	equipmentHandler := equipment.NewHandler(equipment.NewService(
		equipment.NewRepository(db), memberRepo, notifier, locks))
	engagementHandler := engagement.NewHandler(engagement.NewService(
		engagement.NewRepository(db), memberRepo, notifier))

	authMiddleware := auth.AuthMiddleware(cfg.JWTSecret)
	protected := router.Group("/")
	protected.Use(authMiddleware)
	{
		protected.POST("/sessions", sessionHandler.Book)
		protected.POST("/sessions/paid", sessionHandler.BookPaid)
		protected.POST("/sessions/:sessionID/cancel", sessionHandler.Cancel)
		protected.GET("/sessions", sessionHandler.ListMine)

		protected.POST("/equipment/:equipmentID/reservations", equipmentHandler.Reserve)
		protected.POST("/reservations/:reservationID/cancel", equipmentHandler.Cancel)
		protected.POST("/reservations/:reservationID/complete", equipmentHandler.Complete)
		protected.GET("/reservations", equipmentHandler.ListMine)

		protected.POST("/checkins", engagementHandler.CheckIn)
		protected.POST("/checkins/:checkInID/checkout", engagementHandler.CheckOut)
		protected.GET("/members/me/streak", engagementHandler.Streak)
		protected.GET("/members/me/engagement", engagementHandler.Engagement)
		protected.GET("/members/me/achievements", engagementHandler.Achievements)
	}

	staff := router.Group("/")
	staff.Use(authMiddleware, auth.RequireRole("trainer", "admin"))
	{
		staff.PATCH("/sessions/:sessionID/status", sessionHandler.UpdateStatus)
		staff.GET("/trainers/:trainerID/sessions", sessionHandler.ListForTrainer)
	}

	admin := router.Group("/admin")
	admin.Use(authMiddleware, auth.RequireRole("admin"))
	{
		admin.GET("/equipment/:equipmentID/reservations", equipmentHandler.ListForEquipment)
		admin.GET("/test-notification", TestNotification(notifier))
	}

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	SetupSwagger(router)

	return &Server{
		router:   router,
		db:       db,
		config:   cfg,
		notifier: notifier,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// Router exposes the underlying engine for tests and for http.Server wiring.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
