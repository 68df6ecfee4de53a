package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

type RouterConfig struct {
	JWTSecret      string
	AllowedOrigins []string
}

// NewRouter wires the HTTP surface. All routes except the health check
// require a bearer token; role middleware narrows each group further.
func NewRouter(cfg RouterConfig, appts *AppointmentsHandler, q *QueueHandler, log *slog.Logger) *gin.Engine {
	if log == nil {
		log = slog.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(log))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.Use(RequireAuth(cfg.JWTSecret))

	clients := api.Group("")
	clients.Use(RequireRole(RoleClient))
	clients.POST("/appointments", appts.Create)
	clients.POST("/queue", q.Enqueue)
	clients.GET("/me/appointments", appts.MyUpcoming)
	clients.GET("/me/queue-entry", q.MyEntry)

	api.GET("/appointments/:id", appts.Get)
	api.GET("/professionals/:id/free-slots", appts.FreeSlots)
	api.GET("/queue", q.Snapshot)

	// Cancellation is open to every role; the handler routes by caller role.
	api.POST("/appointments/:id/cancel", appts.Cancel)

	pros := api.Group("")
	pros.Use(RequireRole(RoleProfessional))
	pros.GET("/professionals/:id/agenda", appts.Agenda)
	pros.POST("/appointments/:id/confirm", appts.Confirm)
	pros.POST("/appointments/:id/start", appts.Start)
	pros.POST("/appointments/:id/complete", appts.Complete)
	pros.POST("/appointments/:id/no-show", appts.NoShow)
	pros.POST("/queue/advance", q.Advance)
	pros.POST("/queue/finish", q.Finish)
	pros.POST("/queue/entries/:id/start", q.StartEntry)
	pros.POST("/queue/entries/:id/cancel", q.CancelEntry)
	pros.POST("/queue/entries/:id/no-show", q.NoShowEntry)

	return r
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.FullPath()),
			slog.Int("status", c.Writer.Status()),
			slog.Duration("elapsed", time.Since(start)),
		)
	}
}
