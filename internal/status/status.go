// Package status serves the operational HTTP endpoints: a liveness probe
// and a small stats document for dashboards.
package status

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BaptisteLeDev/Moodioos/internal/schedule"
	"github.com/BaptisteLeDev/Moodioos/internal/storage"
	"github.com/BaptisteLeDev/Moodioos/internal/version"
	"github.com/BaptisteLeDev/Moodioos/internal/voice"
)

// Sources are the live components the stats endpoint reads from.
type Sources struct {
	Sched      *schedule.Store
	Voice      *voice.Manager
	Storage    *storage.Storage
	GuildCount func() int
}

type server struct {
	src     Sources
	started time.Time
}

// Start launches the status HTTP server on addr. It blocks until ctx is
// cancelled, then shuts down gracefully.
func Start(ctx context.Context, addr string, src Sources) error {
	if src.Sched == nil {
		return fmt.Errorf("status: schedule store is required")
	}

	gin.SetMode(gin.ReleaseMode)
	router := newRouter(&server{src: src, started: time.Now()})

	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("status: %w", err)
	}
	return nil
}

func newRouter(s *server) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/healthz", s.handleHealthz)
	router.GET("/stats", s.handleStats)
	return router
}

func (s *server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (s *server) handleStats(c *gin.Context) {
	var pending, sent, failed int
	for _, msg := range s.src.Sched.All() {
		switch msg.Status {
		case schedule.StatusPending:
			pending++
		case schedule.StatusSent:
			sent++
		case schedule.StatusFailed:
			failed++
		}
	}

	stats := gin.H{
		"app":            version.AppName,
		"version":        version.Version,
		"uptime_seconds": int(time.Since(s.started).Seconds()),
		"scheduled_messages": gin.H{
			"pending": pending,
			"sent":    sent,
			"failed":  failed,
		},
	}
	if s.src.Voice != nil {
		stats["voice_sessions"] = s.src.Voice.ActiveCount()
	}
	if s.src.Storage != nil {
		stats["commands_served"] = s.src.Storage.TotalCommandsServed()
	}
	if s.src.GuildCount != nil {
		stats["guilds"] = s.src.GuildCount()
	}

	c.JSON(http.StatusOK, stats)
}
