// Package status serves a read-only HTTP view of the running simulation:
// the last rendered frame and the tick it belongs to.
package status

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/l1jgo/tileworld/internal/render"
	"go.uber.org/zap"
)

// FrameSource yields the most recent frame; RenderSystem implements it.
type FrameSource interface {
	Snapshot() (uint64, render.Frame)
}

// Server is the status HTTP endpoint.
type Server struct {
	http    *http.Server
	started time.Time
	log     *zap.Logger
}

func NewServer(addr string, src FrameSource, log *zap.Logger) *Server {
	s := &Server{started: time.Now(), log: log}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           NewRouter(src, s.started, log),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// NewRouter builds the gin engine:
//
//	GET /healthz  liveness
//	GET /status   tick, uptime and viewport as JSON
//	GET /frame    the last frame as plain text
func NewRouter(src FrameSource, started time.Time, log *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(log))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/status", func(c *gin.Context) {
		tick, f := src.Snapshot()
		c.JSON(http.StatusOK, gin.H{
			"tick":   tick,
			"uptime": time.Since(started).Round(time.Second).String(),
			"view": gin.H{
				"x":      f.Origin.X,
				"y":      f.Origin.Y,
				"width":  f.Width,
				"height": f.Height,
			},
		})
	})
	router.GET("/frame", func(c *gin.Context) {
		tick, f := src.Snapshot()
		c.Header("X-Tick", strconv.FormatUint(tick, 10))
		c.String(http.StatusOK, f.String()+"\n")
	})
	return router
}

func requestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("status request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("code", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.http.Addr)
	if err != nil {
		return err
	}
	s.log.Info("status endpoint listening", zap.String("addr", ln.Addr().String()))
	go func() {
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("status endpoint stopped", zap.Error(err))
		}
	}()
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}
