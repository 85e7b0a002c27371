package server

import (
	"context"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/chuckycastle/mealtogether/backend/config"
	"github.com/chuckycastle/mealtogether/backend/internal/api"
	"github.com/chuckycastle/mealtogether/backend/internal/middleware"
)

// Server wires the HTTP stack: middleware, routes and the listener.
type Server struct {
	engine *gin.Engine
	http   *http.Server
	log    *logrus.Logger
}

// New builds the router and returns a server ready to start. The rate
// limiter only guards the import endpoint.
func New(cfg *config.Config, importHandler *api.ImportHandler, healthHandler *api.HealthHandler, limiter *middleware.RateLimiter, log *logrus.Logger) *Server {
	engine := gin.New()
	engine.Use(
		middleware.Recovery(log),
		middleware.RequestID(),
		middleware.RequestLogger(log),
		middleware.CORS(nil),
	)

	healthHandler.RegisterRoutes(engine)

	v1 := engine.Group("/api/v1")
	importHandler.RegisterRoutes(v1, limiter.Middleware())

	return &Server{
		engine: engine,
		http: &http.Server{
			Addr:              net.JoinHostPort(cfg.ServerHost, cfg.ServerPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Start blocks serving requests until Shutdown is called or the listener
// fails.
func (s *Server) Start() error {
	s.log.WithField("addr", s.http.Addr).Info("server listening")
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}
