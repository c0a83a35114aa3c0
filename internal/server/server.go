// Package server applies routing decisions to live traffic: it fronts the
// upstream application with a single reverse proxy and exposes the /__/
// system endpoints.
package server

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/MW-Studio-Dev/inmosite-edge/internal/cache"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/config"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/middleware"
	"github.com/MW-Studio-Dev/inmosite-edge/internal/router"
)

func init() {
	gin.SetMode(gin.ReleaseMode)
}

type Server struct {
	cfg    *config.Config
	edge   *router.Router
	store  cache.Store
	logger *logrus.Logger
	engine *gin.Engine
	proxy  *httputil.ReverseProxy
}

func New(cfg *config.Config, edge *router.Router, store cache.Store, logger *logrus.Logger) (*Server, error) {
	upstream, err := url.Parse(cfg.Server.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}

	proxy := httputil.NewSingleHostReverseProxy(upstream)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		logger.WithError(err).WithField("path", r.URL.Path).Error("Upstream unreachable")
		w.WriteHeader(http.StatusBadGateway)
	}

	s := &Server{
		cfg:    cfg,
		edge:   edge,
		store:  store,
		logger: logger,
		proxy:  proxy,
	}
	s.engine = s.buildEngine()
	return s, nil
}

func (s *Server) buildEngine() *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Metrics())
	engine.Use(middleware.AccessLog(s.logger))

	s.registerSystemRoutes(engine)

	engine.NoRoute(s.handle)
	return engine
}

// handle routes one request and applies the resulting decision.
func (s *Server) handle(c *gin.Context) {
	d := s.edge.Route(c.Request.Context(), c.Request.Host, c.Request.URL.Path)

	switch d.Kind {
	case router.KindPassThrough:
		s.proxy.ServeHTTP(c.Writer, c.Request)
	case router.KindRewrite:
		c.Request.URL.Path = d.Path
		for k, v := range d.Headers {
			c.Request.Header.Set(k, v)
		}
		s.proxy.ServeHTTP(c.Writer, c.Request)
	case router.KindRedirect:
		c.Redirect(http.StatusTemporaryRedirect, d.Location)
	case router.KindBlock:
		c.Data(d.Status, d.ContentType, []byte(d.Body))
	}
}

// Handler exposes the engine for tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves until ctx is cancelled, then drains for up to 10 seconds.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler: s.engine,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("port", s.cfg.Server.Port).Info("Edge router listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
