package pkg_ws

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/net/netutil"

	pkg_audio "showcase-backend-audio_relay-go/pkg/audio"
	pkg_metrics "showcase-backend-audio_relay-go/pkg/metrics"
)

var ErrServerClosed = errors.New("relay server closed")

// Server accepts websocket sessions and runs each one on its own goroutine.
type Server struct {
	cfg        WsConfig
	engine     pkg_audio.Transcriber
	transcribe pkg_audio.TranscribeOptions
	metrics    *pkg_metrics.Metrics
	logger     *zap.Logger
	echo       *echo.Echo
	upgrader   websocket.Upgrader
	httpServer *http.Server

	// cancelled on shutdown, parent of every session context
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	closing  bool
	sessions sync.WaitGroup
}

func NewServer(cfg WsConfig, engine pkg_audio.Transcriber, opts pkg_audio.TranscribeOptions, metrics *pkg_metrics.Metrics, gatherer prometheus.Gatherer, logger *zap.Logger) *Server {
	ctx, cancel := context.WithCancel(context.Background())

	if opts.BeamSize <= 0 {
		opts.BeamSize = pkg_audio.DefaultBeamSize
	}

	s := &Server{
		cfg:        cfg,
		engine:     engine,
		transcribe: opts,
		metrics:    metrics,
		logger:     logger,
		upgrader: websocket.Upgrader{
			// no auth and no browser clients, any origin may connect
			CheckOrigin:     func(r *http.Request) bool { return true },
			ReadBufferSize:  4096,
			WriteBufferSize: 1024,
		},
		ctx:    ctx,
		cancel: cancel,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())

	e.GET("/", s.handleWebSocket)
	e.GET("/ws", s.handleWebSocket)
	e.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if gatherer != nil {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	}

	s.echo = e
	s.httpServer = &http.Server{Handler: e}
	return s
}

// Handler exposes the routes, mainly for httptest.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Listener.Address, s.cfg.Listener.Port)
}

func (s *Server) ListenAndServe() error {
	lis, err := net.Listen("tcp", s.Addr())
	if err != nil {
		return fmt.Errorf("failed to listen: %w", err)
	}
	return s.Serve(lis)
}

// Serve accepts connections on lis, at most max_sessions at a time.
func (s *Server) Serve(lis net.Listener) error {
	if s.cfg.Listener.MaxSessions > 0 {
		lis = netutil.LimitListener(lis, s.cfg.Listener.MaxSessions)
	}

	s.logger.Info("relay listening",
		zap.String("address", lis.Addr().String()),
		zap.Int("max_sessions", s.cfg.Listener.MaxSessions))

	err := s.httpServer.Serve(lis)
	if errors.Is(err, http.ErrServerClosed) {
		return ErrServerClosed
	}
	return err
}

// Shutdown stops accepting, closes every open session and waits for them
// until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	s.mu.Unlock()

	err := s.httpServer.Shutdown(ctx)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.sessions.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for sessions: %w", ctx.Err())
	}
	return err
}

func (s *Server) sessionOptions() SessionOptions {
	return SessionOptions{
		MaxFrameBytes:     s.cfg.Session.MaxFrameBytes,
		MaxBufferBytes:    s.cfg.Session.MaxBufferBytes,
		IdleTimeout:       s.cfg.IdleTimeout(),
		TranscribeTimeout: s.cfg.TranscribeTimeout(),
		Transcribe:        s.transcribe,
	}
}

func (s *Server) handleWebSocket(c echo.Context) error {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return echo.NewHTTPError(http.StatusServiceUnavailable, "server shutting down")
	}
	s.sessions.Add(1)
	s.mu.Unlock()
	defer s.sessions.Done()

	conn, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// the upgrader already answered the request
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return nil
	}

	s.metrics.SessionsOpened.Inc()
	s.metrics.ActiveSessions.Inc()
	defer s.metrics.ActiveSessions.Dec()

	session := NewSession(conn, s.engine, s.sessionOptions(), s.metrics, s.logger)
	session.Run(s.ctx)
	return nil
}
