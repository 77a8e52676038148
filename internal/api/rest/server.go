package rest

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	app "equipment-guard/internal/application"
	"equipment-guard/internal/domain/port"
)

// Advisor — рекомендации языковой модели.
type Advisor interface {
	FixSolution(ctx context.Context) *app.FixSolution
	Chat(ctx context.Context, msg string) string
	Forecast(ctx context.Context, in app.MaintenanceInput) string
}

// Config параметры HTTP-сервера.
type Config struct {
	Addr            string
	ShutdownTimeout time.Duration
	StreamInterval  time.Duration // период кадров MJPEG
}

// Server — HTTP-интерфейс мониторинга.
type Server struct {
	router  *gin.Engine
	http    *http.Server
	state   app.EvidenceSource
	advisor Advisor
	camera  port.Camera
	logger  *zap.Logger
	cfg     Config
	checks  map[string]func() bool
}

// NewServer создаёт сервер и регистрирует маршруты.
func NewServer(cfg Config, state app.EvidenceSource, advisor Advisor, camera port.Camera, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 5 * time.Second
	}
	if cfg.StreamInterval <= 0 {
		cfg.StreamInterval = 40 * time.Millisecond
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	s := &Server{
		router:  router,
		state:   state,
		advisor: advisor,
		camera:  camera,
		logger:  logger,
		cfg:     cfg,
		checks:  make(map[string]func() bool),
	}
	s.setupRoutes()

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.health)
	s.router.GET("/stream", s.stream)

	api := s.router.Group("/api")
	{
		api.GET("/sync", s.sync)
		api.GET("/evidence", s.evidence)
		api.POST("/fix-solution", s.fixSolution)
		api.POST("/chat", s.chat)
		api.POST("/predictive-solution", s.predictiveSolution)
	}
}

// AddHealthCheck добавляет компонент в ответ /health. Вызывать до Run.
func (s *Server) AddHealthCheck(name string, up func() bool) {
	s.checks[name] = up
}

// Handler возвращает обработчик для тестов и встраивания.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run слушает адрес до отмены контекста, затем корректно останавливается.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.serve(ctx, ln)
}

// serve обслуживает ln. Контексты запросов наследуются от ctx, поэтому
// долгие ответы (MJPEG) завершаются вместе с сервером.
func (s *Server) serve(ctx context.Context, ln net.Listener) error {
	s.http.BaseContext = func(net.Listener) context.Context { return ctx }

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", zap.String("addr", ln.Addr().String()))
		if err := s.http.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return <-errCh
}

// requestLogger пишет метод, путь, статус и длительность запроса.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		// Поток MJPEG живёт долго, логируется только завершение.
		logger.Debug("request",
			zap.String("method", c.Request.Method),
			zap.String("uri", c.Request.URL.RequestURI()),
			zap.Int("status", c.Writer.Status()),
			zap.String("addr", c.ClientIP()),
			zap.Duration("duration", time.Since(start)))
	}
}
