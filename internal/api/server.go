package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"Kluivert-Agent/internal/activity"
	"Kluivert-Agent/internal/driver"
	"Kluivert-Agent/internal/observability/metrics"
)

// Server 负责暴露 REST 接口，供前端驱动智能体。
type Server struct {
	addr              string
	init              driver.Initializer
	publisher         activity.Publisher
	autoPrompt        string
	allowedOrigins    []string
	readHeaderTimeout time.Duration
	shutdownTimeout   time.Duration
	turns             *driver.TurnLock
}

// Option 定义可选的 Server 配置。
type Option func(*Server)

// WithPublisher 设置 /agent-auto 的结果发布器。
func WithPublisher(p activity.Publisher) Option {
	return func(s *Server) { s.publisher = p }
}

// WithAutonomousPrompt 覆盖 /agent-auto 使用的提示。
func WithAutonomousPrompt(prompt string) Option {
	return func(s *Server) { s.autoPrompt = prompt }
}

// WithAllowedOrigins 设置允许跨域访问的来源，为空时保持默认的 "*"。
func WithAllowedOrigins(origins ...string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.allowedOrigins = origins
		}
	}
}

// WithTurnLock 与后台自主模式共用交互锁。
func WithTurnLock(l *driver.TurnLock) Option {
	return func(s *Server) {
		if l != nil {
			s.turns = l
		}
	}
}

// WithTimeouts 设置读取请求头与优雅关闭的超时时间。
func WithTimeouts(readHeader, shutdown time.Duration) Option {
	return func(s *Server) {
		if readHeader > 0 {
			s.readHeaderTimeout = readHeader
		}
		if shutdown > 0 {
			s.shutdownTimeout = shutdown
		}
	}
}

// NewServer 构造 API 服务实例。
func NewServer(addr string, init driver.Initializer, opts ...Option) *Server {
	s := &Server{
		addr:              addr,
		init:              init,
		allowedOrigins:    []string{"*"},
		readHeaderTimeout: 5 * time.Second,
		shutdownTimeout:   5 * time.Second,
		turns:             driver.NewTurnLock(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Routes 返回完整的路由。
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(requestLogger)
	r.Use(observe)

	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "Method not allowed"})
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Not found"})
	})

	r.Post("/agent-chat", s.handleChat)
	r.Post("/agent-auto", s.handleAuto)
	r.Post("/init-agent", s.handleInit)
	r.Get("/healthz", handleHealth)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return cors.New(cors.Options{
		AllowedOrigins: s.allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Routes()),
		ReadHeaderTimeout: s.readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "服务已关闭"})
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
