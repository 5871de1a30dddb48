// Package gateway serves the pipeline over HTTP and WebSocket.
package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/config"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/domain"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/hooks"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/logging"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/orchestrator"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/store"
	"github.com/SpaceC00kies/pranara-prototype-sub002/internal/version"
)

var ErrClientClosed = errors.New("client connection closed")

// Chatter runs turns. *orchestrator.Orchestrator implements it.
type Chatter interface {
	Handle(ctx context.Context, raw domain.RawMessage, opts orchestrator.Options) (*orchestrator.Result, error)
	HandleStream(ctx context.Context, raw domain.RawMessage, opts orchestrator.Options) (<-chan orchestrator.Event, error)
	ActiveSessions() int
}

// RecordLister reads persisted turn records.
type RecordLister interface {
	List(ctx context.Context, q store.Query) ([]domain.TurnRecord, error)
}

// Server is the Pranara HTTP + WebSocket gateway.
type Server struct {
	cfg     config.GatewayConfig
	token   string
	log     *logging.Logger
	chat    Chatter
	records RecordLister
	hooks   *hooks.Manager
	clients *ClientRegistry
	version string
	now     func() time.Time

	startedAt  time.Time
	httpServer *http.Server
	upgrader   websocket.Upgrader
	limiter    *authRateLimiter
}

// ServerOption configures the gateway server.
type ServerOption func(*Server)

// WithHooks sets the hook manager for lifecycle events.
func WithHooks(hm *hooks.Manager) ServerOption {
	return func(s *Server) { s.hooks = hm }
}

// WithRecords exposes turn records on GET /v1/records.
func WithRecords(r RecordLister) ServerOption {
	return func(s *Server) { s.records = r }
}

// New creates a gateway server.
func New(cfg config.GatewayConfig, chat Chatter, log *logging.Logger, opts ...ServerOption) *Server {
	s := &Server{
		cfg:       cfg,
		token:     cfg.Token,
		log:       log.Sub("gateway"),
		chat:      chat,
		clients:   NewClientRegistry(log.Sub("clients")),
		version:   version.Version,
		now:       time.Now,
		startedAt: time.Now(),
		limiter:   newAuthRateLimiter(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.token == "" {
		s.log.Warn().Msg("gateway token not set, requests are not authenticated")
	}
	return s
}

// resolveBindAddr computes the listen address from config.
func resolveBindAddr(cfg config.GatewayConfig) string {
	switch cfg.Bind {
	case "lan":
		return fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	case "custom":
		host := cfg.CustomBindHost
		if host == "" {
			host = "0.0.0.0"
		}
		return fmt.Sprintf("%s:%d", host, cfg.Port)
	default:
		return fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	}
}

// Handler returns the routed handler wrapped in the middleware chain.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.registerHTTPRoutes(mux)
	return withMiddleware(mux, s.log)
}

// Start listens until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := resolveBindAddr(s.cfg)
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve runs the server on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		// a single-shot turn may spend several backoff delays on retries
		WriteTimeout: 2 * time.Minute,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}
	s.startedAt = s.now()

	done := make(chan struct{})
	defer close(done)
	go s.limiter.run(done)

	s.log.Info().
		Str("addr", ln.Addr().String()).
		Str("bind", s.cfg.Bind).
		Bool("auth", s.token != "").
		Msg("gateway server ready")
	if s.hooks != nil {
		s.hooks.Emit(ctx, hooks.Payload{
			Event: hooks.EventGatewayStart,
			Data:  map[string]any{"addr": ln.Addr().String()},
		})
	}

	go func() {
		<-ctx.Done()
		s.log.Info().Msg("shutting down gateway server")
		if s.hooks != nil {
			s.hooks.Emit(context.WithoutCancel(ctx), hooks.Payload{Event: hooks.EventGatewayStop})
		}
		wait := time.Duration(s.cfg.ShutdownSeconds) * time.Second
		if wait <= 0 {
			wait = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), wait)
		defer cancel()
		s.clients.CloseAll()
		s.httpServer.Shutdown(shutdownCtx)
	}()

	if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// authorize rejects the request when its token is missing or wrong. Repeat
// offenders are rate limited per IP.
func (s *Server) authorize(w http.ResponseWriter, r *http.Request) bool {
	if !s.limiter.allow(r.RemoteAddr) {
		s.log.Warn().Str("remote", r.RemoteAddr).Msg("rate limited, too many failed auth attempts")
		writeError(w, http.StatusTooManyRequests, &ErrorShape{Code: "RATE_LIMITED", Message: "too many requests"})
		return false
	}
	res := Authorize(s.token, r)
	if !res.OK {
		s.limiter.recordFailure(r.RemoteAddr)
		w.Header().Set("WWW-Authenticate", `Bearer realm="pranara"`)
		writeError(w, http.StatusUnauthorized, &ErrorShape{Code: "UNAUTHORIZED", Message: res.Reason})
		return false
	}
	return true
}
