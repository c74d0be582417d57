package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"subdetx/internal/config"
	"subdetx/internal/convert"
	"subdetx/internal/history"
	"subdetx/internal/logging"
	"subdetx/internal/staging"
)

//go:embed web
var webFS embed.FS

// HistoryStore is the subset of history.Store the server uses.
type HistoryStore interface {
	Record(ctx context.Context, c *history.Conversion) error
	List(ctx context.Context, limit int) ([]history.Conversion, error)
}

// Server is the HTTP front end for the converter.
type Server struct {
	cfg       *config.Config
	converter *convert.Converter
	history   HistoryStore
	logger    *slog.Logger

	lockPath string
	lock     *flock.Flock

	handler http.Handler
	server  *http.Server

	mu       sync.Mutex
	listener net.Listener
}

// New wires the routes. store may be nil, in which case conversions are not
// recorded and /api/conversions answers with an empty list.
func New(cfg *config.Config, converter *convert.Converter, store HistoryStore, logger *slog.Logger) (*Server, error) {
	if cfg == nil || converter == nil {
		return nil, errors.New("server requires config and converter")
	}
	if strings.TrimSpace(cfg.Server.Bind) == "" {
		return nil, errors.New("server bind address is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}

	s := &Server{
		cfg:       cfg,
		converter: converter,
		history:   store,
		logger:    logging.NewComponentLogger(logger, "server"),
		lockPath:  cfg.LockPath(),
		lock:      flock.New(cfg.LockPath()),
	}

	static, err := fs.Sub(webFS, "web")
	if err != nil {
		return nil, fmt.Errorf("load web assets: %w", err)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /convert", s.handleConvert)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	mux.HandleFunc("GET /api/conversions", authMiddleware(cfg.Server.APIToken, s.handleConversions))
	mux.Handle("GET /", http.FileServerFS(static))

	s.handler = s.withRequestID(mux)
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s, nil
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Addr returns the bound listener address once Run has started listening.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run takes the instance lock, reclaims stale staging directories, and
// serves until ctx is canceled. ready, when non-nil, receives the bound
// address once the listener is open.
func (s *Server) Run(ctx context.Context, ready chan<- string) error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return fmt.Errorf("another subdetx server holds %s", s.lockPath)
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release server lock",
				logging.Error(err),
				logging.String(logging.FieldEventType, "lock_release_failed"),
				logging.String(logging.FieldErrorHint, "remove the lock file if no server is running"),
				logging.String(logging.FieldImpact, "next start may report a running instance"),
			)
		}
	}()

	cleanup := staging.CleanStale(ctx, s.cfg.Paths.StagingDir, s.cfg.StagingMaxAge(), s.logger)
	if len(cleanup.Removed) > 0 {
		s.logger.Info("staging cleanup complete", logging.Int("removed", len(cleanup.Removed)))
	}

	listener, err := net.Listen("tcp", s.cfg.Server.Bind)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	s.logger.Info("server listening",
		logging.String("address", listener.Addr().String()),
		logging.String(logging.FieldEventType, "server_started"),
		logging.Bool("auth", s.cfg.Server.APIToken != ""),
		logging.String("timecode_policy", string(s.converter.Policy())),
	)
	if ready != nil {
		ready <- listener.Addr().String()
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(listener)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	s.logger.Info("server stopped", logging.String(logging.FieldEventType, "server_stopped"))
	return nil
}
