package httpapi

import (
	"context"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/MimeLyc/chameleon-localizer/internal/config"
	"github.com/MimeLyc/chameleon-localizer/internal/jobs"
	"github.com/MimeLyc/chameleon-localizer/internal/media"
	"github.com/MimeLyc/chameleon-localizer/pkg/log"
)

type runtimeSettingsStore interface {
	GetRuntimeSettings() (config.RuntimeSettings, error)
	UpdateRuntimeSettings(next config.RuntimeSettings) (config.RuntimeSettings, error)
}

type runtimeSettingsApplier func(next config.RuntimeSettings) error

type Server struct {
	controller *jobs.Controller
	settings   runtimeSettingsStore
	apply      runtimeSettingsApplier

	uploadDir     string
	maxUpload     int64
	heartbeatCron string
	keepalive     time.Duration

	uiEnabled   bool
	uiStaticDir string

	mu     sync.Mutex
	upload string

	logger *log.Logger
	mux    *http.ServeMux
	server *http.Server

	// streams are bound to baseCtx so Shutdown can end them.
	baseCtx context.Context
	stop    context.CancelFunc
}

type Option func(*Server)

func WithUI(staticDir string, enabled bool) Option {
	return func(s *Server) {
		s.uiStaticDir = staticDir
		s.uiEnabled = enabled
	}
}

// WithUploads sets where uploaded clips are written and the size cap.
func WithUploads(dir string, maxBytes int64) Option {
	return func(s *Server) {
		s.uploadDir = dir
		s.maxUpload = maxBytes
	}
}

func WithHeartbeat(cronExpr string) Option {
	return func(s *Server) {
		s.heartbeatCron = cronExpr
	}
}

// WithKeepalive sets how often the stream resends the current snapshot
// when nothing changed.
func WithKeepalive(d time.Duration) Option {
	return func(s *Server) {
		s.keepalive = d
	}
}

func WithRuntimeSettingsStore(store runtimeSettingsStore) Option {
	return func(s *Server) {
		s.settings = store
	}
}

func WithRuntimeSettingsApplier(apply runtimeSettingsApplier) Option {
	return func(s *Server) {
		s.apply = apply
	}
}

func NewServer(controller *jobs.Controller, opts ...Option) *Server {
	s := &Server{
		controller: controller,
		uploadDir:  os.TempDir(),
		maxUpload:  media.DefaultMaxBytes,
		keepalive:  time.Second,
		uiEnabled:  false,
		logger:     log.GetLogger().With("http"),
		mux:        http.NewServeMux(),
	}
	s.baseCtx, s.stop = context.WithCancel(context.Background())
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return s.baseCtx },
	}
	s.logger.Info("Listening on %s", addr)
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.stop()
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/jobs", s.handleJobs)
	s.mux.HandleFunc("/api/jobs/current", s.handleCurrentJob)
	s.mux.HandleFunc("/api/jobs/current/cancel", s.handleCancelJob)
	s.mux.HandleFunc("/api/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/api/languages", s.handleLanguages)
	s.mux.HandleFunc("/api/settings", s.handleSettings)
	s.mux.HandleFunc("/api/health", s.handleHealth)
	s.mux.HandleFunc("/", s.handleStatic)
}

func (s *Server) handleStatic(w http.ResponseWriter, r *http.Request) {
	if !s.uiEnabled || s.uiStaticDir == "" {
		http.NotFound(w, r)
		return
	}

	rel := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
	indexPath := filepath.Join(s.uiStaticDir, "index.html")

	if rel == "" || !strings.Contains(filepath.Base(rel), ".") {
		http.ServeFile(w, r, indexPath)
		return
	}

	filePath := filepath.Join(s.uiStaticDir, rel)
	if _, err := os.Stat(filePath); err != nil {
		// SPA fallback: non-existing static file path returns index
		http.ServeFile(w, r, indexPath)
		return
	}
	http.ServeFile(w, r, filePath)
}
