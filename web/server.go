package web

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/bookvoice/internal/cache"
	"github.com/dgnsrekt/bookvoice/internal/jobs"
	"github.com/dgnsrekt/bookvoice/internal/metrics"
	"github.com/dgnsrekt/bookvoice/internal/tts"
	"github.com/dgnsrekt/bookvoice/internal/tts/engines"
	"github.com/dustin/go-humanize"
	"github.com/gorilla/websocket"
)

//go:embed templates/*.html
var templateFS embed.FS

// EngineFactory builds an engine from a resolved configuration.
type EngineFactory func(ctx context.Context, config tts.Config) (tts.Engine, error)

// Options configures a Server.
type Options struct {
	// Addr is the listen address, host:port.
	Addr string

	// TTS holds the configured engine defaults; the settings panel
	// overrides engine, voice and rate per session.
	TTS tts.Config

	ChunkSize  int
	OutputDir  string
	VoiceMatch bool

	// Cache, when set, memoizes synthesized chunks across jobs.
	Cache *cache.Manager

	// NewEngine defaults to engines.New.
	NewEngine EngineFactory

	Env Config
}

// Server is the web front end. Conversions run on a single background
// worker so synthesis stays sequential.
type Server struct {
	opts Options

	mu       sync.RWMutex
	defaults tts.Config

	queue    *jobs.Queue
	sessions *sessionStore
	tmpl     *template.Template
	upgrader websocket.Upgrader
	http     *http.Server
}

// New creates a Server; call ListenAndServe to start it.
func New(opts Options) (*Server, error) {
	if opts.NewEngine == nil {
		opts.NewEngine = engines.New
	}
	if opts.Env.MaxUploadMB <= 0 {
		opts.Env.MaxUploadMB = 200
	}
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if err := os.MkdirAll(opts.OutputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}

	tmpl, err := template.New("").Funcs(template.FuncMap{
		"bytes": func(n int64) string { return humanize.Bytes(uint64(n)) }, //nolint:gosec
		"inc":   func(i int) int { return i + 1 },
		"pct":   func(f float64) int { return int(f * 100) },
	}).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	s := &Server{
		opts:     opts,
		defaults: opts.TTS,
		queue:    jobs.New(opts.Env.MaxPending),
		tmpl:     tmpl,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
	s.sessions = newSessionStore(opts.Env.SessionTTL, s.defaultSettings)
	s.http = &http.Server{
		Addr:         opts.Addr,
		Handler:      s.Handler(),
		ReadTimeout:  opts.Env.ReadTimeout,
		WriteTimeout: opts.Env.WriteTimeout,
	}
	return s, nil
}

// Handler returns the routed handler wrapped in request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("POST /settings", s.handleSettings)
	mux.HandleFunc("POST /voice", s.handleVoiceUpload)
	mux.HandleFunc("POST /pdf", s.handlePDFUpload)
	mux.HandleFunc("POST /extract", s.handleExtract)
	mux.HandleFunc("POST /chapters/select", s.handleSelect)
	mux.HandleFunc("POST /generate", s.handleGenerate)
	mux.HandleFunc("GET /jobs/{id}", s.handleJob)
	mux.HandleFunc("POST /jobs/{id}/cancel", s.handleCancel)
	mux.HandleFunc("GET /jobs/{id}/ws", s.handleJobSocket)
	mux.HandleFunc("GET /files/complete", s.handleCompleteDownload)
	mux.HandleFunc("GET /files/{n}", s.handleChapterDownload)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", metrics.Handler())
	return loggingMiddleware(mux)
}

// SetTTSConfig replaces the engine defaults used by new jobs, for example
// after the config file changed.
func (s *Server) SetTTSConfig(cfg tts.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.defaults = cfg
	log.Info("engine defaults updated", "engine", cfg.Engine)
}

func (s *Server) ttsDefaults() tts.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaults
}

func (s *Server) defaultSettings() Settings {
	cfg := s.ttsDefaults()
	return Settings{
		Engine:     cfg.Engine,
		Voice:      voiceOf(cfg),
		Rate:       rateOf(cfg),
		VoiceMatch: s.opts.VoiceMatch,
	}
}

// ListenAndServe serves until Shutdown is called.
func (s *Server) ListenAndServe() error {
	log.Info("Starting server", "addr", s.opts.Addr, "output", s.opts.OutputDir)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the listener, cancels running jobs and removes uploads.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info("Stopping server")
	err := s.http.Shutdown(ctx)
	_ = s.queue.Close()
	s.sessions.closeAll()
	return err
}

// voiceOf returns the voice setting relevant to cfg's engine.
func voiceOf(cfg tts.Config) string {
	switch cfg.Engine {
	case tts.EngineEdge:
		return cfg.Edge.Voice
	case tts.EngineGTTS:
		return cfg.GTTS.Language
	case tts.EnginePolly:
		return cfg.Polly.Voice
	case tts.EngineGoogle:
		return cfg.Google.VoiceName
	default:
		return ""
	}
}

// rateOf returns the speech rate of cfg's engine, or 0 when the engine has
// no rate setting.
func rateOf(cfg tts.Config) int {
	switch cfg.Engine {
	case tts.EngineOffline:
		return cfg.Piper.Rate
	case tts.EnginePolly:
		return cfg.Polly.Rate
	case tts.EngineGoogle:
		return cfg.Google.Rate
	default:
		return 0
	}
}

// withSettings applies a session's settings on top of the defaults.
func withSettings(cfg tts.Config, st Settings) tts.Config {
	cfg.Engine = st.Engine
	if st.Voice != "" {
		switch st.Engine {
		case tts.EngineEdge:
			cfg.Edge.Voice = st.Voice
		case tts.EngineGTTS:
			cfg.GTTS.Language = st.Voice
		case tts.EnginePolly:
			cfg.Polly.Voice = st.Voice
		case tts.EngineGoogle:
			cfg.Google.VoiceName = st.Voice
		}
	}
	if st.Rate > 0 {
		switch st.Engine {
		case tts.EngineOffline:
			cfg.Piper.Rate = st.Rate
		case tts.EnginePolly:
			cfg.Polly.Rate = st.Rate
		case tts.EngineGoogle:
			cfg.Google.Rate = st.Rate
		}
	}
	return cfg
}
