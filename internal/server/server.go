// Package server serves an article and drives each reader's scroller over a
// WebSocket session.
package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/livetemplate/scrollytell"
	"github.com/livetemplate/scrollytell/internal/assets"
	"github.com/livetemplate/scrollytell/internal/scroller"
	"github.com/livetemplate/scrollytell/internal/viz"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// Loader opens the project to serve. It is called at startup and on every
// reload.
type Loader func() (*scrollytell.Project, error)

// Options configure a Server.
type Options struct {
	Logger zerolog.Logger
	// Registry receives the server metrics. A fresh registry with the Go
	// and process collectors is used when nil.
	Registry *prometheus.Registry
	// ReloadSettle is how long file changes must be quiet before a
	// reload. Default 100ms.
	ReloadSettle time.Duration
}

// Server serves one article directory.
type Server struct {
	load    Loader
	log     zerolog.Logger
	reg     *prometheus.Registry
	metrics *Metrics
	settle  time.Duration

	mu       sync.RWMutex
	project  *scrollytell.Project
	set      *viz.Set
	setupErr error

	connMu   sync.RWMutex
	sessions map[*Session]struct{}

	upgrader    websocket.Upgrader
	watcher     *Watcher
	handler     http.Handler
	cancel      context.CancelFunc
	limiterDone <-chan struct{}
	closeOnce   sync.Once
}

// New loads and activates the project. A visualization setup failure does
// not fail New: the article is then served without its scrolling scenes.
func New(ctx context.Context, load Loader, opts Options) (*Server, error) {
	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	settle := opts.ReloadSettle
	if settle <= 0 {
		settle = 100 * time.Millisecond
	}

	s := &Server{
		load:     load,
		log:      opts.Logger,
		reg:      reg,
		metrics:  NewMetrics(reg),
		settle:   settle,
		sessions: make(map[*Session]struct{}),
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}

	bg, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.handler = s.buildHandler(bg)
	return s, nil
}

// Reload reopens and reactivates the project. If the project cannot be
// opened the previous one keeps being served and the error is returned.
func (s *Server) Reload(ctx context.Context) error {
	start := time.Now()
	p, err := s.load()
	if err != nil {
		s.metrics.Reloads.WithLabelValues("error").Inc()
		return err
	}
	set, setupErr := p.Activate(ctx)
	s.metrics.Activation.Observe(time.Since(start).Seconds())

	s.mu.Lock()
	old := s.project
	s.project, s.set, s.setupErr = p, set, setupErr
	s.mu.Unlock()

	if old != nil {
		if err := old.Close(); err != nil {
			s.log.Warn().Err(err).Msg("closing previous datasets")
		}
	}

	if setupErr != nil {
		s.metrics.Reloads.WithLabelValues("inactive").Inc()
		s.log.Error().Err(setupErr).Msg("visualizations inactive, serving the static article")
		return nil
	}
	s.metrics.Reloads.WithLabelValues("ok").Inc()
	s.log.Info().
		Str("article", p.Article.SourceFile).
		Int("steps", set.StepCount()).
		Dur("took", time.Since(start)).
		Msg("project loaded")
	return nil
}

// Active reports whether the visualizations are loaded.
func (s *Server) Active() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set != nil
}

// Project returns the project being served.
func (s *Server) Project() *scrollytell.Project {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.project
}

// Metrics returns the server collectors.
func (s *Server) Metrics() *Metrics { return s.metrics }

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) buildHandler(ctx context.Context) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.servePage)
	mux.HandleFunc("GET /ws", s.serveWebSocket)
	mux.HandleFunc("GET /assets/{name}", s.serveAsset)
	mux.HandleFunc("GET /data/{path...}", s.serveData)
	mux.HandleFunc("GET /api/steps", s.serveSteps)
	mux.HandleFunc("GET /healthz", s.serveHealth)
	mux.Handle("GET /metrics", promhttp.HandlerFor(s.reg, promhttp.HandlerOpts{}))

	api := s.Project().Config.API
	limit, done := RateLimitMiddleware(ctx, api.GetRateLimitRPS(), api.GetRateLimitBurst(), 0, s.log)
	s.limiterDone = done

	var h http.Handler = mux
	h = CompressionMiddleware("/metrics")(h)
	h = limit(h)
	h = SecurityHeadersMiddleware()(h)
	return h
}

func (s *Server) servePage(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	p, active := s.project, s.set != nil
	s.mu.RUnlock()

	html, err := renderPage(p.Article, active, p.Config.Features.ErrorBanner)
	if err != nil {
		s.log.Error().Err(err).Msg("render page")
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(html)
}

func (s *Server) serveAsset(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	var (
		data []byte
		err  error
	)
	if s.Project().Config.Features.IsMinify() {
		data, err = assets.Minified(name)
	} else {
		data, err = fs.ReadFile(assets.ClientFS(), name)
	}
	if errors.Is(err, fs.ErrNotExist) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("asset", name).Msg("serve asset")
		http.Error(w, "asset unavailable", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", assets.ContentType(name))
	w.Header().Set("Cache-Control", "no-cache")
	_, _ = w.Write(data)
}

// serveData serves the files of csv and json datasets. Nothing else under
// the article directory is reachable.
func (s *Server) serveData(w http.ResponseWriter, r *http.Request) {
	want := r.PathValue("path")
	p := s.Project()
	for _, name := range p.Config.DatasetNames() {
		dc := p.Config.Datasets[name]
		if dc.Type != "csv" && dc.Type != "json" {
			continue
		}
		if filepath.IsAbs(dc.File) || filepath.ToSlash(filepath.Clean(dc.File)) != want {
			continue
		}
		http.ServeFile(w, r, filepath.Join(p.Dir, dc.File))
		return
	}
	http.NotFound(w, r)
}

// StepsResponse is the body of GET /api/steps.
type StepsResponse struct {
	Mode          string         `json:"mode"`
	TriggerOffset float64        `json:"trigger_offset"`
	Steps         []viz.StepInfo `json:"steps"`
}

func (s *Server) serveSteps(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	p, set, setupErr := s.project, s.set, s.setupErr
	s.mu.RUnlock()

	if set == nil {
		writeJSONError(w, http.StatusServiceUnavailable, setupErr.Error())
		return
	}
	writeJSON(w, http.StatusOK, StepsResponse{
		Mode:          p.Config.Scroller.GetMode(),
		TriggerOffset: p.Config.Scroller.GetTriggerOffset(),
		Steps:         set.Steps(),
	})
}

func (s *Server) serveHealth(w http.ResponseWriter, r *http.Request) {
	s.connMu.RLock()
	n := len(s.sessions)
	s.connMu.RUnlock()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"active":   s.Active(),
		"sessions": n,
	})
}

func (s *Server) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	p, set := s.project, s.set
	s.mu.RUnlock()

	if set == nil {
		http.Error(w, "visualizations unavailable", http.StatusServiceUnavailable)
		return
	}

	mode, err := scroller.ParseMode(p.Config.Scroller.GetMode())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cfg := sessionConfig{
		trigger:  p.Config.Scroller.GetTriggerOffset(),
		mode:     mode,
		debounce: p.Config.Scroller.GetDebounce(),
		maxRate:  p.Config.Scroller.GetMaxRate(),
		minify:   p.Config.Features.IsMinify(),
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Debug().Err(err).Msg("upgrade failed")
		return
	}

	sess := newSession(conn, set, cfg, s.metrics, s.log.With().Str("component", "ws").Logger())
	s.register(sess)
	defer s.unregister(sess)
	sess.run()
}

func (s *Server) register(sess *Session) {
	s.connMu.Lock()
	s.sessions[sess] = struct{}{}
	n := len(s.sessions)
	s.connMu.Unlock()
	s.metrics.Sessions.Inc()
	s.log.Debug().Str("session", sess.ID).Int("active", n).Msg("session opened")
}

func (s *Server) unregister(sess *Session) {
	s.connMu.Lock()
	delete(s.sessions, sess)
	n := len(s.sessions)
	s.connMu.Unlock()
	s.metrics.Sessions.Dec()
	s.log.Debug().Str("session", sess.ID).Int("active", n).Msg("session closed")
}

// BroadcastReload asks every connected reader to reload the page.
func (s *Server) BroadcastReload(changed []string) {
	s.connMu.RLock()
	sessions := make([]*Session, 0, len(s.sessions))
	for sess := range s.sessions {
		sessions = append(sessions, sess)
	}
	s.connMu.RUnlock()

	if len(sessions) == 0 {
		return
	}
	s.log.Info().Strs("files", changed).Int("sessions", len(sessions)).Msg("broadcasting reload")
	msg := NoticeMessage{Type: MsgReload, Message: strings.Join(changed, ", ")}
	for _, sess := range sessions {
		sess.send(msg)
	}
}

// EnableWatch reloads the project and notifies readers whenever an
// article, config or data file changes.
func (s *Server) EnableWatch() error {
	dir := s.Project().Dir
	log := s.log.With().Str("component", "watch").Logger()
	w, err := NewWatcher(dir, s.settle, func(changed []string) error {
		if err := s.Reload(context.Background()); err != nil {
			return fmt.Errorf("reload: %w", err)
		}
		s.BroadcastReload(changed)
		return nil
	}, log)
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	s.watcher = w
	w.Start()
	log.Info().Str("dir", dir).Msg("watching for changes")
	return nil
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.log.Info().Str("addr", "http://"+addr).Msg("serving")

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Hijacked socket connections are not closed by Shutdown.
	s.closeSessions()
	return srv.Shutdown(shutdownCtx)
}

func (s *Server) closeSessions() {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	for sess := range s.sessions {
		sess.close()
	}
}

// Close stops the watcher, closes every session and releases datasets.
func (s *Server) Close() error {
	var errs []error
	s.closeOnce.Do(func() {
		if s.watcher != nil {
			errs = append(errs, s.watcher.Stop())
		}
		if s.cancel != nil {
			s.cancel()
			<-s.limiterDone
		}
		s.closeSessions()
		if p := s.Project(); p != nil {
			errs = append(errs, p.Close())
		}
	})
	return errors.Join(errs...)
}
