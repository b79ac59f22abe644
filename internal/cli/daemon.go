package cli

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lherron/pipeboard/internal/cli/appctx"
	"github.com/lherron/pipeboard/internal/config"
	"github.com/lherron/pipeboard/internal/dashboard"
	"github.com/lherron/pipeboard/internal/metrics"
	"github.com/lherron/pipeboard/internal/sheet"
)

// maxBodyBytes caps POST bodies on the action entry point.
const maxBodyBytes = 10 << 20

// DaemonOptions configures the pipeboardd daemon. Empty fields fall back to
// the loaded configuration.
type DaemonOptions struct {
	Addr    string
	Unix    string
	Token   string
	Backend string
	DBPath  string
	Variant string
}

// ServeDaemon opens the configured backend and serves the dashboard until
// ctx is cancelled.
func ServeDaemon(ctx context.Context, opts DaemonOptions) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.Backend != "" {
		cfg.Backend = opts.Backend
	}
	if opts.DBPath != "" {
		cfg.DBPath = opts.DBPath
	}
	if opts.Variant != "" {
		cfg.Variant = opts.Variant
	}
	if opts.Addr != "" {
		cfg.Addr = opts.Addr
	}

	app, err := appctx.Open(ctx, cfg, appctx.DefaultOptions())
	if err != nil {
		return err
	}
	defer app.Close()

	return serveApp(ctx, app, opts)
}

func serveApp(ctx context.Context, app *appctx.App, opts DaemonOptions) error {
	server := newDaemonServer(app, opts.Token)

	httpServer := &http.Server{
		Handler:      server.handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	var listener net.Listener
	var err error
	if opts.Unix != "" {
		_ = os.Remove(opts.Unix)
		listener, err = net.Listen("unix", opts.Unix)
		if err != nil {
			return fmt.Errorf("failed to listen on unix socket: %w", err)
		}
	} else {
		listener, err = net.Listen("tcp", app.Config.Addr)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", app.Config.Addr, err)
		}
	}

	app.Logger.Info("pipeboardd listening",
		"addr", listener.Addr().String(),
		"backend", app.Config.Backend,
		"variant", app.Config.DashboardVariant())

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.Serve(listener) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		app.Logger.Info("pipeboardd shutting down")
		return httpServer.Shutdown(shutdownCtx)
	}
}

type daemonServer struct {
	service    *dashboard.Service
	sheets     sheet.Store
	backend    string
	corsOrigin string
	token      string
	metrics    *metrics.Prometheus
	logger     *slog.Logger
	now        func() time.Time
}

func newDaemonServer(app *appctx.App, token string) *daemonServer {
	prom := metrics.NewPrometheus()
	return &daemonServer{
		service:    app.Service(dashboard.WithMetrics(prom)),
		sheets:     app.Sheets,
		backend:    app.Config.Backend,
		corsOrigin: app.Config.CORSOrigin,
		token:      token,
		metrics:    prom,
		logger:     app.Logger,
		now:        time.Now,
	}
}

func (s *daemonServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.withAuth(s.handleExec, http.StatusOK))
	mux.HandleFunc("/exec", s.withAuth(s.handleExec, http.StatusOK))
	mux.HandleFunc("/v1/health", s.withAuth(s.handleHealth, http.StatusUnauthorized))
	mux.Handle("/metrics", s.withAuth(s.metrics.Handler().ServeHTTP, http.StatusUnauthorized))
	return s.withLogging(mux)
}

// withAuth checks the shared token when one is configured. The action entry
// point reports failures as an error payload with the given status.
func (s *daemonServer) withAuth(next http.HandlerFunc, failStatus int) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Method != http.MethodOptions {
			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				token = r.Header.Get("X-Pipeboard-Token")
			}
			if subtle.ConstantTimeCompare([]byte(token), []byte(s.token)) != 1 {
				s.writeJSON(w, failStatus, dashboard.Response{"error": "unauthorized"})
				return
			}
		}

		next(w, r)
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *daemonServer) withLogging(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := s.now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start))
	})
}

func (s *daemonServer) setCORS(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", s.corsOrigin)
	h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Pipeboard-Token")
}

func (s *daemonServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	s.setCORS(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	if err := encoder.Encode(payload); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

// handleExec is the action entry point: GET reads, POST writes. Every
// outcome is a 200 with a JSON body.
func (s *daemonServer) handleExec(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" && r.URL.Path != "/exec" {
		s.writeJSON(w, http.StatusNotFound, dashboard.Response{"error": "not found"})
		return
	}

	switch r.Method {
	case http.MethodOptions:
		s.setCORS(w)
		w.WriteHeader(http.StatusNoContent)

	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, s.service.Get(r.Context(), r.URL.Query().Get("action")))

	case http.MethodPost:
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			s.writeJSON(w, http.StatusOK, dashboard.Response{"error": fmt.Sprintf("failed to read body: %v", err)})
			return
		}
		s.writeJSON(w, http.StatusOK, s.service.Post(r.Context(), body))

	default:
		s.writeJSON(w, http.StatusOK, dashboard.Response{"error": fmt.Sprintf("method %s not allowed", r.Method)})
	}
}

func (s *daemonServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeJSON(w, http.StatusMethodNotAllowed, dashboard.Response{"error": "method not allowed"})
		return
	}

	payload := map[string]any{
		"ok":      true,
		"time":    s.now().UTC().Format(time.RFC3339),
		"backend": s.backend,
		"variant": s.service.Variant(),
	}
	status := http.StatusOK

	if pinger, ok := s.sheets.(sheet.Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := pinger.Ping(ctx); err != nil {
			payload["ok"] = false
			payload["error"] = err.Error()
			status = http.StatusServiceUnavailable
		}
	}

	s.writeJSON(w, status, payload)
}
