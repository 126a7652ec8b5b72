package health

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 15 * time.Second
)

// Server exposes the monitor's report and Prometheus metrics over HTTP.
//
//	GET /health              {"status": ...}; 503 when critical
//	GET /health/detailed     full HealthReport
//	GET /health/{component}  one ComponentHealth; 404 if unknown
//	GET /metrics             Prometheus exposition
type Server struct {
	monitor *Monitor
	httpSrv *http.Server
	log     *slog.Logger
}

// NewServer builds a server for addr, e.g. ":9090". It does not listen yet.
func NewServer(monitor *Monitor, addr string) *Server {
	s := &Server{
		monitor: monitor,
		log:     slog.Default().With("component", "health-server"),
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	return s
}

// Handler returns the route table without binding a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.summary)
	mux.HandleFunc("GET /health/detailed", s.detailed)
	mux.HandleFunc("GET /health/{component}", s.component)
	mux.Handle("GET /metrics", promhttp.Handler())
	return mux
}

// Run listens on the configured address until ctx is done, then shuts down
// gracefully. A clean shutdown returns nil.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpSrv.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Health server listening", "addr", ln.Addr().String())
		errCh <- s.httpSrv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := s.httpSrv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	report := s.monitor.CheckHealth(r.Context())
	code := http.StatusOK
	if report.SystemStatus == StatusCritical {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]SystemStatus{"status": report.SystemStatus})
}

func (s *Server) detailed(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.monitor.CheckHealth(r.Context()))
}

func (s *Server) component(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("component")
	c, ok := s.monitor.CheckHealth(r.Context()).Components[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown component " + name})
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
