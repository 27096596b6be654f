package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server is an optional HTTP server exposing /metrics and a /healthz liveness probe.
// Use it only when the host application does not already expose metrics.
type Server struct {
	server    *http.Server
	errChan   chan error
	startOnce sync.Once
}

// NewServer creates a metrics server on the specified address, e.g. ":9090".
func NewServer(addr string) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return &Server{
		server: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
		errChan: make(chan error, 1),
	}
}

// Start starts the server in a goroutine and returns immediately.
// Check Err to detect startup failures. Only the first call has an effect.
func (s *Server) Start() {
	s.startOnce.Do(func() {
		go func() {
			if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				s.errChan <- err
			}
		}()
	})
}

// Err returns the first error the server reported, or nil. It does not block.
func (s *Server) Err() error {
	select {
	case err := <-s.errChan:
		return err
	default:
		return nil
	}
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}
