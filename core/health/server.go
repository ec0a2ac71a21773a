package health

import (
	"context"
	"net/http"
	"time"

	"github.com/ptoscano/intakebot/core/logger"
	"log/slog"
)

// Server exposes a liveness endpoint on its own listener, separate from the
// webhook port, so infrastructure probes never race Telegram deliveries.
type Server struct {
	srv *http.Server
}

// New builds a health server listening on addr.
func New(addr string) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

// Start serves in the background until Stop is called.
func (s *Server) Start() {
	go func() {
		logger.L.Info("health server listening",
			slog.String("component", "health"),
			slog.String("event", "listen"),
			slog.String("listen", s.srv.Addr),
		)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.L.Error("health server failed",
				slog.String("component", "health"),
				slog.String("event", "serve"),
				slog.String("err", err.Error()),
			)
		}
	}()
}

// Stop shuts the listener down gracefully.
func (s *Server) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(shutdownCtx)
}
