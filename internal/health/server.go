// Package health exposes the bot's HTTP surface: a health endpoint for
// container probes and, in webhook mode, the Telegram callback route.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"tg_invest_bot/internal/logging"
	"tg_invest_bot/internal/session"
)

const (
	storePingTimeout  = 2 * time.Second
	readHeaderTimeout = 2 * time.Second
)

// Server hosts the health endpoint and owns the underlying HTTP server.
type Server struct {
	server *http.Server
	mux    *http.ServeMux
	logger *logrus.Entry
	store  session.FullStore
}

type response struct {
	Status   string `json:"status"`
	Store    string `json:"store,omitempty"`
	Sessions *int64 `json:"sessions,omitempty"`
}

// NewServer constructs a server that exposes GET /healthz on the provided port.
func NewServer(port int, store session.FullStore, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logging.Logger()
	}

	srv := &Server{
		logger: logger,
		store:  store,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", srv.handleHealth)
	srv.mux = mux

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	return srv
}

// Mount registers an additional route, used for the Telegram webhook callback.
// Must be called before ListenAndServe.
func (s *Server) Mount(path string, handler http.HandlerFunc) {
	s.mux.HandleFunc(path, handler)

	s.logger.WithFields(logging.Fields{
		"event": "route_mounted",
	}).Info("mounted webhook route")
}

// ListenAndServe starts the HTTP server and blocks until shutdown.
func (s *Server) ListenAndServe() error {
	s.logger.WithFields(logging.Fields{
		"event": "health_listen",
		"addr":  s.server.Addr,
	}).Info("starting http server")

	if err := s.server.ListenAndServe(); err != nil {
		if errors.Is(err, http.ErrServerClosed) {
			s.logger.WithField("event", "health_stopped").Info("http server stopped")
			return nil
		}

		return fmt.Errorf("http server listen: %w", err)
	}

	s.logger.WithField("event", "health_stopped").Info("http server stopped")
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s == nil || s.server == nil {
		return nil
	}

	return s.server.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := response{Status: "ok"}

	ctx := r.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if s.store == nil {
		resp.Status = "degraded"
		resp.Store = "error"
		s.logger.WithField("event", "health_store_missing").Warn("session store is not configured for health endpoint")
	} else {
		pingCtx, cancel := context.WithTimeout(ctx, storePingTimeout)
		err := s.store.Ping(pingCtx)
		cancel()

		if err != nil {
			resp.Status = "degraded"
			resp.Store = "error"
			s.logger.WithFields(logging.Fields{
				"event": "health_store_error",
			}).WithError(err).Warn("session store ping failed during health check")
		} else {
			countCtx, cancel := context.WithTimeout(ctx, storePingTimeout)
			count, err := s.store.Count(countCtx)
			cancel()

			if err != nil {
				s.logger.WithFields(logging.Fields{
					"event": "health_count_error",
				}).WithError(err).Warn("session count failed during health check")
			} else {
				resp.Sessions = &count
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.logger.WithField("event", "health_write_error").WithError(err).Error("failed to encode health response")
	}
}
