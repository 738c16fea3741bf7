package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"doora/internal/bootstrap/logging"
	"doora/internal/ports"
	usecase "doora/internal/usecase/delegation"
)

// Server exposes the delegation engine over HTTP. The caller's identity is
// taken from the X-User-ID and X-User-Name headers; authentication lives in
// the gateway in front of this service.
type Server struct {
	service *usecase.Service
	feed    ports.ChangeFeed
	http    *http.Server
}

func NewServer(addr string, service *usecase.Service, feed ports.ChangeFeed) *Server {
	s := &Server{
		service: service,
		feed:    feed,
	}
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(requestLogger)

	r.Route("/api/delegations", func(r chi.Router) {
		r.Post("/fanout", s.handleFanOut)
		r.Get("/", s.handleListRecords)
		r.Route("/{recordID}", func(r chi.Router) {
			r.Get("/", s.handleGetRecord)
			r.Delete("/", s.handleRemove)
			r.Get("/history", s.handleGroupHistory)
			r.Post("/delegates", s.handleAddDelegates)
			r.Post("/accept", s.handleAccept)
			r.Post("/propose", s.handlePropose)
			r.Post("/decline", s.handleDecline)
			r.Post("/collected", s.handleCollected)
			r.Post("/completed", s.handleCompleted)
			r.Post("/rate", s.handleRate)
			r.Put("/window", s.handleEditWindow)
		})
	})

	r.Route("/api/notifications", func(r chi.Router) {
		r.Get("/", s.handleListNotifications)
		r.Post("/read", s.handleMarkNotificationsRead)
		r.Delete("/{notificationID}", s.handleDeleteNotification)
		r.Delete("/", s.handleClearNotifications)
	})

	r.Get("/ws", s.handleStream)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}

// Start begins serving and blocks until the listener fails or is shut down.
func (s *Server) Start() error {
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

func (s *Server) Addr() string {
	return s.http.Addr
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logging.Info(r.Context(), "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("elapsed", time.Since(start)),
		)
	})
}
