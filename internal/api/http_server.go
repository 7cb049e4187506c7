package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mareeba/internal/config"
	"mareeba/internal/export"
	"mareeba/internal/metrics"
	"mareeba/internal/service"

	"github.com/rs/zerolog"
)

// HTTPServer exposes the club's booking API.
type HTTPServer struct {
	cfg      config.APIConfig
	players  *service.PlayerService
	bookings *service.BookingService
	payments *service.PaymentService
	exporter *export.Exporter
	auth     *HTTPAuth
	logger   *zerolog.Logger
	server   *http.Server
}

func NewHTTPServer(cfg config.APIConfig, players *service.PlayerService, bookings *service.BookingService, payments *service.PaymentService, exporter *export.Exporter, logger *zerolog.Logger) *HTTPServer {
	srv := &HTTPServer{
		cfg:      cfg,
		players:  players,
		bookings: bookings,
		payments: payments,
		exporter: exporter,
		auth:     NewHTTPAuth(cfg),
		logger:   logger,
	}

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	return srv
}

// Handler builds the full middleware-wrapped route tree. Exposed so
// tests can drive the server through httptest.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/api/v1/sessions", s.handleSessions)
	mux.HandleFunc("/api/v1/availability", s.handleAvailability)
	mux.HandleFunc("/api/v1/next-session", s.handleNextSession)
	mux.HandleFunc("/api/v1/players", s.handlePlayers)
	mux.HandleFunc("/api/v1/players/", s.handlePlayerByID)
	mux.HandleFunc("/api/v1/bookings", s.handleCreateBooking)
	mux.HandleFunc("/api/v1/bookings/", s.handleBookingByID)
	mux.HandleFunc("/api/v1/admin/bookings", s.handleAdminBookings)
	mux.HandleFunc("/api/v1/admin/availability", s.handleAdminAvailability)
	mux.HandleFunc("/api/v1/admin/payments/confirm", s.handleConfirmPayment)
	mux.HandleFunc("/api/v1/admin/payments/report", s.handlePaymentsReport)
	mux.HandleFunc("/healthz", s.handleHealth)

	return s.loggingMiddleware(s.auth.Wrap(mux))
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP API listening")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)

		metrics.IncHTTP(r.URL.Path)
		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", time.Since(start)).
			Msg("http request")
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}
