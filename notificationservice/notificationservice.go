/*
File: notificationservice/notificationservice.go
Description: Wires the notification API service: handlers, routes, and
the HTTP server lifecycle.
*/
package notificationservice

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/anandupg/Lyvo-Backend1-sub001/internal/api"
	"github.com/anandupg/Lyvo-Backend1-sub001/notificationservice/config"
	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

// Wrapper runs the REST API server for the notification service.
type Wrapper struct {
	server     *http.Server
	apiHandler *api.API
	logger     zerolog.Logger
}

// New creates and wires up the API service.
func New(
	cfg *config.AppConfig,
	deliverer api.Deliverer,
	store notify.NotificationStore,
	authMiddleware func(http.Handler) http.Handler,
	logger zerolog.Logger,
) (*Wrapper, error) {
	if deliverer == nil || store == nil {
		return nil, fmt.Errorf("deliverer and store cannot be nil")
	}

	apiHandler := api.NewAPI(
		deliverer,
		store,
		logger.With().Str("component", "API").Logger(),
	)

	mux := http.NewServeMux()
	mux.Handle("POST /api/notifications", authMiddleware(http.HandlerFunc(apiHandler.CreateHandler)))
	mux.Handle("GET /api/notifications", authMiddleware(http.HandlerFunc(apiHandler.ListHandler)))
	mux.Handle("GET /api/notifications/unread-count", authMiddleware(http.HandlerFunc(apiHandler.UnreadCountHandler)))
	mux.Handle("PUT /api/notifications/{id}/read", authMiddleware(http.HandlerFunc(apiHandler.MarkReadHandler)))
	mux.Handle("PUT /api/notifications/read-all", authMiddleware(http.HandlerFunc(apiHandler.MarkAllReadHandler)))
	mux.Handle("DELETE /api/notifications/{id}", authMiddleware(http.HandlerFunc(apiHandler.DeleteHandler)))
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	return &Wrapper{
		server: &http.Server{
			Addr:    ":" + cfg.APIPort,
			Handler: mux,
		},
		apiHandler: apiHandler,
		logger:     logger,
	}, nil
}

// Start runs the HTTP server until Shutdown or failure.
func (w *Wrapper) Start(ctx context.Context) error {
	w.logger.Info().Str("addr", w.server.Addr).Msg("API server starting...")
	if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (w *Wrapper) Shutdown(ctx context.Context) error {
	w.logger.Info().Msg("Shutting down API service...")
	if err := w.server.Shutdown(ctx); err != nil {
		w.logger.Error().Err(err).Msg("API server shutdown failed.")
		return err
	}
	w.logger.Info().Msg("API service shut down.")
	return nil
}

// Handler exposes the configured mux, for tests that want to exercise the
// full routing table without a listener.
func (w *Wrapper) Handler() http.Handler {
	return w.server.Handler
}
