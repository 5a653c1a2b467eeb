/*
File: internal/api/notification_handlers.go
Description: HTTP handlers for the notification API: producer ingestion,
recent-window listing, read-state updates, and deletion.
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/anandupg/Lyvo-Backend1-sub001/internal/middleware"
	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// Deliverer is the slice of the delivery router the API needs.
type Deliverer interface {
	Deliver(ctx context.Context, draft notify.Draft) (*notify.Notification, bool, error)
	MarkRead(ctx context.Context, notificationID string, id notify.Identity, originConnID string) (*notify.Notification, error)
	MarkAllRead(ctx context.Context, id notify.Identity, originConnID string) (int, error)
}

// API holds the dependencies for the stateless HTTP handlers.
type API struct {
	deliverer Deliverer
	store     notify.NotificationStore
	logger    zerolog.Logger
}

// NewAPI creates a new, stateless API handler.
func NewAPI(deliverer Deliverer, store notify.NotificationStore, logger zerolog.Logger) *API {
	return &API{
		deliverer: deliverer,
		store:     store,
		logger:    logger,
	}
}

type deliverResponse struct {
	Notification  *notify.Notification `json:"notification"`
	DeliveredLive bool                 `json:"delivered_live"`
}

type listResponse struct {
	Notifications []*notify.Notification `json:"notifications"`
	UnreadCount   int64                  `json:"unread_count"`
}

// CreateHandler ingests a producer-submitted draft and routes it through
// the delivery router. Success guarantees durability, never live delivery.
func (a *API) CreateHandler(w http.ResponseWriter, r *http.Request) {
	authedID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing authentication token")
		return
	}

	var draft notify.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		a.logger.Warn().Err(err).Msg("Failed to decode draft body")
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if draft.RecipientID == "" || draft.Title == "" || draft.Message == "" {
		writeJSONError(w, http.StatusBadRequest, "recipient_id, title and message are required")
		return
	}
	if draft.Type == "" {
		draft.Type = notify.TypeGeneral
	}
	if draft.CreatedBy == "" {
		draft.CreatedBy = authedID
	}

	log := a.logger.With().Str("producer", authedID).Str("recipient", draft.RecipientID).Logger()

	persisted, deliveredLive, err := a.deliverer.Deliver(r.Context(), draft)
	if err != nil {
		log.Error().Err(err).Msg("Delivery failed")
		writeJSONError(w, http.StatusServiceUnavailable, "failed to persist notification")
		return
	}

	log.Debug().Bool("delivered_live", deliveredLive).Msg("Notification accepted")
	writeJSON(w, http.StatusCreated, deliverResponse{Notification: persisted, DeliveredLive: deliveredLive})
}

// ListHandler returns the caller's recent notifications, newest first,
// with an optional type filter and time cursor.
func (a *API) ListHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.authedIdentity(w, r)
	if !ok {
		return
	}

	opts := notify.ListOptions{Limit: defaultListLimit}
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		val, err := strconv.Atoi(limitStr)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid 'limit' parameter, must be an integer")
			return
		}
		if val > maxListLimit {
			opts.Limit = maxListLimit
		} else if val > 0 {
			opts.Limit = val
		}
	}
	if beforeStr := r.URL.Query().Get("before"); beforeStr != "" {
		before, err := time.Parse(time.RFC3339, beforeStr)
		if err != nil {
			writeJSONError(w, http.StatusBadRequest, "invalid 'before' parameter, must be RFC3339")
			return
		}
		opts.Before = before
	}
	opts.Type = notify.Type(r.URL.Query().Get("type"))

	notifications, err := a.store.ListRecent(r.Context(), identity, opts)
	if err != nil {
		a.logger.Error().Err(err).Str("user", identity.String()).Msg("Failed to list notifications")
		writeJSONError(w, http.StatusInternalServerError, "failed to retrieve notifications")
		return
	}
	unread, err := a.store.UnreadCount(r.Context(), identity)
	if err != nil {
		a.logger.Error().Err(err).Str("user", identity.String()).Msg("Failed to count unread notifications")
		writeJSONError(w, http.StatusInternalServerError, "failed to retrieve notifications")
		return
	}
	if notifications == nil {
		notifications = []*notify.Notification{}
	}

	writeJSON(w, http.StatusOK, listResponse{Notifications: notifications, UnreadCount: unread})
}

// UnreadCountHandler returns the caller's unread notification count.
func (a *API) UnreadCountHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.authedIdentity(w, r)
	if !ok {
		return
	}

	count, err := a.store.UnreadCount(r.Context(), identity)
	if err != nil {
		a.logger.Error().Err(err).Str("user", identity.String()).Msg("Failed to count unread notifications")
		writeJSONError(w, http.StatusInternalServerError, "failed to retrieve unread count")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"count": count})
}

// MarkReadHandler flips one notification's read state and propagates the
// change to the caller's live connections.
func (a *API) MarkReadHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.authedIdentity(w, r)
	if !ok {
		return
	}
	notificationID := r.PathValue("id")

	n, err := a.deliverer.MarkRead(r.Context(), notificationID, identity, "")
	if err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "notification not found")
			return
		}
		a.logger.Error().Err(err).Str("user", identity.String()).Str("notification", notificationID).Msg("Failed to mark read")
		writeJSONError(w, http.StatusInternalServerError, "failed to mark notification read")
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// MarkAllReadHandler flips every unread notification for the caller.
func (a *API) MarkAllReadHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.authedIdentity(w, r)
	if !ok {
		return
	}

	updated, err := a.deliverer.MarkAllRead(r.Context(), identity, "")
	if err != nil {
		a.logger.Error().Err(err).Str("user", identity.String()).Msg("Failed to mark all read")
		writeJSONError(w, http.StatusInternalServerError, "failed to mark notifications read")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"updated": updated})
}

// DeleteHandler removes one of the caller's notifications.
func (a *API) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	identity, ok := a.authedIdentity(w, r)
	if !ok {
		return
	}
	notificationID := r.PathValue("id")

	if err := a.store.Delete(r.Context(), notificationID, identity); err != nil {
		if errors.Is(err, notify.ErrNotFound) {
			writeJSONError(w, http.StatusNotFound, "notification not found")
			return
		}
		a.logger.Error().Err(err).Str("user", identity.String()).Str("notification", notificationID).Msg("Failed to delete notification")
		writeJSONError(w, http.StatusInternalServerError, "failed to delete notification")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// authedIdentity extracts and normalizes the caller's identity, writing
// the error response itself when that fails.
func (a *API) authedIdentity(w http.ResponseWriter, r *http.Request) (notify.Identity, bool) {
	rawID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		writeJSONError(w, http.StatusUnauthorized, "missing authentication token")
		return "", false
	}
	identity, err := notify.NormalizeIdentity(rawID)
	if err != nil {
		a.logger.Error().Err(err).Str("user", rawID).Msg("Failed to normalize authed identity")
		writeJSONError(w, http.StatusInternalServerError, "internal server error")
		return "", false
	}
	return identity, true
}
