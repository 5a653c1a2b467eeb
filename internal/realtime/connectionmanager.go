/*
File: internal/realtime/connectionmanager.go
Description: The WebSocket server. Upgrades authenticated requests,
binds each connection into the registry, triggers reconciliation, and
routes inbound read receipts.
*/
package realtime

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/anandupg/Lyvo-Backend1-sub001/internal/middleware"
	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

// markReadTimeout bounds the store round-trip triggered by an inbound
// read receipt.
const markReadTimeout = 10 * time.Second

// Router is the slice of the delivery router the connection manager
// needs: catch-up on bind and read-receipt handling.
type Router interface {
	Reconcile(ctx context.Context, id notify.Identity, conn notify.Sender) error
	MarkRead(ctx context.Context, notificationID string, id notify.Identity, originConnID string) (*notify.Notification, error)
}

// ConnectionManager manages all active WebSocket connections and user
// presence. It runs its own dedicated HTTP server.
type ConnectionManager struct {
	server   *http.Server
	upgrader websocket.Upgrader

	registry *Registry
	router   Router
	presence notify.PresenceStore

	logger     zerolog.Logger
	instanceID string
}

// NewConnectionManager creates and wires up a new WebSocket connection
// manager. presence may be nil when no cross-instance mirror is
// configured; allowedOrigins extends the same-host origin policy.
func NewConnectionManager(
	port string,
	allowedOrigins []string,
	authMiddleware func(http.Handler) http.Handler,
	registry *Registry,
	router Router,
	presence notify.PresenceStore,
	logger zerolog.Logger,
) (*ConnectionManager, error) {
	if registry == nil {
		return nil, fmt.Errorf("registry cannot be nil")
	}
	if router == nil {
		return nil, fmt.Errorf("router cannot be nil")
	}

	instanceID := uuid.NewString()
	cmLogger := logger.With().Str("component", "ConnectionManager").Str("instance", instanceID).Logger()

	cm := &ConnectionManager{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     checkOrigin(allowedOrigins),
		},
		registry:   registry,
		router:     router,
		presence:   presence,
		logger:     cmLogger,
		instanceID: instanceID,
	}

	mux := http.NewServeMux()
	mux.Handle("/ws/connect", authMiddleware(http.HandlerFunc(cm.connectHandler)))
	cm.server = &http.Server{
		Addr:    ":" + port,
		Handler: mux,
	}

	return cm, nil
}

// Start runs the HTTP server for WebSocket connections.
func (cm *ConnectionManager) Start(ctx context.Context) error {
	cm.logger.Info().Str("addr", cm.server.Addr).Msg("WebSocket server starting...")
	if err := cm.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("websocket server failed: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the HTTP server.
func (cm *ConnectionManager) Shutdown(ctx context.Context) error {
	cm.logger.Info().Msg("Shutting down WebSocket service...")
	if err := cm.server.Shutdown(ctx); err != nil {
		cm.logger.Error().Err(err).Msg("WebSocket server shutdown failed.")
		return err
	}
	cm.logger.Info().Msg("WebSocket service shut down.")
	return nil
}

// connectHandler upgrades a new HTTP request to a WebSocket and manages
// its lifecycle: register, bind, reconcile, read until disconnect, unbind.
func (cm *ConnectionManager) connectHandler(w http.ResponseWriter, r *http.Request) {
	rawID, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	identity, err := notify.NormalizeIdentity(rawID)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	conn, err := cm.upgrader.Upgrade(w, r, nil)
	if err != nil {
		cm.logger.Error().Err(err).Msg("Failed to upgrade connection.")
		return
	}

	client := newClient(conn, identity, cm.logger)
	cm.registry.Add(client)
	if err := cm.registry.Bind(client.ID(), identity); err != nil {
		cm.logger.Error().Err(err).Str("user", identity.String()).Msg("Failed to bind connection.")
		cm.registry.Unbind(client.ID())
		client.shutdown()
		return
	}
	defer cm.remove(client)

	cm.setPresence(identity)
	cm.logger.Info().Str("user", identity.String()).Str("conn", client.ID()).Msg("User connected via WebSocket.")

	go client.writePump()

	// Catch-up first, as a single batch event. Live pushes that race this
	// are fine: the client tells them apart by kind.
	if err := cm.router.Reconcile(r.Context(), identity, client); err != nil {
		cm.logger.Warn().Err(err).Str("user", identity.String()).Msg("Reconciliation failed; client will retry on next connect.")
	}

	client.readPump(func(notificationID string) {
		ctx, cancel := context.WithTimeout(context.Background(), markReadTimeout)
		defer cancel()
		if _, err := cm.router.MarkRead(ctx, notificationID, identity, client.ID()); err != nil {
			cm.logger.Warn().Err(err).Str("user", identity.String()).Str("notification", notificationID).Msg("Read receipt failed.")
		}
	})
}

// remove unbinds the connection and clears presence when the identity's
// last connection is gone.
func (cm *ConnectionManager) remove(client *Client) {
	cm.registry.Unbind(client.ID())
	client.shutdown()

	identity := client.Identity()
	if cm.presence != nil && cm.registry.ConnectionCount(identity) == 0 {
		if err := cm.presence.Delete(context.Background(), identity); err != nil {
			cm.logger.Error().Err(err).Str("user", identity.String()).Msg("Failed to delete user presence.")
		}
	}
	cm.logger.Info().Str("user", identity.String()).Str("conn", client.ID()).Msg("User disconnected.")
}

// checkOrigin builds the upgrade origin policy: non-browser clients (no
// Origin header) and same-host requests always pass; browser origins must
// be on the allowlist. "*" disables the check.
func checkOrigin(allowed []string) func(r *http.Request) bool {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		allowedSet[strings.ToLower(origin)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		if _, ok := allowedSet["*"]; ok {
			return true
		}
		if _, ok := allowedSet[strings.ToLower(origin)]; ok {
			return true
		}
		u, err := url.Parse(origin)
		if err != nil {
			return false
		}
		return strings.EqualFold(u.Host, r.Host)
	}
}

func (cm *ConnectionManager) setPresence(identity notify.Identity) {
	if cm.presence == nil {
		return
	}
	info := notify.ConnectionInfo{
		ServerInstanceID: cm.instanceID,
		ConnectedAt:      time.Now().Unix(),
	}
	if err := cm.presence.Set(context.Background(), identity, info); err != nil {
		cm.logger.Error().Err(err).Str("user", identity.String()).Msg("Failed to set user presence.")
	}
}
