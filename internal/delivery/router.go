// Package delivery implements the delivery router: the component that
// decides live push versus store-only persistence and keeps an identity's
// live connections converged on the durable ledger.
package delivery

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

// ConnectionSource is the registry view the router needs: the live
// connections currently bound to an identity.
type ConnectionSource interface {
	ConnectionsFor(id notify.Identity) []notify.Sender
}

// Router persists notifications and pushes them to live connections.
// The push is a hint; the store is the ledger.
type Router struct {
	store        notify.NotificationStore
	conns        ConnectionSource
	catchupLimit int
	logger       zerolog.Logger
}

// NewRouter creates a delivery router. catchupLimit bounds the reconnect
// catch-up window.
func NewRouter(store notify.NotificationStore, conns ConnectionSource, catchupLimit int, logger zerolog.Logger) (*Router, error) {
	if store == nil {
		return nil, fmt.Errorf("store cannot be nil")
	}
	if conns == nil {
		return nil, fmt.Errorf("connection source cannot be nil")
	}
	if catchupLimit <= 0 {
		catchupLimit = 50
	}
	return &Router{
		store:        store,
		conns:        conns,
		catchupLimit: catchupLimit,
		logger:       logger.With().Str("component", "Router").Logger(),
	}, nil
}

// Deliver persists the draft and then pushes the persisted record to every
// live connection of the recipient, best-effort. Persistence failure aborts
// the whole call with notify.ErrStoreUnavailable and no push is attempted:
// a notification a client saw but the ledger never recorded would be
// unrecoverable after disconnect. Push failures never fail the call.
//
// The returned bool reports whether at least one live push was attempted,
// not whether it was acknowledged; this transport has no acks.
func (rt *Router) Deliver(ctx context.Context, draft notify.Draft) (*notify.Notification, bool, error) {
	persisted, err := rt.store.Create(ctx, draft)
	if err != nil {
		return nil, false, fmt.Errorf("persist notification: %w", err)
	}

	log := rt.logger.With().Str("user", persisted.RecipientID.String()).Str("notification", persisted.ID).Logger()

	senders := rt.conns.ConnectionsFor(persisted.RecipientID)
	if len(senders) == 0 {
		log.Debug().Msg("Recipient offline, store-only delivery.")
		return persisted, false, nil
	}

	event := notify.NewNotificationEvent(persisted)
	for _, s := range senders {
		if !s.Send(event) {
			log.Warn().Str("conn", s.ID()).Msg("Live push dropped; connection will reconcile on reconnect.")
		}
	}
	log.Debug().Int("connections", len(senders)).Msg("Live push attempted.")
	return persisted, true, nil
}

// Reconcile pushes the authoritative recent window to a newly bound
// connection as a single catch-up batch, distinct from live single-item
// pushes so the client never double-counts.
func (rt *Router) Reconcile(ctx context.Context, id notify.Identity, conn notify.Sender) error {
	recent, err := rt.store.ListRecent(ctx, id, notify.ListOptions{Limit: rt.catchupLimit})
	if err != nil {
		return fmt.Errorf("list recent for catch-up: %w", err)
	}
	if !conn.Send(notify.NewCatchupEvent(recent)) {
		return fmt.Errorf("connection %s rejected catch-up batch", conn.ID())
	}
	rt.logger.Debug().Str("user", id.String()).Int("count", len(recent)).Msg("Catch-up batch delivered.")
	return nil
}

// MarkRead flips the notification's read state at the store and, on
// success, propagates a read_state event to all of the identity's *other*
// live connections so multi-device clients converge without polling.
// originConnID is excluded; pass "" when the flip did not originate from a
// live connection (REST callers).
func (rt *Router) MarkRead(ctx context.Context, notificationID string, id notify.Identity, originConnID string) (*notify.Notification, error) {
	n, err := rt.store.MarkRead(ctx, notificationID, id)
	if err != nil {
		return nil, err
	}
	rt.propagateReadState(id, originConnID, notificationID)
	return n, nil
}

// MarkAllRead flips every unread notification for the identity and
// propagates a read_state event per flipped id, excluding originConnID.
// Returns the number of notifications flipped.
func (rt *Router) MarkAllRead(ctx context.Context, id notify.Identity, originConnID string) (int, error) {
	ids, err := rt.store.MarkAllRead(ctx, id)
	if err != nil {
		return 0, err
	}
	for _, notificationID := range ids {
		rt.propagateReadState(id, originConnID, notificationID)
	}
	return len(ids), nil
}

func (rt *Router) propagateReadState(id notify.Identity, originConnID, notificationID string) {
	event := notify.NewReadStateEvent(notificationID)
	for _, s := range rt.conns.ConnectionsFor(id) {
		if s.ID() == originConnID {
			continue
		}
		if !s.Send(event) {
			rt.logger.Warn().Str("user", id.String()).Str("conn", s.ID()).Msg("Read-state push dropped.")
		}
	}
}
