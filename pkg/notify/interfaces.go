package notify

import (
	"context"
	"time"
)

// ListOptions bounds a ListRecent query.
type ListOptions struct {
	// Limit caps the number of returned notifications. Implementations
	// apply their own default when it is zero.
	Limit int
	// Before, when non-zero, returns only notifications created strictly
	// before the cursor.
	Before time.Time
	// Type, when non-empty, filters to a single notification type.
	Type Type
}

// NotificationStore is the narrow interface to the durable ledger. All
// access to the store goes through it; no component bypasses it. Recipient
// identities are compared in canonical form on every lookup.
type NotificationStore interface {
	// Create persists a new notification with IsRead=false and a
	// store-assigned id and timestamp, returning the persisted record.
	// Returns ErrStoreUnavailable on transient failure.
	Create(ctx context.Context, draft Draft) (*Notification, error)

	// ListRecent returns notifications for the recipient ordered by
	// creation time descending. Read-only; never mutates IsRead.
	ListRecent(ctx context.Context, recipient Identity, opts ListOptions) ([]*Notification, error)

	// MarkRead sets IsRead=true iff the notification belongs to the
	// recipient, returning the record. Idempotent: marking an already-read
	// notification succeeds without touching ReadAt. Returns ErrNotFound
	// for unknown or foreign ids.
	MarkRead(ctx context.Context, notificationID string, recipient Identity) (*Notification, error)

	// MarkAllRead flips every unread notification for the recipient and
	// returns the ids that were actually flipped.
	MarkAllRead(ctx context.Context, recipient Identity) ([]string, error)

	// UnreadCount returns the number of unread notifications.
	UnreadCount(ctx context.Context, recipient Identity) (int64, error)

	// Delete removes a notification iff it belongs to the recipient.
	// Returns ErrNotFound for unknown or foreign ids.
	Delete(ctx context.Context, notificationID string, recipient Identity) error
}

// PresenceStore mirrors which identities currently hold at least one live
// connection on this instance. Best-effort: delivery decisions are made
// against the in-process registry, never against this mirror.
type PresenceStore interface {
	Set(ctx context.Context, id Identity, info ConnectionInfo) error
	Delete(ctx context.Context, id Identity) error
	Close() error
}

// Sender is one live connection's outbound path. Send enqueues an event
// without blocking; it reports false when the connection is gone or its
// buffer is full, in which case the connection tears itself down.
type Sender interface {
	ID() string
	Identity() Identity
	Send(event any) bool
}
