// Package realtime provides components for managing real-time client
// connections: the connection registry and the WebSocket server that
// feeds it.
package realtime

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

// ErrUnknownConnection is returned by Bind for a connection id the
// registry has never seen (or has already removed).
var ErrUnknownConnection = errors.New("unknown connection")

type entry struct {
	sender    notify.Sender
	identity  notify.Identity // zero until bound
	createdAt time.Time
}

// Registry is the single shared mutable structure of the core: it maps an
// authenticated identity to the set of currently live connections. It owns
// its synchronization; every operation is safe for arbitrarily many
// concurrent callers and none of them blocks on I/O.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*entry
	users map[notify.Identity]map[string]notify.Sender

	logger zerolog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{
		conns:  make(map[string]*entry),
		users:  make(map[notify.Identity]map[string]notify.Sender),
		logger: logger.With().Str("component", "Registry").Logger(),
	}
}

// Add tracks a freshly connected, not-yet-bound connection. Unauthenticated
// connections receive no targeted delivery until Bind is called.
func (r *Registry) Add(s notify.Sender) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.conns[s.ID()]; exists {
		return
	}
	r.conns[s.ID()] = &entry{sender: s, createdAt: time.Now()}
	r.logger.Debug().Str("conn", s.ID()).Msg("Connection registered")
}

// Bind associates a connection with an identity exactly once. Binding the
// same identity twice is a no-op; binding a different identity fails with
// notify.ErrAlreadyBound and leaves the connection in its prior state.
func (r *Registry) Bind(connID string, id notify.Identity) error {
	if id.IsZero() {
		return fmt.Errorf("bind %s: identity is empty", connID)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return fmt.Errorf("bind %s: %w", connID, ErrUnknownConnection)
	}
	if !e.identity.IsZero() {
		if e.identity == id {
			return nil
		}
		return fmt.Errorf("bind %s: %w", connID, notify.ErrAlreadyBound)
	}

	e.identity = id
	set, ok := r.users[id]
	if !ok {
		set = make(map[string]notify.Sender)
		r.users[id] = set
	}
	set[connID] = e.sender

	r.logger.Debug().Str("conn", connID).Str("user", id.String()).Msg("Connection bound")
	return nil
}

// Unbind removes the connection and its identity association. Disconnects
// are not observed in any guaranteed order relative to binds, so redundant
// calls are a no-op, never an error.
func (r *Registry) Unbind(connID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.conns[connID]
	if !ok {
		return
	}
	delete(r.conns, connID)

	if e.identity.IsZero() {
		return
	}
	set, ok := r.users[e.identity]
	if !ok {
		return
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.users, e.identity)
	}
	r.logger.Debug().Str("conn", connID).Str("user", e.identity.String()).Msg("Connection unbound")
}

// ConnectionsFor returns the current, possibly empty set of live
// connections bound to the identity. The returned slice is a snapshot;
// callers may iterate it without holding any lock.
func (r *Registry) ConnectionsFor(id notify.Identity) []notify.Sender {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set, ok := r.users[id]
	if !ok {
		return nil
	}
	senders := make([]notify.Sender, 0, len(set))
	for _, s := range set {
		senders = append(senders, s)
	}
	return senders
}

// ConnectionCount reports how many live connections the identity holds.
func (r *Registry) ConnectionCount(id notify.Identity) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[id])
}
