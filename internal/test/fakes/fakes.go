// Package fakes provides in-memory implementations of the platform
// interfaces for local runs and tests.
package fakes

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

// NotificationStore is an in-memory notify.NotificationStore. Error
// injection fields let tests simulate backend failures.
type NotificationStore struct {
	mu    sync.Mutex
	docs  map[string]*notify.Notification
	clock func() time.Time

	CreateErr   error
	ListErr     error
	MarkReadErr error
}

// NewNotificationStore creates an empty in-memory store.
func NewNotificationStore() *NotificationStore {
	return &NotificationStore{
		docs:  make(map[string]*notify.Notification),
		clock: time.Now,
	}
}

// SetClock overrides the time source, for deterministic tests.
func (s *NotificationStore) SetClock(clock func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clock = clock
}

func (s *NotificationStore) Create(ctx context.Context, draft notify.Draft) (*notify.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.CreateErr != nil {
		return nil, s.CreateErr
	}
	recipient, err := notify.NormalizeIdentity(draft.RecipientID)
	if err != nil {
		return nil, err
	}
	n := &notify.Notification{
		ID:            uuid.NewString(),
		RecipientID:   recipient,
		RecipientType: draft.RecipientType,
		Type:          draft.Type,
		Title:         draft.Title,
		Message:       draft.Message,
		ActionURL:     draft.ActionURL,
		CreatedBy:     draft.CreatedBy,
		Metadata:      draft.Metadata,
		CreatedAt:     s.clock().UTC(),
	}
	s.docs[n.ID] = n
	return copyNotification(n), nil
}

func (s *NotificationStore) ListRecent(ctx context.Context, recipient notify.Identity, opts notify.ListOptions) ([]*notify.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ListErr != nil {
		return nil, s.ListErr
	}
	out := make([]*notify.Notification, 0)
	for _, n := range s.docs {
		if n.RecipientID != recipient {
			continue
		}
		if !opts.Before.IsZero() && !n.CreatedAt.Before(opts.Before) {
			continue
		}
		if opts.Type != "" && n.Type != opts.Type {
			continue
		}
		out = append(out, copyNotification(n))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (s *NotificationStore) MarkRead(ctx context.Context, id string, recipient notify.Identity) (*notify.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MarkReadErr != nil {
		return nil, s.MarkReadErr
	}
	n, ok := s.docs[id]
	if !ok || n.RecipientID != recipient {
		return nil, notify.ErrNotFound
	}
	if !n.IsRead {
		now := s.clock().UTC()
		n.IsRead = true
		n.ReadAt = &now
	}
	return copyNotification(n), nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, recipient notify.Identity) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	now := s.clock().UTC()
	for _, n := range s.docs {
		if n.RecipientID == recipient && !n.IsRead {
			n.IsRead = true
			readAt := now
			n.ReadAt = &readAt
			ids = append(ids, n.ID)
		}
	}
	return ids, nil
}

func (s *NotificationStore) UnreadCount(ctx context.Context, recipient notify.Identity) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, n := range s.docs {
		if n.RecipientID == recipient && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *NotificationStore) Delete(ctx context.Context, id string, recipient notify.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.docs[id]
	if !ok || n.RecipientID != recipient {
		return notify.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}

func copyNotification(n *notify.Notification) *notify.Notification {
	cp := *n
	if n.ReadAt != nil {
		readAt := *n.ReadAt
		cp.ReadAt = &readAt
	}
	return &cp
}

// NoopPresence is a notify.PresenceStore that does nothing, for local
// runs without Redis.
type NoopPresence struct{}

func (NoopPresence) Set(ctx context.Context, id notify.Identity, info notify.ConnectionInfo) error {
	return nil
}

func (NoopPresence) Delete(ctx context.Context, id notify.Identity) error { return nil }

func (NoopPresence) Close() error { return nil }
