/*
File: internal/platform/persistence/firestore.go
Description: Firestore implementation of the notification store, for
deployments running on GCP instead of MongoDB.
*/
package persistence

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/rs/zerolog"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

// firestoreDoc mirrors notificationDoc for the Firestore backend. The
// document ID doubles as the notification id.
type firestoreDoc struct {
	RecipientID   string         `firestore:"recipient_id"`
	RecipientType string         `firestore:"recipient_type,omitempty"`
	Type          string         `firestore:"type"`
	Title         string         `firestore:"title"`
	Message       string         `firestore:"message"`
	ActionURL     string         `firestore:"action_url,omitempty"`
	CreatedBy     string         `firestore:"created_by,omitempty"`
	Metadata      map[string]any `firestore:"metadata,omitempty"`
	IsRead        bool           `firestore:"is_read"`
	ReadAt        *time.Time     `firestore:"read_at,omitempty"`
	CreatedAt     time.Time      `firestore:"createdAt"`
}

// FirestoreStore implements notify.NotificationStore using Google Cloud
// Firestore.
type FirestoreStore struct {
	client     *firestore.Client
	collection string
	logger     zerolog.Logger
}

// NewFirestoreStore is the constructor for the FirestoreStore.
func NewFirestoreStore(client *firestore.Client, collection string, logger zerolog.Logger) (*FirestoreStore, error) {
	if client == nil {
		return nil, fmt.Errorf("firestore client cannot be nil")
	}
	if collection == "" {
		collection = notificationsCollection
	}
	return &FirestoreStore{
		client:     client,
		collection: collection,
		logger:     logger.With().Str("component", "FirestoreStore").Logger(),
	}, nil
}

// Create persists a new notification under a fresh document ID.
func (s *FirestoreStore) Create(ctx context.Context, draft notify.Draft) (*notify.Notification, error) {
	recipient, err := notify.NormalizeIdentity(draft.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	doc := firestoreDoc{
		RecipientID:   recipient.String(),
		RecipientType: draft.RecipientType,
		Type:          string(draft.Type),
		Title:         draft.Title,
		Message:       draft.Message,
		ActionURL:     draft.ActionURL,
		CreatedBy:     draft.CreatedBy,
		Metadata:      draft.Metadata,
		IsRead:        false,
		CreatedAt:     time.Now().UTC(),
	}

	docRef := s.client.Collection(s.collection).NewDoc()
	if _, err := docRef.Create(ctx, &doc); err != nil {
		s.logger.Error().Err(err).Str("user", recipient.String()).Msg("Document create failed")
		return nil, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}
	return firestoreDocToNotification(docRef.ID, &doc), nil
}

// ListRecent returns notifications for the recipient, newest first.
func (s *FirestoreStore) ListRecent(ctx context.Context, recipient notify.Identity, opts notify.ListOptions) ([]*notify.Notification, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	query := s.client.Collection(s.collection).
		Where("recipient_id", "==", recipient.String()).
		OrderBy("createdAt", firestore.Desc).
		Limit(limit)
	if opts.Type != "" {
		query = query.Where("type", "==", string(opts.Type))
	}
	if !opts.Before.IsZero() {
		query = query.Where("createdAt", "<", opts.Before)
	}

	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}

	notifications := make([]*notify.Notification, 0, len(snaps))
	for _, snap := range snaps {
		var doc firestoreDoc
		if err := snap.DataTo(&doc); err != nil {
			s.logger.Error().Err(err).Str("doc_id", snap.Ref.ID).Msg("Failed to unmarshal notification, skipping")
			continue
		}
		notifications = append(notifications, firestoreDocToNotification(snap.Ref.ID, &doc))
	}
	return notifications, nil
}

// MarkRead flips is_read in a transaction so the false→true transition is
// decided against a consistent snapshot.
func (s *FirestoreStore) MarkRead(ctx context.Context, notificationID string, recipient notify.Identity) (*notify.Notification, error) {
	ref := s.client.Collection(s.collection).Doc(notificationID)

	var result *notify.Notification
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", notify.ErrNotFound, notificationID)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
		}

		var doc firestoreDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
		}
		if doc.RecipientID != recipient.String() {
			return fmt.Errorf("%w: %s", notify.ErrNotFound, notificationID)
		}
		if doc.IsRead {
			result = firestoreDocToNotification(notificationID, &doc)
			return nil
		}

		now := time.Now().UTC()
		doc.IsRead = true
		doc.ReadAt = &now
		result = firestoreDocToNotification(notificationID, &doc)
		return tx.Update(ref, []firestore.Update{
			{Path: "is_read", Value: true},
			{Path: "read_at", Value: now},
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// MarkAllRead flips every unread notification for the recipient using a
// BulkWriter and returns the flipped ids.
func (s *FirestoreStore) MarkAllRead(ctx context.Context, recipient notify.Identity) ([]string, error) {
	query := s.client.Collection(s.collection).
		Where("recipient_id", "==", recipient.String()).
		Where("is_read", "==", false)

	snaps, err := query.Documents(ctx).GetAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}
	if len(snaps) == 0 {
		return nil, nil
	}

	now := time.Now().UTC()
	updates := []firestore.Update{
		{Path: "is_read", Value: true},
		{Path: "read_at", Value: now},
	}

	bulkWriter := s.client.BulkWriter(ctx)
	ids := make([]string, 0, len(snaps))
	var firstErr error
	for _, snap := range snaps {
		if _, err := bulkWriter.Update(snap.Ref, updates); err != nil {
			s.logger.Error().Err(err).Str("doc_id", snap.Ref.ID).Msg("Failed to enqueue read-state update")
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		ids = append(ids, snap.Ref.ID)
	}
	bulkWriter.End()

	if firstErr != nil {
		return ids, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, firstErr)
	}
	return ids, nil
}

// UnreadCount returns the recipient's unread notification count.
func (s *FirestoreStore) UnreadCount(ctx context.Context, recipient notify.Identity) (int64, error) {
	iter := s.client.Collection(s.collection).
		Where("recipient_id", "==", recipient.String()).
		Where("is_read", "==", false).
		Select().
		Documents(ctx)
	defer iter.Stop()

	var count int64
	for {
		_, err := iter.Next()
		if err == iterator.Done {
			return count, nil
		}
		if err != nil {
			return 0, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
		}
		count++
	}
}

// Delete removes the notification iff it belongs to the recipient.
func (s *FirestoreStore) Delete(ctx context.Context, notificationID string, recipient notify.Identity) error {
	ref := s.client.Collection(s.collection).Doc(notificationID)

	return s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if status.Code(err) == codes.NotFound {
			return fmt.Errorf("%w: %s", notify.ErrNotFound, notificationID)
		}
		if err != nil {
			return fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
		}
		var doc firestoreDoc
		if err := snap.DataTo(&doc); err != nil {
			return fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
		}
		if doc.RecipientID != recipient.String() {
			return fmt.Errorf("%w: %s", notify.ErrNotFound, notificationID)
		}
		return tx.Delete(ref)
	})
}

func firestoreDocToNotification(id string, doc *firestoreDoc) *notify.Notification {
	return &notify.Notification{
		ID:            id,
		RecipientID:   notify.Identity(doc.RecipientID),
		RecipientType: doc.RecipientType,
		Type:          notify.Type(doc.Type),
		Title:         doc.Title,
		Message:       doc.Message,
		ActionURL:     doc.ActionURL,
		CreatedBy:     doc.CreatedBy,
		Metadata:      doc.Metadata,
		IsRead:        doc.IsRead,
		ReadAt:        doc.ReadAt,
		CreatedAt:     doc.CreatedAt,
	}
}
