/*
File: internal/platform/persistence/mongo.go
Description: MongoDB implementation of the notification store. Matches
the legacy collection layout, including documents whose recipient_id was
written as a native ObjectId instead of a string.
*/
// Package persistence provides durable notification store adapters.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

const notificationsCollection = "notifications"

// notificationTTL matches the legacy 30-day auto-expiry on the collection.
const notificationTTL = 30 * 24 * time.Hour

// recipientValue decodes recipient_id from either representation found in
// the legacy data: a plain string or a native ObjectId. It always
// marshals back as the canonical string.
type recipientValue string

func (r *recipientValue) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	switch t {
	case bsontype.String:
		s, _, ok := bsoncore.ReadString(data)
		if !ok {
			return fmt.Errorf("malformed string recipient_id")
		}
		*r = recipientValue(s)
		return nil
	case bsontype.ObjectID:
		oid, _, ok := bsoncore.ReadObjectID(data)
		if !ok {
			return fmt.Errorf("malformed objectid recipient_id")
		}
		*r = recipientValue(oid.Hex())
		return nil
	default:
		return fmt.Errorf("unsupported recipient_id type %s", t)
	}
}

// notificationDoc is the BSON document layout. The domain type stays free
// of storage tags; conversion happens here.
type notificationDoc struct {
	ID            primitive.ObjectID `bson:"_id,omitempty"`
	RecipientID   recipientValue     `bson:"recipient_id"`
	RecipientType string             `bson:"recipient_type,omitempty"`
	Type          string             `bson:"type"`
	Title         string             `bson:"title"`
	Message       string             `bson:"message"`
	ActionURL     string             `bson:"action_url,omitempty"`
	CreatedBy     string             `bson:"created_by,omitempty"`
	Metadata      map[string]any     `bson:"metadata,omitempty"`
	IsRead        bool               `bson:"is_read"`
	ReadAt        *time.Time         `bson:"read_at,omitempty"`
	CreatedAt     time.Time          `bson:"createdAt"`
}

// MongoStore implements notify.NotificationStore using MongoDB.
type MongoStore struct {
	coll   *mongo.Collection
	logger zerolog.Logger
}

// NewMongoStore is the constructor for the MongoStore.
func NewMongoStore(client *mongo.Client, database string, logger zerolog.Logger) (*MongoStore, error) {
	if client == nil {
		return nil, fmt.Errorf("mongo client cannot be nil")
	}
	return &MongoStore{
		coll:   client.Database(database).Collection(notificationsCollection),
		logger: logger.With().Str("component", "MongoStore").Logger(),
	}, nil
}

// EnsureIndexes creates the recipient/read/recency compound index and the
// TTL index. Safe to call on every startup.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "recipient_id", Value: 1},
				{Key: "is_read", Value: 1},
				{Key: "createdAt", Value: -1},
			},
		},
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(notificationTTL / time.Second)),
		},
	})
	if err != nil {
		return fmt.Errorf("create notification indexes: %w", err)
	}
	return nil
}

// Create persists a new notification with a server-assigned id and
// timestamp and IsRead=false.
func (s *MongoStore) Create(ctx context.Context, draft notify.Draft) (*notify.Notification, error) {
	recipient, err := notify.NormalizeIdentity(draft.RecipientID)
	if err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}

	doc := notificationDoc{
		RecipientID:   recipientValue(recipient.String()),
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

	res, err := s.coll.InsertOne(ctx, doc)
	if err != nil {
		s.logger.Error().Err(err).Str("user", recipient.String()).Msg("InsertOne failed")
		return nil, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected inserted id type %T", notify.ErrStoreUnavailable, res.InsertedID)
	}
	doc.ID = oid
	return docToNotification(&doc), nil
}

// ListRecent returns notifications for the recipient, newest first.
func (s *MongoStore) ListRecent(ctx context.Context, recipient notify.Identity, opts notify.ListOptions) ([]*notify.Notification, error) {
	filter := recipientFilter(recipient)
	if !opts.Before.IsZero() {
		filter["createdAt"] = bson.M{"$lt": opts.Before}
	}
	if opts.Type != "" {
		filter["type"] = string(opts.Type)
	}

	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}

	cursor, err := s.coll.Find(ctx, filter, options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(int64(limit)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}

	var docs []notificationDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}

	notifications := make([]*notify.Notification, 0, len(docs))
	for i := range docs {
		notifications = append(notifications, docToNotification(&docs[i]))
	}
	return notifications, nil
}

// MarkRead sets is_read=true iff the notification belongs to the
// recipient. The unread filter keeps the transition monotonic: a second
// call matches nothing, falls through to the ownership check, and returns
// the already-read record untouched.
func (s *MongoStore) MarkRead(ctx context.Context, notificationID string, recipient notify.Identity) (*notify.Notification, error) {
	oid, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", notify.ErrNotFound, notificationID)
	}

	filter := markReadFilter(recipient, oid)

	now := time.Now().UTC()
	update := bson.M{"$set": bson.M{"is_read": true, "read_at": now}}

	var doc notificationDoc
	err = s.coll.FindOneAndUpdate(ctx, filter, update,
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&doc)
	if err == nil {
		return docToNotification(&doc), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}

	// Not matched: either already read (idempotent success), unknown, or
	// owned by someone else.
	ownerFilter := recipientFilter(recipient)
	ownerFilter["_id"] = oid
	err = s.coll.FindOne(ctx, ownerFilter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", notify.ErrNotFound, notificationID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}
	return docToNotification(&doc), nil
}

// MarkAllRead flips every unread notification for the recipient, returning
// the flipped ids so read-state propagation can follow.
func (s *MongoStore) MarkAllRead(ctx context.Context, recipient notify.Identity) ([]string, error) {
	filter := recipientFilter(recipient)
	filter["is_read"] = false

	cursor, err := s.coll.Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}
	var idDocs []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cursor.All(ctx, &idDocs); err != nil {
		return nil, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}
	if len(idDocs) == 0 {
		return nil, nil
	}

	oids := make([]primitive.ObjectID, 0, len(idDocs))
	ids := make([]string, 0, len(idDocs))
	for _, d := range idDocs {
		oids = append(oids, d.ID)
		ids = append(ids, d.ID.Hex())
	}

	now := time.Now().UTC()
	_, err = s.coll.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": oids}, "is_read": false},
		bson.M{"$set": bson.M{"is_read": true, "read_at": now}})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}
	return ids, nil
}

// UnreadCount returns the recipient's unread notification count.
func (s *MongoStore) UnreadCount(ctx context.Context, recipient notify.Identity) (int64, error) {
	filter := recipientFilter(recipient)
	filter["is_read"] = false
	count, err := s.coll.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}
	return count, nil
}

// Delete removes the notification iff it belongs to the recipient.
func (s *MongoStore) Delete(ctx context.Context, notificationID string, recipient notify.Identity) error {
	oid, err := primitive.ObjectIDFromHex(notificationID)
	if err != nil {
		return fmt.Errorf("%w: %s", notify.ErrNotFound, notificationID)
	}

	filter := recipientFilter(recipient)
	filter["_id"] = oid

	res, err := s.coll.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("%w: %v", notify.ErrStoreUnavailable, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", notify.ErrNotFound, notificationID)
	}
	return nil
}

// markReadFilter matches the notification only while it is still unread,
// which keeps the false→true transition monotonic: a repeat call matches
// nothing and falls through to the ownership check instead of rewriting
// read_at.
func markReadFilter(recipient notify.Identity, oid primitive.ObjectID) bson.M {
	filter := recipientFilter(recipient)
	filter["_id"] = oid
	filter["is_read"] = false
	return filter
}

// recipientFilter matches a recipient in either representation the legacy
// data contains: the canonical string, or a native ObjectId written by an
// older writer. Without the dual match, half the ledger is invisible.
func recipientFilter(recipient notify.Identity) bson.M {
	key := recipient.String()
	if oid, err := primitive.ObjectIDFromHex(key); err == nil {
		return bson.M{"recipient_id": bson.M{"$in": bson.A{key, oid}}}
	}
	return bson.M{"recipient_id": key}
}

func docToNotification(doc *notificationDoc) *notify.Notification {
	return &notify.Notification{
		ID:            doc.ID.Hex(),
		RecipientID:   notify.Identity(string(doc.RecipientID)),
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
