package persistence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/x/bsonx/bsoncore"

	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

func TestRecipientFilter(t *testing.T) {
	t.Run("24-hex identity matches both representations", func(t *testing.T) {
		filter := recipientFilter(notify.Identity("507f1f77bcf86cd799439011"))

		inClause, ok := filter["recipient_id"].(bson.M)
		require.True(t, ok)
		values, ok := inClause["$in"].(bson.A)
		require.True(t, ok)
		require.Len(t, values, 2)

		assert.Equal(t, "507f1f77bcf86cd799439011", values[0])
		oid, ok := values[1].(primitive.ObjectID)
		require.True(t, ok)
		assert.Equal(t, "507f1f77bcf86cd799439011", oid.Hex())
	})

	t.Run("non-hex identity matches the plain string only", func(t *testing.T) {
		filter := recipientFilter(notify.Identity("admin-user"))
		assert.Equal(t, bson.M{"recipient_id": "admin-user"}, filter)
	})
}

func TestMarkReadFilter(t *testing.T) {
	oid, err := primitive.ObjectIDFromHex("662a1b2c3d4e5f6a7b8c9d0e")
	require.NoError(t, err)

	t.Run("only matches while unread", func(t *testing.T) {
		filter := markReadFilter(notify.Identity("507f1f77bcf86cd799439011"), oid)
		assert.Equal(t, oid, filter["_id"])
		assert.Equal(t, false, filter["is_read"], "the unread gate is what makes a repeat call fall through untouched")
	})

	t.Run("keeps the dual recipient match", func(t *testing.T) {
		filter := markReadFilter(notify.Identity("507f1f77bcf86cd799439011"), oid)
		inClause, ok := filter["recipient_id"].(bson.M)
		require.True(t, ok)
		values, ok := inClause["$in"].(bson.A)
		require.True(t, ok)
		assert.Len(t, values, 2)
	})
}

func TestRecipientValueUnmarshal(t *testing.T) {
	t.Run("string representation", func(t *testing.T) {
		data := bsoncore.AppendString(nil, "507f1f77bcf86cd799439011")

		var r recipientValue
		require.NoError(t, r.UnmarshalBSONValue(bsontype.String, data))
		assert.Equal(t, recipientValue("507f1f77bcf86cd799439011"), r)
	})

	t.Run("legacy objectid representation decodes to hex", func(t *testing.T) {
		oid, err := primitive.ObjectIDFromHex("507f1f77bcf86cd799439011")
		require.NoError(t, err)
		data := bsoncore.AppendObjectID(nil, oid)

		var r recipientValue
		require.NoError(t, r.UnmarshalBSONValue(bsontype.ObjectID, data))
		assert.Equal(t, recipientValue("507f1f77bcf86cd799439011"), r)
	})

	t.Run("other types are rejected", func(t *testing.T) {
		data := bsoncore.AppendInt32(nil, 42)
		var r recipientValue
		require.Error(t, r.UnmarshalBSONValue(bsontype.Int32, data))
	})
}

func TestDocToNotification(t *testing.T) {
	oid := primitive.NewObjectID()
	readAt := time.Now().UTC()
	doc := &notificationDoc{
		ID:            oid,
		RecipientID:   recipientValue("507f1f77bcf86cd799439011"),
		RecipientType: "owner",
		Type:          "booking_approved",
		Title:         "Booking approved",
		Message:       "Your booking was approved.",
		ActionURL:     "/bookings/42",
		CreatedBy:     "admin-user",
		Metadata:      map[string]any{"booking_id": "42"},
		IsRead:        true,
		ReadAt:        &readAt,
		CreatedAt:     readAt.Add(-time.Hour),
	}

	n := docToNotification(doc)
	assert.Equal(t, oid.Hex(), n.ID)
	assert.Equal(t, notify.Identity("507f1f77bcf86cd799439011"), n.RecipientID)
	assert.Equal(t, notify.TypeBookingApproved, n.Type)
	assert.Equal(t, "owner", n.RecipientType)
	assert.True(t, n.IsRead)
	require.NotNil(t, n.ReadAt)
	assert.Equal(t, readAt, *n.ReadAt)
}
