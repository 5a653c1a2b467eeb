// Package notify contains the public domain models, interfaces, and event
// envelopes for the notification service. It defines the contract for
// interacting with the delivery core.
package notify

import "time"

// Type is the enumerated tag describing a notification's payload shape.
type Type string

const (
	TypePropertyApproved   Type = "property_approved"
	TypePropertyRejected   Type = "property_rejected"
	TypeRoomApproved       Type = "room_approved"
	TypeRoomRejected       Type = "room_rejected"
	TypeBookingRequest     Type = "booking_request"
	TypeBookingApproved    Type = "booking_approved"
	TypeBookingRejected    Type = "booking_rejected"
	TypePaymentReceived    Type = "payment_received"
	TypeMaintenanceRequest Type = "maintenance_request"
	TypeGeneral            Type = "general"
	TypeBooking            Type = "booking"
)

// Notification is the durable ledger entity. It is immutable once persisted
// except for IsRead/ReadAt, which flip false→true exactly once.
type Notification struct {
	ID            string         `json:"id"`
	RecipientID   Identity       `json:"recipient_id"`
	RecipientType string         `json:"recipient_type,omitempty"`
	Type          Type           `json:"type"`
	Title         string         `json:"title"`
	Message       string         `json:"message"`
	ActionURL     string         `json:"action_url,omitempty"`
	CreatedBy     string         `json:"created_by,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
	IsRead        bool           `json:"is_read"`
	ReadAt        *time.Time     `json:"read_at,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// Draft is a notification as submitted by a producer, before the store has
// assigned an id, timestamp, or read state.
type Draft struct {
	RecipientID   string         `json:"recipient_id"`
	RecipientType string         `json:"recipient_type,omitempty"`
	Type          Type           `json:"type"`
	Title         string         `json:"title"`
	Message       string         `json:"message"`
	ActionURL     string         `json:"action_url,omitempty"`
	CreatedBy     string         `json:"created_by,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// ConnectionInfo holds details about a user's real-time connection.
// This is stored in the presence mirror.
type ConnectionInfo struct {
	ServerInstanceID string `json:"serverInstanceId"`
	ConnectedAt      int64  `json:"connectedAt"`
}
