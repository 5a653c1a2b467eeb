package notify

// Event kinds pushed to a live connection. A client distinguishes catch-up
// from live delivery by kind alone, never by arrival order.
const (
	KindNotification = "notification"
	KindCatchup      = "catchup"
	KindReadState    = "read_state"
)

// NotificationEvent is the live single-item push.
type NotificationEvent struct {
	Kind         string        `json:"kind"`
	Notification *Notification `json:"notification"`
}

// CatchupEvent is the reconnect batch. Notifications is never null, so a
// client can treat an empty batch as "nothing missed".
type CatchupEvent struct {
	Kind          string          `json:"kind"`
	Notifications []*Notification `json:"notifications"`
}

// ReadStateEvent propagates a read-state flip to an identity's other
// live connections.
type ReadStateEvent struct {
	Kind           string `json:"kind"`
	NotificationID string `json:"notificationId"`
	IsRead         bool   `json:"is_read"`
}

// ReadReceipt is the inbound frame a connection sends to mark a
// notification read.
type ReadReceipt struct {
	NotificationID string `json:"notificationId"`
}

func NewNotificationEvent(n *Notification) *NotificationEvent {
	return &NotificationEvent{Kind: KindNotification, Notification: n}
}

func NewCatchupEvent(ns []*Notification) *CatchupEvent {
	if ns == nil {
		ns = []*Notification{}
	}
	return &CatchupEvent{Kind: KindCatchup, Notifications: ns}
}

func NewReadStateEvent(notificationID string) *ReadStateEvent {
	return &ReadStateEvent{Kind: KindReadState, NotificationID: notificationID, IsRead: true}
}
