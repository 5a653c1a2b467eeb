package notify

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatchupEventEmptyBatchIsNotNull(t *testing.T) {
	payload, err := json.Marshal(NewCatchupEvent(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"catchup","notifications":[]}`, string(payload))
}

func TestEventKinds(t *testing.T) {
	n := &Notification{ID: "abc"}

	payload, err := json.Marshal(NewNotificationEvent(n))
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"kind":"notification"`)

	payload, err = json.Marshal(NewReadStateEvent("abc"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"read_state","notificationId":"abc","is_read":true}`, string(payload))
}

func TestReadReceiptUnmarshal(t *testing.T) {
	var receipt ReadReceipt
	require.NoError(t, json.Unmarshal([]byte(`{"notificationId":"662a1b2c3d4e5f6a7b8c9d0e"}`), &receipt))
	assert.Equal(t, "662a1b2c3d4e5f6a7b8c9d0e", receipt.NotificationID)
}
