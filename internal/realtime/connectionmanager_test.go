/*
File: internal/realtime/connectionmanager_test.go
Description: Exercises the WebSocket lifecycle end to end with a real
dialer: connect, catch-up push, inbound read receipt, disconnect.
*/
package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/anandupg/Lyvo-Backend1-sub001/internal/middleware"
	"github.com/anandupg/Lyvo-Backend1-sub001/pkg/notify"
)

// --- Mocks ---

type mockRouter struct {
	mock.Mock
}

func (m *mockRouter) Reconcile(ctx context.Context, id notify.Identity, conn notify.Sender) error {
	args := m.Called(ctx, id, conn)
	return args.Error(0)
}

func (m *mockRouter) MarkRead(ctx context.Context, notificationID string, id notify.Identity, originConnID string) (*notify.Notification, error) {
	args := m.Called(ctx, notificationID, id, originConnID)
	var n *notify.Notification
	if v, ok := args.Get(0).(*notify.Notification); ok {
		n = v
	}
	return n, args.Error(1)
}

type mockPresence struct {
	mock.Mock
}

func (m *mockPresence) Set(ctx context.Context, id notify.Identity, info notify.ConnectionInfo) error {
	args := m.Called(ctx, id, info)
	return args.Error(0)
}

func (m *mockPresence) Delete(ctx context.Context, id notify.Identity) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *mockPresence) Close() error {
	args := m.Called()
	return args.Error(0)
}

// testFixture holds all the components for a test.
type testFixture struct {
	cm       *ConnectionManager
	router   *mockRouter
	presence *mockPresence
	wsServer *httptest.Server
	identity notify.Identity
}

func setup(t *testing.T) *testFixture {
	return setupWithOrigins(t, nil)
}

func setupWithOrigins(t *testing.T, allowedOrigins []string) *testFixture {
	t.Helper()
	logger := zerolog.Nop()
	identity := notify.Identity("507f1f77bcf86cd799439011")

	router := new(mockRouter)
	presence := new(mockPresence)

	cm, err := NewConnectionManager(
		"0",
		allowedOrigins,
		middleware.NoopAuth(true, identity.String()),
		NewRegistry(logger),
		router,
		presence,
		logger,
	)
	require.NoError(t, err, "NewConnectionManager failed")

	wsServer := httptest.NewServer(cm.server.Handler)
	t.Cleanup(wsServer.Close)

	return &testFixture{
		cm:       cm,
		router:   router,
		presence: presence,
		wsServer: wsServer,
		identity: identity,
	}
}

// connectClient dials the test server and waits for the bind to land.
func (fx *testFixture) connectClient(t *testing.T) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(fx.wsServer.URL, "http") + "/ws/connect"

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err, "Failed to dial test WebSocket server")
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return fx.cm.registry.ConnectionCount(fx.identity) == 1
	}, 2*time.Second, 10*time.Millisecond, "Connection was not bound")

	return conn
}

func TestConnectionManager_ConnectDeliversCatchup(t *testing.T) {
	fx := setup(t)

	catchup := []*notify.Notification{
		{ID: "662a1b2c3d4e5f6a7b8c9d0e", RecipientID: fx.identity, Title: "Booking confirmed"},
	}

	fx.presence.On("Set", mock.Anything, fx.identity, mock.AnythingOfType("notify.ConnectionInfo")).Return(nil).Once()
	fx.presence.On("Delete", mock.Anything, fx.identity).Return(nil).Maybe()
	fx.router.On("Reconcile", mock.Anything, fx.identity, mock.Anything).
		Return(nil).
		Run(func(args mock.Arguments) {
			sender := args.Get(2).(notify.Sender)
			assert.True(t, sender.Send(notify.NewCatchupEvent(catchup)))
		}).
		Once()

	conn := fx.connectClient(t)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, payload, err := conn.ReadMessage()
	require.NoError(t, err)

	var event notify.CatchupEvent
	require.NoError(t, json.Unmarshal(payload, &event))
	assert.Equal(t, notify.KindCatchup, event.Kind)
	require.Len(t, event.Notifications, 1)
	assert.Equal(t, "662a1b2c3d4e5f6a7b8c9d0e", event.Notifications[0].ID)

	fx.router.AssertExpectations(t)
	fx.presence.AssertExpectations(t)
}

func TestConnectionManager_InboundReadReceipt(t *testing.T) {
	fx := setup(t)

	fx.presence.On("Set", mock.Anything, fx.identity, mock.Anything).Return(nil)
	fx.presence.On("Delete", mock.Anything, fx.identity).Return(nil).Maybe()
	fx.router.On("Reconcile", mock.Anything, fx.identity, mock.Anything).Return(nil)

	markedRead := make(chan string, 1)
	fx.router.On("MarkRead", mock.Anything, "662a1b2c3d4e5f6a7b8c9d0e", fx.identity, mock.AnythingOfType("string")).
		Return(&notify.Notification{ID: "662a1b2c3d4e5f6a7b8c9d0e", IsRead: true}, nil).
		Run(func(args mock.Arguments) {
			markedRead <- args.String(3)
		}).
		Once()

	conn := fx.connectClient(t)

	receipt, err := json.Marshal(notify.ReadReceipt{NotificationID: "662a1b2c3d4e5f6a7b8c9d0e"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, receipt))

	select {
	case originConnID := <-markedRead:
		assert.NotEmpty(t, originConnID, "read receipt must carry the origin connection id")
	case <-time.After(2 * time.Second):
		t.Fatal("Test timed out waiting for the read receipt to reach the router")
	}
	fx.router.AssertExpectations(t)
}

func TestConnectionManager_MalformedInboundFramesAreIgnored(t *testing.T) {
	fx := setup(t)

	fx.presence.On("Set", mock.Anything, fx.identity, mock.Anything).Return(nil)
	fx.presence.On("Delete", mock.Anything, fx.identity).Return(nil)
	fx.router.On("Reconcile", mock.Anything, fx.identity, mock.Anything).Return(nil)

	conn := fx.connectClient(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("not json")))
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(`{"notificationId":""}`)))

	// The connection must survive garbage input.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, fx.cm.registry.ConnectionCount(fx.identity))
	fx.router.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestConnectionManager_OriginPolicy(t *testing.T) {
	fx := setupWithOrigins(t, []string{"https://app.example.com"})

	fx.presence.On("Set", mock.Anything, fx.identity, mock.Anything).Return(nil).Maybe()
	fx.presence.On("Delete", mock.Anything, fx.identity).Return(nil).Maybe()
	fx.router.On("Reconcile", mock.Anything, fx.identity, mock.Anything).Return(nil).Maybe()

	wsURL := "ws" + strings.TrimPrefix(fx.wsServer.URL, "http") + "/ws/connect"

	t.Run("unlisted browser origin is rejected", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://evil.example.com"}}
		_, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("allowlisted origin connects", func(t *testing.T) {
		header := http.Header{"Origin": []string{"https://app.example.com"}}
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
	})

	t.Run("no origin header connects", func(t *testing.T) {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = conn.Close() })
	})
}

func TestCheckOrigin(t *testing.T) {
	newRequest := func(origin, host string) *http.Request {
		req := httptest.NewRequest(http.MethodGet, "/ws/connect", nil)
		req.Host = host
		if origin != "" {
			req.Header.Set("Origin", origin)
		}
		return req
	}

	t.Run("same host passes without an allowlist", func(t *testing.T) {
		check := checkOrigin(nil)
		assert.True(t, check(newRequest("https://lyvo.in", "lyvo.in")))
		assert.False(t, check(newRequest("https://evil.example.com", "lyvo.in")))
	})

	t.Run("allowlist comparison is case-insensitive", func(t *testing.T) {
		check := checkOrigin([]string{"https://App.Example.COM"})
		assert.True(t, check(newRequest("https://app.example.com", "lyvo.in")))
	})

	t.Run("wildcard disables the check", func(t *testing.T) {
		check := checkOrigin([]string{"*"})
		assert.True(t, check(newRequest("https://anywhere.example.com", "lyvo.in")))
	})
}

func TestConnectionManager_DisconnectUnbindsAndClearsPresence(t *testing.T) {
	fx := setup(t)

	fx.presence.On("Set", mock.Anything, fx.identity, mock.Anything).Return(nil).Once()
	fx.router.On("Reconcile", mock.Anything, fx.identity, mock.Anything).Return(nil).Once()

	presenceCleared := make(chan struct{})
	fx.presence.On("Delete", mock.Anything, fx.identity).
		Return(nil).
		Run(func(mock.Arguments) { close(presenceCleared) }).
		Once()

	conn := fx.connectClient(t)
	require.NoError(t, conn.Close())

	select {
	case <-presenceCleared:
	case <-time.After(5 * time.Second):
		t.Fatal("Test timed out waiting for disconnect to be processed")
	}

	assert.Equal(t, 0, fx.cm.registry.ConnectionCount(fx.identity))
	fx.presence.AssertExpectations(t)
}
