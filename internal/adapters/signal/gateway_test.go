package signal

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voxengine/internal/app/orch"
	"github.com/dkeye/voxengine/internal/config"
	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/domain"
)

type fakeHost struct {
	mu      sync.Mutex
	notes   []core.Notification
	alerts  []orch.AlertTrigger
	failing error
}

func (h *fakeHost) Notify(_ context.Context, sid domain.SessionID, n core.Notification) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failing != nil {
		return h.failing
	}
	h.notes = append(h.notes, n)
	return nil
}

func (h *fakeHost) StartInbound(_ context.Context, _ string, trig orch.AlertTrigger) (domain.SessionID, domain.CallID, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.failing != nil {
		return "", "", h.failing
	}
	h.alerts = append(h.alerts, trig)
	return "s-1", "c-1", nil
}

func (h *fakeHost) notifications() []core.Notification {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]core.Notification(nil), h.notes...)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestGateway(t *testing.T) (*Gateway, *fakeHost, string) {
	t.Helper()
	gw, err := NewGateway(config.SignalConfig{ReadLimit: 32768, PingPeriod: time.Second, SendBuffer: 8})
	require.NoError(t, err)
	host := &fakeHost{}
	gw.Host = host

	ctx, cancel := context.WithCancel(context.Background())
	r := gin.New()
	r.GET("/ws", func(c *gin.Context) { gw.Handle(ctx, c) })
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		cancel()
		srv.Close()
	})
	return gw, host, "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, gw *Gateway, url string, want int) *websocket.Conn {
	t.Helper()
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = ws.Close() })
	require.Eventually(t, func() bool { return gw.Connected() == want }, time.Second, 5*time.Millisecond)
	return ws
}

func readFrame(t *testing.T, ws *websocket.Conn) map[string]any {
	t.Helper()
	_ = ws.SetReadDeadline(time.Now().Add(time.Second))
	_, data, err := ws.ReadMessage()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	return out
}

func TestPingPong(t *testing.T) {
	gw, _, url := newTestGateway(t)
	ws := dial(t, gw, url, 1)

	require.NoError(t, ws.WriteJSON(map[string]string{"type": "ping"}))
	assert.Equal(t, "pong", readFrame(t, ws)["type"])
}

func TestInvalidMessagesAreRejected(t *testing.T) {
	gw, host, url := newTestGateway(t)
	ws := dial(t, gw, url, 1)

	for _, raw := range []string{
		`{"type":"bogus"}`,
		`{"type":"answered","session":"s-1"}`,
		`{"type":"failed","session":"s-1","call":"c-1"}`,
		`{"type":"tone","session":"s-1","call":"c-1","tone":"x"}`,
		`not json`,
	} {
		require.NoError(t, ws.WriteMessage(websocket.TextMessage, []byte(raw)))
		frame := readFrame(t, ws)
		assert.Equal(t, "error", frame["type"], raw)
		assert.Equal(t, "bad_payload", frame["error"], raw)
	}
	assert.Empty(t, host.notifications())
}

func TestNotificationsReachHost(t *testing.T) {
	gw, host, url := newTestGateway(t)
	ws := dial(t, gw, url, 1)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "failed", "session": "s-1", "call": "c-1", "code": 486, "reason": "Busy Here"}))
	require.Eventually(t, func() bool { return len(host.notifications()) == 1 }, time.Second, 5*time.Millisecond)

	n := host.notifications()[0]
	assert.Equal(t, core.NotifyFailed, n.Type)
	assert.Equal(t, domain.CallID("c-1"), n.Call)
	assert.Equal(t, 486, n.Code)
	assert.Equal(t, "Busy Here", n.Reason)
}

func TestUnitDropReachesHost(t *testing.T) {
	gw, host, url := newTestGateway(t)
	ws := dial(t, gw, url, 1)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "disconnected", "session": "s-1", "unit": "u-1"}))
	require.NoError(t, ws.WriteJSON(map[string]any{"type": "failed", "session": "s-1", "unit": "u-2", "code": 500}))
	require.Eventually(t, func() bool { return len(host.notifications()) == 2 }, time.Second, 5*time.Millisecond)

	notes := host.notifications()
	assert.Equal(t, core.NotifyDisconnected, notes[0].Type)
	assert.Equal(t, domain.UnitID("u-1"), notes[0].Unit)
	assert.Empty(t, notes[0].Call)
	assert.Equal(t, core.NotifyFailed, notes[1].Type)
	assert.Equal(t, domain.UnitID("u-2"), notes[1].Unit)
	assert.Equal(t, 500, notes[1].Code)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "disconnected", "session": "s-1"}))
	assert.Equal(t, "bad_payload", readFrame(t, ws)["error"])
	assert.Len(t, host.notifications(), 2)
}

func TestRejectedNotificationIsReported(t *testing.T) {
	gw, host, url := newTestGateway(t)
	host.failing = domain.NewError(domain.KindInvalidTarget, "notify", "unknown call")
	ws := dial(t, gw, url, 1)

	require.NoError(t, ws.WriteJSON(map[string]any{"type": "answered", "session": "s-1", "call": "c-9"}))
	frame := readFrame(t, ws)
	assert.Equal(t, "notify_failed", frame["error"])
	assert.Equal(t, "s-1", frame["session"])
}

func TestAlertStartsSession(t *testing.T) {
	gw, host, url := newTestGateway(t)
	ws := dial(t, gw, url, 1)

	require.NoError(t, ws.WriteJSON(map[string]any{
		"type": "alert", "call": "c-1", "from": "+15550000001", "to": "+15550000002",
		"scenario": "forward-pstn", "params": map[string]string{"to": "+15550000003"},
	}))
	frame := readFrame(t, ws)
	assert.Equal(t, "alert_accepted", frame["type"])
	assert.Equal(t, "s-1", frame["session"])
	assert.Equal(t, "c-1", frame["call"])

	host.mu.Lock()
	defer host.mu.Unlock()
	require.Len(t, host.alerts, 1)
	assert.Equal(t, "+15550000002", host.alerts[0].To)
	assert.Equal(t, "+15550000003", host.alerts[0].Params["to"])
}

func TestCommandsNeedAGateway(t *testing.T) {
	gw, _, _ := newTestGateway(t)

	assert.ErrorIs(t, gw.Dial(core.DialRequest{Call: "c-1", To: "+15550000001"}), ErrNoGateway)
	assert.ErrorIs(t, gw.Command(core.CallCommand{Call: "c-1", Op: core.OpHangup}), ErrNoGateway)
}

func TestCommandsGoToLatestGateway(t *testing.T) {
	gw, _, url := newTestGateway(t)
	first := dial(t, gw, url, 1)
	second := dial(t, gw, url, 2)

	require.NoError(t, gw.Dial(core.DialRequest{Session: "s-1", Call: "c-1", Kind: domain.CallKindPSTN, To: "+15550000001"}))
	frame := readFrame(t, second)
	assert.Equal(t, "dial", frame["type"])
	payload := frame["payload"].(map[string]any)
	assert.Equal(t, "c-1", payload["call"])
	assert.Equal(t, "+15550000001", payload["to"])

	require.NoError(t, second.Close())
	require.Eventually(t, func() bool { return gw.Connected() == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, gw.Command(core.CallCommand{Session: "s-1", Call: "c-1", Op: core.OpHangup}))
	assert.Equal(t, "hangup", readFrame(t, first)["type"])
}
