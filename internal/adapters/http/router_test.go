package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dkeye/voxengine/internal/app"
	"github.com/dkeye/voxengine/internal/app/orch"
	"github.com/dkeye/voxengine/internal/config"
	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/scenario"
)

const testSecret = "s3cret"

func init() {
	gin.SetMode(gin.TestMode)
}

func testConfig() *config.Config {
	return &config.Config{
		Mode:      "release",
		Auth:      config.AuthConfig{Secret: testSecret, CookieSecret: "cookie"},
		RateLimit: config.RateLimitConfig{Triggers: 100, Interval: time.Minute},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) (*gin.Engine, *orch.Orchestrator) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	o := orch.New(ctx, app.NewRegistry(app.SimplePolicy{MaxDropped: 16}), scenario.Builtin(), core.NopSignaling{}, orch.Settings{
		MailboxSize:     16,
		DefaultScenario: "callback",
		ObserverBuffer:  16,
	})
	t.Cleanup(func() {
		sctx, scancel := context.WithTimeout(context.Background(), time.Second)
		defer scancel()
		_ = o.Shutdown(sctx)
		cancel()
	})
	return SetupRouter(ctx, cfg, o, nil), o
}

func token(t *testing.T) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "ops"}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

type client struct {
	t       *testing.T
	r       http.Handler
	token   string
	cookies []*http.Cookie
}

func (c *client) do(method, path, body string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for _, ck := range c.cookies {
		req.AddCookie(ck)
	}
	w := httptest.NewRecorder()
	c.r.ServeHTTP(w, req)
	for _, ck := range w.Result().Cookies() {
		c.keep(ck)
	}
	return w
}

func (c *client) keep(ck *http.Cookie) {
	for i, old := range c.cookies {
		if old.Name == ck.Name {
			c.cookies[i] = ck
			return
		}
	}
	c.cookies = append(c.cookies, ck)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

const callbackBody = `{"scenario":"callback","params":{"to":"+15551234567","text":"hello"}}`

func TestHealthNeedsNoToken(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	c := &client{t: t, r: r}

	w := c.do(http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestAPIRejectsMissingOrForeignToken(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())

	w := (&client{t: t, r: r}).do(http.MethodGet, "/api/sessions", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	foreign, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString([]byte("other"))
	require.NoError(t, err)
	w = (&client{t: t, r: r, token: foreign}).do(http.MethodGet, "/api/sessions", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = (&client{t: t, r: r, token: token(t)}).do(http.MethodGet, "/api/sessions", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestTokenFromQuery(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	c := &client{t: t, r: r}

	w := c.do(http.MethodGet, "/api/sessions?access_token="+token(t), "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSessionLifecycle(t *testing.T) {
	r, o := newTestRouter(t, testConfig())
	c := &client{t: t, r: r, token: token(t)}

	w := c.do(http.MethodPost, "/api/sessions", callbackBody)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sid := decode(t, w)["session"].(string)
	require.NotEmpty(t, sid)
	assert.Len(t, o.List(), 1)

	w = c.do(http.MethodGet, "/api/sessions/"+sid, "")
	require.Equal(t, http.StatusOK, w.Code)
	snap := decode(t, w)
	assert.Equal(t, sid, snap["id"])
	assert.Len(t, snap["calls"], 1)

	w = c.do(http.MethodPut, "/api/sessions/current/custom-data", `{"data":"ticket-42"}`)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = c.do(http.MethodGet, "/api/sessions/current", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ticket-42", decode(t, w)["custom_data"])

	w = c.do(http.MethodDelete, "/api/sessions/"+sid, "")
	assert.Equal(t, http.StatusNoContent, w.Code)

	require.Eventually(t, func() bool {
		return c.do(http.MethodGet, "/api/sessions/"+sid, "").Code == http.StatusNotFound
	}, time.Second, 10*time.Millisecond)
}

func TestUnknownScenarioIsBadRequest(t *testing.T) {
	r, o := newTestRouter(t, testConfig())
	c := &client{t: t, r: r, token: token(t)}

	w := c.do(http.MethodPost, "/api/sessions", `{"scenario":"nope"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "ValidationError", decode(t, w)["kind"])
	assert.Empty(t, o.List())
}

func TestInvalidCustomDataIsBadRequest(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	c := &client{t: t, r: r, token: token(t)}

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/sessions", callbackBody).Code)
	big := strings.Repeat("x", 300)
	w := c.do(http.MethodPut, "/api/sessions/current/custom-data", `{"data":"`+big+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOversizedTriggerBody(t *testing.T) {
	r, o := newTestRouter(t, testConfig())
	c := &client{t: t, r: r, token: token(t)}

	body := `{"scenario":"callback","params":{"to":"+15551234567","text":"` + strings.Repeat("x", maxBodyBytes) + `"}}`
	w := c.do(http.MethodPost, "/api/sessions", body)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Empty(t, o.List())

	w = c.do(http.MethodPost, "/api/alerts", `{"from":"+15550000001","to":"`+strings.Repeat("9", maxBodyBytes)+`"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, o.List())
}

func TestCurrentWithoutSession(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	c := &client{t: t, r: r, token: token(t)}

	w := c.do(http.MethodGet, "/api/sessions/current", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAlertStartsInboundSession(t *testing.T) {
	r, o := newTestRouter(t, testConfig())
	c := &client{t: t, r: r, token: token(t)}

	w := c.do(http.MethodPost, "/api/alerts", `{"scenario":"forward-pstn","from":"+15550000001","to":"+15550000002","params":{"to":"+15550000003"}}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	sid := body["session"].(string)
	assert.NotEmpty(t, body["call"])

	w = c.do(http.MethodGet, "/api/sessions/"+sid, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["calls"], 2)

	w = c.do(http.MethodPost, "/api/alerts", `{"from":"+15550000001"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Len(t, o.List(), 1)
}

func TestNotificationRouting(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	c := &client{t: t, r: r, token: token(t)}

	require.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/sessions", callbackBody).Code)

	w := c.do(http.MethodPost, "/api/sessions/current/notifications", `{"type":"answered","call":"missing"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = c.do(http.MethodPost, "/api/sessions/current/notifications", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = c.do(http.MethodPost, "/api/sessions/nope/notifications", `{"type":"answered"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimitOnTriggers(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit.Triggers = 2
	r, _ := newTestRouter(t, cfg)
	c := &client{t: t, r: r, token: token(t)}

	assert.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/sessions", callbackBody).Code)
	assert.Equal(t, http.StatusCreated, c.do(http.MethodPost, "/api/sessions", callbackBody).Code)
	assert.Equal(t, http.StatusTooManyRequests, c.do(http.MethodPost, "/api/sessions", callbackBody).Code)
	assert.Equal(t, http.StatusOK, c.do(http.MethodGet, "/api/sessions", "").Code)
}

func TestEventStreamEndsWithSession(t *testing.T) {
	r, _ := newTestRouter(t, testConfig())
	srv := httptest.NewServer(r)
	defer srv.Close()
	c := &client{t: t, r: r, token: token(t)}

	w := c.do(http.MethodPost, "/api/sessions", callbackBody)
	require.Equal(t, http.StatusCreated, w.Code)
	sid := decode(t, w)["session"].(string)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/sessions/" + sid + "/events?access_token=" + c.token
	ws, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer ws.Close()

	require.Equal(t, http.StatusNoContent, c.do(http.MethodDelete, "/api/sessions/"+sid, "").Code)

	var events []string
	_ = ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	for {
		var rec app.Record
		if err := ws.ReadJSON(&rec); err != nil {
			break
		}
		assert.Equal(t, sid, string(rec.Session))
		events = append(events, rec.Event)
	}
	assert.Equal(t, []string{"AppEvents.Terminating", "AppEvents.Terminated"}, events)
}
