// Package signal is the websocket link to the external signaling/media
// layer. The controller's requests go out as JSON commands; the gateway's
// reports come back as notifications or inbound-call alerts.
package signal

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/dkeye/voxengine/internal/app/orch"
	"github.com/dkeye/voxengine/internal/config"
	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/domain"
)

var ErrNoGateway = errors.New("no media gateway connected")

// Host is what the gateway needs from the orchestrator.
type Host interface {
	Notify(ctx context.Context, sid domain.SessionID, n core.Notification) error
	StartInbound(ctx context.Context, scenario string, trig orch.AlertTrigger) (domain.SessionID, domain.CallID, error)
}

// Gateway implements core.Signaling over websocket connections from media
// gateways. Commands go to the most recently connected gateway.
type Gateway struct {
	Host Host

	cfg    config.SignalConfig
	schema *jsonschema.Schema

	mu     sync.RWMutex
	conns  map[uint64]*wsConn
	nextID uint64
	latest uint64
}

func NewGateway(cfg config.SignalConfig) (*Gateway, error) {
	schema, err := compileInbound()
	if err != nil {
		return nil, err
	}
	if cfg.SendBuffer <= 0 {
		cfg.SendBuffer = 64
	}
	if cfg.PingPeriod <= 0 {
		cfg.PingPeriod = 54 * time.Second
	}
	return &Gateway{
		cfg:    cfg,
		schema: schema,
		conns:  make(map[uint64]*wsConn),
	}, nil
}

// Connected reports how many gateways are attached.
func (g *Gateway) Connected() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.conns)
}

func (g *Gateway) Dial(req core.DialRequest) error    { return g.push("dial", req) }
func (g *Gateway) Command(cmd core.CallCommand) error { return g.push(string(cmd.Op), cmd) }
func (g *Gateway) Route(rc core.RouteChange) error    { return g.push("route", rc) }
func (g *Gateway) Unit(cmd core.UnitCommand) error    { return g.push("unit", cmd) }

type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// push never blocks: it is called from session threads.
func (g *Gateway) push(typ string, payload any) error {
	g.mu.RLock()
	c, ok := g.conns[g.latest]
	g.mu.RUnlock()
	if !ok {
		return ErrNoGateway
	}
	b, err := json.Marshal(envelope{Type: typ, Payload: payload})
	if err != nil {
		return err
	}
	return c.TrySend(b)
}

func (g *Gateway) sendJSON(c *wsConn, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("sendJSON marshal")
		return
	}
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Uint64("conn", c.id).Msg("sendJSON dropped")
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the request and serves the gateway until it disconnects
// or ctx is cancelled.
func (g *Gateway) Handle(ctx context.Context, c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}
	conn := &wsConn{
		conn: ws,
		send: make(chan []byte, g.cfg.SendBuffer),
	}
	g.attach(conn)
	log.Info().Str("module", "signal").Uint64("conn", conn.id).Str("remote", c.Request.RemoteAddr).Msg("gateway connected")

	ctx, cancel := context.WithCancel(ctx)
	go g.writePump(ctx, conn)
	go func() {
		defer cancel()
		g.readPump(ctx, conn)
		g.detach(conn)
	}()
}

func (g *Gateway) attach(c *wsConn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.nextID++
	c.id = g.nextID
	g.conns[c.id] = c
	g.latest = c.id
}

func (g *Gateway) detach(c *wsConn) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.conns, c.id)
	if g.latest == c.id {
		g.latest = 0
		for id := range g.conns {
			if id > g.latest {
				g.latest = id
			}
		}
	}
	log.Info().Str("module", "signal").Uint64("conn", c.id).Msg("gateway disconnected")
}
