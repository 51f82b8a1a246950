package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dkeye/voxengine/internal/app/orch"
	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/domain"
)

const hostTimeout = 5 * time.Second

// message is the flat shape of every inbound frame.
type message struct {
	Type    string           `json:"type"`
	Session domain.SessionID `json:"session"`
	core.Notification

	Scenario    string            `json:"scenario"`
	Params      map[string]string `json:"params"`
	From        string            `json:"from"`
	To          string            `json:"to"`
	DisplayName string            `json:"display_name"`
}

func (g *Gateway) handleMessage(ctx context.Context, c *wsConn, data []byte) {
	if err := validate(g.schema, data); err != nil {
		log.Warn().Err(err).Str("module", "signal").Uint64("conn", c.id).Msg("invalid message")
		g.sendJSON(c, map[string]any{"type": "error", "error": "bad_payload", "detail": err.Error()})
		return
	}
	var m message
	if err := json.Unmarshal(data, &m); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}

	switch m.Type {
	case "ping":
		g.handlePing(c)
	case "alert":
		g.handleAlert(ctx, c, m)
	default:
		g.handleNotification(ctx, c, m)
	}
}

func (g *Gateway) handlePing(c *wsConn) {
	g.sendJSON(c, map[string]string{"type": "pong"})
}

func (g *Gateway) handleAlert(ctx context.Context, c *wsConn, m message) {
	if g.Host == nil {
		g.sendJSON(c, map[string]any{"type": "error", "error": "not_ready"})
		return
	}
	ctx, cancel := context.WithTimeout(ctx, hostTimeout)
	defer cancel()
	sid, callID, err := g.Host.StartInbound(ctx, m.Scenario, orch.AlertTrigger{
		CallID:      m.Call,
		From:        m.From,
		To:          m.To,
		DisplayName: m.DisplayName,
		Headers:     m.Headers,
		Params:      m.Params,
	})
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("to", m.To).Msg("alert rejected")
		g.sendJSON(c, map[string]any{"type": "error", "error": "alert_rejected", "detail": err.Error(), "call": m.Call})
		return
	}
	log.Info().Str("module", "signal").Str("session", string(sid)).Str("call", string(callID)).Msg("alert accepted")
	g.sendJSON(c, map[string]any{"type": "alert_accepted", "session": sid, "call": callID})
}

func (g *Gateway) handleNotification(ctx context.Context, c *wsConn, m message) {
	if g.Host == nil {
		return
	}
	n := m.Notification
	n.Type = core.NotificationType(m.Type)
	ctx, cancel := context.WithTimeout(ctx, hostTimeout)
	defer cancel()
	if err := g.Host.Notify(ctx, m.Session, n); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("session", string(m.Session)).Str("type", m.Type).Msg("notification not applied")
		g.sendJSON(c, map[string]any{"type": "error", "error": "notify_failed", "detail": err.Error(), "session": m.Session})
	}
}
