package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/dkeye/voxengine/internal/app/orch"
	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/domain"
)

const (
	requestTimeout = 5 * time.Second
	currentKey     = "current_session"
	maxBodyBytes   = 64 << 10
)

type handlers struct {
	orch *orch.Orchestrator
}

func (h *handlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": len(h.orch.List())})
}

type startRequest struct {
	Scenario string            `json:"scenario"`
	Params   map[string]string `json:"params"`
}

func flatten(hdr http.Header) map[string]string {
	out := make(map[string]string, len(hdr))
	for k := range hdr {
		out[k] = hdr.Get(k)
	}
	return out
}

func remember(c *gin.Context, sid domain.SessionID) {
	sess := sessions.Default(c)
	sess.Set(currentKey, string(sid))
	if err := sess.Save(); err != nil {
		log.Warn().Err(err).Str("module", "adapters.http").Msg("cookie session save")
	}
}

// sessionID resolves :id, where "current" is the last session this client started.
func sessionID(c *gin.Context) (domain.SessionID, bool) {
	id := c.Param("id")
	if id != "current" {
		return domain.SessionID(id), true
	}
	cur, _ := sessions.Default(c).Get(currentKey).(string)
	if cur == "" {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no current session"})
		return "", false
	}
	return domain.SessionID(cur), true
}

func timeout(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func (h *handlers) startSession(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"error": "body too large"})
			return
		}
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}
	var req startRequest
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &req); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
			return
		}
	}
	ctx, cancel := timeout(c)
	defer cancel()
	sid, err := h.orch.StartHTTP(ctx, req.Scenario, orch.HTTPTrigger{
		Method:  c.Request.Method,
		Path:    c.Request.URL.Path,
		Headers: flatten(c.Request.Header),
		Body:    string(raw),
		Params:  req.Params,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	remember(c, sid)
	log.Info().Str("module", "adapters.http").Str("session", string(sid)).Str("scenario", req.Scenario).Msg("session started")
	c.JSON(http.StatusCreated, gin.H{"session": sid})
}

type alertRequest struct {
	Scenario    string            `json:"scenario"`
	CallID      domain.CallID     `json:"call_id"`
	From        string            `json:"from" binding:"required"`
	To          string            `json:"to" binding:"required"`
	DisplayName string            `json:"display_name"`
	Headers     map[string]string `json:"headers"`
	Params      map[string]string `json:"params"`
}

func (h *handlers) startAlert(c *gin.Context) {
	var req alertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad_payload", "detail": err.Error()})
		return
	}
	ctx, cancel := timeout(c)
	defer cancel()
	sid, callID, err := h.orch.StartInbound(ctx, req.Scenario, orch.AlertTrigger{
		CallID:      req.CallID,
		From:        req.From,
		To:          req.To,
		DisplayName: req.DisplayName,
		Headers:     req.Headers,
		Params:      req.Params,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	remember(c, sid)
	c.JSON(http.StatusCreated, gin.H{"session": sid, "call": callID})
}

func (h *handlers) listSessions(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"sessions": h.orch.List()})
}

func (h *handlers) getSession(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	ctx, cancel := timeout(c)
	defer cancel()
	snap, err := h.orch.Snapshot(ctx, sid)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (h *handlers) terminateSession(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.orch.Terminate(ctx, sid); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type customDataRequest struct {
	Data string `json:"data"`
}

func (h *handlers) setCustomData(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var req customDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.orch.SetCustomData(ctx, sid, req.Data); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handlers) notify(c *gin.Context) {
	sid, ok := sessionID(c)
	if !ok {
		return
	}
	var n core.Notification
	if err := c.ShouldBindJSON(&n); err != nil || n.Type == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "bad_payload"})
		return
	}
	ctx, cancel := timeout(c)
	defer cancel()
	if err := h.orch.Notify(ctx, sid, n); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusAccepted)
}
