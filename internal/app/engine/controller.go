package engine

import (
	"fmt"
	"strings"

	"github.com/emiago/sipgo/sip"
	"github.com/nyaruka/phonenumbers"

	"github.com/dkeye/voxengine/internal/core"
	"github.com/dkeye/voxengine/internal/domain"
)

// CallOptions are shared by every outbound call factory.
type CallOptions struct {
	CallerID    string
	DisplayName string
	Headers     map[string]string
	Video       bool
}

// CallPSTN dials a phone number in E.164 form. The leading + may be omitted.
func (s *Session) CallPSTN(number string, opts CallOptions) (*Call, error) {
	to, err := normalizeE164(number)
	if err != nil {
		return nil, domain.WrapError(domain.KindValidation, "callPSTN", err)
	}
	return s.dial("callPSTN", callSpec{kind: domain.CallKindPSTN, to: to}, opts, "")
}

// normalizeE164 rejects unknown country codes and lengths no number in that
// country can have.
func normalizeE164(raw string) (string, error) {
	if !strings.HasPrefix(raw, "+") {
		raw = "+" + raw
	}
	num, err := phonenumbers.Parse(raw, "")
	if err != nil {
		return "", fmt.Errorf("%q is not an E.164 number: %w", raw, err)
	}
	if reason := phonenumbers.IsPossibleNumberWithReason(num); reason != phonenumbers.IS_POSSIBLE {
		return "", fmt.Errorf("%q cannot be a phone number (reason %d)", raw, reason)
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}

// CallSIP dials a SIP URI such as sip:alice@example.com.
func (s *Session) CallSIP(uri string, opts CallOptions) (*Call, error) {
	to, err := normalizeSIP(uri)
	if err != nil {
		return nil, domain.WrapError(domain.KindValidation, "callSIP", err)
	}
	return s.dial("callSIP", callSpec{kind: domain.CallKindSIP, to: to}, opts, "")
}

func normalizeSIP(raw string) (string, error) {
	if !strings.HasPrefix(raw, "sip:") && !strings.HasPrefix(raw, "sips:") {
		raw = "sip:" + raw
	}
	var uri sip.Uri
	if err := sip.ParseUri(raw, &uri); err != nil {
		return "", err
	}
	if uri.Host == "" {
		return "", domain.NewError(domain.KindValidation, "callSIP", "uri %q has no host", raw)
	}
	return uri.String(), nil
}

// CallUser dials a registered application user.
func (s *Session) CallUser(username string, opts CallOptions) (*Call, error) {
	if username == "" {
		return nil, domain.NewError(domain.KindValidation, "callUser", "empty username")
	}
	return s.dial("callUser", callSpec{kind: domain.CallKindUser, to: username}, opts, "")
}

// CallUserDirect dials a user in P2P mode bridged with the inbound call
// peer. Both calls latch P2P: media never passes through the session, so
// routes already touching peer are dropped.
func (s *Session) CallUserDirect(peer *Call, username string, opts CallOptions) (*Call, error) {
	const op = "callUserDirect"
	if username == "" {
		return nil, domain.NewError(domain.KindValidation, op, "empty username")
	}
	if peer == nil || peer.s != s {
		return nil, domain.NewError(domain.KindInvalidTarget, op, "peer must be a call of this session")
	}
	if peer.dir != domain.Inbound || peer.state != domain.CallAlerting {
		return nil, domain.NewError(domain.KindInvalidState, op, "peer %s must be an alerting inbound call", peer.id)
	}
	if err := s.requireActive(op); err != nil {
		return nil, err
	}
	peer.p2p = true
	for _, rt := range s.router.Prune(peer.unitID) {
		s.notifyRoute(rt.Source, rt.Target, false)
	}
	return s.dial(op, callSpec{kind: domain.CallKindUserDirect, to: username, p2p: true}, opts, peer.id)
}

// CallConference joins a conference hosted by the platform by name.
func (s *Session) CallConference(name string, opts CallOptions) (*Call, error) {
	if name == "" {
		return nil, domain.NewError(domain.KindValidation, "callConference", "empty conference name")
	}
	return s.dial("callConference", callSpec{kind: domain.CallKindConference, to: name}, opts, "")
}

// dial creates an outbound call in Alerting, arms its setup deadline and
// hands the request to signaling. A request signaling refuses fails the
// call with 503 after the current step.
func (s *Session) dial(op string, spec callSpec, opts CallOptions, peer domain.CallID) (*Call, error) {
	if err := s.requireActive(op); err != nil {
		return nil, err
	}
	spec.dir = domain.Outbound
	spec.callerID = opts.CallerID
	spec.displayName = opts.DisplayName
	spec.headers = opts.Headers
	spec.video = opts.Video
	c := s.newCall(spec)
	c.armDeadline()
	err := s.signaling.Dial(core.DialRequest{
		Session:     s.id,
		Call:        c.id,
		Kind:        c.kind,
		To:          c.to,
		CallerID:    c.callerID,
		DisplayName: c.displayName,
		Headers:     c.headers,
		Video:       c.video,
		P2P:         c.p2p,
		Peer:        peer,
	})
	if err != nil {
		c.log.Warn().Err(err).Str("module", "engine.call").Msg("dial not delivered")
		s.later(func() { c.fail(domain.CodeSignalingDown, "Service Unavailable", err) })
	}
	return c, nil
}

// HandleNotification applies one report from the signaling layer. It must
// run on the session thread; hosts reach it through Post or Exec.
func (s *Session) HandleNotification(n core.Notification) error {
	const op = "notify"
	if s.state != domain.SessionRunning {
		return domain.NewError(domain.KindInvalidState, op, "session is %s", s.state)
	}
	switch {
	case n.Type == core.NotifyEndpointLeft:
		conf, ok := s.conferences.get(n.Conference)
		if !ok {
			return domain.NewError(domain.KindInvalidTarget, op, "unknown conference %s", n.Conference)
		}
		e, err := conf.Get(n.Endpoint)
		if err != nil {
			return err
		}
		reason := n.Reason
		if reason == "" {
			reason = "participant left"
		}
		conf.removeEndpoint(e, reason)
	case n.Call != "":
		c, ok := s.calls[n.Call]
		if !ok {
			return domain.NewError(domain.KindInvalidTarget, op, "unknown call %s", n.Call)
		}
		c.handle(n)
	case n.Unit != "":
		u, ok := s.units[n.Unit].(*Unit)
		if !ok {
			return domain.NewError(domain.KindInvalidTarget, op, "unknown media unit %s", n.Unit)
		}
		u.handle(n)
	default:
		return domain.NewError(domain.KindValidation, op, "notification %q names no call, unit or endpoint", n.Type)
	}
	return nil
}
