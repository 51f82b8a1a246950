package engine

import (
	"github.com/dkeye/voxengine/internal/core/event"
	"github.com/dkeye/voxengine/internal/domain"
)

// The helpers below are compositions of the public call, routing and event
// API. They add no mechanism of their own.

// Established is called once both legs of a forwarded call are connected.
type Established func(in, out *Call)

// EasyProcess bridges an inbound call with an outbound one: when out
// connects, in is answered and media flows both ways (unless out is P2P);
// when either side ends, the other one is hung up. A failed out rejects in
// with the same code while in is still alerting.
func (s *Session) EasyProcess(in, out *Call, onEstablished Established) error {
	if in == nil || out == nil || in.s != s || out.s != s {
		return domain.NewError(domain.KindInvalidTarget, "easyProcess", "both calls must belong to this session")
	}
	if _, err := event.On(out.bus, func(*CallConnected) error {
		if in.state == domain.CallAlerting && in.dir == domain.Inbound {
			if err := in.Answer(nil); err != nil {
				return err
			}
		}
		if !in.Live() {
			return nil
		}
		if !out.p2p {
			if err := s.SendMediaBetween(in, out); err != nil {
				return err
			}
		}
		if onEstablished != nil {
			onEstablished(in, out)
		}
		return nil
	}); err != nil {
		return err
	}
	if _, err := event.On(out.bus, func(e *CallFailed) error {
		if !in.Live() {
			return nil
		}
		if in.state == domain.CallAlerting && in.dir == domain.Inbound {
			return in.Reject(e.Code, nil)
		}
		return in.Hangup(nil)
	}); err != nil {
		return err
	}
	if _, err := event.On(out.bus, func(*CallDisconnected) error {
		return hangupIfLive(in)
	}); err != nil {
		return err
	}
	hangupOut := func() error { return hangupIfLive(out) }
	if _, err := event.On(in.bus, func(*CallDisconnected) error { return hangupOut() }); err != nil {
		return err
	}
	_, err := event.On(in.bus, func(*CallFailed) error { return hangupOut() })
	return err
}

func hangupIfLive(c *Call) error {
	if !c.Live() {
		return nil
	}
	return c.Hangup(nil)
}

// Forward describes how an inbound call is forwarded.
type Forward struct {
	// Target maps the dialed destination of the inbound call to the
	// outbound one. Nil forwards to the same destination.
	Target      func(to string) string
	Options     CallOptions
	Established Established
}

func (f Forward) target(to string) string {
	if f.Target == nil {
		return to
	}
	return f.Target(to)
}

func (f Forward) options(a *CallAlerting) CallOptions {
	opts := f.Options
	if opts.CallerID == "" {
		opts.CallerID = a.From
	}
	if opts.DisplayName == "" {
		opts.DisplayName = a.DisplayName
	}
	return opts
}

type dialer func(a *CallAlerting) (*Call, error)

func (s *Session) forward(f Forward, dial dialer) (event.ListenerID, error) {
	return event.On(s.bus, func(a *CallAlerting) error {
		out, err := dial(a)
		if err != nil {
			return err
		}
		return s.EasyProcess(a.Call, out, f.Established)
	})
}

// ForwardCallToPSTN forwards every alerting inbound call to the PSTN.
func (s *Session) ForwardCallToPSTN(f Forward) (event.ListenerID, error) {
	return s.forward(f, func(a *CallAlerting) (*Call, error) {
		return s.CallPSTN(f.target(a.To), f.options(a))
	})
}

func (s *Session) ForwardCallToSIP(f Forward) (event.ListenerID, error) {
	return s.forward(f, func(a *CallAlerting) (*Call, error) {
		return s.CallSIP(f.target(a.To), f.options(a))
	})
}

func (s *Session) ForwardCallToUser(f Forward) (event.ListenerID, error) {
	return s.forward(f, func(a *CallAlerting) (*Call, error) {
		return s.CallUser(f.target(a.To), f.options(a))
	})
}

// ForwardCallToUserDirect forwards in P2P mode; no media is routed through
// the session.
func (s *Session) ForwardCallToUserDirect(f Forward) (event.ListenerID, error) {
	return s.forward(f, func(a *CallAlerting) (*Call, error) {
		return s.CallUserDirect(a.Call, f.target(a.To), f.options(a))
	})
}

// PlayAndHangup answers c if needed, plays url into it and hangs up when
// playback finishes. The player is stopped when the call ends.
func (s *Session) PlayAndHangup(c *Call, url string) error {
	if c == nil || c.s != s {
		return domain.NewError(domain.KindInvalidTarget, "playSoundAndHangup", "call must belong to this session")
	}
	if c.state == domain.CallAlerting && c.dir == domain.Inbound {
		if err := c.Answer(nil); err != nil {
			return err
		}
	}
	player, err := s.CreatePlayer(url, false)
	if err != nil {
		return err
	}
	if err := player.SendMediaTo(c); err != nil {
		return err
	}
	if _, err := event.On(player.bus, func(*PlaybackFinished) error {
		return hangupIfLive(c)
	}); err != nil {
		return err
	}
	stop := func() error {
		if player.Live() {
			return player.Stop()
		}
		return nil
	}
	if _, err := event.On(c.bus, func(*CallDisconnected) error { return stop() }); err != nil {
		return err
	}
	_, err = event.On(c.bus, func(*CallFailed) error { return stop() })
	return err
}

// PlaySoundAndHangup plays url to every alerting inbound call and hangs up.
func (s *Session) PlaySoundAndHangup(url string) (event.ListenerID, error) {
	return event.On(s.bus, func(a *CallAlerting) error {
		return s.PlayAndHangup(a.Call, url)
	})
}
