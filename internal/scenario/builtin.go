package scenario

import (
	"github.com/dkeye/voxengine/internal/app/engine"
	"github.com/dkeye/voxengine/internal/core/event"
	"github.com/dkeye/voxengine/internal/domain"
)

var builtins = map[string]Scenario{
	"forward-pstn":        ForwardPSTN,
	"forward-sip":         ForwardSIP,
	"forward-user":        ForwardUser,
	"forward-user-direct": ForwardUserDirect,
	"play-and-hangup":     PlayAndHangup,
	"conference":          ConferenceRoom,
	"callback":            Callback,
}

// fixed forwards to p[key] when set and to the dialed number otherwise.
func fixed(p Params, key string) engine.Forward {
	f := engine.Forward{Options: engine.CallOptions{CallerID: p["caller_id"]}}
	if to := p[key]; to != "" {
		f.Target = func(string) string { return to }
	}
	return f
}

func ForwardPSTN(s *engine.Session, p Params) error {
	_, err := s.ForwardCallToPSTN(fixed(p, "to"))
	return err
}

func ForwardSIP(s *engine.Session, p Params) error {
	_, err := s.ForwardCallToSIP(fixed(p, "uri"))
	return err
}

func ForwardUser(s *engine.Session, p Params) error {
	_, err := s.ForwardCallToUser(fixed(p, "user"))
	return err
}

func ForwardUserDirect(s *engine.Session, p Params) error {
	_, err := s.ForwardCallToUserDirect(fixed(p, "user"))
	return err
}

func PlayAndHangup(s *engine.Session, p Params) error {
	url := p["url"]
	if url == "" {
		return domain.NewError(domain.KindValidation, "play-and-hangup", "url parameter is required")
	}
	_, err := s.PlaySoundAndHangup(url)
	return err
}

// ConferenceRoom answers the inbound call and puts it into a video
// conference. The conference stops when the caller hangs up.
func ConferenceRoom(s *engine.Session, p Params) error {
	_, err := event.On(s.Events(), func(a *engine.CallAlerting) error {
		conf, err := s.CreateConference(domain.ConferenceParameters{
			Name:    p["name"],
			HDAudio: p["hd_audio"] == "true",
			Variant: domain.VideoEnabled,
		})
		if err != nil {
			return err
		}
		if err := a.Call.Answer(nil); err != nil {
			return err
		}
		if _, err := conf.Add(engine.EndpointOptions{DisplayName: a.DisplayName, Call: a.Call}); err != nil {
			return err
		}
		_, err = event.On(a.Call.Events(), func(*engine.CallDisconnected) error {
			if conf.Live() {
				return conf.Stop()
			}
			return nil
		})
		return err
	})
	return err
}

// Callback is started over HTTP: it dials p["to"], says p["text"] once the
// callee answers and hangs up when the prompt has been played.
func Callback(s *engine.Session, p Params) error {
	_, err := event.On(s.Events(), func(*engine.HTTPRequest) error {
		c, err := s.CallPSTN(p["to"], engine.CallOptions{CallerID: p["caller_id"]})
		if err != nil {
			return err
		}
		if _, err := event.On(c.Events(), func(*engine.CallConnected) error {
			return c.Say(p["text"])
		}); err != nil {
			return err
		}
		_, err = event.On(c.Events(), func(*engine.CallPlaybackFinished) error {
			return c.Hangup(nil)
		})
		return err
	})
	return err
}
