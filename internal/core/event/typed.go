package event

import (
	"fmt"

	"github.com/dkeye/voxengine/internal/domain"
)

// On registers a handler typed by its payload. The event kind comes from the
// payload type, e.g. On(bus, func(e *engine.CallConnected) error {...}).
func On[E Event](b *Bus, h func(E) error) (ListenerID, error) {
	if h == nil {
		return 0, domain.NewError(domain.KindConfiguration, "addEventListener", "handler is not a function")
	}
	kind, ok := kindOf[E]()
	if !ok {
		var zero E
		return 0, domain.NewError(domain.KindConfiguration, "addEventListener", "%T does not name an event class", zero)
	}
	return b.Register(kind, func(ev Event) error {
		e, ok := ev.(E)
		if !ok {
			return fmt.Errorf("%s: unexpected payload %T", kind, ev)
		}
		return h(e)
	})
}

// kindOf asks the zero value of E for its kind. Payload types declare Kind
// on a pointer receiver without touching fields, so a nil *T works.
func kindOf[E Event]() (k Kind, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	var zero E
	return zero.Kind(), true
}
