package media

import (
	"fmt"

	"github.com/dkeye/voxengine/internal/domain"
)

// Route is one directed media flow between two units of the same session.
type Route struct {
	Source domain.UnitID `json:"source"`
	Target domain.UnitID `json:"target"`
}

func (r Route) String() string { return fmt.Sprintf("%s->%s", r.Source, r.Target) }

// fanout holds every target a single source sends to, in insertion order.
type fanout struct {
	src     domain.UnitID
	targets map[domain.UnitID]struct{}
	order   []domain.UnitID
}

func newFanout(src domain.UnitID) *fanout {
	return &fanout{src: src, targets: make(map[domain.UnitID]struct{})}
}

func (f *fanout) add(dst domain.UnitID) bool {
	if _, ok := f.targets[dst]; ok {
		return false
	}
	f.targets[dst] = struct{}{}
	f.order = append(f.order, dst)
	return true
}

func (f *fanout) remove(dst domain.UnitID) bool {
	if _, ok := f.targets[dst]; !ok {
		return false
	}
	delete(f.targets, dst)
	for i, id := range f.order {
		if id == dst {
			f.order = append(f.order[:i], f.order[i+1:]...)
			break
		}
	}
	return true
}

func (f *fanout) empty() bool { return len(f.order) == 0 }
