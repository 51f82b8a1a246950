// Package media keeps the directed route graph of a session.
//
// The graph has set semantics: an ordered pair appears at most once. It is
// owned by the session thread and does no locking.
package media

import (
	"slices"

	"github.com/dkeye/voxengine/internal/domain"
)

type Router struct {
	fanouts map[domain.UnitID]*fanout
	sources []domain.UnitID
	// inbound indexes target -> sources so pruning a unit does not scan the graph
	inbound map[domain.UnitID]map[domain.UnitID]struct{}
}

func NewRouter() *Router {
	return &Router{
		fanouts: make(map[domain.UnitID]*fanout),
		inbound: make(map[domain.UnitID]map[domain.UnitID]struct{}),
	}
}

// Add inserts src -> dst and reports whether the route is new.
func (r *Router) Add(src, dst domain.UnitID) bool {
	f, ok := r.fanouts[src]
	if !ok {
		f = newFanout(src)
		r.fanouts[src] = f
		r.sources = append(r.sources, src)
	}
	if !f.add(dst) {
		return false
	}
	in, ok := r.inbound[dst]
	if !ok {
		in = make(map[domain.UnitID]struct{})
		r.inbound[dst] = in
	}
	in[src] = struct{}{}
	return true
}

// Remove deletes src -> dst and reports whether it existed.
func (r *Router) Remove(src, dst domain.UnitID) bool {
	f, ok := r.fanouts[src]
	if !ok || !f.remove(dst) {
		return false
	}
	if f.empty() {
		r.dropSource(src)
	}
	if in, ok := r.inbound[dst]; ok {
		delete(in, src)
		if len(in) == 0 {
			delete(r.inbound, dst)
		}
	}
	return true
}

func (r *Router) Has(src, dst domain.UnitID) bool {
	f, ok := r.fanouts[src]
	if !ok {
		return false
	}
	_, ok = f.targets[dst]
	return ok
}

// Touching lists every route with unit at either end, outgoing first.
func (r *Router) Touching(unit domain.UnitID) []Route {
	var out []Route
	if f, ok := r.fanouts[unit]; ok {
		for _, dst := range f.order {
			out = append(out, Route{Source: unit, Target: dst})
		}
	}
	for _, src := range r.sources {
		if src == unit {
			continue
		}
		if _, ok := r.inbound[unit][src]; ok {
			out = append(out, Route{Source: src, Target: unit})
		}
	}
	return out
}

// Prune removes every route touching unit and returns what was removed.
func (r *Router) Prune(unit domain.UnitID) []Route {
	removed := r.Touching(unit)
	for _, rt := range removed {
		r.Remove(rt.Source, rt.Target)
	}
	return removed
}

// Targets lists where src currently sends media.
func (r *Router) Targets(src domain.UnitID) []domain.UnitID {
	f, ok := r.fanouts[src]
	if !ok {
		return nil
	}
	return slices.Clone(f.order)
}

// Routes returns the whole graph ordered by source then target insertion.
func (r *Router) Routes() []Route {
	out := make([]Route, 0, r.Len())
	for _, src := range r.sources {
		for _, dst := range r.fanouts[src].order {
			out = append(out, Route{Source: src, Target: dst})
		}
	}
	return out
}

func (r *Router) Len() int {
	n := 0
	for _, f := range r.fanouts {
		n += len(f.order)
	}
	return n
}

func (r *Router) dropSource(src domain.UnitID) {
	delete(r.fanouts, src)
	r.sources = slices.DeleteFunc(r.sources, func(id domain.UnitID) bool { return id == src })
}
