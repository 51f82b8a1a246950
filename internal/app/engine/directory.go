package engine

import (
	"slices"

	"github.com/dkeye/voxengine/internal/domain"
)

// ConferenceInfo is a read-only view of a conference for listings.
type ConferenceInfo struct {
	ID        domain.ConferenceID      `json:"id"`
	Name      string                   `json:"name,omitempty"`
	Variant   domain.ConferenceVariant `json:"variant"`
	HDAudio   bool                     `json:"hd_audio"`
	Endpoints int                      `json:"endpoints"`
}

// directory keeps the live conferences of one session. It is only touched
// from the session thread and needs no locking.
type directory struct {
	byID   map[domain.ConferenceID]*Conference
	byName map[string]domain.ConferenceID
	order  []domain.ConferenceID
}

func newDirectory() *directory {
	return &directory{
		byID:   make(map[domain.ConferenceID]*Conference),
		byName: make(map[string]domain.ConferenceID),
	}
}

func (d *directory) add(c *Conference) {
	d.byID[c.id] = c
	if c.name != "" {
		d.byName[c.name] = c.id
	}
	d.order = append(d.order, c.id)
}

func (d *directory) get(id domain.ConferenceID) (*Conference, bool) {
	c, ok := d.byID[id]
	return c, ok
}

func (d *directory) named(name string) (*Conference, bool) {
	id, ok := d.byName[name]
	if !ok {
		return nil, false
	}
	return d.get(id)
}

func (d *directory) remove(id domain.ConferenceID) {
	c, ok := d.byID[id]
	if !ok {
		return
	}
	delete(d.byID, id)
	if c.name != "" && d.byName[c.name] == id {
		delete(d.byName, c.name)
	}
	d.order = slices.DeleteFunc(d.order, func(x domain.ConferenceID) bool { return x == id })
}

func (d *directory) list() []ConferenceInfo {
	out := make([]ConferenceInfo, 0, len(d.order))
	for _, id := range d.order {
		c := d.byID[id]
		out = append(out, ConferenceInfo{
			ID:        c.id,
			Name:      c.name,
			Variant:   c.variant,
			HDAudio:   c.hdAudio,
			Endpoints: len(c.order),
		})
	}
	return out
}
