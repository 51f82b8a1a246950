// Package scenario holds the named call-handling programs a session can run.
// A scenario installs event handlers on a fresh session before its trigger
// fires and drives everything else from those handlers.
package scenario

import (
	"fmt"
	"slices"
	"sync"

	"github.com/dkeye/voxengine/internal/app/engine"
	"github.com/dkeye/voxengine/internal/domain"
)

// Params tune a scenario. They come with the trigger.
type Params map[string]string

type Scenario func(s *engine.Session, p Params) error

type Catalog struct {
	mu     sync.RWMutex
	byName map[string]Scenario
}

func NewCatalog() *Catalog {
	return &Catalog{byName: make(map[string]Scenario)}
}

// Builtin returns a catalog with every built-in scenario registered.
func Builtin() *Catalog {
	c := NewCatalog()
	for name, sc := range builtins {
		c.MustRegister(name, sc)
	}
	return c
}

func (c *Catalog) Register(name string, sc Scenario) error {
	if name == "" || sc == nil {
		return domain.NewError(domain.KindConfiguration, "scenario.register", "scenario needs a name and a function")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.byName[name]; ok {
		return domain.NewError(domain.KindConfiguration, "scenario.register", "scenario %q already registered", name)
	}
	c.byName[name] = sc
	return nil
}

func (c *Catalog) MustRegister(name string, sc Scenario) {
	if err := c.Register(name, sc); err != nil {
		panic(fmt.Sprintf("scenario: %v", err))
	}
}

func (c *Catalog) Lookup(name string) (Scenario, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	sc, ok := c.byName[name]
	return sc, ok
}

func (c *Catalog) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.byName))
	for name := range c.byName {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}
