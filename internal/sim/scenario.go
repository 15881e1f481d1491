package sim

import (
	"fmt"

	"github.com/pixil98/go-crowd/internal/space"
	"github.com/pixil98/go-crowd/internal/storage"
	"github.com/pixil98/go-errors"
)

// Scenario describes one simulated space: which targets are placed in it and
// what population wanders it at startup.
type Scenario struct {
	Name string `json:"name"`

	// SpawnPoints are named locations where visitor bodies are placed.
	SpawnPoints map[string]space.Point `json:"spawn_points"`

	// Targets lists the target definitions registered for this scenario,
	// in roster order. Order matters for ordered visiting.
	Targets []storage.SmartIdentifier[*Target] `json:"targets"`

	// Population seeds the initial visitors.
	Population []PopulationGroup `json:"population,omitempty"`
}

// PopulationGroup spawns a number of visitors from one profile at a named
// spawn point.
type PopulationGroup struct {
	Profile    storage.SmartIdentifier[*Visitor] `json:"profile"`
	Count      int                               `json:"count"`
	SpawnPoint string                            `json:"spawn_point"`
}

// Validate satisfies storage.ValidatingSpec.
func (s *Scenario) Validate() error {
	el := errors.NewErrorList()

	if s.Name == "" {
		el.Add(fmt.Errorf("scenario name is required"))
	}
	if len(s.Targets) == 0 {
		el.Add(fmt.Errorf("scenario requires at least one target"))
	}
	for i, t := range s.Targets {
		if err := t.Validate(); err != nil {
			el.Add(fmt.Errorf("target %d: %w", i, err))
		}
	}

	for i, p := range s.Population {
		if err := p.Profile.Validate(); err != nil {
			el.Add(fmt.Errorf("population %d: %w", i, err))
		}
		if p.Count <= 0 {
			el.Add(fmt.Errorf("population %d: count must be positive", i))
		}
		if p.SpawnPoint == "" {
			el.Add(fmt.Errorf("population %d: spawn_point is required", i))
		} else if _, ok := s.SpawnPoints[p.SpawnPoint]; !ok {
			el.Add(fmt.Errorf("population %d: unknown spawn_point %q", i, p.SpawnPoint))
		}
	}

	return el.Err()
}

// Resolve resolves foreign keys from the dictionary.
func (s *Scenario) Resolve(dict *Dictionary) error {
	el := errors.NewErrorList()
	for i := range s.Targets {
		el.Add(s.Targets[i].Resolve(dict.Targets))
	}
	for i := range s.Population {
		el.Add(s.Population[i].Profile.Resolve(dict.Visitors))
	}
	return el.Err()
}
