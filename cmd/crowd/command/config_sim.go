package command

import (
	"fmt"
	"time"

	"github.com/pixil98/go-crowd/internal/sim"
	"github.com/pixil98/go-crowd/internal/storage"
	"github.com/pixil98/go-errors"
)

type SimulationConfig struct {
	// Scenario selects which scenario asset to run.
	Scenario string `json:"scenario"`

	// MinWait and MaxWait, when set, override every target's wait window
	// at startup. Useful for speeding a scenario up without editing its
	// target assets.
	MinWait string `json:"min_wait,omitempty"`
	MaxWait string `json:"max_wait,omitempty"`
}

func (c *SimulationConfig) Validate() error {
	el := errors.NewErrorList()

	if c.Scenario == "" {
		el.Add(fmt.Errorf("scenario is required"))
	}

	if (c.MinWait == "") != (c.MaxWait == "") {
		el.Add(fmt.Errorf("min_wait and max_wait must be set together"))
	}
	if c.MinWait != "" {
		if _, err := time.ParseDuration(c.MinWait); err != nil {
			el.Add(fmt.Errorf("parsing min_wait: %w", err))
		}
	}
	if c.MaxWait != "" {
		if _, err := time.ParseDuration(c.MaxWait); err != nil {
			el.Add(fmt.Errorf("parsing max_wait: %w", err))
		}
	}

	return el.Err()
}

// LookupScenario fetches the configured scenario from the dictionary.
func (c *SimulationConfig) LookupScenario(dict *sim.Dictionary) (storage.Identifier, *sim.Scenario, error) {
	id := storage.Identifier(c.Scenario)
	sc := dict.Scenarios.Get(id)
	if sc == nil {
		return "", nil, fmt.Errorf("scenario %q not found", c.Scenario)
	}
	return id, sc, nil
}

// WaitOverride reports the configured wait window override, if any.
func (c *SimulationConfig) WaitOverride() (minWait, maxWait time.Duration, ok bool, err error) {
	if c.MinWait == "" && c.MaxWait == "" {
		return 0, 0, false, nil
	}

	minWait, err = time.ParseDuration(c.MinWait)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parsing min_wait: %w", err)
	}
	maxWait, err = time.ParseDuration(c.MaxWait)
	if err != nil {
		return 0, 0, false, fmt.Errorf("parsing max_wait: %w", err)
	}
	return minWait, maxWait, true, nil
}
