package sim

import (
	"fmt"

	"github.com/pixil98/go-crowd/internal/storage"
)

// Dictionary holds all simulation definition stores. It provides a single
// reference that can be passed to resolution methods so they all share the
// same signature.
type Dictionary struct {
	Targets   storage.Storer[*Target]
	Visitors  storage.Storer[*Visitor]
	Scenarios storage.Storer[*Scenario]
}

// Resolve resolves all foreign key references between asset types.
func (d *Dictionary) Resolve() error {
	for id, sc := range d.Scenarios.GetAll() {
		if err := sc.Resolve(d); err != nil {
			return fmt.Errorf("scenario %s: %w", id, err)
		}
	}
	return nil
}
