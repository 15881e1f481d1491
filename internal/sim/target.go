package sim

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/pixil98/go-crowd/internal/space"
	"github.com/pixil98/go-crowd/internal/storage"
	"github.com/pixil98/go-errors"
)

// Target defines a point of interest visitors can walk to and dwell at.
// Target IDs follow the convention <scenario>-<name> (e.g., "plaza-fountain").
type Target struct {
	// Name is a display label; it does not need to be unique.
	Name string `json:"name"`

	// Position is the target's location in the scene's coordinate system.
	Position space.Point `json:"position"`

	// PriorityWeight biases weighted random selection toward this target.
	// Zero means "unset" and is treated as 1.0.
	PriorityWeight float64 `json:"priority_weight,omitempty"`

	// MinWait and MaxWait bound the dwell time, as duration strings
	// (e.g., "5s", "1m30s").
	MinWait string `json:"min_wait,omitempty"`
	MaxWait string `json:"max_wait,omitempty"`

	// Exclusive limits the target to a single visitor at a time.
	Exclusive bool `json:"exclusive,omitempty"`

	// MaxOccupancy caps concurrent visitors. Zero means unlimited.
	MaxOccupancy int `json:"max_occupancy,omitempty"`

	// Extensions carries opaque metadata for the presentation layer
	// (prop ids, animation hints). The simulation never reads it.
	Extensions storage.ExtensionState `json:"extensions,omitempty"`
}

// Validate satisfies storage.ValidatingSpec.
func (t *Target) Validate() error {
	el := errors.NewErrorList()

	if t.Name == "" {
		el.Add(fmt.Errorf("target name is required"))
	}
	if t.PriorityWeight < 0 {
		el.Add(fmt.Errorf("priority_weight must not be negative"))
	}
	if t.MaxOccupancy < 0 {
		el.Add(fmt.Errorf("max_occupancy must not be negative"))
	}

	for _, w := range []struct {
		field string
		value string
	}{
		{"min_wait", t.MinWait},
		{"max_wait", t.MaxWait},
	} {
		if w.value == "" {
			continue
		}
		d, err := time.ParseDuration(w.value)
		if err != nil {
			el.Add(fmt.Errorf("invalid %s %q: %w", w.field, w.value, err))
		} else if d < 0 {
			el.Add(fmt.Errorf("%s must not be negative", w.field))
		}
	}

	return el.Err()
}

// Weight returns the selection weight, defaulting to 1.0 when unset.
func (t *Target) Weight() float64 {
	if t.PriorityWeight == 0 {
		return 1.0
	}
	return t.PriorityWeight
}

// TargetInstance is a registered target with runtime occupancy state.
// Occupancy is mutated only through VisitorArrived/VisitorLeft, and only by
// the coordinator's serialized evaluation; the instance itself holds no lock.
type TargetInstance struct {
	Target storage.SmartIdentifier[*Target]

	minWait time.Duration
	maxWait time.Duration

	occupancy int

	// randFloat is swapped for a fixed value in tests.
	randFloat func() float64
}

func NewTargetInstance(target storage.SmartIdentifier[*Target]) (*TargetInstance, error) {
	def := target.Get()
	if def == nil {
		return nil, fmt.Errorf("unable to create instance from unresolved target %q", target.Id())
	}

	ti := &TargetInstance{
		Target:    target,
		randFloat: rand.Float64,
	}

	var minWait, maxWait time.Duration
	if def.MinWait != "" {
		d, err := time.ParseDuration(def.MinWait)
		if err != nil {
			return nil, fmt.Errorf("target %q: invalid min_wait %q: %w", target.Id(), def.MinWait, err)
		}
		minWait = d
	}
	if def.MaxWait != "" {
		d, err := time.ParseDuration(def.MaxWait)
		if err != nil {
			return nil, fmt.Errorf("target %q: invalid max_wait %q: %w", target.Id(), def.MaxWait, err)
		}
		maxWait = d
	}
	ti.SetWaitWindow(minWait, maxWait)

	return ti, nil
}

// Name returns the definition's display label.
func (t *TargetInstance) Name() string {
	return t.Target.Get().Name
}

// Position returns the target's location.
func (t *TargetInstance) Position() space.Point {
	return t.Target.Get().Position
}

// Weight returns the definition's selection weight.
func (t *TargetInstance) Weight() float64 {
	return t.Target.Get().Weight()
}

// Occupancy returns the number of visitors currently claiming the target.
func (t *TargetInstance) Occupancy() int {
	return t.occupancy
}

// CanBeVisited reports whether the target accepts another visitor right now.
// It is a pure query; contention is re-checked when a visitor commits to the
// target, since other visitors may claim it in between.
func (t *TargetInstance) CanBeVisited() bool {
	def := t.Target.Get()
	if def.Exclusive && t.occupancy > 0 {
		return false
	}
	if def.MaxOccupancy > 0 && t.occupancy >= def.MaxOccupancy {
		return false
	}
	return true
}

// VisitorArrived claims one occupancy slot. The caller must have checked
// CanBeVisited first; the count is not re-validated here.
func (t *TargetInstance) VisitorArrived() {
	t.occupancy++
}

// VisitorLeft releases one occupancy slot, flooring at zero so an unbalanced
// release can never drive the count negative.
func (t *TargetInstance) VisitorLeft() {
	if t.occupancy > 0 {
		t.occupancy--
	}
}

// SampleWaitTime draws a uniformly random dwell time from the wait window.
func (t *TargetInstance) SampleWaitTime() time.Duration {
	if t.maxWait <= t.minWait {
		return t.minWait
	}
	return t.minWait + time.Duration(t.randFloat()*float64(t.maxWait-t.minWait))
}

// SetWaitWindow replaces the dwell time bounds. The upper bound is clamped so
// it is never below the lower bound.
func (t *TargetInstance) SetWaitWindow(minWait, maxWait time.Duration) {
	if minWait < 0 {
		minWait = 0
	}
	if maxWait < minWait {
		maxWait = minWait
	}
	t.minWait = minWait
	t.maxWait = maxWait
}

// WaitWindow returns the current dwell time bounds.
// report copies the target's observable state. Callers hold whatever lock
// guards the instance.
func (t *TargetInstance) report() TargetReport {
	def := t.Target.Get()
	return TargetReport{
		Id:           t.Target.Id(),
		Name:         def.Name,
		Position:     def.Position,
		Weight:       t.Weight(),
		Occupancy:    t.occupancy,
		Exclusive:    def.Exclusive,
		MaxOccupancy: def.MaxOccupancy,
		MinWait:      t.minWait,
		MaxWait:      t.maxWait,
	}
}

func (t *TargetInstance) WaitWindow() (time.Duration, time.Duration) {
	return t.minWait, t.maxWait
}
