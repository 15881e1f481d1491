package sim

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/pixil98/go-crowd/internal/nav"
	"github.com/pixil98/go-crowd/internal/space"
	"github.com/pixil98/go-crowd/internal/storage"
)

// BodyFactory instantiates a movement-capable body for a new visitor at a
// spawn location. Scene integrations replace the default to hand out bodies
// backed by their own engine.
type BodyFactory func(profile *Visitor, at space.Point) (nav.Navigator, LocomotionSink)

// defaultBodyFactory backs visitors with the built-in straight-line mover
// and no presentation sink.
func defaultBodyFactory(profile *Visitor, at space.Point) (nav.Navigator, LocomotionSink) {
	return nav.NewPointMover(at, profile.WalkSpeed, profile.StoppingDistance), nil
}

// Spawner creates visitor instances and registers them with a coordinator.
type Spawner struct {
	co       *Coordinator
	profiles storage.Storer[*Visitor]
	bodies   BodyFactory
}

func NewSpawner(co *Coordinator, profiles storage.Storer[*Visitor], factory BodyFactory) *Spawner {
	if factory == nil {
		factory = defaultBodyFactory
	}
	return &Spawner{
		co:       co,
		profiles: profiles,
		bodies:   factory,
	}
}

// Spawn creates one visitor from a resolved profile at a location and
// registers it. Returns the new instance.
func (s *Spawner) Spawn(profile storage.SmartIdentifier[*Visitor], at space.Point) (*VisitorInstance, error) {
	def := profile.Get()
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, profile.Id())
	}

	body, sink := s.bodies(def, at)
	v, err := NewVisitorInstance(uuid.New().String(), profile, body, sink)
	if err != nil {
		return nil, err
	}

	s.co.AddVisitor(v)
	return v, nil
}

// SpawnById looks a profile up in the store and spawns from it.
func (s *Spawner) SpawnById(id storage.Identifier, at space.Point) (*VisitorInstance, error) {
	def := s.profiles.Get(id)
	if def == nil {
		return nil, fmt.Errorf("%w: %s", ErrProfileNotFound, id)
	}
	return s.Spawn(storage.NewResolvedSmartIdentifier(id, def), at)
}

// Populate registers a scenario's targets and spawns its initial
// population. Target roster order follows the scenario's target order.
func (s *Spawner) Populate(id storage.Identifier, sc *Scenario) error {
	for _, tid := range sc.Targets {
		ti, err := NewTargetInstance(tid)
		if err != nil {
			return fmt.Errorf("scenario %q: %w", id, err)
		}
		s.co.AddTarget(ti)
	}

	for i, group := range sc.Population {
		at, ok := sc.SpawnPoints[group.SpawnPoint]
		if !ok {
			return fmt.Errorf("scenario %q population %d: %w: %s", id, i, ErrUnknownSpawnPoint, group.SpawnPoint)
		}
		for n := 0; n < group.Count; n++ {
			if _, err := s.Spawn(group.Profile, at); err != nil {
				return fmt.Errorf("scenario %q population %d: %w", id, i, err)
			}
		}
	}

	slog.Info("scenario populated", "scenario", id, "targets", len(sc.Targets), "groups", len(sc.Population))

	return nil
}

// SpawnPoint resolves a named spawn point in a scenario, falling back to the
// first defined point when name is empty.
func (sc *Scenario) SpawnPoint(name string) (space.Point, error) {
	if name == "" {
		for _, p := range sc.SpawnPoints {
			return p, nil
		}
		return space.Point{}, fmt.Errorf("%w: scenario has none", ErrUnknownSpawnPoint)
	}

	p, ok := sc.SpawnPoints[name]
	if !ok {
		return space.Point{}, fmt.Errorf("%w: %s", ErrUnknownSpawnPoint, name)
	}
	return p, nil
}
