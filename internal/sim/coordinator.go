package sim

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/pixil98/go-crowd/internal/space"
	"github.com/pixil98/go-crowd/internal/storage"
)

// Advancer is implemented by navigator bodies that need the simulation to
// integrate their movement. External engines drive their bodies themselves
// and won't implement it.
type Advancer interface {
	Advance(time.Duration)
}

// Coordinator is the single source of truth for the registered targets and
// visitors. The target roster is ordered; its order drives round-robin
// visiting. All visitor evaluation is serialized under the coordinator's
// lock, so target occupancy is race-free within a tick.
type Coordinator struct {
	mu       sync.Mutex
	targets  []*TargetInstance
	visitors map[string]*VisitorInstance
	events   EventSink

	lastTick time.Time
}

func NewCoordinator(events EventSink) *Coordinator {
	return &Coordinator{
		visitors: make(map[string]*VisitorInstance),
		events:   events,
	}
}

// AddTarget appends a target to the roster. Adding a target that is already
// registered is a no-op.
func (c *Coordinator) AddTarget(t *TargetInstance) {
	if t == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if slices.Contains(c.targets, t) {
		return
	}
	c.targets = append(c.targets, t)
}

// RemoveTarget drops a target from the roster. Visitors heading to or
// dwelling at it are forced back to idle so no reference dangles. Removing
// an unregistered target is a no-op.
func (c *Coordinator) RemoveTarget(t *TargetInstance) {
	c.mu.Lock()
	defer c.mu.Unlock()

	i := slices.Index(c.targets, t)
	if i < 0 {
		return
	}
	c.targets = slices.Delete(c.targets, i, i+1)

	now := time.Now()
	for _, v := range c.visitors {
		v.DropTarget(t, now)
	}
}

// AddVisitor registers a visitor and attaches it to the roster. Adding the
// same instance id twice is a no-op.
func (c *Coordinator) AddVisitor(v *VisitorInstance) {
	if v == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.visitors[v.InstanceId]; exists {
		return
	}
	v.Join((*rosterView)(c), c.events)
	c.visitors[v.InstanceId] = v
}

// RemoveVisitor releases the visitor's occupancy claim, if any, and drops it
// from the roster. Removing an unknown id is a no-op.
func (c *Coordinator) RemoveVisitor(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, exists := c.visitors[id]
	if !exists {
		return
	}
	v.Release(time.Now())
	delete(c.visitors, id)
}

// Visitor returns the registered visitor with the given instance id, or nil.
func (c *Coordinator) Visitor(id string) *VisitorInstance {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.visitors[id]
}

// Visitors returns the registered visitors in instance id order.
func (c *Coordinator) Visitors() []*VisitorInstance {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*VisitorInstance, 0, len(c.visitors))
	for _, id := range slices.Sorted(maps.Keys(c.visitors)) {
		out = append(out, c.visitors[id])
	}
	return out
}

// Targets returns the roster in registration order.
func (c *Coordinator) Targets() []*TargetInstance {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slices.Clone(c.targets)
}

// AvailableTargets filters the roster to targets the visitor could select:
// visitable right now and not the visitor's own current target. Roster order
// is preserved.
func (c *Coordinator) AvailableTargets(v *VisitorInstance) []*TargetInstance {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.availableTargets(v)
}

func (c *Coordinator) availableTargets(v *VisitorInstance) []*TargetInstance {
	var out []*TargetInstance
	for _, t := range c.targets {
		if v != nil && v.CurrentTarget() == t {
			continue
		}
		if !t.CanBeVisited() {
			continue
		}
		out = append(out, t)
	}
	return out
}

// NextInOrder returns the roster entry after current, wrapping at the end.
// A nil or unregistered current yields the first entry. An empty roster
// yields nil.
func (c *Coordinator) NextInOrder(current *TargetInstance) *TargetInstance {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.nextInOrder(current)
}

func (c *Coordinator) nextInOrder(current *TargetInstance) *TargetInstance {
	if len(c.targets) == 0 {
		return nil
	}

	i := slices.Index(c.targets, current)
	if i < 0 {
		return c.targets[0]
	}
	return c.targets[(i+1)%len(c.targets)]
}

// rosterView exposes the coordinator's candidate queries without locking.
// Visitors call these from inside coordinator entry points that already hold
// the lock (Tick, ResumeAll, RemoveTarget).
type rosterView Coordinator

func (r *rosterView) AvailableTargets(v *VisitorInstance) []*TargetInstance {
	return (*Coordinator)(r).availableTargets(v)
}

func (r *rosterView) NextInOrder(current *TargetInstance) *TargetInstance {
	return (*Coordinator)(r).nextInOrder(current)
}

// VisitorReport is a point-in-time copy of one visitor's observable state,
// safe to read after the coordinator's lock is released.
type VisitorReport struct {
	InstanceId string
	Profile    storage.Identifier
	State      VisitorState
	Target     storage.Identifier
}

// TargetReport is a point-in-time copy of one target's observable state.
type TargetReport struct {
	Id           storage.Identifier
	Name         string
	Position     space.Point
	Weight       float64
	Occupancy    int
	Exclusive    bool
	MaxOccupancy int
	MinWait      time.Duration
	MaxWait      time.Duration
}

// VisitorReports snapshots every visitor under the lock, in instance id
// order. Callers on other goroutines must use this instead of reading live
// instances while the driver ticks.
func (c *Coordinator) VisitorReports() []VisitorReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]VisitorReport, 0, len(c.visitors))
	for _, id := range slices.Sorted(maps.Keys(c.visitors)) {
		out = append(out, c.visitors[id].report())
	}
	return out
}

// TargetReports snapshots the target roster under the lock, in registration
// order.
func (c *Coordinator) TargetReports() []TargetReport {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]TargetReport, 0, len(c.targets))
	for _, t := range c.targets {
		out = append(out, t.report())
	}
	return out
}

// TargetReport snapshots one target by identifier.
func (c *Coordinator) TargetReport(id storage.Identifier) (TargetReport, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.targets {
		if t.Target.Id() == id {
			return t.report(), true
		}
	}
	return TargetReport{}, false
}

// Statistics is a point-in-time aggregate of the simulation.
type Statistics struct {
	Visitors int `json:"visitors"`
	Moving   int `json:"moving"`
	Waiting  int `json:"waiting"`
	Idle     int `json:"idle"`
	Targets  int `json:"targets"`
}

// Statistics computes an aggregate snapshot by scanning the roster. Counts
// are recomputed on every call rather than maintained incrementally.
func (c *Coordinator) Statistics() Statistics {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Statistics{
		Visitors: len(c.visitors),
		Targets:  len(c.targets),
	}
	for _, v := range c.visitors {
		switch v.State() {
		case StateMoving:
			s.Moving++
		case StateWaiting:
			s.Waiting++
		default:
			s.Idle++
		}
	}
	return s
}

// StopAll forces every registered visitor to idle, releasing claims.
func (c *Coordinator) StopAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, v := range c.visitors {
		if v == nil {
			continue
		}
		v.Stop(now)
	}
}

// StopVisitor forces one visitor to idle by instance id.
func (c *Coordinator) StopVisitor(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, exists := c.visitors[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrVisitorNotFound, id)
	}
	v.Stop(time.Now())
	return nil
}

// ResumeVisitor un-halts one visitor by instance id.
func (c *Coordinator) ResumeVisitor(ctx context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	v, exists := c.visitors[id]
	if !exists {
		return fmt.Errorf("%w: %s", ErrVisitorNotFound, id)
	}
	v.Resume(ctx, time.Now())
	return nil
}

// ResumeAll un-halts every registered visitor.
func (c *Coordinator) ResumeAll(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	for _, id := range slices.Sorted(maps.Keys(c.visitors)) {
		v := c.visitors[id]
		if v == nil {
			continue
		}
		v.Resume(ctx, now)
	}
}

// ApplyWaitOverride overwrites every registered target's wait window. It is
// a one-shot applied at initialization, not continuously enforced; targets
// registered later keep their own windows.
func (c *Coordinator) ApplyWaitOverride(minWait, maxWait time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, t := range c.targets {
		t.SetWaitWindow(minWait, maxWait)
	}
}

// Tick steps every visitor once. Visitors are evaluated in instance id
// order so a tick is reproducible for a given roster.
func (c *Coordinator) Tick(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := time.Now()
	elapsed := time.Duration(0)
	if !c.lastTick.IsZero() {
		elapsed = now.Sub(c.lastTick)
	}
	c.lastTick = now

	for _, id := range slices.Sorted(maps.Keys(c.visitors)) {
		v := c.visitors[id]

		// Built-in bodies are integrated here; external engines move
		// their own.
		if a, ok := v.Body().(Advancer); ok && elapsed > 0 {
			a.Advance(elapsed)
		}

		v.Tick(ctx, now)
	}

	return nil
}
