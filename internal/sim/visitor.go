package sim

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/pixil98/go-crowd/internal/nav"
	"github.com/pixil98/go-crowd/internal/space"
	"github.com/pixil98/go-crowd/internal/storage"
	"github.com/pixil98/go-errors"
)

const (
	// DefaultSearchInterval is used when a profile does not set one.
	DefaultSearchInterval = 3 * time.Second

	// locomotionEpsilon is the measured speed below which a visitor is
	// reported as standing still.
	locomotionEpsilon = 1e-3

	// maxSelectAttempts bounds commit-time re-selection when targets keep
	// filling up between candidate listing and commit.
	maxSelectAttempts = 8
)

// Visitor defines a type of visitor loaded from asset files. Multiple
// instances can be spawned from one definition.
type Visitor struct {
	// Name is a display label for this profile.
	Name string `json:"name"`

	// WalkSpeed is the body's movement speed in scene units per second.
	WalkSpeed float64 `json:"walk_speed"`

	// StoppingDistance is how close the body gets to a target before it
	// counts as arrived.
	StoppingDistance float64 `json:"stopping_distance,omitempty"`

	// SearchDistance bounds the nearest policy's search radius.
	SearchDistance float64 `json:"search_distance,omitempty"`

	// SearchInterval throttles target re-selection while idle, as a
	// duration string.
	SearchInterval string `json:"search_interval,omitempty"`

	// Selection picks the target selection policy: "weighted", "ordered"
	// or "nearest". Defaults to weighted.
	Selection SelectionPolicy `json:"selection,omitempty"`
}

// Selector labels the profile in interactive selection menus.
func (v *Visitor) Selector() string {
	return v.Name
}

// Validate satisfies storage.ValidatingSpec.
func (v *Visitor) Validate() error {
	el := errors.NewErrorList()

	if v.Name == "" {
		el.Add(fmt.Errorf("visitor name is required"))
	}
	if v.WalkSpeed <= 0 {
		el.Add(fmt.Errorf("walk_speed must be positive"))
	}
	if v.StoppingDistance < 0 {
		el.Add(fmt.Errorf("stopping_distance must not be negative"))
	}
	if v.Selection == SelectNearest && v.SearchDistance <= 0 {
		el.Add(fmt.Errorf("search_distance must be positive for the nearest policy"))
	}

	if v.SearchInterval != "" {
		d, err := time.ParseDuration(v.SearchInterval)
		if err != nil {
			el.Add(fmt.Errorf("invalid search_interval %q: %w", v.SearchInterval, err))
		} else if d <= 0 {
			el.Add(fmt.Errorf("search_interval must be positive"))
		}
	}

	return el.Err()
}

// VisitorState is a visitor's position in the wander cycle.
type VisitorState int

const (
	StateIdle VisitorState = iota
	StateMoving
	StateWaiting
)

func (s VisitorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateMoving:
		return "moving"
	case StateWaiting:
		return "waiting"
	default:
		return "unknown"
	}
}

// LocomotionSink receives measured movement each tick so a presentation
// layer can drive animation from it.
type LocomotionSink interface {
	UpdateLocomotion(speed float64, moving bool)
}

// TargetSource supplies candidate targets for selection. The coordinator
// implements it; visitors hold it as a non-owning reference.
type TargetSource interface {
	AvailableTargets(v *VisitorInstance) []*TargetInstance
	NextInOrder(current *TargetInstance) *TargetInstance
}

// VisitorInstance is a single spawned visitor cycling between idle, moving
// and waiting. All mutation happens on the coordinator's tick; the instance
// holds no lock of its own.
type VisitorInstance struct {
	InstanceId string
	Profile    storage.SmartIdentifier[*Visitor]

	body   nav.Navigator
	sink   LocomotionSink
	source TargetSource
	events EventSink

	state   VisitorState
	current *TargetInstance
	last    *TargetInstance
	waitEnd time.Time

	searchInterval time.Duration
	nextSearch     time.Time
	halted         bool

	lastMeasure time.Time
	prevPosSet  bool
	prevPos     space.Point

	randFloat func() float64
}

// NewVisitorInstance spawns a visitor from a resolved profile with the given
// body. The sink and event sink may be nil.
func NewVisitorInstance(id string, profile storage.SmartIdentifier[*Visitor], body nav.Navigator, sink LocomotionSink) (*VisitorInstance, error) {
	def := profile.Get()
	if def == nil {
		return nil, fmt.Errorf("unable to create instance from unresolved visitor %q", profile.Id())
	}
	if body == nil {
		return nil, fmt.Errorf("visitor %q: a navigator body is required", profile.Id())
	}

	interval := DefaultSearchInterval
	if def.SearchInterval != "" {
		d, err := time.ParseDuration(def.SearchInterval)
		if err != nil {
			return nil, fmt.Errorf("visitor %q: invalid search_interval %q: %w", profile.Id(), def.SearchInterval, err)
		}
		interval = d
	}

	return &VisitorInstance{
		InstanceId:     id,
		Profile:        profile,
		body:           body,
		sink:           sink,
		searchInterval: interval,
		randFloat:      rand.Float64,
	}, nil
}

// Join attaches the visitor to a target source and event sink. Called by the
// coordinator on registration.
func (v *VisitorInstance) Join(source TargetSource, events EventSink) {
	v.source = source
	v.events = events
}

// State returns the visitor's current state.
func (v *VisitorInstance) State() VisitorState {
	return v.state
}

// CurrentTarget returns the target the visitor is heading to or dwelling at,
// or nil while idle.
func (v *VisitorInstance) CurrentTarget() *TargetInstance {
	return v.current
}

// report copies the visitor's observable state. Callers hold whatever lock
// guards the instance.
func (v *VisitorInstance) report() VisitorReport {
	r := VisitorReport{
		InstanceId: v.InstanceId,
		Profile:    v.Profile.Id(),
		State:      v.state,
	}
	if v.current != nil {
		r.Target = v.current.Target.Id()
	}
	return r
}

// Body returns the visitor's navigator.
func (v *VisitorInstance) Body() nav.Navigator {
	return v.body
}

// Tick advances the visitor's state machine. Arrival and wait expiry are
// checked every tick; idle re-selection only once per search interval.
func (v *VisitorInstance) Tick(ctx context.Context, now time.Time) {
	switch v.state {
	case StateMoving:
		if v.current == nil {
			// Target was unregistered out from under us. Degrade to idle.
			v.state = StateIdle
			v.body.ResetPath()
		} else if nav.Arrived(v.body) {
			v.arrive(ctx, now)
		}

	case StateWaiting:
		if !now.Before(v.waitEnd) {
			v.finishWait(ctx, now)
		}

	case StateIdle:
		if v.halted {
			break
		}
		if now.Before(v.nextSearch) {
			break
		}
		v.nextSearch = now.Add(v.searchInterval)
		v.selectNextTarget(ctx, now)
	}

	v.measureLocomotion(now)
}

// arrive handles the moving→waiting edge: claim the target, start the dwell
// timer, halt the body.
func (v *VisitorInstance) arrive(ctx context.Context, now time.Time) {
	t := v.current
	t.VisitorArrived()
	v.waitEnd = now.Add(t.SampleWaitTime())
	v.body.SetStopped(true)
	v.body.ResetPath()
	v.state = StateWaiting

	slog.DebugContext(ctx, "visitor arrived", "visitor", v.InstanceId, "target", t.Target.Id(), "occupancy", t.Occupancy())
	v.emit(now, EventArrived, t)
}

// finishWait handles the waiting→idle edge: release the claim, resume the
// body, and immediately try to pick the next target.
func (v *VisitorInstance) finishWait(ctx context.Context, now time.Time) {
	t := v.current
	t.VisitorLeft()
	v.current = nil
	v.last = t
	v.state = StateIdle
	v.body.SetStopped(false)

	slog.DebugContext(ctx, "visitor departed", "visitor", v.InstanceId, "target", t.Target.Id(), "occupancy", t.Occupancy())
	v.emit(now, EventDeparted, t)

	v.selectNextTarget(ctx, now)
}

// selectNextTarget applies the profile's selection policy and commits to a
// target. Availability is re-checked at commit because other visitors may
// have filled the target since the candidate list was built; on a stale
// choice the selection is retried with a fresh list.
func (v *VisitorInstance) selectNextTarget(ctx context.Context, now time.Time) bool {
	if v.source == nil {
		slog.WarnContext(ctx, "visitor has no target source", "visitor", v.InstanceId)
		return false
	}

	def := v.Profile.Get()

	for attempt := 0; attempt < maxSelectAttempts; attempt++ {
		choice := v.chooseCandidate(def)
		if choice == nil {
			return false
		}

		if !choice.CanBeVisited() {
			if def.Selection == SelectOrdered {
				// Advance the cursor past the full target,
				// otherwise the retry would pick it again.
				v.last = choice
			}
			continue
		}

		v.current = choice
		v.state = StateMoving
		v.body.SetStopped(false)
		v.body.SetDestination(choice.Position())

		slog.DebugContext(ctx, "visitor selected target", "visitor", v.InstanceId, "target", choice.Target.Id(), "policy", def.Selection)
		v.emit(now, EventSelected, choice)
		return true
	}

	return false
}

func (v *VisitorInstance) chooseCandidate(def *Visitor) *TargetInstance {
	switch def.Selection {
	case SelectOrdered:
		return v.source.NextInOrder(v.last)
	case SelectNearest:
		return pickNearest(v.source.AvailableTargets(v), v.body.Position(), def.SearchDistance)
	default:
		return pickWeighted(v.source.AvailableTargets(v), v.randFloat)
	}
}

// Stop forces the visitor to idle from any state, releasing its occupancy
// claim if one is held. The visitor stays put until Resume.
func (v *VisitorInstance) Stop(now time.Time) {
	if v.state == StateWaiting && v.current != nil {
		v.current.VisitorLeft()
		v.emit(now, EventDeparted, v.current)
	}
	v.current = nil
	v.state = StateIdle
	v.halted = true
	v.body.ResetPath()
	v.body.SetStopped(true)
}

// Resume un-halts the visitor and, if idle, immediately attempts selection.
func (v *VisitorInstance) Resume(ctx context.Context, now time.Time) {
	v.halted = false
	v.body.SetStopped(false)
	if v.state == StateIdle {
		v.nextSearch = now.Add(v.searchInterval)
		v.selectNextTarget(ctx, now)
	}
}

// Release cleans up before the visitor is destroyed. Any held occupancy
// claim is returned; this must happen from every state or targets would leak
// occupancy permanently.
func (v *VisitorInstance) Release(now time.Time) {
	if v.state == StateWaiting && v.current != nil {
		v.current.VisitorLeft()
		v.emit(now, EventDeparted, v.current)
	}
	v.current = nil
	v.state = StateIdle
	v.body.ResetPath()
}

// DropTarget clears the visitor's references to a target that is being
// unregistered, releasing the claim if the visitor is dwelling at it.
func (v *VisitorInstance) DropTarget(t *TargetInstance, now time.Time) {
	if v.last == t {
		v.last = nil
	}
	if v.current != t {
		return
	}
	if v.state == StateWaiting {
		t.VisitorLeft()
		v.emit(now, EventDeparted, t)
	}
	v.current = nil
	v.state = StateIdle
	v.body.ResetPath()
}

// measureLocomotion feeds the presentation sink with speed derived from
// actual displacement rather than commanded velocity.
func (v *VisitorInstance) measureLocomotion(now time.Time) {
	pos := v.body.Position()

	if v.sink != nil && v.prevPosSet {
		elapsed := now.Sub(v.lastMeasure).Seconds()
		speed := 0.0
		if elapsed > 0 {
			speed = pos.Distance(v.prevPos) / elapsed
		}
		v.sink.UpdateLocomotion(speed, speed > locomotionEpsilon)
	}

	v.prevPos = pos
	v.prevPosSet = true
	v.lastMeasure = now
}
