package sim

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pixil98/go-crowd/internal/space"
	"github.com/pixil98/go-crowd/internal/storage"
	"github.com/pixil98/go-testutil"
)

// fakeBody is a controllable Navigator for tests. Arrival is simulated by
// setting arrived.
type fakeBody struct {
	pos      space.Point
	dest     space.Point
	destSet  int
	resets   int
	stopped  bool
	arrived  bool
	pending  bool
	stopDist float64
}

func (f *fakeBody) SetDestination(p space.Point) {
	f.dest = p
	f.destSet++
	f.arrived = false
}
func (f *fakeBody) ResetPath()            { f.resets++ }
func (f *fakeBody) SetStopped(s bool)     { f.stopped = s }
func (f *fakeBody) Stopped() bool         { return f.stopped }
func (f *fakeBody) Position() space.Point { return f.pos }
func (f *fakeBody) RemainingDistance() float64 {
	if f.arrived {
		return 0
	}
	return f.pos.Distance(f.dest)
}
func (f *fakeBody) StoppingDistance() float64 { return f.stopDist }
func (f *fakeBody) HasPath() bool             { return !f.arrived }
func (f *fakeBody) PathPending() bool         { return f.pending }
func (f *fakeBody) Velocity() space.Point {
	if f.arrived {
		return space.Point{}
	}
	return space.Point{X: 1}
}

// recordedLocomotion captures sink updates.
type recordedLocomotion struct {
	speeds []float64
	moving []bool
}

func (r *recordedLocomotion) UpdateLocomotion(speed float64, moving bool) {
	r.speeds = append(r.speeds, speed)
	r.moving = append(r.moving, moving)
}

// eventLog collects emitted events.
type eventLog struct {
	events []Event
}

func (l *eventLog) VisitorEvent(e Event) {
	l.events = append(l.events, e)
}

func (l *eventLog) types() []EventType {
	out := make([]EventType, len(l.events))
	for i, e := range l.events {
		out[i] = e.Type
	}
	return out
}

// staticSource serves fixed candidate lists, shifting once per call when
// staged lists are provided.
type staticSource struct {
	lists   [][]*TargetInstance
	ordered []*TargetInstance
}

func (s *staticSource) AvailableTargets(v *VisitorInstance) []*TargetInstance {
	if len(s.lists) == 0 {
		return nil
	}
	l := s.lists[0]
	if len(s.lists) > 1 {
		s.lists = s.lists[1:]
	}
	return l
}

func (s *staticSource) NextInOrder(current *TargetInstance) *TargetInstance {
	if len(s.ordered) == 0 {
		return nil
	}
	for i, t := range s.ordered {
		if t == current {
			return s.ordered[(i+1)%len(s.ordered)]
		}
	}
	return s.ordered[0]
}

// newTestVisitor builds a visitor wired to a fake body.
func newTestVisitor(t *testing.T, def *Visitor) (*VisitorInstance, *fakeBody) {
	t.Helper()

	body := &fakeBody{}
	v, err := NewVisitorInstance("visitor-1", storage.NewResolvedSmartIdentifier(storage.Identifier("test-profile"), def), body, nil)
	if err != nil {
		t.Fatalf("creating visitor: %v", err)
	}
	return v, body
}

func TestVisitor_Validate(t *testing.T) {
	tests := map[string]struct {
		visitor Visitor
		expErr  string
	}{
		"valid": {
			visitor: Visitor{Name: "tourist", WalkSpeed: 1.4, SearchInterval: "2s"},
		},
		"missing name": {
			visitor: Visitor{WalkSpeed: 1},
			expErr:  "visitor name is required",
		},
		"zero walk speed": {
			visitor: Visitor{Name: "statue"},
			expErr:  "walk_speed must be positive",
		},
		"nearest requires search distance": {
			visitor: Visitor{Name: "local", WalkSpeed: 1, Selection: SelectNearest},
			expErr:  "search_distance must be positive",
		},
		"bad search interval": {
			visitor: Visitor{Name: "local", WalkSpeed: 1, SearchInterval: "often"},
			expErr:  "invalid search_interval",
		},
		"negative search interval": {
			visitor: Visitor{Name: "local", WalkSpeed: 1, SearchInterval: "-2s"},
			expErr:  "search_interval must be positive",
		},
	}

	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			err := tt.visitor.Validate()

			if tt.expErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}

			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.expErr)
			}
			if !strings.Contains(err.Error(), tt.expErr) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.expErr)
			}
		})
	}
}

func TestVisitorInstance_WanderCycle(t *testing.T) {
	ctx := context.Background()
	target := newTestTarget(t, "bench", &Target{Name: "bench", Position: space.Point{X: 5}})
	events := &eventLog{}

	v, body := newTestVisitor(t, &Visitor{Name: "tourist", WalkSpeed: 1, SearchInterval: "1s"})
	v.Join(&staticSource{lists: [][]*TargetInstance{{target}}}, events)

	now := time.Unix(1000, 0)

	// Idle tick: selection runs immediately and commits to the only target.
	v.Tick(ctx, now)
	testutil.AssertEqual(t, "state after selection", v.State(), StateMoving)
	testutil.AssertEqual(t, "current target", v.CurrentTarget(), target, sameInstance)
	testutil.AssertEqual(t, "destination", body.dest, space.Point{X: 5})

	// Moving tick without arrival: nothing changes.
	v.Tick(ctx, now.Add(time.Second))
	testutil.AssertEqual(t, "still moving", v.State(), StateMoving)
	testutil.AssertEqual(t, "occupancy", target.Occupancy(), 0)

	// Arrive: claim the target, start dwelling, halt the body.
	body.arrived = true
	v.Tick(ctx, now.Add(2*time.Second))
	testutil.AssertEqual(t, "state after arrival", v.State(), StateWaiting)
	testutil.AssertEqual(t, "occupancy after arrival", target.Occupancy(), 1)
	testutil.AssertEqual(t, "body halted", body.stopped, true)

	// Wait window is 0..0, so the next tick departs and immediately
	// re-selects the same target (it is available again).
	v.Tick(ctx, now.Add(3*time.Second))
	testutil.AssertEqual(t, "state after departure", v.State(), StateMoving)
	testutil.AssertEqual(t, "occupancy after departure", target.Occupancy(), 0)
	testutil.AssertEqual(t, "re-selected target", v.CurrentTarget(), target, sameInstance)

	testutil.AssertEqual(t, "event sequence", len(events.events), 4)
	exp := []EventType{EventSelected, EventArrived, EventDeparted, EventSelected}
	for i, typ := range events.types() {
		testutil.AssertEqual(t, "event type", typ, exp[i])
	}
}

func TestVisitorInstance_SearchIntervalThrottles(t *testing.T) {
	ctx := context.Background()
	target := newTestTarget(t, "bench", &Target{Name: "bench"})

	v, _ := newTestVisitor(t, &Visitor{Name: "tourist", WalkSpeed: 1, SearchInterval: "10s"})
	// No candidates on the first search; the target only appears later.
	src := &staticSource{lists: [][]*TargetInstance{nil, {target}}}
	v.Join(src, nil)

	now := time.Unix(1000, 0)

	v.Tick(ctx, now)
	testutil.AssertEqual(t, "idle after empty search", v.State(), StateIdle)

	// Within the interval: no re-search even though a candidate exists now.
	v.Tick(ctx, now.Add(5*time.Second))
	testutil.AssertEqual(t, "still idle inside interval", v.State(), StateIdle)

	// Interval elapsed: re-search picks the target.
	v.Tick(ctx, now.Add(10*time.Second))
	testutil.AssertEqual(t, "moving after interval", v.State(), StateMoving)
}

func TestVisitorInstance_CommitRecheck(t *testing.T) {
	ctx := context.Background()
	full := newTestTarget(t, "booth", &Target{Name: "booth", Exclusive: true})
	full.VisitorArrived() // someone else got there first
	open := newTestTarget(t, "bench", &Target{Name: "bench"})

	v, _ := newTestVisitor(t, &Visitor{Name: "tourist", WalkSpeed: 1})
	// First list is stale and only offers the full target; the retry gets
	// a fresh list with an open one.
	v.Join(&staticSource{lists: [][]*TargetInstance{{full}, {open}}}, nil)

	v.Tick(ctx, time.Unix(1000, 0))

	testutil.AssertEqual(t, "state", v.State(), StateMoving)
	testutil.AssertEqual(t, "target", v.CurrentTarget(), open, sameInstance)
	testutil.AssertEqual(t, "full target untouched", full.Occupancy(), 1)
}

func TestVisitorInstance_OrderedWalksRoster(t *testing.T) {
	ctx := context.Background()
	a := newTestTarget(t, "a", &Target{Name: "a"})
	b := newTestTarget(t, "b", &Target{Name: "b"})
	c := newTestTarget(t, "c", &Target{Name: "c"})

	v, body := newTestVisitor(t, &Visitor{Name: "inspector", WalkSpeed: 1, Selection: SelectOrdered, SearchInterval: "1s"})
	v.Join(&staticSource{ordered: []*TargetInstance{a, b, c}}, nil)

	now := time.Unix(1000, 0)
	visited := []storage.Identifier{}

	for i := 0; i < 4; i++ {
		v.Tick(ctx, now) // select
		if v.State() != StateMoving {
			t.Fatalf("step %d: expected moving, got %v", i, v.State())
		}
		visited = append(visited, v.CurrentTarget().Target.Id())

		body.arrived = true
		now = now.Add(time.Second)
		v.Tick(ctx, now) // arrive (wait window 0..0)
		now = now.Add(time.Second)
		v.Tick(ctx, now) // depart + immediate re-select
		body.arrived = false
		now = now.Add(time.Second)
	}

	exp := []storage.Identifier{"a", "b", "c", "a"}
	for i := range exp {
		testutil.AssertEqual(t, "visit order", visited[i], exp[i])
	}
}

func TestVisitorInstance_OrderedSkipsFullTarget(t *testing.T) {
	ctx := context.Background()
	a := newTestTarget(t, "a", &Target{Name: "a", Exclusive: true})
	a.VisitorArrived()
	b := newTestTarget(t, "b", &Target{Name: "b"})

	v, _ := newTestVisitor(t, &Visitor{Name: "inspector", WalkSpeed: 1, Selection: SelectOrdered})
	v.Join(&staticSource{ordered: []*TargetInstance{a, b}}, nil)

	v.Tick(ctx, time.Unix(1000, 0))

	testutil.AssertEqual(t, "state", v.State(), StateMoving)
	testutil.AssertEqual(t, "target", v.CurrentTarget(), b, sameInstance)
}

func TestVisitorInstance_StopWhileWaiting(t *testing.T) {
	ctx := context.Background()
	target := newTestTarget(t, "bench", &Target{Name: "bench", MinWait: "1h", MaxWait: "1h"})

	v, body := newTestVisitor(t, &Visitor{Name: "tourist", WalkSpeed: 1})
	v.Join(&staticSource{lists: [][]*TargetInstance{{target}}}, nil)

	now := time.Unix(1000, 0)
	v.Tick(ctx, now)
	body.arrived = true
	v.Tick(ctx, now.Add(time.Second))
	testutil.AssertEqual(t, "waiting", v.State(), StateWaiting)
	testutil.AssertEqual(t, "occupancy", target.Occupancy(), 1)

	// Stop releases the claim immediately, without waiting for the timer.
	v.Stop(now.Add(2 * time.Second))
	testutil.AssertEqual(t, "state", v.State(), StateIdle)
	testutil.AssertEqual(t, "occupancy released", target.Occupancy(), 0)
	if v.CurrentTarget() != nil {
		t.Error("current target should be cleared")
	}
	testutil.AssertEqual(t, "body halted", body.stopped, true)

	// Halted: ticks do not restart the cycle.
	v.Tick(ctx, now.Add(time.Hour))
	testutil.AssertEqual(t, "still idle while halted", v.State(), StateIdle)

	// Resume selects again right away.
	v.Resume(ctx, now.Add(2*time.Hour))
	testutil.AssertEqual(t, "moving after resume", v.State(), StateMoving)
}

func TestVisitorInstance_StopWhileMoving(t *testing.T) {
	ctx := context.Background()
	target := newTestTarget(t, "bench", &Target{Name: "bench"})

	v, _ := newTestVisitor(t, &Visitor{Name: "tourist", WalkSpeed: 1})
	v.Join(&staticSource{lists: [][]*TargetInstance{{target}}}, nil)

	v.Tick(ctx, time.Unix(1000, 0))
	testutil.AssertEqual(t, "moving", v.State(), StateMoving)

	// No claim is held while moving; stop must not decrement anything.
	v.Stop(time.Unix(1001, 0))
	testutil.AssertEqual(t, "state", v.State(), StateIdle)
	testutil.AssertEqual(t, "occupancy", target.Occupancy(), 0)
}

func TestVisitorInstance_ReleaseBalancesClaim(t *testing.T) {
	ctx := context.Background()
	target := newTestTarget(t, "bench", &Target{Name: "bench", MinWait: "1h", MaxWait: "1h"})

	v, body := newTestVisitor(t, &Visitor{Name: "tourist", WalkSpeed: 1})
	v.Join(&staticSource{lists: [][]*TargetInstance{{target}}}, nil)

	now := time.Unix(1000, 0)
	v.Tick(ctx, now)
	body.arrived = true
	v.Tick(ctx, now.Add(time.Second))
	testutil.AssertEqual(t, "occupancy", target.Occupancy(), 1)

	v.Release(now.Add(2 * time.Second))
	testutil.AssertEqual(t, "occupancy after release", target.Occupancy(), 0)
}

func TestVisitorInstance_DropTarget(t *testing.T) {
	ctx := context.Background()
	target := newTestTarget(t, "bench", &Target{Name: "bench", MinWait: "1h", MaxWait: "1h"})

	v, body := newTestVisitor(t, &Visitor{Name: "tourist", WalkSpeed: 1})
	v.Join(&staticSource{lists: [][]*TargetInstance{{target}}}, nil)

	now := time.Unix(1000, 0)
	v.Tick(ctx, now)
	body.arrived = true
	v.Tick(ctx, now.Add(time.Second))

	v.DropTarget(target, now.Add(2*time.Second))
	testutil.AssertEqual(t, "state", v.State(), StateIdle)
	testutil.AssertEqual(t, "occupancy", target.Occupancy(), 0)
	if v.CurrentTarget() != nil {
		t.Error("current target should be cleared")
	}
}

func TestVisitorInstance_NoSourceStaysIdle(t *testing.T) {
	v, _ := newTestVisitor(t, &Visitor{Name: "tourist", WalkSpeed: 1})

	v.Tick(context.Background(), time.Unix(1000, 0))
	testutil.AssertEqual(t, "state", v.State(), StateIdle)
}

func TestVisitorInstance_Locomotion(t *testing.T) {
	ctx := context.Background()
	body := &fakeBody{}
	sink := &recordedLocomotion{}
	v, err := NewVisitorInstance("visitor-1", storage.NewResolvedSmartIdentifier(storage.Identifier("p"), &Visitor{Name: "tourist", WalkSpeed: 2}), body, sink)
	if err != nil {
		t.Fatalf("creating visitor: %v", err)
	}

	now := time.Unix(1000, 0)
	v.Tick(ctx, now) // first tick only records the baseline position

	body.pos = space.Point{X: 2}
	v.Tick(ctx, now.Add(time.Second))

	testutil.AssertEqual(t, "samples", len(sink.speeds), 1)
	testutil.AssertEqual(t, "speed", sink.speeds[0], 2.0)
	testutil.AssertEqual(t, "moving", sink.moving[0], true)

	v.Tick(ctx, now.Add(2*time.Second))
	testutil.AssertEqual(t, "samples after halt", len(sink.speeds), 2)
	testutil.AssertEqual(t, "stationary", sink.moving[1], false)
}

func TestVisitorState_String(t *testing.T) {
	testutil.AssertEqual(t, "idle", StateIdle.String(), "idle")
	testutil.AssertEqual(t, "moving", StateMoving.String(), "moving")
	testutil.AssertEqual(t, "waiting", StateWaiting.String(), "waiting")
}
