package sim

import (
	"time"

	"github.com/google/uuid"
	"github.com/pixil98/go-crowd/internal/storage"
)

// EventType labels a visitor lifecycle event.
type EventType string

const (
	// EventSelected fires when a visitor commits to a target and starts
	// moving toward it.
	EventSelected EventType = "selected"
	// EventArrived fires when the visitor reaches the target and claims
	// an occupancy slot.
	EventArrived EventType = "arrived"
	// EventDeparted fires when the claim is released, whether by wait
	// expiry, forced stop, removal or teardown.
	EventDeparted EventType = "departed"
)

// Event is a single visitor lifecycle notification.
type Event struct {
	EventId   string             `json:"event_id"`
	Type      EventType          `json:"type"`
	Visitor   string             `json:"visitor"`
	Profile   storage.Identifier `json:"profile"`
	State     string             `json:"state"`
	Target    storage.Identifier `json:"target,omitempty"`
	Occupancy int                `json:"occupancy"`
	Time      time.Time          `json:"time"`
}

// EventSink receives visitor lifecycle events. Implementations must not
// block; they are called from the simulation tick.
type EventSink interface {
	VisitorEvent(Event)
}

func (v *VisitorInstance) emit(now time.Time, typ EventType, target *TargetInstance) {
	if v.events == nil {
		return
	}

	e := Event{
		EventId: uuid.New().String(),
		Type:    typ,
		Visitor: v.InstanceId,
		Profile: v.Profile.Id(),
		State:   v.state.String(),
		Time:    now,
	}
	if target != nil {
		e.Target = target.Target.Id()
		e.Occupancy = target.Occupancy()
	}

	v.events.VisitorEvent(e)
}
