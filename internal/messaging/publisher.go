package messaging

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/pixil98/go-crowd/internal/sim"
)

// Event subjects. Each event is published under its type; EventSubjects
// matches all of them.
const (
	eventSubjectPrefix = "crowd.event."
	EventSubjects      = eventSubjectPrefix + ">"
)

// Publisher sends raw payloads to a subject. Implemented by NatsServer.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// EventPublisher forwards simulation events onto NATS subjects so external
// consumers can observe the simulation. Every event goes to a per-type
// subject and to the emitting visitor's subject.
type EventPublisher struct {
	pub Publisher
}

func NewEventPublisher(pub Publisher) *EventPublisher {
	return &EventPublisher{pub: pub}
}

// VisitorEvent satisfies sim.EventSink. Publishing is fire-and-forget: a
// failed publish is logged and dropped rather than stalling the tick.
func (p *EventPublisher) VisitorEvent(e sim.Event) {
	data, err := json.Marshal(e)
	if err != nil {
		slog.Warn("marshaling visitor event", "event", e.EventId, "error", err)
		return
	}

	subjects := []string{
		eventSubjectPrefix + string(e.Type),
		fmt.Sprintf("crowd.visitor.%s", e.Visitor),
	}
	for _, subject := range subjects {
		if err := p.pub.Publish(subject, data); err != nil {
			slog.Warn("publishing visitor event", "subject", subject, "error", err)
		}
	}
}
