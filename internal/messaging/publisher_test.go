package messaging

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/pixil98/go-crowd/internal/sim"
	"github.com/pixil98/go-crowd/internal/storage"
	"github.com/pixil98/go-testutil"
)

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	err      error
}

func (f *fakePublisher) Publish(subject string, data []byte) error {
	f.subjects = append(f.subjects, subject)
	f.payloads = append(f.payloads, data)
	return f.err
}

func TestEventPublisher_VisitorEvent(t *testing.T) {
	fake := &fakePublisher{}
	pub := NewEventPublisher(fake)

	pub.VisitorEvent(sim.Event{
		EventId:   "e1",
		Type:      sim.EventArrived,
		Visitor:   "v1",
		Profile:   "tourist",
		State:     "waiting",
		Target:    "fountain",
		Occupancy: 1,
		Time:      time.Unix(1000, 0).UTC(),
	})

	testutil.AssertEqual(t, "publish count", len(fake.subjects), 2)
	testutil.AssertEqual(t, "type subject", fake.subjects[0], "crowd.event.arrived")
	testutil.AssertEqual(t, "visitor subject", fake.subjects[1], "crowd.visitor.v1")

	var got sim.Event
	if err := json.Unmarshal(fake.payloads[0], &got); err != nil {
		t.Fatalf("unmarshaling payload: %v", err)
	}
	testutil.AssertEqual(t, "event id", got.EventId, "e1")
	testutil.AssertEqual(t, "target", got.Target, storage.Identifier("fountain"))
	testutil.AssertEqual(t, "occupancy", got.Occupancy, 1)
}

func TestEventPublisher_PublishFailureDoesNotPanic(t *testing.T) {
	pub := NewEventPublisher(&fakePublisher{err: fmt.Errorf("not started")})

	// Failures are logged and dropped.
	pub.VisitorEvent(sim.Event{EventId: "e1", Type: sim.EventSelected, Visitor: "v1"})
}
