package session

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestWatermillPublisher_DeliversJSON(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	defer bus.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	msgs, err := bus.Subscribe(ctx, EventsTopic)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	pub := NewWatermillPublisher(bus, "", zerolog.Nop())
	defer pub.Close()
	pub.Publish(Event{Name: "state", Time: time.Unix(10, 0), Fields: map[string]any{"to": "ready"}})

	select {
	case m := <-msgs:
		m.Ack()
		var p EventPayload
		if err := json.Unmarshal(m.Payload, &p); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if p.Name != "state" || p.Time != 10 || p.Fields["to"] != "ready" || m.Metadata.Get(EventNameKey) != "state" {
			t.Fatalf("unexpected payload %+v", p)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("no event delivered")
	}
}

func TestSessionWithWatermillPublisher(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	defer bus.Close()
	pub := NewWatermillPublisher(bus, EventsTopic, zerolog.Nop())
	defer pub.Close()
	// unsubscribe first: the bus waits for acks the test no longer sends
	ctx, cancel := context.WithCancel(testCtx(t))
	defer cancel()
	msgs, err := bus.Subscribe(ctx, EventsTopic)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	s := New(newScriptedEngine(1), Config{Logger: zerolog.Nop(), Publisher: pub})
	defer s.Close()
	s.RequestReload(textModel)

	seen := map[string]bool{}
	deadline := time.After(2 * time.Second)
	for !seen["reload_done"] {
		select {
		case m := <-msgs:
			m.Ack()
			var p EventPayload
			if err := json.Unmarshal(m.Payload, &p); err != nil {
				t.Fatalf("decode: %v", err)
			}
			seen[p.Name] = true
		case <-deadline:
			t.Fatalf("reload_done never published, saw %v", seen)
		}
	}
	if !seen["state"] || !seen["message"] {
		t.Fatalf("expected state and message events, saw %v", seen)
	}
}

func TestWatermillPublisher_KeepsPublishOrder(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	defer bus.Close()
	msgs, err := bus.Subscribe(testCtx(t), EventsTopic)
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	pub := NewWatermillPublisher(bus, EventsTopic, zerolog.Nop())
	defer pub.Close()

	const n = 50
	for i := 0; i < n; i++ {
		pub.Publish(Event{Name: "message", Time: time.Unix(int64(i), 0), Fields: map[string]any{"seq": i}})
	}

	deadline := time.After(5 * time.Second)
	for want := 0; want < n; want++ {
		select {
		case m := <-msgs:
			m.Ack()
			var p EventPayload
			if err := json.Unmarshal(m.Payload, &p); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got, _ := p.Fields["seq"].(float64); int(got) != want {
				t.Fatalf("event %d arrived as seq %v", want, p.Fields["seq"])
			}
		case <-deadline:
			t.Fatalf("only %d of %d events delivered", want, n)
		}
	}
}

func TestWatermillPublisher_PublishAfterCloseIsDropped(t *testing.T) {
	bus := NewEventBus(zerolog.Nop())
	defer bus.Close()
	pub := NewWatermillPublisher(bus, EventsTopic, zerolog.Nop())
	pub.Close()
	pub.Close()
	pub.Publish(Event{Name: "state", Time: time.Now()})
}
