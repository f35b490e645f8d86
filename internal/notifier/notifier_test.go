package notifier

import (
	"context"
	"testing"
	"time"
)

func TestBusFanOut(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	first, cancelFirst := bus.Subscribe()
	second, cancelSecond := bus.Subscribe()
	defer cancelFirst()
	defer cancelSecond()

	bus.Notify(context.Background(), Event{Level: LevelSuccess, Message: "lote enviado"})

	for _, ch := range []<-chan Event{first, second} {
		select {
		case event := <-ch:
			if event.Level != LevelSuccess || event.Message != "lote enviado" {
				t.Fatalf("event = %+v", event)
			}
			if event.At.IsZero() {
				t.Fatal("event timestamp should be set")
			}
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBusUnsubscribedChannelStopsReceiving(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	ch, cancel := bus.Subscribe()
	cancel()

	bus.Notify(context.Background(), Event{Level: LevelInfo, Message: "ignored"})

	if _, open := <-ch; open {
		t.Fatal("channel should be closed after unsubscribe")
	}
}

func TestBusDoesNotBlockOnSlowSubscriber(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	_, cancel := bus.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		// More events than the subscriber buffer holds.
		for i := 0; i < 100; i++ {
			bus.Notify(context.Background(), Event{Level: LevelInfo, Message: "n"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("publisher blocked on slow subscriber")
	}
}

type recordingNotifier struct {
	events []Event
}

func (r *recordingNotifier) Notify(_ context.Context, event Event) {
	r.events = append(r.events, event)
}

func TestMultiFansOut(t *testing.T) {
	t.Parallel()

	first := &recordingNotifier{}
	second := &recordingNotifier{}
	multi := Multi{first, nil, second}

	multi.Notify(context.Background(), Event{Level: LevelError, Message: "falha"})

	if len(first.events) != 1 || len(second.events) != 1 {
		t.Fatalf("fan-out counts = %d, %d; want 1, 1", len(first.events), len(second.events))
	}
}
