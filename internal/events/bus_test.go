package events

import (
	"encoding/json"
	"sync"
	"testing"
	"time"
)

func TestBus_PublishSubscribe(t *testing.T) {
	bus := New()
	received := make(chan BranchAddedEvent, 1)

	unsub := bus.Subscribe(func(e BranchAddedEvent) {
		received <- e
	})
	defer unsub()

	bus.Publish(BranchAddedEvent{BranchID: "src_1", Slot: 1})

	select {
	case got := <-received:
		if got.BranchID != "src_1" || got.Slot != 1 {
			t.Errorf("got %+v", got)
		}
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}
}

func TestBus_Unsubscribe(t *testing.T) {
	bus := New()
	received := make(chan BranchRemovedEvent, 1)

	unsub := bus.Subscribe(func(e BranchRemovedEvent) {
		received <- e
	})

	bus.Publish(BranchRemovedEvent{BranchID: "src_1"})
	<-received

	unsub()

	bus.Publish(BranchRemovedEvent{BranchID: "src_2"})
	select {
	case <-received:
		t.Fatal("Should not have received event after unsubscribe")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_TypeSafety(t *testing.T) {
	bus := New()

	controlReceived := make(chan bool, 1)
	ispReceived := make(chan bool, 1)

	unsub1 := bus.Subscribe(func(_ ControlChangedEvent) {
		controlReceived <- true
	})
	defer unsub1()

	unsub2 := bus.Subscribe(func(_ IspAppliedEvent) {
		ispReceived <- true
	})
	defer unsub2()

	bus.Publish(ControlChangedEvent{Control: "gain", Value: 10.0})
	<-controlReceived

	select {
	case <-ispReceived:
		t.Fatal("ISP subscriber received a control event")
	case <-time.After(10 * time.Millisecond):
	}
}

func TestBus_ThreadSafety(_ *testing.T) {
	bus := New()
	var wg sync.WaitGroup
	numGoroutines := 10
	eventsPerGoroutine := 100
	expected := numGoroutines * eventsPerGoroutine

	receivedCh := make(chan bool, expected)

	unsub := bus.Subscribe(func(_ ControlChangedEvent) {
		receivedCh <- true
	})
	defer unsub()

	for range numGoroutines {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range eventsPerGoroutine {
				bus.Publish(ControlChangedEvent{Control: "sharpness", Value: 1})
			}
		}()
	}

	wg.Wait()

	for range expected {
		<-receivedCh
	}
}

func TestBus_AllEventTypes(t *testing.T) {
	tests := []struct {
		name  string
		event Event
		sub   func(*Bus, chan<- Event) func()
	}{
		{"BranchAdded", BranchAddedEvent{BranchID: "a"}, func(b *Bus, ch chan<- Event) func() {
			return b.Subscribe(func(e BranchAddedEvent) { ch <- e })
		}},
		{"BranchRemoved", BranchRemovedEvent{BranchID: "a"}, func(b *Bus, ch chan<- Event) func() {
			return b.Subscribe(func(e BranchRemovedEvent) { ch <- e })
		}},
		{"BranchNegotiated", BranchNegotiatedEvent{BranchID: "a"}, func(b *Bus, ch chan<- Event) func() {
			return b.Subscribe(func(e BranchNegotiatedEvent) { ch <- e })
		}},
		{"StreamsConfigured", StreamsConfiguredEvent{SessionID: "s"}, func(b *Bus, ch chan<- Event) func() {
			return b.Subscribe(func(e StreamsConfiguredEvent) { ch <- e })
		}},
		{"SessionState", SessionStateEvent{State: "opened"}, func(b *Bus, ch chan<- Event) func() {
			return b.Subscribe(func(e SessionStateEvent) { ch <- e })
		}},
		{"ControlChanged", ControlChangedEvent{Control: "ev"}, func(b *Bus, ch chan<- Event) func() {
			return b.Subscribe(func(e ControlChangedEvent) { ch <- e })
		}},
		{"IspApplied", IspAppliedEvent{Tags: 2}, func(b *Bus, ch chan<- Event) func() {
			return b.Subscribe(func(e IspAppliedEvent) { ch <- e })
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bus := New()
			received := make(chan Event, 1)
			unsub := tt.sub(bus, received)
			defer unsub()

			bus.Publish(tt.event)
			select {
			case got := <-received:
				if got.Type() != tt.event.Type() {
					t.Errorf("type = %d, want %d", got.Type(), tt.event.Type())
				}
			case <-time.After(time.Second):
				t.Fatal("event not delivered")
			}
		})
	}
}

func TestSubscribeToChannelDropsWhenFull(t *testing.T) {
	bus := New()
	ch := make(chan any, 1)
	unsub := SubscribeToChannel[IspAppliedEvent](bus, ch)
	defer unsub()

	bus.Publish(IspAppliedEvent{Tags: 1})
	bus.Publish(IspAppliedEvent{Tags: 2})
	time.Sleep(20 * time.Millisecond)

	if len(ch) != 1 {
		t.Fatalf("buffered = %d, want 1", len(ch))
	}
	if e := (<-ch).(IspAppliedEvent); e.Tags != 1 {
		t.Errorf("first event tags = %d", e.Tags)
	}
}

func TestEventJSON(t *testing.T) {
	data, err := json.Marshal(ControlChangedEvent{
		Control:   "exposure-time",
		Value:     1000,
		Requested: 5000,
		Clamped:   true,
	})
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatal(err)
	}
	if decoded["control"] != "exposure-time" || decoded["clamped"] != true || decoded["requested"] != 5000.0 {
		t.Errorf("decoded = %v", decoded)
	}
}
