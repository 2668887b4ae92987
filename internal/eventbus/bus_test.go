package eventbus

import (
	"sync"
	"testing"
	"time"
)

func TestBus_SubscribeAndPublish(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan Event, 10)
	bus.Subscribe(TopicVendorCall, received)

	bus.Publish(Event{
		Type:      TopicVendorCall,
		Timestamp: time.Now(),
		Data: VendorCall{
			Vendor:   "VendorA",
			SKU:      "SKU001",
			Outcome:  OutcomeSuccess,
			Duration: 42 * time.Millisecond,
		},
	})

	select {
	case evt := <-received:
		if evt.Type != TopicVendorCall {
			t.Errorf("expected %s, got %s", TopicVendorCall, evt.Type)
		}
		call, ok := evt.Data.(VendorCall)
		if !ok {
			t.Fatalf("expected VendorCall payload, got %T", evt.Data)
		}
		if call.Vendor != "VendorA" || call.Outcome != OutcomeSuccess {
			t.Errorf("unexpected payload: %+v", call)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := New()
	defer bus.Close()

	ch1 := make(chan Event, 10)
	ch2 := make(chan Event, 10)
	bus.Subscribe(TopicLookup, ch1)
	bus.Subscribe(TopicLookup, ch2)

	bus.Publish(Event{Type: TopicLookup, Data: Lookup{SKU: "SKU002", Result: ResultAvailable}})

	for _, ch := range []chan Event{ch1, ch2} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Fatal("subscriber did not receive event")
		}
	}
}

func TestBus_TypeFiltering(t *testing.T) {
	bus := New()
	defer bus.Close()

	callCh := make(chan Event, 10)
	lookupCh := make(chan Event, 10)
	bus.Subscribe(TopicVendorCall, callCh)
	bus.Subscribe(TopicLookup, lookupCh)

	bus.Publish(Event{Type: TopicVendorCall, Data: VendorCall{Vendor: "VendorB", SKU: "SKU001"}})

	select {
	case <-callCh:
	case <-time.After(time.Second):
		t.Fatal("vendor call subscriber did not receive event")
	}

	select {
	case <-lookupCh:
		t.Fatal("lookup subscriber should NOT receive vendor.call event")
	case <-time.After(50 * time.Millisecond):
		// good
	}
}

func TestBus_DropsWhenSubscriberFull(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan Event, 1)
	bus.Subscribe(TopicVendorCall, received)

	bus.Publish(Event{Type: TopicVendorCall, Data: VendorCall{SKU: "SKU001"}})

	// Buffer is full; the second publish must not block.
	done := make(chan struct{})
	go func() {
		bus.Publish(Event{Type: TopicVendorCall, Data: VendorCall{SKU: "SKU002"}})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a full subscriber")
	}

	evt := <-received
	if call := evt.Data.(VendorCall); call.SKU != "SKU001" {
		t.Errorf("expected first event retained, got %+v", call)
	}
	if len(received) != 0 {
		t.Error("expected second event to be dropped")
	}
}

func TestBus_PublishBatch(t *testing.T) {
	bus := New()
	defer bus.Close()

	received := make(chan Event, 100)
	bus.Subscribe(TopicVendorCall, received)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(Event{Type: TopicVendorCall, Data: VendorCall{Vendor: "VendorC"}})
		}()
	}
	wg.Wait()

	time.Sleep(100 * time.Millisecond)
	if len(received) != 50 {
		t.Errorf("expected 50 events, got %d", len(received))
	}
}

func TestBus_PublishAfterClose(t *testing.T) {
	bus := New()

	received := make(chan Event, 10)
	bus.Subscribe(TopicLookup, received)
	bus.Close()

	bus.Publish(Event{Type: TopicLookup, Data: Lookup{SKU: "SKU001"}})

	select {
	case evt := <-received:
		t.Fatalf("received event after close: %v", evt)
	case <-time.After(50 * time.Millisecond):
		// good
	}
}
