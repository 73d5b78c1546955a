package event_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/Fetcha/internal/event"
	"github.com/stretchr/testify/assert"
)

func newActivity() event.ExtractionActivity {
	return event.ExtractionActivity{
		ID:      uuid.New(),
		Action:  "search",
		Subject: "cats",
	}
}

func Test_Dispatch_SyncHandler(t *testing.T) {
	eventBus := event.New()

	var received []event.Event
	eventBus.RegisterHandlerFunction(event.EXTRACTION_STARTED, func(ev event.Event, _ event.Payload) {
		received = append(received, ev)
	})

	eventBus.Dispatch(event.EXTRACTION_STARTED, newActivity())

	// Synchronous handlers run inline with Dispatch
	assert.Equal(t, []event.Event{event.EXTRACTION_STARTED}, received)
}

func Test_Dispatch_AsyncHandler(t *testing.T) {
	eventBus := event.New()

	done := make(chan event.Payload, 1)
	eventBus.RegisterAsyncHandlerFunction(event.EXTRACTION_COMPLETE, func(_ event.Event, payload event.Payload) {
		done <- payload
	})

	activity := newActivity()
	eventBus.Dispatch(event.EXTRACTION_COMPLETE, activity)

	select {
	case payload := <-done:
		assert.Equal(t, activity, payload)
	case <-time.After(time.Second):
		t.Fatal("async handler was not called")
	}
}

func Test_Dispatch_ChannelHandler(t *testing.T) {
	eventBus := event.New()

	handlerCh := make(event.HandlerChannel, 2)
	eventBus.RegisterHandlerChannel(handlerCh, event.EXTRACTION_STARTED, event.EXTRACTION_FAILED)

	eventBus.Dispatch(event.EXTRACTION_STARTED, newActivity())
	eventBus.Dispatch(event.EXTRACTION_FAILED, newActivity())

	first := <-handlerCh
	second := <-handlerCh
	assert.Equal(t, event.EXTRACTION_STARTED, first.Event)
	assert.Equal(t, event.EXTRACTION_FAILED, second.Event)
}

func Test_Dispatch_RejectsIllegalPayload(t *testing.T) {
	eventBus := event.New()

	handlerCh := make(event.HandlerChannel, 1)
	eventBus.RegisterHandlerChannel(handlerCh, event.EXTRACTION_STARTED)

	// A payload which is not an ExtractionActivity must not reach handlers
	eventBus.Dispatch(event.EXTRACTION_STARTED, "not an activity")

	select {
	case ev := <-handlerCh:
		t.Fatalf("expected no delivery, but received %v", ev.Event)
	case <-time.After(100 * time.Millisecond):
	}
}

func Test_Dispatch_UnknownEventNotDelivered(t *testing.T) {
	eventBus := event.New()

	handlerCh := make(event.HandlerChannel, 1)
	eventBus.RegisterHandlerChannel(handlerCh, event.Event("made:up"))

	eventBus.Dispatch(event.Event("made:up"), newActivity())

	select {
	case ev := <-handlerCh:
		t.Fatalf("expected no delivery, but received %v", ev.Event)
	case <-time.After(100 * time.Millisecond):
	}
}
