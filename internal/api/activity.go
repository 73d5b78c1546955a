package api

import (
	"github.com/hbomb79/Fetcha/internal/event"
	"github.com/hbomb79/Fetcha/internal/http/websocket"
	"github.com/hbomb79/Fetcha/pkg/logger"
)

const (
	TitleExtractionStarted  = "EXTRACTION_STARTED"
	TitleExtractionComplete = "EXTRACTION_COMPLETE"
	TitleExtractionFailed   = "EXTRACTION_FAILED"
)

// broadcaster forwards extraction activity events from the event bus to
// every client connected to the activity websocket.
type broadcaster struct {
	socketHub *websocket.SocketHub
}

func newBroadcaster(socketHub *websocket.SocketHub) *broadcaster {
	return &broadcaster{socketHub: socketHub}
}

// registerEventHandlers subscribes the broadcaster to the extraction events.
// Handlers are registered async so a slow or blocked websocket client can
// never stall the extraction path dispatching the event.
func (hub *broadcaster) registerEventHandlers(eventBus event.EventHandler) {
	eventBus.RegisterAsyncHandlerFunction(event.EXTRACTION_STARTED, hub.onExtractionEvent)
	eventBus.RegisterAsyncHandlerFunction(event.EXTRACTION_COMPLETE, hub.onExtractionEvent)
	eventBus.RegisterAsyncHandlerFunction(event.EXTRACTION_FAILED, hub.onExtractionEvent)
}

func (hub *broadcaster) onExtractionEvent(ev event.Event, payload event.Payload) {
	activity, ok := payload.(event.ExtractionActivity)
	if !ok {
		log.Emit(logger.ERROR, "Discarding %s event with illegal payload %#v\n", ev, payload)
		return
	}

	hub.socketHub.Send(&websocket.SocketMessage{
		Title: titleForEvent(ev),
		Body:  map[string]interface{}{"activity": activity},
		Type:  websocket.Update,
	})
}

func titleForEvent(ev event.Event) string {
	switch ev {
	case event.EXTRACTION_STARTED:
		return TitleExtractionStarted
	case event.EXTRACTION_COMPLETE:
		return TitleExtractionComplete
	case event.EXTRACTION_FAILED:
		return TitleExtractionFailed
	}

	return string(ev)
}
