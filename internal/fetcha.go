package internal

import (
	"context"
	"fmt"
	"sync"

	"github.com/hbomb79/Fetcha/internal/api"
	"github.com/hbomb79/Fetcha/internal/event"
	"github.com/hbomb79/Fetcha/internal/extractor"
	"github.com/hbomb79/Fetcha/pkg/logger"
)

var log = logger.Get("Core")

type (
	RunnableService interface {
		Run(context.Context) error
	}
)

// Fetcha represents the top-level object for the server, and is responsible
// for initialising the extraction service, the event bus, and the REST
// gateway which exposes them.
type fetchaImpl struct {
	eventBus         event.EventCoordinator
	config           FetchaConfig
	extractorService *extractor.Service
	restGateway      RunnableService
}

func New(config FetchaConfig) *fetchaImpl {
	log.Emit(logger.DEBUG, "Bootstrapping Fetcha services using config: %#v\n", config)
	eventBus := event.New()

	extractorService, err := extractor.New(config.Extractor, eventBus)
	if err != nil {
		panic(fmt.Sprintf("failed to construct extractor service due to error: %s", err.Error()))
	}

	return &fetchaImpl{
		eventBus:         eventBus,
		config:           config,
		extractorService: extractorService,
		restGateway:      api.NewRestGateway(&config.Rest, extractorService, eventBus),
	}
}

// Run will start Fetcha by bringing up all required services.
//
// This function will not return until Fetcha is stopped. To stop Fetcha, the
// provided context must be cancelled. Errors from which Fetcha cannot
// recover will also cause it to stop.
func (fetcha *fetchaImpl) Run(parent context.Context) error {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()

	crashHandler := func(label string, err error) {
		log.Emit(logger.FATAL, "Service crash (%s)! %s\n", label, err.Error())
		cancel()
	}

	wg := &sync.WaitGroup{}
	fetcha.spawnAsyncService(ctx, wg, fetcha.restGateway, "rest-gateway", crashHandler)
	log.Emit(logger.SUCCESS, "Fetcha services spawned!\n")

	wg.Wait()
	return nil
}

// spawnAsyncService will run the provided function/service as it's own
// go-routine, ensuring that the Fetcha service waitgroup is updated correctly
func (fetcha *fetchaImpl) spawnAsyncService(context context.Context, wg *sync.WaitGroup, service RunnableService, serviceLabel string, crashHandler func(string, error)) {
	log.Emit(logger.NEW, "Spawning %s\n", serviceLabel)
	wg.Add(1)

	go func(wg *sync.WaitGroup, label string, crash func(string, error)) {
		defer func() {
			if r := recover(); r != nil {
				crash(label, fmt.Errorf("panic %v", r))
			}
		}()

		defer wg.Done()
		if err := service.Run(context); err != nil {
			crash(label, err)
		}
	}(wg, serviceLabel, crashHandler)
}
