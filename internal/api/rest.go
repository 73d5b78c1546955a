package api

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"github.com/hbomb79/Fetcha/internal/api/medias"
	"github.com/hbomb79/Fetcha/internal/event"
	"github.com/hbomb79/Fetcha/internal/http/websocket"
	"github.com/hbomb79/Fetcha/pkg/logger"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

var log = logger.Get("API")

type (
	RestConfig struct {
		HostAddr string `yaml:"host_address" env:"API_HOST_ADDR" env-default:"0.0.0.0:8080"`
	}

	controller interface {
		SetRoutes(*echo.Group)
	}

	// The RestGateway is a thin-wrapper around the Echo HTTP router. It's sole
	// responsibility is to create the routes Fetcha exposes, manage ongoing
	// websocket connections for activity updates, and to funnel unexpected
	// handler failures into an opaque 500 response.
	RestGateway struct {
		*broadcaster
		config          *RestConfig
		ec              *echo.Echo
		socket          *websocket.SocketHub
		mediaController controller
	}
)

// NewRestGateway constructs the Echo router and populates it with the media
// endpoint and the activity websocket. The extraction service backing the
// media controller and the event bus carrying its activity are provided as
// arguments.
func NewRestGateway(config *RestConfig, extractorService medias.ExtractorService, eventBus event.EventCoordinator) *RestGateway {
	ec := echo.New()
	ec.OnAddRouteHandler = func(host string, route echo.Route, handler echo.HandlerFunc, middleware []echo.MiddlewareFunc) {
		log.Emit(logger.DEBUG, "Registered new route %s %s\n", route.Method, route.Path)
	}
	ec.HidePort = true
	ec.HideBanner = true

	socket := websocket.New()
	gateway := &RestGateway{
		broadcaster:     newBroadcaster(socket),
		config:          config,
		ec:              ec,
		socket:          socket,
		mediaController: medias.New(medias.NewValidate(), extractorService),
	}

	gateway.broadcaster.registerEventHandlers(eventBus)

	ec.Use(middleware.Logger())
	ec.Use(opaqueUnexpectedErrors)
	ec.Pre(middleware.AddTrailingSlash())

	ec.GET("/api/fetcha/v1/activity/ws/", func(ec echo.Context) error {
		gateway.socket.UpgradeToSocket(ec.Response(), ec.Request())
		return nil
	})

	media := ec.Group("/api/fetcha/v1/media")
	gateway.mediaController.SetRoutes(media)

	return gateway
}

func (gateway *RestGateway) Run(parentCtx context.Context) error {
	ctx, ctxCancel := context.WithCancelCause(parentCtx)
	wg := &sync.WaitGroup{}

	// Start echo router
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := gateway.ec.Start(gateway.config.HostAddr); err != nil {
			ctxCancel(err)
		}
	}()

	// Start thread to listen for context cancellation
	go func(ec *echo.Echo) {
		<-ctx.Done()
		ec.Close()
	}(gateway.ec)

	// Start websocket
	wg.Add(1)
	go func() {
		defer wg.Done()
		gateway.socket.Start(ctx)
	}()

	wg.Wait()

	// Return cancellation cause if any, otherwise nil as parent context
	// cancellation is not an error case we should report.
	if cause := context.Cause(ctx); cause != ctx.Err() {
		return cause
	}

	return nil
}

// opaqueUnexpectedErrors is the outer-most handler middleware. Panics and
// errors which escape a handler (anything a handler did not already turn
// into a response) are logged server-side and replaced with a generic 500
// payload so that internals never leak to the caller.
func opaqueUnexpectedErrors(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ec echo.Context) (returnErr error) {
		defer func() {
			if r := recover(); r != nil {
				log.Emit(logger.ERROR, "Panic during %s %s: %v\n", ec.Request().Method, ec.Request().URL.Path, r)
				returnErr = respondOpaque(ec)
			}
		}()

		if err := next(ec); err != nil {
			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				// Raised by Echo's own routing/binding machinery; its
				// message is already client-safe.
				return err
			}

			log.Emit(logger.ERROR, "Unexpected error during %s %s: %v\n", ec.Request().Method, ec.Request().URL.Path, err)
			return respondOpaque(ec)
		}

		return nil
	}
}

func respondOpaque(ec echo.Context) error {
	if ec.Response().Committed {
		return nil
	}

	return ec.JSON(http.StatusInternalServerError, map[string]string{
		"error":   "Internal server error",
		"message": "An unexpected error occurred",
	})
}
