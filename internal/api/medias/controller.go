package medias

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/hbomb79/Fetcha/internal/api/util"
	"github.com/hbomb79/Fetcha/internal/extractor"
	"github.com/hbomb79/Fetcha/pkg/logger"
	"github.com/labstack/echo/v4"
)

const (
	defaultPage     = 1
	defaultPageSize = 20

	invalidActionMessage = "Invalid action. Use 'search', 'info', or 'download'."
)

type (
	// ExtractorService is the subset of the extraction service the media
	// controller depends on.
	ExtractorService interface {
		Search(ctx context.Context, keyword string, page int, pageSize int) ([]any, error)
		Info(ctx context.Context, url string) (any, error)
	}

	// Controller exposes the single media endpoint, dispatching on the
	// 'action' query parameter and normalising all outcomes into the
	// response envelope.
	Controller struct {
		validate  *validator.Validate
		extractor ExtractorService
	}

	// successEnvelope is the 200 response shape for every action.
	successEnvelope struct {
		Success bool   `json:"success"`
		Message string `json:"message,omitempty"`
		Data    any    `json:"data"`
	}

	// requestError is the 400 shape for client input problems. It carries
	// no 'success' discriminator; the status code alone identifies it.
	requestError struct {
		Error   string `json:"error"`
		Details any    `json:"details,omitempty"`
	}

	// processError is the 500 shape for downstream/subprocess failures.
	processError struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
		Details any    `json:"details,omitempty"`
	}

	// DownloadReceipt is the placeholder payload returned by the download
	// action until real download orchestration exists.
	DownloadReceipt struct {
		URL        string `json:"url"`
		Status     string `json:"status"`
		DownloadID string `json:"downloadId"`
		StartedAt  string `json:"startedAt"`
	}
)

var controllerLogger = logger.Get("MediaController")

func New(validate *validator.Validate, extractorService ExtractorService) *Controller {
	return &Controller{validate: validate, extractor: extractorService}
}

// SetRoutes accepts the Echo group for the media endpoint
// and sets the routes on it.
func (controller *Controller) SetRoutes(eg *echo.Group) {
	eg.POST("/", controller.handle)
}

// handle dispatches the request based on the 'action' query parameter. Any
// unrecognized action is rejected before a body is even read.
func (controller *Controller) handle(ec echo.Context) error {
	switch ec.QueryParam("action") {
	case "search":
		return controller.search(ec)
	case "info":
		return controller.info(ec)
	case "download":
		return controller.download(ec)
	default:
		return ec.JSON(http.StatusBadRequest, requestError{Error: invalidActionMessage})
	}
}

// search validates a SearchRequest and proxies it to the extraction
// service, returning the resulting entries as an array.
func (controller *Controller) search(ec echo.Context) error {
	var request SearchRequest
	if ok, err := controller.bindRequest(ec, &request); !ok {
		return err
	}

	page := util.NotNilOrDefault(request.Page, defaultPage)
	pageSize := util.NotNilOrDefault(request.PageSize, defaultPageSize)

	results, err := controller.extractor.Search(requestContext(ec), request.Keyword, page, pageSize)
	if err != nil {
		return respondExtractionError(ec, err)
	}

	return ec.JSON(http.StatusOK, successEnvelope{Success: true, Data: results})
}

// info validates an InfoRequest and proxies it to the extraction service,
// returning the metadata document as-is.
func (controller *Controller) info(ec echo.Context) error {
	var request InfoRequest
	if ok, err := controller.bindRequest(ec, &request); !ok {
		return err
	}

	metadata, err := controller.extractor.Info(requestContext(ec), request.URL)
	if err != nil {
		return respondExtractionError(ec, err)
	}

	return ec.JSON(http.StatusOK, successEnvelope{Success: true, Data: metadata})
}

// download validates a DownloadRequest and synchronously returns a queued
// receipt. This is a placeholder: no download is performed and the receipt
// is not persisted anywhere. The shape is fixed so clients written against
// it keep working once real orchestration lands.
func (controller *Controller) download(ec echo.Context) error {
	var request DownloadRequest
	if ok, err := controller.bindRequest(ec, &request); !ok {
		return err
	}

	receipt := DownloadReceipt{
		URL:        request.URL,
		Status:     "queued",
		DownloadID: uuid.NewString(),
		StartedAt:  time.Now().UTC().Format(time.RFC3339),
	}

	controllerLogger.Emit(logger.NEW, "Queued placeholder download %s for %s\n", receipt.DownloadID, receipt.URL)
	return ec.JSON(http.StatusOK, successEnvelope{Success: true, Message: "Download queued", Data: receipt})
}

// bindRequest decodes and validates the JSON body into target. When the
// return bool is false the response has already been written and the
// accompanying error (if any) should be returned from the handler as-is.
func (controller *Controller) bindRequest(ec echo.Context, target any) (bool, error) {
	if err := ec.Bind(target); err != nil {
		return false, ec.JSON(http.StatusBadRequest, requestError{Error: "Invalid JSON in request body"})
	}

	if err := controller.validate.Struct(target); err != nil {
		var fieldErrors validator.ValidationErrors
		if errors.As(err, &fieldErrors) {
			return false, ec.JSON(http.StatusBadRequest, requestError{
				Error:   "Validation failed",
				Details: newValidationDetails(fieldErrors),
			})
		}

		// Not a field-level failure; let the outer middleware opaque it.
		return false, err
	}

	return true, nil
}

// requestContext returns the context used for tool invocations. The
// request's own context is deliberately not used directly: a client
// disconnect does not cancel an in-flight subprocess, only the extractor's
// own deadline bounds it.
func requestContext(ec echo.Context) context.Context {
	return context.WithoutCancel(ec.Request().Context())
}

// respondExtractionError maps the typed errors from the extractor package
// onto the 500 process-failure envelope, preserving the diagnostic detail
// each error carries. Unrecognized errors are returned for the outer
// middleware to handle opaquely.
func respondExtractionError(ec echo.Context, err error) error {
	var (
		startErr    *extractor.StartError
		exitErr     *extractor.ExitError
		noOutputErr *extractor.NoOutputError
		parseErr    *extractor.ParseError
		timeoutErr  *extractor.TimeoutError
		limitErr    *extractor.OutputLimitError
	)

	switch {
	case errors.As(err, &exitErr):
		return ec.JSON(http.StatusInternalServerError, processError{
			Error:   fmt.Sprintf("Extraction tool exited with code %d", exitErr.ExitCode),
			Details: exitErr.Stderr,
		})
	case errors.As(err, &noOutputErr):
		details := noOutputErr.Stderr
		if details == "" {
			details = "The extraction tool produced no output and no error detail"
		}

		return ec.JSON(http.StatusInternalServerError, processError{
			Error:   "No output from extraction tool",
			Details: details,
		})
	case errors.As(err, &parseErr):
		return ec.JSON(http.StatusInternalServerError, processError{
			Error:   fmt.Sprintf("Failed to parse extraction tool output: %s", parseErr.Err.Error()),
			Details: parseErr.RawOutput,
		})
	case errors.As(err, &startErr):
		return ec.JSON(http.StatusInternalServerError, processError{Error: startErr.Error()})
	case errors.As(err, &timeoutErr):
		return ec.JSON(http.StatusInternalServerError, processError{Error: timeoutErr.Error()})
	case errors.As(err, &limitErr):
		return ec.JSON(http.StatusInternalServerError, processError{Error: limitErr.Error()})
	default:
		return err
	}
}
