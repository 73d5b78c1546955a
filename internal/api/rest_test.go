package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/hbomb79/Fetcha/internal/event"
	"gotest.tools/v3/assert"
)

// explodingExtractor stands in for the extraction service with behaviour
// that should never escape the gateway: panics and untyped errors.
type explodingExtractor struct {
	panicMessage string
	err          error
}

func (stub *explodingExtractor) Search(context.Context, string, int, int) ([]any, error) {
	if stub.panicMessage != "" {
		panic(stub.panicMessage)
	}
	return nil, stub.err
}

func (stub *explodingExtractor) Info(context.Context, string) (any, error) {
	if stub.panicMessage != "" {
		panic(stub.panicMessage)
	}
	return nil, stub.err
}

func newTestGateway(stub *explodingExtractor) *RestGateway {
	return NewRestGateway(&RestConfig{HostAddr: "127.0.0.1:0"}, stub, event.New())
}

func performRequest(gateway *RestGateway, target string, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	gateway.ec.ServeHTTP(rec, req)

	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	assert.NilError(t, json.Unmarshal(rec.Body.Bytes(), &body))

	return body
}

func Test_Gateway_UnknownActionThroughRouter(t *testing.T) {
	gateway := newTestGateway(&explodingExtractor{})

	// No trailing slash; the AddTrailingSlash middleware canonicalises it
	rec := performRequest(gateway, "/api/fetcha/v1/media?action=destroy", `{}`)
	assert.Equal(t, rec.Code, http.StatusBadRequest)

	body := decodeResponse(t, rec)
	assert.Equal(t, body["error"], "Invalid action. Use 'search', 'info', or 'download'.")
}

func Test_Gateway_PanicIsOpaque(t *testing.T) {
	gateway := newTestGateway(&explodingExtractor{panicMessage: "secret internal state"})

	rec := performRequest(gateway, "/api/fetcha/v1/media/?action=search", `{"keyword":"cats"}`)
	assert.Equal(t, rec.Code, http.StatusInternalServerError)

	body := decodeResponse(t, rec)
	assert.Equal(t, body["error"], "Internal server error")
	assert.Equal(t, body["message"], "An unexpected error occurred")

	// The panic value must never reach the client
	assert.Assert(t, !strings.Contains(rec.Body.String(), "secret internal state"))
}

func Test_Gateway_UntypedErrorIsOpaque(t *testing.T) {
	gateway := newTestGateway(&explodingExtractor{err: errors.New("database on fire")})

	rec := performRequest(gateway, "/api/fetcha/v1/media/?action=info", `{"url":"https://example.com/v"}`)
	assert.Equal(t, rec.Code, http.StatusInternalServerError)

	body := decodeResponse(t, rec)
	assert.Equal(t, body["error"], "Internal server error")
	assert.Assert(t, !strings.Contains(rec.Body.String(), "database on fire"))
}

func Test_Gateway_DownloadEndToEnd(t *testing.T) {
	gateway := newTestGateway(&explodingExtractor{})

	rec := performRequest(gateway, "/api/fetcha/v1/media/?action=download", `{"url":"https://example.com/v"}`)
	assert.Equal(t, rec.Code, http.StatusOK)

	body := decodeResponse(t, rec)
	assert.Equal(t, body["success"], true)

	data, ok := body["data"].(map[string]any)
	assert.Assert(t, ok, "expected 'data' to be an object")
	assert.Equal(t, data["status"], "queued")
	assert.Equal(t, data["url"], "https://example.com/v")
	assert.Assert(t, data["downloadId"] != "")
}
