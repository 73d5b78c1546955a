package extractor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hbomb79/Fetcha/internal/event"
	"github.com/hbomb79/Fetcha/pkg/logger"
)

var log = logger.Get("Extractor")

// Service wraps the external media-extraction tool, translating search and
// metadata requests into tool invocations and the tool's output back into
// parsed JSON values. Each request runs its own subprocess; the service
// itself holds no per-request state.
type Service struct {
	config   Config
	eventBus event.EventDispatcher
}

func New(config Config, eventBus event.EventDispatcher) (*Service, error) {
	if config.BinPath == "" {
		return nil, errors.New("extractor bin path cannot be empty")
	}

	return &Service{config: config, eventBus: eventBus}, nil
}

// Search runs the tool against the 'ytsearch' pseudo-URL, requesting a flat
// (non-recursive) playlist dump sliced to the page requested. The slice
// bounds are derived from the page and pageSize: entries are 1-indexed, so
// page 2 of size 20 covers entries 21 through 40.
//
// The tool returns a single JSON document; if that document is not already
// an array it is wrapped in one so callers always receive a list.
func (serv *Service) Search(ctx context.Context, keyword string, page int, pageSize int) ([]any, error) {
	result, err := serv.invoke(ctx, "search", keyword, searchArgs(keyword, page, pageSize))
	if err != nil {
		return nil, err
	}

	if list, ok := result.([]any); ok {
		return list, nil
	}

	return []any{result}, nil
}

// Info runs the tool against the given URL and returns the parsed metadata
// document as-is. Channel-URL redirection is disabled for compatibility with
// clients that expect the channel page itself, not its uploads playlist.
func (serv *Service) Info(ctx context.Context, url string) (any, error) {
	return serv.invoke(ctx, "info", url, infoArgs(url))
}

// searchArgs builds the argument list for a search invocation. The slice
// bounds are 1-indexed and inclusive.
func searchArgs(keyword string, page int, pageSize int) []string {
	startIndex := (page-1)*pageSize + 1
	endIndex := page * pageSize

	return []string{
		"--dump-single-json",
		"--flat-playlist",
		"--no-warnings",
		"--playlist-start", strconv.Itoa(startIndex),
		"--playlist-end", strconv.Itoa(endIndex),
		fmt.Sprintf("ytsearch%d:%s", pageSize, keyword),
	}
}

// infoArgs builds the argument list for a metadata invocation.
func infoArgs(url string) []string {
	return []string{
		"--dump-single-json",
		"--no-warnings",
		"--compat-options", "no-youtube-channel-redirect",
		url,
	}
}

// invoke runs a single tool command and maps its outcome to a parsed JSON
// value or a typed error. Activity events are dispatched for the start of
// the invocation and for its terminal outcome.
func (serv *Service) invoke(ctx context.Context, action string, subject string, args []string) (any, error) {
	invocationID := uuid.New()
	startedAt := time.Now()

	log.Emit(logger.NEW, "Invoking %s %s\n", serv.config.BinPath, strings.Join(args, " "))
	serv.dispatch(event.EXTRACTION_STARTED, invocationID, action, subject, "", startedAt)

	cmd := &toolCommand{
		bin:       serv.config.BinPath,
		args:      args,
		timeout:   time.Duration(serv.config.TimeoutSeconds) * time.Second,
		maxOutput: serv.config.MaxOutputBytes,
	}

	result, err := cmd.Run(ctx)
	if err != nil {
		log.Emit(logger.ERROR, "Invocation for %s '%s' failed: %v\n", action, subject, err)
		serv.dispatch(event.EXTRACTION_FAILED, invocationID, action, subject, err.Error(), startedAt)
		return nil, err
	}

	parsed, err := parseToolOutput(result)
	if err != nil {
		log.Emit(logger.ERROR, "Invocation for %s '%s' produced unusable output: %v\n", action, subject, err)
		serv.dispatch(event.EXTRACTION_FAILED, invocationID, action, subject, err.Error(), startedAt)
		return nil, err
	}

	log.Emit(logger.SUCCESS, "Invocation for %s '%s' complete in %s\n", action, subject, time.Since(startedAt))
	serv.dispatch(event.EXTRACTION_COMPLETE, invocationID, action, subject, "", startedAt)
	return parsed, nil
}

// parseToolOutput decodes the stdout of a completed invocation. Whitespace
// only output is treated the same as no output at all.
func parseToolOutput(result *toolResult) (any, error) {
	trimmed := bytes.TrimSpace(result.stdout)
	if len(trimmed) == 0 {
		return nil, &NoOutputError{Stderr: strings.TrimSpace(string(result.stderr))}
	}

	var parsed any
	if err := json.Unmarshal(trimmed, &parsed); err != nil {
		return nil, &ParseError{Err: err, RawOutput: string(result.stdout)}
	}

	return parsed, nil
}

func (serv *Service) dispatch(ev event.Event, id uuid.UUID, action string, subject string, detail string, startedAt time.Time) {
	if serv.eventBus == nil {
		return
	}

	serv.eventBus.Dispatch(ev, event.ExtractionActivity{
		ID:       id,
		Action:   action,
		Subject:  subject,
		Detail:   detail,
		Duration: time.Since(startedAt),
	})
}
