package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"sync"
	"time"
)

type (
	// toolCommand is a single ephemeral invocation of the external
	// extraction tool: the argument list, the bounds on its execution, and
	// (once run) the accumulated output streams. It is created per request
	// and discarded once a result has been produced.
	toolCommand struct {
		bin       string
		args      []string
		timeout   time.Duration
		maxOutput int64
	}

	toolResult struct {
		stdout []byte
		stderr []byte
	}
)

// Run spawns the tool and blocks until it exits, incrementally buffering its
// stdout and stderr as data arrives. The returned error is one of the typed
// errors from this package describing which stage of the invocation failed.
func (cmd *toolCommand) Run(ctx context.Context) (*toolResult, error) {
	runCtx := ctx
	var cancel context.CancelFunc
	if cmd.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, cmd.timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	proc := exec.CommandContext(runCtx, cmd.bin, cmd.args...)
	stdout := newCappedBuffer(cmd.maxOutput, cancel)
	stderr := newCappedBuffer(cmd.maxOutput, cancel)
	proc.Stdout = stdout
	proc.Stderr = stderr

	// If the tool is killed but a grandchild process keeps the output pipes
	// open, Wait must not block until that grandchild decides to exit.
	proc.WaitDelay = time.Second

	if err := proc.Start(); err != nil {
		return nil, &StartError{Bin: cmd.bin, Err: err}
	}

	waitErr := proc.Wait()

	// The buffers cancel runCtx when their cap is breached, which kills the
	// child; check for that before interpreting the exit status.
	if stdout.exceeded() || stderr.exceeded() {
		return nil, &OutputLimitError{Limit: cmd.maxOutput}
	}
	if cmd.timeout > 0 && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return nil, &TimeoutError{Timeout: cmd.timeout}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			return nil, &ExitError{ExitCode: exitErr.ExitCode(), Stderr: stderr.contents()}
		}

		return nil, fmt.Errorf("extraction tool wait failed: %w", waitErr)
	}

	return &toolResult{stdout: stdout.bytes(), stderr: stderr.bytes()}, nil
}

// cappedBuffer accumulates subprocess output up to a fixed limit. Breaching
// the limit aborts the invocation by cancelling the run context, rather than
// letting a misbehaving tool grow the buffer without bound. A limit of zero
// disables the cap.
type cappedBuffer struct {
	mu       sync.Mutex
	buffer   bytes.Buffer
	limit    int64
	abort    context.CancelFunc
	breached bool
}

func newCappedBuffer(limit int64, abort context.CancelFunc) *cappedBuffer {
	return &cappedBuffer{limit: limit, abort: abort}
}

func (buf *cappedBuffer) Write(p []byte) (int, error) {
	buf.mu.Lock()
	defer buf.mu.Unlock()

	if buf.limit > 0 && int64(buf.buffer.Len())+int64(len(p)) > buf.limit {
		if !buf.breached {
			buf.breached = true
			buf.abort()
		}

		// Swallow the excess; the cancelled context will kill the child.
		return len(p), nil
	}

	return buf.buffer.Write(p)
}

func (buf *cappedBuffer) exceeded() bool {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return buf.breached
}

func (buf *cappedBuffer) bytes() []byte {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return buf.buffer.Bytes()
}

func (buf *cappedBuffer) contents() string {
	buf.mu.Lock()
	defer buf.mu.Unlock()
	return buf.buffer.String()
}
