package extractor

import (
	"fmt"
	"time"
)

// StartError indicates the external tool could not be spawned at all,
// typically because the binary is missing from the host.
type StartError struct {
	Bin string
	Err error
}

func (e *StartError) Error() string {
	return fmt.Sprintf("Failed to start %s: %s", e.Bin, e.Err.Error())
}

func (e *StartError) Unwrap() error { return e.Err }

// ExitError indicates the tool ran but terminated with a non-zero exit
// code. The stderr captured during the run is retained for diagnosis.
type ExitError struct {
	ExitCode int
	Stderr   string
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("extraction tool exited with code %d", e.ExitCode)
}

// NoOutputError indicates the tool exited successfully but printed nothing
// to stdout. Stderr may still hold an explanation.
type NoOutputError struct {
	Stderr string
}

func (e *NoOutputError) Error() string {
	return "extraction tool produced no output"
}

// ParseError indicates the tool's stdout could not be decoded as JSON. The
// raw output is retained so the caller can attach it for diagnosis.
type ParseError struct {
	Err       error
	RawOutput string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse extraction tool output: %s", e.Err.Error())
}

func (e *ParseError) Unwrap() error { return e.Err }

// TimeoutError indicates the tool was killed for exceeding the configured
// execution deadline.
type TimeoutError struct {
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("extraction tool timed out after %s", e.Timeout)
}

// OutputLimitError indicates the tool was killed for producing more output
// than the configured cap allows.
type OutputLimitError struct {
	Limit int64
}

func (e *OutputLimitError) Error() string {
	return fmt.Sprintf("extraction tool output exceeded the %d byte limit", e.Limit)
}
