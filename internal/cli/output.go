package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	apperrors "github.com/idg10/rxrewrite/errors"
)

// Exit codes.
const (
	ExitSuccess      = 0
	ExitFailure      = 1 // the pipeline could not be prepared or failed while running
	ExitCommandError = 2 // bad flags, arguments or configuration
)

// ExitError carries the process exit code for a failed command. Reported
// errors have already been written to the output.
type ExitError struct {
	Code     int
	Err      error
	Reported bool
}

func (e *ExitError) Error() string { return e.Err.Error() }

func (e *ExitError) Unwrap() error { return e.Err }

// GetExitCode extracts the exit code from err. Errors that are not
// ExitErrors come from cobra's own flag and argument checks.
func GetExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return ExitCommandError
}

// Response is the JSON envelope written with --format json.
type Response struct {
	Status string               `json:"status"` // "ok" or "error"
	Data   any                  `json:"data,omitempty"`
	Error  *apperrors.ErrorBody `json:"error,omitempty"`
}

// Output writes command results as text or JSON.
type Output struct {
	Format    string
	Writer    io.Writer
	ErrWriter io.Writer // diagnostics, kept off Writer so JSON stays parseable
	Verbose   bool
}

// Success writes data. In text mode text renders it.
func (o *Output) Success(data any, text func(w io.Writer)) error {
	if o.Format == "json" {
		return json.NewEncoder(o.Writer).Encode(Response{Status: "ok", Data: data})
	}
	text(o.Writer)
	return nil
}

// Fail reports err and returns it as an ExitError with code.
func (o *Output) Fail(code int, err error) error {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal(err)
		appErr.Message = err.Error()
	}
	body := appErr.ToResponse().Error

	if o.Format == "json" {
		_ = json.NewEncoder(o.Writer).Encode(Response{Status: "error", Error: &body})
	} else {
		fmt.Fprintf(o.ErrWriter, "Error [%s]: %s\n", body.Code, body.Message)
		if cause := errors.Unwrap(err); cause != nil {
			fmt.Fprintf(o.ErrWriter, "Cause: %v\n", cause)
		}
		if o.Verbose && len(body.Details) > 0 {
			fmt.Fprintf(o.ErrWriter, "Details: %v\n", body.Details)
		}
	}
	return &ExitError{Code: code, Err: err, Reported: true}
}

// VerboseLog writes a diagnostic line when --verbose is set.
func (o *Output) VerboseLog(format string, args ...any) {
	if !o.Verbose {
		return
	}
	fmt.Fprintf(o.ErrWriter, format+"\n", args...)
}
