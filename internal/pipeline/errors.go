package pipeline

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/kkdai/youtube/v2"
)

// Category classifies pipeline failures for exit codes and logging.
type Category string

const (
	CategoryTransient    Category = "transient"
	CategoryNoResults    Category = "no_results"
	CategoryFallback     Category = "fallback_exhausted"
	CategoryDownload     Category = "download"
	CategoryDirect       Category = "direct_resolution"
	CategoryInvalidInput Category = "invalid_input"
	CategoryFilesystem   Category = "filesystem"
)

// CategorizedError attaches a Category to an underlying error.
type CategorizedError struct {
	Category Category
	Err      error
}

func (e CategorizedError) Error() string {
	return e.Err.Error()
}

func (e CategorizedError) Unwrap() error {
	return e.Err
}

func wrapCategory(category Category, err error) error {
	if err == nil {
		return nil
	}
	return CategorizedError{Category: category, Err: err}
}

// CategoryOf returns the category of an error, or CategoryTransient for
// errors that were never classified (unknown failures are retried, not
// surfaced).
func CategoryOf(err error) Category {
	if err == nil {
		return ""
	}
	var ce CategorizedError
	if errors.As(err, &ce) {
		return ce.Category
	}
	return CategoryTransient
}

// ExitCode maps an error to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch CategoryOf(err) {
	case CategoryInvalidInput:
		return 2
	case CategoryNoResults:
		return 3
	case CategoryFallback:
		return 4
	case CategoryDownload, CategoryDirect:
		return 5
	case CategoryFilesystem:
		return 6
	default:
		return 1
	}
}

type reportedError struct {
	err error
}

func (e reportedError) Error() string {
	return e.err.Error()
}

func (e reportedError) Unwrap() error {
	return e.err
}

// MarkReported wraps an error that has already been logged so callers
// do not print it twice.
func MarkReported(err error) error {
	if err == nil {
		return nil
	}
	return reportedError{err: err}
}

// IsReported returns true if the error has already been printed to stderr.
func IsReported(err error) bool {
	var re reportedError
	return errors.As(err, &re)
}

// isTransientErr reports whether an error looks like an upstream hiccup
// worth retrying: timeouts, connection resets, throttling responses.
func isTransientErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var statusErr youtube.ErrUnexpectedStatusCode
	if errors.As(err, &statusErr) {
		switch int(statusErr) {
		case http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout:
			return true
		}
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr)
}
