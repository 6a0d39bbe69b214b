package fetch

import (
	"context"
	"errors"
	"net"

	"github.com/jonesrussell/gamesync/internal/cache"
)

// Class is the engine-visible classification of a fetch attempt.
type Class int

const (
	// ClassSuccess means usable data was returned.
	ClassSuccess Class = iota
	// ClassFailed means a well-formed negative response: the entity
	// does not exist, has no data, or the payload was malformed.
	ClassFailed
	// ClassErrored means a transport or protocol error: timeout,
	// connection failure, rate limiting, or an unexpected HTTP status.
	ClassErrored
)

// Error codes recorded to the status cache for errored attempts.
const (
	CodeTimeout     cache.Status = "timeout"
	CodeConnection  cache.Status = "connection_error"
	CodeRateLimited cache.Status = "rate_limited"
	CodeHTTPError   cache.Status = "http_error"
)

// Outcome is the result of one fetch attempt for one work item.
type Outcome struct {
	Item  WorkItem
	Class Class
	// Code is the cache status recorded for errored attempts.
	Code cache.Status
	// Rows holds zero or more output-table records on success.
	Rows []map[string]string
	Err  error
}

// Success builds a successful outcome carrying the given rows.
func Success(item WorkItem, rows ...map[string]string) Outcome {
	return Outcome{Item: item, Class: ClassSuccess, Rows: rows}
}

// Failed builds a semantic-negative outcome. A failed outcome may
// still carry rows when the source records not-found entities in its
// output table.
func Failed(item WorkItem, err error, rows ...map[string]string) Outcome {
	return Outcome{Item: item, Class: ClassFailed, Err: err, Rows: rows}
}

// Errored builds a transport-error outcome, deriving the cache code
// from the error when not supplied.
func Errored(item WorkItem, err error) Outcome {
	return Outcome{Item: item, Class: ClassErrored, Code: classifyError(err), Err: err}
}

// classifyError maps a transport error to its cache status code.
func classifyError(err error) cache.Status {
	switch {
	case errors.Is(err, ErrRateLimited):
		return CodeRateLimited
	case IsTimeout(err):
		return CodeTimeout
	case isStatusError(err):
		return CodeHTTPError
	default:
		return CodeConnection
	}
}

// IsTimeout reports whether err is a request deadline or network
// timeout.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func isStatusError(err error) bool {
	var statusErr *StatusError
	return errors.As(err, &statusErr)
}
