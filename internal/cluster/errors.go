package cluster

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/dreamware/taskfan/internal/task"
)

var (
	// ErrDispatch marks a failed concurrent sub-call: a worker execute or a
	// single request computation. It wraps the underlying cause.
	ErrDispatch = errors.New("dispatch failure")

	// ErrTopology is returned when the worker roster cannot take a task: it is
	// empty, unreachable, or smaller than the number of sub-tasks.
	ErrTopology = errors.New("topology error")

	// ErrNotBound is returned when the target process does not serve the
	// requested service name.
	ErrNotBound = errors.New("service not bound")
)

// Error kinds carried in the RPC error envelope.
const (
	KindInvalidArgument = "invalid_argument"
	KindDispatch        = "dispatch_failure"
	KindTopology        = "topology"
	KindNotBound        = "not_bound"
	KindInternal        = "internal"
)

// ErrorResponse is the body of every non-2xx RPC response.
type ErrorResponse struct {
	Kind  string `json:"kind" msgpack:"kind"`
	Error string `json:"error" msgpack:"error"`
}

// KindOf classifies err for the wire. Dispatch failures are checked before
// invalid arguments because a dispatch failure may wrap a worker's rejection.
func KindOf(err error) string {
	switch {
	case errors.Is(err, ErrTopology):
		return KindTopology
	case errors.Is(err, ErrDispatch):
		return KindDispatch
	case errors.Is(err, task.ErrInvalidArgument):
		return KindInvalidArgument
	case errors.Is(err, ErrNotBound):
		return KindNotBound
	default:
		return KindInternal
	}
}

// StatusFor maps an error kind to its HTTP status code.
func StatusFor(kind string) int {
	switch kind {
	case KindInvalidArgument:
		return http.StatusBadRequest
	case KindNotBound:
		return http.StatusNotFound
	case KindTopology:
		return http.StatusConflict
	case KindDispatch:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func sentinelFor(kind string) error {
	switch kind {
	case KindInvalidArgument:
		return task.ErrInvalidArgument
	case KindDispatch:
		return ErrDispatch
	case KindTopology:
		return ErrTopology
	case KindNotBound:
		return ErrNotBound
	default:
		return nil
	}
}

// RemoteError is a failure reported by the remote side of an RPC call.
// It unwraps to the sentinel matching its kind, so errors.Is works across
// the process boundary.
type RemoteError struct {
	Endpoint   Endpoint
	Kind       string
	Message    string
	StatusCode int
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: remote %s (%d): %s", e.Endpoint, e.Kind, e.StatusCode, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return sentinelFor(e.Kind)
}
