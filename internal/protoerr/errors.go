// Package protoerr defines the scheduler's error taxonomy and the
// conversion of those errors into gRPC status codes at the admin RPC
// boundary.
package protoerr

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Kind identifies which error taxonomy bucket an error belongs to.
type Kind int

const (
	// KindConfigLoad covers unreadable or invalid configuration. Fatal at startup.
	KindConfigLoad Kind = iota
	// KindPoolCreation covers failure to build the worker pool. Fatal at startup.
	KindPoolCreation
	// KindTaskExecution covers missing executors, bad payloads, or enqueue
	// into a torn-down pool. Surfaced to admin clients as FailedPrecondition.
	KindTaskExecution
	// KindSchedulerService covers RPC bind/serve failures. Fatal.
	KindSchedulerService
	// KindLoggerSetup is non-fatal; callers degrade to a bare stdout logger.
	KindLoggerSetup
	// KindDataLayer covers data-store I/O failures. Non-fatal for dispatch.
	KindDataLayer
	// KindUnimplemented covers unsupported modes (e.g. a Worker node used as scheduler).
	KindUnimplemented
	// KindNoAvailableWorkers covers a fabric distribute_task call that finds no
	// registered worker eligible for the task.
	KindNoAvailableWorkers
)

func (k Kind) String() string {
	switch k {
	case KindConfigLoad:
		return "ConfigLoadError"
	case KindPoolCreation:
		return "PoolCreationError"
	case KindTaskExecution:
		return "TaskExecutionError"
	case KindSchedulerService:
		return "SchedulerServiceError"
	case KindLoggerSetup:
		return "LoggerSetupError"
	case KindDataLayer:
		return "DataLayerError"
	case KindUnimplemented:
		return "SchedulerUnimplemented"
	case KindNoAvailableWorkers:
		return "NoAvailableWorkers"
	default:
		return "UnknownError"
	}
}

// SchedulerError is the scheduler's taxonomy error. It wraps an
// underlying cause (optional) with a Kind and a human-readable message.
type SchedulerError struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *SchedulerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *SchedulerError) Unwrap() error { return e.Cause }

// New builds a SchedulerError of the given kind.
func New(kind Kind, message string) *SchedulerError {
	return &SchedulerError{Kind: kind, Message: message}
}

// Wrap builds a SchedulerError of the given kind around a cause.
func Wrap(kind Kind, message string, cause error) *SchedulerError {
	return &SchedulerError{Kind: kind, Message: message, Cause: cause}
}

// KindOf extracts the Kind from err, if err is (or wraps) a *SchedulerError.
func KindOf(err error) (Kind, bool) {
	var se *SchedulerError
	if errors.As(err, &se) {
		return se.Kind, true
	}
	return 0, false
}

// ToStatus converts a SchedulerError into the gRPC status the admin RPC
// boundary should return, per spec.md §7's propagation rules. Errors that
// are not a *SchedulerError are reported as Unknown.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	kind, ok := KindOf(err)
	if !ok {
		return status.Error(codes.Unknown, err.Error())
	}
	switch kind {
	case KindTaskExecution:
		return status.Error(codes.FailedPrecondition, err.Error())
	case KindNoAvailableWorkers:
		return status.Error(codes.Aborted, err.Error())
	case KindUnimplemented:
		return status.Error(codes.Unimplemented, err.Error())
	default:
		return status.Error(codes.Internal, err.Error())
	}
}
