package scheduler

import "errors"

// Registration errors are programming errors and fail startup.
var (
	ErrInvalidJob     = errors.New("invalid job")
	ErrDuplicateJob   = errors.New("duplicate job name")
	ErrAlreadyStarted = errors.New("scheduler already started")
)

var (
	ErrUnknownJob = errors.New("unknown job")
	ErrJobRunning = errors.New("job is already running")
	ErrStopping   = errors.New("scheduler is shutting down")

	ErrHandlersRunning = errors.New("handlers still running after cancellation")
)
