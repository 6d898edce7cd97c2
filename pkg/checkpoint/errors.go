package checkpoint

import "errors"

// Sentinel errors returned for coordinator misuse. Rejected reports leave the
// tracker unchanged.
var (
	// ErrUnknownCheckpoint is returned when completion or failure is reported
	// for an id that is not pending: it was never triggered, or it already
	// reached a terminal status.
	ErrUnknownCheckpoint = errors.New("checkpoint is not pending")

	// ErrDuplicateCheckpoint is returned when an id is triggered while a
	// checkpoint with the same id is still pending.
	ErrDuplicateCheckpoint = errors.New("checkpoint already pending")

	// ErrNothingToRestore is returned when a restore names neither an external
	// path nor a checkpoint this tracker has seen complete.
	ErrNothingToRestore = errors.New("restore before any checkpoint exists")
)
