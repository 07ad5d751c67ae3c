package sync

import (
	"errors"
	"fmt"

	"github.com/mrsbim/bimsync/internal/connection"
	"github.com/mrsbim/bimsync/internal/store"
)

// Errors reported by the engine.
//
// Check them with errors.Is():
//
//	if errors.Is(result.Err, sync.ErrRemote) {
//	    // the external system rejected or failed the call
//	}
var (
	// ErrSetup wraps failures that prevent a run from starting.
	ErrSetup = errors.New("synchronization setup failed")

	// ErrRemote wraps failures of connector calls.
	ErrRemote = errors.New("remote call failed")

	// ErrParentNotSynchronized is returned for a child objective whose parent
	// has no identity on the side being written.
	ErrParentNotSynchronized = errors.New("parent objective is not synchronized")

	// ErrProjectNotSynchronized is returned for an objective whose project
	// has no identity on the side being written.
	ErrProjectNotSynchronized = errors.New("project is not synchronized")
)

func remoteError(op, externalID string, err error) error {
	if externalID == "" {
		return fmt.Errorf("%w: %s: %w", ErrRemote, op, err)
	}
	return fmt.Errorf("%w: %s %s: %w", ErrRemote, op, externalID, err)
}

// IsRemote reports whether err came from the external system.
func IsRemote(err error) bool {
	return err != nil && errors.Is(err, ErrRemote)
}

// IsPersistence reports whether err came from committing to the local store.
func IsPersistence(err error) bool {
	return err != nil && errors.Is(err, store.ErrPersistence)
}

// IsSetup reports whether err aborted a run before any entity was processed.
func IsSetup(err error) bool {
	return err != nil && errors.Is(err, ErrSetup)
}

// IsRetryable reports whether running again may succeed without changes to
// the data or configuration.
func IsRetryable(err error) bool {
	return connection.IsRetryable(err)
}
