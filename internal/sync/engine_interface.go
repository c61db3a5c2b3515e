package sync

import (
	"context"
	"time"
)

// Syncer defines the interface for sync engine operations.
// This interface allows for mocking in tests and alternative implementations.
type Syncer interface {
	// Sync performs one round trip with the server at serverURL for userUUID.
	Sync(ctx context.Context, serverURL, userUUID string) (*SyncResult, error)

	// Status returns the current sync status.
	Status() SyncStatus

	// LastSync returns the timestamp of the last successful sync.
	LastSync() *time.Time

	// LastError returns the last error that occurred during sync.
	LastError() error
}

var _ Syncer = (*SyncEngine)(nil)
