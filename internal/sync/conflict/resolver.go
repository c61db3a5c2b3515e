// Package conflict resolves concurrent edits of the same item on two devices.
// The default strategy is "last write wins" on the item's UpdatedAt.
package conflict

import (
	"time"

	"github.com/kimhsiao/toodle/internal/logging"
	"github.com/kimhsiao/toodle/internal/models"
)

// ResolutionStrategy defines how conflicts are resolved.
type ResolutionStrategy string

const (
	ResolutionStrategyLastWriteWins ResolutionStrategy = "last_write_wins"
	ResolutionStrategyManual        ResolutionStrategy = "manual"
)

// Resolution values written to the conflict log.
const (
	ResolutionLocalWins    = "local_wins"
	ResolutionRemoteWins   = "remote_wins"
	ResolutionManualReview = "manual_review_required"
)

// Resolver handles conflict resolution during synchronization.
type Resolver struct {
	strategy ResolutionStrategy
}

// NewResolver creates a new Resolver with the specified strategy.
func NewResolver(strategy ResolutionStrategy) *Resolver {
	return &Resolver{
		strategy: strategy,
	}
}

// Conflict represents a detected conflict between local and remote changes.
type Conflict struct {
	ItemUUID        models.UUID
	LocalItem       *models.Item
	RemoteItem      *models.Item
	LocalTimestamp  int64
	RemoteTimestamp int64
	DetectedAt      int64
}

// ResolveResult represents the outcome of conflict resolution.
type ResolveResult struct {
	WinningItem *models.Item
	LosingItem  *models.Item
	RemoteWins  bool
	Strategy    ResolutionStrategy
	ConflictLog *models.ConflictLog
}

// Resolve resolves a conflict using the configured strategy.
func (r *Resolver) Resolve(conflict *Conflict) (*ResolveResult, error) {
	if conflict == nil || conflict.LocalItem == nil || conflict.RemoteItem == nil {
		return nil, ErrInvalidConflict
	}
	if conflict.LocalItem.UUID != conflict.RemoteItem.UUID {
		return nil, ErrItemUUIDMismatch
	}

	switch r.strategy {
	case ResolutionStrategyManual:
		return r.resolveManual(conflict)
	default:
		return r.resolveLastWriteWins(conflict)
	}
}

// resolveLastWriteWins keeps the item with the newer UpdatedAt. Ties go to
// the remote copy: the server keeps the first copy it saw at a timestamp, so
// every device adopting it converges.
func (r *Resolver) resolveLastWriteWins(conflict *Conflict) (*ResolveResult, error) {
	local, remote := conflict.LocalItem, conflict.RemoteItem

	result := &ResolveResult{
		WinningItem: local,
		LosingItem:  remote,
		Strategy:    ResolutionStrategyLastWriteWins,
	}
	resolution := ResolutionLocalWins
	if remote.UpdatedAt >= local.UpdatedAt {
		result.WinningItem, result.LosingItem = remote, local
		result.RemoteWins = true
		resolution = ResolutionRemoteWins
	}

	result.ConflictLog = &models.ConflictLog{
		ItemUUID:        local.UUID,
		LocalTimestamp:  local.UpdatedAt,
		RemoteTimestamp: remote.UpdatedAt,
		Resolution:      resolution,
		DetectedAt:      time.Now().Unix(),
	}

	logging.Info("Conflict resolved using last-write-wins", map[string]interface{}{
		"item_uuid":        local.UUID,
		"local_timestamp":  local.UpdatedAt,
		"remote_timestamp": remote.UpdatedAt,
		"resolution":       resolution,
	})
	return result, nil
}

// resolveManual keeps the local version and marks the conflict for review.
func (r *Resolver) resolveManual(conflict *Conflict) (*ResolveResult, error) {
	local, remote := conflict.LocalItem, conflict.RemoteItem

	logging.Warn("Conflict queued for manual review", map[string]interface{}{
		"item_uuid":        local.UUID,
		"local_timestamp":  local.UpdatedAt,
		"remote_timestamp": remote.UpdatedAt,
	})

	return &ResolveResult{
		WinningItem: local,
		LosingItem:  remote,
		Strategy:    ResolutionStrategyManual,
		ConflictLog: &models.ConflictLog{
			ItemUUID:        local.UUID,
			LocalTimestamp:  local.UpdatedAt,
			RemoteTimestamp: remote.UpdatedAt,
			Resolution:      ResolutionManualReview,
			DetectedAt:      time.Now().Unix(),
		},
	}, nil
}

// DetectConflict reports a conflict when both sides hold the same item with
// different content.
func (r *Resolver) DetectConflict(localItem, remoteItem *models.Item) (*Conflict, bool) {
	if localItem == nil || remoteItem == nil {
		return nil, false
	}
	if localItem.UUID != remoteItem.UUID {
		return nil, false
	}
	if SameContent(localItem, remoteItem) {
		return nil, false
	}

	logging.Debug("Concurrent edit conflict detected", map[string]interface{}{
		"item_uuid":        localItem.UUID,
		"local_timestamp":  localItem.UpdatedAt,
		"remote_timestamp": remoteItem.UpdatedAt,
	})

	return &Conflict{
		ItemUUID:        localItem.UUID,
		LocalItem:       localItem,
		RemoteItem:      remoteItem,
		LocalTimestamp:  localItem.UpdatedAt,
		RemoteTimestamp: remoteItem.UpdatedAt,
		DetectedAt:      time.Now().Unix(),
	}, true
}

// ResolveMultiple resolves multiple conflicts in batch.
func (r *Resolver) ResolveMultiple(conflicts []*Conflict) ([]*ResolveResult, error) {
	results := make([]*ResolveResult, 0, len(conflicts))
	for _, conflict := range conflicts {
		result, err := r.Resolve(conflict)
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// SameContent compares the user-visible fields of two items. Row ids and
// timestamps are ignored.
func SameContent(a, b *models.Item) bool {
	if a.Name != b.Name || !sameTime(a.DueDate, b.DueDate) || !sameTime(a.CompletionDate, b.CompletionDate) {
		return false
	}
	if len(a.Labels) != len(b.Labels) {
		return false
	}
	names := make(map[string]bool, len(a.Labels))
	for _, l := range a.Labels {
		names[l.Name] = true
	}
	for _, l := range b.Labels {
		if !names[l.Name] {
			return false
		}
	}
	return true
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Unix() == b.Unix()
}

// Errors
var (
	ErrInvalidConflict  = &ConflictError{Message: "invalid conflict: both items must be non-nil"}
	ErrItemUUIDMismatch = &ConflictError{Message: "item UUID mismatch"}
)

// ConflictError represents a conflict resolution error.
type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}
