// Package sync exchanges items and labels with a sync server over a websocket
// and merges the answer into the local store, by default with last-write-wins.
package sync

import (
	"context"
	"fmt"
	"net/http"
	stdsync "sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/kimhsiao/toodle/internal/db"
	apperrors "github.com/kimhsiao/toodle/internal/errors"
	"github.com/kimhsiao/toodle/internal/logging"
	"github.com/kimhsiao/toodle/internal/models"
	"github.com/kimhsiao/toodle/internal/sync/conflict"
)

// SyncStatus represents the current sync status.
type SyncStatus string

const (
	SyncStatusIdle    SyncStatus = "idle"
	SyncStatusSyncing SyncStatus = "syncing"
	SyncStatusFailed  SyncStatus = "failed"
)

// DefaultTimeout bounds a sync round trip when none is configured.
const DefaultTimeout = 30 * time.Second

// SyncResult represents the result of a sync operation.
type SyncResult struct {
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
	Uploaded   int
	Downloaded int
	Conflicts  int
	Error      string
}

// SyncEngine performs one-shot websocket syncs for a local store.
type SyncEngine struct {
	repo     db.SyncRepository
	resolver *conflict.Resolver
	dialer   *websocket.Dialer
	timeout  time.Duration

	mu       stdsync.Mutex
	status   SyncStatus
	lastSync *time.Time
	lastErr  error
}

// NewSyncEngine creates a SyncEngine over repo. A zero timeout uses
// DefaultTimeout; an empty strategy uses last-write-wins.
func NewSyncEngine(repo db.SyncRepository, timeout time.Duration, strategy conflict.ResolutionStrategy) *SyncEngine {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if strategy == "" {
		strategy = conflict.ResolutionStrategyLastWriteWins
	}
	return &SyncEngine{
		repo:     repo,
		resolver: conflict.NewResolver(strategy),
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		timeout: timeout,
		status:  SyncStatusIdle,
	}
}

// Status returns the current sync status.
func (e *SyncEngine) Status() SyncStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// LastSync returns the timestamp of the last successful sync.
func (e *SyncEngine) LastSync() *time.Time {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSync
}

// LastError returns the last sync error.
func (e *SyncEngine) LastError() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// Sync uploads every local item and label for userUUID to the server at
// serverURL, then applies the merged set it answers with. Failures carry
// the SYNC_FAILED code unless the local store failed.
func (e *SyncEngine) Sync(ctx context.Context, serverURL, userUUID string) (*SyncResult, error) {
	e.mu.Lock()
	if e.status == SyncStatusSyncing {
		e.mu.Unlock()
		return nil, apperrors.New(apperrors.ErrSyncFailed, "sync already in progress")
	}
	e.status = SyncStatusSyncing
	e.mu.Unlock()

	result := &SyncResult{StartTime: time.Now()}
	err := e.run(ctx, serverURL, userUUID, result)

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(result.StartTime)

	e.mu.Lock()
	e.lastErr = err
	if err != nil {
		e.status = SyncStatusFailed
		result.Error = err.Error()
	} else {
		e.status = SyncStatusIdle
		end := result.EndTime
		e.lastSync = &end
	}
	e.mu.Unlock()

	if err != nil {
		logging.Warn("Sync failed", map[string]interface{}{
			"server": serverURL,
			"error":  err.Error(),
		})
		return result, err
	}
	logging.Info("Sync completed", map[string]interface{}{
		"server":     serverURL,
		"uploaded":   result.Uploaded,
		"downloaded": result.Downloaded,
		"conflicts":  result.Conflicts,
		"duration":   result.Duration.Milliseconds(),
	})
	return result, nil
}

func (e *SyncEngine) run(ctx context.Context, serverURL, userUUID string, result *SyncResult) error {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	items, err := e.repo.FetchItems()
	if err != nil {
		return err
	}
	labels, err := e.repo.FetchLabels()
	if err != nil {
		return err
	}

	merged, err := e.exchange(ctx, serverURL, userUUID, items, labels)
	if err != nil {
		return err
	}
	result.Uploaded = len(items)

	local := make(map[models.UUID]*models.Item, len(items))
	for i := range items {
		local[items[i].UUID] = &items[i]
	}

	for _, l := range merged.Labels {
		if err := e.repo.UpsertLabel(l); err != nil {
			return err
		}
	}

	var conflicts []*conflict.Conflict
	for i := range merged.Items {
		remote := &merged.Items[i]
		remote.ID = nil

		mine, ok := local[remote.UUID]
		if !ok {
			if err := e.repo.UpsertItem(remote); err != nil {
				return err
			}
			result.Downloaded++
			continue
		}

		if c, found := e.resolver.DetectConflict(mine, remote); found {
			conflicts = append(conflicts, c)
		}
	}
	if len(conflicts) == 0 {
		return nil
	}

	resolved, err := e.resolver.ResolveMultiple(conflicts)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrSyncFailed, "failed to resolve conflict", err)
	}
	result.Conflicts = len(resolved)
	for _, r := range resolved {
		if err := e.repo.CreateConflictLog(r.ConflictLog); err != nil {
			return err
		}
		if r.RemoteWins {
			if err := e.repo.UpsertItem(r.WinningItem); err != nil {
				return err
			}
			result.Downloaded++
		}
	}
	return nil
}

// exchange performs the push/merged round trip.
func (e *SyncEngine) exchange(ctx context.Context, serverURL, userUUID string, items []models.Item, labels []models.Label) (*Envelope, error) {
	conn, _, err := e.dialer.DialContext(ctx, serverURL, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSyncFailed, "failed to connect to sync server", err)
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		conn.SetWriteDeadline(deadline)
		conn.SetReadDeadline(deadline)
	}
	// Unblock reads if the caller cancels before the deadline.
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	push := newEnvelope(MessagePush, userUUID)
	push.Items = items
	push.Labels = labels
	if err := conn.WriteJSON(push); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSyncFailed, "failed to send local changes", err)
	}

	var reply Envelope
	if err := conn.ReadJSON(&reply); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrSyncFailed, "failed to read merged changes", err)
	}

	conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))

	switch reply.Type {
	case MessageMerged:
		return &reply, nil
	case MessageFailed:
		return nil, apperrors.Newf(apperrors.ErrSyncFailed, "sync server refused: %s", reply.Error)
	default:
		return nil, apperrors.Newf(apperrors.ErrSyncFailed, "unexpected sync message %q", reply.Type)
	}
}

// String summarizes the result for logs.
func (r *SyncResult) String() string {
	return fmt.Sprintf("uploaded=%d downloaded=%d conflicts=%d duration=%s",
		r.Uploaded, r.Downloaded, r.Conflicts, r.Duration)
}
