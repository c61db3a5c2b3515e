// Package bridge is the boundary layer behind the C entry points. It turns
// records into opaque handles, projects collections as indexable lists and
// wraps the record store, reporting every failure as a coded error.
//
// Values behind a handle are not locked. Mutating the same handle from
// several threads at once without external synchronization is undefined.
package bridge

import (
	stdsync "sync"

	"github.com/kimhsiao/toodle/internal/config"
	apperrors "github.com/kimhsiao/toodle/internal/errors"
	"github.com/kimhsiao/toodle/internal/handles"
	"github.com/kimhsiao/toodle/internal/logging"
	"github.com/kimhsiao/toodle/internal/telemetry"
)

// Handle is an opaque reference handed to callers. Zero is the null handle.
type Handle = handles.Handle

// Bridge owns the handle arena and the counters for one library instance.
type Bridge struct {
	cfg      config.Config
	arena    *handles.Arena
	counters *telemetry.Counters

	mu      stdsync.Mutex
	lastErr error
}

// New creates a Bridge configured by cfg.
func New(cfg config.Config) *Bridge {
	b := &Bridge{
		cfg:      cfg,
		arena:    handles.New(),
		counters: telemetry.New(),
	}
	b.arena.Observe(b.counters.Observe)
	return b
}

// Counters exposes the allocation counters, e.g. for C string accounting.
func (b *Bridge) Counters() *telemetry.Counters {
	return b.counters
}

// Stats returns a snapshot of the allocation counters.
func (b *Bridge) Stats() telemetry.Snapshot {
	return b.counters.Snapshot()
}

// Live returns the number of handles not yet destroyed.
func (b *Bridge) Live() int {
	return b.arena.Live()
}

// LastError returns the most recent failure reported by any operation.
func (b *Bridge) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// ClearError forgets the last failure.
func (b *Bridge) ClearError() {
	b.mu.Lock()
	b.lastErr = nil
	b.mu.Unlock()
}

// Close releases every live handle and closes any open stores.
func (b *Bridge) Close() error {
	var firstErr error
	leaked := 0
	for _, v := range b.arena.Drain() {
		leaked++
		if s, ok := v.(*store); ok {
			if err := s.close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	if leaked > 0 {
		logging.Warn("Released handles still live at shutdown", map[string]interface{}{
			"count": leaked,
		})
	}
	return firstErr
}

// fail records err as the last error and returns it. Handle contract
// violations panic instead when the configuration asks for it.
func (b *Bridge) fail(op string, err error) error {
	if err == nil {
		return nil
	}
	b.mu.Lock()
	b.lastErr = err
	b.mu.Unlock()

	logging.Warn("Boundary operation failed", map[string]interface{}{
		"op":    op,
		"code":  string(apperrors.CodeOf(err)),
		"error": err.Error(),
	})

	if b.cfg.Boundary.AbortOnContractViolation && apperrors.IsContractViolation(err) {
		panic(op + ": " + err.Error())
	}
	return err
}

func get[T any](b *Bridge, op string, h Handle, kind handles.Kind) (T, error) {
	v, err := handles.Get[T](b.arena, h, kind)
	if err != nil {
		return v, b.fail(op, err)
	}
	return v, nil
}

func getMut[T any](b *Bridge, op string, h Handle, kind handles.Kind) (T, error) {
	v, err := handles.GetMut[T](b.arena, h, kind)
	if err != nil {
		return v, b.fail(op, err)
	}
	return v, nil
}

func (b *Bridge) destroy(op string, h Handle, kind handles.Kind) (any, error) {
	v, err := b.arena.Remove(h, kind)
	if err != nil {
		return nil, b.fail(op, err)
	}
	return v, nil
}
