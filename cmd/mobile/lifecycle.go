// Package main builds the toodle shared library for mobile hosts.
//
//	go build -buildmode=c-shared -o libtoodle.so ./cmd/mobile
//
// The C entry points live in ffi.go. This file holds the library state they
// share: the bridge instance and the last reported error.
package main

import (
	"os"
	"sync"

	"github.com/kimhsiao/toodle/internal/bridge"
	"github.com/kimhsiao/toodle/internal/config"
	apperrors "github.com/kimhsiao/toodle/internal/errors"
	"github.com/kimhsiao/toodle/internal/logging"
)

var (
	mu   sync.RWMutex
	core *bridge.Bridge

	lastMu  sync.RWMutex
	lastErr error
)

// initialize creates the bridge from the config at path (empty for defaults
// plus environment). Calling it again before shutdown is a no-op.
func initialize(path string) error {
	mu.Lock()
	defer mu.Unlock()
	if core != nil {
		return nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "failed to load config", err)
	}
	logging.Init(os.Stderr, cfg.LogLevel())
	// Init only builds the logger once per process; a later Init after
	// Cleanup still applies its configured level.
	logging.Get().SetLevel(cfg.LogLevel())
	core = bridge.New(cfg)

	logging.Info("Library initialized", map[string]interface{}{
		"config":         path,
		"sync_timeout_s": cfg.Sync.TimeoutSeconds,
	})
	return nil
}

// shutdown releases every live handle and closes open stores.
func shutdown() error {
	mu.Lock()
	defer mu.Unlock()
	if core == nil {
		return nil
	}
	snap := core.Stats()
	err := core.Close()
	core = nil

	fields := map[string]interface{}{
		"strings_live": snap.Strings.Live,
		"handles_live": snap.LiveHandles(),
	}
	if leaked := snap.Leaked(); len(leaked) > 0 {
		fields["leaked_kinds"] = leaked
	}
	logging.Info("Library shut down", fields)
	logging.Get().Sync()
	return err
}

func instance() (*bridge.Bridge, error) {
	mu.RLock()
	defer mu.RUnlock()
	if core == nil {
		return nil, apperrors.New(apperrors.ErrNotInitialized, "library not initialized; call Init first")
	}
	return core, nil
}

// record keeps err for GetLastError and maps it to a status.
func record(err error) int32 {
	if err != nil {
		lastMu.Lock()
		lastErr = err
		lastMu.Unlock()
	}
	return apperrors.StatusOf(err)
}

func lastMessage() string {
	lastMu.RLock()
	defer lastMu.RUnlock()
	if lastErr == nil {
		return ""
	}
	return lastErr.Error()
}

// listIndex converts a C list index to int, rejecting values the platform
// int cannot hold instead of letting them wrap.
func listIndex(i int64) (int, error) {
	n := int(i)
	if int64(n) != i {
		return 0, apperrors.Newf(apperrors.ErrOutOfBounds, "index %d out of range", i)
	}
	return n, nil
}

// with runs fn against the live bridge and records its outcome.
func with(fn func(b *bridge.Bridge) error) int32 {
	b, err := instance()
	if err != nil {
		return record(err)
	}
	return record(fn(b))
}

func main() {
	// Not used when loaded as a shared library.
}
