// Package main runs the development sync server. Devices connect to
// ws://<addr>/sync and exchange items and labels for a user; the server
// keeps the last-write-wins merge in memory. Push counters are served at
// /metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kimhsiao/toodle/internal/config"
	"github.com/kimhsiao/toodle/internal/logging"
	"github.com/kimhsiao/toodle/internal/sync"
	"github.com/kimhsiao/toodle/internal/telemetry"
)

// Version is set at build time
var Version = "0.1.0"

func main() {
	configPath := flag.String("config", os.Getenv(config.EnvConfigPath), "path to TOML config")
	addr := flag.String("addr", "", "listen address (overrides sync.addr)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Init(os.Stderr, logging.LevelInfo)
		logging.Error("Failed to load config", err)
		os.Exit(1)
	}
	logging.Init(os.Stderr, cfg.LogLevel())
	defer logging.Get().Sync()

	if *addr != "" {
		cfg.Sync.Addr = *addr
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	server := sync.NewServer(localOrigin)
	counters := newCounters()
	server.SetCounters(counters)
	if err := serve(ctx, cfg.Sync.Addr, server, counters); err != nil {
		logging.Error("Sync server stopped", err)
		os.Exit(1)
	}
}

// serve runs the sync server on addr until ctx is done.
func serve(ctx context.Context, addr string, server *sync.Server, counters *telemetry.Counters) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMux(server, counters),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info("Sync server starting", map[string]interface{}{
			"addr":    addr,
			"version": Version,
		})
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logging.Info("Sync server stopped", map[string]interface{}{"users": server.Users()})
	return nil
}

// newCounters builds the server's counters with the Go runtime collectors
// registered alongside.
func newCounters() *telemetry.Counters {
	counters := telemetry.New()
	counters.Registry().MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return counters
}

func newMux(server *sync.Server, counters *telemetry.Counters) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/sync", server)
	mux.Handle("/metrics", promhttp.HandlerFor(counters.Registry(), promhttp.HandlerOpts{}))
	mux.HandleFunc("/api/health", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{
			"status":  "ok",
			"service": "toodle-syncd",
			"version": Version,
			"users":   server.Users(),
		})
	})
	return mux
}

// localOrigin accepts native clients, which send no Origin, and pages served
// from localhost.
func localOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}
