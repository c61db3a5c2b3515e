// Package main is a terminal browser for a toodle store. On a terminal it
// shows an interactive list; otherwise it prints one line per item.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/kimhsiao/toodle/internal/bridge"
	"github.com/kimhsiao/toodle/internal/config"
	"github.com/kimhsiao/toodle/internal/logging"
)

func main() {
	if err := run(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		os.Exit(1)
	}
}

func run(args []string) error {
	fs := flag.NewFlagSet("toodle", flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv(config.EnvConfigPath), "path to TOML config")
	storePath := fs.String("store", "toodle.db", "store file")
	addName := fs.String("add", "", "create an item with this name and exit")
	syncURL := fs.String("sync", "", "sync server websocket URL")
	user := fs.String("user", "", "user UUID for -sync")
	plain := fs.Bool("plain", false, "print items instead of opening the interactive list")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	logging.Init(os.Stderr, cfg.LogLevel())
	defer logging.Get().Sync()

	b := bridge.New(cfg)
	defer b.Close()

	store, err := b.StoreOpen(*storePath)
	if err != nil {
		return err
	}
	defer b.StoreDestroy(store)

	if *syncURL != "" {
		if err := b.StoreSync(context.Background(), store, *user, *syncURL); err != nil {
			return err
		}
	}
	if *addName != "" {
		return add(b, store, *addName)
	}

	rows, err := loadRows(b, store)
	if err != nil {
		return err
	}
	if *plain || !term.IsTerminal(int(os.Stdout.Fd())) {
		printPlain(os.Stdout, rows)
		return nil
	}
	return runInteractive(b, store, rows)
}
