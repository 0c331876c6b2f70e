package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"

	"family-groceries/config"
	"family-groceries/internal/app"
	"family-groceries/internal/logger"
	"family-groceries/internal/metrics"
	"family-groceries/internal/session"
	"family-groceries/internal/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to the YAML config file")
	flag.Parse()
	if *configPath == "" {
		*configPath = "./config/config.yaml"
	}

	cfg, err := config.Load(*configPath)
	if errors.Is(err, os.ErrNotExist) {
		cfg, err = config.Default(), nil
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration from %s: %v\n", *configPath, err)
		return 1
	}

	// The terminal belongs to the UI; logs go to a file or nowhere.
	var logOut io.Writer = io.Discard
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "failed to open log file: %v\n", err)
			return 1
		}
		defer f.Close()
		logOut = f
	}
	log := logger.SetupDefault(logOut, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM)
	defer stop()

	backend, err := app.NewBackend(ctx, cfg, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to connect: %v\n", err)
		return 1
	}
	defer backend.Close()

	s := session.New("tui", backend.SessionDeps(nil, metrics.Nop{}), session.OptionsFromConfig(cfg))
	defer s.Close()

	// Start blocks for the initial load; the UI shows progress meanwhile.
	startErr := make(chan error, 1)
	go func() { startErr <- s.Start(ctx) }()

	p := tea.NewProgram(tui.New(ctx, s), tea.WithAltScreen(), tea.WithContext(ctx))
	go func() {
		if err := <-startErr; err != nil {
			log.Error("failed to start session", "error", err)
			p.Quit()
		}
	}()

	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		fmt.Fprintf(os.Stderr, "terminal UI failed: %v\n", err)
		return 1
	}
	return 0
}
