package session

import (
	"log/slog"
	"time"

	"family-groceries/config"
	"family-groceries/internal/metrics"
	"family-groceries/internal/quickadd"
	"family-groceries/internal/realtime"
	"family-groceries/internal/store"
)

// Announcer tells people off the page about list changes. Announce must not
// block.
type Announcer interface {
	Announce(title, body string)
}

// Deps are the collaborators shared by every session.
type Deps struct {
	Items     store.ItemStore
	Ranker    *quickadd.Ranker
	Feed      realtime.Feed
	Announcer Announcer
	Metrics   metrics.Recorder
	Logger    *slog.Logger
}

// Options tune a session.
type Options struct {
	Toast           time.Duration
	UndoToast       time.Duration
	SuggestionLimit int

	LoadAttempts   int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultOptions matches the defaults of the config package.
func DefaultOptions() Options {
	return Options{
		Toast:           3 * time.Second,
		UndoToast:       5 * time.Second,
		SuggestionLimit: 6,
		LoadAttempts:    3,
		InitialBackoff:  500 * time.Millisecond,
		MaxBackoff:      5 * time.Second,
	}
}

// OptionsFromConfig builds options from a loaded configuration.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Toast:           cfg.List.Toast,
		UndoToast:       cfg.List.UndoToast,
		SuggestionLimit: cfg.List.SuggestionLimit,
		LoadAttempts:    cfg.LoadRetry.Attempts,
		InitialBackoff:  cfg.LoadRetry.InitialBackoff,
		MaxBackoff:      cfg.LoadRetry.MaxBackoff,
	}
}

type nopAnnouncer struct{}

func (nopAnnouncer) Announce(string, string) {}

func (d Deps) withDefaults() Deps {
	if d.Announcer == nil {
		d.Announcer = nopAnnouncer{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.Nop{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return d
}
