// Package quickadd ranks previously added item names by how often they are
// used, for one-tap re-adding.
package quickadd

import (
	"context"
	"log/slog"
	"time"

	"family-groceries/internal/model"
	"family-groceries/internal/parse"
	"family-groceries/internal/store"
)

// Ranker maintains the usage counters. Every failure is logged and
// swallowed: the counters are a convenience and the table may not exist.
type Ranker struct {
	usage  store.UsageStore
	logger *slog.Logger
	now    func() time.Time
}

// NewRanker creates a ranker over the given usage store.
func NewRanker(usage store.UsageStore, logger *slog.Logger) *Ranker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ranker{usage: usage, logger: logger, now: time.Now}
}

// RecordUsage bumps the counter for name, creating it at 1.
func (r *Ranker) RecordUsage(ctx context.Context, name string) {
	name = parse.CleanText(name)
	if name == "" {
		return
	}

	existing, err := r.usage.FindUsage(ctx, name)
	if err != nil {
		r.logger.Debug("usage lookup failed", "name", name, "error", err)
		return
	}
	if existing != nil {
		r.bump(ctx, existing)
		return
	}

	created := &model.NameUsage{Name: name, Count: 1, LastUsed: r.now()}
	if err = r.usage.InsertUsage(ctx, created); err == nil {
		return
	}
	r.logger.Debug("usage insert failed, retrying as update", "name", name, "error", err)

	// Someone else may have created the counter between our read and insert.
	existing, err = r.usage.FindUsage(ctx, name)
	if err != nil || existing == nil {
		r.logger.Warn("usage not recorded", "name", name, "error", err)
		return
	}
	r.bump(ctx, existing)
}

func (r *Ranker) bump(ctx context.Context, usage *model.NameUsage) {
	usage.Count++
	usage.LastUsed = r.now()
	if err := r.usage.UpdateUsage(ctx, usage); err != nil {
		r.logger.Warn("usage update failed", "name", usage.Name, "error", err)
	}
}

// TopSuggestions returns up to n counters, most used first. Ties go to the
// most recently used, then alphabetical order.
func (r *Ranker) TopSuggestions(ctx context.Context, n int) []model.NameUsage {
	top, err := r.usage.TopUsage(ctx, n)
	if err != nil {
		r.logger.Debug("top usage unavailable", "error", err)
		return nil
	}
	return top
}

// Suggestion is a quick-add entry as shown to the user.
type Suggestion struct {
	Name     string `json:"name"`
	Count    int    `json:"count"`
	Disabled bool   `json:"disabled"`
}

// Annotate turns counters into suggestions, disabling any whose name is
// already on the list unchecked. Suggestions are never dropped.
func Annotate(top []model.NameUsage, items []model.Item) []Suggestion {
	if len(top) == 0 {
		return nil
	}
	open := make(map[string]struct{}, len(items))
	for _, item := range items {
		if !item.Checked {
			open[parse.Key(item.Name)] = struct{}{}
		}
	}
	out := make([]Suggestion, len(top))
	for i, u := range top {
		_, dup := open[parse.Key(u.Name)]
		out[i] = Suggestion{Name: u.Name, Count: u.Count, Disabled: dup}
	}
	return out
}

// Disabled reports whether name would duplicate an unchecked item.
func Disabled(name string, items []model.Item) bool {
	for _, item := range items {
		if !item.Checked && parse.SameName(item.Name, name) {
			return true
		}
	}
	return false
}
