package quickadd

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-groceries/internal/model"
	"family-groceries/internal/parse"
)

// memUsage is an in-memory UsageStore with failure injection.
type memUsage struct {
	rows   map[string]*model.NameUsage
	nextID int64

	findErr   error
	insertErr error
	updateErr error
	topErr    error
	// racer is inserted by a competing writer just before our insert.
	racer *model.NameUsage
}

func newMemUsage() *memUsage { return &memUsage{rows: map[string]*model.NameUsage{}} }

func (m *memUsage) FindUsage(_ context.Context, name string) (*model.NameUsage, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if row, ok := m.rows[parse.Key(name)]; ok {
		dup := *row
		return &dup, nil
	}
	return nil, nil
}

func (m *memUsage) TopUsage(_ context.Context, n int) ([]model.NameUsage, error) {
	if m.topErr != nil {
		return nil, m.topErr
	}
	var out []model.NameUsage
	for _, row := range m.rows {
		out = append(out, *row)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		if !out[i].LastUsed.Equal(out[j].LastUsed) {
			return out[i].LastUsed.After(out[j].LastUsed)
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func (m *memUsage) InsertUsage(_ context.Context, usage *model.NameUsage) error {
	if m.racer != nil {
		m.put(m.racer)
		m.racer = nil
	}
	if m.insertErr != nil {
		return m.insertErr
	}
	key := parse.Key(usage.Name)
	if _, ok := m.rows[key]; ok {
		return errors.New("duplicate key value violates unique constraint")
	}
	m.put(usage)
	return nil
}

func (m *memUsage) put(usage *model.NameUsage) {
	m.nextID++
	usage.ID = m.nextID
	usage.Key = parse.Key(usage.Name)
	dup := *usage
	m.rows[usage.Key] = &dup
}

func (m *memUsage) UpdateUsage(_ context.Context, usage *model.NameUsage) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	for _, row := range m.rows {
		if row.ID == usage.ID {
			row.Count = usage.Count
			row.LastUsed = usage.LastUsed
			return nil
		}
	}
	return errors.New("no such row")
}

func newTestRanker(usage *memUsage) *Ranker {
	r := NewRanker(usage, slog.New(slog.NewTextHandler(io.Discard, nil)))
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	r.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return r
}

func TestRanker_RecordUsage(t *testing.T) {
	ctx := context.Background()
	usage := newMemUsage()
	r := newTestRanker(usage)

	r.RecordUsage(ctx, "  Milk ")
	r.RecordUsage(ctx, "milk")
	r.RecordUsage(ctx, "MILK")
	r.RecordUsage(ctx, "Eggs")
	r.RecordUsage(ctx, "   ")

	require.Len(t, usage.rows, 2)
	milk := usage.rows["milk"]
	assert.Equal(t, "Milk", milk.Name, "keeps the first spelling")
	assert.Equal(t, 3, milk.Count)
	assert.True(t, milk.LastUsed.Before(usage.rows["eggs"].LastUsed))
	assert.Equal(t, 1, usage.rows["eggs"].Count)
}

func TestRanker_RecordUsageInsertRace(t *testing.T) {
	usage := newMemUsage()
	usage.racer = &model.NameUsage{Name: "Bread", Count: 4, LastUsed: time.Now()}
	r := newTestRanker(usage)

	r.RecordUsage(context.Background(), "bread")

	require.Len(t, usage.rows, 1)
	assert.Equal(t, 5, usage.rows["bread"].Count)
}

func TestRanker_FailuresAreSwallowed(t *testing.T) {
	missing := errors.New(`relation "name_usages" does not exist`)

	testCases := []struct {
		name  string
		setup func(m *memUsage)
	}{
		{name: "lookup fails", setup: func(m *memUsage) { m.findErr = missing }},
		{name: "insert fails", setup: func(m *memUsage) { m.insertErr = missing }},
		{
			name: "update fails",
			setup: func(m *memUsage) {
				m.put(&model.NameUsage{Name: "Milk", Count: 1})
				m.updateErr = missing
			},
		},
		{name: "top fails", setup: func(m *memUsage) { m.topErr = missing }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			usage := newMemUsage()
			tc.setup(usage)
			r := newTestRanker(usage)

			assert.NotPanics(t, func() {
				r.RecordUsage(context.Background(), "Milk")
			})
			if usage.topErr != nil {
				assert.Empty(t, r.TopSuggestions(context.Background(), 5))
			}
		})
	}
}

func TestRanker_TopSuggestions(t *testing.T) {
	ctx := context.Background()
	usage := newMemUsage()
	r := newTestRanker(usage)

	for _, name := range []string{"Eggs", "Milk", "Milk", "Bread", "Milk", "Eggs", "Apples"} {
		r.RecordUsage(ctx, name)
	}

	top := r.TopSuggestions(ctx, 3)
	names := make([]string, len(top))
	for i, u := range top {
		names[i] = u.Name
	}
	// Milk 3, Eggs 2, then Apples over Bread because it was used later.
	assert.Equal(t, []string{"Milk", "Eggs", "Apples"}, names)
}

func TestAnnotate(t *testing.T) {
	top := []model.NameUsage{
		{Name: "Milk", Count: 5},
		{Name: "Eggs", Count: 3},
		{Name: "Bread", Count: 2},
	}
	items := []model.Item{
		{ID: "1", Name: "milk", Checked: false},
		{ID: "2", Name: "Eggs", Checked: true},
	}

	got := Annotate(top, items)
	assert.Equal(t, []Suggestion{
		{Name: "Milk", Count: 5, Disabled: true},
		{Name: "Eggs", Count: 3, Disabled: false},
		{Name: "Bread", Count: 2, Disabled: false},
	}, got)

	assert.True(t, Disabled("MILK ", items))
	assert.False(t, Disabled("Eggs", items), "checked items do not block")
	assert.Nil(t, Annotate(nil, items))
}
