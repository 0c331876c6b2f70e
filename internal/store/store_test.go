package store

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"family-groceries/internal/model"
	"family-groceries/internal/realtime"
)

// A helper function to create a mock database connection.
func newTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// newSQLiteStore opens a private in-memory database with the schema migrated.
func newSQLiteStore(t *testing.T) Store {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.Item{}, &model.NameUsage{}, &model.PushSubscription{}))
	return NewGormStore(db)
}

func TestGormStore_InsertAndListItems(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	base := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	created, err := s.InsertItems(ctx, []model.Item{
		{Name: "Bread", Quantity: "1", CreatedAt: base.Add(2 * time.Minute)},
		{Name: "Milk", Quantity: "2", CreatedAt: base},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	for _, item := range created {
		assert.NotEmpty(t, item.ID)
		assert.False(t, item.Checked)
	}
	assert.NotEqual(t, created[0].ID, created[1].ID)

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Milk", items[0].Name)
	assert.Equal(t, "2", items[0].Quantity)
	assert.Equal(t, "Bread", items[1].Name)
}

func TestGormStore_InsertItemsEmpty(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	rows, err := s.InsertItems(context.Background(), nil)
	assert.NoError(t, err)
	assert.Empty(t, rows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_SetChecked(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	created, err := s.InsertItems(ctx, []model.Item{{Name: "Milk", Quantity: "2"}})
	require.NoError(t, err)
	id := created[0].ID

	at := time.Now().UTC().Add(time.Minute).Truncate(time.Second)
	item, err := s.SetChecked(ctx, id, true, at)
	require.NoError(t, err)
	assert.True(t, item.Checked)
	assert.Equal(t, "Milk", item.Name)
	assert.True(t, at.Equal(item.UpdatedAt), "updated_at should be stamped")

	// Setting the same value again is harmless.
	item, err = s.SetChecked(ctx, id, true, at.Add(time.Second))
	require.NoError(t, err)
	assert.True(t, item.Checked)

	_, err = s.SetChecked(ctx, "missing", true, at)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormStore_DeleteItems(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	created, err := s.InsertItems(ctx, []model.Item{
		{Name: "Milk", Quantity: "1"},
		{Name: "Eggs", Quantity: "12"},
		{Name: "Bread", Quantity: "1"},
	})
	require.NoError(t, err)

	require.NoError(t, s.DeleteItem(ctx, created[0].ID))
	assert.NoError(t, s.DeleteItem(ctx, created[0].ID), "deleting twice is not an error")

	require.NoError(t, s.DeleteItems(ctx, []string{created[1].ID, created[2].ID}))
	require.NoError(t, s.DeleteItems(ctx, nil))

	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestGormStore_DeleteItemsEmptyIsNoop(t *testing.T) {
	gormDB, mock := newTestDB(t)
	s := NewGormStore(gormDB)

	assert.NoError(t, s.DeleteItems(context.Background(), []string{}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormStore_Failures(t *testing.T) {
	boom := errors.New("connection reset")

	testCases := []struct {
		name             string
		mockExpectations func(mock sqlmock.Sqlmock)
		call             func(s Store) error
		expectErr        bool
		wantErr          error
	}{
		{
			name: "list failure is wrapped",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "grocery_items" ORDER BY created_at ASC`)).
					WillReturnError(boom)
			},
			call: func(s Store) error {
				_, err := s.ListItems(context.Background())
				return err
			},
			expectErr: true,
			wantErr:   boom,
		},
		{
			name: "update of unknown id rolls back",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`UPDATE "grocery_items" SET "checked"=$1,"updated_at"=$2 WHERE id = $3`)).
					WithArgs(true, Any{}, "abc").
					WillReturnResult(sqlmock.NewResult(0, 0))
				mock.ExpectRollback()
			},
			call: func(s Store) error {
				_, err := s.SetChecked(context.Background(), "abc", true, time.Now())
				return err
			},
			expectErr: true,
			wantErr:   ErrNotFound,
		},
		{
			name: "batched delete uses one statement",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectBegin()
				mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "grocery_items" WHERE id IN ($1,$2)`)).
					WithArgs("a", "b").
					WillReturnError(boom)
				mock.ExpectRollback()
			},
			call: func(s Store) error {
				return s.DeleteItems(context.Background(), []string{"a", "b"})
			},
			expectErr: true,
			wantErr:   boom,
		},
		{
			name: "missing usage table surfaces an error",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "name_usages"`)).
					WillReturnError(errors.New(`relation "name_usages" does not exist`))
			},
			call: func(s Store) error {
				_, err := s.TopUsage(context.Background(), 5)
				return err
			},
			expectErr: true,
		},
		{
			name: "unknown usage is not an error",
			mockExpectations: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "name_usages" WHERE name_key = $1`)).
					WillReturnRows(sqlmock.NewRows([]string{"id", "name", "name_key", "count", "last_used"}))
			},
			call: func(s Store) error {
				usage, err := s.FindUsage(context.Background(), " Milk ")
				if usage != nil {
					return errors.New("expected no usage")
				}
				return err
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			gormDB, mock := newTestDB(t)
			s := NewGormStore(gormDB)

			tc.mockExpectations(mock)
			err := tc.call(s)

			if tc.expectErr {
				assert.Error(t, err)
				if tc.wantErr != nil {
					assert.ErrorIs(t, err, tc.wantErr)
				}
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestGormStore_Usage(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)
	t0 := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)

	for _, u := range []model.NameUsage{
		{Name: "Eggs", Count: 3, LastUsed: t0},
		{Name: "Milk", Count: 5, LastUsed: t0},
		{Name: "Bread", Count: 3, LastUsed: t0.Add(time.Hour)},
		{Name: "Apples", Count: 3, LastUsed: t0.Add(time.Hour)},
	} {
		require.NoError(t, s.InsertUsage(ctx, &u))
		assert.NotZero(t, u.ID)
	}

	dup := model.NameUsage{Name: "MILK", Count: 1, LastUsed: t0}
	assert.Error(t, s.InsertUsage(ctx, &dup), "one counter per name regardless of case")

	usage, err := s.FindUsage(ctx, "  milk ")
	require.NoError(t, err)
	require.NotNil(t, usage)
	assert.Equal(t, "Milk", usage.Name)
	assert.Equal(t, 5, usage.Count)

	usage.Count++
	usage.LastUsed = t0.Add(2 * time.Hour)
	require.NoError(t, s.UpdateUsage(ctx, usage))

	top, err := s.TopUsage(ctx, 3)
	require.NoError(t, err)
	names := make([]string, len(top))
	for i, u := range top {
		names[i] = u.Name
	}
	assert.Equal(t, []string{"Milk", "Apples", "Bread"}, names)
	assert.Equal(t, 6, top[0].Count)

	top, err = s.TopUsage(ctx, 0)
	assert.NoError(t, err)
	assert.Empty(t, top)

	missing, err := s.FindUsage(ctx, "Butter")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestGormStore_PushSubscriptions(t *testing.T) {
	ctx := context.Background()
	s := newSQLiteStore(t)

	sub := &model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k1", Auth: "a1"}
	require.NoError(t, s.SavePushSubscription(ctx, sub))

	// Re-subscribing the same endpoint refreshes its keys.
	sub = &model.PushSubscription{Endpoint: "https://push.example/1", P256DH: "k2", Auth: "a2"}
	require.NoError(t, s.SavePushSubscription(ctx, sub))

	subs, err := s.ListPushSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "k2", subs[0].P256DH)
	assert.Equal(t, "a2", subs[0].Auth)

	require.NoError(t, s.DeletePushSubscription(ctx, "https://push.example/1"))
	subs, err = s.ListPushSubscriptions(ctx)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

type recordingPublisher struct {
	events []realtime.Event
}

func (p *recordingPublisher) Publish(ev realtime.Event) { p.events = append(p.events, ev) }

func TestWithEvents(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	s := WithEvents(newSQLiteStore(t), pub)

	created, err := s.InsertItems(ctx, []model.Item{{Name: "Milk", Quantity: "2"}, {Name: "Eggs", Quantity: "6"}})
	require.NoError(t, err)
	_, err = s.SetChecked(ctx, created[0].ID, true, time.Now())
	require.NoError(t, err)
	_, err = s.SetChecked(ctx, "missing", true, time.Now())
	require.Error(t, err)
	require.NoError(t, s.DeleteItem(ctx, created[0].ID))
	require.NoError(t, s.DeleteItems(ctx, []string{created[1].ID}))

	kinds := make([]realtime.Kind, len(pub.events))
	for i, ev := range pub.events {
		kinds[i] = ev.Kind
	}
	assert.Equal(t, []realtime.Kind{
		realtime.KindInsert, realtime.KindInsert,
		realtime.KindUpdate,
		realtime.KindDelete, realtime.KindDelete,
	}, kinds)
	assert.Equal(t, created[0].ID, pub.events[2].Row.ID)
	assert.True(t, pub.events[2].Row.Checked)
	assert.Equal(t, created[1].ID, pub.events[4].Row.ID)

	// Reads pass straight through.
	items, err := s.ListItems(ctx)
	require.NoError(t, err)
	assert.Empty(t, items)
}

// Any is a helper for sqlmock to match any argument.
type Any struct{}

// Match satisfies the sqlmock.Argument interface
func (a Any) Match(v driver.Value) bool {
	return true
}
