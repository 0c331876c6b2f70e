package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManager_OpenGetClose(t *testing.T) {
	b := newBackend(t)
	m := NewManager(context.Background(), b.deps(nil), testOptions(), time.Minute)
	defer m.Shutdown()

	s, err := m.Open()
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, 1, m.Len())

	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get("nope")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Close(s.ID()))
	assert.ErrorIs(t, m.Close(s.ID()), ErrNotFound)
	<-s.Done()
	assert.Equal(t, 0, b.broker.Subscribers())
}

func TestManager_IdleSessionsAreClosed(t *testing.T) {
	b := newBackend(t)
	m := NewManager(context.Background(), b.deps(nil), testOptions(), 50*time.Millisecond)
	defer m.Shutdown()

	s, err := m.Open()
	require.NoError(t, err)

	select {
	case <-s.Done():
	case <-time.After(3 * time.Second):
		t.Fatal("idle session was not closed")
	}
	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestManager_Shutdown(t *testing.T) {
	b := newBackend(t)
	m := NewManager(context.Background(), b.deps(nil), testOptions(), time.Minute)

	first, err := m.Open()
	require.NoError(t, err)
	second, err := m.Open()
	require.NoError(t, err)
	assert.NotEqual(t, first.ID(), second.ID())

	m.Shutdown()
	assert.Equal(t, 0, m.Len())
	<-first.Done()
	<-second.Done()
}

func TestManager_OpenFailsWhenFeedIsClosed(t *testing.T) {
	b := newBackend(t)
	b.broker.Close()
	m := NewManager(context.Background(), b.deps(nil), testOptions(), time.Minute)

	_, err := m.Open()
	assert.Error(t, err)
	assert.Equal(t, 0, m.Len())
}
