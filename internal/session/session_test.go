package session

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/hosttodo/internal/filter"
	"github.com/Makepad-fr/hosttodo/internal/logging"
	"github.com/Makepad-fr/hosttodo/internal/model"
	"github.com/Makepad-fr/hosttodo/internal/store/jsonstore"
)

// fakeBackend keeps todos in memory, the way the real service would.
type fakeBackend struct {
	todos   []model.Todo
	nextID  int
	listErr error
	lists   int
}

func (f *fakeBackend) List(ctx context.Context) ([]model.Todo, error) {
	f.lists++
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]model.Todo(nil), f.todos...), nil
}

func (f *fakeBackend) Create(ctx context.Context, nt model.NewTodo) (model.Todo, error) {
	f.nextID++
	t := model.Todo{
		ID:       fmt.Sprintf("id-%d", f.nextID),
		Category: nt.Category,
		Hostname: nt.Hostname,
		Details:  nt.Details,
		Status:   nt.Status,
	}
	f.todos = append(f.todos, t)
	return t, nil
}

func (f *fakeBackend) Delete(ctx context.Context, id string) error {
	out, ok := model.Without(f.todos, id)
	if !ok {
		return errors.New("404")
	}
	f.todos = out
	return nil
}

func seeded() *fakeBackend {
	return &fakeBackend{todos: []model.Todo{
		{ID: "1", Category: "web", Hostname: "web-1", Status: model.StatusCompleted},
		{ID: "2", Category: "web", Hostname: "web-2"},
		{ID: "3", Category: "db", Hostname: "pg-1"},
	}}
}

func newSession(t *testing.T, b Backend) (*Session, *jsonstore.Store) {
	t.Helper()
	store, err := jsonstore.New(filepath.Join(t.TempDir(), "todos.json"))
	require.NoError(t, err)
	return New(b, store, "http://test", logging.Discard()), store
}

func TestRefreshWritesCache(t *testing.T) {
	s, store := newSession(t, seeded())
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	require.NoError(t, s.Refresh(context.Background()))
	assert.Len(t, s.Todos(), 3)
	assert.False(t, s.Stale())

	snap, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://test", snap.Endpoint)
	assert.Len(t, snap.Todos, 3)
	assert.True(t, fixed.Equal(snap.FetchedAt))
}

func TestVisibleFollowsSelection(t *testing.T) {
	s, _ := newSession(t, seeded())
	require.NoError(t, s.Refresh(context.Background()))

	require.NoError(t, s.SelectCategory("web"))
	assert.Len(t, s.Visible(), 2)
	require.NoError(t, s.SelectHostname("web-2"))
	require.Len(t, s.Visible(), 1)
	assert.Equal(t, "2", s.Visible()[0].ID)
}

func TestAddBlocksOnMissingFields(t *testing.T) {
	b := seeded()
	s, _ := newSession(t, b)

	err := s.Add(context.Background(), model.Draft{Category: "db", Hostname: "pg-2", Name: "vacuum"})
	assert.ErrorIs(t, err, model.ErrMissingFields)
	assert.Len(t, b.todos, 3)
	assert.Zero(t, b.lists)
}

func TestAddReloads(t *testing.T) {
	b := seeded()
	s, _ := newSession(t, b)

	err := s.Add(context.Background(), model.Draft{Category: "db", Hostname: "pg-2", Name: "vacuum", Description: "full"})
	require.NoError(t, err)
	assert.Equal(t, 1, b.lists)
	assert.Len(t, s.Todos(), 4)
	assert.Equal(t, []string{"pg-1", "pg-2"}, filter.Hostnames(s.Todos(), "db"))
}

func TestRemoveDropsLocally(t *testing.T) {
	b := seeded()
	s, _ := newSession(t, b)
	require.NoError(t, s.Refresh(context.Background()))
	require.NoError(t, s.SelectCategory("db"))

	require.NoError(t, s.Remove(context.Background(), "3"))
	assert.Equal(t, 1, b.lists, "remove must not refetch")
	assert.Len(t, s.Todos(), 2)
	// db vanished, so the selection falls back to all
	assert.Equal(t, filter.All, s.Selection().Category)
	_, err := s.Find("3")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Error(t, s.Remove(context.Background(), "3"))
	assert.Len(t, s.Todos(), 2)
}

func TestLoadCached(t *testing.T) {
	b := seeded()
	s, store := newSession(t, b)
	require.NoError(t, s.Refresh(context.Background()))

	offline := New(&fakeBackend{listErr: errors.New("connection refused")}, store, "http://test", logging.Discard())
	require.Error(t, offline.Refresh(context.Background()))
	require.NoError(t, offline.LoadCached())
	assert.True(t, offline.Stale())
	assert.Len(t, offline.Todos(), 3)

	noCache := New(b, nil, "", logging.Discard())
	assert.Error(t, noCache.LoadCached())
}

func TestLoadCachedRefusesOtherEndpoint(t *testing.T) {
	s, store := newSession(t, seeded())
	require.NoError(t, s.Refresh(context.Background()))

	other := New(&fakeBackend{listErr: errors.New("connection refused")}, store, "http://elsewhere", logging.Discard())
	err := other.LoadCached()
	assert.ErrorIs(t, err, ErrForeignCache)
	assert.False(t, other.Stale())
	assert.Empty(t, other.Todos())
	assert.True(t, other.FetchedAt().IsZero())
}

func TestAddReloadFailureKeepsCreate(t *testing.T) {
	b := seeded()
	b.listErr = errors.New("connection reset")
	s, _ := newSession(t, b)

	err := s.Add(context.Background(), model.Draft{Category: "db", Hostname: "pg-2", Name: "vacuum", Description: "full"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrReloadAfterCreate)
	assert.ErrorContains(t, err, "connection reset")
	assert.Len(t, b.todos, 4, "the create reached the server")
}
