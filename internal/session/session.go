// Package session holds the in-memory todo list and the current filter
// selection. A Session is not safe for concurrent use; the TUI only touches
// it from Update.
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Makepad-fr/hosttodo/internal/filter"
	"github.com/Makepad-fr/hosttodo/internal/model"
	"github.com/Makepad-fr/hosttodo/internal/store/jsonstore"
)

var (
	ErrNotFound = errors.New("todo not found")
	// ErrForeignCache means the cached list was fetched from another endpoint.
	ErrForeignCache = errors.New("cached list belongs to another endpoint")
	// ErrReloadAfterCreate means the todo was created but the list could not
	// be fetched again.
	ErrReloadAfterCreate = errors.New("todo created, list reload failed")
)

// Backend is the subset of api.Client a session needs.
type Backend interface {
	List(ctx context.Context) ([]model.Todo, error)
	Create(ctx context.Context, nt model.NewTodo) (model.Todo, error)
	Delete(ctx context.Context, id string) error
}

// Cache persists the last fetched list. May be nil.
type Cache interface {
	Load() (jsonstore.Snapshot, error)
	Save(jsonstore.Snapshot) error
}

type Session struct {
	backend  Backend
	cache    Cache
	endpoint string
	logger   *logrus.Logger
	now      func() time.Time

	todos     []model.Todo
	sel       filter.Selection
	fetchedAt time.Time
	stale     bool
}

func New(b Backend, c Cache, endpoint string, logger *logrus.Logger) *Session {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Session{
		backend:  b,
		cache:    c,
		endpoint: endpoint,
		logger:   logger,
		now:      time.Now,
		todos:    []model.Todo{},
		sel:      filter.NewSelection(),
	}
}

func (s *Session) Backend() Backend { return s.backend }

// Todos is the full list as last fetched.
func (s *Session) Todos() []model.Todo { return s.todos }

// Visible is Todos narrowed by the selection.
func (s *Session) Visible() []model.Todo { return s.sel.Apply(s.todos) }

func (s *Session) Selection() filter.Selection { return s.sel }

// Stale reports whether the list came from the offline cache.
func (s *Session) Stale() bool { return s.stale }

func (s *Session) FetchedAt() time.Time { return s.fetchedAt }

func (s *Session) SelectCategory(c string) error { return s.sel.SelectCategory(s.todos, c) }

func (s *Session) SelectHostname(h string) error { return s.sel.SelectHostname(s.todos, h) }

func (s *Session) NextCategory() { s.sel.NextCategory(s.todos) }

func (s *Session) NextHostname() error { return s.sel.NextHostname(s.todos) }

// Refresh reloads the whole list from the server.
func (s *Session) Refresh(ctx context.Context) error {
	todos, err := s.backend.List(ctx)
	if err != nil {
		return err
	}
	s.Replace(todos)
	return nil
}

// Replace swaps in a freshly fetched list, fixes up the selection and
// writes the cache. Cache failures are logged only.
func (s *Session) Replace(todos []model.Todo) {
	if todos == nil {
		todos = []model.Todo{}
	}
	s.todos = todos
	s.fetchedAt = s.now()
	s.stale = false
	s.sel.Reconcile(s.todos)

	if s.cache == nil {
		return
	}
	err := s.cache.Save(jsonstore.Snapshot{Endpoint: s.endpoint, FetchedAt: s.fetchedAt, Todos: s.todos})
	if err != nil {
		s.logger.WithError(err).Warn("cache write failed")
	}
}

// LoadCached fills the session from the offline cache and marks it stale.
// A snapshot taken from a different endpoint is refused.
func (s *Session) LoadCached() error {
	if s.cache == nil {
		return fmt.Errorf("offline cache disabled")
	}
	snap, err := s.cache.Load()
	if err != nil {
		return fmt.Errorf("load cache: %w", err)
	}
	if snap.Endpoint != "" && snap.Endpoint != s.endpoint {
		return fmt.Errorf("load cache: %s: %w", snap.Endpoint, ErrForeignCache)
	}
	s.todos = snap.Todos
	s.fetchedAt = snap.FetchedAt
	s.stale = true
	s.sel.Reconcile(s.todos)
	return nil
}

// Add validates d, creates it and reloads the list. When only the reload
// fails the error wraps ErrReloadAfterCreate; the todo exists on the server.
func (s *Session) Add(ctx context.Context, d model.Draft) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if _, err := s.backend.Create(ctx, d.Todo()); err != nil {
		return err
	}
	if err := s.Refresh(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrReloadAfterCreate, err)
	}
	return nil
}

// Remove deletes id on the server and drops it locally without a reload.
func (s *Session) Remove(ctx context.Context, id string) error {
	if err := s.backend.Delete(ctx, id); err != nil {
		return err
	}
	s.Drop(id)
	return nil
}

// Drop removes id from the local list only.
func (s *Session) Drop(id string) bool {
	out, ok := model.Without(s.todos, id)
	if ok {
		s.todos = out
		s.sel.Reconcile(s.todos)
	}
	return ok
}

// Find looks a todo up by id in the local list.
func (s *Session) Find(id string) (model.Todo, error) {
	for _, t := range s.todos {
		if t.ID == id {
			return t, nil
		}
	}
	return model.Todo{}, fmt.Errorf("%s: %w", id, ErrNotFound)
}
