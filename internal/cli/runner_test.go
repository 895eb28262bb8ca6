package cli

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/hosttodo/internal/model"
	"github.com/Makepad-fr/hosttodo/internal/ui"
)

// todoServer is an in-memory stand-in for the todos service.
type todoServer struct {
	mu       sync.Mutex
	todos    []model.Todo
	next     int
	failList bool
}

func (s *todoServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/todos":
		if s.failList {
			http.Error(w, "database is down", http.StatusInternalServerError)
			return
		}
		json.NewEncoder(w).Encode(s.todos)
	case r.Method == http.MethodPost && r.URL.Path == "/todos":
		var nt model.NewTodo
		if err := json.NewDecoder(r.Body).Decode(&nt); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		s.next++
		t := model.Todo{ID: fmt.Sprintf("n%d", s.next), Category: nt.Category, Hostname: nt.Hostname, Details: nt.Details, Status: nt.Status}
		s.todos = append(s.todos, t)
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(t)
	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/todos/"):
		id := strings.TrimPrefix(r.URL.Path, "/todos/")
		out, ok := model.Without(s.todos, id)
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		s.todos = out
		w.WriteHeader(http.StatusNoContent)
	default:
		http.NotFound(w, r)
	}
}

type harness struct {
	srv    *todoServer
	hs     *httptest.Server
	url    string
	cache  string
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	srv := &todoServer{todos: []model.Todo{
		{ID: "a1", Category: "web", Hostname: "web-1", Status: model.StatusCompleted,
			Details: []model.Detail{{Name: "renew cert", Description: "certbot renew", Src: "wiki/certs"}}},
		{ID: "b2", Category: "web", Hostname: "web-2", Status: model.StatusNotCompleted,
			Details: []model.Detail{{Name: "patch nginx", Description: "1.25.4"}}},
		{ID: "c3", Category: "db", Hostname: "pg-1", Status: model.StatusNotCompleted, Details: []model.Detail{}},
	}}
	hs := httptest.NewServer(srv)
	t.Cleanup(hs.Close)

	h := &harness{
		srv:    srv,
		hs:     hs,
		url:    hs.URL,
		cache:  filepath.Join(t.TempDir(), "todos.json"),
		out:    &bytes.Buffer{},
		errOut: &bytes.Buffer{},
	}
	ui.SetOutput(h.out, h.errOut)
	t.Cleanup(func() { ui.SetOutput(os.Stdout, os.Stderr) })
	return h
}

func (h *harness) run(stdin string, args ...string) int {
	h.out.Reset()
	h.errOut.Reset()
	base := []string{"--endpoint", h.url, "--cache", h.cache, "--no-color", "--log-level", "error"}
	return Run(append(base, args...), Options{Stdin: strings.NewReader(stdin)})
}

func TestHelpAndUsage(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, 0, Run([]string{"help"}, Options{}))
	assert.Contains(t, h.out.String(), "Subcommands:")
	assert.Equal(t, 2, Run(nil, Options{}))
	assert.Equal(t, 2, h.run("", "frobnicate"))
	assert.Contains(t, h.errOut.String(), "unknown subcommand: frobnicate")
}

func TestListAll(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("", "ls"))
	out := h.out.String()
	assert.Contains(t, out, "web - web-1")
	assert.Contains(t, out, "renew cert - completed")
	assert.Contains(t, out, "https://wiki/certs")
	assert.Contains(t, out, "db - pg-1")
	assert.Contains(t, out, "No Name - not completed")
	assert.Contains(t, out, "No Content")
}

func TestListFilters(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("", "ls", "--category", "web"))
	assert.Contains(t, h.out.String(), "web-1")
	assert.Contains(t, h.out.String(), "web-2")
	assert.NotContains(t, h.out.String(), "pg-1")

	require.Equal(t, 0, h.run("", "ls", "--category", "web", "--host", "web-2"))
	assert.Contains(t, h.out.String(), "patch nginx")
	assert.NotContains(t, h.out.String(), "renew cert")

	assert.Equal(t, 2, h.run("", "ls", "--host", "web-2"))
	assert.Contains(t, h.errOut.String(), "--host needs --category")

	assert.Equal(t, 2, h.run("", "ls", "--category", "cache"))
	assert.Equal(t, 2, h.run("", "ls", "--category", "db", "--host", "web-1"))
}

func TestCategoriesAndHosts(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("", "categories"))
	assert.Equal(t, "web\ndb\n", h.out.String())

	require.Equal(t, 0, h.run("", "hosts", "web"))
	assert.Equal(t, "web-1\nweb-2\n", h.out.String())

	assert.Equal(t, 2, h.run("", "hosts"))
	assert.Equal(t, 2, h.run("", "hosts", "nope"))
}

func TestAddRequiresFields(t *testing.T) {
	h := newHarness(t)
	code := h.run("", "add", "--category", "db", "--host", "pg-2", "--name", "vacuum")
	assert.Equal(t, 2, code)
	assert.Contains(t, h.errOut.String(), "Please fill in all required fields!")
	assert.Len(t, h.srv.todos, 3)
}

func TestAddCreates(t *testing.T) {
	h := newHarness(t)
	code := h.run("", "add", "--category", "db", "--host", "pg-2", "--name", "vacuum",
		"--desc", "VACUUM FULL", "--src", "wiki/pg", "--status", "completed")
	require.Equal(t, 0, code, h.errOut.String())
	assert.Contains(t, h.out.String(), "added (4 todos)")

	require.Len(t, h.srv.todos, 4)
	got := h.srv.todos[3]
	assert.Equal(t, "pg-2", got.Hostname)
	assert.Equal(t, model.StatusCompleted, got.Status)
	assert.Equal(t, []model.Detail{{Name: "vacuum", Description: "VACUUM FULL", Src: "wiki/pg"}}, got.Details)

	assert.Equal(t, 2, h.run("", "add", "-c", "db", "--host", "x", "-n", "y", "-d", "z", "--status", "someday"))
}

func TestRemoveAsksFirst(t *testing.T) {
	h := newHarness(t)

	require.Equal(t, 0, h.run("n\n", "rm", "b2"))
	assert.Contains(t, h.out.String(), "Are you sure you want to delete this todo?")
	assert.Len(t, h.srv.todos, 3)

	require.Equal(t, 0, h.run("y\n", "rm", "b2"))
	assert.Contains(t, h.out.String(), "deleted")
	assert.Len(t, h.srv.todos, 2)

	require.Equal(t, 0, h.run("", "ls"))
	assert.NotContains(t, h.out.String(), "patch nginx")
}

func TestRemoveYesAndUnknown(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("", "rm", "--yes", "c3"))
	assert.NotContains(t, h.out.String(), "Are you sure")
	assert.Len(t, h.srv.todos, 2)

	assert.Equal(t, 2, h.run("", "rm", "--yes", "zz"))
	assert.Equal(t, 2, h.run("", "rm"))
}

func TestListOfflineFallsBackToCache(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("", "ls"))

	require.Equal(t, 0, h.run("", "ls", "--offline", "--category", "db"))
	assert.Contains(t, h.out.String(), "offline: cached")
	assert.Contains(t, h.out.String(), "pg-1")

	// the same server goes away; its cache still answers
	h.hs.Close()
	require.Equal(t, 0, h.run("", "ls"))
	assert.Contains(t, h.out.String(), "offline: cached")

	assert.Equal(t, 1, h.run("y\n", "rm", "a1"))
}

func TestListIgnoresCacheFromOtherEndpoint(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("", "ls"))

	dead := httptest.NewServer(http.NotFoundHandler())
	dead.Close()
	h.url = dead.URL
	assert.Equal(t, 1, h.run("", "ls"))
	assert.NotContains(t, h.out.String(), "offline: cached")
	assert.NotContains(t, h.out.String(), "web-1")
	assert.Contains(t, h.errOut.String(), "offline cache skipped")

	assert.Equal(t, 1, h.run("", "ls", "--offline"))
}

func TestAddSucceedsWhenReloadFails(t *testing.T) {
	h := newHarness(t)
	h.srv.failList = true

	code := h.run("", "add", "--category", "db", "--host", "pg-2", "--name", "vacuum", "--desc", "VACUUM FULL")
	assert.Equal(t, 0, code)
	assert.Contains(t, h.out.String(), "added")
	assert.Contains(t, h.errOut.String(), "list reload failed")
	assert.Len(t, h.srv.todos, 4)
}

func TestConfigPrintsEffectiveValues(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, 0, h.run("", "--theme", "neon", "config"))
	assert.Contains(t, h.out.String(), "endpoint: "+h.url)
	assert.Contains(t, h.out.String(), "theme: neon")

	assert.Equal(t, 2, h.run("", "--theme", "pastel", "config"))
	assert.Equal(t, 2, h.run("", "--log-level", "loud", "config"))
}
