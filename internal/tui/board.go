// Package tui is the interactive todo board.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"github.com/Makepad-fr/hosttodo/internal/filter"
	"github.com/Makepad-fr/hosttodo/internal/model"
	"github.com/Makepad-fr/hosttodo/internal/session"
)

// card adapts a model.Todo to bubbles/list.Item.
type card struct{ model.Todo }

func (c card) Title() string { return c.Category + " - " + c.Hostname }
func (c card) Description() string {
	return c.Content().Name
}
func (c card) FilterValue() string {
	return strings.Join([]string{c.Category, c.Hostname, c.Content().Name, c.Status}, " ")
}

// cardDelegate renders each todo as a four line card.
type cardDelegate struct{}

func (d cardDelegate) Height() int                               { return 4 }
func (d cardDelegate) Spacing() int                              { return 1 }
func (d cardDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d cardDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	c, ok := item.(card)
	if !ok {
		return
	}
	content := c.Content()

	link := mutedStyle.Render("No Content")
	if l := content.Link(); l != "" {
		link = accentStyle.Render("↗ " + l)
	}

	prefix := "  "
	if index == m.Index() {
		prefix = selectedStyle.Render(">") + " "
	}
	lines := []string{
		prefix + titleStyle.Render(c.Category) + " - " + hostStyle.Render(c.Hostname),
		"  " + nameStyle.Render(content.Name) + " - " + statusStyle(c.Completed()).Render(c.Status),
		"  " + mutedStyle.Render(content.Description),
		"  " + link,
	}
	fmt.Fprint(w, strings.Join(lines, "\n"))
}

type (
	todosLoadedMsg struct {
		todos []model.Todo
		err   error
	}
	createdMsg struct{ err error }
	deletedMsg struct {
		id  string
		err error
	}
)

// Board is the Bubble Tea model.
type Board struct {
	sess   *session.Session
	logger *logrus.Logger
	ctx    context.Context

	list    list.Model
	form    *addForm
	confirm *model.Todo // pending delete

	status    string
	statusErr bool
	loading   bool
	width     int
	height    int
}

var (
	catBind     = key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "category"))
	hostBind    = key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "host"))
	addBind     = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	deleteBind  = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
	refreshBind = key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh"))
)

// New builds a board over sess. The first fetch happens in Init.
func New(sess *session.Session, logger *logrus.Logger) Board {
	l := list.New(nil, cardDelegate{}, 80, 20)
	l.Title = "Todos"
	l.SetShowTitle(false)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.HelpStyle = helpStyle
	l.Styles.PaginationStyle = helpStyle
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("todo", "todos")
	l.DisableQuitKeybindings()
	// h and d belong to the board
	l.KeyMap.PrevPage = key.NewBinding(key.WithKeys("left", "pgup", "b", "u"), key.WithHelp("←/b/pgup", "prev page"))
	l.KeyMap.NextPage = key.NewBinding(key.WithKeys("right", "pgdown", "f"), key.WithHelp("→/f/pgdn", "next page"))

	binds := func() []key.Binding { return []key.Binding{catBind, hostBind, addBind, deleteBind, refreshBind} }
	l.AdditionalShortHelpKeys = binds
	l.AdditionalFullHelpKeys = binds

	return Board{
		sess:    sess,
		logger:  logger,
		ctx:     context.Background(),
		list:    l,
		loading: true,
		width:   82,
		height:  24,
	}
}

// Run starts the board in the alternate screen and blocks until it quits.
func Run(sess *session.Session, logger *logrus.Logger) error {
	p := tea.NewProgram(New(sess, logger), tea.WithAltScreen())
	_, err := p.Run()
	return err
}

func (b Board) Init() tea.Cmd { return b.fetch() }

func (b Board) fetch() tea.Cmd {
	backend, ctx := b.sess.Backend(), b.ctx
	return func() tea.Msg {
		todos, err := backend.List(ctx)
		return todosLoadedMsg{todos: todos, err: err}
	}
}

func (b Board) create(nt model.NewTodo) tea.Cmd {
	backend, ctx := b.sess.Backend(), b.ctx
	return func() tea.Msg {
		_, err := backend.Create(ctx, nt)
		return createdMsg{err: err}
	}
}

func (b Board) remove(id string) tea.Cmd {
	backend, ctx := b.sess.Backend(), b.ctx
	return func() tea.Msg {
		return deletedMsg{id: id, err: backend.Delete(ctx, id)}
	}
}

// Visible is what the board currently shows.
func (b Board) Visible() []model.Todo { return b.sess.Visible() }

func (b *Board) setStatus(msg string, isErr bool) {
	b.status, b.statusErr = msg, isErr
}

// rebuild pushes the filtered list into the bubbles list, keeping the
// cursor in range.
func (b *Board) rebuild() tea.Cmd {
	visible := b.sess.Visible()
	items := make([]list.Item, 0, len(visible))
	for _, t := range visible {
		items = append(items, card{t})
	}
	idx := b.list.Index()
	cmd := b.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		b.list.Select(idx)
	}
	return cmd
}

func (b *Board) resize() {
	h := b.height - 6
	if b.form != nil {
		h -= fieldCount + 4
	}
	if h < 4 {
		h = 4
	}
	b.list.SetSize(b.width-4, h)
}

func (b Board) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
		b.resize()
		return b, nil

	case todosLoadedMsg:
		b.loading = false
		if msg.err != nil {
			b.logger.WithError(msg.err).Error("error fetching todos")
			if len(b.sess.Todos()) == 0 && b.sess.LoadCached() == nil && !b.sess.FetchedAt().IsZero() {
				b.setStatus("offline, showing cache: "+msg.err.Error(), true)
				return b, b.rebuild()
			}
			b.setStatus(msg.err.Error(), true)
			return b, nil
		}
		b.sess.Replace(msg.todos)
		b.setStatus(fmt.Sprintf("loaded %d todos", len(msg.todos)), false)
		return b, b.rebuild()

	case createdMsg:
		// the form may have been closed while the request was in flight
		if msg.err != nil {
			b.logger.WithError(msg.err).Error("error adding todo")
			if b.form == nil {
				b.setStatus("add failed: "+msg.err.Error(), true)
				return b, nil
			}
			b.form.busy = false
			b.form.err = msg.err.Error()
			return b, nil
		}
		if b.form != nil {
			b.form = nil
			b.resize()
		}
		b.loading = true
		b.setStatus("added", false)
		return b, b.fetch()

	case deletedMsg:
		if msg.err != nil {
			b.logger.WithError(msg.err).Error("error deleting todo")
			b.setStatus("delete failed: "+msg.err.Error(), true)
			return b, nil
		}
		b.sess.Drop(msg.id)
		b.setStatus("deleted", false)
		return b, b.rebuild()

	case tea.KeyMsg:
		if b.form != nil {
			return b.updateForm(msg)
		}
		if b.confirm != nil {
			return b.updateConfirm(msg)
		}
		if b.list.SettingFilter() {
			break
		}
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			if msg.String() == "esc" && b.list.IsFiltered() {
				break
			}
			return b, tea.Quit
		case "c":
			b.sess.NextCategory()
			return b, b.rebuild()
		case "h":
			if err := b.sess.NextHostname(); err != nil {
				b.setStatus(err.Error(), true)
				return b, nil
			}
			return b, b.rebuild()
		case "r":
			b.loading = true
			b.setStatus("refreshing...", false)
			return b, b.fetch()
		case "a":
			sel := b.sess.Selection()
			cat, host := "", ""
			if sel.Category != filter.All {
				cat = sel.Category
			}
			if sel.Hostname != filter.All {
				host = sel.Hostname
			}
			b.form = newAddForm(cat, host)
			b.resize()
			return b, nil
		case "d":
			if c, ok := b.list.SelectedItem().(card); ok {
				t := c.Todo
				b.confirm = &t
			}
			return b, nil
		}
	}

	var cmd tea.Cmd
	b.list, cmd = b.list.Update(msg)
	return b, cmd
}

func (b Board) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	res, cmd := b.form.Update(msg)
	switch res {
	case formCancel:
		b.form = nil
		b.resize()
		return b, nil
	case formSubmit:
		return b, b.create(b.form.Draft().Todo())
	}
	return b, cmd
}

func (b Board) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	t := *b.confirm
	b.confirm = nil
	switch msg.String() {
	case "y", "Y":
		b.setStatus("deleting "+t.ID+"...", false)
		return b, b.remove(t.ID)
	}
	b.setStatus("delete cancelled", false)
	return b, nil
}

func (b Board) header() string {
	visible := b.sess.Visible()
	done, pending := model.Stats(visible)
	counts := fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), done,
		pendingStyle.Render("•"), pending,
		accentStyle.Render("Total"), len(visible),
	)

	sel := b.sess.Selection()
	host := chipStyle.Render(sel.Hostname)
	if !sel.Enabled() {
		host = mutedStyle.Render("[disabled]")
	}
	filters := fmt.Sprintf("%s %s  %s %s",
		mutedStyle.Render("Category"), chipStyle.Render(sel.Category),
		mutedStyle.Render("Host"), host,
	)
	if b.sess.Stale() {
		filters += "  " + errorStyle.Render("offline")
	}
	return counts + "\n" + filters
}

func (b Board) View() string {
	var body string
	switch {
	case b.loading && len(b.sess.Todos()) == 0:
		body = mutedStyle.Render("Loading todos...")
	case len(b.sess.Visible()) == 0:
		body = mutedStyle.Render("No todos found.")
	default:
		body = b.list.View()
	}

	parts := []string{b.header(), "", body}
	switch {
	case b.form != nil:
		parts = append(parts, b.form.View())
	case b.confirm != nil:
		q := fmt.Sprintf("Are you sure you want to delete this todo? %s %s",
			nameStyle.Render(b.confirm.Content().Name),
			helpStyle.Render("(y/N)"))
		parts = append(parts, frameStyle.BorderForeground(lipgloss.Color("9")).Render(q))
	case b.status != "":
		st := mutedStyle.Render(b.status)
		if b.statusErr {
			st = errorStyle.Render("✖ " + b.status)
		}
		parts = append(parts, st)
	}
	return frameStyle.Render(strings.Join(parts, "\n"))
}
