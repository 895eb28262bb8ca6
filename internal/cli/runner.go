package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"

	"github.com/Makepad-fr/hosttodo/internal/api"
	"github.com/Makepad-fr/hosttodo/internal/config"
	"github.com/Makepad-fr/hosttodo/internal/filter"
	"github.com/Makepad-fr/hosttodo/internal/logging"
	"github.com/Makepad-fr/hosttodo/internal/model"
	"github.com/Makepad-fr/hosttodo/internal/session"
	"github.com/Makepad-fr/hosttodo/internal/store/jsonstore"
	"github.com/Makepad-fr/hosttodo/internal/tui"
	"github.com/Makepad-fr/hosttodo/internal/ui"
)

// Options carries process-level inputs.
type Options struct {
	Stdin io.Reader // answers for confirmation prompts
}

// app is what every subcommand works against.
type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	sess   *session.Session
	stdin  *bufio.Reader
}

// Run dispatches subcommands and returns an exit code (0 ok, 1 error, 2 usage).
func Run(args []string, opt Options) int {
	fs := pflag.NewFlagSet("hosttodo", pflag.ContinueOnError)
	fs.SetInterspersed(false)
	fs.SetOutput(io.Discard)
	configPath := fs.String("config", "", "config file (default $XDG_CONFIG_HOME/hosttodo/config.yaml)")
	endpoint := fs.String("endpoint", "", "todos service base URL")
	timeout := fs.Duration("timeout", 0, "per-request timeout")
	theme := fs.String("theme", "", "classic, neon or mono")
	logLevel := fs.String("log-level", "", "debug, info, warn, error")
	logOutput := fs.String("log-output", "", "write JSON logs to this file")
	cachePath := fs.String("cache", "", "offline cache file")
	noColor := fs.Bool("no-color", false, "disable ANSI colors")
	help := fs.BoolP("help", "h", false, "show help")

	if err := fs.Parse(args); err != nil {
		ui.Fail(err.Error())
		PrintHelp()
		return 2
	}
	rest := fs.Args()
	if *help || (len(rest) > 0 && rest[0] == "help") {
		PrintHelp()
		return 0
	}
	if len(rest) == 0 {
		PrintHelp()
		return 2
	}
	cmd, sub := rest[0], rest[1:]

	cfg, err := config.Load(*configPath)
	if err != nil {
		ui.Fail("config: " + err.Error())
		return 1
	}
	if fs.Changed("endpoint") {
		cfg.Endpoint = *endpoint
	}
	if fs.Changed("timeout") {
		cfg.Timeout = *timeout
	}
	if fs.Changed("theme") {
		cfg.Theme = *theme
	}
	if fs.Changed("log-level") {
		cfg.LogLevel = *logLevel
	}
	if fs.Changed("log-output") {
		cfg.LogOutput = *logOutput
	}
	if fs.Changed("cache") {
		cfg.CachePath = *cachePath
	}
	if fs.Changed("no-color") {
		cfg.NoColor = *noColor
	}
	if err := cfg.Validate(); err != nil {
		ui.Fail("config: " + err.Error())
		return 2
	}
	ui.SetTheme(cfg.Theme)
	if cfg.NoColor {
		ui.SetColorForcing(false, true)
	}

	if cmd == "config" {
		out, err := cfg.YAML()
		if err != nil {
			ui.Fail("config: " + err.Error())
			return 1
		}
		fmt.Fprint(ui.Stdout(), out)
		return 0
	}

	// The board owns the terminal, so its logs go to a file or nowhere.
	logFallback := io.Writer(os.Stderr)
	if cmd == "board" {
		logFallback = io.Discard
	}
	logger, closer, err := logging.Open(cfg.LogOutput, cfg.LogLevel, logFallback)
	if err != nil {
		ui.Fail(err.Error())
		return 1
	}
	defer closer.Close()

	ap, err := newApp(cfg, logger, opt)
	if err != nil {
		ui.Fail(err.Error())
		return 1
	}

	switch cmd {
	case "ls":
		return ap.doList(sub)
	case "categories":
		return ap.doCategories(sub)
	case "hosts":
		return ap.doHosts(sub)
	case "add":
		return ap.doAdd(sub)
	case "rm":
		return ap.doRemove(sub)
	case "board":
		return ap.doBoard(sub)
	}

	ui.Fail("unknown subcommand: " + cmd)
	PrintHelp()
	return 2
}

func newApp(cfg *config.Config, logger *logrus.Logger, opt Options) (*app, error) {
	client, err := api.New(cfg.Endpoint, api.WithTimeout(cfg.Timeout), api.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	store, err := jsonstore.New(cfg.CachePath)
	if err != nil {
		return nil, err
	}
	stdin := opt.Stdin
	if stdin == nil {
		stdin = os.Stdin
	}
	return &app{
		cfg:    cfg,
		logger: logger,
		sess:   session.New(client, store, client.Endpoint(), logger),
		stdin:  bufio.NewReader(stdin),
	}, nil
}

func PrintHelp() {
	fmt.Fprint(ui.Stdout(), `hosttodo - per-host todos from a REST service

Usage:
  hosttodo [global flags] <subcommand> [flags]

Subcommands:
  ls [--category C] [--host H] [--offline]   Show todos as cards
  categories                                 List categories
  hosts <category>                           List hostnames within a category
  add --category C --host H --name N --desc D [--src URL] [--status S]
                                             Create a todo
  rm <id> [--yes]                            Delete a todo (asks first)
  board                                      Interactive board
  config                                     Print the effective configuration

Global flags:
  --endpoint URL     service base URL (default http://localhost:3000)
  --timeout D        per-request timeout (default 10s)
  --theme NAME       classic, neon or mono
  --config FILE      config file
  --cache FILE       offline cache file
  --log-level L      debug, info, warn, error
  --log-output FILE  write JSON logs to FILE
  --no-color         disable colors

Examples:
  hosttodo ls --category web --host web-1
  hosttodo add --category db --host pg-1 --name vacuum --desc "full vacuum"
  hosttodo rm 65f0c1e2 --yes
`)
}

// -------------- subcommand impls ----------------

func (a *app) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), a.cfg.Timeout+time.Second)
}

func (a *app) doList(args []string) int {
	fs := pflag.NewFlagSet("ls", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	category := fs.StringP("category", "c", filter.All, "category to show")
	host := fs.String("host", filter.All, "hostname within the category")
	offline := fs.Bool("offline", false, "show the cached list without contacting the server")
	if err := fs.Parse(args); err != nil {
		ui.Fail("ls: " + err.Error())
		return 2
	}
	if *host != filter.All && *category == filter.All {
		ui.Fail("ls: --host needs --category")
		return 2
	}

	if *offline {
		if err := a.sess.LoadCached(); err != nil {
			ui.Fail(err.Error())
			return 1
		}
	} else if err := a.load(); err != nil {
		return 1
	}

	if err := a.sess.SelectCategory(*category); err != nil {
		ui.Fail(err.Error())
		ui.Muted("Hint: run `hosttodo categories` to see valid categories")
		return 2
	}
	if err := a.sess.SelectHostname(*host); err != nil {
		ui.Fail(err.Error())
		ui.Muted(fmt.Sprintf("Hint: run `hosttodo hosts %s` to see valid hostnames", *category))
		return 2
	}

	ui.Panel(a.boardLines())
	return 0
}

// load refreshes from the server, falling back to the cache when the
// server cannot be reached.
func (a *app) load() error {
	ctx, cancel := a.ctx()
	defer cancel()
	err := a.sess.Refresh(ctx)
	if err == nil {
		return nil
	}
	a.logger.WithError(err).Error("error fetching todos")
	ui.Fail(err.Error())

	var se *api.StatusError
	if errors.As(err, &se) {
		return err
	}
	if cerr := a.sess.LoadCached(); cerr != nil {
		if errors.Is(cerr, session.ErrForeignCache) {
			ui.Muted("offline cache skipped: " + cerr.Error())
		}
		return err
	}
	if a.sess.FetchedAt().IsZero() {
		return err
	}
	return nil
}

func (a *app) boardLines() []string {
	t := ui.Current()
	visible := a.sess.Visible()
	sel := a.sess.Selection()
	done, pending := model.Stats(visible)

	hostLabel := sel.Hostname
	if !sel.Enabled() {
		hostLabel = ui.C(t.Muted, "all (pick a category)")
	}

	var lines []string
	lines = append(lines, fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		ui.C(t.Title, "Todos"),
		ui.C(t.Success, t.SymDone), done,
		ui.C(t.Pending, t.SymPending), pending,
		ui.C(t.Accent, "Total"), len(visible),
	))
	lines = append(lines, fmt.Sprintf("%s %s   %s %s",
		ui.C(t.Muted, "category:"), sel.Category,
		ui.C(t.Muted, "host:"), hostLabel,
	))
	if a.sess.Stale() {
		lines = append(lines, ui.C(t.Error, "offline: cached "+a.sess.FetchedAt().Local().Format(time.RFC822)))
	}
	lines = append(lines, ui.C(t.Muted, ui.ProgressBar(done, done+pending, 28)))
	lines = append(lines, "")

	if len(visible) == 0 {
		lines = append(lines, ui.C(t.Muted, "No todos found."))
		return lines
	}
	for i, td := range visible {
		if i > 0 {
			lines = append(lines, ui.Rule(28))
		}
		lines = append(lines, ui.CardLines(td)...)
	}
	return lines
}

func (a *app) doCategories(args []string) int {
	if len(args) != 0 {
		ui.Fail("usage: hosttodo categories")
		return 2
	}
	if err := a.load(); err != nil {
		return 1
	}
	for _, c := range filter.Categories(a.sess.Todos()) {
		fmt.Fprintln(ui.Stdout(), c)
	}
	return 0
}

func (a *app) doHosts(args []string) int {
	if len(args) != 1 {
		ui.Fail("usage: hosttodo hosts <category>")
		return 2
	}
	if err := a.load(); err != nil {
		return 1
	}
	if err := a.sess.SelectCategory(args[0]); err != nil {
		ui.Fail(err.Error())
		return 2
	}
	for _, h := range filter.Hostnames(a.sess.Todos(), args[0]) {
		fmt.Fprintln(ui.Stdout(), h)
	}
	return 0
}

func (a *app) doAdd(args []string) int {
	var d model.Draft
	fs := pflag.NewFlagSet("add", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.StringVarP(&d.Category, "category", "c", "", "category (required)")
	fs.StringVar(&d.Hostname, "host", "", "hostname (required)")
	fs.StringVarP(&d.Name, "name", "n", "", "todo name (required)")
	fs.StringVarP(&d.Description, "desc", "d", "", "description (required)")
	fs.StringVar(&d.Src, "src", "", "content URL")
	fs.StringVar(&d.Status, "status", model.StatusNotCompleted, `"completed" or "not completed"`)
	if err := fs.Parse(args); err != nil {
		ui.Fail("add: " + err.Error())
		return 2
	}
	if fs.NArg() != 0 {
		ui.Fail("usage: hosttodo add --category C --host H --name N --desc D [--src URL] [--status S]")
		return 2
	}
	if err := d.Validate(); err != nil {
		ui.Fail("Please fill in all required fields! (" + err.Error() + ")")
		return 2
	}
	switch strings.TrimSpace(d.Status) {
	case model.StatusCompleted, model.StatusNotCompleted:
	default:
		ui.Fail(fmt.Sprintf("add: status must be %q or %q", model.StatusCompleted, model.StatusNotCompleted))
		return 2
	}

	ctx, cancel := a.ctx()
	defer cancel()
	err := a.sess.Add(ctx, d)
	if errors.Is(err, session.ErrReloadAfterCreate) {
		a.logger.WithError(err).Warn("error reloading todos after add")
		ui.OK("added")
		ui.Muted(err.Error())
		return 0
	}
	if err != nil {
		a.logger.WithError(err).Error("error adding todo")
		ui.Fail("add: " + err.Error())
		return 1
	}
	ui.OK(fmt.Sprintf("added (%d todos)", len(a.sess.Todos())))
	return 0
}

func (a *app) doRemove(args []string) int {
	fs := pflag.NewFlagSet("rm", pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	yes := fs.BoolP("yes", "y", false, "do not ask for confirmation")
	if err := fs.Parse(args); err != nil {
		ui.Fail("rm: " + err.Error())
		return 2
	}
	if fs.NArg() != 1 {
		ui.Fail("usage: hosttodo rm <id> [--yes]")
		return 2
	}
	id := fs.Arg(0)

	if err := a.load(); err != nil {
		return 1
	}
	if a.sess.Stale() {
		ui.Fail("rm: server unreachable")
		return 1
	}
	td, err := a.sess.Find(id)
	if err != nil {
		ui.Fail("rm: " + err.Error())
		ui.Muted("Hint: run `hosttodo ls` to see ids")
		return 2
	}

	if !*yes {
		ui.Panel(ui.CardLines(td))
		if !a.confirm("Are you sure you want to delete this todo?") {
			ui.Muted("cancelled")
			return 0
		}
	}

	ctx, cancel := a.ctx()
	defer cancel()
	if err := a.sess.Remove(ctx, id); err != nil {
		a.logger.WithError(err).Error("error deleting todo")
		ui.Fail("rm: " + err.Error())
		return 1
	}
	ui.OK("deleted")
	return 0
}

func (a *app) confirm(question string) bool {
	fmt.Fprintf(ui.Stdout(), "%s [y/N] ", question)
	line, err := a.stdin.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func (a *app) doBoard(args []string) int {
	if len(args) != 0 {
		ui.Fail("usage: hosttodo board")
		return 2
	}
	if err := tui.Run(a.sess, a.logger); err != nil {
		ui.Fail("board: " + err.Error())
		return 1
	}
	return 0
}
