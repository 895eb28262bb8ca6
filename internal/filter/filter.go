// Package filter derives the category/hostname selector options from a todo
// list and narrows the list by the current selection.
package filter

import (
	"errors"
	"fmt"

	"github.com/Makepad-fr/hosttodo/internal/model"
)

// All means "no restriction" for either selector.
const All = "all"

var (
	ErrHostnameDisabled = errors.New("hostname filter is disabled until a category is selected")
	ErrUnknownOption    = errors.New("unknown option")
)

// Categories returns the distinct categories in first-seen order.
func Categories(todos []model.Todo) []string {
	return distinct(todos, func(t model.Todo) (string, bool) { return t.Category, true })
}

// Hostnames returns the distinct hostnames of todos in category, in
// first-seen order. It returns nil for All.
func Hostnames(todos []model.Todo, category string) []string {
	if category == All {
		return nil
	}
	return distinct(todos, func(t model.Todo) (string, bool) {
		return t.Hostname, t.Category == category
	})
}

func distinct(todos []model.Todo, key func(model.Todo) (string, bool)) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, t := range todos {
		k, ok := key(t)
		if !ok {
			continue
		}
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// Apply keeps todos matching category and hostname. Either may be All.
func Apply(todos []model.Todo, category, hostname string) []model.Todo {
	out := make([]model.Todo, 0, len(todos))
	for _, t := range todos {
		if category != All && t.Category != category {
			continue
		}
		if hostname != All && t.Hostname != hostname {
			continue
		}
		out = append(out, t)
	}
	return out
}

// Selection is the state of the two cascading selectors. The zero value is
// not valid; use NewSelection.
type Selection struct {
	Category string
	Hostname string
}

func NewSelection() Selection {
	return Selection{Category: All, Hostname: All}
}

// Enabled reports whether the hostname selector accepts a value.
func (s Selection) Enabled() bool { return s.Category != All }

// SelectCategory switches category and always resets hostname.
func (s *Selection) SelectCategory(todos []model.Todo, category string) error {
	if category != All && !contains(Categories(todos), category) {
		return fmt.Errorf("category %q: %w", category, ErrUnknownOption)
	}
	s.Category = category
	s.Hostname = All
	return nil
}

// SelectHostname narrows the current category to one host.
func (s *Selection) SelectHostname(todos []model.Todo, hostname string) error {
	if hostname == All {
		s.Hostname = All
		return nil
	}
	if !s.Enabled() {
		return ErrHostnameDisabled
	}
	if !contains(Hostnames(todos, s.Category), hostname) {
		return fmt.Errorf("hostname %q in %q: %w", hostname, s.Category, ErrUnknownOption)
	}
	s.Hostname = hostname
	return nil
}

// Reconcile drops choices that no longer exist after the list changed.
func (s *Selection) Reconcile(todos []model.Todo) {
	if s.Category != All && !contains(Categories(todos), s.Category) {
		s.Category = All
		s.Hostname = All
		return
	}
	if s.Hostname != All && !contains(Hostnames(todos, s.Category), s.Hostname) {
		s.Hostname = All
	}
}

// Apply filters todos with this selection.
func (s Selection) Apply(todos []model.Todo) []model.Todo {
	return Apply(todos, s.Category, s.Hostname)
}

// NextCategory advances through [All, categories...] and wraps.
func (s *Selection) NextCategory(todos []model.Todo) {
	s.Category = next(append([]string{All}, Categories(todos)...), s.Category)
	s.Hostname = All
}

// NextHostname advances through [All, hostnames...] of the current category.
func (s *Selection) NextHostname(todos []model.Todo) error {
	if !s.Enabled() {
		return ErrHostnameDisabled
	}
	s.Hostname = next(append([]string{All}, Hostnames(todos, s.Category)...), s.Hostname)
	return nil
}

func next(options []string, cur string) string {
	for i, o := range options {
		if o == cur {
			return options[(i+1)%len(options)]
		}
	}
	return options[0]
}

func contains(list []string, v string) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}
