package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingFields is returned by Draft.Validate when a required field is
// blank.
var ErrMissingFields = errors.New("please fill in all required fields")

// Draft holds the add-form input before it becomes a NewTodo.
type Draft struct {
	Category    string
	Hostname    string
	Name        string
	Description string
	Src         string
	Status      string
}

// Trimmed returns a copy with surrounding whitespace removed from every
// field.
func (d Draft) Trimmed() Draft {
	return Draft{
		Category:    strings.TrimSpace(d.Category),
		Hostname:    strings.TrimSpace(d.Hostname),
		Name:        strings.TrimSpace(d.Name),
		Description: strings.TrimSpace(d.Description),
		Src:         strings.TrimSpace(d.Src),
		Status:      strings.TrimSpace(d.Status),
	}
}

// Validate checks category, hostname, name and description are present.
func (d Draft) Validate() error {
	d = d.Trimmed()
	var missing []string
	if d.Category == "" {
		missing = append(missing, "category")
	}
	if d.Hostname == "" {
		missing = append(missing, "hostname")
	}
	if d.Name == "" {
		missing = append(missing, "name")
	}
	if d.Description == "" {
		missing = append(missing, "description")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrMissingFields, strings.Join(missing, ", "))
	}
	return nil
}

// Todo builds the request body. Call Validate first.
func (d Draft) Todo() NewTodo {
	d = d.Trimmed()
	status := d.Status
	if status == "" {
		status = StatusNotCompleted
	}
	return NewTodo{
		Category: d.Category,
		Hostname: d.Hostname,
		Details: []Detail{{
			Name:        d.Name,
			Description: d.Description,
			Src:         d.Src,
		}},
		Status: status,
	}
}
