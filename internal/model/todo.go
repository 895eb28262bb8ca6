package model

import "strings"

// Status values offered by the add form. The server stores whatever string
// it receives, so anything else is rendered as not completed.
const (
	StatusCompleted    = "completed"
	StatusNotCompleted = "not completed"
)

// Todo is a per-host work item as served by GET /todos.
type Todo struct {
	ID       string   `json:"_id,omitempty"`
	Category string   `json:"category"`
	Hostname string   `json:"hostname"`
	Details  []Detail `json:"details"`
	Status   string   `json:"status"`
}

// Detail is the content attached to a todo. Only the first entry of
// Todo.Details is ever shown.
type Detail struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Src         string `json:"src"`
}

// NewTodo is the POST /todos body.
type NewTodo struct {
	Category string   `json:"category"`
	Hostname string   `json:"hostname"`
	Details  []Detail `json:"details"`
	Status   string   `json:"status"`
}

// Placeholder is what a card shows when a todo carries no details.
var Placeholder = Detail{Name: "No Name", Description: "No Description"}

// Content returns the first detail entry or Placeholder.
func (t Todo) Content() Detail {
	if len(t.Details) == 0 {
		return Placeholder
	}
	return t.Details[0]
}

func (t Todo) Completed() bool { return t.Status == StatusCompleted }

// Link returns Src with an https:// scheme added when it has none.
// An empty Src means "no content".
func (d Detail) Link() string {
	src := strings.TrimSpace(d.Src)
	if src == "" {
		return ""
	}
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	return "https://" + src
}

// Stats counts completed vs everything else.
func Stats(todos []Todo) (completed, pending int) {
	for _, t := range todos {
		if t.Completed() {
			completed++
		} else {
			pending++
		}
	}
	return
}

// Without returns todos minus the one with the given id, and whether it
// was present.
func Without(todos []Todo, id string) ([]Todo, bool) {
	out := make([]Todo, 0, len(todos))
	found := false
	for _, t := range todos {
		if t.ID == id {
			found = true
			continue
		}
		out = append(out, t)
	}
	return out, found
}
