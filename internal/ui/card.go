package ui

import (
	"fmt"

	"github.com/Makepad-fr/hosttodo/internal/model"
)

const maxLine = 80

// CardLines renders one todo the way the board shows it: heading, name and
// status, description, content link, id.
func CardLines(td model.Todo) []string {
	t := Current()
	d := td.Content()

	statusColor := t.Error
	if td.Completed() {
		statusColor = t.Success
	}
	content := C(t.Muted, "No Content")
	if link := d.Link(); link != "" {
		content = C(t.Accent, t.SymLink+" "+link)
	}

	return []string{
		fmt.Sprintf("%s - %s", C(t.Title, td.Category), C(t.Pending, td.Hostname)),
		fmt.Sprintf("%s - %s", C(bold, truncate(d.Name)), C(statusColor, td.Status)),
		truncate(d.Description),
		content,
		C(dim, "id: "+td.ID),
	}
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) > maxLine {
		return string(r[:maxLine-3]) + "..."
	}
	return s
}
