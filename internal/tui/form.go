package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/hosttodo/internal/model"
)

const (
	fieldCategory = iota
	fieldHostname
	fieldName
	fieldDescription
	fieldSrc
	fieldStatus // toggle, not a text input
	fieldCount
)

var fieldLabels = [fieldCount]string{"Category", "Hostname", "Name", "Description", "Content URL", "Status"}

var statuses = []string{model.StatusNotCompleted, model.StatusCompleted}

// addForm is the inline "Add To-Do" panel.
type addForm struct {
	inputs [fieldStatus]textinput.Model
	status int // index into statuses
	focus  int
	err    string
	busy   bool
}

func newAddForm(category, hostname string) *addForm {
	f := &addForm{}
	placeholders := [fieldStatus]string{"web", "web-01", "Rotate certificates", "What needs doing", "docs.example.com/runbook"}
	for i := range f.inputs {
		ti := textinput.New()
		ti.Prompt = "> "
		ti.Placeholder = placeholders[i]
		ti.CharLimit = 200
		f.inputs[i] = ti
	}
	f.inputs[fieldCategory].SetValue(category)
	f.inputs[fieldHostname].SetValue(hostname)
	f.setFocus(fieldCategory)
	if category != "" {
		f.setFocus(fieldName)
	}
	return f
}

func (f *addForm) setFocus(i int) {
	f.focus = (i + fieldCount) % fieldCount
	for j := range f.inputs {
		if j == f.focus {
			f.inputs[j].Focus()
		} else {
			f.inputs[j].Blur()
		}
	}
}

// Draft collects the current field values.
func (f *addForm) Draft() model.Draft {
	return model.Draft{
		Category:    f.inputs[fieldCategory].Value(),
		Hostname:    f.inputs[fieldHostname].Value(),
		Name:        f.inputs[fieldName].Value(),
		Description: f.inputs[fieldDescription].Value(),
		Src:         f.inputs[fieldSrc].Value(),
		Status:      statuses[f.status],
	}
}

// formResult tells the board what the form wants.
type formResult int

const (
	formContinue formResult = iota
	formCancel
	formSubmit
)

func (f *addForm) Update(msg tea.Msg) (formResult, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "esc":
			return formCancel, nil
		case "tab", "down":
			f.setFocus(f.focus + 1)
			return formContinue, nil
		case "shift+tab", "up":
			f.setFocus(f.focus - 1)
			return formContinue, nil
		case "enter":
			if f.busy {
				return formContinue, nil
			}
			if err := f.Draft().Validate(); err != nil {
				f.err = "Please fill in all required fields!"
				return formContinue, nil
			}
			f.err = ""
			f.busy = true
			return formSubmit, nil
		}
		if f.focus == fieldStatus {
			switch k.String() {
			case " ", "space", "left", "right", "h", "l":
				f.status = (f.status + 1) % len(statuses)
			}
			return formContinue, nil
		}
	}
	if f.focus == fieldStatus {
		return formContinue, nil
	}
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return formContinue, cmd
}

func (f *addForm) View() string {
	var b strings.Builder
	title := titleStyle.Render("Add To-Do")
	if f.err != "" {
		title += " " + errorStyle.Render(f.err)
	}
	if f.busy {
		title += " " + mutedStyle.Render("saving...")
	}
	b.WriteString(title + "\n")
	for i := 0; i < fieldCount; i++ {
		label := fieldLabels[i]
		if i <= fieldDescription {
			label += "*"
		}
		marker := "  "
		if i == f.focus {
			marker = selectedStyle.Render(">") + " "
		}
		b.WriteString(marker + mutedStyle.Render(padRight(label, 13)))
		if i == fieldStatus {
			b.WriteString(statusStyle(statuses[f.status] == model.StatusCompleted).Render("‹ " + statuses[f.status] + " ›"))
		} else {
			b.WriteString(f.inputs[i].View())
		}
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab/shift+tab move • space toggles status • enter save • esc cancel"))
	return frameStyle.Render(b.String())
}

func padRight(s string, n int) string {
	if len(s) >= n {
		return s
	}
	return s + strings.Repeat(" ", n-len(s))
}
