package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// ErrAborted is returned by Ask when the user leaves the form with Esc or Ctrl+C.
var ErrAborted = errors.New("aborted by user")

// Field describes one question of the form.
type Field struct {
	Key      string
	Label    string
	Default  string
	Required bool
}

// FormModel is an immutable Bubbletea model that asks each field in turn.
type FormModel struct {
	title   string
	fields  []Field
	inputs  []textinput.Model
	answers []string
	index   int
	errMsg  string
	done    bool
	aborted bool
}

// NewFormModel creates a form with the first field focused.
func NewFormModel(title string, fields []Field) FormModel {
	inputs := make([]textinput.Model, len(fields))
	for i, f := range fields {
		in := textinput.New()
		in.Prompt = "> "
		in.Placeholder = f.Default
		in.CharLimit = 200
		inputs[i] = in
	}
	if len(inputs) > 0 {
		inputs[0].Focus()
	}
	return FormModel{
		title:   title,
		fields:  fields,
		inputs:  inputs,
		answers: make([]string, len(fields)),
		done:    len(fields) == 0,
	}
}

// Init starts the cursor blink.
func (m FormModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles key events.
func (m FormModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.done || m.aborted {
		return m, nil
	}
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.aborted = true
			return m, tea.Quit
		case tea.KeyEnter:
			return m.submit()
		}
	}

	m.inputs = cloneInputs(m.inputs)
	var cmd tea.Cmd
	m.inputs[m.index], cmd = m.inputs[m.index].Update(msg)
	return m, cmd
}

// submit records the current answer and moves to the next field.
func (m FormModel) submit() (tea.Model, tea.Cmd) {
	field := m.fields[m.index]
	value := strings.TrimSpace(m.inputs[m.index].Value())
	if value == "" {
		value = field.Default
	}
	if field.Required && value == "" {
		m.errMsg = fmt.Sprintf("%s is required", field.Label)
		return m, nil
	}

	m.errMsg = ""
	m.answers = append([]string(nil), m.answers...)
	m.answers[m.index] = value
	m.inputs = cloneInputs(m.inputs)
	m.inputs[m.index].Blur()
	m.index++
	if m.index == len(m.fields) {
		m.done = true
		return m, tea.Quit
	}
	return m, m.inputs[m.index].Focus()
}

func cloneInputs(in []textinput.Model) []textinput.Model {
	return append([]textinput.Model(nil), in...)
}

// Done reports whether every field has been answered.
func (m FormModel) Done() bool {
	return m.done
}

// Aborted reports whether the user cancelled the form.
func (m FormModel) Aborted() bool {
	return m.aborted
}

// Answers returns the submitted values keyed by field key.
func (m FormModel) Answers() map[string]string {
	out := make(map[string]string, len(m.fields))
	for i, f := range m.fields {
		if i < m.index || m.done {
			out[f.Key] = m.answers[i]
		}
	}
	return out
}

// View renders answered fields, the active input and any validation error.
func (m FormModel) View() string {
	var sb strings.Builder
	if m.title != "" {
		sb.WriteString(TitleStyle.Render(m.title))
		sb.WriteString("\n")
	}
	for i, f := range m.fields {
		switch {
		case i < m.index:
			sb.WriteString(fmt.Sprintf("%s %s\n", LabelStyle.Render(f.Label+":"), AnsweredStyle.Render(m.answers[i])))
		case i == m.index && !m.done:
			sb.WriteString(LabelStyle.Render(f.Label) + "\n")
			sb.WriteString(m.inputs[i].View() + "\n")
		}
	}
	if m.errMsg != "" {
		sb.WriteString(ErrorStyle.Render(m.errMsg) + "\n")
	}
	if !m.done && !m.aborted {
		sb.WriteString(HelpStyle.Render("enter: confirm • esc: cancel") + "\n")
	}
	return sb.String()
}

// Ask runs the form as a Bubbletea program and returns the answers.
func Ask(title string, fields []Field, opts ...tea.ProgramOption) (map[string]string, error) {
	final, err := tea.NewProgram(NewFormModel(title, fields), opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("running prompt: %w", err)
	}
	form, ok := final.(FormModel)
	if !ok || form.Aborted() || !form.Done() {
		return nil, ErrAborted
	}
	return form.Answers(), nil
}
