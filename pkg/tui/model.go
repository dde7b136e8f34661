// Package tui is the interactive terminal front end of a note store.
//
// The Model renders the store and forwards key presses to it. Store changes,
// local or pushed by peers, arrive as messages read from Store.Events.
package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aretw0/quill/pkg/core"
)

type pane int

const (
	paneList pane = iota
	paneForm
)

const (
	fieldName = iota
	fieldDescription
)

// StoreEventMsg carries one store change into the update loop.
type StoreEventMsg core.Event

// EventsClosedMsg signals that the store closed its event channel.
type EventsClosedMsg struct{}

// LoadedMsg reports the end of the initial load started by Init.
type LoadedMsg struct {
	Err error
}

// Model is the bubbletea model over a core.Store.
type Model struct {
	ctx   context.Context
	store *core.Store

	inputs     []textinput.Model
	field      int
	focus      pane
	cursor     int
	validation string

	width    int
	quitting bool
}

// New creates a Model. The store may still be loading; Init loads it.
func New(ctx context.Context, store *core.Store) Model {
	name := textinput.New()
	name.Placeholder = "Name"
	name.Prompt = "name: "
	name.CharLimit = 256

	desc := textinput.New()
	desc.Placeholder = "Description"
	desc.Prompt = "desc: "
	desc.CharLimit = 1024

	form := store.Form()
	name.SetValue(form.Name)
	desc.SetValue(form.Description)

	return Model{
		ctx:    ctx,
		store:  store,
		inputs: []textinput.Model{name, desc},
		focus:  paneList,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{waitForEvent(m.store.Events())}
	if m.store.Loading() {
		cmds = append(cmds, loadNotes(m.ctx, m.store))
	}
	return tea.Batch(cmds...)
}

func waitForEvent(events <-chan core.Event) tea.Cmd {
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return EventsClosedMsg{}
		}
		return StoreEventMsg(e)
	}
}

func loadNotes(ctx context.Context, store *core.Store) tea.Cmd {
	return func() tea.Msg {
		err := store.InitialLoad(ctx)
		if errors.Is(err, core.ErrAlreadyLoaded) {
			err = nil
		}
		return LoadedMsg{Err: err}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case StoreEventMsg:
		m.clampCursor()
		return m, waitForEvent(m.store.Events())

	case EventsClosedMsg, LoadedMsg:
		m.clampCursor()
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		for i := range m.inputs {
			m.inputs[i].Width = max(msg.Width-12, 10)
		}
		return m, nil

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.quitting = true
			return m, tea.Quit
		}
		if msg.Type == tea.KeyTab {
			return m.switchPane(), nil
		}
		if m.focus == paneForm {
			return m.updateForm(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) switchPane() Model {
	if m.focus == paneList {
		m.focus = paneForm
		m.field = fieldName
		m.inputs[fieldName].Focus()
		return m
	}
	m.focus = paneList
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	return m
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	visible := m.store.Visible()

	switch msg.String() {
	case "q":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(visible)-1 {
			m.cursor++
		}
	case " ", "enter":
		if m.cursor < len(visible) {
			_, _ = m.store.ToggleCompleted(m.ctx, visible[m.cursor].ID)
		}
	case "d":
		if m.cursor < len(visible) {
			_, _ = m.store.DeleteNote(m.ctx, visible[m.cursor].ID)
		}
	case "h":
		m.store.ToggleHideCompleted()
	}
	m.clampCursor()
	return m, nil
}

func (m Model) updateForm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		return m.switchPane(), nil
	case tea.KeyUp, tea.KeyDown:
		m.inputs[m.field].Blur()
		m.field = (m.field + 1) % len(m.inputs)
		m.inputs[m.field].Focus()
		return m, nil
	case tea.KeyEnter:
		return m.submit(), nil
	}

	var cmd tea.Cmd
	m.inputs[m.field], cmd = m.inputs[m.field].Update(msg)
	key := core.FieldName
	if m.field == fieldDescription {
		key = core.FieldDescription
	}
	_ = m.store.SetField(key, m.inputs[m.field].Value())
	return m, cmd
}

func (m Model) submit() Model {
	_, err := m.store.Submit(m.ctx)
	if err != nil {
		if errors.Is(err, core.ErrValidation) {
			m.validation = core.ErrValidation.Error()
		} else {
			m.validation = err.Error()
		}
		return m
	}
	m.validation = ""
	for i := range m.inputs {
		m.inputs[i].SetValue("")
	}
	m.inputs[m.field].Blur()
	m.field = fieldName
	m.inputs[fieldName].Focus()
	m.cursor = 0
	return m
}

func (m *Model) clampCursor() {
	n := len(m.store.Visible())
	if m.cursor >= n {
		m.cursor = n - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("quill"))
	b.WriteString("\n")

	switch {
	case m.store.Loading():
		b.WriteString(mutedStyle.Render("loading notes..."))
		b.WriteString("\n")
	case m.store.LastError():
		b.WriteString(errorStyle.Render("could not load notes"))
		b.WriteString("\n")
	}

	list := m.renderList()
	form := m.renderForm()
	if m.focus == paneList {
		list = focusedPaneStyle.Render(list)
		form = paneStyle.Render(form)
	} else {
		list = paneStyle.Render(list)
		form = focusedPaneStyle.Render(form)
	}
	b.WriteString(lipgloss.JoinVertical(lipgloss.Left, form, list))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help()))
	return b.String()
}

func (m Model) renderList() string {
	visible := m.store.Visible()
	header := fmt.Sprintf("notes (%d)", len(visible))
	if m.store.HideCompleted() {
		header += " - completed hidden"
	}
	lines := []string{header}
	if len(visible) == 0 && !m.store.Loading() {
		lines = append(lines, mutedStyle.Render("no notes"))
	}
	for i, n := range visible {
		mark := "[ ]"
		name := n.Name
		if n.Completed {
			mark = "[x]"
			name = completedStyle.Render(name)
		}
		prefix := "  "
		if i == m.cursor && m.focus == paneList {
			prefix = cursorStyle.Render("> ")
		}
		lines = append(lines, fmt.Sprintf("%s%s %s %s", prefix, mark, name, descStyle.Render(n.Description)))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderForm() string {
	lines := []string{"new note"}
	for _, in := range m.inputs {
		lines = append(lines, in.View())
	}
	if m.validation != "" {
		lines = append(lines, errorStyle.Render(m.validation))
	}
	return strings.Join(lines, "\n")
}

func (m Model) help() string {
	if m.focus == paneForm {
		return "enter: add  up/down: field  tab/esc: list  ctrl+c: quit"
	}
	return "space/enter: toggle  d: delete  h: hide completed  tab: form  q: quit"
}
