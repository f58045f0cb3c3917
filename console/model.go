package console

import (
	"strings"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
)

// choiceItem adapts one visible SelectParam to bubbles/list's Item
// interface, the same three-method shape the teacher's selectstoryui
// story type implements for the IF-archive picker.
type choiceItem struct {
	index int // position within the filtered slice ChoiceEvent carried
	text  string
}

func (c choiceItem) Title() string       { return c.text }
func (c choiceItem) Description() string { return "" }
func (c choiceItem) FilterValue() string { return c.text }

type textEventMsg TextEvent
type pageEventMsg struct{}
type brakeEventMsg struct{}
type choiceEventMsg ChoiceEvent
type haltEventMsg struct{}

var (
	backlogStyle = lipgloss.NewStyle()
	promptStyle  = lipgloss.NewStyle().Margin(1, 2)
	endStyle     = lipgloss.NewStyle().Bold(true)
	statusStyle  = lipgloss.NewStyle().Faint(true)
)

// Model is the bubbletea frontend. It owns no engine state directly -
// only what's needed to render - and mutates its own fields exclusively
// from events read off the Runner's channel, the way the teacher's
// runStoryModel only ever updates its own fields inside Update.
type Model struct {
	runner *Runner

	backlog []string
	current strings.Builder

	choosing bool
	choices  list.Model

	width, height int
	halted        bool

	status string

	// OnSave, if set, is invoked on ctrl+s with the model's *Runner so a
	// host (cmd/rlvm) can snapshot and persist the game through savestate
	// without the console package needing to know that package exists.
	// Its returned string is shown as a one-line status message.
	OnSave func(*Runner) (string, error)
}

// NewModel builds a Model driving runner.
func NewModel(runner *Runner) Model {
	return Model{
		runner:  runner,
		choices: list.New(nil, list.NewDefaultDelegate(), 0, 0),
	}
}

func (m Model) Init() tea.Cmd {
	m.choices.SetShowTitle(false)
	return tea.Batch(waitForEvent(m.runner), runEngine(m.runner), tea.WindowSize())
}

func runEngine(r *Runner) tea.Cmd {
	return func() tea.Msg {
		r.Run()
		return nil
	}
}

func waitForEvent(r *Runner) tea.Cmd {
	return func() tea.Msg {
		switch ev := (<-r.Events()).(type) {
		case TextEvent:
			return textEventMsg(ev)
		case PageEvent:
			return pageEventMsg{}
		case BrakeEvent:
			return brakeEventMsg{}
		case ChoiceEvent:
			return choiceEventMsg(ev)
		case HaltEvent:
			return haltEventMsg{}
		default:
			return nil
		}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		h, v := promptStyle.GetFrameSize()
		m.choices.SetSize(msg.Width-h, msg.Height-v)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if msg.String() == "ctrl+s" && m.OnSave != nil {
			if status, err := m.OnSave(m.runner); err != nil {
				m.status = "save failed: " + err.Error()
			} else {
				m.status = status
			}
			return m, nil
		}
		if m.choosing {
			if msg.String() == "enter" {
				if chosen, ok := m.choices.SelectedItem().(choiceItem); ok {
					m.choosing = false
					m.runner.Answer(chosen.index)
					return m, waitForEvent(m.runner)
				}
			}
			var cmd tea.Cmd
			m.choices, cmd = m.choices.Update(msg)
			return m, cmd
		}
		m.runner.Input().Advance()

	case textEventMsg:
		m.current.WriteString(string(msg))
		return m, waitForEvent(m.runner)

	case pageEventMsg:
		if m.current.Len() > 0 {
			m.backlog = append(m.backlog, m.current.String())
			m.current.Reset()
		}
		return m, waitForEvent(m.runner)

	case brakeEventMsg:
		return m, waitForEvent(m.runner)

	case choiceEventMsg:
		items := make([]list.Item, len(msg.Params))
		for i, p := range msg.Params {
			items[i] = choiceItem{index: i, text: p.Text}
		}
		m.choices.SetItems(items)
		m.choosing = true
		return m, nil

	case haltEventMsg:
		m.halted = true
		return m, tea.Quit
	}

	return m, nil
}

func (m Model) View() string {
	if m.halted {
		return endStyle.Render("\nThe story has ended.\n")
	}
	if m.choosing {
		return promptStyle.Render(m.choices.View())
	}

	body := strings.Join(append(append([]string{}, m.backlog...), m.current.String()), "\n")
	if m.width > 0 {
		body = wordwrap.String(body, m.width)
	}
	if m.status != "" {
		body += "\n" + statusStyle.Render(m.status)
	}
	return backlogStyle.Render(body)
}
