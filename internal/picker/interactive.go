package picker

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00AAFF"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFAA00")).
			Bold(true)

	checkedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00"))

	itemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF"))
)

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Toggle key.Binding
	All    key.Binding
	Done   key.Binding
	Quit   key.Binding
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.All, k.Done, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{k.ShortHelp()}
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle: key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "toggle")),
	All:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "toggle all")),
	Done:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
	Quit:   key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

type model struct {
	choices  []Choice
	selected map[int]bool
	cursor   int
	done     bool
	aborted  bool
	help     help.Model
}

func newModel(choices []Choice) model {
	return model{
		choices:  choices,
		selected: make(map[int]bool),
		help:     help.New(),
	}
}

func (m model) Init() tea.Cmd { return nil }

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			m.aborted = true
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, keys.Down):
			if m.cursor < len(m.choices)-1 {
				m.cursor++
			}
		case key.Matches(msg, keys.Toggle):
			m.selected[m.cursor] = !m.selected[m.cursor]
		case key.Matches(msg, keys.All):
			all := len(m.ids()) == len(m.choices)
			for i := range m.choices {
				m.selected[i] = !all
			}
		case key.Matches(msg, keys.Done):
			m.done = true
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
	}
	return m, nil
}

// ids returns the selected chapter ids in document order.
func (m model) ids() []string {
	var out []string
	for i, c := range m.choices {
		if m.selected[i] {
			out = append(out, c.ID)
		}
	}
	return out
}

func (m model) View() string {
	if m.done || m.aborted {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("Select chapters to summarize"))
	sb.WriteString("\n\n")
	for i, c := range m.choices {
		cursor := "  "
		if i == m.cursor {
			cursor = cursorStyle.Render("> ")
		}
		box := "[ ]"
		label := itemStyle.Render(c.Label)
		if m.selected[i] {
			box = "[x]"
			label = checkedStyle.Render(c.Label)
		}
		fmt.Fprintf(&sb, "%s%s %s\n", cursor, box, label)
	}
	sb.WriteString("\n")
	sb.WriteString(m.help.View(keys))
	return sb.String()
}

// Interactive lets the user tick chapters in a terminal checklist.
type Interactive struct {
	In  io.Reader
	Out io.Writer
}

func (s Interactive) Select(ctx context.Context, choices []Choice) ([]string, error) {
	if len(choices) == 0 {
		return nil, ErrNoSelection
	}
	opts := []tea.ProgramOption{tea.WithContext(ctx)}
	if s.In != nil {
		opts = append(opts, tea.WithInput(s.In))
	}
	if s.Out != nil {
		opts = append(opts, tea.WithOutput(s.Out))
	}
	final, err := tea.NewProgram(newModel(choices), opts...).Run()
	if err != nil {
		return nil, fmt.Errorf("run chapter picker: %w", err)
	}
	m := final.(model)
	if m.aborted {
		return nil, ErrAborted
	}
	ids := m.ids()
	if len(ids) == 0 {
		return nil, ErrNoSelection
	}
	return ids, nil
}
