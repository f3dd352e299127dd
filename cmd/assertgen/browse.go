package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/wippyai/wasm-asserts/harness"
	"github.com/wippyai/wasm-asserts/script"
)

var browseCmd = &cobra.Command{
	Use:   "browse <script>",
	Short: "Browse assertions and run them one at a time",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		p := tea.NewProgram(newBrowseModel(args[0]), tea.WithAltScreen())
		_, err := p.Run()
		return err
	},
}

type browseState int

const (
	stateList browseState = iota
	stateFilter
	stateResult
)

type browseItem struct {
	module      string
	description string
	suite       int
	ordinal     int
	runnable    bool
}

type browseModel struct {
	err      error
	h        *harness.Harness
	result   *harness.Result
	path     string
	sessions []*harness.Session
	items    []browseItem
	visible  []int
	filter   textinput.Model
	selected int
	state    browseState
	loaded   bool
}

func newBrowseModel(path string) *browseModel {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "filter"
	ti.Width = 40
	return &browseModel{path: path, filter: ti, state: stateList}
}

type browseLoadedMsg struct {
	err      error
	h        *harness.Harness
	sessions []*harness.Session
	items    []browseItem
}

type checkResultMsg struct {
	err    error
	result harness.Result
}

func (m *browseModel) Init() tea.Cmd {
	return m.load
}

func (m *browseModel) load() tea.Msg {
	ctx := context.Background()
	suites, err := loadSuites(m.path)
	if err != nil {
		return browseLoadedMsg{err: err}
	}

	h, err := harness.New(ctx, harness.Config{})
	if err != nil {
		return browseLoadedMsg{err: err}
	}

	msg := browseLoadedMsg{h: h, sessions: make([]*harness.Session, len(suites))}
	for i, suite := range suites {
		subject, err := readSubject(suite)
		if err != nil {
			msg.close(ctx)
			return browseLoadedMsg{err: err}
		}
		if subject != nil {
			s, err := h.Open(ctx, subject, suite.Collection)
			if err != nil {
				msg.close(ctx)
				return browseLoadedMsg{err: fmt.Errorf("open %s: %w", suite.Module, err)}
			}
			msg.sessions[i] = s
		}
		msg.items = append(msg.items, suiteItems(i, suite, msg.sessions[i])...)
	}
	return msg
}

func (msg browseLoadedMsg) close(ctx context.Context) {
	for _, s := range msg.sessions {
		if s != nil {
			s.Close(ctx)
		}
	}
	if msg.h != nil {
		msg.h.Close(ctx)
	}
}

func suiteItems(idx int, suite *script.Suite, s *harness.Session) []browseItem {
	var items []browseItem
	for pos, n := range suite.Collection.All() {
		items = append(items, browseItem{
			module:      suite.Module,
			description: n.Describe(),
			suite:       idx,
			ordinal:     pos,
			runnable:    s != nil,
		})
	}
	return items
}

func (m *browseModel) close() {
	ctx := context.Background()
	browseLoadedMsg{h: m.h, sessions: m.sessions}.close(ctx)
	m.sessions = nil
	m.h = nil
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.state == stateFilter {
			return m.updateFilter(msg)
		}
		switch msg.String() {
		case "ctrl+c", "q":
			m.close()
			return m, tea.Quit

		case "up", "k":
			if m.state == stateList && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateList && m.selected < len(m.visible)-1 {
				m.selected++
			}

		case "/":
			if m.state == stateList {
				m.state = stateFilter
				m.filter.Focus()
				return m, textinput.Blink
			}

		case "enter":
			switch m.state {
			case stateList:
				if item, ok := m.current(); ok && item.runnable {
					return m, m.runCheck(item)
				}
			case stateResult:
				m.state = stateList
				m.result = nil
				m.err = nil
			}

		case "esc":
			if m.state == stateResult {
				m.state = stateList
				m.result = nil
				m.err = nil
			}
		}

	case browseLoadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.h = msg.h
		m.sessions = msg.sessions
		m.items = msg.items
		m.loaded = true
		m.applyFilter()

	case checkResultMsg:
		m.err = msg.err
		m.result = &msg.result
		m.state = stateResult
	}

	return m, nil
}

func (m *browseModel) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.state = stateList
		m.filter.Blur()
		return m, nil
	case "esc":
		m.state = stateList
		m.filter.Blur()
		m.filter.SetValue("")
		m.applyFilter()
		return m, nil
	}
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	m.applyFilter()
	return m, cmd
}

func (m *browseModel) applyFilter() {
	needle := strings.ToLower(m.filter.Value())
	m.visible = m.visible[:0]
	for i, item := range m.items {
		if needle == "" || strings.Contains(strings.ToLower(item.description), needle) {
			m.visible = append(m.visible, i)
		}
	}
	if m.selected >= len(m.visible) {
		m.selected = max(len(m.visible)-1, 0)
	}
}

func (m *browseModel) current() (browseItem, bool) {
	if m.selected >= len(m.visible) {
		return browseItem{}, false
	}
	return m.items[m.visible[m.selected]], true
}

func (m *browseModel) runCheck(item browseItem) tea.Cmd {
	s := m.sessions[item.suite]
	return func() tea.Msg {
		r, err := s.RunCheck(context.Background(), item.ordinal)
		return checkResultMsg{result: r, err: err}
	}
}

func (m *browseModel) View() string {
	if m.err != nil && m.state != stateResult {
		return failStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}
	if !m.loaded {
		return "Loading script..."
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Assertions"))
	b.WriteString(" ")
	b.WriteString(m.path)
	b.WriteString("\n\n")

	switch m.state {
	case stateList, stateFilter:
		if m.state == stateFilter || m.filter.Value() != "" {
			b.WriteString(m.filter.View())
			b.WriteString("\n\n")
		}
		for i, idx := range m.visible {
			item := m.items[idx]
			line := fmt.Sprintf("%s #%d %s", item.module, item.ordinal, item.description)
			if !item.runnable {
				line += " (no module)"
			}
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter run • / filter • q quit"))

	case stateResult:
		item, _ := m.current()
		b.WriteString(descStyle.Render(item.description))
		b.WriteString("\n\n")
		switch {
		case m.err != nil:
			b.WriteString(failStyle.Render(fmt.Sprintf("Error: %v", m.err)))
		case m.result.Passed:
			b.WriteString(passStyle.Render("PASS"))
		default:
			b.WriteString(failStyle.Render("FAIL"))
		}
		if m.err == nil && m.result.Detail != "" {
			b.WriteString(" ")
			b.WriteString(m.result.Detail)
		}
		b.WriteString("\n\n")
		b.WriteString(helpStyle.Render("enter continue • q quit"))
	}

	return b.String()
}
