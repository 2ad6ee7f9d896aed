package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wippyai/vtable/dispatchbuild"
	"github.com/wippyai/vtable/program"
	"github.com/wippyai/vtable/selector"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	selStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type modelState int

const (
	stateList modelState = iota
	stateDetail
	stateTable
)

type interactiveModel struct {
	err       error
	table     *dispatchbuild.DispatchTable
	filename  string
	selectors []*selector.Info
	filtered  []*selector.Info
	filter    textinput.Model
	filtering bool
	selected  int
	state     modelState
}

type builtMsg struct {
	err   error
	table *dispatchbuild.DispatchTable
}

func newInteractiveModel(filename string) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "filter by name"
	ti.Prompt = "/"
	ti.Width = 30
	return &interactiveModel{filename: filename, filter: ti, state: stateList}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.buildTable
}

func (m *interactiveModel) buildTable() tea.Msg {
	prog, err := program.Load(m.filename)
	if err != nil {
		return builtMsg{err: err}
	}
	dt, err := dispatchbuild.NewBuilder(prog.Hierarchy, prog.Metadata, prog.Lattice).Build(context.Background())
	if err != nil {
		return builtMsg{err: err}
	}
	if err := dt.Emit(prog.Resolver); err != nil {
		return builtMsg{err: err}
	}
	return builtMsg{table: dt}
}

func (m *interactiveModel) applyFilter() {
	query := strings.ToLower(m.filter.Value())
	if query == "" {
		m.filtered = m.selectors
	} else {
		m.filtered = nil
		for _, s := range m.selectors {
			if strings.Contains(strings.ToLower(s.Name), query) {
				m.filtered = append(m.filtered, s)
			}
		}
	}
	if m.selected >= len(m.filtered) {
		m.selected = 0
	}
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.filtering {
			switch msg.String() {
			case "enter", "esc":
				m.filtering = false
				m.filter.Blur()
			default:
				var cmd tea.Cmd
				m.filter, cmd = m.filter.Update(msg)
				m.applyFilter()
				return m, cmd
			}
			return m, nil
		}

		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit

		case "up", "k":
			if m.state == stateList && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateList && m.selected < len(m.filtered)-1 {
				m.selected++
			}

		case "/":
			if m.state == stateList {
				m.filtering = true
				m.filter.Focus()
			}

		case "t":
			if m.state == stateList {
				m.state = stateTable
			}

		case "enter":
			if m.state == stateList && len(m.filtered) > 0 {
				m.state = stateDetail
			}

		case "esc":
			if m.state != stateList {
				m.state = stateList
			} else if m.filter.Value() != "" {
				m.filter.SetValue("")
				m.applyFilter()
			}
		}

	case builtMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.table = msg.table
		m.selectors = msg.table.Selectors()
		m.filtered = m.selectors
	}

	return m, nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("vtable — " + m.filename))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("Error: " + m.err.Error()))
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("q: quit"))
		return b.String()
	}
	if m.table == nil {
		b.WriteString("Building dispatch table...\n")
		return b.String()
	}

	switch m.state {
	case stateList:
		m.viewList(&b)
	case stateDetail:
		m.viewDetail(&b)
	case stateTable:
		m.viewTable(&b)
	}
	return b.String()
}

func (m *interactiveModel) viewList(b *strings.Builder) {
	if m.filtering || m.filter.Value() != "" {
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
	}
	for i, s := range m.filtered {
		line := fmt.Sprintf("#%-4d %-5s %s", s.ID, kindStr(s.Kind), s.Name)
		if i == m.selected {
			b.WriteString(selectedStyle.Render("> " + line))
		} else {
			b.WriteString("  " + selStyle.Render(line))
		}
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("↑/↓: select  enter: detail  /: filter  t: table  q: quit"))
}

func (m *interactiveModel) viewDetail(b *strings.Builder) {
	s := m.filtered[m.selected]
	fmt.Fprintf(b, "%s %s\n\n", selStyle.Render(s.Name), typeStyle.Render("#"+fmt.Sprint(s.ID)))
	fmt.Fprintf(b, "kind:            %s\n", kindStr(s.Kind))
	fmt.Fprintf(b, "call count:      %d\n", s.CallCount)
	fmt.Fprintf(b, "concrete classes: %d\n", s.ConcreteClasses)
	if s.Offset != nil {
		fmt.Fprintf(b, "offset:          %d\n", *s.Offset)
	} else {
		b.WriteString("offset:          (not packed)\n")
	}
	fmt.Fprintf(b, "tear-off uses:   %v\n", s.HasTearOffUses)
	fmt.Fprintf(b, "noSuchMethod:    %v\n", s.IsNoSuchMethod)
	b.WriteString("\nranges:\n")
	for _, tr := range s.TargetRanges {
		fmt.Fprintf(b, "  [%d..%d] -> %s (class %d)\n",
			tr.Range.Start, tr.Range.End, tr.Target.Name, tr.Target.EnclosingClassID)
	}
	if s.Signature != nil {
		b.WriteString("\nsignature:\n")
		fmt.Fprintf(b, "  receiver: %s\n", typeStyle.Render(s.Signature.Receiver.String()))
		for i, p := range s.Signature.Params {
			boxed := ""
			if p.EnsureBoxed {
				boxed = " (boxed)"
			}
			fmt.Fprintf(b, "  param %d:  %s%s\n", i, typeStyle.Render(p.Type.String()), boxed)
		}
		for _, r := range s.Signature.Returns {
			fmt.Fprintf(b, "  returns:  %s\n", typeStyle.Render(r.String()))
		}
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("esc: back  q: quit"))
}

func (m *interactiveModel) viewTable(b *strings.Builder) {
	fmt.Fprintf(b, "packed table (%d slots):\n\n", len(m.table.Table))
	for i, ref := range m.table.Table {
		if ref == nil {
			fmt.Fprintf(b, "  %4d: %s\n", i, helpStyle.Render("-"))
			continue
		}
		fmt.Fprintf(b, "  %4d: %s\n", i, selStyle.Render(ref.Name))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("esc: back  q: quit"))
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newInteractiveModel(filename))
	_, err := p.Run()
	return err
}
