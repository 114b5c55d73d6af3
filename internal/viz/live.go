// Package viz renders a terminal monitor for a running integration by
// tailing its diagnostic history.
package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/dmarquez/hermigo/internal/diag"
)

var (
	headerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(14)
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	graphStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("49")).Padding(1, 0)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("240")).MarginTop(1)
)

type tickMsg time.Time

// Model tails one diagnostics.csv and redraws twice a second.
type Model struct {
	path string
	hist *diag.History
	err  error
}

func NewModel(path string) Model {
	return Model{path: path, hist: &diag.History{}}
}

func (m Model) Init() tea.Cmd { return tick() }

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case tickMsg:
		hist, err := diag.LoadHistory(m.path)
		m.err = err
		if err == nil {
			m.hist = hist
		}
		return m, tick()
	}
	return m, nil
}

func (m Model) View() string {
	var s strings.Builder
	s.WriteString(headerStyle.Render("HERMIGO DIAGNOSTICS") + "\n")

	if m.err != nil {
		s.WriteString(errStyle.Render(fmt.Sprintf("waiting for %s: %v", m.path, m.err)) + "\n")
		s.WriteString(helpStyle.Render("Q:Quit"))
		return s.String()
	}

	n := len(m.hist.Times)
	if n == 0 {
		s.WriteString(valueStyle.Render("no samples yet") + "\n")
		s.WriteString(helpStyle.Render("Q:Quit"))
		return s.String()
	}

	s.WriteString(labelStyle.Render("Time") +
		valueStyle.Render(fmt.Sprintf("%.4f", m.hist.Times[n-1])) + "\n")
	s.WriteString(labelStyle.Render("Energy") +
		valueStyle.Render(fmt.Sprintf("%.10g", m.hist.Energies[n-1])) + "\n")
	s.WriteString(labelStyle.Render("Drift") +
		valueStyle.Render(fmt.Sprintf("%.3e", m.hist.Drifts[n-1])) + "\n")
	s.WriteString(labelStyle.Render("Samples") +
		valueStyle.Render(fmt.Sprintf("%d", n)) + "\n")

	if n > 1 {
		chart := asciigraph.Plot(m.hist.Energies,
			asciigraph.Height(8), asciigraph.Width(60), asciigraph.Caption("total energy"))
		s.WriteString(graphStyle.Render(chart) + "\n")
	}
	s.WriteString(helpStyle.Render("Q:Quit"))
	return s.String()
}

// Watch runs the monitor until the user quits.
func Watch(path string) error {
	p := tea.NewProgram(NewModel(path))
	_, err := p.Run()
	return err
}
