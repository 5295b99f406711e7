package display

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"SetupSentinel/internal/model"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	maxLogLines  = 50
	refreshEvery = 500 * time.Millisecond
)

var (
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")

	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1)
	activeTabStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1)
	tabStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999")).
			Padding(0, 1)
)

// TermUI is a terminal display with one tab per instrument. Update and Log
// only touch shared state; the program redraws on a timer.
type TermUI struct {
	mu       sync.RWMutex
	symbols  []string
	flags    map[string]model.Flags
	logs     map[string][]string
	selected int
}

type tickMsg time.Time

// bubbleModel is the bubbletea model over a TermUI.
type bubbleModel struct {
	ui *TermUI
}

// NewTermUI creates a display with a tab for each symbol, in order.
func NewTermUI(symbols []string) *TermUI {
	ui := &TermUI{
		symbols: append([]string(nil), symbols...),
		flags:   make(map[string]model.Flags),
		logs:    make(map[string][]string),
	}
	for _, s := range symbols {
		ui.logs[s] = nil
	}
	return ui
}

func (ui *TermUI) Update(symbol string, f model.Flags) {
	ui.mu.Lock()
	ui.flags[symbol] = f
	ui.mu.Unlock()
}

func (ui *TermUI) Log(symbol string, at time.Time, line string) {
	entry := fmt.Sprintf("[%s] %s", at.UTC().Format("15:04:05"), line)
	ui.mu.Lock()
	lines := append(ui.logs[symbol], entry)
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
	}
	ui.logs[symbol] = lines
	ui.mu.Unlock()
}

// Run shows the UI until the user quits or ctx is done.
func (ui *TermUI) Run(ctx context.Context) error {
	p := tea.NewProgram(bubbleModel{ui: ui}, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return err
	}
	return nil
}

func tick() tea.Cmd {
	return tea.Tick(refreshEvery, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m bubbleModel) Init() tea.Cmd {
	return tick()
}

func (m bubbleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "left", "shift+tab":
			m.ui.move(-1)
		case "right", "tab":
			m.ui.move(1)
		}
	case tickMsg:
		return m, tick()
	}
	return m, nil
}

func (ui *TermUI) move(delta int) {
	ui.mu.Lock()
	defer ui.mu.Unlock()
	if n := len(ui.symbols); n > 0 {
		ui.selected = (ui.selected + delta + n) % n
	}
}

func (m bubbleModel) View() string {
	ui := m.ui
	ui.mu.RLock()
	defer ui.mu.RUnlock()

	title := titleStyle.Render("SetupSentinel - multi-timeframe checklist")
	if len(ui.symbols) == 0 {
		return appStyle.Render(title + "\n\nNo instruments configured.")
	}
	symbol := ui.symbols[ui.selected]

	tabs := make([]string, len(ui.symbols))
	for i, s := range ui.symbols {
		if i == ui.selected {
			tabs[i] = activeTabStyle.Render(s)
		} else {
			tabs[i] = tabStyle.Render(s)
		}
	}

	return appStyle.Render(
		lipgloss.JoinVertical(lipgloss.Left,
			title,
			"",
			lipgloss.JoinHorizontal(lipgloss.Top, tabs...),
			renderChecklist(ui.flags[symbol]),
			renderLogs(ui.logs[symbol]),
			footerStyle.Render("Keys: ←/→ switch instrument, Q quit"),
		),
	)
}

func renderChecklist(f model.Flags) string {
	var b strings.Builder
	for i, v := range f.Values() {
		box := lipgloss.NewStyle().Foreground(errorColor).Render("[ ]")
		if v {
			box = lipgloss.NewStyle().Foreground(successColor).Render("[x]")
		}
		b.WriteString(fmt.Sprintf("%s %s\n", box, model.FlagLabels[i]))
	}
	return sectionStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderLogs(lines []string) string {
	if len(lines) == 0 {
		return sectionStyle.Render("Waiting for the first cycle...")
	}
	return sectionStyle.Render(strings.Join(lines, "\n"))
}
