package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/wricardo/gridsnake/game/engine"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	boardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8"))
	headStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	bodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	foodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	coinStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("7"))
	overStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	helpStyle   = lipgloss.NewStyle().Faint(true)
)

// TickMsg drives one engine tick. Gen ties it to a tick chain so a restart
// does not leave two chains running.
type TickMsg struct {
	Gen int
}

// Model is a bubbletea model playing one local game
type Model struct {
	engine   *engine.SnakeEngine
	config   *engine.GameConfig
	interval time.Duration
	paused   bool
	ticking  bool
	gen      int
}

// New builds a model for config. Engine options such as engine.WithSeed are
// passed through.
func New(config *engine.GameConfig, opts ...engine.Option) (Model, error) {
	if config == nil {
		config = engine.DefaultGameConfig()
	}
	eng, err := engine.NewEngine(config, opts...)
	if err != nil {
		return Model{}, err
	}

	interval := time.Duration(config.TickIntervalMS) * time.Millisecond
	if interval <= 0 {
		interval = engine.DefaultTickIntervalMS * time.Millisecond
	}

	return Model{
		engine:   eng,
		config:   config,
		interval: interval,
		ticking:  true,
	}, nil
}

// Engine exposes the game being played
func (m Model) Engine() *engine.SnakeEngine {
	return m.engine
}

func (m Model) tickCmd() tea.Cmd {
	gen := m.gen
	return tea.Tick(m.interval, func(time.Time) tea.Msg {
		return TickMsg{Gen: gen}
	})
}

// startTicking begins a fresh tick chain unless one is live
func (m Model) startTicking() (Model, tea.Cmd) {
	if m.ticking {
		return m, nil
	}
	m.gen++
	m.ticking = true
	return m, m.tickCmd()
}

func (m Model) Init() tea.Cmd {
	return m.tickCmd()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case TickMsg:
		if msg.Gen != m.gen {
			return m, nil
		}
		if m.paused || m.engine.IsGameOver() {
			m.ticking = false
			return m, nil
		}
		m.engine.Advance()
		if m.engine.IsGameOver() {
			m.ticking = false
			return m, nil
		}
		return m, m.tickCmd()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	switch key {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit
	case "r":
		m.engine.Reset()
		m.paused = false
		return m.startTicking()
	case "p", " ":
		if m.engine.IsGameOver() {
			return m, nil
		}
		m.paused = !m.paused
		if !m.paused {
			return m.startTicking()
		}
		return m, nil
	}

	if dir, err := engine.ParseDirection(key); err == nil && !m.paused {
		m.engine.RequestDirection(dir)
	}
	return m, nil
}

func (m Model) View() string {
	state := m.engine.GetStateSummary()

	var b strings.Builder
	b.WriteString(titleStyle.Render("🐍 " + m.config.Name))
	b.WriteString("\n")
	b.WriteString(statusStyle.Render(fmt.Sprintf("Score %d • Length %d • Tick %d", state.Score, len(state.Snake), state.Tick)))
	b.WriteString("\n")
	b.WriteString(boardStyle.Render(renderBoard(state)))
	b.WriteString("\n")

	switch {
	case state.GameOver:
		b.WriteString(overStyle.Render(state.Message))
	case m.paused:
		b.WriteString(statusStyle.Render("Paused"))
	default:
		b.WriteString(statusStyle.Render(state.Message))
	}
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("arrows/wasd: turn • p: pause • r: restart • q: quit"))
	b.WriteString("\n")
	return b.String()
}

func renderBoard(state *engine.GameState) string {
	rows := engine.RenderRows(state)
	for i, row := range rows {
		var sb strings.Builder
		for _, ch := range row {
			sb.WriteString(glyphStyle(ch).Render(string(ch)))
		}
		rows[i] = sb.String()
	}
	return strings.Join(rows, "\n")
}

func glyphStyle(ch rune) lipgloss.Style {
	switch ch {
	case engine.GlyphHead:
		return headStyle
	case engine.GlyphBody:
		return bodyStyle
	case engine.GlyphFood:
		return foodStyle
	case engine.GlyphCoin:
		return coinStyle
	default:
		return emptyStyle
	}
}

// Run plays config in the terminal until the user quits or ctx ends
func Run(ctx context.Context, config *engine.GameConfig, opts ...engine.Option) error {
	m, err := New(config, opts...)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err = p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
