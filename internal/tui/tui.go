// Package tui is an interactive terminal front-end for the tech-tree engine.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"SingularityDashboard/internal/format"
	"SingularityDashboard/internal/scenario"
	"SingularityDashboard/internal/techtree"
)

const recentSamples = 5

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFA500")).
			Bold(true).
			Underline(true)

	subtleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))

	statsStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), false, false, false, true).
			BorderForeground(lipgloss.Color("#3C3C3C")).
			PaddingLeft(2).
			Foreground(lipgloss.Color("#AAAAAA"))

	noticeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")).
			Background(lipgloss.Color("#5F5F87")).
			PaddingLeft(1).
			PaddingRight(1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888")).
			Italic(true)
)

// Options configures the terminal front-end.
type Options struct {
	Scenario     string
	TickInterval time.Duration
	Logger       *log.Logger
}

type model struct {
	catalog  *scenario.Catalog
	session  *techtree.Session
	table    table.Model
	help     help.Model
	keys     keyMap
	interval time.Duration
	lastTick time.Time
	notice   string
	width    int
	height   int
	logger   *log.Logger
}

type tickMsg time.Time

// logHooks records engine transitions in the log.
type logHooks struct {
	logger *log.Logger
}

func (h logHooks) OnLoad(state *techtree.State) {
	h.logger.Info("Scenario loaded", "scenario", state.Scenario().ID)
}

func (h logHooks) OnUnlock(state *techtree.State, tech *techtree.Technology) {
	h.logger.Info("Tech unlocked", "tech", tech.ID, "rate", state.ResearchRate())
}

func (h logHooks) OnSample(state *techtree.State, sample techtree.RateSample) {
	h.logger.Debug("Rate sampled", "elapsed", sample.ElapsedSeconds, "rate", sample.ResearchRate)
}

func NewModel(catalog *scenario.Catalog, opts Options) (model, error) {
	sc := catalog.Default()
	if opts.Scenario != "" {
		var err error
		if sc, err = catalog.Get(opts.Scenario); err != nil {
			return model{}, err
		}
	}
	if sc == nil {
		return model{}, fmt.Errorf("%w: catalog is empty", scenario.ErrUnknownScenario)
	}
	if opts.TickInterval <= 0 {
		opts.TickInterval = 100 * time.Millisecond
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	t := table.New(
		table.WithColumns(techColumns()),
		table.WithFocused(true),
		table.WithHeight(16),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("#3C3C3C")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("#EEEEEE")).
		Background(lipgloss.Color("#5F5F87"))
	t.SetStyles(styles)

	m := model{
		catalog:  catalog,
		session:  techtree.NewSession(logHooks{logger: opts.Logger}),
		table:    t,
		help:     help.New(),
		keys:     defaultKeys,
		interval: opts.TickInterval,
		lastTick: time.Now(),
		logger:   opts.Logger,
	}
	m.session.Dispatch(techtree.LoadScenario{Scenario: sc})
	m.refresh()
	return m, nil
}

func techColumns() []table.Column {
	return []table.Column{
		{Title: "", Width: 2},
		{Title: "Technology", Width: 28},
		{Title: "Category", Width: 18},
		{Title: "Tier", Width: 4},
		{Title: "Cost", Width: 9},
		{Title: "Requires", Width: 30},
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Init() tea.Cmd {
	return m.tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tickMsg:
		now := time.Time(msg)
		delta := now.Sub(m.lastTick)
		m.lastTick = now
		m.session.Dispatch(techtree.Tick{DeltaMs: float64(delta) / float64(time.Millisecond)})
		m.refresh()
		return m, m.tick()

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		if h := msg.Height - 8; h > 3 {
			m.table.SetHeight(h)
		}
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, m.keys.Unlock):
			m.unlockSelected()
			return m, nil
		case key.Matches(msg, m.keys.Reset):
			m.session.Dispatch(techtree.Reset{})
			m.notice = "Progress reset"
			m.refresh()
			return m, nil
		case key.Matches(msg, m.keys.Scenario):
			m.nextScenario()
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func (m *model) selected() *techtree.Technology {
	techs := m.session.State().Scenario().Technologies
	i := m.table.Cursor()
	if i < 0 || i >= len(techs) {
		return nil
	}
	return &techs[i]
}

func (m *model) unlockSelected() {
	tech := m.selected()
	if tech == nil {
		return
	}
	if m.session.State().IsUnlocked(tech.ID) {
		m.notice = tech.Name + " is already unlocked"
		return
	}
	next := m.session.Dispatch(techtree.UnlockTech{ID: tech.ID})
	switch {
	case next.IsUnlocked(tech.ID):
		m.notice = "Unlocked " + tech.Name
	case tech.Decorative:
		m.notice = tech.Name + " cannot be researched"
	case techtree.Status(next, tech.ID) == techtree.StatusLocked:
		m.notice = "Prerequisites missing for " + tech.Name
	default:
		m.notice = fmt.Sprintf("Need %s RP for %s", format.RP(tech.BaseCost), tech.Name)
	}
	m.refresh()
}

func (m *model) nextScenario() {
	id := m.catalog.Next(m.session.State().Scenario().ID)
	sc, err := m.catalog.Get(id)
	if err != nil {
		m.notice = err.Error()
		return
	}
	m.session.Dispatch(techtree.LoadScenario{Scenario: sc})
	m.table.SetCursor(0)
	m.notice = "Loaded " + sc.Name
	m.refresh()
}

// refresh rebuilds table rows from the current immutable state.
func (m *model) refresh() {
	s := m.session.State()
	techs := s.Scenario().Technologies
	rows := make([]table.Row, len(techs))
	for i := range techs {
		tech := &techs[i]
		rows[i] = table.Row{
			statusGlyph(s, tech),
			tech.Name,
			string(tech.Category),
			fmt.Sprint(tech.Tier),
			format.RP(tech.BaseCost),
			joinIDs(tech.Prerequisites),
		}
	}
	m.table.SetRows(rows)
}

func statusGlyph(s *techtree.State, tech *techtree.Technology) string {
	switch techtree.Status(s, tech.ID) {
	case techtree.StatusUnlocked:
		return "✔"
	case techtree.StatusAvailable:
		if s.ResearchPoints() >= tech.BaseCost {
			return "▶"
		}
		return "○"
	default:
		if tech.Decorative {
			return "◇"
		}
		return "·"
	}
}

func joinIDs(ids []techtree.TechID) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = string(id)
	}
	return strings.Join(parts, ", ")
}

func (m model) View() string {
	s := m.session.State()
	header := titleStyle.Render(s.Scenario().Name) + "  " + subtleStyle.Render(s.Scenario().Description)

	main := lipgloss.JoinHorizontal(lipgloss.Top,
		m.table.View(),
		m.renderStats(s),
	)

	var notice string
	if m.notice != "" {
		notice = noticeStyle.Render(m.notice)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		main,
		notice,
		helpStyle.Render(m.help.View(m.keys)),
	)
}

func (m model) renderStats(s *techtree.State) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("RESEARCH") + "\n")
	fmt.Fprintf(&b, "Points:   %s\n", format.RP(s.ResearchPoints()))
	fmt.Fprintf(&b, "Rate:     %s\n", format.Rate(s.ResearchRate()))
	fmt.Fprintf(&b, "Elapsed:  %s\n", format.Elapsed(s.ElapsedTime()))
	fmt.Fprintf(&b, "Unlocked: %s / %s\n", format.Count(s.UnlockedCount()), format.Count(s.Graph().Len()))
	fmt.Fprintf(&b, "Ready:    %d\n\n", len(techtree.AvailableTechs(s)))

	b.WriteString(titleStyle.Render("HISTORY") + "\n")
	history := s.RateHistory()
	if len(history) == 0 {
		b.WriteString("(no samples yet)\n")
	}
	if len(history) > recentSamples {
		history = history[len(history)-recentSamples:]
	}
	for _, h := range history {
		fmt.Fprintf(&b, "%6s  %s\n", format.Elapsed(h.ElapsedSeconds), format.Rate(h.ResearchRate))
	}

	if tech := m.selected(); tech != nil {
		b.WriteString("\n" + titleStyle.Render("SELECTED") + "\n")
		b.WriteString(tech.Name + "\n")
		b.WriteString(subtleStyle.Render(tech.Description) + "\n")
		for _, e := range tech.Effects {
			fmt.Fprintf(&b, "• %s %s %g\n", e.Type, e.Target, e.Value)
		}
		if deps := techtree.Dependents(s, tech.ID); len(deps) > 0 {
			names := make([]string, len(deps))
			for i, d := range deps {
				names[i] = d.Name
			}
			b.WriteString("Leads to: " + strings.Join(names, ", ") + "\n")
		}
	}

	width := 36
	if m.width > 0 {
		width = max(24, m.width/3)
	}
	return statsStyle.Width(width).Render(b.String())
}

// Run starts the interactive program.
func Run(catalog *scenario.Catalog, opts Options) error {
	m, err := NewModel(catalog, opts)
	if err != nil {
		return err
	}
	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
