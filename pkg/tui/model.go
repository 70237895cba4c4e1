// Package tui hosts a graph view in the terminal. Frames are driven by
// bubbletea ticks and drawn with braille cells; the mouse hovers, drags,
// selects and zooms like a pointer on a canvas.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/dd0wney/cluso-graphview/pkg/graphview"
	"github.com/dd0wney/cluso-graphview/pkg/render"
	"github.com/dd0wney/cluso-graphview/pkg/scheduler"
	"github.com/dd0wney/cluso-graphview/pkg/source"
	"github.com/dd0wney/cluso-graphview/pkg/visualization"
)

const (
	// rows above the graph: title and status
	headerRows = 2
	// rows below the graph: prompt or message, and help
	footerRows = 2

	sidebarWidth = 34
	minWideWidth = 90

	// canvas units moved per arrow key
	panStep = 40
)

type inputMode int

const (
	modeNone inputMode = iota
	modeSearch
	modeGoto
)

type frameMsg time.Time

// LoadedMsg delivers a fresh load result to the program
type LoadedMsg struct {
	Result *source.Result
	Err    error
}

// Options configures the terminal host
type Options struct {
	View graphview.Options
	// FrameInterval is the tick period; zero means 60 fps
	FrameInterval time.Duration
	// Records seed the first model
	Records []visualization.RelationRecord
	// Loader, when set, serves the reload key
	Loader *source.Loader
	Title  string
}

// Model is the bubbletea model. It owns the view and its frame source; all
// view calls happen inside Update.
type Model struct {
	view     *graphview.View
	frames   *scheduler.ManualFrames
	surface  *render.TermSurface
	interval time.Duration
	loader   *source.Loader
	title    string

	keys  keyMap
	help  help.Model
	input textinput.Model
	mode  inputMode

	kinds   []string
	kindIdx int // -1 shows all kinds

	width, height int
	graphCols     int
	graphRows     int

	message    string
	messageErr bool
	loading    bool
}

// New builds the model and loads opts.Records into the view
func New(opts Options) *Model {
	interval := opts.FrameInterval
	if interval <= 0 {
		interval = time.Second / 60
	}
	title := opts.Title
	if title == "" {
		title = "graphview"
	}
	if opts.View.Host == "" {
		opts.View.Host = "tui"
	}
	if opts.View.Surface == "" {
		opts.View.Surface = "term"
	}

	ti := textinput.New()
	ti.CharLimit = 128
	ti.Width = 40

	m := &Model{
		frames:   scheduler.NewManualFrames(time.Now(), interval),
		surface:  render.NewTermSurface(80, 20),
		interval: interval,
		loader:   opts.Loader,
		title:    title,
		keys:     keys,
		help:     help.New(),
		input:    ti,
		kindIdx:  -1,
	}
	m.view = graphview.New(m.frames, m.surface, opts.View)
	m.load(opts.Records)
	return m
}

// GraphView returns the underlying view
func (m *Model) GraphView() *graphview.View {
	return m.view
}

func (m *Model) load(records []visualization.RelationRecord) {
	m.view.Load(records)
	m.kinds = m.view.RelationKinds()
	if m.kindIdx >= len(m.kinds) {
		m.kindIdx = -1
		m.view.SetRelationFilter("")
	}
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func (m *Model) Init() tea.Cmd {
	return m.tick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case frameMsg:
		m.frames.Advance()
		return m, m.tick()

	case LoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.setMessage(fmt.Sprintf("reload failed: %v", msg.Err), true)
			return m, nil
		}
		m.load(msg.Result.Records)
		m.setMessage(fmt.Sprintf("loaded %d relations (%d skipped)", len(msg.Result.Records), len(msg.Result.Skipped)), false)
		return m, nil

	case tea.MouseMsg:
		m.mouse(msg)
		return m, nil

	case tea.KeyMsg:
		if m.mode != modeNone {
			return m, m.updateInput(msg)
		}
		return m, m.updateKeys(msg)
	}
	return m, nil
}

func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.help.Width = width

	m.graphCols = width
	if width >= minWideWidth {
		m.graphCols = width - sidebarWidth
	}
	m.graphRows = max(height-headerRows-footerRows, 1)
	m.surface.Resize(m.graphCols, m.graphRows)
	// zero keeps the canvas size; the surface fits it into the grid
	m.view.SetFrameSize(0, 0)
}

// mouse maps a terminal cell to frame coordinates and forwards it
func (m *Model) mouse(msg tea.MouseMsg) {
	col, row := msg.X, msg.Y-headerRows
	inside := col >= 0 && col < m.graphCols && row >= 0 && row < m.graphRows

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		if inside {
			m.view.Wheel(-1)
		}
		return
	case tea.MouseButtonWheelDown:
		if inside {
			m.view.Wheel(1)
		}
		return
	}

	if !inside && msg.Action != tea.MouseActionRelease {
		m.view.PointerLeave()
		return
	}
	sx, sy := m.surface.CellToSurface(col, row)

	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.view.PointerDown(sx, sy)
		}
	case tea.MouseActionRelease:
		m.view.PointerUp(sx, sy)
	case tea.MouseActionMotion:
		m.view.PointerMove(sx, sy)
	}
}

func (m *Model) updateKeys(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.view.Close()
		return tea.Quit
	case key.Matches(msg, m.keys.Toggle):
		m.view.Toggle()
	case key.Matches(msg, m.keys.ZoomIn):
		m.view.ZoomIn()
	case key.Matches(msg, m.keys.ZoomOut):
		m.view.ZoomOut()
	case key.Matches(msg, m.keys.Reset):
		m.view.ResetView()
	case key.Matches(msg, m.keys.Up):
		m.view.Pan(0, panStep)
	case key.Matches(msg, m.keys.Down):
		m.view.Pan(0, -panStep)
	case key.Matches(msg, m.keys.Left):
		m.view.Pan(panStep, 0)
	case key.Matches(msg, m.keys.Right):
		m.view.Pan(-panStep, 0)
	case key.Matches(msg, m.keys.Labels):
		m.view.SetLabels(!m.view.ShowLabels())
	case key.Matches(msg, m.keys.Clear):
		m.view.ClearSelection()
		m.message = ""
	case key.Matches(msg, m.keys.Filter):
		m.cycleKind()
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	case key.Matches(msg, m.keys.Search):
		return m.prompt(modeSearch, "search name or category", m.view.Filter().Search)
	case key.Matches(msg, m.keys.Goto):
		return m.prompt(modeGoto, "node id", "")
	case key.Matches(msg, m.keys.Reload):
		return m.reload()
	}
	return nil
}

func (m *Model) prompt(mode inputMode, placeholder, value string) tea.Cmd {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m *Model) updateInput(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.CancelInp):
		m.closePrompt()
		return nil
	case key.Matches(msg, m.keys.Confirm):
		value := strings.TrimSpace(m.input.Value())
		switch m.mode {
		case modeSearch:
			m.view.SetSearch(value)
		case modeGoto:
			if err := m.view.NavigateTo(value); err != nil {
				m.setMessage(err.Error(), true)
			}
		}
		m.closePrompt()
		return nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeSearch {
		// search filters as you type
		m.view.SetSearch(m.input.Value())
	}
	return cmd
}

func (m *Model) closePrompt() {
	m.mode = modeNone
	m.input.Blur()
}

// cycleKind steps through ALL and every relation kind
func (m *Model) cycleKind() {
	if len(m.kinds) == 0 {
		return
	}
	m.kindIdx++
	if m.kindIdx >= len(m.kinds) {
		m.kindIdx = -1
	}
	if m.kindIdx < 0 {
		m.view.SetRelationFilter(visualization.AllKinds)
		return
	}
	m.view.SetRelationFilter(m.kinds[m.kindIdx])
}

func (m *Model) reload() tea.Cmd {
	if m.loader == nil {
		m.setMessage("no relation source to reload", true)
		return nil
	}
	if m.loading {
		return nil
	}
	m.loading = true
	m.setMessage("reloading "+m.loader.Source().Name()+"...", false)
	return LoadCmd(m.loader)
}

func (m *Model) setMessage(text string, isErr bool) {
	m.message, m.messageErr = text, isErr
}

func (m *Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var s strings.Builder
	s.WriteString(m.renderHeader())
	s.WriteByte('\n')

	graph := m.surface.String()
	if m.graphCols < m.width {
		graph = lipgloss.JoinHorizontal(lipgloss.Top, graph, m.renderSidebar())
	}
	s.WriteString(graph)
	s.WriteByte('\n')

	switch {
	case m.mode != modeNone:
		s.WriteString(m.input.View())
	case m.message != "" && m.messageErr:
		s.WriteString(errorStyle.Render("✗ " + m.message))
	case m.message != "":
		s.WriteString(successStyle.Render(m.message))
	}
	s.WriteByte('\n')

	if m.help.ShowAll {
		s.WriteString(m.help.FullHelpView(m.keys.FullHelp()))
	} else {
		s.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))
	}
	return s.String()
}

func (m *Model) renderHeader() string {
	state := m.view.State().String()
	stats := m.view.Stats()
	vp := m.view.Viewport()

	title := titleStyle.Render(m.title) + "  " + stateStyle[state].Render(state)
	filter := m.view.Filter()
	kind := filter.Kind
	if kind == "" {
		kind = visualization.AllKinds
	}
	status := fmt.Sprintf("%d nodes  %d edges  zoom %.2f  kind %s", stats.TotalNodes, stats.TotalEdges, vp.Scale, kind)
	if filter.Search != "" {
		status += fmt.Sprintf("  search %q", filter.Search)
	}
	if hovered := m.view.Hovered(); hovered != "" {
		status += "  hover " + hovered
	}
	return title + "\n" + dimStyle.Render(status)
}

func (m *Model) renderSidebar() string {
	width := sidebarWidth - 4
	var s strings.Builder

	sel := m.view.Selection()
	if sel.None() {
		s.WriteString(headerStyle.Render("Status"))
		s.WriteByte('\n')
		stats := m.view.Stats()
		for _, status := range visualization.Statuses() {
			if n := stats.ByStatus[status]; n > 0 {
				s.WriteString(statusStyle(visualization.StatusColor(status)).Render("● "))
				s.WriteString(fmt.Sprintf("%-12s %d\n", status, n))
			}
		}
		s.WriteString(dimStyle.Render("\nclick a node for details"))
	} else {
		s.WriteString(headerStyle.Render(truncate(sel.Name, width)))
		s.WriteByte('\n')
		s.WriteString(dimStyle.Render(truncate(sel.ID, width)))
		s.WriteByte('\n')
		if sel.Category != "" {
			s.WriteString(sel.Category + "\n")
		}
		s.WriteString(statusStyle(visualization.StatusColor(sel.Status)).Render("● " + sel.Status))
		s.WriteString("\n\n")
		s.WriteString(headerStyle.Render(fmt.Sprintf("Neighbors (%d)", len(sel.Neighbors))))
		s.WriteByte('\n')
		limit := max(m.graphRows-8, 1)
		for i, n := range sel.Neighbors {
			if i == limit {
				s.WriteString(dimStyle.Render(fmt.Sprintf("… %d more", len(sel.Neighbors)-limit)))
				break
			}
			s.WriteString(truncate(n.Name, width) + "\n")
			s.WriteString(dimStyle.Render("  "+truncate(n.Label, width-2)) + "\n")
		}
	}

	return panelStyle.Width(width).Height(max(m.graphRows-2, 1)).Render(s.String())
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
