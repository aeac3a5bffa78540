package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/olivier-w/patterns/internal/curve"
	"github.com/olivier-w/patterns/internal/loader"
	"github.com/olivier-w/patterns/internal/player"
	"github.com/olivier-w/patterns/internal/scene"
	"github.com/olivier-w/patterns/internal/track"
	"github.com/olivier-w/patterns/internal/util"
)

const (
	headerLines = 2 // title and status
	footerLines = 2 // progress and help
	orbitStep   = 0.1
)

// OpenFunc decodes a stem into a playable source.
type OpenFunc func(path string) (track.Source, error)

// OpenStem decodes a stem and prepares it for playback.
func OpenStem(path string) (track.Source, error) {
	p, err := player.Open(path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// Options configures a Model.
type Options struct {
	Controller *scene.Controller
	Stems      []string
	Load       loader.Options
	FPS        int
	Open       OpenFunc
}

// Model is the Bubbletea model for the patterns TUI.
type Model struct {
	ctrl     *scene.Controller
	renderer *terminalRenderer
	picker   *picker
	meters   *levelMeters

	stems   []string
	sources []track.Source
	load    loader.Options
	open    OpenFunc
	fps     int

	spinner  spinner.Model
	progress progress.Model

	failedBuilds []scene.BuildJob

	width, height int
	lastFrame     time.Time
	ticking       bool
	status        string
	quitting      bool
}

// New creates a Model that loads opts.Stems into the controller's tracks.
func New(opts Options) Model {
	if opts.FPS <= 0 {
		opts.FPS = 60
	}
	if opts.Open == nil {
		opts.Open = OpenStem
	}

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#555555", Dark: "#AAAAAA"})

	p := progress.New(
		progress.WithScaledGradient("#3D7BFF", "#FF5F3C"),
		progress.WithoutPercentage(),
	)

	r := newTerminalRenderer()

	return Model{
		ctrl:     opts.Controller,
		renderer: r,
		picker:   &picker{renderer: r},
		meters:   newLevelMeters(len(opts.Stems), opts.FPS),
		stems:    opts.Stems,
		sources:  make([]track.Source, len(opts.Stems)),
		load:     opts.Load,
		open:     opts.Open,
		fps:      opts.FPS,
		spinner:  s,
		progress: p,
		ticking:  true,
	}
}

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, frameCmd(m.fps), tea.SetWindowTitle("patterns")}
	for i := range m.stems {
		cmds = append(cmds, m.loadStem(i))
	}
	return tea.Batch(cmds...)
}

// loadStem marks track i as loading and decodes it off the update loop.
func (m Model) loadStem(i int) tea.Cmd {
	m.ctrl.OnTrackLoading(i)
	path, opts, open := m.stems[i], m.load, m.open
	return func() tea.Msg {
		src, err := loader.LoadWithRetry[track.Source](context.Background(), path, opts, open)
		if err != nil {
			return stemFailedMsg{index: i, err: err}
		}
		return stemLoadedMsg{index: i, source: src}
	}
}

func checkDone(i int, src track.Source) tea.Cmd {
	return func() tea.Msg {
		<-src.Done()
		return trackEndedMsg{index: i}
	}
}

func buildCmd(job scene.BuildJob) tea.Cmd {
	return func() tea.Msg {
		b, err := job.Run()
		return batchBuiltMsg{job: job, batch: b, err: err}
	}
}

// drainBuilds turns the controller's pending build jobs into commands.
func (m Model) drainBuilds() tea.Cmd {
	jobs := m.ctrl.PendingBuilds()
	if len(jobs) == 0 {
		return nil
	}
	cmds := make([]tea.Cmd, len(jobs))
	for i, job := range jobs {
		cmds[i] = buildCmd(job)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	return m.handleMsg(msg)
}

func (m Model) handleMsg(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		return m, nil

	case spinner.TickMsg:
		if m.ctrl.Loaded() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case stemLoadedMsg:
		m.sources[msg.index] = msg.source
		m.ctrl.OnTrackLoaded(msg.index, msg.source)
		cmds := []tea.Cmd{m.drainBuilds()}
		if msg.index == 0 {
			cmds = append(cmds, checkDone(msg.index, msg.source))
		}
		return m, tea.Batch(cmds...)

	case stemFailedMsg:
		m.ctrl.OnTrackFailed(msg.index, msg.err)
		m.status = fmt.Sprintf("Load failed: %v", msg.err)
		return m, nil

	case batchBuiltMsg:
		i := msg.job.Index
		if msg.err != nil {
			log.Printf("track %d geometry build failed: %v", i, msg.err)
			m.failedBuilds = append(m.failedBuilds, msg.job)
			m.status = fmt.Sprintf("Build failed: %v, press r to retry", msg.err)
			return m, nil
		}
		if err := m.ctrl.CompleteBuild(i, msg.batch); err != nil {
			log.Printf("track %d geometry dropped: %v", i, err)
		}
		return m, nil

	case trackEndedMsg:
		m.ctrl.OnTrackEnded(msg.index)
		return m, nil

	case frameMsg:
		if m.ctrl.Paused() {
			m.ticking = false
			return m, nil
		}
		now := time.Time(msg)
		dt := time.Second / time.Duration(m.fps)
		if !m.lastFrame.IsZero() {
			dt = now.Sub(m.lastFrame)
		}
		m.lastFrame = now
		m.ctrl.Tick(m.renderer, dt)
		for i, info := range m.ctrl.Tracks() {
			m.meters.update(i, info.Energy)
		}
		return m, frameCmd(m.fps)
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if isQuit(msg) {
		m.quitting = true
		m.closeSources()
		return m, tea.Sequence(tea.SetWindowTitle(""), tea.Quit)
	}

	state := m.ctrl.State()
	switch msg.String() {
	case "s":
		return m.request(scene.BezierSetup)
	case "enter":
		return m.request(scene.Prepare)
	case "o":
		return m.request(scene.Overview)
	case "r":
		cmds := []tea.Cmd{m.spinner.Tick}
		for i := range m.ctrl.LoadErrors() {
			cmds = append(cmds, m.loadStem(i))
		}
		for _, job := range m.failedBuilds {
			cmds = append(cmds, buildCmd(job))
		}
		m.failedBuilds = nil
		m.status = ""
		return m, tea.Batch(cmds...)
	case " ":
		if m.ctrl.Paused() {
			m.ctrl.Resume()
			m.lastFrame = time.Time{}
			if !m.ticking {
				m.ticking = true
				return m, frameCmd(m.fps)
			}
			return m, nil
		}
		m.ctrl.Pause()
		return m, nil
	case "tab":
		m.picker.cycle()
		return m, nil
	}

	if i, ok := muteIndex(msg); ok {
		m.ctrl.ToggleMute(i)
		return m, nil
	}

	var delta mgl64.Vec3
	switch msg.String() {
	case "left":
		delta = mgl64.Vec3{-1, 0, 0}
	case "right":
		delta = mgl64.Vec3{1, 0, 0}
	case "up":
		delta = mgl64.Vec3{0, 1, 0}
	case "down":
		delta = mgl64.Vec3{0, -1, 0}
	case "pgup":
		delta = mgl64.Vec3{0, 0, 1}
	case "pgdown":
		delta = mgl64.Vec3{0, 0, -1}
	default:
		return m, nil
	}

	if state == scene.Overview {
		m.ctrl.Orbit(delta.X()*orbitStep, delta.Y()*orbitStep)
		return m, nil
	}
	if err := m.picker.nudge(m.ctrl, delta); err != nil && !errors.Is(err, curve.ErrLocked) {
		m.status = err.Error()
	}
	return m, nil
}

func (m Model) request(to scene.State) (Model, tea.Cmd) {
	if err := m.ctrl.Request(to); err != nil {
		if errors.Is(err, scene.ErrLoadFailed) {
			m.status = "A stem failed to load, press r to retry"
		}
		return m, nil
	}
	m.status = ""
	return m, m.drainBuilds()
}

func (m Model) handleMouse(msg tea.MouseMsg) (Model, tea.Cmd) {
	col, row := msg.X, msg.Y-headerLines
	switch msg.Action {
	case tea.MouseActionPress:
		if msg.Button == tea.MouseButtonLeft {
			m.picker.press(m.ctrl, col, row)
		}
	case tea.MouseActionMotion:
		if err := m.picker.move(m.ctrl, col, row); err != nil {
			m.picker.release()
		}
	case tea.MouseActionRelease:
		m.picker.release()
	}
	return m, nil
}

// layout sizes the canvas to the space left by the header and panels.
func (m *Model) layout() {
	rows := max(m.height-headerLines-footerLines-len(m.stems), 3)
	cols := max(m.width, 10)
	m.renderer.resize(cols, rows)
	m.ctrl.Resize(m.renderer.canvas.dotWidth(), m.renderer.canvas.dotHeight())
	m.progress.Width = max(min(m.width-20, 60), 10)
}

func (m Model) closeSources() {
	for _, src := range m.sources {
		if c, ok := src.(interface{ Close() }); ok {
			c.Close()
		}
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderer.View())
	b.WriteString("\n")

	buf := m.ctrl.Buffer()
	for i, info := range m.ctrl.Tracks() {
		level, peak := m.meters.reading(i)
		b.WriteString(renderTrackLine(info, level, peak, buf, m.width))
		b.WriteString("\n")
	}

	b.WriteString(" ")
	b.WriteString(m.progress.ViewAs(m.ctrl.Progress()))
	b.WriteString("\n ")
	b.WriteString(helpStyle.Render(helpText(m.ctrl.State(), len(m.ctrl.LoadErrors()) > 0 || len(m.failedBuilds) > 0)))
	return b.String()
}

func (m Model) renderHeader() string {
	state := m.ctrl.State().String()
	if m.ctrl.Paused() {
		state += " (paused)"
	}
	left := headerStyle.Render("patterns") + "  " + stateStyle.Render(state)

	duration := m.ctrl.Duration()
	elapsed := time.Duration(m.ctrl.Progress() * float64(duration))
	right := timeStyle.Render(util.FormatPosition(elapsed, duration))
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right) - 2
	header := " " + left + spaces(gap) + right

	var status string
	switch {
	case m.status != "":
		status = errorStyle.Render(m.status)
	case !m.ctrl.Loaded():
		status = fmt.Sprintf("%s %s %s",
			m.spinner.View(),
			statusStyle.Render("Loading stems..."),
			m.progress.ViewAs(m.ctrl.LoadRatio()))
	case m.ctrl.State() == scene.Init:
		status = statusStyle.Render("Five stems, one curve. Press s to shape it.")
	case m.ctrl.State() == scene.Prepare:
		status = statusStyle.Render(fmt.Sprintf("Building patterns, %d left...", m.ctrl.PendingBuildCount()))
	}
	return header + "\n " + status
}
