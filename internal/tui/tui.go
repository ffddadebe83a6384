// Package tui provides the interactive file shredder.
//
// The user browses a directory, marks the files to destroy, confirms the
// number of overwrite passes and watches every file being overwritten and
// deleted. The App model is a small state machine:
//
//	picking -> confirming -> shredding -> done -> picking
//
// Shredding runs on a background goroutine through batch.Runner. Progress
// and per-file results are delivered to the model as messages over a
// channel, one message per command, so the UI stays responsive while files
// are being overwritten.
package tui

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"sync"

	"shredder/internal/batch"
	"shredder/internal/config"
	"shredder/internal/logging"
	"shredder/internal/tui/components"
	"shredder/internal/tui/components/filepicker"
	"shredder/internal/tui/helpers"
	"shredder/internal/tui/styles"
	"shredder/pkg/fileops"
	"shredder/pkg/shred"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	units "github.com/docker/go-units"
)

// AppState represents the current state of the TUI application.
type AppState int

const (
	StatePicking AppState = iota
	StateConfirming
	StateShredding
	StateDone
	StateError
)

func (s AppState) String() string {
	switch s {
	case StatePicking:
		return "picking"
	case StateConfirming:
		return "confirming"
	case StateShredding:
		return "shredding"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	}
	return "unknown"
}

// scanDepth bounds how far below the chosen directory files are listed.
const scanDepth = 4

// maxConfirmListed caps the files named on the confirmation screen.
const maxConfirmListed = 10

type (
	filesScannedMsg struct {
		files []fileops.FileInfo
		err   error
	}

	progressMsg struct {
		event shred.Event
	}

	resultMsg struct {
		result batch.Result
	}

	shredDoneMsg struct {
		report *batch.Report
	}
)

// App is the root model.
type App struct {
	config *config.Config
	logger *logging.AppLogger
	dir    string
	state  AppState

	picker   *filepicker.FilePicker
	layout   components.LayoutModel
	passes   textinput.Model
	spinner  spinner.Model
	progress progress.Model

	windowWidth  int
	windowHeight int

	// Current batch
	targets  []batch.Target
	planErrs []*batch.PlanError
	events   chan tea.Msg
	cancel   context.CancelFunc
	// abandon releases the run goroutine from sends nobody will receive
	// once the model stops listening.
	abandon  func()
	finished chan struct{}
	active   map[string]shred.Event
	results  []batch.Result
	report   *batch.Report

	// quitAfterRun is set when the user interrupts a run; the program exits
	// once the files already being overwritten are finished.
	quitAfterRun bool

	err error
}

// NewApp creates the model for browsing dir.
func NewApp(dir string, cfg *config.Config, logger *logging.AppLogger) (*App, error) {
	if cfg == nil {
		def := config.DefaultConfig()
		cfg = &def
	}
	if logger == nil {
		logger = logging.GetDefault()
	}

	abs, err := filepath.Abs(fileops.ExpandPath(dir))
	if err != nil {
		return nil, fmt.Errorf("cannot resolve %s: %w", dir, err)
	}

	ctx := helpers.NewUIContext(0, 0, cfg, logger)
	picker := filepicker.NewFilePicker("🗑  Shredder", abs, nil, ctx)

	passes := textinput.New()
	passes.Prompt = "Random passes: "
	passes.CharLimit = 3
	passes.Width = 6

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.SpinnerStyle

	return &App{
		config:   cfg,
		logger:   logger,
		dir:      abs,
		state:    StatePicking,
		picker:   &picker,
		layout:   components.NewLayout(components.LayoutConfig{MarginX: 2, MarginY: 1, MaxWidth: 100}),
		passes:   passes,
		spinner:  sp,
		progress: progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		active:   make(map[string]shred.Event),
	}, nil
}

// Run starts the full-screen file shredder on dir.
func Run(dir string, cfg *config.Config, logger *logging.AppLogger) error {
	if logger == nil {
		logger = logging.GetDefault()
	}
	// Log lines written to the terminal would corrupt the screen.
	if !logger.IsDebug() {
		logger = logging.NewDiscardLogger()
	}

	app, err := NewApp(dir, cfg, logger)
	if err != nil {
		return err
	}
	defer app.stop()

	if _, err := tea.NewProgram(app, tea.WithAltScreen()).Run(); err != nil {
		return fmt.Errorf("TUI failed: %w", err)
	}
	return nil
}

func (m *App) Init() tea.Cmd {
	m.logger.Info("TUI started", "dir", m.dir)
	return tea.Batch(m.picker.Init(), m.scan())
}

func (m *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	m.logger.LogMessage(msg)

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.layout, _ = m.layout.Update(msg)
		m.progress.Width = min(m.layout.InputWidth(), 60)
		_, cmd := m.picker.Update(msg)
		return m, cmd

	case filesScannedMsg:
		if msg.err != nil {
			return m.fail(fmt.Errorf("cannot list %s: %w", m.dir, msg.err)), nil
		}
		_, cmd := m.picker.Update(filepicker.FilesReadyMsg{Files: msg.files})
		return m, cmd

	case filepicker.FileSelectedMsg:
		return m.plan(msg.Files)

	case progressMsg:
		m.active[msg.event.Path] = msg.event
		return m, waitForActivity(m.events)

	case resultMsg:
		delete(m.active, msg.result.Target.Path)
		m.results = append(m.results, msg.result)
		return m, waitForActivity(m.events)

	case shredDoneMsg:
		m.report = msg.report
		m.stop()
		m.transition(StateDone)
		if m.quitAfterRun {
			return m, tea.Quit
		}
		return m, nil

	case spinner.TickMsg:
		if m.state != StateShredding {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m.interrupt()
		}
		return m.handleKey(msg)
	}

	if m.state == StatePicking {
		_, cmd := m.picker.Update(msg)
		return m, cmd
	}
	if m.state == StateConfirming {
		var cmd tea.Cmd
		m.passes, cmd = m.passes.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.state {
	case StatePicking:
		_, cmd := m.picker.Update(msg)
		return m, cmd

	case StateConfirming:
		switch msg.String() {
		case "esc":
			m.layout = m.layout.ClearError()
			m.transition(StatePicking)
			return m, nil
		case "enter":
			passes, err := parsePasses(m.passes.Value())
			if err != nil {
				m.layout = m.layout.SetError(err)
				return m, nil
			}
			m.layout = m.layout.ClearError()
			return m, m.start(passes)
		}
		var cmd tea.Cmd
		m.passes, cmd = m.passes.Update(msg)
		return m, cmd

	case StateShredding:
		// Only ctrl+c interrupts a run.
		return m, nil

	case StateDone, StateError:
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "enter", "r":
			m.err = nil
			m.layout = m.layout.ClearError()
			m.transition(StatePicking)
			return m, m.scan()
		}
	}
	return m, nil
}

// interrupt handles ctrl+c. During a run the first press stops new files
// from starting and the second quits immediately.
func (m *App) interrupt() (tea.Model, tea.Cmd) {
	if m.state != StateShredding || m.quitAfterRun {
		m.stop()
		return m, tea.Quit
	}
	m.logger.Warn("Interrupted; finishing files in progress")
	m.quitAfterRun = true
	m.cancel()
	return m, nil
}

// plan validates the chosen files and moves to confirmation.
func (m *App) plan(files []fileops.FileInfo) (tea.Model, tea.Cmd) {
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.AbsPath
	}
	m.targets, m.planErrs = batch.Plan(paths, batch.PlanOptions{})
	for _, pe := range m.planErrs {
		m.logger.Warn("Skipping file", "path", pe.Path, "error", pe.Err)
	}
	if len(m.targets) == 0 {
		if len(m.planErrs) > 0 {
			return m.fail(m.planErrs[0]), nil
		}
		return m, nil
	}

	if !m.config.Confirm {
		return m, m.start(m.config.Passes)
	}
	m.passes.SetValue(strconv.Itoa(m.config.Passes))
	m.passes.CursorEnd()
	m.transition(StateConfirming)
	return m, m.passes.Focus()
}

// start launches the run in the background and returns the commands that
// feed its progress back into the model.
func (m *App) start(passes int) tea.Cmd {
	m.passes.Blur()
	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.results = nil
	m.report = nil
	clear(m.active)

	events := make(chan tea.Msg, 64)
	abandoned := make(chan struct{})
	finished := make(chan struct{})
	m.events = events
	m.abandon = sync.OnceFunc(func() { close(abandoned) })
	m.finished = finished
	send := func(msg tea.Msg) {
		select {
		case events <- msg:
		case <-abandoned:
		}
	}

	shredder := shred.New(
		shred.WithBlockSize(m.config.BlockSize),
		shred.WithObserver(func(ev shred.Event) {
			// Progress is best effort; never stall a pass on a slow UI.
			select {
			case events <- progressMsg{event: ev}:
			default:
			}
		}),
	)
	runner := &batch.Runner{
		Shredder:  shredder,
		Passes:    passes,
		Jobs:      m.config.Jobs,
		GitPolicy: m.config.GitPolicy(),
		Logger:    m.logger,
		OnResult: func(res batch.Result) {
			send(resultMsg{result: res})
		},
	}

	targets := m.targets
	go func() {
		defer close(finished)
		report := runner.Run(ctx, targets)
		send(shredDoneMsg{report: report})
		close(events)
	}()

	m.transition(StateShredding)
	return tea.Batch(m.spinner.Tick, waitForActivity(events))
}

// stop cancels the current run and stops listening to it.
func (m *App) stop() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.abandon != nil {
		m.abandon()
	}
}

func (m *App) fail(err error) *App {
	m.logger.Error("TUI error", "error", err)
	m.err = err
	m.transition(StateError)
	return m
}

func (m *App) transition(to AppState) {
	m.logger.LogStateTransition("App", m.state.String(), to.String())
	m.state = to
}

func (m *App) scan() tea.Cmd {
	dir := m.dir
	return func() tea.Msg {
		scanner, err := fileops.NewDirectoryScanner(dir, &fileops.DirectoryScanOptions{
			SkipUnreadableDirs: true,
			MaxDepth:           scanDepth,
			IncludeHidden:      true,
			SkipPatterns:       []string{".git"},
		})
		if err != nil {
			return filesScannedMsg{err: err}
		}
		defer scanner.Close()

		files, err := scanner.ScanDirectory()
		return filesScannedMsg{files: files, err: err}
	}
}

func waitForActivity(events <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func parsePasses(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < shred.MinPasses || n > config.MaxPasses {
		return 0, fmt.Errorf("passes must be a number from %d to %d", shred.MinPasses, config.MaxPasses)
	}
	return n, nil
}

// GetUIContext creates a UI context with current dimensions and app state
func (m *App) GetUIContext() helpers.UIContext {
	return helpers.NewUIContext(m.windowWidth, m.windowHeight, m.config, m.logger)
}

func (m *App) View() string {
	switch m.state {
	case StatePicking:
		return m.picker.View()
	case StateConfirming:
		return m.viewConfirm()
	case StateShredding:
		return m.viewShredding()
	case StateDone:
		return m.viewDone()
	default:
		return m.viewError()
	}
}

func (m *App) viewConfirm() string {
	m.layout = m.layout.
		SetTitle("⚠  Confirm shredding").
		SetSubtitle(m.dir).
		SetHelpText("enter to shred • esc to go back • ctrl+c to quit")

	var total int64
	for _, t := range m.targets {
		total += t.Size
	}

	var b strings.Builder
	fmt.Fprintf(&b, "About to shred %d file(s), %s:\n", len(m.targets), units.BytesSize(float64(total)))
	for i, t := range m.targets {
		if i == maxConfirmListed {
			fmt.Fprintf(&b, "  ... and %d more\n", len(m.targets)-maxConfirmListed)
			break
		}
		fmt.Fprintf(&b, "  %s (%s)\n", m.relative(t.Path), units.BytesSize(float64(t.Size)))
	}
	for _, pe := range m.planErrs {
		fmt.Fprintf(&b, "  skipping %s\n", pe)
	}
	b.WriteString("\nEach file is overwritten with random data once per pass, then with zeros, then truncated and deleted.\n\n")
	b.WriteString(styles.InputStyle.Render(m.passes.View()))
	b.WriteString("\n\n")
	b.WriteString(styles.WarningStyle.Render("This action cannot be undone."))

	return m.layout.Render(b.String())
}

func (m *App) viewShredding() string {
	help := "ctrl+c to stop after the files in progress"
	if m.quitAfterRun {
		help = "Stopping... ctrl+c again to quit now"
	}
	m.layout = m.layout.
		SetTitle("🔥 Shredding").
		SetSubtitle(fmt.Sprintf("%d of %d files finished", len(m.results), len(m.targets))).
		SetHelpText(help)

	paths := make([]string, 0, len(m.active))
	for p := range m.active {
		paths = append(paths, p)
	}
	slices.Sort(paths)

	var b strings.Builder
	if len(paths) == 0 {
		fmt.Fprintf(&b, "%s Preparing...\n", m.spinner.View())
	}
	for _, p := range paths {
		ev := m.active[p]
		fmt.Fprintf(&b, "%s %s  %s\n", m.spinner.View(), m.relative(p), describePhase(ev))
		fmt.Fprintf(&b, "  %s\n", m.progress.ViewAs(ev.Fraction()))
	}
	return m.layout.Render(b.String())
}

func describePhase(ev shred.Event) string {
	switch ev.Phase {
	case shred.PhaseRandom:
		return fmt.Sprintf("random pass %d of %d", ev.Pass, ev.Rounds-1)
	case shred.PhaseZero:
		return "zero pass"
	case shred.PhaseTruncate:
		return "truncating"
	case shred.PhaseRemove:
		return "deleting"
	}
	return "finishing"
}

func (m *App) viewDone() string {
	m.layout = m.layout.
		SetTitle("✔ Done").
		SetSubtitle(m.dir).
		SetHelpText("enter to shred more files • q to quit")

	var b strings.Builder
	if m.report != nil {
		for _, res := range m.report.Results {
			name := m.relative(res.Target.Path)
			if res.Err != nil {
				b.WriteString(styles.ErrorStyle.Render("✗ "+name) + ": " + res.Err.Error() + "\n")
				for _, hint := range shred.Hints(res.Err) {
					b.WriteString("    hint: " + hint + "\n")
				}
				continue
			}
			b.WriteString(styles.SuccessStyle.Render("✓ "+name) + " (" + units.BytesSize(float64(res.Target.Size)) + ")\n")
			if res.Warning != "" {
				b.WriteString(styles.WarningStyle.Render("    warning: "+res.Warning) + "\n")
			}
		}
		b.WriteString("\n" + m.report.Summary())
		if slices.ContainsFunc(m.report.Results, func(r batch.Result) bool { return errors.Is(r.Err, batch.ErrSkipped) }) {
			b.WriteString("\nThe run was interrupted; skipped files were not modified.")
		}
	}
	return m.layout.Render(b.String())
}

func (m *App) viewError() string {
	m.layout = m.layout.
		SetTitle("❌ Error").
		SetSubtitle("Something went wrong").
		SetHelpText("enter to go back • q to quit").
		SetError(m.err)
	return m.layout.Render("")
}

// relative shortens path for display when it lies below the browsed directory.
func (m *App) relative(path string) string {
	if rel, err := filepath.Rel(m.dir, path); err == nil && !strings.HasPrefix(rel, "..") {
		return rel
	}
	return path
}
