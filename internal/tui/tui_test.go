package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"shredder/internal/config"
	"shredder/internal/logging"
	"shredder/internal/tui/components/filepicker"
	"shredder/pkg/fileops"
	"shredder/pkg/shred"
)

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Passes = 1
	cfg.GitCheck = "off"
	return &cfg
}

func newTestApp(t *testing.T, dir string, cfg *config.Config) *App {
	t.Helper()
	t.Setenv("GLAMOUR_STYLE", "notty")
	logger, _ := logging.NewTestLogger()
	app, err := NewApp(dir, cfg, logger)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

func writeFile(t *testing.T, path, content string) string {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func fileInfo(path string) fileops.FileInfo {
	return fileops.FileInfo{Name: filepath.Base(path), Path: filepath.Base(path), AbsPath: path}
}

// drain feeds run messages straight from the event channel until the run is
// over and returns the command produced by the final message.
func drain(t *testing.T, m *App) tea.Cmd {
	t.Helper()
	var last tea.Cmd
	deadline := time.After(5 * time.Second)
	for {
		select {
		case msg, ok := <-m.events:
			if !ok {
				return last
			}
			_, last = m.Update(msg)
		case <-deadline:
			t.Fatalf("run did not finish")
		}
	}
}

func TestAppStateString(t *testing.T) {
	tests := map[AppState]string{
		StatePicking:    "picking",
		StateConfirming: "confirming",
		StateShredding:  "shredding",
		StateDone:       "done",
		StateError:      "error",
		AppState(42):    "unknown",
	}
	for state, want := range tests {
		if got := state.String(); got != want {
			t.Errorf("AppState(%d).String() = %q, want %q", int(state), got, want)
		}
	}
}

func TestNewApp(t *testing.T) {
	dir := t.TempDir()
	cfg := testConfig()
	m := newTestApp(t, dir, cfg)

	if m.state != StatePicking {
		t.Errorf("expected initial state picking, got %v", m.state)
	}
	if m.dir != dir {
		t.Errorf("expected dir %q, got %q", dir, m.dir)
	}
	if m.config != cfg {
		t.Error("config not properly set")
	}
}

func TestNewApp_NilConfigUsesDefaults(t *testing.T) {
	m := newTestApp(t, t.TempDir(), nil)
	if m.config.Passes != config.DefaultPasses {
		t.Errorf("expected default passes, got %d", m.config.Passes)
	}
}

func TestGetUIContext(t *testing.T) {
	m := newTestApp(t, t.TempDir(), testConfig())
	_, _ = m.Update(tea.WindowSizeMsg{Width: 100, Height: 50})

	ctx := m.GetUIContext()
	if ctx.Width != 100 || ctx.Height != 50 {
		t.Errorf("expected 100x50, got %dx%d", ctx.Width, ctx.Height)
	}
	if ctx.Config != m.config || ctx.Logger != m.logger {
		t.Error("config or logger not passed through")
	}
	if !ctx.HasValidDimensions() {
		t.Error("expected valid dimensions")
	}
}

func TestParsePasses(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"1", 1, false},
		{" 7 ", 7, false},
		{"35", 35, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"36", 0, true},
		{"three", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		got, err := parsePasses(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parsePasses(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parsePasses(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestSelectionMovesToConfirm(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "secret.txt"), "classified")
	cfg := testConfig()
	cfg.Passes = 4
	m := newTestApp(t, dir, cfg)

	_, _ = m.Update(filepicker.FileSelectedMsg{Files: []fileops.FileInfo{fileInfo(file)}})

	if m.state != StateConfirming {
		t.Fatalf("expected confirming, got %v", m.state)
	}
	if m.passes.Value() != "4" {
		t.Errorf("expected passes prefilled from config, got %q", m.passes.Value())
	}
	view := m.View()
	for _, want := range []string{"secret.txt (10B)", "cannot be undone", "Random passes"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected %q in confirm view", want)
		}
	}
}

func TestConfirm_EscapeReturnsToPicker(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "secret.txt"), "classified")
	m := newTestApp(t, dir, testConfig())
	_, _ = m.Update(filepicker.FileSelectedMsg{Files: []fileops.FileInfo{fileInfo(file)}})

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})

	if m.state != StatePicking {
		t.Fatalf("expected picking, got %v", m.state)
	}
	if _, err := os.Stat(file); err != nil {
		t.Fatalf("file should be untouched: %v", err)
	}
}

func TestConfirm_InvalidPasses(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "secret.txt"), "classified")
	m := newTestApp(t, dir, testConfig())
	_, _ = m.Update(filepicker.FileSelectedMsg{Files: []fileops.FileInfo{fileInfo(file)}})

	m.passes.SetValue("lots")
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})

	if m.state != StateConfirming {
		t.Fatalf("expected to stay on confirm, got %v", m.state)
	}
	if !strings.Contains(m.View(), "passes must be a number") {
		t.Error("expected validation error in view")
	}
}

func TestShredFlow(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
	b := writeFile(t, filepath.Join(dir, "sub", "b.txt"), "bravo")
	m := newTestApp(t, dir, testConfig())
	_, _ = m.Update(filepicker.FileSelectedMsg{Files: []fileops.FileInfo{fileInfo(a), fileInfo(b)}})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if cmd == nil || m.state != StateShredding {
		t.Fatalf("expected shredding to start, state %v", m.state)
	}
	if !strings.Contains(m.View(), "Shredding") {
		t.Error("expected progress view")
	}

	drain(t, m)

	if m.state != StateDone {
		t.Fatalf("expected done, got %v", m.state)
	}
	for _, p := range []string{a, b} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should be gone", p)
		}
	}
	view := m.View()
	if !strings.Contains(view, "2 shredded, 0 failed") {
		t.Errorf("expected summary in done view:\n%s", view)
	}
	if !strings.Contains(view, filepath.Join("sub", "b.txt")) {
		t.Errorf("expected paths relative to the browsed directory:\n%s", view)
	}

	// enter goes back to a fresh listing
	_, cmd = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != StatePicking || cmd == nil {
		t.Fatalf("expected rescan and picking, got %v", m.state)
	}
}

func TestShredFlow_MissingFileReported(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "secret.txt"), "classified")
	m := newTestApp(t, dir, testConfig())
	_, _ = m.Update(filepicker.FileSelectedMsg{Files: []fileops.FileInfo{fileInfo(file)}})

	// Removed by someone else between picking and confirming.
	if err := os.Remove(file); err != nil {
		t.Fatalf("remove: %v", err)
	}
	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	drain(t, m)

	if m.report == nil || m.report.Failed() != 1 {
		t.Fatalf("expected one failure, got %+v", m.report)
	}
	if shred.KindOf(m.report.Err()) != shred.KindNotFound {
		t.Errorf("expected NotFound, got %v", shred.KindOf(m.report.Err()))
	}
	view := m.View()
	if !strings.Contains(view, "✗ secret.txt") || !strings.Contains(view, "hint:") {
		t.Errorf("expected failure with hint in view:\n%s", view)
	}
}

func TestConfirmDisabledStartsImmediately(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "secret.txt"), "classified")
	cfg := testConfig()
	cfg.Confirm = false
	m := newTestApp(t, dir, cfg)

	_, _ = m.Update(filepicker.FileSelectedMsg{Files: []fileops.FileInfo{fileInfo(file)}})
	if m.state != StateShredding {
		t.Fatalf("expected shredding without confirmation, got %v", m.state)
	}
	drain(t, m)

	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("file should be gone")
	}
}

func TestInterruptDuringRunQuitsWhenFinished(t *testing.T) {
	dir := t.TempDir()
	var files []fileops.FileInfo
	for _, name := range []string{"a", "b", "c", "d"} {
		files = append(files, fileInfo(writeFile(t, filepath.Join(dir, name), strings.Repeat(name, 1024))))
	}
	cfg := testConfig()
	cfg.Confirm = false
	m := newTestApp(t, dir, cfg)
	_, _ = m.Update(filepicker.FileSelectedMsg{Files: files})

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd != nil {
		t.Fatalf("first ctrl+c should not quit while files are in progress")
	}
	if !m.quitAfterRun || !strings.Contains(m.View(), "Stopping") {
		t.Fatalf("expected stopping state")
	}

	last := drain(t, m)
	if last == nil {
		t.Fatalf("expected quit once the run finished")
	}
	if _, ok := last().(tea.QuitMsg); !ok {
		t.Fatalf("expected tea.QuitMsg")
	}
	if m.report.Succeeded()+m.report.Failed() != len(files) {
		t.Errorf("every file should be accounted for")
	}
}

func TestQuitDuringRunReleasesWorker(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "secret.txt"), strings.Repeat("s", 256))
	cfg := testConfig()
	cfg.Confirm = false
	cfg.BlockSize = 1
	m := newTestApp(t, dir, cfg)

	_, _ = m.Update(filepicker.FileSelectedMsg{Files: []fileops.FileInfo{fileInfo(file)}})

	// Nobody reads the events, so one byte per block fills the buffer.
	deadline := time.Now().Add(5 * time.Second)
	for len(m.events) < cap(m.events) {
		if time.Now().After(deadline) {
			t.Fatalf("event buffer never filled")
		}
		time.Sleep(time.Millisecond)
	}

	_, _ = m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	if cmd == nil {
		t.Fatalf("second ctrl+c should quit")
	}

	select {
	case <-m.finished:
	case <-time.After(10 * time.Second):
		t.Fatalf("shredding goroutine still blocked after quit")
	}
	if _, err := os.Stat(file); !os.IsNotExist(err) {
		t.Error("file in progress should still be shredded")
	}
}

func TestWindowResizeSizesProgressBar(t *testing.T) {
	m := newTestApp(t, t.TempDir(), testConfig())

	_, _ = m.Update(tea.WindowSizeMsg{Width: 60, Height: 20})
	if m.progress.Width != 48 {
		t.Errorf("progress width = %d, want 48", m.progress.Width)
	}

	_, _ = m.Update(tea.WindowSizeMsg{Width: 200, Height: 50})
	if m.progress.Width != 60 {
		t.Errorf("progress width = %d, want 60", m.progress.Width)
	}
}

func TestPlanErrorShowsErrorScreen(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatal(err)
	}
	m := newTestApp(t, dir, testConfig())

	_, _ = m.Update(filepicker.FileSelectedMsg{Files: []fileops.FileInfo{fileInfo(sub)}})

	if m.state != StateError {
		t.Fatalf("expected error state, got %v", m.state)
	}
	if !strings.Contains(m.View(), "Error:") {
		t.Error("expected error in view")
	}

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if m.state != StatePicking || cmd == nil {
		t.Fatalf("expected to return to the picker")
	}
}

func TestScanErrorShowsErrorScreen(t *testing.T) {
	m := newTestApp(t, filepath.Join(t.TempDir(), "nope"), testConfig())
	msg := m.scan()()
	_, _ = m.Update(msg)

	if m.state != StateError {
		t.Fatalf("expected error state, got %v", m.state)
	}
	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Fatalf("expected q to quit from the error screen")
	}
}

func TestDescribePhase(t *testing.T) {
	tests := []struct {
		ev   shred.Event
		want string
	}{
		{shred.Event{Phase: shred.PhaseRandom, Pass: 2, Rounds: 4}, "random pass 2 of 3"},
		{shred.Event{Phase: shred.PhaseZero, Pass: 4, Rounds: 4}, "zero pass"},
		{shred.Event{Phase: shred.PhaseTruncate}, "truncating"},
		{shred.Event{Phase: shred.PhaseRemove}, "deleting"},
		{shred.Event{Phase: shred.PhaseDone}, "finishing"},
	}
	for _, tt := range tests {
		if got := describePhase(tt.ev); got != tt.want {
			t.Errorf("describePhase(%v) = %q, want %q", tt.ev.Phase, got, tt.want)
		}
	}
}

// Full program tests

func waitForString(t *testing.T, tm *teatest.TestModel, s string) {
	t.Helper()
	teatest.WaitFor(
		t,
		tm.Output(),
		func(b []byte) bool {
			return strings.Contains(string(b), s)
		},
		teatest.WithCheckInterval(time.Millisecond*100),
		teatest.WithDuration(time.Second*3),
	)
}

func TestProgram_MarkAllAndShred(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, filepath.Join(dir, "a.txt"), "alpha")
	b := writeFile(t, filepath.Join(dir, "b.txt"), "bravo")
	keep := writeFile(t, filepath.Join(dir, ".git", "HEAD"), "ref: refs/heads/main")

	m := newTestApp(t, dir, testConfig())
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))

	waitForString(t, tm, "b.txt")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("a")})
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	waitForString(t, tm, "cannot be undone")

	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	waitForString(t, tm, "2 shredded, 0 failed")

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	for _, p := range []string{a, b} {
		if _, err := os.Stat(p); !os.IsNotExist(err) {
			t.Errorf("%s should be gone", p)
		}
	}
	if _, err := os.Stat(keep); err != nil {
		t.Errorf(".git contents are never listed and must survive: %v", err)
	}
}

func TestProgram_BackOutOfConfirmation(t *testing.T) {
	dir := t.TempDir()
	file := writeFile(t, filepath.Join(dir, "keep.txt"), "still here")

	m := newTestApp(t, dir, testConfig())
	tm := teatest.NewTestModel(t, m, teatest.WithInitialTermSize(100, 30))

	waitForString(t, tm, "keep.txt")
	tm.Send(tea.KeyMsg{Type: tea.KeyEnter})
	waitForString(t, tm, "cannot be undone")

	tm.Send(tea.KeyMsg{Type: tea.KeyEsc})
	tm.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))

	final := tm.FinalModel(t).(*App)
	if final.state != StatePicking {
		t.Errorf("expected to quit from the picker, got %v", final.state)
	}
	if _, err := os.Stat(file); err != nil {
		t.Errorf("file should be untouched: %v", err)
	}
}
