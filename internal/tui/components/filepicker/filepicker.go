package filepicker

import (
	"bytes"
	clist "container/list"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"time"

	"shredder/internal/logging"
	"shredder/internal/tui/helpers"
	"shredder/internal/tui/styles"
	"shredder/pkg/fileops"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	units "github.com/docker/go-units"
	"github.com/muesli/termenv"
)

type KeyMap struct {
	Select       key.Binding
	Mark         key.Binding
	MarkAll      key.Binding
	Up           key.Binding
	Down         key.Binding
	Quit         key.Binding
	Filter       key.Binding
	Full         key.Binding
	ToggleFormat key.Binding
	FocusLeft    key.Binding
	FocusRight   key.Binding
}

// focusedPane identifies which pane (list or preview) has keyboard focus
type focusedPane int

const (
	focusList focusedPane = iota
	focusPreview
)

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Select:       key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "shred")),
		Mark:         key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "mark")),
		MarkAll:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "mark all")),
		Up:           key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:         key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Quit:         key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q/esc", "quit")),
		Filter:       key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "filter")),
		Full:         key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "load full")),
		ToggleFormat: key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "toggle format")),
		FocusLeft:    key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "focus list")),
		FocusRight:   key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "focus preview")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Mark, k.MarkAll, k.Select, k.Filter, k.Full, k.ToggleFormat, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Mark, k.MarkAll, k.Select},
		{k.Filter, k.Full, k.ToggleFormat, k.FocusRight, k.FocusLeft, k.Quit},
	}
}

// fileItem adapts a scanned file to the list.
type fileItem struct {
	file   fileops.FileInfo
	marked bool
}

func (i fileItem) Title() string {
	if i.marked {
		return "● " + i.file.Path
	}
	return "  " + i.file.Path
}

func (i fileItem) Description() string {
	return "  " + units.BytesSize(float64(i.file.Size)) + "  " + i.file.ModTime.Format("2006-01-02 15:04")
}

func (i fileItem) FilterValue() string { return i.file.Path }

type FilePicker struct {
	logger *logging.AppLogger

	title    string
	subtitle string
	files    []fileops.FileInfo
	marked   map[string]bool
	fileList list.Model
	keys     KeyMap
	viewport viewport.Model
	help     help.Model

	windowWidth  int
	windowHeight int

	// Loading state management
	isLoading       bool
	loadingPath     string
	currentRenderID uint64
	renderCounter   *uint64
	contentCache    *lruCache

	// Debounce and preview controls
	debounceDuration  time.Duration
	pendingDebounceID uint64

	// Preview options
	largeFileThreshold int // bytes
	maxPreviewBytes    int // bytes for truncated previews
	useGlamour         bool
	glamourStyle       string

	focusPane focusedPane
}

type (
	// FilesReadyMsg replaces the listed files, for example after a rescan.
	FilesReadyMsg struct {
		Files []fileops.FileInfo
	}

	// FileSelectedMsg is sent when the user asks to shred. Files holds the
	// marked files, or the highlighted one when nothing is marked.
	FileSelectedMsg struct {
		Files []fileops.FileInfo
	}

	debouncedPreviewMsg struct {
		path string
		seq  uint64
	}

	FileRenderedMsg struct {
		content  string
		path     string
		renderID uint64
		cacheKey string
	}

	FileReadErrorMsg struct {
		err      error
		path     string
		renderID uint64
	}
)

// lruEntry represents a single cache item
type lruEntry struct {
	key     string
	content string
	size    int
}

// lruCache is a simple LRU cache with a byte capacity cap.
// It evicts least-recently-used entries until under capacity.
type lruCache struct {
	capacityBytes int
	currentBytes  int
	ll            *clist.List
	items         map[string]*clist.Element
}

func newLRU(capacity int) *lruCache {
	return &lruCache{
		capacityBytes: capacity,
		ll:            clist.New(),
		items:         make(map[string]*clist.Element),
	}
}

func (c *lruCache) Get(key string) (string, bool) {
	if el, ok := c.items[key]; ok {
		c.ll.MoveToFront(el)
		return el.Value.(*lruEntry).content, true
	}
	return "", false
}

func (c *lruCache) Add(key string, content string) {
	size := len(content)
	if size > c.capacityBytes {
		return
	}
	if el, ok := c.items[key]; ok {
		ent := el.Value.(*lruEntry)
		c.currentBytes += size - ent.size
		ent.content = content
		ent.size = size
		c.ll.MoveToFront(el)
	} else {
		el := c.ll.PushFront(&lruEntry{key: key, content: content, size: size})
		c.items[key] = el
		c.currentBytes += size
	}
	for c.currentBytes > c.capacityBytes && c.ll.Len() > 0 {
		tail := c.ll.Back()
		ent := tail.Value.(*lruEntry)
		delete(c.items, ent.key)
		c.ll.Remove(tail)
		c.currentBytes -= ent.size
	}
}

func (c *lruCache) Clear() {
	c.ll.Init()
	c.items = make(map[string]*clist.Element)
	c.currentBytes = 0
}

// detectGlamourStyle attempts to detect terminal background using termenv,
// but will respect GLAMOUR_STYLE if set to a concrete value (not "auto").
// A timeout ensures we never hang on terminals that don't respond.
func detectGlamourStyle(timeout time.Duration) string {
	style := os.Getenv("GLAMOUR_STYLE")
	if style != "" && style != "auto" {
		return style
	}

	ch := make(chan string, 1)
	go func() {
		if termenv.NewOutput(os.Stdout).HasDarkBackground() {
			ch <- "dark"
			return
		}
		ch <- "light"
	}()

	select {
	case s := <-ch:
		return s
	case <-time.After(timeout):
		return "dark"
	}
}

func NewFilePicker(title, subtitle string, files []fileops.FileInfo, ctx helpers.UIContext) FilePicker {
	logger := ctx.Logger
	if logger == nil {
		logger = logging.GetDefault()
	}

	fileList := list.New(nil, list.NewDefaultDelegate(), ctx.Width, ctx.Height)
	fileList.Title = "Files"
	fileList.SetShowStatusBar(false)
	fileList.SetFilteringEnabled(true)
	fileList.SetShowHelp(false)

	vp := viewport.New(ctx.Width, ctx.Height)
	vp.MouseWheelEnabled = true

	renderCounter := uint64(0)

	fp := FilePicker{
		logger:             logger,
		title:              title,
		subtitle:           subtitle,
		marked:             make(map[string]bool),
		fileList:           fileList,
		viewport:           vp,
		keys:               DefaultKeyMap(),
		help:               help.New(),
		windowWidth:        ctx.Width,
		windowHeight:       ctx.Height,
		renderCounter:      &renderCounter,
		contentCache:       newLRU(1 << 20),
		debounceDuration:   200 * time.Millisecond,
		largeFileThreshold: 7 * 1024,
		maxPreviewBytes:    2 * 1024,
		useGlamour:         true,
		focusPane:          focusList,
	}
	fp.setFiles(files)
	return fp
}

// Marked returns the marked files in list order.
func (fp *FilePicker) Marked() []fileops.FileInfo {
	var out []fileops.FileInfo
	for _, f := range fp.files {
		if fp.marked[f.AbsPath] {
			out = append(out, f)
		}
	}
	return out
}

// Files returns the listed files.
func (fp *FilePicker) Files() []fileops.FileInfo { return fp.files }

func (fp *FilePicker) setFiles(files []fileops.FileInfo) {
	fp.files = files
	present := make(map[string]bool, len(files))
	items := make([]list.Item, len(files))
	for i, f := range files {
		present[f.AbsPath] = true
		items[i] = fileItem{file: f, marked: fp.marked[f.AbsPath]}
	}
	for p := range fp.marked {
		if !present[p] {
			delete(fp.marked, p)
		}
	}
	fp.fileList.SetItems(items)
}

func (fp *FilePicker) selectedPath() string {
	if item, ok := fp.fileList.SelectedItem().(fileItem); ok {
		return item.file.AbsPath
	}
	return ""
}

func (fp *FilePicker) toggleMark() {
	index := fp.fileList.GlobalIndex()
	items := fp.fileList.Items()
	if index < 0 || index >= len(items) {
		return
	}
	item := items[index].(fileItem)
	item.marked = !item.marked
	if item.marked {
		fp.marked[item.file.AbsPath] = true
	} else {
		delete(fp.marked, item.file.AbsPath)
	}
	fp.fileList.SetItem(index, item)
}

// markAll marks every file, or clears all marks when everything is marked.
func (fp *FilePicker) markAll() {
	allMarked := len(fp.files) > 0 && len(fp.marked) == len(fp.files)
	for i, it := range fp.fileList.Items() {
		item := it.(fileItem)
		item.marked = !allMarked
		if item.marked {
			fp.marked[item.file.AbsPath] = true
		} else {
			delete(fp.marked, item.file.AbsPath)
		}
		fp.fileList.SetItem(i, item)
	}
}

func (fp *FilePicker) Init() tea.Cmd {
	// Detect once so rendering never issues terminal queries.
	if fp.glamourStyle == "" {
		fp.glamourStyle = detectGlamourStyle(50 * time.Millisecond)
		fp.logger.Debug("Glamour style selected", "style", fp.glamourStyle)
	}

	if p := fp.selectedPath(); p != "" {
		return fp.scheduleDebouncedPreview(p)
	}
	fp.viewport.SetContent("No files here.")
	return nil
}

func (fp *FilePicker) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	oldSelectedPath := fp.selectedPath()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		fp.resize(msg.Width, msg.Height)
		return fp, nil

	case tea.MouseMsg:
		var vpcmd tea.Cmd
		fp.viewport, vpcmd = fp.viewport.Update(msg)
		return fp, vpcmd

	case list.FilterMatchesMsg:
		var cmd tea.Cmd
		fp.fileList, cmd = fp.fileList.Update(msg)
		return fp, cmd

	case FileRenderedMsg:
		fp.contentCache.Add(msg.cacheKey, msg.content)

		if msg.path == fp.selectedPath() && msg.renderID >= fp.currentRenderID {
			fp.currentRenderID = msg.renderID
			fp.viewport.SetContent(msg.content)
			fp.isLoading = false
			fp.loadingPath = ""
		} else {
			fp.logger.Debug("Preview cached but not displayed", "path", msg.path, "renderID", msg.renderID)
		}
		return fp, nil

	case FileReadErrorMsg:
		if msg.path == fp.selectedPath() && msg.renderID >= fp.currentRenderID {
			fp.currentRenderID = msg.renderID
			fp.logger.Warn("Preview failed", "error", msg.err, "path", msg.path)
			fp.viewport.SetContent(fmt.Sprintf("Cannot preview %s: %v", msg.path, msg.err))
			fp.isLoading = false
			fp.loadingPath = ""
		}
		return fp, nil

	case debouncedPreviewMsg:
		if msg.seq != fp.pendingDebounceID || msg.path != fp.selectedPath() {
			return fp, nil
		}
		if fp.applyCached(msg.path) {
			return fp, nil
		}
		return fp, fp.renderFileContent(msg.path, false, fp.useGlamour)

	case FilesReadyMsg:
		fp.logger.Debug("File list updated", "count", len(msg.Files))
		fp.setFiles(msg.Files)
		fp.fileList.ResetSelected()
		fp.viewport.GotoTop()
		fp.contentCache.Clear()

		if p := fp.selectedPath(); p != "" {
			return fp, fp.scheduleDebouncedPreview(p)
		}
		fp.viewport.SetContent("No files here.")
		return fp, nil

	case tea.KeyMsg:
		// While filtering, keys belong to the filter input.
		if fp.fileList.FilterState() == list.Filtering {
			return fp, fp.updateList(msg, oldSelectedPath)
		}

		switch {
		case key.Matches(msg, fp.keys.FocusRight):
			fp.focusPane = focusPreview
			return fp, nil
		case key.Matches(msg, fp.keys.FocusLeft):
			fp.focusPane = focusList
			return fp, nil
		}

		if fp.focusPane == focusPreview {
			switch msg.String() {
			case "up", "down", "pgup", "pgdown", "ctrl+u", "ctrl+d", "home", "end", "k", "j":
				var vcmd tea.Cmd
				fp.viewport, vcmd = fp.viewport.Update(msg)
				return fp, vcmd
			}
		}

		switch {
		case key.Matches(msg, fp.keys.Select):
			files := fp.Marked()
			if len(files) == 0 {
				if item, ok := fp.fileList.SelectedItem().(fileItem); ok {
					files = []fileops.FileInfo{item.file}
				}
			}
			if len(files) == 0 {
				return fp, nil
			}
			fp.logger.Debug("Files chosen", "count", len(files))
			return fp, func() tea.Msg { return FileSelectedMsg{Files: files} }

		case key.Matches(msg, fp.keys.Mark):
			fp.toggleMark()
			return fp, nil

		case key.Matches(msg, fp.keys.MarkAll):
			fp.markAll()
			return fp, nil

		case key.Matches(msg, fp.keys.Quit):
			return fp, tea.Quit

		case key.Matches(msg, fp.keys.Full):
			if p := fp.selectedPath(); p != "" {
				fp.isLoading = true
				fp.loadingPath = p
				fp.viewport.SetContent("Loading full preview for " + p + "...")
				return fp, fp.renderFileContent(p, true, fp.useGlamour)
			}
			return fp, nil

		case key.Matches(msg, fp.keys.ToggleFormat):
			fp.useGlamour = !fp.useGlamour
			if p := fp.selectedPath(); p != "" {
				if fp.applyCached(p) {
					return fp, nil
				}
				fp.isLoading = true
				fp.loadingPath = p
				return fp, fp.renderFileContent(p, false, fp.useGlamour)
			}
			return fp, nil
		}

		return fp, fp.updateList(msg, oldSelectedPath)
	}

	return fp, nil
}

// updateList forwards msg to the list and refreshes the preview when the
// highlighted file changed.
func (fp *FilePicker) updateList(msg tea.Msg, oldSelectedPath string) tea.Cmd {
	var cmds []tea.Cmd
	prev := fp.fileList.FilterState()
	var cmd tea.Cmd
	fp.fileList, cmd = fp.fileList.Update(msg)
	cmds = append(cmds, cmd)

	newSelectedPath := fp.selectedPath()
	filterEnded := prev == list.Filtering && fp.fileList.FilterState() != list.Filtering
	if newSelectedPath == "" || fp.fileList.FilterState() == list.Filtering {
		return tea.Batch(cmds...)
	}
	if newSelectedPath != oldSelectedPath || filterEnded {
		if !fp.applyCached(newSelectedPath) {
			cmds = append(cmds, fp.scheduleDebouncedPreview(newSelectedPath))
		}
	}
	return tea.Batch(cmds...)
}

func (fp *FilePicker) resize(width, height int) {
	fp.windowWidth = width
	fp.windowHeight = height
	fp.help.Width = width

	frameW, frameH := styles.PaneStyle.GetFrameSize()
	const mainLeftMargin = 1
	avail := max(width-frameW*2-mainLeftMargin, 0)

	listWidth := max(avail/3, 20)
	vpWidth := max(avail-avail/3, 30)

	headerH := lipgloss.Height(fp.headerView())
	helpH := lipgloss.Height(fp.helpView())
	contentHeight := max(height-headerH-helpH-frameH, 5)

	fp.fileList.SetSize(listWidth, contentHeight)
	fp.viewport.Width = vpWidth
	fp.viewport.Height = contentHeight
}

func (fp *FilePicker) headerView() string {
	header := styles.TitleStyle.Render(fp.title)
	if fp.subtitle != "" {
		header = lipgloss.JoinVertical(lipgloss.Left, header, styles.SubtitleStyle.Render(fp.subtitle))
	}
	return styles.HeaderContainerStyle.Render(header)
}

func (fp *FilePicker) helpView() string {
	return styles.HelpContainerStyle.Render(styles.HelpStyle.Render(fp.help.View(fp.keys)))
}

func (fp *FilePicker) View() string {
	listStyle := styles.PaneStyle
	vpStyle := styles.PaneStyle
	switch fp.focusPane {
	case focusList:
		listStyle = styles.PaneFocusedStyle
	case focusPreview:
		vpStyle = styles.PaneFocusedStyle
	}

	listStyle = listStyle.Width(fp.fileList.Width()).Height(fp.fileList.Height())
	vpStyle = vpStyle.Width(fp.viewport.Width).Height(fp.viewport.Height)

	panes := lipgloss.JoinHorizontal(
		lipgloss.Top,
		listStyle.Render(fp.fileList.View()),
		vpStyle.Render(fp.viewport.View()),
	)
	panes = styles.MainContainerStyle.Render(panes)

	return lipgloss.JoinVertical(lipgloss.Left, fp.headerView(), panes, fp.helpView())
}

// cacheKey composes a cache key based on path and render options
func (fp *FilePicker) cacheKey(path string, full bool, glamourOn bool) string {
	mode := "trunc"
	if full {
		mode = "full"
	}
	fmtMode := "plain"
	if glamourOn {
		fmtMode = "glamour"
	}
	return path + "|" + mode + "|" + fmtMode
}

// applyCached shows a cached rendering of path, preferring the truncated one.
func (fp *FilePicker) applyCached(path string) bool {
	for _, full := range []bool{false, true} {
		if cached, ok := fp.contentCache.Get(fp.cacheKey(path, full, fp.useGlamour)); ok {
			fp.viewport.SetContent(cached)
			fp.isLoading = false
			fp.loadingPath = ""
			return true
		}
	}
	return false
}

func (fp *FilePicker) scheduleDebouncedPreview(p string) tea.Cmd {
	fp.isLoading = true
	fp.loadingPath = p
	fp.viewport.SetContent("Loading " + p + "...")
	seq := atomic.AddUint64(&fp.pendingDebounceID, 1)
	return tea.Tick(fp.debounceDuration, func(time.Time) tea.Msg {
		return debouncedPreviewMsg{path: p, seq: seq}
	})
}

// renderFileContent builds the preview of the file about to be destroyed:
// its metadata followed by the first bytes of its content.
func (fp *FilePicker) renderFileContent(path string, full bool, glamourOn bool) tea.Cmd {
	renderID := atomic.AddUint64(fp.renderCounter, 1)
	vpWidth := fp.viewport.Width - 2
	style := fp.glamourStyle

	return func() tea.Msg {
		fi, err := os.Lstat(path)
		if err != nil {
			return FileReadErrorMsg{err: err, path: path, renderID: renderID}
		}

		toRead := fi.Size()
		truncated := false
		if !full && fi.Size() > int64(fp.largeFileThreshold) {
			toRead = min(toRead, int64(fp.maxPreviewBytes))
			truncated = true
		}

		f, err := os.Open(path)
		if err != nil {
			return FileReadErrorMsg{err: err, path: path, renderID: renderID}
		}
		defer f.Close()

		buf := make([]byte, toRead)
		n, rerr := io.ReadFull(f, buf)
		if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
			return FileReadErrorMsg{err: rerr, path: path, renderID: renderID}
		}
		content := buf[:n]

		if vpWidth <= 0 {
			vpWidth = 80
		}

		var rendered string
		if glamourOn {
			renderer, err := glamour.NewTermRenderer(
				glamour.WithStandardStyle(style),
				glamour.WithWordWrap(vpWidth),
			)
			if err != nil {
				return FileReadErrorMsg{err: err, path: path, renderID: renderID}
			}
			rendered, err = renderer.Render(previewMarkdown(path, fi, content, truncated))
			if err != nil {
				return FileReadErrorMsg{err: err, path: path, renderID: renderID}
			}
		} else {
			rendered = previewPlain(path, fi, content, truncated)
		}

		return FileRenderedMsg{content: rendered, path: path, renderID: renderID, cacheKey: fp.cacheKey(path, !truncated, glamourOn)}
	}
}

func isBinary(content []byte) bool {
	return bytes.IndexByte(content, 0) >= 0
}

func truncatedNote(fi os.FileInfo, n int) string {
	return fmt.Sprintf("Preview shows %s of %s. Press 'f' to load everything.",
		units.BytesSize(float64(n)), units.BytesSize(float64(fi.Size())))
}

func previewMarkdown(path string, fi os.FileInfo, content []byte, truncated bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", fi.Name())
	b.WriteString("| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Size | %s (%d bytes) |\n", units.BytesSize(float64(fi.Size())), fi.Size())
	fmt.Fprintf(&b, "| Modified | %s |\n", fi.ModTime().Format(time.RFC1123))
	fmt.Fprintf(&b, "| Mode | `%s` |\n", fi.Mode())
	fmt.Fprintf(&b, "| Path | `%s` |\n\n", path)

	switch {
	case len(content) == 0:
		b.WriteString("*Empty file.*\n")
	case isBinary(content):
		b.WriteString("*Binary content not shown.*\n")
	default:
		if truncated {
			fmt.Fprintf(&b, "*%s*\n\n", truncatedNote(fi, len(content)))
		}
		fence := "```"
		for strings.Contains(string(content), fence) {
			fence += "`"
		}
		fmt.Fprintf(&b, "%s\n%s\n%s\n", fence, strings.TrimRight(string(content), "\n"), fence)
	}
	return b.String()
}

func previewPlain(path string, fi os.FileInfo, content []byte, truncated bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", fi.Name())
	fmt.Fprintf(&b, "Size:     %s (%d bytes)\n", units.BytesSize(float64(fi.Size())), fi.Size())
	fmt.Fprintf(&b, "Modified: %s\n", fi.ModTime().Format(time.RFC1123))
	fmt.Fprintf(&b, "Mode:     %s\n", fi.Mode())
	fmt.Fprintf(&b, "Path:     %s\n\n", path)

	switch {
	case len(content) == 0:
		b.WriteString("(empty file)\n")
	case isBinary(content):
		b.WriteString("(binary content not shown)\n")
	default:
		if truncated {
			b.WriteString(truncatedNote(fi, len(content)) + "\n\n")
		}
		b.Write(content)
	}
	return b.String()
}
