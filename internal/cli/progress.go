package cli

import (
	"fmt"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
)

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// bytesMsg reports newly transferred bytes.
type bytesMsg int64

// finishedMsg ends the display.
type finishedMsg struct {
	err error
}

// progressModel is the bubbletea model for a running download. abort is
// called when the user quits and must stop the transfers.
type progressModel struct {
	label    string
	total    int64
	received int64
	progress progress.Model
	theme    Theme
	abort    func()
	done     bool
	aborted  bool
	err      error
}

func newProgressModel(label string, total int64, abort func()) progressModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return progressModel{
		label:    label,
		total:    total,
		progress: prog,
		theme:    defaultTheme,
		abort:    abort,
	}
}

// Init returns the initial command.
func (m progressModel) Init() tea.Cmd {
	return m.progress.Init()
}

// Update handles messages and returns the updated model.
func (m progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.abort != nil {
				m.abort()
			}
			m.aborted = true
			m.done = true
			return m, tea.Quit
		}

	case bytesMsg:
		m.received += int64(msg)
		return m, nil

	case finishedMsg:
		m.done = true
		m.err = msg.err
		return m, tea.Quit

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m progressModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

func (m progressModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	status := m.theme.statusStyle().Render(fmt.Sprintf("[%s]", m.label))

	// The listed sizes can be stale, so the bar is capped at 100%.
	var pct float64
	if m.total > 0 {
		pct = min(float64(m.received)/float64(m.total), 1)
	}
	counts := fmt.Sprintf("%s/%s", humanize.Bytes(uint64(m.received)), humanize.Bytes(uint64(m.total)))

	hint := m.theme.hintStyle().Render("Press Ctrl+C or q to abort")

	return fmt.Sprintf("%s %s %s\n%s\n", status, m.progress.ViewAs(pct), counts, hint)
}

func (m progressModel) finalView() string {
	if m.aborted {
		return m.theme.hintStyle().Render(fmt.Sprintf("Download aborted after %s\n", humanize.Bytes(uint64(m.received))))
	}
	if m.err != nil {
		return m.theme.errorStyle().Render(fmt.Sprintf("✗ Download failed: %s\n", m.err))
	}
	return m.theme.completedStyle().Render(fmt.Sprintf("✓ Downloaded %s\n", humanize.Bytes(uint64(m.received))))
}

// progressReporter drives a progressModel from download callbacks. Add may
// be called from several goroutines.
type progressReporter struct {
	label   string
	abort   func()
	program *tea.Program
	done    chan struct{}
}

// newProgressReporter returns a reporter that calls abort when the user
// quits the progress display.
func newProgressReporter(label string, abort func()) *progressReporter {
	return &progressReporter{label: label, abort: abort}
}

// Start launches the progress UI.
func (r *progressReporter) Start(total int64) {
	r.program = tea.NewProgram(newProgressModel(r.label, total, r.abort))
	r.done = make(chan struct{})
	go func() {
		defer close(r.done)
		if _, err := r.program.Run(); err != nil {
			logger.Debug("progress UI error", "error", err)
		}
	}()
}

// Add records transferred bytes.
func (r *progressReporter) Add(n int64) {
	if r.program == nil {
		return
	}
	select {
	case <-r.done:
	default:
		r.program.Send(bytesMsg(n))
	}
}

// Finish stops the UI and waits for it to restore the terminal.
func (r *progressReporter) Finish(err error) {
	if r.program == nil {
		return
	}
	select {
	case <-r.done:
		return
	default:
	}
	r.program.Send(finishedMsg{err: err})
	<-r.done
}
