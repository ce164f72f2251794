package tui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"copyverify/internal/domain"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Phase represents the current state of the TUI
type Phase int

const (
	PhaseScanning Phase = iota
	PhaseCopying
	PhaseVerifying
	PhaseDone
	PhaseError
)

// Messages for the TUI
type (
	ScanProgressMsg struct {
		Files       int
		Directories int
		Size        int64
	}
	ScanDoneMsg struct {
		Stats domain.ScanStatistics
	}
	CopyProgressMsg struct {
		Event domain.ProgressEvent
	}
	CopyDoneMsg struct {
		Stats domain.JobStats
	}
	VerifyProgressMsg struct {
		Current int
		Total   int
		Path    string
	}
	VerifyDoneMsg struct {
		Result domain.VerificationResult
	}
	ErrorMsg struct {
		Err error
	}
	tickMsg time.Time
)

// Controller is the part of a running job the TUI can steer.
type Controller interface {
	Toggle() bool
	Cancel()
}

// Config for the TUI
type Config struct {
	Source      string
	Destination string
	Verify      bool
	Control     Controller
	// Events carries phase messages from the job goroutine; it is closed when the job ends.
	Events <-chan tea.Msg
	// Progress carries per-chunk copy events.
	Progress <-chan domain.ProgressEvent
}

// Model is the main TUI model
type Model struct {
	config   Config
	Phase    Phase
	spinner  spinner.Model
	progress progress.Model

	Scan         domain.ScanStatistics
	Stats        domain.JobStats
	Verification *domain.VerificationResult
	Err          error

	scanFiles int
	scanSize  int64

	copyStarted time.Time
	fileBytes   map[int]int64
	finished    map[int]bool
	bytesDone   int64
	filesDone   int
	currentFile string

	verifyCurrent int
	verifyTotal   int

	Paused    bool
	Cancelled bool
	Quitting  bool
	width     int
}

// NewModel creates a new TUI model
func NewModel(cfg Config) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle

	p := progress.New(
		progress.WithDefaultGradient(),
		progress.WithWidth(50),
		progress.WithoutPercentage(),
	)

	return Model{
		config:    cfg,
		Phase:     PhaseScanning,
		spinner:   s,
		progress:  p,
		fileBytes: map[int]int64{},
		finished:  map[int]bool{},
		width:     80,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd(), waitForEvent(m.config.Events), waitForProgress(m.config.Progress))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = min(msg.Width-20, 60)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.Phase != PhaseDone && m.Phase != PhaseError && m.config.Control != nil {
				m.config.Control.Cancel()
				m.Cancelled = true
			}
			m.Quitting = true
			return m, tea.Quit
		case "p", " ":
			if m.Phase == PhaseCopying && m.config.Control != nil {
				m.Paused = m.config.Control.Toggle()
			}
		case "enter":
			if m.Phase == PhaseDone || m.Phase == PhaseError {
				return m, tea.Quit
			}
		}
		return m, nil

	case ScanProgressMsg:
		m.scanFiles = msg.Files
		m.scanSize = msg.Size
		return m, waitForEvent(m.config.Events)

	case ScanDoneMsg:
		m.Scan = msg.Stats
		m.Phase = PhaseCopying
		m.copyStarted = time.Now()
		return m, waitForEvent(m.config.Events)

	case CopyProgressMsg:
		m.applyProgress(msg.Event)
		return m, waitForProgress(m.config.Progress)

	case CopyDoneMsg:
		m.Stats = msg.Stats
		if m.config.Verify && !msg.Stats.Cancelled {
			m.Phase = PhaseVerifying
		} else {
			m.Phase = PhaseDone
		}
		return m, waitForEvent(m.config.Events)

	case VerifyProgressMsg:
		m.verifyCurrent = msg.Current
		m.verifyTotal = msg.Total
		m.currentFile = msg.Path
		return m, waitForEvent(m.config.Events)

	case VerifyDoneMsg:
		result := msg.Result
		m.Verification = &result
		m.Phase = PhaseDone
		return m, waitForEvent(m.config.Events)

	case ErrorMsg:
		m.Phase = PhaseError
		m.Err = msg.Err
		return m, nil

	case spinner.TickMsg:
		if m.active() {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		return m, cmd

	case tickMsg:
		if m.active() {
			return m, tea.Batch(m.progress.SetPercent(m.percent()), tickCmd())
		}
	}

	return m, nil
}

func (m Model) active() bool {
	return m.Phase == PhaseScanning || m.Phase == PhaseCopying || m.Phase == PhaseVerifying
}

// applyProgress folds one per-file event into the job totals. A retried file
// restarts at zero, which shrinks the running byte count again.
func (m *Model) applyProgress(e domain.ProgressEvent) {
	if m.finished[e.Index] {
		return
	}
	m.bytesDone += e.Copied - m.fileBytes[e.Index]
	m.fileBytes[e.Index] = e.Copied
	m.currentFile = e.Path
	if e.Done() {
		m.finished[e.Index] = true
		m.filesDone++
		delete(m.fileBytes, e.Index)
	}
}

func (m Model) percent() float64 {
	switch m.Phase {
	case PhaseCopying:
		if m.Scan.TotalSize > 0 {
			return clamp(float64(m.bytesDone) / float64(m.Scan.TotalSize))
		}
		if m.Scan.TotalFiles > 0 {
			return clamp(float64(m.filesDone) / float64(m.Scan.TotalFiles))
		}
	case PhaseVerifying:
		if m.verifyTotal > 0 {
			return clamp(float64(m.verifyCurrent) / float64(m.verifyTotal))
		}
	}
	return 0
}

// Speed returns the average copy rate in bytes per second.
func (m Model) Speed(now time.Time) float64 {
	elapsed := now.Sub(m.copyStarted).Seconds()
	if m.copyStarted.IsZero() || elapsed <= 0 {
		return 0
	}
	return float64(m.bytesDone) / elapsed
}

// ETA estimates the time left from the average speed so far.
func (m Model) ETA(now time.Time) time.Duration {
	speed := m.Speed(now)
	remaining := m.Scan.TotalSize - m.bytesDone
	if speed <= 0 || remaining <= 0 {
		return 0
	}
	return time.Duration(float64(remaining) / speed * float64(time.Second)).Round(time.Second)
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func waitForEvent(events <-chan tea.Msg) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		msg, ok := <-events
		if !ok {
			return nil
		}
		return msg
	}
}

func waitForProgress(events <-chan domain.ProgressEvent) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		e, ok := <-events
		if !ok {
			return nil
		}
		return CopyProgressMsg{Event: e}
	}
}

func (m Model) View() string {
	if m.Quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")

	switch m.Phase {
	case PhaseScanning:
		b.WriteString(m.renderScanning())
	case PhaseCopying:
		b.WriteString(m.renderCopying())
	case PhaseVerifying:
		b.WriteString(m.renderVerifying())
	case PhaseDone:
		b.WriteString(m.renderDone())
	case PhaseError:
		b.WriteString(m.renderError())
	}

	b.WriteString("\n")
	b.WriteString(m.renderHelp())

	return b.String()
}

func (m Model) renderHeader() string {
	title := titleStyle.Render("Copy & Verify")
	subtitle := subtitleStyle.Render("Byte-for-byte copies you can trust")

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		subtitle,
		"",
		dimStyle.Render(fmt.Sprintf("%s Source: %s", iconFolder, shortenPath(m.config.Source))),
		dimStyle.Render(fmt.Sprintf("%s Target: %s", iconFolder, shortenPath(m.config.Destination))),
	)
}

func (m Model) renderScanning() string {
	if m.scanFiles == 0 {
		return fmt.Sprintf("%s Scanning...", m.spinner.View())
	}
	return fmt.Sprintf("%s Scanning...\n\n  %s %s",
		m.spinner.View(),
		countStyle.Render(fmt.Sprintf("%d files", m.scanFiles)),
		dimStyle.Render(domain.FormatSize(m.scanSize)),
	)
}

func (m Model) renderCopying() string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render("Copying Files"))
	b.WriteString("\n\n")

	status := fmt.Sprintf("%s Copying...", m.spinner.View())
	if m.Paused {
		status = warningStyle.Render(iconPaused + " Paused")
	}
	b.WriteString("  " + status + "\n\n")
	b.WriteString(fmt.Sprintf("  %s\n", m.progress.View()))

	now := time.Now()
	b.WriteString(fmt.Sprintf("  %s %s\n",
		countStyle.Render(fmt.Sprintf("%d/%d files", m.filesDone, m.Scan.TotalFiles)),
		dimStyle.Render(fmt.Sprintf("%s of %s (%.0f%%)",
			domain.FormatSize(m.bytesDone), domain.FormatSize(m.Scan.TotalSize), m.percent()*100)),
	))
	b.WriteString(fmt.Sprintf("  %s\n", dimStyle.Render(fmt.Sprintf("%s/s, ETA %s",
		domain.FormatSize(int64(m.Speed(now))), m.ETA(now)))))

	if m.currentFile != "" {
		b.WriteString(fmt.Sprintf("\n  %s %s\n", iconArrow, fileNameStyle.Render(m.currentFile)))
	}
	return b.String()
}

func (m Model) renderVerifying() string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render("Verifying Copies"))
	b.WriteString("\n\n")
	b.WriteString(fmt.Sprintf("  %s Hashing...\n\n", m.spinner.View()))
	b.WriteString(fmt.Sprintf("  %s\n", m.progress.View()))
	b.WriteString(fmt.Sprintf("  %s\n", countStyle.Render(fmt.Sprintf("%d/%d files", m.verifyCurrent, m.verifyTotal))))
	if m.currentFile != "" {
		b.WriteString(fmt.Sprintf("\n  %s %s\n", iconArrow, fileNameStyle.Render(m.currentFile)))
	}
	return b.String()
}

func (m Model) renderDone() string {
	var b strings.Builder

	b.WriteString(sectionStyle.Render("Summary"))
	b.WriteString("\n\n")

	s := m.Stats
	switch {
	case s.Cancelled:
		b.WriteString("  " + warningStyle.Render(iconWarning+" Copy cancelled") + "\n\n")
	case s.FailedFiles > 0:
		b.WriteString("  " + errorStyle.Render(fmt.Sprintf("%s %d files failed", iconError, s.FailedFiles)) + "\n\n")
	default:
		b.WriteString("  " + successStyle.Render(iconSuccess+" Copy completed successfully!") + "\n\n")
	}

	b.WriteString(statLine("Files copied:", fmt.Sprintf("%d/%d", s.CopiedFiles, s.TotalFiles)))
	b.WriteString(statLine("Size:", domain.FormatSize(s.TotalSize)))
	b.WriteString(statLine("Elapsed:", s.Elapsed().Round(time.Second).String()))
	if s.FailedFiles > 0 {
		b.WriteString(statLine("Failed:", fmt.Sprintf("%d", s.FailedFiles)))
	}

	if v := m.Verification; v != nil {
		b.WriteString("\n")
		b.WriteString(statLine("Verified:", fmt.Sprintf("%d/%d", v.Verified, v.Total)))
		if v.Corrupted > 0 {
			b.WriteString(fmt.Sprintf("  %s  %s\n", statLabelStyle.Render("Corrupted:"), errorStyle.Render(fmt.Sprintf("%d", v.Corrupted))))
			for i, mismatch := range v.CorruptedList {
				if i >= 4 {
					b.WriteString(fmt.Sprintf("  ... and %d more\n", len(v.CorruptedList)-4))
					break
				}
				b.WriteString(fmt.Sprintf("  %s %s %s\n", errorStyle.Render(iconError), fileNameStyle.Render(mismatch.Path), dimStyle.Render(mismatch.Reason)))
			}
		}
	}
	return b.String()
}

func statLine(label, value string) string {
	return fmt.Sprintf("  %s  %s\n", statLabelStyle.Render(label), statValueStyle.Render(value))
}

func (m Model) renderError() string {
	icon := errorStyle.Render(iconError)
	msg := errorStyle.Render(fmt.Sprintf("Error: %s", m.Err.Error()))

	return highlightBoxStyle.
		BorderForeground(errorColor).
		Render(fmt.Sprintf("%s %s", icon, msg))
}

func (m Model) renderHelp() string {
	var help string
	switch m.Phase {
	case PhaseScanning:
		help = "Press q to cancel"
	case PhaseCopying:
		help = "p to pause/resume • q to cancel"
	case PhaseVerifying:
		help = "Press q to cancel"
	case PhaseDone:
		help = "Press Enter to exit"
	case PhaseError:
		help = "Press Enter or q to exit"
	}
	return helpStyle.Render(help)
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// shortenPath replaces the home directory prefix with ~ for display
func shortenPath(path string) string {
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if strings.HasPrefix(path, home) {
		return "~" + path[len(home):]
	}
	return path
}
