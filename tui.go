package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"noisewarn/config"
	"noisewarn/hotkey"
	"noisewarn/monitor"
	"noisewarn/overlay"
)

const (
	meterWidth     = 50
	thresholdStep  = 5
	windowStep     = 0.5
	volumeStep     = 10
	tuiRefreshRate = 60 * time.Millisecond
)

// tuiController is what the TUI may ask of the application.
type tuiController interface {
	Settings() config.Settings
	ApplyUpdate(u config.Update) (config.Settings, error)
	Start() error
	Stop()
	Preview() error
}

// tuiState collects everything the model renders. Sinks and the terminal
// overlay write it from other goroutines; the model reads it on each tick,
// so nothing ever blocks on the bubbletea event loop.
type tuiState struct {
	mu         sync.Mutex
	snap       monitor.Snapshot
	hasSnap    bool
	monitoring bool
	device     string
	notice     string
	settings   config.Settings

	overlayShown   bool
	overlayOpacity float64
}

func (s *tuiState) Snapshot(snap monitor.Snapshot) {
	s.mu.Lock()
	s.snap, s.hasSnap = snap, true
	s.mu.Unlock()
}

func (s *tuiState) Monitoring(on bool, device string) {
	s.mu.Lock()
	s.monitoring, s.device = on, device
	if !on {
		s.hasSnap = false
	}
	s.mu.Unlock()
}

func (s *tuiState) Notice(text string) {
	s.mu.Lock()
	s.notice = text
	s.mu.Unlock()
}

func (s *tuiState) Settings(st config.Settings) {
	s.mu.Lock()
	s.settings = st
	s.mu.Unlock()
}

type tuiView struct {
	snap           monitor.Snapshot
	hasSnap        bool
	monitoring     bool
	device         string
	notice         string
	settings       config.Settings
	overlayShown   bool
	overlayOpacity float64
}

func (s *tuiState) view() tuiView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tuiView{
		snap:           s.snap,
		hasSnap:        s.hasSnap,
		monitoring:     s.monitoring,
		device:         s.device,
		notice:         s.notice,
		settings:       s.settings,
		overlayShown:   s.overlayShown,
		overlayOpacity: s.overlayOpacity,
	}
}

// terminalOverlay renders the alert overlay as a banner inside the TUI.
type terminalOverlay struct{ s *tuiState }

var _ overlay.Window = terminalOverlay{}

func (t terminalOverlay) Size() overlay.Size { return overlay.Size{Width: meterWidth, Height: 3} }
func (t terminalOverlay) Move(overlay.Point) {}

func (t terminalOverlay) SetOpacity(o float64) {
	t.s.mu.Lock()
	t.s.overlayOpacity = o
	t.s.mu.Unlock()
}

func (t terminalOverlay) Show() {
	t.s.mu.Lock()
	t.s.overlayShown = true
	t.s.mu.Unlock()
}

func (t terminalOverlay) Hide() {
	t.s.mu.Lock()
	t.s.overlayShown = false
	t.s.mu.Unlock()
}

type tickMsg time.Time
type noticeMsg struct{ Text string }

type tuiModel struct {
	ctrl          tuiController
	state         *tuiState
	v             tuiView
	width, height int
}

var (
	tuiProgram *tea.Program
	tuiMu      sync.Mutex
)

func NewTUIProgram(ctrl tuiController, state *tuiState) *tea.Program {
	m := tuiModel{ctrl: ctrl, state: state, v: state.view()}
	return tea.NewProgram(m, tea.WithAltScreen())
}

func tuiTick() tea.Cmd {
	return tea.Tick(tuiRefreshRate, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m tuiModel) Init() tea.Cmd {
	return tuiTick()
}

// apply runs a settings change off the event loop.
func (m tuiModel) apply(u config.Update) tea.Cmd {
	return func() tea.Msg {
		if _, err := m.ctrl.ApplyUpdate(u); err != nil {
			return noticeMsg{Text: err.Error()}
		}
		return noticeMsg{}
	}
}

func (m tuiModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tickMsg:
		m.v = m.state.view()
		return m, tuiTick()

	case noticeMsg:
		m.state.Notice(msg.Text)
		m.v = m.state.view()

	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	}
	return m, nil
}

func (m tuiModel) handleKey(key string) tea.Cmd {
	st := m.v.settings
	switch key {
	case "ctrl+c", "q":
		return tea.Quit
	case "s":
		return func() tea.Msg {
			if err := m.ctrl.Start(); err != nil {
				return noticeMsg{Text: fmt.Sprintf("start: %v", err)}
			}
			return noticeMsg{}
		}
	case "x":
		return func() tea.Msg {
			m.ctrl.Stop()
			return noticeMsg{}
		}
	case "p":
		return func() tea.Msg {
			if err := m.ctrl.Preview(); err != nil {
				return noticeMsg{Text: fmt.Sprintf("preview: %v", err)}
			}
			return noticeMsg{}
		}
	case "up", "k":
		return m.apply(config.Update{Threshold: ptr(min(st.ThresholdPercent+thresholdStep, 100))})
	case "down", "j":
		return m.apply(config.Update{Threshold: ptr(max(st.ThresholdPercent-thresholdStep, 0))})
	case "right", "l":
		return m.apply(config.Update{Window: ptr(min(st.AverageWindowSeconds+windowStep, config.MaxAverageWindowSecs))})
	case "left", "h":
		return m.apply(config.Update{Window: ptr(max(st.AverageWindowSeconds-windowStep, 0))})
	case "+", "=":
		return m.apply(config.Update{Volume: ptr(min(st.WarningVolumePercent+volumeStep, config.MaxVolume))})
	case "-":
		return m.apply(config.Update{Volume: ptr(max(st.WarningVolumePercent-volumeStep, 0))})
	case "m":
		return m.apply(config.Update{Sound: ptr(!st.EnableWarningSound)})
	case "o":
		return m.apply(config.Update{Overlay: ptr(!st.EnableOverlay)})
	case "r":
		return m.apply(config.Update{Repeat: ptr(!st.RepeatWarningSound)})
	case "n":
		return m.apply(config.Update{Monitor: ptr(st.SelectedMonitor + 1)})
	case "0":
		return m.apply(config.Update{Monitor: ptr(0)})
	}
	return nil
}

func ptr[T any](v T) *T { return &v }

// meterCells returns how many of width cells are lit for level and the cell
// holding the threshold marker.
func meterCells(width int, level float64, threshold int) (lit, marker int) {
	lit = int(level / 100 * float64(width))
	lit = min(max(lit, 0), width)
	marker = threshold * width / 100
	marker = min(max(marker, 0), width-1)
	return lit, marker
}

func renderMeter(width int, level float64, threshold int, alerting bool) string {
	lit, marker := meterCells(width, level, threshold)
	fill := lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	if alerting {
		fill = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	}
	track := lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
	line := lipgloss.NewStyle().Foreground(lipgloss.Color("255")).Bold(true)

	var b strings.Builder
	for i := 0; i < width; i++ {
		switch {
		case i == marker:
			b.WriteString(line.Render("│"))
		case i < lit:
			b.WriteString(fill.Render("█"))
		default:
			b.WriteString(track.Render("░"))
		}
	}
	return b.String()
}

// bannerColor dims the overlay banner as it fades.
func bannerColor(opacity float64) lipgloss.Color {
	switch {
	case opacity > 0.66:
		return lipgloss.Color("196")
	case opacity > 0.33:
		return lipgloss.Color("124")
	}
	return lipgloss.Color("52")
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

func (m tuiModel) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	v := m.v
	st := v.settings
	var lines []string

	if v.monitoring {
		status := lipgloss.NewStyle().
			Foreground(lipgloss.Color("42")).
			Bold(true).
			Render("● MONITORING")
		lines = append(lines, status+lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("  mic: "+v.device))
	} else {
		lines = append(lines, lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Render("○ STOPPED"))
	}
	lines = append(lines, "")

	snap := v.snap
	if !v.hasSnap {
		snap = monitor.Snapshot{Threshold: st.ThresholdPercent, Window: st.AverageWindowSeconds}
	}
	level := snap.Level
	if snap.Window > 0 {
		level = snap.Average
	}
	lines = append(lines, renderMeter(meterWidth, level, st.ThresholdPercent, snap.Alerting))

	statusStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("250"))
	if snap.Alerting {
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	}
	lines = append(lines, statusStyle.Render(snap.Status())+
		lipgloss.NewStyle().Foreground(lipgloss.Color("245")).
			Render(fmt.Sprintf("   threshold %d%%", st.ThresholdPercent)))
	lines = append(lines, "")

	soundName := "chime"
	if st.LastWarningSoundPath != "" {
		soundName = st.LastWarningSoundPath
	}
	info := lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	lines = append(lines,
		info.Render(fmt.Sprintf("sound %s  %d%%  (%s)  repeat %s", onOff(st.EnableWarningSound), st.WarningVolumePercent, soundName, onOff(st.RepeatWarningSound))),
		info.Render(fmt.Sprintf("overlay %s  monitor %d  window %gs", onOff(st.EnableOverlay), st.SelectedMonitor, st.AverageWindowSeconds)),
	)

	if v.overlayShown {
		banner := lipgloss.NewStyle().
			Foreground(lipgloss.Color("255")).
			Background(bannerColor(v.overlayOpacity)).
			Bold(true).
			Width(meterWidth).
			Align(lipgloss.Center).
			Padding(1, 0).
			Render("TOO LOUD")
		lines = append(lines, "", banner)
	}

	if v.notice != "" {
		lines = append(lines, "", lipgloss.NewStyle().Foreground(lipgloss.Color("208")).Render("⚠ "+v.notice))
	}

	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239"))
	boldStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("239")).Bold(true)
	lines = append(lines, "",
		boldStyle.Render("s/x")+helpStyle.Render(" start/stop  ")+
			boldStyle.Render("↑/↓")+helpStyle.Render(" threshold  ")+
			boldStyle.Render("←/→")+helpStyle.Render(" window  ")+
			boldStyle.Render("+/-")+helpStyle.Render(" volume"),
		boldStyle.Render("m")+helpStyle.Render(" sound  ")+
			boldStyle.Render("o")+helpStyle.Render(" overlay  ")+
			boldStyle.Render("r")+helpStyle.Render(" repeat  ")+
			boldStyle.Render("n")+helpStyle.Render(" monitor  ")+
			boldStyle.Render("p")+helpStyle.Render(" preview  ")+
			boldStyle.Render("q")+helpStyle.Render(" quit"),
		boldStyle.Render(hotkey.Combo)+helpStyle.Render(" toggles monitoring, hold to preview"),
		helpStyle.Render("noisewarn "+version),
	)

	return lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		PaddingLeft(1).
		Render(strings.Join(lines, "\n"))
}
