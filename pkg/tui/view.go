package tui

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"

	"github.com/Southclaws/fault/fmsg"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/multienv/pkg/editor"
	"github.com/james-see/multienv/pkg/envelope"
)

// Acid-inspired color scheme
var (
	acidGreen  = lipgloss.Color("#39FF14")
	acidYellow = lipgloss.Color("#FFFF00")
	silverGray = lipgloss.Color("#C0C0C0")
	darkGray   = lipgloss.Color("#333333")
	curveColor = lipgloss.Color("#F53A00")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(acidGreen).
			Background(darkGray).
			Padding(0, 2)

	infoStyle = lipgloss.NewStyle().
			Foreground(silverGray)

	curveStyle = lipgloss.NewStyle().
			Foreground(curveColor)

	regionStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("#003838"))

	playheadStyle = lipgloss.NewStyle().
			Foreground(acidGreen)

	gridStyle = lipgloss.NewStyle().
			Foreground(darkGray)

	selectedStyle = lipgloss.NewStyle().
			Foreground(acidGreen).
			Bold(true)

	menuStyle = lipgloss.NewStyle().
			Foreground(silverGray)

	statusStyle = lipgloss.NewStyle().
			Foreground(acidYellow)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)
)

// View renders the TUI
func (m Model) View() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" MULTIENV "))
	s.WriteString(" ")
	s.WriteString(infoStyle.Render(filepath.Base(m.filename)))
	s.WriteString("\n")
	s.WriteString(m.viewInfo())
	s.WriteString("\n")

	switch m.state {
	case StateEditor:
		if m.ed.DisplayMode() == editor.DisplaySliders {
			s.WriteString(m.viewSliders())
		} else {
			s.WriteString(m.viewCurve())
		}
		s.WriteString("\n")
		s.WriteString(m.help.View(editorKeys{m.keys}))
	case StateDetail:
		s.WriteString(m.viewDetail())
		s.WriteString("\n")
		s.WriteString(m.help.View(detailKeys{m.keys}))
	case StateFilePicker:
		s.WriteString(m.filePicker.View())
		s.WriteString("\n")
		s.WriteString(infoStyle.Render("esc: back"))
	}

	if m.err != nil {
		s.WriteString("\n")
		s.WriteString(errorStyle.Render("✗ " + errorText(m.err)))
	} else if m.status != "" {
		s.WriteString("\n")
		s.WriteString(statusStyle.Render(m.status))
	}
	return s.String()
}

// errorText prefers the user facing description attached with fmsg
func errorText(err error) string {
	if issue := fmsg.GetIssue(err); issue != "" {
		return issue + ": " + err.Error()
	}
	return err.Error()
}

func (m Model) viewInfo() string {
	now := m.now()
	level := m.live.Value(now)
	note := "off"
	if m.noteOn {
		note = "on"
	}
	return infoStyle.Render(fmt.Sprintf("note %-3s level %.2f %s  view %.0f ms  mode %s  %s",
		note, level, meter(level, 10), m.ed.ViewLength(), m.ed.Mode(), describe(m.def.Snapshot())))
}

func meter(v float64, width int) string {
	n := int(math.Round(math.Max(0, math.Min(1, v)) * float64(width)))
	return "[" + strings.Repeat("▮", n) + strings.Repeat(" ", width-n) + "]"
}

func describe(s envelope.Snapshot) string {
	sustain := "none"
	if s.HasSustain() {
		sustain = fmt.Sprint(s.SustainStage)
	}
	maxSustain := "∞"
	if s.MaxSustain != envelope.Indefinite {
		maxSustain = fmt.Sprintf("%.0fms", s.MaxSustain)
	}
	return fmt.Sprintf("%d stages  sustain %s  max %s", len(s.Stages), sustain, maxSustain)
}

// region returns the columns highlighted for the current adjust mode
func (m Model) region(col int) bool {
	x := (float64(col) + 0.5) * cellWidth
	w := float64(m.cols) * cellWidth
	switch m.ed.Mode() {
	case editor.AdjustAttack:
		return x < editor.BandWidth
	case editor.AdjustRelease:
		return x > w-editor.BandWidth
	case editor.AdjustDecaySustain:
		return x >= editor.BandWidth && x <= w-editor.BandWidth
	case editor.AdjustAttackAR:
		return x < w/2
	case editor.AdjustReleaseAR:
		return x >= w/2
	case editor.AdjustDetailEditor:
		return x >= w-editor.CornerSize
	}
	return false
}

func (m Model) viewCurve() string {
	preview := m.ed.Preview(m.cols)
	playCol := -1
	if t, ok := m.ed.Playhead(m.live, m.now()); ok {
		playCol = int(t / preview.ViewLength * float64(m.cols))
	}

	level := make([]int, m.cols)
	for c, v := range preview.Values {
		v = math.Max(0, math.Min(1, v))
		level[c] = int(math.Round((1 - v) * float64(m.rows-1)))
	}

	var s strings.Builder
	for r := 0; r < m.rows; r++ {
		s.WriteString(strings.Repeat(" ", plotLeft))
		for c := 0; c < m.cols; c++ {
			ch, style := "·", gridStyle
			switch {
			case level[c] == r:
				ch, style = "•", curveStyle
			case level[c] < r:
				ch, style = "░", curveStyle
			case c == playCol:
				ch, style = "│", playheadStyle
			}
			if r == 0 && c == m.cols-1 {
				ch, style = "◆", curveStyle
			}
			if m.region(c) {
				style = style.Inherit(regionStyle)
			}
			s.WriteString(style.Render(ch))
		}
		s.WriteString("\n")
	}
	return s.String()
}

func (m Model) viewSliders() string {
	names := []string{"A", "D", "S", "R"}
	values := m.ed.SliderValues()
	rows := m.ed.SliderRows()

	rowsPer := max(m.rows/4, 1)
	var s strings.Builder
	for i := 0; i < 4; i++ {
		line := ""
		if rows[i] {
			frac := values[i] / m.ed.ViewLength()
			label := fmt.Sprintf("%.0f ms", values[i])
			if i == 2 {
				frac = values[i]
				label = fmt.Sprintf("%.2f", values[i])
			} else {
				frac = math.Sqrt(math.Max(0, frac))
			}
			filled := int(math.Round(math.Min(1, frac) * float64(m.cols-12)))
			bar := strings.Repeat("█", filled) + strings.Repeat("─", max(m.cols-12-filled, 0))
			style := menuStyle
			if m.ed.Mode() == editor.AdjustSlider && m.ed.Slider() == i {
				style = selectedStyle
			}
			line = style.Render(fmt.Sprintf("%s %s %s", names[i], bar, label))
		}
		for r := 0; r < rowsPer; r++ {
			s.WriteString(strings.Repeat(" ", plotLeft))
			if r == 0 {
				s.WriteString(line)
			}
			s.WriteString("\n")
		}
	}
	return s.String()
}

func (m Model) viewDetail() string {
	snap := m.def.Snapshot()
	var s strings.Builder
	s.WriteString(titleStyle.Render(" STAGES "))
	s.WriteString("\n\n")
	if len(snap.Stages) == 0 {
		s.WriteString(menuStyle.Render("  no stages, press a to add one"))
		s.WriteString("\n")
	}
	for i, st := range snap.Stages {
		dur := fmt.Sprintf("%8.1f ms", st.Duration)
		if math.IsInf(st.Duration, 1) {
			dur = fmt.Sprintf("%11s", "hold")
		}
		line := fmt.Sprintf("%2d  target %.2f  %s", i, st.Target, dur)
		if i == snap.SustainStage {
			line += "  sustain"
		}
		if i == m.cursor {
			s.WriteString(selectedStyle.Render("▸ " + line))
		} else {
			s.WriteString(menuStyle.Render("  " + line))
		}
		s.WriteString("\n")
	}
	return s.String()
}
