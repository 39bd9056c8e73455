package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"beatscope/internal/history"
	"beatscope/internal/player"
	"beatscope/internal/waveform"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle  = lipgloss.NewStyle().Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	subtleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("78"))
	cardStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 2)
)

// View implements tea.Model.
func (m Model) View() string {
	if m.showHistory {
		return m.historyView()
	}
	switch m.phase {
	case phaseAnalyzing:
		return m.analyzingView()
	case phaseResults:
		return m.resultsView()
	default:
		return m.intakeView()
	}
}

func (m Model) header() string {
	badge := subtleStyle.Render("service: checking...")
	if m.healthKnown {
		if m.healthy {
			badge = okStyle.Render("service: up")
		} else {
			badge = errorStyle.Render("service: unreachable")
		}
	}
	return titleStyle.Render("beatscope") + "  " + badge + "\n"
}

func (m Model) intakeView() string {
	var b strings.Builder
	b.WriteString("\n" + m.header() + "\n")
	b.WriteString("Analyze a track: " + subtleStyle.Render("MP3 or WAV, up to 25 MiB") + "\n\n")
	b.WriteString(m.input.View() + "\n\n")
	if m.errText != "" {
		b.WriteString(errorStyle.Render(m.errText) + "\n\n")
	}

	if entries := m.hist.List(); len(entries) > 0 {
		b.WriteString(labelStyle.Render("Recent") + "\n")
		for i, e := range entries {
			if i >= 5 {
				break
			}
			b.WriteString(subtleStyle.Render(fmt.Sprintf("  %s  %.1f BPM  %s", e.Filename, e.BPM, e.Key)) + "\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(subtleStyle.Render("enter analyze · tab history · esc quit") + "\n")
	return b.String()
}

func (m Model) analyzingView() string {
	elapsed := time.Since(m.analyzeStart).Round(time.Second)
	var b strings.Builder
	b.WriteString("\n" + m.header() + "\n")
	b.WriteString(fmt.Sprintf("Analyzing %s %s\n\n",
		valueStyle.Render(m.filename),
		subtleStyle.Render(fmt.Sprintf("(%s)", elapsed))))
	b.WriteString(m.renderWaveform(6) + "\n")
	b.WriteString(subtleStyle.Render("esc cancel · q quit") + "\n")
	return b.String()
}

func (m Model) resultsView() string {
	res := m.result
	if res == nil {
		return m.intakeView()
	}

	var b strings.Builder
	b.WriteString("\n" + m.header() + "\n")

	name := m.filename
	if res.Title != "" {
		name = res.Title
		if res.Artist != "" {
			name = res.Artist + " - " + res.Title
		}
	}
	b.WriteString(valueStyle.Render(name) + "\n\n")

	dur := res.DurationFormatted
	if dur == "" {
		dur = player.FormatTime(res.Duration)
	}
	cards := lipgloss.JoinHorizontal(lipgloss.Top,
		metricCard("BPM", fmt.Sprintf("%.1f", res.BPM)),
		metricCard("Key", fmt.Sprintf("%s (%.0f%%)", res.Key, res.KeyConfidence)),
		metricCard("Loudness", fmt.Sprintf("%.1f LUFS", res.Loudness)),
		metricCard("Length", dur),
	)
	b.WriteString(cards + "\n\n")

	b.WriteString(m.renderWaveform(6) + "\n")
	b.WriteString(waveform.RenderPeaks(m.snapshot, m.playback.PositionFraction(), m.vizWidth()) + "\n")
	b.WriteString(m.transportLine() + "\n\n")
	b.WriteString(m.help.View(m.keys) + "\n")
	return b.String()
}

func metricCard(label, value string) string {
	return cardStyle.Render(labelStyle.Render(label) + "\n" + valueStyle.Render(value))
}

func (m Model) transportLine() string {
	icon := "▶"
	if m.playback.Playing() {
		icon = "⏸"
	}
	pos := player.FormatTime(m.playback.Position().Seconds())
	total := player.FormatTime(m.playback.Duration().Seconds())

	vol := fmt.Sprintf("vol %2.0f%%", m.playback.Volume()*100)
	if m.playback.Muted() {
		vol = "muted"
	}
	return fmt.Sprintf("%s %s %s / %s  %s",
		icon,
		m.seekbar.ViewAs(m.playback.PositionFraction()),
		pos, total,
		subtleStyle.Render(vol))
}

func (m Model) renderWaveform(height int) string {
	rows := m.renderer.Render(m.snapshot, m.playback.Position(), m.vizWidth(), height)
	return strings.Join(rows, "\n")
}

func (m Model) vizWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	if w > 120 {
		w = 120
	}
	return w
}

func (m Model) historyView() string {
	var b strings.Builder
	b.WriteString("\n" + m.header() + "\n")
	b.WriteString(titleStyle.Render("History") + subtleStyle.Render(fmt.Sprintf("  (last %d analyses)", history.Cap)) + "\n\n")

	entries := m.hist.List()
	if len(entries) == 0 {
		b.WriteString(subtleStyle.Render("  nothing here yet") + "\n")
	}
	for _, e := range entries {
		when := time.UnixMilli(e.Timestamp).Format("Jan 02 15:04")
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			valueStyle.Render(e.Filename),
			subtleStyle.Render(when)))
		b.WriteString(subtleStyle.Render(fmt.Sprintf("    %.1f BPM · %s · %.1f LUFS · %s",
			e.BPM, e.Key, e.Loudness, e.DurationFormatted)) + "\n")
	}

	b.WriteString("\n" + subtleStyle.Render("c clear · esc back · q quit") + "\n")
	return b.String()
}
