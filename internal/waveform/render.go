package waveform

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

var (
	barStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	dimStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	peakRunes = []rune(" ▁▂▃▄▅▆▇█")
)

// Render draws the frequency bars for the window around pos as height rows
// of width columns, top row first. With no snapshot it returns blank rows, so
// the panel keeps its footprint while nothing is loaded.
func (r *Renderer) Render(snap *Snapshot, pos time.Duration, width, height int) []string {
	if width <= 0 || height <= 0 {
		return nil
	}
	bins := r.Bins(snap, pos, width)

	rows := make([]string, height)
	var b strings.Builder
	for row := 0; row < height; row++ {
		b.Reset()
		// Row 0 is the top; a column is filled when its bar reaches it.
		threshold := float64(height-row) / float64(height)
		for _, v := range bins {
			if v >= threshold {
				b.WriteRune('█')
			} else if v >= threshold-0.5/float64(height) {
				b.WriteRune('▄')
			} else {
				b.WriteByte(' ')
			}
		}
		rows[row] = barStyle.Render(b.String())
	}
	return rows
}

// RenderPeaks draws the whole-track amplitude overview as a single line,
// with everything before the playback position highlighted.
func RenderPeaks(snap *Snapshot, fraction float64, width int) string {
	peaks := Peaks(snap, width)
	played := int(fraction * float64(width))

	var done, rest strings.Builder
	for i, p := range peaks {
		idx := int(p * float64(len(peakRunes)-1))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(peakRunes) {
			idx = len(peakRunes) - 1
		}
		if i < played {
			done.WriteRune(peakRunes[idx])
		} else {
			rest.WriteRune(peakRunes[idx])
		}
	}
	return barStyle.Render(done.String()) + dimStyle.Render(rest.String())
}
