// Package player owns the single decoded playback resource for the
// currently accepted file and its transport state.
package player

import (
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
)

var (
	speakerOnce sync.Once
	speakerRate beep.SampleRate
	speakerErr  error
)

// track bundles all resources for one decoded file.
type track struct {
	file     io.Closer
	streamer beep.StreamSeekCloser
	format   beep.Format
	closed   bool
}

// close releases the decoded resource. Safe to call more than once; the
// release happens exactly once.
func (t *track) close() {
	if t == nil || t.closed {
		return
	}
	t.closed = true
	if t.streamer != nil {
		if err := t.streamer.Close(); err != nil {
			log.Printf("close streamer: %v", err)
		}
	}
	if t.file != nil {
		if err := t.file.Close(); err != nil {
			log.Printf("close file: %v", err)
		}
	}
}

// Player handles audio playback for one file at a time.
type Player struct {
	mu sync.Mutex

	cur  *track
	ctrl *beep.Ctrl
	vol  *effects.Volume

	volume float64 // linear, 0.0-1.0
	muted  bool
}

// New creates a Player with the given initial volume.
func New(volume float64) *Player {
	return &Player{volume: clamp01(volume)}
}

// Load replaces the current playback session with a freshly decoded one for
// path. The previous decoded resource is released on every path out of here,
// including decode failure. Playback starts paused.
func (p *Player) Load(path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open %s: %w", path, err)
	}

	streamer, format, err := decode(f, path)
	if err != nil {
		f.Close()
		return err
	}
	t := &track{file: f, streamer: streamer, format: format}

	speakerOnce.Do(func() {
		speakerRate = format.SampleRate
		speakerErr = speaker.Init(speakerRate, speakerRate.N(100*time.Millisecond))
	})
	if speakerErr != nil {
		t.close()
		return fmt.Errorf("init speaker: %w", speakerErr)
	}

	var src beep.Streamer = streamer
	if format.SampleRate != speakerRate {
		src = beep.Resample(4, format.SampleRate, speakerRate, streamer)
	}

	ctrl := &beep.Ctrl{Streamer: src, Paused: true}
	vol := &effects.Volume{
		Streamer: ctrl,
		Base:     2,
		Volume:   volumeExponent(p.volume),
		Silent:   p.muted || p.volume == 0,
	}

	length := format.SampleRate.D(streamer.Len())

	p.cur = t
	p.ctrl = ctrl
	p.vol = vol
	speaker.Play(vol)

	log.Printf("loaded %s (%d Hz, %s)", filepath.Base(path), format.SampleRate, FormatTime(length.Seconds()))
	return nil
}

func decode(f *os.File, path string) (beep.StreamSeekCloser, beep.Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		s, format, err := mp3.Decode(f)
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("decode mp3 %s: %w", path, err)
		}
		return s, format, nil
	case ".wav":
		s, format, err := wav.Decode(f)
		if err != nil {
			return nil, beep.Format{}, fmt.Errorf("decode wav %s: %w", path, err)
		}
		return s, format, nil
	default:
		return nil, beep.Format{}, fmt.Errorf("no decoder for %s", path)
	}
}

// stopLocked silences the speaker and releases the current track.
// Caller holds p.mu.
func (p *Player) stopLocked() {
	if p.cur == nil {
		return
	}
	speaker.Clear()
	p.cur.close()
	p.cur = nil
	p.ctrl = nil
	p.vol = nil
}

// Close releases the current decoded resource. Idempotent.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
	return nil
}

// Play resumes playback.
func (p *Player) Play() { p.setPaused(false) }

// Pause suspends playback.
func (p *Player) Pause() { p.setPaused(true) }

// Toggle flips between playing and paused.
func (p *Player) Toggle() {
	p.mu.Lock()
	ctrl := p.ctrl
	p.mu.Unlock()
	if ctrl == nil {
		return
	}
	speaker.Lock()
	ctrl.Paused = !ctrl.Paused
	speaker.Unlock()
}

func (p *Player) setPaused(paused bool) {
	p.mu.Lock()
	ctrl := p.ctrl
	p.mu.Unlock()
	if ctrl == nil {
		return
	}
	speaker.Lock()
	ctrl.Paused = paused
	speaker.Unlock()
}

// Playing reports whether the transport is currently running.
func (p *Player) Playing() bool {
	p.mu.Lock()
	ctrl := p.ctrl
	p.mu.Unlock()
	if ctrl == nil {
		return false
	}
	speaker.Lock()
	defer speaker.Unlock()
	return !ctrl.Paused
}

// Seek jumps to fraction of the track's length. Fractions outside [0,1]
// clamp; the resulting position always satisfies 0 <= pos <= duration.
func (p *Player) Seek(fraction float64) {
	p.mu.Lock()
	cur := p.cur
	p.mu.Unlock()
	if cur == nil {
		return
	}
	speaker.Lock()
	defer speaker.Unlock()
	if err := cur.streamer.Seek(targetSample(fraction, cur.streamer.Len())); err != nil {
		log.Printf("seek: %v", err)
	}
}

// targetSample converts a seek fraction into a sample offset, clamped to the
// streamer's valid range.
func targetSample(fraction float64, length int) int {
	n := int(clamp01(fraction) * float64(length))
	if n < 0 {
		n = 0
	}
	if n > length {
		n = length
	}
	return n
}

// Position returns the current playback position.
func (p *Player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		return 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	return p.cur.format.SampleRate.D(p.cur.streamer.Position())
}

// Duration returns the track's total length, 0 when nothing is loaded.
func (p *Player) Duration() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cur == nil {
		return 0
	}
	speaker.Lock()
	defer speaker.Unlock()
	return p.cur.format.SampleRate.D(p.cur.streamer.Len())
}

// PositionFraction returns position/duration in [0,1].
func (p *Player) PositionFraction() float64 {
	d := p.Duration()
	if d <= 0 {
		return 0
	}
	f := float64(p.Position()) / float64(d)
	return clamp01(f)
}

// SetVolume sets the linear volume in [0,1] and applies it to the transport.
func (p *Player) SetVolume(v float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.volume = clamp01(v)
	p.applyVolumeLocked()
}

// Volume returns the linear volume.
func (p *Player) Volume() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.volume
}

// ToggleMute flips the mute flag without touching the stored volume.
func (p *Player) ToggleMute() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.muted = !p.muted
	p.applyVolumeLocked()
}

// Muted reports the mute flag.
func (p *Player) Muted() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.muted
}

func (p *Player) applyVolumeLocked() {
	if p.vol == nil {
		return
	}
	speaker.Lock()
	p.vol.Volume = volumeExponent(p.volume)
	p.vol.Silent = p.muted || p.volume == 0
	speaker.Unlock()
}

// volumeExponent maps linear volume to the effects.Volume exponent: with
// Base 2, an exponent of log2(v) yields a gain of exactly v.
func volumeExponent(v float64) float64 {
	if v <= 0 {
		return 0 // Silent flag carries the actual muting
	}
	return math.Log2(v)
}

func clamp01(f float64) float64 {
	if math.IsNaN(f) || f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
