// Package waveform renders a live frequency view of the file being played.
// It reads an immutable sample snapshot and the playback clock; it never
// mutates playback, upload, or history state.
package waveform

import (
	"fmt"
	"math"
	"math/cmplx"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/wav"
	"gonum.org/v1/gonum/dsp/fourier"
)

// fftSize is the analysis window, about 23ms at 44.1kHz.
const fftSize = 1024

// Snapshot is a full mono decode of one accepted file. It is produced once
// at load time by a decode pass separate from the playback streamer, and is
// immutable afterwards; replacing a snapshot is just swapping the pointer.
type Snapshot struct {
	Samples []float64
	Rate    float64 // samples per second
}

// Duration returns the snapshot's length in seconds.
func (s *Snapshot) Duration() float64 {
	if s == nil || s.Rate <= 0 {
		return 0
	}
	return float64(len(s.Samples)) / s.Rate
}

// Decode reads the file at path into a mono snapshot using its own decoder
// instance, leaving the playback resource untouched.
func Decode(path string) (*Snapshot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var (
		streamer beep.StreamSeekCloser
		format   beep.Format
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		streamer, format, err = mp3.Decode(f)
	case ".wav":
		streamer, format, err = wav.Decode(f)
	default:
		return nil, fmt.Errorf("no decoder for %s", path)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	defer streamer.Close()

	samples := make([]float64, 0, streamer.Len())
	buf := make([][2]float64, 4096)
	for {
		n, ok := streamer.Stream(buf)
		for i := 0; i < n; i++ {
			samples = append(samples, (buf[i][0]+buf[i][1])/2)
		}
		if !ok {
			break
		}
	}

	return &Snapshot{Samples: samples, Rate: float64(format.SampleRate)}, nil
}

// Renderer turns a snapshot window around the playback position into
// frequency bars. One Renderer is reused across files; the FFT plan and
// window are allocated once.
type Renderer struct {
	fft    *fourier.FFT
	window []float64
	in     []float64
	coeffs []complex128
}

// NewRenderer allocates the FFT plan and Hann window.
func NewRenderer() *Renderer {
	return &Renderer{
		fft:    fourier.NewFFT(fftSize),
		window: hannWindow(fftSize),
		in:     make([]float64, fftSize),
		coeffs: make([]complex128, fftSize/2+1),
	}
}

// Bins computes n normalized frequency-band magnitudes for the window
// centered on pos. A nil or empty snapshot yields all-zero bins; positions
// outside the snapshot clamp to its edges.
func (r *Renderer) Bins(snap *Snapshot, pos time.Duration, n int) []float64 {
	bins := make([]float64, n)
	if snap == nil || len(snap.Samples) == 0 || snap.Rate <= 0 || n <= 0 {
		return bins
	}

	center := int(pos.Seconds() * snap.Rate)
	start := center - fftSize/2
	if start < 0 {
		start = 0
	}
	if start > len(snap.Samples)-fftSize {
		start = len(snap.Samples) - fftSize
	}
	if start < 0 {
		// Shorter than one window: use what there is, zero-padded.
		start = 0
	}

	for i := range r.in {
		if start+i < len(snap.Samples) {
			r.in[i] = snap.Samples[start+i] * r.window[i]
		} else {
			r.in[i] = 0
		}
	}
	r.fft.Coefficients(r.coeffs, r.in)

	// Fold magnitudes (DC excluded) into log-spaced bands so the low end
	// gets the resolution the ear expects.
	mags := r.coeffs[1:]
	maxBand := 0.0
	for b := 0; b < n; b++ {
		lo, hi := logBand(b, n, len(mags))
		sum := 0.0
		for i := lo; i < hi; i++ {
			sum += cmplx.Abs(mags[i])
		}
		v := sum / float64(hi-lo)
		bins[b] = v
		if v > maxBand {
			maxBand = v
		}
	}

	if maxBand > 0 {
		for b := range bins {
			bins[b] = math.Sqrt(bins[b] / maxBand) // perceptual-ish scaling
		}
	}
	return bins
}

// logBand returns the half-open magnitude index range for band b of n over
// total indices, log-spaced, always at least one index wide.
func logBand(b, n, total int) (lo, hi int) {
	scale := func(x float64) int {
		return int(math.Pow(float64(total), x))
	}
	lo = scale(float64(b)/float64(n)) - 1
	hi = scale(float64(b+1)/float64(n)) - 1
	if lo < 0 {
		lo = 0
	}
	if hi <= lo {
		hi = lo + 1
	}
	if hi > total {
		hi = total
	}
	if lo >= hi {
		lo = hi - 1
	}
	return lo, hi
}

// Peaks returns width peak amplitudes across the whole snapshot, for the
// static overview strip. Nil snapshots yield all zeros.
func Peaks(snap *Snapshot, width int) []float64 {
	peaks := make([]float64, width)
	if snap == nil || len(snap.Samples) == 0 || width <= 0 {
		return peaks
	}
	per := len(snap.Samples) / width
	if per < 1 {
		per = 1
	}
	for i := 0; i < width; i++ {
		lo := i * per
		if lo >= len(snap.Samples) {
			break
		}
		hi := lo + per
		if hi > len(snap.Samples) {
			hi = len(snap.Samples)
		}
		peak := 0.0
		for _, s := range snap.Samples[lo:hi] {
			if a := math.Abs(s); a > peak {
				peak = a
			}
		}
		peaks[i] = peak
	}
	return peaks
}

func hannWindow(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/float64(n-1)))
	}
	return w
}
