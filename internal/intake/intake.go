// Package intake validates candidate audio files before anything else runs.
// Checks are purely local: no file contents are read and no network is touched.
package intake

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// MaxFileSize is the upload ceiling enforced before any network call.
const MaxFileSize = 25 << 20 // 25 MiB

var (
	// ErrTooLarge rejects files above MaxFileSize.
	ErrTooLarge = errors.New("file exceeds the 25 MiB size limit")
	// ErrUnsupportedType rejects anything that is not MP3 or WAV.
	ErrUnsupportedType = errors.New("unsupported file type: only MP3 and WAV are accepted")
)

// acceptedMIME is the declared-type allow list.
var acceptedMIME = map[string]bool{
	"audio/mpeg":  true,
	"audio/mp3":   true,
	"audio/wav":   true,
	"audio/x-wav": true,
	"audio/wave":  true,
}

var acceptedExt = map[string]bool{
	".mp3": true,
	".wav": true,
}

// Candidate is a file offered for analysis: its name, byte size, and
// declared media type. MIME may be empty when the source only has a path.
type Candidate struct {
	Name string
	Size int64
	MIME string
}

// Validate checks a candidate against the size ceiling and the accepted type
// set, in that order. Returns nil when the file is admissible.
func Validate(c Candidate) error {
	if c.Size > MaxFileSize {
		return fmt.Errorf("%s (%d bytes): %w", c.Name, c.Size, ErrTooLarge)
	}
	if !typeAccepted(c) {
		return fmt.Errorf("%s: %w", c.Name, ErrUnsupportedType)
	}
	return nil
}

func typeAccepted(c Candidate) bool {
	mime := strings.ToLower(strings.TrimSpace(c.MIME))
	// Strip parameters like "; charset=...".
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	if acceptedMIME[mime] {
		return true
	}
	// An absent or generic declared type defers to the extension.
	if mime == "" || mime == "application/octet-stream" {
		return acceptedExt[strings.ToLower(filepath.Ext(c.Name))]
	}
	return false
}

// First collapses a multi-file gesture to its first candidate; the rest are
// ignored, not queued. ok is false for an empty gesture.
func First(cands []Candidate) (c Candidate, ok bool) {
	if len(cands) == 0 {
		return Candidate{}, false
	}
	return cands[0], true
}

// FromPath builds a candidate from a local file path, inferring the declared
// type from the extension.
func FromPath(path string) (Candidate, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Candidate{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return Candidate{}, fmt.Errorf("%s is a directory", path)
	}
	return Candidate{
		Name: filepath.Base(path),
		Size: info.Size(),
		MIME: mimeForExt(filepath.Ext(path)),
	}, nil
}

func mimeForExt(ext string) string {
	switch strings.ToLower(ext) {
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	default:
		return ""
	}
}
