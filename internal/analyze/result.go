// Package analyze talks to the remote audio-analysis service: one multipart
// upload per accepted file, a typed result, and a classified error for every
// way the call can fail.
package analyze

// Result is the analysis of one audio file as returned by the service.
// Field names follow the wire format; Duration is in seconds, Loudness is
// integrated loudness in LUFS (signed).
type Result struct {
	BPM               float64 `json:"bpm"`
	Key               string  `json:"key"`
	KeyConfidence     float64 `json:"keyConfidence"`
	Loudness          float64 `json:"loudness"`
	Duration          float64 `json:"duration"`
	DurationFormatted string  `json:"duration_formatted"`
	Artist            string  `json:"artist,omitempty"`
	Title             string  `json:"title,omitempty"`
}
