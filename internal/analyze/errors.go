package analyze

import (
	"context"
	"errors"
	"fmt"
)

// Kind classifies a failed analysis call.
type Kind int

const (
	// KindNetwork means the transport could not reach the service at all.
	KindNetwork Kind = iota
	// KindPayloadTooLarge is a 413 from the server.
	KindPayloadTooLarge
	// KindUnsupportedMedia is a 415 from the server.
	KindUnsupportedMedia
	// KindServerDetail is any failure status whose body carried a
	// detail/message string; that string is surfaced verbatim.
	KindServerDetail
	// KindUnclassified is every other failure.
	KindUnclassified
	// KindCancelled means the request's context was cancelled. Never
	// surfaced to the user.
	KindCancelled
)

// Error is a classified analysis failure.
type Error struct {
	Kind   Kind
	Status int    // HTTP status, 0 when no response arrived
	Detail string // server-provided text, only for KindServerDetail
	cause  error
}

func (e *Error) Error() string {
	switch {
	case e.Detail != "":
		return fmt.Sprintf("analysis failed (status %d): %s", e.Status, e.Detail)
	case e.cause != nil:
		return fmt.Sprintf("analysis failed: %v", e.cause)
	default:
		return fmt.Sprintf("analysis failed (status %d)", e.Status)
	}
}

func (e *Error) Unwrap() error { return e.cause }

// Message returns the user-visible text for a failed call, or "" when the
// failure must stay silent (cancellation).
func (e *Error) Message() string {
	switch e.Kind {
	case KindNetwork:
		return "Could not reach the analysis service. It may be down - try again in a moment."
	case KindPayloadTooLarge:
		return "The server rejected the file: it exceeds the 25 MiB upload limit."
	case KindUnsupportedMedia:
		return "The server rejected the file type. Only MP3 and WAV files are supported."
	case KindServerDetail:
		return e.Detail
	case KindCancelled:
		return ""
	default:
		return "Analysis failed. Please try again."
	}
}

// Message maps any error from Analyze to its user-visible text. Unknown
// errors get the generic retry message; cancellations map to "".
func Message(err error) string {
	if err == nil {
		return ""
	}
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Message()
	}
	if errors.Is(err, context.Canceled) {
		return ""
	}
	return (&Error{Kind: KindUnclassified}).Message()
}

// IsCancelled reports whether err is a cancellation, either classified or a
// raw context error.
func IsCancelled(err error) bool {
	var ae *Error
	if errors.As(err, &ae) && ae.Kind == KindCancelled {
		return true
	}
	return errors.Is(err, context.Canceled)
}
