package analyze

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func writeTempAudio(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "song.mp3")
	if err := os.WriteFile(path, []byte("not really audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestAnalyzeSuccess(t *testing.T) {
	var gotFilename string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/analyze" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
		} else {
			gotFilename = hdr.Filename
			f.Close()
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"bpm":128.3,"key":"A minor","keyConfidence":82,"duration":215.4,"duration_formatted":"3:35","loudness":-9.2}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	res, err := c.Analyze(context.Background(), writeTempAudio(t), "song.mp3")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if gotFilename != "song.mp3" {
		t.Errorf("uploaded filename = %q, want song.mp3", gotFilename)
	}
	if res.BPM != 128.3 {
		t.Errorf("BPM = %v, want 128.3", res.BPM)
	}
	if res.Key != "A minor" {
		t.Errorf("Key = %q, want 'A minor'", res.Key)
	}
	if res.KeyConfidence != 82 {
		t.Errorf("KeyConfidence = %v, want 82", res.KeyConfidence)
	}
	if res.Duration != 215.4 {
		t.Errorf("Duration = %v, want 215.4", res.Duration)
	}
	if res.DurationFormatted != "3:35" {
		t.Errorf("DurationFormatted = %q, want 3:35", res.DurationFormatted)
	}
	if res.Loudness != -9.2 {
		t.Errorf("Loudness = %v, want -9.2", res.Loudness)
	}
}

func TestAnalyzeClassification(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantKind Kind
		wantMsg  string
	}{
		{"413", http.StatusRequestEntityTooLarge, "", KindPayloadTooLarge,
			"The server rejected the file: it exceeds the 25 MiB upload limit."},
		{"415", http.StatusUnsupportedMediaType, "", KindUnsupportedMedia,
			"The server rejected the file type. Only MP3 and WAV files are supported."},
		{"detail body", http.StatusUnprocessableEntity, `{"detail":"file appears to be corrupt"}`, KindServerDetail,
			"file appears to be corrupt"},
		{"message body", http.StatusInternalServerError, `{"message":"analyzer crashed"}`, KindServerDetail,
			"analyzer crashed"},
		{"empty body", http.StatusBadGateway, "", KindUnclassified,
			"Analysis failed. Please try again."},
		{"non-json body", http.StatusInternalServerError, "<html>oops</html>", KindUnclassified,
			"Analysis failed. Please try again."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				if tt.body != "" {
					w.Write([]byte(tt.body))
				}
			}))
			defer srv.Close()

			c := NewClient(srv.URL)
			_, err := c.Analyze(context.Background(), writeTempAudio(t), "song.mp3")
			var ae *Error
			if !errors.As(err, &ae) {
				t.Fatalf("Analyze error = %v, want *Error", err)
			}
			if ae.Kind != tt.wantKind {
				t.Errorf("Kind = %d, want %d", ae.Kind, tt.wantKind)
			}
			if ae.Status != tt.status {
				t.Errorf("Status = %d, want %d", ae.Status, tt.status)
			}
			if got := Message(err); got != tt.wantMsg {
				t.Errorf("Message = %q, want %q", got, tt.wantMsg)
			}
		})
	}
}

func TestAnalyzeNetworkUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listening anymore

	c := NewClient(srv.URL)
	_, err := c.Analyze(context.Background(), writeTempAudio(t), "song.mp3")
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("Analyze error = %v, want *Error", err)
	}
	if ae.Kind != KindNetwork {
		t.Errorf("Kind = %d, want KindNetwork", ae.Kind)
	}
	if Message(err) == "" {
		t.Error("network failure must carry a user-visible message")
	}
}

func TestAnalyzeCancelled(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	c := NewClient(srv.URL)
	path := writeTempAudio(t)
	go func() {
		_, err := c.Analyze(ctx, path, "song.mp3")
		done <- err
	}()
	cancel()

	err := <-done
	if !IsCancelled(err) {
		t.Fatalf("Analyze after cancel = %v, want cancellation", err)
	}
	if Message(err) != "" {
		t.Errorf("cancellation must be silent, got message %q", Message(err))
	}
}

func TestAnalyzeMissingFile(t *testing.T) {
	c := NewClient("http://localhost:0")
	_, err := c.Analyze(context.Background(), filepath.Join(t.TempDir(), "gone.mp3"), "gone.mp3")
	var ae *Error
	if !errors.As(err, &ae) {
		t.Fatalf("Analyze error = %v, want *Error", err)
	}
	if ae.Kind != KindUnclassified {
		t.Errorf("Kind = %d, want KindUnclassified", ae.Kind)
	}
}

func TestHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if !c.Healthy(context.Background()) {
		t.Error("Healthy = false against a live /health endpoint")
	}

	srv.Close()
	if c.Healthy(context.Background()) {
		t.Error("Healthy = true against a dead endpoint")
	}
}

func TestHealthyWithoutHealthRoute(t *testing.T) {
	// The service only routes POST /analyze; a 404 is still a live server.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/analyze" {
			w.Write([]byte(`{}`))
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	if !c.Healthy(context.Background()) {
		t.Error("Healthy = false against a live service with no health route")
	}
}
