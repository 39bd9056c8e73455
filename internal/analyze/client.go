package analyze

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
)

// Client communicates with the analysis service REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an analysis API client. No request timeout is set on the
// client itself; cancellation comes from the per-request context.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{},
	}
}

// Analyze uploads the file at path as multipart field "file" and decodes the
// analysis result. Every failure is returned as a classified *Error.
func (c *Client) Analyze(ctx context.Context, path, filename string) (Result, error) {
	body, contentType, err := multipartBody(path, filename)
	if err != nil {
		return Result{}, &Error{Kind: KindUnclassified, cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/analyze", body)
	if err != nil {
		return Result{}, &Error{Kind: KindUnclassified, cause: fmt.Errorf("create request: %w", err)}
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || ctx.Err() != nil {
			return Result{}, &Error{Kind: KindCancelled, cause: err}
		}
		return Result{}, &Error{Kind: KindNetwork, cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var result Result
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return Result{}, &Error{Kind: KindUnclassified, Status: resp.StatusCode, cause: fmt.Errorf("decode response: %w", err)}
		}
		return result, nil
	}

	return Result{}, classifyStatus(resp)
}

// Healthy reports whether the service is reachable. Any HTTP response
// counts, including 404 from a server that only routes POST /analyze; the
// distinction that matters is response vs. transport failure. Purely
// informational; a false return never blocks a submission.
func (c *Client) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// classifyStatus maps a non-200 response to the error taxonomy: 413, 415, a
// body with detail/message text, or unclassified.
func classifyStatus(resp *http.Response) *Error {
	switch resp.StatusCode {
	case http.StatusRequestEntityTooLarge:
		return &Error{Kind: KindPayloadTooLarge, Status: resp.StatusCode}
	case http.StatusUnsupportedMediaType:
		return &Error{Kind: KindUnsupportedMedia, Status: resp.StatusCode}
	}

	var body struct {
		Detail  string `json:"detail"`
		Message string `json:"message"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(raw, &body) == nil {
		text := body.Detail
		if text == "" {
			text = body.Message
		}
		if text != "" {
			return &Error{Kind: KindServerDetail, Status: resp.StatusCode, Detail: text}
		}
	}
	return &Error{Kind: KindUnclassified, Status: resp.StatusCode}
}

// multipartBody reads the file and builds the multipart request body.
// Accepted files are capped at 25 MiB, so buffering in memory is fine.
func multipartBody(path, filename string) (io.Reader, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("file", filename)
	if err != nil {
		return nil, "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", path, err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("finalize multipart body: %w", err)
	}
	return &buf, w.FormDataContentType(), nil
}
