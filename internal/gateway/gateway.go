// Package gateway submits transcripts and audio files to the remote
// slide-generation service and normalizes the outcomes.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rbright/podium/internal/upload"
)

// ErrNetwork marks transport-level failures (unreachable service,
// malformed response), as opposed to an application-level rejection
// carried inside a decoded Result.
var ErrNetwork = errors.New("slide service unreachable")

const (
	requestTimeout  = 30 * time.Second
	maxResponseSize = 1 << 20
)

// Result is the normalized outcome of one submission.
type Result struct {
	Success        bool
	PresentationID string
	Error          string
}

// Client talks to the slide-generation service over HTTP.
type Client struct {
	base             *url.URL
	transcriptPath   string
	uploadPath       string
	presentationPath string
	httpClient       *http.Client
	logger           *slog.Logger
}

// Endpoints configures the service base URL and its route paths.
type Endpoints struct {
	BaseURL          string
	TranscriptPath   string
	UploadPath       string
	PresentationPath string
}

// NewClient builds a gateway client. Neither operation retries: the
// controller's notification plus manual retry is the full recovery path.
func NewClient(endpoints Endpoints, logger *slog.Logger) (*Client, error) {
	raw := strings.TrimSpace(endpoints.BaseURL)
	if raw == "" {
		return nil, errors.New("service base URL is empty")
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "http://" + raw
	}
	base, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse service base URL %q: %w", endpoints.BaseURL, err)
	}

	return &Client{
		base:             base,
		transcriptPath:   endpoints.TranscriptPath,
		uploadPath:       endpoints.UploadPath,
		presentationPath: endpoints.PresentationPath,
		httpClient:       &http.Client{Timeout: requestTimeout},
		logger:           logger,
	}, nil
}

// SubmitTranscript sends the transcript as a JSON payload.
func (c *Client) SubmitTranscript(ctx context.Context, text string) (Result, error) {
	payload, err := json.Marshal(map[string]string{"transcript": text})
	if err != nil {
		return Result{}, fmt.Errorf("encode transcript payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.transcriptPath), bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("create transcript request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.do(req, "transcript")
}

// SubmitAudio sends the file as a multipart form under field "audio_file".
func (c *Client) SubmitAudio(ctx context.Context, sub upload.Submission) (Result, error) {
	if sub.Open == nil {
		return Result{}, errors.New("submission has no payload")
	}
	reader, err := sub.Open()
	if err != nil {
		return Result{}, fmt.Errorf("open submission payload: %w", err)
	}
	defer reader.Close()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("audio_file", sub.Filename)
	if err != nil {
		return Result{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, reader); err != nil {
		return Result{}, fmt.Errorf("read submission payload: %w", err)
	}
	if err := writer.Close(); err != nil {
		return Result{}, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(c.uploadPath), body)
	if err != nil {
		return Result{}, fmt.Errorf("create upload request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return c.do(req, "audio")
}

// PresentationURL builds the redirect target for a generated presentation.
func (c *Client) PresentationURL(presentationID string) string {
	path := strings.TrimRight(c.presentationPath, "/") + "/" + presentationID
	ref := &url.URL{Path: path}
	return c.base.ResolveReference(ref).String()
}

// do executes one submission roundtrip and normalizes the response.
// Application-level rejections decode into a Result; anything the service
// did not answer in the expected shape is a network failure.
func (c *Client) do(req *http.Request, kind string) (Result, error) {
	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("%w: submit %s: %v", ErrNetwork, kind, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return Result{}, fmt.Errorf("%w: read %s response: %v", ErrNetwork, kind, err)
	}

	var wire struct {
		Success        bool       `json:"success"`
		PresentationID flexibleID `json:"presentation_id"`
		Error          string     `json:"error"`
	}
	if err := json.Unmarshal(body, &wire); err != nil {
		return Result{}, fmt.Errorf("%w: malformed %s response (HTTP %d): %v", ErrNetwork, kind, resp.StatusCode, err)
	}

	result := Result{
		Success:        wire.Success,
		PresentationID: string(wire.PresentationID),
		Error:          strings.TrimSpace(wire.Error),
	}
	if !result.Success && result.Error == "" {
		result.Error = fmt.Sprintf("service rejected %s submission (HTTP %d)", kind, resp.StatusCode)
	}

	if c.logger != nil {
		c.logger.Info("submission resolved",
			"kind", kind,
			"success", result.Success,
			"status", resp.StatusCode,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	}
	return result, nil
}

func (c *Client) endpoint(path string) string {
	ref := &url.URL{Path: path}
	return c.base.ResolveReference(ref).String()
}

// flexibleID accepts both string and numeric presentation ids; the service
// historically returned database integers.
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		*f = flexibleID(asString)
		return nil
	}

	var asNumber json.Number
	if err := json.Unmarshal(data, &asNumber); err == nil {
		*f = flexibleID(asNumber.String())
		return nil
	}

	return fmt.Errorf("presentation_id must be a string or number")
}
