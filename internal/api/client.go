// Package api talks to the training dashboard backend over its HTTP contract.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	StreamPath   = "/v1/training-dashboard/stream"
	DownloadPath = "/v1/training-dashboard/download-model"
	StatusPath   = "/v1/training-dashboard/download-status"
	TrainPath    = "/v1/training-dashboard/train"
)

const userAgent = "traindash/0.1.0"

// Status is the server-side state of one model download.
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusComplete    Status = "complete"
	StatusError       Status = "error"
)

// Terminal reports whether no further polling should follow s.
func (s Status) Terminal() bool {
	return s == StatusComplete || s == StatusError
}

// DownloadRequest is the JSON body of POST download-model.
type DownloadRequest struct {
	HFModelID   string `json:"hf_model_id"`
	DisplayName string `json:"display_name"`
}

// StatusEntry is one model's record in the download-status response.
type StatusEntry struct {
	Status   Status   `json:"status"`
	Error    string   `json:"error,omitempty"`
	Progress *float64 `json:"progress,omitempty"`
}

// StatusReport maps model id to its raw status record. Entries are decoded lazily so one
// malformed record does not fail the whole response.
type StatusReport map[string]json.RawMessage

// Lookup returns the entry for modelID; ok is false when it is missing or malformed.
func (r StatusReport) Lookup(modelID string) (entry StatusEntry, ok bool) {
	raw, found := r[modelID]
	if !found {
		return StatusEntry{}, false
	}
	if err := json.Unmarshal(raw, &entry); err != nil || entry.Status == "" {
		return StatusEntry{}, false
	}
	return entry, true
}

// TrainRequest is the form body of POST train.
type TrainRequest struct {
	ModelPath string
	LR        float64
	Steps     int
	BatchSize int
}

func (t TrainRequest) form() url.Values {
	v := url.Values{}
	v.Set("model_path", t.ModelPath)
	v.Set("lr", strconv.FormatFloat(t.LR, 'g', -1, 64))
	v.Set("steps", strconv.Itoa(t.Steps))
	v.Set("batch_size", strconv.Itoa(t.BatchSize))
	return v
}

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return "HTTP " + e.Status
}

// Client calls the dashboard endpoints under BaseURL.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	// Timeout bounds status requests. The download and train POSTs are unbounded: the server
	// answers them only after the work finishes.
	Timeout time.Duration
}

// New returns a client that does not follow redirects (the server answers POSTs with a
// redirect to its HTML page, which nothing here reads).
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP: &http.Client{
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		Timeout: timeout,
	}
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// URL joins path (and an optional query) onto BaseURL.
func (c *Client) URL(path string, query url.Values) string {
	u := c.BaseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	return u
}

// StreamURL is the log event-stream endpoint.
func (c *Client) StreamURL() string {
	return c.URL(StreamPath, nil)
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.Timeout > 0 {
		return context.WithTimeout(ctx, c.Timeout)
	}
	return context.WithCancel(ctx)
}

// StartDownload posts the download request and returns the response status code once the
// request has completed. The body is drained and ignored.
func (c *Client) StartDownload(ctx context.Context, dr DownloadRequest) (int, error) {
	body, err := json.Marshal(dr)
	if err != nil {
		return 0, fmt.Errorf("download-model: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(DownloadPath, nil), bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("download-model: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return 0, fmt.Errorf("download-model: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

// DownloadStatus fetches the status report for modelID.
func (c *Client) DownloadStatus(ctx context.Context, modelID string) (StatusReport, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	u := c.URL(StatusPath, url.Values{"model_id": {modelID}})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("download-status: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return nil, fmt.Errorf("download-status: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("download-status: %w", &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status})
	}
	var report StatusReport
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, fmt.Errorf("download-status: invalid JSON: %w", err)
	}
	return report, nil
}

// StartTraining posts the training form. The HTML response is not parsed.
func (c *Client) StartTraining(ctx context.Context, tr TrainRequest) error {
	if strings.TrimSpace(tr.ModelPath) == "" {
		return fmt.Errorf("train: model path is required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(TrainPath, nil), strings.NewReader(tr.form().Encode()))
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	resp, err := c.httpClient().Do(req)
	if err != nil {
		return fmt.Errorf("train: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode > 399 {
		return fmt.Errorf("train: %w", &HTTPError{StatusCode: resp.StatusCode, Status: resp.Status})
	}
	return nil
}
