package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"time"
)

// DefaultRetry is the reconnect delay used until the server sends a retry: field.
const DefaultRetry = 3 * time.Second

// ErrNotEventStream means the server answered with something other than a 200
// text/event-stream; like EventSource, the subscriber does not reconnect after it.
var ErrNotEventStream = errors.New("not an event stream")

// Subscriber keeps one event-stream subscription open until its context ends.
type Subscriber struct {
	URL    string
	HTTP   *http.Client // must not carry a Timeout; nil uses a fresh client
	Retry  time.Duration
	Logger *slog.Logger

	lastID string
}

// Run connects, delivers "message" events (named or unnamed) to fn, and reconnects after
// network errors or end of stream. fn runs on the reader goroutine.
func (s *Subscriber) Run(ctx context.Context, fn func(Event)) error {
	retry := s.Retry
	if retry <= 0 {
		retry = DefaultRetry
	}
	logger := s.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	client := s.HTTP
	if client == nil {
		client = &http.Client{}
	}
	for {
		r, err := s.once(ctx, client, logger, fn)
		if r > 0 {
			retry = r
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if errors.Is(err, ErrNotEventStream) {
			logger.Error("log stream closed", "url", s.URL, "err", err)
			return err
		}
		logger.Warn("log stream disconnected; reconnecting", "url", s.URL, "err", err, "retry", retry)
		t := time.NewTimer(retry)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (s *Subscriber) once(ctx context.Context, client *http.Client, logger *slog.Logger, fn func(Event)) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrNotEventStream, err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if s.lastID != "" {
		req.Header.Set("Last-Event-ID", s.lastID)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("%w: HTTP %s", ErrNotEventStream, resp.Status)
	}
	if mt, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type")); mt != "text/event-stream" {
		return 0, fmt.Errorf("%w: content type %q", ErrNotEventStream, resp.Header.Get("Content-Type"))
	}

	dec := NewDecoder(resp.Body)
	skipped := 0
	for {
		ev, err := dec.Next()
		s.lastID = dec.LastEventID()
		if n := dec.Skipped(); n > skipped {
			logger.Warn("skipped oversized log stream line", "url", s.URL, "limit", maxLine, "count", n-skipped)
			skipped = n
		}
		if err != nil {
			if err == io.EOF {
				err = io.ErrUnexpectedEOF
			}
			return dec.Retry(), err
		}
		if ev.Name == "" || ev.Name == "message" {
			fn(ev)
		}
	}
}
