// Package download submits model-download requests and polls the dashboard until the
// download reaches a terminal status, reporting progress to a per-flow Sink.
package download

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shayne-snap/traindash/internal/api"
)

// User-facing messages.
const (
	MsgDownloading = "⏳ Downloading... Please do not refresh or leave the page."
	MsgComplete    = "✅ Download Complete"
)

// Tone is how a message should be colored.
type Tone int

const (
	TonePending Tone = iota
	ToneSuccess
	ToneError
)

func (t Tone) String() string {
	switch t {
	case ToneSuccess:
		return "success"
	case ToneError:
		return "error"
	default:
		return "pending"
	}
}

// Message is one status line shown for a flow.
type Message struct {
	Text string
	Tone Tone
}

// Sink displays the messages of a single flow.
type Sink interface {
	Show(Message)
	Hide()
}

// Backend is the subset of the dashboard API a flow needs.
type Backend interface {
	StartDownload(ctx context.Context, req api.DownloadRequest) (int, error)
	DownloadStatus(ctx context.Context, modelID string) (api.StatusReport, error)
}

// Policy controls flow timing. Interval grows by Backoff after each non-terminal poll,
// capped at MaxInterval.
type Policy struct {
	InitialDelay time.Duration
	Interval     time.Duration
	MaxInterval  time.Duration
	Backoff      float64
	MaxPolls     int // 0 = unbounded
	HideAfter    time.Duration
}

// DefaultPolicy mirrors the dashboard page: 2s before the first poll, 2s between polls,
// success hidden after 5s.
func DefaultPolicy() Policy {
	return Policy{
		InitialDelay: 2 * time.Second,
		Interval:     2 * time.Second,
		MaxInterval:  2 * time.Second,
		Backoff:      1,
		MaxPolls:     1800,
		HideAfter:    5 * time.Second,
	}
}

func (p Policy) next(d time.Duration) time.Duration {
	if p.Backoff <= 1 {
		return d
	}
	n := time.Duration(float64(d) * p.Backoff)
	if p.MaxInterval > 0 && n > p.MaxInterval {
		n = p.MaxInterval
	}
	return n
}

// Request is the user's download form input.
type Request struct {
	ModelID     string
	DisplayName string
}

// Normalize trims both fields and rejects empty values.
func (r Request) Normalize() (Request, error) {
	r.ModelID = strings.TrimSpace(r.ModelID)
	r.DisplayName = strings.TrimSpace(r.DisplayName)
	if r.ModelID == "" || r.DisplayName == "" {
		return r, ErrInvalidInput
	}
	return r, nil
}

// State is the position of a flow in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateSubmitting
	StatePolling
	StateComplete
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateSubmitting:
		return "submitting"
	case StatePolling:
		return "polling"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "idle"
	}
}

// Result is the outcome of a finished flow.
type Result struct {
	State State
	Polls int
	Err   error
}

// Flow is one (model, submission) download. Run it once.
type Flow struct {
	ID  string
	Req Request

	backend Backend
	policy  Policy
	sink    Sink
	logger  *slog.Logger

	mu     sync.Mutex
	state  State
	result Result
	done   chan struct{}
}

// NewFlow validates req and returns an idle flow.
func NewFlow(req Request, backend Backend, policy Policy, sink Sink, logger *slog.Logger) (*Flow, error) {
	req, err := req.Normalize()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	id := uuid.NewString()
	return &Flow{
		ID:      id,
		Req:     req,
		backend: backend,
		policy:  policy,
		sink:    sink,
		logger:  logger.With("flow", id, "model", req.ModelID),
		done:    make(chan struct{}),
	}, nil
}

// State returns the current state; safe from any goroutine.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Done is closed when Run returns.
func (f *Flow) Done() <-chan struct{} { return f.done }

// Result is valid after Done is closed.
func (f *Flow) Result() Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.result
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Run submits the download and polls until a terminal status, an unrecoverable error, the
// poll budget running out, or ctx ending. Polls are strictly sequential. A cancelled flow
// hides its sink without a message.
func (f *Flow) Run(ctx context.Context) Result {
	res := f.run(ctx)
	if res.State == StateCancelled {
		f.sink.Hide()
	}
	f.mu.Lock()
	f.state = res.State
	f.result = res
	f.mu.Unlock()
	close(f.done)
	f.logger.Info("download flow finished", "state", res.State, "polls", res.Polls, "err", res.Err)
	return res
}

func (f *Flow) run(ctx context.Context) Result {
	f.setState(StateSubmitting)
	f.sink.Show(Message{Text: MsgDownloading, Tone: TonePending})

	code, err := f.backend.StartDownload(ctx, api.DownloadRequest{HFModelID: f.Req.ModelID, DisplayName: f.Req.DisplayName})
	if err != nil {
		if ctx.Err() != nil {
			return Result{State: StateCancelled, Err: ctx.Err()}
		}
		f.sink.Show(Message{Text: "❌ Error: " + err.Error(), Tone: ToneError})
		return Result{State: StateFailed, Err: err}
	}
	if code < 200 || code > 399 {
		f.logger.Warn("download request answered with non-success status; polling anyway", "code", code)
	}

	f.setState(StatePolling)
	if err := sleep(ctx, f.policy.InitialDelay); err != nil {
		return Result{State: StateCancelled, Err: err}
	}

	interval := f.policy.Interval
	polls := 0
	for {
		if f.policy.MaxPolls > 0 && polls >= f.policy.MaxPolls {
			f.sink.Show(Message{Text: "❌ Error: timed out waiting for download status", Tone: ToneError})
			return Result{State: StateFailed, Polls: polls, Err: ErrPollBudget}
		}
		report, err := f.backend.DownloadStatus(ctx, f.Req.ModelID)
		polls++
		if err != nil {
			if ctx.Err() != nil {
				return Result{State: StateCancelled, Polls: polls, Err: ctx.Err()}
			}
			f.sink.Show(Message{Text: "❌ Failed to check status: " + err.Error(), Tone: ToneError})
			return Result{State: StateFailed, Polls: polls, Err: err}
		}

		entry, ok := report.Lookup(f.Req.ModelID)
		switch {
		case ok && entry.Status == api.StatusComplete:
			f.sink.Show(Message{Text: MsgComplete, Tone: ToneSuccess})
			f.scheduleHide()
			return Result{State: StateComplete, Polls: polls}
		case ok && entry.Status == api.StatusError:
			f.sink.Show(Message{Text: "❌ Error: " + entry.Error, Tone: ToneError})
			return Result{State: StateFailed, Polls: polls, Err: fmt.Errorf("%w: %s", ErrServerReported, entry.Error)}
		case ok && entry.Status == api.StatusDownloading:
			f.logger.Debug("still downloading", "poll", polls, "progress", entry.Progress)
		default:
			f.logger.Debug("no usable status entry yet", "poll", polls)
		}

		if err := sleep(ctx, interval); err != nil {
			return Result{State: StateCancelled, Polls: polls, Err: err}
		}
		interval = f.policy.next(interval)
	}
}

func (f *Flow) scheduleHide() {
	if f.policy.HideAfter <= 0 {
		f.sink.Hide()
		return
	}
	time.AfterFunc(f.policy.HideAfter, f.sink.Hide)
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
