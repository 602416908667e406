// Package dashboard wires the training-dashboard behaviors (start-button gate, live log
// view, model downloads) onto whatever UI surface the front end provides.
package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/shayne-snap/traindash/internal/download"
	"github.com/shayne-snap/traindash/internal/logbuf"
	"github.com/shayne-snap/traindash/internal/stream"
)

// ErrNoDownloadForm is returned by SubmitDownload when the surface has no download form.
var ErrNoDownloadForm = errors.New("dashboard: no download form on this surface")

// Selection is the model picker.
type Selection interface {
	Value() string
}

// Toggle is the start-training control.
type Toggle interface {
	SetDisabled(disabled bool)
}

// LogView is the scrolling log container.
type LogView interface {
	SetText(text string)
	ScrollToBottom()
}

// EventSource delivers server-sent log events until ctx ends.
type EventSource interface {
	Run(ctx context.Context, fn func(stream.Event)) error
}

// Surface lists the optional UI capabilities. A behavior is activated only when every
// capability it needs is non-nil.
type Surface struct {
	ModelSelect Selection
	StartButton Toggle
	LogView     LogView
	Downloads   download.SinkFactory
}

// Options are the collaborators behind the surface.
type Options struct {
	Events   EventSource
	Backend  download.Backend
	Policy   download.Policy
	LogLines int
	Logger   *slog.Logger
}

type Controller struct {
	surface Surface
	opts    Options
	logger  *slog.Logger
	logs    *logbuf.Ring

	registry *download.Registry

	once   sync.Once
	mu     sync.Mutex // guards ctx and cancel
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(surface Surface, opts Options) *Controller {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	c := &Controller{
		surface: surface,
		opts:    opts,
		logger:  logger,
		logs:    logbuf.New(opts.LogLines),
	}
	if surface.Downloads != nil && opts.Backend != nil {
		c.registry = download.NewRegistry(opts.Backend, opts.Policy, surface.Downloads, logger)
	}
	return c
}

// Start activates the behaviors the surface supports. Calls after the first are no-ops.
func (c *Controller) Start(ctx context.Context) {
	c.once.Do(func() {
		ctx, cancel := context.WithCancel(ctx)
		c.mu.Lock()
		c.ctx, c.cancel = ctx, cancel
		c.mu.Unlock()
		if c.gateActive() {
			c.SelectionChanged(c.surface.ModelSelect.Value())
		}
		if c.surface.LogView != nil && c.opts.Events != nil {
			c.wg.Add(1)
			go c.streamLogs(ctx)
		}
		c.logger.Info("dashboard started",
			"gate", c.gateActive(),
			"log_view", c.surface.LogView != nil,
			"downloads", c.registry != nil)
	})
}

func (c *Controller) gateActive() bool {
	return c.surface.ModelSelect != nil && c.surface.StartButton != nil
}

// SelectionChanged disables the start button exactly when value is empty.
func (c *Controller) SelectionChanged(value string) {
	if !c.gateActive() {
		return
	}
	c.surface.StartButton.SetDisabled(value == "")
}

func (c *Controller) streamLogs(ctx context.Context) {
	defer c.wg.Done()
	err := c.opts.Events.Run(ctx, c.appendLog)
	if err != nil && !errors.Is(err, context.Canceled) {
		c.logger.Error("log stream stopped", "err", err)
	}
}

func (c *Controller) appendLog(ev stream.Event) {
	c.logs.Append(ev.Data)
	c.surface.LogView.SetText(c.logs.Text())
	c.surface.LogView.ScrollToBottom()
}

// Logs returns the buffered log lines, oldest first.
func (c *Controller) Logs() []string { return c.logs.Lines() }

// SubmitDownload starts a download flow with its own output sink. Empty fields return
// download.ErrInvalidInput without any request; front ends ignore that error.
func (c *Controller) SubmitDownload(modelID, displayName string) (*download.Flow, error) {
	if c.registry == nil {
		return nil, ErrNoDownloadForm
	}
	c.mu.Lock()
	ctx := c.ctx
	c.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	return c.registry.Submit(ctx, modelID, displayName)
}

// CancelDownload stops the flow for modelID, if one is running.
func (c *Controller) CancelDownload(modelID string) bool {
	if c.registry == nil {
		return false
	}
	return c.registry.Cancel(modelID)
}

// ActiveDownloads lists model ids with a running flow.
func (c *Controller) ActiveDownloads() []string {
	if c.registry == nil {
		return nil
	}
	return c.registry.Active()
}

// Stop cancels the log stream and every download, then waits for them.
func (c *Controller) Stop() {
	c.mu.Lock()
	cancel := c.cancel
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	if c.registry != nil {
		c.registry.CancelAll()
		c.registry.Wait()
	}
	c.wg.Wait()
}
