package download

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
)

// SinkFactory creates the output sink for a new flow. Each flow gets its own sink, so
// concurrent downloads never overwrite each other's messages.
type SinkFactory func(flowID, modelID string) Sink

type entry struct {
	flow   *Flow
	cancel context.CancelFunc
}

// Registry runs flows in the background, at most one per model id.
type Registry struct {
	backend Backend
	policy  Policy
	newSink SinkFactory
	logger  *slog.Logger

	mu     sync.Mutex
	active map[string]entry
	wg     sync.WaitGroup
}

func NewRegistry(backend Backend, policy Policy, newSink SinkFactory, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{
		backend: backend,
		policy:  policy,
		newSink: newSink,
		logger:  logger,
		active:  make(map[string]entry),
	}
}

// Submit validates the input and starts a flow under ctx. It returns ErrInvalidInput for
// empty fields and ErrAlreadyActive when the model already has a running flow.
func (r *Registry) Submit(ctx context.Context, modelID, displayName string) (*Flow, error) {
	req, err := Request{ModelID: modelID, DisplayName: displayName}.Normalize()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.active[req.ModelID]; ok {
		return nil, ErrAlreadyActive
	}
	f, err := NewFlow(req, r.backend, r.policy, nil, r.logger)
	if err != nil {
		return nil, err
	}
	f.sink = r.newSink(f.ID, req.ModelID)
	fctx, cancel := context.WithCancel(ctx)
	r.active[req.ModelID] = entry{flow: f, cancel: cancel}
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()
		f.Run(fctx)
		r.mu.Lock()
		if e, ok := r.active[req.ModelID]; ok && e.flow == f {
			delete(r.active, req.ModelID)
		}
		r.mu.Unlock()
	}()
	r.logger.Info("download submitted", "flow", f.ID, "model", req.ModelID)
	return f, nil
}

// Cancel stops the running flow for modelID. It reports whether one was running.
func (r *Registry) Cancel(modelID string) bool {
	r.mu.Lock()
	e, ok := r.active[modelID]
	r.mu.Unlock()
	if ok {
		e.cancel()
	}
	return ok
}

// CancelAll stops every running flow.
func (r *Registry) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, e := range r.active {
		e.cancel()
	}
}

// Active returns the model ids with a running flow, sorted.
func (r *Registry) Active() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.active))
	for id := range r.active {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Wait blocks until every submitted flow has returned.
func (r *Registry) Wait() {
	r.wg.Wait()
}
