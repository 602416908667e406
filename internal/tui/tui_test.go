package tui

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shayne-snap/traindash/internal/api"
	"github.com/shayne-snap/traindash/internal/config"
	"github.com/shayne-snap/traindash/internal/dashboard"
	"github.com/shayne-snap/traindash/internal/download"

	tea "github.com/charmbracelet/bubbletea"
)

func testModels() []config.ModelEntry {
	return []config.ModelEntry{
		{Name: "tiny", Path: "/models/org-tiny"},
		{Name: "big", Path: "/models/org-big"},
	}
}

type fakeTrainer struct {
	mu  sync.Mutex
	got []api.TrainRequest
}

func (f *fakeTrainer) StartTraining(ctx context.Context, tr api.TrainRequest) error {
	f.mu.Lock()
	f.got = append(f.got, tr)
	f.mu.Unlock()
	return nil
}

type countingBackend struct {
	mu    sync.Mutex
	posts int
}

func (b *countingBackend) StartDownload(ctx context.Context, req api.DownloadRequest) (int, error) {
	b.mu.Lock()
	b.posts++
	b.mu.Unlock()
	<-ctx.Done()
	return 0, ctx.Err()
}

func (b *countingBackend) DownloadStatus(ctx context.Context, modelID string) (api.StatusReport, error) {
	return nil, nil
}

// outbox collects what flow sinks send, for replay on the test goroutine.
type outbox struct {
	mu   sync.Mutex
	msgs []tea.Msg
}

func (o *outbox) send(msg tea.Msg) {
	o.mu.Lock()
	o.msgs = append(o.msgs, msg)
	o.mu.Unlock()
}

// deliver feeds collected messages to m in send order.
func (o *outbox) deliver(m *model) {
	o.mu.Lock()
	msgs := o.msgs
	o.msgs = nil
	o.mu.Unlock()
	for _, msg := range msgs {
		m.Update(msg)
	}
}

func newTestModel(t *testing.T, backend download.Backend) (*model, *fakeTrainer) {
	m, tr, _ := newTestModelWithOutbox(t, backend)
	return m, tr
}

func newTestModelWithOutbox(t *testing.T, backend download.Backend) (*model, *fakeTrainer, *outbox) {
	t.Helper()
	app := NewApp(testModels(), nil)
	tr := &fakeTrainer{}
	out := &outbox{}
	m := newModel(context.Background(), app, tr, config.TrainingConfig{LR: 0.001, Steps: 10, BatchSize: 8})
	surface := dashboard.Surface{
		ModelSelect: app,
		StartButton: app,
		Downloads: func(flowID, modelID string) download.Sink {
			return &flowSink{send: out.send, flowID: flowID, modelID: modelID}
		},
	}
	m.ctrl = dashboard.New(surface, dashboard.Options{Backend: backend, Policy: download.DefaultPolicy()})
	m.ctrl.Start(context.Background())
	t.Cleanup(m.ctrl.Stop)
	return m, tr, out
}

func keyPress(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func typeText(m *model, s string) {
	for _, r := range s {
		m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

func TestApp_SelectionGate(t *testing.T) {
	m, tr := newTestModel(t, &countingBackend{})
	if !m.app.StartDisabled {
		t.Fatal("start should be disabled with no selection")
	}
	if cmd := m.startTraining(); cmd != nil {
		t.Error("startTraining while disabled returned a command")
	}

	m.Update(keyPress("j"))
	m.Update(keyPress("enter"))
	if m.app.Value() != "/models/org-big" || m.app.StartDisabled {
		t.Fatalf("after select: value %q disabled %v", m.app.Value(), m.app.StartDisabled)
	}

	_, cmd := m.Update(keyPress("t"))
	if cmd == nil {
		t.Fatal("t with a selection should start training")
	}
	m.Update(cmd())
	if m.app.Training {
		t.Error("Training still set after trainDoneMsg")
	}
	if len(tr.got) != 1 || tr.got[0].ModelPath != "/models/org-big" || tr.got[0].BatchSize != 8 {
		t.Errorf("train requests = %+v", tr.got)
	}

	m.Update(keyPress("x"))
	if !m.app.StartDisabled || m.app.Value() != "" {
		t.Error("clearing the selection should disable start")
	}
}

func TestForm_EmptyInputIgnored(t *testing.T) {
	b := &countingBackend{}
	m, _ := newTestModel(t, b)
	m.Update(keyPress("d"))
	if m.app.InputMode != InputModeForm {
		t.Fatal("d should open the download form")
	}
	typeText(m, "   ")
	m.Update(keyPress("enter"))
	if m.app.InputMode != InputModeForm || m.app.Notice != "" {
		t.Errorf("empty submit changed state: mode %v notice %q", m.app.InputMode, m.app.Notice)
	}
	if len(m.ctrl.ActiveDownloads()) != 0 {
		t.Error("empty submit started a download")
	}
}

func TestForm_SubmitAndDuplicate(t *testing.T) {
	b := &countingBackend{}
	m, _ := newTestModel(t, b)
	submit := func(id, name string) {
		m.Update(keyPress("d"))
		typeText(m, id)
		m.Update(keyPress("tab"))
		typeText(m, name)
		m.Update(keyPress("enter"))
	}
	submit("org/m1", "m1")
	if m.app.InputMode != InputModeNormal {
		t.Error("successful submit should close the form")
	}
	if got := m.ctrl.ActiveDownloads(); len(got) != 1 || got[0] != "org/m1" {
		t.Fatalf("ActiveDownloads = %v", got)
	}
	submit("org/m1", "again")
	if !m.app.NoticeErr || !strings.Contains(m.app.Notice, "already in progress") {
		t.Errorf("duplicate notice = %q", m.app.Notice)
	}
	m.Update(keyPress("esc"))
}

func TestCancelRemovesDownloadRow(t *testing.T) {
	m, _, out := newTestModelWithOutbox(t, &countingBackend{})
	m.Update(keyPress("d"))
	typeText(m, "org/m1")
	m.Update(keyPress("tab"))
	typeText(m, "m1")
	m.Update(keyPress("enter"))

	deadline := time.Now().Add(2 * time.Second)
	for len(m.app.Downloads) == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
		out.deliver(m)
	}
	if m.app.LatestPending() != "org/m1" {
		t.Fatalf("LatestPending = %q before cancel", m.app.LatestPending())
	}

	m.Update(keyPress("c"))
	for len(m.ctrl.ActiveDownloads()) > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	out.deliver(m)
	if len(m.app.Downloads) != 0 {
		t.Errorf("rows after cancel = %+v", m.app.Downloads)
	}
	if m.app.LatestPending() != "" {
		t.Errorf("LatestPending after cancel = %q", m.app.LatestPending())
	}
	if !strings.Contains(m.app.Notice, "Cancelled download of org/m1") {
		t.Errorf("notice = %q", m.app.Notice)
	}
}

func TestDownloadRows(t *testing.T) {
	m, _ := newTestModel(t, &countingBackend{})
	m.Update(flowShowMsg{flowID: "f1", modelID: "m1", msg: download.Message{Text: download.MsgDownloading}})
	m.Update(flowShowMsg{flowID: "f2", modelID: "m2", msg: download.Message{Text: download.MsgDownloading}})
	m.Update(flowShowMsg{flowID: "f1", modelID: "m1", msg: download.Message{Text: download.MsgComplete, Tone: download.ToneSuccess}})
	if len(m.app.Downloads) != 2 || m.app.Downloads[0].Msg.Text != download.MsgComplete {
		t.Fatalf("rows = %+v", m.app.Downloads)
	}
	if m.app.LatestPending() != "m2" {
		t.Errorf("LatestPending = %q", m.app.LatestPending())
	}
	m.Update(flowHideMsg{flowID: "f1"})
	if len(m.app.Downloads) != 1 || m.app.Downloads[0].FlowID != "f2" {
		t.Errorf("rows after hide = %+v", m.app.Downloads)
	}
	out := m.View()
	if !strings.Contains(out, "m2") || strings.Contains(out, download.MsgComplete) {
		t.Errorf("view does not reflect rows:\n%s", out)
	}
}

func TestLogMessages(t *testing.T) {
	m, _ := newTestModel(t, &countingBackend{})
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 30})
	m.Update(logTextMsg{text: "a\nb\nc\n"})
	m.Update(logScrollMsg{})
	if !strings.Contains(m.logView.View(), "c") {
		t.Errorf("log view = %q", m.logView.View())
	}
	if !m.logView.AtBottom() {
		t.Error("log view not at bottom after scroll message")
	}
}

func TestTruncPad(t *testing.T) {
	if got := truncPad("abc", 5); got != "abc  " {
		t.Errorf("truncPad pad = %q", got)
	}
	if got := truncPad("abcdef", 4); got != "abc…" {
		t.Errorf("truncPad trunc = %q", got)
	}
}

func TestStatusBar(t *testing.T) {
	m, _ := newTestModel(t, &countingBackend{})
	if out := m.View(); !strings.Contains(out, "NORMAL") || !strings.Contains(out, "train") {
		t.Errorf("normal status bar missing key help:\n%s", out)
	}
	m.Update(keyPress("d"))
	if out := m.View(); !strings.Contains(out, "DOWNLOAD") {
		t.Errorf("form status bar missing mode:\n%s", out)
	}
}
