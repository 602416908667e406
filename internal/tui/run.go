package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shayne-snap/traindash/internal/api"
	"github.com/shayne-snap/traindash/internal/config"
	"github.com/shayne-snap/traindash/internal/dashboard"
	"github.com/shayne-snap/traindash/internal/download"
	"github.com/shayne-snap/traindash/internal/host"
	"github.com/shayne-snap/traindash/internal/stream"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
)

// Trainer starts a training run on the backend.
type Trainer interface {
	StartTraining(ctx context.Context, tr api.TrainRequest) error
}

// Options carries everything the TUI needs; all fields are required except Host and Logger.
type Options struct {
	Config *config.Config
	Client *api.Client
	Policy download.Policy
	Host   *host.Specs
	Logger *slog.Logger
}

// Run starts the TUI and blocks until the user quits.
func Run(opts Options) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app := NewApp(opts.Config.Models, opts.Host)
	m := newModel(ctx, app, opts.Client, opts.Config.Training)
	p := tea.NewProgram(m, tea.WithAltScreen())

	surface := dashboard.Surface{
		ModelSelect: app,
		StartButton: app,
		LogView:     &logView{send: p.Send},
		Downloads: func(flowID, modelID string) download.Sink {
			return &flowSink{send: p.Send, flowID: flowID, modelID: modelID}
		},
	}
	events := &stream.Subscriber{
		URL:    opts.Client.StreamURL(),
		Retry:  opts.Config.LogStream.Retry(),
		Logger: opts.Logger,
	}
	m.ctrl = dashboard.New(surface, dashboard.Options{
		Events:   events,
		Backend:  opts.Client,
		Policy:   opts.Policy,
		LogLines: opts.Config.LogStream.BufferLines,
		Logger:   opts.Logger,
	})
	m.ctrl.Start(ctx)

	_, err := p.Run()
	cancel()
	m.ctrl.Stop()
	return err
}

type (
	logTextMsg   struct{ text string }
	logScrollMsg struct{}
	flowShowMsg  struct {
		flowID, modelID string
		msg             download.Message
	}
	flowHideMsg  struct{ flowID string }
	trainDoneMsg struct {
		model string
		err   error
	}
)

// logView forwards the controller's log updates onto the event loop.
type logView struct {
	send func(tea.Msg)
}

func (v *logView) SetText(text string) { v.send(logTextMsg{text: text}) }
func (v *logView) ScrollToBottom()     { v.send(logScrollMsg{}) }

// flowSink is the output region of one download flow.
type flowSink struct {
	send            func(tea.Msg)
	flowID, modelID string
}

func (s *flowSink) Show(msg download.Message) {
	s.send(flowShowMsg{flowID: s.flowID, modelID: s.modelID, msg: msg})
}

func (s *flowSink) Hide() { s.send(flowHideMsg{flowID: s.flowID}) }

type model struct {
	ctx      context.Context
	app      *App
	ctrl     *dashboard.Controller
	trainer  Trainer
	training config.TrainingConfig

	logView   viewport.Model
	idInput   textinput.Model
	nameInput textinput.Model
	spin      spinner.Model
	keys      keyMap
	help      help.Model
}

func newModel(ctx context.Context, app *App, trainer Trainer, training config.TrainingConfig) *model {
	id := textinput.New()
	id.Placeholder = "org/model (hf_model_id)"
	id.CharLimit = 200
	name := textinput.New()
	name.Placeholder = "display name"
	name.CharLimit = 100
	lv := viewport.New(80, 10)
	lv.SetContent("waiting for training logs…")
	return &model{
		ctx:       ctx,
		app:       app,
		trainer:   trainer,
		training:  training,
		logView:   lv,
		idInput:   id,
		nameInput: name,
		spin:      spinner.New(),
		keys:      newKeyMap(),
		help:      help.New(),
	}
}

func (m *model) Init() tea.Cmd {
	return m.spin.Tick
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.app.Width = msg.Width
		m.app.Height = msg.Height
		m.logView.Width, m.logView.Height = logViewSize(m.app)
		m.help.Width = msg.Width
		return m, nil
	case logTextMsg:
		m.logView.SetContent(msg.text)
		return m, nil
	case logScrollMsg:
		m.logView.GotoBottom()
		return m, nil
	case flowShowMsg:
		m.app.ShowDownload(msg.flowID, msg.modelID, msg.msg)
		return m, nil
	case flowHideMsg:
		m.app.HideDownload(msg.flowID)
		return m, nil
	case trainDoneMsg:
		m.app.Training = false
		if msg.err != nil {
			m.app.SetNotice("❌ Training failed: "+msg.err.Error(), true)
		} else {
			m.app.SetNotice("✅ Training finished for "+msg.model, false)
		}
		return m, nil
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	case tea.KeyMsg:
		var cmd tea.Cmd
		switch m.app.InputMode {
		case InputModeNormal:
			cmd = m.handleNormal(msg)
		case InputModeForm:
			cmd = m.handleForm(msg)
		}
		if m.app.ShouldQuit {
			return m, tea.Quit
		}
		return m, cmd
	}
	return m, nil
}

func (m *model) handleNormal(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.app.ShouldQuit = true
	case key.Matches(msg, m.keys.Up):
		m.app.MoveUp()
	case key.Matches(msg, m.keys.Down):
		m.app.MoveDown()
	case key.Matches(msg, m.keys.Select):
		m.ctrl.SelectionChanged(m.app.SelectCursor())
	case key.Matches(msg, m.keys.Clear):
		m.ctrl.SelectionChanged(m.app.ClearSelection())
	case key.Matches(msg, m.keys.Train):
		return m.startTraining()
	case key.Matches(msg, m.keys.Download):
		m.openForm()
	case key.Matches(msg, m.keys.Cancel):
		if id := m.app.LatestPending(); id != "" && m.ctrl.CancelDownload(id) {
			m.app.SetNotice("Cancelled download of "+id, false)
		}
	case key.Matches(msg, m.keys.Page):
		var cmd tea.Cmd
		m.logView, cmd = m.logView.Update(msg)
		return cmd
	case key.Matches(msg, m.keys.Bottom):
		m.logView.GotoBottom()
	}
	return nil
}

func (m *model) startTraining() tea.Cmd {
	sel := m.app.SelectedModel()
	if m.app.StartDisabled || sel == nil || m.app.Training {
		return nil
	}
	m.app.Training = true
	m.app.SetNotice("⏳ Training "+sel.Name+"…", false)
	req := api.TrainRequest{
		ModelPath: sel.Path,
		LR:        m.training.LR,
		Steps:     m.training.Steps,
		BatchSize: m.training.BatchSize,
	}
	name := sel.Name
	ctx, trainer := m.ctx, m.trainer
	return func() tea.Msg {
		return trainDoneMsg{model: name, err: trainer.StartTraining(ctx, req)}
	}
}

func (m *model) openForm() {
	m.app.InputMode = InputModeForm
	m.nameInput.Blur()
	m.idInput.Focus()
}

func (m *model) closeForm() {
	m.app.InputMode = InputModeNormal
	m.idInput.Blur()
	m.nameInput.Blur()
}

func (m *model) handleForm(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.closeForm()
		return nil
	case "tab", "shift+tab", "up", "down":
		if m.idInput.Focused() {
			m.idInput.Blur()
			return m.nameInput.Focus()
		}
		m.nameInput.Blur()
		return m.idInput.Focus()
	case "enter":
		m.submitForm()
		return nil
	}
	var cmd tea.Cmd
	if m.idInput.Focused() {
		m.idInput, cmd = m.idInput.Update(msg)
	} else {
		m.nameInput, cmd = m.nameInput.Update(msg)
	}
	return cmd
}

func (m *model) submitForm() {
	_, err := m.ctrl.SubmitDownload(m.idInput.Value(), m.nameInput.Value())
	switch {
	case errors.Is(err, download.ErrInvalidInput):
		return
	case err != nil:
		m.app.SetNotice(fmt.Sprintf("❌ %v", err), true)
		return
	}
	m.app.SetNotice("", false)
	m.idInput.SetValue("")
	m.nameInput.SetValue("")
	m.closeForm()
}

func (m *model) View() string {
	return Render(m.app, m.logView.View(), m.formView(), m.spin.View(), m.help.View(m.keys))
}

func (m *model) formView() string {
	if m.app.InputMode != InputModeForm {
		return ""
	}
	return m.idInput.View() + "\n" + m.nameInput.View()
}
