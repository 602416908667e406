package tui

import (
	"github.com/shayne-snap/traindash/internal/config"
	"github.com/shayne-snap/traindash/internal/download"
	"github.com/shayne-snap/traindash/internal/host"
)

// InputMode is the current TUI input mode (normal or download form).
type InputMode int

const (
	InputModeNormal InputMode = iota
	InputModeForm
)

// DownloadRow is the status line of one download flow.
type DownloadRow struct {
	FlowID  string
	ModelID string
	Msg     download.Message
}

// App holds the TUI state: the model picker, the start-button gate and download rows.
// Its methods run on the bubbletea event loop only.
type App struct {
	ShouldQuit bool
	InputMode  InputMode

	Host   *host.Specs
	Models []config.ModelEntry
	Cursor int
	// Selected is the index of the chosen model, -1 for none.
	Selected      int
	StartDisabled bool
	Training      bool

	Downloads []*DownloadRow

	Notice    string
	NoticeErr bool

	Width  int
	Height int
}

func NewApp(models []config.ModelEntry, specs *host.Specs) *App {
	return &App{
		Host:          specs,
		Models:        models,
		Selected:      -1,
		StartDisabled: true,
	}
}

// Value is the selected model path, or "" when nothing is selected.
func (a *App) Value() string {
	if a.Selected < 0 || a.Selected >= len(a.Models) {
		return ""
	}
	return a.Models[a.Selected].Path
}

func (a *App) SetDisabled(disabled bool) {
	a.StartDisabled = disabled
}

// SelectedModel returns the chosen model entry or nil.
func (a *App) SelectedModel() *config.ModelEntry {
	if a.Selected < 0 || a.Selected >= len(a.Models) {
		return nil
	}
	return &a.Models[a.Selected]
}

func (a *App) MoveUp() {
	if a.Cursor > 0 {
		a.Cursor--
	}
}

func (a *App) MoveDown() {
	if len(a.Models) > 0 && a.Cursor < len(a.Models)-1 {
		a.Cursor++
	}
}

// SelectCursor chooses the model under the cursor and returns the new selection value.
func (a *App) SelectCursor() string {
	if len(a.Models) == 0 {
		return a.Value()
	}
	a.Selected = a.Cursor
	return a.Value()
}

// ClearSelection drops the choice and returns "".
func (a *App) ClearSelection() string {
	a.Selected = -1
	return a.Value()
}

// ShowDownload updates (or adds) the row for flowID.
func (a *App) ShowDownload(flowID, modelID string, msg download.Message) {
	for _, r := range a.Downloads {
		if r.FlowID == flowID {
			r.Msg = msg
			return
		}
	}
	a.Downloads = append(a.Downloads, &DownloadRow{FlowID: flowID, ModelID: modelID, Msg: msg})
}

// HideDownload removes the row for flowID.
func (a *App) HideDownload(flowID string) {
	for i, r := range a.Downloads {
		if r.FlowID == flowID {
			a.Downloads = append(a.Downloads[:i], a.Downloads[i+1:]...)
			return
		}
	}
}

// LatestPending returns the model id of the newest row still downloading, or "".
func (a *App) LatestPending() string {
	for i := len(a.Downloads) - 1; i >= 0; i-- {
		if a.Downloads[i].Msg.Tone == download.TonePending {
			return a.Downloads[i].ModelID
		}
	}
	return ""
}

func (a *App) SetNotice(text string, isErr bool) {
	a.Notice = text
	a.NoticeErr = isErr
}
