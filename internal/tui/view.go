package tui

import (
	"fmt"
	"strings"

	"github.com/shayne-snap/traindash/internal/download"

	"github.com/charmbracelet/lipgloss"
)

var (
	styleTitle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
	styleDim    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	styleNormal = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	styleCyan   = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	styleYellow = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	styleGreen  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	styleRed    = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	styleStatus = lipgloss.NewStyle().Background(lipgloss.Color("10")).Foreground(lipgloss.Color("0")).Bold(true)

	block = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("8")).
		Padding(0, 1)
)

const (
	headerHeight = 3
	panelHeight  = 8
	statusHeight = 1
)

// logViewSize returns the log viewport's inner width and height for the window.
func logViewSize(app *App) (int, int) {
	w, h := dims(app)
	lw := w - 4
	if lw < 20 {
		lw = 20
	}
	lh := h - headerHeight - (panelHeight + 2) - 2 - statusHeight
	if lh < 3 {
		lh = 3
	}
	return lw, lh
}

func dims(app *App) (int, int) {
	w, h := app.Width, app.Height
	if w <= 0 {
		w = 80
	}
	if h <= 0 {
		h = 24
	}
	return w, h
}

// Render returns the full TUI view. logView, form and keys are pre-rendered bubbles; spin is
// the current spinner frame.
func Render(app *App, logView, form, spin, keys string) string {
	w, _ := dims(app)
	half := w/2 - 1
	if half < 24 {
		half = 24
	}
	left := renderModels(app, half)
	right := renderDownloads(app, half, form, spin)
	panels := lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	logs := block.Render(styleNormal.Render(" Training Logs ") + "\n" + logView)
	return lipgloss.JoinVertical(lipgloss.Left, renderHeader(app), panels, logs, renderStatusBar(app, keys))
}

func renderHeader(app *App) string {
	title := styleTitle.Render(" traindash ")
	hostLine := styleDim.Render("host unknown")
	if app.Host != nil {
		hostLine = styleCyan.Render(app.Host.Summary())
	}
	return block.Render(title + " " + hostLine)
}

func renderModels(app *App, width int) string {
	var lines []string
	if len(app.Models) == 0 {
		lines = append(lines, styleDim.Render("No models configured"))
	}
	first := 0
	visible := panelHeight - 2
	if app.Cursor >= visible {
		first = app.Cursor - visible + 1
	}
	for i := first; i < len(app.Models) && i < first+visible; i++ {
		mark := "  "
		if i == app.Selected {
			mark = styleGreen.Render("● ")
		}
		name := truncPad(app.Models[i].Name, width-8)
		if i == app.Cursor {
			lines = append(lines, lipgloss.NewStyle().Background(lipgloss.Color("8")).Bold(true).Render("▶ "+mark+name))
		} else {
			lines = append(lines, "  "+mark+styleNormal.Render(name))
		}
	}
	for len(lines) < visible {
		lines = append(lines, "")
	}

	button := "[ Start Training (t) ]"
	switch {
	case app.Training:
		button = styleYellow.Render("[ Training… ]")
	case app.StartDisabled:
		button = styleDim.Render(button)
	default:
		button = styleGreen.Bold(true).Render(button)
	}
	lines = append(lines, "", button)
	return block.Width(width).Render(styleNormal.Render(" Models ") + "\n" + strings.Join(lines, "\n"))
}

func toneStyle(t download.Tone) lipgloss.Style {
	switch t {
	case download.ToneError:
		return styleRed
	default:
		return styleGreen
	}
}

func renderDownloads(app *App, width int, form, spin string) string {
	var lines []string
	if form != "" {
		lines = append(lines, styleYellow.Render("Download model (Enter to submit, Tab to switch, Esc to close)"), form, "")
	}
	for _, r := range app.Downloads {
		prefix := "  "
		if r.Msg.Tone == download.TonePending {
			prefix = spin + " "
		}
		lines = append(lines, prefix+styleCyan.Render(truncPad(r.ModelID, width-8)))
		lines = append(lines, "  "+toneStyle(r.Msg.Tone).Render(r.Msg.Text))
	}
	if len(lines) == 0 {
		lines = append(lines, styleDim.Render("No downloads. Press d to download a model."))
	}
	if app.Notice != "" {
		st := styleGreen
		if app.NoticeErr {
			st = styleRed
		}
		lines = append(lines, "", st.Render(app.Notice))
	}
	title := fmt.Sprintf(" Downloads (%d) ", len(app.Downloads))
	return block.Width(width).Render(styleNormal.Render(title) + "\n" + strings.Join(lines, "\n"))
}

func renderStatusBar(app *App, help string) string {
	if app.InputMode == InputModeForm {
		return styleStatus.Render(" DOWNLOAD ") + styleDim.Render("  Type model id and name  Tab:switch  Enter:submit  Esc:close")
	}
	return styleStatus.Render(" NORMAL ") + " " + help
}

func truncPad(s string, w int) string {
	if w < 2 {
		w = 2
	}
	runes := []rune(s)
	if len(runes) <= w {
		return s + strings.Repeat(" ", w-len(runes))
	}
	return string(runes[:w-1]) + "…"
}
