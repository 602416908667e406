// Package display handles CLI table and JSON output for host specs, download status and
// configured models, plus a line-oriented sink for download messages.
package display

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"sort"
	"sync"
	"text/template"

	"github.com/olekukonko/tablewriter"
	"github.com/shayne-snap/traindash/internal/api"
	"github.com/shayne-snap/traindash/internal/config"
	"github.com/shayne-snap/traindash/internal/download"
	"github.com/shayne-snap/traindash/internal/host"
)

var systemTpl = template.Must(template.New("system").Parse(
	`
=== Host ===
CPU: {{.CPUName}} ({{.CPUCores}} cores)
Total RAM: {{.TotalRAMGB}}
Available RAM: {{.AvailableRAMGB}}{{if .WSL}} (WSL){{end}}
GPU: {{.GPU}}

`))

// System prints host specs to out (text or JSON).
func System(out io.Writer, specs *host.Specs, useJSON bool) {
	if useJSON {
		writeJSON(out, map[string]interface{}{"system": specs})
		return
	}
	gpu := "Not detected"
	if specs.GPU != nil {
		gpu = specs.GPU.String()
	}
	_ = systemTpl.Execute(out, struct {
		CPUName                    string
		CPUCores                   int
		TotalRAMGB, AvailableRAMGB string
		WSL                        bool
		GPU                        string
	}{
		CPUName:        specs.CPUName,
		CPUCores:       specs.CPUCores,
		TotalRAMGB:     fmt.Sprintf("%.2f GB", specs.TotalRAMGB),
		AvailableRAMGB: fmt.Sprintf("%.2f GB", specs.AvailableRAMGB),
		WSL:            specs.WSL,
		GPU:            gpu,
	})
}

// Status prints the report entries (only modelID when non-empty) as a table or JSON.
func Status(out io.Writer, modelID string, report api.StatusReport, useJSON bool) {
	ids := make([]string, 0, len(report))
	if modelID != "" {
		ids = append(ids, modelID)
	} else {
		for id := range report {
			ids = append(ids, id)
		}
		sort.Strings(ids)
	}
	if useJSON {
		entries := make(map[string]api.StatusEntry, len(ids))
		for _, id := range ids {
			if e, ok := report.Lookup(id); ok {
				entries[id] = e
			}
		}
		writeJSON(out, entries)
		return
	}
	tbl := tablewriter.NewWriter(out)
	tbl.Header("Model", "Status", "Progress", "Error")
	for _, id := range ids {
		e, ok := report.Lookup(id)
		if !ok {
			tbl.Append([]string{id, "unknown", "-", "-"})
			continue
		}
		tbl.Append([]string{id, string(e.Status), progressText(e.Progress), orDash(e.Error)})
	}
	_ = tbl.Render()
}

// Models prints the configured trainable models.
func Models(out io.Writer, models []config.ModelEntry, useJSON bool) {
	if useJSON {
		writeJSON(out, map[string]interface{}{"models": models})
		return
	}
	if len(models) == 0 {
		fmt.Fprintln(out, "\nNo models configured. Add entries under models: in the config file.")
		return
	}
	fmt.Fprintln(out, "\n=== Trainable Models ===")
	tbl := tablewriter.NewWriter(out)
	tbl.Header("#", "Name", "Path")
	for i, m := range models {
		tbl.Append([]string{fmt.Sprint(i + 1), m.Name, m.Path})
	}
	_ = tbl.Render()
}

func progressText(p *float64) string {
	if p == nil {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", math.Round(*p))
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeJSON(out io.Writer, v interface{}) {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// LineSink prints each download message as one line. Hide prints nothing.
type LineSink struct {
	mu     sync.Mutex
	out    io.Writer
	prefix string
	last   download.Message
}

func NewLineSink(out io.Writer, prefix string) *LineSink {
	return &LineSink{out: out, prefix: prefix}
}

func (s *LineSink) Show(m download.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = m
	fmt.Fprintln(s.out, s.prefix+m.Text)
}

func (s *LineSink) Hide() {}

// Last returns the most recent message shown.
func (s *LineSink) Last() download.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
