// Package stream consumes a text/event-stream endpoint the way a browser EventSource does:
// it parses events, reconnects after a retry delay and resumes with Last-Event-ID.
package stream

import (
	"bufio"
	"bytes"
	"io"
	"strconv"
	"strings"
	"time"
)

// maxLine bounds one field line; longer lines are skipped whole.
const maxLine = 1 << 20

var bom = []byte("\xef\xbb\xbf")

// Event is one dispatched server-sent event.
type Event struct {
	ID   string
	Name string
	Data string
}

// Decoder reads events from an event-stream body.
type Decoder struct {
	r       *bufio.Reader
	maxLine int
	skipLF  bool
	started bool

	lastID  string
	retry   time.Duration
	skipped int
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: bufio.NewReader(r), maxLine: maxLine}
}

// LastEventID is the most recent id: field seen, carried across events.
func (d *Decoder) LastEventID() string { return d.lastID }

// Retry is the last valid retry: field, or 0 when the server sent none.
func (d *Decoder) Retry() time.Duration { return d.retry }

// Skipped counts lines dropped for exceeding the line limit.
func (d *Decoder) Skipped() int { return d.skipped }

// Next returns the next event with a non-empty data buffer. A partial event at EOF is
// discarded and io.EOF returned.
func (d *Decoder) Next() (Event, error) {
	var (
		name string
		data strings.Builder
		has  bool
	)
	for {
		raw, tooLong, err := d.readLine()
		if err != nil {
			return Event{}, err
		}
		if tooLong {
			d.skipped++
			continue
		}
		line := string(raw)
		if line == "" {
			if !has {
				name = ""
				continue
			}
			s := data.String()
			return Event{ID: d.lastID, Name: name, Data: strings.TrimSuffix(s, "\n")}, nil
		}
		if line[0] == ':' {
			continue
		}
		field, value := line, ""
		if i := strings.IndexByte(line, ':'); i >= 0 {
			field, value = line[:i], strings.TrimPrefix(line[i+1:], " ")
		}
		switch field {
		case "event":
			name = value
		case "data":
			data.WriteString(value)
			data.WriteByte('\n')
			has = true
		case "id":
			if !strings.ContainsRune(value, 0) {
				d.lastID = value
			}
		case "retry":
			if n, err := strconv.Atoi(value); err == nil && n >= 0 && isDigits(value) {
				d.retry = time.Duration(n) * time.Millisecond
			}
		}
	}
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

// readLine returns the next line without its \n, \r\n or lone \r terminator. A line
// longer than maxLine is consumed and reported with tooLong set. An unterminated line at
// EOF is dropped.
func (d *Decoder) readLine() (line []byte, tooLong bool, err error) {
	for {
		b, err := d.r.ReadByte()
		if err != nil {
			return nil, false, err
		}
		if d.skipLF {
			d.skipLF = false
			if b == '\n' {
				continue
			}
		}
		if b == '\r' || b == '\n' {
			d.skipLF = b == '\r'
			if !d.started {
				d.started = true
				line = bytes.TrimPrefix(line, bom)
			}
			return line, tooLong, nil
		}
		if tooLong {
			continue
		}
		if len(line) >= d.maxLine {
			tooLong, line = true, nil
			continue
		}
		line = append(line, b)
	}
}
