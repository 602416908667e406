package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func decodeAll(t *testing.T, body string) ([]Event, *Decoder) {
	t.Helper()
	d := NewDecoder(strings.NewReader(body))
	var out []Event
	for {
		ev, err := d.Next()
		if err == io.EOF {
			return out, d
		}
		if err != nil {
			t.Fatalf("Next error: %v", err)
		}
		out = append(out, ev)
	}
}

func TestDecoder_Events(t *testing.T) {
	tests := []struct {
		name string
		body string
		want []Event
	}{
		{"single", "data: a\n\n", []Event{{Data: "a"}}},
		{"sequence", "data: a\n\ndata: b\n\ndata: c\n\n", []Event{{Data: "a"}, {Data: "b"}, {Data: "c"}}},
		{"multi-line data", "data: one\ndata: two\n\n", []Event{{Data: "one\ntwo"}}},
		{"no space after colon", "data:x\n\n", []Event{{Data: "x"}}},
		{"only first space stripped", "data:  x\n\n", []Event{{Data: " x"}}},
		{"comment ignored", ": keepalive\ndata: a\n\n", []Event{{Data: "a"}}},
		{"named event", "event: progress\ndata: 5\n\n", []Event{{Name: "progress", Data: "5"}}},
		{"crlf", "data: a\r\n\r\ndata: b\r\n\r\n", []Event{{Data: "a"}, {Data: "b"}}},
		{"lone cr", "data: a\r\rdata: b\r\r", []Event{{Data: "a"}, {Data: "b"}}},
		{"empty data still dispatched", "data\n\n", []Event{{Data: ""}}},
		{"no data skipped", "event: x\n\ndata: y\n\n", []Event{{Data: "y"}}},
		{"partial at eof discarded", "data: a\n\ndata: b\n", []Event{{Data: "a"}}},
		{"id carried", "id: 7\ndata: a\n\ndata: b\n\n", []Event{{ID: "7", Data: "a"}, {ID: "7", Data: "b"}}},
		{"leading bom stripped", "\xef\xbb\xbfdata: a\n\n", []Event{{Data: "a"}}},
		{"bom only at stream start", "data: a\n\n\xef\xbb\xbfdata: b\n\n", []Event{{Data: "a"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := decodeAll(t, tt.body)
			if len(got) != len(tt.want) {
				t.Fatalf("got %d events %+v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("event %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestDecoder_Retry(t *testing.T) {
	_, d := decodeAll(t, "retry: 1500\ndata: a\n\nretry: soon\n\n")
	if d.Retry() != 1500*time.Millisecond {
		t.Errorf("Retry = %v, want 1.5s (invalid value ignored)", d.Retry())
	}
}

func TestDecoder_SkipsOversizedLine(t *testing.T) {
	body := "data: a\n\ndata: " + strings.Repeat("x", 64) + "\ndata: b\n\n"
	d := NewDecoder(strings.NewReader(body))
	d.maxLine = 16
	var got []string
	for {
		ev, err := d.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Fatalf("Next error: %v", err)
		}
		got = append(got, ev.Data)
	}
	if strings.Join(got, ",") != "a,b" {
		t.Errorf("events = %v, want [a b]", got)
	}
	if d.Skipped() != 1 {
		t.Errorf("Skipped = %d, want 1", d.Skipped())
	}
}

func sseHandler(lines ...string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for _, l := range lines {
			fmt.Fprintf(w, "data: %s\n\n", l)
		}
		if f, ok := w.(http.Flusher); ok {
			f.Flush()
		}
	}
}

func TestSubscriber_DeliversAndReconnects(t *testing.T) {
	var (
		mu       sync.Mutex
		conns    int
		lastIDs  []string
		received []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		conns++
		n := conns
		lastIDs = append(lastIDs, r.Header.Get("Last-Event-ID"))
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
		if n == 1 {
			fmt.Fprint(w, "retry: 10\nid: 1\ndata: a\n\nevent: other\ndata: skip\n\n")
			return
		}
		fmt.Fprint(w, "id: 2\nevent: message\ndata: b\n\n")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := &Subscriber{URL: srv.URL, Retry: time.Hour}
	done := make(chan error, 1)
	go func() {
		done <- s.Run(ctx, func(ev Event) {
			mu.Lock()
			received = append(received, ev.Data)
			got := len(received)
			mu.Unlock()
			if got == 2 {
				cancel()
			}
		})
	}()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run error = %v, want context.Canceled", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not reconnect using the server retry delay")
	}
	mu.Lock()
	defer mu.Unlock()
	if strings.Join(received, ",") != "a,b" {
		t.Errorf("received = %v, want [a b]", received)
	}
	if len(lastIDs) < 2 || lastIDs[0] != "" || lastIDs[1] != "1" {
		t.Errorf("Last-Event-ID headers = %v, want [\"\" \"1\" ...]", lastIDs)
	}
}

func TestSubscriber_FailsOnNonEventStream(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"404", func(w http.ResponseWriter, r *http.Request) { http.NotFound(w, r) }},
		{"html", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html></html>"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()
			s := &Subscriber{URL: srv.URL, Retry: time.Millisecond}
			err := s.Run(context.Background(), func(Event) {})
			if !errors.Is(err, ErrNotEventStream) {
				t.Errorf("Run error = %v, want ErrNotEventStream", err)
			}
		})
	}
}

func TestSubscriber_OrderPreserved(t *testing.T) {
	srv := httptest.NewServer(sseHandler("a", "b", "c"))
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got []string
	s := &Subscriber{URL: srv.URL, Retry: time.Hour}
	_ = s.Run(ctx, func(ev Event) {
		got = append(got, ev.Data)
		if len(got) == 3 {
			cancel()
		}
	})
	if strings.Join(got, "") != "abc" {
		t.Errorf("got %v", got)
	}
}

func TestSubscriber_OversizedLineKeepsConnection(t *testing.T) {
	var (
		mu    sync.Mutex
		conns int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		conns++
		mu.Unlock()
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "data: a\n\n")
		fmt.Fprintf(w, "data: %s\n\n", strings.Repeat("x", maxLine+10))
		fmt.Fprint(w, "data: b\n\n")
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	var got []string
	s := &Subscriber{URL: srv.URL, Retry: time.Hour}
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Run(ctx, func(ev Event) {
			got = append(got, ev.Data)
			if len(got) == 2 {
				cancel()
			}
		})
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("oversized line dropped the connection")
	}
	if strings.Join(got, ",") != "a,b" {
		t.Errorf("got %v, want [a b]", got)
	}
	mu.Lock()
	defer mu.Unlock()
	if conns != 1 {
		t.Errorf("connections = %d, want 1", conns)
	}
}
