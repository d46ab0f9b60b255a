package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"tellmewhen/internal/event"
	logx "tellmewhen/pkg/logx"
)

const validJSON = `{
  "events": [
    {"name": "stretch", "command": ["notify-send", "stretch"], "separation_time": 1800,
     "triggers": [{"offset_time": 0}, {"offset_time": -60.5}]}
  ]
}`

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write %s: %v", p, err)
	}
	return p
}

func TestParseBytesJSON(t *testing.T) {
	t.Parallel()
	defs, err := ParseBytes("events.json", []byte(validJSON))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if len(defs) != 1 {
		t.Fatalf("len(defs) = %d, want 1", len(defs))
	}
	d := defs[0]
	if d.Name != "stretch" || len(d.Command) != 2 || d.Separation != 30*time.Minute {
		t.Fatalf("unexpected def: %+v", d)
	}
	if len(d.Triggers) != 2 || d.Triggers[1].Offset != -60500*time.Millisecond {
		t.Fatalf("unexpected triggers: %+v", d.Triggers)
	}
}

func TestParseBytesYAML(t *testing.T) {
	t.Parallel()
	body := `
events:
  - name: water
    command: [echo, drink]
    separation_time: 2.5
    triggers:
      - offset_time: 1
`
	defs, err := ParseBytes("events.yaml", []byte(body))
	if err != nil {
		t.Fatalf("ParseBytes: %v", err)
	}
	if len(defs) != 1 || defs[0].Separation != 2500*time.Millisecond || defs[0].Triggers[0].Offset != time.Second {
		t.Fatalf("unexpected defs: %+v", defs)
	}
}

func TestParseBytesCollectsFieldErrors(t *testing.T) {
	t.Parallel()
	body := `{"events": [
	  {"name": 1, "command": [], "separation_time": 0, "triggers": [{"offset_time": "x"}]},
	  {"name": "ok", "command": ["true"], "separation_time": 1, "triggers": [], "extra": true},
	  {"name": "huge", "command": ["true"], "separation_time": 1e10, "triggers": [{"offset_time": -1e10}]},
	  {"name": "tiny", "command": ["true"], "separation_time": 1e-12, "triggers": []}
	]}`
	_, err := ParseBytes("bad.json", []byte(body))
	v, ok := AsValidationErrors(err)
	if !ok {
		t.Fatalf("expected ValidationErrors, got %v", err)
	}

	want := []string{
		"bad.json: events[0].name",
		"bad.json: events[0].command",
		"bad.json: events[0].separation_time",
		"bad.json: events[0].triggers[0].offset_time",
		"bad.json: events[1]",
		"bad.json: events[2].separation_time",
		"bad.json: events[2].triggers[0].offset_time",
		"bad.json: events[3].separation_time",
	}
	if len(v) != len(want) {
		t.Fatalf("got %d errors, want %d:\n%v", len(v), len(want), v)
	}
	for i, p := range want {
		if v[i].Path != p {
			t.Fatalf("error %d path = %q, want %q", i, v[i].Path, p)
		}
	}
	if !strings.Contains(v[4].Msg, "unexpected: extra") {
		t.Fatalf("missing unexpected property hint: %q", v[4].Msg)
	}
}

func TestParseBytesRejectsBadDocuments(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		path string
		body string
	}{
		{name: "invalid json", path: "a.json", body: `{`},
		{name: "trailing data", path: "a.json", body: `{"events": []} {}`},
		{name: "not an object", path: "a.json", body: `[]`},
		{name: "missing events", path: "a.json", body: `{}`},
		{name: "events not a list", path: "a.json", body: `{"events": {}}`},
		{name: "invalid yaml", path: "a.yml", body: "events: [\n"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseBytes(tt.path, []byte(tt.body)); err == nil {
				t.Fatalf("expected error for %q", tt.body)
			}
		})
	}
}

func TestLoadFilesConcatenatesAndRejectsDuplicates(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	a := writeFile(t, dir, "a.json", validJSON)
	b := writeFile(t, dir, "b.yaml", "events:\n  - {name: other, command: [x], separation_time: 1, triggers: []}\n")

	defs, err := LoadFiles([]string{a, b})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}
	if len(defs) != 2 || defs[0].Name != "stretch" || defs[1].Name != "other" {
		t.Fatalf("unexpected defs: %+v", defs)
	}

	dup := writeFile(t, dir, "dup.json", validJSON)
	_, err = LoadFiles([]string{a, dup})
	v, ok := AsValidationErrors(err)
	if !ok || len(v) != 1 || !strings.Contains(v[0].Msg, "duplicate event name") {
		t.Fatalf("expected duplicate error, got %v", err)
	}

	if _, err := LoadFiles(nil); err == nil {
		t.Fatal("expected error for no files")
	}
	if _, err := LoadFiles([]string{filepath.Join(dir, "missing.json")}); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestOptionsDefaultsAndValidate(t *testing.T) {
	t.Parallel()
	o := DefaultOptions()
	if o.SocketHost != "localhost" || o.SocketPort != 58732 || o.StartDelay != time.Second || o.MinCmdSeparation != 2*time.Second {
		t.Fatalf("unexpected defaults: %+v", o)
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if o.Addr() != "localhost:58732" {
		t.Fatalf("Addr = %s", o.Addr())
	}

	o.MinCmdSeparation = 0
	o.SocketPort = 0
	err := o.Validate()
	v, ok := AsValidationErrors(err)
	if !ok || len(v) != 2 {
		t.Fatalf("expected 2 errors, got %v", err)
	}
}

func TestParseSecondsField(t *testing.T) {
	t.Parallel()
	tests := []struct {
		raw  string
		want time.Duration
		ok   bool
	}{
		{raw: "1", want: time.Second, ok: true},
		{raw: "0.25", want: 250 * time.Millisecond, ok: true},
		{raw: "-1.5", want: -1500 * time.Millisecond, ok: true},
		{raw: "1500ms", want: 1500 * time.Millisecond, ok: true},
		{raw: "", ok: false},
		{raw: "soon", ok: false},
		{raw: "NaN", ok: false},
		{raw: "9e9", want: 9e9 * time.Second, ok: true},
		{raw: "1e10", ok: false},
		{raw: "-1e10", ok: false},
	}
	for _, tt := range tests {
		got, err := ParseSecondsField("start_delay", tt.raw)
		if (err == nil) != tt.ok {
			t.Fatalf("ParseSecondsField(%q) err = %v, ok want %v", tt.raw, err, tt.ok)
		}
		if tt.ok && got != tt.want {
			t.Fatalf("ParseSecondsField(%q) = %v, want %v", tt.raw, got, tt.want)
		}
	}
}

func TestSummarizeChange(t *testing.T) {
	t.Parallel()
	oldDefs := []event.Definition{
		{Name: "a", Command: []string{"x"}, Separation: time.Second},
		{Name: "b", Command: []string{"y"}, Separation: time.Second},
	}
	newDefs := []event.Definition{
		{Name: "a", Command: []string{"x"}, Separation: 2 * time.Second},
		{Name: "c", Command: []string{"z"}, Separation: time.Second},
	}
	c := SummarizeChange(oldDefs, newDefs)
	if len(c.Added) != 1 || c.Added[0] != "c" || len(c.Removed) != 1 || c.Removed[0] != "b" || len(c.Changed) != 1 || c.Changed[0] != "a" {
		t.Fatalf("unexpected change: %+v", c)
	}
	if !SummarizeChange(oldDefs, oldDefs).Empty() {
		t.Fatal("identical defs should produce empty change")
	}
}

func TestWatcherReportsDrift(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "events.json", validJSON)
	running, err := LoadFiles([]string{p})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}

	w := NewWatcher([]string{p}, running, logx.Nop())
	w.debounce = 10 * time.Millisecond
	type result struct {
		c   Change
		err error
	}
	got := make(chan result, 8)
	w.onCheck = func(c Change, err error) {
		select {
		case got <- result{c, err}:
		default:
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Watch(ctx)
		close(done)
	}()

	// give the watcher a moment to register the directory
	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "events.json", strings.Replace(validJSON, "1800", "900", 1))

	// A partial write may be observed first; wait for the settled result.
	deadline := time.After(5 * time.Second)
	for reported := false; !reported; {
		select {
		case r := <-got:
			if r.err != nil || r.c.Empty() {
				continue
			}
			if len(r.c.Changed) != 1 || r.c.Changed[0] != "stretch" {
				t.Fatalf("unexpected change: %+v", r.c)
			}
			reported = true
		case <-deadline:
			t.Fatal("watcher did not report change")
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatcherWaitsForRunningCheck(t *testing.T) {
	dir := t.TempDir()
	p := writeFile(t, dir, "events.json", validJSON)
	running, err := LoadFiles([]string{p})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}

	w := NewWatcher([]string{p}, running, logx.Nop())
	w.debounce = 10 * time.Millisecond
	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	var once sync.Once
	w.onCheck = func(Change, error) {
		once.Do(func() {
			entered <- struct{}{}
			<-release
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		w.Watch(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	writeFile(t, dir, "events.json", strings.Replace(validJSON, "1800", "900", 1))
	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("check did not run")
	}

	cancel()
	select {
	case <-done:
		t.Fatal("Watch returned while a check was still running")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after the check finished")
	}
}
