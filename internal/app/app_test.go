package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tellmewhen/internal/config"
	"tellmewhen/internal/event"
	"tellmewhen/internal/listener"
	"tellmewhen/internal/scheduler"
	logx "tellmewhen/pkg/logx"
)

type result struct {
	reason StopReason
	err    error
}

func startApp(t *testing.T, ctx context.Context, sp scheduler.Spawner) (*App, chan result) {
	t.Helper()
	a, err := New(Config{
		Options: config.DefaultOptions(),
		Events: []event.Definition{{
			Name:       "stretch",
			Command:    []string{"true"},
			Separation: time.Second,
			Triggers:   []event.TriggerDefinition{{Offset: 0}},
		}},
		ListenAddr: "127.0.0.1:0",
		Spawner:    sp,
	}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	done := make(chan result, 1)
	go func() {
		r, err := a.Run(ctx)
		done <- result{r, err}
	}()
	select {
	case <-a.Ready():
	case r := <-done:
		t.Fatalf("Run returned early: %v %v", r.reason, r.err)
	case <-time.After(5 * time.Second):
		t.Fatal("app not ready")
	}
	return a, done
}

func send(t *testing.T, a *App, cmd string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := listener.Send(ctx, a.Addr().String(), cmd); err != nil {
		t.Fatalf("Send(%q): %v", cmd, err)
	}
}

func wait(t *testing.T, done chan result) result {
	t.Helper()
	select {
	case r := <-done:
		return r
	case <-time.After(10 * time.Second):
		t.Fatal("Run did not return")
		return result{}
	}
}

func TestStartFiresThenQuit(t *testing.T) {
	fired := make(chan []string, 8)
	sp := scheduler.SpawnerFunc(func(_ context.Context, argv []string) error {
		select {
		case fired <- argv:
		default:
		}
		return nil
	})
	a, done := startApp(t, context.Background(), sp)

	// start_delay == separation, so the first trigger is due immediately.
	send(t, a, "start stretch")
	select {
	case argv := <-fired:
		if len(argv) != 1 || argv[0] != "true" {
			t.Fatalf("fired %v", argv)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event did not fire")
	}

	send(t, a, "quit")
	r := wait(t, done)
	if r.err != nil || r.reason != StopQuit {
		t.Fatalf("Run = %v, %v; want quit", r.reason, r.err)
	}
}

func TestContextCancelStops(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	_, done := startApp(t, ctx, scheduler.SpawnerFunc(func(context.Context, []string) error { return nil }))

	cancel()
	r := wait(t, done)
	if r.err != nil || r.reason != StopSignal {
		t.Fatalf("Run = %v, %v; want signal", r.reason, r.err)
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	t.Parallel()
	opts := config.DefaultOptions()
	opts.MinCmdSeparation = 0
	if _, err := New(Config{Options: opts}, logx.Nop()); err == nil {
		t.Fatal("expected error for min_cmd_separation = 0")
	}
}

func TestRunWithWatcherStopsCleanly(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.json")
	body := `{"events": [{"name": "stretch", "command": ["true"], "separation_time": 60, "triggers": [{"offset_time": 0}]}]}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	defs, err := config.LoadFiles([]string{path})
	if err != nil {
		t.Fatalf("LoadFiles: %v", err)
	}

	a, err := New(Config{
		Options:    config.DefaultOptions(),
		Events:     defs,
		Files:      []string{path},
		Watch:      true,
		ListenAddr: "127.0.0.1:0",
		Spawner:    scheduler.SpawnerFunc(func(context.Context, []string) error { return nil }),
	}, logx.Nop())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if a.watch == nil {
		t.Fatal("watcher not configured")
	}
	if c, err := a.watch.Check(); err != nil || !c.Empty() {
		t.Fatalf("running catalog differs from its own file: %+v, %v", c, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan result, 1)
	go func() {
		r, err := a.Run(ctx)
		done <- result{r, err}
	}()
	select {
	case <-a.Ready():
	case <-time.After(5 * time.Second):
		t.Fatal("app not ready")
	}
	cancel()
	if r := wait(t, done); r.err != nil || r.reason != StopSignal {
		t.Fatalf("Run = %v, %v; want signal", r.reason, r.err)
	}
}
