// Package spawn starts event commands as detached child processes.
package spawn

import (
	"context"
	"errors"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	logx "tellmewhen/pkg/logx"
)

var ErrEmptyCommand = errors.New("empty command")

// Goer runs fn on its own goroutine. The runtime supervisor satisfies it;
// when nil, Exec falls back to plain `go`.
type Goer interface {
	Go(name string, fn func())
}

// GoerFunc adapts a function to Goer.
type GoerFunc func(name string, fn func())

func (f GoerFunc) Go(name string, fn func()) { f(name, fn) }

// Exec starts commands with os/exec and never waits for them on the caller's
// goroutine. Children are reaped in the background so they don't linger as
// zombies; their exit status is only logged.
type Exec struct {
	log    logx.Logger
	goer   Goer
	stdout io.Writer
	stderr io.Writer
}

type Option func(*Exec)

func WithGoer(g Goer) Option { return func(e *Exec) { e.goer = g } }

// WithOutput redirects child stdout/stderr (defaults to the server's own).
func WithOutput(stdout, stderr io.Writer) Option {
	return func(e *Exec) {
		e.stdout = stdout
		e.stderr = stderr
	}
}

func New(log logx.Logger, opts ...Option) *Exec {
	if log.IsZero() {
		log = logx.Nop()
	}
	e := &Exec{log: log, stdout: os.Stdout, stderr: os.Stderr}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Spawn starts argv and returns once the process exists (or failed to start).
//
// The child is deliberately not bound to ctx: cancelling the scheduler does
// not kill commands it already started.
func (e *Exec) Spawn(_ context.Context, argv []string) error {
	if len(argv) == 0 || argv[0] == "" {
		return ErrEmptyCommand
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Stdin = nil
	cmd.Stdout = e.stdout
	cmd.Stderr = e.stderr
	if err := cmd.Start(); err != nil {
		return err
	}

	name := filepath.Base(argv[0])
	pid := cmd.Process.Pid
	started := time.Now()
	e.log.Debug("command started", logx.String("cmd", name), logx.Int("pid", pid))

	reap := func() {
		err := cmd.Wait()
		fields := []logx.Field{
			logx.String("cmd", name),
			logx.Int("pid", pid),
			logx.Duration("took", time.Since(started)),
		}
		if err != nil {
			e.log.Debug("command exited with error", append(fields, logx.Err(err))...)
			return
		}
		e.log.Debug("command exited", fields...)
	}
	if e.goer != nil {
		e.goer.Go("reap."+name, reap)
	} else {
		go reap()
	}
	return nil
}
