package scheduler

import (
	"context"
	"time"

	logx "tellmewhen/pkg/logx"
)

// Handle dispatches one control string and reports whether it was "quit".
func (s *Scheduler) Handle(raw string) (quit bool) {
	s.log.Info("received command", logx.String("cmd", raw))

	cmd, err := ParseCommand(raw)
	if err != nil {
		s.log.Error("received unknown command", logx.String("cmd", raw))
		return false
	}
	switch cmd.Verb {
	case VerbQuit:
		return true
	case VerbCancelAll:
		s.CancelAll()
	case VerbCancel:
		_ = s.Cancel(cmd.Name)
	case VerbStart:
		_ = s.Start(cmd.Name)
	}
	return false
}

// Run is the event loop. Each iteration waits for a command until the next
// timer is due (forever when there are no timers), dispatches the command if
// one arrived, then fires whatever is due.
//
// Run returns nil after "quit" or when cmds is closed, and ctx.Err() when ctx
// is done. Neither case fires timers on the way out.
func (s *Scheduler) Run(ctx context.Context, cmds <-chan string) error {
	s.log.Info("scheduler loop started", logx.Int("events", s.catalog.Len()))
	defer s.log.Info("scheduler loop stopped")

	for {
		raw, got, closed, err := s.wait(ctx, cmds)
		if err != nil {
			return err
		}
		if closed {
			s.log.Warn("command queue closed")
			return nil
		}
		if got && s.Handle(raw) {
			return nil
		}
		s.ProcessDue(ctx)
	}
}

// wait blocks on cmds for at most the time until the next timer. A zero or
// negative wait polls cmds without blocking.
func (s *Scheduler) wait(ctx context.Context, cmds <-chan string) (raw string, got, closed bool, err error) {
	d, ok := s.NextTimerTime()

	if ok && d <= 0 {
		select {
		case <-ctx.Done():
			return "", false, false, ctx.Err()
		case raw, open := <-cmds:
			return raw, open, !open, nil
		default:
			return "", false, false, nil
		}
	}

	var timeout <-chan time.Time
	if ok {
		t := time.NewTimer(d)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ctx.Done():
		return "", false, false, ctx.Err()
	case raw, open := <-cmds:
		return raw, open, !open, nil
	case <-timeout:
		return "", false, false, nil
	}
}
