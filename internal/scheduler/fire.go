package scheduler

import (
	"context"
	"fmt"

	logx "tellmewhen/pkg/logx"
)

// ProcessDue fires every timer whose adjusted time has come and re-arms it.
// Spawn failures are logged and do not stop the remaining timers. It returns
// the number of timers fired.
func (s *Scheduler) ProcessDue(ctx context.Context) int {
	now := s.now()
	fired := 0
	for _, e := range s.schedule(logx.LevelInfo) {
		if e.At.After(now) {
			break
		}
		ev := e.Timer.Event()
		tr := e.Timer.Trigger
		s.log.Info("trigger event", logx.String("event", ev.Name), logx.Seconds("offset", -tr.Offset))

		if err := s.spawn(ctx, ev.Command); err != nil {
			s.log.Error("failed to run command",
				logx.String("event", ev.Name),
				logx.Strs("command", ev.Command),
				logx.Err(err),
			)
		}

		s.timers.Put(rearm(e.Timer))
		fired++
	}
	return fired
}

func (s *Scheduler) spawn(ctx context.Context, argv []string) (err error) {
	if s.spawner == nil {
		return fmt.Errorf("%w: no spawner configured", ErrSpawn)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: panic: %v", ErrSpawn, r)
		}
	}()
	if err := s.spawner.Spawn(ctx, argv); err != nil {
		return fmt.Errorf("%w: %w", ErrSpawn, err)
	}
	return nil
}
