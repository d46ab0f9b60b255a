package scheduler

import (
	"sort"
	"time"

	logx "tellmewhen/pkg/logx"
)

// AdjustedSchedule orders timers earliest first and pulls fire times earlier
// where needed so that consecutive fires are at least minSep apart.
//
// Timers are sorted by raw due time, then walked from the latest to the
// earliest. A timer due later than (following fire time - minSep) is moved
// to exactly that point. No timer is ever delayed, and a dense cluster may
// end up pulled well into the past. Each entry is written at its own index
// during the descending walk, so the result reads earliest first.
func AdjustedSchedule(timers []Timer, minSep time.Duration) []Entry {
	sorted := append([]Timer(nil), timers...)
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Next.Equal(sorted[j].Next) {
			return sorted[i].Next.Before(sorted[j].Next)
		}
		return sorted[i].Trigger.ID < sorted[j].Trigger.ID
	})

	out := make([]Entry, len(sorted))
	var (
		subsequent time.Time
		have       bool
	)
	for i := len(sorted) - 1; i >= 0; i-- {
		t := sorted[i]
		at := t.Next
		var adjust time.Duration
		if have {
			latest := subsequent.Add(-minSep)
			if latest.Before(at) {
				adjust = latest.Sub(at)
				at = latest
			}
		}
		out[i] = Entry{At: at, Timer: t, Adjust: adjust}
		subsequent = at
		have = true
	}
	return out
}

// schedule computes the adjusted schedule of the active timers and logs every
// adjustment at the given level.
func (s *Scheduler) schedule(level logx.Level) []Entry {
	entries := AdjustedSchedule(s.timers.Timers(), s.opts.MinCmdSeparation)
	if !s.log.Enabled(level) {
		return entries
	}
	for _, e := range entries {
		if e.Adjust == 0 {
			continue
		}
		fields := []logx.Field{
			logx.String("event", e.Timer.Event().Name),
			logx.Int("trigger", int(e.Timer.Trigger.ID)),
			logx.Seconds("delta", e.Adjust),
		}
		if level == logx.LevelDebug {
			s.log.Debug("adjust event", fields...)
		} else {
			s.log.Info("adjust event", fields...)
		}
	}
	return entries
}

// NextTimerTime returns how long until the earliest adjusted fire time. It is
// negative when a timer is already due. ok is false when no timer is active.
func (s *Scheduler) NextTimerTime() (wait time.Duration, ok bool) {
	entries := s.schedule(logx.LevelDebug)
	if len(entries) == 0 {
		return 0, false
	}
	return entries[0].At.Sub(s.now()), true
}
