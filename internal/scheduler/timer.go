package scheduler

import (
	"time"

	"tellmewhen/internal/config"
	"tellmewhen/internal/event"
)

// NextTime is when tr is due given the last occurrence of its event: one
// separation later, shifted by the trigger's offset.
func NextTime(tr *event.Trigger, last time.Time) time.Time {
	return last.Add(tr.Event.Separation + tr.Offset)
}

// InitTimer starts tr as if its event last occurred StartDelay before now.
func InitTimer(opts config.Options, tr *event.Trigger, now time.Time) Timer {
	last := now.Add(-opts.StartDelay)
	return Timer{Next: NextTime(tr, last), Trigger: tr}
}

// rearm returns the replacement for a timer that just fired. The last
// occurrence is recovered from the raw due time, never from the adjusted one,
// so the nominal period repeats without drift.
func rearm(t Timer) Timer {
	last := t.Next.Add(-t.Trigger.Offset)
	return Timer{Next: NextTime(t.Trigger, last), Trigger: t.Trigger}
}
