package scheduler

import (
	"fmt"

	logx "tellmewhen/pkg/logx"
)

// Start (re)starts every trigger of the named event, synchronized to now.
// Existing timers for those triggers are replaced.
func (s *Scheduler) Start(name string) error {
	ev, ok := s.catalog.Lookup(name)
	if !ok {
		s.log.Error("tried to start unknown event", logx.String("event", name))
		return fmt.Errorf("start %q: %w", name, ErrUnknownTarget)
	}
	now := s.now()
	for _, tr := range ev.Triggers {
		s.timers.Put(InitTimer(s.opts, tr, now))
	}
	s.log.Debug("event started", logx.String("event", name), logx.Int("triggers", len(ev.Triggers)))
	return nil
}

// Cancel removes the timers of the named event's triggers, in trigger order.
//
// The first trigger found without a timer stops the walk: later triggers of
// the same event keep their timers.
// TODO: confirm whether partial cancellation is wanted or the walk should
// skip missing triggers and remove the rest.
func (s *Scheduler) Cancel(name string) error {
	ev, ok := s.catalog.Lookup(name)
	if !ok {
		s.log.Error("tried to cancel unknown event", logx.String("event", name))
		return fmt.Errorf("cancel %q: %w", name, ErrUnknownTarget)
	}
	for _, tr := range ev.Triggers {
		if !s.timers.Delete(tr.ID) {
			s.log.Error("tried to cancel not running event", logx.String("event", name), logx.Int("trigger", int(tr.ID)))
			return fmt.Errorf("cancel %q: %w", name, ErrNotRunning)
		}
	}
	return nil
}

// CancelAll drops every active timer.
func (s *Scheduler) CancelAll() {
	n := len(s.timers)
	s.timers.Clear()
	s.log.Debug("all events cancelled", logx.Int("timers", n))
}
