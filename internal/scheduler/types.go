package scheduler

import (
	"context"
	"sort"
	"time"

	"tellmewhen/internal/config"
	"tellmewhen/internal/event"
	logx "tellmewhen/pkg/logx"
)

// Spawner starts an event's command without waiting for it.
//
// A returned error means the command could not be started at all; the
// scheduler logs it and keeps going.
type Spawner interface {
	Spawn(ctx context.Context, argv []string) error
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(ctx context.Context, argv []string) error

func (f SpawnerFunc) Spawn(ctx context.Context, argv []string) error { return f(ctx, argv) }

// Timer tracks when a trigger is next due. Timers are values: firing or
// restarting replaces the timer in the set instead of editing it.
type Timer struct {
	Next    time.Time
	Trigger *event.Trigger
}

func (t Timer) Event() *event.Event { return t.Trigger.Event }

// Entry is a timer together with its separation-adjusted fire time.
type Entry struct {
	At    time.Time
	Timer Timer
	// Adjust is At minus Timer.Next: zero, or negative when the timer was
	// pulled earlier to keep its distance from the following one.
	Adjust time.Duration
}

// TimerSet maps each started trigger to its single active timer.
type TimerSet map[event.TriggerID]Timer

func (s TimerSet) Put(t Timer) { s[t.Trigger.ID] = t }

func (s TimerSet) Get(id event.TriggerID) (Timer, bool) {
	t, ok := s[id]
	return t, ok
}

func (s TimerSet) Delete(id event.TriggerID) bool {
	if _, ok := s[id]; !ok {
		return false
	}
	delete(s, id)
	return true
}

func (s TimerSet) Clear() { clear(s) }

// Timers returns the active timers ordered by trigger id.
func (s TimerSet) Timers() []Timer {
	out := make([]Timer, 0, len(s))
	for _, t := range s {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Trigger.ID < out[j].Trigger.ID })
	return out
}

type Option func(*Scheduler)

// WithClock replaces time.Now (tests).
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

type Scheduler struct {
	opts    config.Options
	catalog *event.Catalog
	spawner Spawner
	log     logx.Logger
	now     func() time.Time

	timers TimerSet
}

func New(opts config.Options, catalog *event.Catalog, spawner Spawner, log logx.Logger, o ...Option) *Scheduler {
	if log.IsZero() {
		log = logx.Nop()
	}
	s := &Scheduler{
		opts:    opts,
		catalog: catalog,
		spawner: spawner,
		log:     log,
		now:     time.Now,
		timers:  TimerSet{},
	}
	for _, fn := range o {
		fn(s)
	}
	return s
}

// Timers returns a copy of the active timers ordered by trigger id.
func (s *Scheduler) Timers() []Timer { return s.timers.Timers() }

// Len reports the number of active timers.
func (s *Scheduler) Len() int { return len(s.timers) }
