// Package scheduler is the timing engine: it keeps one timer per started
// trigger, orders fire times so that no two commands run closer together than
// the configured minimum separation, and drives the single-threaded loop that
// sleeps until the next due timer or the next control command.
//
// The timer set is owned by the loop goroutine. Nothing in this package
// locks; callers must not use a Scheduler from more than one goroutine.
package scheduler
