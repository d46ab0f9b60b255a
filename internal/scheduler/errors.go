package scheduler

import "errors"

// None of these are fatal; the loop logs them and carries on.
var (
	// ErrUnknownTarget: start/cancel named an event missing from the catalog.
	ErrUnknownTarget = errors.New("unknown event")
	// ErrNotRunning: cancel found a trigger of the event with no active timer.
	ErrNotRunning = errors.New("event not running")
	// ErrSpawn: the event's command could not be started.
	ErrSpawn = errors.New("failed to run command")
	// ErrUnknownCommand: the control string matched no verb.
	ErrUnknownCommand = errors.New("unknown command")
)
