package scheduler

import (
	"fmt"
	"strings"
)

type Verb int

const (
	VerbUnknown Verb = iota
	VerbQuit
	VerbCancelAll
	VerbCancel
	VerbStart
)

func (v Verb) String() string {
	switch v {
	case VerbQuit:
		return "quit"
	case VerbCancelAll:
		return "cancel-all"
	case VerbCancel:
		return "cancel"
	case VerbStart:
		return "start"
	default:
		return "unknown"
	}
}

// Command is a parsed control string.
type Command struct {
	Verb Verb
	Name string
}

// ParseCommand recognizes "quit", "cancel", "cancel <name>" and
// "start <name>". The name is everything after the first space, verbatim.
func ParseCommand(raw string) (Command, error) {
	switch {
	case raw == "quit":
		return Command{Verb: VerbQuit}, nil
	case raw == "cancel":
		return Command{Verb: VerbCancelAll}, nil
	case strings.HasPrefix(raw, "start "):
		return Command{Verb: VerbStart, Name: raw[len("start "):]}, nil
	case strings.HasPrefix(raw, "cancel "):
		return Command{Verb: VerbCancel, Name: raw[len("cancel "):]}, nil
	}
	return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, raw)
}
