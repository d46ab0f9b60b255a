package config

import (
	"fmt"
	"math"
	"net"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultSocketHost       = "localhost"
	DefaultSocketPort       = 58732
	DefaultStartDelay       = 1 * time.Second
	DefaultMinCmdSeparation = 2 * time.Second
)

// Options is the resolved, immutable program configuration.
//
// It is constructed once at startup and passed by value to every component
// that needs it.
type Options struct {
	// SocketHost and SocketPort are where the command listener accepts commands.
	SocketHost string
	SocketPort int

	// StartDelay: a `start` command indicates the event occurred this long ago.
	StartDelay time.Duration

	// MinCmdSeparation is the minimum time between triggering any two commands.
	MinCmdSeparation time.Duration
}

func DefaultOptions() Options {
	return Options{
		SocketHost:       DefaultSocketHost,
		SocketPort:       DefaultSocketPort,
		StartDelay:       DefaultStartDelay,
		MinCmdSeparation: DefaultMinCmdSeparation,
	}
}

// Addr returns host:port for the command listener.
func (o Options) Addr() string {
	return net.JoinHostPort(o.SocketHost, strconv.Itoa(o.SocketPort))
}

// Validate reports every invalid option.
func (o Options) Validate() error {
	var errs ValidationErrors
	if strings.TrimSpace(o.SocketHost) == "" {
		errs = append(errs, FieldError{Path: "socket_host", Msg: "expected a non-empty host"})
	}
	if o.SocketPort <= 0 || o.SocketPort > 65535 {
		errs = append(errs, FieldError{Path: "socket_port", Msg: "expected a port in 1..65535"})
	}
	if o.MinCmdSeparation <= 0 {
		errs = append(errs, FieldError{Path: "min_cmd_separation", Msg: "expected a number > 0"})
	}
	return errs.OrNil()
}

// Seconds converts a real number of seconds to a Duration. ok is false when
// v is not finite or does not fit in a Duration.
func Seconds(v float64) (d time.Duration, ok bool) {
	ns := math.Round(v * float64(time.Second))
	// float64(math.MaxInt64) is exactly 2^63, one past the largest Duration.
	if math.IsNaN(ns) || ns >= float64(math.MaxInt64) || ns < float64(math.MinInt64) {
		return 0, false
	}
	return time.Duration(ns), true
}

// ParseSecondsField parses either a plain number of seconds ("1.5") or a Go
// duration string ("1500ms"). path is used in error messages.
func ParseSecondsField(path, raw string) (time.Duration, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, fmt.Errorf("%s: value required", path)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, fmt.Errorf("%s: invalid number %q", path, raw)
		}
		d, ok := Seconds(f)
		if !ok {
			return 0, fmt.Errorf("%s: %q is out of range", path, raw)
		}
		return d, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: invalid seconds %q: %w", path, raw, err)
	}
	return d, nil
}
