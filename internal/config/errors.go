package config

import (
	"errors"
	"strings"
)

// FieldError names one violated field by its location path, e.g.
// "events.json: events[2].separation_time".
type FieldError struct {
	Path string
	Msg  string
}

func (e FieldError) Error() string { return "invalid config: " + e.Path + ": " + e.Msg }

// ValidationErrors collects every violation found while checking a config.
type ValidationErrors []FieldError

func (v ValidationErrors) Error() string {
	lines := make([]string, 0, len(v))
	for _, e := range v {
		lines = append(lines, e.Error())
	}
	return strings.Join(lines, "\n")
}

// OrNil returns nil for an empty list so callers can `return errs.OrNil()`.
func (v ValidationErrors) OrNil() error {
	if len(v) == 0 {
		return nil
	}
	return v
}

// AsValidationErrors extracts the field errors carried by err, if any.
func AsValidationErrors(err error) (ValidationErrors, bool) {
	var v ValidationErrors
	if errors.As(err, &v) {
		return v, true
	}
	var fe FieldError
	if errors.As(err, &fe) {
		return ValidationErrors{fe}, true
	}
	return nil, false
}
