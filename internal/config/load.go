package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"tellmewhen/internal/event"
)

// Parse reads one event file (JSON, or YAML by extension) and returns its
// events. Every structural violation is collected into ValidationErrors
// rather than stopping at the first one.
func Parse(path string) ([]event.Definition, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseBytes(path, b)
}

// ParseBytes is Parse for content already in memory. path selects the format
// and prefixes error paths.
func ParseBytes(path string, b []byte) ([]event.Definition, error) {
	jb, _, err := coerceToJSONBytes(path, b)
	if err != nil {
		return nil, FieldError{Path: path, Msg: err.Error()}
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(jb))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, FieldError{Path: path, Msg: "invalid JSON: " + err.Error()}
	}
	// reject trailing tokens (e.g. concatenated JSON)
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		return nil, FieldError{Path: path, Msg: "invalid JSON: trailing data"}
	}

	var errs ValidationErrors
	defs := validateDocument(doc, path, &errs)
	if len(errs) > 0 {
		return nil, errs
	}
	return defs, nil
}

// LoadFiles parses every file in order and concatenates their events.
// Event names must be unique across all files.
func LoadFiles(paths []string) ([]event.Definition, error) {
	if len(paths) == 0 {
		return nil, errors.New("at least one config file is required")
	}

	var (
		all  []event.Definition
		errs ValidationErrors
		seen = map[string]string{}
	)
	for _, p := range paths {
		defs, err := Parse(p)
		if err != nil {
			if v, ok := AsValidationErrors(err); ok {
				errs = append(errs, v...)
				continue
			}
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		for i, d := range defs {
			at := fmt.Sprintf("%s: events[%d].name", p, i)
			if prev, dup := seen[d.Name]; dup {
				errs = append(errs, FieldError{Path: at, Msg: fmt.Sprintf("duplicate event name %q (first defined at %s)", d.Name, prev)})
				continue
			}
			seen[d.Name] = at
			all = append(all, d)
		}
	}
	if len(errs) > 0 {
		return nil, errs
	}
	return all, nil
}

func validateDocument(doc any, source string, errs *ValidationErrors) []event.Definition {
	obj, ok := checkObject(doc, source, []string{"events"}, errs)
	if !ok {
		return nil
	}
	return validateEvents(obj["events"], source+": events", errs)
}

func validateEvents(v any, source string, errs *ValidationErrors) []event.Definition {
	list, ok := v.([]any)
	if !ok {
		errs.add(source, "expected a list")
		return nil
	}

	defs := make([]event.Definition, 0, len(list))
	for i, item := range list {
		at := fmt.Sprintf("%s[%d]", source, i)
		obj, ok := checkObject(item, at, []string{"name", "command", "separation_time", "triggers"}, errs)
		if !ok {
			continue
		}
		before := len(*errs)

		var d event.Definition
		if name, ok := obj["name"].(string); ok {
			d.Name = name
		} else {
			errs.add(at+".name", "expected a string")
		}

		d.Command = checkCommand(obj["command"], at+".command", errs)

		d.Separation = separation(obj["separation_time"], at+".separation_time", errs)

		d.Triggers = validateTriggers(obj["triggers"], at+".triggers", errs)

		if len(*errs) == before {
			defs = append(defs, d)
		}
	}
	return defs
}

// separation must still be positive once rounded to nanoseconds; a zero or
// wrapped value would leave the timer permanently due.
func separation(v any, at string, errs *ValidationErrors) time.Duration {
	sep, ok := number(v)
	if !ok || sep <= 0 {
		errs.add(at, "expected a number > 0")
		return 0
	}
	d, ok := Seconds(sep)
	if !ok {
		errs.add(at, "number out of range")
		return 0
	}
	if d <= 0 {
		errs.add(at, "expected at least 1ns")
		return 0
	}
	return d
}

func checkCommand(v any, at string, errs *ValidationErrors) []string {
	const msg = "expected a non-empty list of strings"
	list, ok := v.([]any)
	if !ok || len(list) == 0 {
		errs.add(at, msg)
		return nil
	}
	out := make([]string, 0, len(list))
	for _, w := range list {
		s, ok := w.(string)
		if !ok {
			errs.add(at, msg)
			return nil
		}
		out = append(out, s)
	}
	return out
}

func validateTriggers(v any, source string, errs *ValidationErrors) []event.TriggerDefinition {
	list, ok := v.([]any)
	if !ok {
		errs.add(source, "expected a list")
		return nil
	}
	out := make([]event.TriggerDefinition, 0, len(list))
	for i, item := range list {
		at := fmt.Sprintf("%s[%d]", source, i)
		obj, ok := checkObject(item, at, []string{"offset_time"}, errs)
		if !ok {
			continue
		}
		off, ok := number(obj["offset_time"])
		if !ok {
			errs.add(at+".offset_time", "expected a number")
			continue
		}
		d, ok := Seconds(off)
		if !ok {
			errs.add(at+".offset_time", "number out of range")
			continue
		}
		out = append(out, event.TriggerDefinition{Offset: d})
	}
	return out
}

// checkObject requires v to be an object with exactly the given properties.
func checkObject(v any, at string, names []string, errs *ValidationErrors) (map[string]any, bool) {
	obj, ok := v.(map[string]any)
	if !ok {
		errs.add(at, "expected an object")
		return nil, false
	}
	match := len(obj) == len(names)
	if match {
		for _, n := range names {
			if _, ok := obj[n]; !ok {
				match = false
				break
			}
		}
	}
	if !match {
		quoted := make([]string, 0, len(names))
		for _, n := range names {
			quoted = append(quoted, "`"+n+"`")
		}
		errs.add(at, "expected exactly properties: "+strings.Join(quoted, ", ")+unexpectedSuffix(obj, names))
		return nil, false
	}
	return obj, true
}

func unexpectedSuffix(obj map[string]any, names []string) string {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	var extra []string
	for k := range obj {
		if _, ok := want[k]; !ok {
			extra = append(extra, k)
		}
	}
	if len(extra) == 0 {
		return ""
	}
	sort.Strings(extra)
	return " (unexpected: " + strings.Join(extra, ", ") + ")"
}

func number(v any) (float64, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	f, err := n.Float64()
	if err != nil {
		return 0, false
	}
	return f, true
}

func (v *ValidationErrors) add(path, msg string) {
	*v = append(*v, FieldError{Path: path, Msg: msg})
}
