package config

import (
	"reflect"
	"sort"

	"tellmewhen/internal/event"
)

// Change lists event names that differ between two sets of definitions.
type Change struct {
	Added   []string
	Removed []string
	Changed []string
}

func (c Change) Empty() bool {
	return len(c.Added) == 0 && len(c.Removed) == 0 && len(c.Changed) == 0
}

// SummarizeChange compares definitions by event name.
func SummarizeChange(oldDefs, newDefs []event.Definition) Change {
	oldBy := make(map[string]event.Definition, len(oldDefs))
	for _, d := range oldDefs {
		oldBy[d.Name] = d
	}
	newBy := make(map[string]event.Definition, len(newDefs))
	for _, d := range newDefs {
		newBy[d.Name] = d
	}

	var c Change
	for name, nd := range newBy {
		od, ok := oldBy[name]
		switch {
		case !ok:
			c.Added = append(c.Added, name)
		case !reflect.DeepEqual(od, nd):
			c.Changed = append(c.Changed, name)
		}
	}
	for name := range oldBy {
		if _, ok := newBy[name]; !ok {
			c.Removed = append(c.Removed, name)
		}
	}
	sort.Strings(c.Added)
	sort.Strings(c.Removed)
	sort.Strings(c.Changed)
	return c
}
