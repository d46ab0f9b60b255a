// Package event holds the static catalog of named events and their triggers.
//
// The catalog is built once at startup from validated definitions and never
// changes afterwards. Every trigger gets a small integer id, which the
// scheduler uses as the key of its timer set.
package event

import (
	"fmt"
	"time"
)

// TriggerID identifies a trigger within a Catalog.
type TriggerID int

// Definition is a validated event as handed over by the config loader.
type Definition struct {
	Name       string
	Command    []string
	Separation time.Duration
	Triggers   []TriggerDefinition
}

type TriggerDefinition struct {
	Offset time.Duration
}

// Event is a named recurring action.
//
// Separation is the minimum spacing between consecutive occurrences of the
// event; every trigger repeats with that period.
type Event struct {
	Name       string
	Command    []string
	Separation time.Duration
	Triggers   []*Trigger
}

func (e *Event) String() string { return fmt.Sprintf("<Event %q>", e.Name) }

// Definition returns the definition the event was built from.
func (e *Event) Definition() Definition {
	d := Definition{
		Name:       e.Name,
		Command:    append([]string(nil), e.Command...),
		Separation: e.Separation,
		Triggers:   make([]TriggerDefinition, 0, len(e.Triggers)),
	}
	for _, tr := range e.Triggers {
		d.Triggers = append(d.Triggers, TriggerDefinition{Offset: tr.Offset})
	}
	return d
}

// Trigger is a fixed time offset relative to an occurrence of its event.
type Trigger struct {
	ID     TriggerID
	Offset time.Duration
	Event  *Event
}

// Catalog owns every Event and Trigger for the process lifetime.
type Catalog struct {
	events   []*Event
	byName   map[string]*Event
	triggers []*Trigger
}

// NewCatalog builds the catalog. Names are assumed unique (enforced upstream);
// on a duplicate the later definition wins the name lookup.
func NewCatalog(defs []Definition) *Catalog {
	c := &Catalog{
		events: make([]*Event, 0, len(defs)),
		byName: make(map[string]*Event, len(defs)),
	}
	for _, d := range defs {
		ev := &Event{
			Name:       d.Name,
			Command:    append([]string(nil), d.Command...),
			Separation: d.Separation,
			Triggers:   make([]*Trigger, 0, len(d.Triggers)),
		}
		for _, td := range d.Triggers {
			tr := &Trigger{ID: TriggerID(len(c.triggers)), Offset: td.Offset, Event: ev}
			c.triggers = append(c.triggers, tr)
			ev.Triggers = append(ev.Triggers, tr)
		}
		c.events = append(c.events, ev)
		c.byName[ev.Name] = ev
	}
	return c
}

// Lookup returns the event with the given name.
func (c *Catalog) Lookup(name string) (*Event, bool) {
	ev, ok := c.byName[name]
	return ev, ok
}

// Trigger returns the trigger with the given id.
func (c *Catalog) Trigger(id TriggerID) (*Trigger, bool) {
	if id < 0 || int(id) >= len(c.triggers) {
		return nil, false
	}
	return c.triggers[id], true
}

// Events returns the events in definition order.
func (c *Catalog) Events() []*Event {
	return append([]*Event(nil), c.events...)
}

func (c *Catalog) Len() int { return len(c.events) }

// Names returns event names in definition order.
func (c *Catalog) Names() []string {
	out := make([]string, 0, len(c.events))
	for _, ev := range c.events {
		out = append(out, ev.Name)
	}
	return out
}
