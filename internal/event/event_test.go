package event

import (
	"reflect"
	"testing"
	"time"
)

func TestNewCatalogAssignsTriggerIDs(t *testing.T) {
	t.Parallel()
	c := NewCatalog([]Definition{
		{Name: "A", Command: []string{"true"}, Separation: 10 * time.Second, Triggers: []TriggerDefinition{{Offset: 0}, {Offset: -2 * time.Second}}},
		{Name: "B", Command: []string{"echo", "b"}, Separation: 5 * time.Second, Triggers: []TriggerDefinition{{Offset: time.Second}}},
	})

	if c.Len() != 2 {
		t.Fatalf("Len = %d, want 2", c.Len())
	}
	a, ok := c.Lookup("A")
	if !ok {
		t.Fatal("A not found")
	}
	b, _ := c.Lookup("B")
	if a.Triggers[0].ID != 0 || a.Triggers[1].ID != 1 || b.Triggers[0].ID != 2 {
		t.Fatalf("unexpected ids: %d %d %d", a.Triggers[0].ID, a.Triggers[1].ID, b.Triggers[0].ID)
	}
	for _, tr := range a.Triggers {
		if tr.Event != a {
			t.Fatalf("trigger %d not owned by A", tr.ID)
		}
	}
	if tr, ok := c.Trigger(2); !ok || tr != b.Triggers[0] {
		t.Fatalf("Trigger(2) = %v, %v", tr, ok)
	}
	if _, ok := c.Trigger(3); ok {
		t.Fatal("Trigger(3) should not exist")
	}
	if _, ok := c.Lookup("C"); ok {
		t.Fatal("C should not exist")
	}
}

func TestCatalogCopiesCommand(t *testing.T) {
	t.Parallel()
	cmd := []string{"notify-send", "hi"}
	c := NewCatalog([]Definition{{Name: "A", Command: cmd, Separation: time.Second}})
	cmd[0] = "rm"

	a, _ := c.Lookup("A")
	if a.Command[0] != "notify-send" {
		t.Fatalf("catalog command mutated through caller slice: %v", a.Command)
	}
	if got := c.Names(); len(got) != 1 || got[0] != "A" {
		t.Fatalf("Names = %v", got)
	}
	if a.String() != `<Event "A">` {
		t.Fatalf("String = %s", a.String())
	}
}

func TestEventDefinitionMatchesInput(t *testing.T) {
	t.Parallel()
	defs := []Definition{
		{Name: "A", Command: []string{"true"}, Separation: 10 * time.Second, Triggers: []TriggerDefinition{{Offset: 0}, {Offset: -2 * time.Second}}},
		{Name: "B", Command: []string{"echo"}, Separation: time.Second, Triggers: []TriggerDefinition{}},
	}
	c := NewCatalog(defs)

	events := c.Events()
	if len(events) != 2 {
		t.Fatalf("Events = %v", events)
	}
	for i, ev := range events {
		if !reflect.DeepEqual(ev.Definition(), defs[i]) {
			t.Fatalf("Definition() = %+v, want %+v", ev.Definition(), defs[i])
		}
	}
}
