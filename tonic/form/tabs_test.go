package form

import (
	"errors"
	"net/url"
	"testing"

	"github.com/google/go-cmp/cmp"
)

var tabsSchema = Schema{
	{ID: "mode", Type: "select", Default: "basic", Options: []Choice{{Value: "basic", Label: "Basic"}, {Value: "expert", Label: "Expert"}}},
	{ID: "steps", Type: "tabs", Schema: Schema{
		{ID: "intro", Type: "tab", Label: "Intro", Visible: When("mode=basic"), Schema: Schema{
			{ID: "name", Type: "text", Required: Static(true)},
		}},
		{ID: "details", Type: "tab", Label: "Details", Schema: Schema{
			{ID: "notes", Type: "textarea"},
		}},
	}},
}

func TestTabsActivation(t *testing.T) {
	f := buildForm(t, tabsSchema, Options{})
	tabs := f.Tabs("steps")
	if tabs.Active() != "intro" {
		t.Fatalf("Expected first tab active; got %q", tabs.Active())
	}
	panes := tabs.Tabs()
	if len(panes) != 2 || !panes[0].Active() || panes[1].Active() {
		t.Fatalf("Unexpected tab states: %v", tabs.Active())
	}
	if _, ok := getAttr(panes[1].container, "hidden"); !ok {
		t.Fatal("Inactive pane not hidden")
	}

	if err := tabs.Activate("details"); err != nil {
		t.Fatalf("Failed to activate tab: %s", err.Error())
	}
	if _, ok := getAttr(panes[0].container, "hidden"); !ok {
		t.Fatal("Previous pane not hidden after activation")
	}
	if !hasClass(panes[1].header, "active") || hasClass(panes[0].header, "active") {
		t.Fatal("Header classes not moved to the active tab")
	}
	if err := tabs.Activate("nope"); !errors.Is(err, ErrNoSuchTab) {
		t.Fatalf("Expected ErrNoSuchTab; got %v", err)
	}
	if tabs.Active() != "details" {
		t.Fatalf("Failed activation changed the active tab to %q", tabs.Active())
	}
}

func TestTabsFallback(t *testing.T) {
	f := buildForm(t, tabsSchema, Options{})
	tabs := f.Tabs("steps")
	if err := f.Field("mode").Change("expert"); err != nil {
		t.Fatalf("Failed to change value: %s", err.Error())
	}
	if tabs.Active() != "details" {
		t.Fatalf("Expected fallback to the visible tab; got %q", tabs.Active())
	}
	intro := tabs.Tabs()[0]
	if intro.Mounted() || intro.hmount.attached {
		t.Fatal("Hidden tab still mounted")
	}
	if err := tabs.Activate("intro"); !errors.Is(err, ErrNoSuchTab) {
		t.Fatalf("Expected ErrNoSuchTab for a hidden tab; got %v", err)
	}
	if ok, _ := f.Validate(); !ok {
		t.Fatalf("Required field in a hidden tab failed validation: %v", f.Errors())
	}
	if f.Field("name").Mounted() {
		t.Fatal("Field of a hidden tab mounted")
	}
}

func TestTabsSchemaErrors(t *testing.T) {
	cases := map[string]Schema{
		"child":  {{ID: "t", Type: "tabs", Schema: Schema{{ID: "x", Type: "text"}}}},
		"orphan": {{ID: "x", Type: "tab"}},
	}
	for name, schema := range cases {
		if _, err := New(newBody(), schema, Options{Registry: NewRegistry()}); !errors.Is(err, ErrInvalidSchema) {
			t.Errorf("%s: expected ErrInvalidSchema; got %v", name, err)
		}
	}
}

func TestButtonActions(t *testing.T) {
	storage := newTestStorage()
	f := buildForm(t, Schema{
		{ID: "name", Type: "text", Default: "x"},
		{ID: "store", Type: "save"},
		{ID: "clear", Type: "reset"},
		{ID: "custom", Type: "button", Disabled: When("name=locked")},
	}, Options{Storage: storage, SaveProgress: true})

	if a := f.Button("store").Action(); a != ActionSave {
		t.Fatalf("Expected save action; got %q", a)
	}
	if a := f.Button("custom").Action(); a != "" {
		t.Fatalf("Expected no action on a plain button; got %q", a)
	}
	if err := f.Field("name").SetValue("Ada", false); err != nil {
		t.Fatalf("Failed to set value: %s", err.Error())
	}
	if len(storage.items) != 0 {
		t.Fatalf("Value saved without persisting: %v", storage.items)
	}
	if err := f.Button("store").Click(); err != nil {
		t.Fatalf("Failed to click save: %s", err.Error())
	}
	if storage.items[StorageKey("form", "name")] != `"Ada"` {
		t.Fatalf("Save button did not save: %v", storage.items)
	}
	if err := f.Button("clear").Click(); err != nil {
		t.Fatalf("Failed to click reset: %s", err.Error())
	}
	if v := f.Field("name").Value(); v != "x" {
		t.Fatalf("Reset button did not restore the default; got %v", v)
	}
	if len(storage.items) != 0 {
		t.Fatalf("Reset button left saved values: %v", storage.items)
	}

	if err := f.Field("name").SetValue("locked", false); err != nil {
		t.Fatalf("Failed to set value: %s", err.Error())
	}
	if !f.Button("custom").Disabled() {
		t.Fatal("Disabled rule not applied to button")
	}
	if _, ok := getAttr(f.Button("custom").container, "disabled"); !ok {
		t.Fatal("Disabled button has no disabled attribute")
	}
}

func TestPressed(t *testing.T) {
	f := buildForm(t, Schema{
		{ID: "store", Type: "save"},
		{ID: "go", Type: "submit"},
	}, Options{})
	if b := f.Pressed(url.Values{"store": {"save"}}); b == nil || b.ID() != "store" {
		t.Fatalf("Expected the save button; got %v", b)
	}
	if b := f.Pressed(url.Values{"other": {"1"}}); b != nil {
		t.Fatalf("Expected no button; got %q", b.ID())
	}
}

func TestFlatten(t *testing.T) {
	data := map[string]any{
		"name":  "Ada",
		"age":   36.0,
		"tags":  []any{"a", "b"},
		"empty": nil,
		"group": map[string]any{"email": "a@example.org"},
		"people": []any{
			map[string]any{"name": "X"},
			map[string]any{"name": "Y", "agree": true},
		},
	}
	expected := url.Values{
		"name":             {"Ada"},
		"age":              {"36"},
		"tags[]":           {"a", "b"},
		"empty":            {""},
		"group[email]":     {"a@example.org"},
		"people[0][name]":  {"X"},
		"people[1][agree]": {"true"},
		"people[1][name]":  {"Y"},
	}
	if diff := cmp.Diff(expected, Flatten(data)); diff != "" {
		t.Fatalf("Flattened values mismatch (-expected +got):\n%s", diff)
	}
}
