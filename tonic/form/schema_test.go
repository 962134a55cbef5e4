package form

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

const yamlSchema = `
- id: name
  type: text
  label: Name
  required: true
  minLength: 2
  debounce: 300
- id: kind
  type: select
  options: [a, b]
- id: extra
  type: text
  visible: kind=b
  debounce: 1s
  widgetColor: blue
- id: people
  type: list
  maxRows: 3
  removable: false
  schema:
    - id: who
      type: text
      disabled: "false"
`

func TestParseYAML(t *testing.T) {
	schema, err := ParseYAML([]byte(yamlSchema))
	if err != nil {
		t.Fatalf("Failed to parse schema: %s", err.Error())
	}
	if len(schema) != 4 {
		t.Fatalf("Expected 4 nodes; got %d", len(schema))
	}
	name, kind, extra, people := schema[0], schema[1], schema[2], schema[3]
	if !name.Required.IsSet() || name.Required.Source() != "" {
		t.Fatal("Boolean rule not decoded as a static rule")
	}
	if name.MinLength == nil || *name.MinLength != 2 {
		t.Fatalf("Unexpected minLength %v", name.MinLength)
	}
	if name.Debounce != 300*time.Millisecond {
		t.Fatalf("Expected 300ms debounce; got %s", name.Debounce)
	}
	if diff := cmp.Diff([]Choice{{Value: "a", Label: "a"}, {Value: "b", Label: "b"}}, kind.Options); diff != "" {
		t.Fatalf("Options mismatch (-expected +got):\n%s", diff)
	}
	if extra.Visible.Source() != "kind=b" {
		t.Fatalf("Condition rule not decoded; got %q", extra.Visible.Source())
	}
	if extra.Debounce != time.Second {
		t.Fatalf("Expected 1s debounce; got %s", extra.Debounce)
	}
	if diff := cmp.Diff(map[string]any{"widgetColor": "blue"}, extra.Extra); diff != "" {
		t.Fatalf("Extra options mismatch (-expected +got):\n%s", diff)
	}
	if people.MaxRows != 3 || people.Removable == nil || *people.Removable {
		t.Fatalf("List options not decoded: %d %v", people.MaxRows, people.Removable)
	}
	if len(people.Schema) != 1 || people.Schema[0].ID != "who" {
		t.Fatalf("Nested schema not decoded: %v", people.Schema)
	}
	if who := people.Schema[0]; !who.Disabled.IsSet() || who.Disabled.Source() != "" {
		t.Fatal("Quoted boolean rule not decoded as a static rule")
	}

	f := buildForm(t, schema, Options{})
	if !f.Field("name").Required() {
		t.Fatal("Decoded required rule not applied")
	}
	if f.Field("extra").Mounted() {
		t.Fatal("Decoded visible rule not applied")
	}
}

func TestParseJSON(t *testing.T) {
	schema, err := ParseJSON([]byte(`[{"id": "age", "type": "number", "min": 18, "default": 21, "required": "_value<30"}]`))
	if err != nil {
		t.Fatalf("Failed to parse schema: %s", err.Error())
	}
	if schema[0].Min == nil || *schema[0].Min != 18 {
		t.Fatalf("Unexpected min %v", schema[0].Min)
	}
	f := buildForm(t, schema, Options{})
	if !f.Field("age").Required() {
		t.Fatal("Value rule not applied to the default")
	}
	if err := f.Field("age").Change(40.0); err != nil {
		t.Fatalf("Failed to change value: %s", err.Error())
	}
	if f.Field("age").Required() {
		t.Fatal("Value rule not applied after change")
	}
}

func TestParseErrors(t *testing.T) {
	cases := map[string]string{
		"syntax": `[{"id": `,
		"rule":   `[{"id": "a", "type": "text", "visible": [1]}]`,
	}
	for name, doc := range cases {
		if _, err := ParseJSON([]byte(doc)); !errors.Is(err, ErrInvalidSchema) {
			t.Errorf("%s: expected ErrInvalidSchema; got %v", name, err)
		}
	}
}

type starWidget struct{ InputWidget }

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	other := NewRegistry()
	reg.RegisterWidget("stars", starWidget{InputWidget{InputType: "number", Numeric: true}})
	if _, ok := reg.Lookup("stars"); !ok {
		t.Fatal("Registered type not found")
	}
	if _, ok := other.Lookup("stars"); ok {
		t.Fatal("Registration leaked into another registry")
	}
	if reg.Types() != other.Types()+1 {
		t.Fatalf("Unexpected type counts %d and %d", reg.Types(), other.Types())
	}

	reg.RegisterWidget("stars", InputWidget{InputType: "range", Numeric: true})
	f := buildForm(t, Schema{{ID: "rating", Type: "stars"}}, Options{Registry: reg})
	input := FindByID(f.Node(), "rating")
	if typ, _ := getAttr(input, "type"); typ != "range" {
		t.Fatalf("Expected the last registration to win; got input type %q", typ)
	}

	if _, err := New(newBody(), Schema{{ID: "rating", Type: "stars"}}, Options{Registry: other}); !errors.Is(err, ErrUnknownType) {
		t.Fatalf("Expected ErrUnknownType; got %v", err)
	}
}

func TestCustomConstructor(t *testing.T) {
	reg := NewRegistry()
	reg.Register("fancy", Registration{Category: CategoryField, New: func(ctx *Context, node Node) (Element, error) {
		node.Type = "text"
		node.Class = "fancy " + node.Class
		return newField(ctx, node, InputWidget{InputType: "text"})
	}})
	f := buildForm(t, Schema{{ID: "a", Type: "fancy"}}, Options{Registry: reg})
	if !hasClass(f.Field("a").container, "fancy") {
		t.Fatal("Custom constructor not used")
	}
}

func TestLicenseGate(t *testing.T) {
	statuses := map[LicenseStatus]bool{
		LicenseValid:    true,
		LicenseOutdated: false,
		LicenseInvalid:  false,
	}
	for status, persists := range statuses {
		reg := NewRegistry()
		reg.SetLicense(func() LicenseStatus { return status })
		storage := newTestStorage()
		f := buildForm(t, Schema{{ID: "a", Type: "text"}}, Options{Registry: reg, Storage: storage, SaveProgress: true})
		if err := f.Field("a").Change("x"); err != nil {
			t.Fatalf("Failed to change value: %s", err.Error())
		}
		if saved := len(storage.items) == 1; saved != persists {
			t.Errorf("%s: expected saving %v; got %v", status, persists, saved)
		}
	}

	reg := NewRegistry()
	reg.SetLicense(nil)
	if reg.License() != LicenseInvalid {
		t.Fatalf("Expected a missing license check to be invalid; got %s", reg.License())
	}
}
