package form

import (
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/G-Node/tonicforms/tonic/form/condition"
	"golang.org/x/net/html"
)

// Validity is the result of the last validation of a field.
type Validity int

const (
	// ValidityUnknown means the field was not validated since it was built
	// or reset.
	ValidityUnknown Validity = iota
	ValidityValid
	ValidityInvalid
)

func (v Validity) String() string {
	switch v {
	case ValidityValid:
		return "valid"
	case ValidityInvalid:
		return "invalid"
	}
	return "unknown"
}

// Field is a value-holding element rendered by a Widget.
type Field struct {
	element
	widget Widget
	state  FieldState

	errNode *html.Node

	requiredRule Rule
	disabledRule Rule
	required     bool
	disabled     bool

	value    any
	validity Validity
	message  string

	validator  ValidatorFunc
	pattern    *regexp.Regexp
	validation []condition.Rule
	debounce   *debouncer
}

func newField(ctx *Context, node Node, w Widget) (*Field, error) {
	id := ctx.ID(node.ID)
	container := newNode("div", "id", id+"-field", "class", "tonic-field tonic-"+node.Type)
	f := &Field{
		element:      ctx.base(id, node.Type, node, container),
		widget:       w,
		requiredRule: node.Required,
		disabledRule: node.Disabled,
		validator:    node.Validator,
	}
	f.state.ID = id
	f.state.Node = node

	if node.Pattern != "" {
		re, err := regexp.Compile("^(?:" + node.Pattern + ")$")
		if err != nil {
			f.mount.release()
			return nil, elementError(id, fmt.Errorf("%w: pattern: %v", ErrInvalidSchema, err))
		}
		f.pattern = re
	}
	if node.Validation != "" {
		f.validation = condition.Parse(node.Validation)
	}
	if f.validator == nil {
		f.validator = f.defaultValidate
	}
	if node.Debounce > 0 {
		f.debounce = &debouncer{delay: node.Debounce, post: f.form.loop.post}
	}

	if node.Label != "" {
		label := newNode("label", "for", id, "class", "tonic-label")
		label.AppendChild(newText(node.Label))
		container.AppendChild(label)
	}
	input := newNode("div", "class", "tonic-input")
	container.AppendChild(input)
	if node.Description != "" {
		desc := newNode("small", "class", "tonic-description")
		desc.AppendChild(newText(node.Description))
		container.AppendChild(desc)
	}
	f.errNode = newNode("div", "class", "tonic-error", "hidden", "")
	container.AppendChild(f.errNode)
	f.state.Error.Subscribe(func(msg string) {
		setText(f.errNode, msg)
		toggleAttr(f.errNode, "hidden", msg == "")
	})

	if err := w.Render(input, &f.state); err != nil {
		f.mount.release()
		return nil, elementError(id, err)
	}
	if err := ctx.Register(f); err != nil {
		f.mount.release()
		return nil, err
	}
	if err := f.Load(); err != nil {
		return nil, elementError(id, err)
	}
	return f, nil
}

// State returns the observable state the widget renders.
func (f *Field) State() *FieldState { return &f.state }

// Value returns the current value.
func (f *Field) Value() any { return f.value }

// Default returns a copy of the configured default value.
func (f *Field) Default() any { return normalizeNumber(deepCopy(f.node.Default)) }

func (f *Field) Required() bool     { return f.required }
func (f *Field) Disabled() bool     { return f.disabled }
func (f *Field) Validity() Validity { return f.validity }
func (f *Field) Message() string    { return f.message }

// SetValue stores v, writes it to the form data and runs a form update. With
// persist set the value is saved afterwards. Go numbers are stored as float64,
// the type posted and saved numbers decode to.
func (f *Field) SetValue(v any, persist bool) error {
	if f.destroyed {
		return nil
	}
	defer f.form.enter()()
	v = normalizeNumber(v)
	f.assign(v)
	if err := f.form.SetData(f.id, v); err != nil {
		return err
	}
	if persist {
		return f.Save()
	}
	return nil
}

// assign sets the value without touching the form data.
func (f *Field) assign(v any) {
	f.value = v
	f.state.Value.Set(v)
}

// Change commits a value as a user edit would.
func (f *Field) Change(v any) error {
	return f.SetValue(v, true)
}

// Input handles raw input. With a debounce interval configured only the last
// input of a burst is committed, from the form loop.
func (f *Field) Input(v any) {
	if f.destroyed {
		return
	}
	if f.debounce == nil {
		if err := f.Change(v); err != nil {
			f.form.logger.Printf("[%s] Input failed: %s", f.id, err.Error())
		}
		return
	}
	f.debounce.call(func() {
		if err := f.Change(v); err != nil {
			f.form.logger.Printf("[%s] Debounced input failed: %s", f.id, err.Error())
		}
	})
}

// Update recomputes visibility, then the disabled and required flags, then
// syncs the DOM. A field that was validated before is validated again.
func (f *Field) Update() error {
	if f.destroyed {
		return nil
	}
	env := f.env(f.value)
	env.Required, env.Disabled = f.required, f.disabled

	f.visible = f.computeVisible(env)
	f.disabled = f.disabledRule.eval(env, f.form.data, false)
	env.Disabled = f.disabled
	f.required = f.requiredRule.eval(env, f.form.data, false)

	f.handleVisibility()
	f.state.Disabled.Set(f.disabled)
	f.state.Required.Set(f.required)
	toggleClass(f.container, "disabled", f.disabled)
	toggleClass(f.container, "required", f.required)

	if f.validity != ValidityUnknown {
		f.Validate()
	}
	return nil
}

// Validate runs the validator and records the outcome with the form. An
// invisible field is valid without consulting the validator.
func (f *Field) Validate() bool {
	if f.destroyed {
		return true
	}
	msg, ok := "", true
	if f.visible {
		msg, ok = f.validator(f.value, f.form.data, f.required)
	}
	f.setValidity(ok, msg)
	return ok
}

func (f *Field) setValidity(ok bool, msg string) {
	if ok {
		f.validity, msg = ValidityValid, ""
	} else {
		f.validity = ValidityInvalid
		if msg == "" {
			msg = defaultInvalidMessage
		}
	}
	f.message = msg
	f.state.Error.Set(msg)
	toggleClass(f.container, "invalid", !ok)
	f.form.UpdateError(f.id, ok)
}

func (f *Field) clearValidity() {
	f.validity = ValidityUnknown
	f.message = ""
	f.state.Error.Set("")
	toggleClass(f.container, "invalid", false)
	f.form.UpdateError(f.id, true)
}

// Reset removes the saved value, restores the default and updates the field.
// The field is not validated. The saved value is removed whenever the form has
// storage, even when progress saving is off or the license is not valid.
func (f *Field) Reset() error {
	if f.destroyed {
		return nil
	}
	defer f.form.enter()()
	if err := f.forget(); err != nil {
		return err
	}
	v := f.Default()
	f.assign(v)
	f.form.store(f.id, v)
	f.clearValidity()
	return f.Update()
}

func (f *Field) persists() bool {
	return (f.node.Persist == nil || *f.node.Persist) && f.form.persisting()
}

func (f *Field) storageKey() string {
	return StorageKey(f.form.id, f.id)
}

// Save writes the value to the form storage.
func (f *Field) Save() error {
	if f.destroyed || !f.persists() {
		return nil
	}
	b, err := json.Marshal(f.value)
	if err != nil {
		return elementError(f.id, err)
	}
	return f.form.storage.SetItem(f.storageKey(), string(b))
}

// Load reads the saved value, or the default when nothing was saved. The
// value is written to the form data without an update.
func (f *Field) Load() error {
	if f.destroyed {
		return nil
	}
	v := f.Default()
	if f.persists() {
		raw, ok, err := f.form.storage.GetItem(f.storageKey())
		if err != nil {
			return err
		}
		if ok {
			var stored any
			if err := json.Unmarshal([]byte(raw), &stored); err != nil {
				f.form.logger.Printf("[%s] Ignoring malformed saved value: %s", f.id, err.Error())
			} else {
				v = stored
			}
		}
	}
	f.assign(v)
	f.form.store(f.id, v)
	return nil
}

func normalizeNumber(v any) any {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64, float32:
		n, _ := condition.ToNumber(v)
		return n
	}
	return v
}

// forget removes the saved value.
func (f *Field) forget() error {
	if (f.node.Persist != nil && !*f.node.Persist) || !f.form.clearing() {
		return nil
	}
	return f.form.storage.RemoveItem(f.storageKey())
}

// decode converts posted values with the widget's decoder.
func (f *Field) decode(values []string) (any, error) {
	if d, ok := f.widget.(Decoder); ok {
		return d.Decode(&f.state, values)
	}
	if values == nil {
		return nil, nil
	}
	return firstValue(values), nil
}

func (f *Field) Destroy() {
	if f.destroyed {
		return
	}
	if f.debounce != nil {
		f.debounce.stop()
	}
	f.state.Value.clear()
	f.state.Required.clear()
	f.state.Disabled.clear()
	f.state.Error.clear()
	f.element.Destroy()
}
