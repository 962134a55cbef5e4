package form

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/G-Node/tonicforms/tonic/form/condition"
	"golang.org/x/net/html"
)

// FieldState is the part of a field a widget renders. Widgets subscribe to
// the observables and keep their own nodes in sync.
type FieldState struct {
	// ID is the form-wide id of the field and the name of its inputs.
	ID   string
	Node Node

	Value    Observable[any]
	Required Observable[bool]
	Disabled Observable[bool]
	Error    Observable[string]
}

// Widget renders the input markup of a field type into container.
type Widget interface {
	Render(container *html.Node, state *FieldState) error
}

// Decoder is implemented by widgets that convert posted form values into the
// field's value. values is nil when the field was not posted.
type Decoder interface {
	Decode(state *FieldState, values []string) (any, error)
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

// bindFlags keeps the required and disabled attributes of n in sync.
func bindFlags(n *html.Node, state *FieldState) {
	toggleAttr(n, "required", state.Required.Get())
	toggleAttr(n, "disabled", state.Disabled.Get())
	state.Required.Subscribe(func(on bool) { toggleAttr(n, "required", on) })
	state.Disabled.Subscribe(func(on bool) { toggleAttr(n, "disabled", on) })
}

func selected(value any, option string) bool {
	if items, ok := value.([]any); ok {
		for _, item := range items {
			if condition.ToString(item) == option {
				return true
			}
		}
		return false
	}
	return value != nil && condition.ToString(value) == option
}

func truthy(v any) bool {
	switch t := v.(type) {
	case bool:
		return t
	case string:
		switch strings.ToLower(t) {
		case "true", "on", "1", "yes":
			return true
		}
	case float64:
		return t != 0
	case int:
		return t != 0
	}
	return false
}

// InputWidget renders a single <input> element.
type InputWidget struct {
	InputType string
	// Numeric inputs decode to float64.
	Numeric bool
}

func (w InputWidget) Render(container *html.Node, state *FieldState) error {
	input := newNode("input", "type", w.InputType, "id", state.ID, "name", state.ID)
	if state.Node.Placeholder != "" {
		setAttr(input, "placeholder", state.Node.Placeholder)
	}
	if w.Numeric {
		if state.Node.Min != nil {
			setAttr(input, "min", strconv.FormatFloat(*state.Node.Min, 'f', -1, 64))
		}
		if state.Node.Max != nil {
			setAttr(input, "max", strconv.FormatFloat(*state.Node.Max, 'f', -1, 64))
		}
	}
	setAttrs(input, state.Node.Attrs)
	container.AppendChild(input)

	sync := func(v any) {
		if v == nil {
			removeAttr(input, "value")
			return
		}
		setAttr(input, "value", condition.ToString(v))
	}
	sync(state.Value.Get())
	state.Value.Subscribe(sync)
	bindFlags(input, state)
	return nil
}

func (w InputWidget) Decode(_ *FieldState, values []string) (any, error) {
	v := firstValue(values)
	if !w.Numeric {
		return v, nil
	}
	if strings.TrimSpace(v) == "" {
		return nil, nil
	}
	n, ok := condition.ToNumber(v)
	if !ok {
		return nil, fmt.Errorf("invalid number %q", v)
	}
	return n, nil
}

// TextAreaWidget renders a <textarea>.
type TextAreaWidget struct{}

func (TextAreaWidget) Render(container *html.Node, state *FieldState) error {
	area := newNode("textarea", "id", state.ID, "name", state.ID)
	if state.Node.Placeholder != "" {
		setAttr(area, "placeholder", state.Node.Placeholder)
	}
	setAttrs(area, state.Node.Attrs)
	container.AppendChild(area)

	sync := func(v any) { setText(area, condition.ToString(v)) }
	sync(state.Value.Get())
	state.Value.Subscribe(sync)
	bindFlags(area, state)
	return nil
}

func (TextAreaWidget) Decode(_ *FieldState, values []string) (any, error) {
	return firstValue(values), nil
}

// CheckboxWidget renders a single checkbox holding a bool.
type CheckboxWidget struct{}

func (CheckboxWidget) Render(container *html.Node, state *FieldState) error {
	box := newNode("input", "type", "checkbox", "id", state.ID, "name", state.ID, "value", "true")
	setAttrs(box, state.Node.Attrs)
	container.AppendChild(box)

	sync := func(v any) { toggleAttr(box, "checked", truthy(v)) }
	sync(state.Value.Get())
	state.Value.Subscribe(sync)
	bindFlags(box, state)
	return nil
}

// Decode maps an unposted checkbox to false.
func (CheckboxWidget) Decode(_ *FieldState, values []string) (any, error) {
	return truthy(firstValue(values)), nil
}

// SelectWidget renders a <select> with the node's options. With Multiple
// set the value is a []any of the selected option values.
type SelectWidget struct{}

func (SelectWidget) Render(container *html.Node, state *FieldState) error {
	sel := newNode("select", "id", state.ID, "name", state.ID)
	toggleAttr(sel, "multiple", state.Node.Multiple)
	setAttrs(sel, state.Node.Attrs)
	if state.Node.Placeholder != "" && !state.Node.Multiple {
		opt := newNode("option", "value", "")
		opt.AppendChild(newText(state.Node.Placeholder))
		sel.AppendChild(opt)
	}
	var options []*html.Node
	for _, choice := range state.Node.Options {
		opt := newNode("option", "value", choice.Value)
		opt.AppendChild(newText(choice.Label))
		sel.AppendChild(opt)
		options = append(options, opt)
	}
	container.AppendChild(sel)

	sync := func(v any) {
		for i, opt := range options {
			toggleAttr(opt, "selected", selected(v, state.Node.Options[i].Value))
		}
	}
	sync(state.Value.Get())
	state.Value.Subscribe(sync)
	bindFlags(sel, state)
	return nil
}

func (SelectWidget) Decode(state *FieldState, values []string) (any, error) {
	if !state.Node.Multiple {
		return firstValue(values), nil
	}
	items := make([]any, 0, len(values))
	for _, v := range values {
		items = append(items, v)
	}
	return items, nil
}

// RadioWidget renders one radio input per option.
type RadioWidget struct{}

func (RadioWidget) Render(container *html.Node, state *FieldState) error {
	group := newNode("div", "class", "tonic-radio-group", "id", state.ID)
	var inputs []*html.Node
	for i, choice := range state.Node.Options {
		label := newNode("label", "class", "tonic-radio")
		input := newNode("input", "type", "radio", "name", state.ID, "id", fmt.Sprintf("%s-%d", state.ID, i), "value", choice.Value)
		setAttrs(input, state.Node.Attrs)
		label.AppendChild(input)
		label.AppendChild(newText(" " + choice.Label))
		group.AppendChild(label)
		inputs = append(inputs, input)
		bindFlags(input, state)
	}
	container.AppendChild(group)

	sync := func(v any) {
		for i, input := range inputs {
			toggleAttr(input, "checked", selected(v, state.Node.Options[i].Value))
		}
	}
	sync(state.Value.Get())
	state.Value.Subscribe(sync)
	return nil
}

func (RadioWidget) Decode(_ *FieldState, values []string) (any, error) {
	return firstValue(values), nil
}
