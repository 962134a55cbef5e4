package form

// Button actions.
const (
	ActionSubmit = "submit"
	ActionReset  = "reset"
	ActionSave   = "save"
)

// Button runs a form action or a custom OnClick handler.
type Button struct {
	element
	action       string
	onClick      func(*Form) error
	disabledRule Rule
	disabled     bool
}

func newButton(ctx *Context, node Node) (*Button, error) {
	id := ctx.ID(node.ID)
	action := node.Action
	if action == "" && node.Type != "button" {
		action = node.Type
	}
	label := node.Label
	if label == "" {
		label = node.ID
	}
	kind := "submit"
	if action == "" && node.OnClick == nil {
		kind = "button"
	}
	class := "tonic-button"
	if action != "" {
		class += " tonic-button-" + action
	}
	container := newNode("button", "type", kind, "id", id, "name", id, "class", class)
	if action != "" {
		setAttr(container, "value", action)
	}
	if action != ActionSubmit && kind == "submit" {
		setAttr(container, "formnovalidate", "")
	}
	setAttrs(container, node.Attrs)
	container.AppendChild(newText(label))

	b := &Button{
		element:      ctx.base(id, node.Type, node, container),
		action:       action,
		onClick:      node.OnClick,
		disabledRule: node.Disabled,
	}
	if err := ctx.Register(b); err != nil {
		b.mount.release()
		return nil, err
	}
	return b, nil
}

// Action returns the form action of the button, or "" for custom buttons.
func (b *Button) Action() string { return b.action }
func (b *Button) Disabled() bool { return b.disabled }

// Click runs the button. Invisible and disabled buttons ignore clicks.
func (b *Button) Click() error {
	if b.destroyed || !b.visible || b.disabled {
		return nil
	}
	defer b.form.enter()()
	if b.onClick != nil {
		return b.onClick(b.form)
	}
	switch b.action {
	case ActionSubmit:
		_, err := b.form.Submit()
		return err
	case ActionReset:
		return b.form.Reset()
	case ActionSave:
		return b.form.Save()
	}
	return nil
}

func (b *Button) Update() error {
	if b.destroyed {
		return nil
	}
	env := b.env(nil)
	b.visible = b.computeVisible(env)
	b.disabled = b.disabledRule.eval(env, b.form.data, false)
	b.handleVisibility()
	toggleAttr(b.container, "disabled", b.disabled)
	return nil
}

func (b *Button) Reset() error {
	return b.Update()
}
