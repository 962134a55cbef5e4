package form

import (
	"fmt"

	"golang.org/x/net/html"
)

// Tabs shows one of its tab panes at a time. Only tab nodes may be its
// children.
type Tabs struct {
	element
	nav     *html.Node
	content *html.Node
	tabs    []*Tab
	active  string
}

// Tab is a pane of a Tabs container.
type Tab struct {
	element
	tabs   *Tabs
	header *html.Node
	hmount mount
}

func newTabs(ctx *Context, node Node) (*Tabs, error) {
	for _, child := range node.Schema {
		if child.Type != "tab" {
			return nil, fmt.Errorf("%w: tabs %q: child %q is a %q, not a tab", ErrInvalidSchema, node.ID, child.ID, child.Type)
		}
	}
	id := ctx.ID(node.ID)
	container := newNode("div", "id", id, "class", "tonic-tabs")
	t := &Tabs{
		element: ctx.base(id, node.Type, node, container),
		nav:     newNode("ul", "class", "tonic-tabs-nav"),
		content: newNode("div", "class", "tonic-tabs-content"),
	}
	container.AppendChild(t.nav)
	container.AppendChild(t.content)
	if err := ctx.Register(t); err != nil {
		t.mount.release()
		return nil, err
	}
	sc := ctx.sc
	sc.owner = t
	sc.tabs = t
	if err := ctx.Form.build(node.Schema, t.content, sc); err != nil {
		return nil, err
	}
	return t, nil
}

func newTab(ctx *Context, node Node) (*Tab, error) {
	tabs := ctx.sc.tabs
	if tabs == nil {
		return nil, fmt.Errorf("%w: tab %q outside of tabs", ErrInvalidSchema, node.ID)
	}
	id := ctx.ID(node.ID)
	pane := newNode("div", "id", id, "class", "tonic-tab")
	label := node.Label
	if label == "" {
		label = node.ID
	}
	header := newNode("li", "class", "tonic-tab-header")
	link := newNode("a", "href", "#"+id)
	link.AppendChild(newText(label))
	header.AppendChild(link)

	t := &Tab{
		element: ctx.base(id, node.Type, node, pane),
		tabs:    tabs,
		header:  header,
		hmount:  newMount(tabs.nav, header, id+"-header"),
	}
	if err := ctx.Register(t); err != nil {
		t.mount.release()
		t.hmount.release()
		return nil, err
	}
	tabs.tabs = append(tabs.tabs, t)
	if err := ctx.Build(node.Schema, pane, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *Tabs) ChildrenVisible() bool { return t.Visible() }

// Active returns the id of the active tab, or "" when no tab is visible.
func (t *Tabs) Active() string { return t.active }

// Tabs returns the panes in schema order.
func (t *Tabs) Tabs() []*Tab {
	return append([]*Tab(nil), t.tabs...)
}

// Activate makes the tab with the given id active.
func (t *Tabs) Activate(id string) error {
	for _, tab := range t.tabs {
		if tab.id == id && tab.Visible() {
			t.active = id
			t.sync()
			return nil
		}
	}
	return fmt.Errorf("%w: %q in %q", ErrNoSuchTab, id, t.id)
}

func (t *Tabs) Update() error {
	if t.destroyed {
		return nil
	}
	t.visible = t.computeVisible(t.env(nil))
	t.handleVisibility()
	for _, tab := range t.tabs {
		tab.refresh()
	}
	t.sync()
	return nil
}

func (t *Tabs) Reset() error {
	return t.Update()
}

// sync moves the active tab to the first visible one when it was hidden and
// applies the tab states to the DOM.
func (t *Tabs) sync() {
	current := false
	for _, tab := range t.tabs {
		if tab.id == t.active && tab.Visible() {
			current = true
		}
	}
	if !current {
		t.active = ""
		for _, tab := range t.tabs {
			if tab.Visible() {
				t.active = tab.id
				break
			}
		}
	}
	for _, tab := range t.tabs {
		if tab.destroyed {
			continue
		}
		on := tab.id == t.active
		tab.handleVisibility()
		tab.hmount.set(tab.visible)
		toggleClass(tab.header, "active", on)
		toggleClass(tab.container, "active", on)
		toggleAttr(tab.container, "hidden", !on)
	}
}

func (t *Tabs) Destroy() {
	for i := len(t.tabs) - 1; i >= 0; i-- {
		t.tabs[i].Destroy()
	}
	t.element.Destroy()
}

// Active reports whether the tab is the active pane.
func (t *Tab) Active() bool { return t.tabs.active == t.id }

func (t *Tab) ChildrenVisible() bool { return t.Visible() }

func (t *Tab) refresh() {
	if t.destroyed {
		return
	}
	t.visible = t.computeVisible(t.env(nil))
}

func (t *Tab) Update() error {
	if t.destroyed {
		return nil
	}
	t.refresh()
	t.tabs.sync()
	return nil
}

func (t *Tab) Reset() error {
	return t.Update()
}

func (t *Tab) Destroy() {
	if t.destroyed {
		return
	}
	t.hmount.release()
	t.element.Destroy()
}
