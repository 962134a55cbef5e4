package form

import (
	"golang.org/x/net/html"
)

// Group is a container for a nested schema. A group (fieldset) with a
// DataKey keeps its children's data under that key; a row only lays its
// children out side by side.
type Group struct {
	element
	content *html.Node
	row     bool
}

func newGroup(ctx *Context, node Node, isRow bool) (*Group, error) {
	id := ctx.ID(node.ID)
	var container, content *html.Node
	if isRow {
		container = newNode("div", "id", id, "class", "tonic-row")
		content = container
	} else {
		container = newNode("fieldset", "id", id, "class", "tonic-group")
		if node.Label != "" {
			legend := newNode("legend")
			legend.AppendChild(newText(node.Label))
			container.AppendChild(legend)
		}
		if node.Description != "" {
			desc := newNode("p", "class", "tonic-description")
			desc.AppendChild(newText(node.Description))
			container.AppendChild(desc)
		}
		content = newNode("div", "class", "tonic-group-content")
		container.AppendChild(content)
	}
	g := &Group{
		element: ctx.base(id, node.Type, node, container),
		content: content,
		row:     isRow,
	}
	if err := ctx.Register(g); err != nil {
		g.mount.release()
		return nil, err
	}
	inner := ctx
	if !isRow {
		inner = ctx.Nested(node.DataKey)
	}
	if err := inner.Build(node.Schema, content, g); err != nil {
		return nil, err
	}
	return g, nil
}

// Content returns the node the group's children are built into.
func (g *Group) Content() *html.Node { return g.content }

func (g *Group) ChildrenVisible() bool { return g.Visible() }

// Update recomputes the group's own visibility. Children are updated by the
// form.
func (g *Group) Update() error {
	if g.destroyed {
		return nil
	}
	g.visible = g.computeVisible(g.env(nil))
	g.handleVisibility()
	return nil
}

func (g *Group) Reset() error {
	return g.Update()
}
