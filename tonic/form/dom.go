package form

import (
	"sort"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// newNode creates an element node with the given tag and attribute
// key/value pairs.
func newNode(tag string, attrs ...string) *html.Node {
	n := &html.Node{
		Type:     html.ElementNode,
		Data:     tag,
		DataAtom: atom.Lookup([]byte(tag)),
	}
	for i := 0; i+1 < len(attrs); i += 2 {
		setAttr(n, attrs[i], attrs[i+1])
	}
	return n
}

func newText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

func getAttr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func setAttr(n *html.Node, key, val string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: key, Val: val})
}

func removeAttr(n *html.Node, key string) {
	for i := range n.Attr {
		if n.Attr[i].Key == key {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			return
		}
	}
}

// toggleAttr sets a boolean attribute when on and removes it otherwise.
func toggleAttr(n *html.Node, key string, on bool) {
	if on {
		setAttr(n, key, "")
	} else {
		removeAttr(n, key)
	}
}

// setAttrs applies a map of attributes in key order.
func setAttrs(n *html.Node, attrs map[string]string) {
	keys := make([]string, 0, len(attrs))
	for k := range attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		setAttr(n, k, attrs[k])
	}
}

func hasClass(n *html.Node, class string) bool {
	v, _ := getAttr(n, "class")
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func toggleClass(n *html.Node, class string, on bool) {
	v, _ := getAttr(n, "class")
	classes := strings.Fields(v)
	out := classes[:0]
	found := false
	for _, c := range classes {
		if c == class {
			found = true
			if !on {
				continue
			}
		}
		out = append(out, c)
	}
	if on && !found {
		out = append(out, class)
	}
	if len(out) == 0 {
		removeAttr(n, "class")
		return
	}
	setAttr(n, "class", strings.Join(out, " "))
}

// setText replaces all children of n with a single text node.
func setText(n *html.Node, text string) {
	for c := n.FirstChild; c != nil; c = n.FirstChild {
		n.RemoveChild(c)
	}
	if text != "" {
		n.AppendChild(newText(text))
	}
}

// NewContainer returns a detached div to build a form into.
func NewContainer() *html.Node {
	return newNode("div")
}

// FindByID returns the first element node in the tree rooted at n whose id
// attribute equals id, or nil.
func FindByID(n *html.Node, id string) *html.Node {
	if n == nil {
		return nil
	}
	if n.Type == html.ElementNode {
		if v, ok := getAttr(n, "id"); ok && v == id {
			return n
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := FindByID(c, id); found != nil {
			return found
		}
	}
	return nil
}

// mount attaches node to parent right before a fixed anchor, so that
// re-attaching restores the original position among its siblings.
type mount struct {
	parent   *html.Node
	node     *html.Node
	anchor   *html.Node
	attached bool
}

func newMount(parent, node *html.Node, name string) mount {
	anchor := &html.Node{Type: html.CommentNode, Data: " " + name + " "}
	parent.AppendChild(anchor)
	return mount{parent: parent, node: node, anchor: anchor}
}

// set attaches or detaches the node. It is a no-op when the node is already
// in the requested state.
func (m *mount) set(on bool) {
	if m.parent == nil || on == m.attached {
		return
	}
	if on {
		m.parent.InsertBefore(m.node, m.anchor)
	} else {
		m.parent.RemoveChild(m.node)
	}
	m.attached = on
}

// release detaches the node and removes the anchor permanently.
func (m *mount) release() {
	m.set(false)
	if m.parent != nil && m.anchor.Parent == m.parent {
		m.parent.RemoveChild(m.anchor)
	}
	m.parent = nil
}
