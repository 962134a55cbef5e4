package form

import (
	"fmt"
	"strings"

	"github.com/G-Node/tonicforms/tonic/form/condition"
	"golang.org/x/net/html"
)

// Element is implemented by every schema-instantiable node: fields, groups,
// rows, tabs, lists and buttons.
type Element interface {
	ID() string
	Type() string
	// Visible reports the visibility computed by the last Update.
	Visible() bool
	// Mounted reports whether the element's container is attached to its
	// parent node.
	Mounted() bool
	// Update recomputes derived state from the current form data.
	Update() error
	// Reset restores the element's initial state.
	Reset() error
	// Destroy detaches the element permanently.
	Destroy()
}

// Validator is implemented by elements that hold a value to validate.
type Validator interface {
	Validate() bool
}

// Persister is implemented by elements that save progress.
type Persister interface {
	Save() error
	Load() error
}

// Container is implemented by elements whose children inherit their
// visibility.
type Container interface {
	ChildrenVisible() bool
}

// segment is one step of a data address: a map key, or a row of a list.
type segment struct {
	key  string
	list *List
	row  string
}

// scope is the addressing context of a subtree while it is built.
type scope struct {
	prefix  string
	path    []segment
	owner   Container
	tabs    *Tabs
	created *[]Element
}

func (sc scope) with(seg segment) scope {
	path := make([]segment, len(sc.path), len(sc.path)+1)
	copy(path, sc.path)
	sc.path = append(path, seg)
	return sc
}

// Context is handed to constructors while a schema is built.
type Context struct {
	Form   *Form
	Parent *html.Node
	sc     scope
}

// ID returns the form-wide id of an element declared with the local id.
// Elements built inside list rows get the row prefix.
func (c *Context) ID(local string) string {
	return c.sc.prefix + local
}

// Register adds el to the form's element tables. The schema builder
// registers elements its constructors did not register themselves.
func (c *Context) Register(el Element) error {
	return c.Form.register(el, c.sc)
}

// Build builds schema into parent in the current data scope, with owner as
// the container the new elements inherit visibility from.
func (c *Context) Build(schema Schema, parent *html.Node, owner Container) error {
	sc := c.sc
	sc.owner = owner
	sc.tabs = nil
	return c.Form.build(schema, parent, sc)
}

// Nested returns a context whose elements keep their data under key.
func (c *Context) Nested(key string) *Context {
	if key == "" {
		return c
	}
	return &Context{Form: c.Form, Parent: c.Parent, sc: c.sc.with(segment{key: key})}
}

// At returns a context building into parent.
func (c *Context) At(parent *html.Node) *Context {
	return &Context{Form: c.Form, Parent: parent, sc: c.sc}
}

func (c *Context) base(id, typ string, node Node, container *html.Node) element {
	if node.Class != "" {
		for _, class := range strings.Fields(node.Class) {
			toggleClass(container, class, true)
		}
	}
	return element{
		id:          id,
		local:       node.ID,
		typ:         typ,
		form:        c.Form,
		node:        node,
		container:   container,
		mount:       newMount(c.Parent, container, id),
		owner:       c.sc.owner,
		path:        c.sc.path,
		visibleRule: node.Visible,
	}
}

// element implements the lifecycle shared by all element types.
type element struct {
	id    string
	local string
	typ   string
	form  *Form
	node  Node

	container *html.Node
	mount     mount
	owner     Container
	path      []segment

	visibleRule Rule
	visible     bool
	destroyed   bool
}

func (e *element) ID() string    { return e.id }
func (e *element) Type() string  { return e.typ }
func (e *element) Visible() bool { return e.visible && !e.destroyed }
func (e *element) Mounted() bool { return e.mount.attached }

// Node returns the schema node the element was built from.
func (e *element) Node() Node { return e.node }

// Container returns the element's container node.
func (e *element) Container() *html.Node { return e.container }

func (e *element) parentVisible() bool {
	return e.owner == nil || e.owner.ChildrenVisible()
}

func (e *element) env(value any) condition.Env {
	return condition.Env{Value: value, Data: e.form.resolver(e.path)}
}

func (e *element) computeVisible(env condition.Env) bool {
	return e.parentVisible() && e.visibleRule.eval(env, e.form.data, true)
}

// handleVisibility mounts or unmounts the container to match the visibility
// flag. Calling it repeatedly in the same state does nothing.
func (e *element) handleVisibility() {
	if e.destroyed {
		return
	}
	e.mount.set(e.visible)
}

func (e *element) destroy() {
	if e.destroyed {
		return
	}
	e.mount.release()
	e.visible = false
	e.destroyed = true
}

func (e *element) Destroy() {
	e.destroy()
	e.form.unregister(e.id)
}

// dataResolver resolves condition paths: first relative to the data slot of
// the element (inside list rows and keyed groups), then as element ids, then
// from the root of the form data.
type dataResolver struct {
	form *Form
	path []segment
}

func (r dataResolver) Lookup(path string) (any, bool) {
	if len(r.path) > 0 {
		if m, ok := r.form.slot(r.path, false); ok {
			if v, ok := condition.MapResolver(m).Lookup(path); ok {
				return v, true
			}
		}
	}
	if f, ok := r.form.byID[path].(*Field); ok {
		return f.Value(), true
	}
	return condition.MapResolver(r.form.data).Lookup(path)
}

func elementError(id string, err error) error {
	return fmt.Errorf("element %q: %w", id, err)
}
