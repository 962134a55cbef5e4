package form

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"net/url"
	"sort"
	"strings"

	"github.com/G-Node/tonicforms/tonic/form/condition"
	"golang.org/x/net/html"
)

// Encoding selects how submitted data is handed to the submit callback.
type Encoding int

const (
	// EncodingJSON hands over the nested data only.
	EncodingJSON Encoding = iota
	// EncodingMultipart adds the data flattened into posted field names.
	EncodingMultipart
)

// Submission is passed to the submit callback of a valid form.
type Submission struct {
	Data   map[string]any
	Values url.Values
}

// Options configure a form. The zero value is usable.
type Options struct {
	// ID of the form node and prefix of its storage keys. Defaults to "form".
	ID string
	// Registry used to resolve element types. Defaults to DefaultRegistry().
	Registry *Registry
	// Storage for saved progress.
	Storage Storage
	// SaveProgress enables saving and loading of values to Storage.
	SaveProgress bool
	Encoding     Encoding
	OnSubmit     func(Submission) error
	// Logger defaults to a logger that discards everything.
	Logger *log.Logger
	// Class is added to the form node.
	Class string
}

func (o Options) withDefaults() Options {
	if o.ID == "" {
		o.ID = "form"
	}
	if o.Registry == nil {
		o.Registry = DefaultRegistry()
	}
	if o.Logger == nil {
		o.Logger = log.New(ioutil.Discard, "", 0)
	}
	return o
}

// Form builds a schema into a node tree and owns the data of all its
// elements. A Form is not safe for concurrent use; debounced input is
// delivered through RunPending or Run on the goroutine that owns the form.
type Form struct {
	id       string
	opts     Options
	registry *Registry
	storage  Storage
	logger   *log.Logger
	node     *html.Node
	parent   *html.Node

	data     map[string]any
	errors   map[string]bool
	prefixes map[string]address

	elements []Element
	byID     map[string]Element

	loop      *tasks
	building  bool
	destroyed bool
}

// New builds schema into a new form node appended to parent. Any error while
// building destroys the partially built form.
func New(parent *html.Node, schema Schema, opts Options) (*Form, error) {
	if parent == nil {
		return nil, ErrNoContainer
	}
	opts = opts.withDefaults()
	f := &Form{
		id:       opts.ID,
		opts:     opts,
		registry: opts.Registry,
		storage:  opts.Storage,
		logger:   opts.Logger,
		parent:   parent,
		data:     make(map[string]any),
		errors:   make(map[string]bool),
		prefixes: make(map[string]address),
		byID:     make(map[string]Element),
		loop:     newTasks(),
	}
	f.node = newNode("form", "id", opts.ID, "class", "tonic-form", "method", "post", "novalidate", "")
	if opts.Class != "" {
		toggleClass(f.node, opts.Class, true)
	}
	parent.AppendChild(f.node)

	done := f.enter()
	f.building = true
	err := f.BuildSchema(schema, f.node)
	f.building = false
	if err == nil {
		err = f.Update()
	}
	if err != nil {
		f.loop.micro = nil
		done()
		f.Destroy()
		return nil, err
	}
	done()
	return f, nil
}

func (f *Form) enter() func() {
	return f.loop.enter()
}

// BuildSchema builds schema into container at the top level of the form.
func (f *Form) BuildSchema(schema Schema, container *html.Node) error {
	defer f.enter()()
	return f.build(schema, container, scope{})
}

func (f *Form) build(schema Schema, parent *html.Node, sc scope) error {
	if parent == nil {
		return ErrNoContainer
	}
	for _, node := range schema {
		if node.ID == "" {
			return fmt.Errorf("%w (type %q)", ErrMissingID, node.Type)
		}
		reg, ok := f.registry.Lookup(node.Type)
		if !ok {
			return fmt.Errorf("%w: %q (element %q)", ErrUnknownType, node.Type, node.ID)
		}
		if reg.Category != CategoryGroup && len(node.Schema) > 0 {
			return fmt.Errorf("%w: %s %q cannot have children", ErrInvalidSchema, node.Type, node.ID)
		}
		ctx := &Context{Form: f, Parent: parent, sc: sc}
		el, err := reg.New(ctx, node)
		if err != nil {
			return err
		}
		if el == nil {
			return fmt.Errorf("%w: constructor of %q returned no element", ErrInvalidSchema, node.Type)
		}
		if f.byID[el.ID()] != el {
			if err := f.register(el, sc); err != nil {
				el.Destroy()
				return err
			}
		}
	}
	return nil
}

func (f *Form) register(el Element, sc scope) error {
	id := el.ID()
	if id == "" {
		return ErrMissingID
	}
	if _, ok := f.byID[id]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicateID, id)
	}
	f.byID[id] = el
	f.elements = append(f.elements, el)
	if sc.created != nil {
		*sc.created = append(*sc.created, el)
	}
	if field, ok := el.(*Field); ok && len(sc.path) > 0 {
		f.prefixes[id] = address{path: sc.path, key: field.local}
	}
	return nil
}

func (f *Form) unregister(id string) {
	el, ok := f.byID[id]
	if !ok {
		return
	}
	delete(f.byID, id)
	delete(f.prefixes, id)
	delete(f.errors, id)
	for i, e := range f.elements {
		if e == el {
			f.elements = append(f.elements[:i:i], f.elements[i+1:]...)
			break
		}
	}
}

// forgetPrefix drops the address and error entries of all ids in a removed
// list row.
func (f *Form) forgetPrefix(prefix string) {
	for id := range f.prefixes {
		if strings.HasPrefix(id, prefix) {
			delete(f.prefixes, id)
		}
	}
	for id := range f.errors {
		if strings.HasPrefix(id, prefix) {
			delete(f.errors, id)
		}
	}
}

func (f *Form) snapshot() []Element {
	return append([]Element(nil), f.elements...)
}

func (f *Form) persisting() bool {
	return f.opts.SaveProgress && f.storage != nil && f.registry.License() == LicenseValid
}

// clearing reports whether saved values are removed on reset. Unlike
// persisting it ignores SaveProgress and the license.
func (f *Form) clearing() bool {
	return f.storage != nil
}

// refresh runs an update unless the form is still being built.
func (f *Form) refresh() error {
	if f.building {
		return nil
	}
	return f.Update()
}

// ID returns the form id.
func (f *Form) ID() string { return f.id }

// Node returns the form node.
func (f *Form) Node() *html.Node { return f.node }

// SaveProgress reports whether values are saved to the form storage.
func (f *Form) SaveProgress() bool { return f.opts.SaveProgress }

// Registry returns the registry the form was built with.
func (f *Form) Registry() *Registry { return f.registry }

// Logger returns the form logger.
func (f *Form) Logger() *log.Logger { return f.logger }

// SetData stores v for the element id and updates the whole form. Ids of
// fields in groups and list rows are routed to their nested location.
func (f *Form) SetData(id string, v any) error {
	if f.destroyed {
		return nil
	}
	defer f.enter()()
	f.store(id, v)
	return f.refresh()
}

// Data returns a copy of the form data.
func (f *Form) Data() map[string]any {
	return deepCopy(f.data).(map[string]any)
}

// Value returns a copy of the data at a dotted or bracketed path.
func (f *Form) Value(path string) (any, bool) {
	v, ok := condition.MapResolver(f.data).Lookup(path)
	return deepCopy(v), ok
}

// UpdateError records the validation outcome of an element.
func (f *Form) UpdateError(id string, valid bool) {
	if valid {
		delete(f.errors, id)
	} else {
		f.errors[id] = true
	}
}

// Valid reports whether no element is recorded as invalid.
func (f *Form) Valid() bool { return len(f.errors) == 0 }

// Errors returns the ids of invalid elements, sorted.
func (f *Form) Errors() []string {
	ids := make([]string, 0, len(f.errors))
	for id := range f.errors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Update recomputes the state of every element, in registration order.
func (f *Form) Update() error {
	if f.destroyed {
		return nil
	}
	defer f.enter()()
	for _, el := range f.snapshot() {
		if err := el.Update(); err != nil {
			return elementError(el.ID(), err)
		}
	}
	return nil
}

// Validate validates every element. A panicking validator marks its field
// invalid and does not stop the others; the panics are returned joined.
func (f *Form) Validate() (bool, error) {
	if f.destroyed {
		return true, nil
	}
	defer f.enter()()
	var errs []error
	for _, el := range f.snapshot() {
		v, ok := el.(Validator)
		if !ok {
			continue
		}
		if err := f.validate(el.ID(), v); err != nil {
			errs = append(errs, err)
		}
	}
	return f.Valid(), errors.Join(errs...)
}

func (f *Form) validate(id string, v Validator) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validator of %q panicked: %v", id, r)
			f.logger.Printf("[%s] %s", f.id, err.Error())
			f.UpdateError(id, false)
		}
	}()
	v.Validate()
	return nil
}

// Save saves every element.
func (f *Form) Save() error {
	if f.destroyed {
		return nil
	}
	defer f.enter()()
	for _, el := range f.snapshot() {
		if p, ok := el.(Persister); ok {
			if err := p.Save(); err != nil {
				return err
			}
		}
	}
	return nil
}

// Load loads every element and updates the form.
func (f *Form) Load() error {
	if f.destroyed {
		return nil
	}
	defer f.enter()()
	for _, el := range f.snapshot() {
		if p, ok := el.(Persister); ok {
			if err := p.Load(); err != nil {
				return err
			}
		}
	}
	return f.Update()
}

// Reset resets every element and updates the form. Saved values are removed
// from the storage regardless of SaveProgress and the license.
func (f *Form) Reset() error {
	if f.destroyed {
		return nil
	}
	defer f.enter()()
	for _, el := range f.snapshot() {
		if err := el.Reset(); err != nil {
			return err
		}
	}
	return f.Update()
}

// Submit validates the form and hands the data to the submit callback. It
// reports whether the form was valid; an invalid form does not call the
// callback and is not an error.
func (f *Form) Submit() (bool, error) {
	if f.destroyed {
		return false, nil
	}
	defer f.enter()()
	ok, err := f.Validate()
	if err != nil || !ok {
		return false, err
	}
	if f.opts.OnSubmit == nil {
		return true, nil
	}
	sub := Submission{Data: f.Data()}
	if f.opts.Encoding == EncodingMultipart {
		sub.Values = Flatten(sub.Data)
	}
	return true, f.opts.OnSubmit(sub)
}

// ApplyValues sets field values from posted form values. List rows are
// rebuilt from their keys inputs first. Fields that are hidden or disabled
// are not posted by browsers and keep their values.
func (f *Form) ApplyValues(values url.Values) error {
	if f.destroyed {
		return nil
	}
	defer f.enter()()
	seen := make(map[*List]bool)
	for {
		var next *List
		for _, el := range f.elements {
			if l, ok := el.(*List); ok && !seen[l] {
				next = l
				break
			}
		}
		if next == nil {
			break
		}
		seen[next] = true
		if raw, ok := values[next.id+KeysSuffix]; ok {
			if err := next.SetKeys(ParseKeys(strings.Join(raw, ","))); err != nil {
				return err
			}
		}
	}
	for _, el := range f.snapshot() {
		field, ok := el.(*Field)
		if !ok || field.destroyed || !field.visible || field.disabled {
			continue
		}
		v, err := field.decode(values[field.id])
		if err != nil {
			return elementError(field.id, err)
		}
		field.assign(v)
		f.store(field.id, v)
	}
	return f.Update()
}

// Pressed returns the first visible button whose name was posted.
func (f *Form) Pressed(values url.Values) *Button {
	for _, el := range f.elements {
		if b, ok := el.(*Button); ok && b.Visible() {
			if _, ok := values[b.id]; ok {
				return b
			}
		}
	}
	return nil
}

// Elements returns all elements in registration order.
func (f *Form) Elements() []Element { return f.snapshot() }

// Element returns the element with the given id.
func (f *Form) Element(id string) (Element, bool) {
	el, ok := f.byID[id]
	return el, ok
}

// Field returns the field with the given id, or nil.
func (f *Form) Field(id string) *Field {
	field, _ := f.byID[id].(*Field)
	return field
}

// Group returns the group or row with the given id, or nil.
func (f *Form) Group(id string) *Group {
	g, _ := f.byID[id].(*Group)
	return g
}

// List returns the list with the given id, or nil.
func (f *Form) List(id string) *List {
	l, _ := f.byID[id].(*List)
	return l
}

// Tabs returns the tabs container with the given id, or nil.
func (f *Form) Tabs(id string) *Tabs {
	t, _ := f.byID[id].(*Tabs)
	return t
}

// Button returns the button with the given id, or nil.
func (f *Form) Button(id string) *Button {
	b, _ := f.byID[id].(*Button)
	return b
}

// Render writes the markup of the form node.
func (f *Form) Render(w io.Writer) error {
	return html.Render(w, f.node)
}

// Destroy destroys all elements and detaches the form node.
func (f *Form) Destroy() {
	if f.destroyed {
		return
	}
	for i := len(f.elements) - 1; i >= 0; i-- {
		if i < len(f.elements) {
			f.elements[i].Destroy()
		}
	}
	f.elements = nil
	if f.node.Parent != nil {
		f.node.Parent.RemoveChild(f.node)
	}
	f.destroyed = true
}

// RunPending runs the tasks posted to the form loop, such as debounced input,
// and returns how many ran.
func (f *Form) RunPending() int {
	if f.destroyed {
		return 0
	}
	return f.loop.runPending()
}

// Run runs posted tasks until ctx is done.
func (f *Form) Run(ctx context.Context) error {
	return f.loop.run(ctx)
}
