package form

import (
	"sync"
)

// Category groups element types by how the schema builder treats them.
type Category int

const (
	CategoryField Category = iota
	CategoryGroup
	CategoryButton
)

// Constructor builds an element from a schema node into ctx.Parent.
type Constructor func(ctx *Context, node Node) (Element, error)

// Registration binds an element type to its constructor.
type Registration struct {
	Category Category
	New      Constructor
}

// Registry maps element types to constructors and carries the license check
// that gates persistence. A Registry is safe for concurrent use; forms only
// read from it.
type Registry struct {
	mu      sync.RWMutex
	types   map[string]Registration
	license LicenseFunc
}

// NewRegistry returns a registry with the built-in element types registered
// and a license check that always reports LicenseValid.
func NewRegistry() *Registry {
	r := &Registry{
		types:   make(map[string]Registration),
		license: func() LicenseStatus { return LicenseValid },
	}
	registerBuiltins(r)
	return r
}

var (
	defaultRegistry     *Registry
	defaultRegistryOnce sync.Once
)

// DefaultRegistry returns the shared registry used by forms created without
// an explicit registry.
func DefaultRegistry() *Registry {
	defaultRegistryOnce.Do(func() {
		defaultRegistry = NewRegistry()
	})
	return defaultRegistry
}

// Register binds typ to reg. A later registration for the same type replaces
// the earlier one.
func (r *Registry) Register(typ string, reg Registration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[typ] = reg
}

// RegisterWidget registers a field type rendered by w.
func (r *Registry) RegisterWidget(typ string, w Widget) {
	r.Register(typ, Registration{
		Category: CategoryField,
		New: func(ctx *Context, node Node) (Element, error) {
			return newField(ctx, node, w)
		},
	})
}

// Lookup returns the registration of typ.
func (r *Registry) Lookup(typ string) (Registration, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	reg, ok := r.types[typ]
	return reg, ok
}

// Types returns the number of registered types.
func (r *Registry) Types() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}

// SetLicense replaces the license check.
func (r *Registry) SetLicense(fn LicenseFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if fn == nil {
		fn = func() LicenseStatus { return LicenseInvalid }
	}
	r.license = fn
}

// License runs the license check.
func (r *Registry) License() LicenseStatus {
	r.mu.RLock()
	fn := r.license
	r.mu.RUnlock()
	return fn()
}

func registerBuiltins(r *Registry) {
	for _, typ := range []string{"text", "email", "password", "date", "color", "tel", "url", "search", "time", "hidden"} {
		r.RegisterWidget(typ, InputWidget{InputType: typ})
	}
	r.RegisterWidget("number", InputWidget{InputType: "number", Numeric: true})
	r.RegisterWidget("range", InputWidget{InputType: "range", Numeric: true})
	r.RegisterWidget("textarea", TextAreaWidget{})
	r.RegisterWidget("checkbox", CheckboxWidget{})
	r.RegisterWidget("select", SelectWidget{})
	r.RegisterWidget("radio", RadioWidget{})

	r.Register("group", Registration{Category: CategoryGroup, New: func(ctx *Context, node Node) (Element, error) {
		return newGroup(ctx, node, false)
	}})
	r.Register("row", Registration{Category: CategoryGroup, New: func(ctx *Context, node Node) (Element, error) {
		return newGroup(ctx, node, true)
	}})
	r.Register("tabs", Registration{Category: CategoryGroup, New: func(ctx *Context, node Node) (Element, error) {
		return newTabs(ctx, node)
	}})
	r.Register("tab", Registration{Category: CategoryGroup, New: func(ctx *Context, node Node) (Element, error) {
		return newTab(ctx, node)
	}})
	r.Register("list", Registration{Category: CategoryGroup, New: func(ctx *Context, node Node) (Element, error) {
		return newList(ctx, node)
	}})
	for _, typ := range []string{"button", "submit", "reset", "save"} {
		r.Register(typ, Registration{Category: CategoryButton, New: func(ctx *Context, node Node) (Element, error) {
			return newButton(ctx, node)
		}})
	}
}
