package form

import (
	"net/url"
	"sort"
	"strconv"

	"github.com/G-Node/tonicforms/tonic/form/condition"
)

// address locates a field's value below the root of the form data.
type address struct {
	path []segment
	key  string
}

// slot walks path from the root of the data and returns the map it ends in.
// Row segments are resolved to their current index, so removing a row moves
// the addresses of the rows after it. With create set, missing maps and array
// entries are added on the way.
func (f *Form) slot(path []segment, create bool) (map[string]any, bool) {
	cur := f.data
	for _, seg := range path {
		if seg.list == nil {
			next, ok := cur[seg.key].(map[string]any)
			if !ok {
				if !create {
					return nil, false
				}
				next = make(map[string]any)
				cur[seg.key] = next
			}
			cur = next
			continue
		}
		idx := seg.list.KeyIndex(seg.row)
		if idx < 0 {
			return nil, false
		}
		items, _ := cur[seg.key].([]any)
		if idx >= len(items) {
			if !create {
				return nil, false
			}
			for len(items) <= idx {
				items = append(items, make(map[string]any))
			}
			cur[seg.key] = items
		}
		next, ok := items[idx].(map[string]any)
		if !ok {
			if !create {
				return nil, false
			}
			next = make(map[string]any)
			items[idx] = next
		}
		cur = next
	}
	return cur, true
}

// store writes v to the data location of the element id.
func (f *Form) store(id string, v any) {
	addr, ok := f.prefixes[id]
	if !ok {
		f.data[id] = v
		return
	}
	if m, ok := f.slot(addr.path, true); ok {
		m[addr.key] = v
	}
}

func (f *Form) resolver(path []segment) condition.Resolver {
	return dataResolver{form: f, path: path}
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		m := make(map[string]any, len(t))
		for k, item := range t {
			m[k] = deepCopy(item)
		}
		return m
	case []any:
		items := make([]any, len(t))
		for i, item := range t {
			items[i] = deepCopy(item)
		}
		return items
	case []string:
		return append([]string(nil), t...)
	}
	return v
}

// Flatten encodes nested form data the way browsers post nested field
// names: list[0][name], group[name], and tags[] for lists of plain values.
func Flatten(data map[string]any) url.Values {
	values := url.Values{}
	flatten(values, "", data)
	return values
}

func flatten(values url.Values, name string, v any) {
	switch t := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := k
			if name != "" {
				child = name + "[" + k + "]"
			}
			flatten(values, child, t[k])
		}
	case []any:
		if scalars(t) {
			for _, item := range t {
				values.Add(name+"[]", condition.ToString(item))
			}
			return
		}
		for i, item := range t {
			flatten(values, name+"["+strconv.Itoa(i)+"]", item)
		}
	default:
		values.Add(name, condition.ToString(t))
	}
}

func scalars(items []any) bool {
	for _, item := range items {
		switch item.(type) {
		case map[string]any, []any:
			return false
		}
	}
	return true
}
