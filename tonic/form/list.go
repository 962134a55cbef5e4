package form

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/net/html"
)

// KeysSuffix is appended to a list id to name the hidden input that carries
// its row keys.
const KeysSuffix = "__keys"

// List repeats its schema once per row. Every row has an opaque key; the
// data of a row lives at the row's index in the list's data array.
type List struct {
	element
	sc        scope
	rowsNode  *html.Node
	keysInput *html.Node
	add       *Button

	keys []string
	rows map[string]*listRow
}

type listRow struct {
	key      string
	id       string
	group    *Group
	elements []Element
}

// forgetter is implemented by elements that can remove their saved state.
type forgetter interface {
	forget() error
}

func newList(ctx *Context, node Node) (*List, error) {
	id := ctx.ID(node.ID)
	container := newNode("div", "id", id, "class", "tonic-list")
	if node.Label != "" {
		label := newNode("label", "class", "tonic-list-label")
		label.AppendChild(newText(node.Label))
		container.AppendChild(label)
	}
	l := &List{
		element:   ctx.base(id, node.Type, node, container),
		sc:        ctx.sc,
		rowsNode:  newNode("div", "class", "tonic-list-rows"),
		keysInput: newNode("input", "type", "hidden", "name", id+KeysSuffix, "value", ""),
		rows:      make(map[string]*listRow),
	}
	container.AppendChild(l.rowsNode)
	container.AppendChild(l.keysInput)
	if err := ctx.Register(l); err != nil {
		l.mount.release()
		return nil, err
	}
	if items, ok := l.array(); !ok || items == nil {
		l.setArray([]any{})
	}

	if node.Addable == nil || *node.Addable {
		label := node.AddLabel
		if label == "" {
			label = "Add"
		}
		sc := ctx.sc
		sc.owner = l
		add, err := newButton(&Context{Form: ctx.Form, Parent: container, sc: sc}, Node{
			ID:       node.ID + "__add",
			Type:     "button",
			Label:    label,
			Disabled: Func(func(any, map[string]any) bool { return l.full() }),
			OnClick: func(*Form) error {
				_, err := l.AddRow("")
				return err
			},
		})
		if err != nil {
			return nil, err
		}
		l.add = add
	}
	if err := l.Load(); err != nil {
		return nil, elementError(id, err)
	}
	return l, nil
}

func (l *List) ChildrenVisible() bool { return l.Visible() }

// Keys returns the row keys in order.
func (l *List) Keys() []string {
	return append([]string(nil), l.keys...)
}

// Len returns the number of rows.
func (l *List) Len() int { return len(l.keys) }

// KeyIndex returns the index of the row with the given key, or -1.
func (l *List) KeyIndex(key string) int {
	for i, k := range l.keys {
		if k == key {
			return i
		}
	}
	return -1
}

// RowID returns the id of the group holding the row with the given key.
func (l *List) RowID(key string) string {
	return l.id + "[" + key + "]"
}

// Row returns the group of the row with the given key.
func (l *List) Row(key string) *Group {
	if row, ok := l.rows[key]; ok {
		return row.group
	}
	return nil
}

// AddButton returns the button adding rows, if the list has one.
func (l *List) AddButton() *Button { return l.add }

func (l *List) full() bool {
	return l.node.MaxRows > 0 && len(l.keys) >= l.node.MaxRows
}

func (l *List) array() ([]any, bool) {
	m, ok := l.form.slot(l.sc.path, false)
	if !ok {
		return nil, false
	}
	items, ok := m[l.local].([]any)
	return items, ok
}

func (l *List) setArray(items []any) {
	if m, ok := l.form.slot(l.sc.path, true); ok {
		m[l.local] = items
	}
}

// AddRow appends a row. An empty key is replaced by a new time-based one.
// It returns the key of the new row.
func (l *List) AddRow(key string) (string, error) {
	if l.destroyed {
		return "", nil
	}
	defer l.form.enter()()
	key, err := l.addRow(key)
	if err != nil {
		return "", err
	}
	if err := l.Save(); err != nil {
		return key, err
	}
	return key, l.form.refresh()
}

func (l *List) addRow(key string) (string, error) {
	if l.full() {
		return "", fmt.Errorf("%w: %q holds %d rows", ErrListFull, l.id, l.node.MaxRows)
	}
	if key == "" {
		u, err := uuid.NewUUID()
		if err != nil {
			return "", err
		}
		key = u.String()
	}
	if l.KeyIndex(key) >= 0 {
		return "", fmt.Errorf("%w: row %q of list %q", ErrDuplicateID, key, l.id)
	}
	l.keys = append(l.keys, key)
	items, _ := l.array()
	for len(items) < len(l.keys) {
		items = append(items, map[string]any{})
	}
	l.setArray(items)

	row := &listRow{key: key, id: l.RowID(key)}
	l.rows[key] = row
	sc := l.sc.with(segment{key: l.local, list: l, row: key})
	sc.prefix = row.id
	sc.owner = l
	sc.tabs = nil
	sc.created = &row.elements

	container := newNode("div", "id", row.id, "class", "tonic-list-row")
	ctx := &Context{Form: l.form, Parent: l.rowsNode, sc: sc}
	g := &Group{
		element: ctx.base(row.id, "row", Node{ID: key, Type: "row"}, container),
		content: container,
		row:     true,
	}
	if err := ctx.Register(g); err != nil {
		g.mount.release()
		l.removeRow(key, false)
		return "", err
	}
	row.group = g

	inner := ctx.At(container)
	if err := inner.Build(l.node.Schema, container, g); err != nil {
		l.removeRow(key, false)
		return "", err
	}
	if l.node.Removable == nil || *l.node.Removable {
		label := l.node.RemoveLabel
		if label == "" {
			label = "Remove"
		}
		inner.sc.owner = g
		_, err := newButton(inner, Node{
			ID:      "__remove",
			Type:    "button",
			Label:   label,
			OnClick: func(*Form) error { return l.RemoveRow(key) },
		})
		if err != nil {
			l.removeRow(key, false)
			return "", err
		}
	}
	l.syncKeys()
	return key, nil
}

// RemoveRow removes the row with the given key together with its data and
// saved values. Rows after it move up by one index. Unknown keys are
// ignored.
func (l *List) RemoveRow(key string) error {
	if l.destroyed || l.KeyIndex(key) < 0 {
		return nil
	}
	defer l.form.enter()()
	if err := l.removeRow(key, true); err != nil {
		return err
	}
	if err := l.Save(); err != nil {
		return err
	}
	return l.form.refresh()
}

func (l *List) removeRow(key string, forget bool) error {
	idx := l.KeyIndex(key)
	if idx < 0 {
		return nil
	}
	var first error
	if row, ok := l.rows[key]; ok {
		for i := len(row.elements) - 1; i >= 0; i-- {
			el := row.elements[i]
			if fg, ok := el.(forgetter); ok && forget {
				if err := fg.forget(); err != nil && first == nil {
					first = err
				}
			}
			el.Destroy()
		}
		l.form.forgetPrefix(row.id)
		delete(l.rows, key)
	}
	if items, ok := l.array(); ok && idx < len(items) {
		l.setArray(append(items[:idx:idx], items[idx+1:]...))
	}
	l.keys = append(l.keys[:idx:idx], l.keys[idx+1:]...)
	l.syncKeys()
	return first
}

func (l *List) clear(forget bool) error {
	var first error
	for len(l.keys) > 0 {
		if err := l.removeRow(l.keys[len(l.keys)-1], forget); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Refresh removes all rows and then adds one empty row. The new row is
// created after the current operation has finished.
func (l *List) Refresh() error {
	if l.destroyed {
		return nil
	}
	defer l.form.enter()()
	if err := l.refreshRows(true); err != nil {
		return err
	}
	if err := l.Save(); err != nil {
		return err
	}
	return l.form.refresh()
}

func (l *List) refreshRows(forget bool) error {
	err := l.clear(forget)
	l.form.loop.later(l.addDefault)
	return err
}

func (l *List) addDefault() {
	if l.destroyed || len(l.keys) > 0 {
		return
	}
	if _, err := l.addRow(""); err != nil {
		l.form.logger.Printf("[%s] Failed to add default row: %s", l.id, err.Error())
		return
	}
	if err := l.Save(); err != nil {
		l.form.logger.Printf("[%s] Failed to save row keys: %s", l.id, err.Error())
	}
	if err := l.form.refresh(); err != nil {
		l.form.logger.Printf("[%s] Update after default row failed: %s", l.id, err.Error())
	}
}

// SetKeys rebuilds the rows for keys, in order. Rows keep their saved
// values.
func (l *List) SetKeys(keys []string) error {
	if l.destroyed || equalKeys(keys, l.keys) {
		return nil
	}
	defer l.form.enter()()
	if err := l.clear(false); err != nil {
		return err
	}
	for _, key := range keys {
		if _, err := l.addRow(key); err != nil {
			return elementError(l.id, err)
		}
	}
	return l.form.refresh()
}

func equalKeys(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ParseKeys splits the value of a list's keys input.
func ParseKeys(value string) []string {
	var keys []string
	for _, k := range strings.Split(value, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

func (l *List) syncKeys() {
	setAttr(l.keysInput, "value", strings.Join(l.keys, ","))
}

func (l *List) persists() bool {
	return (l.node.Persist == nil || *l.node.Persist) && l.form.persisting()
}

func (l *List) storageKey() string {
	return StorageKey(l.form.id, l.id)
}

// Save writes the key sequence. Row values are saved by the row fields.
func (l *List) Save() error {
	if l.destroyed || !l.persists() {
		return nil
	}
	b, err := json.Marshal(l.keys)
	if err != nil {
		return elementError(l.id, err)
	}
	return l.form.storage.SetItem(l.storageKey(), string(b))
}

// Load rebuilds the rows from the saved key sequence; the row fields load
// their own values. Without saved keys the list gets one empty row.
func (l *List) Load() error {
	if l.destroyed {
		return nil
	}
	defer l.form.enter()()
	var keys []string
	if l.persists() {
		raw, ok, err := l.form.storage.GetItem(l.storageKey())
		if err != nil {
			return err
		}
		if ok {
			if err := json.Unmarshal([]byte(raw), &keys); err != nil {
				l.form.logger.Printf("[%s] Ignoring malformed saved keys: %s", l.id, err.Error())
				keys = nil
			}
		}
	}
	if len(keys) == 0 {
		if err := l.refreshRows(false); err != nil {
			return err
		}
		return l.form.refresh()
	}
	if err := l.clear(false); err != nil {
		return err
	}
	for _, key := range keys {
		if l.full() {
			l.form.logger.Printf("[%s] Dropping saved rows beyond %d", l.id, l.node.MaxRows)
			break
		}
		if _, err := l.addRow(key); err != nil {
			return err
		}
	}
	return l.form.refresh()
}

func (l *List) forget() error {
	var first error
	for _, key := range l.keys {
		row := l.rows[key]
		if row == nil {
			continue
		}
		for _, el := range row.elements {
			if fg, ok := el.(forgetter); ok {
				if err := fg.forget(); err != nil && first == nil {
					first = err
				}
			}
		}
	}
	if (l.node.Persist == nil || *l.node.Persist) && l.form.clearing() {
		if err := l.form.storage.RemoveItem(l.storageKey()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (l *List) Update() error {
	if l.destroyed {
		return nil
	}
	l.visible = l.computeVisible(l.env(nil))
	l.handleVisibility()
	return nil
}

// Reset removes the saved rows and refreshes to one empty row.
func (l *List) Reset() error {
	if l.destroyed {
		return nil
	}
	defer l.form.enter()()
	if err := l.forget(); err != nil {
		return err
	}
	if err := l.refreshRows(false); err != nil {
		return err
	}
	return l.form.refresh()
}

func (l *List) Destroy() {
	if l.destroyed {
		return
	}
	for i := len(l.keys) - 1; i >= 0; i-- {
		row := l.rows[l.keys[i]]
		for j := len(row.elements) - 1; j >= 0; j-- {
			row.elements[j].Destroy()
		}
		l.form.forgetPrefix(row.id)
	}
	l.keys = nil
	l.rows = make(map[string]*listRow)
	if l.add != nil {
		l.add.Destroy()
	}
	l.element.Destroy()
}
