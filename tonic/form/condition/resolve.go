package condition

import (
	"strconv"
	"strings"

	"github.com/PaesslerAG/jsonpath"
)

// MapResolver resolves paths into a nested tree of map[string]any and []any
// values, as held by a form's data model.
type MapResolver map[string]any

// Lookup resolves dotted or bracketed paths such as "contact.email",
// "items[0].name" or "items.0.name".
func (m MapResolver) Lookup(path string) (any, bool) {
	if m == nil {
		return nil, false
	}
	if v, ok := m[path]; ok {
		return v, true
	}
	query, ok := JSONPath(path)
	if !ok {
		return nil, false
	}
	v, err := jsonpath.Get(query, map[string]any(m))
	if err != nil {
		return nil, false
	}
	return v, true
}

// SplitPath splits a dotted or bracketed path into its segments.
func SplitPath(path string) []string {
	var segs []string
	var cur strings.Builder
	flush := func() {
		if cur.Len() > 0 {
			segs = append(segs, cur.String())
			cur.Reset()
		}
	}
	for i := 0; i < len(path); i++ {
		switch c := path[i]; c {
		case '.':
			flush()
		case '[':
			flush()
			end := strings.IndexByte(path[i:], ']')
			if end < 0 {
				cur.WriteString(path[i+1:])
				i = len(path)
				continue
			}
			segs = append(segs, unquote(path[i+1:i+end]))
			i += end
		default:
			cur.WriteByte(c)
		}
	}
	flush()
	return segs
}

// JSONPath converts a form data path into a bracketed JSONPath query.
func JSONPath(path string) (string, bool) {
	segs := SplitPath(path)
	if len(segs) == 0 {
		return "", false
	}
	var b strings.Builder
	b.WriteString("$")
	for _, seg := range segs {
		if _, err := strconv.Atoi(seg); err == nil {
			b.WriteString("[" + seg + "]")
			continue
		}
		b.WriteString("[" + strconv.Quote(seg) + "]")
	}
	return b.String(), true
}
