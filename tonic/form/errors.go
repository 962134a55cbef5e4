package form

import "errors"

var (
	// ErrNoContainer is returned when a form or element has no parent node to
	// build into.
	ErrNoContainer = errors.New("no container node")
	// ErrUnknownType is returned for schema nodes whose type is not
	// registered.
	ErrUnknownType = errors.New("unknown element type")
	// ErrMissingID is returned for schema nodes without an id.
	ErrMissingID = errors.New("element has no id")
	// ErrDuplicateID is returned when two elements resolve to the same id.
	ErrDuplicateID = errors.New("duplicate element id")
	// ErrInvalidSchema is returned for structurally invalid schemas.
	ErrInvalidSchema = errors.New("invalid schema")
	// ErrListFull is returned when adding a row to a list at its row limit.
	ErrListFull = errors.New("list is full")
	// ErrNoSuchTab is returned when activating a tab that does not exist or
	// is not visible.
	ErrNoSuchTab = errors.New("no such tab")
)
