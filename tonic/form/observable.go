package form

import "reflect"

// Observable holds a value and notifies subscribers when it changes.
type Observable[T any] struct {
	value T
	subs  []func(T)
}

// Get returns the current value.
func (o *Observable[T]) Get() T {
	return o.value
}

// Set stores v and notifies subscribers if it differs from the current value.
// It reports whether the value changed.
func (o *Observable[T]) Set(v T) bool {
	if reflect.DeepEqual(o.value, v) {
		return false
	}
	o.value = v
	for _, fn := range o.subs {
		fn(v)
	}
	return true
}

// Subscribe registers fn to be called on every change.
func (o *Observable[T]) Subscribe(fn func(T)) {
	o.subs = append(o.subs, fn)
}

func (o *Observable[T]) clear() {
	o.subs = nil
}
