package store

import "strings"

// Backend is a key/value store that can list its keys by prefix.
type Backend interface {
	GetItem(key string) (string, bool, error)
	SetItem(key, value string) error
	RemoveItem(key string) error
	Keys(prefix string) ([]string, error)
}

// Scoped is the part of a Backend under one key prefix, for example the
// saved progress of one session.
type Scoped struct {
	backend Backend
	prefix  string
}

// Scope returns the items of b whose keys start with prefix.
func Scope(b Backend, prefix string) *Scoped {
	return &Scoped{backend: b, prefix: prefix}
}

func (s *Scoped) GetItem(key string) (string, bool, error) {
	return s.backend.GetItem(s.prefix + key)
}

func (s *Scoped) SetItem(key, value string) error {
	return s.backend.SetItem(s.prefix+key, value)
}

func (s *Scoped) RemoveItem(key string) error {
	return s.backend.RemoveItem(s.prefix + key)
}

// Keys returns the keys of the scope without the prefix.
func (s *Scoped) Keys() ([]string, error) {
	full, err := s.backend.Keys(s.prefix)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(full))
	for i, k := range full {
		keys[i] = strings.TrimPrefix(k, s.prefix)
	}
	return keys, nil
}

// Clear removes every item of the scope.
func (s *Scoped) Clear() error {
	full, err := s.backend.Keys(s.prefix)
	if err != nil {
		return err
	}
	for _, k := range full {
		if err := s.backend.RemoveItem(k); err != nil {
			return err
		}
	}
	return nil
}
