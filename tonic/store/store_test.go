package store

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/G-Node/tonicforms/tonic/form"
)

var (
	_ form.Storage = (*Memory)(nil)
	_ form.Storage = (*Bolt)(nil)
	_ form.Storage = (*Scoped)(nil)
	_ Backend      = (*Memory)(nil)
	_ Backend      = (*Bolt)(nil)
)

func exercise(t *testing.T, s form.Storage) {
	if _, ok, err := s.GetItem("missing"); err != nil || ok {
		t.Fatalf("Unexpected result for missing key: %v %v", ok, err)
	}
	if err := s.SetItem("tonic:f:a", `"x"`); err != nil {
		t.Fatalf("Failed to set item: %s", err.Error())
	}
	if err := s.SetItem("tonic:f:a", `"y"`); err != nil {
		t.Fatalf("Failed to overwrite item: %s", err.Error())
	}
	v, ok, err := s.GetItem("tonic:f:a")
	if err != nil {
		t.Fatalf("Failed to get item: %s", err.Error())
	}
	if !ok || v != `"y"` {
		t.Fatalf("Expected \"y\"; got %q (found %v)", v, ok)
	}
	if err := s.RemoveItem("tonic:f:a"); err != nil {
		t.Fatalf("Failed to remove item: %s", err.Error())
	}
	if err := s.RemoveItem("tonic:f:a"); err != nil {
		t.Fatalf("Removing a missing item failed: %s", err.Error())
	}
	if _, ok, _ := s.GetItem("tonic:f:a"); ok {
		t.Fatal("Removed item still present")
	}
}

func TestMemory(t *testing.T) {
	m := NewMemory()
	exercise(t, m)
	m.SetItem("b", "1")
	m.SetItem("a", "2")
	m.SetItem("c:a", "3")
	keys, _ := m.Keys("")
	if diff := cmp.Diff([]string{"a", "b", "c:a"}, keys); diff != "" {
		t.Fatalf("Keys mismatch (-expected +got):\n%s", diff)
	}
	keys, _ = m.Keys("c:")
	if diff := cmp.Diff([]string{"c:a"}, keys); diff != "" {
		t.Fatalf("Prefixed keys mismatch (-expected +got):\n%s", diff)
	}
}

func TestBolt(t *testing.T) {
	dir, err := ioutil.TempDir("", "tonicstore")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %s", err.Error())
	}
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "progress.db")

	s, err := OpenBolt(path)
	if err != nil {
		t.Fatalf("Failed to open store %q: %s", path, err.Error())
	}
	exercise(t, s)
	if err := s.SetItem("", "x"); err == nil {
		t.Fatal("Empty key accepted")
	}
	for _, k := range []string{"tonic:f:b", "tonic:f:a", "tonic:g:a"} {
		if err := s.SetItem(k, "1"); err != nil {
			t.Fatalf("Failed to set item: %s", err.Error())
		}
	}
	keys, err := s.Keys("tonic:f:")
	if err != nil {
		t.Fatalf("Failed to list keys: %s", err.Error())
	}
	if diff := cmp.Diff([]string{"tonic:f:a", "tonic:f:b"}, keys); diff != "" {
		t.Fatalf("Keys mismatch (-expected +got):\n%s", diff)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Failed to close store: %s", err.Error())
	}

	// reopen
	s, err = OpenBolt(path)
	if err != nil {
		t.Fatalf("Failed to reopen store %q: %s", path, err.Error())
	}
	defer s.Close()
	if v, ok, err := s.GetItem("tonic:g:a"); err != nil || !ok || v != "1" {
		t.Fatalf("Item not persisted: %q %v %v", v, ok, err)
	}
}

func TestFormProgress(t *testing.T) {
	m := NewMemory()
	schema := form.Schema{{ID: "name", Type: "text"}}
	opts := form.Options{Registry: form.NewRegistry(), Storage: m, SaveProgress: true}
	f, err := form.New(form.NewContainer(), schema, opts)
	if err != nil {
		t.Fatalf("Failed to build form: %s", err.Error())
	}
	if err := f.Field("name").Change("Ada"); err != nil {
		t.Fatalf("Failed to change value: %s", err.Error())
	}
	restored, err := form.New(form.NewContainer(), schema, opts)
	if err != nil {
		t.Fatalf("Failed to build form: %s", err.Error())
	}
	if v := restored.Field("name").Value(); v != "Ada" {
		t.Fatalf("Progress not restored from memory store; got %v", v)
	}
}

func exerciseScoped(t *testing.T, b Backend) {
	alice, bob := Scope(b, "alice:"), Scope(b, "bob:")
	exercise(t, alice)
	for _, s := range []*Scoped{alice, bob} {
		for _, k := range []string{"tonic:f:b", "tonic:f:a"} {
			if err := s.SetItem(k, "1"); err != nil {
				t.Fatalf("Failed to set item: %s", err.Error())
			}
		}
	}
	if _, ok, _ := b.GetItem("alice:tonic:f:a"); !ok {
		t.Fatal("Scoped item not stored under the prefix")
	}
	keys, err := alice.Keys()
	if err != nil {
		t.Fatalf("Failed to list keys: %s", err.Error())
	}
	if diff := cmp.Diff([]string{"tonic:f:a", "tonic:f:b"}, keys); diff != "" {
		t.Fatalf("Keys mismatch (-expected +got):\n%s", diff)
	}
	if err := alice.Clear(); err != nil {
		t.Fatalf("Failed to clear scope: %s", err.Error())
	}
	if keys, _ := alice.Keys(); len(keys) != 0 {
		t.Fatalf("Items remain after clear: %v", keys)
	}
	if keys, _ := bob.Keys(); len(keys) != 2 {
		t.Fatalf("Clear removed items of another scope: %v", keys)
	}
}

func TestScoped(t *testing.T) {
	exerciseScoped(t, NewMemory())

	dir, err := ioutil.TempDir("", "tonicstore")
	if err != nil {
		t.Fatalf("Failed to create temporary directory: %s", err.Error())
	}
	defer os.RemoveAll(dir)
	s, err := OpenBolt(filepath.Join(dir, "progress.db"))
	if err != nil {
		t.Fatalf("Failed to open store: %s", err.Error())
	}
	defer s.Close()
	exerciseScoped(t, s)
}
