package client

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFilePointerStoreRoundTrip(t *testing.T) {
	store, err := NewFilePointerStore(filepath.Join(t.TempDir(), "pointer.json"))
	if err != nil {
		t.Fatalf("new pointer store: %v", err)
	}

	want := Pointer{CredentialID: "Y3JlZC0x", Username: "alice"}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save() error: %v", err)
	}

	got, ok, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !ok {
		t.Fatal("Load() found no pointer after Save")
	}
	if got != want {
		t.Fatalf("Load() = %+v, want %+v", got, want)
	}
}

func TestFilePointerStoreMissingFile(t *testing.T) {
	store, err := NewFilePointerStore(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("new pointer store: %v", err)
	}
	_, ok, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if ok {
		t.Fatal("Load() reported a pointer for a missing file")
	}
}

func TestFilePointerStoreIgnoresIncompleteState(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pointer.json")
	if err := os.WriteFile(path, []byte(`{"credential_id":"","username":"alice"}`), 0o600); err != nil {
		t.Fatalf("write file: %v", err)
	}

	store, err := NewFilePointerStore(path)
	if err != nil {
		t.Fatalf("new pointer store: %v", err)
	}
	_, ok, err := store.Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if ok {
		t.Fatal("Load() accepted a pointer with an empty credential id")
	}
}

func TestFilePointerStoreCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "state", "pointer.json")
	store, err := NewFilePointerStore(path)
	if err != nil {
		t.Fatalf("new pointer store: %v", err)
	}
	if err := store.Save(Pointer{CredentialID: "Y3JlZC0x", Username: "alice"}); err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("saved file missing: %v", err)
	}
}
