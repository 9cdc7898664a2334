package persona

import (
	"reflect"
	"testing"
)

func TestFindByID(t *testing.T) {
	store := NewMemoryStore(Seed())

	p, ok := store.FindByID("einstein")
	if !ok {
		t.Fatal("expected to find einstein")
	}
	if p.Name != "Albert Einstein" {
		t.Fatalf("unexpected canonical name: %s", p.Name)
	}

	if _, ok := store.FindByID("Turing"); !ok {
		t.Fatal("expected case-insensitive lookup to succeed")
	}

	if _, ok := store.FindByID("napoleon"); ok {
		t.Fatal("expected lookup of unknown persona to fail")
	}
}

func TestResolveNames(t *testing.T) {
	store := NewMemoryStore(Seed())

	names, ok := ResolveNames(store, []string{"einstein", "turing"})
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	want := []string{"Albert Einstein", "Alan Turing"}
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("unexpected names: got %v want %v", names, want)
	}
}

func TestResolveNamesDropsUnknownIDs(t *testing.T) {
	store := NewMemoryStore(Seed())

	names, ok := ResolveNames(store, []string{"einstein", "napoleon"})
	if !ok {
		t.Fatal("expected partial resolution to succeed")
	}
	if len(names) != 1 || names[0] != "Albert Einstein" {
		t.Fatalf("unexpected names: %v", names)
	}
}

func TestResolveNamesEmptySelection(t *testing.T) {
	store := NewMemoryStore(Seed())

	if _, ok := ResolveNames(store, nil); ok {
		t.Fatal("expected empty selection to resolve to ok=false")
	}
	if _, ok := ResolveNames(store, []string{"napoleon"}); ok {
		t.Fatal("expected fully-unresolvable selection to resolve to ok=false")
	}
}
