package registry

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestDeriveSuffixDeterministic(t *testing.T) {
	a := DeriveSuffix("e1")
	b := DeriveSuffix("e1")
	if a != b {
		t.Fatalf("DeriveSuffix not deterministic: %s != %s", a, b)
	}
	if DeriveSuffix("e2") == a {
		t.Fatal("DeriveSuffix collided for distinct ids")
	}
	if len(a) > 16 {
		t.Fatalf("suffix too long: %d", len(a))
	}
}

func TestParseAddressFamily(t *testing.T) {
	cases := map[string]AddrFamily{
		"10.0.0.1": AddrFamilyIPv4,
		"::1":      AddrFamilyIPv6,
		"garbage":  AddrFamilyUnknown,
	}
	for in, want := range cases {
		if got := ParseAddress(in).Family; got != want {
			t.Errorf("ParseAddress(%q).Family = %v, want %v", in, got, want)
		}
	}
}

func TestInsertRemove(t *testing.T) {
	r := New()
	ep := NewEndpoint("e1")
	r.Insert(ep)
	if r.Get("e1") == nil {
		t.Fatal("Get returned nil after Insert")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if !r.Remove("e1") {
		t.Fatal("Remove reported false for known id")
	}
	if r.Remove("e1") {
		t.Fatal("Remove reported true for already-removed id")
	}
	if r.Get("e1") != nil {
		t.Fatal("Get returned endpoint after Remove")
	}
}

func TestMarkAllPendingResyncAndSuffixes(t *testing.T) {
	r := New()
	r.Insert(NewEndpoint("e1"))
	r.Insert(NewEndpoint("e2"))
	r.MarkAllPendingResync()

	pending := r.PendingResyncIDs()
	if len(pending) != 2 {
		t.Fatalf("PendingResyncIDs() = %v, want 2 entries", pending)
	}

	r.Get("e1").PendingResync = false
	pending = r.PendingResyncIDs()
	if len(pending) != 1 || pending[0] != "e2" {
		t.Fatalf("PendingResyncIDs() = %v, want [e2]", pending)
	}

	suffixes := r.Suffixes()
	want := map[string]bool{
		DeriveSuffix("e1"): true,
		DeriveSuffix("e2"): true,
	}
	if diff := cmp.Diff(want, suffixes); diff != "" {
		t.Fatalf("Suffixes() mismatch (-want +got):\n%s", diff)
	}
}

// TestSuffixesMatchesRuleReconcileShape asserts the shape Suffixes()
// produces is exactly what rules.Reconcile expects to diff against: a
// set unaffected by insertion order and stable across repeated calls.
func TestSuffixesMatchesRuleReconcileShape(t *testing.T) {
	r := New()
	r.Insert(NewEndpoint("b"))
	r.Insert(NewEndpoint("a"))

	other := New()
	other.Insert(NewEndpoint("a"))
	other.Insert(NewEndpoint("b"))

	if diff := cmp.Diff(r.Suffixes(), other.Suffixes()); diff != "" {
		t.Fatalf("Suffixes() depends on insertion order (-first +second):\n%s", diff)
	}
}
