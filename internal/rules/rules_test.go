package rules

import (
	"testing"

	"github.com/rancher/netagentd/internal/registry"
)

type fakeShim struct {
	installed map[string]bool
	deleted   []string
}

func newFakeShim(installed ...string) *fakeShim {
	m := make(map[string]bool, len(installed))
	for _, s := range installed {
		m[s] = true
	}
	return &fakeShim{installed: m}
}

func (f *fakeShim) SetGlobalRules() error                          { return nil }
func (f *fakeShim) ProgramEndpoint(ep *registry.Endpoint) error     { return nil }
func (f *fakeShim) RemoveEndpoint(ep *registry.Endpoint) error      { return f.DeleteRules(ep.Suffix) }
func (f *fakeShim) UpdateACLs(ep *registry.Endpoint) error          { return nil }
func (f *fakeShim) ListEndpointsWithRules() (map[string]bool, error) {
	out := make(map[string]bool, len(f.installed))
	for k := range f.installed {
		out[k] = true
	}
	return out, nil
}
func (f *fakeShim) DeleteRules(suffix string) error {
	delete(f.installed, suffix)
	f.deleted = append(f.deleted, suffix)
	return nil
}

func TestReconcileDeletesStaleSuffixesOnly(t *testing.T) {
	shim := newFakeShim("keep", "stale1", "stale2")
	want := map[string]bool{"keep": true}

	if err := Reconcile(shim, want); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}

	if len(shim.installed) != 1 || !shim.installed["keep"] {
		t.Fatalf("installed after reconcile = %v, want only 'keep'", shim.installed)
	}
	if len(shim.deleted) != 2 {
		t.Fatalf("deleted = %v, want 2 entries", shim.deleted)
	}
}

func TestReconcileNoStaleEntries(t *testing.T) {
	shim := newFakeShim("keep")
	want := map[string]bool{"keep": true}

	if err := Reconcile(shim, want); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if len(shim.deleted) != 0 {
		t.Fatalf("deleted = %v, want none", shim.deleted)
	}
}
