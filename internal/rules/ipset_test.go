package rules

import "testing"

func TestSetNameFor(t *testing.T) {
	if got := setNameFor("abc123"); got != "NETAGENT-abc123" {
		t.Fatalf("setNameFor = %q", got)
	}
}

func TestFamilySuffix(t *testing.T) {
	if got := familySuffix("abc123", false); got != "abc123-4" {
		t.Fatalf("familySuffix(v4) = %q", got)
	}
	if got := familySuffix("abc123", true); got != "abc123-6" {
		t.Fatalf("familySuffix(v6) = %q", got)
	}
}

func TestMatchSpec(t *testing.T) {
	got := MatchSpec("abc123-4")
	want := []string{"-m", "set", "--match-set", "NETAGENT-abc123-4", "src"}
	if len(got) != len(want) {
		t.Fatalf("MatchSpec = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("MatchSpec = %v, want %v", got, want)
		}
	}
}

func TestIPSetNamesEmptyAfterDestroyUnknown(t *testing.T) {
	s := &IPSet{Sets: make(map[string]*Set)}
	if err := s.Destroy("never-existed"); err != nil {
		t.Fatalf("Destroy on unknown set: %v", err)
	}
	if len(s.Names()) != 0 {
		t.Fatalf("Names() = %v, want empty", s.Names())
	}
}
