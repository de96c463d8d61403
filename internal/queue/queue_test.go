package queue

import "testing"

func TestFIFOOrder(t *testing.T) {
	q := New(0)
	q.Push("a")
	q.Push("b")
	q.Push("c")

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Pop()
		if !ok || got != want {
			t.Fatalf("Pop() = %v, %v; want %v, true", got, ok, want)
		}
	}
	if _, ok := q.Pop(); ok {
		t.Fatal("Pop() on empty queue returned ok=true")
	}
}

func TestOverflowDropsOldest(t *testing.T) {
	q := New(2)
	q.Push("a")
	q.Push("b")
	q.Push("c") // should evict "a"

	got, _ := q.Pop()
	if got != "b" {
		t.Fatalf("Pop() = %v, want b (oldest should have been dropped)", got)
	}
	if q.Dropped() != 1 {
		t.Fatalf("Dropped() = %d, want 1", q.Dropped())
	}
}

func TestClear(t *testing.T) {
	q := New(0)
	q.Push("a")
	q.Push("b")
	q.Clear()
	if q.Len() != 0 {
		t.Fatalf("Len() = %d after Clear, want 0", q.Len())
	}
}
