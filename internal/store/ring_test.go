package store

import "testing"

func TestRingPushFrontOrder(t *testing.T) {
	r := NewRing[int](5)
	for i := 1; i <= 3; i++ {
		if _, ok := r.PushFront(i); ok {
			t.Fatalf("unexpected eviction at insert %d", i)
		}
	}

	if r.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", r.Len())
	}

	want := []int{3, 2, 1}
	for i, w := range want {
		if got := r.At(i); got != w {
			t.Errorf("At(%d) = %d, want %d", i, got, w)
		}
	}
}

func TestRingEvictsTail(t *testing.T) {
	r := NewRing[int](50)
	for i := 1; i <= 50; i++ {
		r.PushFront(i)
	}

	evicted, ok := r.PushFront(51)
	if !ok {
		t.Fatal("expected eviction when inserting past capacity")
	}
	if evicted != 1 {
		t.Errorf("evicted = %d, want the oldest entry 1", evicted)
	}
	if r.Len() != 50 {
		t.Errorf("Len() = %d, want 50", r.Len())
	}
	if r.At(0) != 51 {
		t.Errorf("At(0) = %d, want 51", r.At(0))
	}
	if r.At(49) != 2 {
		t.Errorf("At(49) = %d, want 2", r.At(49))
	}
}

func TestRingItemsSnapshot(t *testing.T) {
	r := NewRing[string](2)
	r.PushFront("a")
	r.PushFront("b")
	r.PushFront("c")

	items := r.Items()
	if len(items) != 2 || items[0] != "c" || items[1] != "b" {
		t.Errorf("Items() = %v, want [c b]", items)
	}
}
