package cache

import (
	"errors"
	"fmt"
	"testing"
)

func TestMemoryGetPut(t *testing.T) {
	c := NewMemory(1024)

	if _, ok := c.Get("missing"); ok {
		t.Error("Get on empty cache reported a hit")
	}

	if err := c.Put("a", []byte("chapter one")); err != nil {
		t.Fatal(err)
	}
	got, ok := c.Get("a")
	if !ok || string(got) != "chapter one" {
		t.Errorf("Get(a) = (%q, %v), want hit", got, ok)
	}

	stats := c.Stats()
	if stats.Hits != 1 || stats.Misses != 1 || stats.Entries != 1 {
		t.Errorf("stats = %+v, want 1 hit, 1 miss, 1 entry", stats)
	}
}

func TestMemoryEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewMemory(30)
	for i := 0; i < 3; i++ {
		if err := c.Put(fmt.Sprintf("k%d", i), make([]byte, 10)); err != nil {
			t.Fatal(err)
		}
	}

	// Touch k0 so k1 becomes the eviction candidate.
	c.Get("k0")
	if err := c.Put("k3", make([]byte, 10)); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("k1"); ok {
		t.Error("k1 should have been evicted")
	}
	for _, k := range []string{"k0", "k2", "k3"} {
		if _, ok := c.Get(k); !ok {
			t.Errorf("%s unexpectedly evicted", k)
		}
	}
}

func TestMemoryRejectsOversizedItem(t *testing.T) {
	c := NewMemory(8)
	if err := c.Put("big", make([]byte, 9)); !errors.Is(err, ErrItemTooLarge) {
		t.Errorf("error = %v, want ErrItemTooLarge", err)
	}
}

func TestMemoryUpdateAndClear(t *testing.T) {
	c := NewMemory(64)
	c.Put("k", []byte("v1"))
	c.Put("k", []byte("longer value"))

	got, ok := c.Get("k")
	if !ok || string(got) != "longer value" {
		t.Errorf("Get(k) = %q, want updated value", got)
	}
	if s := c.Stats(); s.Size != int64(len("longer value")) {
		t.Errorf("size = %d, want %d", s.Size, len("longer value"))
	}

	c.Clear()
	if s := c.Stats(); s.Entries != 0 || s.Size != 0 {
		t.Errorf("after Clear stats = %+v, want empty", s)
	}
}
