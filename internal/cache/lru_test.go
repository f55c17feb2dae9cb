package cache

import (
	"strconv"
	"testing"
	"time"
)

func TestGetSetDelete(t *testing.T) {
	c := NewLRUCache[int](10, time.Minute)

	if _, found := c.Get("missing"); found {
		t.Error("empty cache returned a value")
	}

	c.Set("a", 1)
	if v, found := c.Get("a"); !found || v != 1 {
		t.Errorf("Get(a) = %d, %v", v, found)
	}

	c.Set("a", 2)
	if v, _ := c.Get("a"); v != 2 {
		t.Errorf("overwrite failed: %d", v)
	}
	if c.Size() != 1 {
		t.Errorf("size = %d after overwrite", c.Size())
	}

	c.Delete("a")
	if _, found := c.Get("a"); found {
		t.Error("value survived Delete")
	}
}

func TestEviction(t *testing.T) {
	c := NewLRUCache[int](3, time.Minute)
	for i := 0; i < 3; i++ {
		c.Set(strconv.Itoa(i), i)
	}

	// Touch "0" so "1" is the least recently used.
	c.Get("0")
	c.Set("3", 3)

	if c.Size() != 3 {
		t.Fatalf("size = %d, want 3", c.Size())
	}
	if _, found := c.Get("1"); found {
		t.Error("least recently used entry not evicted")
	}
	if _, found := c.Get("0"); !found {
		t.Error("recently used entry evicted")
	}
}

func TestTTL(t *testing.T) {
	c := NewLRUCache[string](10, 10*time.Millisecond)
	c.Set("a", "x")
	c.Set("b", "y")

	time.Sleep(20 * time.Millisecond)

	if _, found := c.Get("a"); found {
		t.Error("expired entry returned")
	}
	if cleaned := c.CleanExpired(); cleaned != 1 {
		// "a" was already dropped by the Get above.
		t.Errorf("CleanExpired = %d, want 1", cleaned)
	}
	if c.Size() != 0 {
		t.Errorf("size = %d after cleanup", c.Size())
	}
}
