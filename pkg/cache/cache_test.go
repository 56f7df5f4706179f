package cache

import (
	"testing"
	"time"
)

func TestCache_SetGet(t *testing.T) {
	c := New(time.Minute)

	c.Set("key", "value")

	got, ok := c.Get("key")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != "value" {
		t.Errorf("expected 'value', got %v", got)
	}
}

func TestCache_Miss(t *testing.T) {
	c := New(time.Minute)

	if _, ok := c.Get("absent"); ok {
		t.Error("expected cache miss for absent key")
	}
}

func TestCache_Expiration(t *testing.T) {
	c := New(time.Minute)

	c.SetWithTTL("key", 42, 10*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	if _, ok := c.Get("key"); ok {
		t.Error("expected expired entry to miss")
	}
}

func TestCache_Delete(t *testing.T) {
	c := New(time.Minute)

	c.Set("key", 1)
	c.Delete("key")

	if _, ok := c.Get("key"); ok {
		t.Error("expected miss after delete")
	}
}

func TestCache_Overwrite(t *testing.T) {
	c := New(time.Minute)

	c.Set("key", 1)
	c.Set("key", 2)

	got, ok := c.Get("key")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if got != 2 {
		t.Errorf("expected 2, got %v", got)
	}
}
