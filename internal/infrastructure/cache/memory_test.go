package cache

import (
	"errors"
	"testing"
	"time"
)

func TestMemory_SetAndGet(t *testing.T) {
	c := NewMemory()

	c.Set("catalog:products", []byte(`{"products":[]}`), time.Minute)

	got, err := c.Get("catalog:products")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(got) != `{"products":[]}` {
		t.Errorf("Get() = %s, want the stored bytes", got)
	}
}

func TestMemory_Miss(t *testing.T) {
	c := NewMemory()

	if _, err := c.Get("absent"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get(absent) error = %v, want ErrMiss", err)
	}
}

func TestMemory_Expiration(t *testing.T) {
	c := NewMemory()

	c.Set("short-lived", []byte("x"), time.Millisecond)
	time.Sleep(10 * time.Millisecond)

	if _, err := c.Get("short-lived"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get() after expiry error = %v, want ErrMiss", err)
	}
}

func TestMemory_DeleteAndClear(t *testing.T) {
	c := NewMemory()

	c.Set("a", []byte("1"), time.Minute)
	c.Set("b", []byte("2"), time.Minute)

	c.Delete("a")
	if _, err := c.Get("a"); !errors.Is(err, ErrMiss) {
		t.Errorf("Get(a) after Delete error = %v, want ErrMiss", err)
	}
	if _, err := c.Get("b"); err != nil {
		t.Errorf("Get(b) error = %v, want hit", err)
	}

	c.Clear()
	if c.Size() != 0 {
		t.Errorf("Size() after Clear = %d, want 0", c.Size())
	}
}
