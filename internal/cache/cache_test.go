package cache

import (
	"testing"
	"time"
)

func TestCacheGetSet(t *testing.T) {
	c := New(time.Minute, 10)

	key := Key(`project = "X"`, nil)
	if got := c.Get(key); got != nil {
		t.Errorf("Get on empty cache = %q, want nil", got)
	}

	c.Set(key, []byte(`{"total":1}`))
	if got := c.Get(key); string(got) != `{"total":1}` {
		t.Errorf("Get = %q, want stored value", got)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := New(10*time.Millisecond, 10)
	c.Set("k", []byte("v"))

	time.Sleep(20 * time.Millisecond)
	if got := c.Get("k"); got != nil {
		t.Errorf("expired entry still returned: %q", got)
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not removed on read, len = %d", c.Len())
	}
}

func TestCacheSizeBound(t *testing.T) {
	c := New(time.Minute, 2)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	c.Set("c", []byte("3")) // full, nothing expired: dropped

	if c.Len() != 2 {
		t.Errorf("len = %d, want 2", c.Len())
	}
	if c.Get("c") != nil {
		t.Error("overflow insert was stored")
	}
}

func TestNilCacheIsNoop(t *testing.T) {
	var c *Cache
	c.Set("k", []byte("v"))
	if c.Get("k") != nil || c.Len() != 0 {
		t.Error("nil cache should be a no-op")
	}
}

func TestKeyIncludesVariables(t *testing.T) {
	q := `query { getTests(limit: $limit) { total } }`
	k1 := Key(q, map[string]interface{}{"limit": 10})
	k2 := Key(q, map[string]interface{}{"limit": 20})
	k3 := Key(q, nil)

	if k1 == k2 || k1 == k3 {
		t.Error("different variables must produce different keys")
	}
	if k1 != Key(q, map[string]interface{}{"limit": 10}) {
		t.Error("identical inputs must produce identical keys")
	}
}
