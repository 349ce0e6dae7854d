package spaceapi

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func fixedResult(id string) Result {
	return Result{Raw: map[string]interface{}{"id": id}}
}

func TestCacheHitWithinTTL(t *testing.T) {
	c := NewCache(20*time.Minute, 100, false)

	calls := 0
	fetch := func() (Result, error) {
		calls++
		return fixedResult("a"), nil
	}

	if _, cached, err := c.GetOrFetch("k", fetch); err != nil || cached {
		t.Fatalf("first call: cached=%v err=%v, want miss", cached, err)
	}
	result, cached, err := c.GetOrFetch("k", fetch)
	if err != nil {
		t.Fatalf("second call: %v", err)
	}
	if !cached {
		t.Error("second call should hit the cache")
	}
	if result.Raw["id"] != "a" {
		t.Errorf("cached result = %v, want a", result.Raw["id"])
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestCacheExpiry(t *testing.T) {
	c := NewCache(20*time.Minute, 100, false)

	current := time.Unix(1700000000, 0)
	c.now = func() time.Time { return current }

	calls := 0
	fetch := func() (Result, error) {
		calls++
		return fixedResult(fmt.Sprintf("v%d", calls)), nil
	}

	c.GetOrFetch("k", fetch)

	// Just under the TTL is still a hit
	current = current.Add(20*time.Minute - time.Second)
	if _, cached, _ := c.GetOrFetch("k", fetch); !cached {
		t.Error("entry expired before TTL")
	}

	// At the TTL the entry is stale and refetched
	current = current.Add(time.Second)
	result, cached, _ := c.GetOrFetch("k", fetch)
	if cached {
		t.Error("expired entry served from cache")
	}
	if result.Raw["id"] != "v2" {
		t.Errorf("refetched result = %v, want v2", result.Raw["id"])
	}
	if calls != 2 {
		t.Errorf("fetch called %d times, want 2", calls)
	}
}

func TestCacheEviction(t *testing.T) {
	c := NewCache(time.Hour, 3, false)

	for i := 0; i < 3; i++ {
		key := fmt.Sprintf("k%d", i)
		c.GetOrFetch(key, func() (Result, error) { return fixedResult(key), nil })
	}
	if c.Len() != 3 {
		t.Fatalf("Len = %d, want 3", c.Len())
	}

	// Inserting a fourth entry evicts only the oldest
	c.GetOrFetch("k3", func() (Result, error) { return fixedResult("k3"), nil })
	if c.Len() != 3 {
		t.Errorf("Len after eviction = %d, want 3", c.Len())
	}

	calls := 0
	counting := func() (Result, error) {
		calls++
		return fixedResult("refetched"), nil
	}
	if _, cached, _ := c.GetOrFetch("k0", counting); cached {
		t.Error("oldest entry should have been evicted")
	}
	// k1 was evicted by the k0 refetch above, but k2 and k3 survive
	for _, key := range []string{"k2", "k3"} {
		if _, cached, _ := c.GetOrFetch(key, counting); !cached {
			t.Errorf("entry %s evicted prematurely", key)
		}
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestCacheDisabled(t *testing.T) {
	c := NewCache(time.Hour, 100, true)

	calls := 0
	fetch := func() (Result, error) {
		calls++
		return fixedResult("a"), nil
	}

	for i := 0; i < 3; i++ {
		if _, cached, _ := c.GetOrFetch("k", fetch); cached {
			t.Error("disabled cache reported a hit")
		}
	}
	if calls != 3 {
		t.Errorf("fetch called %d times, want 3", calls)
	}
	if c.Len() != 0 {
		t.Errorf("disabled cache stored %d entries", c.Len())
	}
}

func TestCacheFetchErrorNotStored(t *testing.T) {
	c := NewCache(time.Hour, 100, false)

	boom := errors.New("upstream gone")
	if _, _, err := c.GetOrFetch("k", func() (Result, error) { return Result{}, boom }); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if c.Len() != 0 {
		t.Errorf("failed fetch left %d entries in cache", c.Len())
	}

	// A later successful fetch for the same key works
	result, cached, err := c.GetOrFetch("k", func() (Result, error) { return fixedResult("ok"), nil })
	if err != nil || cached {
		t.Fatalf("recovery fetch: cached=%v err=%v", cached, err)
	}
	if result.Raw["id"] != "ok" {
		t.Errorf("result = %v, want ok", result.Raw["id"])
	}
}
