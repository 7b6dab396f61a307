package title

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestMemo_ComputesOnceAndCaches(t *testing.T) {
	t.Parallel()

	m := newMemo[string](10)
	calls := 0
	upper := func(s string) string {
		calls++
		return strings.ToUpper(s)
	}

	if got := m.get("abc", upper); got != "ABC" {
		t.Fatalf("get = %q, want %q", got, "ABC")
	}
	if got := m.get("abc", upper); got != "ABC" {
		t.Fatalf("get = %q, want %q", got, "ABC")
	}
	if calls != 1 {
		t.Errorf("compute ran %d times, want 1", calls)
	}
}

func TestMemo_BoundedEviction(t *testing.T) {
	t.Parallel()

	m := newMemo[string](5)
	identity := func(s string) string { return s }

	for i := 0; i < 20; i++ {
		m.get(fmt.Sprintf("key-%d", i), identity)
	}
	if got := m.len(); got != 5 {
		t.Errorf("len = %d after 20 inserts with limit 5, want 5", got)
	}
}

func TestMemo_EvictsLeastRecentlyUsed(t *testing.T) {
	t.Parallel()

	m := newMemo[string](2)
	calls := map[string]int{}
	counting := func(s string) string {
		calls[s]++
		return s
	}

	m.get("a", counting)
	m.get("b", counting)
	m.get("a", counting) // refresh "a"
	m.get("c", counting) // evicts "b"

	m.get("a", counting)
	if calls["a"] != 1 {
		t.Errorf("a recomputed %d times, want 1 (should have stayed cached)", calls["a"])
	}
	m.get("b", counting)
	if calls["b"] != 2 {
		t.Errorf("b computed %d times, want 2 (should have been evicted)", calls["b"])
	}
}

func TestMemo_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := newMemo[int](100)
	length := func(s string) int { return len(s) }

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("key-%d", i%50)
				if got := m.get(key, length); got != len(key) {
					t.Errorf("get(%q) = %d, want %d", key, got, len(key))
				}
			}
		}()
	}
	wg.Wait()
}
