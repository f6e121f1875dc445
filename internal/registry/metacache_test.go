package registry

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"nomwatch/pkg/logx"
)

type fakeMetaSource struct {
	mu      sync.Mutex
	calls   int
	labels  map[string]string
	err     error
	release chan struct{} // when set, OrgLabels blocks until closed
}

func (s *fakeMetaSource) OrgLabels(ctx context.Context) (map[string]string, error) {
	s.mu.Lock()
	s.calls++
	release := s.release
	labels, err := s.labels, s.err
	s.mu.Unlock()
	if release != nil {
		<-release
	}
	return labels, err
}

func (s *fakeMetaSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestMetaCacheServesCachedWithinTTL(t *testing.T) {
	t.Parallel()

	src := &fakeMetaSource{labels: map[string]string{"org-1": "Conseil d'État"}}
	cache := NewMetaCache(src, time.Hour, logx.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return now })

	for i := 0; i < 3; i++ {
		name, ok := cache.OrgLabel(context.Background(), "org-1")
		if !ok || name != "Conseil d'État" {
			t.Fatalf("lookup %d: got %q, %v", i, name, ok)
		}
	}
	if src.callCount() != 1 {
		t.Fatalf("repeated lookups within the staleness window must hit upstream once, got %d", src.callCount())
	}
}

func TestMetaCacheRefreshesAfterTTL(t *testing.T) {
	t.Parallel()

	src := &fakeMetaSource{labels: map[string]string{"org-1": "Old name"}}
	cache := NewMetaCache(src, time.Hour, logx.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return now })

	if name, _ := cache.OrgLabel(context.Background(), "org-1"); name != "Old name" {
		t.Fatalf("initial label = %q", name)
	}

	src.mu.Lock()
	src.labels = map[string]string{"org-1": "New name"}
	src.mu.Unlock()
	now = now.Add(61 * time.Minute)

	if name, _ := cache.OrgLabel(context.Background(), "org-1"); name != "New name" {
		t.Fatalf("expired entry must refresh, got %q", name)
	}
	if src.callCount() != 2 {
		t.Fatalf("expected 2 upstream calls, got %d", src.callCount())
	}
}

func TestMetaCacheServesStaleOnRefreshFailure(t *testing.T) {
	t.Parallel()

	src := &fakeMetaSource{labels: map[string]string{"org-1": "Cour des comptes"}}
	cache := NewMetaCache(src, time.Hour, logx.Nop())
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cache.SetClock(func() time.Time { return now })

	if _, ok := cache.OrgLabel(context.Background(), "org-1"); !ok {
		t.Fatal("warm-up lookup failed")
	}

	src.mu.Lock()
	src.err = errors.New("registry metadata endpoint down")
	src.mu.Unlock()
	now = now.Add(2 * time.Hour)

	name, ok := cache.OrgLabel(context.Background(), "org-1")
	if !ok || name != "Cour des comptes" {
		t.Fatalf("stale label must survive a failing refresh, got %q, %v", name, ok)
	}
}

func TestMetaCacheEmptyAndFailing(t *testing.T) {
	t.Parallel()

	src := &fakeMetaSource{err: errors.New("down")}
	cache := NewMetaCache(src, time.Hour, logx.Nop())

	if _, ok := cache.OrgLabel(context.Background(), "org-1"); ok {
		t.Fatal("cold cache with failing upstream must report not-found")
	}
}

func TestMetaCacheDeduplicatesConcurrentRefresh(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	src := &fakeMetaSource{labels: map[string]string{"org-1": "Ministère"}, release: release}
	cache := NewMetaCache(src, time.Hour, logx.Nop())

	const lookups = 8
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < lookups; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			cache.OrgLabel(context.Background(), "org-1")
		}()
	}
	close(start)
	time.Sleep(20 * time.Millisecond) // let the goroutines pile onto the guard
	close(release)
	wg.Wait()

	if n := src.callCount(); n > 2 {
		t.Fatalf("concurrent lookups must share refreshes, got %d upstream calls", n)
	}
}
