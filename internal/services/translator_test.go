package services

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
)

func newTestCache(t *testing.T) *TranslationCache {
	t.Helper()
	cache, err := OpenTranslationCache(filepath.Join(t.TempDir(), "translations.db"), nil)
	if err != nil {
		t.Fatalf("OpenTranslationCache failed: %v", err)
	}
	t.Cleanup(func() { cache.Close() })
	return cache
}

func TestTranslationCachePutGet(t *testing.T) {
	cache := newTestCache(t)

	if _, found, err := cache.Get("hola"); err != nil || found {
		t.Errorf("Fresh cache should miss: found=%v err=%v", found, err)
	}

	if err := cache.Put("hola", "hello"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	translated, found, err := cache.Get("hola")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if !found || translated != "hello" {
		t.Errorf("Get = (%q, %v), want (hello, true)", translated, found)
	}

	stats, err := cache.Stats()
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats.Entries != 1 {
		t.Errorf("Entries = %d, want 1", stats.Entries)
	}
}

func TestTranslationCacheSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "translations.db")

	cache, err := OpenTranslationCache(path, nil)
	if err != nil {
		t.Fatalf("OpenTranslationCache failed: %v", err)
	}
	if err := cache.Put("gato", "cat"); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	cache.Close()

	reopened, err := OpenTranslationCache(path, nil)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer reopened.Close()

	translated, found, err := reopened.Get("gato")
	if err != nil || !found || translated != "cat" {
		t.Errorf("Cache did not survive reopen: (%q, %v, %v)", translated, found, err)
	}
}

func TestTranslateUsesCacheBeforeFetch(t *testing.T) {
	cache := newTestCache(t)
	translator := NewTranslator(cache, "es", "en", nil)

	fetches := 0
	translator.fetch = func(ctx context.Context, text string) (string, error) {
		fetches++
		return "translated:" + text, nil
	}

	ctx := context.Background()

	first, err := translator.Translate(ctx, "hola")
	if err != nil {
		t.Fatalf("First Translate failed: %v", err)
	}
	if first != "translated:hola" {
		t.Errorf("First translation = %q", first)
	}
	if fetches != 1 {
		t.Fatalf("Expected 1 fetch, got %d", fetches)
	}

	// Second lookup must come from the cache, no second fetch
	second, err := translator.Translate(ctx, "hola")
	if err != nil {
		t.Fatalf("Second Translate failed: %v", err)
	}
	if second != first {
		t.Errorf("Cached translation %q differs from first %q", second, first)
	}
	if fetches != 1 {
		t.Errorf("Cache hit must not fetch again, got %d fetches", fetches)
	}
}

func TestTranslateBatchCountsHitsAndFetches(t *testing.T) {
	cache := newTestCache(t)
	translator := NewTranslator(cache, "es", "en", nil)

	fetches := 0
	translator.fetch = func(ctx context.Context, text string) (string, error) {
		fetches++
		return "t:" + text, nil
	}

	ctx := context.Background()
	if err := cache.Put("uno", "one"); err != nil {
		t.Fatal(err)
	}

	result, err := translator.TranslateBatch(ctx, []string{"uno", "dos", "dos", "  ", "tres"})
	if err != nil {
		t.Fatalf("TranslateBatch failed: %v", err)
	}

	if result.CacheHits != 1 {
		t.Errorf("CacheHits = %d, want 1", result.CacheHits)
	}
	if result.Fetched != 2 {
		t.Errorf("Fetched = %d, want 2 (duplicates and blanks skipped)", result.Fetched)
	}
	if fetches != 2 {
		t.Errorf("fetch invoked %d times, want 2", fetches)
	}
	if result.Translations["uno"] != "one" {
		t.Errorf("Cached value not used: %q", result.Translations["uno"])
	}
	if result.Translations["dos"] != "t:dos" {
		t.Errorf("Fetched value missing: %q", result.Translations["dos"])
	}
}

func TestTranslateBatchFetchFailureLeavesCacheUntouched(t *testing.T) {
	cache := newTestCache(t)
	translator := NewTranslator(cache, "es", "en", nil)

	translator.fetch = func(ctx context.Context, text string) (string, error) {
		return "", fmt.Errorf("endpoint unreachable")
	}

	if _, err := translator.TranslateBatch(context.Background(), []string{"perro"}); err == nil {
		t.Fatal("Expected error when the fetch fails")
	}

	if _, found, _ := cache.Get("perro"); found {
		t.Error("Failed fetch must not populate the cache")
	}
}

func TestClearCache(t *testing.T) {
	cache := newTestCache(t)
	translator := NewTranslator(cache, "es", "en", nil)

	if err := cache.Put("uno", "one"); err != nil {
		t.Fatal(err)
	}
	if err := cache.Put("dos", "two"); err != nil {
		t.Fatal(err)
	}

	if err := translator.ClearCache(); err != nil {
		t.Fatalf("ClearCache failed: %v", err)
	}

	stats, err := translator.CacheStats()
	if err != nil {
		t.Fatalf("CacheStats failed: %v", err)
	}
	if stats.Entries != 0 {
		t.Errorf("Entries = %d after clear, want 0", stats.Entries)
	}

	// The cache keeps working after a clear
	if err := cache.Put("tres", "three"); err != nil {
		t.Errorf("Put after clear failed: %v", err)
	}
}
