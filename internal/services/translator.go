package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gocolly/colly/v2"

	apperrors "launchdock/internal/infrastructure/errors"
	"launchdock/internal/infrastructure/logging"
	"launchdock/internal/types"
)

const translateEndpoint = "https://translate.google.com/m"

// fetchFunc fetches a translation from the remote service; tests stub this
type fetchFunc func(ctx context.Context, text string) (string, error)

// Translator translates text, consulting the persistent cache before any
// remote fetch
type Translator struct {
	cache      *TranslationCache
	logger     logging.Logger
	fetch      fetchFunc
	sourceLang string
	targetLang string
}

// NewTranslator creates a translator backed by the given cache
func NewTranslator(cache *TranslationCache, sourceLang, targetLang string, logger logging.Logger) *Translator {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	if sourceLang == "" {
		sourceLang = "auto"
	}
	if targetLang == "" {
		targetLang = "en"
	}

	t := &Translator{
		cache:      cache,
		logger:     logger,
		sourceLang: sourceLang,
		targetLang: targetLang,
	}
	t.fetch = t.fetchRemote
	return t
}

// Translate returns the translation for one string. Cached values are
// returned without a remote fetch.
func (t *Translator) Translate(ctx context.Context, text string) (string, error) {
	result, err := t.TranslateBatch(ctx, []string{text})
	if err != nil {
		return "", err
	}
	return result.Translations[text], nil
}

// TranslateBatch translates a batch of strings, reporting cache hits and
// fetch counts. A fetch failure aborts the batch and leaves the cache
// untouched for the failed string.
func (t *Translator) TranslateBatch(ctx context.Context, texts []string) (*types.TranslationResult, error) {
	result := &types.TranslationResult{
		Translations: make(map[string]string, len(texts)),
	}

	for _, text := range texts {
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		if _, done := result.Translations[text]; done {
			continue
		}

		if cached, found, err := t.cache.Get(text); err != nil {
			logging.LogError(t.logger, err, "TranslateBatch", map[string]any{"source": text})
		} else if found {
			result.Translations[text] = cached
			result.CacheHits++
			continue
		}

		translated, err := t.fetch(ctx, text)
		if err != nil {
			return nil, apperrors.NewWithContext("TranslateBatch", err, apperrors.ErrCodeConnection,
				map[string]string{"source": text})
		}
		result.Fetched++
		result.Translations[text] = translated

		if err := t.cache.Put(text, translated); err != nil {
			// Cache write failures are non-fatal, the translation still stands
			logging.LogError(t.logger, err, "TranslateBatch", map[string]any{"source": text})
		}
	}

	return result, nil
}

// CacheStats returns statistics about the persistent cache
func (t *Translator) CacheStats() (*types.CacheStats, error) {
	return t.cache.Stats()
}

// ClearCache removes all cached translations
func (t *Translator) ClearCache() error {
	return t.cache.Clear()
}

// fetchRemote scrapes the mobile translation endpoint for one string
func (t *Translator) fetchRemote(ctx context.Context, text string) (string, error) {
	c := colly.NewCollector(
		colly.UserAgent("Mozilla/5.0 (Linux; Android 10) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Mobile Safari/537.36"),
	)
	c.Context = ctx

	var translated string
	var fetchErr error

	c.OnHTML("div.result-container", func(e *colly.HTMLElement) {
		translated = strings.TrimSpace(e.Text)
	})
	c.OnError(func(r *colly.Response, err error) {
		fetchErr = err
	})

	query := url.Values{}
	query.Set("sl", t.sourceLang)
	query.Set("tl", t.targetLang)
	query.Set("q", text)

	if err := c.Visit(fmt.Sprintf("%s?%s", translateEndpoint, query.Encode())); err != nil {
		return "", err
	}
	c.Wait()

	if fetchErr != nil {
		return "", fetchErr
	}
	if translated == "" {
		return "", fmt.Errorf("no translation in response for %q", text)
	}
	return translated, nil
}
