package types

import "time"

// TranslationEntry is one cached source string to translated string mapping
type TranslationEntry struct {
	Source     string    `json:"source"`
	Translated string    `json:"translated"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TranslationResult reports the outcome of a translate call
type TranslationResult struct {
	Translations map[string]string `json:"translations"`
	CacheHits    int               `json:"cacheHits"`
	Fetched      int               `json:"fetched"`
}

// CacheStats summarizes the persistent translation cache
type CacheStats struct {
	Entries int64 `json:"entries"`
}
