package services

import (
	"encoding/json"
	"time"

	"go.etcd.io/bbolt"

	apperrors "launchdock/internal/infrastructure/errors"
	"launchdock/internal/infrastructure/logging"
	"launchdock/internal/types"
)

var translationsBucket = []byte("translations")

// TranslationCache persists source to translated string pairs in a bbolt
// key-value store
type TranslationCache struct {
	db     *bbolt.DB
	logger logging.Logger
}

// OpenTranslationCache opens (or creates) the cache database at path
func OpenTranslationCache(path string, logger logging.Logger) (*TranslationCache, error) {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, apperrors.HandleConnectionError("OpenTranslationCache", err.Error())
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(translationsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, apperrors.New("OpenTranslationCache", err, apperrors.ErrCodeInternal)
	}

	logger.Info("Translation cache opened", "path", path)
	return &TranslationCache{db: db, logger: logger}, nil
}

// Close closes the underlying database
func (tc *TranslationCache) Close() error {
	return tc.db.Close()
}

// Get returns the cached translation for a source string
func (tc *TranslationCache) Get(source string) (string, bool, error) {
	var entry types.TranslationEntry
	var found bool

	err := tc.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(translationsBucket).Get([]byte(source))
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &entry)
	})
	if err != nil {
		return "", false, apperrors.New("TranslationCacheGet", err, apperrors.ErrCodeCorruption)
	}

	return entry.Translated, found, nil
}

// Put stores a translation for a source string, overwriting any prior value
func (tc *TranslationCache) Put(source, translated string) error {
	entry := types.TranslationEntry{
		Source:     source,
		Translated: translated,
		CreatedAt:  time.Now(),
	}
	raw, err := json.Marshal(entry)
	if err != nil {
		return apperrors.New("TranslationCachePut", err, apperrors.ErrCodeValidation)
	}

	err = tc.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(translationsBucket).Put([]byte(source), raw)
	})
	if err != nil {
		return apperrors.New("TranslationCachePut", err, apperrors.ErrCodeInternal)
	}
	return nil
}

// Stats returns the number of cached entries
func (tc *TranslationCache) Stats() (*types.CacheStats, error) {
	stats := &types.CacheStats{}
	err := tc.db.View(func(tx *bbolt.Tx) error {
		stats.Entries = int64(tx.Bucket(translationsBucket).Stats().KeyN)
		return nil
	})
	if err != nil {
		return nil, apperrors.New("TranslationCacheStats", err, apperrors.ErrCodeInternal)
	}
	return stats, nil
}

// Clear removes all cached entries
func (tc *TranslationCache) Clear() error {
	err := tc.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(translationsBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(translationsBucket)
		return err
	})
	if err != nil {
		return apperrors.New("TranslationCacheClear", err, apperrors.ErrCodeInternal)
	}

	tc.logger.Info("Translation cache cleared")
	return nil
}
