package repository

import (
	"database/sql"

	"launchdock/internal/database"
	apperrors "launchdock/internal/infrastructure/errors"
	"launchdock/internal/infrastructure/logging"
)

// SQLiteRepository implements ScriptRepository and HistoryRepository using SQLite
type SQLiteRepository struct {
	db          *sql.DB
	dbService   database.Service
	retryConfig *apperrors.RetryConfig
	logger      logging.Logger
}

var (
	_ ScriptRepository  = (*SQLiteRepository)(nil)
	_ HistoryRepository = (*SQLiteRepository)(nil)
)

// NewSQLiteRepository creates a new SQLite repository instance
func NewSQLiteRepository(dbService database.Service, logger logging.Logger) *SQLiteRepository {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}

	return &SQLiteRepository{
		db:          dbService.DB(),
		dbService:   dbService,
		retryConfig: apperrors.DefaultRetryConfig(),
		logger:      logger,
	}
}

// NewSQLiteRepositoryWithConfig creates a repository with a custom retry configuration
func NewSQLiteRepositoryWithConfig(dbService database.Service, retryConfig *apperrors.RetryConfig, logger logging.Logger) *SQLiteRepository {
	repo := NewSQLiteRepository(dbService, logger)
	if retryConfig != nil {
		repo.retryConfig = retryConfig
	}
	return repo
}

// SetRetryConfig replaces the retry configuration; nil is ignored
func (r *SQLiteRepository) SetRetryConfig(config *apperrors.RetryConfig) {
	if config != nil {
		r.retryConfig = config
	}
}

// GetRetryConfig returns the current retry configuration
func (r *SQLiteRepository) GetRetryConfig() *apperrors.RetryConfig {
	return r.retryConfig
}

// classifyError delegates to the shared storage error classification
func (r *SQLiteRepository) classifyError(err error) apperrors.ErrorCode {
	return apperrors.ClassifyError(err)
}
