package services

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	apperrors "launchdock/internal/infrastructure/errors"
	"launchdock/internal/infrastructure/logging"
	"launchdock/internal/types"
)

// SettingsListener is notified with a copy of the settings after every change
type SettingsListener func(settings types.Settings)

// SettingsManager loads, validates and persists the application settings as
// a JSON document. Persistence failures are non-fatal, the in-memory state
// stays authoritative.
type SettingsManager struct {
	path   string
	logger logging.Logger

	mutex     sync.RWMutex
	current   types.Settings
	listeners []SettingsListener
}

// NewSettingsManager creates a manager persisting to the given file path
func NewSettingsManager(path string, logger logging.Logger) *SettingsManager {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &SettingsManager{
		path:    path,
		logger:  logger,
		current: *types.DefaultSettings(),
	}
}

// Load reads the settings file, merging stored values over the defaults.
// A missing file leaves the defaults in place and is not an error.
func (sm *SettingsManager) Load() error {
	raw, err := os.ReadFile(sm.path)
	if err != nil {
		if os.IsNotExist(err) {
			sm.logger.Info("Settings file not found, using defaults", "path", sm.path)
			return nil
		}
		return apperrors.New("LoadSettings", err, apperrors.ErrCodePermission)
	}

	// Unmarshal over the defaults so missing keys keep their default value
	merged := *types.DefaultSettings()
	if err := json.Unmarshal(raw, &merged); err != nil {
		return apperrors.New("LoadSettings", err, apperrors.ErrCodeCorruption)
	}
	if err := validateSettings(&merged); err != nil {
		return err
	}

	sm.mutex.Lock()
	sm.current = merged
	sm.mutex.Unlock()

	sm.logger.Info("Settings loaded", "path", sm.path)
	return nil
}

// Get returns a copy of the current settings
func (sm *SettingsManager) Get() types.Settings {
	sm.mutex.RLock()
	defer sm.mutex.RUnlock()
	return sm.current
}

// Update validates and applies new settings, persists them and notifies
// listeners. A persistence failure is logged but does not roll back the
// in-memory state.
func (sm *SettingsManager) Update(settings types.Settings) error {
	if err := validateSettings(&settings); err != nil {
		return err
	}

	sm.mutex.Lock()
	sm.current = settings
	listeners := append([]SettingsListener(nil), sm.listeners...)
	sm.mutex.Unlock()

	if err := sm.persist(settings); err != nil {
		logging.LogError(sm.logger, err, "UpdateSettings", map[string]any{"path": sm.path})
	}

	for _, listener := range listeners {
		listener(settings)
	}
	return nil
}

// Reset restores the defaults, persists them and notifies listeners
func (sm *SettingsManager) Reset() error {
	return sm.Update(*types.DefaultSettings())
}

// AddListener registers a listener for settings changes
func (sm *SettingsManager) AddListener(listener SettingsListener) {
	sm.mutex.Lock()
	defer sm.mutex.Unlock()
	sm.listeners = append(sm.listeners, listener)
}

// persist writes the settings atomically via a temp file and rename
func (sm *SettingsManager) persist(settings types.Settings) error {
	raw, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return apperrors.New("PersistSettings", err, apperrors.ErrCodeValidation)
	}

	dir := filepath.Dir(sm.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperrors.New("PersistSettings", err, apperrors.ErrCodePermission)
	}

	tmp, err := os.CreateTemp(dir, ".settings-*.json")
	if err != nil {
		return apperrors.New("PersistSettings", err, apperrors.ErrCodePermission)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperrors.New("PersistSettings", err, apperrors.ErrCodePermission)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperrors.New("PersistSettings", err, apperrors.ErrCodePermission)
	}

	if err := os.Rename(tmpName, sm.path); err != nil {
		os.Remove(tmpName)
		return apperrors.New("PersistSettings", err, apperrors.ErrCodePermission)
	}
	return nil
}

// validateSettings rejects values outside their documented ranges
func validateSettings(s *types.Settings) error {
	if s.UI.Transparency < 0 || s.UI.Transparency > 1 {
		return apperrors.HandleValidationError("ValidateSettings", "ui.transparency",
			fmt.Sprintf("%v", s.UI.Transparency), "transparency must be between 0.0 and 1.0")
	}
	if s.UI.FontSize < 6 || s.UI.FontSize > 72 {
		return apperrors.HandleValidationError("ValidateSettings", "ui.fontSize",
			fmt.Sprintf("%d", s.UI.FontSize), "font size must be between 6 and 72")
	}
	if s.Execution.DefaultTimeoutSec <= 0 {
		return apperrors.HandleValidationError("ValidateSettings", "execution.defaultTimeoutSec",
			fmt.Sprintf("%v", s.Execution.DefaultTimeoutSec), "timeout must be positive")
	}
	if s.Execution.MaxConcurrent < 1 {
		return apperrors.HandleValidationError("ValidateSettings", "execution.maxConcurrent",
			fmt.Sprintf("%d", s.Execution.MaxConcurrent), "concurrency limit must be at least 1")
	}
	if s.Execution.OutputLimitBytes < 1024 {
		return apperrors.HandleValidationError("ValidateSettings", "execution.outputLimitBytes",
			fmt.Sprintf("%d", s.Execution.OutputLimitBytes), "output limit must be at least 1024 bytes")
	}
	if s.Execution.HistoryLimit < 1 {
		return apperrors.HandleValidationError("ValidateSettings", "execution.historyLimit",
			fmt.Sprintf("%d", s.Execution.HistoryLimit), "history limit must be at least 1")
	}
	return nil
}
