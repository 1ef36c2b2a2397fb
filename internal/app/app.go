package app

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"launchdock/internal/database"
	apperrors "launchdock/internal/infrastructure/errors"
	"launchdock/internal/infrastructure/logging"
	"launchdock/internal/platform"
	"launchdock/internal/repository"
	"launchdock/internal/services"
	"launchdock/internal/types"
)

const shutdownTimeout = 10 * time.Second

// App wires the services together and exposes the methods bound to the
// frontend
type App struct {
	ctx         context.Context
	environment string
	logger      logging.Logger

	dbService database.Service
	scripts   repository.ScriptRepository
	history   repository.HistoryRepository

	settings    *services.SettingsManager
	dispatcher  *services.Dispatcher
	execManager *services.ExecutionManager
	fileManager *services.FileManager
	translator  *services.Translator
	cache       *services.TranslationCache

	persistent bool
}

// NewApp builds the application graph. Database and cache failures degrade
// to in-memory state instead of aborting startup.
func NewApp(env string) *App {
	logger := logging.NewDefaultLogger()

	dataDir := applicationDataDir()

	settings := services.NewSettingsManager(filepath.Join(dataDir, "settings.json"), logger)
	if err := settings.Load(); err != nil {
		logging.LogError(logger, err, "NewApp", map[string]any{"component": "settings"})
	}
	cfg := settings.Get()

	a := &App{
		environment: env,
		logger:      logger,
		settings:    settings,
		dispatcher:  services.NewDispatcher(),
		fileManager: services.NewFileManagerWithConfig(platform.NewShellAPI(), logger,
			filepath.Join(dataDir, "file_manager.json")),
	}

	// Database-backed repositories, with in-memory fallback on failure
	dbConfig := database.ConfigForEnvironment(env)
	if !dbConfig.IsInMemory() {
		dbConfig.Path = filepath.Join(dataDir, filepath.Base(dbConfig.Path))
	}
	if err := dbConfig.LoadFromEnvironment(); err != nil {
		// Bad overrides keep the preset values; persistence still proceeds
		logging.LogError(logger, err, "NewApp", map[string]any{"component": "database_config"})
	}
	if err := dbConfig.Validate(); err != nil {
		logging.LogError(logger, err, "NewApp", map[string]any{"component": "database_config"})
	} else {
		a.initStorage(dbConfig, logger)
	}
	if a.scripts == nil {
		logger.Warn("Continuing without database persistence")
		memory := repository.NewMemoryRepository(logger)
		a.scripts = memory
		a.history = memory
	}

	a.execManager = services.NewExecutionManager(a.dispatcher, a.history, logger, services.ExecutionConfig{
		DefaultTimeout: time.Duration(cfg.Execution.DefaultTimeoutSec * float64(time.Second)),
		MaxConcurrent:  cfg.Execution.MaxConcurrent,
		OutputLimit:    cfg.Execution.OutputLimitBytes,
		HistoryLimit:   cfg.Execution.HistoryLimit,
	})

	settings.AddListener(func(s types.Settings) {
		a.execManager.SetDefaultTimeout(time.Duration(s.Execution.DefaultTimeoutSec * float64(time.Second)))
		a.execManager.SetHistoryLimit(s.Execution.HistoryLimit)
	})

	// Translation cache failures leave the translator disabled
	cache, err := services.OpenTranslationCache(filepath.Join(dataDir, "translations.db"), logger)
	if err != nil {
		logging.LogError(logger, err, "NewApp", map[string]any{"component": "translation_cache"})
	} else {
		a.cache = cache
		a.translator = services.NewTranslator(cache, "auto", "en", logger)
	}

	return a
}

// initStorage connects the database, runs migrations and installs the
// SQLite-backed repositories
func (a *App) initStorage(dbConfig *database.Config, logger logging.Logger) {
	dbService := database.NewSQLiteService(logger)
	if err := dbService.Connect(context.Background(), dbConfig); err != nil {
		logging.LogError(logger, err, "NewApp", map[string]any{"component": "database"})
		return
	}
	if err := dbService.Migrate(context.Background()); err != nil {
		logging.LogError(logger, err, "NewApp", map[string]any{"component": "migrations"})
		dbService.Close()
		return
	}

	repo := repository.NewSQLiteRepository(dbService, logger)
	a.dbService = dbService
	a.scripts = repo
	a.history = repo
	a.persistent = true
}

// Startup is called at application startup
func (a *App) Startup(ctx context.Context) {
	a.ctx = ctx

	a.execManager.AddStatusListener(func(taskID string, record types.ExecutionRecord) {
		a.emitExecutionEvents(taskID, record)
	})

	a.logger.Info("Application started", "environment", a.environment, "persistent", a.persistent)
}

// emitExecutionEvents forwards status changes to the frontend
func (a *App) emitExecutionEvents(taskID string, record types.ExecutionRecord) {
	if a.ctx == nil {
		return
	}

	runtime.EventsEmit(a.ctx, "execution:status", record)

	if !record.Status.Terminal() {
		return
	}
	notifications := a.settings.Get().Notifications
	switch record.Status {
	case types.StatusSuccess:
		if notifications.OnComplete {
			runtime.EventsEmit(a.ctx, "execution:complete", record)
		}
	default:
		if notifications.OnError {
			runtime.EventsEmit(a.ctx, "execution:failed", record)
		}
	}
}

// DomReady is called after front-end resources have been loaded
func (a *App) DomReady(ctx context.Context) {}

// BeforeClose is called when the application is about to quit
func (a *App) BeforeClose(ctx context.Context) (prevent bool) {
	return false
}

// Shutdown is called at application termination
func (a *App) Shutdown(ctx context.Context) {
	a.logger.Info("Starting application shutdown")

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()

	// Cancel anything still running so records get finalized
	for _, task := range a.execManager.ActiveTasks() {
		a.execManager.Cancel(task.TaskID)
	}

	select {
	case <-shutdownCtx.Done():
	case <-time.After(500 * time.Millisecond):
	}

	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			logging.LogError(a.logger, err, "Shutdown", map[string]any{"component": "translation_cache"})
		}
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			logging.LogError(a.logger, err, "Shutdown", map[string]any{"component": "database"})
		}
	}

	a.logger.Info("Application shutdown completed")
}

// AddScript pins a script to the toolbar. The label defaults to the file
// name when empty.
func (a *App) AddScript(path, label string) (*types.ScriptEntry, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.HandleNotFound("AddScript", "file", path)
		}
		return nil, apperrors.New("AddScript", err, apperrors.ErrCodePermission)
	}
	if !a.dispatcher.Supported(filepath.Ext(path)) {
		return nil, apperrors.HandleUnsupportedType("AddScript", filepath.Ext(path))
	}

	if label == "" {
		base := filepath.Base(path)
		label = strings.TrimSuffix(base, filepath.Ext(base))
	}

	existing, err := a.scripts.ListScripts(a.requestCtx())
	if err != nil {
		return nil, err
	}

	entry := &types.ScriptEntry{
		Path:     path,
		Label:    label,
		Editor:   a.settings.Get().Editor.DefaultEditor,
		Position: len(existing),
	}
	if _, err := a.scripts.AddScript(a.requestCtx(), entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// RemoveScript unpins a script from the toolbar
func (a *App) RemoveScript(id int64) error {
	return a.scripts.RemoveScript(a.requestCtx(), id)
}

// RenameScript changes the display label of a pinned script
func (a *App) RenameScript(id int64, label string) error {
	return a.scripts.RenameScript(a.requestCtx(), id, label)
}

// SetScriptEditor sets the preferred editor for a pinned script
func (a *App) SetScriptEditor(id int64, editor string) error {
	return a.scripts.SetScriptEditor(a.requestCtx(), id, editor)
}

// ReorderScript moves a pinned script to a new toolbar position
func (a *App) ReorderScript(id int64, position int) error {
	return a.scripts.ReorderScript(a.requestCtx(), id, position)
}

// GetScripts returns all pinned scripts in toolbar order
func (a *App) GetScripts() ([]types.ScriptEntry, error) {
	return a.scripts.ListScripts(a.requestCtx())
}

// ExecuteScript launches a pinned script and returns the task id
func (a *App) ExecuteScript(path string, args []string) (string, error) {
	return a.execManager.Execute(path, args, 0)
}

// ExecuteScriptWithTimeout launches a script with a one-off timeout in seconds
func (a *App) ExecuteScriptWithTimeout(path string, args []string, timeoutSec float64) (string, error) {
	return a.execManager.Execute(path, args, time.Duration(timeoutSec*float64(time.Second)))
}

// CancelExecution kills a running task
func (a *App) CancelExecution(taskID string) error {
	return a.execManager.Cancel(taskID)
}

// GetActiveTasks returns all currently running tasks
func (a *App) GetActiveTasks() []types.ExecutionRecord {
	return a.execManager.ActiveTasks()
}

// GetExecutionHistory returns recent execution records, newest first
func (a *App) GetExecutionHistory(limit int) ([]types.ExecutionRecord, error) {
	return a.execManager.RecentRecords(a.requestCtx(), limit)
}

// GetScriptHistory returns recent records for one script path
func (a *App) GetScriptHistory(path string, limit int) ([]types.ExecutionRecord, error) {
	return a.history.ListByScript(a.requestCtx(), path, limit)
}

// GetLastStatus returns the outcome of the most recent run of a script.
// Scripts that never ran report the idle status.
func (a *App) GetLastStatus(path string) (types.ExecutionStatus, error) {
	status, err := a.history.LastStatus(a.requestCtx(), path)
	if apperrors.IsNotFound(err) {
		return types.StatusIdle, nil
	}
	return status, err
}

// GetStatistics returns aggregate execution statistics
func (a *App) GetStatistics() (*types.ExecStats, error) {
	return a.execManager.Statistics(a.requestCtx())
}

// ClearHistory removes all execution records
func (a *App) ClearHistory() error {
	return a.history.ClearHistory(a.requestCtx())
}

// GetSupportedExtensions returns the file extensions that can be launched
func (a *App) GetSupportedExtensions() []string {
	return a.dispatcher.Extensions()
}

// GetSettings returns the current settings
func (a *App) GetSettings() types.Settings {
	return a.settings.Get()
}

// UpdateSettings validates, applies and persists new settings
func (a *App) UpdateSettings(settings types.Settings) error {
	return a.settings.Update(settings)
}

// ResetSettings restores the default settings
func (a *App) ResetSettings() error {
	return a.settings.Reset()
}

// DetectEditors returns the editors found on this machine
func (a *App) DetectEditors() []string {
	return a.fileManager.DetectEditors()
}

// OpenInEditor opens a script in its preferred editor. Without an explicit
// choice the extension association wins, then the default editor.
func (a *App) OpenInEditor(path, editor string) error {
	if editor == "" {
		editor = a.fileManager.EditorForFile(path)
	}
	if editor == "" {
		editor = a.settings.Get().Editor.DefaultEditor
	}
	return a.fileManager.OpenInEditor(path, editor)
}

// AddCustomEditor registers a user-defined editor for the editor picker
func (a *App) AddCustomEditor(id, name, executable string, args []string) error {
	return a.fileManager.AddCustomEditor(id, name, executable, args)
}

// RemoveCustomEditor drops a user-defined editor
func (a *App) RemoveCustomEditor(id string) error {
	return a.fileManager.RemoveCustomEditor(id)
}

// GetCustomEditors returns the registered custom editors
func (a *App) GetCustomEditors() map[string]services.CustomEditor {
	return a.fileManager.CustomEditors()
}

// SetFileAssociation binds a file extension to an editor; an empty editor
// clears the binding
func (a *App) SetFileAssociation(ext, editor string) error {
	return a.fileManager.SetFileAssociation(ext, editor)
}

// GetEditorForFile returns the editor associated with a file's extension
func (a *App) GetEditorForFile(path string) string {
	return a.fileManager.EditorForFile(path)
}

// OpenContainingFolder reveals a script in the system file manager
func (a *App) OpenContainingFolder(path string) error {
	return a.fileManager.OpenContainingFolder(path)
}

// GetRecentFolders returns the most recently revealed folders, newest first
func (a *App) GetRecentFolders() []string {
	return a.fileManager.RecentFolders()
}

// ClearRecentFolders empties the recent folder list
func (a *App) ClearRecentFolders() {
	a.fileManager.ClearRecentFolders()
}

// CopyScriptFile copies a file on disk to a new destination path
func (a *App) CopyScriptFile(path, destPath string) (string, error) {
	return a.fileManager.CopyFile(path, destPath)
}

// MoveScriptFile moves a file on disk to a new destination path
func (a *App) MoveScriptFile(path, destPath string) (string, error) {
	return a.fileManager.MoveFile(path, destPath)
}

// DeleteScriptFile deletes a file, moving it to the system trash when
// toTrash is set and a trash tool exists
func (a *App) DeleteScriptFile(path string, toTrash bool) error {
	return a.fileManager.DeleteFile(path, toTrash)
}

// RenameScriptFile renames a pinned script on disk and updates its entry
func (a *App) RenameScriptFile(id int64, newName string) (*types.ScriptEntry, error) {
	entry, err := a.scripts.GetScript(a.requestCtx(), id)
	if err != nil {
		return nil, err
	}

	newPath, err := a.fileManager.RenameFile(entry.Path, newName)
	if err != nil {
		return nil, err
	}

	if err := a.scripts.UpdateScriptPath(a.requestCtx(), id, newPath); err != nil {
		return nil, err
	}
	return a.scripts.GetScript(a.requestCtx(), id)
}

// Translate returns the translation for one string, consulting the cache
func (a *App) Translate(text string) (string, error) {
	if a.translator == nil {
		return "", apperrors.HandleConnectionError("Translate", "translation cache unavailable")
	}
	return a.translator.Translate(a.requestCtx(), text)
}

// TranslateBatch translates a batch of strings
func (a *App) TranslateBatch(texts []string) (*types.TranslationResult, error) {
	if a.translator == nil {
		return nil, apperrors.HandleConnectionError("TranslateBatch", "translation cache unavailable")
	}
	return a.translator.TranslateBatch(a.requestCtx(), texts)
}

// GetTranslationCacheStats returns statistics about the translation cache
func (a *App) GetTranslationCacheStats() (*types.CacheStats, error) {
	if a.translator == nil {
		return &types.CacheStats{}, nil
	}
	return a.translator.CacheStats()
}

// ClearTranslationCache removes all cached translations
func (a *App) ClearTranslationCache() error {
	if a.translator == nil {
		return nil
	}
	return a.translator.ClearCache()
}

// GetLogger returns the application's structured logger
func (a *App) GetLogger() logging.Logger {
	return a.logger
}

// requestCtx returns the context used for frontend-initiated operations
func (a *App) requestCtx() context.Context {
	if a.ctx != nil {
		return a.ctx
	}
	return context.Background()
}

// applicationDataDir resolves the per-user data directory, falling back to
// the working directory
func applicationDataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	dir := filepath.Join(base, "launchdock")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "."
	}
	return dir
}
