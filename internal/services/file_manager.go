package services

import (
	"encoding/json"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync"

	apperrors "launchdock/internal/infrastructure/errors"
	"launchdock/internal/infrastructure/logging"
	"launchdock/internal/platform"
)

// editorBinaries maps editor identifiers to the executables probed for them,
// in preference order
var editorBinaries = map[string][]string{
	"vscode":    {"code"},
	"sublime":   {"subl", "sublime_text"},
	"notepad++": {"notepad++"},
	"vim":       {"gvim", "vim"},
	"nano":      {"nano"},
	"notepad":   {"notepad"},
	"idle":      {"idle3", "idle"},
	"gedit":     {"gedit"},
	"textedit":  {"open"},
}

const defaultMaxRecentFolders = 10

// CustomEditor is a user-registered editor definition
type CustomEditor struct {
	Name       string   `json:"name"`
	Executable string   `json:"executable"`
	Args       []string `json:"args,omitempty"`
}

// fileManagerConfig is the persisted state: custom editors, per-extension
// editor associations and recently opened folders
type fileManagerConfig struct {
	CustomEditors    map[string]CustomEditor `json:"customEditors"`
	FileAssociations map[string]string       `json:"fileAssociations"`
	RecentFolders    []string                `json:"recentFolders"`
	MaxRecentFolders int                     `json:"maxRecentFolders"`
}

func defaultFileManagerConfig() fileManagerConfig {
	return fileManagerConfig{
		CustomEditors:    make(map[string]CustomEditor),
		FileAssociations: make(map[string]string),
		MaxRecentFolders: defaultMaxRecentFolders,
	}
}

// lookPathFunc allows tests to stub executable lookup
type lookPathFunc func(name string) (string, error)

// FileManager opens scripts in editors and file managers and performs file
// operations on disk: rename, copy, move and delete
type FileManager struct {
	shell    platform.ShellAPI
	logger   logging.Logger
	lookPath lookPathFunc

	configPath string
	configMu   sync.Mutex
	config     fileManagerConfig
}

// NewFileManager creates a file manager using the platform shell integration.
// Custom editors, associations and recent folders are kept in memory only.
func NewFileManager(shell platform.ShellAPI, logger logging.Logger) *FileManager {
	if logger == nil {
		logger = logging.NewDefaultLogger()
	}
	return &FileManager{
		shell:    shell,
		logger:   logger,
		lookPath: exec.LookPath,
		config:   defaultFileManagerConfig(),
	}
}

// NewFileManagerWithConfig creates a file manager that persists its custom
// editors, associations and recent folders at configPath
func NewFileManagerWithConfig(shell platform.ShellAPI, logger logging.Logger, configPath string) *FileManager {
	fm := NewFileManager(shell, logger)
	fm.configPath = configPath
	fm.loadConfig()
	return fm
}

// loadConfig merges the persisted document over the defaults. A missing file
// is normal; a corrupt one is logged and replaced on the next save.
func (fm *FileManager) loadConfig() {
	data, err := os.ReadFile(fm.configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			logging.LogError(fm.logger, err, "loadConfig", map[string]any{"path": fm.configPath})
		}
		return
	}

	config := defaultFileManagerConfig()
	if err := json.Unmarshal(data, &config); err != nil {
		logging.LogError(fm.logger, err, "loadConfig", map[string]any{"path": fm.configPath})
		return
	}
	if config.CustomEditors == nil {
		config.CustomEditors = make(map[string]CustomEditor)
	}
	if config.FileAssociations == nil {
		config.FileAssociations = make(map[string]string)
	}
	if config.MaxRecentFolders <= 0 {
		config.MaxRecentFolders = defaultMaxRecentFolders
	}

	fm.configMu.Lock()
	fm.config = config
	fm.configMu.Unlock()
}

// persistConfig writes the config atomically. Failures are logged and the
// in-memory state stays authoritative. Callers must hold configMu.
func (fm *FileManager) persistConfig() {
	if fm.configPath == "" {
		return
	}

	data, err := json.MarshalIndent(fm.config, "", "  ")
	if err != nil {
		logging.LogError(fm.logger, err, "persistConfig", nil)
		return
	}

	dir := filepath.Dir(fm.configPath)
	tmp, err := os.CreateTemp(dir, ".file-manager-*.json")
	if err != nil {
		logging.LogError(fm.logger, err, "persistConfig", map[string]any{"path": fm.configPath})
		return
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		logging.LogError(fm.logger, err, "persistConfig", map[string]any{"path": fm.configPath})
		return
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		logging.LogError(fm.logger, err, "persistConfig", map[string]any{"path": fm.configPath})
		return
	}
	if err := os.Rename(tmpName, fm.configPath); err != nil {
		os.Remove(tmpName)
		logging.LogError(fm.logger, err, "persistConfig", map[string]any{"path": fm.configPath})
	}
}

// DetectEditors returns the sorted identifiers of editors found on PATH,
// built-in and custom
func (fm *FileManager) DetectEditors() []string {
	seen := make(map[string]bool)
	var found []string

	for editor, binaries := range editorBinaries {
		if editor == "textedit" && runtime.GOOS != "darwin" {
			continue
		}
		if editor == "notepad" && runtime.GOOS != "windows" {
			continue
		}
		if _, ok := fm.resolveEditor(editor, binaries); ok {
			seen[editor] = true
			found = append(found, editor)
		}
	}

	fm.configMu.Lock()
	customs := make(map[string]CustomEditor, len(fm.config.CustomEditors))
	for id, editor := range fm.config.CustomEditors {
		customs[id] = editor
	}
	fm.configMu.Unlock()

	for id, editor := range customs {
		if seen[id] {
			continue
		}
		if _, err := fm.lookPath(editor.Executable); err == nil {
			found = append(found, id)
		}
	}

	sort.Strings(found)
	return found
}

// AddCustomEditor registers a user-defined editor. The executable must be
// resolvable on PATH.
func (fm *FileManager) AddCustomEditor(id, name, executable string, args []string) error {
	if id == "" {
		return apperrors.HandleValidationError("AddCustomEditor", "id", id, "editor id cannot be empty")
	}
	if executable == "" {
		return apperrors.HandleValidationError("AddCustomEditor", "executable", executable,
			"executable cannot be empty")
	}
	if _, err := fm.lookPath(executable); err != nil {
		return apperrors.HandleSpawnError("AddCustomEditor", executable, err)
	}
	if name == "" {
		name = id
	}

	fm.configMu.Lock()
	fm.config.CustomEditors[id] = CustomEditor{Name: name, Executable: executable, Args: args}
	fm.persistConfig()
	fm.configMu.Unlock()

	fm.logger.Info("Registered custom editor", "id", id, "executable", executable)
	return nil
}

// RemoveCustomEditor drops a custom editor and any associations pointing at it
func (fm *FileManager) RemoveCustomEditor(id string) error {
	fm.configMu.Lock()
	defer fm.configMu.Unlock()

	if _, ok := fm.config.CustomEditors[id]; !ok {
		return apperrors.HandleNotFound("RemoveCustomEditor", "custom_editor", id)
	}
	delete(fm.config.CustomEditors, id)
	for ext, editor := range fm.config.FileAssociations {
		if editor == id {
			delete(fm.config.FileAssociations, ext)
		}
	}
	fm.persistConfig()
	return nil
}

// CustomEditors returns the registered custom editors keyed by identifier
func (fm *FileManager) CustomEditors() map[string]CustomEditor {
	fm.configMu.Lock()
	defer fm.configMu.Unlock()

	editors := make(map[string]CustomEditor, len(fm.config.CustomEditors))
	for id, editor := range fm.config.CustomEditors {
		editors[id] = editor
	}
	return editors
}

// SetFileAssociation binds a file extension to an editor identifier. An
// empty editor clears the association.
func (fm *FileManager) SetFileAssociation(ext, editor string) error {
	ext = strings.ToLower(ext)
	if ext == "" {
		return apperrors.HandleValidationError("SetFileAssociation", "ext", ext, "extension cannot be empty")
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}

	fm.configMu.Lock()
	defer fm.configMu.Unlock()

	if editor == "" {
		delete(fm.config.FileAssociations, ext)
		fm.persistConfig()
		return nil
	}

	_, isCustom := fm.config.CustomEditors[editor]
	if _, isBuiltin := editorBinaries[editor]; !isBuiltin && !isCustom {
		return apperrors.HandleValidationError("SetFileAssociation", "editor", editor, "unknown editor")
	}

	fm.config.FileAssociations[ext] = editor
	fm.persistConfig()
	return nil
}

// EditorForFile returns the associated editor for a file's extension, or
// empty when no association exists
func (fm *FileManager) EditorForFile(path string) string {
	ext := strings.ToLower(filepath.Ext(path))

	fm.configMu.Lock()
	defer fm.configMu.Unlock()
	return fm.config.FileAssociations[ext]
}

// OpenInEditor opens a file in the named editor, falling back to the first
// detected editor when the requested one is unavailable
func (fm *FileManager) OpenInEditor(path, editor string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return apperrors.HandleNotFound("OpenInEditor", "file", path)
		}
		return apperrors.New("OpenInEditor", err, apperrors.ErrCodePermission)
	}

	argv, ok := fm.editorCommand(editor, path)
	if !ok {
		for _, fallback := range fm.DetectEditors() {
			if argv, ok = fm.editorCommand(fallback, path); ok {
				fm.logger.Warn("Requested editor unavailable, using fallback",
					"requested", editor, "fallback", fallback)
				break
			}
		}
	}
	if !ok {
		return apperrors.HandleSpawnError("OpenInEditor", editor, exec.ErrNotFound)
	}

	cmd := exec.Command(argv[0], argv[1:]...)
	platform.PrepareCommand(cmd)
	if err := cmd.Start(); err != nil {
		return apperrors.HandleSpawnError("OpenInEditor", argv[0], err)
	}
	go cmd.Wait()

	fm.logger.Info("Opened file in editor", "path", path, "editor", editor)
	return nil
}

// editorCommand resolves an editor identifier to the argv that opens path
func (fm *FileManager) editorCommand(editor, path string) ([]string, bool) {
	fm.configMu.Lock()
	custom, isCustom := fm.config.CustomEditors[editor]
	fm.configMu.Unlock()

	if isCustom {
		resolved, err := fm.lookPath(custom.Executable)
		if err != nil {
			return nil, false
		}
		argv := append([]string{resolved}, custom.Args...)
		return append(argv, path), true
	}

	binary, ok := fm.resolveEditorByName(editor)
	if !ok {
		return nil, false
	}
	if filepath.Base(binary) == "open" {
		return []string{binary, "-t", path}, true
	}
	return []string{binary, path}, true
}

// OpenContainingFolder opens the system file manager with the file selected
// and records the folder as recently opened
func (fm *FileManager) OpenContainingFolder(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return apperrors.HandleNotFound("OpenContainingFolder", "file", path)
		}
		return apperrors.New("OpenContainingFolder", err, apperrors.ErrCodePermission)
	}

	if err := fm.shell.RevealInFolder(path); err != nil {
		return apperrors.HandleSpawnError("OpenContainingFolder", path, err)
	}

	fm.recordRecentFolder(filepath.Dir(path))
	return nil
}

// recordRecentFolder moves the folder to the front of the recent list
func (fm *FileManager) recordRecentFolder(folder string) {
	fm.configMu.Lock()
	defer fm.configMu.Unlock()

	recent := fm.config.RecentFolders[:0:0]
	recent = append(recent, folder)
	for _, f := range fm.config.RecentFolders {
		if f != folder {
			recent = append(recent, f)
		}
	}
	if len(recent) > fm.config.MaxRecentFolders {
		recent = recent[:fm.config.MaxRecentFolders]
	}
	fm.config.RecentFolders = recent
	fm.persistConfig()
}

// RecentFolders returns the most recently opened folders, newest first
func (fm *FileManager) RecentFolders() []string {
	fm.configMu.Lock()
	defer fm.configMu.Unlock()
	return append([]string(nil), fm.config.RecentFolders...)
}

// ClearRecentFolders empties the recent folder list
func (fm *FileManager) ClearRecentFolders() {
	fm.configMu.Lock()
	defer fm.configMu.Unlock()
	fm.config.RecentFolders = nil
	fm.persistConfig()
}

// RenameFile renames a file on disk, keeping it in the same directory.
// Returns the new absolute path.
func (fm *FileManager) RenameFile(path, newName string) (string, error) {
	if newName == "" || newName != filepath.Base(newName) {
		return "", apperrors.HandleValidationError("RenameFile", "newName", newName,
			"new name must be a bare file name")
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.HandleNotFound("RenameFile", "file", path)
		}
		return "", apperrors.New("RenameFile", err, apperrors.ErrCodePermission)
	}

	newPath := filepath.Join(filepath.Dir(path), newName)
	if newPath == path {
		return path, nil
	}
	if _, err := os.Stat(newPath); err == nil {
		return "", apperrors.NewWithContext("RenameFile", os.ErrExist, apperrors.ErrCodeDuplicate,
			map[string]string{"new_path": newPath})
	}

	if err := os.Rename(path, newPath); err != nil {
		return "", apperrors.New("RenameFile", err, apperrors.ErrCodePermission)
	}

	fm.logger.Info("Renamed file", "from", path, "to", newPath)
	return newPath, nil
}

// CopyFile copies a file to destPath, creating parent directories as needed.
// The destination must not exist.
func (fm *FileManager) CopyFile(path, destPath string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.HandleNotFound("CopyFile", "file", path)
		}
		return "", apperrors.New("CopyFile", err, apperrors.ErrCodePermission)
	}
	if _, err := os.Stat(destPath); err == nil {
		return "", apperrors.NewWithContext("CopyFile", os.ErrExist, apperrors.ErrCodeDuplicate,
			map[string]string{"dest_path": destPath})
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", apperrors.New("CopyFile", err, apperrors.ErrCodePermission)
	}

	if err := copyFileContents(path, destPath, info.Mode()); err != nil {
		return "", apperrors.New("CopyFile", err, apperrors.ErrCodePermission)
	}

	fm.logger.Info("Copied file", "from", path, "to", destPath)
	return destPath, nil
}

// MoveFile moves a file to destPath, creating parent directories as needed.
// Falls back to copy-and-remove when rename crosses filesystems.
func (fm *FileManager) MoveFile(path, destPath string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.HandleNotFound("MoveFile", "file", path)
		}
		return "", apperrors.New("MoveFile", err, apperrors.ErrCodePermission)
	}
	if _, err := os.Stat(destPath); err == nil {
		return "", apperrors.NewWithContext("MoveFile", os.ErrExist, apperrors.ErrCodeDuplicate,
			map[string]string{"dest_path": destPath})
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return "", apperrors.New("MoveFile", err, apperrors.ErrCodePermission)
	}

	if err := os.Rename(path, destPath); err != nil {
		if err := copyFileContents(path, destPath, info.Mode()); err != nil {
			return "", apperrors.New("MoveFile", err, apperrors.ErrCodePermission)
		}
		if err := os.Remove(path); err != nil {
			return "", apperrors.New("MoveFile", err, apperrors.ErrCodePermission)
		}
	}

	fm.logger.Info("Moved file", "from", path, "to", destPath)
	return destPath, nil
}

// DeleteFile removes a file, preferring the system trash when toTrash is set
// and a trash tool is available; otherwise the delete is permanent
func (fm *FileManager) DeleteFile(path string, toTrash bool) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return apperrors.HandleNotFound("DeleteFile", "file", path)
		}
		return apperrors.New("DeleteFile", err, apperrors.ErrCodePermission)
	}

	if toTrash {
		if argv, ok := fm.trashCommand(path); ok {
			cmd := exec.Command(argv[0], argv[1:]...)
			platform.PrepareCommand(cmd)
			if err := cmd.Run(); err != nil {
				return apperrors.HandleSpawnError("DeleteFile", argv[0], err)
			}
			fm.logger.Info("Moved file to trash", "path", path)
			return nil
		}
	}

	if err := os.Remove(path); err != nil {
		return apperrors.New("DeleteFile", err, apperrors.ErrCodePermission)
	}
	fm.logger.Info("Deleted file", "path", path)
	return nil
}

// trashCommand probes for a trash tool on PATH
func (fm *FileManager) trashCommand(path string) ([]string, bool) {
	if runtime.GOOS == "windows" {
		return nil, false
	}
	if bin, err := fm.lookPath("trash"); err == nil {
		return []string{bin, path}, true
	}
	if bin, err := fm.lookPath("gio"); err == nil {
		return []string{bin, "trash", path}, true
	}
	return nil, false
}

// copyFileContents copies src to dst preserving the file mode
func copyFileContents(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// resolveEditorByName resolves an editor identifier to an executable path
func (fm *FileManager) resolveEditorByName(editor string) (string, bool) {
	binaries, ok := editorBinaries[editor]
	if !ok {
		// Unknown identifiers are treated as a literal executable name
		binaries = []string{editor}
	}
	return fm.resolveEditor(editor, binaries)
}

func (fm *FileManager) resolveEditor(editor string, binaries []string) (string, bool) {
	for _, binary := range binaries {
		if resolved, err := fm.lookPath(binary); err == nil {
			return resolved, true
		}
	}
	return "", false
}
