package services

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	apperrors "launchdock/internal/infrastructure/errors"
)

// Command describes how to launch a file: an argv to run, plus an optional
// compile step that must succeed first (e.g. rustc before running the binary).
type Command struct {
	Argv    []string
	Compile []string // empty when no compile step is needed
}

// commandBuilder produces a Command for one file extension
type commandBuilder func(path string, args []string) Command

// Dispatcher maps file extensions to interpreter/compiler command templates
type Dispatcher struct {
	handlers map[string]commandBuilder
}

// NewDispatcher creates a dispatcher with the built-in extension table
func NewDispatcher() *Dispatcher {
	d := &Dispatcher{handlers: make(map[string]commandBuilder)}

	d.handlers[".py"] = interpreter("python3")
	d.handlers[".js"] = interpreter("node")
	d.handlers[".rb"] = interpreter("ruby")
	d.handlers[".sh"] = interpreter("sh")
	d.handlers[".ts"] = func(path string, args []string) Command {
		return Command{Argv: append([]string{"deno", "run", path}, args...)}
	}
	d.handlers[".ps1"] = func(path string, args []string) Command {
		return Command{Argv: append([]string{"powershell", "-ExecutionPolicy", "Bypass", "-File", path}, args...)}
	}
	d.handlers[".go"] = func(path string, args []string) Command {
		return Command{Argv: append([]string{"go", "run", path}, args...)}
	}
	d.handlers[".rs"] = func(path string, args []string) Command {
		bin := compiledBinaryPath(path)
		return Command{
			Compile: []string{"rustc", "-o", bin, path},
			Argv:    append([]string{bin}, args...),
		}
	}
	d.handlers[".exe"] = direct()

	if runtime.GOOS == "windows" {
		batch := func(path string, args []string) Command {
			return Command{Argv: append([]string{"cmd", "/C", path}, args...)}
		}
		d.handlers[".bat"] = batch
		d.handlers[".cmd"] = batch
		d.handlers[".py"] = interpreter("python")
	}

	return d
}

func interpreter(name string) commandBuilder {
	return func(path string, args []string) Command {
		return Command{Argv: append([]string{name, path}, args...)}
	}
}

func direct() commandBuilder {
	return func(path string, args []string) Command {
		return Command{Argv: append([]string{path}, args...)}
	}
}

// compileSeq disambiguates compile outputs of concurrent runs
var compileSeq atomic.Int64

// compiledBinaryPath places compile output in the temp dir, named after the
// source plus a per-process unique suffix so same-named scripts never race
// on the binary
func compiledBinaryPath(path string) string {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name := fmt.Sprintf("launchdock_%s_%d_%d", base, os.Getpid(), compileSeq.Add(1))
	if runtime.GOOS == "windows" {
		name += ".exe"
	}
	return filepath.Join(os.TempDir(), name)
}

// CommandFor resolves the command for a file. The file must exist and its
// extension must have a registered handler.
func (d *Dispatcher) CommandFor(path string, args []string) (Command, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return Command{}, apperrors.HandleNotFound("CommandFor", "file", path)
		}
		return Command{}, apperrors.New("CommandFor", err, apperrors.ErrCodePermission)
	}

	ext := strings.ToLower(filepath.Ext(path))
	builder, ok := d.handlers[ext]
	if !ok {
		return Command{}, apperrors.HandleUnsupportedType("CommandFor", ext)
	}

	return builder(path, args), nil
}

// Supported reports whether a file extension has a registered handler
func (d *Dispatcher) Supported(ext string) bool {
	_, ok := d.handlers[strings.ToLower(ext)]
	return ok
}

// Extensions returns the sorted list of supported extensions
func (d *Dispatcher) Extensions() []string {
	exts := make([]string, 0, len(d.handlers))
	for ext := range d.handlers {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}
