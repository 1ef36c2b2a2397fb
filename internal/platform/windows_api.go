//go:build windows

package platform

import (
	"os"
	"os/exec"
	"strconv"
	"syscall"

	"golang.org/x/sys/windows"
)

// WindowsShell implements ShellAPI for the Windows platform
type WindowsShell struct{}

// NewWindowsShell creates a new Windows shell instance
func NewWindowsShell() *WindowsShell {
	return &WindowsShell{}
}

// NewShellAPI creates a new ShellAPI instance for Windows
func NewShellAPI() ShellAPI {
	return NewWindowsShell()
}

// RevealInFolder opens Explorer with the given file selected
func (s *WindowsShell) RevealInFolder(path string) error {
	// explorer exits non-zero even on success, so only spawn errors matter
	cmd := exec.Command("explorer", "/select,", path)
	PrepareCommand(cmd)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// OpenWithDefault opens a file with its associated application via ShellExecute
func (s *WindowsShell) OpenWithDefault(path string) error {
	verb, err := windows.UTF16PtrFromString("open")
	if err != nil {
		return err
	}
	target, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}
	return windows.ShellExecute(0, verb, target, nil, nil, windows.SW_SHOWNORMAL)
}

// PrepareCommand hides the console window of spawned child processes
func PrepareCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
}

// KillProcessTree terminates the process and its descendants. taskkill walks
// the child tree; killing the process alone is the fallback.
func KillProcessTree(p *os.Process) error {
	if p == nil {
		return nil
	}
	kill := exec.Command("taskkill", "/T", "/F", "/PID", strconv.Itoa(p.Pid))
	PrepareCommand(kill)
	if err := kill.Run(); err != nil {
		return p.Kill()
	}
	return nil
}
