//go:build linux

package platform

import (
	"os/exec"
	"path/filepath"
)

// LinuxShell implements ShellAPI for the Linux platform
type LinuxShell struct{}

// NewLinuxShell creates a new Linux shell instance
func NewLinuxShell() *LinuxShell {
	return &LinuxShell{}
}

// NewShellAPI creates a new ShellAPI instance for Linux
func NewShellAPI() ShellAPI {
	return NewLinuxShell()
}

// RevealInFolder opens the containing directory in the default file manager.
// File selection is not portable across Linux file managers, so the parent
// directory is opened instead.
func (s *LinuxShell) RevealInFolder(path string) error {
	cmd := exec.Command("xdg-open", filepath.Dir(path))
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// OpenWithDefault opens a file with its associated application
func (s *LinuxShell) OpenWithDefault(path string) error {
	cmd := exec.Command("xdg-open", path)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
