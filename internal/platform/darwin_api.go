//go:build darwin

package platform

import (
	"os/exec"
)

// DarwinShell implements ShellAPI for the macOS platform
type DarwinShell struct{}

// NewDarwinShell creates a new macOS shell instance
func NewDarwinShell() *DarwinShell {
	return &DarwinShell{}
}

// NewShellAPI creates a new ShellAPI instance for macOS
func NewShellAPI() ShellAPI {
	return NewDarwinShell()
}

// RevealInFolder opens Finder with the given file selected
func (s *DarwinShell) RevealInFolder(path string) error {
	cmd := exec.Command("open", "-R", path)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}

// OpenWithDefault opens a file with its associated application
func (s *DarwinShell) OpenWithDefault(path string) error {
	cmd := exec.Command("open", path)
	if err := cmd.Start(); err != nil {
		return err
	}
	go cmd.Wait()
	return nil
}
