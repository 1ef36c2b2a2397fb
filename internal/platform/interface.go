package platform

// ShellAPI defines the interface for platform-specific shell operations
type ShellAPI interface {
	// RevealInFolder opens the system file manager with the given file selected
	RevealInFolder(path string) error
	// OpenWithDefault opens a file with the default application for its type
	OpenWithDefault(path string) error
}
