package interfaces

// PromptSource handles prompt file discovery and reading
type PromptSource interface {
	// Discover lists prompt files directly inside dir in a stable order
	Discover(dir string) ([]string, error)

	// Read extracts the prompt text from a prompt file
	Read(path string) (string, error)
}
