package interfaces

// ImageWriter stores generated images
type ImageWriter interface {
	// Exists reports whether an image is already present at path
	Exists(path string) bool

	// Write stores data at path, creating parent directories as needed
	Write(path string, data []byte) error
}
