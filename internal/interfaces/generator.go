package interfaces

import "context"

// GenerationParams are the model parameters sent with a prompt
type GenerationParams struct {
	Model   string
	Size    string
	Quality string
	Style   string
	Format  string
}

// ImageGenerator is the external image-generation collaborator
type ImageGenerator interface {
	// Generate returns the raw bytes of one image for prompt
	Generate(ctx context.Context, prompt string, params GenerationParams) ([]byte, error)
}
