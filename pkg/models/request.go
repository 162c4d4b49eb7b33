package models

// GenerateRequest represents one `imgpt generate` invocation as parsed from the CLI
type GenerateRequest struct {
	Prompt        string
	Dir           string
	Name          string
	FromClipboard bool

	APIKey         string
	Model          string
	Size           string
	Quality        string
	Style          string
	Format         string
	OutputDir      string
	PromptTemplate string

	// nil when the flag was not given
	Delay        *float64
	SkipExisting *bool
}

// ListRequest represents an `imgpt list` invocation
type ListRequest struct {
	Dir       string
	OutputDir string
	Format    string
}

// NewGenerateRequest creates a new GenerateRequest
func NewGenerateRequest() *GenerateRequest {
	return &GenerateRequest{}
}
