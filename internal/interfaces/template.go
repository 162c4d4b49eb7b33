package interfaces

// TemplateData contains all variables available to prompt templates
type TemplateData struct {
	Prompt  string `json:"prompt"`
	Name    string `json:"name"`
	Model   string `json:"model"`
	Size    string `json:"size"`
	Quality string `json:"quality"`
	Style   string `json:"style"`
}

// PromptTemplater decorates prompt text before it is sent
type PromptTemplater interface {
	// Render returns the final prompt for data
	Render(data TemplateData) (string, error)
}
