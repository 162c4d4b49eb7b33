package template

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
	"github.com/spf13/afero"
	"imgpt-cli/internal/interfaces"
)

// filePrefix marks a prompt_template value that names a template file
const filePrefix = "@"

// Processor implements the PromptTemplater interface
type Processor struct {
	tmpl *template.Template
}

// NewProcessor parses a prompt template. The source is either template text or
// "@path" naming a template file. An empty source renders prompts unchanged.
func NewProcessor(fsys afero.Fs, source string) (*Processor, error) {
	if strings.TrimSpace(source) == "" {
		return &Processor{}, nil
	}

	name := "prompt_template"
	text := source
	if strings.HasPrefix(source, filePrefix) {
		path := strings.TrimSpace(strings.TrimPrefix(source, filePrefix))
		content, err := afero.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("failed to read template file %s: %w", path, err)
		}
		name = path
		text = string(content)
	}

	tmpl := template.New(name).Option("missingkey=error")
	registerHelpersToTemplate(tmpl)

	tmpl, err := tmpl.Parse(text)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}

	return &Processor{tmpl: tmpl}, nil
}

// Render executes the template with data. Without a template it returns the prompt as is.
func (p *Processor) Render(data interfaces.TemplateData) (string, error) {
	if p.tmpl == nil {
		return data.Prompt, nil
	}

	var buf strings.Builder
	if err := p.tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}

	result := strings.TrimSpace(buf.String())
	if result == "" {
		return "", fmt.Errorf("template rendered an empty prompt")
	}
	return result, nil
}

// registerHelpersToTemplate registers both sprig and custom helper functions to a template
func registerHelpersToTemplate(tmpl *template.Template) {
	funcMap := sprig.TxtFuncMap()

	customFuncs := template.FuncMap{
		"truncate": truncateFunc,
		"oneline":  onelineFunc,
	}
	for name, fn := range customFuncs {
		funcMap[name] = fn
	}

	tmpl.Funcs(funcMap)
}

// truncateFunc shortens text to at most length runes, marking the cut with "..."
func truncateFunc(length int, text string) string {
	runes := []rune(text)
	if len(runes) <= length {
		return text
	}
	if length <= 3 {
		return string(runes[:length])
	}
	return string(runes[:length-3]) + "..."
}

// onelineFunc collapses all whitespace runs, including newlines, into single spaces
func onelineFunc(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
