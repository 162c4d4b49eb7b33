// Package prompt reads prompt files, discovers them in a directory and maps
// them to output image paths.
package prompt

import (
	"bytes"
	"errors"
	"path/filepath"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
	"imgpt-cli/internal/imgerr"
)

// Recognized prompt file extensions
const (
	ExtPrompt   = ".prompt"
	ExtText     = ".txt"
	ExtMarkdown = ".md"
)

// Extensions is the discovery allow-list
var Extensions = []string{ExtPrompt, ExtText, ExtMarkdown}

var (
	// **Label:** rest, **Label**: rest, *Label:*, __Label:__ ...
	emphasisMarker = regexp.MustCompile(`^(\*{1,2}|_{1,2})([^*_]+?)(:?)(\*{1,2}|_{1,2})(:?)\s*(.*)$`)
	headingMarker  = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*#*$`)
	thematicBreak  = regexp.MustCompile(`^(?:(?:-\s*){3,}|(?:\*\s*){3,}|(?:_\s*){3,})$`)
	utf8BOM        = []byte{0xEF, 0xBB, 0xBF}
)

// Source reads and discovers prompt files on a filesystem
type Source struct {
	fs afero.Fs
}

// NewSource creates a prompt source backed by fsys
func NewSource(fsys afero.Fs) *Source {
	return &Source{fs: fsys}
}

// Read returns the prompt text held by the file at path.
func (s *Source) Read(path string) (string, error) {
	data, err := afero.ReadFile(s.fs, path)
	if err != nil {
		return "", imgerr.NewPromptReadError(path, err)
	}
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return "", imgerr.NewPromptReadError(path, errors.New("file is not valid UTF-8 text"))
	}

	var text string
	if strings.EqualFold(filepath.Ext(path), ExtMarkdown) {
		text = ExtractMarkdown(string(data))
	} else {
		text = strings.TrimSpace(string(data))
	}

	if text == "" {
		return "", imgerr.NewPromptReadError(path, errors.New("prompt is empty"))
	}
	return text, nil
}

// ExtractMarkdown returns the Description section of a markdown prompt. Without
// one it falls back to frontmatter prompt/description keys, then to the whole
// document.
func ExtractMarkdown(doc string) string {
	doc = strings.ReplaceAll(doc, "\r\n", "\n")
	lines := strings.Split(doc, "\n")

	for i, line := range lines {
		label, rest, ok := sectionMarker(line)
		if !ok || !strings.EqualFold(label, "description") {
			continue
		}

		var parts []string
		if rest != "" {
			parts = append(parts, rest)
		}
		for _, next := range lines[i+1:] {
			if _, _, isMarker := sectionMarker(next); isMarker {
				break
			}
			if trimmed := strings.TrimSpace(next); trimmed != "" {
				parts = append(parts, trimmed)
			}
		}
		return strings.TrimSpace(strings.Join(parts, "\n"))
	}

	if text, ok := fromFrontmatter(doc); ok {
		return text
	}
	return strings.TrimSpace(doc)
}

// sectionMarker reports whether line starts a markdown section, returning the
// section label and any text that follows the label on the same line.
func sectionMarker(line string) (label, rest string, ok bool) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", "", false
	}
	// A horizontal rule closes the current section without opening a labelled one
	if thematicBreak.MatchString(line) {
		return "", "", true
	}

	if m := headingMarker.FindStringSubmatch(line); m != nil {
		return strings.TrimSpace(strings.TrimSuffix(m[1], ":")), "", true
	}

	if m := emphasisMarker.FindStringSubmatch(line); m != nil {
		// Emphasis only marks a section when the label carries a colon
		if m[3] == "" && m[5] == "" {
			return "", "", false
		}
		return strings.TrimSpace(m[2]), strings.TrimSpace(m[6]), true
	}

	if strings.EqualFold(line, "description:") {
		return "Description", "", true
	}
	return "", "", false
}

type frontmatter struct {
	Prompt      string `yaml:"prompt"`
	Description string `yaml:"description"`
}

// fromFrontmatter extracts the prompt from a leading YAML frontmatter block.
// ok is false when the document has no parseable frontmatter.
func fromFrontmatter(doc string) (string, bool) {
	if !strings.HasPrefix(doc, "---\n") {
		return "", false
	}
	// Keep the leading newline so an empty block closes on the very next line
	rest := doc[len("---"):]

	end := strings.Index(rest, "\n---")
	if end < 0 {
		return "", false
	}
	header := rest[:end]
	body := rest[end+len("\n---"):]
	// The closing delimiter must be a line of its own
	if nl := strings.IndexByte(body, '\n'); nl >= 0 {
		if strings.TrimSpace(body[:nl]) != "" {
			return "", false
		}
		body = body[nl+1:]
	} else if strings.TrimSpace(body) != "" {
		return "", false
	}

	var fm frontmatter
	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return "", false
	}

	switch {
	case strings.TrimSpace(fm.Prompt) != "":
		return strings.TrimSpace(fm.Prompt), true
	case strings.TrimSpace(fm.Description) != "":
		return strings.TrimSpace(fm.Description), true
	default:
		return strings.TrimSpace(body), true
	}
}
