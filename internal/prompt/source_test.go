package prompt

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"imgpt-cli/internal/imgerr"
)

func writeFiles(t *testing.T, fsys afero.Fs, files map[string]string) {
	t.Helper()
	for path, content := range files {
		if err := afero.WriteFile(fsys, path, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestSource_Read(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/p/simple.prompt": "A simple test prompt",
		"/p/padded.txt":    "\n\n  a lighthouse at dusk  \n\n",
		"/p/bom.txt":       "\xEF\xBB\xBFa fox in snow",
		"/p/desc.md": `# Test Markdown

**Description:**
A markdown test prompt with description section.

**Style:** Test
        `,
		"/p/plain.md":   "  # Title\n\nno description marker here\n",
		"/p/UPPER.PROMPT": "shouting prompt",
	})

	source := NewSource(fsys)

	tests := []struct {
		path string
		want string
	}{
		{path: "/p/simple.prompt", want: "A simple test prompt"},
		{path: "/p/padded.txt", want: "a lighthouse at dusk"},
		{path: "/p/bom.txt", want: "a fox in snow"},
		{path: "/p/desc.md", want: "A markdown test prompt with description section."},
		{path: "/p/plain.md", want: "# Title\n\nno description marker here"},
		{path: "/p/UPPER.PROMPT", want: "shouting prompt"},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			got, err := source.Read(tt.path)
			if err != nil {
				t.Fatalf("Read() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("Read() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSource_Read_Errors(t *testing.T) {
	fsys := afero.NewMemMapFs()
	writeFiles(t, fsys, map[string]string{
		"/p/empty.txt":  "   \n\t",
		"/p/binary.txt": "\xff\xfe\xfd",
		"/p/bare.md":    "**Description:**\n\n**Style:** none",
	})
	source := NewSource(fsys)

	tests := []struct {
		path    string
		wantMsg string
	}{
		{path: "/p/missing.txt", wantMsg: "missing.txt"},
		{path: "/p/empty.txt", wantMsg: "prompt is empty"},
		{path: "/p/binary.txt", wantMsg: "UTF-8"},
		{path: "/p/bare.md", wantMsg: "prompt is empty"},
	}

	for _, tt := range tests {
		t.Run(filepath.Base(tt.path), func(t *testing.T) {
			_, err := source.Read(tt.path)
			if !errors.Is(err, imgerr.ErrPromptRead) {
				t.Fatalf("Read() error = %v, want ErrPromptRead", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestExtractMarkdown(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "emphasis marker between sections",
			doc:  "# Cat\n\n**Description:**\nA cat on a windowsill.\nMorning light.\n\n**Style:** watercolor\n",
			want: "A cat on a windowsill.\nMorning light.",
		},
		{
			name: "heading marker",
			doc:  "# Poster\n\n## Description\n\nNeon city skyline\n\n## Notes\nignore me\n",
			want: "Neon city skyline",
		},
		{
			name: "case insensitive marker",
			doc:  "**DESCRIPTION:**\nloud prompt\n",
			want: "loud prompt",
		},
		{
			name: "inline text after marker",
			doc:  "**Description:** a red balloon\nover the sea\n**Mood:** calm",
			want: "a red balloon\nover the sea",
		},
		{
			name: "colon outside emphasis",
			doc:  "**Description**:\nquiet forest\n",
			want: "quiet forest",
		},
		{
			name: "plain description line",
			doc:  "Description:\nmountain lake\n# Next",
			want: "mountain lake",
		},
		{
			name: "bold text inside the section is kept",
			doc:  "**Description:**\na **very** old tree\n",
			want: "a **very** old tree",
		},
		{
			name: "runs to end of file",
			doc:  "**Description:**\nfirst\n\nsecond\n",
			want: "first\nsecond",
		},
		{
			name: "windows line endings",
			doc:  "**Description:**\r\ndesert road\r\n**Style:** x\r\n",
			want: "desert road",
		},
		{
			name: "no marker falls back to whole content",
			doc:  "\n  just some text\n\n",
			want: "just some text",
		},
		{
			name: "frontmatter prompt key",
			doc:  "---\ntitle: Harbor\nprompt: boats in a harbor at night\n---\n\nbody text\n",
			want: "boats in a harbor at night",
		},
		{
			name: "frontmatter description key",
			doc:  "---\ndescription: a snowy owl\n---\nbody\n",
			want: "a snowy owl",
		},
		{
			name: "frontmatter without prompt uses body",
			doc:  "---\ntitle: Body\n---\n\nthe body is the prompt\n",
			want: "the body is the prompt",
		},
		{
			name: "description marker wins over frontmatter",
			doc:  "---\nprompt: from frontmatter\n---\n**Description:**\nfrom section\n",
			want: "from section",
		},
		{
			name: "horizontal rule ends the section",
			doc:  "**Description:**\nA cat\n\n---\n\nNotes",
			want: "A cat",
		},
		{
			name: "starred rule ends the section",
			doc:  "## Description\nA dog\n* * *\nfooter",
			want: "A dog",
		},
		{
			name: "empty frontmatter block",
			doc:  "---\n---\nbody only\n",
			want: "body only",
		},
		{
			name: "broken frontmatter falls back to whole content",
			doc:  "---\nprompt: [unclosed\n---\nbody\n",
			want: "---\nprompt: [unclosed\n---\nbody",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractMarkdown(tt.doc); got != tt.want {
				t.Errorf("ExtractMarkdown() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSectionMarker(t *testing.T) {
	tests := []struct {
		line      string
		wantLabel string
		wantRest  string
		wantOK    bool
	}{
		{line: "**Description:**", wantLabel: "Description", wantOK: true},
		{line: "  **Style:** oil paint", wantLabel: "Style", wantRest: "oil paint", wantOK: true},
		{line: "__Mood:__", wantLabel: "Mood", wantOK: true},
		{line: "*Notes:*", wantLabel: "Notes", wantOK: true},
		{line: "### Description:", wantLabel: "Description", wantOK: true},
		{line: "**bold** words", wantOK: false},
		{line: "#hashtag", wantOK: false},
		{line: "plain text", wantOK: false},
		{line: "", wantOK: false},
		{line: "---", wantOK: true},
		{line: "___", wantOK: true},
		{line: "- - -", wantOK: true},
		{line: "--", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			label, rest, ok := sectionMarker(tt.line)
			if ok != tt.wantOK || label != tt.wantLabel || rest != tt.wantRest {
				t.Errorf("sectionMarker(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.line, label, rest, ok, tt.wantLabel, tt.wantRest, tt.wantOK)
			}
		})
	}
}
