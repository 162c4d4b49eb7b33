package prompt

import (
	"errors"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"imgpt-cli/internal/imgerr"
)

// Discover lists the prompt files directly inside dir, sorted by file name.
func (s *Source) Discover(dir string) ([]string, error) {
	info, err := s.fs.Stat(dir)
	if err != nil {
		return nil, imgerr.NewDirectoryNotFoundError(dir, err)
	}
	if !info.IsDir() {
		return nil, imgerr.NewDirectoryNotFoundError(dir, errors.New("not a directory"))
	}

	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, imgerr.NewDirectoryNotFoundError(dir, err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if IsPromptFile(entry.Name()) {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	return files, nil
}

// IsPromptFile reports whether name has an allow-listed extension, ignoring
// case, after a non-empty stem. A bare ".txt" has no extension.
func IsPromptFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	if len(name) == len(ext) {
		return false
	}
	for _, allowed := range Extensions {
		if ext == allowed {
			return true
		}
	}
	return false
}

// OutputPath maps a prompt file to <outputDir>/<stem>.<format>. An empty
// format means png.
func OutputPath(promptFile, outputDir, format string) string {
	if format == "" {
		format = "png"
	}
	base := filepath.Base(promptFile)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(outputDir, stem+"."+format)
}
