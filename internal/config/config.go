package config

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"imgpt-cli/internal/imgerr"
)

// Built-in defaults
const (
	DefaultModel   = "gpt-image-1"
	DefaultQuality = "high"
	DefaultFormat  = "png"
	DefaultDelay   = 2.0

	// APIKeyEnv is the environment variable consulted when no key is configured
	APIKeyEnv = "OPENAI_API_KEY"
)

// Persisted document keys
const (
	KeyAPIKey         = "openai_api_key"
	KeyModel          = "default_model"
	KeySize           = "default_size"
	KeyQuality        = "default_quality"
	KeyStyle          = "default_style"
	KeyFormat         = "default_format"
	KeyPromptsDir     = "default_prompts_dir"
	KeyOutputDir      = "default_output_dir"
	KeyDelay          = "default_delay"
	KeySkipExisting   = "skip_existing"
	KeyPromptTemplate = "prompt_template"
	KeyLogFile        = "log_file"
)

// Keys lists every persisted key in display order.
var Keys = []string{
	KeyAPIKey,
	KeyModel,
	KeySize,
	KeyQuality,
	KeyStyle,
	KeyFormat,
	KeyPromptsDir,
	KeyOutputDir,
	KeyDelay,
	KeySkipExisting,
	KeyPromptTemplate,
	KeyLogFile,
}

// Formats accepted for default_format and --format
var Formats = []string{"png", "jpeg", "webp"}

var sizePattern = regexp.MustCompile(`^(\d+)x(\d+)$`)

// Config represents the persisted user defaults
type Config struct {
	OpenAIAPIKey      string  `toml:"openai_api_key,omitempty" mapstructure:"openai_api_key"`
	DefaultModel      string  `toml:"default_model" mapstructure:"default_model"`
	DefaultSize       string  `toml:"default_size,omitempty" mapstructure:"default_size"`
	DefaultQuality    string  `toml:"default_quality" mapstructure:"default_quality"`
	DefaultStyle      string  `toml:"default_style,omitempty" mapstructure:"default_style"`
	DefaultFormat     string  `toml:"default_format" mapstructure:"default_format"`
	DefaultPromptsDir string  `toml:"default_prompts_dir,omitempty" mapstructure:"default_prompts_dir"`
	DefaultOutputDir  string  `toml:"default_output_dir,omitempty" mapstructure:"default_output_dir"`
	DefaultDelay      float64 `toml:"default_delay" mapstructure:"default_delay"`
	SkipExisting      bool    `toml:"skip_existing" mapstructure:"skip_existing"`
	PromptTemplate    string  `toml:"prompt_template,omitempty" mapstructure:"prompt_template"`
	LogFile           string  `toml:"log_file,omitempty" mapstructure:"log_file"`
}

// Defaults returns a Config holding only built-in defaults.
func Defaults() *Config {
	return &Config{
		DefaultModel:   DefaultModel,
		DefaultQuality: DefaultQuality,
		DefaultFormat:  DefaultFormat,
		DefaultDelay:   DefaultDelay,
	}
}

// New builds a Config from defaults plus the given size, rejecting malformed sizes.
func New(size string) (*Config, error) {
	cfg := Defaults()
	cfg.DefaultSize = size
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field invariant of the document.
func (c *Config) Validate() error {
	if c == nil {
		return imgerr.NewInvalidConfigValueError("config", nil, "config cannot be nil")
	}
	if c.DefaultSize != "" {
		if err := ValidateSize(c.DefaultSize); err != nil {
			return imgerr.NewInvalidConfigValueError(KeySize, c.DefaultSize, err.Error())
		}
	}
	if strings.TrimSpace(c.DefaultModel) == "" {
		return imgerr.NewInvalidConfigValueError(KeyModel, c.DefaultModel, "must not be empty")
	}
	if strings.TrimSpace(c.DefaultQuality) == "" {
		return imgerr.NewInvalidConfigValueError(KeyQuality, c.DefaultQuality, "must not be empty")
	}
	if err := ValidateFormat(c.DefaultFormat); err != nil {
		return imgerr.NewInvalidConfigValueError(KeyFormat, c.DefaultFormat, err.Error())
	}
	if err := ValidateDelay(c.DefaultDelay); err != nil {
		return imgerr.NewInvalidConfigValueError(KeyDelay, c.DefaultDelay, err.Error())
	}
	return nil
}

// MaxDelay is the first delay, in seconds, that no longer fits a time.Duration
var MaxDelay = float64(math.MaxInt64) / float64(time.Second)

// ValidateDelay checks that a delay in seconds is a finite, non-negative
// value representable as a time.Duration.
func ValidateDelay(seconds float64) error {
	switch {
	case math.IsNaN(seconds):
		return errors.New("must be a number")
	case seconds < 0:
		return errors.New("must not be negative")
	case seconds >= MaxDelay:
		return fmt.Errorf("must be less than %.0f seconds", MaxDelay)
	}
	return nil
}

// ValidateSize checks that size is <width>x<height> with both parts strictly positive.
func ValidateSize(size string) error {
	m := sizePattern.FindStringSubmatch(size)
	if m == nil {
		return fmt.Errorf("size must be in the form <width>x<height>")
	}
	for _, part := range m[1:] {
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("size component %q is out of range", part)
		}
		if n <= 0 {
			return fmt.Errorf("size components must be positive")
		}
	}
	return nil
}

// ValidateFormat checks that format is one of the supported image formats.
func ValidateFormat(format string) error {
	for _, f := range Formats {
		if format == f {
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(Formats, ", "))
}

// Get returns the display value of key.
func (c *Config) Get(key string) (string, bool) {
	switch key {
	case KeyAPIKey:
		return c.OpenAIAPIKey, true
	case KeyModel:
		return c.DefaultModel, true
	case KeySize:
		return c.DefaultSize, true
	case KeyQuality:
		return c.DefaultQuality, true
	case KeyStyle:
		return c.DefaultStyle, true
	case KeyFormat:
		return c.DefaultFormat, true
	case KeyPromptsDir:
		return c.DefaultPromptsDir, true
	case KeyOutputDir:
		return c.DefaultOutputDir, true
	case KeyDelay:
		return strconv.FormatFloat(c.DefaultDelay, 'f', -1, 64), true
	case KeySkipExisting:
		return strconv.FormatBool(c.SkipExisting), true
	case KeyPromptTemplate:
		return c.PromptTemplate, true
	case KeyLogFile:
		return c.LogFile, true
	}
	return "", false
}

// IsKey reports whether key names a persisted setting.
func IsKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

// SuggestKey returns the closest known key to an unknown one, or "".
func SuggestKey(key string) string {
	matches := fuzzy.Find(strings.ToLower(key), Keys)
	if len(matches) == 0 {
		return ""
	}
	return matches[0].Str
}

// MaskSecret hides all but the last four characters of a credential.
func MaskSecret(secret string) string {
	if secret == "" {
		return ""
	}
	if len(secret) <= 4 {
		return strings.Repeat("*", len(secret))
	}
	return strings.Repeat("*", 8) + secret[len(secret)-4:]
}
