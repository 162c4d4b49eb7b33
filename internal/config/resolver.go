package config

import (
	"fmt"
	"strings"
	"time"

	"dario.cat/mergo"
	"imgpt-cli/internal/imgerr"
)

// LookupEnv matches os.LookupEnv
type LookupEnv func(key string) (string, bool)

// Overrides holds values given explicitly on the command line. Empty strings
// and nil pointers mean "not provided".
type Overrides struct {
	APIKey         string
	Model          string
	Size           string
	Quality        string
	Style          string
	Format         string
	OutputDir      string
	PromptsDir     string
	PromptTemplate string
	Delay          *float64
	SkipExisting   *bool
}

// Settings is the fully resolved set of generation parameters for one invocation
type Settings struct {
	APIKey         string
	Model          string
	Size           string
	Quality        string
	Style          string
	Format         string
	OutputDir      string
	PromptsDir     string
	PromptTemplate string
	Delay          time.Duration
	SkipExisting   bool
}

// Resolve merges overrides, the persisted config, the environment and built-in
// defaults, in that order of priority. The resulting model/size pair must be
// supported, and the API key must resolve from one of them.
func Resolve(o Overrides, cfg *Config, lookupEnv LookupEnv) (*Settings, error) {
	s, err := ResolveWithoutCredential(o, cfg)
	if err != nil {
		return nil, err
	}

	if err := CheckModelSize(s.Model, s.Size); err != nil {
		return nil, err
	}

	if s.APIKey, err = ResolveAPIKey(o.APIKey, cfg, lookupEnv); err != nil {
		return nil, err
	}
	return s, nil
}

// ResolveWithoutCredential resolves every field except the API key and skips the
// model/size check. Used by commands that never call the image API.
func ResolveWithoutCredential(o Overrides, cfg *Config) (*Settings, error) {
	if cfg == nil {
		cfg = Defaults()
	}

	s := Settings{
		Model:          firstNonEmpty(cfg.DefaultModel, DefaultModel),
		Size:           cfg.DefaultSize,
		Quality:        firstNonEmpty(cfg.DefaultQuality, DefaultQuality),
		Style:          cfg.DefaultStyle,
		Format:         firstNonEmpty(cfg.DefaultFormat, DefaultFormat),
		OutputDir:      cfg.DefaultOutputDir,
		PromptsDir:     cfg.DefaultPromptsDir,
		PromptTemplate: cfg.PromptTemplate,
		Delay:          seconds(cfg.DefaultDelay),
		SkipExisting:   cfg.SkipExisting,
	}

	overlay := Settings{
		Model:          strings.TrimSpace(o.Model),
		Size:           strings.TrimSpace(o.Size),
		Quality:        strings.TrimSpace(o.Quality),
		Style:          strings.TrimSpace(o.Style),
		Format:         strings.ToLower(strings.TrimSpace(o.Format)),
		OutputDir:      expandPath(strings.TrimSpace(o.OutputDir)),
		PromptsDir:     expandPath(strings.TrimSpace(o.PromptsDir)),
		PromptTemplate: o.PromptTemplate,
	}
	// Only non-empty overlay fields replace resolved values
	if err := mergo.Merge(&s, overlay, mergo.WithOverride); err != nil {
		return nil, fmt.Errorf("failed to apply overrides: %w", err)
	}

	if o.Delay != nil {
		if err := ValidateDelay(*o.Delay); err != nil {
			return nil, imgerr.NewInvalidConfigValueError("delay", *o.Delay, err.Error())
		}
		s.Delay = seconds(*o.Delay)
	}
	if o.SkipExisting != nil {
		s.SkipExisting = *o.SkipExisting
	}

	if s.Size != "" {
		if err := ValidateSize(s.Size); err != nil {
			return nil, imgerr.NewInvalidConfigValueError("size", s.Size, err.Error())
		}
	}
	if err := ValidateFormat(s.Format); err != nil {
		return nil, imgerr.NewInvalidConfigValueError("format", s.Format, err.Error())
	}

	return &s, nil
}

// ResolveAPIKey returns the credential from the override, the config or the
// environment, in that order.
func ResolveAPIKey(override string, cfg *Config, lookupEnv LookupEnv) (string, error) {
	if key := strings.TrimSpace(override); key != "" {
		return key, nil
	}
	if cfg != nil {
		if key := strings.TrimSpace(cfg.OpenAIAPIKey); key != "" {
			return key, nil
		}
	}
	if lookupEnv != nil {
		if key, ok := lookupEnv(APIKeyEnv); ok && strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), nil
		}
	}
	return "", imgerr.NewMissingCredentialError(APIKeyEnv)
}

func seconds(f float64) time.Duration {
	return time.Duration(f * float64(time.Second))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
