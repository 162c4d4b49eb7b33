package config

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"imgpt-cli/internal/imgerr"
)

func envWith(values map[string]string) LookupEnv {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func floatPtr(f float64) *float64 { return &f }
func boolPtr(b bool) *bool        { return &b }

func TestResolve_Defaults(t *testing.T) {
	settings, err := Resolve(Overrides{}, Defaults(), envWith(map[string]string{APIKeyEnv: "env-key"}))
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	want := &Settings{
		APIKey:  "env-key",
		Model:   DefaultModel,
		Quality: DefaultQuality,
		Format:  DefaultFormat,
		Delay:   2 * time.Second,
	}
	if diff := cmp.Diff(want, settings); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_NilConfigUsesDefaults(t *testing.T) {
	settings, err := Resolve(Overrides{APIKey: "k"}, nil, nil)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if settings.Model != DefaultModel || settings.Format != DefaultFormat {
		t.Errorf("expected built-in defaults, got model=%q format=%q", settings.Model, settings.Format)
	}
}

func TestResolve_Precedence(t *testing.T) {
	cfg := Defaults()
	cfg.DefaultModel = "dall-e-3"
	cfg.DefaultSize = "1024x1024"
	cfg.DefaultQuality = "hd"
	cfg.DefaultStyle = "vivid"
	cfg.DefaultOutputDir = "/from/config"
	cfg.DefaultDelay = 4
	cfg.SkipExisting = true

	settings, err := Resolve(Overrides{
		APIKey:       "flag-key",
		Size:         "1792x1024",
		Style:        "natural",
		Format:       "WEBP",
		Delay:        floatPtr(0),
		SkipExisting: boolPtr(false),
	}, cfg, envWith(map[string]string{APIKeyEnv: "env-key"}))
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}

	want := &Settings{
		APIKey:    "flag-key",
		Model:     "dall-e-3",
		Size:      "1792x1024",
		Quality:   "hd",
		Style:     "natural",
		Format:    "webp",
		OutputDir: "/from/config",
		Delay:     0,
	}
	if diff := cmp.Diff(want, settings); diff != "" {
		t.Errorf("Resolve() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve_EmptyOverridesIgnored(t *testing.T) {
	cfg := Defaults()
	cfg.DefaultModel = "dall-e-2"

	settings, err := Resolve(Overrides{APIKey: "k", Model: "  ", Quality: ""}, cfg, nil)
	if err != nil {
		t.Fatalf("Resolve() failed: %v", err)
	}
	if settings.Model != "dall-e-2" {
		t.Errorf("Model = %q, want config value dall-e-2", settings.Model)
	}
}

func TestResolve_Errors(t *testing.T) {
	tests := []struct {
		name     string
		o        Overrides
		wantKind error
		wantMsg  string
	}{
		{
			name:     "model size conflict",
			o:        Overrides{APIKey: "k", Model: "dall-e-2", Size: "2048x2048"},
			wantKind: imgerr.ErrModelSizeConflict,
			wantMsg:  "size 2048x2048 is invalid for model dall-e-2",
		},
		{
			name:     "malformed size override",
			o:        Overrides{APIKey: "k", Size: "big"},
			wantKind: imgerr.ErrInvalidConfigValue,
			wantMsg:  "size",
		},
		{
			name:     "unsupported format",
			o:        Overrides{APIKey: "k", Format: "gif"},
			wantKind: imgerr.ErrInvalidConfigValue,
			wantMsg:  "format",
		},
		{
			name:     "negative delay",
			o:        Overrides{APIKey: "k", Delay: floatPtr(-2)},
			wantKind: imgerr.ErrInvalidConfigValue,
			wantMsg:  "must not be negative",
		},
		{
			name:     "delay overflowing a duration",
			o:        Overrides{APIKey: "k", Delay: floatPtr(1e10)},
			wantKind: imgerr.ErrInvalidConfigValue,
			wantMsg:  "must be less than",
		},
		{
			name:     "NaN delay",
			o:        Overrides{APIKey: "k", Delay: floatPtr(math.NaN())},
			wantKind: imgerr.ErrInvalidConfigValue,
			wantMsg:  "must be a number",
		},
		{
			name:     "missing credential",
			o:        Overrides{},
			wantKind: imgerr.ErrMissingCredential,
			wantMsg:  APIKeyEnv,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Resolve(tt.o, Defaults(), envWith(nil))
			if !errors.Is(err, tt.wantKind) {
				t.Fatalf("Resolve() error = %v, want kind %v", err, tt.wantKind)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestResolve_ConflictFromConfig(t *testing.T) {
	cfg := Defaults()
	cfg.DefaultSize = "1792x1024"

	// Overriding only the model turns the configured size into a conflict
	_, err := Resolve(Overrides{APIKey: "k", Model: "dall-e-2"}, cfg, nil)
	if !errors.Is(err, imgerr.ErrModelSizeConflict) {
		t.Fatalf("Resolve() error = %v, want ErrModelSizeConflict", err)
	}
}

func TestResolveWithoutCredential(t *testing.T) {
	settings, err := ResolveWithoutCredential(Overrides{PromptsDir: "/prompts", Model: "dall-e-2", Size: "2048x2048"}, Defaults())
	if err != nil {
		t.Fatalf("ResolveWithoutCredential() failed: %v", err)
	}
	if settings.APIKey != "" {
		t.Errorf("APIKey = %q, want empty", settings.APIKey)
	}
	if settings.PromptsDir != "/prompts" {
		t.Errorf("PromptsDir = %q, want /prompts", settings.PromptsDir)
	}
}

func TestResolveAPIKey(t *testing.T) {
	withKey := Defaults()
	withKey.OpenAIAPIKey = "config-key"

	tests := []struct {
		name     string
		override string
		cfg      *Config
		env      map[string]string
		want     string
		wantErr  bool
	}{
		{name: "override wins", override: "flag-key", cfg: withKey, env: map[string]string{APIKeyEnv: "env-key"}, want: "flag-key"},
		{name: "config before env", cfg: withKey, env: map[string]string{APIKeyEnv: "env-key"}, want: "config-key"},
		{name: "env only", cfg: Defaults(), env: map[string]string{APIKeyEnv: "env-key"}, want: "env-key"},
		{name: "blank env ignored", cfg: Defaults(), env: map[string]string{APIKeyEnv: "  "}, wantErr: true},
		{name: "neither", cfg: Defaults(), env: map[string]string{}, wantErr: true},
		{name: "nil config", cfg: nil, env: map[string]string{APIKeyEnv: "env-key"}, want: "env-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveAPIKey(tt.override, tt.cfg, envWith(tt.env))
			if tt.wantErr {
				if !errors.Is(err, imgerr.ErrMissingCredential) {
					t.Fatalf("ResolveAPIKey() error = %v, want ErrMissingCredential", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveAPIKey() unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ResolveAPIKey() = %q, want %q", got, tt.want)
			}
		})
	}
}
