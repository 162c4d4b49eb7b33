package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"imgpt-cli/internal/imgerr"
)

// Store persists Config as a TOML document
type Store struct {
	fs     afero.Fs
	path   string
	logger *zap.Logger
}

// NewStore creates a store for the document at path. The parent directory is
// created if it does not exist yet.
func NewStore(fsys afero.Fs, path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	path = expandPath(path)
	if err := fsys.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		logger.Warn("could not create config directory", zap.String("dir", filepath.Dir(path)), zap.Error(err))
	}
	return &Store{fs: fsys, path: path, logger: logger}
}

// DefaultPath returns the platform-conventional location of the config document.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user config directory: %w", err)
	}
	return filepath.Join(dir, "imgpt", "config.toml"), nil
}

// Path returns the location of the persisted document.
func (s *Store) Path() string {
	return s.path
}

// Load reads the persisted document. A missing, unreadable or invalid document
// yields the built-in defaults.
func (s *Store) Load() *Config {
	cfg, err := s.read()
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			s.logger.Warn("ignoring unreadable config, using defaults", zap.String("path", s.path), zap.Error(err))
		}
		return Defaults()
	}
	return cfg
}

// Save validates cfg and replaces the persisted document atomically.
func (s *Store) Save(cfg *Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory %s: %w", dir, err)
	}

	tmp, err := afero.TempFile(s.fs, dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("failed to create temporary config file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to sync config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to close config: %w", err)
	}
	// The document may hold an API key
	if err := s.fs.Chmod(tmpName, 0o600); err != nil {
		s.logger.Debug("could not restrict config permissions", zap.Error(err))
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to replace config %s: %w", s.path, err)
	}

	s.logger.Debug("saved config", zap.String("path", s.path))
	return nil
}

// Update overlays values onto the current document and saves the result.
// Keys not present in values keep their previous value, even when the stored
// document is invalid, so a bad key can be repaired in place. A document that
// is not parseable TOML is left untouched.
func (s *Store) Update(values map[string]any) (*Config, error) {
	v, err := s.readViper()
	if errors.Is(err, fs.ErrNotExist) {
		v = newViper()
	} else if err != nil {
		return nil, fmt.Errorf("%w; fix the file or run 'imgpt config reset'", err)
	}

	for key, value := range values {
		key = strings.ToLower(strings.TrimSpace(key))
		coerced, err := coerce(key, value)
		if err != nil {
			return nil, err
		}
		v.Set(key, coerced)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if err := s.Save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Reset replaces the persisted document with the built-in defaults.
func (s *Store) Reset() (*Config, error) {
	cfg := Defaults()
	if err := s.Save(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Store) read() (*Config, error) {
	v, err := s.readViper()
	if err != nil {
		return nil, err
	}
	return decode(v)
}

// readViper loads the raw document without validating it
func (s *Store) readViper() (*viper.Viper, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		return nil, err
	}

	v := newViper()
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", s.path, err)
	}
	return v, nil
}

// newViper returns a viper instance with the built-in defaults registered
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("toml")
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyAPIKey, "")
	v.SetDefault(KeyModel, DefaultModel)
	v.SetDefault(KeySize, "")
	v.SetDefault(KeyQuality, DefaultQuality)
	v.SetDefault(KeyStyle, "")
	v.SetDefault(KeyFormat, DefaultFormat)
	v.SetDefault(KeyPromptsDir, "")
	v.SetDefault(KeyOutputDir, "")
	v.SetDefault(KeyDelay, DefaultDelay)
	v.SetDefault(KeySkipExisting, false)
	v.SetDefault(KeyPromptTemplate, "")
	v.SetDefault(KeyLogFile, "")
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.WeaklyTypedInput = true
	})
	if err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// coerce converts a raw value, typically a command-line string, to the type of key.
func coerce(key string, value any) (any, error) {
	if !IsKey(key) {
		reason := "unknown key"
		if suggestion := SuggestKey(key); suggestion != "" {
			reason = fmt.Sprintf("unknown key, did you mean %s?", suggestion)
		}
		return nil, imgerr.NewInvalidConfigValueError(key, value, reason)
	}

	switch key {
	case KeyDelay:
		f, err := cast.ToFloat64E(value)
		if err != nil {
			return nil, imgerr.NewInvalidConfigValueError(key, value, "not a number")
		}
		return f, nil
	case KeySkipExisting:
		b, err := cast.ToBoolE(value)
		if err != nil {
			return nil, imgerr.NewInvalidConfigValueError(key, value, "not a boolean")
		}
		return b, nil
	default:
		str, err := cast.ToStringE(value)
		if err != nil {
			return nil, imgerr.NewInvalidConfigValueError(key, value, "not a string")
		}
		str = strings.TrimSpace(str)
		if key == KeyPromptsDir || key == KeyOutputDir || key == KeyLogFile {
			str = expandPath(str)
		}
		return str, nil
	}
}

// expandPath expands ~ to user home directory
func expandPath(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	return filepath.Join(homeDir, path[2:])
}
