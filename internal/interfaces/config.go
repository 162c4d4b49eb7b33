package interfaces

import "imgpt-cli/internal/config"

// ConfigStore handles loading and persisting user defaults
type ConfigStore interface {
	// Load returns the persisted config, or built-in defaults when there is none
	Load() *config.Config

	// Save replaces the persisted config
	Save(cfg *config.Config) error

	// Update overlays the given keys onto the persisted config
	Update(values map[string]any) (*config.Config, error)

	// Reset restores the built-in defaults
	Reset() (*config.Config, error)

	// Path returns where the config is persisted
	Path() string
}
