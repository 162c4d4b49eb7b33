package config

import "imgpt-cli/internal/imgerr"

// ModelCapabilities describes which request parameters an image model accepts
type ModelCapabilities struct {
	Sizes          []string
	Qualities      []string
	SupportsStyle  bool
	SupportsFormat bool
	// ReturnsBase64 is true when the API always answers with b64_json and
	// rejects response_format.
	ReturnsBase64 bool
}

var modelCapabilities = map[string]ModelCapabilities{
	"dall-e-2": {
		Sizes:     []string{"256x256", "512x512", "1024x1024"},
		Qualities: []string{"standard"},
	},
	"dall-e-3": {
		Sizes:         []string{"1024x1024", "1792x1024", "1024x1792"},
		Qualities:     []string{"standard", "hd"},
		SupportsStyle: true,
	},
	"gpt-image-1": {
		Sizes:          []string{"1024x1024", "1536x1024", "1024x1536"},
		Qualities:      []string{"low", "medium", "high", "auto"},
		SupportsFormat: true,
		ReturnsBase64:  true,
	},
}

// Capabilities returns what model accepts; ok is false for unknown models.
func Capabilities(model string) (ModelCapabilities, bool) {
	c, ok := modelCapabilities[model]
	return c, ok
}

// SupportsQuality reports whether quality may be sent for this model.
func (c ModelCapabilities) SupportsQuality(quality string) bool {
	for _, q := range c.Qualities {
		if q == quality {
			return true
		}
	}
	return false
}

// CheckModelSize rejects a size the model cannot produce. An empty size lets
// the API choose, and unknown models are not checked.
func CheckModelSize(model, size string) error {
	if size == "" {
		return nil
	}
	c, ok := Capabilities(model)
	if !ok {
		return nil
	}
	for _, s := range c.Sizes {
		if s == size {
			return nil
		}
	}
	return imgerr.NewModelSizeConflictError(model, size, c.Sizes)
}
