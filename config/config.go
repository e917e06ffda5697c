// Package config loads editor defaults from YAML: annotation styling,
// export behavior, and named watermark presets.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/wudi/pdfedit/overlay"
)

// ErrConfigurationError is the sentinel wrapped by every ConfigError.
var ErrConfigurationError = errors.New("configuration error")

// ConfigError carries the offending field alongside the message.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in '%s': %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

func (e *ConfigError) Unwrap() error { return ErrConfigurationError }

// NewConfigError creates a field-scoped configuration error.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{Field: field, Message: message}
}

// AnnotationDefaults styles newly created annotations.
type AnnotationDefaults struct {
	// Color is any notation geom.ParseColor accepts.
	Color string `yaml:"color"`

	// Thickness applies to pen and shape strokes, in points.
	Thickness float64 `yaml:"thickness"`

	// HighlightOpacity applies to new highlights, in [0,1].
	HighlightOpacity float64 `yaml:"highlight-opacity"`

	// FontSize applies to new text annotations, in points.
	FontSize float64 `yaml:"font-size"`
}

// ExportDefaults pre-populates export options.
type ExportDefaults struct {
	// SkipAnnotations leaves tracked annotations out of the output.
	SkipAnnotations bool `yaml:"skip-annotations"`

	// SkipFormData leaves live form values out of the output.
	SkipFormData bool `yaml:"skip-form-data"`

	// FlattenForms paints field values and removes interactivity.
	FlattenForms bool `yaml:"flatten-forms"`
}

// WatermarkPreset is a named, ready-to-apply watermark configuration.
type WatermarkPreset struct {
	Text     string  `yaml:"text"`
	FontSize float64 `yaml:"font-size"`
	Color    string  `yaml:"color"`
	Opacity  float64 `yaml:"opacity"`
	Rotation float64 `yaml:"rotation"`
	Position string  `yaml:"position"`
}

// Watermark converts the preset into an overlay configuration applying
// to all pages.
func (p WatermarkPreset) Watermark() overlay.Watermark {
	return overlay.Watermark{
		Text:     p.Text,
		FontSize: p.FontSize,
		Color:    p.Color,
		Opacity:  p.Opacity,
		Rotation: p.Rotation,
		Position: overlay.Position(p.Position),
	}
}

// EditorConfig is the root configuration document.
type EditorConfig struct {
	Annotations AnnotationDefaults         `yaml:"annotations"`
	Export      ExportDefaults             `yaml:"export"`
	Watermarks  map[string]WatermarkPreset `yaml:"watermarks"`
}

// Default returns the configuration used when no file is provided.
func Default() EditorConfig {
	return EditorConfig{
		Annotations: AnnotationDefaults{
			Color:            "oklch(0.55 0.2 260)",
			Thickness:        2,
			HighlightOpacity: 0.4,
			FontSize:         12,
		},
	}
}

// Load parses a YAML document, filling omitted values from Default and
// validating the result.
func Load(data []byte) (EditorConfig, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return EditorConfig{}, fmt.Errorf("parse editor config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return EditorConfig{}, err
	}
	return cfg, nil
}

// LoadFile reads and parses a YAML configuration file.
func LoadFile(path string) (EditorConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EditorConfig{}, fmt.Errorf("read editor config: %w", err)
	}
	return Load(data)
}

// Validate checks value ranges and preset completeness.
func (c EditorConfig) Validate() error {
	if c.Annotations.Thickness < 0 {
		return NewConfigError("annotations.thickness", "must not be negative")
	}
	if o := c.Annotations.HighlightOpacity; o < 0 || o > 1 {
		return NewConfigError("annotations.highlight-opacity", "must be within [0,1]")
	}
	if c.Annotations.FontSize < 0 {
		return NewConfigError("annotations.font-size", "must not be negative")
	}
	for name, preset := range c.Watermarks {
		if preset.Text == "" {
			return NewConfigError("watermarks."+name+".text", "required field is missing")
		}
		if preset.Opacity < 0 || preset.Opacity > 1 {
			return NewConfigError("watermarks."+name+".opacity", "must be within [0,1]")
		}
	}
	return nil
}
