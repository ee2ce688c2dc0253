// Package config reads goap process documents and builds actions, goals
// and run settings from them.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/felixgeelhaar/goap/domain/config"
)

// Format names a document encoding.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
)

var decoders = map[Format]func([]byte, any) error{
	FormatYAML: yaml.Unmarshal,
	FormatJSON: json.Unmarshal,
}

var extensions = map[string]Format{
	".yaml": FormatYAML,
	".yml":  FormatYAML,
	".json": FormatJSON,
}

// FormatOf picks the document format from the file extension.
func FormatOf(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if f, ok := extensions[ext]; ok {
		return f, nil
	}
	return "", fmt.Errorf("%w: %q", config.ErrUnsupportedFormat, ext)
}

// Loader reads process documents.
type Loader struct {
	expand   bool
	strict   bool
	validate bool
}

// LoaderOption adjusts a Loader.
type LoaderOption func(*Loader)

// WithEnvExpansion toggles environment substitution before decoding.
func WithEnvExpansion(enabled bool) LoaderOption {
	return func(l *Loader) { l.expand = enabled }
}

// WithStrictEnv makes a reference to an unset variable an error.
func WithStrictEnv(enabled bool) LoaderOption {
	return func(l *Loader) { l.strict = enabled }
}

// WithValidation toggles validation after decoding.
func WithValidation(enabled bool) LoaderOption {
	return func(l *Loader) { l.validate = enabled }
}

// NewLoader returns a loader that expands environment references and
// validates, adjusted by opts.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{expand: true, validate: true}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadFile reads the document at path, choosing the decoder by extension.
func (l *Loader) LoadFile(path string) (*config.Config, error) {
	info, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return nil, fmt.Errorf("%w: %s", config.ErrConfigNotFound, path)
	case err != nil:
		return nil, fmt.Errorf("failed to access config file: %w", err)
	case info.IsDir():
		return nil, fmt.Errorf("%w: %s is a directory", config.ErrInvalidFormat, path)
	}

	format, err := FormatOf(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return l.Decode(data, format)
}

// LoadString decodes an in-memory document.
func (l *Loader) LoadString(content string, format Format) (*config.Config, error) {
	return l.Decode([]byte(content), format)
}

// Decode expands, decodes and validates one document.
func (l *Loader) Decode(data []byte, format Format) (*config.Config, error) {
	decode, ok := decoders[format]
	if !ok {
		return nil, fmt.Errorf("%w: %s", config.ErrUnsupportedFormat, format)
	}

	if l.expand {
		expanded, err := expandEnv(string(data), l.strict)
		if err != nil {
			return nil, err
		}
		data = []byte(expanded)
	}

	cfg := &config.Config{}
	if err := decode(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidFormat, err)
	}

	if l.validate {
		if errs := config.NewValidator().Validate(cfg); errs.HasErrors() {
			return nil, fmt.Errorf("%w: %v", config.ErrValidationFailed, errs)
		}
	}
	return cfg, nil
}
