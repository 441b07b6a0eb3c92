package config

import (
	"encoding/json"
	"io"
	"path/filepath"
	"strings"

	"github.com/a8m/envsubst"
	"github.com/go-viper/mapstructure/v2"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Format is the encoding of a config file.
type Format int

// The supported config encodings.
const (
	FormatJSON Format = iota
	FormatYAML
)

// FormatFromPath picks the encoding from a file extension. Anything but .yaml and .yml is read as JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// Read reads a config from the given file, expanding environment variables first. Missing keys keep their
// defaults.
func Read(filePath string) (*Config, error) {
	buf, err := envsubst.ReadFile(filePath)
	if err != nil {
		return nil, err
	}
	cfg, err := FromBytes(buf, FormatFromPath(filePath))
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", filePath)
	}
	cfg.ConfigFilePath = filePath
	return cfg, nil
}

// FromReader reads a config in the given format.
func FromReader(r io.Reader, format Format) (*Config, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return FromBytes(buf, format)
}

// FromBytes decodes a config over the defaults and validates it.
func FromBytes(buf []byte, format Format) (*Config, error) {
	raw := map[string]interface{}{}
	var err error
	switch format {
	case FormatYAML:
		err = yaml.Unmarshal(buf, &raw)
	default:
		err = json.Unmarshal(buf, &raw)
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}

	cfg := NewDefaultConfig()
	if err := decodeAttributes(raw, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// decodeAttributes fills to from a generic map using the json field names.
func decodeAttributes(from map[string]interface{}, to interface{}) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:     "json",
		Result:      to,
		ErrorUnused: true,
	})
	if err != nil {
		return errors.Wrap(err, "error creating decoder")
	}
	return errors.Wrap(decoder.Decode(from), "failed to decode config")
}
