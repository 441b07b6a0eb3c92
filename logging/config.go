package logging

import (
	"github.com/pkg/errors"
	"go.viam.com/utils"
)

// Config describes where and how verbosely a logger writes.
type Config struct {
	Level      string `json:"level"`
	File       string `json:"file,omitempty"`
	MaxSizeMB  int    `json:"max_size_mb,omitempty"`
	MaxBackups int    `json:"max_backups,omitempty"`
}

// Validate ensures all parts of the config are valid.
func (cfg *Config) Validate(path string) error {
	if _, err := LevelFromString(cfg.Level); err != nil {
		return errors.Wrap(err, path)
	}
	if cfg.MaxSizeMB < 0 {
		return utils.NewConfigValidationError(path, errors.New("max_size_mb cannot be negative"))
	}
	if cfg.MaxBackups < 0 {
		return utils.NewConfigValidationError(path, errors.New("max_backups cannot be negative"))
	}
	return nil
}
