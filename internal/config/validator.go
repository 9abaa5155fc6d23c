package config

import (
	"errors"

	berrors "github.com/standardbeagle/phpbundle/internal/errors"
)

// Validator checks a Config for the required fields before the driver
// hands it to the core (§7: ConfigurationError is fatal on a missing
// entry).
type Validator struct{}

// NewValidator constructs a Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateAndSetDefaults validates cfg and applies defaults for anything
// left unset that has a sensible default.
func (v *Validator) ValidateAndSetDefaults(cfg *Config) error {
	if err := v.validateRequired(cfg); err != nil {
		return err
	}
	if err := v.validateAutoload(cfg); err != nil {
		return err
	}
	v.setDefaults(cfg)
	return nil
}

func (v *Validator) validateRequired(cfg *Config) error {
	if cfg.Entry == "" {
		return berrors.NewConfigurationError("entry", errors.New("entry is required"))
	}
	if cfg.Output == "" {
		return berrors.NewConfigurationError("output", errors.New("output is required"))
	}
	return nil
}

func (v *Validator) validateAutoload(cfg *Config) error {
	for _, rule := range cfg.Autoload {
		if rule.Kind == "" {
			return berrors.NewConfigurationError("autoload", errors.New("autoload rule missing kind"))
		}
		if rule.Path == "" {
			return berrors.NewConfigurationError("autoload", errors.New("autoload rule missing path"))
		}
	}
	return nil
}

func (v *Validator) setDefaults(cfg *Config) {
	if cfg.Database == "" {
		cfg.Database = ".phpbundle.db"
	}
	if cfg.Runtime == nil {
		cfg.Runtime = make(map[string]string)
	}
}

// ValidateConfig is a convenience wrapper for a one-off validation call.
func ValidateConfig(cfg *Config) error {
	return NewValidator().ValidateAndSetDefaults(cfg)
}
