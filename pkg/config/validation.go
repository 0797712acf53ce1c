package config

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate validates the configuration using struct tags and custom rules.
//
// This function uses go-playground/validator for declarative validation
// via struct tags, with additional custom validation for rules that depend
// on the selected store types.
//
// Note: Log level normalization is handled in ApplyDefaults, not here.
// Validation accepts both uppercase and lowercase log levels.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	if err := validateCustomRules(cfg); err != nil {
		return err
	}

	return nil
}

// validateCustomRules checks the type-specific sections that are in use.
func validateCustomRules(cfg *Config) error {
	switch cfg.Metadata.Type {
	case "badger":
		if !boolOption(cfg.Metadata.Badger, "in_memory") && stringOption(cfg.Metadata.Badger, "db_path") == "" {
			return fmt.Errorf("metadata.badger: db_path is required unless in_memory is set")
		}
	case "postgres":
		if stringOption(cfg.Metadata.Postgres, "conn_string") == "" {
			return fmt.Errorf("metadata.postgres: conn_string is required")
		}
	}

	switch cfg.Content.Type {
	case "filesystem":
		if stringOption(cfg.Content.Filesystem, "path") == "" {
			return fmt.Errorf("content.filesystem: path is required")
		}
	case "s3":
		if stringOption(cfg.Content.S3, "bucket") == "" {
			return fmt.Errorf("content.s3: bucket is required")
		}
		if stringOption(cfg.Content.S3, "region") == "" {
			return fmt.Errorf("content.s3: region is required")
		}
	}

	if cfg.GC.Enabled && cfg.GC.Interval <= 0 {
		return fmt.Errorf("gc: interval must be positive when enabled")
	}

	return nil
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		e := validationErrs[0]
		return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
			e.Namespace(), e.Tag(), e.Value())
	}
	return err
}

func stringOption(options map[string]any, key string) string {
	s, _ := options[key].(string)
	return s
}

func boolOption(options map[string]any, key string) bool {
	switch v := options[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}
