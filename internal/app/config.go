package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// configValidate checks Config struct tags.
var configValidate = validator.New()

// Config holds all the necessary configuration for an App instance to run.
type Config struct {
	// ProjectPaths are project files or directories holding them.
	ProjectPaths []string `validate:"required,min=1,dive,required"`
	// Format forces the project file format. Empty or "auto" picks it from
	// the file extensions.
	Format string `validate:"omitempty,oneof=auto hcl yaml"`

	RemoteURL string        `validate:"omitempty,url"`
	ProjectID string
	Token     string
	Timeout   time.Duration `validate:"gte=0"`
	RateLimit float64       `validate:"gte=0"`
	Burst     int           `validate:"gte=0"`

	LinkPolicy string `validate:"omitempty,oneof=permissive strict"`

	LogFormat       string `validate:"omitempty,oneof=text json"`
	LogLevel        string `validate:"omitempty,oneof=debug info warn error"`
	HealthcheckPort int    `validate:"gte=0,lte=65535"`

	// SnapshotDir enables snapshot persistence when set.
	SnapshotDir string
	// Restore rehydrates the session from the saved snapshot before running.
	Restore bool `validate:"excluded_without=SnapshotDir"`

	NotifyURL       string `validate:"omitempty,url"`
	NotifyNamespace string
}

// NewConfig validates cfg and returns a copy of it.
func NewConfig(cfg Config) (*Config, error) {
	if err := configValidate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, describe(fe))
			}
			return nil, fmt.Errorf("invalid configuration: %s", strings.Join(msgs, "; "))
		}
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "min":
		return fmt.Sprintf("%s is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s], got %q", fe.Field(), fe.Param(), fe.Value())
	case "url":
		return fmt.Sprintf("%s must be an absolute URL, got %q", fe.Field(), fe.Value())
	case "excluded_without":
		return fmt.Sprintf("%s requires %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("%s failed %q (%s)", fe.Field(), fe.Tag(), fe.Param())
	}
}
