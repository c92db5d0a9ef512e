package config

import (
	"errors"
	"fmt"
)

var (
	ErrConfig        = errors.New("configuration error")
	ErrMissingAPIKey = errors.New("environment variable GOOGLE_API_KEY is not set")
)

// MissingAPIKeyMessage is shown to terminal users when the key is absent.
const MissingAPIKeyMessage = "La variable de entorno GOOGLE_API_KEY no está configurada."

// ConfigError reports an invalid or missing setting.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %v: %v", ErrConfig, e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Is matches ErrConfig so callers can test the category.
func (e *ConfigError) Is(target error) bool { return target == ErrConfig }
