package config

import (
	"errors"
	"fmt"
)

// Sentinel causes carried by ConfigError. Use errors.Is to test for them.
var (
	ErrUnknownGroup      = errors.New("unknown config group")
	ErrUnknownVariant    = errors.New("unknown variant")
	ErrUnknownKey        = errors.New("unknown key")
	ErrMalformedOverride = errors.New("malformed override")
	ErrMissingFile       = errors.New("missing config file")
	ErrMissingValue      = errors.New("missing mandatory value")
	ErrTypeMismatch      = errors.New("type mismatch")
	ErrInvalidValue      = errors.New("invalid value")
	ErrInterpolation     = errors.New("interpolation failed")
)

// ConfigError is fatal to the invocation. Token names the offending group,
// key, file or override exactly as the user wrote it.
type ConfigError struct {
	Op    string
	Token string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s %q: %v", e.Op, e.Token, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Errorf builds a ConfigError whose cause wraps sentinel with a formatted detail.
func Errorf(op, token string, sentinel error, format string, args ...any) *ConfigError {
	detail := fmt.Sprintf(format, args...)
	if detail == "" {
		return &ConfigError{Op: op, Token: token, Err: sentinel}
	}
	return &ConfigError{Op: op, Token: token, Err: fmt.Errorf("%w: %s", sentinel, detail)}
}
