package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is matched by every option validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrStream is matched when the input source fails or the run is canceled.
	ErrStream = errors.New("stream error")
)

// ConfigError names the option that was rejected.
type ConfigError struct {
	Field string
	Err   error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("invalid %s: %v", e.Field, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// StreamError reports that the input ended early. The result returned alongside
// it covers the first Line lines.
type StreamError struct {
	Line int
	Err  error
}

func (e *StreamError) Error() string {
	return fmt.Sprintf("input stopped after line %d: %v", e.Line, e.Err)
}

func (e *StreamError) Unwrap() error { return e.Err }

func (e *StreamError) Is(target error) bool { return target == ErrStream }
