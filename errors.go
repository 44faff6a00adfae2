package flash

import (
	"errors"
	"fmt"

	"github.com/hupe1980/flash/config"
	"github.com/hupe1980/flash/dataset"
	"github.com/hupe1980/flash/internal/resource"
)

var (
	// ErrConfiguration is matched by every configuration failure.
	ErrConfiguration = errors.New("configuration error")

	// ErrClosed is returned by operations on a closed index.
	ErrClosed = errors.New("index closed")

	// ErrMemoryLimitExceeded is returned when training would grow the tables
	// past the configured memory limit.
	ErrMemoryLimitExceeded = resource.ErrMemoryLimitExceeded
)

// ConfigurationError reports an unusable configuration or a training file
// whose header does not match the configured columns.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigurationError struct {
	Reason string
	cause  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s", e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.cause }

// Is lets errors.Is(err, ErrConfiguration) match.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// IOError reports a training file or snapshot that could not be read.
//
// The original underlying error can be accessed via errors.Unwrap.
type IOError struct {
	Op    string
	Path  string
	cause error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.cause)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.cause)
}

func (e *IOError) Unwrap() error { return e.cause }

func translateError(err error) error {
	if err == nil {
		return nil
	}

	var ce *ConfigurationError
	if errors.As(err, &ce) {
		return err
	}

	var cfg *config.ConfigError
	if errors.As(err, &cfg) {
		return &ConfigurationError{Reason: cfg.Error(), cause: err}
	}
	var col *dataset.ColumnError
	if errors.As(err, &col) {
		return &ConfigurationError{Reason: col.Error(), cause: err}
	}

	return err
}
