package cli

import (
	"errors"
	"fmt"

	"mercator-hq/aegis/pkg/config"
)

// Exit codes returned by the aegis binary.
const (
	ExitOK          = 0
	ExitFailure     = 1
	ExitConfigError = 2
)

// ConfigError represents an unusable configuration file or flag.
type ConfigError struct {
	Field   string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("config error: %s", e.Message)
	}
	return fmt.Sprintf("config error in %s: %s", e.Field, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// CommandError represents a failure while executing a command.
type CommandError struct {
	Command string
	Err     error
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s failed: %v", e.Command, e.Err)
}

func (e *CommandError) Unwrap() error {
	return e.Err
}

// NewConfigError creates a new ConfigError.
func NewConfigError(field, message string) *ConfigError {
	return &ConfigError{
		Field:   field,
		Message: message,
	}
}

// WrapConfigError converts an error from config loading into a
// ConfigError, keeping the original for errors.As. A validation error with a
// single field is attributed to that field.
func WrapConfigError(path string, err error) *ConfigError {
	ce := &ConfigError{Message: err.Error(), Err: err}

	var verr config.ValidationError
	if errors.As(err, &verr) && len(verr.Errors) == 1 {
		ce.Field = verr.Errors[0].Field
		ce.Message = verr.Errors[0].Message
		return ce
	}
	if path != "" {
		ce.Message = fmt.Sprintf("%s: %v", path, err)
	}
	return ce
}

// NewCommandError creates a new CommandError.
func NewCommandError(command string, err error) *CommandError {
	return &CommandError{
		Command: command,
		Err:     err,
	}
}

// ExitCode maps an error returned by a command to the process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var ce *ConfigError
	if errors.As(err, &ce) {
		return ExitConfigError
	}
	return ExitFailure
}
