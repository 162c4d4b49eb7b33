package imgerr

import (
	"errors"
	"fmt"
	"strings"
)

// Error kinds for the failures imgpt distinguishes
var (
	ErrDirectoryNotFound  = errors.New("directory not found")
	ErrPromptRead         = errors.New("prompt read error")
	ErrMissingCredential  = errors.New("missing credential")
	ErrInvalidConfigValue = errors.New("invalid config value")
	ErrModelSizeConflict  = errors.New("model/size conflict")
	ErrGeneration         = errors.New("generation error")
	ErrRunFailed          = errors.New("run failed")
)

// Error represents a structured error with actionable guidance
type Error struct {
	Kind     error
	Message  string
	Guidance string
	Cause    error
}

func (e *Error) Error() string {
	if e.Guidance != "" {
		return fmt.Sprintf("%s: %s\n\nSuggestion: %s", e.Kind, e.Message, e.Guidance)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the kind of this error, so callers can write
// errors.Is(err, imgerr.ErrPromptRead).
func (e *Error) Is(target error) bool {
	return e.Kind == target
}

// KindOf returns the kind of the first *Error in err's chain, or nil.
func KindOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return nil
}

// Error constructors with actionable guidance

func NewDirectoryNotFoundError(path string, cause error) *Error {
	message := fmt.Sprintf("prompt directory '%s' does not exist", path)
	guidance := "Check the --dir path, or set default_prompts_dir with 'imgpt config set default_prompts_dir <path>'."

	if cause != nil && strings.Contains(cause.Error(), "not a directory") {
		message = fmt.Sprintf("prompt directory '%s' is not a directory", path)
		guidance = "Point --dir at a directory containing .prompt, .txt or .md files."
	}

	return &Error{
		Kind:     ErrDirectoryNotFound,
		Message:  message,
		Guidance: guidance,
		Cause:    cause,
	}
}

func NewPromptReadError(path string, cause error) *Error {
	message := fmt.Sprintf("failed to read prompt file '%s'", path)
	if cause != nil {
		message = fmt.Sprintf("%s: %v", message, cause)
	}
	return &Error{
		Kind:    ErrPromptRead,
		Message: message,
		Cause:   cause,
	}
}

func NewMissingCredentialError(envVar string) *Error {
	return &Error{
		Kind:    ErrMissingCredential,
		Message: "no OpenAI API key found",
		Guidance: fmt.Sprintf("Set it with 'imgpt config set openai_api_key <key>', "+
			"export %s, or pass --api-key.", envVar),
	}
}

func NewInvalidConfigValueError(key string, value interface{}, reason string) *Error {
	message := fmt.Sprintf("invalid value for %s: %v (%s)", key, value, reason)
	guidance := "Check the value and try again. Use 'imgpt config show' to see the current configuration."

	switch key {
	case "default_size", "size":
		guidance = "Sizes are written as <width>x<height> with positive integers, e.g. 1024x1024."
	case "default_delay", "delay":
		guidance = "The delay is a non-negative number of seconds, e.g. 2 or 0.5."
	case "default_format", "format":
		guidance = "Supported formats are png, jpeg and webp."
	}

	return &Error{
		Kind:     ErrInvalidConfigValue,
		Message:  message,
		Guidance: guidance,
	}
}

func NewModelSizeConflictError(model, size string, supported []string) *Error {
	return &Error{
		Kind:     ErrModelSizeConflict,
		Message:  fmt.Sprintf("size %s is invalid for model %s", size, model),
		Guidance: fmt.Sprintf("Model %s supports: %s.", model, strings.Join(supported, ", ")),
	}
}

func NewGenerationError(target string, cause error) *Error {
	message := fmt.Sprintf("failed to generate image for '%s'", target)
	if cause != nil {
		message = fmt.Sprintf("%s: %v", message, cause)
	}
	return &Error{
		Kind:    ErrGeneration,
		Message: message,
		Cause:   cause,
	}
}

func NewRunFailedError(failed, total int) *Error {
	return &Error{
		Kind:     ErrRunFailed,
		Message:  fmt.Sprintf("%d of %d prompts failed", failed, total),
		Guidance: "Re-run with --skip-existing to retry only the prompts that failed.",
	}
}
