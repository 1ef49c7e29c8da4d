package errors

import "errors"

// Exit codes returned by the stackgen binary.
const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError = 1

	// ExitConfigurationError indicates the module source is broken.
	ExitConfigurationError = 2

	// ExitResolutionError indicates the module selection could not be resolved.
	ExitResolutionError = 3

	// ExitGenerationError indicates project generation failed.
	ExitGenerationError = 4

	// ExitNotFound indicates a module or file was not found.
	ExitNotFound = 5
)

// ExitError wraps an error with an exit code.
type ExitError struct {
	Err  error
	Code int

	// Printed records whether the command layer already printed the error.
	Printed bool
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	return e.Err.Error()
}

// Unwrap returns the wrapped error.
func (e *ExitError) Unwrap() error {
	return e.Err
}

// NewExitError creates a new ExitError with the given error and exit code.
func NewExitError(err error, code int) *ExitError {
	return &ExitError{Err: err, Code: code}
}

// ExitCodeFromError determines the appropriate exit code for an error.
func ExitCodeFromError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}

	switch {
	case errors.Is(err, ErrConfiguration):
		return ExitConfigurationError
	case errors.Is(err, ErrResolution):
		return ExitResolutionError
	case errors.Is(err, ErrGeneration):
		return ExitGenerationError
	case errors.Is(err, ErrNotFound):
		return ExitNotFound
	default:
		return ExitGeneralError
	}
}

// ExitCodeName returns the name of the exit code.
func ExitCodeName(code int) string {
	switch code {
	case ExitSuccess:
		return "Success"
	case ExitGeneralError:
		return "General Error"
	case ExitConfigurationError:
		return "Configuration Error"
	case ExitResolutionError:
		return "Resolution Error"
	case ExitGenerationError:
		return "Generation Error"
	case ExitNotFound:
		return "Not Found"
	default:
		return "Unknown"
	}
}
