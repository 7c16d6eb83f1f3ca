// Package clierror provides structured errors for CLI output with codes,
// exit codes, and remediation hints.
package clierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"southwinds.dev/rooster"
	"southwinds.dev/rooster/internal/misc"
	"southwinds.dev/rooster/internal/prompt"
)

// Exit codes
const (
	ExitSuccess   = 0 // Operation completed successfully
	ExitGeneral   = 1 // Unknown/unhandled error
	ExitAuth      = 2 // Store could not be unlocked
	ExitFormat    = 3 // Unreadable or unsupported store file
	ExitNotFound  = 4 // Entry doesn't exist
	ExitDuplicate = 5 // Entry name already taken
	ExitIO        = 6 // Store file could not be read or written
)

// Error codes (strings) for programmatic error handling
const (
	CodeAuthenticationFailed = "AUTHENTICATION_FAILED"
	CodeFormatError          = "FORMAT_ERROR"
	CodeEntryNotFound        = "ENTRY_NOT_FOUND"
	CodeAlreadyExists        = "ALREADY_EXISTS"
	CodeIOError              = "IO_ERROR"
	CodeInvalidInput         = "INVALID_INPUT"
	CodeClipboardUnavailable = "CLIPBOARD_UNAVAILABLE"
	CodeInternalError        = "INTERNAL_ERROR"
)

// CLIError represents a structured error for CLI output.
type CLIError struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Hint     string `json:"hint,omitempty"`
	ExitCode int    `json:"-"` // Not serialized, used for os.Exit
}

// Error implements the error interface.
func (e *CLIError) Error() string {
	return e.Message
}

// AuthenticationFailed is deliberately vague: a wrong master password and a
// damaged file look the same.
func AuthenticationFailed() *CLIError {
	return &CLIError{
		Code:    CodeAuthenticationFailed,
		Message: "could not unlock the password file",
		Hint: "This could be because your master password is wrong, " +
			"your password file is corrupted, or your version of rooster is outdated",
		ExitCode: ExitAuth,
	}
}

// UnreadableFile creates an error for files that decrypted but cannot be used.
func UnreadableFile(reason string) *CLIError {
	return &CLIError{
		Code:     CodeFormatError,
		Message:  fmt.Sprintf("could not read the password file: %s", reason),
		Hint:     "Try upgrading to the latest version of rooster",
		ExitCode: ExitFormat,
	}
}

// EntryNotFound creates an error when an entry doesn't exist.
func EntryNotFound(name string) *CLIError {
	return &CLIError{
		Code:     CodeEntryNotFound,
		Message:  fmt.Sprintf("there is no password for '%s'", name),
		Hint:     "Check the name with 'rooster list' or 'rooster search'",
		ExitCode: ExitNotFound,
	}
}

// AlreadyExists creates an error when an entry name is taken.
func AlreadyExists(name string) *CLIError {
	return &CLIError{
		Code:     CodeAlreadyExists,
		Message:  fmt.Sprintf("there is already a password for '%s'", name),
		Hint:     "Use a different name, or 'rooster change' to update the existing one",
		ExitCode: ExitDuplicate,
	}
}

// IOFailed creates an error for file access failures.
func IOFailed(op string, err error) *CLIError {
	return &CLIError{
		Code:     CodeIOError,
		Message:  fmt.Sprintf("%s failed: %v", op, err),
		Hint:     "Check that the password file and its directory are writable",
		ExitCode: ExitIO,
	}
}

// InvalidInput creates an error for rejected user input.
func InvalidInput(msg string) *CLIError {
	return &CLIError{
		Code:     CodeInvalidInput,
		Message:  msg,
		ExitCode: ExitGeneral,
	}
}

// ClipboardUnavailable creates an error when a password could not be copied.
func ClipboardUnavailable(err error) *CLIError {
	hint := "Run the command again with --show to print the password instead"
	if misc.IsNotFoundError(err) {
		hint = "Install xclip, xsel or wl-clipboard, or run the command again with --show"
	}
	return &CLIError{
		Code:     CodeClipboardUnavailable,
		Message:  fmt.Sprintf("could not copy to the clipboard: %v", err),
		Hint:     hint,
		ExitCode: ExitGeneral,
	}
}

// InternalError creates an error for unexpected internal errors.
func InternalError(err error) *CLIError {
	msg := "an unexpected internal error occurred"
	if err != nil {
		msg = fmt.Sprintf("internal error: %s", err.Error())
	}
	return &CLIError{
		Code:     CodeInternalError,
		Message:  msg,
		ExitCode: ExitGeneral,
	}
}

// FromError maps store errors to CLI errors. A nil error maps to nil.
func FromError(err error) *CLIError {
	if err == nil {
		return nil
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr
	}

	var nameErr *rooster.NameError
	var formatErr *rooster.FormatError
	var ioErr *rooster.IOError
	switch {
	case errors.Is(err, prompt.ErrMismatch):
		return InvalidInput("the passwords you typed do not match")
	case errors.Is(err, rooster.ErrAuthentication):
		return AuthenticationFailed()
	case errors.As(err, &nameErr) && errors.Is(err, rooster.ErrNotFound):
		return EntryNotFound(nameErr.Name)
	case errors.As(err, &nameErr) && errors.Is(err, rooster.ErrDuplicateName):
		return AlreadyExists(nameErr.Name)
	case errors.As(err, &nameErr):
		return InvalidInput(err.Error())
	case errors.As(err, &formatErr):
		return UnreadableFile(formatErr.Error())
	case errors.As(err, &ioErr):
		return IOFailed(ioErr.Op, ioErr.Err)
	default:
		return InternalError(err)
	}
}

// FormatError returns the error formatted for the given output format.
// Supported formats: "json" for JSON output, anything else for human-readable format.
func FormatError(err *CLIError, outputFormat string) string {
	if outputFormat == "json" {
		data, jsonErr := json.MarshalIndent(err, "", "  ")
		if jsonErr != nil {
			return fmt.Sprintf(`{"code":"%s","message":"%s"}`, err.Code, err.Message)
		}
		return string(data)
	}

	output := fmt.Sprintf("Error [%s]: %s", err.Code, err.Message)
	if err.Hint != "" {
		output += fmt.Sprintf("\nHint: %s", err.Hint)
	}
	return output
}

// PrintError prints the error to w in the appropriate format.
func PrintError(w io.Writer, err *CLIError, outputFormat string) {
	fmt.Fprintln(w, FormatError(err, outputFormat))
}
