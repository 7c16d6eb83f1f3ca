package clierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"southwinds.dev/rooster"
)

func TestExitCodes(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		got      int
		expected int
	}{
		{"ExitSuccess", ExitSuccess, 0},
		{"ExitGeneral", ExitGeneral, 1},
		{"ExitAuth", ExitAuth, 2},
		{"ExitFormat", ExitFormat, 3},
		{"ExitNotFound", ExitNotFound, 4},
		{"ExitDuplicate", ExitDuplicate, 5},
		{"ExitIO", ExitIO, 6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.got)
		})
	}
}

func TestFromError(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		code     string
		exitCode int
		contains string
	}{
		{"authentication", rooster.ErrAuthentication, CodeAuthenticationFailed, ExitAuth, "could not unlock"},
		{"wrapped authentication", fmt.Errorf("open: %w", rooster.ErrAuthentication), CodeAuthenticationFailed, ExitAuth, ""},
		{"not found", &rooster.NameError{Name: "github", Err: rooster.ErrNotFound}, CodeEntryNotFound, ExitNotFound, "github"},
		{"duplicate", &rooster.NameError{Name: "gitlab", Err: rooster.ErrDuplicateName}, CodeAlreadyExists, ExitDuplicate, "gitlab"},
		{"invalid name", &rooster.NameError{Err: rooster.ErrInvalidName}, CodeInvalidInput, ExitGeneral, "invalid"},
		{"format", &rooster.FormatError{Version: 9, Err: rooster.ErrUnsupportedVersion}, CodeFormatError, ExitFormat, "unsupported"},
		{"io", &rooster.IOError{Op: "sync", Err: errors.New("disk full")}, CodeIOError, ExitIO, "disk full"},
		{"other", errors.New("boom"), CodeInternalError, ExitGeneral, "boom"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cliErr := FromError(tt.err)
			require.NotNil(t, cliErr)
			assert.Equal(t, tt.code, cliErr.Code)
			assert.Equal(t, tt.exitCode, cliErr.ExitCode)
			assert.Contains(t, cliErr.Message, tt.contains)
		})
	}

	assert.Nil(t, FromError(nil))

	passthrough := EntryNotFound("x")
	assert.Same(t, passthrough, FromError(fmt.Errorf("wrapped: %w", passthrough)))
}

func TestAuthenticationFailedDoesNotGuessCause(t *testing.T) {
	err := AuthenticationFailed()
	assert.Contains(t, err.Hint, "master password is wrong")
	assert.Contains(t, err.Hint, "corrupted")
	assert.Contains(t, err.Hint, "outdated")
}

func TestFormatError(t *testing.T) {
	err := AlreadyExists("github")

	human := FormatError(err, "table")
	assert.True(t, strings.HasPrefix(human, "Error [ALREADY_EXISTS]: "))
	assert.Contains(t, human, "\nHint: ")

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(FormatError(err, "json")), &decoded))
	assert.Equal(t, "ALREADY_EXISTS", decoded["code"])
	assert.NotContains(t, decoded, "ExitCode")

	var buf strings.Builder
	PrintError(&buf, InvalidInput("bad"), "")
	assert.Equal(t, "Error [INVALID_INPUT]: bad\n", buf.String())
}

func TestClipboardUnavailableHint(t *testing.T) {
	missing := ClipboardUnavailable(errors.New("exec: \"xclip\": executable file not found in $PATH"))
	assert.Contains(t, missing.Hint, "xclip")
	assert.Equal(t, CodeClipboardUnavailable, missing.Code)

	other := ClipboardUnavailable(errors.New("display refused connection"))
	assert.Contains(t, other.Hint, "--show")
	assert.NotContains(t, other.Hint, "xclip")
}
