// Package prompt reads passphrases and answers from the user.
package prompt

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
	"southwinds.dev/rooster/secure"
)

// ErrMismatch is returned when a confirmed passphrase does not match.
var ErrMismatch = errors.New("passwords do not match")

// Prompter asks the user for input.
type Prompter interface {
	// Password reads a secret without echo.
	Password(prompt string) (*secure.Buffer, error)
	// Line reads a line of visible input.
	Line(prompt string) (string, error)
	// Confirm asks a yes/no question until it gets a valid answer.
	Confirm(question string) (bool, error)
}

// Terminal prompts on a terminal, falling back to plain line reads when input
// is not a terminal (pipes, tests).
type Terminal struct {
	in     io.Reader
	out    io.Writer
	reader *bufio.Reader
}

// NewTerminal returns a Terminal reading from in and printing prompts to out.
func NewTerminal(in io.Reader, out io.Writer) *Terminal {
	return &Terminal{in: in, out: out, reader: bufio.NewReader(in)}
}

// Stdio returns a Terminal on stdin, prompting on stderr so stdout stays clean
// for command output.
func Stdio() *Terminal {
	return NewTerminal(os.Stdin, os.Stderr)
}

func (t *Terminal) Password(prompt string) (*secure.Buffer, error) {
	fmt.Fprint(t.out, prompt)

	if f, ok := t.in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		data, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(t.out)
		if err != nil {
			secure.Wipe(data)
			return nil, fmt.Errorf("failed to read password: %w", err)
		}
		// New wipes data
		return secure.New(data), nil
	}

	line, err := t.readLine()
	if err != nil {
		secure.Wipe(line)
		return nil, err
	}
	return secure.New(line), nil
}

func (t *Terminal) Line(prompt string) (string, error) {
	fmt.Fprint(t.out, prompt)
	line, err := t.readLine()
	if err != nil {
		return "", err
	}
	return string(line), nil
}

func (t *Terminal) Confirm(question string) (bool, error) {
	for {
		answer, err := t.Line(question + " (y/n) ")
		if err != nil {
			return false, err
		}
		switch strings.ToLower(strings.TrimSpace(answer)) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(t.out, "Please answer y or n.")
	}
}

// readLine returns the next line without its terminator. EOF after a partial
// line still yields that line.
func (t *Terminal) readLine() ([]byte, error) {
	line, err := t.reader.ReadBytes('\n')
	if err != nil && !(errors.Is(err, io.EOF) && len(line) > 0) {
		secure.Wipe(line)
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("failed to read input: %w", err)
	}
	n := len(line)
	for n > 0 && (line[n-1] == '\n' || line[n-1] == '\r') {
		n--
	}
	return line[:n], nil
}

// NewPassword asks for a passphrase twice and checks that both match.
func NewPassword(p Prompter, prompt, confirm string) (*secure.Buffer, error) {
	first, err := p.Password(prompt)
	if err != nil {
		return nil, err
	}
	second, err := p.Password(confirm)
	if err != nil {
		first.Destroy()
		return nil, err
	}
	defer second.Destroy()

	if !first.Equal(second) {
		first.Destroy()
		return nil, ErrMismatch
	}
	return first, nil
}
