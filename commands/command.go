// Package commands implements the operations a user runs against a store:
// get, add, delete, generate, regenerate, list, export, change-master-password,
// rename, change and search.
//
// Commands never touch the file system or the terminal directly. Everything
// they need is passed in through a Context, and a Runner takes care of
// loading, unlocking and syncing the store around them.
package commands

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"southwinds.dev/rooster"
	"southwinds.dev/rooster/internal/generate"
	"southwinds.dev/rooster/internal/prompt"
)

// Command is a single user-facing operation.
type Command interface {
	Name() string
	// Usage is the one-line synopsis, e.g. "get <app>".
	Usage() string
	Help() string
	// Args returns the accepted number of positional arguments.
	Args() (minArgs, maxArgs int)
	Execute(ctx *Context, args []string, store *rooster.Store) error
}

// Clipboard receives passwords when they are not printed.
type Clipboard interface {
	Copy(text string) error
}

// Context carries the collaborators and options shared by every command.
type Context struct {
	Out       io.Writer
	Err       io.Writer
	Prompter  prompt.Prompter
	Clipboard Clipboard
	Logger    *slog.Logger

	// Show prints passwords instead of copying them to the clipboard.
	Show bool
	// Generate shapes passwords made by generate and regenerate.
	Generate generate.Options
	// ExportFormat selects the encoding used by export.
	ExportFormat rooster.ExportFormat
}

var (
	successColor = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
)

func (c *Context) success(format string, a ...interface{}) {
	successColor.Fprintf(c.Out, format+"\n", a...)
}

func (c *Context) warn(format string, a ...interface{}) {
	warnColor.Fprintf(c.Err, format+"\n", a...)
}

func (c *Context) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

// checkArgs validates the argument count against the command's arity.
func checkArgs(c Command, args []string) error {
	minArgs, maxArgs := c.Args()
	if len(args) < minArgs || len(args) > maxArgs {
		return fmt.Errorf("usage: rooster %s", c.Usage())
	}
	return nil
}
