package cmd

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"southwinds.dev/rooster"
	"southwinds.dev/rooster/commands"
	"southwinds.dev/rooster/internal/clierror"
	"southwinds.dev/rooster/internal/clipboard"
	"southwinds.dev/rooster/internal/generate"
	"southwinds.dev/rooster/internal/prompt"
	"southwinds.dev/rooster/persist"
)

var (
	registry     = commands.NewRegistry()
	exportFormat string
)

func init() {
	for _, c := range registry.All() {
		rootCmd.AddCommand(newStoreCommand(c))
	}
}

// newStoreCommand exposes a store command through cobra. Arguments are
// checked by the runner so usage errors carry the same exit code everywhere.
func newStoreCommand(c commands.Command) *cobra.Command {
	command := &cobra.Command{
		Use:   c.Usage(),
		Short: c.Help(),
		RunE: func(cmd *cobra.Command, args []string) error {
			started := time.Now()
			return auditCmdComplete(cmd, runStoreCommand(c, args), started)
		},
	}
	if c.Name() == "export" {
		command.Flags().StringVarP(&exportFormat, "format", "f", string(rooster.ExportJSON), "export format (json, yaml)")
	}
	return command
}

func runStoreCommand(c commands.Command, args []string) error {
	show := viper.GetBool("show")
	if !show && copies(c) && !clipboard.Available() {
		return clierror.ClipboardUnavailable(errors.New("no clipboard utility found"))
	}

	path, err := resolveStorePath()
	if err != nil {
		return err
	}
	storage, err := persist.NewFileStore(path)
	if err != nil {
		return err
	}

	board := clipboard.NewManager(clipboardTimeout())
	defer board.Close()

	ctx := &commands.Context{
		Out:       os.Stdout,
		Err:       os.Stderr,
		Prompter:  prompt.Stdio(),
		Clipboard: board,
		Logger:    logger,
		Show:      show,
		Generate: generate.Options{
			Length: viper.GetInt("generate.length"),
			Alnum:  viper.GetBool("generate.alnum"),
		},
		ExportFormat: rooster.ExportFormat(exportFormat),
	}

	runner := &commands.Runner{
		Storage: storage,
		Context: ctx,
		Options: []rooster.Option{
			rooster.WithLogger(logger),
			rooster.WithAudit(auditLogger),
		},
	}
	if err := runner.Run(c, args); err != nil {
		return err
	}

	if d := board.ClearAfter(); d > 0 && !ctx.Show && copies(c) {
		fmt.Fprintf(os.Stderr, "The clipboard will be cleared in %s.\n", d)
		board.Wait()
	}
	return nil
}

// copies reports whether c may put a password on the clipboard.
func copies(c commands.Command) bool {
	switch c.Name() {
	case "get", "generate", "regenerate":
		return true
	}
	return false
}
