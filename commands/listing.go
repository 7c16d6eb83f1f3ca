package commands

import (
	"fmt"
	"io"
	"text/tabwriter"

	"southwinds.dev/rooster"
	"southwinds.dev/rooster/internal/clierror"
)

func printSummaries(out io.Writer, summaries []rooster.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "APP\tUSERNAME")
	for _, s := range summaries {
		username := s.Username
		if username == "" {
			username = "-"
		}
		fmt.Fprintf(w, "%s\t%s\n", s.Name, username)
	}
	w.Flush()
}

type listCommand struct{}

func (listCommand) Name() string     { return "list" }
func (listCommand) Usage() string    { return "list" }
func (listCommand) Help() string     { return "List the apps you have passwords for" }
func (listCommand) Args() (int, int) { return 0, 0 }

func (c listCommand) Execute(ctx *Context, args []string, store *rooster.Store) error {
	summaries := store.List()
	if len(summaries) == 0 {
		fmt.Fprintln(ctx.Out, "No passwords on file yet. Add one with 'rooster add' or 'rooster generate'.")
		return nil
	}
	printSummaries(ctx.Out, summaries)
	return nil
}

type searchCommand struct{}

func (searchCommand) Name() string     { return "search" }
func (searchCommand) Usage() string    { return "search <query>" }
func (searchCommand) Help() string     { return "Find apps by name or username" }
func (searchCommand) Args() (int, int) { return 1, 1 }

func (c searchCommand) Execute(ctx *Context, args []string, store *rooster.Store) error {
	found, err := store.Search(args[0])
	if err != nil {
		return err
	}
	summaries := make([]rooster.Summary, 0, len(found))
	for _, e := range found {
		summaries = append(summaries, rooster.Summary{Name: e.Name, Username: e.Username})
		e.Destroy()
	}
	if len(summaries) == 0 {
		fmt.Fprintf(ctx.Out, "Nothing matches %q.\n", args[0])
		return nil
	}
	printSummaries(ctx.Out, summaries)
	return nil
}

type exportCommand struct{}

func (exportCommand) Name() string     { return "export" }
func (exportCommand) Usage() string    { return "export" }
func (exportCommand) Args() (int, int) { return 0, 0 }

func (exportCommand) Help() string {
	return "Write every password to stdout UNENCRYPTED (json or yaml)"
}

func (c exportCommand) Execute(ctx *Context, args []string, store *rooster.Store) error {
	format := ctx.ExportFormat
	if format == "" {
		format = rooster.ExportJSON
	}
	if format != rooster.ExportJSON && format != rooster.ExportYAML {
		return clierror.InvalidInput(fmt.Sprintf("unsupported export format %q, use json or yaml", format))
	}
	ctx.warn("Warning: the export below is not encrypted. Keep it somewhere safe and delete it when you are done.")
	return store.Export(ctx.Out, format)
}
