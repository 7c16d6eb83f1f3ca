package commands

import (
	"fmt"

	"southwinds.dev/rooster"
	"southwinds.dev/rooster/internal/clierror"
	"southwinds.dev/rooster/internal/generate"
	"southwinds.dev/rooster/secure"
)

// deliver prints the password when Show is set and copies it otherwise.
func deliver(ctx *Context, name string, password *secure.Buffer) error {
	return password.Use(func(p []byte) error {
		if ctx.Show {
			fmt.Fprintln(ctx.Out, string(p))
			return nil
		}
		if ctx.Clipboard == nil {
			return clierror.ClipboardUnavailable(fmt.Errorf("no clipboard configured"))
		}
		if err := ctx.Clipboard.Copy(string(p)); err != nil {
			return clierror.ClipboardUnavailable(err)
		}
		ctx.success("Alright! The password for %s is in your clipboard.", name)
		return nil
	})
}

func exists(store *rooster.Store, name string) bool {
	e, err := store.Get(name)
	if err != nil {
		return false
	}
	e.Destroy()
	return true
}

type getCommand struct{}

func (getCommand) Name() string     { return "get" }
func (getCommand) Usage() string    { return "get <app>" }
func (getCommand) Help() string     { return "Copy the password for an app to the clipboard" }
func (getCommand) Args() (int, int) { return 1, 1 }

func (c getCommand) Execute(ctx *Context, args []string, store *rooster.Store) error {
	e, err := store.Get(args[0])
	if err != nil {
		return err
	}
	defer e.Destroy()
	if !ctx.Show && e.Username != "" {
		fmt.Fprintf(ctx.Out, "Username: %s\n", e.Username)
	}
	return deliver(ctx, e.Name, e.Password)
}

type addCommand struct{}

func (addCommand) Name() string     { return "add" }
func (addCommand) Usage() string    { return "add <app> <username>" }
func (addCommand) Help() string     { return "Add a password you already have" }
func (addCommand) Args() (int, int) { return 2, 2 }

func (c addCommand) Execute(ctx *Context, args []string, store *rooster.Store) error {
	name, username := args[0], args[1]
	if exists(store, name) {
		return &rooster.NameError{Name: name, Err: rooster.ErrDuplicateName}
	}

	password, err := ctx.Prompter.Password(fmt.Sprintf("What password do you want for %s? ", name))
	if err != nil {
		return err
	}
	if password.IsEmpty() {
		password.Destroy()
		return clierror.InvalidInput("the password cannot be empty")
	}
	if err := store.Add(rooster.NewEntry(name, username, password)); err != nil {
		password.Destroy()
		return err
	}
	ctx.success("Alright! Your password for %s has been added.", name)
	return nil
}

type deleteCommand struct{}

func (deleteCommand) Name() string     { return "delete" }
func (deleteCommand) Usage() string    { return "delete <app>" }
func (deleteCommand) Help() string     { return "Delete a password" }
func (deleteCommand) Args() (int, int) { return 1, 1 }

func (c deleteCommand) Execute(ctx *Context, args []string, store *rooster.Store) error {
	e, err := store.Delete(args[0])
	if err != nil {
		return err
	}
	e.Destroy()
	ctx.success("Done! The password for %s has been deleted.", args[0])
	return nil
}

type generateCommand struct{}

func (generateCommand) Name() string     { return "generate" }
func (generateCommand) Usage() string    { return "generate <app> <username>" }
func (generateCommand) Help() string     { return "Generate a random password for a new app" }
func (generateCommand) Args() (int, int) { return 2, 2 }

func (c generateCommand) Execute(ctx *Context, args []string, store *rooster.Store) error {
	name, username := args[0], args[1]
	if exists(store, name) {
		return &rooster.NameError{Name: name, Err: rooster.ErrDuplicateName}
	}

	password, err := generate.Password(ctx.Generate)
	if err != nil {
		return clierror.InvalidInput(err.Error())
	}
	shown, err := password.Clone()
	if err != nil {
		password.Destroy()
		return err
	}
	defer shown.Destroy()

	if err := store.Add(rooster.NewEntry(name, username, password)); err != nil {
		password.Destroy()
		return err
	}
	ctx.success("Alright! A new password for %s has been generated.", name)
	return deliver(ctx, name, shown)
}

type regenerateCommand struct{}

func (regenerateCommand) Name() string     { return "regenerate" }
func (regenerateCommand) Usage() string    { return "regenerate <app>" }
func (regenerateCommand) Help() string     { return "Replace the password for an app with a random one" }
func (regenerateCommand) Args() (int, int) { return 1, 1 }

func (c regenerateCommand) Execute(ctx *Context, args []string, store *rooster.Store) error {
	name := args[0]
	password, err := generate.Password(ctx.Generate)
	if err != nil {
		return clierror.InvalidInput(err.Error())
	}
	shown, err := password.Clone()
	if err != nil {
		password.Destroy()
		return err
	}
	defer shown.Destroy()

	if err := replacePassword(store, name, password); err != nil {
		return err
	}
	ctx.success("Done! The password for %s has been regenerated.", name)
	return deliver(ctx, name, shown)
}

type changeCommand struct{}

func (changeCommand) Name() string     { return "change" }
func (changeCommand) Usage() string    { return "change <app>" }
func (changeCommand) Help() string     { return "Change the password for an app" }
func (changeCommand) Args() (int, int) { return 1, 1 }

func (c changeCommand) Execute(ctx *Context, args []string, store *rooster.Store) error {
	name := args[0]
	if !exists(store, name) {
		return &rooster.NameError{Name: name, Err: rooster.ErrNotFound}
	}

	password, err := ctx.Prompter.Password(fmt.Sprintf("What password do you want for %s? ", name))
	if err != nil {
		return err
	}
	if password.IsEmpty() {
		password.Destroy()
		return clierror.InvalidInput("the password cannot be empty")
	}
	if err := replacePassword(store, name, password); err != nil {
		return err
	}
	ctx.success("Done! The password for %s has been changed.", name)
	return nil
}

// replacePassword hands password to the store, destroying it if the entry is
// gone.
func replacePassword(store *rooster.Store, name string, password *secure.Buffer) error {
	err := store.ChangePassword(name, func(e rooster.Entry) rooster.Entry {
		e.Password = password
		return e
	})
	if err != nil {
		password.Destroy()
	}
	return err
}

type renameCommand struct{}

func (renameCommand) Name() string     { return "rename" }
func (renameCommand) Usage() string    { return "rename <old> <new>" }
func (renameCommand) Help() string     { return "Rename an app" }
func (renameCommand) Args() (int, int) { return 2, 2 }

func (c renameCommand) Execute(ctx *Context, args []string, store *rooster.Store) error {
	if err := store.Rename(args[0], args[1]); err != nil {
		return err
	}
	ctx.success("Done! %s is now called %s.", args[0], args[1])
	return nil
}
