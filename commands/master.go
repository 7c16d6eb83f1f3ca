package commands

import (
	"southwinds.dev/rooster"
	"southwinds.dev/rooster/internal/clierror"
	"southwinds.dev/rooster/internal/prompt"
)

type changeMasterPasswordCommand struct{}

func (changeMasterPasswordCommand) Name() string     { return "change-master-password" }
func (changeMasterPasswordCommand) Usage() string    { return "change-master-password" }
func (changeMasterPasswordCommand) Help() string     { return "Change the master password of the file" }
func (changeMasterPasswordCommand) Args() (int, int) { return 0, 0 }

func (c changeMasterPasswordCommand) Execute(ctx *Context, args []string, store *rooster.Store) error {
	passphrase, err := prompt.NewPassword(ctx.Prompter, "Type your new master password: ", "Type it again: ")
	if err != nil {
		return err
	}
	defer passphrase.Destroy()
	if passphrase.IsEmpty() {
		return clierror.InvalidInput("the master password cannot be empty")
	}

	if err := store.ChangeMasterPassword(passphrase); err != nil {
		return err
	}
	ctx.success("Done! Your master password has been changed.")
	return nil
}
