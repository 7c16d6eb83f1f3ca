package commands

import (
	"errors"
	"fmt"

	"southwinds.dev/rooster"
	"southwinds.dev/rooster/internal/clierror"
	"southwinds.dev/rooster/internal/prompt"
	"southwinds.dev/rooster/persist"
)

// ErrDeclined is returned when the user chooses not to create a missing file.
var ErrDeclined = errors.New("no password file was created")

// Runner loads and unlocks a store, runs one command against it and writes
// the result back when the command changed anything.
type Runner struct {
	Storage persist.Store
	Context *Context
	Options []rooster.Option
}

// Run executes c with args. The store is synced only when the command
// succeeded and left it Fresh or Dirty.
func (r *Runner) Run(c Command, args []string) error {
	if err := checkArgs(c, args); err != nil {
		return clierror.InvalidInput(err.Error())
	}

	store, err := r.open()
	if err != nil {
		return err
	}
	defer store.Close()

	log := r.Context.logger()
	log.Debug("running command", "command", c.Name(), "version", store.Version(), "state", store.State().String())

	if err := c.Execute(r.Context, args, store); err != nil {
		return err
	}
	if !store.State().NeedsSync() {
		return nil
	}
	if err := store.Sync(r.Storage); err != nil {
		return err
	}
	log.Debug("saved password file", "location", r.Storage.Location())
	return nil
}

func (r *Runner) open() (*rooster.Store, error) {
	exists, err := r.Storage.Exists()
	if err != nil {
		return nil, &rooster.IOError{Op: "stat", Err: err}
	}
	if !exists {
		return r.create()
	}

	data, err := r.Storage.Load()
	if errors.Is(err, persist.ErrNotExist) {
		return r.create()
	}
	if err != nil {
		return nil, &rooster.IOError{Op: "load", Err: err}
	}

	passphrase, err := r.Context.Prompter.Password("Type your master password: ")
	if err != nil {
		return nil, err
	}
	defer passphrase.Destroy()

	store, err := rooster.Open(passphrase, data, r.Options...)
	if err != nil {
		return nil, err
	}
	if store.State() == rooster.StateMigrated {
		fmt.Fprintln(r.Context.Err, "Your password file uses an older format. It will be upgraded the next time you change something.")
	}
	return store, nil
}

func (r *Runner) create() (*rooster.Store, error) {
	ok, err := r.Context.Prompter.Confirm(fmt.Sprintf("I can't find your password file at %s. Would you like to create one now?", r.Storage.Location()))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDeclined
	}

	passphrase, err := prompt.NewPassword(r.Context.Prompter, "Type your new master password: ", "Type it again: ")
	if err != nil {
		return nil, err
	}
	defer passphrase.Destroy()
	if passphrase.IsEmpty() {
		return nil, clierror.InvalidInput("the master password cannot be empty")
	}
	return rooster.New(passphrase, r.Options...)
}
