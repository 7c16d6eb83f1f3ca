package commands

import (
	"fmt"
	"sort"
)

// Registry holds the available commands by name.
type Registry struct {
	commands map[string]Command
}

// NewRegistry returns a registry with every built-in command.
func NewRegistry() *Registry {
	r := &Registry{commands: make(map[string]Command)}
	for _, c := range []Command{
		getCommand{},
		addCommand{},
		deleteCommand{},
		generateCommand{},
		regenerateCommand{},
		listCommand{},
		exportCommand{},
		changeMasterPasswordCommand{},
		renameCommand{},
		changeCommand{},
		searchCommand{},
	} {
		if err := r.Register(c); err != nil {
			panic(err)
		}
	}
	return r
}

// Register adds a command. Names must be unique.
func (r *Registry) Register(c Command) error {
	if _, exists := r.commands[c.Name()]; exists {
		return fmt.Errorf("command %q is already registered", c.Name())
	}
	r.commands[c.Name()] = c
	return nil
}

// Lookup returns the named command.
func (r *Registry) Lookup(name string) (Command, bool) {
	c, ok := r.commands[name]
	return c, ok
}

// All returns the commands sorted by name.
func (r *Registry) All() []Command {
	out := make([]Command, 0, len(r.commands))
	for _, c := range r.commands {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}
