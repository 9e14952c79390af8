package core

import "context"

// CommandHandler runs a command once its letter and the separator after it
// have been read. Any error it returns is answered by the controller.
type CommandHandler func(ctx context.Context, c *Controller) error

// Command is one entry of the command line, selected by its leading letter.
type Command struct {
	Letter  byte
	Name    string
	Handler CommandHandler
}

// CommandRegistry maps leading letters to commands. It is filled before the
// poll loop starts and never modified afterwards, so it needs no lock.
type CommandRegistry struct {
	commands map[byte]*Command
	order    []byte
}

// NewCommandRegistry creates an empty command registry
func NewCommandRegistry() *CommandRegistry {
	return &CommandRegistry{
		commands: make(map[byte]*Command),
	}
}

// Register adds a command. Registering a letter twice replaces the handler.
func (r *CommandRegistry) Register(letter byte, name string, handler CommandHandler) {
	if cmd, exists := r.commands[letter]; exists {
		cmd.Name = name
		cmd.Handler = handler
		return
	}
	r.commands[letter] = &Command{Letter: letter, Name: name, Handler: handler}
	r.order = append(r.order, letter)
}

// Lookup returns the command for a leading letter.
func (r *CommandRegistry) Lookup(letter byte) (*Command, bool) {
	cmd, ok := r.commands[letter]
	return cmd, ok
}

// Dictionary lists the registered commands in registration order, one
// "letter name" pair per line.
func (r *CommandRegistry) Dictionary() string {
	dict := ""
	for _, letter := range r.order {
		dict += string(letter) + " " + r.commands[letter].Name + "\n"
	}
	return dict
}
