package credential

import (
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Prompter asks the user for a password. It blocks until answered.
type Prompter interface {
	Password(prompt string) ([]byte, error)
}

// TerminalPrompter reads a password from a terminal with echo disabled.
type TerminalPrompter struct {
	In  *os.File
	Out io.Writer
}

func (p TerminalPrompter) Password(prompt string) ([]byte, error) {
	in, out := p.In, p.Out
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return nil, errors.New("no terminal available for interactive password prompt")
	}
	fmt.Fprint(out, prompt+" ")
	password, err := term.ReadPassword(fd)
	fmt.Fprintln(out)
	if err != nil {
		return nil, fmt.Errorf("reading password: %w", err)
	}
	return password, nil
}
