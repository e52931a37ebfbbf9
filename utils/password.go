package utils

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	oscerrors "github.com/joona/osckit/errors"
)

// GetPassword reads a password from the terminal in without echo, asking
// twice when confirm is set until both entries agree.
func GetPassword(in *os.File, out io.Writer, prompt string, confirm bool) (string, error) {
	if prompt == "" {
		prompt = "User Password:"
	}
	fd := int(in.Fd())
	if !term.IsTerminal(fd) {
		return "", oscerrors.Commandf("No terminal detected attempting to read password")
	}
	read := func(p string) (string, error) {
		fmt.Fprint(out, p)
		b, err := term.ReadPassword(fd)
		fmt.Fprintln(out)
		if err != nil {
			return "", oscerrors.Commandf("Error reading password: %w", err)
		}
		return string(b), nil
	}

	for {
		first, err := read(prompt)
		if err != nil {
			return "", err
		}
		if !confirm {
			return first, nil
		}
		second, err := read("Repeat " + prompt)
		if err != nil {
			return "", err
		}
		if first == second {
			return first, nil
		}
		fmt.Fprintln(out, "The passwords entered were not the same")
	}
}
