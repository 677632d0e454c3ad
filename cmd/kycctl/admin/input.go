package admin

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

// readPassword is a test seam for term.ReadPassword.
var readPassword = term.ReadPassword

// PasswordSource yields the password for a new account.
type PasswordSource func() (string, error)

// TerminalPassword prompts twice without echo and requires both entries to
// match.
func TerminalPassword(w io.Writer) PasswordSource {
	return func() (string, error) {
		first, err := promptPassword(w, "Password: ")
		if err != nil {
			return "", err
		}
		second, err := promptPassword(w, "Repeat password: ")
		if err != nil {
			return "", err
		}
		if first != second {
			return "", errors.New("passwords do not match")
		}
		return first, nil
	}
}

// LinePassword reads the password from the first line of r, for scripted use.
func LinePassword(r io.Reader) PasswordSource {
	return func() (string, error) {
		line, err := bufio.NewReader(r).ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("read password: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			return "", errors.New("missing password on stdin")
		}
		return line, nil
	}
}

// StdinPassword picks TerminalPassword when stdin is a terminal and
// LinePassword otherwise.
func StdinPassword(w io.Writer) PasswordSource {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return TerminalPassword(w)
	}
	return LinePassword(os.Stdin)
}

func promptPassword(w io.Writer, prompt string) (string, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return "", err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return "", err
	}
	return string(pw), nil
}
