package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/digestry/digestry/internal/common"
)

// readPassword is a test seam for term.ReadPassword.
// In tests you can replace it with a stub to avoid touching the terminal.
var readPassword = term.ReadPassword

// promptPassphrase reads a passphrase twice without echo and returns it only
// when both entries match and are non-empty. The caller wipes the returned
// slice when done.
func promptPassphrase(w io.Writer) ([]byte, error) {
	first, err := readSecret(w, "Enter passphrase: ")
	if err != nil {
		return nil, err
	}
	second, err := readSecret(w, "Enter passphrase again: ")
	if err != nil {
		common.WipeByteArray(first)
		return nil, err
	}
	defer common.WipeByteArray(second)

	if len(first) == 0 {
		return nil, errors.New("empty passphrase")
	}
	if !bytes.Equal(first, second) {
		common.WipeByteArray(first)
		return nil, errors.New("passphrases do not match")
	}
	return first, nil
}

// readSecret prints a prompt to w and reads one line from the terminal
// without echo. A newline is printed after the read to keep the output tidy.
func readSecret(w io.Writer, prompt string) ([]byte, error) {
	if _, err := fmt.Fprint(w, prompt); err != nil {
		return nil, err
	}
	pw, err := readPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(w)
	if err != nil {
		return nil, err
	}
	return pw, nil
}
