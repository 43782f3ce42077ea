package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubPasswords replaces readPassword so each call pops the next scripted
// entry.
func stubPasswords(t *testing.T, entries ...[]byte) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(entries) {
			return nil, errors.New("no more scripted passwords")
		}
		e := entries[i]
		i++
		return append([]byte(nil), e...), nil
	}
}

func TestPromptPassphrase(t *testing.T) {
	stubPasswords(t, []byte("hunter2"), []byte("hunter2"))
	var out bytes.Buffer

	got, err := promptPassphrase(&out)
	require.NoError(t, err)
	require.Equal(t, []byte("hunter2"), got)
	require.Contains(t, out.String(), "Enter passphrase: ")
	require.Contains(t, out.String(), "Enter passphrase again: ")
}

func TestPromptPassphraseMismatch(t *testing.T) {
	stubPasswords(t, []byte("hunter2"), []byte("hunter3"))
	var out bytes.Buffer

	_, err := promptPassphrase(&out)
	require.ErrorContains(t, err, "do not match")
}

func TestPromptPassphraseEmpty(t *testing.T) {
	stubPasswords(t, []byte(""), []byte(""))
	var out bytes.Buffer

	_, err := promptPassphrase(&out)
	require.ErrorContains(t, err, "empty")
}

func TestPromptPassphraseReadError(t *testing.T) {
	old := readPassword
	t.Cleanup(func() { readPassword = old })
	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	var out bytes.Buffer

	_, err := promptPassphrase(&out)
	require.Error(t, err)
}
