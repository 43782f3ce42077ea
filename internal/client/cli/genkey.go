package cli

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/digestry/digestry/internal/accounts"
	"github.com/digestry/digestry/internal/common"
)

// genkey derives fresh key material from a passphrase and prints the line
// for the client accounts file together with the matching server line.
func (a *App) genkey() error {
	user := strings.ToLower(strings.TrimSpace(a.config.User))
	if user == "" {
		return errors.New("genkey needs a username, pass one with -n")
	}
	if user == common.AnonymousUser {
		return fmt.Errorf("%q is reserved for unsigned requests", common.AnonymousUser)
	}

	host, port, err := net.SplitHostPort(a.config.Address)
	if err != nil {
		return fmt.Errorf("invalid server address %q: %w", a.config.Address, err)
	}

	passphrase, err := promptPassphrase(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(passphrase)

	salt := common.GenerateRandByteArray(accounts.SaltSize)
	key := accounts.DeriveKey(passphrase, salt)

	fmt.Fprintf(a.out, "add to the client accounts file (%s):\n", a.config.AccountsPath)
	fmt.Fprintf(a.out, "%s : %s : %s : %s\n", host, port, user, accounts.EncodeKeyMaterial(salt, key))
	fmt.Fprintf(a.out, "add to the server accounts file:\n")
	fmt.Fprintf(a.out, "%s : %s\n", user, hex.EncodeToString(key))
	return nil
}
