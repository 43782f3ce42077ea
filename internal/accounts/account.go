// Package accounts implements the credential layer shared by client and
// server: the account model, the hex key-material codec used in client
// accounts files, passphrase key derivation, request signing, and loaders
// for the two line-oriented accounts file formats.
package accounts

import (
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"

	"golang.org/x/crypto/argon2"
)

// SaltSize is the number of random bytes generated for a new account salt.
const SaltSize = 16

// Account is one identity: the username plus its key material. On the
// client side the salt is kept so the key can be re-derived; the server
// only ever stores finished keys.
type Account struct {
	Username string
	Salt     []byte
	Key      []byte
}

// NewAccount validates and builds an Account. Key material with both an
// empty salt and an empty key is rejected: such an account could neither
// sign nor verify anything.
func NewAccount(username string, salt, key []byte) (*Account, error) {
	if username == "" {
		return nil, errors.New("empty username")
	}
	if len(salt) == 0 && len(key) == 0 {
		return nil, errors.New("both salt and key are empty")
	}
	return &Account{Username: username, Salt: salt, Key: key}, nil
}

// DeriveKey derives a 32-byte signing key from a passphrase and salt using
// Argon2id. Parameters (time=1, memory=64MB, threads=4) follow the current
// recommendations and must stay fixed: changing them changes every derived
// key.
func DeriveKey(passphrase []byte, salt []byte) []byte {
	return argon2.IDKey(passphrase, salt, 1, 64*1024, 4, 32)
}

// EncodeKeyMaterial renders a (salt, key) pair as the "salthex,keyhex"
// form stored in the client accounts file.
func EncodeKeyMaterial(salt, key []byte) string {
	return hex.EncodeToString(salt) + "," + hex.EncodeToString(key)
}

// DecodeKeyMaterial parses the "salthex,keyhex" form. Either side may be
// empty, but not both.
func DecodeKeyMaterial(s string) (salt, key []byte, err error) {
	saltHex, keyHex, ok := strings.Cut(s, ",")
	if !ok {
		return nil, nil, errors.New("key material must be salt and key separated by a comma")
	}

	salt, err = hex.DecodeString(strings.TrimSpace(saltHex))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid salt hex: %w", err)
	}
	key, err = hex.DecodeString(strings.TrimSpace(keyHex))
	if err != nil {
		return nil, nil, fmt.Errorf("invalid key hex: %w", err)
	}

	if len(salt) == 0 && len(key) == 0 {
		return nil, nil, errors.New("both salt and key are empty")
	}
	return salt, key, nil
}

// HostPort identifies the server an account authenticates to.
type HostPort struct {
	Host string
	Port int
}

func (hp HostPort) String() string {
	return net.JoinHostPort(hp.Host, strconv.Itoa(hp.Port))
}
