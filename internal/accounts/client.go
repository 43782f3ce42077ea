package accounts

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/digestry/digestry/internal/logging"
)

// LoadClientAccounts parses the client accounts file: one
//
//	host : port : username : keymaterial
//
// per line, keyed by the (host, port) the account authenticates to.
// Every line fails soft: wrong field count, a non-integer port, key
// material that decodes to a completely empty salt and key, or any other
// account construction failure is logged and the line is skipped. Later
// duplicates of the same (host, port) overwrite earlier ones. A missing
// file yields an empty map, so every request goes out anonymous.
func LoadClientAccounts(ctx context.Context, path string, log logging.Logger) (map[HostPort]Account, error) {
	m := make(map[HostPort]Account)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Info(ctx, "no accounts file, all commands will be executed as anonymous", "path", path)
			return m, nil
		}
		return nil, fmt.Errorf("open accounts file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ":")
		if len(parts) != 4 {
			log.Warn(ctx, "invalid accounts line, expected 'host : port : username : key'", "path", path, "line", lineno)
			continue
		}

		host := strings.TrimSpace(parts[0])
		port, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil {
			log.Warn(ctx, "invalid port in accounts line", "path", path, "line", lineno, "error", err)
			continue
		}

		salt, key, err := DecodeKeyMaterial(strings.TrimSpace(parts[3]))
		if err != nil {
			log.Warn(ctx, "invalid key material in accounts line", "path", path, "line", lineno, "error", err)
			continue
		}

		username := strings.ToLower(strings.TrimSpace(parts[2]))
		account, err := NewAccount(username, salt, key)
		if err != nil {
			log.Warn(ctx, "invalid account in accounts line", "path", path, "line", lineno, "error", err)
			continue
		}

		m[HostPort{Host: host, Port: port}] = *account
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	return m, nil
}
