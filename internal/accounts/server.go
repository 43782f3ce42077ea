package accounts

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/digestry/digestry/internal/logging"
)

// LoadServerAccounts parses the server accounts file: one
//
//	username : key
//
// per line, where key is opaque credential material (hex in practice).
// Blank lines and #-comments are skipped. A line that does not split into
// exactly two colon-separated parts is logged and skipped; parsing always
// continues. Usernames are lower-cased; later duplicates win. A missing
// file yields an empty map, leaving only the anonymous identity usable.
func LoadServerAccounts(ctx context.Context, path string, log logging.Logger) (map[string]string, error) {
	m := make(map[string]string)

	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn(ctx, "accounts file does not exist, only anonymous requests will be served", "path", path)
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
		if len(parts) != 2 {
			log.Warn(ctx, "invalid accounts line, expected 'username : key'", "path", path, "line", lineno)
			continue
		}

		username := strings.ToLower(strings.TrimSpace(parts[0]))
		key := strings.TrimSpace(parts[1])
		if username == "" || key == "" {
			log.Warn(ctx, "invalid accounts line, empty username or key", "path", path, "line", lineno)
			continue
		}

		m[username] = key
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read accounts file: %w", err)
	}

	return m, nil
}
