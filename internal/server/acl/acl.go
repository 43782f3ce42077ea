// Package acl compiles the ordered access rule file into a per-user
// permission set and answers authorization queries against it.
//
// Rule lines have the form
//
//	operations : users : allow|deny
//
// and are folded top to bottom: allow unions the listed operations into
// each listed user's set, deny removes them. A later line therefore always
// overrides an earlier one for the same (user, operation) pair, and users
// never granted anything are denied everything.
package acl

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/digestry/digestry/internal/common"
	"github.com/digestry/digestry/internal/logging"
	"github.com/digestry/digestry/internal/protocol"
)

// ACL maps a username to the set of operations it may invoke. The value is
// built once by Load and never mutated afterwards; reloading builds a new
// value.
type ACL map[string]map[string]struct{}

// Allows reports whether username may invoke op. Unknown users are denied
// everything.
func (a ACL) Allows(username, op string) bool {
	ops, ok := a[username]
	if !ok {
		return false
	}
	_, ok = ops[op]
	return ok
}

// Permissions returns a sorted copy of the operations granted to username,
// for diagnostics. The returned slice is the caller's to keep.
func (a ACL) Permissions(username string) []string {
	ops := a[username]
	out := make([]string, 0, len(ops))
	for op := range ops {
		out = append(out, op)
	}
	sort.Strings(out)
	return out
}

// Default is the policy used when no access file exists: anonymous callers
// may use every operation except whitelist.
func Default() ACL {
	a := make(ACL)
	a.grant(common.AnonymousUser, []string{
		protocol.OpCheck, protocol.OpReport, protocol.OpPing, protocol.OpPong, protocol.OpInfo,
	})
	return a
}

// Load parses the access rule file. knownUsers is the universe the literal
// "all" expands to in the users field; it deliberately does not include
// the anonymous identity, which must be named explicitly. Malformed lines
// are logged and skipped. A missing file yields Default().
func Load(ctx context.Context, path string, knownUsers []string, log logging.Logger) (ACL, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Warn(ctx, "access file does not exist, using default policy", "path", path)
			return Default(), nil
		}
		return nil, fmt.Errorf("open access file: %w", err)
	}
	defer f.Close()

	a := make(ACL)

	scanner := bufio.NewScanner(f)
	lineno := 0
	for scanner.Scan() {
		lineno++
		line := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.Split(line, ":")
		if len(parts) != 3 {
			log.Warn(ctx, "invalid access line, expected 'operations : users : allow|deny'", "path", path, "line", lineno)
			continue
		}

		var allow bool
		switch strings.TrimSpace(parts[2]) {
		case "allow":
			allow = true
		case "deny":
			allow = false
		default:
			log.Warn(ctx, "invalid access line, action must be allow or deny", "path", path, "line", lineno)
			continue
		}

		var ops []string
		if opsField := strings.TrimSpace(parts[0]); opsField == "all" {
			ops = protocol.AllOps()
		} else {
			ops = strings.Fields(opsField)
		}

		var users []string
		if usersField := strings.TrimSpace(parts[1]); usersField == "all" {
			users = knownUsers
		} else {
			users = strings.Fields(usersField)
		}

		for _, user := range users {
			if allow {
				a.grant(user, ops)
			} else {
				a.revoke(user, ops)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read access file: %w", err)
	}

	return a, nil
}

func (a ACL) grant(user string, ops []string) {
	set, ok := a[user]
	if !ok {
		set = make(map[string]struct{})
		a[user] = set
	}
	for _, op := range ops {
		set[op] = struct{}{}
	}
}

func (a ACL) revoke(user string, ops []string) {
	set, ok := a[user]
	if !ok {
		return
	}
	for _, op := range ops {
		delete(set, op)
	}
}
