package acl

import "sync"

// Engine holds the currently active ACL and supports atomic replacement on
// reload. Replace installs a complete new value under the write lock, so a
// concurrent reader sees either the old mapping or the new one, never a
// partially built state.
type Engine struct {
	mu  sync.RWMutex
	acl ACL
}

func NewEngine(a ACL) *Engine {
	return &Engine{acl: a}
}

// Allows reports whether username may invoke op under the active policy.
func (e *Engine) Allows(username, op string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.acl.Allows(username, op)
}

// Permissions returns the active policy's sorted grant list for username.
func (e *Engine) Permissions(username string) []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.acl.Permissions(username)
}

// Replace swaps in a freshly compiled ACL.
func (e *Engine) Replace(a ACL) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.acl = a
}
