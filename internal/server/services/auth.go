// Package services contains server-side business logic. This file implements
// AuthService, which owns the account table and the access policy:
// - Authenticate: resolve a request to an identity, verifying signatures
// - Authorize: check the identity against the active policy
// - Reload: re-read both files and swap them in atomically
package services

import (
	"context"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/digestry/digestry/internal/accounts"
	"github.com/digestry/digestry/internal/common"
	"github.com/digestry/digestry/internal/logging"
	"github.com/digestry/digestry/internal/protocol"
	"github.com/digestry/digestry/internal/server/acl"
)

type AuthService struct {
	log logging.Logger

	accountsPath string
	accessPath   string
	maxDrift     time.Duration

	mu       sync.RWMutex
	accounts map[string]string

	engine *acl.Engine
	now    func() time.Time
}

// NewAuthService loads the account and access files and returns a ready
// service. A missing file falls back to its documented default; an
// unreadable one fails startup.
func NewAuthService(ctx context.Context, accountsPath, accessPath string, maxDrift time.Duration, log logging.Logger) (*AuthService, error) {
	s := &AuthService{
		log:          log.With("module", "auth"),
		accountsPath: accountsPath,
		accessPath:   accessPath,
		maxDrift:     maxDrift,
		engine:       acl.NewEngine(acl.Default()),
		now:          time.Now,
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Authenticate resolves a request to a canonical username. Requests
// without a User header are anonymous. Named requests must carry a valid
// timestamp and signature made with the account's key; any failure
// unwraps to common.ErrorUnauthorized.
func (s *AuthService) Authenticate(ctx context.Context, req *protocol.Request) (string, error) {
	if req.User == "" {
		return common.AnonymousUser, nil
	}

	user := strings.ToLower(req.User)

	s.mu.RLock()
	keyHex, ok := s.accounts[user]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown user %q: %w", user, common.ErrorUnauthorized)
	}
	if req.Sig == "" || req.Time == 0 {
		return "", fmt.Errorf("request for %q is not signed: %w", user, common.ErrorUnauthorized)
	}

	key, err := hex.DecodeString(keyHex)
	if err != nil {
		s.log.Error(ctx, "account key is not valid hex", "user", user)
		return "", fmt.Errorf("unusable key for %q: %w", user, common.ErrorUnauthorized)
	}

	// The signature covers the request exactly as the client serialized
	// it, so the User header goes into the MAC verbatim.
	if err := accounts.VerifyRequest(key, req.User, req.Time, req.MarshalUnsigned(), req.Sig, s.now(), s.maxDrift); err != nil {
		return "", err
	}
	return user, nil
}

// Authorize checks username against the active policy for op.
func (s *AuthService) Authorize(username, op string) error {
	if !s.engine.Allows(username, op) {
		return fmt.Errorf("user %q may not %s: %w", username, op, common.ErrNotPermitted)
	}
	return nil
}

// Permissions returns the operations currently granted to username.
func (s *AuthService) Permissions(username string) []string {
	return s.engine.Permissions(username)
}

// Reload re-reads the account and access files and installs both. On any
// error the previous state stays in effect.
func (s *AuthService) Reload(ctx context.Context) error {
	accts, err := accounts.LoadServerAccounts(ctx, s.accountsPath, s.log)
	if err != nil {
		return fmt.Errorf("loading accounts: %w", err)
	}

	known := make([]string, 0, len(accts))
	for u := range accts {
		known = append(known, u)
	}
	policy, err := acl.Load(ctx, s.accessPath, known, s.log)
	if err != nil {
		return fmt.Errorf("loading access policy: %w", err)
	}

	s.mu.Lock()
	s.accounts = accts
	s.mu.Unlock()
	s.engine.Replace(policy)

	s.log.Info(ctx, "credentials loaded", "accounts", len(accts))
	return nil
}
