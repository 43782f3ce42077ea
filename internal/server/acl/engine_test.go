package acl

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digestry/digestry/internal/common"
	"github.com/digestry/digestry/internal/protocol"
)

func TestEngine_AllowsAndReplace(t *testing.T) {
	e := NewEngine(Default())

	require.True(t, e.Allows(common.AnonymousUser, protocol.OpCheck))
	require.False(t, e.Allows("bob", protocol.OpCheck))

	next := make(ACL)
	next.grant("bob", []string{protocol.OpCheck})
	e.Replace(next)

	require.True(t, e.Allows("bob", protocol.OpCheck))
	require.False(t, e.Allows(common.AnonymousUser, protocol.OpCheck))
}

func TestEngine_ConcurrentQueriesDuringReplace(t *testing.T) {
	e := NewEngine(Default())

	var bad atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 500; j++ {
				// Every observed state must be one of the two complete
				// policies: anonymous check is allowed in both.
				if !e.Allows(common.AnonymousUser, protocol.OpCheck) {
					bad.Add(1)
				}
			}
		}()
	}

	for j := 0; j < 100; j++ {
		next := Default()
		next.grant("bob", protocol.AllOps())
		e.Replace(next)
	}
	wg.Wait()

	require.Zero(t, bad.Load(), "readers observed a partially built policy")
	require.True(t, e.Allows("bob", protocol.OpWhitelist))
}

func TestEngine_Permissions(t *testing.T) {
	a := make(ACL)
	a.grant("carol", []string{protocol.OpPing, protocol.OpCheck})
	e := NewEngine(a)

	require.Equal(t, []string{"check", "ping"}, e.Permissions("carol"))
}
