package accounts

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadClientAccounts(t *testing.T) {
	content := `# client accounts
public.example.com : 24441 : Bob : deadbeef,0102
127.0.0.1 : 24441 : carol : ,0304
badline
host : notaport : dave : 01,02
host : 24441 : erin : ,
public.example.com : 24441 : bob2 : 00ff,aa11
`
	got, err := LoadClientAccounts(context.Background(), writeFile(t, content), testLogger())
	require.NoError(t, err)

	require.Len(t, got, 2)

	// later duplicate of the same (host, port) wins
	acct, ok := got[HostPort{Host: "public.example.com", Port: 24441}]
	require.True(t, ok)
	require.Equal(t, "bob2", acct.Username)
	require.Equal(t, []byte{0x00, 0xff}, acct.Salt)
	require.Equal(t, []byte{0xaa, 0x11}, acct.Key)

	acct, ok = got[HostPort{Host: "127.0.0.1", Port: 24441}]
	require.True(t, ok)
	require.Equal(t, "carol", acct.Username)
	require.Empty(t, acct.Salt)
	require.Equal(t, []byte{0x03, 0x04}, acct.Key)
}

func TestLoadClientAccounts_MissingFile(t *testing.T) {
	got, err := LoadClientAccounts(context.Background(), filepath.Join(t.TempDir(), "nope"), testLogger())
	require.NoError(t, err)
	require.Empty(t, got)
}

func TestLoadClientAccounts_NonIntegerPortSkipsLine(t *testing.T) {
	content := "host : 2444x : bob : 01,02\n"
	got, err := LoadClientAccounts(context.Background(), writeFile(t, content), testLogger())
	require.NoError(t, err)
	require.Empty(t, got)
}
