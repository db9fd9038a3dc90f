package sim

import (
	"context"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/newthinker/pairdash/internal/bridge"
	"github.com/newthinker/pairdash/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBridge() *Bridge {
	return New(
		WithLatency(Latency{}),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	)
}

func TestBridge_ImplementsInterface(t *testing.T) {
	var _ bridge.Bridge = (*Bridge)(nil)
}

func TestBridge_ConnectSuccess(t *testing.T) {
	b := newTestBridge()
	creds := core.Credentials{Username: "trader1", Password: "pass1", Server: "Demo", Terminal: "127.0.0.1:5555"}

	res, err := b.Connect(context.Background(), creds)
	require.NoError(t, err)
	require.True(t, res.Connected)
	require.NotNil(t, res.Account)

	acct := res.Account
	assert.Equal(t, "trader1", acct.Name)
	assert.Equal(t, "Demo", acct.Server)
	assert.Equal(t, 100, acct.Leverage)
	assert.GreaterOrEqual(t, acct.Login, int64(10_000_000))
	assert.Less(t, acct.Login, int64(100_000_000))
	assert.GreaterOrEqual(t, acct.Balance, 0.0)
	assert.Less(t, acct.Balance, 10000.0)
	assert.Less(t, acct.Margin, 1000.0)
	assert.Less(t, acct.FreeMargin, 9000.0)
}

func TestBridge_ConnectRejectsShortCredentials(t *testing.T) {
	b := newTestBridge()
	creds := core.Credentials{Username: "ab", Password: "cd", Server: "s", Terminal: "t"}

	res, err := b.Connect(context.Background(), creds)
	require.NoError(t, err)
	assert.False(t, res.Connected)
	assert.Nil(t, res.Account)
	assert.Equal(t, "Invalid credentials or server not available", res.Message)
}

func TestBridge_ConnectRequiresAllFields(t *testing.T) {
	b := newTestBridge()

	res, err := b.Connect(context.Background(), core.Credentials{Username: "trader1"})
	require.NoError(t, err)
	assert.False(t, res.Connected)
	assert.Equal(t, "All credentials are required", res.Message)
}

func TestBridge_ConnectHonoursContext(t *testing.T) {
	b := New(WithLatency(Latency{Connect: time.Hour}))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Connect(ctx, core.Credentials{Username: "trader1", Password: "pass1", Server: "Demo", Terminal: "t"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBridge_AccountInfoLifecycle(t *testing.T) {
	b := newTestBridge()
	ctx := context.Background()

	acct, err := b.AccountInfo(ctx)
	require.NoError(t, err)
	assert.Nil(t, acct, "no account before connect")

	res, err := b.Connect(ctx, core.Credentials{Username: "trader1", Password: "pass1", Server: "Demo", Terminal: "t"})
	require.NoError(t, err)

	acct, err = b.AccountInfo(ctx)
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, res.Account.Login, acct.Login)

	dres, err := b.Disconnect(ctx)
	require.NoError(t, err)
	assert.True(t, dres.Disconnected)

	acct, err = b.AccountInfo(ctx)
	require.NoError(t, err)
	assert.Nil(t, acct)
}

func TestBridge_Adopt(t *testing.T) {
	b := newTestBridge()
	b.Adopt(&core.AccountSnapshot{Login: 42, Name: "restored"})

	acct, err := b.AccountInfo(context.Background())
	require.NoError(t, err)
	require.NotNil(t, acct)
	assert.Equal(t, int64(42), acct.Login)
}
