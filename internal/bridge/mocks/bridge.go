// Package mocks provides a scriptable bridge.Bridge for tests.
package mocks

import (
	"context"
	"sync"

	"github.com/newthinker/pairdash/internal/bridge"
	"github.com/newthinker/pairdash/internal/core"
)

// Bridge is a fake terminal bridge whose answers and timing are controlled
// by the test.
type Bridge struct {
	mu sync.Mutex

	connectResult    *bridge.ConnectResult
	connectErr       error
	disconnectResult *bridge.DisconnectResult
	disconnectErr    error
	account          *core.AccountSnapshot
	accountErr       error

	// gate, when set, holds every call until a value is received or the
	// call's context ends.
	gate    chan struct{}
	entered chan string

	connectCalls    int
	disconnectCalls int
	accountCalls    int
	lastCreds       core.Credentials
}

// New creates a bridge that accepts every login with a fixed account.
func New() *Bridge {
	return &Bridge{
		connectResult: &bridge.ConnectResult{
			Connected: true,
			Message:   "connected",
			Account:   SampleAccount(),
		},
		disconnectResult: &bridge.DisconnectResult{Disconnected: true, Message: "disconnected"},
		account:          SampleAccount(),
		entered:          make(chan string, 16),
	}
}

// SampleAccount returns the account the default fake reports.
func SampleAccount() *core.AccountSnapshot {
	return &core.AccountSnapshot{
		Login:      12345678,
		Balance:    10000,
		Equity:     10250.5,
		Margin:     120,
		FreeMargin: 10130.5,
		Leverage:   100,
		Name:       "trader1",
		Server:     "Demo",
	}
}

// Name returns the bridge identifier.
func (b *Bridge) Name() string {
	return "mock"
}

// SetConnect scripts the next Connect answers.
func (b *Bridge) SetConnect(res *bridge.ConnectResult, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connectResult = res
	b.connectErr = err
}

// RejectLogin makes Connect answer connected=false with msg.
func (b *Bridge) RejectLogin(msg string) {
	b.SetConnect(&bridge.ConnectResult{Connected: false, Message: msg}, nil)
}

// SetDisconnect scripts the Disconnect answers.
func (b *Bridge) SetDisconnect(res *bridge.DisconnectResult, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.disconnectResult = res
	b.disconnectErr = err
}

// SetAccount scripts the AccountInfo answers.
func (b *Bridge) SetAccount(acct *core.AccountSnapshot, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.account = acct
	b.accountErr = err
}

// Hold makes subsequent calls block until Release or their context ends.
func (b *Bridge) Hold() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.gate = make(chan struct{})
}

// Release lets one held call proceed.
func (b *Bridge) Release() {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()
	if gate != nil {
		gate <- struct{}{}
	}
}

// Entered receives the method name each time a call reaches the bridge.
func (b *Bridge) Entered() <-chan string {
	return b.entered
}

func (b *Bridge) wait(ctx context.Context, method string) error {
	b.mu.Lock()
	gate := b.gate
	b.mu.Unlock()

	select {
	case b.entered <- method:
	default:
	}

	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connect returns the scripted connect answer.
func (b *Bridge) Connect(ctx context.Context, creds core.Credentials) (*bridge.ConnectResult, error) {
	b.mu.Lock()
	b.connectCalls++
	b.lastCreds = creds
	b.mu.Unlock()

	if err := b.wait(ctx, "connect"); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.connectErr != nil {
		return nil, b.connectErr
	}
	if b.connectResult == nil {
		return nil, nil
	}
	res := *b.connectResult
	if res.Account != nil {
		acct := *res.Account
		res.Account = &acct
	}
	return &res, nil
}

// Disconnect returns the scripted disconnect answer.
func (b *Bridge) Disconnect(ctx context.Context) (*bridge.DisconnectResult, error) {
	b.mu.Lock()
	b.disconnectCalls++
	b.mu.Unlock()

	if err := b.wait(ctx, "disconnect"); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.disconnectErr != nil {
		return nil, b.disconnectErr
	}
	if b.disconnectResult == nil {
		return nil, nil
	}
	res := *b.disconnectResult
	return &res, nil
}

// AccountInfo returns the scripted account.
func (b *Bridge) AccountInfo(ctx context.Context) (*core.AccountSnapshot, error) {
	b.mu.Lock()
	b.accountCalls++
	b.mu.Unlock()

	if err := b.wait(ctx, "account"); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.accountErr != nil {
		return nil, b.accountErr
	}
	if b.account == nil {
		return nil, nil
	}
	acct := *b.account
	return &acct, nil
}

// ConnectCalls returns how many times Connect was invoked.
func (b *Bridge) ConnectCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connectCalls
}

// DisconnectCalls returns how many times Disconnect was invoked.
func (b *Bridge) DisconnectCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.disconnectCalls
}

// AccountCalls returns how many times AccountInfo was invoked.
func (b *Bridge) AccountCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.accountCalls
}

// LastCredentials returns the credentials of the latest Connect.
func (b *Bridge) LastCredentials() core.Credentials {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastCreds
}
