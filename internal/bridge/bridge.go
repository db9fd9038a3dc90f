// internal/bridge/bridge.go
package bridge

import (
	"context"

	"github.com/newthinker/pairdash/internal/core"
)

// Bridge is the port to the external process that relays credentials and
// account queries to a trading terminal.
type Bridge interface {
	// Name returns the bridge identifier
	Name() string

	// Connect logs in to the terminal. A rejected login is reported through
	// ConnectResult.Connected, transport problems through the error.
	Connect(ctx context.Context, creds core.Credentials) (*ConnectResult, error)

	// Disconnect closes the terminal session
	Disconnect(ctx context.Context) (*DisconnectResult, error)

	// AccountInfo returns the current account, or nil when none is known
	AccountInfo(ctx context.Context) (*core.AccountSnapshot, error)
}

// ConnectResult is the bridge's answer to a login.
type ConnectResult struct {
	Connected bool                  `json:"connected"`
	Message   string                `json:"message"`
	Account   *core.AccountSnapshot `json:"account_info,omitempty"`
}

// DisconnectResult is the bridge's answer to a logout.
type DisconnectResult struct {
	Disconnected bool   `json:"disconnected"`
	Message      string `json:"message"`
}
