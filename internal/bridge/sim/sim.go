// Package sim provides a simulated terminal bridge for demos and the CLI.
package sim

import (
	"context"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/newthinker/pairdash/internal/bridge"
	"github.com/newthinker/pairdash/internal/core"
	"go.uber.org/zap"
)

const (
	msgMissing      = "All credentials are required"
	msgConnected    = "Successfully connected to MT5"
	msgRejected     = "Invalid credentials or server not available"
	msgDisconnected = "Successfully disconnected from MT5"

	minCredentialLen = 3
	defaultLeverage  = 100
)

// Latency holds the artificial delay applied to each call.
type Latency struct {
	Connect    time.Duration
	Disconnect time.Duration
	Account    time.Duration
}

// DefaultLatency mirrors a slow desktop terminal.
func DefaultLatency() Latency {
	return Latency{
		Connect:    2 * time.Second,
		Disconnect: 1 * time.Second,
		Account:    500 * time.Millisecond,
	}
}

// Bridge simulates a terminal that accepts any login whose username and
// password are longer than three characters.
type Bridge struct {
	mu      sync.Mutex
	latency Latency
	rng     *rand.Rand
	logger  *zap.Logger
	account *core.AccountSnapshot
}

// Option configures the simulated bridge.
type Option func(*Bridge)

// WithLatency overrides the per-call delays.
func WithLatency(l Latency) Option {
	return func(b *Bridge) { b.latency = l }
}

// WithRand sets the random source used for account figures.
func WithRand(r *rand.Rand) Option {
	return func(b *Bridge) { b.rng = r }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(b *Bridge) { b.logger = l }
}

// New creates a simulated bridge.
func New(opts ...Option) *Bridge {
	b := &Bridge{
		latency: DefaultLatency(),
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Name returns the bridge name.
func (b *Bridge) Name() string {
	return "sim"
}

// Connect validates the credentials and issues a random account on success.
func (b *Bridge) Connect(ctx context.Context, creds core.Credentials) (*bridge.ConnectResult, error) {
	if err := creds.Validate(); err != nil {
		return &bridge.ConnectResult{Connected: false, Message: msgMissing}, nil
	}

	b.logger.Info("connecting to terminal",
		zap.String("username", creds.Username),
		zap.String("server", creds.Server),
		zap.String("terminal", creds.Terminal),
	)

	if err := sleep(ctx, b.latency.Connect); err != nil {
		return nil, err
	}

	if len(creds.Username) <= minCredentialLen || len(creds.Password) <= minCredentialLen {
		return &bridge.ConnectResult{Connected: false, Message: msgRejected}, nil
	}

	b.mu.Lock()
	acct := &core.AccountSnapshot{
		Login:      10_000_000 + b.rng.Int64N(90_000_000),
		Balance:    cents(b.rng.Float64() * 10000),
		Equity:     cents(b.rng.Float64() * 10000),
		Margin:     cents(b.rng.Float64() * 1000),
		FreeMargin: cents(b.rng.Float64() * 9000),
		Leverage:   defaultLeverage,
		Name:       creds.Username,
		Server:     creds.Server,
	}
	b.account = acct
	b.mu.Unlock()

	out := *acct
	return &bridge.ConnectResult{Connected: true, Message: msgConnected, Account: &out}, nil
}

// Disconnect always confirms after the configured delay.
func (b *Bridge) Disconnect(ctx context.Context) (*bridge.DisconnectResult, error) {
	if err := sleep(ctx, b.latency.Disconnect); err != nil {
		return nil, err
	}

	b.mu.Lock()
	b.account = nil
	b.mu.Unlock()

	return &bridge.DisconnectResult{Disconnected: true, Message: msgDisconnected}, nil
}

// AccountInfo returns the account issued by the last successful Connect.
func (b *Bridge) AccountInfo(ctx context.Context) (*core.AccountSnapshot, error) {
	if err := sleep(ctx, b.latency.Account); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.account == nil {
		return nil, nil
	}
	out := *b.account
	return &out, nil
}

// Adopt makes the bridge report acct as the live account, used when a
// persisted session is restored without a fresh login.
func (b *Bridge) Adopt(acct *core.AccountSnapshot) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if acct == nil {
		b.account = nil
		return
	}
	cp := *acct
	b.account = &cp
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func cents(v float64) float64 {
	return math.Round(v*100) / 100
}
