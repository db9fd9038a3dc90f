// Package session owns the broker connection lifecycle: the connection
// status, the account snapshot of the live session and the persisted record
// that lets a restart come back connected without logging in again.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/newthinker/pairdash/internal/bridge"
	"github.com/newthinker/pairdash/internal/core"
	"github.com/newthinker/pairdash/internal/notifier"
	"github.com/newthinker/pairdash/internal/storage/kv"
	"go.uber.org/zap"
)

// Storage keys of the persisted session.
const (
	KeyConnection  = "connection"
	KeyCredentials = "credentials"
)

const (
	titleConnected        = "Connected to MT5"
	titleConnectFailed    = "Connection Failed"
	titleConnectError     = "Connection Error"
	titleDisconnected     = "Disconnected from MT5"
	titleDisconnectError  = "Disconnection Error"
	titleReconnectFailed  = "Reconnection Failed"
	defaultConnectFailMsg = "Failed to connect to MT5"
)

// record is the persisted form of a successful login.
type record struct {
	Connected bool                  `json:"connected"`
	Message   string                `json:"message,omitempty"`
	Account   *core.AccountSnapshot `json:"account_info,omitempty"`
}

// Event describes a status transition, or an account refresh when From == To.
type Event struct {
	From    core.ConnectionStatus `json:"from"`
	To      core.ConnectionStatus `json:"to"`
	Account *core.AccountSnapshot `json:"account_info,omitempty"`
	At      time.Time             `json:"at"`
}

// State is a point-in-time view of the session.
type State struct {
	Status          core.ConnectionStatus `json:"status"`
	Account         *core.AccountSnapshot `json:"account_info"`
	LastCredentials *core.Credentials     `json:"last_credentials,omitempty"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// Recorder receives lifecycle metrics.
type Recorder interface {
	SetConnectionStatus(status string)
	RecordConnectAttempt(result string)
	RecordDisconnect(result string)
}

type nopRecorder struct{}

func (nopRecorder) SetConnectionStatus(string)  {}
func (nopRecorder) RecordConnectAttempt(string) {}
func (nopRecorder) RecordDisconnect(string)     {}

// adopter is implemented by bridges that can resume a restored session.
type adopter interface {
	Adopt(acct *core.AccountSnapshot)
}

// Manager is the single source of truth for the connection status.
//
// Calls are not serialized against each other: two overlapping Connect calls
// both reach the bridge and whichever resolves last decides the final status.
type Manager struct {
	bridge   bridge.Bridge
	store    kv.Store
	logger   *zap.Logger
	notifier notifier.Notifier
	metrics  Recorder
	now      func() time.Time

	// emitMu orders transitions and their delivery to subscribers.
	emitMu sync.Mutex

	mu        sync.RWMutex
	status    core.ConnectionStatus
	account   *core.AccountSnapshot
	lastCreds *core.Credentials
	updatedAt time.Time

	subMu   sync.Mutex
	subs    map[int]func(Event)
	nextSub int
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// WithNotifier sets where user-facing outcomes are reported.
func WithNotifier(n notifier.Notifier) Option {
	return func(m *Manager) { m.notifier = n }
}

// WithMetrics sets the metrics recorder.
func WithMetrics(r Recorder) Option {
	return func(m *Manager) { m.metrics = r }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// New creates a disconnected manager. Call Restore to pick up a persisted session.
func New(b bridge.Bridge, store kv.Store, opts ...Option) *Manager {
	m := &Manager{
		bridge:  b,
		store:   store,
		logger:  zap.NewNop(),
		metrics: nopRecorder{},
		now:     time.Now,
		status:  core.StatusDisconnected,
		subs:    make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.updatedAt = m.now()
	m.metrics.SetConnectionStatus(string(m.status))
	return m
}

// Status returns the current connection status.
func (m *Manager) Status() core.ConnectionStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// Account returns a copy of the current snapshot, nil unless connected.
func (m *Manager) Account() *core.AccountSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyAccount(m.account)
}

// State returns the full session view with the password masked.
func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := State{
		Status:    m.status,
		Account:   copyAccount(m.account),
		UpdatedAt: m.updatedAt,
	}
	if m.lastCreds != nil {
		masked := m.lastCreds.Masked()
		s.LastCredentials = &masked
	}
	return s
}

// Subscribe registers fn for every transition. Events are delivered
// synchronously in transition order; fn must not call Connect, Disconnect,
// Reconnect, Refresh or Restore.
func (m *Manager) Subscribe(fn func(Event)) (unsubscribe func()) {
	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.subMu.Lock()
			delete(m.subs, id)
			m.subMu.Unlock()
		})
	}
}

// Connect logs in with creds. The status is connecting from the moment the
// credentials pass validation until the bridge answers, and is connected or
// disconnected when Connect returns.
func (m *Manager) Connect(ctx context.Context, creds core.Credentials) (*core.AccountSnapshot, error) {
	if err := creds.Validate(); err != nil {
		m.metrics.RecordConnectAttempt("invalid")
		m.notify(ctx, notifier.KindError, titleConnectFailed, "All credentials are required")
		return nil, err
	}

	log := m.logger.With(
		zap.String("username", creds.Username),
		zap.String("server", creds.Server),
		zap.String("terminal", creds.Terminal),
	)

	m.transition(core.StatusConnecting, nil, nil)
	log.Info("connecting to broker", zap.String("bridge", m.bridge.Name()))

	res, err := m.bridge.Connect(ctx, creds)
	if err != nil {
		log.Warn("broker connect call failed", zap.Error(err))
		return nil, m.failConnect(ctx, titleConnectError, core.WrapError(core.ErrConnectionFailed, err), err.Error())
	}
	if res == nil || !res.Connected {
		msg := defaultConnectFailMsg
		if res != nil && res.Message != "" {
			msg = res.Message
		}
		log.Info("broker rejected login", zap.String("message", msg))
		return nil, m.failConnect(ctx, titleConnectFailed, core.WithMessage(core.ErrConnectionFailed, msg), msg)
	}

	acct := res.Account
	if acct == nil {
		acct = m.fetchAccount(ctx, creds)
	}

	m.persist(ctx, record{Connected: true, Message: res.Message, Account: acct}, &creds)

	m.mu.Lock()
	saved := creds
	m.lastCreds = &saved
	m.mu.Unlock()

	m.transition(core.StatusConnected, acct, nil)
	m.metrics.RecordConnectAttempt("success")
	log.Info("connected to broker", zap.Int64("login", acct.Login))
	m.notify(ctx, notifier.KindSuccess, titleConnected, res.Message)

	return copyAccount(acct), nil
}

// fetchAccount fills in the snapshot when the login answer carried none, so
// a connected session always has one.
func (m *Manager) fetchAccount(ctx context.Context, creds core.Credentials) *core.AccountSnapshot {
	acct, err := m.bridge.AccountInfo(ctx)
	if err != nil {
		m.logger.Warn("account info unavailable after login", zap.Error(err))
	}
	if acct == nil {
		acct = &core.AccountSnapshot{Name: creds.Username, Server: creds.Server}
	}
	return acct
}

func (m *Manager) failConnect(ctx context.Context, title string, err *core.Error, msg string) error {
	m.transition(core.StatusDisconnected, nil, nil)
	m.clearPersisted(ctx)
	m.metrics.RecordConnectAttempt("failure")
	m.notify(ctx, notifier.KindError, title, msg)
	return err
}

// Disconnect ends the session. Local state becomes disconnected before the
// bridge is asked, and stays so whatever the bridge answers; the returned
// error only reports whether the bridge confirmed.
func (m *Manager) Disconnect(ctx context.Context) error {
	if _, ok := m.transition(core.StatusDisconnected, nil, func(from core.ConnectionStatus) bool {
		return from != core.StatusDisconnected
	}); !ok {
		return core.ErrNotConnected
	}

	res, err := m.bridge.Disconnect(ctx)
	m.clearPersisted(ctx)

	if err != nil {
		m.logger.Warn("broker disconnect call failed", zap.Error(err))
		m.metrics.RecordDisconnect("failure")
		m.notify(ctx, notifier.KindError, titleDisconnectError, err.Error())
		return core.WrapError(core.ErrDisconnectFailed, err)
	}
	if res == nil || !res.Disconnected {
		msg := "Failed to disconnect from MT5"
		if res != nil && res.Message != "" {
			msg = res.Message
		}
		m.metrics.RecordDisconnect("failure")
		m.notify(ctx, notifier.KindError, titleDisconnectError, msg)
		return core.WithMessage(core.ErrDisconnectFailed, msg)
	}

	m.metrics.RecordDisconnect("success")
	m.logger.Info("disconnected from broker")
	m.notify(ctx, notifier.KindSuccess, titleDisconnected, res.Message)
	return nil
}

// Reconnect repeats Connect with the credentials of the last successful login.
func (m *Manager) Reconnect(ctx context.Context) (*core.AccountSnapshot, error) {
	m.mu.RLock()
	var creds *core.Credentials
	if m.lastCreds != nil {
		c := *m.lastCreds
		creds = &c
	}
	m.mu.RUnlock()

	if creds == nil {
		m.notify(ctx, notifier.KindError, titleReconnectFailed, core.ErrNoPriorCredentials.Message)
		return nil, core.ErrNoPriorCredentials
	}
	return m.Connect(ctx, *creds)
}

// Refresh replaces the snapshot with the bridge's current account figures.
func (m *Manager) Refresh(ctx context.Context) (*core.AccountSnapshot, error) {
	if m.Status() != core.StatusConnected {
		return nil, core.ErrNotConnected
	}

	acct, err := m.bridge.AccountInfo(ctx)
	if err != nil {
		return nil, core.WrapError(core.ErrConnectionFailed, err)
	}
	if acct == nil {
		return nil, core.WithMessage(core.ErrNotConnected, "bridge reports no active account")
	}

	// The record is written inside the transition so a Disconnect cannot
	// clear the keys between the two.
	if _, ok := m.transitionThen(core.StatusConnected, acct, func(from core.ConnectionStatus) bool {
		return from == core.StatusConnected
	}, func() {
		m.persist(ctx, record{Connected: true, Account: acct}, nil)
	}); !ok {
		return nil, core.ErrNotConnected
	}

	return copyAccount(acct), nil
}

// Restore brings back a persisted session without contacting the broker.
// Malformed records are discarded and leave the manager disconnected.
func (m *Manager) Restore(ctx context.Context) error {
	var rec record
	recErr := kv.GetJSON(ctx, m.store, KeyConnection, &rec)
	var creds core.Credentials
	credErr := kv.GetJSON(ctx, m.store, KeyCredentials, &creds)

	if errors.Is(recErr, core.ErrStorageCorrupt) || errors.Is(credErr, core.ErrStorageCorrupt) {
		m.logger.Warn("discarding malformed persisted session",
			zap.NamedError("connection_error", recErr),
			zap.NamedError("credentials_error", credErr),
		)
		m.clearPersisted(ctx)
		return nil
	}
	for _, err := range []error{recErr, credErr} {
		if err == nil {
			continue
		}
		if errors.Is(err, core.ErrNotFound) {
			return nil
		}
		return err
	}

	if !rec.Connected {
		return nil
	}
	if rec.Account == nil || creds.Validate() != nil {
		m.logger.Warn("discarding incomplete persisted session")
		m.clearPersisted(ctx)
		return nil
	}

	if _, ok := m.transition(core.StatusConnected, rec.Account, func(from core.ConnectionStatus) bool {
		return from == core.StatusDisconnected
	}); !ok {
		return nil
	}

	m.mu.Lock()
	m.lastCreds = &creds
	m.mu.Unlock()

	if a, ok := m.bridge.(adopter); ok {
		a.Adopt(rec.Account)
	}

	m.logger.Info("restored persisted session",
		zap.Int64("login", rec.Account.Login),
		zap.String("server", rec.Account.Server),
	)
	return nil
}

// transition sets the status when allow accepts the current one (nil allows
// any) and delivers the event. It returns the previous status.
func (m *Manager) transition(to core.ConnectionStatus, acct *core.AccountSnapshot, allow func(core.ConnectionStatus) bool) (core.ConnectionStatus, bool) {
	return m.transitionThen(to, acct, allow, nil)
}

// transitionThen is transition with commit run after the state change and
// before subscribers are told, while no other transition can start.
func (m *Manager) transitionThen(to core.ConnectionStatus, acct *core.AccountSnapshot, allow func(core.ConnectionStatus) bool, commit func()) (core.ConnectionStatus, bool) {
	m.emitMu.Lock()
	defer m.emitMu.Unlock()

	m.mu.Lock()
	from := m.status
	if allow != nil && !allow(from) {
		m.mu.Unlock()
		return from, false
	}
	m.status = to
	m.account = copyAccount(acct)
	m.updatedAt = m.now()
	ev := Event{From: from, To: to, Account: copyAccount(acct), At: m.updatedAt}
	m.mu.Unlock()

	if from != to {
		m.logger.Debug("connection status changed",
			zap.String("from", string(from)),
			zap.String("to", string(to)),
		)
	}
	m.metrics.SetConnectionStatus(string(to))
	if commit != nil {
		commit()
	}

	m.subMu.Lock()
	subs := make([]func(Event), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	m.subMu.Unlock()

	for _, fn := range subs {
		fn(ev)
	}
	return from, true
}

// persist writes the session record, and the credentials when given. Storage
// failures are logged; the in-memory state stays authoritative.
func (m *Manager) persist(ctx context.Context, rec record, creds *core.Credentials) {
	if err := kv.PutJSON(ctx, m.store, KeyConnection, rec); err != nil {
		m.logger.Warn("persisting session failed", zap.Error(err))
	}
	if creds == nil {
		return
	}
	if err := kv.PutJSON(ctx, m.store, KeyCredentials, creds); err != nil {
		m.logger.Warn("persisting credentials failed", zap.Error(err))
	}
}

func (m *Manager) clearPersisted(ctx context.Context) {
	for _, key := range []string{KeyConnection, KeyCredentials} {
		if err := m.store.Delete(ctx, key); err != nil {
			m.logger.Warn("removing persisted session failed", zap.String("key", key), zap.Error(err))
		}
	}
}

func (m *Manager) notify(ctx context.Context, kind notifier.Kind, title, msg string) {
	if m.notifier == nil {
		return
	}
	if err := m.notifier.Notify(ctx, notifier.New(kind, title, msg)); err != nil {
		m.logger.Warn("notification delivery failed", zap.String("title", title), zap.Error(err))
	}
}

func copyAccount(a *core.AccountSnapshot) *core.AccountSnapshot {
	if a == nil {
		return nil
	}
	cp := *a
	return &cp
}
