package scheduler

import (
	"context"
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/newthinker/pairdash/internal/api/stream"
	"github.com/newthinker/pairdash/internal/bridge/mocks"
	"github.com/newthinker/pairdash/internal/core"
	"github.com/newthinker/pairdash/internal/indicator"
	"github.com/newthinker/pairdash/internal/session"
	"github.com/newthinker/pairdash/internal/storage/kv"
	"github.com/newthinker/pairdash/internal/strategy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type runLog struct {
	mu         sync.Mutex
	runs       map[string]int
	strategies int
}

func newRunLog() *runLog { return &runLog{runs: make(map[string]int)} }

func (l *runLog) RecordSchedulerRun(job, result string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs[job+"/"+result]++
}

func (l *runLog) SetStrategies(n int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.strategies = n
}

func (l *runLog) count(key string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.runs[key]
}

type captured struct {
	msgType string
	data    any
}

type broadcaster struct {
	mu   sync.Mutex
	msgs []captured
}

func (b *broadcaster) Broadcast(msgType string, data any) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.msgs = append(b.msgs, captured{msgType, data})
}

func (b *broadcaster) len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.msgs)
}

type failingSource struct{}

func (failingSource) FetchAll(context.Context) ([]indicator.StrategyIndicators, error) {
	return nil, core.ErrStorageCorrupt
}

func newDeps(t *testing.T) (Deps, *mocks.Bridge, *session.Manager, *broadcaster, *runLog) {
	t.Helper()
	store := kv.NewMemory()
	b := mocks.New()
	mgr := session.New(b, store)

	strategies := strategy.NewStore(store)
	_, err := strategies.Save(context.Background(), strategy.Strategy{Parameters: strategy.DefaultParameters()})
	require.NoError(t, err)
	gen := indicator.NewGenerator(indicator.WithRand(rand.New(rand.NewPCG(7, 7))))
	svc := indicator.NewService(gen, strategies, indicator.WithLatency(0))

	out := &broadcaster{}
	log := newRunLog()
	return Deps{Session: mgr, Indicators: svc, Broadcaster: out, Metrics: log}, b, mgr, out, log
}

func TestNew_RegistersConfiguredJobs(t *testing.T) {
	deps, _, _, _, _ := newDeps(t)

	s, err := New(Config{AccountRefresh: "@every 30s", IndicatorBroadcast: "@every 1m"}, deps, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Jobs())

	s, err = New(Config{AccountRefresh: "@every 30s"}, deps, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, s.Jobs())
}

func TestNew_RejectsBadSpec(t *testing.T) {
	deps, _, _, _, _ := newDeps(t)

	_, err := New(Config{AccountRefresh: "sometimes"}, deps, nil)
	assert.Error(t, err)
}

func TestRefreshAccount_SkipsWhenDisconnected(t *testing.T) {
	deps, b, _, _, log := newDeps(t)
	s, err := New(Config{}, deps, nil)
	require.NoError(t, err)

	s.run(JobAccountRefresh, s.refreshAccount)()

	assert.Equal(t, 1, log.count(JobAccountRefresh+"/skipped"))
	assert.Zero(t, b.AccountCalls())
}

func TestRefreshAccount_UpdatesSnapshot(t *testing.T) {
	deps, b, mgr, _, log := newDeps(t)
	_, err := mgr.Connect(context.Background(), core.Credentials{
		Username: "trader1", Password: "pass1", Server: "Demo", Terminal: "t",
	})
	require.NoError(t, err)

	acct := mocks.SampleAccount()
	acct.Balance = 20000
	b.SetAccount(acct, nil)

	s, err := New(Config{}, deps, nil)
	require.NoError(t, err)
	s.run(JobAccountRefresh, s.refreshAccount)()

	assert.Equal(t, 1, log.count(JobAccountRefresh+"/ok"))
	assert.Equal(t, 20000.0, mgr.Account().Balance)

	b.SetAccount(nil, errors.New("terminal gone"))
	s.run(JobAccountRefresh, s.refreshAccount)()
	assert.Equal(t, 1, log.count(JobAccountRefresh+"/error"))
}

func TestBroadcastIndicators(t *testing.T) {
	deps, _, _, out, log := newDeps(t)
	s, err := New(Config{}, deps, nil)
	require.NoError(t, err)

	require.NoError(t, s.BroadcastIndicatorsNow(context.Background()))

	require.Equal(t, 1, out.len())
	assert.Equal(t, stream.TypeIndicators, out.msgs[0].msgType)
	payload := out.msgs[0].data.(map[string]any)
	assert.Len(t, payload["indicators"], 1)
	assert.Len(t, payload["signals"], 1)
	assert.Equal(t, 1, log.strategies)
}

type alertLog struct {
	checked []core.AccountSnapshot
}

func (a *alertLog) Check(_ context.Context, acct core.AccountSnapshot) int {
	a.checked = append(a.checked, acct)
	return 0
}

func TestRefreshAccount_ChecksAlerts(t *testing.T) {
	deps, _, mgr, _, _ := newDeps(t)
	alerts := &alertLog{}
	deps.Alerts = alerts
	_, err := mgr.Connect(context.Background(), core.Credentials{
		Username: "trader1", Password: "pass1", Server: "Demo", Terminal: "t",
	})
	require.NoError(t, err)

	s, err := New(Config{}, deps, nil)
	require.NoError(t, err)
	require.NoError(t, s.RefreshAccountNow(context.Background()))

	require.Len(t, alerts.checked, 1)
	assert.Equal(t, mocks.SampleAccount().Login, alerts.checked[0].Login)
}

type signalRouter struct {
	routed   []indicator.SignalState
	cleanups int
	err      error
}

func (r *signalRouter) Route(_ context.Context, _ string, st indicator.SignalState) (bool, error) {
	r.routed = append(r.routed, st)
	return true, r.err
}

func (r *signalRouter) CleanupExpiredCooldowns() int {
	r.cleanups++
	return 0
}

func TestBroadcastIndicators_RoutesSignals(t *testing.T) {
	deps, _, _, out, _ := newDeps(t)
	rt := &signalRouter{err: errors.New("telegram down")}
	deps.Router = rt
	s, err := New(Config{}, deps, nil)
	require.NoError(t, err)

	// A failed delivery does not fail the broadcast.
	require.NoError(t, s.BroadcastIndicatorsNow(context.Background()))

	assert.Len(t, rt.routed, 1)
	assert.Equal(t, 1, rt.cleanups)
	assert.Equal(t, 1, out.len())
}

func TestBroadcastIndicators_SourceError(t *testing.T) {
	deps, _, _, out, log := newDeps(t)
	deps.Indicators = failingSource{}
	s, err := New(Config{}, deps, nil)
	require.NoError(t, err)

	s.run(JobIndicatorBroadcast, s.broadcastIndicators)()

	assert.Equal(t, 1, log.count(JobIndicatorBroadcast+"/error"))
	assert.Zero(t, out.len())
}

func TestScheduler_StartStop(t *testing.T) {
	deps, _, _, out, _ := newDeps(t)
	s, err := New(Config{IndicatorBroadcast: "@every 1s"}, deps, nil)
	require.NoError(t, err)

	s.Start()
	require.Eventually(t, func() bool { return out.len() > 0 }, 3*time.Second, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
