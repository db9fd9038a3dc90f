package strategy

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/newthinker/pairdash/internal/core"
	"github.com/newthinker/pairdash/internal/storage/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParameters_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(p *Parameters)
		wantErr bool
	}{
		{"defaults", func(p *Parameters) {}, false},
		{"same pair", func(p *Parameters) { p.CurrencyPair2 = "eurusd" }, true},
		{"missing pair", func(p *Parameters) { p.CurrencyPair1 = "" }, true},
		{"rsi period low", func(p *Parameters) { p.RSIPeriod = 2 }, true},
		{"rsi period high", func(p *Parameters) { p.RSIPeriod = 51 }, true},
		{"correlation window", func(p *Parameters) { p.CorrelationWindow = 101 }, true},
		{"overbought", func(p *Parameters) { p.RSIOverbought = 96 }, true},
		{"oversold", func(p *Parameters) { p.RSIOversold = 4 }, true},
		{"oversold above overbought", func(p *Parameters) { p.RSIOverbought = 50; p.RSIOversold = 50 }, true},
		{"entry threshold", func(p *Parameters) { p.EntryThreshold = 1.2 }, true},
		{"exit threshold", func(p *Parameters) { p.ExitThreshold = -0.1 }, true},
		{"timeframe", func(p *Parameters) { p.Timeframe = "H2" }, true},
		{"weekly timeframe", func(p *Parameters) { p.Timeframe = "W1" }, false},
		{"lot size", func(p *Parameters) { p.LotSize1 = 0.001 }, true},
		{"lot size 2", func(p *Parameters) { p.LotSize2 = 11 }, true},
		{"magic number", func(p *Parameters) { p.MagicNumber = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := DefaultParameters()
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, core.ErrParamsInvalid))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStore_EmptyList(t *testing.T) {
	s := NewStore(kv.NewMemory())

	all, err := s.List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestStore_CRUD(t *testing.T) {
	ctx := context.Background()
	s := NewStore(kv.NewMemory())
	clock := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return clock }

	created, err := s.Save(ctx, Strategy{Name: "Majors", Parameters: DefaultParameters()})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, clock, created.CreatedAt)

	got, err := s.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Majors", got.Name)

	clock = clock.Add(time.Hour)
	got.Parameters.RSIPeriod = 21
	updated, err := s.Save(ctx, *got)
	require.NoError(t, err)
	assert.Equal(t, created.CreatedAt, updated.CreatedAt)
	assert.Equal(t, clock, updated.UpdatedAt)
	assert.Equal(t, 21, updated.Parameters.RSIPeriod)

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)

	require.NoError(t, s.Delete(ctx, created.ID))
	_, err = s.Get(ctx, created.ID)
	assert.True(t, errors.Is(err, core.ErrNotFound))
	assert.True(t, errors.Is(s.Delete(ctx, created.ID), core.ErrNotFound))
}

func TestStore_DefaultName(t *testing.T) {
	s := NewStore(kv.NewMemory())

	st, err := s.Save(context.Background(), Strategy{Parameters: DefaultParameters()})
	require.NoError(t, err)
	assert.Equal(t, "EURUSD/GBPUSD", st.Name)
}

func TestStore_RejectsInvalid(t *testing.T) {
	s := NewStore(kv.NewMemory())
	p := DefaultParameters()
	p.RSIPeriod = 0

	_, err := s.Save(context.Background(), Strategy{Parameters: p})
	assert.True(t, errors.Is(err, core.ErrParamsInvalid))
}

func TestStore_UpdateUnknown(t *testing.T) {
	s := NewStore(kv.NewMemory())

	_, err := s.Save(context.Background(), Strategy{ID: "missing", Parameters: DefaultParameters()})
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestStore_Corrupt(t *testing.T) {
	mem := kv.NewMemory()
	require.NoError(t, mem.Put(context.Background(), Key, []byte("[{")))
	s := NewStore(mem)

	_, err := s.List(context.Background())
	assert.True(t, errors.Is(err, core.ErrStorageCorrupt))
}

func TestStore_PersistsAcrossInstances(t *testing.T) {
	ctx := context.Background()
	store, err := kv.NewLocalFS(t.TempDir())
	require.NoError(t, err)

	created, err := NewStore(store).Save(ctx, Strategy{Name: "Yen crosses", Parameters: Parameters{
		CurrencyPair1: "USDJPY", CurrencyPair2: "EURJPY", RSIPeriod: 10, CorrelationWindow: 30,
		RSIOverbought: 75, RSIOversold: 25, EntryThreshold: 0.7, ExitThreshold: 0.4,
		Timeframe: "M15", LotSize1: 0.2, LotSize2: 0.2, MagicNumber: 777,
	}})
	require.NoError(t, err)

	all, err := NewStore(store).List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, created.ID, all[0].ID)
	assert.Equal(t, "M15", all[0].Parameters.Timeframe)
}
