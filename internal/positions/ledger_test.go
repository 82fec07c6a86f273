package positions

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_trader/internal/models"
)

// memStore — хранилище в памяти для тестов Ledger. Возвращает копии строк,
// как это делает pg-реализация.
type memStore struct {
	seq  int64
	rows map[int64]models.Position
}

func newMemStore() *memStore {
	return &memStore{rows: map[int64]models.Position{}}
}

func (s *memStore) FindOpen(_ context.Context, accountID, symbol string) (*models.Position, error) {
	for _, row := range s.rows {
		if row.AccountID == accountID && row.Symbol == symbol && row.Status == models.PositionOpen {
			cp := row
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) ListOpen(_ context.Context, accountID string) ([]*models.Position, error) {
	var out []*models.Position
	for _, row := range s.rows {
		if row.AccountID == accountID && row.Status == models.PositionOpen {
			cp := row
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *memStore) Insert(_ context.Context, pos *models.Position) error {
	s.seq++
	pos.ID = s.seq
	s.rows[pos.ID] = *pos
	return nil
}

func (s *memStore) Update(_ context.Context, pos *models.Position) error {
	s.rows[pos.ID] = *pos
	return nil
}

func TestApplyBuyFillCreatesPosition(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newMemStore())

	pos, created, err := ledger.ApplyBuyFill(ctx, "main", "BTCUSDT", 0.001, 100_000, 100, 0.1)
	require.NoError(t, err)
	require.True(t, created)

	assert.Equal(t, models.PositionOpen, pos.Status)
	assert.Equal(t, 0.001, pos.Qty)
	assert.Equal(t, 100_000.0, pos.AvgCostUsdt)
	assert.Equal(t, 100.0, pos.TotalBuyAmount)
	assert.Equal(t, 0.1, pos.TotalBuyFees)
}

func TestApplyBuyFillAveragesByVolume(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newMemStore())

	_, created, err := ledger.ApplyBuyFill(ctx, "main", "BTCUSDT", 0.001, 100_000, 100, 0.1)
	require.NoError(t, err)
	require.True(t, created)

	// долив 0.0005 BTC за 50 USDT по той же цене средняя не меняется
	pos, created, err := ledger.ApplyBuyFill(ctx, "main", "BTCUSDT", 0.0005, 100_000, 50, 0.05)
	require.NoError(t, err)
	assert.False(t, created)
	assert.InDelta(t, 0.0015, pos.Qty, 1e-12)
	assert.InDelta(t, 100_000, pos.AvgCostUsdt, 1e-6)
	assert.InDelta(t, 150, pos.TotalBuyAmount, 1e-9)
	assert.InDelta(t, 0.15, pos.TotalBuyFees, 1e-12)
}

func TestApplyBuyFillVwapIsVolumeWeighted(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newMemStore())

	_, _, err := ledger.ApplyBuyFill(ctx, "main", "ETHUSDT", 1, 2000, 2000, 2)
	require.NoError(t, err)
	pos, _, err := ledger.ApplyBuyFill(ctx, "main", "ETHUSDT", 3, 4000, 12000, 12)
	require.NoError(t, err)

	// (1·2000 + 12000) / 4 = 3500 — именно средняя по объёму, не (2000+4000)/2
	assert.InDelta(t, 3500, pos.AvgCostUsdt, 1e-9)
}

func TestApplySellFillClosesAndRealizesPnl(t *testing.T) {
	ctx := context.Background()
	store := newMemStore()
	ledger := NewLedger(store)

	_, _, err := ledger.ApplyBuyFill(ctx, "main", "BTCUSDT", 0.001, 100_000, 100, 0.1)
	require.NoError(t, err)

	pos, err := ledger.ApplySellFill(ctx, "main", "BTCUSDT", 110, 0.11)
	require.NoError(t, err)

	assert.Equal(t, models.PositionClosed, pos.Status)
	require.NotNil(t, pos.ClosedAt)
	// 110 − 100 − 0.1 − 0.11
	assert.InDelta(t, 9.79, pos.RealizedPnl, 1e-9)
	assert.Equal(t, 0.11, pos.TotalSellFees)

	// закрытая строка больше не видна как открытая
	open, err := ledger.Open(ctx, "main", "BTCUSDT")
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestApplySellFillNoOpenPosition(t *testing.T) {
	ledger := NewLedger(newMemStore())

	_, err := ledger.ApplySellFill(context.Background(), "main", "BTCUSDT", 100, 0.1)
	assert.ErrorIs(t, err, ErrNoOpenPosition)
}

func TestBuyAfterCloseOpensFreshPosition(t *testing.T) {
	ctx := context.Background()
	ledger := NewLedger(newMemStore())

	_, _, err := ledger.ApplyBuyFill(ctx, "main", "BTCUSDT", 0.001, 100_000, 100, 0.1)
	require.NoError(t, err)
	_, err = ledger.ApplySellFill(ctx, "main", "BTCUSDT", 110, 0.11)
	require.NoError(t, err)

	pos, created, err := ledger.ApplyBuyFill(ctx, "main", "BTCUSDT", 0.002, 90_000, 180, 0.18)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, 90_000.0, pos.AvgCostUsdt)
	assert.Equal(t, 0.18, pos.TotalBuyFees)
}
