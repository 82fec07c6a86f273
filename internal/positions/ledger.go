package positions

import (
	"context"
	"errors"
	"time"

	"signal_trader/internal/models"
)

// ErrNoOpenPosition — продавать нечего. Для вызывающего это не авария,
// а штатный ответ «нет открытой позиции».
var ErrNoOpenPosition = errors.New("no open position")

type Store interface {
	// FindOpen возвращает nil, nil когда открытой строки по ключу нет.
	FindOpen(ctx context.Context, accountID, symbol string) (*models.Position, error)
	ListOpen(ctx context.Context, accountID string) ([]*models.Position, error)
	Insert(ctx context.Context, pos *models.Position) error
	Update(ctx context.Context, pos *models.Position) error
}

// Ledger — учёт позиций поверх Store. Обе мутации вызываются строго под
// локом (аккаунт, символ), поэтому read-modify-write здесь безопасен.
type Ledger struct {
	store Store
}

func NewLedger(store Store) *Ledger {
	return &Ledger{store: store}
}

// Open — текущая открытая позиция по ключу, nil когда её нет.
func (l *Ledger) Open(ctx context.Context, accountID, symbol string) (*models.Position, error) {
	return l.store.FindOpen(ctx, accountID, symbol)
}

// ApplyBuyFill записывает исполненную покупку. Нет открытой строки — создаёт
// новую (created=true); есть — доливает количество и пересчитывает VWAP:
// (oldQty·oldAvg + cost) / (oldQty+qty), то есть средняя по объёму,
// а не средняя цен филлов.
func (l *Ledger) ApplyBuyFill(
	ctx context.Context,
	accountID, symbol string,
	qty, avgPrice, cost, fee float64,
) (pos *models.Position, created bool, err error) {
	pos, err = l.store.FindOpen(ctx, accountID, symbol)
	if err != nil {
		return nil, false, err
	}

	if pos == nil {
		pos = &models.Position{
			AccountID:      accountID,
			Symbol:         symbol,
			Status:         models.PositionOpen,
			Qty:            qty,
			AvgCostUsdt:    avgPrice,
			TotalBuyFees:   fee,
			TotalBuyAmount: cost,
			OpenedAt:       time.Now().UTC(),
		}
		if err := l.store.Insert(ctx, pos); err != nil {
			return nil, false, err
		}
		return pos, true, nil
	}

	oldQty := pos.Qty
	newQty := oldQty + qty
	pos.AvgCostUsdt = (oldQty*pos.AvgCostUsdt + cost) / newQty
	pos.Qty = newQty
	pos.TotalBuyFees += fee
	pos.TotalBuyAmount += cost
	if err := l.store.Update(ctx, pos); err != nil {
		return nil, false, err
	}
	return pos, false, nil
}

// ApplySellFill закрывает позицию целиком: продажа всегда ликвидирует весь
// остаток одним ордером. После закрытия строка не мутируется.
func (l *Ledger) ApplySellFill(
	ctx context.Context,
	accountID, symbol string,
	proceeds, fee float64,
) (*models.Position, error) {
	pos, err := l.store.FindOpen(ctx, accountID, symbol)
	if err != nil {
		return nil, err
	}
	if pos == nil {
		return nil, ErrNoOpenPosition
	}

	pos.TotalSellAmount += proceeds
	pos.RealizedPnl = pos.TotalSellAmount - pos.TotalBuyAmount - pos.TotalBuyFees - fee
	pos.TotalSellFees = fee
	pos.Status = models.PositionClosed
	now := time.Now().UTC()
	pos.ClosedAt = &now

	if err := l.store.Update(ctx, pos); err != nil {
		return nil, err
	}
	return pos, nil
}
