package models

import "time"

type PositionStatus string

const (
	PositionOpen   PositionStatus = "OPEN"
	PositionClosed PositionStatus = "CLOSED"
)

// Position — строка леджера по ключу (аккаунт, символ).
// Инвариант: не больше одной OPEN-строки на ключ; после CLOSED строка не меняется.
type Position struct {
	ID        int64
	AccountID string
	Symbol    string
	Status    PositionStatus

	Qty         float64 // базовая монета
	AvgCostUsdt float64 // VWAP по всем покупкам позиции

	TotalBuyFees    float64
	TotalSellFees   float64
	TotalBuyAmount  float64 // USDT, потраченные на покупки
	TotalSellAmount float64 // USDT, полученные с продаж

	RealizedPnl float64 // заполняется при закрытии

	OpenedAt time.Time
	ClosedAt *time.Time
}

func (p *Position) IsOpen() bool {
	return p.Status == PositionOpen
}
