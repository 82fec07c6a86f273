package models

type OrderStatus string

const (
	OrderLive      OrderStatus = "live"
	OrderPartially OrderStatus = "partially_filled"
	OrderFilled    OrderStatus = "filled"
	OrderCancelled OrderStatus = "cancelled"
)

// Order — нормализованный ответ биржи по ордеру.
type Order struct {
	ID     string
	Symbol string
	Status OrderStatus

	FilledQty float64 // базовая монета
	AvgPrice  float64
	Cost      float64 // USDT (quote volume)
	FeeCost   float64 // комиссия в USDT
}

// Filled — терминальный успех биржи. partially_filled им не считается:
// частичные продажи не реконсилируются (см. DESIGN.md).
func (o *Order) Filled() bool {
	return o.Status == OrderFilled
}
