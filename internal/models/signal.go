package models

import (
	"fmt"
	"strings"
)

type SignalKind string

const (
	SignalBuy  SignalKind = "buy"
	SignalSell SignalKind = "sell"
)

// Signal — директива купить/продать символ, опционально для конкретных трейдеров.
// Создаётся один раз на входе и дальше не мутируется.
type Signal struct {
	Kind   SignalKind
	Symbol string  // "BTCUSDT"
	Amount float64 // USDT, только для buy
	// Targets — id трейдеров; пустой список = все сконфигурированные.
	Targets []string
}

// ParseSignal валидирует сырые поля вебхука. Всё, что не прошло здесь,
// до диспетчера и трейдеров не доходит.
func ParseSignal(kind, symbol string, amount *float64, targets []string) (Signal, error) {
	k := SignalKind(strings.ToLower(kind))
	if k != SignalBuy && k != SignalSell {
		return Signal{}, fmt.Errorf("invalid type %q", kind)
	}
	if symbol == "" {
		return Signal{}, fmt.Errorf("symbol required")
	}
	sig := Signal{
		Kind:    k,
		Symbol:  strings.ToUpper(symbol),
		Targets: targets,
	}
	if k == SignalBuy {
		if amount == nil {
			return Signal{}, fmt.Errorf("amount required for buy")
		}
		if *amount <= 0 {
			return Signal{}, fmt.Errorf("amount must be positive")
		}
		sig.Amount = *amount
	}
	return sig, nil
}

// Base обрезает суффикс котируемой валюты: BTCUSDT -> BTC.
func (s Signal) Base() string {
	return strings.TrimSuffix(s.Symbol, "USDT")
}
