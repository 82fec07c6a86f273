package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignalBuy(t *testing.T) {
	amount := 100.0
	sig, err := ParseSignal("buy", "btcusdt", &amount, nil)
	require.NoError(t, err)

	assert.Equal(t, SignalBuy, sig.Kind)
	assert.Equal(t, "BTCUSDT", sig.Symbol)
	assert.Equal(t, 100.0, sig.Amount)
	assert.Empty(t, sig.Targets)
}

func TestParseSignalSellIgnoresAmount(t *testing.T) {
	sig, err := ParseSignal("sell", "ETHUSDT", nil, []string{"main"})
	require.NoError(t, err)

	assert.Equal(t, SignalSell, sig.Kind)
	assert.Zero(t, sig.Amount)
	assert.Equal(t, []string{"main"}, sig.Targets)
}

func TestParseSignalRejectsInvalid(t *testing.T) {
	amount := 10.0
	negative := -5.0

	cases := []struct {
		name   string
		kind   string
		symbol string
		amount *float64
	}{
		{"empty", "", "", nil},
		{"unknown kind", "foo", "BTCUSDT", &amount},
		{"missing symbol", "buy", "", &amount},
		{"buy without amount", "buy", "BTCUSDT", nil},
		{"buy negative amount", "buy", "BTCUSDT", &negative},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseSignal(tc.kind, tc.symbol, tc.amount, nil)
			assert.Error(t, err)
		})
	}
}

func TestSignalBase(t *testing.T) {
	assert.Equal(t, "BTC", Signal{Symbol: "BTCUSDT"}.Base())
}
