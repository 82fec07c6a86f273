package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
)

type Market struct {
	Symbol       string
	QtyPrecision int // знаков после запятой в размере базовой монеты
}

// LoadMarkets тянет метаданные спотовых инструментов. Обязателен до первой
// обработки сигнала: без точностей нельзя корректно выставить sell-ордер.
func (c *Client) LoadMarkets(ctx context.Context) error {
	_, err := Retry(ctx, defaultRetryAttempts, defaultRetryDelay, func(ctx context.Context) (struct{}, error) {
		if err := c.limiter.Acquire(ctx); err != nil {
			return struct{}{}, err
		}
		defer c.limiter.Release()
		return struct{}{}, c.loadMarkets(ctx)
	})
	return err
}

func (c *Client) loadMarkets(ctx context.Context) error {
	raw, err := c.request(ctx, http.MethodGet, "/api/v2/spot/public/symbols", "")
	if err != nil {
		return fmt.Errorf("loadMarkets: %w", err)
	}
	data, err := decodeEnvelope(raw)
	if err != nil {
		return fmt.Errorf("loadMarkets: %w", err)
	}

	var rows []struct {
		Symbol            string `json:"symbol"`
		QuantityPrecision string `json:"quantityPrecision"`
		Status            string `json:"status"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("loadMarkets decode data: %w", err)
	}

	markets := make(map[string]Market, len(rows))
	for _, row := range rows {
		prec, err := strconv.Atoi(row.QuantityPrecision)
		if err != nil {
			continue
		}
		markets[row.Symbol] = Market{Symbol: row.Symbol, QtyPrecision: prec}
	}
	if len(markets) == 0 {
		return fmt.Errorf("loadMarkets: empty symbol list")
	}

	c.mu.Lock()
	c.markets = markets
	c.mu.Unlock()
	return nil
}

// formatQty приводит размер к точности инструмента, всегда вниз: биржа
// отклонит продажу больше, чем есть на балансе.
func (c *Client) formatQty(symbol string, qty float64) (string, error) {
	c.mu.RLock()
	m, ok := c.markets[symbol]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("unknown symbol %q (markets not loaded?)", symbol)
	}
	pow := math.Pow10(m.QtyPrecision)
	floored := math.Floor(qty*pow) / pow
	return strconv.FormatFloat(floored, 'f', -1, 64), nil
}
