package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
)

// AvailableUSDT — свободный USDT-баланс учётки.
func (c *Client) AvailableUSDT(ctx context.Context) (float64, error) {
	return Retry(ctx, defaultRetryAttempts, defaultRetryDelay, func(ctx context.Context) (float64, error) {
		if err := c.limiter.Acquire(ctx); err != nil {
			return 0, err
		}
		defer c.limiter.Release()
		return c.availableUSDT(ctx)
	})
}

func (c *Client) availableUSDT(ctx context.Context) (float64, error) {
	raw, err := c.request(ctx, http.MethodGet, "/api/v2/spot/account/assets?coin=USDT", "")
	if err != nil {
		return 0, fmt.Errorf("availableUSDT: %w", err)
	}
	data, err := decodeEnvelope(raw)
	if err != nil {
		return 0, fmt.Errorf("availableUSDT: %w", err)
	}

	var rows []struct {
		Coin      string `json:"coin"`
		Available string `json:"available"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return 0, fmt.Errorf("availableUSDT decode data: %w", err)
	}
	for _, row := range rows {
		if row.Coin != "USDT" {
			continue
		}
		free, err := strconv.ParseFloat(row.Available, 64)
		if err != nil {
			return 0, fmt.Errorf("availableUSDT parse %q: %w", row.Available, err)
		}
		return free, nil
	}
	// нет строки USDT = нулевой баланс, это не ошибка
	return 0, nil
}
