package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"signal_trader/internal/models"

	"github.com/bytedance/sonic"
)

const (
	placeOrderPath  = "/api/v2/spot/trade/place-order"
	orderInfoPath   = "/api/v2/spot/trade/orderInfo"
	cancelOrderPath = "/api/v2/spot/trade/cancel-order"
)

// CreateMarketBuy ставит рыночную покупку на сумму в USDT. clientOID — токен
// идемпотентности: биржа дедуплицирует повторную постановку при ретрае.
func (c *Client) CreateMarketBuy(ctx context.Context, symbol string, quoteAmount float64, clientOID string) (string, error) {
	size := strconv.FormatFloat(quoteAmount, 'f', -1, 64)
	return c.placeOrder(ctx, symbol, "buy", size, clientOID)
}

// CreateMarketSell ставит рыночную продажу baseQty базовой монеты,
// приведённой к точности инструмента.
func (c *Client) CreateMarketSell(ctx context.Context, symbol string, baseQty float64, clientOID string) (string, error) {
	size, err := c.formatQty(symbol, baseQty)
	if err != nil {
		return "", fmt.Errorf("CreateMarketSell: %w", err)
	}
	return c.placeOrder(ctx, symbol, "sell", size, clientOID)
}

func (c *Client) placeOrder(ctx context.Context, symbol, side, size, clientOID string) (string, error) {
	body := map[string]string{
		"symbol":    symbol,
		"side":      side,
		"orderType": "market",
		"force":     "gtc",
		"size":      size,
		"clientOid": clientOID,
	}
	payload, err := sonic.Marshal(body)
	if err != nil {
		return "", fmt.Errorf("placeOrder marshal: %w", err)
	}

	return Retry(ctx, defaultRetryAttempts, defaultRetryDelay, func(ctx context.Context) (string, error) {
		if err := c.limiter.Acquire(ctx); err != nil {
			return "", err
		}
		defer c.limiter.Release()

		raw, err := c.request(ctx, http.MethodPost, placeOrderPath, string(payload))
		if err != nil {
			return "", fmt.Errorf("placeOrder: %w", err)
		}
		data, err := decodeEnvelope(raw)
		if err != nil {
			return "", fmt.Errorf("placeOrder: %w", err)
		}
		var r struct {
			OrderID string `json:"orderId"`
		}
		if err := json.Unmarshal(data, &r); err != nil {
			return "", fmt.Errorf("placeOrder decode data: %w", err)
		}
		if r.OrderID == "" {
			return "", fmt.Errorf("placeOrder: empty orderId, body=%s", string(raw))
		}
		return r.OrderID, nil
	})
}

// FetchOrder — нормализованное состояние ордера. Идемпотентен, ретраится слепо.
func (c *Client) FetchOrder(ctx context.Context, orderID, symbol string) (*models.Order, error) {
	return Retry(ctx, defaultRetryAttempts, defaultRetryDelay, func(ctx context.Context) (*models.Order, error) {
		if err := c.limiter.Acquire(ctx); err != nil {
			return nil, err
		}
		defer c.limiter.Release()
		return c.fetchOrder(ctx, orderID, symbol)
	})
}

func (c *Client) fetchOrder(ctx context.Context, orderID, symbol string) (*models.Order, error) {
	path := orderInfoPath + "?orderId=" + url.QueryEscape(orderID)
	raw, err := c.request(ctx, http.MethodGet, path, "")
	if err != nil {
		return nil, fmt.Errorf("fetchOrder: %w", err)
	}
	data, err := decodeEnvelope(raw)
	if err != nil {
		return nil, fmt.Errorf("fetchOrder: %w", err)
	}

	var rows []struct {
		OrderID     string          `json:"orderId"`
		Symbol      string          `json:"symbol"`
		Status      string          `json:"status"`
		BaseVolume  string          `json:"baseVolume"`
		QuoteVolume string          `json:"quoteVolume"`
		PriceAvg    string          `json:"priceAvg"`
		FeeDetail   json.RawMessage `json:"feeDetail"`
	}
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("fetchOrder decode data: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("fetchOrder: order %s not found", orderID)
	}
	row := rows[0]

	filled, _ := strconv.ParseFloat(row.BaseVolume, 64)
	cost, _ := strconv.ParseFloat(row.QuoteVolume, 64)
	avg, _ := strconv.ParseFloat(row.PriceAvg, 64)

	return &models.Order{
		ID:        row.OrderID,
		Symbol:    symbol,
		Status:    mapOrderStatus(row.Status),
		FilledQty: filled,
		AvgPrice:  avg,
		Cost:      cost,
		FeeCost:   parseFee(row.FeeDetail),
	}, nil
}

// CancelOrder снимает ещё открытый ордер. Идемпотентен с точки зрения
// вызывающего: повторная отмена уже снятого ордера — ошибка биржи,
// которую вызывающий трактует как best-effort.
func (c *Client) CancelOrder(ctx context.Context, orderID, symbol string) error {
	body, err := sonic.Marshal(map[string]string{
		"symbol":  symbol,
		"orderId": orderID,
	})
	if err != nil {
		return fmt.Errorf("cancelOrder marshal: %w", err)
	}
	_, err = Retry(ctx, defaultRetryAttempts, defaultRetryDelay, func(ctx context.Context) (struct{}, error) {
		if err := c.limiter.Acquire(ctx); err != nil {
			return struct{}{}, err
		}
		defer c.limiter.Release()

		raw, err := c.request(ctx, http.MethodPost, cancelOrderPath, string(body))
		if err != nil {
			return struct{}{}, fmt.Errorf("cancelOrder: %w", err)
		}
		if _, err := decodeEnvelope(raw); err != nil {
			return struct{}{}, fmt.Errorf("cancelOrder: %w", err)
		}
		return struct{}{}, nil
	})
	return err
}

func mapOrderStatus(s string) models.OrderStatus {
	switch s {
	case "filled", "full_fill":
		return models.OrderFilled
	case "partially_filled", "partial_fill":
		return models.OrderPartially
	case "cancelled", "canceled":
		return models.OrderCancelled
	default:
		return models.OrderLive
	}
}

// parseFee достаёт суммарную комиссию в USDT. Bitget отдаёт feeDetail
// то строкой, то объектом; комиссии со знаком минус.
func parseFee(raw json.RawMessage) float64 {
	if len(raw) == 0 {
		return 0
	}
	payload := raw
	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		payload = []byte(asString)
	}
	var detail struct {
		NewFees struct {
			TotalFee float64 `json:"t"`
		} `json:"newFees"`
	}
	if err := json.Unmarshal(payload, &detail); err != nil {
		return 0
	}
	return math.Abs(detail.NewFees.TotalFee)
}
