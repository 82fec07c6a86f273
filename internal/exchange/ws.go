package exchange

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"signal_trader/pkg/logger"

	"github.com/gorilla/websocket"
)

const wsPublicURL = "wss://ws.bitget.com/v2/ws/public"

// PriceFeed держит кэш последних цен по публичному тикер-стриму.
// Используется только для отображения нереализованного P/L в /positions,
// торговый путь от него не зависит.
type PriceFeed struct {
	mu     sync.RWMutex
	prices map[string]float64

	dialer *websocket.Dialer
}

func NewPriceFeed() *PriceFeed {
	return &PriceFeed{
		prices: make(map[string]float64),
		dialer: &websocket.Dialer{},
	}
}

func (f *PriceFeed) setPrice(symbol string, price float64) {
	f.mu.Lock()
	f.prices[symbol] = price
	f.mu.Unlock()
}

// Price — последняя цена символа, 0 если тикера ещё не было.
func (f *PriceFeed) Price(symbol string) float64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.prices[symbol]
}

// Start запускает reconnect-цикл стрима. Пустой список символов — no-op.
func (f *PriceFeed) Start(ctx context.Context, symbols []string) {
	if len(symbols) == 0 {
		return
	}
	go f.run(ctx, symbols)
}

func (f *PriceFeed) run(ctx context.Context, symbols []string) {
	retry := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := f.dialer.Dial(wsPublicURL, nil)
		if err != nil {
			retry++
			if retry > 8 {
				logger.Error("price feed: giving up after %d dial attempts: %v", retry, err)
				return
			}
			time.Sleep(time.Duration(300*retry) * time.Millisecond)
			continue
		}
		retry = 0

		args := make([]map[string]string, 0, len(symbols))
		for _, s := range symbols {
			args = append(args, map[string]string{
				"instType": "SPOT",
				"channel":  "ticker",
				"instId":   s,
			})
		}
		_ = conn.WriteJSON(map[string]any{"op": "subscribe", "args": args})

		stopPing := make(chan struct{})
		go func() {
			t := time.NewTicker(25 * time.Second)
			defer t.Stop()
			for {
				select {
				case <-stopPing:
					return
				case <-ctx.Done():
					return
				case <-t.C:
					_ = conn.WriteMessage(websocket.TextMessage, []byte("ping"))
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				close(stopPing)
				_ = conn.Close()
				break
			}
			if string(msg) == "pong" {
				continue
			}
			var frame struct {
				Arg struct {
					Channel string `json:"channel"`
					InstID  string `json:"instId"`
				} `json:"arg"`
				Data []struct {
					LastPr string `json:"lastPr"`
				} `json:"data"`
			}
			if err := json.Unmarshal(msg, &frame); err != nil || frame.Arg.Channel != "ticker" {
				continue
			}
			for _, d := range frame.Data {
				if px, err := strconv.ParseFloat(d.LastPr, 64); err == nil && px != 0 {
					f.setPrice(frame.Arg.InstID, px)
				}
			}
		}

		select {
		case <-ctx.Done():
			return
		default:
			time.Sleep(1 * time.Second)
		}
	}
}
