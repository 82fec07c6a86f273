package exchange

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

const baseURL = "https://api.bitget.com"

// Client — подписанный REST-клиент Bitget spot. Каждый исходящий вызов
// проходит через общий RateLimiter и Retry на месте вызова.
type Client struct {
	http    *http.Client
	limiter *RateLimiter

	apiKey    string
	apiSecret string
	passph    string
	demo      bool

	mu      sync.RWMutex
	markets map[string]Market
}

func NewClient(limiter *RateLimiter, apiKey, apiSecret, passphrase string, demo bool) *Client {
	return &Client{
		http:      &http.Client{Timeout: 10 * time.Second},
		limiter:   limiter,
		apiKey:    apiKey,
		apiSecret: apiSecret,
		passph:    passphrase,
		demo:      demo,
		markets:   make(map[string]Market),
	}
}

func (c *Client) sign(ts, method, requestPath, body string) string {
	h := hmac.New(sha256.New, []byte(c.apiSecret))
	h.Write([]byte(ts + method + requestPath + body))
	return base64.StdEncoding.EncodeToString(h.Sum(nil))
}

// request подписывает и исполняет один HTTP-вызов. Лимитер и ретраи
// навешиваются выше, на операциях.
func (c *Client) request(ctx context.Context, method, requestPath, body string) ([]byte, error) {
	var reader io.Reader
	if body != "" {
		reader = bytes.NewReader([]byte(body))
	}
	req, err := http.NewRequestWithContext(ctx, method, baseURL+requestPath, reader)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	ts := strconv.FormatInt(time.Now().UnixMilli(), 10)
	req.Header.Set("ACCESS-KEY", c.apiKey)
	req.Header.Set("ACCESS-SIGN", c.sign(ts, method, requestPath, body))
	req.Header.Set("ACCESS-TIMESTAMP", ts)
	req.Header.Set("ACCESS-PASSPHRASE", c.passph)
	req.Header.Set("Content-Type", "application/json")
	if c.demo {
		req.Header.Set("paptrading", "1")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	rb, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, string(rb))
	}
	return rb, nil
}

type apiResponse struct {
	Code string          `json:"code"`
	Msg  string          `json:"msg"`
	Data json.RawMessage `json:"data"`
}

// decodeEnvelope проверяет общий код ответа Bitget и отдаёт data.
func decodeEnvelope(raw []byte) (json.RawMessage, error) {
	var r apiResponse
	if err := json.Unmarshal(raw, &r); err != nil {
		return nil, fmt.Errorf("decode: %w; body=%s", err, string(raw))
	}
	if r.Code != "00000" {
		return nil, fmt.Errorf("bitget error: code=%s msg=%s", r.Code, r.Msg)
	}
	return r.Data, nil
}
