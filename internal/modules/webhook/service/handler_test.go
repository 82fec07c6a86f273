package service

import (
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signal_trader/internal/models"
	"signal_trader/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

type captureEnqueuer struct {
	sigs []models.Signal
}

func (c *captureEnqueuer) Enqueue(sig models.Signal) {
	c.sigs = append(c.sigs, sig)
}

func serve(h *Handler, method, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	h.Register(mux)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, "/webhook", strings.NewReader(body))
	mux.ServeHTTP(rec, req)
	return rec
}

func TestWebhookAcceptsValidBuy(t *testing.T) {
	q := &captureEnqueuer{}
	h := NewHandler("tv_secret", q)

	rec := serve(h, http.MethodPost,
		`{"auth":"tv_secret","type":"buy","symbol":"btcusdt","amount":100,"users":["main"]}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	require.Len(t, q.sigs, 1)
	sig := q.sigs[0]
	assert.Equal(t, models.SignalBuy, sig.Kind)
	assert.Equal(t, "BTCUSDT", sig.Symbol)
	assert.Equal(t, 100.0, sig.Amount)
	assert.Equal(t, []string{"main"}, sig.Targets)
}

func TestWebhookRejectsNonPost(t *testing.T) {
	q := &captureEnqueuer{}
	h := NewHandler("tv_secret", q)

	rec := serve(h, http.MethodGet, "")

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Empty(t, q.sigs)
}

func TestWebhookRejectsMalformedJSON(t *testing.T) {
	q := &captureEnqueuer{}
	h := NewHandler("tv_secret", q)

	rec := serve(h, http.MethodPost, `{"auth":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, q.sigs)
}

func TestWebhookRejectsBadSecret(t *testing.T) {
	q := &captureEnqueuer{}
	h := NewHandler("tv_secret", q)

	rec := serve(h, http.MethodPost,
		`{"auth":"wrong","type":"buy","symbol":"BTCUSDT","amount":100}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, q.sigs)
}

func TestWebhookRejectsInvalidSignal(t *testing.T) {
	q := &captureEnqueuer{}
	h := NewHandler("tv_secret", q)

	cases := []struct {
		name string
		body string
	}{
		{"unknown type", `{"auth":"tv_secret","type":"hold","symbol":"BTCUSDT"}`},
		{"missing symbol", `{"auth":"tv_secret","type":"buy","amount":100}`},
		{"buy without amount", `{"auth":"tv_secret","type":"buy","symbol":"BTCUSDT"}`},
		{"negative amount", `{"auth":"tv_secret","type":"buy","symbol":"BTCUSDT","amount":-5}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, http.MethodPost, tc.body)
			assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		})
	}
	assert.Empty(t, q.sigs)
}

func TestWebhookSellWithoutAmount(t *testing.T) {
	q := &captureEnqueuer{}
	h := NewHandler("tv_secret", q)

	rec := serve(h, http.MethodPost,
		`{"auth":"tv_secret","type":"sell","symbol":"ETHUSDT"}`)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, q.sigs, 1)
	assert.Equal(t, models.SignalSell, q.sigs[0].Kind)
	assert.Zero(t, q.sigs[0].Amount)
}
