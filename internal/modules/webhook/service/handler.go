package service

import (
	"crypto/subtle"
	"io"
	"net/http"

	"signal_trader/internal/models"
	"signal_trader/pkg/logger"

	"github.com/bytedance/sonic"
	"github.com/opentracing/opentracing-go"
)

// Enqueuer — всё, что вебхуку нужно от диспетчера.
type Enqueuer interface {
	Enqueue(sig models.Signal)
}

// Handler принимает алерты TradingView-стиля: общий секрет в теле,
// валидация сигнала до ядра. Невалидное до диспетчера не доходит.
type Handler struct {
	secret string
	d      Enqueuer
}

func NewHandler(secret string, d Enqueuer) *Handler {
	return &Handler{secret: secret, d: d}
}

type webhookPayload struct {
	Auth   string   `json:"auth"`
	Type   string   `json:"type"`
	Symbol string   `json:"symbol"`
	Amount *float64 `json:"amount"`
	Users  []string `json:"users"`
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/webhook", h.handleWebhook)
}

func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}
	var p webhookPayload
	if err := sonic.Unmarshal(body, &p); err != nil {
		http.Error(w, "invalid JSON", http.StatusBadRequest)
		return
	}

	if subtle.ConstantTimeCompare([]byte(p.Auth), []byte(h.secret)) != 1 {
		http.Error(w, "bad auth", http.StatusForbidden)
		return
	}

	sig, err := models.ParseSignal(p.Type, p.Symbol, p.Amount, p.Users)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}

	span := opentracing.GlobalTracer().StartSpan("webhook.signal")
	span.SetTag("signal.type", string(sig.Kind))
	span.SetTag("signal.symbol", sig.Symbol)
	defer span.Finish()

	logger.Info("received signal: %s %s targets=%d", sig.Kind, sig.Symbol, len(sig.Targets))
	h.d.Enqueue(sig)

	w.Header().Set("Content-Type", "application/json")
	out, _ := sonic.Marshal(map[string]string{"status": "ok"})
	_, _ = w.Write(out)
}
