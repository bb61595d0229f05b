package http

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// SecretHeader: заголовок, которым Telegram подписывает запросы вебхука.
const SecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// Sink получает декодированный апдейт.
type Sink func(tgbotapi.Update)

// WebhookHandler принимает обновления Telegram и передаёт их в sink.
func WebhookHandler(secret string, sink Sink) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(SecretHeader)), []byte(secret)) != 1 {
			WriteError(w, http.StatusUnauthorized, fmt.Errorf("invalid secret"))
			return
		}
		var upd tgbotapi.Update
		if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
			WriteError(w, http.StatusBadRequest, err)
			return
		}
		sink(upd)
		w.WriteHeader(http.StatusOK)
	}
}

// ErrorResponse описывает ошибку.
type ErrorResponse struct {
	Error string `json:"error"`
}

// WriteError отправляет JSON с ошибкой.
func WriteError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorResponse{Error: err.Error()})
}
