package http

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

func TestWebhookHandler(t *testing.T) {
	var got []tgbotapi.Update
	srv := NewServer(zerolog.Nop())
	srv.Webhook("s3cret", func(u tgbotapi.Update) { got = append(got, u) })

	body := `{"update_id": 42, "message": {"message_id": 7, "date": 0, "chat": {"id": 1, "type": "private"}, "text": "ciao"}}`

	req := httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body))
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("без секрета ожидали 401, получили %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, WebhookPath, strings.NewReader(body))
	req.Header.Set(SecretHeader, "s3cret")
	rec = httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("ожидали 200, получили %d", rec.Code)
	}
	if len(got) != 1 || got[0].UpdateID != 42 || got[0].Message.Text != "ciao" {
		t.Fatalf("обновление не доставлено: %+v", got)
	}
}

func TestHealthz(t *testing.T) {
	srv := NewServer(zerolog.Nop())
	rec := httptest.NewRecorder()
	srv.Router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthz: %d %q", rec.Code, rec.Body.String())
	}
}
