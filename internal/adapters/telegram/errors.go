package telegram

import (
	"errors"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"spot-bot/internal/domain"
)

var notFoundMarkers = []string{
	"message to edit not found",
	"message to delete not found",
	"message to copy not found",
	"message to forward not found",
	"message can't be deleted",
	"message_id_invalid",
	"user not found",
}

var forbiddenMarkers = []string{
	"chat not found",
	"peer_id_invalid",
	"bot can't initiate conversation",
}

// classify переводит ошибку Bot API в domain.PlatformError.
// "message is not modified" считается успехом.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *tgbotapi.Error
	if !errors.As(err, &apiErr) {
		return &domain.PlatformError{Kind: domain.PlatformTransient, Op: op, Err: err}
	}
	msg := strings.ToLower(apiErr.Message)
	kind := domain.PlatformFatal
	switch {
	case strings.Contains(msg, "message is not modified"):
		return nil
	case apiErr.Code == 403:
		kind = domain.PlatformForbidden
	case apiErr.Code == 429 || apiErr.Code >= 500:
		kind = domain.PlatformTransient
	case containsAny(msg, notFoundMarkers):
		kind = domain.PlatformNotFound
	case containsAny(msg, forbiddenMarkers):
		kind = domain.PlatformForbidden
	}
	return &domain.PlatformError{Kind: kind, Op: op, Err: err}
}

// retryAfter возвращает паузу, запрошенную платформой.
func retryAfter(err error) time.Duration {
	var apiErr *tgbotapi.Error
	if errors.As(err, &apiErr) && apiErr.RetryAfter > 0 {
		return time.Duration(apiErr.RetryAfter) * time.Second
	}
	return 0
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
