package bot

import (
	"context"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"

	"spot-bot/internal/domain"
)

const maxReportLen = 3500

// ErrorReporter пишет необработанные ошибки в лог и отправляет отчёт в группу админов.
type ErrorReporter struct {
	gw           domain.Gateway
	adminGroupID int64
	token        string
	log          zerolog.Logger
}

// NewErrorReporter создаёт репортер. token вырезается из всех отчётов.
func NewErrorReporter(gw domain.Gateway, adminGroupID int64, token string, log zerolog.Logger) *ErrorReporter {
	return &ErrorReporter{gw: gw, adminGroupID: adminGroupID, token: token, log: log}
}

// Report сообщает об ошибке обработчика where.
func (r *ErrorReporter) Report(ctx context.Context, where string, err error) {
	zerolog.Ctx(ctx).Error().Err(err).Str("handler", where).Msg("ошибка обработки")
	r.send(ctx, fmt.Sprintf("⚠️ Errore in %s:\n%v", where, err))
}

// Recover перехватывает панику обработчика where. Вызывается через defer.
func (r *ErrorReporter) Recover(ctx context.Context, where string) {
	rec := recover()
	if rec == nil {
		return
	}
	stack := string(debug.Stack())
	zerolog.Ctx(ctx).Error().Interface("panic", rec).Str("handler", where).Str("stack", stack).Msg("паника в обработчике")
	r.send(ctx, fmt.Sprintf("⚠️ Panic in %s: %v\n\n%s", where, rec, stack))
}

func (r *ErrorReporter) send(ctx context.Context, text string) {
	if r.adminGroupID == 0 {
		return
	}
	text = r.scrub(text)
	if runes := []rune(text); len(runes) > maxReportLen {
		text = string(runes[:maxReportLen]) + "…"
	}
	if _, err := r.gw.Send(ctx, r.adminGroupID, domain.Text(text), domain.SendOptions{}); err != nil {
		r.log.Warn().Err(err).Msg("не удалось отправить отчёт об ошибке")
	}
}

func (r *ErrorReporter) scrub(text string) string {
	if r.token == "" {
		return text
	}
	return strings.ReplaceAll(text, r.token, "<token>")
}
