package bot

import (
	"context"

	"github.com/rs/zerolog"

	"spot-bot/internal/infra/clock"
)

// Loop выполняет задачи по одной в порядке поступления.
// Все изменения состояния бота проходят через него.
type Loop struct {
	jobs chan clock.Job
	log  zerolog.Logger
}

// NewLoop создаёт цикл с очередью размера buffer.
func NewLoop(buffer int, log zerolog.Logger) *Loop {
	return &Loop{jobs: make(chan clock.Job, buffer), log: log.With().Str("component", "loop").Logger()}
}

// Dispatch ставит задачу в очередь. Блокируется, пока в очереди нет места.
func (l *Loop) Dispatch(job clock.Job) {
	l.jobs <- job
}

// Run выполняет задачи до отмены ctx.
func (l *Loop) Run(ctx context.Context) error {
	l.log.Info().Msg("цикл событий запущен")
	for {
		select {
		case <-ctx.Done():
			l.log.Info().Msg("цикл событий остановлен")
			return nil
		case job := <-l.jobs:
			l.run(ctx, job)
		}
	}
}

func (l *Loop) run(ctx context.Context, job clock.Job) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Interface("panic", r).Msg("паника в задаче цикла")
		}
	}()
	job(ctx)
}
