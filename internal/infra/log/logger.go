package log

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Options описывает, куда писать журнал.
type Options struct {
	AppEnv    string
	File      string
	ErrorFile string
	// Local включает запись в файлы; иначе журнал идёт только в stdout.
	Local bool
}

// NewLogger создаёт настроенный zerolog.
func NewLogger(opts Options) zerolog.Logger {
	level := zerolog.InfoLevel
	if opts.AppEnv == "dev" {
		level = zerolog.DebugLevel
	}
	zerolog.TimeFieldFormat = time.RFC3339

	var out io.Writer = os.Stdout
	if opts.AppEnv == "dev" {
		out = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen}
	}
	writers := []io.Writer{out}
	if opts.Local {
		if f := openLogFile(opts.File); f != nil {
			writers = append(writers, f)
		}
		if f := openLogFile(opts.ErrorFile); f != nil {
			writers = append(writers, errorOnly{w: f})
		}
	}
	return zerolog.New(zerolog.MultiLevelWriter(writers...)).With().Timestamp().Logger().Level(level)
}

func openLogFile(path string) *os.File {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil
	}
	return f
}

// errorOnly пропускает только записи уровня error и выше.
type errorOnly struct {
	w io.Writer
}

func (e errorOnly) Write(p []byte) (int, error) {
	return len(p), nil
}

func (e errorOnly) WriteLevel(level zerolog.Level, p []byte) (int, error) {
	if level < zerolog.ErrorLevel {
		return len(p), nil
	}
	return e.w.Write(p)
}
