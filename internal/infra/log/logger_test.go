package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewLoggerSplitsErrorFile(t *testing.T) {
	dir := t.TempDir()
	all := filepath.Join(dir, "spot.log")
	errs := filepath.Join(dir, "errors", "spot_error.log")

	logger := NewLogger(Options{AppEnv: "prod", File: all, ErrorFile: errs, Local: true})
	logger.Info().Msg("avviato")
	logger.Error().Msg("guasto")

	allData, err := os.ReadFile(all)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	if !strings.Contains(string(allData), "avviato") || !strings.Contains(string(allData), "guasto") {
		t.Fatalf("в общем журнале должны быть обе записи: %s", allData)
	}
	errData, err := os.ReadFile(errs)
	if err != nil {
		t.Fatalf("read error log: %v", err)
	}
	if strings.Contains(string(errData), "avviato") {
		t.Fatalf("в журнале ошибок не должно быть info: %s", errData)
	}
	if !strings.Contains(string(errData), "guasto") {
		t.Fatalf("в журнале ошибок нет error: %s", errData)
	}
}
