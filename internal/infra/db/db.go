package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

//go:embed scripts/*.sql
var scripts embed.FS

// Dialect определяет диалект SQL хранилища.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// Config описывает подключение к хранилищу.
type Config struct {
	// File: путь к файлу SQLite. Используется, если DSN пуст.
	File string
	// DSN: строка подключения к PostgreSQL.
	DSN string
	// Reset удаляет все таблицы перед инициализацией.
	Reset bool
}

// Open открывает хранилище и применяет схему.
func Open(ctx context.Context, cfg Config, log zerolog.Logger) (*Store, error) {
	var (
		conn    *sql.DB
		dialect Dialect
		err     error
	)
	if strings.TrimSpace(cfg.DSN) != "" {
		dialect = DialectPostgres
		conn, err = sql.Open("pgx", cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		conn.SetMaxOpenConns(5)
	} else {
		dialect = DialectSQLite
		if strings.TrimSpace(cfg.File) == "" {
			return nil, fmt.Errorf("db file is required")
		}
		path := filepath.Clean(cfg.File)
		if dir := filepath.Dir(path); dir != "" {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
		conn, err = sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)")
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// SQLite сериализует запись, одного соединения достаточно.
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(time.Hour)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := conn.PingContext(pingCtx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	store := &Store{conn: conn, dialect: dialect, log: log}
	if cfg.Reset {
		if err := store.ExecScript(ctx, "reset.sql"); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	if err := store.ExecScript(ctx, "init.sql"); err != nil {
		_ = conn.Close()
		return nil, err
	}
	return store, nil
}

// Close закрывает подключение.
func (s *Store) Close() error {
	if s == nil || s.conn == nil {
		return nil
	}
	return s.conn.Close()
}

// Dialect возвращает диалект хранилища.
func (s *Store) Dialect() Dialect {
	return s.dialect
}
