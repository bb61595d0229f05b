package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// AppConfig описывает конфигурацию бота.
type AppConfig struct {
	AppEnv      string `yaml:"app_env" envconfig:"APP_ENV"`
	Token       string `yaml:"token" envconfig:"TOKEN"`
	BotTag      string `yaml:"bot_tag" envconfig:"BOT_TAG"`
	MetricsAddr string `yaml:"metrics_addr" envconfig:"METRICS_ADDR"`
	WebhookURL  string `yaml:"webhook_url" envconfig:"WEBHOOK_URL"`
	// WebhookSecret сверяется с заголовком X-Telegram-Bot-Api-Secret-Token.
	WebhookSecret string `yaml:"webhook_secret" envconfig:"WEBHOOK_SECRET"`
	ListenAddr    string `yaml:"listen_addr" envconfig:"LISTEN_ADDR"`
	RedisAddr     string `yaml:"redis_addr" envconfig:"REDIS_ADDR"`

	Post  PostConfig  `yaml:"post" envconfig:"POST"`
	Debug DebugConfig `yaml:"debug" envconfig:"DEBUG"`

	// Autoreplies: ключ автоответа и заготовленный текст.
	Autoreplies map[string]string `yaml:"autoreplies" envconfig:"AUTOREPLIES"`
}

// PostConfig: настройки модерации и публикации.
type PostConfig struct {
	AdminGroupID             int64  `yaml:"admin_group_id" envconfig:"ADMIN_GROUP_ID"`
	ChannelID                int64  `yaml:"channel_id" envconfig:"CHANNEL_ID"`
	CommunityGroupID         int64  `yaml:"community_group_id" envconfig:"COMMUNITY_GROUP_ID"`
	ChannelTag               string `yaml:"channel_tag" envconfig:"CHANNEL_TAG"`
	Comments                 bool   `yaml:"comments" envconfig:"COMMENTS"`
	NVotes                   int    `yaml:"n_votes" envconfig:"N_VOTES"`
	RemoveAfterH             int    `yaml:"remove_after_h" envconfig:"REMOVE_AFTER_H"`
	Report                   bool   `yaml:"report" envconfig:"REPORT"`
	ReportWaitMins           int    `yaml:"report_wait_mins" envconfig:"REPORT_WAIT_MINS"`
	ReplaceAnonymousComments bool   `yaml:"replace_anonymous_comments" envconfig:"REPLACE_ANONYMOUS_COMMENTS"`
	DeleteAnonymousComments  bool   `yaml:"delete_anonymous_comments" envconfig:"DELETE_ANONYMOUS_COMMENTS"`
	AutorepliesPerPage       int    `yaml:"autoreplies_per_page" envconfig:"AUTOREPLIES_PER_PAGE"`
	RejectAfterAutoreply     bool   `yaml:"reject_after_autoreply" envconfig:"REJECT_AFTER_AUTOREPLY"`
	MaxNWarns                int    `yaml:"max_n_warns" envconfig:"MAX_N_WARNS"`
	WarnExpirationDays       int    `yaml:"warn_expiration_days" envconfig:"WARN_EXPIRATION_DAYS"`
	MuteDefaultDays          int    `yaml:"mute_default_days" envconfig:"MUTE_DEFAULT_DAYS"`
	DailyJobsAt              string `yaml:"daily_jobs_at" envconfig:"DAILY_JOBS_AT"`
}

// DebugConfig: хранилище, резервные копии и логи.
type DebugConfig struct {
	DBFile          string `yaml:"db_file" envconfig:"DB_FILE"`
	DBDSN           string `yaml:"db_dsn" envconfig:"DB_DSN"`
	ResetOnLoad     bool   `yaml:"reset_on_load" envconfig:"RESET_ON_LOAD"`
	BackupChatID    int64  `yaml:"backup_chat_id" envconfig:"BACKUP_CHAT_ID"`
	ZipBackup       bool   `yaml:"zip_backup" envconfig:"ZIP_BACKUP"`
	BackupRecipient string `yaml:"backup_recipient" envconfig:"BACKUP_RECIPIENT"`
	LogFile         string `yaml:"log_file" envconfig:"LOG_FILE"`
	LogErrorFile    string `yaml:"log_error_file" envconfig:"LOG_ERROR_FILE"`
	LocalLog        bool   `yaml:"local_log" envconfig:"LOCAL_LOG"`
}

// Defaults возвращает конфигурацию по умолчанию.
func Defaults() AppConfig {
	return AppConfig{
		AppEnv:      "prod",
		MetricsAddr: ":9090",
		ListenAddr:  ":8080",
		Post: PostConfig{
			ChannelTag:         "@channel",
			Comments:           true,
			NVotes:             2,
			RemoveAfterH:       12,
			Report:             true,
			ReportWaitMins:     30,
			AutorepliesPerPage: 6,
			MaxNWarns:          3,
			WarnExpirationDays: 60,
			MuteDefaultDays:    1,
			DailyJobsAt:        "05:00",
		},
		Debug: DebugConfig{
			DBFile:       "./data/db/db.sqlite3",
			LogFile:      "logs/spot.log",
			LogErrorFile: "logs/spot_error.log",
		},
		Autoreplies: map[string]string{},
	}
}

// Load загружает конфиг из файлов и окружения.
func Load() AppConfig {
	cfg, err := LoadFrom(envOr("CONFIG_FILE", "config/settings.yaml"), envOr("AUTOREPLIES_FILE", "config/autoreplies.yaml"))
	if err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}

// LoadFrom читает настройки и автоответы из YAML (если файлы существуют),
// затем применяет переменные окружения.
func LoadFrom(settingsPath, autorepliesPath string) (AppConfig, error) {
	cfg := Defaults()
	if err := readYAML(settingsPath, &cfg); err != nil {
		return AppConfig{}, err
	}
	if autorepliesPath != "" {
		var file struct {
			Autoreplies map[string]string `yaml:"autoreplies"`
		}
		if err := readYAML(autorepliesPath, &file); err != nil {
			return AppConfig{}, err
		}
		for k, v := range file.Autoreplies {
			cfg.Autoreplies[k] = v
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return AppConfig{}, err
	}
	return cfg, nil
}

// Validate проверяет обязательные параметры.
func (c AppConfig) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Token) == "" {
		errs = append(errs, errors.New("token is required"))
	}
	if c.Post.NVotes < 1 {
		errs = append(errs, errors.New("post.n_votes must be at least 1"))
	}
	if c.Post.AutorepliesPerPage < 1 {
		errs = append(errs, errors.New("post.autoreplies_per_page must be at least 1"))
	}
	if c.Post.MaxNWarns < 1 {
		errs = append(errs, errors.New("post.max_n_warns must be at least 1"))
	}
	if c.Post.MuteDefaultDays < 1 {
		errs = append(errs, errors.New("post.mute_default_days must be at least 1"))
	}
	if _, err := ParseDailyAt(c.Post.DailyJobsAt); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func readYAML(path string, out any) error {
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

// ParseDailyAt разбирает время суток в формате HH:MM (UTC).
func ParseDailyAt(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, fmt.Errorf("post.daily_jobs_at: %w", err)
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
