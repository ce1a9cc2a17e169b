package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/nivelado/funnel-sync/internal/entity"
)

// Config é montada uma vez no boot e injetada nos componentes.
// Nada de os.Getenv espalhado pelo código.
type Config struct {
	DatabaseURL string

	BrevoAPIKey  string
	BrevoBaseURL string
	BrevoDryRun  bool

	LanguageListID    int64
	NonLanguageListID int64

	CandidateLookbackDays int
	SyncBatchSize         int

	OutboxBatchSize   int
	OutboxMaxRetries  int
	OutboxBaseBackoff time.Duration
	OutboxBackoffCap  time.Duration
	OutboxStuckAfter  time.Duration
	DeliveryTimeout   time.Duration

	// Opcionais: vazio = recurso desligado
	RabbitMQURL string

	MailHost  string
	MailPort  int
	MailUser  string
	MailPass  string
	AlertFrom string
	AlertTo   string

	ServerPort string
	DrainTick  time.Duration
}

func Load() (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),

		BrevoAPIKey:  os.Getenv("BREVO_API_KEY"),
		BrevoBaseURL: getEnv("BREVO_BASE_URL", "https://api.brevo.com/v3"),
		BrevoDryRun:  getEnvBool("BREVO_DRY_RUN", false),

		LanguageListID:    getEnvInt64("BREVO_LANGUAGE_LIST_ID", 0),
		NonLanguageListID: getEnvInt64("BREVO_NON_LANGUAGE_LIST_ID", 0),

		CandidateLookbackDays: getEnvInt("CANDIDATE_LOOKBACK_DAYS", 30),
		SyncBatchSize:         getEnvInt("SYNC_BATCH_SIZE", 100),

		OutboxBatchSize:   getEnvInt("OUTBOX_BATCH_SIZE", 50),
		OutboxMaxRetries:  getEnvInt("OUTBOX_MAX_RETRIES", 5),
		OutboxBaseBackoff: getEnvDuration("OUTBOX_BASE_BACKOFF", time.Minute),
		OutboxBackoffCap:  getEnvDuration("OUTBOX_BACKOFF_CAP", time.Hour),
		OutboxStuckAfter:  getEnvDuration("OUTBOX_STUCK_AFTER", 15*time.Minute),
		DeliveryTimeout:   getEnvDuration("DELIVERY_TIMEOUT", 10*time.Second),

		RabbitMQURL: os.Getenv("RABBITMQ_URL"),

		MailHost:  os.Getenv("MAIL_HOST"),
		MailPort:  getEnvInt("MAIL_PORT", 587),
		MailUser:  os.Getenv("MAIL_USER"),
		MailPass:  os.Getenv("MAIL_PASS"),
		AlertFrom: getEnv("ALERT_FROM", "nao-responda@nivelado.com"),
		AlertTo:   os.Getenv("ALERT_TO"),

		ServerPort: getEnv("SERVER_PORT", "8080"),
		DrainTick:  getEnvDuration("DRAIN_TICK", time.Minute),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL não configurada")
	}

	return cfg, nil
}

// ListIDs mapeia funnel_type -> lista da Brevo. Lista <= 0 significa
// funil desligado (o tracker pula os candidatos dele).
func (c *Config) ListIDs() map[string]int64 {
	return map[string]int64{
		entity.FunnelTypeLanguage:    c.LanguageListID,
		entity.FunnelTypeNonLanguage: c.NonLanguageListID,
	}
}

func (c *Config) MailConfigured() bool {
	return c.MailHost != "" && c.AlertTo != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvInt64(key string, fallback int64) int64 {
	v, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil {
		return fallback
	}
	return v
}

func getEnvBool(key string, fallback bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return fallback
	}
	return v
}
