package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/svyatogor45/linekeeper/internal/models"
	"github.com/svyatogor45/linekeeper/pkg/crypto"
)

// Config содержит всю конфигурацию приложения.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Feed     FeedConfig
	Exchange ExchangeConfig
	Engine   EngineConfig
	Risk     RiskConfig
	Logging  LoggingConfig
	DryRun   bool
}

// ServerConfig - настройки HTTP сервера админки.
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД.
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности.
type SecurityConfig struct {
	EncryptionKey     string
	AdminUsername     string
	AdminPasswordHash string
}

// FeedConfig - доступ к опорному фиду коэффициентов (spec §6).
type FeedConfig struct {
	BaseURL   string
	APIKey    string
	Sport     string
	Bookmaker string
	Markets   []models.MarketKind
}

// ExchangeConfig - доступ к бирже ставок, на которой размещаются линии.
type ExchangeConfig struct {
	BaseURL   string
	AccessKey string
	SecretKey string
	Sandbox   bool
}

// EngineConfig - параметры цикла сверки и ценообразования (spec §4, §5, §6).
type EngineConfig struct {
	PollInterval          time.Duration
	SignificantMoveOdds   int
	CoolDownAfterFill     time.Duration
	DedupGuard            time.Duration
	StopMarginBeforeStart time.Duration
	CancelOnStopMargin    bool
	BasePlusStake         float64
	HardMaxPlus           float64
	PositionMultiplier    float64
	CommissionRate        float64
	ConfidenceThreshold   float64
	TimeToleranceMinutes  int
	MaxConcurrentOutbound int
}

// RiskConfig - глобальные лимиты экспозиции, дополняющие per-line лимиты движка.
type RiskConfig struct {
	MaxEventsTracked    int
	MaxExposurePerEvent float64
	MaxExposureTotal    float64
}

// LoggingConfig - настройки логирования и хранения журналов.
type LoggingConfig struct {
	Level  string
	Format string
	Output string
	// NotificationRetention - как долго хранить записи в журнале
	// уведомлений прежде чем фоновая задача их удалит.
	NotificationRetention time.Duration
}

// Load загружает конфигурацию из переменных окружения.
func Load() (*Config, error) {
	encKey := getEnv("ENCRYPTION_KEY", "")
	if encKey == "" {
		return nil, fmt.Errorf("ENCRYPTION_KEY is required for encrypting reference/exchange credentials")
	}
	if len(encKey) != 32 {
		return nil, fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	feedAPIKey, err := decryptIfSet(getEnv("REFERENCE_API_KEY", ""), encKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt REFERENCE_API_KEY: %w", err)
	}
	exAccessKey, err := decryptIfSet(getEnv("EXCHANGE_ACCESS_KEY", ""), encKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt EXCHANGE_ACCESS_KEY: %w", err)
	}
	exSecretKey, err := decryptIfSet(getEnv("EXCHANGE_SECRET_KEY", ""), encKey)
	if err != nil {
		return nil, fmt.Errorf("decrypt EXCHANGE_SECRET_KEY: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "linekeeper"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			EncryptionKey:     encKey,
			AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
			AdminPasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
		},
		Feed: FeedConfig{
			BaseURL:   getEnv("REFERENCE_BASE_URL", "https://api.the-odds-api.com"),
			APIKey:    feedAPIKey,
			Sport:     getEnv("REFERENCE_SPORT", "baseball_mlb"),
			Bookmaker: getEnv("REFERENCE_BOOKMAKER", "pinnacle"),
			Markets:   parseMarketKinds(getEnv("REFERENCE_MARKETS", "moneyline,spread,total")),
		},
		Exchange: ExchangeConfig{
			BaseURL:   getEnv("EXCHANGE_BASE_URL", ""),
			AccessKey: exAccessKey,
			SecretKey: exSecretKey,
			Sandbox:   getEnvAsBool("EXCHANGE_SANDBOX", true),
		},
		Engine: EngineConfig{
			PollInterval:          getEnvAsDuration("POLL_INTERVAL", 60*time.Second),
			SignificantMoveOdds:   getEnvAsInt("SIGNIFICANT_MOVE_ODDS", 5),
			CoolDownAfterFill:     getEnvAsDuration("COOL_DOWN_AFTER_FILL", 300*time.Second),
			DedupGuard:            getEnvAsDuration("DEDUP_GUARD", 2*time.Minute),
			StopMarginBeforeStart: getEnvAsDuration("STOP_MARGIN_BEFORE_START", 15*time.Minute),
			CancelOnStopMargin:    getEnvAsBool("CANCEL_ON_STOP_MARGIN", false),
			BasePlusStake:         getEnvAsFloat("BASE_PLUS_STAKE", 100),
			HardMaxPlus:           getEnvAsFloat("HARD_MAX_PLUS", 500),
			PositionMultiplier:    getEnvAsFloat("POSITION_MULTIPLIER", 5),
			CommissionRate:        getEnvAsFloat("COMMISSION_RATE", 0.03),
			ConfidenceThreshold:   getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.7),
			TimeToleranceMinutes:  getEnvAsInt("TIME_TOLERANCE_MINUTES", 15),
			MaxConcurrentOutbound: getEnvAsInt("MAX_CONCURRENT_OUTBOUND", 10),
		},
		Risk: RiskConfig{
			MaxEventsTracked:    getEnvAsInt("MAX_EVENTS_TRACKED", 0),
			MaxExposurePerEvent: getEnvAsFloat("MAX_EXPOSURE_PER_EVENT", 0),
			MaxExposureTotal:    getEnvAsFloat("MAX_EXPOSURE_TOTAL", 0),
		},
		Logging: LoggingConfig{
			Level:                 getEnv("LOG_LEVEL", "info"),
			Format:                getEnv("LOG_FORMAT", "json"),
			Output:                getEnv("LOG_OUTPUT", ""),
			NotificationRetention: getEnvAsDuration("NOTIFICATION_RETENTION", 30*24*time.Hour),
		},
		DryRun: getEnvAsBool("DRY_RUN", false),
	}

	if cfg.Exchange.BaseURL == "" && !cfg.DryRun {
		return nil, fmt.Errorf("EXCHANGE_BASE_URL is required unless DRY_RUN=true")
	}

	return cfg, nil
}

// decryptIfSet расшифровывает значение, если оно задано; пустая строка
// проходит без изменений, что упрощает локальную разработку без ключей биржи.
func decryptIfSet(value, key string) (string, error) {
	if value == "" {
		return "", nil
	}
	return crypto.DecryptWithKeyString(value, key)
}

func parseMarketKinds(raw string) []models.MarketKind {
	parts := strings.Split(raw, ",")
	out := make([]models.MarketKind, 0, len(parts))
	for _, p := range parts {
		switch strings.TrimSpace(strings.ToLower(p)) {
		case "moneyline", "h2h":
			out = append(out, models.MarketMoneyline)
		case "spread", "spreads":
			out = append(out, models.MarketSpread)
		case "total", "totals":
			out = append(out, models.MarketTotal)
		}
	}
	return out
}

// Вспомогательные функции для чтения переменных окружения.

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
