package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"riskengine/internal/models"
	"riskengine/internal/risk"
	"riskengine/pkg/crypto"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Exchange ExchangeConfig
	Risk     RiskConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// AES-256 ключ для расшифровки API ключей биржи.
	// Обязателен только если BINANCE_KEYS_ENCRYPTED=true.
	EncryptionKey string

	// bcrypt хеш API ключа для защиты /api/v1 (опционально,
	// без него API открыт - локальное развертывание за файрволом)
	APIKeyHash string
}

// ExchangeConfig - настройки подключения к Binance Futures
type ExchangeConfig struct {
	APIKey    string
	SecretKey string
	Testnet   bool

	// Ключи в окружении лежат зашифрованными (AES-256-GCM, base64).
	// Расшифровка через SECURITY EncryptionKey при загрузке.
	KeysEncrypted bool
}

// RiskConfig - параметры риск-движка
//
// Все проценты задаются в человеческом виде: 3.0 означает 3%.
type RiskConfig struct {
	// Целевой риск на сделку в % от баланса
	RiskPercentage float64

	// Потолок плеча биржи для расчетов сайзинга
	MaxLeverage int

	// Допуск оптимизатора плеча в % (отклонение факт. риска от целевого)
	TolerancePct float64

	// Шаг объёма ордера (stepSize символа), 0 отключает округление
	LotSize float64

	// Интервал цикла обновления данных аккаунта
	RefreshInterval time.Duration

	// Интервал персистенции суточного среза метрик
	SnapshotInterval time.Duration

	// Лимиты потерь
	DailyLossLimitPct    float64
	DailyLossLimitAmount float64
	WeeklyLossLimitPct   float64
	MonthlyLossLimitPct  float64
	MaxDrawdownPct       float64
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения
func Load() (*Config, error) {
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
			Name:     getEnv("DB_NAME", "riskengine"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
			APIKeyHash:    getEnv("API_KEY_HASH", ""),
		},
		Exchange: ExchangeConfig{
			APIKey:        getEnv("BINANCE_API_KEY", ""),
			SecretKey:     getEnv("BINANCE_SECRET_KEY", ""),
			Testnet:       getEnvAsBool("BINANCE_TESTNET", false),
			KeysEncrypted: getEnvAsBool("BINANCE_KEYS_ENCRYPTED", false),
		},
		Risk: RiskConfig{
			RiskPercentage:  getEnvAsFloat("RISK_PERCENTAGE", 3.0),
			MaxLeverage:     getEnvAsInt("MAX_LEVERAGE", 20),
			TolerancePct:    getEnvAsFloat("LEVERAGE_TOLERANCE_PCT", 1.0),
			LotSize:         getEnvAsFloat("LOT_SIZE", 0.001),
			RefreshInterval: getEnvAsDuration("REFRESH_INTERVAL", 30*time.Second),

			SnapshotInterval: getEnvAsDuration("SNAPSHOT_INTERVAL", 5*time.Minute),

			DailyLossLimitPct:    getEnvAsFloat("DAILY_LOSS_LIMIT_PCT", 3.0),
			DailyLossLimitAmount: getEnvAsFloat("DAILY_LOSS_LIMIT_AMOUNT", 0),
			WeeklyLossLimitPct:   getEnvAsFloat("WEEKLY_LOSS_LIMIT_PCT", 8.0),
			MonthlyLossLimitPct:  getEnvAsFloat("MONTHLY_LOSS_LIMIT_PCT", 15.0),
			MaxDrawdownPct:       getEnvAsFloat("MAX_DRAWDOWN_PCT", 20.0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Валидация критичных параметров безопасности
	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	// Валидация числовых диапазонов
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	// Расшифровка ключей биржи, если они хранятся зашифрованными
	if err := cfg.decryptExchangeKeys(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// Шифрование ключей биржи опционально, но если включено -
	// ключ шифрования обязателен и должен подходить под AES-256
	if c.Exchange.KeysEncrypted {
		if c.Security.EncryptionKey == "" {
			return fmt.Errorf("ENCRYPTION_KEY is required when BINANCE_KEYS_ENCRYPTED=true")
		}
	}

	if c.Security.EncryptionKey != "" && len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256, got %d", len(c.Security.EncryptionKey))
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	// Валидация портов
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	// Валидация риск-параметров
	if c.Risk.RiskPercentage <= 0 || c.Risk.RiskPercentage > 10 {
		return fmt.Errorf("RISK_PERCENTAGE must be in (0, 10], got %v", c.Risk.RiskPercentage)
	}

	if c.Risk.MaxLeverage < 1 || c.Risk.MaxLeverage > 125 {
		return fmt.Errorf("MAX_LEVERAGE must be between 1 and 125, got %d", c.Risk.MaxLeverage)
	}

	if c.Risk.LotSize < 0 {
		return fmt.Errorf("LOT_SIZE must be non-negative, got %v", c.Risk.LotSize)
	}

	if c.Risk.TolerancePct <= 0 {
		return fmt.Errorf("LEVERAGE_TOLERANCE_PCT must be positive, got %v", c.Risk.TolerancePct)
	}

	if c.Risk.RefreshInterval < time.Second {
		return fmt.Errorf("REFRESH_INTERVAL must be at least 1s, got %v", c.Risk.RefreshInterval)
	}

	if c.Risk.SnapshotInterval < time.Minute {
		return fmt.Errorf("SNAPSHOT_INTERVAL must be at least 1m, got %v", c.Risk.SnapshotInterval)
	}

	// Лимиты потерь: проценты в (0, 100], нулевой DailyLossLimitAmount
	// означает "только процентный лимит"
	for _, limit := range []struct {
		name  string
		value float64
	}{
		{"DAILY_LOSS_LIMIT_PCT", c.Risk.DailyLossLimitPct},
		{"WEEKLY_LOSS_LIMIT_PCT", c.Risk.WeeklyLossLimitPct},
		{"MONTHLY_LOSS_LIMIT_PCT", c.Risk.MonthlyLossLimitPct},
		{"MAX_DRAWDOWN_PCT", c.Risk.MaxDrawdownPct},
	} {
		if limit.value <= 0 || limit.value > 100 {
			return fmt.Errorf("%s must be in (0, 100], got %v", limit.name, limit.value)
		}
	}

	if c.Risk.DailyLossLimitAmount < 0 {
		return fmt.Errorf("DAILY_LOSS_LIMIT_AMOUNT cannot be negative, got %v", c.Risk.DailyLossLimitAmount)
	}

	// Дневной лимит жестче недельного, недельный жестче месячного -
	// иначе внешние лимиты никогда не сработают
	if c.Risk.DailyLossLimitPct > c.Risk.WeeklyLossLimitPct {
		return fmt.Errorf("DAILY_LOSS_LIMIT_PCT (%v) must not exceed WEEKLY_LOSS_LIMIT_PCT (%v)",
			c.Risk.DailyLossLimitPct, c.Risk.WeeklyLossLimitPct)
	}
	if c.Risk.WeeklyLossLimitPct > c.Risk.MonthlyLossLimitPct {
		return fmt.Errorf("WEEKLY_LOSS_LIMIT_PCT (%v) must not exceed MONTHLY_LOSS_LIMIT_PCT (%v)",
			c.Risk.WeeklyLossLimitPct, c.Risk.MonthlyLossLimitPct)
	}

	return nil
}

// decryptExchangeKeys расшифровывает API ключи биржи, если они
// хранятся в окружении в зашифрованном виде (AES-256-GCM, base64)
func (c *Config) decryptExchangeKeys() error {
	if !c.Exchange.KeysEncrypted {
		return nil
	}

	apiKey, err := crypto.DecryptWithKeyString(c.Exchange.APIKey, c.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to decrypt BINANCE_API_KEY: %w", err)
	}

	secretKey, err := crypto.DecryptWithKeyString(c.Exchange.SecretKey, c.Security.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to decrypt BINANCE_SECRET_KEY: %w", err)
	}

	c.Exchange.APIKey = apiKey
	c.Exchange.SecretKey = secretKey
	return nil
}

// LossLimits собирает лимиты потерь в модель для трекера
func (r RiskConfig) LossLimits() models.LossLimits {
	return models.LossLimits{
		DailyLimitPct:    r.DailyLossLimitPct,
		DailyLimitAmount: r.DailyLossLimitAmount,
		WeeklyLimitPct:   r.WeeklyLossLimitPct,
		MonthlyLimitPct:  r.MonthlyLossLimitPct,
		MaxDrawdownPct:   r.MaxDrawdownPct,
	}
}

// EngineConfig собирает конфигурацию риск-движка
func (r RiskConfig) EngineConfig() risk.EngineConfig {
	return risk.EngineConfig{
		RefreshInterval: r.RefreshInterval,
		RiskPercentage:  r.RiskPercentage,
		MaxLeverage:     r.MaxLeverage,
		TolerancePct:    r.TolerancePct,
		LotSize:         r.LotSize,
		Limits:          r.LossLimits(),
	}
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

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
