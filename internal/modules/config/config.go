package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v2"

	"auto_trader/pkg/logger"
	"auto_trader/pkg/retry"
)

const (
	configFilePathENV = "CONFIG_FILE"
	tokenTelegramENV  = "TELEGRAM_TOKEN"
	databaseDSN       = "DATABASE_DSN"
)

// Config ...
type Config struct {
	DB       string `yaml:"db_dsn"`
	Telegram struct {
		Token  string `yaml:"token"`
		ChatID int64  `yaml:"chat_id"`
	} `yaml:"telegram"`
	Jaeger struct {
		Host string `yaml:"host"`
		Port int    `yaml:"port"`
	} `yaml:"jaeger"`
	Health struct {
		Addr string `yaml:"addr"`
	} `yaml:"health"`

	// Расписание
	TickInterval time.Duration `yaml:"tick_interval"` // частый тик: рефреш цен + синк, не больше минуты
	DailyAt      string        `yaml:"daily_at"`      // "00:01" — дневной пересчёт диапазонов

	// Диапазоны и пороги движка
	PriceRangeDays int           `yaml:"price_range_days"` // N закрытий для high/low, по умолчанию 20
	StaleAfter     time.Duration `yaml:"stale_after"`      // снапшот старше — не сигнал
	OpenedGrace    time.Duration `yaml:"opened_grace"`     // сколько ждём позицию после открытия

	// Гейтвей
	PositionCacheTTL time.Duration `yaml:"position_cache_ttl"`
	HTTPTimeout      time.Duration `yaml:"http_timeout"`
	ExchangeRPS      float64       `yaml:"exchange_rps"`      // лимит REST-запросов к бирже
	ExchangeRetries  int           `yaml:"exchange_retries"`  // ретраи только для read-only вызовов
	StreamTickers    bool          `yaml:"stream_tickers"`    // WS-поток последних цен между тиками

	// База
	DBRetryAttempts int           `yaml:"db_retry_attempts"`
	DBRetryStep     time.Duration `yaml:"db_retry_step"`
}

func NewConfig() (*Config, error) {
	_ = godotenv.Load()

	config := Config{
		TickInterval:     time.Minute,
		DailyAt:          "00:01",
		PriceRangeDays:   20,
		StaleAfter:       3 * time.Minute,
		OpenedGrace:      5 * time.Minute,
		PositionCacheTTL: 3 * time.Second,
		HTTPTimeout:      10 * time.Second,
		ExchangeRPS:      floatFromEnv("EXCHANGE_RPS", 8),
		ExchangeRetries:  intFromEnv("EXCHANGE_RETRIES", 2),
		DBRetryAttempts:  3,
		DBRetryStep:      time.Second,
	}
	config.Health.Addr = ":8080"

	configFileName := os.Getenv(configFilePathENV)
	if configFileName == "" {
		configFileName = "values_local.yaml"
	}
	file, err := os.Open("configs/" + configFileName)
	if err != nil {
		// без файла живём на дефолтах + ENV (например в тестах и при --once)
		logger.Warn("config file not found, using defaults: %v", err)
	} else {
		defer func() {
			_ = file.Close()
		}()
		if err := yaml.NewDecoder(file).Decode(&config); err != nil {
			return nil, err
		}
	}

	token := os.Getenv(tokenTelegramENV)
	if token != "" {
		config.Telegram.Token = token
	}

	dsn := os.Getenv(databaseDSN)
	if dsn != "" {
		config.DB = dsn
	}

	// тик длиннее минуты ломает условие свежести снапшотов
	if config.TickInterval > time.Minute {
		config.TickInterval = time.Minute
	}

	return &config, nil
}

// DBRetry — политика на получение соединения (1s, 2s, 3s).
func (c *Config) DBRetry() retry.Policy {
	return retry.Policy{Attempts: c.DBRetryAttempts, Step: c.DBRetryStep}
}

func (c *Config) ExchangeRetry() retry.Policy {
	return retry.Policy{Attempts: c.ExchangeRetries, Step: time.Second}
}

func intFromEnv(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func floatFromEnv(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}
