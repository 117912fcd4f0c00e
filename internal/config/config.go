package config

import (
	"os"
	"time"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/nimasrn/pos-ledger/pkg/logger"
	"github.com/nimasrn/pos-ledger/pkg/pg"
	"github.com/pkg/errors"
	goredis "github.com/redis/go-redis/v9"
)

const ConfigTagName = "env"
const ConfigDefaultTagName = "default"

var config *Config

// Config holds every setting the ledger binaries read. Only this struct is
// used to hold configuration values; nothing reads the environment directly.
type Config struct {
	AppEnv   string `env:"APP_ENV" default:"dev"`
	AppName  string `env:"APP_NAME" default:"pos_ledger"`
	AppDebug bool   `env:"APP_DEBUG" default:"1"`

	MetricsListenAddr string `env:"METRICS_LISTEN_ADDR"`
	MetricsURI        string `env:"METRICS_URI"`

	PostgresReadHost     string `env:"POSTGRES_READ_HOST"`
	PostgresReadPort     string `env:"POSTGRES_READ_PORT"`
	PostgresReadUser     string `env:"POSTGRES_READ_USER"`
	PostgresReadPassword string `env:"POSTGRES_READ_PASSWORD"`
	PostgresReadDatabase string `env:"POSTGRES_READ_DBNAME"`
	PostgresReadSSLMode  string `env:"POSTGRES_READ_SSLMODE"`

	PostgresWriteHost     string `env:"POSTGRES_WRITE_HOST"`
	PostgresWritePort     string `env:"POSTGRES_WRITE_PORT"`
	PostgresWriteUser     string `env:"POSTGRES_WRITE_USER"`
	PostgresWritePassword string `env:"POSTGRES_WRITE_PASSWORD"`
	PostgresWriteDatabase string `env:"POSTGRES_WRITE_DBNAME"`
	PostgresWriteSSLMode  string `env:"POSTGRES_WRITE_SSLMODE"`

	RedisAddr               string `env:"REDIS_ADDR"`
	RedisUsername           string `env:"REDIS_USER"`
	RedisPassword           string `env:"REDIS_PASS"`
	RedisDatabase           int    `env:"REDIS_DATABASE"`
	RedisUniversalKeyPrefix string `env:"REDIS_UNIVERSAL_KEY_PREFIX"`

	PromNamespace string `env:"PROM_NAMESPACE"`

	LogLevel []string `env:"LOG_LEVEL"`

	BusinessTimezone    string        `env:"BUSINESS_TIMEZONE"`
	DefaultStartingCash int64         `env:"DEFAULT_STARTING_CASH"`
	TicketLockTTL       time.Duration `env:"TICKET_LOCK_TTL"`
	ReportCacheTTL      time.Duration `env:"REPORT_CACHE_TTL"`

	EventsStream            string        `env:"EVENTS_STREAM"`
	EventsConsumerGroup     string        `env:"EVENTS_CONSUMER_GROUP"`
	EventsConsumerName      string        `env:"EVENTS_CONSUMER_NAME"`
	EventsMaxRetries        int           `env:"EVENTS_MAX_RETRIES"`
	EventsVisibilityTimeout time.Duration `env:"EVENTS_VISIBILITY_TIMEOUT"`
	EventsPollInterval      time.Duration `env:"EVENTS_POLL_INTERVAL"`
	EventsBatchSize         int64         `env:"EVENTS_BATCH_SIZE"`
	EventsMaxLen            int64         `env:"EVENTS_MAX_LEN"`
	EventsEnableDLQ         bool          `env:"EVENTS_ENABLE_DLQ"`

	ProcessorWorkers    int `env:"PROCESSOR_WORKERS"`
	ProcessorBufferSize int `env:"PROCESSOR_BUFFER_SIZE"`
}

func Load(path string) error {
	logger.Info("loading configs..", "path", path)
	c := &Config{}
	var err error
	if path != "" {
		logger.Info("trying to publish env from file", "path", path)
		err = godotenv.Load(path)
		if err != nil {
			return errors.New("failed to load configuration file " + path + " error: " + err.Error())
		}
	}

	_, err = env.UnmarshalFromEnviron(c)

	if err != nil {
		return errors.New("failed to map env variables to Configuration object " + " error: " + err.Error())
	}
	if _, ok := os.LookupEnv("DEFAULT_STARTING_CASH"); !ok {
		c.DefaultStartingCash = -1
	}
	c.applyDefaults()

	config = c
	return nil
}

// Set installs c as the global config. Tests and tools that build a Config
// by hand use it instead of Load.
func Set(c *Config) {
	c.applyDefaults()
	config = c
}

func Get() *Config {
	if config == nil {
		logger.Panic("Config is not initialized")
	}
	return config
}

// applyDefaults fills the ledger settings that have a sensible fallback.
// A negative DefaultStartingCash means unset; the sales day service then
// uses its own default. Zero is a valid drawer.
func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "pos_ledger"
	}
	if c.BusinessTimezone == "" {
		c.BusinessTimezone = "America/Chicago"
	}
	if c.TicketLockTTL <= 0 {
		c.TicketLockTTL = 30 * time.Second
	}
	if c.ReportCacheTTL <= 0 {
		c.ReportCacheTTL = 5 * time.Minute
	}
	if c.EventsStream == "" {
		c.EventsStream = "ledger:events"
	}
	if c.MetricsURI == "" {
		c.MetricsURI = "/metrics"
	}
	if c.ProcessorWorkers <= 0 {
		c.ProcessorWorkers = 4
	}
	if c.ProcessorBufferSize <= 0 {
		c.ProcessorBufferSize = 100
	}
}

func (c *Config) PostgresRead() pg.Config {
	return pg.Config{
		Host:     c.PostgresReadHost,
		Port:     c.PostgresReadPort,
		User:     c.PostgresReadUser,
		Password: c.PostgresReadPassword,
		Database: c.PostgresReadDatabase,
		SSLMode:  c.PostgresReadSSLMode,
	}
}

func (c *Config) PostgresWrite() pg.Config {
	return pg.Config{
		Host:     c.PostgresWriteHost,
		Port:     c.PostgresWritePort,
		User:     c.PostgresWriteUser,
		Password: c.PostgresWritePassword,
		Database: c.PostgresWriteDatabase,
		SSLMode:  c.PostgresWriteSSLMode,
	}
}

func (c *Config) RedisOptions() *goredis.UniversalOptions {
	return &goredis.UniversalOptions{
		Addrs:    []string{c.RedisAddr},
		Username: c.RedisUsername,
		Password: c.RedisPassword,
		DB:       c.RedisDatabase,
	}
}
