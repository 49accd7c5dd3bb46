package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Bot delivery modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Record store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Conversation state backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName      string
	Environment  string
	Bot          BotConfig
	HTTP         HTTPConfig
	Storage      StorageConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	Conversation ConversationConfig
	State        StateConfig
	Report       ReportConfig
	Departments  []string
	JWT          JWTConfig
	Context      ContextConfig
	Logger       LoggerConfig
	Migrations   MigrationsConfig
}

type BotConfig struct {
	Token         string
	AdminID       int64
	Mode          string
	APIURL        string
	WebhookURL    string
	WebhookSecret string
	PollTimeout   time.Duration
	SendTimeout   time.Duration
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

type StorageConfig struct {
	Driver     string
	SQLitePath string
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type ConversationConfig struct {
	Backend   string
	KeyPrefix string
	// TTL expires abandoned dialogues in Redis. Zero keeps them until finished.
	TTL time.Duration
}

// StateConfig locates the local marker store.
type StateConfig struct {
	Path string
}

type ReportConfig struct {
	Enabled      bool
	At           string
	PollInterval time.Duration
	Timezone     string
}

type JWTConfig struct {
	Secret string
	Issuer string
	TTL    time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env),
// applies defaults and validates the result.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "taskdesk"),
		Environment: getString("APP_ENV", "development"),
		Bot: BotConfig{
			Token:         strings.TrimSpace(os.Getenv("BOT_TOKEN")),
			AdminID:       getInt64("ADMIN_TELEGRAM_ID", 0),
			Mode:          strings.ToLower(getString("BOT_MODE", ModePolling)),
			APIURL:        getString("BOT_API_URL", "https://api.telegram.org"),
			WebhookURL:    os.Getenv("BOT_WEBHOOK_URL"),
			WebhookSecret: os.Getenv("BOT_WEBHOOK_SECRET"),
			PollTimeout:   getDuration("BOT_POLL_TIMEOUT", 30*time.Second),
			SendTimeout:   getDuration("BOT_SEND_TIMEOUT", 10*time.Second),
		},
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      getInt("SERVER_MAX_CONN", 0),
		},
		Storage: StorageConfig{
			Driver:     strings.ToLower(getString("STORAGE_DRIVER", DriverSQLite)),
			SQLitePath: getString("SQLITE_PATH", "./data/taskdesk.db"),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "taskdesk"),
			User:            getString("DB_USER", "taskdesk"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 2),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Conversation: ConversationConfig{
			Backend:   strings.ToLower(getString("CONVERSATION_BACKEND", BackendMemory)),
			KeyPrefix: getString("CONVERSATION_KEY_PREFIX", "taskdesk:conversation:"),
			TTL:       getDuration("CONVERSATION_TTL", 0),
		},
		State: StateConfig{
			Path: getString("STATE_PATH", "./data/state.db"),
		},
		Report: ReportConfig{
			Enabled:      getBool("REPORT_ENABLED", true),
			At:           getString("REPORT_TIME", "09:00"),
			PollInterval: getDuration("REPORT_POLL_INTERVAL", 20*time.Second),
			Timezone:     os.Getenv("TIMEZONE"),
		},
		Departments: getList("DEPARTMENTS", []string{"Снабжение", "Финансы", "Бухгалтерия"}),
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "taskdesk"),
			TTL:    getDuration("JWT_TTL", 24*time.Hour),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate reports every setting the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if c.Bot.Token == "" {
		errs = append(errs, errors.New("BOT_TOKEN is required"))
	}
	if c.Bot.AdminID <= 0 {
		errs = append(errs, errors.New("ADMIN_TELEGRAM_ID is required"))
	}
	switch c.Bot.Mode {
	case ModePolling:
	case ModeWebhook:
		if c.Bot.WebhookURL == "" {
			errs = append(errs, errors.New("BOT_WEBHOOK_URL is required in webhook mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown BOT_MODE %q", c.Bot.Mode))
	}
	if c.Storage.Driver != DriverSQLite && c.Storage.Driver != DriverPostgres {
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	if c.Conversation.Backend != BackendMemory && c.Conversation.Backend != BackendRedis {
		errs = append(errs, fmt.Errorf("unknown CONVERSATION_BACKEND %q", c.Conversation.Backend))
	}
	if _, err := time.Parse("15:04", c.Report.At); err != nil {
		errs = append(errs, fmt.Errorf("REPORT_TIME must be HH:MM: %w", err))
	}
	if _, err := c.Location(); err != nil {
		errs = append(errs, fmt.Errorf("TIMEZONE: %w", err))
	}
	if len(c.Departments) == 0 {
		errs = append(errs, errors.New("DEPARTMENTS must list at least one department"))
	}
	return errors.Join(errs...)
}

// Location resolves the configured timezone; empty means the host's local zone.
func (c *Config) Location() (*time.Location, error) {
	if c.Report.Timezone == "" {
		return time.Local, nil
	}
	return time.LoadLocation(c.Report.Timezone)
}

func buildPostgresURL(cfg *Config) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt64(key string, fallback int64) int64 {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		if parsed, err := strconv.ParseInt(val, 10, 64); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// getList splits a comma separated value, dropping blanks.
func getList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
