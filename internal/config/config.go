package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"

	"github.com/fastygo/taskledger/domain"
)

// Ledger storage drivers.
const (
	DriverBolt     = "bolt"
	DriverPostgres = "postgres"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Ledger      LedgerConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	JWT         JWTConfig
	Schedule    ScheduleConfig
	Policy      PolicyConfig
	Templates   TemplatesConfig
	Admins      AdminsConfig
	Notify      NotifyConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

// LedgerConfig selects where the ledger document lives and how writes are retried.
type LedgerConfig struct {
	Driver         string
	BoltPath       string
	Bucket         string
	DocumentName   string
	WriteAttempts  int
	RetryBaseDelay time.Duration
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
	Prefix   string
}

// Enabled reports whether a Redis URL was configured.
func (r RedisConfig) Enabled() bool {
	return r.URL != ""
}

type JWTConfig struct {
	Secret string
	Issuer string
}

type ScheduleConfig struct {
	Timezone     string
	Location     *time.Location
	Morning      string
	Evening      string
	CatchUp      bool
	NotifyWindow time.Duration
	RunTimeout   time.Duration
}

type PolicyConfig struct {
	Rollover domain.RolloverPolicy
	// TemplateMerge overrides the templates file when set.
	TemplateMerge string
}

type TemplatesConfig struct {
	Path string
}

type AdminsConfig struct {
	Initial []string
}

type NotifyConfig struct {
	WebhookURL  string
	Timeout     time.Duration
	GroupChatID string
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

// Load reads configuration from environment variables (optionally .env)
// and applies defaults so the service can boot with nothing but a data dir.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "taskledger"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      getInt("SERVER_MAX_CONN", 0),
		},
		Ledger: LedgerConfig{
			Driver:         strings.ToLower(getString("LEDGER_DRIVER", DriverBolt)),
			BoltPath:       getString("LEDGER_PATH", "./data/ledger.db"),
			Bucket:         getString("LEDGER_BUCKET", "ledger"),
			DocumentName:   getString("LEDGER_DOCUMENT", "default"),
			WriteAttempts:  getInt("LEDGER_WRITE_ATTEMPTS", 4),
			RetryBaseDelay: getDuration("LEDGER_RETRY_BASE_DELAY", 120*time.Millisecond),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "taskledger"),
			User:            getString("DB_USER", "taskledger"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 2),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      os.Getenv("REDIS_URL"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
			Prefix:   getString("REDIS_PREFIX", "taskledger:"),
		},
		JWT: JWTConfig{
			Secret: os.Getenv("JWT_SECRET"),
			Issuer: getString("JWT_ISSUER", "taskledger"),
		},
		Schedule: ScheduleConfig{
			Timezone:     getString("TIMEZONE", "UTC"),
			Morning:      getString("MORNING_TIME", "08:00"),
			Evening:      getString("EVENING_TIME", "21:00"),
			CatchUp:      getBool("CATCH_UP_ON_START", true),
			NotifyWindow: getDuration("NOTIFY_WINDOW_SECONDS", 60*time.Second),
			RunTimeout:   getDuration("SCHEDULE_RUN_TIMEOUT", 2*time.Minute),
		},
		Policy: PolicyConfig{
			TemplateMerge: strings.ToLower(os.Getenv("TEMPLATE_MERGE")),
		},
		Templates: TemplatesConfig{
			Path: getString("TEMPLATES_PATH", "./templates.yaml"),
		},
		Admins: AdminsConfig{
			Initial: getList("ADMIN_IDS"),
		},
		Notify: NotifyConfig{
			WebhookURL:  os.Getenv("NOTIFY_WEBHOOK_URL"),
			Timeout:     getDuration("NOTIFY_TIMEOUT", 5*time.Second),
			GroupChatID: os.Getenv("GROUP_SUMMARY_CHAT_ID"),
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

	switch cfg.Ledger.Driver {
	case DriverBolt, DriverPostgres:
	default:
		return nil, fmt.Errorf("unknown LEDGER_DRIVER %q", cfg.Ledger.Driver)
	}

	policy, err := domain.ParseRolloverPolicy(os.Getenv("ROLLOVER_POLICY"))
	if err != nil {
		return nil, err
	}
	cfg.Policy.Rollover = policy

	loc, err := time.LoadLocation(cfg.Schedule.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Schedule.Timezone, err)
	}
	cfg.Schedule.Location = loc

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

// getList splits a comma or whitespace separated value.
func getList(key string) []string {
	return strings.FieldsFunc(os.Getenv(key), func(r rune) bool {
		return r == ',' || r == ' ' || r == ';'
	})
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
