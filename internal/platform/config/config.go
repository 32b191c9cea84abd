package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	pkgstrings "quantumtrust/pkg/platform/strings"
)

// Config is the full process configuration. It is built once in main and passed
// explicitly to constructors; nothing reads the environment after startup.
type Config struct {
	AppName   string
	APIPrefix string
	Server    Server
	Postgres  Postgres
	Redis     Redis
	Kafka     Kafka
	Lifecycle Lifecycle
	Admin     Admin
	Log       Log
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// Postgres holds relational store connection parameters.
type Postgres struct {
	User            string
	Password        string
	DB              string
	Host            string
	Port            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// URI renders the connection string in the same shape the original settings used.
func (p Postgres) URI() string {
	u := url.URL{
		Scheme: "postgresql",
		User:   url.UserPassword(p.User, p.Password),
		Host:   p.Host + ":" + p.Port,
		Path:   "/" + p.DB,
	}
	return u.String()
}

// Redis configures the audit relay cursor store. An empty URL disables it.
type Redis struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// Kafka configures audit streaming. No brokers disables the relay.
type Kafka struct {
	Brokers       []string
	AuditTopic    string
	RelayInterval time.Duration
	RelayBatch    int
	// RelayGapGrace is how long a missing audit id holds the relay cursor.
	RelayGapGrace time.Duration
}

// Lifecycle tunes the DID lifecycle coordinator.
type Lifecycle struct {
	DIDMethod      string
	SweepInterval  time.Duration // zero disables the in-process sweeper
	SweepBatchSize int
	TxTimeout      time.Duration
}

// Admin is the bootstrap account ensured at startup.
type Admin struct {
	Username string
	Password string
	Email    string
}

// Log selects the slog handler.
type Log struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then builds the config from the environment.
// A missing .env file is not an error.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}
	cfg, err := FromEnv()
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// FromEnv builds a Config from environment variables, applying defaults.
func FromEnv() (Config, error) {
	var p parser
	cfg := Config{
		AppName:   env("APP_NAME", "QuantumTrust DPKI"),
		APIPrefix: env("API_V1_STR", "/api/v1"),
		Server: Server{
			Addr:            env("QT_ADDR", ":8080"),
			ShutdownTimeout: p.duration("QT_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Postgres: Postgres{
			User:            env("POSTGRES_USER", "postgres"),
			Password:        env("POSTGRES_PASSWORD", "postgres"),
			DB:              env("POSTGRES_DB", "quantumtrust"),
			Host:            env("POSTGRES_HOST", "localhost"),
			Port:            env("POSTGRES_PORT", "5432"),
			MaxOpenConns:    p.int("POSTGRES_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    p.int("POSTGRES_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: p.duration("POSTGRES_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		Redis: Redis{
			URL:          env("REDIS_URL", ""),
			PoolSize:     p.int("REDIS_POOL_SIZE", 10),
			MinIdleConns: p.int("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  p.duration("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  p.duration("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: p.duration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		Kafka: Kafka{
			Brokers:       pkgstrings.SplitList(env("KAFKA_BROKERS", "")),
			AuditTopic:    env("KAFKA_AUDIT_TOPIC", "quantumtrust.audit"),
			RelayInterval: p.duration("AUDIT_RELAY_INTERVAL", 2*time.Second),
			RelayBatch:    p.int("AUDIT_RELAY_BATCH", 200),
			RelayGapGrace: p.duration("AUDIT_RELAY_GAP_GRACE", 30*time.Second),
		},
		Lifecycle: Lifecycle{
			DIDMethod:      env("DID_METHOD", "quantumtrust"),
			SweepInterval:  p.duration("DID_SWEEP_INTERVAL", 0),
			SweepBatchSize: p.int("DID_SWEEP_BATCH_SIZE", 100),
			TxTimeout:      p.duration("DID_TX_TIMEOUT", 5*time.Second),
		},
		Admin: Admin{
			Username: env("ADMIN_USERNAME", "admin"),
			Password: env("ADMIN_PASSWORD", "admin123"),
			Email:    env("ADMIN_EMAIL", "admin@quantumtrust.com"),
		},
		Log: Log{
			Level:  env("LOG_LEVEL", "info"),
			Format: env("LOG_FORMAT", "json"),
		},
	}
	if len(p.errs) > 0 {
		return Config{}, errors.Join(p.errs...)
	}
	return cfg, nil
}

// Validate rejects configurations that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.Postgres.User == "" || c.Postgres.DB == "" || c.Postgres.Host == "" {
		errs = append(errs, errors.New("postgres user, db and host are required"))
	}
	if _, err := strconv.Atoi(c.Postgres.Port); err != nil {
		errs = append(errs, fmt.Errorf("POSTGRES_PORT must be numeric: %q", c.Postgres.Port))
	}
	if c.Lifecycle.SweepBatchSize <= 0 {
		errs = append(errs, errors.New("DID_SWEEP_BATCH_SIZE must be positive"))
	}
	if c.Lifecycle.SweepInterval < 0 {
		errs = append(errs, errors.New("DID_SWEEP_INTERVAL must not be negative"))
	}
	if c.Lifecycle.DIDMethod == "" || strings.ContainsAny(c.Lifecycle.DIDMethod, ": ") {
		errs = append(errs, fmt.Errorf("DID_METHOD is invalid: %q", c.Lifecycle.DIDMethod))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.RelayBatch <= 0 {
		errs = append(errs, errors.New("AUDIT_RELAY_BATCH must be positive"))
	}
	if len(c.Kafka.Brokers) > 0 && c.Kafka.RelayGapGrace <= c.Lifecycle.TxTimeout {
		errs = append(errs, errors.New("AUDIT_RELAY_GAP_GRACE must exceed DID_TX_TIMEOUT"))
	}
	if c.Admin.Username == "" || c.Admin.Email == "" {
		errs = append(errs, errors.New("admin username and email are required"))
	}
	return errors.Join(errs...)
}

func env(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok {
		return v
	}
	return fallback
}

// parser collects conversion errors so every bad variable is reported at once.
type parser struct {
	errs []error
}

func (p *parser) int(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}

func (p *parser) duration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || raw == "" {
		return fallback
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return v
}
