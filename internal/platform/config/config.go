package config

import (
	"fmt"
	"net/netip"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	pstrings "newsletter/pkg/platform/strings"
)

// Config is the full process configuration, read once at startup.
type Config struct {
	Server    Server    `envPrefix:"NEWSLETTER_"`
	Log       Log       `envPrefix:"NEWSLETTER_LOG_"`
	Postgres  Postgres  `envPrefix:"NEWSLETTER_POSTGRES_"`
	Redis     Redis     `envPrefix:"NEWSLETTER_REDIS_"`
	Kafka     Kafka     `envPrefix:"NEWSLETTER_KAFKA_"`
	RateLimit RateLimit `envPrefix:"NEWSLETTER_RATE_LIMIT_"`
	Outbox    Outbox    `envPrefix:"NEWSLETTER_OUTBOX_"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `env:"ADDR"             envDefault:":8000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	AllowedOrigins  []string      `env:"ALLOWED_ORIGINS"  envDefault:"*" envSeparator:","`
	// TrustedProxies lists peers (addresses or CIDRs) whose X-Forwarded-For
	// and X-Real-IP headers are believed. Empty means none are.
	TrustedProxies []string `env:"TRUSTED_PROXIES" envSeparator:","`
}

// Log selects the slog handler.
type Log struct {
	Level  string `env:"LEVEL"  envDefault:"info"`
	Format string `env:"FORMAT" envDefault:"json"`
}

// Postgres is optional; an empty DSN selects the in-memory store.
type Postgres struct {
	DSN          string `env:"DSN"`
	MaxOpenConns int    `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns int    `env:"MAX_IDLE_CONNS" envDefault:"5"`
}

// Redis is optional; an empty URL selects the in-memory rate limiter.
type Redis struct {
	URL          string        `env:"URL"`
	PoolSize     int           `env:"POOL_SIZE"      envDefault:"10"`
	MinIdleConns int           `env:"MIN_IDLE_CONNS" envDefault:"2"`
	DialTimeout  time.Duration `env:"DIAL_TIMEOUT"   envDefault:"5s"`
	ReadTimeout  time.Duration `env:"READ_TIMEOUT"   envDefault:"3s"`
	WriteTimeout time.Duration `env:"WRITE_TIMEOUT"  envDefault:"3s"`
}

// Kafka is optional; without brokers the outbox relay does not run.
type Kafka struct {
	Brokers           []string `env:"BROKERS" envSeparator:","`
	Topic             string   `env:"TOPIC"              envDefault:"subscriptions.created"`
	Partitions        int32    `env:"PARTITIONS"         envDefault:"3"`
	ReplicationFactor int16    `env:"REPLICATION_FACTOR" envDefault:"1"`
}

// RateLimit bounds subscription attempts per client IP.
type RateLimit struct {
	Requests int           `env:"REQUESTS" envDefault:"10"`
	Window   time.Duration `env:"WINDOW"   envDefault:"1m"`
}

// Outbox tunes the relay that forwards stored events to Kafka.
type Outbox struct {
	PollInterval time.Duration `env:"POLL_INTERVAL" envDefault:"2s"`
	BatchSize    int           `env:"BATCH_SIZE"    envDefault:"100"`
}

// Load builds a Config from environment variables so main stays lean.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	cfg.Server.AllowedOrigins = pstrings.DedupeAndTrim(cfg.Server.AllowedOrigins)
	cfg.Kafka.Brokers = pstrings.DedupeAndTrim(cfg.Kafka.Brokers)
	cfg.Server.TrustedProxies = pstrings.DedupeAndTrim(cfg.Server.TrustedProxies)
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.RateLimit.Requests <= 0 {
		return fmt.Errorf("rate limit requests must be positive, got %d", c.RateLimit.Requests)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("rate limit window must be positive, got %s", c.RateLimit.Window)
	}
	if c.Outbox.BatchSize <= 0 {
		return fmt.Errorf("outbox batch size must be positive, got %d", c.Outbox.BatchSize)
	}
	if c.Outbox.PollInterval <= 0 {
		return fmt.Errorf("outbox poll interval must be positive, got %s", c.Outbox.PollInterval)
	}
	if _, err := c.Server.TrustedProxyPrefixes(); err != nil {
		return err
	}
	return nil
}

// TrustedProxyPrefixes parses TrustedProxies. A bare address becomes a
// single-host prefix.
func (s Server) TrustedProxyPrefixes() ([]netip.Prefix, error) {
	prefixes := make([]netip.Prefix, 0, len(s.TrustedProxies))
	for _, v := range s.TrustedProxies {
		if strings.Contains(v, "/") {
			p, err := netip.ParsePrefix(v)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
			}
			prefixes = append(prefixes, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(v)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", v, err)
		}
		addr = addr.Unmap()
		prefixes = append(prefixes, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return prefixes, nil
}

// KafkaEnabled reports whether the outbox relay should run.
func (c Config) KafkaEnabled() bool {
	return len(c.Kafka.Brokers) > 0
}
