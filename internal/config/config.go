// Package config loads galynx's runtime configuration from environment
// variables, grounded in the prior internal/config package: a single
// Config struct built by Load(), a parser helper that collects every
// malformed value into one joined error instead of failing on the first,
// and a validate() pass enforcing cross-field invariants.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// PersistenceBackend selects which storage.Store implementation cmd/galynx
// constructs.
type PersistenceBackend string

const (
	BackendMemory PersistenceBackend = "memory"
	BackendMongo  PersistenceBackend = "mongo"
)

// Config holds every environment-derived setting galynx's components need.
type Config struct {
	Port int

	JWTSecret     string
	JWTIssuer     string
	AccessTTL     time.Duration
	RefreshTTL    time.Duration

	Persistence PersistenceBackend
	MongoURI    string

	RedisURL string

	S3Bucket          string
	S3Region          string
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3ForcePathStyle  bool

	ServerURL        string
	LocalObjectsPath string

	MetricsEnabled bool

	BootstrapWorkspaceName string
	BootstrapEmail         string
	BootstrapPassword      string

	CORSAllowOrigins string
	Env              string

	Argon2Memory      uint32
	Argon2Iterations  uint32
	Argon2Parallelism uint8
	Argon2SaltLength  uint32
	Argon2KeyLength   uint32
}

// Load reads configuration from the environment, optionally pre-seeded by a
// .env file (godotenv.Load is a no-op, not an error, when none exists —
// matching how the compose-based dev setup treats it as
// convenience, not requirement).
func Load() (*Config, error) {
	_ = godotenv.Load()

	p := &parser{}

	cfg := &Config{
		Port: p.int("PORT", 8080),

		JWTSecret:  envStr("JWT_SECRET", ""),
		JWTIssuer:  envStr("JWT_ISSUER", "galynx"),
		AccessTTL:  time.Duration(p.int("ACCESS_TTL_MINUTES", 15)) * time.Minute,
		RefreshTTL: time.Duration(p.int("REFRESH_TTL_DAYS", 30)) * 24 * time.Hour,

		Persistence: PersistenceBackend(envStr("PERSISTENCE_BACKEND", string(BackendMemory))),
		MongoURI:    envStr("MONGO_URI", "mongodb://localhost:27017/galynx"),

		RedisURL: envStr("REDIS_URL", "redis://localhost:6379/0"),

		S3Bucket:          envStr("S3_BUCKET", ""),
		S3Region:          envStr("S3_REGION", "us-east-1"),
		S3Endpoint:        envStr("S3_ENDPOINT", ""),
		S3AccessKeyID:     envStr("S3_ACCESS_KEY_ID", ""),
		S3SecretAccessKey: envStr("S3_SECRET_ACCESS_KEY", ""),
		S3ForcePathStyle:  p.bool("S3_FORCE_PATH_STYLE", false),

		ServerURL:        envStr("SERVER_URL", ""),
		LocalObjectsPath: envStr("LOCAL_OBJECTS_PATH", "./data/objects"),

		MetricsEnabled: p.bool("METRICS_ENABLED", true),

		BootstrapWorkspaceName: envStr("BOOTSTRAP_WORKSPACE_NAME", ""),
		BootstrapEmail:         envStr("BOOTSTRAP_EMAIL", ""),
		BootstrapPassword:      envStr("BOOTSTRAP_PASSWORD", ""),

		CORSAllowOrigins: envStr("CORS_ALLOW_ORIGINS", "*"),
		Env:              envStr("ENV", "production"),

		Argon2Memory:      p.uint32("ARGON2_MEMORY", 64*1024),
		Argon2Iterations:  p.uint32("ARGON2_ITERATIONS", 3),
		Argon2Parallelism: p.uint8("ARGON2_PARALLELISM", 2),
		Argon2SaltLength:  p.uint32("ARGON2_SALT_LENGTH", 16),
		Argon2KeyLength:   p.uint32("ARGON2_KEY_LENGTH", 32),
	}

	if parseErr := errors.Join(p.errs...); parseErr != nil {
		return nil, parseErr
	}

	if cfg.IsDevelopment() && cfg.JWTSecret == "" {
		cfg.JWTSecret = devJWTSecret
	}

	if cfg.ServerURL == "" {
		cfg.ServerURL = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// devJWTSecret is a fixed 35-byte placeholder used only when ENV=development
// and JWT_SECRET is unset, so a local run works without a .env file. It is
// never applied in any other environment.
const devJWTSecret = "galynx-local-development-secret-key"

// IsDevelopment reports whether ENV=development.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// S3Configured reports whether S3_BUCKET is set. cmd/galynx wires
// attachment.LocalProvider either way and only logs a warning when it is.
func (c *Config) S3Configured() bool {
	return c.S3Bucket != ""
}

func (c *Config) validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, fmt.Errorf("JWT_SECRET is required"))
	} else if len(c.JWTSecret) < 32 {
		errs = append(errs, fmt.Errorf("JWT_SECRET must be at least 32 characters"))
	}

	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT must be between 1 and 65535"))
	}

	if c.AccessTTL < time.Second {
		errs = append(errs, fmt.Errorf("ACCESS_TTL_MINUTES must be at least 1 minute"))
	}
	if c.RefreshTTL < time.Second {
		errs = append(errs, fmt.Errorf("REFRESH_TTL_DAYS must be at least 1 day"))
	}

	switch c.Persistence {
	case BackendMemory, BackendMongo:
	default:
		errs = append(errs, fmt.Errorf("PERSISTENCE_BACKEND must be %q or %q, got %q", BackendMemory, BackendMongo, c.Persistence))
	}
	if c.Persistence == BackendMongo && c.MongoURI == "" {
		errs = append(errs, fmt.Errorf("MONGO_URI is required when PERSISTENCE_BACKEND=mongo"))
	}

	if c.Argon2Memory == 0 {
		errs = append(errs, fmt.Errorf("ARGON2_MEMORY must be greater than 0"))
	}
	if c.Argon2Iterations == 0 {
		errs = append(errs, fmt.Errorf("ARGON2_ITERATIONS must be greater than 0"))
	}
	if c.Argon2Parallelism == 0 {
		errs = append(errs, fmt.Errorf("ARGON2_PARALLELISM must be greater than 0"))
	}

	if (c.BootstrapEmail == "") != (c.BootstrapPassword == "") {
		errs = append(errs, fmt.Errorf("BOOTSTRAP_EMAIL and BOOTSTRAP_PASSWORD must be set together"))
	}

	return errors.Join(errs...)
}

// parser collects parse errors so Load can report every invalid value at
// once instead of failing on the first one it meets.
type parser struct {
	errs []error
}

func (p *parser) int(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %q (expected integer)", key, v))
		return fallback
	}
	return n
}

func (p *parser) bool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %q (expected boolean)", key, v))
		return fallback
	}
	return b
}

func (p *parser) uint32(key string, fallback uint32) uint32 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %q (expected unsigned 32-bit integer)", key, v))
		return fallback
	}
	return uint32(n)
}

func (p *parser) uint8(key string, fallback uint8) uint8 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseUint(v, 10, 8)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("invalid value for %s: %q (expected unsigned 8-bit integer)", key, v))
		return fallback
	}
	return uint8(n)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
