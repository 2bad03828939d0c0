package app

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/aussiebroadwan/passport/pkg/cryptox"
	"github.com/caarlos0/env/v11"
)

// Supported credential store drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Issuer string `env:"PASSPORT_ISSUER" envDefault:"passport"` // iss claim and TOTP issuer label

	Env                 string        `env:"ENV" envDefault:"dev"`          // dev, staging, prod
	LogLevel            string        `env:"LOG_LEVEL" envDefault:"info"`   // debug, info, warn, error
	LogFormat           string        `env:"LOG_FORMAT" envDefault:"json"`  // json, text
	Port                int           `env:"PORT" envDefault:"8080"`
	ShutdownGracePeriod time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`

	DatabaseDriver string `env:"PASSPORT_DB_DRIVER" envDefault:"sqlite"`
	DatabaseDSN    string `env:"PASSPORT_DB_DSN" envDefault:"file:passport.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"`

	// Empty SigningKeyFile generates an ephemeral key; refused in prod.
	SigningKeyFile string   `env:"PASSPORT_SIGNING_KEY_FILE"`
	VerifyKeyFiles []string `env:"PASSPORT_VERIFY_KEY_FILES" envSeparator:","`

	PasswordAlgorithm string `env:"PASSPORT_PASSWORD_ALGORITHM" envDefault:"argon2id"`
	Argon2Memory      uint32 `env:"PASSPORT_ARGON2_MEMORY_KIB" envDefault:"19456"`
	Argon2Iterations  uint32 `env:"PASSPORT_ARGON2_ITERATIONS" envDefault:"2"`
	Argon2Parallelism uint8  `env:"PASSPORT_ARGON2_PARALLELISM" envDefault:"1"`
	BcryptCost        int    `env:"PASSPORT_BCRYPT_COST" envDefault:"10"`
	PepperFile        string `env:"PASSPORT_PEPPER_FILE" envDefault:"pepper"`
	HashPoolSize      int    `env:"PASSPORT_HASH_POOL_SIZE"` // 0 means GOMAXPROCS

	SessionTTL   time.Duration `env:"PASSPORT_SESSION_TTL" envDefault:"180m"`
	ChallengeTTL time.Duration `env:"PASSPORT_MFA_CHALLENGE_TTL" envDefault:"5m"`

	// Seeds an admin account on start when no user has this name.
	AdminUsername string `env:"PASSPORT_ADMIN_USERNAME"`
	AdminPassword string `env:"PASSPORT_ADMIN_PASSWORD"`
}

// LoadConfig reads the configuration from the environment.
func LoadConfig() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	if c.Issuer == "" {
		errs = append(errs, errors.New("issuer must not be empty"))
	}
	if c.Port < 1 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if !slices.Contains([]string{DriverSQLite, DriverPostgres}, c.DatabaseDriver) {
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.DatabaseDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("database dsn must not be empty"))
	}
	if !slices.Contains([]string{cryptox.AlgorithmArgon2id, cryptox.AlgorithmBcrypt}, c.PasswordAlgorithm) {
		errs = append(errs, fmt.Errorf("unknown password algorithm %q", c.PasswordAlgorithm))
	}
	if c.SessionTTL <= 0 || c.ChallengeTTL <= 0 {
		errs = append(errs, errors.New("token ttls must be positive"))
	}
	if c.ChallengeTTL > c.SessionTTL {
		errs = append(errs, errors.New("mfa challenge ttl must not exceed session ttl"))
	}
	if c.Env == "prod" && c.SigningKeyFile == "" {
		errs = append(errs, errors.New("a signing key file is required in prod"))
	}
	if (c.AdminUsername == "") != (c.AdminPassword == "") {
		errs = append(errs, errors.New("admin username and password must be set together"))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func (c Config) argon2Params() cryptox.Argon2Params {
	p := cryptox.DefaultArgon2Params
	p.Memory = c.Argon2Memory
	p.Iterations = c.Argon2Iterations
	p.Parallelism = c.Argon2Parallelism
	return p
}
