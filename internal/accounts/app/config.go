package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	Env                  string        `env:"ENV" envDefault:"dev"`                    // dev, staging, prod
	LogLevel             string        `env:"LOG_LEVEL" envDefault:"info"`             // debug, info, warn, error
	LogFormat            string        `env:"LOG_FORMAT" envDefault:"json"`            // json, text
	Port                 int           `env:"PORT" envDefault:"8080"`                  // HTTP server port
	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`  // Graceful shutdown timeout
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`   // Expired secret sweep interval
	MetricsEnabled       bool          `env:"METRICS_ENABLED" envDefault:"true"`       // Serve /metrics

	Issuer         string        `env:"AUTH_ISSUER" envDefault:"aussiebroadwan-accounts"`
	Algorithm      string        `env:"AUTH_ALGORITHM" envDefault:"EdDSA"` // EdDSA, ES256
	NumKeys        int           `env:"AUTH_NUM_KEYS" envDefault:"3"`
	SigningKeyFile string        `env:"AUTH_SIGNING_KEY_FILE"` // Optional: persistent signing key, tokens survive restarts
	SessionTTL     time.Duration `env:"AUTH_SESSION_TTL" envDefault:"24h"`
	PepperFile     string        `env:"AUTH_PEPPER_FILE" envDefault:"pepper"`

	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"` // sqlite, postgres
	DatabaseFile   string `env:"DATABASE_FILE" envDefault:"accounts.db"`
	DatabaseURL    string `env:"DATABASE_URL"` // Required for postgres

	VerificationURL   string        `env:"APP_VERIFICATION_URL" envDefault:"http://localhost:3000/verify-email"`
	ResetURL          string        `env:"APP_RESET_URL"` // Defaults to VerificationURL with verify-email replaced by reset-password
	TokenValidity     time.Duration `env:"VERIFICATION_TOKEN_VALIDITY" envDefault:"24h"`
	CodeTTL           time.Duration `env:"MFA_CODE_TTL" envDefault:"10m"`
	CodeDigits        int           `env:"MFA_CODE_DIGITS" envDefault:"6"`

	MailDriver           string `env:"MAIL_DRIVER" envDefault:"log"` // log, dev, postmark
	MailDevDir           string `env:"MAIL_DEV_DIR" envDefault:"mail"`
	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	MailSender           string `env:"MAIL_SENDER" envDefault:"no-reply@localhost"`
	MailSupport          string `env:"MAIL_SUPPORT"`
	MailAppName          string `env:"MAIL_APP_NAME" envDefault:"Accounts"`

	NotifyQueueSize   int `env:"NOTIFY_QUEUE_SIZE" envDefault:"256"`
	NotifyWorkers     int `env:"NOTIFY_WORKERS" envDefault:"2"`
	NotifyMaxAttempts int `env:"NOTIFY_MAX_ATTEMPTS" envDefault:"3"`
}

// LoadConfig reads .env (when present) and then the process environment.
func LoadConfig() (Config, error) {
	// A missing .env file is fine.
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case "sqlite":
		if c.DatabaseFile == "" {
			errs = append(errs, errors.New("DATABASE_FILE is required for the sqlite driver"))
		}
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("DATABASE_DRIVER must be sqlite or postgres, got %q", c.DatabaseDriver))
	}

	switch c.MailDriver {
	case "log", "dev":
	case "postmark":
		if c.PostmarkServerToken == "" || c.PostmarkAccountToken == "" {
			errs = append(errs, errors.New("POSTMARK_SERVER_TOKEN and POSTMARK_ACCOUNT_TOKEN are required for the postmark mail driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("MAIL_DRIVER must be log, dev or postmark, got %q", c.MailDriver))
	}

	switch c.Algorithm {
	case "EdDSA", "ES256":
	default:
		errs = append(errs, fmt.Errorf("AUTH_ALGORITHM must be EdDSA or ES256, got %q", c.Algorithm))
	}

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT out of range: %d", c.Port))
	}
	if c.VerificationURL == "" {
		errs = append(errs, errors.New("APP_VERIFICATION_URL is required"))
	}
	if c.CodeDigits < 4 || c.CodeDigits > 9 {
		errs = append(errs, fmt.Errorf("MFA_CODE_DIGITS must be between 4 and 9, got %d", c.CodeDigits))
	}
	if c.TokenValidity <= 0 {
		errs = append(errs, errors.New("VERIFICATION_TOKEN_VALIDITY must be positive"))
	}
	if c.CodeTTL <= 0 {
		errs = append(errs, errors.New("MFA_CODE_TTL must be positive"))
	}

	return errors.Join(errs...)
}

func (c Config) sqliteDSN() string {
	return fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)", c.DatabaseFile)
}
