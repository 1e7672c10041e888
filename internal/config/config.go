package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort        string   `env:"APP_PORT" envDefault:"3000"`
	AppEnv         string   `env:"APP_ENV" envDefault:"development"`
	LogLevel       string   `env:"LOG_LEVEL" envDefault:"info"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envDefault:"*" envSeparator:","` // CORS allowed origins

	StoreBackend  string `env:"STORE_BACKEND" envDefault:"dynamo"`  // dynamo | mongo | memory
	LedgerBackend string `env:"LEDGER_BACKEND" envDefault:"dynamo"` // dynamo | redis | memory
	MailBackend   string `env:"MAIL_BACKEND" envDefault:"smtp"`     // smtp | postmark | log

	AWSRegion      string `env:"AWS_REGION" envDefault:"us-east-1"`
	AWSEndpointURL string `env:"AWS_ENDPOINT_URL"` // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string `env:"AWS_ACCESS_KEY_ID"`
	AWSSecretKey   string `env:"AWS_SECRET_ACCESS_KEY"`
	DynamoTables   DynamoTables

	MongoURL      string `env:"MONGODB_URL" envDefault:"mongodb://localhost:27017"`
	MongoDatabase string `env:"MONGODB_DATABASE" envDefault:"auth"`

	RedisURL string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`

	SMTPHost     string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort     string `env:"SMTP_PORT" envDefault:"1025"`
	SMTPFrom     string `env:"SMTP_FROM" envDefault:"noreply@example.com"`
	SMTPUsername string `env:"SMTP_USERNAME"`
	SMTPPassword string `env:"SMTP_PASSWORD"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`

	FlowTokenSecret   string        `env:"FLOW_TOKEN_SECRET,required"`
	OTPTTL            time.Duration `env:"OTP_TTL" envDefault:"10m"`
	BcryptCost        int           `env:"BCRYPT_COST" envDefault:"10"`
	DependencyTimeout time.Duration `env:"DEPENDENCY_TIMEOUT" envDefault:"5s"`
	CookieSecure      bool          `env:"COOKIE_SECURE" envDefault:"false"`

	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string `env:"DYNAMO_TABLE_USERS" envDefault:"users"`
	Verifications string `env:"DYNAMO_TABLE_VERIFICATIONS" envDefault:"email_verifications"`
}

const minFlowTokenSecret = 32

// Load reads all configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if len(cfg.FlowTokenSecret) < minFlowTokenSecret {
		return nil, fmt.Errorf("FLOW_TOKEN_SECRET must be at least %d bytes", minFlowTokenSecret)
	}
	if cfg.OTPTTL <= 0 {
		return nil, fmt.Errorf("OTP_TTL must be positive")
	}
	return &cfg, nil
}

// IsProduction reports whether the service runs with production defaults.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}
