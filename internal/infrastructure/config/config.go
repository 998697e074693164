package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const devSessionSecret = "travelshop-dev-session-secret"

type Config struct {
	ServiceName string `envconfig:"SERVICE_NAME" default:"travelshop"`
	Env         string `envconfig:"ENV" default:"dev"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile     string `envconfig:"LOG_FILE" default:""`
	Currency    string `envconfig:"CURRENCY" default:"KRW"`
	ShopName    string `envconfig:"SHOP_NAME" default:"트래블샵"`

	SessionSecret string `envconfig:"SESSION_SECRET" default:""`

	MongoURI      string `envconfig:"MONGO_URI" default:""`
	MongoDatabase string `envconfig:"MONGO_DATABASE" default:"travelshop"`

	KafkaBrokers string `envconfig:"KAFKA_BROKERS" default:""`
	KafkaTopic   string `envconfig:"KAFKA_TOPIC" default:"travelshop.events"`

	KakaoPay KakaoPay
	Toss     Toss

	ProviderTimeout time.Duration `envconfig:"PROVIDER_TIMEOUT" default:"10s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`

	SMTP     SMTP
	MailFrom string `envconfig:"MAIL_FROM" default:""`

	PaymentRateRPS   float64 `envconfig:"PAYMENT_RATE_RPS" default:"1"`
	PaymentRateBurst int     `envconfig:"PAYMENT_RATE_BURST" default:"5"`
}

type KakaoPay struct {
	SecretKey string `envconfig:"KAKAOPAY_SECRET_KEY" default:""`
	CID       string `envconfig:"KAKAOPAY_CID" default:"TC0ONETIME"`
	BaseURL   string `envconfig:"KAKAOPAY_BASE_URL" default:"https://open-api.kakaopay.com"`
}

type Toss struct {
	SecretKey string `envconfig:"TOSS_SECRET_KEY" default:""`
	BaseURL   string `envconfig:"TOSS_BASE_URL" default:"https://api.tosspayments.com"`
}

type SMTP struct {
	Host     string        `envconfig:"SMTP_HOST" default:""`
	Port     int           `envconfig:"SMTP_PORT" default:"587"`
	Username string        `envconfig:"SMTP_USERNAME" default:""`
	Password string        `envconfig:"SMTP_PASSWORD" default:""`
	Timeout  time.Duration `envconfig:"SMTP_TIMEOUT" default:"15s"`
}

// Load reads .env files when present, then the environment. Variables
// already set in the environment win over .env.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	c.Env = strings.ToLower(strings.TrimSpace(c.Env))
	if c.SessionSecret == "" {
		if !c.IsDev() {
			return errors.New("config: SESSION_SECRET is required outside dev")
		}
		c.SessionSecret = devSessionSecret
	}
	if c.ProviderTimeout <= 0 {
		return fmt.Errorf("config: PROVIDER_TIMEOUT must be positive, got %s", c.ProviderTimeout)
	}
	if c.PaymentRateRPS <= 0 || c.PaymentRateBurst <= 0 {
		return errors.New("config: PAYMENT_RATE_RPS and PAYMENT_RATE_BURST must be positive")
	}
	return nil
}

func (c *Config) IsDev() bool { return c.Env == "dev" || c.Env == "development" || c.Env == "local" }

func (c *Config) UseMongo() bool { return c.MongoURI != "" }

func (c *Config) UseKafka() bool { return strings.TrimSpace(c.KafkaBrokers) != "" }
