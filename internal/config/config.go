// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// matcherFields are the account fields a matcher may join on.
var matcherFields = map[string]bool{
	"username":  true,
	"email":     true,
	"firstname": true,
	"lastname":  true,
}

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP server listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// DatabaseURL is the Postgres DSN.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// AccountMatcher names the assertion attribute joined against local
	// accounts (e.g. "email" or "username").
	AccountMatcher string `mapstructure:"ACCOUNT_MATCHER"`
	// AutoCreate provisions local accounts for unknown identities.
	AutoCreate bool `mapstructure:"SAML_AUTO_CREATE"`
	// AutoUpdate syncs assertion attributes onto accounts on every login.
	AutoUpdate bool `mapstructure:"SAML_AUTO_UPDATE"`
	// TriggerEvents emits account created/updated lifecycle events.
	TriggerEvents bool `mapstructure:"SAML_TRIGGER_EVENTS"`
	// EnabledAuthMethods is the comma-separated, ordered list of enabled
	// auth methods. Order is the post-login hook dispatch order.
	EnabledAuthMethods string `mapstructure:"ENABLED_AUTH_METHODS"`
	// BcryptCost is the bcrypt cost factor (4–31) for generated placeholder
	// credentials; default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// Events (optional). When Kafka brokers are set, reconciliation emits
	// account lifecycle events to Kafka.
	// EventsKafkaBrokers is a comma-separated list of broker addresses.
	EventsKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// EventsKafkaTopic is the Kafka topic for account events.
	EventsKafkaTopic string `mapstructure:"EVENTS_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group used by the events worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ACCOUNT_MATCHER", "username")
	v.SetDefault("SAML_AUTO_CREATE", false)
	v.SetDefault("SAML_AUTO_UPDATE", false)
	v.SetDefault("SAML_TRIGGER_EVENTS", false)
	v.SetDefault("ENABLED_AUTH_METHODS", "manual,saml")
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("APP_ENV", "")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("EVENTS_KAFKA_TOPIC", "sso-account-events")
	v.SetDefault("KAFKA_GROUP_ID", "sso-events-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.HTTPAddr == "" {
		return nil, errors.New("config: HTTP_ADDR must be set")
	}
	if !matcherFields[cfg.AccountMatcher] {
		return nil, fmt.Errorf("config: ACCOUNT_MATCHER must be one of username, email, firstname, lastname; got %q", cfg.AccountMatcher)
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return nil, errors.New("config: BCRYPT_COST must be between 4 and 31")
	}

	return &cfg, nil
}

// EnabledAuthMethodsList returns the enabled auth methods in configured order.
func (c *Config) EnabledAuthMethodsList() []string {
	if c == nil || c.EnabledAuthMethods == "" {
		return nil
	}
	parts := strings.Split(c.EnabledAuthMethods, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// EventsKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if event emission is enabled (non-empty list) and to create the producer.
func (c *Config) EventsKafkaBrokersList() []string {
	if c == nil || c.EventsKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.EventsKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
