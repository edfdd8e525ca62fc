package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	Event       EventConfig       `yaml:"event"`
	Sender      SenderConfig      `yaml:"sender"`
	Generation  GenerationConfig  `yaml:"generation"`
	Delivery    DeliveryConfig    `yaml:"delivery"`
	Unsubscribe UnsubscribeConfig `yaml:"unsubscribe"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Retry       RetryConfig       `yaml:"retry"`
	Storage     StorageConfig     `yaml:"storage"`
	Output      OutputConfig      `yaml:"output"`
	Logging     LoggingConfig     `yaml:"logging"`
}

// EventConfig describes the event the campaign invites recipients to.
// Name, date and location are substituted into prompts and subject lines.
type EventConfig struct {
	Name        string `yaml:"name"`
	Date        string `yaml:"date"`
	Location    string `yaml:"location"`
	RegisterURL string `yaml:"register_url"`
}

// SenderConfig contains the envelope identity used on every send
type SenderConfig struct {
	From    string `yaml:"from"`
	ReplyTo string `yaml:"reply_to"`
}

// GenerationConfig contains text-generation service settings.
// The endpoint speaks the OpenAI-compatible chat-completions protocol.
type GenerationConfig struct {
	Endpoint    string        `yaml:"endpoint"`
	Model       string        `yaml:"model"`
	MaxTokens   int           `yaml:"max_tokens"`
	Temperature float64       `yaml:"temperature"`
	Timeout     time.Duration `yaml:"timeout"`
	APIKeyEnv   string        `yaml:"api_key_env"` // env var holding the credential
}

// DeliveryConfig selects and configures the delivery provider
type DeliveryConfig struct {
	Provider string       `yaml:"provider"` // resend, smtp
	DryRun   bool         `yaml:"dry_run"`
	Resend   ResendConfig `yaml:"resend"`
	SMTP     SMTPConfig   `yaml:"smtp"`
}

// ResendConfig contains Resend API settings
type ResendConfig struct {
	APIKeyEnv string `yaml:"api_key_env"`
}

// SMTPConfig contains SMTP relay settings for the smtp delivery provider
type SMTPConfig struct {
	Host        string        `yaml:"host"`
	Port        int           `yaml:"port"`
	Username    string        `yaml:"username"`
	PasswordEnv string        `yaml:"password_env"`
	ImplicitTLS bool          `yaml:"implicit_tls"` // true = TLS on connect (465), false = STARTTLS
	Timeout     time.Duration `yaml:"timeout"`
}

// UnsubscribeConfig contains unsubscribe link and endpoint settings
type UnsubscribeConfig struct {
	BaseURL    string `yaml:"base_url"`
	File       string `yaml:"file"`        // CSV the serve command appends to
	ListenAddr string `yaml:"listen_addr"` // for the unsubscribe serve command
}

// RateLimitConfig contains inter-send pacing settings
type RateLimitConfig struct {
	BaseDelay time.Duration `yaml:"base_delay"`
	MaxJitter time.Duration `yaml:"max_jitter"` // random extra delay in [0, max_jitter)
}

// RetryConfig contains the retry policy shared by generation and delivery
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
}

// StorageConfig contains record store settings
type StorageConfig struct {
	Path string `yaml:"path"`
}

// OutputConfig contains backup and report output settings
type OutputConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// Credentials holds secrets resolved from the environment.
// They are never read from the config file.
type Credentials struct {
	GenerationAPIKey string
	ResendAPIKey     string
	SMTPPassword     string
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Generation.Endpoint == "" {
		c.Generation.Endpoint = "https://api.groq.com/openai/v1/chat/completions"
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "llama-3.1-8b-instant"
	}
	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = 500
	}
	if c.Generation.Temperature == 0 {
		c.Generation.Temperature = 0.8
	}
	if c.Generation.Timeout == 0 {
		c.Generation.Timeout = 60 * time.Second
	}
	if c.Generation.APIKeyEnv == "" {
		c.Generation.APIKeyEnv = "GROQ_API_KEY"
	}

	if c.Delivery.Provider == "" {
		c.Delivery.Provider = "resend"
	}
	if c.Delivery.Resend.APIKeyEnv == "" {
		c.Delivery.Resend.APIKeyEnv = "RESEND_API_KEY"
	}
	if c.Delivery.SMTP.Port == 0 {
		c.Delivery.SMTP.Port = 587
	}
	if c.Delivery.SMTP.PasswordEnv == "" {
		c.Delivery.SMTP.PasswordEnv = "SMTP_PASSWORD"
	}
	if c.Delivery.SMTP.Timeout == 0 {
		c.Delivery.SMTP.Timeout = 30 * time.Second
	}

	if c.Unsubscribe.File == "" {
		c.Unsubscribe.File = "data/unsubscribed.csv"
	}
	if c.Unsubscribe.ListenAddr == "" {
		c.Unsubscribe.ListenAddr = ":8085"
	}

	if c.RateLimit.BaseDelay == 0 {
		c.RateLimit.BaseDelay = 2 * time.Second
	}
	if c.RateLimit.MaxJitter == 0 {
		c.RateLimit.MaxJitter = 3 * time.Second
	}

	if c.Retry.MaxAttempts == 0 {
		c.Retry.MaxAttempts = 3
	}
	if c.Retry.BaseDelay == 0 {
		c.Retry.BaseDelay = 2 * time.Second
	}
	if c.Retry.MaxDelay == 0 {
		c.Retry.MaxDelay = 10 * time.Second
	}

	if c.Storage.Path == "" {
		c.Storage.Path = "data/outreach.db"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Event.Name == "" {
		return fmt.Errorf("event.name is required")
	}
	if c.Sender.From == "" {
		return fmt.Errorf("sender.from is required")
	}
	if c.Unsubscribe.BaseURL == "" {
		return fmt.Errorf("unsubscribe.base_url is required")
	}

	switch c.Delivery.Provider {
	case "resend":
	case "smtp":
		if c.Delivery.SMTP.Host == "" {
			return fmt.Errorf("delivery.smtp.host is required when provider is smtp")
		}
	default:
		return fmt.Errorf("invalid delivery.provider: %s (must be resend or smtp)", c.Delivery.Provider)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry.max_attempts must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}

// LoadCredentials resolves secrets from the environment and checks that
// everything the configured pipeline needs is present. A missing required
// credential is fatal before any profile is processed.
func (c *Config) LoadCredentials() (*Credentials, error) {
	creds := &Credentials{
		GenerationAPIKey: os.Getenv(c.Generation.APIKeyEnv),
		ResendAPIKey:     os.Getenv(c.Delivery.Resend.APIKeyEnv),
		SMTPPassword:     os.Getenv(c.Delivery.SMTP.PasswordEnv),
	}

	if creds.GenerationAPIKey == "" {
		return nil, fmt.Errorf("missing generation credential: %s is not set", c.Generation.APIKeyEnv)
	}

	if !c.Delivery.DryRun {
		switch c.Delivery.Provider {
		case "resend":
			if creds.ResendAPIKey == "" {
				return nil, fmt.Errorf("missing delivery credential: %s is not set", c.Delivery.Resend.APIKeyEnv)
			}
		case "smtp":
			if c.Delivery.SMTP.Username != "" && creds.SMTPPassword == "" {
				return nil, fmt.Errorf("missing delivery credential: %s is not set", c.Delivery.SMTP.PasswordEnv)
			}
		}
	}

	return creds, nil
}
