package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

type Config struct {
	Host               string        `env:"HOST" env-default:"0.0.0.0"`
	Port               string        `env:"PORT" env-default:"8080"`
	LogLevel           string        `env:"LOG_LEVEL" env-default:"info"`
	RequestTimeout     time.Duration `env:"REQUEST_TIMEOUT" env-default:"120s"`
	MediaFetchTimeout  time.Duration `env:"MEDIA_FETCH_TIMEOUT" env-default:"30s"`
	ValidateTimeout    time.Duration `env:"VALIDATE_TIMEOUT" env-default:"10s"`
	MaxRequestBodySize int64         `env:"MAX_REQUEST_BODY_SIZE" env-default:"52428800"`

	// CredentialFile holds the persisted API key.
	CredentialFile string `env:"CREDENTIAL_FILE" env-default:"media-inspector.json"`

	Google GoogleConfig
	Azure  AzureConfig
	S3     S3Config

	// AllowedMediaHosts restricts media URLs to these hosts (buckets for gs:// and s3://).
	// Empty allows any host.
	AllowedMediaHosts []string `env:"ALLOWED_MEDIA_HOSTS" env-separator:","`

	// DatabaseURL selects the Postgres history repository; empty keeps history in memory.
	DatabaseURL  string `env:"DATABASE_URL"`
	BatchWorkers int    `env:"BATCH_WORKERS" env-default:"4"`
}

type GoogleConfig struct {
	VisionBaseURL      string        `env:"GOOGLE_VISION_URL" env-default:"https://vision.googleapis.com"`
	VideoBaseURL       string        `env:"GOOGLE_VIDEO_URL" env-default:"https://videointelligence.googleapis.com"`
	SpeechBaseURL      string        `env:"GOOGLE_SPEECH_URL" env-default:"https://speech.googleapis.com"`
	LanguageBaseURL    string        `env:"GOOGLE_LANGUAGE_URL" env-default:"https://language.googleapis.com"`
	VideoPollInterval  time.Duration `env:"GOOGLE_VIDEO_POLL_INTERVAL" env-default:"2s"`
	SpeechLanguageCode string        `env:"GOOGLE_SPEECH_LANGUAGE" env-default:"en-US"`
}

type AzureConfig struct {
	AccountName string `env:"AZURE_STORAGE_ACCOUNT"`
	AccountKey  string `env:"AZURE_STORAGE_KEY"`
}

type S3Config struct {
	Region          string `env:"AWS_REGION" env-default:"us-east-1"`
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	UsePathStyle    bool   `env:"AWS_S3_PATH_STYLE" env-default:"false"`
}

func (c *Config) ServerAddress() string {
	host := strings.TrimSpace(c.Host)
	port := strings.TrimSpace(c.Port)
	return net.JoinHostPort(host, port)
}

// AzureEnabled reports whether blob credentials were supplied.
func (c *Config) AzureEnabled() bool {
	return c.Azure.AccountName != "" && c.Azure.AccountKey != ""
}

// S3Enabled reports whether s3:// URLs can be fetched: static keys or a custom
// endpoint were supplied.
func (c *Config) S3Enabled() bool {
	return (c.S3.AccessKeyID != "" && c.S3.SecretAccessKey != "") || c.S3.Endpoint != ""
}

// LoadFromEnv reads an optional .env file, then the process environment.
func LoadFromEnv() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks ranges that cleanenv cannot express.
func (c *Config) Validate() error {
	p, err := strconv.Atoi(strings.TrimSpace(c.Port))
	if err != nil || p < 1 || p > 65535 {
		return fmt.Errorf("invalid PORT: %q", c.Port)
	}
	if c.MaxRequestBodySize <= 0 {
		return fmt.Errorf("MAX_REQUEST_BODY_SIZE must be > 0 (got %d)", c.MaxRequestBodySize)
	}
	if c.RequestTimeout <= 0 || c.MediaFetchTimeout <= 0 || c.ValidateTimeout <= 0 {
		return fmt.Errorf("timeouts must be > 0 (got request=%s, fetch=%s, validate=%s)",
			c.RequestTimeout, c.MediaFetchTimeout, c.ValidateTimeout)
	}
	if c.Google.VideoPollInterval <= 0 {
		return fmt.Errorf("GOOGLE_VIDEO_POLL_INTERVAL must be > 0 (got %s)", c.Google.VideoPollInterval)
	}
	if strings.TrimSpace(c.CredentialFile) == "" {
		return fmt.Errorf("CREDENTIAL_FILE must not be empty")
	}
	if c.BatchWorkers < 0 {
		return fmt.Errorf("BATCH_WORKERS must be >= 0 (got %d)", c.BatchWorkers)
	}
	return nil
}
