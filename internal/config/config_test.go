package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv_Defaults(t *testing.T) {
	unsetenv(t, "HOST", "PORT", "REQUEST_TIMEOUT", "GOOGLE_VISION_URL", "GOOGLE_SPEECH_LANGUAGE",
		"BATCH_WORKERS", "AZURE_STORAGE_ACCOUNT", "AZURE_STORAGE_KEY", "ALLOWED_MEDIA_HOSTS")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Host)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 120*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "https://vision.googleapis.com", cfg.Google.VisionBaseURL)
	assert.Equal(t, "en-US", cfg.Google.SpeechLanguageCode)
	assert.Equal(t, 4, cfg.BatchWorkers)
	assert.False(t, cfg.AzureEnabled())
	assert.Empty(t, cfg.AllowedMediaHosts)
}

// unsetenv removes keys for the duration of the test; t.Setenv restores them afterwards.
func unsetenv(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
}

func TestLoadFromEnv_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("REQUEST_TIMEOUT", "5s")
	t.Setenv("GOOGLE_SPEECH_URL", "http://localhost:1234")
	t.Setenv("AZURE_STORAGE_ACCOUNT", "acct")
	t.Setenv("AZURE_STORAGE_KEY", "a2V5")
	t.Setenv("ALLOWED_MEDIA_HOSTS", "media.example.com,clips-bucket")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "http://localhost:1234", cfg.Google.SpeechBaseURL)
	assert.True(t, cfg.AzureEnabled())
	assert.Equal(t, []string{"media.example.com", "clips-bucket"}, cfg.AllowedMediaHosts)
}

func TestValidate(t *testing.T) {
	valid := func() Config {
		return Config{
			Port:               "8080",
			RequestTimeout:     time.Second,
			MediaFetchTimeout:  time.Second,
			ValidateTimeout:    time.Second,
			MaxRequestBodySize: 1,
			CredentialFile:     "key.json",
			Google:             GoogleConfig{VideoPollInterval: time.Second},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"valid", func(c *Config) {}, false},
		{"port not numeric", func(c *Config) { c.Port = "http" }, true},
		{"port out of range", func(c *Config) { c.Port = "70000" }, true},
		{"zero body size", func(c *Config) { c.MaxRequestBodySize = 0 }, true},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }, true},
		{"zero poll interval", func(c *Config) { c.Google.VideoPollInterval = 0 }, true},
		{"empty credential file", func(c *Config) { c.CredentialFile = " " }, true},
		{"negative workers", func(c *Config) { c.BatchWorkers = -1 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestServerAddress(t *testing.T) {
	cfg := &Config{Host: " 127.0.0.1 ", Port: " 8080"}
	assert.Equal(t, "127.0.0.1:8080", cfg.ServerAddress())
}

func TestStorageEnabled(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.AzureEnabled())
	assert.False(t, cfg.S3Enabled())

	cfg.Azure = AzureConfig{AccountName: "acct", AccountKey: "secret"}
	assert.True(t, cfg.AzureEnabled())

	cfg.S3 = S3Config{AccessKeyID: "id"}
	assert.False(t, cfg.S3Enabled(), "a key id alone is not enough")
	cfg.S3.SecretAccessKey = "secret"
	assert.True(t, cfg.S3Enabled())

	assert.True(t, (&Config{S3: S3Config{Endpoint: "http://localhost:9000"}}).S3Enabled())
}
