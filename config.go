package imagehandler

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is read from the environment of the function.
type Config struct {
	SignatureEnabled bool
	SecretParameter  string

	FallbackEnabled bool
	FallbackBucket  string
	FallbackKey     string

	CORSEnabled bool
	CORSOrigin  string

	SourceBuckets []string

	// TransformFunctionName selects a remote transform function. Images are
	// transformed in process when it is empty.
	TransformFunctionName string

	SentryDSN string
	Logging   LoggingConfig
}

// LoggingConfig selects the log level and the encoding, "json" or "console".
type LoggingConfig struct {
	Level  string
	Format string
}

// NewViper returns a viper instance bound to the environment. Keys are the
// environment variable names.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	v.SetDefault("ENABLE_SIGNATURE", "No")
	v.SetDefault("ENABLE_DEFAULT_FALLBACK_IMAGE", "No")
	v.SetDefault("CORS_ENABLED", "No")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	return v
}

// LoadConfig builds a Config from v. A config file, when v has one set, is
// read first and the environment overrides it.
func LoadConfig(v *viper.Viper) (Config, error) {
	if v.ConfigFileUsed() != "" {
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("reading config file: %w", err)
		}
	}

	cfg := Config{
		SignatureEnabled:      toggle(v.GetString("ENABLE_SIGNATURE")),
		SecretParameter:       strings.TrimSpace(v.GetString("SECRET_PARAMETER")),
		FallbackEnabled:       toggle(v.GetString("ENABLE_DEFAULT_FALLBACK_IMAGE")),
		FallbackBucket:        v.GetString("DEFAULT_FALLBACK_IMAGE_BUCKET"),
		FallbackKey:           v.GetString("DEFAULT_FALLBACK_IMAGE_KEY"),
		CORSEnabled:           toggle(v.GetString("CORS_ENABLED")),
		CORSOrigin:            v.GetString("CORS_ORIGIN"),
		SourceBuckets:         splitList(v.GetString("SOURCE_BUCKETS")),
		TransformFunctionName: strings.TrimSpace(v.GetString("TRANSFORM_FUNCTION_NAME")),
		SentryDSN:             v.GetString("SENTRY_DSN"),
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("LOG_LEVEL")),
			Format: strings.ToLower(v.GetString("LOG_FORMAT")),
		},
	}

	if cfg.SignatureEnabled && cfg.SecretParameter == "" {
		return Config{}, fmt.Errorf("ENABLE_SIGNATURE is set but SECRET_PARAMETER is empty")
	}
	switch cfg.Logging.Format {
	case "json", "console":
	default:
		return Config{}, fmt.Errorf("unknown LOG_FORMAT %q", cfg.Logging.Format)
	}
	return cfg, nil
}

// toggle accepts the Yes/No values of the deployment template as well as
// true/false.
func toggle(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "true", "1", "on":
		return true
	}
	return false
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
