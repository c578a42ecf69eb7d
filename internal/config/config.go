package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// DefaultPredictURL is the inference endpoint the page has always talked to.
const DefaultPredictURL = "https://deepfake-backend-hvcq.onrender.com/predict"

type Config struct {
	Port              string        `validate:"required,numeric"`
	APIKey            string
	LogLevel          string        `validate:"oneof=debug info warn error"`
	PredictURL        string        `validate:"required,url"`
	PredictTimeout    time.Duration `validate:"min=0"`
	PredictRatePerSec float64       `validate:"gt=0"`
	PredictBurst      int           `validate:"min=1"`
	StrictPrediction  bool
	MaxFileSizeMB     int64 `validate:"min=1,max=100"`
	SessionSecret     string
	SessionTTL        time.Duration `validate:"gt=0"`
	AllowedOrigins    []string      `validate:"min=1,dive,required"`
	RateLimit         int           `validate:"min=1"`
	RateLimitWindow   time.Duration `validate:"gt=0"`
	RateLimitBlock    time.Duration `validate:"min=0"`
}

// MaxFileSizeBytes returns the upload limit in bytes.
func (c *Config) MaxFileSizeBytes() int64 {
	return c.MaxFileSizeMB * 1024 * 1024
}

// LoadConfig reads .env (when present) and the process environment into a Config.
// Flags bound to v by the CLI take precedence over the environment.
func LoadConfig(logger *zap.Logger, v *viper.Viper) (*Config, error) {
	// .env is optional, production sets real environment variables
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	if v == nil {
		v = viper.New()
	}
	setDefaults(v)
	v.AutomaticEnv()

	config := &Config{
		Port:              v.GetString("PORT"),
		APIKey:            v.GetString("API_KEY"),
		LogLevel:          strings.ToLower(v.GetString("LOG_LEVEL")),
		PredictURL:        v.GetString("PREDICT_URL"),
		PredictTimeout:    v.GetDuration("PREDICT_TIMEOUT"),
		PredictRatePerSec: v.GetFloat64("PREDICT_RATE_PER_SEC"),
		PredictBurst:      v.GetInt("PREDICT_BURST"),
		StrictPrediction:  v.GetBool("STRICT_PREDICTION"),
		MaxFileSizeMB:     v.GetInt64("MAX_FILE_SIZE_MB"),
		SessionSecret:     v.GetString("SESSION_SECRET"),
		SessionTTL:        v.GetDuration("SESSION_TTL"),
		AllowedOrigins:    splitList(v.GetString("ALLOWED_ORIGINS")),
		RateLimit:         v.GetInt("RATE_LIMIT"),
		RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),
		RateLimitBlock:    v.GetDuration("RATE_LIMIT_BLOCK"),
	}

	if err := validator.New().Struct(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if config.SessionSecret == "" {
		config.SessionSecret = uuid.NewString()
		logger.Warn("SESSION_SECRET not set, generated an ephemeral one; sessions will not survive a restart")
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("API_KEY", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("PREDICT_URL", DefaultPredictURL)
	v.SetDefault("PREDICT_TIMEOUT", "0s")
	v.SetDefault("PREDICT_RATE_PER_SEC", 5)
	v.SetDefault("PREDICT_BURST", 10)
	v.SetDefault("STRICT_PREDICTION", false)
	v.SetDefault("MAX_FILE_SIZE_MB", 10)
	v.SetDefault("SESSION_SECRET", "")
	v.SetDefault("SESSION_TTL", "30m")
	v.SetDefault("ALLOWED_ORIGINS", "*")
	v.SetDefault("RATE_LIMIT", 100)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("RATE_LIMIT_BLOCK", "1h")
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}
