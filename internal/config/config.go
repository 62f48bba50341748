package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	DatabaseURL         string
	RedisURL            string
	JWTSecret           string
	SessionTTL          time.Duration
	OperatorKeyHash     string // bcrypt hash of the emergency shared secret; empty disables the bypass entirely
	FrontendURLEndsWith string
	DevPassword         string
	RollupCacheTTL      time.Duration
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = "8080"
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL")
	if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}

	sessionTTL := viper.GetDuration("SESSION_TTL")
	if sessionTTL == 0 {
		sessionTTL = 24 * time.Hour
	}
	rollupTTL := viper.GetDuration("ROLLUP_CACHE_TTL")
	if rollupTTL == 0 {
		rollupTTL = time.Minute
	}

	return &Config{
		Env:                 env,
		Port:                port,
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		JWTSecret:           viper.GetString("JWT_SECRET"),
		SessionTTL:          sessionTTL,
		OperatorKeyHash:     viper.GetString("OPERATOR_KEY_HASH"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		RollupCacheTTL:      rollupTTL,
	}, nil
}
