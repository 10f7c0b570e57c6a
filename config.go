package accounts

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries the runtime knobs of the account core. Values come from the
// environment; a .env file is honored when present.
type Config struct {
	DSN              string
	RedisAddr        string
	RedisPassword    string
	RedisDB          int
	MaxLoginAttempts int
	BcryptCost       int
	RetryBackoff     time.Duration
	TemplatesDir     string
}

// LoadConfig reads configuration from the environment, applying defaults for
// anything unset.
func LoadConfig() Config {
	_ = godotenv.Load()

	return Config{
		DSN:              envString("ACCOUNTS_DSN", "file::memory:?cache=shared"),
		RedisAddr:        envString("ACCOUNTS_REDIS_ADDR", "localhost:6379"),
		RedisPassword:    envString("ACCOUNTS_REDIS_PASSWORD", ""),
		RedisDB:          envInt("ACCOUNTS_REDIS_DB", 0),
		MaxLoginAttempts: envInt("ACCOUNTS_MAX_LOGIN_ATTEMPTS", DefaultMaxLoginAttempts),
		BcryptCost:       envInt("ACCOUNTS_BCRYPT_COST", DefaultBcryptCost),
		RetryBackoff:     envDuration("ACCOUNTS_RETRY_BACKOFF", DefaultRetryBackoff),
		TemplatesDir:     envString("ACCOUNTS_TEMPLATES_DIR", "templates"),
	}
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
