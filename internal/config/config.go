package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	DBPath    string
	OutputDir string

	HTTPAddr      string
	OrderNoPrefix string

	RegistryAPIBaseURL   string
	RegistryAPIToken     string
	RegistryRateLimitRPS int
	RegistryTimeoutMs    int

	RegistryPollIntervalSec int
	RegistryPollBatch       int
}

func Load() (Config, error) {
	_ = godotenv.Load()

	cwd, err := os.Getwd()
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		DBPath:    getEnv("DB_PATH", filepath.Join(cwd, "data", "optika.db")),
		OutputDir: getEnv("OUTPUT_DIR", filepath.Join(cwd, "out")),

		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		OrderNoPrefix: getEnv("ORDER_NO_PREFIX", "XS"),

		RegistryAPIBaseURL:   getEnv("REGISTRY_API_BASE_URL", ""),
		RegistryAPIToken:     getEnv("REGISTRY_API_TOKEN", ""),
		RegistryRateLimitRPS: getEnvInt("REGISTRY_RATE_LIMIT_RPS", 5),
		RegistryTimeoutMs:    getEnvInt("REGISTRY_TIMEOUT_MS", 30000),

		RegistryPollIntervalSec: getEnvInt("REGISTRY_POLL_INTERVAL_SEC", 300),
		RegistryPollBatch:       getEnvInt("REGISTRY_POLL_BATCH", 50),
	}

	return cfg, nil
}

func (c Config) Require(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("missing required env var: %s", name)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
