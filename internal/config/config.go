package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	OpenAI   OpenAIConfig
}

type AppConfig struct {
	Port          string
	Environment   string
	LogFilePath   string
	SessionTTLMin int
	NotifyChannel string
}

type DatabaseConfig struct {
	URL string
}

type OpenAIConfig struct {
	APIKey string
	Model  string
}

// Load reads configuration from a .env file when present and from the
// process environment otherwise.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:          getEnv("PORT", "8080"),
			Environment:   getEnv("GO_ENV", "development"),
			LogFilePath:   getEnv("LOG_FILE_PATH", "carechat.log"),
			SessionTTLMin: getEnvAsInt("SESSION_TTL_MINUTES", 60),
			NotifyChannel: getEnv("POSTGRES_NOTIFY_CHANNEL", "transcript_updates"),
		},
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey: getEnv("OPENAI_API_KEY", ""),
			Model:  getEnv("OPENAI_MODEL_CHAT", "gpt-4o-mini"),
		},
	}
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}
