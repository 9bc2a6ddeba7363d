package config

import (
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/rs/zerolog/log"
)

type LLMProvider string

const (
	ProviderOpenAI LLMProvider = "openai"
	ProviderYandex LLMProvider = "yandex"
)

type Config struct {
	ServerPort int `env:"SERVER_PORT" envDefault:"3000"`

	// Admin credentials. Any other pair at login creates a regular player.
	AdminUsername string `env:"ADMIN_USERNAME" envDefault:"admin"`
	AdminPassword string `env:"ADMIN_PASSWORD" envDefault:"mellon"`

	// LLM settings
	LLMProvider      LLMProvider `env:"LLM_PROVIDER" envDefault:"openai"`
	OpenAIAPIKey     string      `env:"OPENAI_API_KEY"`
	OpenAIBaseURL    string      `env:"OPENAI_BASE_URL"`
	OpenAIModel      string      `env:"OPENAI_MODEL" envDefault:"gpt-4o-mini"`
	YandexOAuthToken string      `env:"YANDEX_OAUTH_TOKEN"`
	YandexFolderID   string      `env:"YANDEX_FOLDER_ID"`

	// OpenRouter (optional)
	OpenRouterReferrer string `env:"OPENROUTER_REFERRER"`
	OpenRouterTitle    string `env:"OPENROUTER_TITLE"`

	// Storage
	LevelsFilePath   string `env:"LEVELS_FILE_PATH" envDefault:"data/levels.secret.json"`
	SessionsFilePath string `env:"SESSIONS_FILE_PATH" envDefault:"data/sessions.json"`
	BackupDirPath    string `env:"BACKUP_DIR_PATH" envDefault:"data/backups"`
	ChatLogFilePath  string `env:"CHAT_LOG_FILE_PATH" envDefault:"logs/chat.jsonl"`

	// Gameplay tuning
	RequestCooldown time.Duration `env:"REQUEST_COOLDOWN" envDefault:"2s"`
	MaxReplyLength  int           `env:"MAX_REPLY_LENGTH" envDefault:"600"`
}

func New() *Config {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		log.Fatal().Err(err).Msg("failed to parse config")
	}
	return cfg
}
