package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Ai        AIConfig
	Interview InterviewConfig
	Telemetry TelemetryConfig
}

type AppConfig struct {
	Port               string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JwtSecret          string
}

type DatabaseConfig struct {
	Connection  string
	AutoMigrate bool
}

type AIConfig struct {
	LLMProvider       string // "ollama", "openai", "gemini" or "mock"
	LLMModel          string // e.g. "llama3", "gpt-4o-mini", "gemini-2.5-flash"
	LLMBaseURL        string
	LLMAPIKey         string
	CompletionTimeout time.Duration
	Temperature       float64
}

type InterviewConfig struct {
	RateLimit          int
	RateWindow         time.Duration
	DocumentCharLimit  int
	DefaultMode        string
	EventsTopic        string
	RulesFile          string // optional override of the embedded prompt rules
	ExtractionTimeout  time.Duration
	ExtractTemperature float64
}

type TelemetryConfig struct {
	OtelEnabled  bool
	OtelEndpoint string
	ServiceName  string
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JwtSecret:          getEnv("JWT_SECRET", ""),
		},
		Database: DatabaseConfig{
			Connection:  getEnv("DB_CONNECTION_STRING", ""),
			AutoMigrate: getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Ai: AIConfig{
			LLMProvider:       getEnv("LLM_PROVIDER", "ollama"),
			LLMModel:          getEnv("LLM_MODEL", "llama3"),
			LLMBaseURL:        getEnv("LLM_BASE_URL", ""),
			LLMAPIKey:         getEnv("LLM_API_KEY", ""),
			CompletionTimeout: getEnvAsDuration("LLM_TIMEOUT", 60*time.Second),
			Temperature:       getEnvAsFloat("LLM_TEMPERATURE", 0.7),
		},
		Interview: InterviewConfig{
			RateLimit:          getEnvAsInt("INTERVIEW_RATE_LIMIT", 20),
			RateWindow:         getEnvAsDuration("INTERVIEW_RATE_WINDOW", time.Minute),
			DocumentCharLimit:  getEnvAsInt("INTERVIEW_DOCUMENT_CHAR_LIMIT", 8000),
			DefaultMode:        getEnv("INTERVIEW_DEFAULT_MODE", "deep"),
			EventsTopic:        getEnv("INTERVIEW_EVENTS_TOPIC", "INTERVIEW_EVENTS"),
			RulesFile:          getEnv("INTERVIEW_RULES_FILE", ""),
			ExtractionTimeout:  getEnvAsDuration("EXTRACTION_TIMEOUT", 90*time.Second),
			ExtractTemperature: getEnvAsFloat("EXTRACTION_TEMPERATURE", 0.2),
		},
		Telemetry: TelemetryConfig{
			OtelEnabled:  getEnvAsBool("OTEL_ENABLED", false),
			OtelEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4318"),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "ai-lifeplan-backend"),
		},
	}
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

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := strings.TrimSpace(getEnv(key, ""))
	if strValue == "" {
		return fallback
	}
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	if seconds, err := strconv.Atoi(strValue); err == nil {
		return time.Duration(seconds) * time.Second
	}
	return fallback
}
