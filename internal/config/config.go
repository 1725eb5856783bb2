package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Provider names for Config.LLMProvider.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

type Config struct {
	Port         string
	DatabaseFile string
	LogLevel     string

	// S3 (uploaded originals)
	S3Endpoint        string
	S3AccessKeyID     string
	S3SecretAccessKey string
	S3BucketName      string
	S3UseSSL          bool

	// LLM: openai (primary) or bedrock (secondary). Missing credentials
	// select degraded mode, never a startup failure.
	LLMProvider    string
	OpenAIAPIKey   string
	OpenAIModel    string
	AWSRegion      string
	AWSAccessKeyID string
	AWSSecretKey   string
	BedrockModelID string

	// OCR fallback for scanned documents
	OCREnabled   bool
	OCRLanguages string

	CORSOrigins []string

	// Upload limits
	MaxFileSize int64
}

func Load() (*Config, error) {
	// .env is optional; real environment always wins.
	_ = godotenv.Load()

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DatabaseFile: getEnv("DATABASE_FILE", "data/burobuddy.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		S3Endpoint:        getEnv("S3_ENDPOINT", "localhost:9000"),
		S3AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", "minioadmin"),
		S3SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", "minioadmin"),
		S3BucketName:      getEnv("S3_BUCKET_NAME", "documents"),
		S3UseSSL:          getEnv("S3_USE_SSL", "false") == "true",

		LLMProvider:    getEnv("LLM_PROVIDER", ProviderOpenAI),
		OpenAIAPIKey:   getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:    getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AWSRegion:      getEnv("AWS_REGION", "eu-central-1"),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		BedrockModelID: getEnv("BEDROCK_MODEL_ID", "amazon.nova-micro-v1:0"),

		OCREnabled:   getEnv("OCR_ENABLED", "true") == "true",
		OCRLanguages: getEnv("OCR_LANGUAGES", "deu+eng"),

		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000")),

		MaxFileSize: 5 * 1024 * 1024,
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
