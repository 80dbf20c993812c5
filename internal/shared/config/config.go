package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	DatabaseURL     string
	CORSAllowOrigin []string
	LocalStoreDir   string

	OpenAIAPIKey string
	LLMModel     string

	// Prompt overrides per language; empty means use the built-in defaults.
	ExtractionPromptEN string
	ExtractionPromptHE string

	OCRTesseract string
	OCRPdftoppm  string
	OCRLanguages string
	OCRDPI       int

	ProcessTimeout time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:               getEnv("PORT", "8080"),
		Env:                env,
		DatabaseURL:        dbURL,
		CORSAllowOrigin:    splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		LocalStoreDir:      getEnv("LOCAL_STORE_DIR", "./data"),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		LLMModel:           getEnv("LLM_MODEL", "gpt-4o-mini"),
		ExtractionPromptEN: os.Getenv("EXTRACTION_PROMPT_EN"),
		ExtractionPromptHE: os.Getenv("EXTRACTION_PROMPT_HE"),
		OCRTesseract:       getEnv("OCR_TESSERACT", "tesseract"),
		OCRPdftoppm:        getEnv("OCR_PDFTOPPM", "pdftoppm"),
		OCRLanguages:       getEnv("OCR_LANGUAGES", "eng+heb"),
		OCRDPI:             getEnvInt("OCR_DPI", 300),
		ProcessTimeout:     time.Duration(getEnvInt("PROCESS_TIMEOUT_SECONDS", 120)) * time.Second,
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	parsed, err := strconv.Atoi(raw)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}
