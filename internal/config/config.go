package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GeminiAPIKey    string
	PineconeAPIKey  string
	PineconeHost    string
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	RedisDB         int
	HTTPPort        string
	LogLevel        string
	ExternalTimeout time.Duration

	// Usage policy
	GuestTokenLimit int64
	FreeTokenLimit  int64
	ChatTokenLimit  int64

	// Retrieval
	RetrievalTopK     int
	ScoreThreshold    float64
	RankerRescanLimit int

	// Conversation window
	ContextWindowSize int
	ContextTTL        time.Duration
}

var AppConfig Config

func LoadConfig() {
	err := godotenv.Load() // Load .env file if it exists
	if err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	AppConfig = Config{
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),
		PineconeAPIKey:  getEnv("PINECONE_API_KEY", ""),
		PineconeHost:    getEnv("PINECONE_HOST", ""),
		DatabaseURL:     getEnv("DATABASE_URL", "rag_backend.db"),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvAsInt("REDIS_DB", 0),
		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		LogLevel:        getEnv("LOG_LEVEL", "INFO"),
		ExternalTimeout: time.Duration(getEnvAsInt("EXTERNAL_TIMEOUT_SECS", 15)) * time.Second,

		GuestTokenLimit: int64(getEnvAsInt("GUEST_TOKEN_LIMIT", 3000)),
		FreeTokenLimit:  int64(getEnvAsInt("FREE_TOKEN_LIMIT", 10000)),
		ChatTokenLimit:  int64(getEnvAsInt("CHAT_TOKEN_LIMIT", 30000)),

		RetrievalTopK:     getEnvAsInt("RETRIEVAL_TOP_K", 5),
		ScoreThreshold:    getEnvAsFloat("SCORE_THRESHOLD", 0.5),
		RankerRescanLimit: getEnvAsInt("RANKER_RESCAN_LIMIT", 10000),

		ContextWindowSize: getEnvAsInt("CONTEXT_WINDOW_SIZE", 50),
		ContextTTL:        time.Duration(getEnvAsInt("CONTEXT_TTL_SECS", 3600)) * time.Second,
	}

	if AppConfig.GeminiAPIKey == "" {
		log.Fatal("GEMINI_API_KEY environment variable is required")
	}

	if AppConfig.PineconeAPIKey == "" {
		log.Fatal("PINECONE_API_KEY environment variable is required")
	}

	if AppConfig.PineconeHost == "" {
		log.Fatal("PINECONE_HOST environment variable is required")
	}
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}
