package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	JWTSecret  string
	ServerPort string
	AMQPURL    string

	// Room defaults; each room can override the phase durations.
	DefaultAnswerSeconds int
	DefaultVoteSeconds   int

	// ForgivenessSeconds pads every computed deadline so the timer fires
	// after, never before, the true deadline.
	ForgivenessSeconds int

	// DefaultWinnerText fills a blank when a round ends with no votes cast.
	DefaultWinnerText string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "storygame"),
		JWTSecret:  getEnv("JWT_SECRET", "super-secret-key-change-me"),
		ServerPort: getEnv("SERVER_PORT", "8080"),
		AMQPURL:    getEnv("AMQP_URL", ""),

		DefaultAnswerSeconds: getEnvInt("DEFAULT_ANSWER_SECONDS", 60),
		DefaultVoteSeconds:   getEnvInt("DEFAULT_VOTE_SECONDS", 30),
		ForgivenessSeconds:   getEnvInt("FORGIVENESS_SECONDS", 2),
		DefaultWinnerText:    getEnv("DEFAULT_WINNER_TEXT", "something unspeakable"),
	}
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			return n
		}
	}
	return fallback
}
