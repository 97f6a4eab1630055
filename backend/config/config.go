package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DBDriver   string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBPath     string
	JWTSecret  string
	ServerPort string

	Timezone       string
	CycleLength    time.Duration
	SweepInterval  time.Duration
	ReminderWindow time.Duration
	SweepSecret    string
	AllowTestReset bool

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPassword string
	SMTPFrom     string

	RedisAddr     string
	RedisPassword string

	LogFormat string
	LogColor  string

	RulesFile string
	Rules     Rules
}

func LoadConfig() (*Config, error) {
	err := godotenv.Load()
	if err != nil {
		log.Println("Error loading .env file, using environment variables")
	}

	cfg := &Config{
		DBDriver:   getEnv("DB_DRIVER", "postgres"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", "postgres"),
		DBName:     getEnv("DB_NAME", "cactus"),
		DBPath:     getEnv("DB_PATH", "cactus.db"),
		JWTSecret:  getEnv("JWT_SECRET", "secret"),
		ServerPort: getEnv("SERVER_PORT", "8080"),

		Timezone:       getEnv("TIMEZONE", "UTC"),
		CycleLength:    getDuration("CYCLE_LENGTH", 24*time.Hour),
		SweepInterval:  getDuration("SWEEP_INTERVAL", 6*time.Hour),
		ReminderWindow: getDuration("REMINDER_WINDOW", 3*time.Hour),
		SweepSecret:    getEnv("SWEEP_SECRET", ""),
		AllowTestReset: getBool("ALLOW_TEST_RESET", false),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     getEnv("SMTP_PORT", "587"),
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPFrom:     getEnv("SMTP_FROM", "cactus@localhost"),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		LogFormat: getEnv("LOG_FORMAT", "text"),
		LogColor:  getEnv("LOG_COLOR", "auto"),

		RulesFile: getEnv("RULES_FILE", ""),
		Rules:     DefaultRules(),
	}

	if cfg.RulesFile != "" {
		rules, err := LoadRules(cfg.RulesFile)
		if err != nil {
			return nil, err
		}
		cfg.Rules = rules
	}

	return cfg, nil
}

// Location resolves the configured time zone used for "today" in the
// notification gate. Unknown zones fall back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		log.Printf("Unknown timezone %q, using UTC", c.Timezone)
		return time.UTC
	}
	return loc
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("Invalid duration for %s: %q, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

func getBool(key string, defaultValue bool) bool {
	value, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}
