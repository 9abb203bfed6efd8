package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config - структура для хранения конфигурации приложения
type Config struct {
	DatabaseURL string `env:"DATABASE_URL"`
	HTTPPort    string `env:"HTTP_PORT" envDefault:"8080"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// Redis Config
	RedisAddr string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPass string `env:"REDIS_PASSWORD"`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Identity oracle (токены выдает внешний сервис, мы только проверяем)
	JWTSecret string `env:"JWT_SECRET"`

	// Confirmation session
	CountdownDuration   time.Duration `env:"COUNTDOWN_DURATION" envDefault:"15s"`
	SessionPollInterval time.Duration `env:"SESSION_POLL_INTERVAL" envDefault:"250ms"`

	// Submission pipeline
	SubmitCooldown time.Duration `env:"SUBMIT_COOLDOWN" envDefault:"8s"`

	// Risk classifier
	ClassifierURL     string        `env:"CLASSIFIER_URL"`
	ClassifierAPIKey  string        `env:"CLASSIFIER_API_KEY"`
	ClassifierTimeout time.Duration `env:"CLASSIFIER_TIMEOUT" envDefault:"5s"`
	RiskCacheTTL      time.Duration `env:"RISK_CACHE_TTL" envDefault:"60s"`

	// Position source
	PositionTTL time.Duration `env:"POSITION_TTL" envDefault:"2m"`

	// Motion trigger
	DropThreshold  float64       `env:"MOTION_DROP_THRESHOLD" envDefault:"2.0"`
	ShakeThreshold float64       `env:"MOTION_SHAKE_THRESHOLD" envDefault:"12.0"`
	MotionDebounce time.Duration `env:"MOTION_DEBOUNCE" envDefault:"3s"`

	// Notification channels
	SMSProvider string `env:"SMS_PROVIDER"`
	SMSAPIKey   string `env:"SMS_API_KEY"`
	SMSSender   string `env:"SMS_SENDER"`
	SMTPHost    string `env:"SMTP_HOST"`
	SMTPPort    int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser    string `env:"SMTP_USER"`
	SMTPPass    string `env:"SMTP_PASSWORD"`
	SMTPFrom    string `env:"SMTP_FROM"`

	// Webhook Config
	WebhookURL        string        `env:"WEBHOOK_URL"`
	WebhookSecret     string        `env:"WEBHOOK_SECRET"`
	WebhookTimeout    time.Duration `env:"WEBHOOK_TIMEOUT" envDefault:"5s"`
	WebhookMaxRetries int           `env:"WEBHOOK_MAX_RETRIES" envDefault:"3"`
	WebhookBaseDelay  time.Duration `env:"WEBHOOK_BASE_DELAY" envDefault:"500ms"`

	// MQTT ingest (необязательный, включается если задан брокер)
	MQTTBroker        string `env:"MQTT_BROKER"`
	MQTTMotionTopic   string `env:"MQTT_MOTION_TOPIC" envDefault:"safety/motion/+"`
	MQTTPositionTopic string `env:"MQTT_POSITION_TOPIC" envDefault:"safety/position/+"`
}

// LoadConfig загружает конфигурацию из переменных окружения и .env файла
func LoadConfig() (*Config, error) {
	// Загрузка переменных окружения из .env файла (если есть)
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка загрузки файла .env: %w", err)
	}

	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		HTTPPort:            getEnv("HTTP_PORT", "8080"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		RedisAddr:           getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:           os.Getenv("REDIS_PASSWORD"),
		RedisDB:             getEnvAsInt("REDIS_DB", 0),
		JWTSecret:           os.Getenv("JWT_SECRET"),
		CountdownDuration:   getEnvAsDuration("COUNTDOWN_DURATION", 15*time.Second),
		SessionPollInterval: getEnvAsDuration("SESSION_POLL_INTERVAL", 250*time.Millisecond),
		SubmitCooldown:      getEnvAsDuration("SUBMIT_COOLDOWN", 8*time.Second),
		ClassifierURL:       os.Getenv("CLASSIFIER_URL"),
		ClassifierAPIKey:    os.Getenv("CLASSIFIER_API_KEY"),
		ClassifierTimeout:   getEnvAsDuration("CLASSIFIER_TIMEOUT", 5*time.Second),
		RiskCacheTTL:        getEnvAsDuration("RISK_CACHE_TTL", 60*time.Second),
		PositionTTL:         getEnvAsDuration("POSITION_TTL", 2*time.Minute),
		DropThreshold:       getEnvAsFloat("MOTION_DROP_THRESHOLD", 2.0),
		ShakeThreshold:      getEnvAsFloat("MOTION_SHAKE_THRESHOLD", 12.0),
		MotionDebounce:      getEnvAsDuration("MOTION_DEBOUNCE", 3*time.Second),
		SMSProvider:         os.Getenv("SMS_PROVIDER"),
		SMSAPIKey:           os.Getenv("SMS_API_KEY"),
		SMSSender:           os.Getenv("SMS_SENDER"),
		SMTPHost:            os.Getenv("SMTP_HOST"),
		SMTPPort:            getEnvAsInt("SMTP_PORT", 587),
		SMTPUser:            os.Getenv("SMTP_USER"),
		SMTPPass:            os.Getenv("SMTP_PASSWORD"),
		SMTPFrom:            os.Getenv("SMTP_FROM"),
		WebhookURL:          os.Getenv("WEBHOOK_URL"),
		WebhookSecret:       os.Getenv("WEBHOOK_SECRET"),
		WebhookTimeout:      getEnvAsDuration("WEBHOOK_TIMEOUT", 5*time.Second),
		WebhookMaxRetries:   getEnvAsInt("WEBHOOK_MAX_RETRIES", 3),
		WebhookBaseDelay:    getEnvAsDuration("WEBHOOK_BASE_DELAY", 500*time.Millisecond),
		MQTTBroker:          os.Getenv("MQTT_BROKER"),
		MQTTMotionTopic:     getEnv("MQTT_MOTION_TOPIC", "safety/motion/+"),
		MQTTPositionTopic:   getEnv("MQTT_POSITION_TOPIC", "safety/position/+"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}

	return cfg, nil
}

// getEnv возвращает значение переменной окружения или значение по умолчанию
func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt возвращает значение переменной окружения как int или значение по умолчанию
func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloat возвращает значение переменной окружения как float64 или значение по умолчанию
func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// getEnvAsDuration возвращает значение переменной окружения как time.Duration или значение по умолчанию
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if durationValue, err := time.ParseDuration(value); err == nil {
			return durationValue
		}
	}
	return defaultValue
}
