package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server   ServerConfig
	DynamoDB DynamoDBConfig
	Redis    RedisConfig
	WhatsApp WhatsAppConfig
	OTP      OTPConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DynamoDBConfig struct {
	Endpoint  string
	Region    string
	TableName string
}

// RedisConfig is optional; when Endpoint is empty the service runs with
// in-memory stores.
type RedisConfig struct {
	Endpoint string
	Password string
	DB       int
}

type WhatsAppConfig struct {
	BaseURL      string
	APIKey       string
	Sender       string
	AppName      string
	TemplateName string
}

type OTPConfig struct {
	Expiry time.Duration
}

type CORSConfig struct {
	Origin string
}

func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
		},
		DynamoDB: DynamoDBConfig{
			Endpoint:  getEnv("DYNAMODB_ENDPOINT", ""),
			Region:    getEnv("DYNAMODB_REGION", "ap-south-1"),
			TableName: getEnv("DYNAMODB_TABLE_NAME", "OTPGateTable"),
		},
		Redis: RedisConfig{
			Endpoint: getEnv("REDIS_ENDPOINT", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:      getEnv("WHATSAPP_API_BASE_URL", "https://api.gupshup.io"),
			APIKey:       getEnv("WHATSAPP_API_KEY", ""),
			Sender:       getEnv("WHATSAPP_SENDER", ""),
			AppName:      getEnv("WHATSAPP_APP_NAME", ""),
			TemplateName: getEnv("WHATSAPP_TEMPLATE_NAME", ""),
		},
		OTP: OTPConfig{
			Expiry: time.Duration(getEnvAsInt("OTP_EXPIRY_MINUTES", 5)) * time.Minute,
		},
		CORS: CORSConfig{
			Origin: getEnv("CORS_ORIGIN", "*"),
		},
	}

	if cfg.WhatsApp.APIKey == "" {
		return nil, fmt.Errorf("WHATSAPP_API_KEY environment variable is required")
	}

	if cfg.WhatsApp.Sender == "" {
		return nil, fmt.Errorf("WHATSAPP_SENDER environment variable is required")
	}

	if cfg.WhatsApp.TemplateName == "" {
		return nil, fmt.Errorf("WHATSAPP_TEMPLATE_NAME environment variable is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
