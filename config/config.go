package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Telegram struct {
		Token      string
		DirectorID int64
		WebAppURL  string
	}
	DB struct {
		Host         string
		Port         string
		User         string
		Password     string
		DBName       string
		SSLMode      string
		MaxOpenConns int
		MaxIdleConns int
		ConnLifetime time.Duration
	}
	Server struct {
		Port string
	}
	Loyalty struct {
		// WelcomeBonus is credited on a user's first contact.
		WelcomeBonus int64
		// CashbackPercent of the order total is credited on delivery.
		CashbackPercent int64
		// MinOrderForBonus is the minimum order total allowing bonus spend.
		MinOrderForBonus int64
		// MaxBonusSharePercent caps bonus spend at this share of the total.
		MaxBonusSharePercent int64
	}
	ShutdownTimeout time.Duration
}

// Load loads the configuration
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.AddConfigPath("$HOME/.cafe-bot")

	v.SetDefault("ShutdownTimeout", 10*time.Second)
	v.SetDefault("Server.Port", "8080")
	v.SetDefault("DB.MaxOpenConns", 20)
	v.SetDefault("DB.MaxIdleConns", 10)
	v.SetDefault("DB.ConnLifetime", 5*time.Minute)
	v.SetDefault("Loyalty.WelcomeBonus", 500)
	v.SetDefault("Loyalty.CashbackPercent", 5)
	v.SetDefault("Loyalty.MinOrderForBonus", 500)
	v.SetDefault("Loyalty.MaxBonusSharePercent", 50)

	v.AutomaticEnv()

	// No config file is fine: everything can come from the environment.
	if err := v.ReadInConfig(); err != nil {
		cfg := &Config{}

		cfg.Telegram.Token = os.Getenv("BOT_TOKEN")
		cfg.Telegram.DirectorID = getEnvInt64("DIRECTOR_ID", 0)
		cfg.Telegram.WebAppURL = os.Getenv("WEBAPP_URL")
		cfg.DB.Host = getEnvOr("DB_HOST", "localhost")
		cfg.DB.Port = getEnvOr("DB_PORT", "5432")
		cfg.DB.User = getEnvOr("DB_USER", "postgres")
		cfg.DB.Password = getEnvOr("DB_PASSWORD", "postgres")
		cfg.DB.DBName = getEnvOr("DB_NAME", "cafe_bot")
		cfg.DB.SSLMode = getEnvOr("DB_SSL_MODE", "disable")
		cfg.DB.MaxOpenConns = 20
		cfg.DB.MaxIdleConns = 10
		cfg.DB.ConnLifetime = 5 * time.Minute
		cfg.Server.Port = getEnvOr("SERVER_PORT", "8080")
		cfg.Loyalty.WelcomeBonus = getEnvInt64("WELCOME_BONUS", 500)
		cfg.Loyalty.CashbackPercent = getEnvInt64("CASHBACK_PERCENT", 5)
		cfg.Loyalty.MinOrderForBonus = getEnvInt64("MIN_ORDER_FOR_BONUS", 500)
		cfg.Loyalty.MaxBonusSharePercent = getEnvInt64("MAX_BONUS_SHARE_PERCENT", 50)
		cfg.ShutdownTimeout = 10 * time.Second

		return cfg, nil
	}

	// Process any ${ENV_VAR} syntax in the config values
	for _, key := range v.AllKeys() {
		value := v.GetString(key)
		if strings.HasPrefix(value, "${") && strings.HasSuffix(value, "}") {
			envVar := strings.TrimPrefix(strings.TrimSuffix(value, "}"), "${")
			if envValue := os.Getenv(envVar); envValue != "" {
				v.Set(key, envValue)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the settings the process cannot run without.
func (c *Config) Validate() error {
	if c.Telegram.Token == "" {
		return fmt.Errorf("telegram token is not configured")
	}
	if c.Telegram.DirectorID == 0 {
		return fmt.Errorf("director identity is not configured")
	}
	return nil
}

func getEnvOr(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
	}
	return defaultValue
}
