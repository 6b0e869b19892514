package main

import (
	"github.com/spf13/viper"
)

// Config is the server configuration, loaded from environment
// variables with sensible defaults. A .env file is honored when present.
type Config struct {
	Port     int
	DBPath   string
	LogLevel string
	Pretty   bool
}

// LoadConfig reads configuration from the environment via viper.
func LoadConfig() (*Config, error) {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	viper.SetDefault("PORT", 8080)
	viper.SetDefault("DB_PATH", "documents.db")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_PRETTY", false)

	// .env is optional; environment variables alone are enough.
	_ = viper.ReadInConfig()

	return &Config{
		Port:     viper.GetInt("PORT"),
		DBPath:   viper.GetString("DB_PATH"),
		LogLevel: viper.GetString("LOG_LEVEL"),
		Pretty:   viper.GetBool("LOG_PRETTY"),
	}, nil
}
