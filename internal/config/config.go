package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application. Values are read by
// viper from a config file or environment variables.
type Config struct {
	TelegramBotToken string `mapstructure:"TELEGRAM_BOT_TOKEN"`
	BadgerDBPath     string `mapstructure:"BADGERDB_PATH"`
	HTTPAddr         string `mapstructure:"HTTP_ADDR"`
	LogLevel         string `mapstructure:"LOG_LEVEL"`

	// TrackIntervalMinutes is how often a tracking pass runs while started.
	TrackIntervalMinutes int `mapstructure:"TRACK_INTERVAL_MINUTES"`

	// CategoryURLs are the storefront pages scraped each pass.
	CategoryURLs []string `mapstructure:"CATEGORY_URLS"`

	// SMTP settings for the email notification channel. Optional; the
	// channel is only registered when a host is configured.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
}

// defaultCategoryURLs covers the tracked refurbished sections of the Taiwan
// storefront.
var defaultCategoryURLs = []string{
	"https://www.apple.com/tw/shop/refurbished/mac",
	"https://www.apple.com/tw/shop/refurbished/ipad",
	"https://www.apple.com/tw/shop/refurbished/appletv",
}

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(path string) (config Config, err error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	err = viper.ReadInConfig()
	if err != nil {
		// Missing config file is fine as long as env vars cover the
		// required values.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("error reading config file: %w", err)
		}
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		return Config{}, fmt.Errorf("unable to decode into struct: %w", err)
	}

	if config.TelegramBotToken == "" {
		return Config{}, fmt.Errorf("TELEGRAM_BOT_TOKEN is not set")
	}
	if config.BadgerDBPath == "" {
		config.BadgerDBPath = "./badger_data"
	}
	if config.HTTPAddr == "" {
		config.HTTPAddr = ":8080"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if config.TrackIntervalMinutes <= 0 {
		config.TrackIntervalMinutes = 60
	}
	if len(config.CategoryURLs) == 0 {
		config.CategoryURLs = defaultCategoryURLs
	}
	if config.SMTPHost != "" && config.SMTPPort == 0 {
		config.SMTPPort = 587
	}

	return config, nil
}
