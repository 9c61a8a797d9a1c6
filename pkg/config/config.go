package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	SQLite     SQLiteConfig
	Redis      RedisConfig
	Steam      SteamConfig
	Classifier ClassifierConfig
	Rankings   RankingsConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  int
	WriteTimeout int
	BodyLimit    int
	RateLimit    int
}

type SQLiteConfig struct {
	Path string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
	TTLSec   int
}

type SteamConfig struct {
	StoreBaseURL     string
	ReviewsBaseURL   string
	FreshnessMinutes int
	TimeoutSec       int
}

type ClassifierConfig struct {
	BaseURL     string
	APIKey      string
	Model       string
	Temperature float32
	MaxTokens   int
	TimeoutSec  int
}

type RankingsConfig struct {
	CacheMaxAgeHours int
}

type LoggingConfig struct {
	Level      string
	Format     string
	OutputPath string
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/steamgems")

	viper.SetEnvPrefix("STEAMGEMS")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 30)
	viper.SetDefault("server.writeTimeout", 120)
	viper.SetDefault("server.bodyLimit", 1048576)
	viper.SetDefault("server.rateLimit", 60)

	viper.SetDefault("sqlite.path", "./data/steamgems.db")

	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.ttlSec", 300)

	viper.SetDefault("steam.storeBaseURL", "https://store.steampowered.com/api")
	viper.SetDefault("steam.reviewsBaseURL", "https://store.steampowered.com")
	viper.SetDefault("steam.freshnessMinutes", 1440)
	viper.SetDefault("steam.timeoutSec", 10)

	viper.SetDefault("classifier.baseURL", "https://ai.gateway.lovable.dev/v1")
	viper.SetDefault("classifier.model", "google/gemini-2.5-flash")
	viper.SetDefault("classifier.temperature", 0.7)
	viper.SetDefault("classifier.maxTokens", 1024)
	viper.SetDefault("classifier.timeoutSec", 25)

	viper.SetDefault("rankings.cacheMaxAgeHours", 24)

	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("logging.outputPath", "stdout")
}
