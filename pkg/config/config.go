package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Telegram TelegramConfig `mapstructure:"telegram"`
	Database DatabaseConfig `mapstructure:"database"`
}

type TelegramConfig struct {
	Token         string `mapstructure:"token"`
	SupportChatID int64  `mapstructure:"support_chat_id"`
	OwnerID       int64  `mapstructure:"owner_id"`
	LogThreadID   int    `mapstructure:"log_thread_id"`
}

type DatabaseConfig struct {
	Backend  string `mapstructure:"backend"` // file | postgres
	File     string `mapstructure:"file"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

func parseDatabaseURL(dbURL string) (DatabaseConfig, error) {
	u, err := url.Parse(dbURL)
	if err != nil {
		return DatabaseConfig{}, err
	}

	password, _ := u.User.Password()
	port := 5432 // default PostgreSQL port
	if u.Port() != "" {
		fmt.Sscanf(u.Port(), "%d", &port)
	}

	// Remove leading slash from path to get database name
	dbName := strings.TrimPrefix(u.Path, "/")

	return DatabaseConfig{
		Backend:  "postgres",
		Host:     u.Hostname(),
		Port:     port,
		User:     u.User.Username(),
		Password: password,
		DBName:   dbName,
		SSLMode:  "disable",
	}, nil
}

func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("database.backend", "file")
	v.SetDefault("database.file", "support_db.json")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.sslmode", "disable")

	// Enable environment variable support
	v.AutomaticEnv()

	// Read the config file
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	// Check for DATABASE_URL environment variable
	if dbURL := v.GetString("DATABASE_URL"); dbURL != "" {
		dbConfig, err := parseDatabaseURL(dbURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse DATABASE_URL: %v", err)
		}
		config.Database = dbConfig
	}

	// Get other environment variables
	if token := v.GetString("SUPPORT_BOT_TOKEN"); token != "" {
		config.Telegram.Token = token
	}
	if chatID := v.GetInt64("SUPPORT_CHAT_ID"); chatID != 0 {
		config.Telegram.SupportChatID = chatID
	}
	if ownerID := v.GetInt64("OWNER_ID"); ownerID != 0 {
		config.Telegram.OwnerID = ownerID
	}
	if logThread := v.GetInt("LOG_THREAD_ID"); logThread != 0 {
		config.Telegram.LogThreadID = logThread
	}

	return &config, nil
}
