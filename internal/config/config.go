package config

import (
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server ServerConfig `json:"server" yaml:"server"`

	// Database Configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// MongoDB Configuration (message archive)
	MongoDB MongoDBConfig `json:"mongodb" yaml:"mongodb"`

	Auth AuthConfig `json:"auth" yaml:"auth"`

	// Chat Configuration
	Chat ChatConfig `json:"chat" yaml:"chat"`

	// Client Configuration (chat-client only)
	Client ClientConfig `json:"client" yaml:"client"`

	// Logging Configuration
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// ServerConfig contains server-related configuration
type ServerConfig struct {
	Host            string   `json:"host" yaml:"host"`
	ChatServicePort string   `json:"chat_service_port" yaml:"chat_service_port"`
	HealthGRPCPort  string   `json:"health_grpc_port" yaml:"health_grpc_port"`
	ReadTimeout     int      `json:"read_timeout" yaml:"read_timeout"`   // Seconds
	WriteTimeout    int      `json:"write_timeout" yaml:"write_timeout"` // Seconds
	Environment     string   `json:"environment" yaml:"environment"`     // development, staging, production
	AllowedOrigins  []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// DatabaseConfig contains database connection configuration
type DatabaseConfig struct {
	Host         string `json:"host" yaml:"host"`
	Port         string `json:"port" yaml:"port"`
	Username     string `json:"username" yaml:"username"`
	Password     string `json:"password" yaml:"password"`
	DatabaseName string `json:"database_name" yaml:"database_name"`
	MaxOpenConns int    `json:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns int    `json:"max_idle_conns" yaml:"max_idle_conns"`
}

type MongoDBConfig struct {
	Host       string `json:"host" yaml:"host"`
	Port       string `json:"port" yaml:"port"`
	Username   string `json:"username" yaml:"username"`
	Password   string `json:"password" yaml:"password"`
	Database   string `json:"database" yaml:"database"`
	Collection string `json:"collection" yaml:"collection"`
	Enabled    bool   `json:"enabled" yaml:"enabled"`
}

type AuthConfig struct {
	JWTSecret string `json:"-" yaml:"jwt_secret"`
	TokenTTL  int    `json:"token_ttl" yaml:"token_ttl"` // Hours
}

// ChatConfig tunes the backend hub and the client synchronization core.
type ChatConfig struct {
	PageSize           int     `json:"page_size" yaml:"page_size"`
	MaxPageSize        int     `json:"max_page_size" yaml:"max_page_size"`
	TypingTimeoutMS    int     `json:"typing_timeout_ms" yaml:"typing_timeout_ms"`
	EventWorkers       int     `json:"event_workers" yaml:"event_workers"`
	EventBufferSize    int     `json:"event_buffer_size" yaml:"event_buffer_size"`
	ClientEventsPerSec float64 `json:"client_events_per_sec" yaml:"client_events_per_sec"`
	ClientEventBurst   int     `json:"client_event_burst" yaml:"client_event_burst"`
	SendBufferSize     int     `json:"send_buffer_size" yaml:"send_buffer_size"`
}

type ClientConfig struct {
	ServerURL string `json:"server_url" yaml:"server_url"`
	Token     string `json:"-" yaml:"token"`
	UserName  string `json:"user_name" yaml:"user_name"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level      string `json:"level" yaml:"level"`             // debug, info, warn, error
	Format     string `json:"format" yaml:"format"`           // json, text
	OutputPath string `json:"output_path" yaml:"output_path"` // stdout, stderr, or file path
}

// LoadConfig builds the configuration from the environment (and .env when present),
// then applies the YAML file named by CHAT_CONFIG_FILE on top of it.
func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			ChatServicePort: getEnv("CHAT_SERVICE_PORT", "7003"),
			HealthGRPCPort:  getEnv("HEALTH_GRPC_PORT", "7103"),
			ReadTimeout:     getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("SERVER_WRITE_TIMEOUT", 15),
			Environment:     getEnv("ENVIRONMENT", "development"),
			AllowedOrigins:  getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:         getEnv("MYSQL_HOST", "localhost"),
			Port:         getEnv("MYSQL_PORT", "3306"),
			Username:     getEnv("MYSQL_USERNAME", "gosocial"),
			Password:     getEnv("MYSQL_PASSWORD", "gosocial123"),
			DatabaseName: getEnv("MYSQL_DATABASE", "gosocial"),
			MaxOpenConns: getEnvAsInt("MYSQL_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("MYSQL_MAX_IDLE_CONNS", 5),
		},
		MongoDB: MongoDBConfig{
			Host:       getEnv("MONGO_HOST", "localhost"),
			Port:       getEnv("MONGO_PORT", "27017"),
			Username:   getEnv("MONGO_USERNAME", "admin"),
			Password:   getEnv("MONGO_PASSWORD", "admin123"),
			Database:   getEnv("MONGO_DATABASE", "gosocial"),
			Collection: getEnv("MONGO_COLLECTION", "message_archive"),
			Enabled:    getEnvAsBool("MONGO_ENABLED", false),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "change-me"),
			TokenTTL:  getEnvAsInt("JWT_TTL_HOURS", 24),
		},
		Chat: ChatConfig{
			PageSize:           getEnvAsInt("CHAT_PAGE_SIZE", 30),
			MaxPageSize:        getEnvAsInt("CHAT_MAX_PAGE_SIZE", 100),
			TypingTimeoutMS:    getEnvAsInt("CHAT_TYPING_TIMEOUT_MS", 2000),
			EventWorkers:       getEnvAsInt("CHAT_EVENT_WORKERS", 2),
			EventBufferSize:    getEnvAsInt("CHAT_EVENT_BUFFER_SIZE", 1000),
			ClientEventsPerSec: getEnvAsFloat("CHAT_CLIENT_EVENTS_PER_SEC", 10),
			ClientEventBurst:   getEnvAsInt("CHAT_CLIENT_EVENT_BURST", 20),
			SendBufferSize:     getEnvAsInt("CHAT_SEND_BUFFER_SIZE", 256),
		},
		Client: ClientConfig{
			ServerURL: getEnv("CHAT_SERVER_URL", "http://localhost:7003"),
			Token:     getEnv("CHAT_TOKEN", ""),
			UserName:  getEnv("CHAT_USER_NAME", ""),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			Format:     getEnv("LOG_FORMAT", "text"),
			OutputPath: getEnv("LOG_OUTPUT", "stdout"),
		},
	}

	if path := os.Getenv("CHAT_CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			log.Printf("Config file %s ignored: %v", path, err)
		}
	}

	return cfg
}

// ApplyFile overlays the YAML document at path onto cfg. Keys absent from the
// file keep their current values.
func (cfg *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func (cfg *Config) DSN() string {
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == "" {
		cfg.Database.Port = "3306"
	}

	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		cfg.Database.Username,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DatabaseName,
	)
}

func (cfg *Config) GetMongoURI() string {
	if cfg.MongoDB.Username == "" {
		return fmt.Sprintf("mongodb://%s:%s/%s", cfg.MongoDB.Host, cfg.MongoDB.Port, cfg.MongoDB.Database)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s:%s/%s?authSource=admin",
		url.QueryEscape(cfg.MongoDB.Username),
		url.QueryEscape(cfg.MongoDB.Password),
		cfg.MongoDB.Host,
		cfg.MongoDB.Port,
		cfg.MongoDB.Database,
	)
}

// WebsocketURL derives the push channel endpoint from Client.ServerURL.
func (cfg *Config) WebsocketURL() string {
	u, err := url.Parse(cfg.Client.ServerURL)
	if err != nil || u.Host == "" {
		return "ws://localhost:" + cfg.Server.ChatServicePort + "/ws"
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/ws"
	return u.String()
}

func (cfg *Config) TypingTimeout() time.Duration {
	if cfg.Chat.TypingTimeoutMS <= 0 {
		return 2 * time.Second
	}
	return time.Duration(cfg.Chat.TypingTimeoutMS) * time.Millisecond
}

func (cfg *Config) TokenTTL() time.Duration {
	return time.Duration(cfg.Auth.TokenTTL) * time.Hour
}

func (cfg *Config) IsDevelopment() bool {
	return cfg.Server.Environment == "development"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnvAsBool(key string, defaultValue bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	}
	return defaultValue
}
