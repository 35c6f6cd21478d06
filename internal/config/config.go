package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
)

// Config aggregates every setting read from the environment.
type Config struct {
	Server  ServerConfig
	AI      AIConfig
	Library LibraryConfig
	Client  ClientConfig
	Log     LogConfig
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	server, err := loadServerConfig()
	if err != nil {
		return nil, err
	}

	ai, err := loadAIConfig()
	if err != nil {
		return nil, err
	}

	library, err := loadLibraryConfig()
	if err != nil {
		return nil, err
	}

	client, err := loadClientConfig()
	if err != nil {
		return nil, err
	}

	return &Config{
		Server:  server,
		AI:      ai,
		Library: library,
		Client:  client,
		Log:     loadLogConfig(),
	}, nil
}

// ServerConfig describes the backend HTTP listener.
type ServerConfig struct {
	Addr string
}

func loadServerConfig() (ServerConfig, error) {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "5000"
	}

	if strings.Contains(port, ":") {
		// Accept ":5000" or "127.0.0.1:5000" as-is.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

// AIConfig describes the chat model used to answer questions.
type AIConfig struct {
	APIKey      string
	AccessKey   string
	SecretKey   string
	Model       string
	BaseURL     string
	Region      string
	Temperature *float64
	TopP        *float64
	MaxTokens   *int
}

// Enabled reports whether enough credentials were supplied.
func (c AIConfig) Enabled() bool {
	return c.Model != "" && (c.APIKey != "" || (c.AccessKey != "" && c.SecretKey != ""))
}

// NewChatModel creates the configured chat model.
func (c AIConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if !c.Enabled() {
		return nil, fmt.Errorf("ark credentials or model missing: set ARK_API_KEY and ARK_MODEL, or ARK_ACCESS_KEY/ARK_SECRET_KEY")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var topP *float32
	if c.TopP != nil {
		val := float32(*c.TopP)
		topP = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		AccessKey:   c.AccessKey,
		SecretKey:   c.SecretKey,
		Model:       c.Model,
		MaxTokens:   c.MaxTokens,
		Temperature: temperature,
		TopP:        topP,
	}

	return ark.NewChatModel(ctx, cfg)
}

func loadAIConfig() (AIConfig, error) {
	temperature, err := parseOptionalFloatEnv("ARK_TEMPERATURE")
	if err != nil {
		return AIConfig{}, err
	}

	topP, err := parseOptionalFloatEnv("ARK_TOP_P")
	if err != nil {
		return AIConfig{}, err
	}

	maxTokens, err := parseOptionalIntEnv("ARK_MAX_TOKENS")
	if err != nil {
		return AIConfig{}, err
	}

	return AIConfig{
		APIKey:      strings.TrimSpace(os.Getenv("ARK_API_KEY")),
		AccessKey:   strings.TrimSpace(os.Getenv("ARK_ACCESS_KEY")),
		SecretKey:   strings.TrimSpace(os.Getenv("ARK_SECRET_KEY")),
		Model:       strings.TrimSpace(os.Getenv("ARK_MODEL")),
		BaseURL:     getEnvOrDefault("ARK_BASE_URL", "https://ark.cn-beijing.volces.com/api/v3"),
		Region:      getEnvOrDefault("ARK_REGION", "cn-beijing"),
		Temperature: temperature,
		TopP:        topP,
		MaxTokens:   maxTokens,
	}, nil
}

// LibraryConfig describes where uploaded documents are kept.
type LibraryConfig struct {
	Folder         string
	MaxUploadBytes int64
	// SourcesPerAnswer caps how many documents are quoted as context.
	SourcesPerAnswer int
}

func loadLibraryConfig() (LibraryConfig, error) {
	maxBytes := int64(32 << 20)
	if override, err := parseOptionalIntEnv("UPLOAD_MAX_BYTES"); err != nil {
		return LibraryConfig{}, err
	} else if override != nil {
		if *override < 1 {
			return LibraryConfig{}, fmt.Errorf("invalid UPLOAD_MAX_BYTES value %d: must be positive", *override)
		}
		maxBytes = int64(*override)
	}

	sources := 2
	if override, err := parseOptionalIntEnv("SOURCES_PER_ANSWER"); err != nil {
		return LibraryConfig{}, err
	} else if override != nil {
		if *override < 1 {
			sources = 1
		} else {
			sources = *override
		}
	}

	return LibraryConfig{
		Folder:           getEnvOrDefault("PDF_FOLDER_NAME", "pdfs"),
		MaxUploadBytes:   maxBytes,
		SourcesPerAnswer: sources,
	}, nil
}

// ClientConfig describes how the terminal client reaches the backend.
type ClientConfig struct {
	ChannelURL      string
	UploadURL       string
	LogFile         string
	AnnounceUploads bool
}

func loadClientConfig() (ClientConfig, error) {
	announce, err := parseBoolEnv("CHAT_ANNOUNCE_UPLOADS", false)
	if err != nil {
		return ClientConfig{}, err
	}

	return ClientConfig{
		ChannelURL:      getEnvOrDefault("CHAT_SERVER_URL", "ws://localhost:5000/ws"),
		UploadURL:       getEnvOrDefault("CHAT_UPLOAD_URL", "http://localhost:5000/upload_pdf"),
		LogFile:         getEnvOrDefault("CHAT_LOG_FILE", "cubechat.log"),
		AnnounceUploads: announce,
	}, nil
}

// LogConfig selects logger verbosity and sinks.
type LogConfig struct {
	Level      string
	Production bool
	File       string
}

func loadLogConfig() LogConfig {
	return LogConfig{
		Level:      getEnvOrDefault("LOG_LEVEL", "info"),
		Production: strings.EqualFold(os.Getenv("LOG_FORMAT"), "json"),
		File:       strings.TrimSpace(os.Getenv("LOG_FILE")),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func parseBoolEnv(key string, defaultValue bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", key, raw, err)
	}
	return val, nil
}

func parseOptionalFloatEnv(key string) (*float64, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}

func parseOptionalIntEnv(key string) (*int, error) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return nil, nil
	}

	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(value)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", key, value, err)
	}
	return &val, nil
}
