// Package config provides configuration for the application
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Logging   LoggingConfig
	CORS      CORSConfig
	CoreAPI   CoreAPIConfig
	Authoring AuthoringConfig
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port           int
	MaxRequestSize int64
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins []string
}

// CoreAPIConfig holds the connection settings for the core platform API
type CoreAPIConfig struct {
	BaseURL string
	APIKey  string
}

// AuthoringConfig holds authoring session settings
type AuthoringConfig struct {
	AutosaveDebounce time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (optional)
	_ = godotenv.Load()

	cfg := &Config{}

	// Core API configuration
	baseURL := os.Getenv("CORE_API_BASE_URL")
	if baseURL == "" {
		return nil, fmt.Errorf("CORE_API_BASE_URL is required")
	}
	cfg.CoreAPI.BaseURL = strings.TrimRight(baseURL, "/")

	apiKey := os.Getenv("CORE_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("CORE_API_KEY is required")
	}
	cfg.CoreAPI.APIKey = apiKey

	// Server configuration
	serverPortStr := os.Getenv("SERVER_PORT")
	if serverPortStr == "" {
		serverPortStr = "8086" // default port
	}
	serverPort, err := strconv.Atoi(serverPortStr)
	if err != nil {
		return nil, fmt.Errorf("invalid SERVER_PORT: %w", err)
	}
	cfg.Server.Port = serverPort

	maxSizeStr := os.Getenv("MAX_REQUEST_SIZE")
	if maxSizeStr == "" {
		cfg.Server.MaxRequestSize = 10 * 1024 * 1024 // 10MB default
	} else {
		maxSize, err := strconv.ParseInt(maxSizeStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_REQUEST_SIZE: %w", err)
		}
		cfg.Server.MaxRequestSize = maxSize
	}

	// Logging configuration
	logLevel := os.Getenv("LOG_LEVEL")
	if logLevel == "" {
		logLevel = "info" // default level
	}
	cfg.Logging.Level = logLevel

	// Authoring configuration
	debounceStr := os.Getenv("AUTOSAVE_DEBOUNCE_MS")
	if debounceStr == "" {
		cfg.Authoring.AutosaveDebounce = 800 * time.Millisecond
	} else {
		debounceMs, err := strconv.Atoi(debounceStr)
		if err != nil {
			return nil, fmt.Errorf("invalid AUTOSAVE_DEBOUNCE_MS: %w", err)
		}
		cfg.Authoring.AutosaveDebounce = time.Duration(debounceMs) * time.Millisecond
	}

	// CORS configuration
	corsOrigins := os.Getenv("CORS_ALLOWED_ORIGINS")
	if corsOrigins == "" {
		// Default to allow all origins if not specified (for development)
		cfg.CORS.AllowedOrigins = []string{"*"}
	} else {
		// Parse comma-separated origins
		origins := strings.Split(corsOrigins, ",")
		cfg.CORS.AllowedOrigins = make([]string, 0, len(origins))
		for _, origin := range origins {
			origin = strings.TrimSpace(origin)
			if origin != "" {
				cfg.CORS.AllowedOrigins = append(cfg.CORS.AllowedOrigins, origin)
			}
		}
		// If no valid origins found, default to allow all
		if len(cfg.CORS.AllowedOrigins) == 0 {
			cfg.CORS.AllowedOrigins = []string{"*"}
		}
	}

	return cfg, nil
}
