package infra

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config represents application configuration loaded from environment variables.
type Config struct {
	AppEnv             string
	LogLevel           string
	Port               string
	DatabaseURL        string
	DBMaxConns         int
	JWTSecret          string
	StoragePath        string
	StorageBaseURL     string
	GeoIPDBPath        string
	CORSAllowedOrigins []string

	GeminiAPIKey       string
	GeminiModel        string
	GeminiBaseURL      string
	GeminiTimeout      time.Duration
	DirectAPIEnabled   bool
	DirectAPIThreshold int

	HFToken              string
	TryOnSpace           string
	TryOnEndpoint        string
	TryOnPredictTimeout  time.Duration
	TryOnDownloadTimeout time.Duration
	RemoveBGSpace        string
	RemoveBGEndpoint     string
	RemoveBGTimeout      time.Duration
	RemoveBGThreshold    int
	SpaceConnectTimeout  time.Duration
	NormalizerKeysFile   string
	MaxSessions          int

	HTTPReadTimeout  time.Duration
	HTTPWriteTimeout time.Duration
	HTTPIdleTimeout  time.Duration
	RateLimitPerMin  int
}

// LoadConfig loads configuration from environment variables and applies defaults where needed.
func LoadConfig() (*Config, error) {
	port := getEnv("PORT", "8080")
	cfg := &Config{
		AppEnv:             getEnv("APP_ENV", "development"),
		LogLevel:           os.Getenv("LOG_LEVEL"),
		Port:               port,
		DatabaseURL:        strings.TrimSpace(os.Getenv("DATABASE_URL")),
		DBMaxConns:         getEnvInt("DB_MAX_CONNS", 10),
		JWTSecret:          os.Getenv("JWT_SECRET"),
		StoragePath:        getEnv("STORAGE_PATH", "./data/storage"),
		StorageBaseURL:     getEnv("STORAGE_BASE_URL", "http://localhost:"+port+"/static"),
		GeoIPDBPath:        os.Getenv("GEOIP_DB_PATH"),
		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),

		GeminiAPIKey:       strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:        getEnv("GEMINI_MODEL", "gemini-2.5-flash-image"),
		GeminiBaseURL:      os.Getenv("GEMINI_BASE_URL"),
		GeminiTimeout:      getEnvSeconds("GEMINI_TIMEOUT_SECONDS", 90),
		DirectAPIEnabled:   getEnvBool("DIRECT_API_ENABLED", true),
		DirectAPIThreshold: getEnvInt("DIRECT_API_THRESHOLD", 2),

		HFToken:              strings.TrimSpace(os.Getenv("HF_TOKEN")),
		TryOnSpace:           getEnv("TRYON_SPACE", "yisol/IDM-VTON"),
		TryOnEndpoint:        getEnv("TRYON_SPACE_ENDPOINT", "/tryon"),
		TryOnPredictTimeout:  getEnvSeconds("TRYON_PREDICT_TIMEOUT_SECONDS", 110),
		TryOnDownloadTimeout: getEnvSeconds("TRYON_DOWNLOAD_TIMEOUT_SECONDS", 30),
		RemoveBGSpace:        getEnv("REMOVEBG_SPACE", "briaai/BRIA-RMBG-1.4"),
		RemoveBGEndpoint:     getEnv("REMOVEBG_ENDPOINT", "/predict"),
		RemoveBGTimeout:      getEnvSeconds("REMOVEBG_TIMEOUT_SECONDS", 60),
		RemoveBGThreshold:    getEnvInt("REMOVEBG_THRESHOLD", 240),
		SpaceConnectTimeout:  getEnvSeconds("SPACE_CONNECT_TIMEOUT_SECONDS", 20),
		NormalizerKeysFile:   os.Getenv("NORMALIZER_KEYS_FILE"),
		MaxSessions:          getEnvInt("MAX_SESSIONS", 10000),

		HTTPReadTimeout:  getEnvSeconds("HTTP_READ_TIMEOUT_SECONDS", 30),
		HTTPWriteTimeout: getEnvSeconds("HTTP_WRITE_TIMEOUT_SECONDS", 180),
		HTTPIdleTimeout:  getEnvSeconds("HTTP_IDLE_TIMEOUT_SECONDS", 60),
		RateLimitPerMin:  getEnvInt("RATE_LIMIT_PER_MINUTE", 30),
	}

	if cfg.RemoveBGThreshold < 0 || cfg.RemoveBGThreshold > 255 {
		return nil, fmt.Errorf("REMOVEBG_THRESHOLD must be within 0..255, got %d", cfg.RemoveBGThreshold)
	}
	if cfg.DirectAPIThreshold < 0 {
		return nil, fmt.Errorf("DIRECT_API_THRESHOLD must not be negative")
	}
	if strings.TrimSpace(cfg.TryOnSpace) == "" {
		return nil, fmt.Errorf("TRYON_SPACE is required")
	}

	return cfg, nil
}

// IsDevelopment reports whether verbose error details may be exposed.
func (c *Config) IsDevelopment() bool {
	return c != nil && c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Second * time.Duration(getEnvInt(key, fallback))
}

func getEnvBool(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(v) == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
