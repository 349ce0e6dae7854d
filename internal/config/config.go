package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	// Server
	ServerPort string
	ServerEnv  string
	ServerHost string

	// Database
	DatabaseURL string

	// JWT
	JWTSecretKey              string
	JWTAccessTokenExpireMin   int
	JWTRefreshTokenExpireDays int

	// Space API (upstream demographic provider)
	SpaceAPIBaseURL string
	SpaceAPIKey     string
	SpaceMaxRadiusM int
	SpaceTimeoutSec int
	CacheTTLMinutes int
	CacheMaxEntries int
	CacheDisabled   bool

	// Google Places
	GooglePlacesAPIKey string
	PlacesLanguage     string

	// Plan limits applied on tenant onboarding (start plan)
	DefaultQuickQueriesPerMonth int
	DefaultSimultaneousStudies  int
	DefaultMaxAttachmentSizeMB  int

	// SigNoz
	SigNozEndpoint string
}

func Load() *Config {
	return &Config{
		// Server
		ServerPort: getEnv("SERVER_PORT", "3000"),
		ServerEnv:  getEnv("SERVER_ENV", "development"),
		ServerHost: getEnv("SERVER_HOST", "localhost:3000"),

		// Database - DATABASE_URL wins, otherwise assembled from POSTGRES_* vars
		DatabaseURL: getDatabaseURL(),

		// JWT
		JWTSecretKey:              getEnv("JWT_SECRET_KEY", ""),
		JWTAccessTokenExpireMin:   getEnvAsInt("JWT_ACCESS_TOKEN_EXPIRE_MINUTES", 15),
		JWTRefreshTokenExpireDays: getEnvAsInt("JWT_REFRESH_TOKEN_EXPIRE_DAYS", 7),

		// Space API - with empty base URL or key the client degrades to
		// synthetic demo data instead of failing
		SpaceAPIBaseURL: getEnv("SPACE_API_BASE_URL", ""),
		SpaceAPIKey:     getEnv("SPACE_API_KEY", ""),
		SpaceMaxRadiusM: getEnvAsInt("SPACE_MAX_RADIUS_M", 5000),
		SpaceTimeoutSec: getEnvAsInt("SPACE_TIMEOUT_SECONDS", 10),
		CacheTTLMinutes: getEnvAsInt("SPACE_CACHE_TTL_MINUTES", 20),
		CacheMaxEntries: getEnvAsInt("SPACE_CACHE_MAX_ENTRIES", 100),
		CacheDisabled:   getEnvAsBool("SPACE_CACHE_DISABLED", false),

		// Google Places
		GooglePlacesAPIKey: getEnv("GOOGLE_PLACES_API_KEY", ""),
		PlacesLanguage:     getEnv("PLACES_LANGUAGE", "pt-BR"),

		// Default limits for the start plan
		DefaultQuickQueriesPerMonth: getEnvAsInt("DEFAULT_QUICK_QUERIES_PER_MONTH", 300),
		DefaultSimultaneousStudies:  getEnvAsInt("DEFAULT_SIMULTANEOUS_STUDIES", 3),
		DefaultMaxAttachmentSizeMB:  getEnvAsInt("DEFAULT_MAX_ATTACHMENT_SIZE_MB", 5),

		// SigNoz
		SigNozEndpoint: getEnv("SIGNOZ_ENDPOINT", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getDatabaseURL returns DATABASE_URL or builds it from individual env vars
func getDatabaseURL() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}

	host := getEnv("POSTGRES_HOST", "localhost")
	port := getEnv("POSTGRES_PORT", "5432")
	user := getEnv("POSTGRES_USER", "postgres")
	password := getEnv("POSTGRES_PASSWORD", "")
	dbname := getEnv("POSTGRES_DB", "buscaponto")
	sslmode := getEnv("POSTGRES_SSLMODE", "disable")

	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		user, password, host, port, dbname, sslmode)
}
