package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr               string
	MySQLDSN               string
	DBEnabled              bool
	RedisAddr              string
	RedisPassword          string
	RedisDB                int
	RedisEnabled           bool
	JWTSecret              string
	AdminToken             string
	AdminPassword          string
	LogLevel               string
	LogFormat              string
	StandingsCacheTTLSec   int
	CORSOrigins            map[string]bool
	DefaultEntriesPerRoper int
	ExportDir              string
}

func Load() Config {
	_ = godotenv.Load(".env")
	cfg := Config{
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		MySQLDSN:               getEnv("MYSQL_DSN", "root:password@tcp(127.0.0.1:3306)/roping?parseTime=true&charset=utf8mb4"),
		DBEnabled:              getEnvBool("DB_ENABLED", true),
		RedisAddr:              getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword:          getEnv("REDIS_PASSWORD", ""),
		RedisDB:                getEnvInt("REDIS_DB", 0),
		RedisEnabled:           getEnvBool("REDIS_ENABLED", true),
		JWTSecret:              getEnv("JWT_SECRET", "change-me"),
		AdminToken:             getEnv("ADMIN_TOKEN", ""),
		AdminPassword:          getEnv("ADMIN_PASSWORD", ""),
		LogLevel:               getEnv("LOG_LEVEL", "info"),
		LogFormat:              getEnv("LOG_FORMAT", "json"),
		StandingsCacheTTLSec:   getEnvInt("STANDINGS_CACHE_TTL_SEC", 30),
		DefaultEntriesPerRoper: getEnvInt("DEFAULT_ENTRIES_PER_ROPER", 1),
		ExportDir:              getEnv("EXPORT_DIR", "exports"),
	}
	if cfg.StandingsCacheTTLSec < 0 {
		cfg.StandingsCacheTTLSec = 0
	}
	if cfg.DefaultEntriesPerRoper < 1 {
		cfg.DefaultEntriesPerRoper = 1
	}
	cfg.CORSOrigins = parseCSVSet(getEnv("CORS_ORIGINS", ""))
	return cfg
}

// AllowedOrigins returns the CORS origins as a slice; empty means allow all.
func (c Config) AllowedOrigins() []string {
	out := make([]string, 0, len(c.CORSOrigins))
	for origin := range c.CORSOrigins {
		out = append(out, origin)
	}
	return out
}

func parseCSVSet(val string) map[string]bool {
	set := make(map[string]bool)
	for _, item := range strings.Split(val, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		set[item] = true
	}
	return set
}

func getEnv(key, def string) string {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	return val
}

func getEnvInt(key string, def int) int {
	val := os.Getenv(key)
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return def
	}
	return parsed
}

func getEnvBool(key string, def bool) bool {
	val := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if val == "" {
		return def
	}
	switch val {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}
