package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("DEFAULT_ENTRIES_PER_ROPER", "0")
	t.Setenv("STANDINGS_CACHE_TTL_SEC", "-5")
	cfg := Load()
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 1, cfg.DefaultEntriesPerRoper)
	assert.Equal(t, 0, cfg.StandingsCacheTTLSec)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DB_ENABLED", "off")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,,")
	t.Setenv("REDIS_DB", "not-a-number")
	cfg := Load()
	assert.False(t, cfg.DBEnabled)
	assert.Equal(t, 0, cfg.RedisDB)
	assert.Len(t, cfg.CORSOrigins, 2)
	assert.True(t, cfg.CORSOrigins["http://b.test"])
	assert.ElementsMatch(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins())
}
