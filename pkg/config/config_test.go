package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, 5, cfg.Fetch.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Fetch.BatchDelay)
	assert.Equal(t, 10, cfg.View.PageSize)
	assert.Equal(t, "http://localhost:3000", cfg.Upstream.BaseURL)
	assert.Equal(t, "/api/assignments/finished", cfg.Upstream.FinishedPath)
	assert.Equal(t, 30*time.Second, cfg.Upstream.Timeout)
	assert.Equal(t, 15*time.Minute, cfg.Courses.CacheTTL)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("FETCH_BATCH_SIZE", 0)
	v.Set("FETCH_BATCH_DELAY", "not-a-duration")
	v.Set("UPSTREAM_BASE_URL", "https://proxy.example.edu/")
	v.Set("ALLOWED_ORIGINS", " http://a.test , ,http://b.test")

	cfg := fromViper(v)

	assert.Equal(t, 5, cfg.Fetch.BatchSize)
	assert.Equal(t, 100*time.Millisecond, cfg.Fetch.BatchDelay)
	assert.Equal(t, "https://proxy.example.edu", cfg.Upstream.BaseURL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}
