package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setCredentials(t *testing.T) {
	t.Setenv("CVCRM_EMAIL", "bi@example.com")
	t.Setenv("CVCRM_TOKEN", "secret-token")
}

func TestLoad_Defaults(t *testing.T) {
	setCredentials(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "bi@example.com", cfg.CVDW.Email)
	assert.Equal(t, 500, cfg.CVDW.PageSize)
	assert.Equal(t, 30*time.Second, cfg.CVDW.Timeout)
	assert.Equal(t, time.Second, cfg.CVDW.PageDelay)
	assert.Equal(t, 3*time.Second, cfg.CVDW.LongPageDelay)
	assert.Equal(t, 10, cfg.CVDW.LongDelayEvery)
	assert.True(t, cfg.CVDW.Enabled)
	assert.Equal(t, "00:00", cfg.Cache.ResetAt)
	assert.Equal(t, "23:00", cfg.Cache.SweepAt)
	assert.Equal(t, 5*time.Minute, cfg.QueryCacheTTL)
	assert.False(t, cfg.LLMEnabled())
	assert.Equal(t, Development, cfg.Environment())
}

func TestCacheManagerConfig(t *testing.T) {
	setCredentials(t)
	t.Setenv("CACHE_TIMEZONE", "America/Manaus")
	t.Setenv("CACHE_SWEEP_AT", "22:30")
	t.Setenv("CVDW_MAX_RATE_LIMIT_RETRIES", "2")

	cfg, err := Load()
	require.NoError(t, err)

	mc := cfg.CacheManagerConfig()
	assert.Equal(t, 500, mc.PageSize)
	assert.Equal(t, 3*time.Second, mc.LongPageDelay)
	assert.Equal(t, 10, mc.LongDelayEvery)
	assert.Equal(t, 10*time.Second, mc.RateLimitWait)
	assert.Equal(t, 2, mc.MaxRateLimitRetries)
	assert.Equal(t, "America/Manaus", mc.Location.String())
	assert.Equal(t, []string{"00:00", "22:30"}, mc.Schedule)

	opts := cfg.ClientOptions()
	assert.Equal(t, "bi@example.com", opts.Email)
	assert.Equal(t, "secret-token", opts.Token)
	assert.Equal(t, 30*time.Second, opts.Timeout)
	assert.Equal(t, 3, opts.MaxRetries)
}

func TestLoad_MissingCredentials(t *testing.T) {
	t.Setenv("CVCRM_EMAIL", "")
	t.Setenv("CVCRM_TOKEN", "")

	_, err := Load()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingCredentials))
	assert.Contains(t, err.Error(), "CVCRM_EMAIL")
	assert.Contains(t, err.Error(), "CVCRM_TOKEN")
}

func TestLoad_Overrides(t *testing.T) {
	setCredentials(t)
	t.Setenv("CVDW_PAGE_SIZE", "100")
	t.Setenv("USE_CVCRM_API", "false")
	t.Setenv("APP_ENV", "production")
	t.Setenv("CORS_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 100, cfg.CVDW.PageSize)
	assert.False(t, cfg.CVDW.Enabled)
	assert.True(t, cfg.Environment().IsProduction())
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSOrigins)
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			CVDW:  CVDWConfig{Email: "a@b.c", Token: "t", PageSize: 500, RPS: 1},
			Cache: CacheConfig{TimeZone: "UTC", ResetAt: "00:00", SweepAt: "23:00"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(c *Config) {}},
		{name: "page size too big", mutate: func(c *Config) { c.CVDW.PageSize = 1000 }, wantErr: true},
		{name: "zero rps", mutate: func(c *Config) { c.CVDW.RPS = 0 }, wantErr: true},
		{name: "bad timezone", mutate: func(c *Config) { c.Cache.TimeZone = "Mars/Olympus" }, wantErr: true},
		{name: "bad schedule", mutate: func(c *Config) { c.Cache.SweepAt = "11pm" }, wantErr: true},
		{name: "blank token", mutate: func(c *Config) { c.CVDW.Token = "  " }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadEnvFiles_DoesNotOverrideExistingEnv(t *testing.T) {
	tmp := t.TempDir()
	p := filepath.Join(tmp, ".env")

	if err := os.WriteFile(p, []byte("DB_DSN=from_file\n"), 0644); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	t.Setenv("DB_DSN", "from_env")

	cwd, _ := os.Getwd()
	_ = os.Chdir(tmp)
	t.Cleanup(func() { _ = os.Chdir(cwd) })

	LoadEnvFiles()

	if got := os.Getenv("DB_DSN"); got != "from_env" {
		t.Fatalf("expected existing env to win, got %q", got)
	}
}
