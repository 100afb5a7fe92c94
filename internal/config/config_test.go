package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		want    func(t *testing.T, cfg Config)
		wantErr bool
	}{
		{
			name: "memory defaults",
			env:  map[string]string{"JWT_SECRET": "s3cret"},
			want: func(t *testing.T, cfg Config) {
				assert.Equal(t, DriverMemory, cfg.StoreDriver)
				assert.Equal(t, ":8080", cfg.HTTPAddr)
				assert.Equal(t, "admin", cfg.AdminUsername)
				assert.Equal(t, "admin123", cfg.AdminPassword)
				assert.Equal(t, time.Duration(0), cfg.SimulatedLatency)
				assert.True(t, cfg.SeedFixtures)
				assert.Empty(t, cfg.CORSAllowedOrigins)
				assert.Equal(t, uint(2), cfg.OpenAIRetries)
			},
		},
		{
			name: "origins and latency",
			env: map[string]string{
				"JWT_SECRET":           "s3cret",
				"CORS_ALLOWED_ORIGINS": "http://a.test, ,http://b.test",
				"SIMULATED_LATENCY":    "250ms",
				"REDIS_DB":             "3",
			},
			want: func(t *testing.T, cfg Config) {
				assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORSAllowedOrigins)
				assert.Equal(t, 250*time.Millisecond, cfg.SimulatedLatency)
				assert.Equal(t, 3, cfg.RedisDB)
			},
		},
		{
			name:    "unknown driver",
			env:     map[string]string{"JWT_SECRET": "s3cret", "STORE_DRIVER": "sqlite"},
			wantErr: true,
		},
		{
			name:    "negative retries",
			env:     map[string]string{"JWT_SECRET": "s3cret", "OPENAI_RETRIES": "-1"},
			wantErr: true,
		},
		{
			name:    "bad latency",
			env:     map[string]string{"JWT_SECRET": "s3cret", "SIMULATED_LATENCY": "soon"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, k := range []string{"STORE_DRIVER", "CORS_ALLOWED_ORIGINS", "SIMULATED_LATENCY", "REDIS_DB", "HTTP_ADDR", "ADMIN_USERNAME", "ADMIN_PASSWORD", "SEED_FIXTURES", "OPENAI_RETRIES"} {
				t.Setenv(k, "")
			}
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tt.want(t, cfg)
		})
	}
}

func TestLoad_PostgresRequiresDatabaseURL(t *testing.T) {
	t.Setenv("JWT_SECRET", "s3cret")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DATABASE_URL", "")

	assert.Panics(t, func() { _, _ = Load() })
}
