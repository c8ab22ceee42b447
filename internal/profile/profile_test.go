package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	p, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "dev", p.Mode)
	assert.True(t, p.IsDev())
	assert.Equal(t, 8080, p.Port)
	assert.Equal(t, "memory", p.Driver)
	assert.Equal(t, 100, p.CacheHotCapacity)
	assert.Equal(t, 500, p.CacheWarmCapacity)
	assert.Equal(t, time.Hour, p.CacheTTL)
	assert.Equal(t, "test", p.Version)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("PAWDESK_MODE", "prod")
	t.Setenv("PAWDESK_PORT", "9090")
	t.Setenv("PAWDESK_DRIVER", "postgres")
	t.Setenv("PAWDESK_DSN", "postgres://localhost/pawdesk")

	p, err := Load("test")
	require.NoError(t, err)

	assert.Equal(t, "prod", p.Mode)
	assert.False(t, p.IsDev())
	assert.Equal(t, 9090, p.Port)
	assert.Equal(t, "postgres", p.Driver)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Profile)
		wantErr string
	}{
		{
			name:    "postgres requires dsn",
			mutate:  func(p *Profile) { p.Driver = "postgres"; p.DSN = "" },
			wantErr: "dsn is required",
		},
		{
			name:    "unknown driver",
			mutate:  func(p *Profile) { p.Driver = "mysql" },
			wantErr: "unknown driver",
		},
		{
			name:    "invalid mode",
			mutate:  func(p *Profile) { p.Mode = "staging" },
			wantErr: "invalid mode",
		},
		{
			name:    "invalid port",
			mutate:  func(p *Profile) { p.Port = 0 },
			wantErr: "invalid port",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Load("test")
			require.NoError(t, err)
			tt.mutate(p)
			assert.ErrorContains(t, p.Validate(), tt.wantErr)
		})
	}
}
