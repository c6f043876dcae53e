package config

import (
	"os"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.LoadDefaults()
		return c
	}

	tests := []struct {
		expected    func() *Config
		name        string
		args        []string
		expectPanic bool
	}{
		{
			name: "all flags",
			args: []string{"cmd",
				"-a", "127.0.0.1:9090", "-d", "db", "-s", "secret",
				"-t", "1", "-r", "3", "-k", "k1:9092, k2:9092",
			},
			expected: func() *Config {
				c := base()
				c.EndpointAddrGRPC = "127.0.0.1:9090"
				c.DatabaseDSN = "db"
				c.SecretKey = "secret"
				c.AccessTokenValidityDuration = 1 * time.Minute
				c.RefreshTokenValidityDuration = 3 * time.Minute
				c.KafkaBrokers = []string{"k1:9092", "k2:9092"}
				return c
			},
		},
		{
			name:     "no flags keeps values",
			args:     []string{"cmd", "-c", "ignored.json"},
			expected: base,
		},
		{
			name:        "bad int panics",
			args:        []string{"cmd", "-t", "soon"},
			expectPanic: true,
		},
	}

	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Args = tt.args
			config := base()

			if tt.expectPanic {
				require.Panics(t, func() { parseFlags(config) })
				return
			}
			require.NotPanics(t, func() { parseFlags(config) })
			assert.Empty(t, cmp.Diff(tt.expected(), config))
		})
	}
}

func TestParseFlags_KeepsSubMinuteDurations(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"cmd", "-a", ":1"}

	config := &Config{AccessTokenValidityDuration: 90 * time.Second}
	parseFlags(config)
	assert.Equal(t, 90*time.Second, config.AccessTokenValidityDuration)
}
