package config

import (
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty path", func(c *Config) { c.DatabasePath = "" }, "database path"},
		{"pool too small", func(c *Config) { c.PoolSize = 0 }, "pool size"},
		{"pool too large", func(c *Config) { c.PoolSize = MaxPoolSize + 1 }, "pool size"},
		{"zero acquire timeout", func(c *Config) { c.AcquireTimeout = 0 }, "acquire timeout"},
		{"negative busy timeout", func(c *Config) { c.BusyTimeout = -1 }, "busy timeout"},
		{"zero cache size", func(c *Config) { c.CacheSizeKB = 0 }, "cache size"},
		{"bogus synchronous mode", func(c *Config) { c.Synchronous = "EXTRA" }, "synchronous"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(&cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestValidateAcceptsPoolBounds(t *testing.T) {
	for _, size := range []int{MinPoolSize, MaxPoolSize} {
		cfg := Default()
		cfg.PoolSize = size
		if err := cfg.Validate(); err != nil {
			t.Errorf("pool size %d should be accepted: %v", size, err)
		}
	}
}
