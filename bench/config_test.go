package bench

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Dest:         "127.0.0.1:12000",
		Duration:     time.Second,
		BufSize:      16,
		QueueDepth:   8,
		RingEntries:  32,
		PoolCapacity: 256,
		HaltPolicy:   HaltOnError,
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:12000", cfg.Dest)
	require.Equal(t, time.Second, cfg.Duration)
	require.Equal(t, 16, cfg.BufSize)
	require.Equal(t, 8, cfg.QueueDepth)
	require.Equal(t, uint(32), cfg.RingEntries)
	require.Equal(t, 256, cfg.PoolCapacity)
	require.Equal(t, HaltOnError, cfg.HaltPolicy)
	require.False(t, cfg.Simulate)
}

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("SENDBENCH_DEST", "[::1]:9000")
	t.Setenv("SENDBENCH_DURATION", "250ms")
	t.Setenv("SENDBENCH_QUEUE_DEPTH", "4")
	t.Setenv("SENDBENCH_HALT_POLICY", "continue")
	t.Setenv("SENDBENCH_SIMULATE", "true")

	cfg, err := FromEnv()
	require.NoError(t, err)
	require.Equal(t, "[::1]:9000", cfg.Dest)
	require.Equal(t, 250*time.Millisecond, cfg.Duration)
	require.Equal(t, 4, cfg.QueueDepth)
	require.Equal(t, HaltContinue, cfg.HaltPolicy)
	require.True(t, cfg.Simulate)
}

func TestConfigFromEnvInvalid(t *testing.T) {
	t.Setenv("SENDBENCH_DEST", "nowhere")
	_, err := FromEnv()
	require.ErrorIs(t, err, ErrInvalidDestination)
}

func TestConfigValidate(t *testing.T) {
	for _, tc := range []struct {
		name string
		mut  func(*Config)
		want error
	}{
		{"destination", func(c *Config) { c.Dest = "localhost" }, ErrInvalidDestination},
		{"duration", func(c *Config) { c.Duration = 0 }, ErrInvalidDuration},
		{"buffer size", func(c *Config) { c.BufSize = 0 }, ErrInvalidBufferSize},
		{"queue depth", func(c *Config) { c.QueueDepth = -1 }, ErrInvalidQueueDepth},
		{"ring entries low", func(c *Config) { c.RingEntries = 1 }, ErrInvalidRingEntries},
		{"ring entries high", func(c *Config) { c.RingEntries = 8192 }, ErrInvalidRingEntries},
		{"pool capacity", func(c *Config) { c.PoolCapacity = 0 }, ErrInvalidPoolCapacity},
		{"halt policy", func(c *Config) { c.HaltPolicy = "retry" }, ErrInvalidHaltPolicy},
	} {
		t.Run(tc.name, func(t *testing.T) {
			cfg := validConfig()
			require.NoError(t, cfg.Validate())
			tc.mut(&cfg)
			require.ErrorIs(t, cfg.Validate(), tc.want)
		})
	}
}
