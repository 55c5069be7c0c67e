package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verihub/internal/logging"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "https://services.sheerid.com", cfg.SheerID.ServicesURL)
	assert.Equal(t, "https://my.sheerid.com", cfg.SheerID.StatusURL)
	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 850, cfg.Browser.ViewportWidth)
	assert.Equal(t, 1100, cfg.Browser.ViewportHeight)
	assert.Equal(t, 50, cfg.Economy.VerificationCost)
	assert.Equal(t, 20, cfg.Economy.JoinReward)
	assert.Equal(t, 5, cfg.Economy.DailyReward)
	assert.Equal(t, 10, cfg.Economy.ReferralReward)
	assert.NoError(t, cfg.Validate())
}

func TestLoadMissingFileYieldsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.Addr, cfg.Server.Addr)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verihub.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9999"
  shutdown_timeout: 3s
economy:
  verification_cost: 75
telegram:
  admin_username: boss
logging:
  debug_mode: true
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.ShutdownTimeout())
	assert.Equal(t, 75, cfg.Economy.VerificationCost)
	assert.Equal(t, "boss", cfg.Telegram.AdminUsername)
	assert.True(t, cfg.Logging.DebugMode)
	// Untouched sections keep their defaults.
	assert.Equal(t, Default().SheerID.ServicesURL, cfg.SheerID.ServicesURL)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verihub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("economy:\n  verification_cost: 0\n"), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "verification_cost")
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "verihub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VERIHUB_BOT_TOKEN", "tok123")
	t.Setenv("VERIHUB_ADDR", ":7070")
	t.Setenv("VERIHUB_DB_PATH", "/tmp/override.db")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "tok123", cfg.Telegram.Token)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)
}

func TestShutdownTimeoutFallsBack(t *testing.T) {
	cfg := Default()
	cfg.Server.ShutdownTimeout = "garbage"
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())

	cfg.Server.ShutdownTimeout = "-5s"
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout())
}

func TestWatchReloadsLoggingSection(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "verihub.yaml")
	require.NoError(t, os.WriteFile(path, []byte("logging:\n  debug_mode: false\n"), 0o644))

	logging.Configure(logging.Settings{DebugMode: false, Level: "info"})
	t.Cleanup(func() { logging.Configure(logging.Settings{Level: "info"}) })

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = Watch(ctx, path)
	}()
	// Give the watcher a moment to register before the write.
	time.Sleep(100 * time.Millisecond)

	require.NoError(t, os.WriteFile(path, []byte("logging:\n  debug_mode: true\n"), 0o644))

	deadline := time.Now().Add(5 * time.Second)
	for !logging.IsDebugMode() {
		if time.Now().After(deadline) {
			t.Fatal("debug mode was not picked up from the rewritten file")
		}
		time.Sleep(20 * time.Millisecond)
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop on context cancel")
	}
}
