package pkg_test

import (
	"os"
	"path/filepath"
	"testing"

	"showcase-backend-audio_relay-go/pkg"
)

type testConfig struct {
	Listener struct {
		Address string `mapstructure:"address"`
		Port    int    `mapstructure:"port"`
	} `mapstructure:"listener"`
	Debug bool `mapstructure:"debug"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	fp := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(fp, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return fp
}

func TestConfigLoad(t *testing.T) {
	fp := writeFile(t, "config.test.json", `{"listener": {"port": 9000}}`)

	var cfg testConfig
	err := pkg.ConfigLoad(fp, "RELAY_TEST", map[string]any{
		"listener.address": "0.0.0.0",
		"listener.port":    8765,
	}, &cfg)
	if err != nil {
		t.Fatalf("ConfigLoad() error = %v", err)
	}

	if cfg.Listener.Port != 9000 {
		t.Errorf("port from file: got %d, want 9000", cfg.Listener.Port)
	}
	if cfg.Listener.Address != "0.0.0.0" {
		t.Errorf("address from defaults: got %q", cfg.Listener.Address)
	}
}

func TestConfigLoadEnvOverride(t *testing.T) {
	fp := writeFile(t, "config.test.json", `{"listener": {"port": 9000}, "debug": false}`)
	t.Setenv("RELAY_TEST_LISTENER_PORT", "9100")
	t.Setenv("RELAY_TEST_DEBUG", "true")

	var cfg testConfig
	if err := pkg.ConfigLoad(fp, "RELAY_TEST", nil, &cfg); err != nil {
		t.Fatalf("ConfigLoad() error = %v", err)
	}

	if cfg.Listener.Port != 9100 {
		t.Errorf("port: got %d, want 9100", cfg.Listener.Port)
	}
	if !cfg.Debug {
		t.Error("debug should be overridden to true")
	}
}

func TestConfigLoadMissingFile(t *testing.T) {
	var cfg testConfig
	if err := pkg.ConfigLoad(filepath.Join(t.TempDir(), "nope.json"), "RELAY_TEST", nil, &cfg); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadEnv(t *testing.T) {
	fp := writeFile(t, ".env", "RELAY_TEST_LOAD_ENV=yes\n")
	t.Cleanup(func() { os.Unsetenv("RELAY_TEST_LOAD_ENV") })

	if err := pkg.LoadEnv(filepath.Join(t.TempDir(), ".env"), fp); err != nil {
		t.Fatalf("LoadEnv() error = %v", err)
	}
	if got := os.Getenv("RELAY_TEST_LOAD_ENV"); got != "yes" {
		t.Errorf("RELAY_TEST_LOAD_ENV = %q, want yes", got)
	}
}
