package config

import (
	"path/filepath"
	"testing"
)

func TestLoadOrCreateCreatesAndReloadsConfig(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("WEIGHTCAST_DATA_DIR", tempDir)

	firstCfg, firstPath, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("first LoadOrCreate failed: %v", err)
	}
	if firstCfg.DeviceID == "" {
		t.Fatalf("expected non-empty device ID")
	}
	if firstCfg.DeviceName == "" {
		t.Fatalf("expected non-empty device name")
	}
	if firstCfg.ServePort != DefaultServePort {
		t.Fatalf("expected default serve port %d, got %d", DefaultServePort, firstCfg.ServePort)
	}

	expectedConfigPath := filepath.Join(tempDir, "config.json")
	if firstPath != expectedConfigPath {
		t.Fatalf("expected config path %q, got %q", expectedConfigPath, firstPath)
	}

	secondCfg, secondPath, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("second LoadOrCreate failed: %v", err)
	}

	if secondPath != firstPath {
		t.Fatalf("expected config path to be stable, got %q then %q", firstPath, secondPath)
	}
	if secondCfg.DeviceID != firstCfg.DeviceID {
		t.Fatalf("expected stable device ID, got %q then %q", firstCfg.DeviceID, secondCfg.DeviceID)
	}
	if secondCfg.ServePort != firstCfg.ServePort {
		t.Fatalf("expected stable serve port, got %d then %d", firstCfg.ServePort, secondCfg.ServePort)
	}
}

func TestLoadOrCreateNormalizesMissingFields(t *testing.T) {
	tempDir := t.TempDir()
	t.Setenv("WEIGHTCAST_DATA_DIR", tempDir)

	cfgPath := filepath.Join(tempDir, "config.json")
	legacy := &DeviceConfig{
		DeviceName: "Legacy",
	}
	if err := Save(cfgPath, legacy); err != nil {
		t.Fatalf("Save legacy config failed: %v", err)
	}

	cfg, _, err := LoadOrCreate()
	if err != nil {
		t.Fatalf("LoadOrCreate failed: %v", err)
	}
	if cfg.DeviceID == "" {
		t.Fatalf("expected missing device ID to be filled in")
	}
	if cfg.DeviceName != "Legacy" {
		t.Fatalf("expected device name to be retained, got %q", cfg.DeviceName)
	}
	if cfg.ServePort != DefaultServePort {
		t.Fatalf("expected missing serve port to default to %d, got %d", DefaultServePort, cfg.ServePort)
	}

	reloaded, err := Load(cfgPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if reloaded.DeviceID != cfg.DeviceID {
		t.Fatalf("expected normalized config to be persisted")
	}
}
