package app

import (
	"bytes"
	"errors"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDeviceFlag(t *testing.T) {
	var stderr bytes.Buffer
	device, err := ParseDeviceFlag("dmmcam", []string{"-d", "/dev/video7"}, &stderr)
	if err != nil || device != "/dev/video7" {
		t.Fatalf("expected /dev/video7, got %q (%v)", device, err)
	}
	device, err = ParseDeviceFlag("dmmcam", nil, &stderr)
	if err != nil || device != "" {
		t.Fatalf("expected no device, got %q (%v)", device, err)
	}
	if stderr.Len() != 0 {
		t.Fatalf("valid usage must not print, got %q", stderr.String())
	}
}

func TestParseDeviceFlagRejectsUnknownFlags(t *testing.T) {
	var stderr bytes.Buffer
	_, err := ParseDeviceFlag("scopecam", []string{"-x"}, &stderr)
	if err == nil {
		t.Fatalf("expected usage error")
	}
	if !strings.Contains(stderr.String(), "Usage: scopecam [-d device]") {
		t.Fatalf("expected usage line, got %q", stderr.String())
	}
	if ExitCodeFor(err) != ExitUsage {
		t.Fatalf("expected exit status %d", ExitUsage)
	}
	stderr.Reset()
	if _, err := ParseDeviceFlag("scopecam", []string{"-d"}, &stderr); err == nil {
		t.Fatalf("missing device argument must fail")
	}
}

func TestHelpExitsCleanly(t *testing.T) {
	var stderr bytes.Buffer
	_, err := ParseDeviceFlag("dmmcam", []string{"-h"}, &stderr)
	if !errors.Is(err, flag.ErrHelp) || ExitCodeFor(err) != 0 {
		t.Fatalf("expected help to exit 0, got %v", err)
	}
}

func TestLoadConfigFromEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bridge.yaml")
	if err := os.WriteFile(path, []byte("dmm:\n  device: /dev/video42\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvConfigPath, path)
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.DMM.Device != "/dev/video42" || cfg.LoadedFrom != path {
		t.Fatalf("unexpected config %+v", cfg.DMM)
	}
}

func TestLoadConfigFallsBackToDefaults(t *testing.T) {
	t.Setenv(EnvConfigPath, filepath.Join(t.TempDir(), "missing.yaml"))
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd: %v", err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatalf("Chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.LoadedFrom != "defaults" {
		t.Fatalf("expected defaults, got %s", cfg.LoadedFrom)
	}
}

func TestLoadConfigParseErrorIsFatal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("dmm: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(EnvConfigPath, path)
	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected parse error")
	}
}
