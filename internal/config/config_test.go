package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTemp writes a TOML snippet to a temp file and returns its path.
func writeTemp(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "serialmux.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}
	return path
}

// TestLoadSerial verifies a complete serial configuration round trip.
func TestLoadSerial(t *testing.T) {
	path := writeTemp(t, `
link = "serial"
device = "/dev/ttyUSB0"
baud = 57600
max_channels = 20

[[publish]]
name = "TEMP"
dlc = 4
period_ms = 500

[[subscribe]]
name = "LED"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Link != LinkSerial || cfg.Device != "/dev/ttyUSB0" || cfg.Baud != 57600 {
		t.Errorf("link fields = %q %q %d", cfg.Link, cfg.Device, cfg.Baud)
	}
	if cfg.MaxChannels != 20 {
		t.Errorf("MaxChannels = %d, want 20", cfg.MaxChannels)
	}
	if len(cfg.Publish) != 1 || cfg.Publish[0].Name != "TEMP" || cfg.Publish[0].DLC != 4 || cfg.Publish[0].PeriodMs != 500 {
		t.Errorf("publish = %+v", cfg.Publish)
	}
	if len(cfg.Subscribe) != 1 || cfg.Subscribe[0].Name != "LED" {
		t.Errorf("subscribe = %+v", cfg.Subscribe)
	}
}

// TestLoadDefaults verifies that omitted fields fall back to the demo
// defaults.
func TestLoadDefaults(t *testing.T) {
	path := writeTemp(t, `link = "loopback"`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Baud != 115200 {
		t.Errorf("default baud = %d, want 115200", cfg.Baud)
	}
	if cfg.MaxChannels != 10 {
		t.Errorf("default max_channels = %d, want 10", cfg.MaxChannels)
	}
}

// TestValidateRejects exercises validation failures of the link, capacity,
// publish and subscribe checks.
func TestValidateRejects(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr string
	}{
		{
			name:    "unknown link",
			body:    `link = "carrier-pigeon"`,
			wantErr: "unknown link",
		},
		{
			name:    "serial without device",
			body:    `link = "serial"`,
			wantErr: "requires a device",
		},
		{
			name: "serial with bad baud",
			body: `
link = "serial"
device = "/dev/ttyUSB0"
baud = -9600
`,
			wantErr: "invalid baud",
		},
		{
			name:    "client without url",
			body:    `link = "client"`,
			wantErr: "requires a signaling url",
		},
		{
			name: "max_channels out of range",
			body: `
link = "loopback"
max_channels = 300
`,
			wantErr: "out of range",
		},
		{
			name: "publish dlc too large",
			body: `
link = "loopback"

[[publish]]
name = "BIG"
dlc = 33
`,
			wantErr: "dlc 33 out of range",
		},
		{
			name: "publish name too long",
			body: `
link = "loopback"

[[publish]]
name = "ELEVENBYTES"
dlc = 1
`,
			wantErr: "longer than 10 bytes",
		},
		{
			name: "duplicate publish name",
			body: `
link = "loopback"

[[publish]]
name = "DUP"
dlc = 1

[[publish]]
name = "DUP"
dlc = 2
`,
			wantErr: "duplicate",
		},
		{
			name: "subscribe with empty name",
			body: `
link = "loopback"

[[subscribe]]
name = ""
`,
			wantErr: "empty name",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Load(writeTemp(t, tc.body))
			if err == nil {
				t.Fatal("Load accepted an invalid config")
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("error %q does not mention %q", err, tc.wantErr)
			}
		})
	}
}

// TestDefaultIsValid guards the built-in demo configuration.
func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default config invalid: %v", err)
	}
}
