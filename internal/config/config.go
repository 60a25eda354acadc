// Package config holds the CLI configuration: which link to run the mux
// over and which channels to publish and subscribe.
package config

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Link selects the byte link the mux session runs over.
type Link string

const (
	LinkLoopback Link = "loopback"
	LinkSerial   Link = "serial"
	LinkHost     Link = "host"
	LinkClient   Link = "client"
)

// Publish describes one published channel. PeriodMs, when non-zero, makes
// the demo runner send a payload on the channel at that interval.
type Publish struct {
	Name     string `toml:"name"`
	DLC      int    `toml:"dlc"`
	PeriodMs int    `toml:"period_ms"`
}

// Subscribe names a peer channel to subscribe to.
type Subscribe struct {
	Name string `toml:"name"`
}

// Config stores all runtime parameters, from a TOML file or from flags.
type Config struct {
	Link        Link   `toml:"link"`
	Device      string `toml:"device"` // serial: port device path
	Baud        int    `toml:"baud"`   // serial: baud rate
	URL         string `toml:"url"`    // client: signaling WebSocket URL
	MaxChannels int    `toml:"max_channels"`

	Publish   []Publish   `toml:"publish"`
	Subscribe []Subscribe `toml:"subscribe"`
}

// Default returns the self-contained demo configuration: two in-process
// sessions over a loopback pair.
func Default() *Config {
	return &Config{
		Link:        LinkLoopback,
		Baud:        115200,
		MaxChannels: 10,
		Publish: []Publish{
			{Name: "HEARTBEAT", DLC: 4, PeriodMs: 1000},
		},
		Subscribe: []Subscribe{
			{Name: "HEARTBEAT"},
		},
	}
}

// Load reads and validates a TOML configuration file.
func Load(path string) (*Config, error) {
	cfg := Default()
	cfg.Publish = nil
	cfg.Subscribe = nil
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration for values the session or the links
// would reject later.
func (c *Config) Validate() error {
	switch c.Link {
	case LinkLoopback, LinkHost:
	case LinkSerial:
		if c.Device == "" {
			return fmt.Errorf("config: link %q requires a device", c.Link)
		}
		if c.Baud <= 0 {
			return fmt.Errorf("config: invalid baud rate %d", c.Baud)
		}
	case LinkClient:
		if c.URL == "" {
			return fmt.Errorf("config: link %q requires a signaling url", c.Link)
		}
	default:
		return fmt.Errorf("config: unknown link %q", c.Link)
	}

	if c.MaxChannels < 1 || c.MaxChannels > 255 {
		return fmt.Errorf("config: max_channels %d out of range (1..255)", c.MaxChannels)
	}

	seen := map[string]bool{}
	for _, p := range c.Publish {
		if p.Name == "" {
			return fmt.Errorf("config: publish entry with empty name")
		}
		if len(p.Name) > 10 {
			return fmt.Errorf("config: channel name %q longer than 10 bytes", p.Name)
		}
		if p.DLC < 1 || p.DLC > 32 {
			return fmt.Errorf("config: channel %q dlc %d out of range (1..32)", p.Name, p.DLC)
		}
		if seen[p.Name] {
			return fmt.Errorf("config: duplicate publish channel %q", p.Name)
		}
		seen[p.Name] = true
	}
	if len(c.Publish) > c.MaxChannels {
		return fmt.Errorf("config: %d publish channels exceed max_channels %d", len(c.Publish), c.MaxChannels)
	}

	for _, s := range c.Subscribe {
		if s.Name == "" {
			return fmt.Errorf("config: subscribe entry with empty name")
		}
		if len(s.Name) > 10 {
			return fmt.Errorf("config: channel name %q longer than 10 bytes", s.Name)
		}
	}
	if len(c.Subscribe) > c.MaxChannels {
		return fmt.Errorf("config: %d subscriptions exceed max_channels %d", len(c.Subscribe), c.MaxChannels)
	}

	return nil
}
