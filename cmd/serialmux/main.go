// Serialmux — CLI entry point.
//
// This tool multiplexes named logical channels over a single byte link:
// a serial port, a WebRTC DataChannel (host/client, with WebSocket
// signaling), or an in-process loopback pair for demos.
//
// It can be launched interactively (no flags), from CLI flags (-link,
// -device, -baud, -url), or from a TOML file (-config).
package main

import (
	"context"
	"flag"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strconv"
	"strings"

	"github.com/pterm/pterm"

	"github.com/1ureka/serialmux/internal/config"
	"github.com/1ureka/serialmux/internal/signaling"
	"github.com/1ureka/serialmux/internal/stream"
	"github.com/1ureka/serialmux/internal/util"
)

var version = "dev"

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// CLI flags.
	configPath := flag.String("config", "", "Path to a TOML configuration file")
	link := flag.String("link", "", "Link type: loopback, serial, host or client")
	device := flag.String("device", "", "Serial device path (serial link only)")
	baud := flag.Int("baud", 115200, "Serial baud rate (serial link only)")
	wsURLFlag := flag.String("url", "", "Signaling WebSocket URL (client link only)")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	pterm.Info.Println(fmt.Sprintf("Serialmux — v%s", version))
	pterm.Println()

	cfg, err := buildConfig(*configPath, *link, *device, *baud, *wsURLFlag)
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	if err := run(ctx, cfg); err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	util.LogInfo("session closed")
}

// buildConfig assembles the runtime configuration from a config file, CLI
// flags, or interactive prompts, in that order of preference.
func buildConfig(path, link, device string, baud int, wsURL string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}

	cfg := config.Default()

	if link == "" {
		// No -link flag → interactive mode.
		return askConfig(cfg)
	}

	cfg.Link = config.Link(link)
	cfg.Device = device
	cfg.Baud = baud
	if wsURL != "" {
		normalized, err := normalizeWSURL(wsURL)
		if err != nil {
			return nil, err
		}
		cfg.URL = normalized
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// run builds the configured link and drives a mux session over it until
// ctx is cancelled.
func run(ctx context.Context, cfg *config.Config) error {
	switch cfg.Link {
	case config.LinkLoopback:
		return runLoopback(ctx, cfg)

	case config.LinkSerial:
		port, err := stream.OpenSerial(cfg.Device, cfg.Baud)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", cfg.Device, err)
		}
		defer port.Close()

		util.StartStatsReporter(ctx)
		util.LogSuccess("serial link open on %s @ %d baud", cfg.Device, cfg.Baud)
		return runSession(ctx, cfg, port)

	case config.LinkHost:
		tr, err := signaling.EstablishAsHost(ctx)
		if err != nil {
			return fmt.Errorf("failed to establish link: %w", err)
		}
		defer tr.Close()

		util.StartStatsReporter(ctx)
		util.LogSuccess("P2P link established")
		return runSession(ctx, cfg, tr.Stream())

	case config.LinkClient:
		tr, err := signaling.EstablishAsClient(ctx, cfg.URL)
		if err != nil {
			return fmt.Errorf("failed to establish link: %w", err)
		}
		defer tr.Close()

		util.StartStatsReporter(ctx)
		util.LogSuccess("P2P link established")
		return runSession(ctx, cfg, tr.Stream())
	}

	return fmt.Errorf("unknown link %q", cfg.Link)
}

// ---------------------------------------------------------------------------
// Helper Functions
// ---------------------------------------------------------------------------

// normalizeWSURL validates and normalizes a raw WebSocket URL string,
// preserving the query (the signaling PIN rides in it).
func normalizeWSURL(raw string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return "", fmt.Errorf("invalid WebSocket URL: %s", raw)
	}
	scheme := "wss"
	if u.Scheme == "ws" || u.Scheme == "wss" {
		scheme = u.Scheme
	}
	normalized := fmt.Sprintf("%s://%s/ws", scheme, u.Host)
	if u.RawQuery != "" {
		normalized += "?" + u.RawQuery
	}
	return normalized, nil
}

// askConfig falls back to interactive prompts when no -link flag is provided.
func askConfig(cfg *config.Config) (*config.Config, error) {
	choice, _ := pterm.DefaultInteractiveSelect.
		WithOptions([]string{
			"Loopback — Two sessions in this process",
			"Serial   — Multiplex over a serial port",
			"Host     — Bridge over WebRTC, wait for a peer",
			"Client   — Bridge over WebRTC, connect to a host",
		}).
		WithDefaultText("Select the link").
		Show()

	pterm.Println()

	switch {
	case strings.HasPrefix(choice, "Serial"):
		cfg.Link = config.LinkSerial
		cfg.Device = askText("Serial device (e.g. /dev/ttyUSB0)")
		cfg.Baud = askBaud()

	case strings.HasPrefix(choice, "Host"):
		cfg.Link = config.LinkHost

	case strings.HasPrefix(choice, "Client"):
		cfg.Link = config.LinkClient
		cfg.URL = askURL()

	default:
		cfg.Link = config.LinkLoopback
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// askText prompts until a non-empty line is entered.
func askText(prompt string) string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText(prompt).
			Show()

		if s := strings.TrimSpace(raw); s != "" {
			pterm.Println()
			return s
		}

		util.LogWarning("input must not be empty")
		pterm.Println()
	}
}

// askBaud prompts the user for a baud rate until a valid one is entered.
func askBaud() int {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("Baud rate").
			WithDefaultValue("115200").
			Show()

		baud, err := strconv.Atoi(strings.TrimSpace(raw))
		if err == nil && baud > 0 {
			pterm.Println()
			return baud
		}

		util.LogWarning("invalid baud rate")
		pterm.Println()
	}
}

// askURL prompts the user for a valid WebSocket URL until one is entered.
func askURL() string {
	for {
		raw, _ := pterm.DefaultInteractiveTextInput.
			WithDefaultText("WebSocket URL (e.g. ws://host:port/ws?pin=1234)").
			Show()

		wsURL, err := normalizeWSURL(raw)
		if err == nil {
			pterm.Println()
			return wsURL
		}

		pterm.Println()
		util.LogWarning("invalid input: please enter a valid WebSocket URL")
	}
}
