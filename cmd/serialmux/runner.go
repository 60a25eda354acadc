package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/1ureka/serialmux/internal/config"
	"github.com/1ureka/serialmux/internal/smp"
	"github.com/1ureka/serialmux/internal/stream"
	"github.com/1ureka/serialmux/internal/util"
)

// processInterval is how often the session polls the link. 5 ms keeps
// worst-case frame latency well under the heartbeat period.
const processInterval = 5 * time.Millisecond

// publisher tracks the demo payload schedule of one published channel.
type publisher struct {
	channel  uint8
	dlc      uint8
	periodMs uint32
	lastSent uint32
	counter  uint32
}

// buildSession creates a session over s and registers the configured
// publish channels and subscriptions.
func buildSession(cfg *config.Config, s smp.Stream, tag string) (*smp.Session, []*publisher, error) {
	sess := smp.New(s, smp.WithMaxChannels(cfg.MaxChannels))

	var pubs []*publisher
	for _, p := range cfg.Publish {
		id := sess.CreateChannel(p.Name, uint8(p.DLC))
		if id == 0 {
			return nil, nil, fmt.Errorf("failed to create channel %q", p.Name)
		}
		util.LogInfo("%s: publishing %q on channel %d (dlc %d)", tag, p.Name, id, p.DLC)
		if p.PeriodMs > 0 {
			pubs = append(pubs, &publisher{channel: id, dlc: uint8(p.DLC), periodMs: uint32(p.PeriodMs)})
		}
	}

	for _, sub := range cfg.Subscribe {
		name := sub.Name
		ok := sess.SubscribeToChannel(name, func(payload []byte) {
			util.LogInfo("%s: %q <- % X", tag, name, payload)
		})
		if !ok {
			return nil, nil, fmt.Errorf("failed to subscribe to channel %q", name)
		}
	}

	sess.OnSynced(func() { util.LogInfo("%s: peer synced", tag) })
	sess.OnDesynced(func() { util.LogWarning("%s: peer lost sync", tag) })

	return sess, pubs, nil
}

// tick runs one poll cycle and publishes any demo payloads that are due.
func tick(sess *smp.Session, pubs []*publisher, now uint32) {
	sess.Process(now)

	if !sess.IsSynced() {
		return
	}
	for _, p := range pubs {
		if now-p.lastSent < p.periodMs {
			continue
		}
		payload := make([]byte, p.dlc)
		if p.dlc >= 4 {
			binary.BigEndian.PutUint32(payload, p.counter)
		} else {
			payload[0] = uint8(p.counter)
		}
		if sess.SendData(p.channel, payload) {
			p.counter++
		}
		p.lastSent = now
	}
}

// runSession drives one session over the given stream until ctx is done.
func runSession(ctx context.Context, cfg *config.Config, s smp.Stream) error {
	sess, pubs, err := buildSession(cfg, s, "mux")
	if err != nil {
		return err
	}

	start := time.Now()
	ticker := time.NewTicker(processInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			tick(sess, pubs, uint32(time.Since(start).Milliseconds()))
		case <-ctx.Done():
			return nil
		}
	}
}

// runLoopback drives two sessions over an in-memory pair, each publishing
// the configured channels and subscribing to the other's.
func runLoopback(ctx context.Context, cfg *config.Config) error {
	a, b := stream.Pipe()

	sessA, pubsA, err := buildSession(cfg, a, "a")
	if err != nil {
		return err
	}
	sessB, pubsB, err := buildSession(cfg, b, "b")
	if err != nil {
		return err
	}

	util.StartStatsReporter(ctx)
	util.LogSuccess("loopback demo running, Ctrl+C to stop")

	start := time.Now()
	ticker := time.NewTicker(processInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := uint32(time.Since(start).Milliseconds())
			tick(sessA, pubsA, now)
			tick(sessB, pubsB, now)
		case <-ctx.Done():
			return nil
		}
	}
}
