package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pterm/pterm"
)

// ──────────────────────────────────────────────────────────────────────────────
// Global stats singleton
// ──────────────────────────────────────────────────────────────────────────────

// Stats is the process-wide link traffic counter.
var Stats = &stats{}

type stats struct {
	TxFrames       atomic.Int64 // cumulative frames written to the link
	RxFrames       atomic.Int64 // cumulative valid frames received from the link
	BytesSent      atomic.Int64 // cumulative bytes written to the link
	BytesRecv      atomic.Int64 // cumulative bytes read  from the link
	ChecksumErrors atomic.Int64 // frames dropped for a bad checksum
	RxResets       atomic.Int64 // receive buffer resets (garbage or stalled frames)
}

func (s *stats) AddTxFrame()      { s.TxFrames.Add(1) }
func (s *stats) AddRxFrame()      { s.RxFrames.Add(1) }
func (s *stats) AddSent(n int)    { s.BytesSent.Add(int64(n)) }
func (s *stats) AddRecv(n int)    { s.BytesRecv.Add(int64(n)) }
func (s *stats) AddChecksumErr()  { s.ChecksumErrors.Add(1) }
func (s *stats) AddRxReset()      { s.RxResets.Add(1) }

// ──────────────────────────────────────────────────────────────────────────────
// Periodic reporter
// ──────────────────────────────────────────────────────────────────────────────

// StartStatsReporter launches a goroutine that logs link statistics
// every 10 seconds. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevTx, prevRx, prevSent, prevRecv, prevErr int64
		for {
			select {
			case <-ticker.C:
				tx := Stats.TxFrames.Load()
				rx := Stats.RxFrames.Load()
				sent := Stats.BytesSent.Load()
				recv := Stats.BytesRecv.Load()
				cerr := Stats.ChecksumErrors.Load()

				outS := float64(sent-prevSent) / 10.0
				inS := float64(recv-prevRecv) / 10.0
				txF := tx - prevTx
				rxF := rx - prevRx
				errF := cerr - prevErr

				if txF > 0 || rxF > 0 || errF > 0 {
					pterm.DefaultLogger.Info(formatStats(inS, outS, txF, rxF, errF))
				}

				prevTx = tx
				prevRx = rx
				prevSent = sent
				prevRecv = recv
				prevErr = cerr

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a human-readable string with fixed width (exactly 8 chars)
// for example: "99.0   B", " 1.5 KiB", " 0.1 MiB", "98.9 GiB", etc.
func formatBytes(b float64) string {
	unitIdx := 0

	// to prevent "100.0 KiB", which is 9 chars
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}

	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}

// formatStats returns a formatted string of the current stats for display in the logger.
func formatStats(inS, outS float64, txF, rxF, errF int64) string {
	return fmt.Sprintf("In: %s/s | Out: %s/s | Frames: %3d↑ %3d↓ | CkErr: %d",
		formatBytes(inS),
		formatBytes(outS),
		txF,
		rxF,
		errF,
	)
}
