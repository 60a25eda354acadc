package smp

import (
	"bytes"
	"testing"
)

// TestChecksum verifies the checksum against known vectors, including the
// mod-255 boundary where a sum of exactly 255 wraps to zero.
func TestChecksum(t *testing.T) {
	testCases := []struct {
		name    string
		channel uint8
		dlc     uint8
		payload []byte
		want    uint8
	}{
		{
			name:    "interop vector",
			channel: 1,
			dlc:     4,
			payload: []byte{0x12, 0x34, 0x56, 0x78},
			want:    0x1A,
		},
		{
			name:    "empty payload",
			channel: 0,
			dlc:     0,
			payload: nil,
			want:    0,
		},
		{
			name:    "sum of exactly 255 wraps to zero",
			channel: 1,
			dlc:     1,
			payload: []byte{253},
			want:    0,
		},
		{
			name:    "sum of 256 is one",
			channel: 1,
			dlc:     1,
			payload: []byte{254},
			want:    1,
		},
		{
			name:    "sum below modulus unchanged",
			channel: 2,
			dlc:     2,
			payload: []byte{10, 20},
			want:    34,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Checksum(tc.channel, tc.dlc, tc.payload)
			if got != tc.want {
				t.Errorf("Checksum mismatch: got 0x%02X, want 0x%02X", got, tc.want)
			}
		})
	}
}

// TestEncodeFrame verifies the full wire layout of an encoded frame.
func TestEncodeFrame(t *testing.T) {
	frame := EncodeFrame(1, []byte{0x12, 0x34, 0x56, 0x78})

	want := []byte{0x01, 0x04, 0x1A, 0x12, 0x34, 0x56, 0x78}
	if !bytes.Equal(frame, want) {
		t.Fatalf("frame mismatch: got % X, want % X", frame, want)
	}
}

// TestValidFrame verifies checksum validation and truncation handling.
func TestValidFrame(t *testing.T) {
	good := EncodeFrame(3, []byte{0xAA, 0xBB})

	testCases := []struct {
		name string
		raw  []byte
		want bool
	}{
		{"valid frame", good, true},
		{"corrupted payload byte", corrupt(good, 4), false},
		{"corrupted checksum byte", corrupt(good, frameChecksumIdx), false},
		{"truncated header", good[:2], false},
		{"truncated payload", good[:4], false},
		{"empty", nil, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ValidFrame(tc.raw); got != tc.want {
				t.Errorf("ValidFrame = %v, want %v", got, tc.want)
			}
		})
	}
}

// TestDecodeFrame verifies that decoding splits a valid frame and rejects a
// corrupted one.
func TestDecodeFrame(t *testing.T) {
	frame := EncodeFrame(5, []byte{1, 2, 3})

	channel, payload, ok := DecodeFrame(frame)
	if !ok {
		t.Fatal("DecodeFrame rejected a valid frame")
	}
	if channel != 5 {
		t.Errorf("channel = %d, want 5", channel)
	}
	if !bytes.Equal(payload, []byte{1, 2, 3}) {
		t.Errorf("payload = % X, want 01 02 03", payload)
	}

	if _, _, ok := DecodeFrame(corrupt(frame, 3)); ok {
		t.Error("DecodeFrame accepted a corrupted frame")
	}
}

// corrupt returns a copy of raw with one byte flipped.
func corrupt(raw []byte, idx int) []byte {
	c := make([]byte, len(raw))
	copy(c, raw)
	c[idx] ^= 0xFF
	return c
}
