// Package signaling orchestrates the complete signaling phase — from user
// input to an established P2P link. All WebSocket and SDP/ICE details are
// internal; callers receive a ready-to-use Transport.
package signaling

// msgType identifies the kind of signaling message.
type msgType string

const (
	msgTypeOffer     msgType = "offer"
	msgTypeAnswer    msgType = "answer"
	msgTypeCandidate msgType = "candidate"
)

// message is the JSON structure exchanged over the WebSocket during signaling.
type message struct {
	Type      msgType `json:"type"`
	SDP       string  `json:"sdp,omitempty"`
	Candidate string  `json:"candidate,omitempty"` // JSON-encoded ICECandidateInit
}
