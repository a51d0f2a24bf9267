package server

import (
	"turbowheel/server/internal/proof"
	"turbowheel/server/internal/sim"
)

// Wire message catalog. Every frame carries a "type" tag; dispatch is an
// exhaustive switch on that tag, and unknown tags are logged and skipped.
const (
	// client -> server
	TypeJoinGame    = "join-game"
	TypeScoreUpdate = "score-update"
	TypeGameOver    = "game-over"

	// server -> client
	TypeGameJoined   = "game-joined"
	TypePlayerJoined = "player-joined"
	TypeScoreUpdated = "score-updated"
	TypeGameEnded    = "game-ended"
	TypePlayerLeft   = "player-left"
	TypeError        = "error"
)

// ClientMessage is the decode envelope for every client frame; only the
// fields matching the tag are populated.
type ClientMessage struct {
	Type          string            `json:"type"`
	WalletAddress string            `json:"walletAddress,omitempty"`
	GameID        string            `json:"gameId,omitempty"`
	Score         int               `json:"score,omitempty"`
	GameState     sim.StateSnapshot `json:"gameState,omitempty"`
	Player        string            `json:"player,omitempty"`
	Proof         *proof.ScoreProof `json:"proof,omitempty"`
	IsValid       bool              `json:"isValid,omitempty"`
}

// JoinGameMessage opens a session on the connection's channel.
type JoinGameMessage struct {
	Type          string `json:"type"`
	WalletAddress string `json:"walletAddress,omitempty"`
	GameID        string `json:"gameId"`
}

// ScoreUpdateMessage relays a mid-round cumulative score.
type ScoreUpdateMessage struct {
	Type      string            `json:"type"`
	Score     int               `json:"score"`
	GameState sim.StateSnapshot `json:"gameState"`
}

// GameOverMessage carries the terminal score and its proof envelope.
type GameOverMessage struct {
	Type    string            `json:"type"`
	Score   int               `json:"score"`
	Player  string            `json:"player,omitempty"`
	GameID  string            `json:"gameId"`
	Proof   *proof.ScoreProof `json:"proof,omitempty"`
	IsValid bool              `json:"isValid"`
}

// SessionDescriptor is the assigned session echoed back to the joiner.
type SessionDescriptor struct {
	ChannelID string `json:"channelId"`
	Player    string `json:"player"`
	GameID    string `json:"gameId"`
	StartTime int64  `json:"startTime"`
}

// GameJoinedMessage goes to the joiner only.
type GameJoinedMessage struct {
	Type    string            `json:"type"`
	Session SessionDescriptor `json:"session"`
}

// PlayerJoinedMessage is broadcast to everyone else in the room.
type PlayerJoinedMessage struct {
	Type      string `json:"type"`
	ChannelID string `json:"channelId"`
	Player    string `json:"player"`
	GameID    string `json:"gameId"`
}

// ScoreUpdatedMessage is broadcast to the room after each accepted update.
type ScoreUpdatedMessage struct {
	Type      string `json:"type"`
	ChannelID string `json:"channelId"`
	Player    string `json:"player"`
	Score     int    `json:"score"`
	Nonce     uint64 `json:"nonce"`
}

// GameEndedMessage is broadcast when a session settles.
type GameEndedMessage struct {
	Type      string `json:"type"`
	ChannelID string `json:"channelId"`
	Player    string `json:"player"`
	GameID    string `json:"gameId"`
	Score     int    `json:"score"`
	ProofHash string `json:"proofHash,omitempty"`
}

// PlayerLeftMessage is broadcast when a connection drops.
type PlayerLeftMessage struct {
	Type      string `json:"type"`
	ChannelID string `json:"channelId"`
	Player    string `json:"player"`
}

// ErrorMessage goes only to the connection that caused it.
type ErrorMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}
