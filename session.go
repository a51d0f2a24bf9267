package server

import (
	"time"

	"turbowheel/server/internal/sim"
)

// SessionState is the mutable part of a live registry entry. Nonce strictly
// increases with each accepted score-update.
type SessionState struct {
	Nonce    uint64             `json:"nonce"`
	Score    int                `json:"score"`
	Actions  []sim.ActionRecord `json:"actions"`
	IsActive bool               `json:"isActive"`
}

// ServerSession correlates one live connection with one round's accumulating
// state. It is created on join, mutated per score-update, finalized on
// game-over, and removed from the registry once settled or abandoned.
type ServerSession struct {
	ChannelID string       `json:"channelId"`
	Player    string       `json:"player"`
	GameID    string       `json:"gameId"`
	StartTime time.Time    `json:"startTime"`
	State     SessionState `json:"state"`
}

func (s *ServerSession) descriptor() SessionDescriptor {
	return SessionDescriptor{
		ChannelID: s.ChannelID,
		Player:    s.Player,
		GameID:    s.GameID,
		StartTime: s.StartTime.UnixMilli(),
	}
}
