package server

import "time"

const (
	writeWait = 10 * time.Second

	// DefaultGameID labels rounds whose join carried no game id.
	DefaultGameID = "turbo-wheel"

	// PrizeContributionEther is the fixed pool increment per settled game,
	// also used as the ledger submission fee.
	PrizeContributionEther = "0.0001"
)
