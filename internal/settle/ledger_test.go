package settle

import (
	"context"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLedgerRejectsLowFees(t *testing.T) {
	ledger := NewMemoryLedger(MustParseEther("0.0001"))

	err := ledger.SubmitScore(context.Background(), LedgerEntry{Player: "alice", Score: 500}, big.NewInt(1))
	assert.ErrorIs(t, err, ErrFeeTooLow)

	err = ledger.SubmitScore(context.Background(), LedgerEntry{Player: "alice", Score: 500}, nil)
	assert.ErrorIs(t, err, ErrFeeTooLow)

	assert.Equal(t, 0, ledger.Pool().Sign(), "rejected fees must not grow the pool")

	err = ledger.SubmitScore(context.Background(), LedgerEntry{Player: "alice", Score: 500}, MustParseEther("0.0001"))
	require.NoError(t, err)
	assert.Equal(t, 0, MustParseEther("0.0001").Cmp(ledger.Pool()))
}

func TestMemoryLedgerTopScores(t *testing.T) {
	ledger := NewMemoryLedger(nil)
	fee := big.NewInt(1)

	for _, entry := range []LedgerEntry{
		{Player: "alice", Score: 500},
		{Player: "bob", Score: 1250},
		{Player: "carol", Score: 1250},
		{Player: "dave", Score: 980},
	} {
		require.NoError(t, ledger.SubmitScore(context.Background(), entry, fee))
	}

	top, err := ledger.TopScores(context.Background(), 3)
	require.NoError(t, err)
	require.Len(t, top, 3)
	assert.Equal(t, "bob", top[0].Player, "ties keep submission order")
	assert.Equal(t, "carol", top[1].Player)
	assert.Equal(t, "dave", top[2].Player)

	all, err := ledger.TopScores(context.Background(), 0)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestMemoryLedgerDistributePrizes(t *testing.T) {
	ledger := NewMemoryLedger(nil)
	fee := MustParseEther("0.001")

	_, err := ledger.DistributePrizes(context.Background())
	assert.ErrorIs(t, err, ErrNotEnoughEntries)

	for i, player := range []string{"alice", "bob", "carol"} {
		require.NoError(t, ledger.SubmitScore(context.Background(), LedgerEntry{Player: player, Score: 100 * (i + 1)}, fee))
	}

	shares, err := ledger.DistributePrizes(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0.0015", FormatEther(shares[0]))
	assert.Equal(t, "0.0009", FormatEther(shares[1]))
	assert.Equal(t, "0.0006", FormatEther(shares[2]))
	assert.Equal(t, 0, ledger.Pool().Sign(), "pool zeroed after payout")
}
