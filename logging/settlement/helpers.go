package settlement

import (
	"context"

	"turbowheel/server/logging"
)

const (
	// EventPoolContribution is emitted when a finalized game grows the pool.
	EventPoolContribution logging.EventType = "settlement.pool_contribution"
	// EventPrizesDistributed is emitted after a successful payout.
	EventPrizesDistributed logging.EventType = "settlement.prizes_distributed"
	// EventDistributionRejected is emitted when the payout precondition fails.
	EventDistributionRejected logging.EventType = "settlement.distribution_rejected"
	// EventLedgerError is emitted when the external ledger mirror fails.
	// Local settlement state is already committed when this fires.
	EventLedgerError logging.EventType = "settlement.ledger_error"
)

// PoolContributionPayload records a single pool increment in wei.
type PoolContributionPayload struct {
	AmountWei  string `json:"amountWei"`
	TotalWei   string `json:"totalWei"`
	TotalGames int    `json:"totalGames"`
}

// PrizesDistributedPayload records a completed 50/30/20 payout.
type PrizesDistributedPayload struct {
	PoolWei string    `json:"poolWei"`
	Winners [3]string `json:"winners"`
	Shares  [3]string `json:"sharesWei"`
}

// DistributionRejectedPayload records a refused payout attempt.
type DistributionRejectedPayload struct {
	Entries int    `json:"entries"`
	Reason  string `json:"reason"`
}

// LedgerErrorPayload records a failed ledger call.
type LedgerErrorPayload struct {
	Op     string `json:"op"`
	Reason string `json:"reason"`
}

// PoolContribution publishes a pool increment event.
func PoolContribution(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload PoolContributionPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventPoolContribution,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySettlement,
		Payload:  payload,
	})
}

// PrizesDistributed publishes a payout event.
func PrizesDistributed(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload PrizesDistributedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventPrizesDistributed,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityInfo,
		Category: logging.CategorySettlement,
		Payload:  payload,
	})
}

// DistributionRejected publishes a refused payout event.
func DistributionRejected(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload DistributionRejectedPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventDistributionRejected,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityWarn,
		Category: logging.CategorySettlement,
		Payload:  payload,
	})
}

// LedgerError publishes a ledger mirror failure.
func LedgerError(ctx context.Context, pub logging.Publisher, seq uint64, actor logging.EntityRef, payload LedgerErrorPayload) {
	publish(ctx, pub, logging.Event{
		Type:     EventLedgerError,
		Seq:      seq,
		Actor:    actor,
		Severity: logging.SeverityError,
		Category: logging.CategorySettlement,
		Payload:  payload,
	})
}

func publish(ctx context.Context, pub logging.Publisher, event logging.Event) {
	if pub == nil {
		return
	}
	pub.Publish(ctx, event)
}
