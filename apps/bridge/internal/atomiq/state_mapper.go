package atomiq

import "bridge/apps/bridge/internal/model"

// Engine swap states as reported in the swap resource's state field.
const (
	StatePRCreated        = "PR_CREATED"
	StateQuoteSoftExpired = "QUOTE_SOFT_EXPIRED"
	StateQuoteExpired     = "QUOTE_EXPIRED"
	StatePsbtPrepared     = "PSBT_PREPARED"
	StateBtcTxSubmitted   = "BTC_TX_SUBMITTED"
	StateBtcTxConfirmed   = "BTC_TX_CONFIRMED"
	StateClaimCommited    = "CLAIM_COMMITED"
	StateClaimClaimed     = "CLAIM_CLAIMED"
	StateExpired          = "EXPIRED"
	StateFailed           = "FAILED"
	StateRefunded         = "REFUNDED"
)

// MapEngineState maps a raw engine state to a canonical order status. The
// mapping is total: unknown states fall back to SOURCE_SUBMITTED so a new or
// renamed engine state degrades to "in flight" instead of failing the
// reconciliation pass.
func MapEngineState(stateRaw string) model.OrderStatus {
	switch stateRaw {
	case StatePRCreated, StateQuoteSoftExpired:
		return model.StatusCreated
	case StatePsbtPrepared:
		return model.StatusAwaitingUserSignature
	case StateBtcTxSubmitted:
		return model.StatusSourceSubmitted
	case StateBtcTxConfirmed:
		return model.StatusSourceConfirmed
	case StateClaimCommited:
		return model.StatusClaiming
	case StateClaimClaimed:
		return model.StatusSettled
	case StateQuoteExpired, StateExpired, StateFailed:
		return model.StatusRefunding
	case StateRefunded:
		return model.StatusRefunded
	default:
		return model.StatusSourceSubmitted
	}
}
