package atomiq

import (
	"testing"

	"bridge/apps/bridge/internal/model"
)

func TestMapEngineState(t *testing.T) {
	tests := []struct {
		stateRaw string
		want     model.OrderStatus
	}{
		{StatePRCreated, model.StatusCreated},
		{StateQuoteSoftExpired, model.StatusCreated},
		{StatePsbtPrepared, model.StatusAwaitingUserSignature},
		{StateBtcTxSubmitted, model.StatusSourceSubmitted},
		{StateBtcTxConfirmed, model.StatusSourceConfirmed},
		{StateClaimCommited, model.StatusClaiming},
		{StateClaimClaimed, model.StatusSettled},
		{StateQuoteExpired, model.StatusRefunding},
		{StateExpired, model.StatusRefunding},
		{StateFailed, model.StatusRefunding},
		{StateRefunded, model.StatusRefunded},
	}

	for _, tt := range tests {
		if got := MapEngineState(tt.stateRaw); got != tt.want {
			t.Errorf("MapEngineState(%q) = %q, want %q", tt.stateRaw, got, tt.want)
		}
	}
}

func TestMapEngineStateUnknownFallsBack(t *testing.T) {
	// The mapping is total: unknown engine states degrade to an in-flight
	// status instead of erroring.
	for _, stateRaw := range []string{"", "SOMETHING_NEW", "BTC_TX_CONFIRMED_V2"} {
		if got := MapEngineState(stateRaw); got != model.StatusSourceSubmitted {
			t.Errorf("MapEngineState(%q) = %q, want %q", stateRaw, got, model.StatusSourceSubmitted)
		}
	}
}
