package atomiq

// PlanStep is one step of the engine's execution plan. The payment artifact
// for an incoming swap lives in the step named "Payment".
type PlanStep struct {
	Name string   `json:"name"`
	Txs  []PlanTx `json:"txs"`
}

// PlanTx is one transaction entry within a plan step.
type PlanTx struct {
	Type       string `json:"type"`
	Address    string `json:"address,omitempty"`
	Amount     string `json:"amount,omitempty"`
	PsbtBase64 string `json:"psbtBase64,omitempty"`
	SignInputs []int  `json:"signInputs,omitempty"`
	Psbt       string `json:"psbt,omitempty"`
}

const (
	planTxTypeAddress    = "ADDRESS"
	planTxTypeFundedPsbt = "FUNDED_PSBT"
	planTxTypeRawPsbt    = "RAW_PSBT"
)

// PaymentArtifact is how the user funds the swap: a plain deposit address, a
// funded PSBT to sign, or a raw PSBT.
type PaymentArtifact interface {
	paymentArtifact()
}

// AddressPayment instructs the user to pay AmountSats to Address.
type AddressPayment struct {
	Address    string
	AmountSats string
}

// FundedPsbt is a pre-funded PSBT the user signs at the given inputs.
type FundedPsbt struct {
	PsbtBase64 string
	SignInputs []int
}

// RawPsbt is an unfunded PSBT the user completes and signs.
type RawPsbt struct {
	Psbt string
}

func (AddressPayment) paymentArtifact() {}
func (FundedPsbt) paymentArtifact()     {}
func (RawPsbt) paymentArtifact()        {}

// ResolvePaymentArtifact extracts the payment artifact from an execution
// plan. A plan without a recognizable artifact in its Payment step is a hard
// failure: no speculative scanning of nested structures.
func ResolvePaymentArtifact(plan []PlanStep) (PaymentArtifact, error) {
	for _, step := range plan {
		if step.Name != "Payment" {
			continue
		}
		for _, tx := range step.Txs {
			switch tx.Type {
			case planTxTypeAddress:
				if tx.Address != "" {
					return AddressPayment{Address: tx.Address, AmountSats: tx.Amount}, nil
				}
			case planTxTypeFundedPsbt:
				if tx.PsbtBase64 != "" {
					return FundedPsbt{PsbtBase64: tx.PsbtBase64, SignInputs: tx.SignInputs}, nil
				}
			case planTxTypeRawPsbt:
				if tx.Psbt != "" {
					return RawPsbt{Psbt: tx.Psbt}, nil
				}
			}
		}
	}
	return nil, engineErrorf("resolve payment artifact", "no deposit address or PSBT in execution plan")
}
