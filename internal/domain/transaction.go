package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionState is the local lifecycle state of a gateway payment.
type TransactionState string

const (
	StateDraft    TransactionState = "draft"
	StatePending  TransactionState = "pending"
	StateDone     TransactionState = "done"
	StateCanceled TransactionState = "canceled"
	StateError    TransactionState = "error"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s TransactionState) IsTerminal() bool {
	switch s {
	case StateDone, StateCanceled, StateError:
		return true
	}
	return false
}

// transitions lists, for every target state, the states it may be reached from.
// pending -> pending is a no-op and has no entry.
var transitions = map[TransactionState][]TransactionState{
	StatePending:  {StateDraft},
	StateDone:     {StateDraft, StatePending},
	StateCanceled: {StateDraft, StatePending},
	StateError:    {StateDraft, StatePending},
}

// CanTransition reports whether a transaction in state from may move to state to.
func CanTransition(from, to TransactionState) bool {
	for _, s := range transitions[to] {
		if s == from {
			return true
		}
	}
	return false
}

// SourceStates returns the states a transaction may be in for a write to target to succeed.
func SourceStates(to TransactionState) []TransactionState {
	src := transitions[to]
	out := make([]TransactionState, len(src))
	copy(out, src)
	return out
}

// Transaction is a locally tracked gateway payment.
type Transaction struct {
	ID               string           `json:"id"`
	Reference        string           `json:"reference"`
	GatewayPaymentID string           `json:"gatewayPaymentId,omitempty"`
	Amount           decimal.Decimal  `json:"amount"`
	PartnerID        string           `json:"partnerId"`
	ProviderCode     string           `json:"providerCode"`
	State            TransactionState `json:"state"`
	ErrorMessage     string           `json:"errorMessage,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
}

// NewTransaction builds a draft transaction for the given merchant reference.
func NewTransaction(reference, partnerID, providerCode string, amount decimal.Decimal) *Transaction {
	now := time.Now().UTC()
	return &Transaction{
		ID:           uuid.New().String(),
		Reference:    reference,
		Amount:       amount,
		PartnerID:    partnerID,
		ProviderCode: providerCode,
		State:        StateDraft,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Transition describes a compare-and-set state change applied by the store.
type Transition struct {
	Reference    string
	To           TransactionState
	ErrorMessage string
	// PaymentID, when set, is attached together with the state change.
	PaymentID string
}
