package repository

import (
	"context"

	"github.com/ai0585413/bkash/internal/domain"
)

// TransactionStore is the persistence contract of the reconciliation flow.
//
// Transition is the only way state changes: it is an atomic compare-and-set that
// succeeds only while the stored state is one of domain.SourceStates(t.To), and
// returns domain.ErrStaleTransition otherwise. Implementations must make concurrent
// Transition calls for the same reference linearizable.
//
//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=TransactionStore --dir=. --output=./mocks --outpkg=mocks
type TransactionStore interface {
	// Create inserts a new transaction. Returns domain.ErrDuplicateReference if the reference exists.
	Create(ctx context.Context, tx *domain.Transaction) error
	// FindByReference returns domain.ErrTransactionNotFound when nothing matches.
	FindByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	// FindByPaymentID returns domain.ErrTransactionNotFound when nothing matches.
	FindByPaymentID(ctx context.Context, paymentID string) (*domain.Transaction, error)
	// Transition applies t and returns the updated transaction.
	Transition(ctx context.Context, t domain.Transition) (*domain.Transaction, error)
	// AttachPaymentID records paymentID on a transaction that has none, leaving its
	// state untouched. It returns domain.ErrStaleTransition if a different id is stored.
	AttachPaymentID(ctx context.Context, reference, paymentID string) (*domain.Transaction, error)
}
