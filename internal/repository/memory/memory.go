package memory

import (
	"context"
	"sync"
	"time"

	"github.com/ai0585413/bkash/internal/domain"
)

// TransactionRepository implements repository.TransactionStore in memory.
// Used when no DATABASE_URL is configured and in tests.
type TransactionRepository struct {
	mu          sync.RWMutex
	byReference map[string]*domain.Transaction
	byPaymentID map[string]string // payment id -> reference
}

// NewTransactionRepository creates an empty in-memory store.
func NewTransactionRepository() *TransactionRepository {
	return &TransactionRepository{
		byReference: make(map[string]*domain.Transaction),
		byPaymentID: make(map[string]string),
	}
}

// Create stores a copy of tx.
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byReference[tx.Reference]; exists {
		return domain.ErrDuplicateReference
	}
	if tx.GatewayPaymentID != "" {
		if _, exists := r.byPaymentID[tx.GatewayPaymentID]; exists {
			return domain.ErrDuplicateReference
		}
		r.byPaymentID[tx.GatewayPaymentID] = tx.Reference
	}

	stored := *tx
	r.byReference[tx.Reference] = &stored
	return nil
}

// FindByReference returns a copy of the stored transaction.
func (r *TransactionRepository) FindByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tx, ok := r.byReference[reference]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	out := *tx
	return &out, nil
}

// FindByPaymentID returns a copy of the transaction bound to paymentID.
func (r *TransactionRepository) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Transaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ref, ok := r.byPaymentID[paymentID]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	out := *r.byReference[ref]
	return &out, nil
}

// Transition applies a compare-and-set under the store lock.
func (r *TransactionRepository) Transition(ctx context.Context, t domain.Transition) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.byReference[t.Reference]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	if !domain.CanTransition(tx.State, t.To) {
		return nil, domain.ErrStaleTransition
	}

	if t.PaymentID != "" && t.PaymentID != tx.GatewayPaymentID {
		if owner, taken := r.byPaymentID[t.PaymentID]; taken && owner != tx.Reference {
			return nil, domain.ErrDuplicateReference
		}
		if tx.GatewayPaymentID != "" {
			delete(r.byPaymentID, tx.GatewayPaymentID)
		}
		tx.GatewayPaymentID = t.PaymentID
		r.byPaymentID[t.PaymentID] = tx.Reference
	}

	tx.State = t.To
	tx.ErrorMessage = ""
	if t.To == domain.StateError {
		tx.ErrorMessage = t.ErrorMessage
	}
	tx.UpdatedAt = time.Now().UTC()

	out := *tx
	return &out, nil
}

// AttachPaymentID sets the gateway payment id without changing state.
func (r *TransactionRepository) AttachPaymentID(ctx context.Context, reference, paymentID string) (*domain.Transaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	tx, ok := r.byReference[reference]
	if !ok {
		return nil, domain.ErrTransactionNotFound
	}
	switch tx.GatewayPaymentID {
	case paymentID:
	case "":
		if owner, taken := r.byPaymentID[paymentID]; taken && owner != reference {
			return nil, domain.ErrDuplicateReference
		}
		tx.GatewayPaymentID = paymentID
		tx.UpdatedAt = time.Now().UTC()
		r.byPaymentID[paymentID] = reference
	default:
		return nil, domain.ErrStaleTransition
	}

	out := *tx
	return &out, nil
}
