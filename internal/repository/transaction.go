package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ai0585413/bkash/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

const uniqueViolation = "23505"

const transactionColumns = `
	id, reference, COALESCE(gateway_payment_id, ''), amount::text, partner_id, provider_code,
	state, COALESCE(error_message, ''), created_at, updated_at
`

// TransactionRepository handles database operations for payment transactions.
type TransactionRepository struct {
	db *pgxpool.Pool
}

// NewTransactionRepository creates a new TransactionRepository.
func NewTransactionRepository(db *pgxpool.Pool) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a new transaction.
func (r *TransactionRepository) Create(ctx context.Context, tx *domain.Transaction) error {
	query := `
		INSERT INTO payment_transactions
			(id, reference, gateway_payment_id, amount, partner_id, provider_code, state, error_message, created_at, updated_at)
		VALUES ($1, $2, NULLIF($3, ''), $4::numeric, $5, $6, $7, NULLIF($8, ''), $9, $10)
	`
	_, err := r.db.Exec(ctx, query,
		tx.ID, tx.Reference, tx.GatewayPaymentID, tx.Amount.String(), tx.PartnerID, tx.ProviderCode,
		string(tx.State), tx.ErrorMessage, tx.CreatedAt, tx.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return domain.ErrDuplicateReference
		}
		return fmt.Errorf("failed to create transaction: %w", err)
	}
	return nil
}

// FindByReference returns a transaction by its merchant reference.
func (r *TransactionRepository) FindByReference(ctx context.Context, reference string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE reference = $1`
	return r.findOne(ctx, query, reference)
}

// FindByPaymentID returns a transaction by its gateway payment id.
func (r *TransactionRepository) FindByPaymentID(ctx context.Context, paymentID string) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM payment_transactions WHERE gateway_payment_id = $1`
	return r.findOne(ctx, query, paymentID)
}

// Transition atomically moves a transaction to t.To if its current state allows it.
func (r *TransactionRepository) Transition(ctx context.Context, t domain.Transition) (*domain.Transaction, error) {
	from := domain.SourceStates(t.To)
	states := make([]string, len(from))
	for i, s := range from {
		states[i] = string(s)
	}

	errMsg := ""
	if t.To == domain.StateError {
		errMsg = t.ErrorMessage
	}

	query := `
		UPDATE payment_transactions
		SET state = $2,
			error_message = NULLIF($3, ''),
			gateway_payment_id = COALESCE(NULLIF($4, ''), gateway_payment_id),
			updated_at = NOW()
		WHERE reference = $1 AND state = ANY($5)
		RETURNING ` + transactionColumns

	tx, err := r.findOne(ctx, query, t.Reference, string(t.To), errMsg, t.PaymentID, states)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("payment id %s is attached to another transaction: %w", t.PaymentID, domain.ErrDuplicateReference)
		}
		return nil, fmt.Errorf("failed to update transaction state: %w", err)
	}

	// No row updated: either the reference is unknown or the state moved on.
	if _, findErr := r.FindByReference(ctx, t.Reference); findErr != nil {
		return nil, findErr
	}
	return nil, domain.ErrStaleTransition
}

// AttachPaymentID stores paymentID on a transaction that has none, whatever its state.
func (r *TransactionRepository) AttachPaymentID(ctx context.Context, reference, paymentID string) (*domain.Transaction, error) {
	query := `
		UPDATE payment_transactions
		SET gateway_payment_id = $2,
			updated_at = NOW()
		WHERE reference = $1 AND (gateway_payment_id IS NULL OR gateway_payment_id = $2)
		RETURNING ` + transactionColumns

	tx, err := r.findOne(ctx, query, reference, paymentID)
	if err == nil {
		return tx, nil
	}
	if !errors.Is(err, domain.ErrTransactionNotFound) {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return nil, fmt.Errorf("payment id %s is attached to another transaction: %w", paymentID, domain.ErrDuplicateReference)
		}
		return nil, fmt.Errorf("failed to attach payment id: %w", err)
	}

	if _, findErr := r.FindByReference(ctx, reference); findErr != nil {
		return nil, findErr
	}
	return nil, domain.ErrStaleTransition
}

func (r *TransactionRepository) findOne(ctx context.Context, query string, args ...any) (*domain.Transaction, error) {
	row := r.db.QueryRow(ctx, query, args...)

	var (
		tx     domain.Transaction
		amount string
		state  string
	)
	err := row.Scan(
		&tx.ID, &tx.Reference, &tx.GatewayPaymentID, &amount, &tx.PartnerID, &tx.ProviderCode,
		&state, &tx.ErrorMessage, &tx.CreatedAt, &tx.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTransactionNotFound
		}
		return nil, err
	}

	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("failed to parse amount %q: %w", amount, err)
	}
	tx.State = domain.TransactionState(state)
	return &tx, nil
}
