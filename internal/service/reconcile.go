package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ai0585413/bkash/internal/callback"
	"github.com/ai0585413/bkash/internal/domain"
	"github.com/ai0585413/bkash/internal/repository"
	"github.com/ai0585413/bkash/pkg/payment"
)

// Outcome reports what a reconciliation step did to a transaction.
type Outcome struct {
	Reference string
	From      domain.TransactionState
	State     domain.TransactionState
	// Applied is true only when the store accepted a state change.
	Applied bool
	// Err is the store failure, if any. Gateway failures are never reported here:
	// they become the error state of the transaction.
	Err error
}

// ReconciliationEngine maps gateway outcomes onto the local transaction lifecycle.
// Every state change goes through apply, which enforces domain.CanTransition and
// relies on the store's compare-and-set for concurrent writers.
type ReconciliationEngine struct {
	store   repository.TransactionStore
	gateway payment.Gateway
	logger  *zap.Logger
}

// NewReconciliationEngine creates a new ReconciliationEngine.
func NewReconciliationEngine(store repository.TransactionStore, gateway payment.Gateway, logger *zap.Logger) *ReconciliationEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReconciliationEngine{
		store:   store,
		gateway: gateway,
		logger:  logger.Named("reconcile"),
	}
}

// Reconcile resolves the state a callback event implies for tx and applies it.
// A terminal transaction is left untouched and the gateway is not called.
func (e *ReconciliationEngine) Reconcile(ctx context.Context, tx *domain.Transaction, ev callback.Event) Outcome {
	log := e.logger.With(
		zap.String("reference", tx.Reference),
		zap.String("payment_id", ev.PaymentID),
		zap.String("callback_status", string(ev.Status)),
	)

	if tx.State.IsTerminal() {
		log.Info("callback for terminal transaction ignored", zap.String("state", string(tx.State)))
		return Outcome{Reference: tx.Reference, From: tx.State, State: tx.State}
	}

	var (
		target domain.TransactionState
		msg    string
	)
	if ev.HasStatus() {
		var ok bool
		target, msg, ok = resolveCallbackStatus(ev.Status)
		if !ok {
			log.Warn("unrecognized callback status ignored")
			return Outcome{Reference: tx.Reference, From: tx.State, State: tx.State}
		}
	} else {
		paymentID := ev.PaymentID
		if paymentID == "" {
			paymentID = tx.GatewayPaymentID
		}
		log.Info("executing payment", zap.String("execute_payment_id", paymentID))

		var (
			res *payment.ExecutePaymentResult
			err error
		)
		if e.gateway == nil {
			err = domain.ErrProviderNotConfigured
		} else {
			res, err = e.gateway.ExecutePayment(ctx, paymentID)
		}
		target, msg, err = resolveExecute(res, err)
		if err != nil {
			log.Error("execute did not complete the payment", zap.Error(err))
		} else {
			log.Info("execute response", zap.String("transaction_status", string(res.TransactionStatus)))
		}
	}

	return e.apply(ctx, tx, domain.Transition{Reference: tx.Reference, To: target, ErrorMessage: msg})
}

// MarkPending attaches the gateway payment id and advances a draft to pending.
// When a callback already settled the transaction, the id is still recorded so
// later callbacks carrying only the payment id can find it.
func (e *ReconciliationEngine) MarkPending(ctx context.Context, tx *domain.Transaction, paymentID string) Outcome {
	out := e.apply(ctx, tx, domain.Transition{Reference: tx.Reference, To: domain.StatePending, PaymentID: paymentID})
	if out.Applied || out.Err != nil || paymentID == "" || tx.GatewayPaymentID != "" {
		return out
	}

	updated, err := e.store.AttachPaymentID(ctx, tx.Reference, paymentID)
	if err != nil {
		e.logger.Error("failed to attach payment id",
			zap.String("reference", tx.Reference),
			zap.String("payment_id", paymentID),
			zap.Error(err),
		)
		out.Err = err
		return out
	}
	*tx = *updated
	out.State = updated.State
	return out
}

// Fail moves a non-terminal transaction to the error state.
func (e *ReconciliationEngine) Fail(ctx context.Context, tx *domain.Transaction, msg string) Outcome {
	return e.apply(ctx, tx, domain.Transition{Reference: tx.Reference, To: domain.StateError, ErrorMessage: msg})
}

// apply is the single place a state change is written.
func (e *ReconciliationEngine) apply(ctx context.Context, tx *domain.Transaction, t domain.Transition) Outcome {
	out := Outcome{Reference: tx.Reference, From: tx.State, State: tx.State}
	log := e.logger.With(
		zap.String("reference", tx.Reference),
		zap.String("from", string(tx.State)),
		zap.String("to", string(t.To)),
	)

	if tx.State == t.To && t.PaymentID == "" {
		log.Debug("state unchanged")
		return out
	}
	if !domain.CanTransition(tx.State, t.To) {
		log.Warn("state regression rejected")
		return out
	}

	updated, err := e.store.Transition(ctx, t)
	switch {
	case err == nil:
		*tx = *updated
		out.State = updated.State
		out.Applied = true
		log.Info("transaction updated", zap.String("error_message", updated.ErrorMessage))
	case errors.Is(err, domain.ErrStaleTransition):
		// another writer got there first
		if current, findErr := e.store.FindByReference(ctx, tx.Reference); findErr == nil {
			*tx = *current
			out.State = current.State
		}
		log.Warn("concurrent update won, transition dropped", zap.String("stored", string(out.State)))
	default:
		out.Err = err
		log.Error("failed to update transaction", zap.Error(err))
	}
	return out
}

// resolveCallbackStatus reports false for values outside success, failure and cancel.
func resolveCallbackStatus(s callback.Status) (domain.TransactionState, string, bool) {
	switch s {
	case callback.StatusSuccess:
		return domain.StateDone, "", true
	case callback.StatusFailure:
		return domain.StateError, "Payment failed", true
	case callback.StatusCancel:
		return domain.StateCanceled, "", true
	}
	return "", "", false
}

// resolveExecute maps an execute result or failure to a target state. The
// returned error is the diagnostic for anything that did not complete cleanly.
func resolveExecute(res *payment.ExecutePaymentResult, err error) (domain.TransactionState, string, error) {
	if err != nil {
		var unavailable *payment.UnavailableError
		if errors.As(err, &unavailable) && unavailable.Timeout() {
			return domain.StateError, "bKash request timed out. Please try again.", err
		}
		return domain.StateError, fmt.Sprintf("bKash request failed: %v", err), err
	}

	switch res.TransactionStatus {
	case payment.TxStatusCompleted:
		return domain.StateDone, "", nil
	case payment.TxStatusInitiated, payment.TxStatusProcessing:
		return domain.StatePending, "", nil
	case payment.TxStatusCancelled:
		return domain.StateCanceled, "", nil
	}
	return domain.StateError,
		fmt.Sprintf("bKash error: %s", string(res.Raw)),
		fmt.Errorf("%w: %q", payment.ErrUnexpectedStatus, string(res.TransactionStatus))
}
