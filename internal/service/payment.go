package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/ai0585413/bkash/internal/callback"
	"github.com/ai0585413/bkash/internal/domain"
	"github.com/ai0585413/bkash/internal/repository"
	"github.com/ai0585413/bkash/pkg/payment"
)

// UnknownReference is the status page key for callbacks that match no transaction.
const UnknownReference = "unknown"

// ErrPaymentNotCreated wraps gateway failures of the create flow.
var ErrPaymentNotCreated = errors.New("payment could not be created")

// LookupRetry bounds re-lookups of callbacks that arrive before their transaction
// is visible. Zero Attempts disables retrying.
type LookupRetry struct {
	Attempts int
	Interval time.Duration
}

// PaymentService drives the create-payment flow, callback handling and status reads.
type PaymentService struct {
	store    repository.TransactionStore
	engine   *ReconciliationEngine
	provider *payment.Provider
	gateway  payment.Gateway
	urls     *callback.URLBuilder
	retry    LookupRetry
	validate *validator.Validate
	logger   *zap.Logger
}

// NewPaymentService creates a new PaymentService.
func NewPaymentService(
	store repository.TransactionStore,
	engine *ReconciliationEngine,
	provider *payment.Provider,
	gateway payment.Gateway,
	urls *callback.URLBuilder,
	retry LookupRetry,
	logger *zap.Logger,
) *PaymentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PaymentService{
		store:    store,
		engine:   engine,
		provider: provider,
		gateway:  gateway,
		urls:     urls,
		retry:    retry,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger.Named("payment"),
	}
}

// CallbackURLs returns the four return URLs handed to the gateway.
func (s *PaymentService) CallbackURLs() callback.URLs {
	return s.urls.Build()
}

// CreatePayment records a draft transaction, opens a gateway session for it and
// advances it to pending once the gateway has assigned a payment id.
func (s *PaymentService) CreatePayment(ctx context.Context, req domain.CreatePaymentRequest) (*domain.CreatePaymentResponse, error) {
	if !s.provider.Configured() || s.gateway == nil {
		return nil, domain.ErrProviderNotConfigured
	}

	if err := s.validate.Struct(req); err != nil {
		return nil, domain.ErrValidation(fmt.Sprintf("invalid payment request: %v", err))
	}
	if !req.Amount.IsPositive() {
		return nil, domain.ErrValidation("amount must be positive")
	}
	if req.Reference == UnknownReference {
		return nil, domain.ErrValidation(fmt.Sprintf("reference %q is reserved", UnknownReference))
	}

	tx := domain.NewTransaction(req.Reference, req.PartnerID, s.provider.Code, req.Amount)
	if err := s.store.Create(ctx, tx); err != nil {
		if errors.Is(err, domain.ErrDuplicateReference) {
			return nil, domain.ErrConflict(fmt.Sprintf("transaction %s already exists", req.Reference))
		}
		return nil, domain.ErrInternal("failed to create transaction", err)
	}

	log := s.logger.With(zap.String("reference", tx.Reference))

	res, err := s.gateway.CreatePayment(ctx, payment.CreatePaymentRequest{
		Amount:         req.Amount,
		PayerReference: payerReference(req.PartnerID),
		CallbackURLs:   s.urls.Build(),
	})
	if err != nil {
		log.Error("gateway create failed", zap.Error(err))
		s.engine.Fail(ctx, tx, err.Error())
		return nil, fmt.Errorf("%w: %v", ErrPaymentNotCreated, err)
	}

	out := s.engine.MarkPending(ctx, tx, res.PaymentID)
	if out.Err != nil {
		return nil, domain.ErrInternal("failed to record gateway payment id", out.Err)
	}
	if out.State.IsTerminal() {
		log.Warn("transaction settled before the payment session was recorded",
			zap.String("payment_id", res.PaymentID),
			zap.String("state", string(out.State)),
		)
		return nil, fmt.Errorf("%w: transaction %s is already %s", ErrPaymentNotCreated, tx.Reference, out.State)
	}
	log.Info("payment session created",
		zap.String("payment_id", res.PaymentID),
		zap.String("state", string(out.State)),
	)

	return &domain.CreatePaymentResponse{
		RedirectURL:          res.RedirectURL,
		TransactionReference: tx.Reference,
	}, nil
}

// HandleCallback reconciles a normalized callback and returns the reference the
// payer should be redirected to. Callbacks matching no transaction are dropped
// and yield UnknownReference.
func (s *PaymentService) HandleCallback(ctx context.Context, ev callback.Event) string {
	log := s.logger.With(
		zap.String("payment_id", ev.PaymentID),
		zap.String("reference", ev.Reference),
		zap.String("status", string(ev.Status)),
	)
	log.Info("incoming gateway callback")

	tx, err := s.locate(ctx, ev)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			log.Warn("no transaction found for gateway callback")
		} else {
			log.Error("transaction lookup failed", zap.Error(err))
		}
		return UnknownReference
	}

	out := s.engine.Reconcile(ctx, tx, ev)
	log.Info("callback reconciled",
		zap.String("transaction", out.Reference),
		zap.String("from", string(out.From)),
		zap.String("state", string(out.State)),
		zap.Bool("applied", out.Applied),
	)
	return tx.Reference
}

// Status returns the transaction for reference, or nil when there is none.
func (s *PaymentService) Status(ctx context.Context, reference string) (*domain.Transaction, error) {
	if reference == "" || reference == UnknownReference {
		return nil, nil
	}
	tx, err := s.store.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, nil
		}
		return nil, domain.ErrInternal("failed to load transaction", err)
	}
	return tx, nil
}

// locate finds the callback's transaction by payment id, then by reference,
// re-trying a not-found result according to the lookup retry policy.
func (s *PaymentService) locate(ctx context.Context, ev callback.Event) (*domain.Transaction, error) {
	var policy backoff.BackOff = &backoff.StopBackOff{}
	if s.retry.Attempts > 0 {
		policy = backoff.WithMaxRetries(backoff.NewConstantBackOff(s.retry.Interval), uint64(s.retry.Attempts))
	}

	return backoff.RetryWithData(func() (*domain.Transaction, error) {
		tx, err := s.lookup(ctx, ev)
		if err != nil && !errors.Is(err, domain.ErrTransactionNotFound) {
			return nil, backoff.Permanent(err)
		}
		return tx, err
	}, backoff.WithContext(policy, ctx))
}

func (s *PaymentService) lookup(ctx context.Context, ev callback.Event) (*domain.Transaction, error) {
	if ev.PaymentID != "" {
		tx, err := s.store.FindByPaymentID(ctx, ev.PaymentID)
		if err == nil || !errors.Is(err, domain.ErrTransactionNotFound) {
			return tx, err
		}
	}
	if ev.Reference != "" {
		return s.store.FindByReference(ctx, ev.Reference)
	}
	return nil, domain.ErrTransactionNotFound
}

func payerReference(partnerID string) string {
	return "Customer_" + partnerID
}
