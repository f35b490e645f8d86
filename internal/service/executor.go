package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openpayroll/batchpay/internal/chain"
	"github.com/openpayroll/batchpay/internal/domain"
	"github.com/openpayroll/batchpay/internal/notifier"
	"github.com/openpayroll/batchpay/internal/observability"
	"github.com/openpayroll/batchpay/internal/store"
)

// BatchService drives a staged row set through submission and confirmation.
// Only one batch may be in flight at a time; a second execute request while
// one is pending is refused outright rather than queued, so the same payees
// cannot be double-submitted.
type BatchService struct {
	payments     *store.PaymentStore
	history      *store.HistoryStore
	collaborator chain.Collaborator
	notifier     notifier.Notifier
	metrics      *observability.Metrics
	logger       *zap.Logger
	now          func() time.Time

	inFlight atomic.Bool
}

func NewBatchService(
	payments *store.PaymentStore,
	history *store.HistoryStore,
	collaborator chain.Collaborator,
	n notifier.Notifier,
	metrics *observability.Metrics,
	logger *zap.Logger,
) (*BatchService, error) {
	if payments == nil || history == nil || collaborator == nil {
		return nil, fmt.Errorf("payments, history and collaborator are required")
	}
	if n == nil {
		n = notifier.Nop{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &BatchService{
		payments:     payments,
		history:      history,
		collaborator: collaborator,
		notifier:     n,
		metrics:      metrics,
		logger:       logger,
		now:          time.Now,
	}, nil
}

// Estimate recomputes the batch estimate from the currently staged valid rows
// and installs it as the presentable one.
func (s *BatchService) Estimate(ctx context.Context) (*domain.BatchEstimate, error) {
	valid := domain.FilterValid(s.payments.Rows(ctx))
	if len(valid) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	estimate := EstimateBatch(valid)
	s.payments.SetEstimate(estimate)
	return estimate, nil
}

// Execute submits every staged row that passes validation as one batch.
func (s *BatchService) Execute(ctx context.Context) (*domain.BatchExecuteResult, error) {
	return s.executeRows(ctx, domain.FilterValid(s.payments.Rows(ctx)))
}

// ExecuteSingle submits exactly one staged row as a batch of one.
func (s *BatchService) ExecuteSingle(ctx context.Context, rowID string) (*domain.BatchExecuteResult, error) {
	for _, staged := range s.payments.Rows(ctx) {
		if staged.ID != rowID {
			continue
		}
		if validation := domain.ValidateRow(staged); !validation.Valid {
			return nil, fmt.Errorf("%w: row %s fails validation", domain.ErrValidation, rowID)
		}
		return s.executeRows(ctx, []domain.PaymentRow{staged})
	}
	return nil, domain.ErrNotFound
}

func (s *BatchService) executeRows(ctx context.Context, rows []domain.PaymentRow) (*domain.BatchExecuteResult, error) {
	if len(rows) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	if !s.inFlight.CompareAndSwap(false, true) {
		return nil, domain.ErrBatchInFlight
	}
	defer s.inFlight.Store(false)

	logger := observability.WithContextLogger(s.logger, ctx)
	estimate := EstimateBatch(rows)
	batchID := uuid.NewString()
	start := s.now()

	txHash, err := s.collaborator.SubmitBatch(ctx, estimate.Recipients, estimate.Amounts, start.Unix())
	if err != nil {
		// No transaction hash exists yet: staged rows stay untouched and
		// nothing is recorded in history.
		s.metrics.IncBatchFailed(string(chain.StageRejected))
		logger.Warn("batch submission rejected",
			zap.String("batchId", batchID),
			zap.Int("rows", len(rows)),
			zap.Error(err),
		)
		s.notifier.Notify(ctx, notifier.Event{
			Level:   notifier.LevelError,
			Message: "Envio do lote recusado: " + collaboratorMessage(err),
		})
		return nil, err
	}

	s.metrics.IncBatchSubmitted()
	logger.Info("batch submitted, awaiting confirmation",
		zap.String("batchId", batchID),
		zap.String("txHash", txHash),
		zap.Int("rows", len(rows)),
	)
	s.notifier.Notify(ctx, notifier.Event{
		Level:   notifier.LevelInfo,
		Message: fmt.Sprintf("Lote enviado, aguardando confirmação (%s).", txHash),
	})

	status, confirmErr := s.collaborator.AwaitConfirmation(ctx, txHash)
	switch status {
	case domain.TxStatusConfirmed:
		s.history.Record(ctx, domain.NewHistoryDetail(batchID, txHash, domain.TxStatusConfirmed, rows, s.now()))
		ids := make([]string, len(rows))
		for i, staged := range rows {
			ids[i] = staged.ID
		}
		s.payments.RemoveMany(ctx, ids)
		s.payments.ClearEstimate()

		s.metrics.IncBatchConfirmed()
		s.metrics.ObserveBatchSubmitDuration(s.now().Sub(start))
		s.notifier.Notify(ctx, notifier.Event{
			Level:   notifier.LevelSuccess,
			Message: fmt.Sprintf("Lote confirmado com %d pagamento(s).", len(rows)),
		})
		return &domain.BatchExecuteResult{BatchID: batchID, TxHash: txHash, Status: domain.TxStatusConfirmed}, nil

	case domain.TxStatusFailed:
		// Mined but reverted: the attempt stays auditable in history while
		// the staged rows remain editable for a retry.
		s.history.Record(ctx, domain.NewHistoryDetail(batchID, txHash, domain.TxStatusFailed, rows, s.now()))
		s.metrics.IncBatchFailed(string(chain.StageReverted))
		s.notifier.Notify(ctx, notifier.Event{
			Level:   notifier.LevelError,
			Message: "Transação do lote falhou na rede.",
		})
		return &domain.BatchExecuteResult{BatchID: batchID, TxHash: txHash, Status: domain.TxStatusFailed}, confirmErr

	default:
		// No terminal outcome observed (cancellation or transport failure):
		// abandon without touching rows or history.
		logger.Warn("confirmation wait abandoned",
			zap.String("batchId", batchID),
			zap.String("txHash", txHash),
			zap.Error(confirmErr),
		)
		return nil, confirmErr
	}
}

// DashboardStats proxies the collaborator's aggregate counters for the
// dashboard header.
func (s *BatchService) DashboardStats(ctx context.Context) (*domain.DashboardStats, error) {
	return s.collaborator.ReadDashboardStats(ctx)
}

func collaboratorMessage(err error) string {
	var submissionErr *chain.SubmissionError
	if errors.As(err, &submissionErr) && submissionErr.Message != "" {
		return submissionErr.Message
	}
	return err.Error()
}
