package chain

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"github.com/openpayroll/batchpay/internal/domain"
)

const defaultReceiptPollInterval = 12 * time.Second

// ReceiptWatcher resolves confirmations straight from an Ethereum JSON-RPC
// node by polling for the transaction receipt, instead of trusting the
// wallet service's confirmation endpoint.
type ReceiptWatcher struct {
	client       *ethclient.Client
	pollInterval time.Duration
	logger       *zap.Logger
}

func NewReceiptWatcher(rpcURL string, logger *zap.Logger) (*ReceiptWatcher, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect ethereum node: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &ReceiptWatcher{
		client:       client,
		pollInterval: defaultReceiptPollInterval,
		logger:       logger,
	}, nil
}

func (w *ReceiptWatcher) AwaitConfirmation(ctx context.Context, txHash string) (domain.TxStatus, error) {
	hash := common.HexToHash(txHash)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	for {
		receipt, err := w.client.TransactionReceipt(ctx, hash)
		switch {
		case err == nil:
			if receipt.Status == types.ReceiptStatusSuccessful {
				return domain.TxStatusConfirmed, nil
			}
			return domain.TxStatusFailed, &SubmissionError{
				Stage:   StageReverted,
				Message: fmt.Sprintf("transaction %s reverted in block %d", txHash, receipt.BlockNumber.Uint64()),
			}
		case errors.Is(err, ethereum.NotFound):
			// Not mined yet; keep polling.
		default:
			w.logger.Warn("receipt lookup failed, retrying",
				zap.String("txHash", txHash),
				zap.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-ticker.C:
		}
	}
}

func (w *ReceiptWatcher) Close() {
	w.client.Close()
}
