// Package chain is the boundary to the external wallet/contract
// collaborator. The core consumes it as an opaque remote service with
// network-grade failure modes; contract internals, signing and gas accounting
// live on the other side.
package chain

import (
	"context"

	"github.com/openpayroll/batchpay/internal/domain"
)

// Collaborator is the wallet/contract interface the batch executor drives.
type Collaborator interface {
	// SubmitBatch hands a batch of parallel recipient/amount sequences to
	// the wallet service and returns the transaction hash once the wallet
	// accepts the submission.
	SubmitBatch(ctx context.Context, recipients, amounts []string, dueDate int64) (string, error)

	// AwaitConfirmation blocks until the transaction reaches a terminal
	// state or ctx is cancelled.
	AwaitConfirmation(ctx context.Context, txHash string) (domain.TxStatus, error)

	// ReadDashboardStats reads the contract's aggregate counters.
	ReadDashboardStats(ctx context.Context) (*domain.DashboardStats, error)
}

// Confirmer resolves a transaction hash to a terminal status. It lets an
// on-chain receipt watcher replace the wallet service's confirmation
// endpoint.
type Confirmer interface {
	AwaitConfirmation(ctx context.Context, txHash string) (domain.TxStatus, error)
}

type composite struct {
	Collaborator
	confirmer Confirmer
}

// WithConfirmer returns a Collaborator that submits and reads stats through
// base but resolves confirmations through confirmer.
func WithConfirmer(base Collaborator, confirmer Confirmer) Collaborator {
	if confirmer == nil {
		return base
	}
	return &composite{Collaborator: base, confirmer: confirmer}
}

func (c *composite) AwaitConfirmation(ctx context.Context, txHash string) (domain.TxStatus, error) {
	return c.confirmer.AwaitConfirmation(ctx, txHash)
}
