// Package receipt defines the persistence abstraction for billing receipts.
package receipt

import (
	"context"

	"github.com/upsader/BillingAPI/internal/domain"
)

// Store persists receipts keyed by order number. Writes go through a Batch
// so each caller commits only its own staged receipts. The durable layer
// must enforce order-number uniqueness atomically at commit time, since the
// caller's Exists check is advisory and concurrent callers can interleave
// between the check and the commit.
type Store interface {
	// Exists reports whether a receipt with the order number has been
	// durably committed.
	Exists(ctx context.Context, orderNumber string) (bool, error)

	// Begin opens a new unit of work private to the caller.
	Begin() Batch

	// GetByOrderNumber returns the matching receipt, or (nil, nil) when no
	// receipt exists for the order number.
	GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Receipt, error)
}

// Batch is one caller's unit of work. Receipts staged here are invisible to
// other callers until Commit; a uniqueness conflict at commit time is
// reported to this batch's owner and nothing from the batch is persisted.
type Batch interface {
	// Add stages a receipt for persistence by this batch's Commit.
	Add(ctx context.Context, rcpt domain.Receipt) error

	// Commit durably persists the staged receipts. Failures carry
	// domain.KindStorage, including unique-constraint violations.
	Commit(ctx context.Context) error
}
