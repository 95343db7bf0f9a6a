// Package postgres provides the durable receipt store. A unique index on
// order_number is the storage-level backstop for the billing service's
// advisory duplicate check.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/upsader/BillingAPI/internal/domain"
	"github.com/upsader/BillingAPI/internal/receipt"
)

const schema = `
CREATE TABLE IF NOT EXISTS receipts (
	id              UUID PRIMARY KEY,
	order_number    TEXT NOT NULL,
	user_id         TEXT NOT NULL,
	amount          NUMERIC(18,2) NOT NULL,
	payment_gateway TEXT NOT NULL,
	description     TEXT NOT NULL DEFAULT '',
	processed_date  TIMESTAMPTZ NOT NULL,
	transaction_id  TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS receipts_order_number_idx ON receipts (order_number);
`

// uniqueViolation is the Postgres error code for a unique constraint breach.
const uniqueViolation = "23505"

// Store persists receipts in Postgres. Each caller stages receipts in its
// own batch; Commit flushes that batch inside one transaction, so the
// unique index reports a conflict to the caller whose receipt lost the race.
type Store struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// New creates a Store and applies the receipts schema.
func New(ctx context.Context, pool *pgxpool.Pool, logger *zap.Logger) (*Store, error) {
	if pool == nil {
		panic("pgx pool cannot be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, domain.Wrap(domain.KindStorage, err, "failed to apply receipts schema")
	}
	return &Store{pool: pool, logger: logger}, nil
}

// Exists implements receipt.Store.
func (s *Store) Exists(ctx context.Context, orderNumber string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM receipts WHERE order_number = $1)`, orderNumber,
	).Scan(&exists)
	if err != nil {
		return false, domain.Wrap(domain.KindStorage, err, "failed to check receipt existence for order %s", orderNumber)
	}
	return exists, nil
}

// Begin implements receipt.Store.
func (s *Store) Begin() receipt.Batch {
	return &batch{store: s}
}

// GetByOrderNumber implements receipt.Store.
func (s *Store) GetByOrderNumber(ctx context.Context, orderNumber string) (*domain.Receipt, error) {
	var (
		rcpt   domain.Receipt
		amount string
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, order_number, user_id, amount::text, payment_gateway, description, processed_date, transaction_id
		FROM receipts WHERE order_number = $1`, orderNumber,
	).Scan(&rcpt.ID, &rcpt.OrderNumber, &rcpt.UserID, &amount,
		&rcpt.PaymentGateway, &rcpt.Description, &rcpt.ProcessedDate, &rcpt.TransactionID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, domain.Wrap(domain.KindStorage, err, "failed to load receipt for order %s", orderNumber)
	}

	rcpt.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, domain.Wrap(domain.KindStorage, err, "invalid stored amount for order %s", orderNumber)
	}
	return &rcpt, nil
}

// batch is one caller's staged receipts. It is not safe for concurrent use;
// each caller owns its own batch.
type batch struct {
	store  *Store
	staged []domain.Receipt
}

// Add implements receipt.Batch.
func (b *batch) Add(_ context.Context, rcpt domain.Receipt) error {
	b.staged = append(b.staged, rcpt)
	return nil
}

// Commit implements receipt.Batch. The staged receipts are written in a
// single transaction; a unique-index conflict rolls the whole batch back.
func (b *batch) Commit(ctx context.Context) error {
	staged := b.staged
	b.staged = nil
	if len(staged) == 0 {
		return nil
	}

	tx, err := b.store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return domain.Wrap(domain.KindStorage, err, "failed to begin receipt transaction")
	}
	defer tx.Rollback(ctx)

	for _, rcpt := range staged {
		_, err := tx.Exec(ctx, `
			INSERT INTO receipts
				(id, order_number, user_id, amount, payment_gateway, description, processed_date, transaction_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			rcpt.ID, rcpt.OrderNumber, rcpt.UserID, rcpt.Amount.String(),
			rcpt.PaymentGateway, rcpt.Description, rcpt.ProcessedDate, rcpt.TransactionID,
		)
		if err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
				b.store.logger.Warn("duplicate order number rejected by unique index",
					zap.String("order_number", rcpt.OrderNumber))
				return domain.Wrap(domain.KindStorage, err, "unique constraint violation: receipt for order %s already committed", rcpt.OrderNumber)
			}
			return domain.Wrap(domain.KindStorage, err, "failed to insert receipt for order %s", rcpt.OrderNumber)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Wrap(domain.KindStorage, err, "failed to commit receipt transaction")
	}
	return nil
}
