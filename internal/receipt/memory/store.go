// Package memory provides an in-memory receipt store for development and
// tests.
package memory

import (
	"context"
	"sync"

	"github.com/upsader/BillingAPI/internal/domain"
	"github.com/upsader/BillingAPI/internal/receipt"
)

// Store keeps committed receipts in a map keyed by order number. Writes go
// through per-caller batches; Commit enforces the unique-order-number
// constraint under the same lock that publishes the receipts, so two racing
// commits for the same order number cannot both succeed, and the loser is
// the one that sees the conflict.
type Store struct {
	mu        sync.RWMutex
	committed map[string]domain.Receipt
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		committed: make(map[string]domain.Receipt),
	}
}

// Exists implements receipt.Store.
func (s *Store) Exists(_ context.Context, orderNumber string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.committed[orderNumber]
	return ok, nil
}

// Begin implements receipt.Store.
func (s *Store) Begin() receipt.Batch {
	return &batch{store: s}
}

// GetByOrderNumber implements receipt.Store.
func (s *Store) GetByOrderNumber(_ context.Context, orderNumber string) (*domain.Receipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rcpt, ok := s.committed[orderNumber]
	if !ok {
		return nil, nil
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

// Commit implements receipt.Batch. On a uniqueness conflict nothing from
// the batch is published and the batch is dropped, mirroring a rolled-back
// transaction.
func (b *batch) Commit(_ context.Context) error {
	staged := b.staged
	b.staged = nil
	if len(staged) == 0 {
		return nil
	}

	b.store.mu.Lock()
	defer b.store.mu.Unlock()

	seen := make(map[string]bool, len(staged))
	for _, rcpt := range staged {
		if _, ok := b.store.committed[rcpt.OrderNumber]; ok || seen[rcpt.OrderNumber] {
			return domain.E(domain.KindStorage, "unique constraint violation: receipt for order %s already committed", rcpt.OrderNumber)
		}
		seen[rcpt.OrderNumber] = true
	}
	for _, rcpt := range staged {
		b.store.committed[rcpt.OrderNumber] = rcpt
	}
	return nil
}
