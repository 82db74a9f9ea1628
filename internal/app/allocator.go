/**
 * @description
 * Unique amount allocation. Every checkout is given an amount such as 100.37
 * that no other live pending payment holds, so an incoming bank SMS can be
 * matched back to exactly one subscriber without a gateway reference.
 *
 * @notes
 * - The cursor ("current base") is persisted per base price and stays within
 *   [base, base+maxBaseOffset], wrapping back to base.
 * - Probing is not atomic with reservation. The unique constraint on
 *   pending_payments.unique_amount is what rejects a lost race, and callers
 *   retry on store.ErrDuplicateAmount.
 */
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/HashGen/MonetizeGram/internal/domain"
)

const fractionsPerBase = 99

// AllocatorStore is the slice of the repository the allocator reads and writes.
type AllocatorStore interface {
	PendingAmountExists(ctx context.Context, amount int64) (bool, error)
	GetAllocatorCursor(ctx context.Context, base int64) (int64, bool, error)
	SetAllocatorCursor(ctx context.Context, base, current int64) error
}

// Allocator hands out amounts that are free among live pending payments.
type Allocator struct {
	store         AllocatorStore
	maxBaseOffset int64
	maxProbes     int
	logger        *slog.Logger
	metrics       *Metrics
}

// NewAllocator creates an allocator. Non-positive bounds fall back to 5 and 500.
func NewAllocator(store AllocatorStore, maxBaseOffset int64, maxProbes int, logger *slog.Logger, metrics *Metrics) *Allocator {
	if maxBaseOffset <= 0 {
		maxBaseOffset = 5
	}
	if maxProbes <= 0 {
		maxProbes = 500
	}
	return &Allocator{
		store:         store,
		maxBaseOffset: maxBaseOffset,
		maxProbes:     maxProbes,
		logger:        logger,
		metrics:       metrics,
	}
}

// Allocate returns a free amount in paise for a plan priced at pricePaise.
func (a *Allocator) Allocate(ctx context.Context, pricePaise int64) (int64, error) {
	if pricePaise < 100 {
		return 0, domain.ErrInvalidAmount
	}
	base := pricePaise / 100

	current, ok, err := a.store.GetAllocatorCursor(ctx, base)
	if err != nil {
		a.metrics.incAllocation("error")
		return 0, fmt.Errorf("read allocator cursor: %w", err)
	}
	if !ok || current < base || current > base+a.maxBaseOffset {
		current = base
	}

	probes := 0
	defer func() { a.metrics.addProbes(probes) }()

	for probes < a.maxProbes {
		for fraction := int64(1); fraction <= fractionsPerBase && probes < a.maxProbes; fraction++ {
			candidate := current*100 + fraction
			probes++

			taken, err := a.store.PendingAmountExists(ctx, candidate)
			if err != nil {
				a.metrics.incAllocation("error")
				return 0, fmt.Errorf("probe amount %s: %w", domain.FormatPaise(candidate), err)
			}
			if taken {
				continue
			}

			a.saveCursor(ctx, base, current)
			a.metrics.incAllocation("ok")
			return candidate, nil
		}

		current++
		if current > base+a.maxBaseOffset {
			current = base
		}
		a.saveCursor(ctx, base, current)
	}

	a.metrics.incAllocation("exhausted")
	a.logger.Error("unique amount allocation exhausted", "base", base, "probes", probes)
	return 0, ErrAllocationExhausted
}

// The cursor only steers where the next scan starts, so a failed write is logged
// and allocation carries on.
func (a *Allocator) saveCursor(ctx context.Context, base, current int64) {
	if err := a.store.SetAllocatorCursor(ctx, base, current); err != nil {
		a.logger.Warn("failed to persist allocator cursor", "base", base, "current", current, "error", err)
	}
}
