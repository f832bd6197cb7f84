package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"gabarito/internal/locking"
	"gabarito/internal/models"
	"gabarito/internal/repositories"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const defaultStoreTimeout = 10 * time.Second

// InventoryService consumes one unit of stock per proof, lots first-in first-out.
type InventoryService struct {
	repo    repositories.StockRepository
	locker  locking.Locker
	timeout time.Duration
	logger  *zap.Logger
	tracer  trace.Tracer
}

// NewInventoryService creates a new InventoryService. A nil locker serializes nothing.
func NewInventoryService(repo repositories.StockRepository, locker locking.Locker, timeout time.Duration, logger *zap.Logger, tracer trace.Tracer) *InventoryService {
	if locker == nil {
		locker = locking.NoopLocker{}
	}
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	logger, tracer = withDefaults(logger, tracer)
	return &InventoryService{repo: repo, locker: locker, timeout: timeout, logger: logger, tracer: tracer}
}

// StockLockKey is the lock guarding every stock record of a product.
func StockLockKey(productID string) string {
	return "stock:" + productID
}

// Decrement takes one unit from the oldest open lot of the product and from
// its parent. Missing records and empty stock are outcomes, not errors.
//
// All store calls share one timeout. The read-modify-write runs under the
// product lock; stores implementing AtomicStockDecrementer apply both writes
// in one conditional transaction instead.
func (s *InventoryService) Decrement(ctx context.Context, productID, userID string) (models.DecrementOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "inventory.Decrement", trace.WithAttributes(
		attribute.String("product.id", productID),
	))
	defer span.End()

	outcome, err := s.decrement(ctx, productID, userID)
	span.SetAttributes(attribute.String("decrement.outcome", outcome.String()))
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
	}
	return outcome, err
}

func (s *InventoryService) decrement(ctx context.Context, productID, userID string) (models.DecrementOutcome, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	organization, err := s.repo.OrganizationOf(ctx, userID)
	if err != nil {
		// Unscoped lookup is wrong when organizations share a product; logged so it can be traced.
		s.logger.Warn("Organization lookup failed, querying stock unscoped",
			zap.String("user_id", userID), zap.Error(err))
		organization = ""
	}

	unlock, err := s.locker.Lock(ctx, StockLockKey(productID))
	if err != nil {
		return models.DecrementFailed, fmt.Errorf("failed to lock stock of product %s: %w", productID, err)
	}
	defer unlock()

	parents, err := s.repo.FindParents(ctx, productID, organization)
	if err != nil {
		return models.DecrementFailed, fmt.Errorf("failed to query stock parents: %w", err)
	}
	if len(parents) == 0 {
		return models.DecrementNoStockRecord, nil
	}
	parent := parents[0]
	if parent.Available <= 0 {
		return models.DecrementOutOfStock, nil
	}

	lots, err := s.repo.FindOpenLots(ctx, parent.ID)
	if err != nil {
		return models.DecrementFailed, fmt.Errorf("failed to query stock lots: %w", err)
	}
	if len(lots) == 0 {
		s.logger.Warn("Stock parent has quantity but no open lot",
			zap.String("parent_id", parent.ID), zap.Int("available", parent.Available))
		return models.DecrementNoOpenLot, nil
	}
	SortLotsFIFO(lots)
	lot := lots[0]

	if atomic, ok := s.repo.(repositories.AtomicStockDecrementer); ok {
		if err := atomic.DecrementAtomically(ctx, parent.ID, lot.ID); err != nil {
			if errors.Is(err, repositories.ErrStockConflict) {
				return models.DecrementOutOfStock, nil
			}
			return models.DecrementFailed, fmt.Errorf("failed to decrement stock: %w", err)
		}
		return models.DecrementApplied, nil
	}

	if err := s.repo.DecrementLot(ctx, lot); err != nil {
		if errors.Is(err, repositories.ErrStockConflict) {
			return models.DecrementOutOfStock, nil
		}
		return models.DecrementFailed, fmt.Errorf("failed to decrement lot %s: %w", lot.ID, err)
	}
	if err := s.repo.DecrementParent(ctx, parent); err != nil {
		return models.DecrementApplied, fmt.Errorf("%w: lot %s, parent %s: %v", ErrPartialDecrement, lot.ID, parent.ID, err)
	}
	return models.DecrementApplied, nil
}

// DecrementOneUnit is Decrement for callers that must not fail: the outcome
// and any error are logged and dropped.
func (s *InventoryService) DecrementOneUnit(ctx context.Context, productID, userID string) {
	outcome, err := s.Decrement(ctx, productID, userID)
	fields := []zap.Field{
		zap.String("product_id", productID),
		zap.String("user_id", userID),
		zap.Stringer("outcome", outcome),
	}
	switch {
	case err != nil:
		s.logger.Error("Stock decrement failed", append(fields, zap.Error(err))...)
	case outcome == models.DecrementApplied:
		s.logger.Info("Stock decremented", fields...)
	default:
		s.logger.Info("Stock left unchanged", fields...)
	}
}

// SortLotsFIFO orders lots by sequence, then creation time, then id.
func SortLotsFIFO(lots []models.StockLot) {
	sort.SliceStable(lots, func(i, j int) bool {
		a, b := lots[i], lots[j]
		if a.Sequence != b.Sequence {
			return a.Sequence < b.Sequence
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
