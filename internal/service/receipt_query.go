package service

import (
	"context"
	"errors"
	"time"

	"github.com/mansoorceksport/clubdesk/internal/domain"
	"github.com/mansoorceksport/clubdesk/internal/repository"
	"go.uber.org/zap"
)

// ReceiptCache stores display projections keyed by payment id
type ReceiptCache interface {
	GetDisplayReceipt(ctx context.Context, paymentID int64) (*domain.DisplayReceipt, error)
	SetDisplayReceipt(ctx context.Context, receipt *domain.DisplayReceipt, ttl time.Duration) error
}

// ReceiptQueryService serves the display projection of settled payments
type ReceiptQueryService struct {
	receipts domain.ReceiptRepository
	cache    ReceiptCache
	ttl      time.Duration
	logger   *zap.Logger
}

// NewReceiptQueryService creates a new ReceiptQueryService. cache may be nil.
func NewReceiptQueryService(receipts domain.ReceiptRepository, cache ReceiptCache, ttl time.Duration, logger *zap.Logger) *ReceiptQueryService {
	return &ReceiptQueryService{
		receipts: receipts,
		cache:    cache,
		ttl:      ttl,
		logger:   logger.Named("receipt-query"),
	}
}

// GetByPaymentID projects the receipt issued for paymentID. Cache failures fall back to storage.
func (s *ReceiptQueryService) GetByPaymentID(ctx context.Context, paymentID int64) (*domain.DisplayReceipt, error) {
	if s.cache != nil {
		cached, err := s.cache.GetDisplayReceipt(ctx, paymentID)
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, repository.ErrCacheMiss) {
			s.logger.Warn("receipt cache read failed", zap.Int64("payment_id", paymentID), zap.Error(err))
		}
	}

	receipt, err := s.receipts.GetByPaymentID(ctx, paymentID)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, domain.ErrReceiptNotFound
		}
		return nil, domain.Persistence(err)
	}

	display := receipt.Display()

	if s.cache != nil && s.ttl > 0 {
		if err := s.cache.SetDisplayReceipt(ctx, display, s.ttl); err != nil {
			s.logger.Warn("receipt cache write failed", zap.Int64("payment_id", paymentID), zap.Error(err))
		}
	}
	return display, nil
}
