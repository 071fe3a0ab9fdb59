package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vanityforge/vanity-gateway/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// Migrate creates or updates the ledger tables
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&schema.PaymentRecord{}, &schema.VanityOrder{}); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to defaults: 20 open, 5 idle,
// 5m lifetime, 10m idle time.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// InsertPaymentIfAbsent records a payment and its order in a single
// transaction, keyed by the transaction signature
func (s *pgStore) InsertPaymentIfAbsent(ctx context.Context, input CreatePaymentInput) (bool, error) {
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payment := schema.PaymentRecord{
			Signature:      input.Signature,
			Sender:         input.Sender,
			Receiver:       input.Receiver,
			AmountLamports: input.AmountLamports,
			AmountSOL:      input.AmountSOL,
			Slot:           input.Slot,
			Raw:            input.Raw,
			ObservedAt:     input.ObservedAt,
		}

		// ON CONFLICT DO NOTHING on the signature unique index makes
		// notification redelivery safe; the first writer wins.
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "signature"}},
			DoNothing: true,
		}).Clauses(clause.Returning{Columns: []clause.Column{}}).
			Create(&payment).Error; err != nil {
			return fmt.Errorf("failed to create payment record: %w", err)
		}

		// ID stays zero when the signature was already recorded. The order
		// was created in the same transaction back then, so there is nothing
		// left to do.
		if payment.ID == 0 {
			return nil
		}

		order := schema.VanityOrder{
			OrderID:        input.Signature,
			Payer:          input.Sender,
			AmountLamports: input.AmountLamports,
			AmountSOL:      input.AmountSOL,
			IsPaid:         input.IsPaid,
		}

		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "order_id"}},
			DoNothing: true,
		}).Clauses(clause.Returning{Columns: []clause.Column{}}).
			Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create vanity order: %w", err)
		}

		created = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return created, nil
}

// GetOrderByID retrieves an order by its ID (the transaction signature)
func (s *pgStore) GetOrderByID(ctx context.Context, orderID string) (*schema.VanityOrder, error) {
	var order schema.VanityOrder
	err := s.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	return &order, nil
}

// GetClaimableOrderByPayer retrieves the most recent paid and unused order
// for a payer
func (s *pgStore) GetClaimableOrderByPayer(ctx context.Context, payer string) (*schema.VanityOrder, error) {
	var order schema.VanityOrder
	err := s.db.WithContext(ctx).
		Where("payer = ? AND is_paid = ? AND is_used = ?", payer, true, false).
		Order("created_at DESC").
		Order("id DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get claimable order: %w", err)
	}
	return &order, nil
}

// GetLatestOrderByPayer retrieves the most recent order for a payer
// regardless of state
func (s *pgStore) GetLatestOrderByPayer(ctx context.Context, payer string) (*schema.VanityOrder, error) {
	var order schema.VanityOrder
	err := s.db.WithContext(ctx).
		Where("payer = ?", payer).
		Order("created_at DESC").
		Order("id DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get latest order: %w", err)
	}
	return &order, nil
}

// TryMarkUsed atomically transitions an order from paid-and-unused to used.
// The guard in the WHERE clause is what serializes concurrent claims for the
// same order: at most one of them sees a row affected.
func (s *pgStore) TryMarkUsed(ctx context.Context, orderID string, word string) (bool, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&schema.VanityOrder{}).
		Where("order_id = ? AND is_paid = ? AND is_used = ?", orderID, true, false).
		Updates(map[string]interface{}{
			"is_used":    true,
			"word":       word,
			"used_at":    now,
			"updated_at": now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark order used: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

// MarkGenerated records the worker's completion confirmation
func (s *pgStore) MarkGenerated(ctx context.Context, orderID string) (bool, error) {
	now := time.Now()
	result := s.db.WithContext(ctx).
		Model(&schema.VanityOrder{}).
		Where("order_id = ? AND is_used = ? AND is_generated = ?", orderID, true, false).
		Updates(map[string]interface{}{
			"is_generated": true,
			"generated_at": now,
			"updated_at":   now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark order generated: %w", result.Error)
	}

	return result.RowsAffected == 1, nil
}

// ListPayments retrieves payment records ordered by observation time
// descending, with the total count for pagination
func (s *pgStore) ListPayments(ctx context.Context, limit int, offset uint64) ([]schema.PaymentRecord, uint64, error) {
	query := s.db.WithContext(ctx).Model(&schema.PaymentRecord{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count payments: %w", err)
	}

	var payments []schema.PaymentRecord
	err := query.
		Order("observed_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(int(offset)). //nolint:gosec,G115
		Find(&payments).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list payments: %w", err)
	}

	return payments, uint64(total), nil //nolint:gosec,G115
}
