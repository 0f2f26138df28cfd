// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// WebhookReceipt model used to drop duplicate webhook deliveries.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/remindly/go-reminder-backend/internal/domain"
)

// GetReceipt returns a non-expired receipt or ErrNotFound.
func GetReceipt(ctx context.Context, db *gorm.DB, receiptID string, now time.Time) (*domain.WebhookReceipt, error) {
	if receiptID == "" {
		return nil, ErrNotFound
	}
	var rec domain.WebhookReceipt
	err := db.WithContext(ctx).
		Where("receipt_id = ? AND expires_at > ?", receiptID, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateReceipt inserts a receipt and returns ErrDuplicate when the
// delivery was already recorded.
func CreateReceipt(ctx context.Context, db *gorm.DB, receiptID, sender string, ttl time.Duration) (*domain.WebhookReceipt, error) {
	now := time.Now().UTC()
	rec := &domain.WebhookReceipt{
		ReceiptID: receiptID,
		Sender:    sender,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if isDuplicateErr(err) || errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}

// PurgeExpiredReceipts removes receipts past their TTL and reports how many
// rows were deleted.
func PurgeExpiredReceipts(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	res := db.WithContext(ctx).
		Where("expires_at <= ?", now).
		Delete(&domain.WebhookReceipt{})
	return res.RowsAffected, res.Error
}
