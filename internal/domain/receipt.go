package domain

import "time"

// WebhookReceipt records a processed inbound webhook delivery, keyed by the
// provider's idempotency key. It lets the webhook endpoint drop duplicate
// deliveries (provider retries, at-least-once delivery) without re-running
// side effects. Rows expire after a configurable TTL.
type WebhookReceipt struct {
	ReceiptID string    `gorm:"type:varchar(128);not null;primaryKey"`
	Sender    string    `gorm:"type:varchar(20);not null;index"`
	CreatedAt time.Time `gorm:"not null;autoCreateTime"`
	ExpiresAt time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (WebhookReceipt) TableName() string { return "webhook_receipts" }
