package repository

import (
	"context"

	"github.com/preppilot/PrepPilot/app/models"
	"gorm.io/gorm"
)

// webhookRepository implements the WebhookRepository interface
type webhookRepository struct {
	db *gorm.DB
}

// NewWebhookRepository creates a new webhook repository instance
func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

// GetActiveSubscriptionsByUser returns every active subscription owned by the
// user. Event-type filtering happens in the dispatcher, not in SQL, because
// the filter lives in a JSON column.
func (r *webhookRepository) GetActiveSubscriptionsByUser(ctx context.Context, userID string) ([]models.WebhookSubscription, error) {
	var subs []models.WebhookSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_active = ?", userID, true).
		Find(&subs).Error
	if err != nil {
		return nil, err
	}
	return subs, nil
}

// RecordDelivery appends one delivery outcome row.
func (r *webhookRepository) RecordDelivery(ctx context.Context, delivery *models.WebhookDelivery) error {
	return r.db.WithContext(ctx).Create(delivery).Error
}

// GetDeliveriesBySubscription returns the most recent delivery rows for a
// subscription.
func (r *webhookRepository) GetDeliveriesBySubscription(ctx context.Context, subscriptionID string, limit int) ([]models.WebhookDelivery, error) {
	if limit <= 0 {
		limit = 50
	}
	var deliveries []models.WebhookDelivery
	err := r.db.WithContext(ctx).
		Where("subscription_id = ?", subscriptionID).
		Order("created_at DESC").
		Limit(limit).
		Find(&deliveries).Error
	if err != nil {
		return nil, err
	}
	return deliveries, nil
}
