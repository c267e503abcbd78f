package repository

import (
	"context"
	"strings"
	"time"

	"github.com/preppilot/PrepPilot/app/models"
	"gorm.io/gorm"
)

// apiKeyRepository implements the ApiKeyRepository interface
type apiKeyRepository struct {
	db *gorm.DB
}

// NewApiKeyRepository creates a new API key repository instance
func NewApiKeyRepository(db *gorm.DB) ApiKeyRepository {
	return &apiKeyRepository{db: db}
}

// FindActive resolves an active key by prefix and hash. The prefix narrows
// the lookup; the hash is the actual credential comparison.
func (r *apiKeyRepository) FindActive(ctx context.Context, keyHash, keyPrefix string) (*models.ApiKey, error) {
	hash := strings.TrimSpace(keyHash)
	if hash == "" || keyPrefix == "" {
		return nil, gorm.ErrRecordNotFound
	}
	var key models.ApiKey
	err := r.db.WithContext(ctx).
		Where("key_prefix = ? AND key_hash = ? AND is_active = ?", keyPrefix, hash, true).
		First(&key).Error
	if err != nil {
		return nil, err
	}
	return &key, nil
}

// TouchLastUsed refreshes the last-used timestamp. Best-effort from the
// caller's perspective; a failure here must not fail the request.
func (r *apiKeyRepository) TouchLastUsed(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.ApiKey{}).
		Where("id = ?", id).
		Update("last_used_at", at).Error
}
