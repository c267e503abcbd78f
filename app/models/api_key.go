package models

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base32"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	// APIKeyPrefix is the fixed application prefix every raw key starts with.
	APIKeyPrefix = "jee_"
	// APIKeyPrefixLen is how much of the raw key is persisted for lookup.
	APIKeyPrefixLen = 12
)

var apiKeyEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// ApiKey authenticates third-party automation clients. Only the SHA-256 hash
// and a short prefix of the raw secret are stored; the raw value is shown to
// the user once at creation and is unrecoverable afterwards.
type ApiKey struct {
	ID         string     `gorm:"type:char(36);primaryKey" json:"id"`
	UserID     string     `gorm:"type:char(36);index;not null" json:"user_id"`
	Name       string     `gorm:"type:varchar(150);not null" json:"name"`
	KeyHash    string     `gorm:"type:char(64);not null;index:ix_api_keys_lookup,priority:2" json:"-"`
	KeyPrefix  string     `gorm:"type:varchar(20);not null;index:ix_api_keys_lookup,priority:1" json:"key_prefix"`
	IsReadOnly bool       `gorm:"default:true" json:"is_read_only"`
	IsActive   bool       `gorm:"default:true;index" json:"is_active"`
	ExpiresAt  *time.Time `json:"expires_at"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (k *ApiKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}

// IsExpired reports whether the key has an expiry in the past. A nil
// expires_at means the key never expires.
func (k *ApiKey) IsExpired(now time.Time) bool {
	return k.ExpiresAt != nil && k.ExpiresAt.Before(now)
}

// HashAPIKey returns the SHA-256 hash for the provided raw API key.
func HashAPIKey(raw string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(raw)))
	return hex.EncodeToString(sum[:])
}

// GenerateAPIKeyMaterial creates a fresh raw key plus the prefix and hash to
// persist. Callers show the raw key to the user exactly once.
func GenerateAPIKeyMaterial() (rawKey, prefix, hash string, err error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", "", "", err
	}
	encoded := strings.ToLower(apiKeyEncoding.EncodeToString(b))
	rawKey = APIKeyPrefix + encoded
	if len(rawKey) < APIKeyPrefixLen {
		return "", "", "", fmt.Errorf("api key generation failed: key too short")
	}
	return rawKey, rawKey[:APIKeyPrefixLen], HashAPIKey(rawKey), nil
}
