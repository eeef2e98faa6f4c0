package media

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const DefaultProviderConcurrency = 5

// ProviderCredential is a user's key for an image generation provider. Usage is
// counted once per generation batch, not per call.
type ProviderCredential struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	OwnerUserID    uuid.UUID      `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Provider       string         `gorm:"column:provider;size:64;not null" json:"provider"`
	APIKey         string         `gorm:"column:api_key;size:512;not null" json:"-"`
	BaseURL        string         `gorm:"column:base_url;size:255" json:"base_url,omitempty"`
	MaxConcurrency int            `gorm:"column:max_concurrency;not null;default:5" json:"max_concurrency"`
	UsageCount     int64          `gorm:"column:usage_count;not null;default:0" json:"usage_count"`
	LastUsedAt     *time.Time     `gorm:"column:last_used_at" json:"last_used_at,omitempty"`
	Metadata       datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (ProviderCredential) TableName() string { return "provider_credential" }

// Concurrency returns the configured fan-out limit, defaulting to DefaultProviderConcurrency.
func (c *ProviderCredential) Concurrency() int {
	if c == nil || c.MaxConcurrency <= 0 {
		return DefaultProviderConcurrency
	}
	return c.MaxConcurrency
}
