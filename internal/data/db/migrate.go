package db

import (
	"fmt"

	types "github.com/yungbote/draftcut-backend/internal/domain"
	"gorm.io/gorm"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		// Source text hierarchy (populated by the splitter)
		&types.Chapter{},
		&types.Paragraph{},
		&types.Sentence{},

		// Provider keys
		&types.ProviderCredential{},
	)
}

// EnsureMediaIndexes adds the postgres-only partial indexes. It is a no-op on other dialects.
func EnsureMediaIndexes(db *gorm.DB) error {
	if db.Dialector.Name() != DriverPostgres {
		return nil
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_sentence_needs_regeneration
		ON sentence (chapter_id)
		WHERE needs_regeneration = true AND deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_sentence_needs_regeneration: %w", err)
	}
	if err := db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_provider_credential_owner_provider
		ON provider_credential (owner_user_id, provider)
		WHERE deleted_at IS NULL;
	`).Error; err != nil {
		return fmt.Errorf("create idx_provider_credential_owner_provider: %w", err)
	}
	return nil
}
