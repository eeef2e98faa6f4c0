package media

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/draftcut-backend/internal/domain"
	"github.com/yungbote/draftcut-backend/internal/platform/dbctx"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

type CredentialRepo interface {
	Create(dbc dbctx.Context, row *types.ProviderCredential) error
	GetOwned(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.ProviderCredential, error)
	// IncrementUsage bumps the usage counter by one and stamps last_used_at.
	IncrementUsage(dbc dbctx.Context, id uuid.UUID, at time.Time) error
}

type credentialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewCredentialRepo(db *gorm.DB, baseLog *logger.Logger) CredentialRepo {
	return &credentialRepo{db: db, log: baseLog.With("repo", "CredentialRepo")}
}

func (r *credentialRepo) Create(dbc dbctx.Context, row *types.ProviderCredential) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	if row.MaxConcurrency <= 0 {
		row.MaxConcurrency = types.DefaultProviderConcurrency
	}
	return mapError("credential.create", dbc.DB(r.db).Create(row).Error)
}

func (r *credentialRepo) GetOwned(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.ProviderCredential, error) {
	if id == uuid.Nil || ownerID == uuid.Nil {
		return nil, nil
	}
	var out []*types.ProviderCredential
	if err := dbc.DB(r.db).
		Where("id = ? AND owner_user_id = ?", id, ownerID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, mapError("credential.get_owned", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *credentialRepo) IncrementUsage(dbc dbctx.Context, id uuid.UUID, at time.Time) error {
	res := dbc.DB(r.db).
		Model(&types.ProviderCredential{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"usage_count":  gorm.Expr("usage_count + ?", 1),
			"last_used_at": at.UTC(),
		})
	if res.Error != nil {
		return mapError("credential.increment_usage", res.Error)
	}
	if res.RowsAffected == 0 {
		return mapError("credential.increment_usage", gorm.ErrRecordNotFound)
	}
	return nil
}
