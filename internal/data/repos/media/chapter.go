package media

import (
	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/draftcut-backend/internal/domain"
	"github.com/yungbote/draftcut-backend/internal/platform/dbctx"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

type ChapterRepo interface {
	Create(dbc dbctx.Context, row *types.Chapter) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Chapter, error)
	// GetOwned returns nil when the chapter does not exist or belongs to someone else.
	GetOwned(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.Chapter, error)
	UpdateStatus(dbc dbctx.Context, id uuid.UUID, status types.ChapterStatus) error
}

type chapterRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChapterRepo(db *gorm.DB, baseLog *logger.Logger) ChapterRepo {
	return &chapterRepo{db: db, log: baseLog.With("repo", "ChapterRepo")}
}

func (r *chapterRepo) Create(dbc dbctx.Context, row *types.Chapter) error {
	if row == nil {
		return nil
	}
	if row.ID == uuid.Nil {
		row.ID = uuid.New()
	}
	return mapError("chapter.create", dbc.DB(r.db).Create(row).Error)
}

func (r *chapterRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Chapter, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var out []*types.Chapter
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, mapError("chapter.get", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *chapterRepo) GetOwned(dbc dbctx.Context, ownerID, id uuid.UUID) (*types.Chapter, error) {
	if id == uuid.Nil || ownerID == uuid.Nil {
		return nil, nil
	}
	var out []*types.Chapter
	if err := dbc.DB(r.db).
		Where("id = ? AND owner_user_id = ?", id, ownerID).
		Limit(1).
		Find(&out).Error; err != nil {
		return nil, mapError("chapter.get_owned", err)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *chapterRepo) UpdateStatus(dbc dbctx.Context, id uuid.UUID, status types.ChapterStatus) error {
	res := dbc.DB(r.db).Model(&types.Chapter{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return mapError("chapter.update_status", res.Error)
	}
	if res.RowsAffected == 0 {
		return mapError("chapter.update_status", gorm.ErrRecordNotFound)
	}
	return nil
}
