package media

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/draftcut-backend/internal/domain"
	domain "github.com/yungbote/draftcut-backend/internal/domain/media"
	"github.com/yungbote/draftcut-backend/internal/platform/dbctx"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

// AssetUpdate is one ingested asset ready to be attached to a sentence.
type AssetUpdate struct {
	Kind       types.AssetKind
	URL        string
	StorageKey string
	SourceURL  string
	// DurationSeconds is only meaningful for audio.
	DurationSeconds *float64
}

// IngestionRecord is stored per asset kind in sentence.ingestion_meta.
type IngestionRecord struct {
	StorageKey string `json:"storage_key"`
	SourceURL  string `json:"source_url,omitempty"`
}

type SentenceRepo interface {
	Create(dbc dbctx.Context, rows []*types.Sentence) error
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Sentence, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Sentence, error)
	// ListByChapter returns a chapter's sentences in reading order: paragraph order, then sentence order.
	ListByChapter(dbc dbctx.Context, chapterID uuid.UUID) ([]*types.Sentence, error)

	// ApplyAssetUpdate attaches an ingested asset. It is idempotent: reapplying an update whose
	// storage key is already recorded returns applied=false and writes nothing.
	ApplyAssetUpdate(dbc dbctx.Context, id uuid.UUID, upd AssetUpdate) (row *types.Sentence, applied bool, err error)
	SaveCache(dbc dbctx.Context, row *types.Sentence) error
	UpdateAssets(dbc dbctx.Context, row *types.Sentence) error
}

type sentenceRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewSentenceRepo(db *gorm.DB, baseLog *logger.Logger) SentenceRepo {
	return &sentenceRepo{db: db, log: baseLog.With("repo", "SentenceRepo")}
}

func (r *sentenceRepo) Create(dbc dbctx.Context, rows []*types.Sentence) error {
	if len(rows) == 0 {
		return nil
	}
	for _, s := range rows {
		if s.ID == uuid.Nil {
			s.ID = uuid.New()
		}
	}
	return mapError("sentence.create", dbc.DB(r.db).Create(&rows).Error)
}

func (r *sentenceRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Sentence, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *sentenceRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Sentence, error) {
	var out []*types.Sentence
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("id IN ?", ids).
		Order("paragraph_index ASC, order_index ASC").
		Find(&out).Error; err != nil {
		return nil, mapError("sentence.get_by_ids", err)
	}
	return out, nil
}

func (r *sentenceRepo) ListByChapter(dbc dbctx.Context, chapterID uuid.UUID) ([]*types.Sentence, error) {
	var out []*types.Sentence
	if chapterID == uuid.Nil {
		return out, nil
	}
	if err := dbc.DB(r.db).
		Where("chapter_id = ?", chapterID).
		Order("paragraph_index ASC, order_index ASC").
		Find(&out).Error; err != nil {
		return nil, mapError("sentence.list_by_chapter", err)
	}
	return out, nil
}

func (r *sentenceRepo) ApplyAssetUpdate(dbc dbctx.Context, id uuid.UUID, upd AssetUpdate) (*types.Sentence, bool, error) {
	if !upd.Kind.Valid() {
		return nil, false, mapError("sentence.apply_asset", fmt.Errorf("invalid asset kind %q", upd.Kind))
	}
	if strings.TrimSpace(upd.URL) == "" {
		return nil, false, mapError("sentence.apply_asset", fmt.Errorf("empty asset url"))
	}

	var (
		out     *types.Sentence
		applied bool
	)
	apply := func(tx *gorm.DB) error {
		var rows []*types.Sentence
		if err := tx.Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
			return err
		}
		if len(rows) == 0 {
			return gorm.ErrRecordNotFound
		}
		row := rows[0]
		meta := decodeIngestionMeta(row.IngestionMeta)
		prev, seen := meta[string(upd.Kind)]
		if seen && upd.StorageKey != "" && prev.StorageKey == upd.StorageKey && row.AssetURL(upd.Kind) == upd.URL {
			out = row
			return nil
		}

		row.SetAsset(upd.Kind, upd.URL, upd.DurationSeconds)
		row.Status = domain.AdvanceStatusFor(row.Status, upd.Kind)
		meta[string(upd.Kind)] = IngestionRecord{StorageKey: upd.StorageKey, SourceURL: upd.SourceURL}
		raw, err := json.Marshal(meta)
		if err != nil {
			return err
		}
		row.IngestionMeta = datatypes.JSON(raw)

		updates := row.AssetUpdates()
		updates["ingestion_meta"] = row.IngestionMeta
		if err := tx.Model(&types.Sentence{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return err
		}
		out = row
		applied = true
		return nil
	}

	var err error
	if dbc.Tx != nil {
		err = apply(dbc.DB(r.db))
	} else {
		err = dbc.DB(r.db).Transaction(apply)
	}
	if err != nil {
		return nil, false, mapError("sentence.apply_asset", err)
	}
	return out, applied, nil
}

func (r *sentenceRepo) SaveCache(dbc dbctx.Context, row *types.Sentence) error {
	if row == nil {
		return nil
	}
	return r.updateColumns(dbc, "sentence.save_cache", row.ID, row.CacheUpdates())
}

func (r *sentenceRepo) UpdateAssets(dbc dbctx.Context, row *types.Sentence) error {
	if row == nil {
		return nil
	}
	return r.updateColumns(dbc, "sentence.update_assets", row.ID, row.AssetUpdates())
}

func (r *sentenceRepo) updateColumns(dbc dbctx.Context, op string, id uuid.UUID, updates map[string]interface{}) error {
	res := dbc.DB(r.db).Model(&types.Sentence{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return mapError(op, res.Error)
	}
	if res.RowsAffected == 0 {
		return mapError(op, gorm.ErrRecordNotFound)
	}
	return nil
}

func decodeIngestionMeta(raw datatypes.JSON) map[string]IngestionRecord {
	out := map[string]IngestionRecord{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]IngestionRecord{}
	}
	return out
}
