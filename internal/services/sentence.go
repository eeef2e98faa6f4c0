package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	dbpkg "github.com/yungbote/draftcut-backend/internal/data/db"
	"github.com/yungbote/draftcut-backend/internal/data/repos"
	types "github.com/yungbote/draftcut-backend/internal/domain"
	"github.com/yungbote/draftcut-backend/internal/domain/media"
	"github.com/yungbote/draftcut-backend/internal/platform/dbctx"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

// AssetsInput changes a sentence's material references. Nil fields are left alone.
type AssetsInput struct {
	ImageURL      *string  `json:"image_url"`
	AudioURL      *string  `json:"audio_url"`
	AudioDuration *float64 `json:"audio_duration"`
}

type VideoCacheInput struct {
	Key             string `json:"key"`
	DurationSeconds int    `json:"duration"`
}

type SentenceService interface {
	// UpdateAssets replaces image or audio references and invalidates the cached video.
	UpdateAssets(ctx context.Context, ownerID, sentenceID uuid.UUID, in AssetsInput) (*types.Sentence, error)
	// SaveVideoCache records a rendered segment for the sentence's current inputs.
	SaveVideoCache(ctx context.Context, ownerID, sentenceID uuid.UUID, in VideoCacheInput) (types.CacheState, error)
	GetCacheState(ctx context.Context, ownerID, sentenceID uuid.UUID) (types.CacheState, error)
}

type sentenceService struct {
	log       *logger.Logger
	tx        dbpkg.TxRunner
	sentences repos.SentenceRepo
	chapters  repos.ChapterRepo
	now       func() time.Time
}

func NewSentenceService(baseLog *logger.Logger, tx dbpkg.TxRunner, r repos.Repos) SentenceService {
	return &sentenceService{
		log:       baseLog.With("service", "SentenceService"),
		tx:        tx,
		sentences: r.Sentence,
		chapters:  r.Chapter,
		now:       time.Now,
	}
}

func (s *sentenceService) loadOwned(dbc dbctx.Context, ownerID, sentenceID uuid.UUID) (*types.Sentence, error) {
	row, err := s.sentences.GetByID(dbc, sentenceID)
	if err != nil {
		return nil, err
	}
	if row != nil {
		ch, err := s.chapters.GetOwned(dbc, ownerID, row.ChapterID)
		if err != nil {
			return nil, err
		}
		if ch != nil {
			return row, nil
		}
	}
	return nil, media.NewError(media.CodeNotFound, "sentence", fmt.Sprintf("sentence %s not found", sentenceID), nil)
}

func (s *sentenceService) UpdateAssets(ctx context.Context, ownerID, sentenceID uuid.UUID, in AssetsInput) (*types.Sentence, error) {
	if in.ImageURL == nil && in.AudioURL == nil {
		return nil, media.NewError(media.CodeValidation, "sentence.update_assets", "nothing to update", nil)
	}
	if in.AudioDuration != nil && *in.AudioDuration < 0 {
		return nil, media.NewError(media.CodeValidation, "sentence.update_assets", "audio duration must not be negative", nil)
	}
	if in.AudioDuration != nil && in.AudioURL == nil {
		return nil, media.NewError(media.CodeValidation, "sentence.update_assets", "audio duration requires audio_url", nil)
	}

	var out *types.Sentence
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		row, err := s.loadOwned(dbc, ownerID, sentenceID)
		if err != nil {
			return err
		}
		if in.ImageURL != nil {
			row.SetImageURL(strings.TrimSpace(*in.ImageURL))
		}
		if in.AudioURL != nil {
			row.SetAudioURL(strings.TrimSpace(*in.AudioURL), in.AudioDuration)
		}
		if err := s.sentences.UpdateAssets(dbc, row); err != nil {
			return err
		}
		out = row
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Debug("sentence assets updated", "sentence_id", sentenceID)
	return out, nil
}

func (s *sentenceService) SaveVideoCache(ctx context.Context, ownerID, sentenceID uuid.UUID, in VideoCacheInput) (types.CacheState, error) {
	if in.DurationSeconds < 0 {
		return types.CacheState{}, media.NewError(media.CodeValidation, "sentence.save_cache", "duration must not be negative", nil)
	}
	var st types.CacheState
	err := s.tx.InTx(ctx, func(dbc dbctx.Context) error {
		row, err := s.loadOwned(dbc, ownerID, sentenceID)
		if err != nil {
			return err
		}
		row.SaveCache(in.Key, in.DurationSeconds, s.now())
		if err := s.sentences.SaveCache(dbc, row); err != nil {
			return err
		}
		st = row.CacheState()
		return nil
	})
	return st, err
}

func (s *sentenceService) GetCacheState(ctx context.Context, ownerID, sentenceID uuid.UUID) (types.CacheState, error) {
	row, err := s.loadOwned(dbctx.Context{Ctx: ctx}, ownerID, sentenceID)
	if err != nil {
		return types.CacheState{}, err
	}
	return row.CacheState(), nil
}
