package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/draftcut-backend/internal/data/repos/media"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

type SentenceRepo = media.SentenceRepo
type ChapterRepo = media.ChapterRepo
type CredentialRepo = media.CredentialRepo

type AssetUpdate = media.AssetUpdate

type Repos struct {
	Sentence   SentenceRepo
	Chapter    ChapterRepo
	Credential CredentialRepo
}

func New(db *gorm.DB, log *logger.Logger) Repos {
	return Repos{
		Sentence:   media.NewSentenceRepo(db, log),
		Chapter:    media.NewChapterRepo(db, log),
		Credential: media.NewCredentialRepo(db, log),
	}
}
