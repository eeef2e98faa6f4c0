package domain

import "github.com/yungbote/draftcut-backend/internal/domain/media"

type (
	Sentence           = media.Sentence
	SentenceStatus     = media.SentenceStatus
	Paragraph          = media.Paragraph
	Chapter            = media.Chapter
	ChapterStatus      = media.ChapterStatus
	ProviderCredential = media.ProviderCredential
	AssetKind          = media.AssetKind
	CacheState         = media.CacheState
)

const (
	SentenceStatusPending        = media.SentenceStatusPending
	SentenceStatusGeneratedImage = media.SentenceStatusGeneratedImage
	SentenceStatusGeneratedAudio = media.SentenceStatusGeneratedAudio
	SentenceStatusCompleted      = media.SentenceStatusCompleted
	SentenceStatusFailed         = media.SentenceStatusFailed

	ChapterStatusPending             = media.ChapterStatusPending
	ChapterStatusParsed              = media.ChapterStatusParsed
	ChapterStatusGeneratingMaterials = media.ChapterStatusGeneratingMaterials
	ChapterStatusMaterialsPrepared   = media.ChapterStatusMaterialsPrepared
	ChapterStatusExported            = media.ChapterStatusExported
	ChapterStatusFailed              = media.ChapterStatusFailed

	AssetKindImage = media.AssetKindImage
	AssetKindAudio = media.AssetKindAudio

	DefaultProviderConcurrency = media.DefaultProviderConcurrency
)
