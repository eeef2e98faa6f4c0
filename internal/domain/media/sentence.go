package media

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type SentenceStatus string

const (
	SentenceStatusPending          SentenceStatus = "pending"
	SentenceStatusProcessing       SentenceStatus = "processing"
	SentenceStatusGeneratedPrompts SentenceStatus = "generated_prompts"
	SentenceStatusGeneratedImage   SentenceStatus = "generated_image"
	SentenceStatusGeneratedAudio   SentenceStatus = "generated_audio"
	SentenceStatusCompleted        SentenceStatus = "completed"
	SentenceStatusFailed           SentenceStatus = "failed"
)

// Sentence is the smallest media-generation unit: one line of narration with its
// illustrating image, its voiced audio and the cached single-sentence video.
type Sentence struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ParagraphID uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_sentence_paragraph_order,priority:1" json:"paragraph_id"`
	Paragraph   *Paragraph `gorm:"constraint:OnDelete:CASCADE;foreignKey:ParagraphID;references:ID" json:"-"`
	OrderIndex  int        `gorm:"column:order_index;not null;uniqueIndex:idx_sentence_paragraph_order,priority:2" json:"order_index"`
	Content     string     `gorm:"column:content;type:text;not null" json:"content"`

	// Denormalized from the parent paragraph so a chapter's sentences can be read in one ordered query.
	ChapterID      uuid.UUID `gorm:"type:uuid;not null;index:idx_sentence_chapter_order,priority:1" json:"chapter_id"`
	ParagraphIndex int       `gorm:"column:paragraph_index;not null;index:idx_sentence_chapter_order,priority:2" json:"paragraph_index"`

	ImagePrompt   string   `gorm:"column:image_prompt;type:text" json:"image_prompt,omitempty"`
	ImageURL      *string  `gorm:"column:image_url;size:500" json:"image_url,omitempty"`
	AudioURL      *string  `gorm:"column:audio_url;size:500" json:"audio_url,omitempty"`
	AudioDuration *float64 `gorm:"column:audio_duration" json:"audio_duration,omitempty"` // seconds

	CachedVideoKey        *string    `gorm:"column:cached_video_key;size:500" json:"cached_video_key,omitempty"`
	CachedVideoDuration   *int       `gorm:"column:cached_video_duration" json:"cached_video_duration,omitempty"` // seconds
	NeedsRegenerationFlag bool       `gorm:"column:needs_regeneration;not null;index" json:"needs_regeneration"`
	CachedFingerprint     string     `gorm:"column:cached_fingerprint;size:64" json:"cached_fingerprint,omitempty"`
	LastCachedAt          *time.Time `gorm:"column:last_cached_at" json:"last_cached_at,omitempty"`

	// IngestionMeta records the provider URL and storage key of the last ingested asset per kind.
	IngestionMeta datatypes.JSON `gorm:"column:ingestion_meta" json:"ingestion_meta,omitempty"`

	Status SentenceStatus `gorm:"column:status;size:20;not null;index" json:"status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Sentence) TableName() string { return "sentence" }

// NewSentence returns a pending sentence that has never been synthesized.
func NewSentence(p *Paragraph, orderIndex int, content string) *Sentence {
	return &Sentence{
		ID:                    uuid.New(),
		ParagraphID:           p.ID,
		ChapterID:             p.ChapterID,
		ParagraphIndex:        p.OrderIndex,
		OrderIndex:            orderIndex,
		Content:               content,
		NeedsRegenerationFlag: true,
		Status:                SentenceStatusPending,
	}
}

// AdvanceStatusFor returns the status a sentence moves to once an asset of kind lands.
// It never moves a sentence backwards past completed.
func AdvanceStatusFor(current SentenceStatus, kind AssetKind) SentenceStatus {
	if current == SentenceStatusCompleted {
		return current
	}
	switch kind {
	case AssetKindImage:
		return SentenceStatusGeneratedImage
	case AssetKindAudio:
		return SentenceStatusGeneratedAudio
	default:
		return current
	}
}

type AssetKind string

const (
	AssetKindImage AssetKind = "image"
	AssetKindAudio AssetKind = "audio"
)

func (k AssetKind) Valid() bool {
	return k == AssetKindImage || k == AssetKindAudio
}

// Extension is the file extension used for stored and exported assets of this kind.
func (k AssetKind) Extension() string {
	if k == AssetKindAudio {
		return ".mp3"
	}
	return ".jpg"
}

func (k AssetKind) ContentType() string {
	if k == AssetKindAudio {
		return "audio/mpeg"
	}
	return "image/jpeg"
}
