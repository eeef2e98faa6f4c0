package media

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type ChapterStatus string

const (
	ChapterStatusPending             ChapterStatus = "pending"
	ChapterStatusParsed              ChapterStatus = "parsed"
	ChapterStatusGeneratingMaterials ChapterStatus = "generating_materials"
	ChapterStatusMaterialsPrepared   ChapterStatus = "materials_prepared"
	ChapterStatusExported            ChapterStatus = "exported"
	ChapterStatusFailed              ChapterStatus = "failed"
)

// Chapter is the exportable container of sentences; one chapter becomes one draft.
type Chapter struct {
	ID          uuid.UUID     `gorm:"type:uuid;primaryKey" json:"id"`
	ProjectID   uuid.UUID     `gorm:"type:uuid;not null;index" json:"project_id"`
	OwnerUserID uuid.UUID     `gorm:"type:uuid;not null;index" json:"owner_user_id"`
	Title       string        `gorm:"column:title;size:255;not null" json:"title"`
	OrderIndex  int           `gorm:"column:order_index;not null" json:"order_index"`
	Status      ChapterStatus `gorm:"column:status;size:32;not null;index" json:"status"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Chapter) TableName() string { return "chapter" }

// ExportReady reports whether the chapter is in the lifecycle state that permits export.
func (c *Chapter) ExportReady() bool {
	return c != nil && c.Status == ChapterStatusMaterialsPrepared
}

type Paragraph struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ChapterID  uuid.UUID `gorm:"type:uuid;not null;index;uniqueIndex:idx_paragraph_chapter_order,priority:1" json:"chapter_id"`
	Chapter    *Chapter  `gorm:"constraint:OnDelete:CASCADE;foreignKey:ChapterID;references:ID" json:"-"`
	OrderIndex int       `gorm:"column:order_index;not null;uniqueIndex:idx_paragraph_chapter_order,priority:2" json:"order_index"`
	Content    string    `gorm:"column:content;type:text" json:"content"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Paragraph) TableName() string { return "paragraph" }
