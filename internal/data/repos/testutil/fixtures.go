package testutil

import (
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/draftcut-backend/internal/domain"
	"github.com/yungbote/draftcut-backend/internal/domain/media"
)

func SeedChapter(tb testing.TB, db *gorm.DB, ownerID uuid.UUID, title string, status types.ChapterStatus) *types.Chapter {
	tb.Helper()
	ch := &types.Chapter{
		ID:          uuid.New(),
		ProjectID:   uuid.New(),
		OwnerUserID: ownerID,
		Title:       title,
		Status:      status,
	}
	if err := db.Create(ch).Error; err != nil {
		tb.Fatalf("seed chapter: %v", err)
	}
	return ch
}

func SeedParagraph(tb testing.TB, db *gorm.DB, chapterID uuid.UUID, order int) *types.Paragraph {
	tb.Helper()
	p := &types.Paragraph{ID: uuid.New(), ChapterID: chapterID, OrderIndex: order}
	if err := db.Create(p).Error; err != nil {
		tb.Fatalf("seed paragraph: %v", err)
	}
	return p
}

// SeedSentences creates one sentence per content string, in order, under p.
// Each content string doubles as the image prompt.
func SeedSentences(tb testing.TB, db *gorm.DB, p *types.Paragraph, contents ...string) []*types.Sentence {
	tb.Helper()
	out := make([]*types.Sentence, 0, len(contents))
	for i, c := range contents {
		s := media.NewSentence(p, i, c)
		s.ImagePrompt = c
		if err := db.Create(s).Error; err != nil {
			tb.Fatalf("seed sentence: %v", err)
		}
		out = append(out, s)
	}
	return out
}

func SeedCredential(tb testing.TB, db *gorm.DB, ownerID uuid.UUID) *types.ProviderCredential {
	tb.Helper()
	c := &types.ProviderCredential{
		ID:             uuid.New(),
		OwnerUserID:    ownerID,
		Provider:       "openai",
		APIKey:         "sk-test",
		MaxConcurrency: types.DefaultProviderConcurrency,
	}
	if err := db.Create(c).Error; err != nil {
		tb.Fatalf("seed credential: %v", err)
	}
	return c
}
