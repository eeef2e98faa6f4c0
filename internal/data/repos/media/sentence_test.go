package media

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/draftcut-backend/internal/data/repos/testutil"
	types "github.com/yungbote/draftcut-backend/internal/domain"
	domain "github.com/yungbote/draftcut-backend/internal/domain/media"
	"github.com/yungbote/draftcut-backend/internal/platform/dbctx"
)

func TestSentenceRepoListByChapterOrder(t *testing.T) {
	db := testutil.DB(t)
	repo := NewSentenceRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	ch := testutil.SeedChapter(t, db, uuid.New(), "c", types.ChapterStatusMaterialsPrepared)
	p2 := testutil.SeedParagraph(t, db, ch.ID, 1)
	p1 := testutil.SeedParagraph(t, db, ch.ID, 0)
	late := testutil.SeedSentences(t, db, p2, "c", "d")
	early := testutil.SeedSentences(t, db, p1, "a", "b")

	got, err := repo.ListByChapter(dbc, ch.ID)
	if err != nil {
		t.Fatalf("ListByChapter: %v", err)
	}
	want := []uuid.UUID{early[0].ID, early[1].ID, late[0].ID, late[1].ID}
	if len(got) != len(want) {
		t.Fatalf("len: want=%d got=%d", len(want), len(got))
	}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("order[%d]: want=%s got=%s (%q)", i, want[i], got[i].ID, got[i].Content)
		}
	}
}

func TestSentenceRepoApplyAssetUpdateIsIdempotent(t *testing.T) {
	db := testutil.DB(t)
	repo := NewSentenceRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	ch := testutil.SeedChapter(t, db, uuid.New(), "c", types.ChapterStatusGeneratingMaterials)
	p := testutil.SeedParagraph(t, db, ch.ID, 0)
	s := testutil.SeedSentences(t, db, p, "a")[0]

	// Give it a valid cache first so the update has something to invalidate.
	s.SaveCache("videos/a.mp4", 3, time.Now())
	if err := repo.SaveCache(dbc, s); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}

	upd := AssetUpdate{
		Kind:       types.AssetKindImage,
		URL:        "https://cdn/generated/images/x.jpg",
		StorageKey: "generated/images/x.jpg",
		SourceURL:  "https://provider/tmp/x",
	}
	row, applied, err := repo.ApplyAssetUpdate(dbc, s.ID, upd)
	if err != nil {
		t.Fatalf("ApplyAssetUpdate: %v", err)
	}
	if !applied {
		t.Fatalf("first apply: want applied=true")
	}
	if row.Status != types.SentenceStatusGeneratedImage {
		t.Fatalf("status: want=%s got=%s", types.SentenceStatusGeneratedImage, row.Status)
	}

	_, applied, err = repo.ApplyAssetUpdate(dbc, s.ID, upd)
	if err != nil {
		t.Fatalf("second ApplyAssetUpdate: %v", err)
	}
	if applied {
		t.Fatalf("second apply: want applied=false")
	}

	stored, err := repo.GetByID(dbc, s.ID)
	if err != nil || stored == nil {
		t.Fatalf("GetByID: row=%v err=%v", stored, err)
	}
	if stored.ImageURL == nil || *stored.ImageURL != upd.URL {
		t.Fatalf("image url: want=%s got=%v", upd.URL, stored.ImageURL)
	}
	if stored.HasValidCache() {
		t.Fatalf("cache must be invalid after an asset update")
	}
	if stored.CachedVideoKey == nil {
		t.Fatalf("stale cache key should be kept")
	}
}

func TestSentenceRepoApplyAssetUpdateMissing(t *testing.T) {
	db := testutil.DB(t)
	repo := NewSentenceRepo(db, testutil.Logger(t))

	_, _, err := repo.ApplyAssetUpdate(dbctx.Context{Ctx: context.Background()}, uuid.New(), AssetUpdate{
		Kind: types.AssetKindAudio,
		URL:  "https://cdn/a.mp3",
	})
	if !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("want=%s got=%v", domain.CodeNotFound, err)
	}
}

func TestSentenceRepoSaveCacheRoundTrip(t *testing.T) {
	db := testutil.DB(t)
	repo := NewSentenceRepo(db, testutil.Logger(t))
	dbc := dbctx.Context{Ctx: context.Background()}

	ch := testutil.SeedChapter(t, db, uuid.New(), "c", types.ChapterStatusMaterialsPrepared)
	p := testutil.SeedParagraph(t, db, ch.ID, 0)
	s := testutil.SeedSentences(t, db, p, "a")[0]
	s.SetImageURL("https://cdn/a.jpg")
	if err := repo.UpdateAssets(dbc, s); err != nil {
		t.Fatalf("UpdateAssets: %v", err)
	}
	s.SaveCache("videos/a.mp4", 5, time.Now())
	if err := repo.SaveCache(dbc, s); err != nil {
		t.Fatalf("SaveCache: %v", err)
	}

	stored, err := repo.GetByID(dbc, s.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if !stored.HasValidCache() {
		t.Fatalf("stored cache: want valid, got %+v", stored.CacheState())
	}

	if err := repo.SaveCache(dbc, &types.Sentence{ID: uuid.New()}); !domain.IsCode(err, domain.CodeNotFound) {
		t.Fatalf("SaveCache unknown id: want=%s got=%v", domain.CodeNotFound, err)
	}
}
