package media

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestSentence() *Sentence {
	p := &Paragraph{ID: uuid.New(), ChapterID: uuid.New(), OrderIndex: 2}
	return NewSentence(p, 0, "hello")
}

func TestNewSentenceStartsInvalidated(t *testing.T) {
	s := newTestSentence()
	if !s.NeedsRegeneration() {
		t.Fatalf("new sentence: want NeedsRegeneration=true")
	}
	if s.HasValidCache() {
		t.Fatalf("new sentence: want HasValidCache=false")
	}
	if s.ParagraphIndex != 2 {
		t.Fatalf("paragraph index: want=2 got=%d", s.ParagraphIndex)
	}
}

func TestSaveCacheThenMarkUpdated(t *testing.T) {
	s := newTestSentence()
	s.SetImageURL("https://cdn/a.jpg")
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	s.SaveCache("videos/a.mp4", 4, now)

	if !s.HasValidCache() {
		t.Fatalf("after SaveCache: want HasValidCache=true")
	}
	if s.LastCachedAt == nil || !s.LastCachedAt.Equal(now) {
		t.Fatalf("LastCachedAt: want=%v got=%v", now, s.LastCachedAt)
	}
	if got := *s.CachedVideoDuration; got != 4 {
		t.Fatalf("duration: want=4 got=%d", got)
	}

	s.MarkMaterialUpdated()
	if s.HasValidCache() {
		t.Fatalf("after MarkMaterialUpdated: want HasValidCache=false")
	}
	if s.CachedVideoKey == nil {
		t.Fatalf("MarkMaterialUpdated must keep the stale key")
	}
}

func TestSetAssetInvalidatesCache(t *testing.T) {
	s := newTestSentence()
	s.SaveCache("videos/a.mp4", 3, time.Now())
	d := 2.5
	s.SetAsset(AssetKindAudio, "https://cdn/a.mp3", &d)
	if s.HasValidCache() {
		t.Fatalf("SetAsset(audio): want cache invalidated")
	}
	if s.AudioDuration == nil || *s.AudioDuration != 2.5 {
		t.Fatalf("audio duration: want=2.5 got=%v", s.AudioDuration)
	}
	if got := s.AssetURL(AssetKindAudio); got != "https://cdn/a.mp3" {
		t.Fatalf("AssetURL: want=https://cdn/a.mp3 got=%q", got)
	}
}

func TestDirectMutationDetectedByFingerprint(t *testing.T) {
	s := newTestSentence()
	s.SetImageURL("https://cdn/a.jpg")
	s.SaveCache("videos/a.mp4", 3, time.Now())

	other := "https://cdn/b.jpg"
	s.ImageURL = &other
	if s.NeedsRegenerationFlag {
		t.Fatalf("flag should still be false after direct assignment")
	}
	if !s.NeedsRegeneration() {
		t.Fatalf("fingerprint drift: want NeedsRegeneration=true")
	}
	if s.HasValidCache() {
		t.Fatalf("fingerprint drift: want HasValidCache=false")
	}
}

func TestFingerprintSeparatesFields(t *testing.T) {
	a := newTestSentence()
	img := "ab"
	a.ImageURL = &img

	b := newTestSentence()
	img2, aud := "a", "b"
	b.ImageURL = &img2
	b.AudioURL = &aud

	if a.Fingerprint() == b.Fingerprint() {
		t.Fatalf("fingerprints collide across the field boundary")
	}
}

func TestAdvanceStatusFor(t *testing.T) {
	cases := []struct {
		cur  SentenceStatus
		kind AssetKind
		want SentenceStatus
	}{
		{SentenceStatusPending, AssetKindImage, SentenceStatusGeneratedImage},
		{SentenceStatusGeneratedImage, AssetKindAudio, SentenceStatusGeneratedAudio},
		{SentenceStatusCompleted, AssetKindImage, SentenceStatusCompleted},
	}
	for _, tc := range cases {
		if got := AdvanceStatusFor(tc.cur, tc.kind); got != tc.want {
			t.Fatalf("AdvanceStatusFor(%s,%s): want=%s got=%s", tc.cur, tc.kind, tc.want, got)
		}
	}
}

func TestErrorCodesThroughExportError(t *testing.T) {
	chapterID := uuid.New()
	inner := NewError(CodeState, "export", "chapter not ready", nil)
	err := AsExportError(chapterID, inner)

	var ee *ExportError
	if !errors.As(err, &ee) {
		t.Fatalf("want ExportError, got %T", err)
	}
	if ee.ChapterID != chapterID {
		t.Fatalf("chapter id: want=%s got=%s", chapterID, ee.ChapterID)
	}
	if !IsCode(err, CodeState) {
		t.Fatalf("IsCode through ExportError: want=%s got=%s", CodeState, CodeOf(err))
	}
	if again := AsExportError(chapterID, err); again != err {
		t.Fatalf("AsExportError must not double wrap")
	}
	if AsExportError(chapterID, nil) != nil {
		t.Fatalf("nil error must stay nil")
	}
}

func TestUnitErrorMessage(t *testing.T) {
	id := uuid.New()
	err := UnitError(CodeDownload, "ingest", id, errors.New("status 502"))
	if CodeOf(err) != CodeDownload {
		t.Fatalf("code: want=%s got=%s", CodeDownload, CodeOf(err))
	}
	want := "ingest: sentence " + id.String() + ": status 502 (download)"
	if err.Error() != want {
		t.Fatalf("message: want=%q got=%q", want, err.Error())
	}
}

func TestCredentialConcurrencyDefault(t *testing.T) {
	var c *ProviderCredential
	if c.Concurrency() != DefaultProviderConcurrency {
		t.Fatalf("nil credential: want=%d got=%d", DefaultProviderConcurrency, c.Concurrency())
	}
	c = &ProviderCredential{MaxConcurrency: 2}
	if c.Concurrency() != 2 {
		t.Fatalf("explicit: want=2 got=%d", c.Concurrency())
	}
}
