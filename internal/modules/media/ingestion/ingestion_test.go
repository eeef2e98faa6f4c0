package ingestion

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	mediarepo "github.com/yungbote/draftcut-backend/internal/data/repos/media"
	"github.com/yungbote/draftcut-backend/internal/data/repos/testutil"
	types "github.com/yungbote/draftcut-backend/internal/domain"
	"github.com/yungbote/draftcut-backend/internal/domain/media"
	"github.com/yungbote/draftcut-backend/internal/modules/media/generation"
	"github.com/yungbote/draftcut-backend/internal/platform/dbctx"
	"github.com/yungbote/draftcut-backend/internal/platform/gcp"
)

type fixture struct {
	deps      Deps
	sentences []*types.Sentence
	owner     uuid.UUID
	cred      *types.ProviderCredential
	srv       *httptest.Server
	bucket    gcp.BucketService
}

func newFixture(t *testing.T, n int) *fixture {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	owner := uuid.New()
	ch := testutil.SeedChapter(t, db, owner, "c", types.ChapterStatusGeneratingMaterials)
	p := testutil.SeedParagraph(t, db, ch.ID, 0)
	contents := make([]string, n)
	for i := range contents {
		contents[i] = "s"
	}
	sentences := testutil.SeedSentences(t, db, p, contents...)
	cred := testutil.SeedCredential(t, db, owner)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/missing") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("png-bytes:" + r.URL.Path))
	}))
	t.Cleanup(srv.Close)

	bucket := gcp.NewMemoryBucket("")
	return &fixture{
		deps: Deps{
			Log:         log,
			HTTPClient:  srv.Client(),
			Bucket:      bucket,
			Sentences:   mediarepo.NewSentenceRepo(db, log),
			Credentials: mediarepo.NewCredentialRepo(db, log),
		},
		sentences: sentences,
		owner:     owner,
		cred:      cred,
		srv:       srv,
		bucket:    bucket,
	}
}

func (f *fixture) reload(t *testing.T, id uuid.UUID) *types.Sentence {
	t.Helper()
	s, err := f.deps.Sentences.GetByID(dbctx.Context{Ctx: context.Background()}, id)
	if err != nil || s == nil {
		t.Fatalf("reload %s: row=%v err=%v", id, s, err)
	}
	return s
}

func TestRunIsolatesOneGenerationFailure(t *testing.T) {
	f := newFixture(t, 4)
	outcomes := make([]generation.Outcome, len(f.sentences))
	for i, s := range f.sentences {
		outcomes[i] = generation.Outcome{UnitID: s.ID, AssetURL: f.srv.URL + "/img/" + s.ID.String()}
	}
	outcomes[1] = generation.Outcome{UnitID: f.sentences[1].ID, Err: media.UnitError(media.CodeProvider, "generate_image", f.sentences[1].ID, errors.New("boom"))}

	rep, err := Run(context.Background(), f.deps, Input{OwnerID: f.owner, CredentialID: f.cred.ID, Kind: media.AssetKindImage, Outcomes: outcomes})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Ingested != 3 || rep.Skipped != 1 {
		t.Fatalf("report: want ingested=3 skipped=1 got=%+v", rep)
	}

	for i, s := range f.sentences {
		got := f.reload(t, s.ID)
		if i == 1 {
			if got.ImageURL != nil || got.Status != types.SentenceStatusPending {
				t.Fatalf("failed unit changed: image=%v status=%s", got.ImageURL, got.Status)
			}
			continue
		}
		if got.ImageURL == nil || !strings.HasPrefix(*got.ImageURL, "generated/images/"+f.owner.String()+"/") {
			t.Fatalf("unit %d image key: got=%v", i, got.ImageURL)
		}
		if !strings.HasSuffix(*got.ImageURL, ".png") {
			t.Fatalf("unit %d extension from content type: got=%s", i, *got.ImageURL)
		}
		if got.Status != types.SentenceStatusGeneratedImage {
			t.Fatalf("unit %d status: want=%s got=%s", i, types.SentenceStatusGeneratedImage, got.Status)
		}
		rc, err := f.bucket.DownloadFile(context.Background(), *got.ImageURL)
		if err != nil {
			t.Fatalf("uploaded object missing: %v", err)
		}
		body, _ := io.ReadAll(rc)
		_ = rc.Close()
		if !strings.HasPrefix(string(body), "png-bytes:") {
			t.Fatalf("uploaded body: got=%q", body)
		}
	}

	cred, _ := f.deps.Credentials.GetOwned(dbctx.Context{Ctx: context.Background()}, f.owner, f.cred.ID)
	if cred.UsageCount != 1 {
		t.Fatalf("usage counted once per batch: want=1 got=%d", cred.UsageCount)
	}
}

func TestRunDownloadFailureLeavesUnitUnchanged(t *testing.T) {
	f := newFixture(t, 2)
	outcomes := []generation.Outcome{
		{UnitID: f.sentences[0].ID, AssetURL: f.srv.URL + "/missing/a"},
		{UnitID: f.sentences[1].ID, AssetURL: f.srv.URL + "/img/b"},
	}
	rep, err := Run(context.Background(), f.deps, Input{OwnerID: f.owner, Outcomes: outcomes})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.DownloadFailed != 1 || rep.Ingested != 1 {
		t.Fatalf("report: got=%+v", rep)
	}
	if len(rep.Failures) != 1 || !media.IsCode(rep.Failures[0], media.CodeDownload) {
		t.Fatalf("failures: got=%v", rep.Failures)
	}
	if got := f.reload(t, f.sentences[0].ID); got.ImageURL != nil {
		t.Fatalf("download failure must not touch the unit, image=%s", *got.ImageURL)
	}
}

type failingBucket struct {
	gcp.BucketService
}

func (failingBucket) UploadFile(dbctx.Context, string, io.Reader) error {
	return errors.New("bucket unavailable")
}

func TestRunUploadFailure(t *testing.T) {
	f := newFixture(t, 1)
	f.deps.Bucket = failingBucket{BucketService: f.bucket}
	rep, err := Run(context.Background(), f.deps, Input{
		OwnerID:  f.owner,
		Outcomes: []generation.Outcome{{UnitID: f.sentences[0].ID, AssetURL: f.srv.URL + "/img/a"}},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.UploadFailed != 1 || !media.IsCode(rep.Failures[0], media.CodeUpload) {
		t.Fatalf("report: got=%+v", rep)
	}
	if got := f.reload(t, f.sentences[0].ID); got.ImageURL != nil {
		t.Fatalf("upload failure must not touch the unit")
	}
}

func TestRunPersistFailureDeletesUpload(t *testing.T) {
	f := newFixture(t, 1)
	rep, err := Run(context.Background(), f.deps, Input{
		OwnerID:  f.owner,
		Outcomes: []generation.Outcome{{UnitID: uuid.New(), AssetURL: f.srv.URL + "/img/a"}},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.PersistFailed != 1 {
		t.Fatalf("report: got=%+v", rep)
	}
}

func TestRunCancelledStopsBeforeNextItem(t *testing.T) {
	f := newFixture(t, 3)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	outcomes := make([]generation.Outcome, len(f.sentences))
	for i, s := range f.sentences {
		outcomes[i] = generation.Outcome{UnitID: s.ID, AssetURL: f.srv.URL + "/img/x"}
	}
	rep, err := Run(ctx, f.deps, Input{OwnerID: f.owner, CredentialID: f.cred.ID, Outcomes: outcomes})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep.Ingested != 0 || rep.Skipped != 3 {
		t.Fatalf("report: want all skipped got=%+v", rep)
	}
}

func TestDownloadDataURL(t *testing.T) {
	body, ct, err := Download(context.Background(), http.DefaultClient, "data:image/png;base64,aGk=", 10)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if string(body) != "hi" || ct != "image/png" {
		t.Fatalf("data url: body=%q ct=%q", body, ct)
	}
	if _, _, err := Download(context.Background(), http.DefaultClient, "data:image/png,plain", 10); err == nil {
		t.Fatalf("non-base64 data url: want error")
	}
}

func TestStorageKeyIsFreshPerCall(t *testing.T) {
	owner := uuid.New()
	a := StorageKey(media.AssetKindAudio, owner, "")
	b := StorageKey(media.AssetKindAudio, owner, "")
	if a == b {
		t.Fatalf("keys must differ, both=%s", a)
	}
	if !strings.HasPrefix(a, "generated/audios/"+owner.String()+"/") || !strings.HasSuffix(a, ".mp3") {
		t.Fatalf("audio key: got=%s", a)
	}
}
