package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/draftcut-backend/internal/domain"
	"github.com/yungbote/draftcut-backend/internal/domain/media"
	httpH "github.com/yungbote/draftcut-backend/internal/http/handlers"
	httpMW "github.com/yungbote/draftcut-backend/internal/http/middleware"
	"github.com/yungbote/draftcut-backend/internal/observability"
	"github.com/yungbote/draftcut-backend/internal/platform/gcp"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
	"github.com/yungbote/draftcut-backend/internal/services"
)

type fakeExports struct {
	dir       string
	gotOwner  uuid.UUID
	exportErr error
}

func (f *fakeExports) ExportChapter(_ context.Context, ownerID, chapterID uuid.UUID) (services.ExportResult, error) {
	f.gotOwner = ownerID
	if f.exportErr != nil {
		return services.ExportResult{}, f.exportErr
	}
	return services.ExportResult{FileName: "Intro_0a1b2c3d.zip", DraftID: "abc", Duration: 3_000_000}, nil
}

func (f *fakeExports) OpenArchive(name string) (string, error) {
	p := filepath.Join(f.dir, name)
	if strings.Contains(name, "/") || strings.Contains(name, "..") {
		return "", media.NewError(media.CodeNotFound, "export.download", "file does not exist or has expired", nil)
	}
	if _, err := os.Stat(p); err != nil {
		return "", media.NewError(media.CodeNotFound, "export.download", "file does not exist or has expired", err)
	}
	return p, nil
}

func (f *fakeExports) SweepExpired(context.Context, time.Duration) (int, error) { return 0, nil }

type fakeImages struct {
	sum services.GenerationSummary
}

func (f *fakeImages) GenerateImages(_ context.Context, _, _ uuid.UUID, ids []uuid.UUID) (services.GenerationSummary, error) {
	f.sum.Requested = len(ids)
	return f.sum, nil
}

type fakeSentences struct {
	state types.CacheState
}

func (f *fakeSentences) UpdateAssets(_ context.Context, _, id uuid.UUID, in services.AssetsInput) (*types.Sentence, error) {
	s := &types.Sentence{ID: id}
	if in.ImageURL != nil {
		s.SetImageURL(*in.ImageURL)
	}
	return s, nil
}

func (f *fakeSentences) SaveVideoCache(context.Context, uuid.UUID, uuid.UUID, services.VideoCacheInput) (types.CacheState, error) {
	return f.state, nil
}

func (f *fakeSentences) GetCacheState(_ context.Context, _, id uuid.UUID) (types.CacheState, error) {
	if id == uuid.Nil {
		return types.CacheState{}, media.NewError(media.CodeNotFound, "sentence", "missing", nil)
	}
	return f.state, nil
}

type testServer struct {
	engine  *gin.Engine
	exports *fakeExports
	user    uuid.UUID
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log := logger.NewNop()
	exports := &fakeExports{dir: t.TempDir()}
	engine := NewRouter(RouterConfig{
		Log:                log,
		Metrics:            observability.New(),
		IdentityMiddleware: httpMW.NewIdentityMiddleware(log),
		ExportHandler:      httpH.NewExportHandler(log, exports),
		ImageHandler:       httpH.NewImageHandler(log, &fakeImages{}),
		SentenceHandler:    httpH.NewSentenceHandler(&fakeSentences{state: types.CacheState{HasValidCache: true}}, gcp.NewMemoryBucket("https://cdn.test")),
		HealthHandler:      httpH.NewHealthHandler(nil),
	})
	return &testServer{engine: engine, exports: exports, user: uuid.New()}
}

func (s *testServer) do(method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(httpMW.HeaderUserID, s.user.String())
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	return rec
}

func TestExportRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(http.MethodPost, "/api/export/jianying/"+uuid.NewString(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d body=%s", rec.Code, rec.Body.String())
	}
	var got map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got["success"] != true || got["filename"] != "Intro_0a1b2c3d.zip" {
		t.Fatalf("body: got=%v", got)
	}
	if got["download_url"] != "/api/export/jianying/download/Intro_0a1b2c3d.zip" {
		t.Fatalf("download_url: got=%v", got["download_url"])
	}
	if s.exports.gotOwner != s.user {
		t.Fatalf("owner: want=%s got=%s", s.user, s.exports.gotOwner)
	}
}

func TestExportRouteErrorMapping(t *testing.T) {
	s := newTestServer(t)
	cases := []struct {
		code media.ErrorCode
		want int
	}{
		{media.CodeNotFound, http.StatusNotFound},
		{media.CodeState, http.StatusBadRequest},
		{media.CodeEmptyData, http.StatusBadRequest},
		{media.CodePackaging, http.StatusInternalServerError},
	}
	for _, tc := range cases {
		s.exports.exportErr = media.AsExportError(uuid.New(), media.NewError(tc.code, "export", "x", nil))
		rec := s.do(http.MethodPost, "/api/export/jianying/"+uuid.NewString(), "")
		if rec.Code != tc.want {
			t.Fatalf("%s: want=%d got=%d", tc.code, tc.want, rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"code":"`+string(tc.code)+`"`) {
			t.Fatalf("%s: body=%s", tc.code, rec.Body.String())
		}
	}
	if rec := s.do(http.MethodPost, "/api/export/jianying/not-a-uuid", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("bad id: want=400 got=%d", rec.Code)
	}
}

func TestDownloadRoute(t *testing.T) {
	s := newTestServer(t)
	if err := os.WriteFile(filepath.Join(s.exports.dir, "Intro_0a1b2c3d.zip"), []byte("PK\x03\x04zip"), 0o644); err != nil {
		t.Fatal(err)
	}
	rec := s.do(http.MethodGet, "/api/export/jianying/download/Intro_0a1b2c3d.zip", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status: want=200 got=%d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Fatalf("content type: got=%q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); cd != `attachment; filename="Intro_0a1b2c3d.zip"` {
		t.Fatalf("content disposition: got=%q", cd)
	}

	if rec := s.do(http.MethodGet, "/api/export/jianying/download/gone.zip", ""); rec.Code != http.StatusNotFound {
		t.Fatalf("missing archive: want=404 got=%d", rec.Code)
	}
}

func TestIdentityRequired(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/api/sentences/"+uuid.NewString()+"/cache", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("no identity: want=401 got=%d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/healthcheck", nil)
	rec = httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("healthcheck: code=%d body=%q", rec.Code, rec.Body.String())
	}
}

func TestSentenceRoutes(t *testing.T) {
	s := newTestServer(t)
	id := uuid.NewString()

	rec := s.do(http.MethodPut, "/api/sentences/"+id+"/assets", `{"image_url":"generated/images/a.jpg"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("update assets: code=%d body=%s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"image_public_url":"https://cdn.test/generated/images/a.jpg"`) {
		t.Fatalf("public url missing: %s", rec.Body.String())
	}

	rec = s.do(http.MethodPost, "/api/sentences/"+id+"/video-cache", `{"key":"videos/a.mp4","duration":3}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"has_valid_cache":true`) {
		t.Fatalf("save cache: code=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = s.do(http.MethodGet, "/api/sentences/"+uuid.Nil.String()+"/cache", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown sentence: want=404 got=%d", rec.Code)
	}
}

func TestImageRouteValidation(t *testing.T) {
	s := newTestServer(t)
	if rec := s.do(http.MethodPost, "/api/images/generate", `{"sentence_ids":[]}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty request: want=400 got=%d", rec.Code)
	}
	body := `{"api_key_id":"` + uuid.NewString() + `","sentence_ids":["` + uuid.NewString() + `"]}`
	rec := s.do(http.MethodPost, "/api/images/generate", body)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"requested":1`) {
		t.Fatalf("generate: code=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	_ = s.do(http.MethodGet, "/healthcheck", "")
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "draftcut_api_requests_total") {
		t.Fatalf("metrics: code=%d body=%s", rec.Code, rec.Body.String())
	}
}
