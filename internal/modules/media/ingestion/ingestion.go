package ingestion

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	mediarepo "github.com/yungbote/draftcut-backend/internal/data/repos/media"
	"github.com/yungbote/draftcut-backend/internal/domain/media"
	"github.com/yungbote/draftcut-backend/internal/modules/media/generation"
	"github.com/yungbote/draftcut-backend/internal/observability"
	"github.com/yungbote/draftcut-backend/internal/platform/dbctx"
	"github.com/yungbote/draftcut-backend/internal/platform/gcp"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

const DefaultMaxAssetBytes int64 = 50 << 20

type Deps struct {
	Log *logger.Logger
	// HTTPClient is shared by every download in a batch. Nil means a client with a 60s timeout.
	HTTPClient  *http.Client
	Bucket      gcp.BucketService
	Sentences   mediarepo.SentenceRepo
	Credentials mediarepo.CredentialRepo
	Metrics     *observability.Metrics
	Now         func() time.Time
}

type Input struct {
	OwnerID      uuid.UUID
	CredentialID uuid.UUID
	Kind         media.AssetKind
	Outcomes     []generation.Outcome
	// MaxAssetBytes caps one download. Zero means DefaultMaxAssetBytes.
	MaxAssetBytes int64
}

type Report struct {
	Ingested       int
	AlreadyApplied int
	DownloadFailed int
	UploadFailed   int
	PersistFailed  int
	// Skipped counts outcomes that never reached download: generation failures
	// and items left over after cancellation.
	Skipped  int
	Failures []error
}

// Run ingests every successful outcome one at a time: download, upload under a
// fresh key, then persist that sentence on its own. A failed item leaves its
// sentence untouched and never affects the others. Credential usage is counted
// once after the loop.
func Run(ctx context.Context, deps Deps, in Input) (Report, error) {
	var rep Report
	if deps.Bucket == nil || deps.Sentences == nil {
		return rep, media.NewError(media.CodeInternal, "ingest", "bucket and sentence repo are required", nil)
	}
	kind := in.Kind
	if kind == "" {
		kind = media.AssetKindImage
	}
	if !kind.Valid() {
		return rep, media.NewError(media.CodeValidation, "ingest", fmt.Sprintf("invalid asset kind %q", kind), nil)
	}
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("step", "AssetIngestion", "kind", kind)
	httpClient := deps.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	maxBytes := in.MaxAssetBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAssetBytes
	}

	for i, o := range in.Outcomes {
		if !o.OK() {
			rep.Skipped++
			continue
		}
		if err := ctx.Err(); err != nil {
			left := countOK(in.Outcomes[i:])
			rep.Skipped += left
			log.Warn("ingestion cancelled", "remaining", left, "error", err)
			break
		}
		ingestOne(ctx, deps, log, httpClient, in, kind, maxBytes, o, &rep)
	}

	if in.CredentialID != uuid.Nil && deps.Credentials != nil {
		// Usage is recorded even when ctx was cancelled mid batch; provider calls were already billed.
		if err := deps.Credentials.IncrementUsage(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, in.CredentialID, now()); err != nil {
			log.Warn("credential usage update failed", "credential_id", in.CredentialID, "error", err)
		}
	}

	log.Info("ingestion finished",
		"ingested", rep.Ingested,
		"already_applied", rep.AlreadyApplied,
		"download_failed", rep.DownloadFailed,
		"upload_failed", rep.UploadFailed,
		"persist_failed", rep.PersistFailed,
		"skipped", rep.Skipped,
	)
	return rep, nil
}

func ingestOne(ctx context.Context, deps Deps, log *logger.Logger, httpClient *http.Client, in Input, kind media.AssetKind, maxBytes int64, o generation.Outcome, rep *Report) {
	ctx, span := observability.Tracer().Start(ctx, "ingestion.item")
	span.SetAttributes(attribute.String("sentence.id", o.UnitID.String()), attribute.String("asset.kind", string(kind)))
	defer span.End()

	body, contentType, err := Download(ctx, httpClient, o.AssetURL, maxBytes)
	if err != nil {
		rep.DownloadFailed++
		rep.Failures = append(rep.Failures, media.UnitError(media.CodeDownload, "ingest.download", o.UnitID, err))
		deps.Metrics.IncIngestItem(string(kind), "download_failed")
		span.RecordError(err)
		log.Warn("asset download failed", "sentence_id", o.UnitID, "error", err)
		return
	}

	key := StorageKey(kind, in.OwnerID, extensionFor(kind, contentType))
	if err := deps.Bucket.UploadFile(dbctx.Context{Ctx: ctx}, key, bytes.NewReader(body)); err != nil {
		rep.UploadFailed++
		rep.Failures = append(rep.Failures, media.UnitError(media.CodeUpload, "ingest.upload", o.UnitID, err))
		deps.Metrics.IncIngestItem(string(kind), "upload_failed")
		span.RecordError(err)
		log.Warn("asset upload failed", "sentence_id", o.UnitID, "storage_key", key, "error", err)
		return
	}

	source := o.AssetURL
	if strings.HasPrefix(source, "data:") {
		source = "data:"
	}
	_, applied, err := deps.Sentences.ApplyAssetUpdate(dbctx.Context{Ctx: ctx}, o.UnitID, mediarepo.AssetUpdate{
		Kind:       kind,
		URL:        key,
		StorageKey: key,
		SourceURL:  source,
	})
	if err != nil {
		rep.PersistFailed++
		rep.Failures = append(rep.Failures, media.UnitError(media.CodeInternal, "ingest.persist", o.UnitID, err))
		deps.Metrics.IncIngestItem(string(kind), "persist_failed")
		span.RecordError(err)
		log.Error("asset persist failed", "sentence_id", o.UnitID, "storage_key", key, "error", err)
		// The object is unreferenced now; drop it.
		if delErr := deps.Bucket.DeleteFile(dbctx.Context{Ctx: context.WithoutCancel(ctx)}, key); delErr != nil {
			log.Warn("orphan asset cleanup failed", "storage_key", key, "error", delErr)
		}
		return
	}
	if !applied {
		rep.AlreadyApplied++
		deps.Metrics.IncIngestItem(string(kind), "already_applied")
		return
	}
	rep.Ingested++
	deps.Metrics.IncIngestItem(string(kind), "ok")
	log.Debug("asset ingested", "sentence_id", o.UnitID, "storage_key", key, "bytes", len(body))
}

// StorageKey returns a fresh, never reused object key. Identical bytes uploaded
// twice get two keys.
func StorageKey(kind media.AssetKind, ownerID uuid.UUID, ext string) string {
	if ext == "" {
		ext = kind.Extension()
	}
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	owner := "anonymous"
	if ownerID != uuid.Nil {
		owner = ownerID.String()
	}
	return fmt.Sprintf("generated/%ss/%s/%s%s", kind, owner, uuid.NewString(), ext)
}

// Download fetches an asset over the shared client. data: URLs are decoded in
// place. Any non-2xx status is an error.
func Download(ctx context.Context, httpClient *http.Client, rawURL string, maxBytes int64) ([]byte, string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return nil, "", errors.New("empty asset url")
	}
	if strings.HasPrefix(rawURL, "data:") {
		return decodeDataURL(rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("download status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(body)) > maxBytes {
		return nil, "", fmt.Errorf("asset exceeds %d bytes", maxBytes)
	}
	if len(body) == 0 {
		return nil, "", errors.New("empty asset body")
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func decodeDataURL(raw string) ([]byte, string, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(raw, "data:"), ",")
	if !ok {
		return nil, "", errors.New("malformed data url")
	}
	contentType := strings.TrimSuffix(meta, ";base64")
	if !strings.HasSuffix(meta, ";base64") {
		return nil, "", errors.New("data url is not base64")
	}
	body, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("decode data url: %w", err)
	}
	if len(body) == 0 {
		return nil, "", errors.New("empty asset body")
	}
	return body, contentType, nil
}

func extensionFor(kind media.AssetKind, contentType string) string {
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return kind.Extension()
	}
	switch strings.ToLower(mt) {
	case "image/png":
		return ".png"
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "audio/mpeg", "audio/mp3":
		return ".mp3"
	case "audio/wav", "audio/x-wav":
		return ".wav"
	}
	return kind.Extension()
}

func countOK(outcomes []generation.Outcome) int {
	n := 0
	for _, o := range outcomes {
		if o.OK() {
			n++
		}
	}
	return n
}
