package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yungbote/draftcut-backend/internal/domain/media"
	"github.com/yungbote/draftcut-backend/internal/modules/media/draft"
	"github.com/yungbote/draftcut-backend/internal/modules/media/timeline"
	"github.com/yungbote/draftcut-backend/internal/observability"
	"github.com/yungbote/draftcut-backend/internal/platform/gcp"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

const (
	workDirPattern      = "jianying_export_"
	fallbackTitle       = "chapter"
	defaultOutputSubdir = "draftcut_exports"
	minArchiveBytes     = 100
	imagesSubdir        = draft.MaterialsDir + "/images"
	audiosSubdir        = draft.MaterialsDir + "/audios"
	defaultFetchTime    = 60 * time.Second
)

type Config struct {
	// WorkRoot holds per-export temp dirs. Empty means os.TempDir().
	WorkRoot string
	// OutputDir receives finished archives and is swept for expired zips.
	// Empty means os.TempDir()/draftcut_exports.
	OutputDir   string
	DriftPolicy timeline.DriftPolicy
}

type Deps struct {
	Log    *logger.Logger
	Bucket gcp.BucketService
	// HTTPClient fetches materials whose reference is an http(s) URL instead of a storage key.
	HTTPClient *http.Client
	Metrics    *observability.Metrics
	Now        func() time.Time
}

type Result struct {
	ArchivePath string
	FileName    string
	Size        int64
	DraftID     string
	Duration    int64
	// MissingAssets counts references that could not be fetched and were left out.
	MissingAssets int
	Warnings      []timeline.Warning
}

type Packager struct {
	cfg  Config
	deps Deps
	log  *logger.Logger
}

func NewPackager(deps Deps, cfg Config) *Packager {
	if deps.HTTPClient == nil {
		deps.HTTPClient = &http.Client{Timeout: defaultFetchTime}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	if cfg.WorkRoot == "" {
		cfg.WorkRoot = os.TempDir()
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = filepath.Join(os.TempDir(), defaultOutputSubdir)
	}
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &Packager{cfg: cfg, deps: deps, log: log.With("service", "DraftPackager")}
}

func (p *Packager) OutputDir() string { return p.cfg.OutputDir }

// Export builds the draft for chapter from sentences (already in reading order)
// and returns the archive. Every failure is an *media.ExportError; on failure no
// archive is left behind. The temp working dir is removed on every path.
func (p *Packager) Export(ctx context.Context, chapter *media.Chapter, sentences []*media.Sentence) (res Result, err error) {
	var chapterID uuid.UUID
	if chapter != nil {
		chapterID = chapter.ID
	}
	ctx, span := observability.Tracer().Start(ctx, "export.package")
	span.SetAttributes(attribute.String("chapter.id", chapterID.String()), attribute.Int("sentences", len(sentences)))
	start := p.deps.Now()
	defer func() {
		status := "ok"
		if err != nil {
			status = string(media.CodeOf(err))
			if status == "" {
				status = "failed"
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "export failed")
		}
		p.deps.Metrics.ObserveExport(status, p.deps.Now().Sub(start))
		span.End()
		err = media.AsExportError(chapterID, err)
	}()

	if chapter == nil {
		return res, media.NewError(media.CodeNotFound, "export", "chapter not found", nil)
	}
	if !chapter.ExportReady() {
		return res, media.NewError(media.CodeState, "export",
			fmt.Sprintf("chapter status is %q, want %q", chapter.Status, media.ChapterStatusMaterialsPrepared), nil)
	}
	if len(sentences) == 0 {
		return res, media.NewError(media.CodeEmptyData, "export", "chapter has no sentences", nil)
	}

	log := p.log.With("chapter_id", chapter.ID)

	if err := os.MkdirAll(p.cfg.WorkRoot, 0o755); err != nil {
		return res, media.Wrap(media.CodePackaging, "export.workdir", err)
	}
	workDir, err := os.MkdirTemp(p.cfg.WorkRoot, workDirPattern)
	if err != nil {
		return res, media.Wrap(media.CodePackaging, "export.workdir", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(workDir); rmErr != nil {
			log.Warn("work dir cleanup failed", "dir", workDir, "error", rmErr)
		}
	}()

	draftDirName := "draft_" + randomHex8()
	draftDir := filepath.Join(workDir, draftDirName)
	for _, sub := range []string{imagesSubdir, audiosSubdir} {
		if err := os.MkdirAll(filepath.Join(draftDir, filepath.FromSlash(sub)), 0o755); err != nil {
			return res, media.Wrap(media.CodePackaging, "export.layout", err)
		}
	}

	records, missing := p.fetchMaterials(ctx, log, draftDir, sentences)
	if err := ctx.Err(); err != nil {
		return res, media.Wrap(media.CodeInternal, "export.materials", err)
	}

	tl := timeline.Assemble(records, timeline.Options{DriftPolicy: p.cfg.DriftPolicy})
	for _, w := range tl.Warnings {
		log.Warn("timeline drift", "sentence_id", w.UnitID, "missing", w.Missing, "skew_us", w.Skew, "dropped", w.Dropped)
	}

	bundle := draft.Build(tl, draft.BuildInput{Name: chapter.Title, Now: p.deps.Now()})
	if err := draft.Validate(bundle.Content); err != nil {
		return res, media.Wrap(media.CodePackaging, "export.validate", err)
	}
	if err := writeJSON(filepath.Join(draftDir, draft.ContentFileName), bundle.Content); err != nil {
		return res, media.Wrap(media.CodePackaging, "export.write_content", err)
	}
	if err := writeJSON(filepath.Join(draftDir, draft.MetaFileName), bundle.Meta); err != nil {
		return res, media.Wrap(media.CodePackaging, "export.write_meta", err)
	}

	fileName := ArchiveName(chapter.Title)
	archivePath, size, err := p.writeArchive(draftDir, fileName)
	if err != nil {
		return res, media.Wrap(media.CodePackaging, "export.archive", err)
	}
	if size < minArchiveBytes {
		log.Warn("archive suspiciously small", "archive", fileName, "bytes", size)
	}

	log.Info("chapter exported",
		"archive", fileName,
		"bytes", size,
		"draft_id", bundle.Content.DraftID,
		"duration_us", tl.Duration,
		"video_segments", len(tl.Video),
		"audio_segments", len(tl.Audio),
		"missing_assets", missing,
	)
	return Result{
		ArchivePath:   archivePath,
		FileName:      fileName,
		Size:          size,
		DraftID:       bundle.Content.DraftID,
		Duration:      tl.Duration,
		MissingAssets: missing,
		Warnings:      tl.Warnings,
	}, nil
}

// fetchMaterials copies each sentence's assets into the draft. A failed fetch is
// logged and the asset is left out, which leaves a gap in its track.
func (p *Packager) fetchMaterials(ctx context.Context, log *logger.Logger, draftDir string, sentences []*media.Sentence) ([]timeline.MaterialRecord, int) {
	records := make([]timeline.MaterialRecord, 0, len(sentences))
	missing := 0
	for _, s := range sentences {
		if s == nil {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		rec := timeline.MaterialRecord{UnitID: s.ID}
		if ref := s.AssetURL(media.AssetKindImage); ref != "" {
			rel := imagesSubdir + "/" + s.ID.String() + media.AssetKindImage.Extension()
			if err := p.fetch(ctx, ref, filepath.Join(draftDir, filepath.FromSlash(rel))); err != nil {
				missing++
				log.Warn("image fetch failed", "sentence_id", s.ID, "ref", ref, "error", err)
			} else {
				rec.ImagePath = rel
			}
		}
		if ref := s.AssetURL(media.AssetKindAudio); ref != "" {
			rel := audiosSubdir + "/" + s.ID.String() + media.AssetKindAudio.Extension()
			if err := p.fetch(ctx, ref, filepath.Join(draftDir, filepath.FromSlash(rel))); err != nil {
				missing++
				log.Warn("audio fetch failed", "sentence_id", s.ID, "ref", ref, "error", err)
			} else {
				rec.AudioPath = rel
				// Duration only counts when the audio actually made it into the draft.
				rec.AudioDurationSeconds = s.AudioDuration
			}
		}
		records = append(records, rec)
	}
	return records, missing
}

func (p *Packager) fetch(ctx context.Context, ref, localPath string) error {
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return httpDownloadToPath(ctx, p.deps.HTTPClient, ref, localPath)
	}
	if p.deps.Bucket == nil {
		return errors.New("no storage configured")
	}
	return p.deps.Bucket.DownloadToPath(ctx, ref, localPath)
}

func httpDownloadToPath(ctx context.Context, client *http.Client, url, localPath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("download status %d", resp.StatusCode)
	}
	f, err := os.Create(localPath)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, resp.Body); err != nil {
		_ = f.Close()
		_ = os.Remove(localPath)
		return err
	}
	return f.Close()
}

func writeJSON(path string, v any) error {
	raw, err := draft.Marshal(v)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

func randomHex8() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
