package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/draftcut-backend/internal/data/repos"
	"github.com/yungbote/draftcut-backend/internal/domain/media"
	"github.com/yungbote/draftcut-backend/internal/modules/media/export"
	"github.com/yungbote/draftcut-backend/internal/platform/dbctx"
	"github.com/yungbote/draftcut-backend/internal/platform/locks"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

type ExportResult struct {
	FileName      string `json:"filename"`
	ArchivePath   string `json:"-"`
	Size          int64  `json:"size"`
	DraftID       string `json:"draft_id"`
	Duration      int64  `json:"duration"`
	MissingAssets int    `json:"missing_assets"`
	Warnings      int    `json:"warnings"`
}

type ExportService interface {
	// ExportChapter packages an owned chapter into a draft archive. Exports of
	// the same chapter never run concurrently.
	ExportChapter(ctx context.Context, ownerID, chapterID uuid.UUID) (ExportResult, error)
	// OpenArchive resolves a previously produced archive by file name.
	OpenArchive(fileName string) (string, error)
	// SweepExpired deletes archives older than olderThan.
	SweepExpired(ctx context.Context, olderThan time.Duration) (int, error)
}

type exportService struct {
	log       *logger.Logger
	chapters  repos.ChapterRepo
	sentences repos.SentenceRepo
	packager  *export.Packager
	locker    locks.Locker
	now       func() time.Time
}

func NewExportService(baseLog *logger.Logger, r repos.Repos, packager *export.Packager, locker locks.Locker) ExportService {
	if locker == nil {
		locker = locks.NewKeyedMutex()
	}
	return &exportService{
		log:       baseLog.With("service", "ExportService"),
		chapters:  r.Chapter,
		sentences: r.Sentence,
		packager:  packager,
		locker:    locker,
		now:       time.Now,
	}
}

func exportLockKey(chapterID uuid.UUID) string {
	return "export:chapter:" + chapterID.String()
}

func (s *exportService) ExportChapter(ctx context.Context, ownerID, chapterID uuid.UUID) (ExportResult, error) {
	var out ExportResult
	dbc := dbctx.Context{Ctx: ctx}

	ch, err := s.chapters.GetOwned(dbc, ownerID, chapterID)
	if err != nil {
		return out, media.AsExportError(chapterID, err)
	}
	if ch == nil {
		return out, media.AsExportError(chapterID,
			media.NewError(media.CodeNotFound, "export", fmt.Sprintf("chapter %s not found", chapterID), nil))
	}

	release, err := s.locker.Acquire(ctx, exportLockKey(chapterID))
	if err != nil {
		return out, media.AsExportError(chapterID, media.Wrap(media.CodeInternal, "export.lock", err))
	}
	defer release()

	// Load after taking the lock so the export sees the latest committed assets.
	sentences, err := s.sentences.ListByChapter(dbc, chapterID)
	if err != nil {
		return out, media.AsExportError(chapterID, err)
	}
	res, err := s.packager.Export(ctx, ch, sentences)
	if err != nil {
		s.log.Warn("export failed", "chapter_id", chapterID, "error", err)
		return out, err
	}
	return ExportResult{
		FileName:      res.FileName,
		ArchivePath:   res.ArchivePath,
		Size:          res.Size,
		DraftID:       res.DraftID,
		Duration:      res.Duration,
		MissingAssets: res.MissingAssets,
		Warnings:      len(res.Warnings),
	}, nil
}

func (s *exportService) OpenArchive(fileName string) (string, error) {
	path, err := export.ResolveArchive(s.packager.OutputDir(), fileName)
	if err != nil {
		if errors.Is(err, export.ErrArchiveNotFound) {
			return "", media.NewError(media.CodeNotFound, "export.download", "file does not exist or has expired", err)
		}
		return "", err
	}
	return path, nil
}

func (s *exportService) SweepExpired(ctx context.Context, olderThan time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n, err := export.SweepExpired(s.packager.OutputDir(), olderThan, s.now())
	if n > 0 {
		s.log.Info("expired archives removed", "count", n, "older_than", olderThan.String())
	}
	if err != nil {
		s.log.Warn("archive sweep incomplete", "error", err)
	}
	return n, err
}
