package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/draftcut-backend/internal/data/repos"
	types "github.com/yungbote/draftcut-backend/internal/domain"
	"github.com/yungbote/draftcut-backend/internal/domain/media"
	"github.com/yungbote/draftcut-backend/internal/modules/media/generation"
	"github.com/yungbote/draftcut-backend/internal/modules/media/ingestion"
	"github.com/yungbote/draftcut-backend/internal/observability"
	"github.com/yungbote/draftcut-backend/internal/platform/dbctx"
	"github.com/yungbote/draftcut-backend/internal/platform/gcp"
	"github.com/yungbote/draftcut-backend/internal/platform/imagegen"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

// ProviderFactory builds an image provider bound to one credential.
type ProviderFactory func(cred *types.ProviderCredential) (imagegen.Provider, error)

// NewProviderFactory returns a factory for OpenAI-compatible endpoints. The
// credential's base URL wins over defaults.BaseURL.
func NewProviderFactory(log *logger.Logger, defaults imagegen.Config) ProviderFactory {
	return func(cred *types.ProviderCredential) (imagegen.Provider, error) {
		cfg := defaults
		cfg.APIKey = cred.APIKey
		if base := strings.TrimSpace(cred.BaseURL); base != "" {
			cfg.BaseURL = base
		}
		return imagegen.NewClient(log, cfg)
	}
}

type ImageGenerationConfig struct {
	Model string
	Size  string
	// MaxConcurrency caps every credential's own limit. Zero leaves the credential's limit alone.
	MaxConcurrency int
	MaxAssetBytes  int64
}

type GenerationSummary struct {
	Requested      int      `json:"requested"`
	Generated      int      `json:"generated"`
	Ingested       int      `json:"ingested"`
	AlreadyApplied int      `json:"already_applied"`
	Failed         int      `json:"failed"`
	Failures       []string `json:"failures,omitempty"`
}

type ImageGenerationService interface {
	// GenerateImages generates and stores one image per sentence. Per-sentence
	// failures are reported in the summary and never fail the call.
	GenerateImages(ctx context.Context, ownerID, credentialID uuid.UUID, sentenceIDs []uuid.UUID) (GenerationSummary, error)
}

type imageGenerationService struct {
	log         *logger.Logger
	cfg         ImageGenerationConfig
	sentences   repos.SentenceRepo
	chapters    repos.ChapterRepo
	credentials repos.CredentialRepo
	bucket      gcp.BucketService
	providers   ProviderFactory
	httpClient  *http.Client
	metrics     *observability.Metrics
}

func NewImageGenerationService(
	baseLog *logger.Logger,
	cfg ImageGenerationConfig,
	r repos.Repos,
	bucket gcp.BucketService,
	providers ProviderFactory,
	metrics *observability.Metrics,
) ImageGenerationService {
	return &imageGenerationService{
		log:         baseLog.With("service", "ImageGenerationService"),
		cfg:         cfg,
		sentences:   r.Sentence,
		chapters:    r.Chapter,
		credentials: r.Credential,
		bucket:      bucket,
		providers:   providers,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		metrics:     metrics,
	}
}

func (s *imageGenerationService) GenerateImages(ctx context.Context, ownerID, credentialID uuid.UUID, sentenceIDs []uuid.UUID) (GenerationSummary, error) {
	var sum GenerationSummary
	if ownerID == uuid.Nil {
		return sum, media.NewError(media.CodeValidation, "generate_images", "missing owner", nil)
	}
	dbc := dbctx.Context{Ctx: ctx}

	rows, err := s.ownedSentences(dbc, ownerID, dedupe(sentenceIDs))
	if err != nil {
		return sum, err
	}
	if len(rows) == 0 {
		return sum, media.NewError(media.CodeNotFound, "generate_images", "no pending sentences found", nil)
	}

	cred, err := s.credentials.GetOwned(dbc, ownerID, credentialID)
	if err != nil {
		return sum, err
	}
	if cred == nil {
		return sum, media.NewError(media.CodeNotFound, "generate_images", fmt.Sprintf("credential %s not found", credentialID), nil)
	}
	provider, err := s.providers(cred)
	if err != nil {
		return sum, media.Wrap(media.CodeProvider, "generate_images.provider", err)
	}

	limit := cred.Concurrency()
	if s.cfg.MaxConcurrency > 0 && s.cfg.MaxConcurrency < limit {
		limit = s.cfg.MaxConcurrency
	}
	items := make([]generation.Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, generation.Item{UnitID: row.ID, Prompt: row.ImagePrompt})
	}
	sum.Requested = len(items)

	log := s.log.With("owner_id", ownerID, "credential_id", cred.ID)
	log.Info("image generation started", "sentences", len(items), "max_concurrency", limit)

	gen := generation.Run(ctx, generation.Deps{
		Log:      s.log,
		Provider: provider,
		Metrics:  s.metrics,
	}, generation.Input{
		Items: items,
		Config: generation.ProviderConfig{
			Model:          s.cfg.Model,
			Size:           s.cfg.Size,
			N:              1,
			MaxConcurrency: limit,
		},
	})
	sum.Generated = gen.Succeeded

	rep, err := ingestion.Run(ctx, ingestion.Deps{
		Log:         s.log,
		HTTPClient:  s.httpClient,
		Bucket:      s.bucket,
		Sentences:   s.sentences,
		Credentials: s.credentials,
		Metrics:     s.metrics,
	}, ingestion.Input{
		OwnerID:       ownerID,
		CredentialID:  cred.ID,
		Kind:          media.AssetKindImage,
		Outcomes:      gen.Outcomes,
		MaxAssetBytes: s.cfg.MaxAssetBytes,
	})
	if err != nil {
		return sum, err
	}

	sum.Ingested = rep.Ingested
	sum.AlreadyApplied = rep.AlreadyApplied
	for _, o := range gen.Outcomes {
		if o.Err != nil {
			sum.Failures = append(sum.Failures, o.Err.Error())
		}
	}
	for _, f := range rep.Failures {
		sum.Failures = append(sum.Failures, f.Error())
	}
	sum.Failed = sum.Requested - sum.Ingested - sum.AlreadyApplied

	log.Info("image generation finished",
		"requested", sum.Requested,
		"generated", sum.Generated,
		"ingested", sum.Ingested,
		"failed", sum.Failed,
	)
	return sum, nil
}

// ownedSentences loads ids and keeps those whose chapter belongs to ownerID.
func (s *imageGenerationService) ownedSentences(dbc dbctx.Context, ownerID uuid.UUID, ids []uuid.UUID) ([]*types.Sentence, error) {
	rows, err := s.sentences.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	owned := map[uuid.UUID]bool{}
	out := make([]*types.Sentence, 0, len(rows))
	for _, row := range rows {
		ok, seen := owned[row.ChapterID]
		if !seen {
			ch, err := s.chapters.GetOwned(dbc, ownerID, row.ChapterID)
			if err != nil {
				return nil, err
			}
			ok = ch != nil
			owned[row.ChapterID] = ok
		}
		if ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if id == uuid.Nil {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
