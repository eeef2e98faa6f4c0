package generation

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/draftcut-backend/internal/domain/media"
	"github.com/yungbote/draftcut-backend/internal/observability"
	"github.com/yungbote/draftcut-backend/internal/platform/imagegen"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

const DefaultMaxConcurrency = 5

// Item is one sentence waiting for an image.
type Item struct {
	UnitID uuid.UUID
	Prompt string
}

type ProviderConfig struct {
	Model string
	Size  string
	N     int
	// MaxConcurrency bounds in-flight provider calls. Zero means DefaultMaxConcurrency.
	MaxConcurrency int
}

// Outcome is the per-sentence result. Exactly one of AssetURL and Err is set.
type Outcome struct {
	UnitID   uuid.UUID
	AssetURL string
	Err      error
}

func (o Outcome) OK() bool { return o.Err == nil && o.AssetURL != "" }

// Observer receives call lifecycle events. Both hooks are optional and may be
// invoked concurrently.
type Observer struct {
	OnStart  func(unitID uuid.UUID)
	OnFinish func(unitID uuid.UUID, dur time.Duration, err error)
}

type Deps struct {
	Log      *logger.Logger
	Provider imagegen.Provider
	Metrics  *observability.Metrics
	Observer Observer
}

type Input struct {
	Items  []Item
	Config ProviderConfig
}

type Output struct {
	// Outcomes is index aligned with Input.Items.
	Outcomes  []Outcome
	Succeeded int
	Failed    int
}

// Run calls the provider once per item with at most MaxConcurrency calls in
// flight. One item failing never cancels the others, and Run returns only once
// every outcome is known. Once ctx is cancelled, items that have not started
// fail without reaching the provider.
func Run(ctx context.Context, deps Deps, in Input) Output {
	out := Output{Outcomes: make([]Outcome, len(in.Items))}
	if len(in.Items) == 0 {
		return out
	}
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	log = log.With("step", "ImageGeneration")

	maxConc := in.Config.MaxConcurrency
	if maxConc <= 0 {
		maxConc = DefaultMaxConcurrency
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConc)

	for i := range in.Items {
		idx := i
		item := in.Items[i]
		g.Go(func() error {
			out.Outcomes[idx] = generateOne(gctx, deps, log, item, in.Config)
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range out.Outcomes {
		if o.OK() {
			out.Succeeded++
		} else {
			out.Failed++
		}
	}
	log.Info("image generation finished",
		"items", len(in.Items),
		"succeeded", out.Succeeded,
		"failed", out.Failed,
		"max_concurrency", maxConc,
	)
	return out
}

func generateOne(ctx context.Context, deps Deps, log *logger.Logger, item Item, cfg ProviderConfig) Outcome {
	res := Outcome{UnitID: item.UnitID}
	if err := ctx.Err(); err != nil {
		res.Err = media.UnitError(media.CodeProvider, "generate_image", item.UnitID, err)
		return res
	}
	prompt := strings.TrimSpace(item.Prompt)
	if prompt == "" {
		res.Err = media.UnitError(media.CodeValidation, "generate_image", item.UnitID, errors.New("empty image prompt"))
		return res
	}
	if deps.Provider == nil {
		res.Err = media.UnitError(media.CodeProvider, "generate_image", item.UnitID, errors.New("no image provider configured"))
		return res
	}

	ctx, span := observability.Tracer().Start(ctx, "imagegen.generate")
	span.SetAttributes(
		attribute.String("sentence.id", item.UnitID.String()),
		attribute.String("image.model", cfg.Model),
	)
	defer span.End()

	if deps.Observer.OnStart != nil {
		deps.Observer.OnStart(item.UnitID)
	}
	start := time.Now()
	results, err := deps.Provider.GenerateImage(ctx, imagegen.ImageRequest{
		Prompt: prompt,
		Model:  cfg.Model,
		Size:   cfg.Size,
		N:      cfg.N,
	})
	if err == nil && (len(results) == 0 || strings.TrimSpace(results[0].URL) == "") {
		err = errors.New("provider returned no image url")
	}
	dur := time.Since(start)
	if deps.Observer.OnFinish != nil {
		deps.Observer.OnFinish(item.UnitID, dur, err)
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provider call failed")
		deps.Metrics.ObserveProviderCall("failed", dur)
		log.Warn("image generation failed", "sentence_id", item.UnitID, "elapsed_ms", dur.Milliseconds(), "error", err)
		res.Err = media.UnitError(media.CodeProvider, "generate_image", item.UnitID, err)
		return res
	}
	deps.Metrics.ObserveProviderCall("ok", dur)
	res.AssetURL = strings.TrimSpace(results[0].URL)
	return res
}
