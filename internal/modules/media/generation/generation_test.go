package generation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/draftcut-backend/internal/domain/media"
	"github.com/yungbote/draftcut-backend/internal/platform/imagegen"
	"github.com/yungbote/draftcut-backend/internal/platform/logger"
)

type fakeProvider struct {
	mu       sync.Mutex
	calls    int
	inflight int32
	maxSeen  int32
	delay    time.Duration
	failFor  map[string]bool
	block    chan struct{}
}

func (p *fakeProvider) GenerateImage(ctx context.Context, req imagegen.ImageRequest) ([]imagegen.ImageResult, error) {
	p.mu.Lock()
	p.calls++
	p.mu.Unlock()

	n := atomic.AddInt32(&p.inflight, 1)
	defer atomic.AddInt32(&p.inflight, -1)
	for {
		cur := atomic.LoadInt32(&p.maxSeen)
		if n <= cur || atomic.CompareAndSwapInt32(&p.maxSeen, cur, n) {
			break
		}
	}

	if p.block != nil {
		select {
		case <-p.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if p.delay > 0 {
		time.Sleep(p.delay)
	}
	if p.failFor[req.Prompt] {
		return nil, errors.New("provider exploded")
	}
	return []imagegen.ImageResult{{URL: "https://provider/" + req.Prompt + ".png"}}, nil
}

func items(n int) []Item {
	out := make([]Item, n)
	for i := range out {
		out[i] = Item{UnitID: uuid.New(), Prompt: fmt.Sprintf("p%d", i)}
	}
	return out
}

func TestRunNeverExceedsConcurrencyLimit(t *testing.T) {
	p := &fakeProvider{delay: 5 * time.Millisecond}
	var observed, observedMax int32
	deps := Deps{
		Log:      logger.NewNop(),
		Provider: p,
		Observer: Observer{
			OnStart: func(uuid.UUID) {
				n := atomic.AddInt32(&observed, 1)
				for {
					cur := atomic.LoadInt32(&observedMax)
					if n <= cur || atomic.CompareAndSwapInt32(&observedMax, cur, n) {
						break
					}
				}
			},
			OnFinish: func(uuid.UUID, time.Duration, error) { atomic.AddInt32(&observed, -1) },
		},
	}

	out := Run(context.Background(), deps, Input{Items: items(20), Config: ProviderConfig{MaxConcurrency: 3}})
	if out.Succeeded != 20 || out.Failed != 0 {
		t.Fatalf("counts: want=20/0 got=%d/%d", out.Succeeded, out.Failed)
	}
	if p.maxSeen > 3 {
		t.Fatalf("provider concurrency: want<=3 got=%d", p.maxSeen)
	}
	if observedMax > 3 {
		t.Fatalf("observer concurrency: want<=3 got=%d", observedMax)
	}
}

func TestRunDefaultConcurrencyIsFive(t *testing.T) {
	p := &fakeProvider{delay: 5 * time.Millisecond}
	Run(context.Background(), Deps{Provider: p}, Input{Items: items(12)})
	if p.maxSeen > DefaultMaxConcurrency {
		t.Fatalf("default concurrency: want<=%d got=%d", DefaultMaxConcurrency, p.maxSeen)
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	in := items(4)
	p := &fakeProvider{failFor: map[string]bool{in[2].Prompt: true}}

	out := Run(context.Background(), Deps{Provider: p}, Input{Items: in})
	if out.Succeeded != 3 || out.Failed != 1 {
		t.Fatalf("counts: want=3/1 got=%d/%d", out.Succeeded, out.Failed)
	}
	for i, o := range out.Outcomes {
		if o.UnitID != in[i].UnitID {
			t.Fatalf("outcome[%d] unit: want=%s got=%s", i, in[i].UnitID, o.UnitID)
		}
	}
	failed := out.Outcomes[2]
	if !media.IsCode(failed.Err, media.CodeProvider) {
		t.Fatalf("failure code: want=%s got=%v", media.CodeProvider, failed.Err)
	}
	var mErr *media.Error
	if !errors.As(failed.Err, &mErr) || mErr.UnitID != in[2].UnitID {
		t.Fatalf("failure must carry the unit id, got %v", failed.Err)
	}
	if out.Outcomes[0].AssetURL != "https://provider/p0.png" {
		t.Fatalf("asset url: got=%s", out.Outcomes[0].AssetURL)
	}
}

func TestRunCancelledSkipsProvider(t *testing.T) {
	p := &fakeProvider{block: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan Output, 1)
	go func() {
		done <- Run(ctx, Deps{Provider: p}, Input{Items: items(6), Config: ProviderConfig{MaxConcurrency: 2}})
	}()

	// Wait until both slots are busy, then cancel.
	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&p.inflight) < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("provider calls never started")
		}
		time.Sleep(time.Millisecond)
	}
	cancel()

	out := <-done
	if out.Failed != 6 {
		t.Fatalf("failed: want=6 got=%d", out.Failed)
	}
	p.mu.Lock()
	calls := p.calls
	p.mu.Unlock()
	if calls != 2 {
		t.Fatalf("provider calls: want=2 got=%d", calls)
	}
	for _, o := range out.Outcomes {
		if !errors.Is(o.Err, context.Canceled) {
			t.Fatalf("want context.Canceled, got %v", o.Err)
		}
	}
}

func TestRunEmptyPromptIsValidationFailure(t *testing.T) {
	p := &fakeProvider{}
	out := Run(context.Background(), Deps{Provider: p}, Input{Items: []Item{{UnitID: uuid.New(), Prompt: "  "}}})
	if !media.IsCode(out.Outcomes[0].Err, media.CodeValidation) {
		t.Fatalf("want validation failure, got %v", out.Outcomes[0].Err)
	}
	if p.calls != 0 {
		t.Fatalf("provider must not be called, calls=%d", p.calls)
	}
}
