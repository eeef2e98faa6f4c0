package draft

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/draftcut-backend/internal/modules/media/timeline"
)

func f64(v float64) *float64 { return &v }

func sampleTimeline() timeline.Timeline {
	return timeline.Assemble([]timeline.MaterialRecord{
		{UnitID: uuid.New(), ImagePath: "draft_materials/images/a.jpg", AudioPath: "draft_materials/audios/a.mp3", AudioDurationSeconds: f64(2.5)},
		{UnitID: uuid.New(), ImagePath: "draft_materials/images/b.jpg"},
		{UnitID: uuid.New(), AudioPath: "draft_materials/audios/c.mp3", AudioDurationSeconds: f64(1)},
	}, timeline.Options{})
}

func TestBuildSharesIDAndTimestamps(t *testing.T) {
	now := time.UnixMilli(1_700_000_000_123)
	b := Build(sampleTimeline(), BuildInput{Name: "第一章 <intro>", Now: now})

	if b.Content.DraftID == "" || b.Content.DraftID != b.Meta.DraftID {
		t.Fatalf("draft id: content=%s meta=%s", b.Content.DraftID, b.Meta.DraftID)
	}
	if len(b.Content.DraftID) != 32 || strings.Contains(b.Content.DraftID, "-") {
		t.Fatalf("draft id must be uuid hex, got=%s", b.Content.DraftID)
	}
	if b.Content.CreateTime != 1_700_000_000_123 || b.Meta.UpdateTime != b.Content.UpdateTime {
		t.Fatalf("timestamps: content=%d/%d meta=%d", b.Content.CreateTime, b.Content.UpdateTime, b.Meta.UpdateTime)
	}
	if b.Content.Version != Version || b.Content.CanvasConfig != DefaultCanvas {
		t.Fatalf("header: version=%s canvas=%+v", b.Content.Version, b.Content.CanvasConfig)
	}
	if b.Meta.Duration != b.Content.Duration {
		t.Fatalf("meta duration: want=%d got=%d", b.Content.Duration, b.Meta.Duration)
	}
}

func TestMarshalLayout(t *testing.T) {
	b := Build(sampleTimeline(), BuildInput{Name: "A & B <c>", DraftID: "abc"})
	raw, err := Marshal(b.Content)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	s := string(raw)
	if !strings.HasPrefix(s, "{\n  \"version\": \"5.9.0\",\n  \"draft_id\": \"abc\",") {
		t.Fatalf("field order or indent wrong:\n%s", s[:80])
	}
	if !strings.Contains(s, `"draft_name": "A & B <c>"`) {
		t.Fatalf("html must not be escaped")
	}
	if !strings.Contains(s, `"volume": 1.0`) {
		t.Fatalf("volume must render as 1.0")
	}
	if strings.Count(s, `"volume"`) != 2 {
		t.Fatalf("volume only on audio segments, count=%d", strings.Count(s, `"volume"`))
	}
	if !strings.Contains(s, `"type": "photo"`) || !strings.Contains(s, `"ratio": "16:9"`) {
		t.Fatalf("missing material type or canvas ratio")
	}
	if strings.HasSuffix(s, "\n") {
		t.Fatalf("trailing newline should be trimmed")
	}
}

func TestRoundTripValidates(t *testing.T) {
	b := Build(sampleTimeline(), BuildInput{Name: "x"})
	raw, err := Marshal(b.Content)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	parsed, err := ParseContent(raw)
	if err != nil {
		t.Fatalf("ParseContent: %v", err)
	}
	if err := Validate(parsed); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(parsed.Materials.Images) != 2 || len(parsed.Materials.Audios) != 2 {
		t.Fatalf("materials: images=%d audios=%d", len(parsed.Materials.Images), len(parsed.Materials.Audios))
	}
	if parsed.Tracks[1].Segments[0].Volume == nil || *parsed.Tracks[1].Segments[0].Volume != 1.0 {
		t.Fatalf("volume lost in round trip")
	}
	// Video: 2.5s + 3s default; audio: 2.5s + 1s.
	if parsed.Duration != 5_500_000 {
		t.Fatalf("duration: want=5500000 got=%d", parsed.Duration)
	}
}

func TestValidateCatchesBrokenDrafts(t *testing.T) {
	b := Build(sampleTimeline(), BuildInput{Name: "x"})
	c := b.Content
	c.Tracks[0].Segments[1].TargetTimerange.Start = 10
	c.Duration++
	if err := Validate(c); err == nil {
		t.Fatalf("overlap and wrong duration: want error")
	}

	c = Build(sampleTimeline(), BuildInput{Name: "x"}).Content
	c.Tracks[0].Segments = append(c.Tracks[0].Segments, c.Tracks[0].Segments[0])
	if err := Validate(c); err == nil {
		t.Fatalf("material referenced twice: want error")
	}
}

func TestVolumeMarshal(t *testing.T) {
	for in, want := range map[Volume]string{1: "1.0", 0.5: "0.5", 0: "0.0"} {
		got, _ := in.MarshalJSON()
		if string(got) != want {
			t.Fatalf("Volume(%v): want=%s got=%s", float64(in), want, got)
		}
	}
}
