package draft

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/draftcut-backend/internal/modules/media/timeline"
)

const (
	Version = "5.9.0"

	ContentFileName = "draft_content.json"
	MetaFileName    = "draft_meta_info.json"
	MaterialsDir    = "draft_materials"
)

type CanvasConfig struct {
	Width  int    `json:"width"`
	Height int    `json:"height"`
	Ratio  string `json:"ratio"`
}

var DefaultCanvas = CanvasConfig{Width: 1920, Height: 1080, Ratio: "16:9"}

type ImageMaterial struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Duration int64  `json:"duration"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
	Type     string `json:"type"`
}

type AudioMaterial struct {
	ID       string `json:"id"`
	Path     string `json:"path"`
	Duration int64  `json:"duration"`
	Type     string `json:"type"`
}

type Materials struct {
	Images []ImageMaterial `json:"images"`
	Audios []AudioMaterial `json:"audios"`
}

type TimeRange struct {
	Start    int64 `json:"start"`
	Duration int64 `json:"duration"`
}

// Volume always renders with a decimal point, 1 as 1.0, which the editor expects.
type Volume float64

func (v Volume) MarshalJSON() ([]byte, error) {
	s := strconv.FormatFloat(float64(v), 'f', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return []byte(s), nil
}

type Segment struct {
	ID              string    `json:"id"`
	MaterialID      string    `json:"material_id"`
	TargetTimerange TimeRange `json:"target_timerange"`
	SourceTimerange TimeRange `json:"source_timerange"`
	Volume          *Volume   `json:"volume,omitempty"`
}

type Track struct {
	Type     string    `json:"type"`
	Segments []Segment `json:"segments"`
}

// Content is draft_content.json.
type Content struct {
	Version      string       `json:"version"`
	DraftID      string       `json:"draft_id"`
	DraftName    string       `json:"draft_name"`
	CreateTime   int64        `json:"create_time"`
	UpdateTime   int64        `json:"update_time"`
	Duration     int64        `json:"duration"`
	Materials    Materials    `json:"materials"`
	Tracks       []Track      `json:"tracks"`
	CanvasConfig CanvasConfig `json:"canvas_config"`
}

// MetaInfo is draft_meta_info.json.
type MetaInfo struct {
	DraftID      string       `json:"draft_id"`
	DraftName    string       `json:"draft_name"`
	DraftCover   string       `json:"draft_cover"`
	CreateTime   int64        `json:"create_time"`
	UpdateTime   int64        `json:"update_time"`
	Duration     int64        `json:"duration"`
	CanvasConfig CanvasConfig `json:"canvas_config"`
}

// Bundle is one exported draft: both files share the draft id and timestamps.
type Bundle struct {
	Content Content
	Meta    MetaInfo
}

type BuildInput struct {
	Name string
	// DraftID defaults to a random uuid in hex form.
	DraftID string
	Now     time.Time
	Canvas  *CanvasConfig
}

func NewDraftID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

func Build(tl timeline.Timeline, in BuildInput) Bundle {
	id := in.DraftID
	if id == "" {
		id = NewDraftID()
	}
	now := in.Now
	if now.IsZero() {
		now = time.Now()
	}
	ms := now.UnixMilli()
	canvas := DefaultCanvas
	if in.Canvas != nil {
		canvas = *in.Canvas
	}

	mats := Materials{Images: make([]ImageMaterial, 0, len(tl.Images)), Audios: make([]AudioMaterial, 0, len(tl.Audios))}
	for _, m := range tl.Images {
		mats.Images = append(mats.Images, ImageMaterial{ID: m.ID, Path: m.Path, Duration: m.Duration, Width: m.Width, Height: m.Height, Type: string(timeline.MaterialPhoto)})
	}
	for _, m := range tl.Audios {
		mats.Audios = append(mats.Audios, AudioMaterial{ID: m.ID, Path: m.Path, Duration: m.Duration, Type: string(timeline.MaterialAudio)})
	}

	content := Content{
		Version:    Version,
		DraftID:    id,
		DraftName:  in.Name,
		CreateTime: ms,
		UpdateTime: ms,
		Duration:   tl.Duration,
		Materials:  mats,
		Tracks: []Track{
			{Type: "video", Segments: toSegments(tl.Video)},
			{Type: "audio", Segments: toSegments(tl.Audio)},
		},
		CanvasConfig: canvas,
	}
	return Bundle{
		Content: content,
		Meta: MetaInfo{
			DraftID:      id,
			DraftName:    in.Name,
			DraftCover:   "",
			CreateTime:   ms,
			UpdateTime:   ms,
			Duration:     tl.Duration,
			CanvasConfig: canvas,
		},
	}
}

func toSegments(in []timeline.Segment) []Segment {
	out := make([]Segment, 0, len(in))
	for _, s := range in {
		seg := Segment{
			ID:              s.ID,
			MaterialID:      s.MaterialID,
			TargetTimerange: TimeRange{Start: s.Target.Start, Duration: s.Target.Duration},
			SourceTimerange: TimeRange{Start: s.Source.Start, Duration: s.Source.Duration},
		}
		if s.Volume != nil {
			v := Volume(*s.Volume)
			seg.Volume = &v
		}
		out = append(out, seg)
	}
	return out
}

// Marshal renders v as 2-space indented UTF-8 JSON without HTML escaping.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

func ParseContent(raw []byte) (Content, error) {
	var c Content
	if err := json.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", ContentFileName, err)
	}
	return c, nil
}
