package timeline

import (
	"fmt"
	"math"

	"github.com/google/uuid"
)

const (
	MicrosPerSecond        = 1_000_000
	DefaultDurationSeconds = 3.0
	DefaultImageWidth      = 1920
	DefaultImageHeight     = 1080
)

// DriftPolicy decides what happens to a sentence that has exactly one of
// image and audio, which would shift the two tracks against each other.
type DriftPolicy string

const (
	// DriftWarn places whatever assets exist and reports a Warning per sentence.
	DriftWarn DriftPolicy = "warn"
	// DriftRequireBoth drops sentences missing either asset from both tracks.
	DriftRequireBoth DriftPolicy = "require_both"
)

func ParseDriftPolicy(s string) (DriftPolicy, error) {
	switch DriftPolicy(s) {
	case "", DriftWarn:
		return DriftWarn, nil
	case DriftRequireBoth:
		return DriftRequireBoth, nil
	}
	return "", fmt.Errorf("unknown drift policy %q", s)
}

// MaterialRecord is what one sentence contributes to the draft. Paths are
// relative to the draft root and empty when the asset is missing.
type MaterialRecord struct {
	UnitID    uuid.UUID
	ImagePath string
	AudioPath string
	// AudioDurationSeconds is nil when unknown.
	AudioDurationSeconds *float64
	ImageWidth           int
	ImageHeight          int
}

func (r MaterialRecord) HasImage() bool { return r.ImagePath != "" }
func (r MaterialRecord) HasAudio() bool { return r.AudioPath != "" }

// DurationMicros resolves the sentence's duration. Without a known duration
// it falls back to defaultSeconds.
func (r MaterialRecord) DurationMicros(defaultSeconds float64) int64 {
	sec := defaultSeconds
	if r.AudioDurationSeconds != nil && *r.AudioDurationSeconds > 0 {
		sec = *r.AudioDurationSeconds
	}
	return SecondsToMicros(sec)
}

func SecondsToMicros(s float64) int64 {
	return int64(math.Round(s * MicrosPerSecond))
}

type MaterialKind string

const (
	MaterialPhoto MaterialKind = "photo"
	MaterialAudio MaterialKind = "audio"
)

type Material struct {
	ID       string
	UnitID   uuid.UUID
	Kind     MaterialKind
	Path     string
	Duration int64
	Width    int
	Height   int
}

type TimeRange struct {
	Start    int64
	Duration int64
}

func (r TimeRange) End() int64 { return r.Start + r.Duration }

type Segment struct {
	ID         string
	MaterialID string
	UnitID     uuid.UUID
	Target     TimeRange
	Source     TimeRange
	// Volume is set on audio segments only.
	Volume *float64
}

type Warning struct {
	UnitID uuid.UUID
	// Missing is "image" or "audio".
	Missing string
	// Skew is video end minus audio end after this sentence, in microseconds.
	Skew    int64
	Dropped bool
}

func (w Warning) String() string {
	if w.Dropped {
		return fmt.Sprintf("sentence %s dropped: missing %s", w.UnitID, w.Missing)
	}
	return fmt.Sprintf("sentence %s missing %s, track skew %dus", w.UnitID, w.Missing, w.Skew)
}

type Options struct {
	DriftPolicy            DriftPolicy
	DefaultDurationSeconds float64
}

type Timeline struct {
	Images   []Material
	Audios   []Material
	Video    []Segment
	Audio    []Segment
	VideoEnd int64
	AudioEnd int64
	// Duration is the end of the longer track.
	Duration int64
	Warnings []Warning
}

// Assemble lays records out in the given order on two independent tracks.
// A sentence with an image advances only the video offset, one with audio only
// the audio offset.
func Assemble(records []MaterialRecord, opts Options) Timeline {
	policy := opts.DriftPolicy
	if policy == "" {
		policy = DriftWarn
	}
	defSec := opts.DefaultDurationSeconds
	if defSec <= 0 {
		defSec = DefaultDurationSeconds
	}

	var tl Timeline
	var videoOffset, audioOffset int64
	for _, r := range records {
		hasImage, hasAudio := r.HasImage(), r.HasAudio()
		if !hasImage && !hasAudio {
			continue
		}
		if hasImage != hasAudio && policy == DriftRequireBoth {
			tl.Warnings = append(tl.Warnings, Warning{UnitID: r.UnitID, Missing: missingKind(hasImage), Dropped: true})
			continue
		}

		d := r.DurationMicros(defSec)
		id := r.UnitID.String()

		if hasImage {
			w, h := r.ImageWidth, r.ImageHeight
			if w <= 0 {
				w = DefaultImageWidth
			}
			if h <= 0 {
				h = DefaultImageHeight
			}
			mat := Material{ID: "image_" + id, UnitID: r.UnitID, Kind: MaterialPhoto, Path: r.ImagePath, Duration: d, Width: w, Height: h}
			tl.Images = append(tl.Images, mat)
			tl.Video = append(tl.Video, Segment{
				ID:         "segment_video_" + id,
				MaterialID: mat.ID,
				UnitID:     r.UnitID,
				Target:     TimeRange{Start: videoOffset, Duration: d},
				Source:     TimeRange{Start: 0, Duration: d},
			})
			videoOffset += d
		}
		if hasAudio {
			vol := 1.0
			mat := Material{ID: "audio_" + id, UnitID: r.UnitID, Kind: MaterialAudio, Path: r.AudioPath, Duration: d}
			tl.Audios = append(tl.Audios, mat)
			tl.Audio = append(tl.Audio, Segment{
				ID:         "segment_audio_" + id,
				MaterialID: mat.ID,
				UnitID:     r.UnitID,
				Target:     TimeRange{Start: audioOffset, Duration: d},
				Source:     TimeRange{Start: 0, Duration: d},
				Volume:     &vol,
			})
			audioOffset += d
		}
		if hasImage != hasAudio {
			tl.Warnings = append(tl.Warnings, Warning{UnitID: r.UnitID, Missing: missingKind(hasImage), Skew: videoOffset - audioOffset})
		}
	}

	tl.VideoEnd = videoOffset
	tl.AudioEnd = audioOffset
	tl.Duration = max(videoOffset, audioOffset)
	return tl
}

func missingKind(hasImage bool) string {
	if hasImage {
		return "audio"
	}
	return "image"
}
