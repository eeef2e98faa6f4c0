package media

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// MarkMaterialUpdated invalidates any cached video. Callers that change an
// input of the rendered segment must call it; SetImageURL and SetAudioURL do.
func (s *Sentence) MarkMaterialUpdated() {
	s.NeedsRegenerationFlag = true
}

// SaveCache records the encoder output for the sentence's current inputs.
// It is the only writer that clears the regeneration flag.
func (s *Sentence) SaveCache(key string, durationSeconds int, now time.Time) {
	k := key
	d := durationSeconds
	at := now.UTC()
	s.CachedVideoKey = &k
	s.CachedVideoDuration = &d
	s.NeedsRegenerationFlag = false
	s.CachedFingerprint = s.Fingerprint()
	s.LastCachedAt = &at
}

// Fingerprint identifies the input materials a cached video was rendered from.
func (s *Sentence) Fingerprint() string {
	h := sha256.New()
	h.Write([]byte(deref(s.ImageURL)))
	h.Write([]byte{0})
	h.Write([]byte(deref(s.AudioURL)))
	return hex.EncodeToString(h.Sum(nil))
}

// NeedsRegeneration is true when the flag is set or the inputs changed since
// the cache was saved, even if the change bypassed MarkMaterialUpdated.
func (s *Sentence) NeedsRegeneration() bool {
	if s.NeedsRegenerationFlag {
		return true
	}
	return s.CachedFingerprint != s.Fingerprint()
}

func (s *Sentence) HasValidCache() bool {
	return s.CachedVideoKey != nil && !s.NeedsRegeneration()
}

func (s *Sentence) SetImageURL(url string) {
	u := url
	s.ImageURL = &u
	s.MarkMaterialUpdated()
}

// SetAudioURL updates the audio reference. A nil duration keeps the previous one.
func (s *Sentence) SetAudioURL(url string, durationSeconds *float64) {
	u := url
	s.AudioURL = &u
	if durationSeconds != nil {
		d := *durationSeconds
		s.AudioDuration = &d
	}
	s.MarkMaterialUpdated()
}

// SetAsset routes to SetImageURL or SetAudioURL by kind.
func (s *Sentence) SetAsset(kind AssetKind, url string, durationSeconds *float64) {
	if kind == AssetKindAudio {
		s.SetAudioURL(url, durationSeconds)
		return
	}
	s.SetImageURL(url)
}

// AssetURL returns the stored reference for kind, or "" if missing.
func (s *Sentence) AssetURL(kind AssetKind) string {
	if kind == AssetKindAudio {
		return deref(s.AudioURL)
	}
	return deref(s.ImageURL)
}

// CacheUpdates is the column set persisted after SaveCache.
func (s *Sentence) CacheUpdates() map[string]interface{} {
	return map[string]interface{}{
		"cached_video_key":      s.CachedVideoKey,
		"cached_video_duration": s.CachedVideoDuration,
		"needs_regeneration":    s.NeedsRegenerationFlag,
		"cached_fingerprint":    s.CachedFingerprint,
		"last_cached_at":        s.LastCachedAt,
	}
}

// AssetUpdates is the column set persisted after an asset reference changes.
func (s *Sentence) AssetUpdates() map[string]interface{} {
	return map[string]interface{}{
		"image_url":          s.ImageURL,
		"audio_url":          s.AudioURL,
		"audio_duration":     s.AudioDuration,
		"needs_regeneration": s.NeedsRegenerationFlag,
		"status":             s.Status,
	}
}

// CacheState is the read model of a sentence's cache.
type CacheState struct {
	HasValidCache       bool       `json:"has_valid_cache"`
	NeedsRegeneration   bool       `json:"needs_regeneration"`
	CachedVideoKey      string     `json:"cached_video_key,omitempty"`
	CachedVideoDuration int        `json:"cached_video_duration,omitempty"`
	LastCachedAt        *time.Time `json:"last_cached_at,omitempty"`
	Fingerprint         string     `json:"fingerprint"`
}

func (s *Sentence) CacheState() CacheState {
	st := CacheState{
		HasValidCache:     s.HasValidCache(),
		NeedsRegeneration: s.NeedsRegeneration(),
		CachedVideoKey:    deref(s.CachedVideoKey),
		LastCachedAt:      s.LastCachedAt,
		Fingerprint:       s.Fingerprint(),
	}
	if s.CachedVideoDuration != nil {
		st.CachedVideoDuration = *s.CachedVideoDuration
	}
	return st
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
