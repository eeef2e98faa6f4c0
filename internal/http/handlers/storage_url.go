package handlers

import (
	"strings"

	types "github.com/yungbote/draftcut-backend/internal/domain"
	"github.com/yungbote/draftcut-backend/internal/platform/gcp"
)

// resolveBucketBackedURL turns a stored reference into something a client can
// fetch. References that already are URLs pass through.
func resolveBucketBackedURL(bucket gcp.BucketService, ref *string) string {
	if ref == nil {
		return ""
	}
	key := strings.TrimSpace(*ref)
	if key == "" || bucket == nil || isURL(key) {
		return key
	}
	if resolved := strings.TrimSpace(bucket.GetPublicURL(key)); resolved != "" {
		return resolved
	}
	return key
}

func isURL(s string) bool {
	l := strings.ToLower(s)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://") || strings.HasPrefix(l, "data:")
}

type sentenceView struct {
	*types.Sentence
	ImagePublicURL string           `json:"image_public_url,omitempty"`
	AudioPublicURL string           `json:"audio_public_url,omitempty"`
	Cache          types.CacheState `json:"cache"`
}

func newSentenceView(bucket gcp.BucketService, s *types.Sentence) sentenceView {
	return sentenceView{
		Sentence:       s,
		ImagePublicURL: resolveBucketBackedURL(bucket, s.ImageURL),
		AudioPublicURL: resolveBucketBackedURL(bucket, s.AudioURL),
		Cache:          s.CacheState(),
	}
}
