// Package images resolves a representative image URL per topic, with a
// curated fallback set so feeds never render without artwork.
package images

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// Finder resolves an image URL for a topic. Implementations never fail;
// they fall back to a curated image instead.
type Finder interface {
	Find(ctx context.Context, topic string) string
}

// UnsplashFinder queries the Unsplash search API, falling back to the
// curated set when the API is unavailable or returns nothing.
type UnsplashFinder struct {
	http      *resty.Client
	accessKey string
	log       zerolog.Logger
}

// NewUnsplashFinder builds a finder for the given base URL and access key.
func NewUnsplashFinder(baseURL, accessKey string, log zerolog.Logger) *UnsplashFinder {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(5 * time.Second)
	return &UnsplashFinder{http: client, accessKey: accessKey, log: log}
}

type searchResponse struct {
	Results []struct {
		URLs struct {
			Regular string `json:"regular"`
			Small   string `json:"small"`
		} `json:"urls"`
	} `json:"results"`
}

// Find returns an image URL for the topic.
func (f *UnsplashFinder) Find(ctx context.Context, topic string) string {
	if f.accessKey == "" {
		return FallbackImage(topic)
	}

	var out searchResponse
	resp, err := f.http.R().
		SetContext(ctx).
		SetHeader("Authorization", "Client-ID "+f.accessKey).
		SetQueryParams(map[string]string{
			"query":       topic,
			"per_page":    "1",
			"orientation": "landscape",
		}).
		SetResult(&out).
		Get("/search/photos")
	if err != nil || resp.IsError() || len(out.Results) == 0 {
		f.log.Debug().Str("topic", topic).Msg("unsplash lookup failed, using fallback image")
		return FallbackImage(topic)
	}
	if out.Results[0].URLs.Small != "" {
		return out.Results[0].URLs.Small
	}
	return out.Results[0].URLs.Regular
}

// fallbackImages maps topic keywords to curated Unsplash photos. Ordered so
// matching stays deterministic when a topic hits several keywords.
var fallbackImages = []struct {
	keyword string
	url     string
}{
	{"artificial intelligence", "https://images.unsplash.com/photo-1677442136019-21780ecad995?w=400"},
	{"technology", "https://images.unsplash.com/photo-1518709268805-4e9042af2176?w=400"},
	{"ai", "https://images.unsplash.com/photo-1677442136019-21780ecad995?w=400"},
	{"cryptocurrency", "https://images.unsplash.com/photo-1518546305927-5a555bb7020d?w=400"},
	{"crypto", "https://images.unsplash.com/photo-1518546305927-5a555bb7020d?w=400"},
	{"bitcoin", "https://images.unsplash.com/photo-1518546305927-5a555bb7020d?w=400"},
	{"tesla", "https://images.unsplash.com/photo-1560958089-b8a1929cea89?w=400"},
	{"apple", "https://images.unsplash.com/photo-1611186871348-b1ce696e52c9?w=400"},
	{"finance", "https://images.unsplash.com/photo-1590283603385-17ffb3a7f29f?w=400"},
	{"business", "https://images.unsplash.com/photo-1507003211169-0a1dd7228f2d?w=400"},
	{"ukraine", "https://images.unsplash.com/photo-1561542320-9a18cd340469?w=400"},
	{"war", "https://images.unsplash.com/photo-1561542320-9a18cd340469?w=400"},
	{"renewable energy", "https://images.unsplash.com/photo-1466611653911-95081537e5b7?w=400"},
	{"energy", "https://images.unsplash.com/photo-1466611653911-95081537e5b7?w=400"},
	{"solar", "https://images.unsplash.com/photo-1509391366360-2e959784a276?w=400"},
	{"stock", "https://images.unsplash.com/photo-1611974789855-9c2a0a7236a3?w=400"},
	{"news", "https://images.unsplash.com/photo-1504711434969-e33886168f5c?w=400"},
}

const defaultImage = "https://images.unsplash.com/photo-1504711434969-e33886168f5c?w=400"

// FallbackImage picks a curated image by keyword substring match on the
// lowercased topic.
func FallbackImage(topic string) string {
	lower := strings.ToLower(topic)
	for _, entry := range fallbackImages {
		if strings.Contains(lower, entry.keyword) {
			return entry.url
		}
	}
	return defaultImage
}
