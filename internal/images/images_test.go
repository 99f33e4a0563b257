package images

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestUnsplashFind(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/photos", r.URL.Path)
		assert.Equal(t, "Client-ID test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "quantum computing", r.URL.Query().Get("query"))
		assert.Equal(t, "1", r.URL.Query().Get("per_page"))
		assert.Equal(t, "landscape", r.URL.Query().Get("orientation"))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"results": []map[string]interface{}{
				{"urls": map[string]string{"small": "https://img.example/small.jpg", "regular": "https://img.example/regular.jpg"}},
			},
		})
	}))
	defer srv.Close()

	f := NewUnsplashFinder(srv.URL, "test-key", zerolog.Nop())
	assert.Equal(t, "https://img.example/small.jpg", f.Find(context.Background(), "quantum computing"))
}

func TestUnsplashFindFallsBackOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "rate limited", http.StatusForbidden)
	}))
	defer srv.Close()

	f := NewUnsplashFinder(srv.URL, "test-key", zerolog.Nop())
	assert.Equal(t, FallbackImage("tesla"), f.Find(context.Background(), "tesla"))
}

func TestUnsplashFindNoKey(t *testing.T) {
	f := NewUnsplashFinder("http://localhost:1", "", zerolog.Nop())
	assert.Equal(t, FallbackImage("bitcoin"), f.Find(context.Background(), "bitcoin"))
}

func TestFallbackImage(t *testing.T) {
	assert.Contains(t, FallbackImage("Tesla Stock"), "photo-1560958089")
	assert.Contains(t, FallbackImage("artificial intelligence research"), "photo-1677442136019")
	assert.Contains(t, FallbackImage("BITCOIN price"), "photo-1518546305927")
	assert.Equal(t, defaultImage, FallbackImage("gardening"))
}
