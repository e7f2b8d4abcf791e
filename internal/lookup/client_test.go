package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nerrors "github.com/julianstephens/nutrilog/internal/errors"
	"github.com/julianstephens/nutrilog/internal/models"
)

const nutellaJSON = `{
  "status": 1,
  "code": "3017620422003",
  "product": {
    "product_name": "Nutella",
    "brands": "Ferrero,Nutella",
    "serving_size": "15 g",
    "nutriments": {
      "energy-kcal_100g": 539,
      "proteins_100g": 6.3,
      "carbohydrates_100g": 57.5,
      "fat_100g": 30.9,
      "sugars_100g": 56.3,
      "sodium_100g": "0.0428"
    }
  }
}`

func newTestServer(t *testing.T, hits *int32, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		handler(w, r)
	}))
	t.Cleanup(server.Close)
	return NewClient(Options{BaseURL: server.URL, CacheTTL: time.Minute, Rate: 100, Burst: 10})
}

func TestNewClientDefaults(t *testing.T) {
	client := NewClient(Options{})

	assert.Equal(t, "https://world.openfoodfacts.org", client.baseURL)
	assert.NotNil(t, client.httpClient)
	assert.NotNil(t, client.rateLimiter)
	assert.Equal(t, 10*time.Second, client.httpClient.Timeout)
}

func TestLookup_Success(t *testing.T) {
	var hits int32
	client := newTestServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/product/3017620422003.json", r.URL.Path)
		assert.Contains(t, r.Header.Get("User-Agent"), "nutrilog")
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(nutellaJSON))
	})

	p, err := client.Lookup(context.Background(), "3017620422003")
	require.NoError(t, err)

	assert.Equal(t, "Nutella", p.Name)
	assert.Equal(t, "Ferrero Nutella", p.DisplayName())
	assert.Equal(t, "15 g", p.ServingSize)
	assert.Equal(t, models.Nutrients{
		Calories: 539, ProteinG: 6.3, CarbsG: 57.5, FatG: 30.9, SugarG: 56.3,
		SchemaVersion: models.CurrentSchema,
	}, p.Per100g)
	assert.InDelta(t, 0.0428, p.SodiumG, 1e-9)

	t.Run("cached", func(t *testing.T) {
		_, err := client.Lookup(context.Background(), "3017620422003")
		require.NoError(t, err)
		assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	})
}

func TestLookup_KilojouleFallback(t *testing.T) {
	var hits int32
	client := newTestServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":1,"product":{"product_name":"Crackers","nutriments":{"energy-kj_100g":2092,"fat_100g":"12"}}}`))
	})

	p, err := client.Lookup(context.Background(), "12345678")
	require.NoError(t, err)
	assert.InDelta(t, 500.0, p.Per100g.Calories, 1e-9)
	assert.Equal(t, 12.0, p.Per100g.FatG)
	assert.Equal(t, 0.0, p.Per100g.ProteinG)
}

func TestLookup_NotFound(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "status 0",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"status":0,"status_verbose":"product not found"}`))
			},
		},
		{
			name: "http 404",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var hits int32
			client := newTestServer(t, &hits, tt.handler)

			_, err := client.Lookup(context.Background(), "00000000")
			assert.ErrorIs(t, err, nerrors.ErrNotFound)

			_, err = client.Lookup(context.Background(), "00000000")
			assert.ErrorIs(t, err, nerrors.ErrNotFound)
			assert.Equal(t, int32(1), atomic.LoadInt32(&hits), "misses should be cached")
		})
	}
}

func TestLookup_Failures(t *testing.T) {
	t.Run("server error", func(t *testing.T) {
		var hits int32
		client := newTestServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("maintenance"))
		})

		_, err := client.Lookup(context.Background(), "12345678")
		assert.ErrorIs(t, err, ErrLookupFailed)
		assert.Contains(t, err.Error(), "503")

		// Failures are not cached
		client.Lookup(context.Background(), "12345678")
		assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
	})

	t.Run("invalid json", func(t *testing.T) {
		var hits int32
		client := newTestServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("{not json"))
		})
		_, err := client.Lookup(context.Background(), "12345678")
		assert.ErrorIs(t, err, ErrLookupFailed)
	})

	t.Run("invalid upc", func(t *testing.T) {
		client := NewClient(Options{BaseURL: "http://127.0.0.1:1"})
		_, err := client.Lookup(context.Background(), "abc")
		assert.ErrorIs(t, err, nerrors.ErrValidation)
	})

	t.Run("cancelled context", func(t *testing.T) {
		var hits int32
		client := newTestServer(t, &hits, func(w http.ResponseWriter, r *http.Request) {})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		_, err := client.Lookup(ctx, "12345678")
		assert.ErrorIs(t, err, ErrLookupFailed)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Zero(t, atomic.LoadInt32(&hits))
	})
}

func TestProductLibraryEntry(t *testing.T) {
	p := Product{UPC: "12345678", Per100g: models.Nutrients{Calories: 100}}

	entry, err := p.LibraryEntry("")
	require.NoError(t, err)
	assert.Equal(t, "12345678", entry.FoodName)

	entry, err = p.LibraryEntry("  Granola  ")
	require.NoError(t, err)
	assert.Equal(t, "Granola", entry.FoodName)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := newMemoryCache(time.Minute)
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	c.set("a", Product{Name: "A"}, true)
	_, ok := c.get("a")
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = c.get("a")
	assert.False(t, ok)

	c.set("b", Product{}, false)
	assert.Equal(t, 1, c.size(), "expired entries are dropped on write")

	disabled := newMemoryCache(0)
	disabled.set("a", Product{}, true)
	assert.Equal(t, 0, disabled.size())
}
