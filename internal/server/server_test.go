package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/nutrilog/internal/backup"
	"github.com/julianstephens/nutrilog/internal/config"
	"github.com/julianstephens/nutrilog/internal/importer"
	"github.com/julianstephens/nutrilog/internal/lookup"
	"github.com/julianstephens/nutrilog/internal/models"
	"github.com/julianstephens/nutrilog/internal/nutrition"
	"github.com/julianstephens/nutrilog/internal/storage/sqlite"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type testEnv struct {
	router  *gin.Engine
	store   *sqlite.Store
	backups []backup.Reason
}

func setupTestServer(t *testing.T, mutate func(*Options)) *testEnv {
	t.Helper()
	store := sqlite.NewStore(filepath.Join(t.TempDir(), "nutrilog.db"))
	require.NoError(t, store.Init())
	t.Cleanup(func() { store.Close() })

	env := &testEnv{store: store}
	opts := Options{
		Store:   store,
		Config:  config.Default(),
		Columns: importer.ColumnMap{Name: 0, Calories: 1, Fat: 2, Carbs: 3, Sugar: 4, Protein: 5},
		Backup:  func(r backup.Reason) { env.backups = append(env.backups, r) },
		Now:     func() time.Time { return time.Date(2024, 1, 2, 12, 0, 0, 0, time.Local) },
	}
	if mutate != nil {
		mutate(&opts)
	}
	env.router = New(opts).Router()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthCheck(t *testing.T) {
	env := setupTestServer(t, nil)

	w := env.do(t, http.MethodGet, "/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	resp := decode[map[string]string](t, w)
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, "nutrilog", resp["service"])
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := setupTestServer(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func TestLibraryEndpoints(t *testing.T) {
	env := setupTestServer(t, nil)

	chicken := models.Nutrients{Calories: 165, ProteinG: 31, FatG: 3.6}
	w := env.do(t, http.MethodPut, "/api/v1/library/Chicken%20Breast", chicken)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPut, "/api/v1/library/Salt%2FPepper%20Mix", models.Nutrients{})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/v1/library/Chicken%20Breast", nil)
	require.Equal(t, http.StatusOK, w.Code)
	entry := decode[models.LibraryEntry](t, w)
	assert.Equal(t, "Chicken Breast", entry.FoodName)
	assert.Equal(t, 165.0, entry.Per100g.Calories)
	assert.Equal(t, models.SchemaV2, entry.Per100g.SchemaVersion)

	w = env.do(t, http.MethodGet, "/api/v1/library/Salt%2FPepper%20Mix", nil)
	assert.Equal(t, http.StatusOK, w.Code, "names containing a slash must round-trip")

	w = env.do(t, http.MethodGet, "/api/v1/library/chicken%20breast", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "names are case-sensitive")
	assert.Equal(t, "not_found", decode[map[string]string](t, w)["kind"])

	w = env.do(t, http.MethodGet, "/api/v1/library?q=CHICK", nil)
	require.Equal(t, http.StatusOK, w.Code)
	list := decode[struct {
		Entries []models.LibraryEntry `json:"entries"`
		Count   int                   `json:"count"`
	}](t, w)
	assert.Equal(t, 1, list.Count)

	w = env.do(t, http.MethodGet, "/api/v1/library?q=CHICK&case_sensitive=true", nil)
	assert.Equal(t, 0, decode[struct{ Count int }](t, w).Count)

	w = env.do(t, http.MethodGet, "/api/v1/library", nil)
	assert.Equal(t, 2, decode[struct{ Count int }](t, w).Count)
}

func TestPutLibraryEntryRejectsNegative(t *testing.T) {
	env := setupTestServer(t, nil)

	w := env.do(t, http.MethodPut, "/api/v1/library/Butter", models.Nutrients{FatG: -1})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation", decode[map[string]string](t, w)["kind"])
}

func TestAppendLogFromLibrary(t *testing.T) {
	env := setupTestServer(t, nil)
	require.NoError(t, env.store.UpsertLibraryEntry(models.LibraryEntry{
		FoodName: "Chicken Breast",
		Per100g:  models.Nutrients{Calories: 165, ProteinG: 31, FatG: 3.6, SchemaVersion: models.SchemaV2},
	}))

	w := env.do(t, http.MethodPost, "/api/v1/log", map[string]interface{}{
		"from_library": "Chicken Breast",
		"grams":        150,
		"meal_type":    "lunch",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	entry := decode[models.LogEntry](t, w)
	assert.Equal(t, "2024-01-02", entry.Date, "empty date means today")
	assert.Equal(t, models.MealLunch, entry.MealType)
	assert.InDelta(t, 247.5, entry.Nutrients.Calories, 1e-9)
	assert.InDelta(t, 46.5, entry.Nutrients.ProteinG, 1e-9)
	assert.InDelta(t, 5.4, entry.Nutrients.FatG, 1e-9)
}

func TestAppendLogValidation(t *testing.T) {
	env := setupTestServer(t, nil)
	require.NoError(t, env.store.UpsertLibraryEntry(models.LibraryEntry{FoodName: "Oats", Per100g: models.Nutrients{Calories: 389}}))

	tests := []struct {
		name   string
		body   interface{}
		status int
	}{
		{"malformed json", "{", http.StatusBadRequest},
		{"zero grams", map[string]interface{}{"from_library": "Oats", "grams": 0}, http.StatusBadRequest},
		{"unknown library food", map[string]interface{}{"from_library": "Nope", "grams": 10}, http.StatusNotFound},
		{"missing nutrients", map[string]interface{}{"food_name": "Soup"}, http.StatusBadRequest},
		{"blank name", map[string]interface{}{"food_name": " ", "nutrients": map[string]float64{"calories": 1}}, http.StatusBadRequest},
		{"bad meal", map[string]interface{}{"food_name": "Soup", "meal_type": "Brunch", "nutrients": map[string]float64{}}, http.StatusBadRequest},
		{"bad date", map[string]interface{}{"food_name": "Soup", "date": "2024-13-01", "nutrients": map[string]float64{}}, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPost, "/api/v1/log", tt.body)
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}

	entries, err := env.store.GetAllLogEntries()
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected requests must not write")
}

func TestLogLifecycle(t *testing.T) {
	env := setupTestServer(t, nil)

	add := func(date, name string, calories float64) models.LogEntry {
		w := env.do(t, http.MethodPost, "/api/v1/log", map[string]interface{}{
			"date": date, "food_name": name, "meal_type": "Dinner",
			"nutrients": map[string]float64{"calories": calories},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		return decode[models.LogEntry](t, w)
	}
	first := add("2024-01-01", "Pasta", 300)
	add("2024-01-01", "Salad", 450)
	add("2024-01-02", "Soup", 200)

	w := env.do(t, http.MethodGet, "/api/v1/days/2024-01-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	summary := decode[nutrition.DaySummary](t, w)
	assert.InDelta(t, 750, summary.Total.Calories, 1e-9)
	require.Len(t, summary.Meals, 1)
	assert.Equal(t, 2, summary.Meals[0].Count)

	w = env.do(t, http.MethodGet, "/api/v1/dates", nil)
	assert.Equal(t, []string{"2024-01-02", "2024-01-01"}, decode[map[string][]string](t, w)["dates"])

	w = env.do(t, http.MethodDelete, "/api/v1/log/"+itoa(first.ID), nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = env.do(t, http.MethodDelete, "/api/v1/log/"+itoa(first.ID), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = env.do(t, http.MethodDelete, "/api/v1/log/abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/log/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	latest := decode[map[string]models.LogEntry](t, w)["deleted"]
	assert.Equal(t, "Soup", latest.FoodName)

	w = env.do(t, http.MethodDelete, "/api/v1/log?date=2024-01-01", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 1.0, decode[map[string]interface{}](t, w)["deleted"])
	assert.Equal(t, []backup.Reason{backup.ReasonDeleteDay}, env.backups)

	w = env.do(t, http.MethodDelete, "/api/v1/log/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[map[string]interface{}](t, w)["deleted"], "empty log is a no-op")

	w = env.do(t, http.MethodGet, "/api/v1/days/2024-01-01", nil)
	summary = decode[nutrition.DaySummary](t, w)
	assert.Empty(t, summary.Entries)
	assert.Zero(t, summary.Total.Calories)
}

func TestDeleteByDateRequiresDate(t *testing.T) {
	env := setupTestServer(t, nil)

	w := env.do(t, http.MethodDelete, "/api/v1/log", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = env.do(t, http.MethodDelete, "/api/v1/log?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.backups)
}

func TestImportLibrary(t *testing.T) {
	env := setupTestServer(t, nil)
	csvBody := "name,cal,fat,carbs,sugar,protein\n" +
		"Oats,389,6.9,66,1,16.9\n" +
		",1,1,1,1,1\n" +
		"Caf\xe9 Latte,50,N/A,5,5,3\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "export.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(csvBody))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/library/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[importer.Result](t, w)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Errors, 1)
	assert.Equal(t, []backup.Reason{backup.ReasonImport}, env.backups)

	latte, err := env.store.GetLibraryEntry("Café Latte")
	require.NoError(t, err)
	assert.Zero(t, latte.Per100g.FatG)
}

func TestImportLibraryRawBodyWithColumnOverride(t *testing.T) {
	env := setupTestServer(t, nil)
	body := "header\n389,Oats,6.9,66,1,16.9\n"

	q := url.Values{"name": {"1"}, "calories": {"A"}}
	w := env.do(t, http.MethodPost, "/api/v1/library/import?"+q.Encode(), body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	oats, err := env.store.GetLibraryEntry("Oats")
	require.NoError(t, err)
	assert.Equal(t, 389.0, oats.Per100g.Calories)

	w = env.do(t, http.MethodPost, "/api/v1/library/import?fat=%3F", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestImportLibraryTooLarge(t *testing.T) {
	env := setupTestServer(t, func(o *Options) {
		cfg := config.Default()
		cfg.Server.MaxUploadBytes = 64
		o.Config = cfg
	})

	body := "header\n" + strings.Repeat("Oats,1,1,1,1,1\n", 20)
	w := env.do(t, http.MethodPost, "/api/v1/library/import", body)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	entries, err := env.store.ListLibraryEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRateLimit(t *testing.T) {
	env := setupTestServer(t, func(o *Options) {
		cfg := config.Default()
		cfg.Server.RateLimit = 0.001
		cfg.Server.Burst = 2
		o.Config = cfg
	})

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)
	assert.Equal(t, http.StatusOK, env.do(t, http.MethodGet, "/health", nil).Code)
	w := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "1", w.Header().Get("Retry-After"))
}

func TestLookupProduct(t *testing.T) {
	off := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v0/product/3017620422003.json":
			w.Write([]byte(`{"status":1,"product":{"product_name":"Nutella","nutriments":{"energy-kcal_100g":539}}}`))
		case "/api/v0/product/00000000.json":
			w.Write([]byte(`{"status":0}`))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer off.Close()

	env := setupTestServer(t, func(o *Options) {
		o.Lookup = lookup.NewClient(lookup.Options{BaseURL: off.URL, Rate: 100, Burst: 10})
	})

	w := env.do(t, http.MethodGet, "/api/v1/lookup/3017620422003", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "Nutella", decode[lookup.Product](t, w).Name)

	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodGet, "/api/v1/lookup/00000000", nil).Code)
	assert.Equal(t, http.StatusBadGateway, env.do(t, http.MethodGet, "/api/v1/lookup/11111111", nil).Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/api/v1/lookup/abc", nil).Code)
}

func TestLookupDisabled(t *testing.T) {
	env := setupTestServer(t, nil)

	w := env.do(t, http.MethodGet, "/api/v1/lookup/3017620422003", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestPutLibraryEntryLegacySchemaDropsSugar(t *testing.T) {
	env := setupTestServer(t, nil)

	body := map[string]interface{}{"calories": 42, "protein_g": 3.4, "carbs_g": 5, "fat_g": 1, "sugar_g": 5, "schema_version": 1}
	w := env.do(t, http.MethodPut, "/api/v1/library/Milk", body)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	echoed := decode[models.LibraryEntry](t, w)
	stored, err := env.store.GetLibraryEntry("Milk")
	require.NoError(t, err)
	assert.Zero(t, echoed.Per100g.SugarG)
	assert.Equal(t, stored.Per100g, echoed.Per100g)
}

func TestImportLibraryMultipartTooLarge(t *testing.T) {
	env := setupTestServer(t, func(o *Options) {
		cfg := config.Default()
		cfg.Server.MaxUploadBytes = 512
		o.Config = cfg
	})

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "export.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte("header\n" + strings.Repeat("Oats,1,1,1,1,1\n", 400)))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/library/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
	assert.Empty(t, env.backups)
	entries, err := env.store.ListLibraryEntries()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRateLimitPerClient(t *testing.T) {
	env := setupTestServer(t, func(o *Options) {
		cfg := config.Default()
		cfg.Server.RateLimit = 0.001
		cfg.Server.Burst = 1
		o.Config = cfg
	})

	from := func(addr string) int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = addr
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, from("198.51.100.7:4000"))
	assert.Equal(t, http.StatusTooManyRequests, from("198.51.100.7:4001"))
	// Another client has its own bucket
	assert.Equal(t, http.StatusOK, from("203.0.113.9:4000"))
}

func TestLookupProductCancelledRequest(t *testing.T) {
	env := setupTestServer(t, func(o *Options) {
		o.Lookup = lookup.NewClient(lookup.Options{BaseURL: "http://127.0.0.1:1", Rate: 100, Burst: 10})
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/lookup/3017620422003", nil).WithContext(ctx)
	w := httptest.NewRecorder()
	env.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadGateway, w.Code, w.Body.String())
}
