package httpapi

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	sqlite "github.com/glebarez/sqlite"
	json "github.com/goccy/go-json"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/guyt101z/ichnaea/internal/apierr"
	"github.com/guyt101z/ichnaea/internal/config"
	"github.com/guyt101z/ichnaea/internal/domain"
	"github.com/guyt101z/ichnaea/internal/repo"
)

const routerSeed = `
api_keys:
  - key: test
    shortname: test
  - key: once
    max_requests: 1
cells:
  - {radio: gsm, mcc: 262, mnc: 1, lac: 10, cid: 100, lat: 52.52, lon: 13.40, range: 1500}
wifis:
  - {key: "00:11:22:33:44:55", lat: 52.5200, lon: 13.4000, range: 40}
  - {key: "00:11:22:33:44:66", lat: 52.5210, lon: 13.4010, range: 60}
`

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "router.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	if _, err := repo.ApplySeed(context.Background(), db, strings.NewReader(routerSeed)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return db
}

func testConfig() config.Config {
	return config.Config{
		APIBasePath:    "/",
		RateRPS:        100,
		RateBurst:      10,
		MinWifiMatches: 2,
		CacheSize:      100,
		CacheTTL:       time.Minute,
		CORS:           config.CORSConfig{},
		Security:       config.SecurityConfig{EnableHSTS: false},
		OTEL:           config.OTELConfig{ServiceName: "test-svc"},
	}
}

func newRouter(t *testing.T, cfg config.Config) *gin.Engine {
	t.Helper()
	r, _ := newRouterWithDB(t, cfg)
	return r
}

func newRouterWithDB(t *testing.T, cfg config.Config) (*gin.Engine, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	db := newTestDB(t)
	RegisterRoutes(r, db, cfg)
	return r, db
}

func post(r http.Handler, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

func TestRegisterRoutes_HealthMetricsFallbacks(t *testing.T) {
	r := newRouter(t, testConfig())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("AllowAllOrigins expected '*', got %q", got)
	}
	if got := w.Header().Get("Cache-Control"); !strings.Contains(got, "no-store") {
		t.Fatalf("expected no-store, got %q", got)
	}
	if rid := w.Header().Get("X-Request-ID"); rid == "" {
		t.Fatalf("expected X-Request-ID header to be set")
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || w.Body.Len() == 0 {
		t.Fatalf("GET /metrics bad: code=%d len=%d", w.Code, w.Body.Len())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("GET /nope expected 404, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/health", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("POST /health expected 405, got %d", w.Code)
	}

	// Swagger is off unless enabled.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("swagger should be disabled, got %d", w.Code)
	}
}

func TestRegisterRoutes_CORSWithOrigins_HeaderEcho(t *testing.T) {
	cfg := testConfig()
	cfg.CORS = config.CORSConfig{AllowedOrigins: []string{"http://example.com"}}
	r := newRouter(t, cfg)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://example.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "http://example.com" {
		t.Fatalf("expected ACAO echo, got %q", got)
	}
}

func TestRegisterRoutes_Gzip(t *testing.T) {
	r := newRouter(t, testConfig())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Accept-Encoding", "gzip")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("GET /health = %d", w.Code)
	}
	if got := w.Header().Get("Content-Encoding"); got != "gzip" {
		t.Fatalf("expected gzip encoding, got %q", got)
	}
}

func TestRegisterRoutes_Swagger(t *testing.T) {
	cfg := testConfig()
	cfg.SwaggerEnabled = true
	r := newRouter(t, cfg)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("GET /swagger/doc.json = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "/v1/geolocate") {
		t.Fatalf("doc.json missing geolocate path: %s", w.Body.String())
	}
}

func TestGeolocate_WifiFix(t *testing.T) {
	r := newRouter(t, testConfig())

	w := post(r, "/v1/geolocate?key=test", `{"wifiAccessPoints": [
		{"macAddress": "00:11:22:33:44:55", "signalStrength": -50},
		{"macAddress": "00-11-22-33-44-66"},
		{"macAddress": "ff:ff:ff:ff:ff:ff"}
	]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("geolocate = %d body=%s", w.Code, w.Body.String())
	}
	var got struct {
		Location struct{ Lat, Lng float64 }
		Accuracy float64
	}
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if math.Abs(got.Location.Lat-52.5205) > 1e-9 || math.Abs(got.Location.Lng-13.4005) > 1e-9 {
		t.Fatalf("unexpected location %+v", got.Location)
	}
	if got.Accuracy != 100 {
		t.Fatalf("accuracy = %v, want 100", got.Accuracy)
	}
}

func TestGeolocate_CellFix(t *testing.T) {
	r := newRouter(t, testConfig())

	w := post(r, "/v1/geolocate?key=test", `{"radioType": "gsm", "cellTowers": [
		{"mobileCountryCode": 262, "mobileNetworkCode": 1, "locationAreaCode": 10, "cellId": 100}
	]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("geolocate = %d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"accuracy":1500`) {
		t.Fatalf("expected cell range as accuracy: %s", w.Body.String())
	}
}

func TestGeolocate_Errors(t *testing.T) {
	r := newRouter(t, testConfig())

	cases := []struct {
		name   string
		path   string
		body   string
		status int
		reason string
	}{
		{"missing key", "/v1/geolocate", `{}`, http.StatusBadRequest, "keyInvalid"},
		{"unknown key", "/v1/geolocate?key=nope", `{}`, http.StatusBadRequest, "keyInvalid"},
		{"bad json", "/v1/geolocate?key=test", `{"cellTowers": 5`, http.StatusBadRequest, "parseError"},
		{"nothing known", "/v1/geolocate?key=test", `{"wifiAccessPoints": [{"macAddress": "ab:cd:ef:01:02:03"}]}`, http.StatusNotFound, "notFound"},
	}
	for _, tc := range cases {
		w := post(r, tc.path, tc.body)
		if w.Code != tc.status {
			t.Fatalf("%s: status = %d, want %d (%s)", tc.name, w.Code, tc.status, w.Body.String())
		}
		var env apierr.ErrorEnvelope
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if len(env.Error.Errors) != 1 || env.Error.Errors[0].Reason != tc.reason {
			t.Fatalf("%s: envelope = %+v", tc.name, env)
		}
	}
}

func TestGeolocate_DailyLimit(t *testing.T) {
	r := newRouter(t, testConfig())

	if w := post(r, "/v1/geolocate?key=once", `{}`); w.Code != http.StatusNotFound {
		t.Fatalf("first request = %d, want 404", w.Code)
	}
	w := post(r, "/v1/geolocate?key=once", `{}`)
	if w.Code != http.StatusForbidden || !strings.Contains(w.Body.String(), "dailyLimitExceeded") {
		t.Fatalf("second request = %d %s", w.Code, w.Body.String())
	}
}

func TestSearch_OKAndNotFound(t *testing.T) {
	cfg := testConfig()
	cfg.APIBasePath = "/api"
	r := newRouter(t, cfg)

	w := post(r, "/api/v1/search?key=test", `{"radio": "gsm", "cell": [{"mcc": 262, "mnc": 1, "lac": 10, "cid": 100}]}`)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"status":"ok"`) {
		t.Fatalf("search = %d %s", w.Code, w.Body.String())
	}

	w = post(r, "/api/v1/search?key=test", `{"cell": [{"radio": "gsm", "mcc": 262, "mnc": 1, "lac": 10, "cid": 999}]}`)
	if w.Code != http.StatusOK || w.Body.String() != `{"status":"not_found"}` {
		t.Fatalf("not found = %d %q", w.Code, w.Body.String())
	}

	// Not mounted at the root when a base path is set.
	if w := post(r, "/v1/search?key=test", `{}`); w.Code != http.StatusNotFound {
		t.Fatalf("root mount should 404, got %d", w.Code)
	}
}

func TestRegisterRoutes_RateLimitPerKey(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.0001
	cfg.RateBurst = 1
	r := newRouter(t, cfg)

	if w := post(r, "/v1/geolocate?key=test", `{}`); w.Code != http.StatusNotFound {
		t.Fatalf("first = %d", w.Code)
	}
	if w := post(r, "/v1/geolocate?key=test", `{}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("second = %d, want 429", w.Code)
	}
}

func TestRegisterRoutes_RateLimitedRequestsDoNotCountUsage(t *testing.T) {
	cfg := testConfig()
	cfg.RateRPS = 0.0001
	cfg.RateBurst = 1
	r, db := newRouterWithDB(t, cfg)
	ctx := context.Background()

	if w := post(r, "/v1/geolocate?key=once", `{}`); w.Code != http.StatusNotFound {
		t.Fatalf("first = %d", w.Code)
	}
	for i := 0; i < 3; i++ {
		if w := post(r, "/v1/geolocate?key=once", `{}`); w.Code != http.StatusTooManyRequests {
			t.Fatalf("burst request %d = %d, want 429", i, w.Code)
		}
	}
	n, err := repo.Usage(ctx, db, "once", repo.UsageDay(time.Now()))
	if err != nil || n != 1 {
		t.Fatalf("usage = %d, %v; want 1", n, err)
	}

	// Unknown keys are throttled before the key lookup, per raw key value.
	if w := post(r, "/v1/geolocate?key=bogus", `{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("unknown key = %d, want 400", w.Code)
	}
	if w := post(r, "/v1/geolocate?key=bogus", `{}`); w.Code != http.StatusTooManyRequests {
		t.Fatalf("unknown key again = %d, want 429", w.Code)
	}
}

func Test_apiKeyStoreShim(t *testing.T) {
	db := newTestDB(t)
	s := apiKeyStoreShim{db: db}
	ctx := context.Background()

	k, err := s.GetAPIKey(ctx, "missing")
	if k != nil || err != nil {
		t.Fatalf("unknown key = %v, %v; want nil, nil", k, err)
	}
	k, err = s.GetAPIKey(ctx, "test")
	if err != nil || k == nil || k.Shortname != "test" {
		t.Fatalf("GetAPIKey(test) = %+v, %v", k, err)
	}
	// 23:30 on Jan 1 at UTC-5 is Jan 2 in UTC.
	at := time.Date(2026, 1, 1, 23, 30, 0, 0, time.FixedZone("EST", -5*3600))
	for want := int64(1); want <= 2; want++ {
		n, err := s.IncrementUsage(ctx, "test", at)
		if err != nil || n != want {
			t.Fatalf("IncrementUsage = %d, %v; want %d", n, err, want)
		}
	}
	if n, err := repo.Usage(ctx, db, "test", "2026-01-02"); err != nil || n != 2 {
		t.Fatalf("Usage(2026-01-02) = %d, %v; want 2", n, err)
	}
	if n, _ := repo.Usage(ctx, db, "test", "2026-01-01"); n != 0 {
		t.Fatalf("local day must not be used, got %d", n)
	}
}

func Test_stationRepoShim(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	cells, err := stationRepoShim{}.FindCells(ctx, db, nil)
	if err != nil || len(cells) != 0 {
		t.Fatalf("FindCells(nil) = %v, %v", cells, err)
	}
	wifis, err := stationRepoShim{}.FindWifis(ctx, db, []domain.Key{(&domain.WifiLookup{Key: "001122334455"}).HashKey()})
	if err != nil || len(wifis) != 1 || wifis[0].Range != 40 {
		t.Fatalf("FindWifis = %+v, %v", wifis, err)
	}
}

func Test_limitBody_Middleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	// tiny cap to trigger MaxBytesReader
	r.Use(limitBody(10))
	r.POST("/echo", func(c *gin.Context) {
		_, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.String(http.StatusRequestEntityTooLarge, "too big")
			return
		}
		c.String(http.StatusOK, "ok")
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewBufferString("0123456789AB")) // 12 bytes
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413 from limitBody, got %d", w.Code)
	}
}

func Test_groupWithPrefix(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	groupWithPrefix(r, "/").GET("/one", func(c *gin.Context) { c.String(http.StatusOK, "one") })
	groupWithPrefix(r, "").GET("/two", func(c *gin.Context) { c.String(http.StatusOK, "two") })
	groupWithPrefix(r, "/api").GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })

	for path, want := range map[string]string{"/one": "one", "/two": "two", "/api/ping": "pong"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK || rec.Body.String() != want {
			t.Fatalf("GET %s got %d %q", path, rec.Code, rec.Body.String())
		}
	}
}
