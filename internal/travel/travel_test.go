package travel

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
)

func kyoto() []domain.Place {
	return []domain.Place{
		domain.NewHotel(35.0116, 135.7681),
		{Name: "Fushimi Inari Taisha", Latitude: 34.9671, Longitude: 135.7727},
		{Name: "Kinkaku-ji", Latitude: 35.0394, Longitude: 135.7292},
	}
}

func testConfig(apiKey string) *config.Config {
	cfg := &config.Config{}
	cfg.Google.APIKey = apiKey
	cfg.Google.TravelMode = "WALK"
	cfg.Google.RequestTimeout = 5
	cfg.Google.FallbackSpeedKm = 30
	return cfg
}

func TestEstimator(t *testing.T) {
	places := kyoto()
	m, err := NewEstimator(30).Matrix(context.Background(), places)
	require.NoError(t, err)

	require.Equal(t, []string{domain.HotelName, "Fushimi Inari Taisha", "Kinkaku-ji"}, m.Places)
	for i := range places {
		assert.Zero(t, m.Duration[i][i])
		assert.Zero(t, m.Distance[i][i])
		for j := range places {
			assert.Equal(t, m.Duration[i][j], m.Duration[j][i])
		}
	}

	// 酒店到伏见稻荷大社约 5 千米，30 km/h 约 10 分钟
	assert.InDelta(t, 4960, m.Distance[0][1], 100)
	assert.InDelta(t, 9, m.Duration[0][1], 1)
}

func TestEstimatorDefaultSpeed(t *testing.T) {
	assert.Equal(t, 30.0, NewEstimator(0).SpeedKmh)
}

func TestParseDuration(t *testing.T) {
	cases := map[string]int{
		"":      0,
		"0s":    0,
		"59s":   0,
		"60s":   1,
		"123s":  2,
		"3600s": 60,
		"90.5s": 1,
	}
	for in, want := range cases {
		got, err := parseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := parseDuration("two minutes")
	require.Error(t, err)
}

func TestRoutesClient(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "test-key", r.Header.Get("X-Goog-Api-Key"))
		assert.Contains(t, r.Header.Get("X-Goog-FieldMask"), "distanceMeters")

		var req routeMatrixRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "WALK", req.TravelMode)
		assert.Len(t, req.Origins, 3)
		assert.Len(t, req.Destinations, 3)
		assert.InDelta(t, 35.0116, req.Origins[0].Waypoint.Location.LatLng.Latitude, 1e-9)

		// originIndex 为 0 时 Google 会省略该字段
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"destinationIndex": 1, "duration": "600s", "distanceMeters": 5000, "condition": "ROUTE_EXISTS"},
			{"destinationIndex": 2, "duration": "1799s", "distanceMeters": 4200, "condition": "ROUTE_EXISTS"},
			{"duration": "0s", "condition": "ROUTE_EXISTS"},
			{"originIndex": 1, "duration": "610s", "distanceMeters": 5010, "condition": "ROUTE_EXISTS"},
			{"originIndex": 1, "destinationIndex": 1, "condition": "ROUTE_EXISTS"},
			{"originIndex": 1, "destinationIndex": 2, "duration": "3000s", "distanceMeters": 9000, "condition": "ROUTE_EXISTS"},
			{"originIndex": 2, "duration": "1800s", "distanceMeters": 4300, "condition": "ROUTE_EXISTS"},
			{"originIndex": 2, "destinationIndex": 1, "duration": "2990s", "distanceMeters": 9100, "condition": "ROUTE_EXISTS"},
			{"originIndex": 2, "destinationIndex": 2, "condition": "ROUTE_EXISTS"}
		]`))
	}))
	defer srv.Close()

	c := NewRoutesClient(testConfig("test-key"))
	c.Endpoint = srv.URL

	m, err := c.Matrix(context.Background(), kyoto())
	require.NoError(t, err)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, [][]int{{0, 10, 29}, {10, 0, 50}, {30, 49, 0}}, m.Duration)
	assert.Equal(t, [][]int{{0, 5000, 4200}, {5010, 0, 9000}, {4300, 9100, 0}}, m.Distance)
}

func TestRoutesClientMissingRoute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[
			{"destinationIndex": 1, "duration": "60s", "distanceMeters": 50, "condition": "ROUTE_EXISTS"},
			{"originIndex": 1, "condition": "ROUTE_NOT_FOUND"}
		]`))
	}))
	defer srv.Close()

	c := NewRoutesClient(testConfig("k"))
	c.Endpoint = srv.URL

	_, err := c.Matrix(context.Background(), kyoto()[:2])
	require.ErrorContains(t, err, domain.HotelName)
}

func TestRoutesClientHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error": {"status": "PERMISSION_DENIED"}}`, http.StatusForbidden)
	}))
	defer srv.Close()

	c := NewRoutesClient(testConfig("bad-key"))
	c.Endpoint = srv.URL

	_, err := c.Matrix(context.Background(), kyoto())
	require.ErrorContains(t, err, "403")
	require.ErrorContains(t, err, "PERMISSION_DENIED")
}

func TestRoutesClientBatches(t *testing.T) {
	const n = 40 // 625 / 40 = 15 个起点一批，共 3 批

	places := make([]domain.Place, n)
	for i := range places {
		places[i] = domain.Place{Name: string(rune('A'+i%26)) + string(rune('a'+i/26)), Latitude: float64(i), Longitude: float64(i)}
	}

	var (
		mu      sync.Mutex
		batches []int
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req routeMatrixRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.LessOrEqual(t, len(req.Origins)*len(req.Destinations), maxRouteElements)

		mu.Lock()
		batches = append(batches, len(req.Origins))
		mu.Unlock()

		// 出行时间 = 起点纬度 × 60 秒，起点的纬度等于其在全体地点中的下标
		elements := make([]routeMatrixElement, 0, len(req.Origins)*len(req.Destinations))
		for i, o := range req.Origins {
			secs := int(o.Waypoint.Location.LatLng.Latitude) * 60
			for j := range req.Destinations {
				elements = append(elements, routeMatrixElement{
					OriginIndex:      i,
					DestinationIndex: j,
					Duration:         strconv.Itoa(secs) + "s",
					Condition:        "ROUTE_EXISTS",
				})
			}
		}
		_ = json.NewEncoder(w).Encode(elements)
	}))
	defer srv.Close()

	c := NewRoutesClient(testConfig("k"))
	c.Endpoint = srv.URL

	m, err := c.Matrix(context.Background(), places)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int{15, 15, 10}, batches)
	for i := range places {
		assert.Equal(t, i, m.Duration[i][(i+1)%n], "row %d", i)
	}
}

type memoryCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	sets   int
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.getErr != nil {
		return nil, c.getErr
	}
	v, ok := c.data[key]
	if !ok {
		return nil, ErrCacheMiss
	}
	return v, nil
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	c.sets++
	return nil
}

type countingProvider struct {
	calls int
	next  Provider
}

func (p *countingProvider) Matrix(ctx context.Context, places []domain.Place) (*domain.TravelMatrix, error) {
	p.calls++
	return p.next.Matrix(ctx, places)
}

func TestCachedProvider(t *testing.T) {
	cache := &memoryCache{data: map[string][]byte{}}
	inner := &countingProvider{next: NewEstimator(30)}
	p := NewCachedProvider(inner, cache, time.Hour, "test")

	first, err := p.Matrix(context.Background(), kyoto())
	require.NoError(t, err)
	second, err := p.Matrix(context.Background(), kyoto())
	require.NoError(t, err)

	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cache.sets)
	assert.Equal(t, first, second)

	// 地点顺序不同时不能复用缓存
	reversed := kyoto()
	reversed[1], reversed[2] = reversed[2], reversed[1]
	_, err = p.Matrix(context.Background(), reversed)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls)
}

func TestCachedProviderIgnoresCacheErrors(t *testing.T) {
	cache := &memoryCache{data: map[string][]byte{}, getErr: errors.New("connection refused")}
	inner := &countingProvider{next: NewEstimator(30)}
	p := NewCachedProvider(inner, cache, time.Hour, "test")

	m, err := p.Matrix(context.Background(), kyoto())
	require.NoError(t, err)
	assert.Len(t, m.Places, 3)
	assert.Equal(t, 1, inner.calls)
}

func TestNewProvider(t *testing.T) {
	_, ok := NewProvider(testConfig(""), nil).(*Estimator)
	assert.True(t, ok)

	_, ok = NewProvider(testConfig("key"), nil).(*RoutesClient)
	assert.True(t, ok)
}
