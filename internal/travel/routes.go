package travel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/config"
	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/domain"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	RoutesEndpoint  = "https://routes.googleapis.com/distanceMatrix/v2:computeRouteMatrix"
	routesFieldMask = "originIndex,destinationIndex,duration,distanceMeters,condition"

	// 单次请求最多包含的 起点 × 终点 数量
	maxRouteElements = 625
)

// RoutesClient 通过 Google Routes API 的 computeRouteMatrix 计算出行矩阵
type RoutesClient struct {
	Endpoint string

	apiKey     string
	travelMode string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewRoutesClient(cfg *config.Config) *RoutesClient {
	limit := rate.Limit(cfg.Google.RequestsPerSec)
	if cfg.Google.RequestsPerSec <= 0 {
		limit = rate.Inf
	}

	return &RoutesClient{
		Endpoint:   RoutesEndpoint,
		apiKey:     cfg.Google.APIKey,
		travelMode: cfg.Google.TravelMode,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Google.RequestTimeout) * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type latLng struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type routeMatrixWaypoint struct {
	Waypoint struct {
		Location struct {
			LatLng latLng `json:"latLng"`
		} `json:"location"`
	} `json:"waypoint"`
}

type routeMatrixRequest struct {
	Origins      []routeMatrixWaypoint `json:"origins"`
	Destinations []routeMatrixWaypoint `json:"destinations"`
	TravelMode   string                `json:"travelMode"`
}

// 字段值为默认值时 Google 会省略该字段，例如 originIndex 为 0
type routeMatrixElement struct {
	OriginIndex      int    `json:"originIndex"`
	DestinationIndex int    `json:"destinationIndex"`
	Duration         string `json:"duration"` // 形如 "123s"
	DistanceMeters   int    `json:"distanceMeters"`
	Condition        string `json:"condition"`
}

func waypoints(places []domain.Place) []routeMatrixWaypoint {
	wps := make([]routeMatrixWaypoint, len(places))
	for i, p := range places {
		wps[i].Waypoint.Location.LatLng = latLng{Latitude: p.Latitude, Longitude: p.Longitude}
	}
	return wps
}

// Matrix 按起点分批请求，每批的 起点 × 终点 不超过 maxRouteElements，各批并发执行并受限流器约束
func (c *RoutesClient) Matrix(ctx context.Context, places []domain.Place) (*domain.TravelMatrix, error) {
	n := len(places)
	if n == 0 {
		return newMatrix(places), nil
	}
	if n > maxRouteElements {
		return nil, fmt.Errorf("地点数量 %d 超过了 Routes API 的上限", n)
	}

	m := newMatrix(places)
	filled := make([][]bool, n)
	for i := range filled {
		filled[i] = make([]bool, n)
	}

	destinations := waypoints(places)
	batch := max(1, maxRouteElements/n)

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < n; start += batch {
		end := min(start+batch, n)

		g.Go(func() error {
			elements, err := c.compute(ctx, waypoints(places[start:end]), destinations)
			if err != nil {
				return err
			}

			// 不同批次写入的行互不重叠
			for _, e := range elements {
				i, j := start+e.OriginIndex, e.DestinationIndex
				if i < start || i >= end || j < 0 || j >= n {
					return fmt.Errorf("Routes API 返回了越界的下标 (%d, %d)", e.OriginIndex, e.DestinationIndex)
				}
				minutes, err := parseDuration(e.Duration)
				if err != nil {
					return err
				}
				m.Duration[i][j] = minutes
				m.Distance[i][j] = e.DistanceMeters
				filled[i][j] = e.Condition != "ROUTE_NOT_FOUND"
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for i := range filled {
		for j := range filled[i] {
			if i != j && !filled[i][j] {
				return nil, fmt.Errorf("Routes API 没有返回 %s -> %s 的路线", places[i].Name, places[j].Name)
			}
		}
	}

	return m, nil
}

func (c *RoutesClient) compute(ctx context.Context, origins, destinations []routeMatrixWaypoint) ([]routeMatrixElement, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	body, err := json.Marshal(routeMatrixRequest{
		Origins:      origins,
		Destinations: destinations,
		TravelMode:   c.travelMode,
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Goog-Api-Key", c.apiKey)
	req.Header.Set("X-Goog-FieldMask", routesFieldMask)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	slog.Debug("调用 Routes API", "origins", len(origins), "destinations", len(destinations), "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("Routes API 返回 HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var elements []routeMatrixElement
	if err := json.NewDecoder(resp.Body).Decode(&elements); err != nil {
		return nil, fmt.Errorf("无法解析 Routes API 的响应: %w", err)
	}

	return elements, nil
}

// parseDuration 将 "123s" 转换为分钟（向下取整），空字符串视为 0
func parseDuration(s string) (int, error) {
	if s == "" {
		return 0, nil
	}

	seconds, err := strconv.ParseFloat(strings.TrimSuffix(s, "s"), 64)
	if err != nil {
		return 0, fmt.Errorf("无法解析出行时间 %q: %w", s, err)
	}
	return int(seconds) / 60, nil
}
