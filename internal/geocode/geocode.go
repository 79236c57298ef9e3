package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sysu-ecnc-dev/itinerary-planner/backend/internal/config"
	"golang.org/x/time/rate"
)

const Endpoint = "https://maps.googleapis.com/maps/api/geocode/json"

// ErrNotFound 地址无法解析为坐标
var ErrNotFound = errors.New("找不到该地址")

// Client 通过 Google Geocoding API 将住宿地址转换为坐标
type Client struct {
	Endpoint string

	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(cfg *config.Config) *Client {
	limit := rate.Limit(cfg.Google.RequestsPerSec)
	if cfg.Google.RequestsPerSec <= 0 {
		limit = rate.Inf
	}

	return &Client{
		Endpoint:   Endpoint,
		apiKey:     cfg.Google.APIKey,
		httpClient: &http.Client{Timeout: time.Duration(cfg.Google.RequestTimeout) * time.Second},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Results      []struct {
		FormattedAddress string `json:"formatted_address"`
		Geometry         struct {
			Location struct {
				Lat float64 `json:"lat"`
				Lng float64 `json:"lng"`
			} `json:"location"`
		} `json:"geometry"`
	} `json:"results"`
}

// Coordinates 返回第一个匹配结果的经纬度
func (c *Client) Coordinates(ctx context.Context, address string) (float64, float64, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return 0, 0, errors.New("住宿地址不能为空")
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, 0, err
	}

	params := url.Values{}
	params.Set("address", address)
	params.Set("key", c.apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return 0, 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("Geocoding API 返回 HTTP %d", resp.StatusCode)
	}

	var data geocodeResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return 0, 0, fmt.Errorf("无法解析 Geocoding API 的响应: %w", err)
	}

	switch {
	case data.Status == "ZERO_RESULTS":
		return 0, 0, fmt.Errorf("%w: %s", ErrNotFound, address)
	case data.Status != "OK":
		return 0, 0, fmt.Errorf("Geocoding API 错误: %s - %s", data.Status, data.ErrorMessage)
	case len(data.Results) == 0:
		return 0, 0, fmt.Errorf("%w: %s", ErrNotFound, address)
	}

	location := data.Results[0].Geometry.Location
	return location.Lat, location.Lng, nil
}
