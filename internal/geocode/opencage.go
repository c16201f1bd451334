package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/dharmasatrya/tripplanner/internal/models"
)

const (
	SourceOpenCage         = "opencage"
	DefaultOpenCageBaseURL = "https://api.opencagedata.com"
)

type openCageResponse struct {
	Results []openCageResult `json:"results"`
	Status  struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"status"`
}

type openCageResult struct {
	Components struct {
		Country string `json:"country"`
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
	} `json:"components"`
	Geometry struct {
		Lat float64 `json:"lat"`
		Lng float64 `json:"lng"`
	} `json:"geometry"`
	Confidence int `json:"confidence"`
}

// OpenCage queries the OpenCage forward geocoding API.
type OpenCage struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewOpenCage(apiKey, baseURL string, timeout time.Duration, logger *slog.Logger) *OpenCage {
	if baseURL == "" {
		baseURL = DefaultOpenCageBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &OpenCage{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (o *OpenCage) Name() string {
	return SourceOpenCage
}

func (o *OpenCage) Resolve(ctx context.Context, text string) (models.GeoLocation, bool) {
	if o.apiKey == "" {
		return models.GeoLocation{}, false
	}

	loc, err := o.lookup(ctx, text)
	if err != nil {
		o.logger.Warn("geocoding failed", "provider", SourceOpenCage, "query", text, "error", err)
		return models.GeoLocation{}, false
	}
	if loc == nil {
		return models.GeoLocation{}, false
	}
	return *loc, true
}

func (o *OpenCage) lookup(ctx context.Context, text string) (*models.GeoLocation, error) {
	u, err := url.Parse(o.baseURL + "/geocode/v1/json")
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("q", text)
	q.Set("key", o.apiKey)
	q.Set("limit", "5")
	q.Set("no_annotations", "1")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder returned status %d", resp.StatusCode)
	}

	var body openCageResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	// first result that names a country wins
	for _, r := range body.Results {
		c := r.Components
		if c.Country == "" {
			continue
		}
		city := c.City
		if city == "" {
			city = c.Town
		}
		if city == "" {
			city = c.Village
		}
		return &models.GeoLocation{
			Country:   c.Country,
			City:      city,
			Latitude:  r.Geometry.Lat,
			Longitude: r.Geometry.Lng,
			Source:    SourceOpenCage,
		}, nil
	}
	return nil, nil
}
