package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
)

// ForecastType selects what the forecasting agent predicts
type ForecastType string

const (
	ForecastProjectTimeline    ForecastType = "project_timeline"
	ForecastResourceAllocation ForecastType = "resource_allocation"
	ForecastTaskCompletion     ForecastType = "task_completion"
)

// TimeRange bounds a forecast; dates are ISO-8601 strings
type TimeRange struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ForecastPayload is the request sent to the forecasting agent
type ForecastPayload struct {
	UserID            string         `json:"userId"`
	ForecastType      ForecastType   `json:"forecastType"`
	TimeRange         TimeRange      `json:"timeRange"`
	DataSource        string         `json:"dataSource"`
	ProjectID         string         `json:"projectId,omitempty"`
	ModelType         string         `json:"modelType,omitempty"`
	TaskCategories    []string       `json:"taskCategories,omitempty"`
	MilestoneTracking *bool          `json:"milestoneTracking,omitempty"`
	GraphFormat       string         `json:"graphFormat,omitempty"`
	CacheStrategy     string         `json:"cacheStrategy,omitempty"`
	Options           map[string]any `json:"options,omitempty"`
}

// Validate checks the enumerated fields
func (p ForecastPayload) Validate() error {
	switch p.ForecastType {
	case ForecastProjectTimeline, ForecastResourceAllocation, ForecastTaskCompletion:
	default:
		return fmt.Errorf("unknown forecastType %q", p.ForecastType)
	}
	switch p.CacheStrategy {
	case "", "vector", "none", "semantic":
	default:
		return fmt.Errorf("unknown cacheStrategy %q", p.CacheStrategy)
	}
	return nil
}

type TimelinePoint struct {
	Label      string  `json:"label"`
	Date       string  `json:"date"`
	Confidence float64 `json:"confidence"`
}

type Risk struct {
	Description string `json:"description"`
	Probability string `json:"probability"`
}

// ForecastResult is the agent's answer with missing fields defaulted
type ForecastResult struct {
	Summary            string          `json:"summary"`
	Timeline           []TimelinePoint `json:"timeline"`
	Risks              []Risk          `json:"risks"`
	RecommendedActions []string        `json:"recommendedActions"`
	Visualization      string          `json:"visualization"`
}

// ForecastClient calls a forecasting agent over HTTP
type ForecastClient struct {
	url  string
	http *http.Client
	log  *slog.Logger
}

// NewForecastClient creates a client posting to url. A nil httpClient
// uses http.DefaultClient.
func NewForecastClient(url string, httpClient *http.Client, logger *slog.Logger) (*ForecastClient, error) {
	if url == "" {
		return nil, fmt.Errorf("forecast url: %w", ErrNotConfigured)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ForecastClient{url: url, http: httpClient, log: logger}, nil
}

// Forecast posts p and decodes the result. A non-2xx answer is an
// *UpstreamError; there are no retries.
func (c *ForecastClient) Forecast(ctx context.Context, p ForecastPayload) (*ForecastResult, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal forecast: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		c.log.Error("forecast agent error", "status", resp.StatusCode)
		io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return nil, &UpstreamError{Service: "forecast", Status: resp.StatusCode}
	}

	var res ForecastResult
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode forecast: %w", err)
	}
	if res.Timeline == nil {
		res.Timeline = []TimelinePoint{}
	}
	if res.Risks == nil {
		res.Risks = []Risk{}
	}
	if res.RecommendedActions == nil {
		res.RecommendedActions = []string{}
	}
	return &res, nil
}
