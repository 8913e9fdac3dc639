package geocoding

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/2beens/phonetracker/internal/telemetry/tracing"

	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// example API call
// https://nominatim.openstreetmap.org/search?q=United+States&format=json&limit=1

const (
	DefaultTimeout = 10 * time.Second
	// nominatim answers are small, anything bigger is not what we asked for
	maxResponseBytes = 1 << 20
)

var (
	ErrNotFound = errors.New("location not found")

	json = jsoniter.ConfigCompatibleWithStandardLibrary
)

type Location struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name,omitempty"`
}

// searchResult mirrors the relevant parts of the nominatim search payload
type searchResult struct {
	DisplayName string `json:"display_name"`
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
}

type Api struct {
	baseURL    string
	userAgent  string
	timeout    time.Duration
	httpClient *http.Client
}

func NewApi(baseURL, userAgent string, timeout time.Duration, httpClient *http.Client) *Api {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Api{
		baseURL:    baseURL,
		userAgent:  userAgent,
		timeout:    timeout,
		httpClient: httpClient,
	}
}

// Geocode does a single search for place and returns the best match.
// There is no caching and no retry: every call hits the service once.
func (a *Api) Geocode(ctx context.Context, place string) (location *Location, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "geocodingApi.geocode")
	defer span.End()
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, fmt.Sprintf("found location for: %s", place))
		}
	}()
	span.SetAttributes(attribute.String("place", place))

	if place == "" {
		return nil, ErrNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	query := url.Values{}
	query.Set("q", place)
	query.Set("format", "json")
	query.Set("limit", "1")
	searchURL := fmt.Sprintf("%s/search?%s", a.baseURL, query.Encode())
	log.Debugf("calling geocoding api: %s", searchURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("new geocoding request: %w", err)
	}
	req.Header.Set("User-Agent", a.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http client do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoding api status: %s", resp.Status)
	}

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read geocoding response bytes: %w", err)
	}

	var results []searchResult
	if err := json.Unmarshal(respBytes, &results); err != nil {
		return nil, fmt.Errorf("unmarshal geocoding response bytes: %w", err)
	}

	if len(results) == 0 {
		return nil, ErrNotFound
	}

	return results[0].location()
}

func (r searchResult) location() (*Location, error) {
	lat, err := strconv.ParseFloat(r.Lat, 64)
	if err != nil {
		return nil, fmt.Errorf("parse latitude [%s]: %w", r.Lat, err)
	}
	lon, err := strconv.ParseFloat(r.Lon, 64)
	if err != nil {
		return nil, fmt.Errorf("parse longitude [%s]: %w", r.Lon, err)
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, fmt.Errorf("coordinate out of range: %f, %f", lat, lon)
	}

	return &Location{
		Latitude:    lat,
		Longitude:   lon,
		DisplayName: r.DisplayName,
	}, nil
}
