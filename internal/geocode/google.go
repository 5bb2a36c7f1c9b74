package geocode

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	forwardURL = "https://maps.googleapis.com/maps/api/geocode/json"
)

// GoogleGeocoder implements Geocoder against the Google Geocoding API.
type GoogleGeocoder struct {
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGoogleGeocoder builds a GoogleGeocoder rate-limited to rps requests
// per second.
func NewGoogleGeocoder(apiKey string, rps float64) *GoogleGeocoder {
	if rps <= 0 {
		rps = 10
	}
	return &GoogleGeocoder{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)),
	}
}

type googleGeocodeResponse struct {
	Results []googleResult `json:"results"`
	Status  string         `json:"status"`
}

type googleResult struct {
	Geometry struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
	FormattedAddress string `json:"formatted_address"`
}

// Forward implements Geocoder.
func (g *GoogleGeocoder) Forward(ctx context.Context, address string) (*Result, error) {
	if g.apiKey == "" {
		return nil, eris.New("geocode: google api key not configured")
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{"address": {address}, "key": {g.apiKey}}
	resp, err := g.do(ctx, forwardURL+"?"+params.Encode())
	if err != nil {
		return nil, err
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		return &Result{Matched: false}, nil
	}
	r := resp.Results[0]
	return &Result{
		Latitude:    r.Geometry.Location.Lat,
		Longitude:   r.Geometry.Location.Lng,
		DisplayName: r.FormattedAddress,
		Matched:     true,
	}, nil
}

// Reverse implements Geocoder.
func (g *GoogleGeocoder) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	if g.apiKey == "" {
		return "", eris.New("geocode: google api key not configured")
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return "", eris.Wrap(err, "geocode: rate limit")
	}

	params := url.Values{"latlng": {latLngParam(lat, lng)}, "key": {g.apiKey}}
	resp, err := g.do(ctx, forwardURL+"?"+params.Encode())
	if err != nil {
		return "", err
	}
	if resp.Status != "OK" || len(resp.Results) == 0 {
		return "", eris.New("geocode: no reverse match")
	}
	return resp.Results[0].FormattedAddress, nil
}

func (g *GoogleGeocoder) do(ctx context.Context, reqURL string) (*googleGeocodeResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("geocode: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "geocode: read body")
	}

	var out googleGeocodeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "geocode: parse response")
	}
	return &out, nil
}

func latLngParam(lat, lng float64) string {
	return strconv.FormatFloat(lat, 'f', -1, 64) + "," + strconv.FormatFloat(lng, 'f', -1, 64)
}
