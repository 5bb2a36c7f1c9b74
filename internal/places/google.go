package places

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

	"github.com/sells-group/recommend-consensus/internal/geo"
	"github.com/sells-group/recommend-consensus/internal/model"
)

const nearbySearchURL = "https://maps.googleapis.com/maps/api/place/nearbysearch/json"

// categoryToPlaceType maps our category enum onto Google Places' "type"
// parameter. CategoryAll omits the type filter entirely, yielding a
// multi-type union as the spec requires.
var categoryToPlaceType = map[model.Category]string{
	model.CategoryRestaurant:        "restaurant",
	model.CategoryCafe:              "cafe",
	model.CategoryTouristAttraction: "tourist_attraction",
	model.CategoryMuseum:            "museum",
	model.CategoryPark:              "park",
	model.CategoryBar:               "bar",
	model.CategoryHotel:             "lodging",
	model.CategoryShopping:          "shopping_mall",
	model.CategoryEntertainment:     "movie_theater",
}

// GoogleProvider implements Provider against the Google Places API.
type GoogleProvider struct {
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewGoogleProvider builds a GoogleProvider rate-limited to rps requests
// per second.
func NewGoogleProvider(apiKey string, rps float64) *GoogleProvider {
	if rps <= 0 {
		rps = 10
	}
	return &GoogleProvider{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		limiter:    rate.NewLimiter(rate.Limit(rps), int(rps)),
	}
}

type nearbySearchResponse struct {
	Results []nearbyResult `json:"results"`
	Status  string         `json:"status"`
}

type nearbyResult struct {
	Name             string  `json:"name"`
	Vicinity         string  `json:"vicinity"`
	PlaceID          string  `json:"place_id"`
	Rating           float64 `json:"rating"`
	UserRatingsTotal int     `json:"user_ratings_total"`
	Geometry         struct {
		Location struct {
			Lat float64 `json:"lat"`
			Lng float64 `json:"lng"`
		} `json:"location"`
	} `json:"geometry"`
}

// Nearby implements Provider.
func (g *GoogleProvider) Nearby(ctx context.Context, q Query) ([]model.Place, error) {
	if g.apiKey == "" {
		return nil, eris.New("places: google api key not configured")
	}
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "places: rate limit")
	}

	maxResults := q.MaxResults
	if maxResults <= 0 || maxResults > 20 {
		maxResults = 20
	}

	params := url.Values{
		"location": {strconv.FormatFloat(q.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(q.Longitude, 'f', -1, 64)},
		"radius":   {strconv.Itoa(q.RadiusMeters)},
		"key":      {g.apiKey},
	}
	if t, ok := categoryToPlaceType[q.Category]; ok {
		params.Set("type", t)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, nearbySearchURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "places: build request")
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "places: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("places: status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "places: read body")
	}

	var out nearbySearchResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, eris.Wrap(err, "places: parse response")
	}

	results := out.Results
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	places := make([]model.Place, 0, len(results))
	for _, r := range results {
		p := model.Place{
			Name:                r.Name,
			Address:             r.Vicinity,
			Latitude:            r.Geometry.Location.Lat,
			Longitude:           r.Geometry.Location.Lng,
			Category:            q.Category,
			ExternalID:          r.PlaceID,
			DistanceMeters:      geo.DistanceMeters(q.Latitude, q.Longitude, r.Geometry.Location.Lat, r.Geometry.Location.Lng),
			IsVerifiedRealPlace: true,
		}
		if r.Rating > 0 {
			rating := r.Rating
			p.Rating = &rating
		}
		if r.UserRatingsTotal > 0 {
			total := r.UserRatingsTotal
			p.UserRatingsTotal = &total
		}
		places = append(places, p)
	}
	return places, nil
}
