package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/applidesk/backend/internal/utils"
)

var ErrDistrictNotFound = errors.New("district not found")

// PlacesRegions expands a district into its neighbors through a places
// lookup service: one call to resolve the district centroid, one to list
// localities around it. Results are filtered to RadiusKm by great-circle
// distance and cached per district.
type PlacesRegions struct {
	BaseURL     string
	UserAgent   string
	RadiusKm    float64
	MinInterval time.Duration
	Client      *http.Client

	mu        sync.Mutex
	lastReqAt time.Time
	cache     map[string][]string
}

type placeItem struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lon  float64 `json:"lon"`
}

func (p *PlacesRegions) NearbyDistricts(ctx context.Context, district string) ([]string, error) {
	if p.Client == nil {
		p.Client = &http.Client{Timeout: 10 * time.Second}
	}
	if p.RadiusKm <= 0 {
		p.RadiusKm = 50
	}
	if p.MinInterval <= 0 {
		p.MinInterval = time.Second
	}

	p.mu.Lock()
	if p.cache == nil {
		p.cache = map[string][]string{}
	}
	if cached, ok := p.cache[district]; ok {
		p.mu.Unlock()
		return cached, nil
	}
	sleepFor := time.Until(p.lastReqAt.Add(p.MinInterval))
	if sleepFor > 0 {
		p.mu.Unlock()
		time.Sleep(sleepFor)
		p.mu.Lock()
	}
	p.lastReqAt = time.Now()
	p.mu.Unlock()

	matches, err := p.lookup(ctx, "/geocode?q="+url.QueryEscape(district))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%s: %w", district, ErrDistrictNotFound)
	}
	centroid := matches[0]

	query := fmt.Sprintf("/nearby?lat=%f&lon=%f&radius_km=%f", centroid.Lat, centroid.Lon, p.RadiusKm)
	places, err := p.lookup(ctx, query)
	if err != nil {
		return nil, err
	}
	neighbors := filterNeighbors(district, centroid, places, p.RadiusKm)

	p.mu.Lock()
	p.cache[district] = neighbors
	p.mu.Unlock()
	return neighbors, nil
}

func (p *PlacesRegions) lookup(ctx context.Context, pathAndQuery string) ([]placeItem, error) {
	endpoint := strings.TrimRight(p.BaseURL, "/") + pathAndQuery
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	if p.UserAgent != "" {
		req.Header.Set("User-Agent", p.UserAgent)
	}

	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("places http error: %s", resp.Status)
	}

	var items []placeItem
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return nil, err
	}
	return items, nil
}

// filterNeighbors drops the district itself and anything the service
// returned beyond the radius.
func filterNeighbors(district string, centroid placeItem, places []placeItem, radiusKm float64) []string {
	out := []string{}
	for _, place := range places {
		if strings.EqualFold(strings.TrimSpace(place.Name), strings.TrimSpace(district)) {
			continue
		}
		if utils.HaversineKm(centroid.Lat, centroid.Lon, place.Lat, place.Lon) > radiusKm {
			continue
		}
		out = append(out, place.Name)
	}
	return out
}
