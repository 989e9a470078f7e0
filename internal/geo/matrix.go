package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/applidesk/backend/internal/models"
)

// MatrixProvider calls a Distance Matrix style HTTP API: one row per origin,
// one element per destination, distances in meters.
type MatrixProvider struct {
	BaseURL   string
	APIKey    string
	UserAgent string
	Client    *http.Client
}

type matrixElement struct {
	Status   string `json:"status"`
	Distance struct {
		Value int64 `json:"value"`
	} `json:"distance"`
}

type matrixRow struct {
	Elements []matrixElement `json:"elements"`
}

type matrixResponse struct {
	Status       string      `json:"status"`
	ErrorMessage string      `json:"error_message"`
	Rows         []matrixRow `json:"rows"`
}

func (p *MatrixProvider) BatchDistanceKm(ctx context.Context, origins []models.Address, destination models.Address) ([]float64, error) {
	if p.Client == nil {
		p.Client = &http.Client{Timeout: 15 * time.Second}
	}
	if p.BaseURL == "" {
		return nil, fmt.Errorf("matrix provider: base url not configured")
	}

	originParts := make([]string, 0, len(origins))
	for _, o := range origins {
		originParts = append(originParts, o.Formatted())
	}
	q := url.Values{}
	q.Set("origins", strings.Join(originParts, "|"))
	q.Set("destinations", destination.Formatted())
	q.Set("units", "metric")
	if p.APIKey != "" {
		q.Set("key", p.APIKey)
	}
	endpoint := strings.TrimRight(p.BaseURL, "/") + "/json?" + q.Encode()

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
		return nil, fmt.Errorf("matrix provider http error: %s", resp.Status)
	}

	var parsed matrixResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, err
	}
	return parseMatrixResponse(parsed, len(origins))
}

func parseMatrixResponse(resp matrixResponse, wantOrigins int) ([]float64, error) {
	if resp.Status != "OK" {
		if resp.ErrorMessage != "" {
			return nil, fmt.Errorf("matrix provider: %s: %s", resp.Status, resp.ErrorMessage)
		}
		return nil, fmt.Errorf("matrix provider: status %s", resp.Status)
	}
	if len(resp.Rows) != wantOrigins {
		return nil, fmt.Errorf("matrix provider: got %d rows, want %d", len(resp.Rows), wantOrigins)
	}

	out := make([]float64, 0, wantOrigins)
	for _, row := range resp.Rows {
		if len(row.Elements) == 0 {
			out = append(out, math.Inf(1))
			continue
		}
		el := row.Elements[0]
		if el.Status != "OK" {
			out = append(out, math.Inf(1))
			continue
		}
		out = append(out, float64(el.Distance.Value)/1000.0)
	}
	return out, nil
}
