// Package searoute is an HTTP client for an external sea-route service.
package searoute

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"passage_router/pkg/geo"
)

const maxResponseBytes = 4 << 20

// ErrNoRoute is returned when the service answers without a usable line.
var ErrNoRoute = errors.New("sea-route service returned no route")

// Client requests routes with POST {"from":[lng,lat],"to":[lng,lat]}. The
// service answers with a GeoJSON LineString, a Feature holding one, or a
// FeatureCollection whose first feature holds one.
type Client struct {
	url    string
	apiKey string
	http   *http.Client
}

// NewClient creates a client. A nil httpClient gets a 30 s timeout.
func NewClient(url, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{url: url, apiKey: apiKey, http: httpClient}
}

type routeRequest struct {
	From [2]float64 `json:"from"`
	To   [2]float64 `json:"to"`
}

// Route implements synth.ExternalRouter.
func (c *Client) Route(ctx context.Context, from, to geo.GeoPoint) (orb.LineString, error) {
	body, err := json.Marshal(routeRequest{
		From: [2]float64{from.Lng, from.Lat},
		To:   [2]float64{to.Lng, to.Lat},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read failed: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, truncate(string(data), 200))
	}
	return decodeLine(data)
}

// decodeLine extracts a line from any of the accepted response shapes.
// MultiLineString parts are joined in order.
func decodeLine(data []byte) (orb.LineString, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode failed: %w", err)
	}

	var g orb.Geometry
	switch head.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		g = f.Geometry
	case "FeatureCollection":
		fc, err := geojson.UnmarshalFeatureCollection(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature collection: %w", err)
		}
		if len(fc.Features) == 0 {
			return nil, ErrNoRoute
		}
		g = fc.Features[0].Geometry
	default:
		geom, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		g = geom.Geometry()
	}

	var line orb.LineString
	switch v := g.(type) {
	case orb.LineString:
		line = v
	case orb.MultiLineString:
		for _, part := range v {
			if len(line) > 0 && len(part) > 0 && line[len(line)-1] == part[0] {
				part = part[1:]
			}
			line = append(line, part...)
		}
	case nil:
		return nil, ErrNoRoute
	default:
		return nil, fmt.Errorf("unexpected geometry %s", v.GeoJSONType())
	}
	if len(line) < 2 {
		return nil, ErrNoRoute
	}
	return line, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
