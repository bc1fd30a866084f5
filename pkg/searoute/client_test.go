package searoute

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"passage_router/pkg/geo"
)

func TestDecodeLine(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    orb.LineString
		wantErr bool
	}{
		{
			name: "bare geometry",
			body: `{"type":"LineString","coordinates":[[1,2],[3,4]]}`,
			want: orb.LineString{{1, 2}, {3, 4}},
		},
		{
			name: "feature",
			body: `{"type":"Feature","properties":{"length":12},"geometry":{"type":"LineString","coordinates":[[1,2],[2,3],[3,4]]}}`,
			want: orb.LineString{{1, 2}, {2, 3}, {3, 4}},
		},
		{
			name: "feature collection",
			body: `{"type":"FeatureCollection","features":[{"type":"Feature","properties":{},"geometry":{"type":"LineString","coordinates":[[0,0],[1,1]]}}]}`,
			want: orb.LineString{{0, 0}, {1, 1}},
		},
		{
			name: "multi line joined",
			body: `{"type":"MultiLineString","coordinates":[[[0,0],[1,1]],[[1,1],[2,2]]]}`,
			want: orb.LineString{{0, 0}, {1, 1}, {2, 2}},
		},
		{name: "empty collection", body: `{"type":"FeatureCollection","features":[]}`, wantErr: true},
		{name: "single point line", body: `{"type":"LineString","coordinates":[[1,2]]}`, wantErr: true},
		{name: "point", body: `{"type":"Point","coordinates":[1,2]}`, wantErr: true},
		{name: "not json", body: `<html>`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeLine([]byte(tt.body))
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestClientRoute(t *testing.T) {
	var gotReq routeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Authorization") != "secret" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"type":"LineString","coordinates":[[-5.07,50.15],[-3.0,49.9],[-1.62,49.65]]}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret", srv.Client())
	line, err := c.Route(context.Background(), geo.GeoPoint{Lat: 50.15, Lng: -5.07}, geo.GeoPoint{Lat: 49.65, Lng: -1.62})
	require.NoError(t, err)
	assert.Len(t, line, 3)
	assert.Equal(t, [2]float64{-5.07, 50.15}, gotReq.From, "coordinates are sent as [lng, lat]")
	assert.Equal(t, [2]float64{-1.62, 49.65}, gotReq.To)

	_, err = NewClient(srv.URL, "wrong", srv.Client()).Route(context.Background(), geo.GeoPoint{}, geo.GeoPoint{Lat: 1})
	assert.ErrorContains(t, err, "HTTP 401")
}
