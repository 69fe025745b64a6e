package property

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_distanceKm(t *testing.T) {
	tests := []struct {
		name                   string
		lat1, lng1, lat2, lng2 float64
		want                   float64 // km
	}{
		{name: "same point", lat1: 30.2672, lng1: -97.7431, lat2: 30.2672, lng2: -97.7431, want: 0},
		{name: "austin - dallas", lat1: 30.2672, lng1: -97.7431, lat2: 32.7767, lng2: -96.7970, want: 292},
		{name: "paris - london", lat1: 48.8566, lng1: 2.3522, lat2: 51.5074, lng2: -0.1278, want: 344},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, distanceKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2), 2)
		})
	}
}

func Test_nearbyPrefixes(t *testing.T) {
	prefixes := nearbyPrefixes(30.2672, -97.7431, DefaultNearbyPrecision)
	assert.Len(t, prefixes, 9)
	for _, p := range prefixes {
		assert.Len(t, p, DefaultNearbyPrecision)
	}
	assert.Equal(t, encodeGeohash(30.2672, -97.7431)[:DefaultNearbyPrecision], prefixes[0])
}
