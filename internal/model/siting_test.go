package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBBox_Contains(t *testing.T) {
	t.Parallel()

	b := BBox{MinLng: 79, MinLat: 5, MaxLng: 82, MaxLat: 10}

	tests := []struct {
		name string
		p    Point
		want bool
	}{
		{"interior", Point{Lng: 80, Lat: 7}, true},
		{"min corner", Point{Lng: 79, Lat: 5}, true},
		{"max corner", Point{Lng: 82, Lat: 10}, true},
		{"west of box", Point{Lng: 78.9, Lat: 7}, false},
		{"north of box", Point{Lng: 80, Lat: 10.1}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, b.Contains(tt.p))
		})
	}
}

func TestBBox_Degenerate(t *testing.T) {
	t.Parallel()

	assert.False(t, BBox{MinLng: 0, MinLat: 0, MaxLng: 1, MaxLat: 1}.Degenerate())
	assert.True(t, BBox{MinLng: 1, MinLat: 0, MaxLng: 1, MaxLat: 1}.Degenerate())
	assert.True(t, BBox{MinLng: 0, MinLat: 2, MaxLng: 1, MaxLat: 1}.Degenerate())
	assert.True(t, BBox{}.Degenerate())
}

func TestBBox_Clamp(t *testing.T) {
	t.Parallel()

	b := BBox{MinLng: 0, MinLat: 0, MaxLng: 10, MaxLat: 10}

	assert.Equal(t, Point{Lng: 5, Lat: 5}, b.Clamp(Point{Lng: 5, Lat: 5}))
	assert.Equal(t, Point{Lng: 0, Lat: 10}, b.Clamp(Point{Lng: -3, Lat: 12}))
	assert.Equal(t, Point{Lng: 10, Lat: 0}, b.Clamp(Point{Lng: 99, Lat: -99}))
}

func TestBBox_Intersects(t *testing.T) {
	t.Parallel()

	a := BBox{MinLng: 0, MinLat: 0, MaxLng: 10, MaxLat: 10}

	assert.True(t, a.Intersects(BBox{MinLng: 5, MinLat: 5, MaxLng: 15, MaxLat: 15}))
	assert.True(t, a.Intersects(BBox{MinLng: 10, MinLat: 10, MaxLng: 20, MaxLat: 20}), "shared corner")
	assert.False(t, a.Intersects(BBox{MinLng: 11, MinLat: 0, MaxLng: 20, MaxLat: 10}))
	assert.False(t, a.Intersects(BBox{MinLng: 0, MinLat: -5, MaxLng: 10, MaxLat: -1}))
}

func TestCentroid_Weighted(t *testing.T) {
	t.Parallel()

	demand := []DemandPoint{
		{Name: "a", Location: Point{Lng: 0, Lat: 0}, Weight: 1},
		{Name: "b", Location: Point{Lng: 10, Lat: 0}, Weight: 3},
	}
	c := Centroid(demand)
	assert.InDelta(t, 7.5, c.Lng, 1e-12)
	assert.InDelta(t, 0, c.Lat, 1e-12)
}

func TestCentroid_ZeroWeightFallsBackToMean(t *testing.T) {
	t.Parallel()

	demand := []DemandPoint{
		{Location: Point{Lng: 0, Lat: 0}},
		{Location: Point{Lng: 4, Lat: 8}},
	}
	c := Centroid(demand)
	assert.InDelta(t, 2, c.Lng, 1e-12)
	assert.InDelta(t, 4, c.Lat, 1e-12)
}

func TestCentroid_Empty(t *testing.T) {
	t.Parallel()
	assert.Equal(t, Point{}, Centroid(nil))
}

func TestDemandExtent(t *testing.T) {
	t.Parallel()

	demand := []DemandPoint{
		{Location: Point{Lng: 80.2, Lat: 6.9}},
		{Location: Point{Lng: 79.8, Lat: 7.3}},
		{Location: Point{Lng: 81.0, Lat: 6.0}},
	}
	b, ok := DemandExtent(demand)
	require.True(t, ok)
	assert.Equal(t, BBox{MinLng: 79.8, MinLat: 6.0, MaxLng: 81.0, MaxLat: 7.3}, b)

	_, ok = DemandExtent(nil)
	assert.False(t, ok)
}
