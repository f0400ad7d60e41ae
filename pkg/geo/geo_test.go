package geo

import (
	"math"
	"testing"
)

func TestDistance(t *testing.T) {
	tests := []struct {
		name string
		p1   Point
		p2   Point
		want float64
	}{
		{
			name: "Same Point",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 0},
			want: 0,
		},
		{
			name: "London to Paris",
			p1:   Point{Lat: 51.5074, Lon: -0.1278},
			p2:   Point{Lat: 48.8566, Lon: 2.3522},
			want: 344000, // Approx 344km
		},
		{
			name: "Equator 1 degree",
			p1:   Point{Lat: 0, Lon: 0},
			p2:   Point{Lat: 0, Lon: 1},
			want: 111319, // Approx 111km
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Distance(tt.p1, tt.p2)
			// Allow 1% margin for earth-radius variation.
			margin := tt.want * 0.01
			if math.Abs(got-tt.want) > margin && tt.want != 0 {
				t.Errorf("Distance() = %.0f, want ~%.0f", got, tt.want)
			}
			if tt.want == 0 && got != 0 {
				t.Errorf("Distance() = %.0f, want 0", got)
			}
		})
	}
}

func TestSortByDistance(t *testing.T) {
	origin := Point{Lat: 60.33, Lon: 6.66} // Lofthus

	type spot struct {
		name string
		pos  Point
	}
	spots := []spot{
		{"Bergen", Point{Lat: 60.39, Lon: 5.32}},
		{"Odda", Point{Lat: 60.07, Lon: 6.55}},
		{"Oslo", Point{Lat: 59.91, Lon: 10.75}},
	}

	SortByDistance(spots, origin, func(s spot) Point { return s.pos })

	want := []string{"Odda", "Bergen", "Oslo"}
	for i, name := range want {
		if spots[i].name != name {
			t.Errorf("spots[%d] = %s, want %s", i, spots[i].name, name)
		}
	}
}

func TestWithin(t *testing.T) {
	origin := Point{Lat: 60.33, Lon: 6.66}
	near := Point{Lat: 60.34, Lon: 6.67}
	far := Point{Lat: 61.0, Lon: 8.0}

	if !Within(origin, near, 2000) {
		t.Error("near point should be within 2km")
	}
	if Within(origin, far, 2000) {
		t.Error("far point should not be within 2km")
	}
}
