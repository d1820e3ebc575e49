package geo

import (
	"math"
	"testing"
)

func TestDistanceSymmetric(t *testing.T) {
	a := Coordinate{Lat: 28.228209, Lng: 112.938814} // 长沙
	b := Coordinate{Lat: 39.904211, Lng: 116.407395} // 北京

	ab := Distance(a, b)
	ba := Distance(b, a)

	if ab != ba {
		t.Fatalf("distance not symmetric: a->b=%v b->a=%v", ab, ba)
	}

	if d := Distance(a, a); d != 0 {
		t.Fatalf("distance(a,a) = %v, want 0", d)
	}
}

func TestDistanceOneDegreeMeridian(t *testing.T) {
	// 沿子午线相差 1 度约 111km
	a := Coordinate{Lat: 30, Lng: 112}
	b := Coordinate{Lat: 31, Lng: 112}

	d := Distance(a, b)
	want := 111000.0
	if math.Abs(d-want)/want > 0.01 {
		t.Fatalf("meridian distance = %v, want %v +-1%%", d, want)
	}
}

func TestWithin(t *testing.T) {
	center := Coordinate{Lat: 28.228209, Lng: 112.938814}

	tests := []struct {
		name   string
		point  Coordinate
		radius float64
		want   bool
	}{
		{"same point", center, 500, true},
		{"just inside", Coordinate{Lat: 28.2310, Lng: 112.9388}, 500, true},
		{"far outside", Coordinate{Lat: 28.3, Lng: 112.9388}, 500, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, d := Within(center, tt.point, tt.radius)
			if got != tt.want {
				t.Fatalf("Within = %v (distance %v), want %v", got, d, tt.want)
			}
		})
	}
}

func TestParseLocationRoundTrip(t *testing.T) {
	// 存储顺序是 lng,lat：写入和读取必须一致
	c := Coordinate{Lat: 28.228209, Lng: 112.938814}

	s := c.LocationString()
	parsed, err := ParseLocation(s)
	if err != nil {
		t.Fatalf("ParseLocation(%q) failed: %v", s, err)
	}

	if parsed != c {
		t.Fatalf("round trip mismatch: wrote %+v, read %+v", c, parsed)
	}
}

func TestParseLocationOrder(t *testing.T) {
	// 非赤道非本初子午线位置：经纬度取值互异，转置会被测出来
	c, err := ParseLocation("112.938814,28.228209")
	if err != nil {
		t.Fatalf("ParseLocation failed: %v", err)
	}

	if c.Lng != 112.938814 || c.Lat != 28.228209 {
		t.Fatalf("coordinate order transposed: got %+v", c)
	}
}

func TestParseLocationInvalid(t *testing.T) {
	tests := []string{
		"",
		"112.9",
		"112.9,28.2,0",
		"abc,28.2",
		"112.9,abc",
		"112.9,95",    // 纬度超界
		"190,28.2",    // 经度超界
	}

	for _, s := range tests {
		if _, err := ParseLocation(s); err == nil {
			t.Errorf("ParseLocation(%q) should fail", s)
		}
	}
}
