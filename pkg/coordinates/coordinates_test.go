package coordinates

import (
	"math"
	"testing"
)

// TestDistanceMeters tests great-circle distance calculation.
func TestDistanceMeters(t *testing.T) {
	t.Run("Identical points have zero distance", func(t *testing.T) {
		p := Geographic{Latitude: 35.0, Longitude: -80.0}

		dist := DistanceMeters(p, p)

		if dist != 0 {
			t.Errorf("Expected 0, got %f", dist)
		}
	})

	t.Run("One degree of latitude is about 111 km", func(t *testing.T) {
		from := Geographic{Latitude: 35.0, Longitude: -80.0}
		to := Geographic{Latitude: 36.0, Longitude: -80.0}

		dist := DistanceMeters(from, to)

		// 1° latitude ≈ 111.2 km on the mean-radius sphere
		if dist < 110000 || dist > 112500 {
			t.Errorf("Expected ~111 km, got %f m", dist)
		}
	})

	t.Run("Distance is symmetric", func(t *testing.T) {
		a := Geographic{Latitude: 35.0, Longitude: -80.0}
		b := Geographic{Latitude: 40.0, Longitude: -75.0}

		d1 := DistanceMeters(a, b)
		d2 := DistanceMeters(b, a)

		if math.Abs(d1-d2) > 0.001 {
			t.Errorf("Expected symmetric distance, got %f vs %f", d1, d2)
		}
	})

	t.Run("Nautical mile conversion agrees", func(t *testing.T) {
		a := Geographic{Latitude: 35.0, Longitude: -80.0}
		b := Geographic{Latitude: 35.5, Longitude: -80.0}

		meters := DistanceMeters(a, b)
		nm := DistanceNauticalMiles(a, b)

		if math.Abs(meters/MetersPerNauticalMile-nm) > 0.0001 {
			t.Errorf("Conversion mismatch: %f m vs %f NM", meters, nm)
		}
	})
}

// TestBearing tests initial great-circle bearing calculation.
func TestBearing(t *testing.T) {
	tests := []struct {
		name     string
		from     Geographic
		to       Geographic
		expected float64
	}{
		{"Due north", Geographic{Latitude: 35.0, Longitude: -80.0}, Geographic{Latitude: 36.0, Longitude: -80.0}, 0.0},
		{"Due south", Geographic{Latitude: 36.0, Longitude: -80.0}, Geographic{Latitude: 35.0, Longitude: -80.0}, 180.0},
		{"Due east on equator", Geographic{Latitude: 0.0, Longitude: -80.0}, Geographic{Latitude: 0.0, Longitude: -79.0}, 90.0},
		{"Due west on equator", Geographic{Latitude: 0.0, Longitude: -79.0}, Geographic{Latitude: 0.0, Longitude: -80.0}, 270.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bearing := Bearing(tt.from, tt.to)
			if math.Abs(bearing-tt.expected) > 0.5 {
				t.Errorf("Expected bearing ~%f, got %f", tt.expected, bearing)
			}
		})
	}

	t.Run("Bearing is always in range", func(t *testing.T) {
		from := Geographic{Latitude: 60.0, Longitude: 170.0}
		to := Geographic{Latitude: -20.0, Longitude: -170.0}

		bearing := Bearing(from, to)

		if bearing < 0 || bearing >= 360 {
			t.Errorf("Bearing out of range: %f", bearing)
		}
	})
}

// TestBlendSpeed tests live/planned speed blending.
func TestBlendSpeed(t *testing.T) {
	t.Run("Flat average with a plan", func(t *testing.T) {
		blended := BlendSpeed(100.0, 200.0)

		if blended != 150.0 {
			t.Errorf("Expected 150, got %f", blended)
		}
	})

	t.Run("Live speed alone without a plan", func(t *testing.T) {
		blended := BlendSpeed(120.0, 0.0)

		if blended != 120.0 {
			t.Errorf("Expected 120, got %f", blended)
		}
	})

	t.Run("Negative planned speed ignored", func(t *testing.T) {
		blended := BlendSpeed(120.0, -10.0)

		if blended != 120.0 {
			t.Errorf("Expected 120, got %f", blended)
		}
	})
}

// TestNormalizeAzimuth tests compass direction normalization.
func TestNormalizeAzimuth(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{0.0, 0.0},
		{360.0, 0.0},
		{370.0, 10.0},
		{-10.0, 350.0},
		{-370.0, 350.0},
		{720.0, 0.0},
	}

	for _, tt := range tests {
		result := NormalizeAzimuth(tt.input)
		if math.Abs(result-tt.expected) > 0.001 {
			t.Errorf("NormalizeAzimuth(%f) = %f, expected %f", tt.input, result, tt.expected)
		}
	}
}

// TestNormalizeAngle tests signed angle normalization.
func TestNormalizeAngle(t *testing.T) {
	tests := []struct {
		input    float64
		expected float64
	}{
		{0.0, 0.0},
		{90.0, 90.0},
		{270.0, -90.0},
		{-270.0, 90.0},
		{450.0, 90.0},
	}

	for _, tt := range tests {
		result := NormalizeAngle(tt.input)
		if math.Abs(result-tt.expected) > 0.001 {
			t.Errorf("NormalizeAngle(%f) = %f, expected %f", tt.input, result, tt.expected)
		}
	}
}

// TestCrossTrackDistanceNM tests perpendicular distance to a great-circle path.
func TestCrossTrackDistanceNM(t *testing.T) {
	lineStart := Geographic{Latitude: 35.0, Longitude: -80.0}
	lineEnd := Geographic{Latitude: 35.0, Longitude: -79.0}

	t.Run("Point on line has near-zero distance", func(t *testing.T) {
		point := Geographic{Latitude: 35.0, Longitude: -79.5}

		dist := CrossTrackDistanceNM(point, lineStart, lineEnd)

		if dist > 1.0 {
			t.Errorf("Expected distance ~0, got %f NM", dist)
		}
	})

	t.Run("Point north of line", func(t *testing.T) {
		point := Geographic{Latitude: 35.5, Longitude: -79.5}

		dist := CrossTrackDistanceNM(point, lineStart, lineEnd)

		// ~30 NM for 0.5° latitude
		if dist < 25.0 || dist > 35.0 {
			t.Errorf("Expected ~30 NM, got %f NM", dist)
		}
	})
}

// TestAlongTrackFraction tests projecting a point onto a segment.
func TestAlongTrackFraction(t *testing.T) {
	lineStart := Geographic{Latitude: 0.0, Longitude: -80.0}
	lineEnd := Geographic{Latitude: 0.0, Longitude: -79.0}

	t.Run("Point at start", func(t *testing.T) {
		f := AlongTrackFraction(lineStart, lineStart, lineEnd)

		if math.Abs(f) > 0.01 {
			t.Errorf("Expected fraction ~0, got %f", f)
		}
	})

	t.Run("Point at midpoint", func(t *testing.T) {
		point := Geographic{Latitude: 0.0, Longitude: -79.5}

		f := AlongTrackFraction(point, lineStart, lineEnd)

		if math.Abs(f-0.5) > 0.01 {
			t.Errorf("Expected fraction ~0.5, got %f", f)
		}
	})

	t.Run("Point slightly off track still projects", func(t *testing.T) {
		point := Geographic{Latitude: 0.1, Longitude: -79.5}

		f := AlongTrackFraction(point, lineStart, lineEnd)

		if f < 0.4 || f > 0.6 {
			t.Errorf("Expected fraction ~0.5, got %f", f)
		}
	})

	t.Run("Point behind start is negative", func(t *testing.T) {
		point := Geographic{Latitude: 0.0, Longitude: -80.5}

		f := AlongTrackFraction(point, lineStart, lineEnd)

		if f >= 0 {
			t.Errorf("Expected negative fraction, got %f", f)
		}
	})

	t.Run("Degenerate segment returns zero", func(t *testing.T) {
		point := Geographic{Latitude: 0.0, Longitude: -79.5}

		f := AlongTrackFraction(point, lineStart, lineStart)

		if f != 0 {
			t.Errorf("Expected 0 for zero-length segment, got %f", f)
		}
	})
}

// TestInterpolateGreatCircle tests great circle interpolation.
func TestInterpolateGreatCircle(t *testing.T) {
	from := Geographic{Latitude: 35.0, Longitude: -80.0}
	to := Geographic{Latitude: 40.0, Longitude: -75.0}

	t.Run("Fraction 0 returns start point", func(t *testing.T) {
		p := InterpolateGreatCircle(from, to, 0.0)

		if math.Abs(p.Latitude-35.0) > 0.01 || math.Abs(p.Longitude-(-80.0)) > 0.01 {
			t.Errorf("Expected start point, got (%f, %f)", p.Latitude, p.Longitude)
		}
	})

	t.Run("Fraction 1 returns end point", func(t *testing.T) {
		p := InterpolateGreatCircle(from, to, 1.0)

		if math.Abs(p.Latitude-40.0) > 0.01 || math.Abs(p.Longitude-(-75.0)) > 0.01 {
			t.Errorf("Expected end point, got (%f, %f)", p.Latitude, p.Longitude)
		}
	})

	t.Run("Identical points return same point", func(t *testing.T) {
		p := InterpolateGreatCircle(from, from, 0.5)

		if math.Abs(p.Latitude-35.0) > 0.01 || math.Abs(p.Longitude-(-80.0)) > 0.01 {
			t.Errorf("Expected same point, got (%f, %f)", p.Latitude, p.Longitude)
		}
	})
}

// TestPointAtBearing tests dead-reckoning along a great circle.
func TestPointAtBearing(t *testing.T) {
	t.Run("Northward travel increases latitude", func(t *testing.T) {
		from := Geographic{Latitude: 35.0, Longitude: -80.0}

		p := PointAtBearing(from, 0.0, 111200.0) // ~1° of latitude

		if p.Latitude < 35.9 || p.Latitude > 36.1 {
			t.Errorf("Expected latitude ~36.0, got %f", p.Latitude)
		}
		if math.Abs(p.Longitude-(-80.0)) > 0.01 {
			t.Errorf("Expected longitude unchanged, got %f", p.Longitude)
		}
	})

	t.Run("Longitude wraps at the antimeridian", func(t *testing.T) {
		from := Geographic{Latitude: 0.0, Longitude: 179.9}

		p := PointAtBearing(from, 90.0, 50000.0)

		if p.Longitude > 180.0 || p.Longitude < -180.0 {
			t.Errorf("Longitude not normalized: %f", p.Longitude)
		}
	})

	t.Run("Round trip against distance", func(t *testing.T) {
		from := Geographic{Latitude: 35.0, Longitude: -80.0}

		p := PointAtBearing(from, 47.0, 25000.0)
		dist := DistanceMeters(from, p)

		if math.Abs(dist-25000.0) > 50.0 {
			t.Errorf("Expected ~25000 m travelled, got %f", dist)
		}
	})
}
