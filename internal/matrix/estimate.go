package matrix

import (
	"context"
	"math"
)

const (
	kmPerDegree     = 111.0
	defaultSpeedKmh = 40.0
)

// Estimator approximates road distance with an equirectangular projection
// and a constant speed. It never fails.
type Estimator struct {
	SpeedKmh float64
}

func (e Estimator) Matrices(_ context.Context, pts []Point) (*Matrices, error) {
	speed := e.SpeedKmh
	if speed <= 0 {
		speed = defaultSpeedKmh
	}
	n := len(pts)
	m := &Matrices{Meters: square(n), Minutes: square(n), Source: "estimate"}
	for i, a := range pts {
		for j, b := range pts {
			if i == j {
				continue
			}
			km := estimateKm(a, b)
			m.Meters[i][j] = km * 1000
			m.Minutes[i][j] = km / speed * 60
		}
	}
	return m, nil
}

// estimateKm scales longitude by cos of the origin latitude, so it is not
// exactly symmetric.
func estimateKm(a, b Point) float64 {
	dlat := (b.Lat - a.Lat) * kmPerDegree
	dlng := (b.Lng - a.Lng) * kmPerDegree * math.Cos(a.Lat*math.Pi/180)
	return math.Hypot(dlat, dlng)
}

func square(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	return out
}
