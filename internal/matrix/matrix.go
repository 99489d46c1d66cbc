// Package matrix supplies the travel-distance and travel-time tables the
// optimizer runs on. Distances are meters, durations minutes.
package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Matrices holds N×N tables for N points, index 0 being the depot.
type Matrices struct {
	Meters  [][]float64 `json:"meters"`
	Minutes [][]float64 `json:"minutes"`
	Source  string      `json:"source,omitempty"`
}

// Provider computes matrices for an ordered list of points.
type Provider interface {
	Matrices(ctx context.Context, pts []Point) (*Matrices, error)
}

// ErrBadMatrix reports a provider response that cannot be used as a matrix.
var ErrBadMatrix = errors.New("malformed matrix")

// Check verifies both tables are n×n with finite non-negative entries and a
// zero diagonal.
func (m *Matrices) Check(n int) error {
	for name, t := range map[string][][]float64{"meters": m.Meters, "minutes": m.Minutes} {
		if len(t) != n {
			return fmt.Errorf("%w: %s has %d rows, want %d", ErrBadMatrix, name, len(t), n)
		}
		for i, row := range t {
			if len(row) != n {
				return fmt.Errorf("%w: %s row %d has %d entries, want %d", ErrBadMatrix, name, i, len(row), n)
			}
			for j, v := range row {
				if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
					return fmt.Errorf("%w: %s[%d][%d] = %v", ErrBadMatrix, name, i, j, v)
				}
				if i == j && v != 0 {
					return fmt.Errorf("%w: %s diagonal %d = %v", ErrBadMatrix, name, i, v)
				}
			}
		}
	}
	return nil
}

// Save writes m as JSON.
func Save(path string, m *Matrices) error {
	b, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode matrix: %w", err)
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write matrix: %w", err)
	}
	return nil
}

// Load reads a file written by Save.
func Load(path string) (*Matrices, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read matrix: %w", err)
	}
	var m Matrices
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode matrix: %w", err)
	}
	if err := m.Check(len(m.Meters)); err != nil {
		return nil, err
	}
	return &m, nil
}

// Static serves a fixed set of matrices, typically loaded from disk.
type Static struct {
	M *Matrices
}

func (s Static) Matrices(_ context.Context, pts []Point) (*Matrices, error) {
	if err := s.M.Check(len(pts)); err != nil {
		return nil, err
	}
	return s.M, nil
}
