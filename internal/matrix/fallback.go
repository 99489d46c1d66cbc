package matrix

import (
	"context"
	"log"

	"salesroute/internal/obs"
)

// Fallback asks Primary first and Secondary when Primary fails.
type Fallback struct {
	Primary   Provider
	Secondary Provider
}

func (f Fallback) Matrices(ctx context.Context, pts []Point) (*Matrices, error) {
	m, err := f.Primary.Matrices(ctx, pts)
	if err == nil {
		if err = m.Check(len(pts)); err == nil {
			return m, nil
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	log.Printf("req_id=%s op=matrix.fallback points=%d err=%v", obs.RequestID(ctx), len(pts), err)
	return f.Secondary.Matrices(ctx, pts)
}
