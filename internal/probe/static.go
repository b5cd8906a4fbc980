package probe

import "context"

// StaticProbe returns a fixed coordinate pair on every acquire. Used in
// development mode and tests where no device gateway is running.
type StaticProbe struct {
	fix Fix
}

// NewStaticProbe creates a probe that always reports the given coordinates.
func NewStaticProbe(lat, lng float64) *StaticProbe {
	return &StaticProbe{fix: Fix{Latitude: lat, Longitude: lng}}
}

// Acquire returns the configured fix unless the context is already done.
func (p *StaticProbe) Acquire(ctx context.Context) (Fix, error) {
	if err := ctx.Err(); err != nil {
		return Fix{}, &Error{Code: CodeTimeout, Err: err}
	}
	return p.fix, nil
}
