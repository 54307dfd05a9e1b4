package zonal

import (
	"math"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrConfig marks caller-supplied parameters the run cannot start with.
// Callers test for it with eris.Is to map the failure to a usage error.
var ErrConfig = eris.New("zonal: invalid configuration")

// DefaultThresholds returns the depth band boundaries, in meters, used when
// the caller supplies none.
func DefaultThresholds() []float64 { return []float64{0.5, 1.0, 2.0, 3.0} }

// ValidateThresholds checks that a boundary list can form bands: at least
// one value, every value positive and finite, strictly increasing.
func ValidateThresholds(ts []float64) error {
	if len(ts) == 0 {
		return eris.Wrap(ErrConfig, "thresholds must not be empty")
	}
	prev := 0.0
	for i, t := range ts {
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return eris.Wrapf(ErrConfig, "threshold %d is not finite", i)
		}
		if t <= prev {
			if i == 0 {
				return eris.Wrapf(ErrConfig, "threshold must be positive, got %v", t)
			}
			return eris.Wrapf(ErrConfig, "thresholds must be strictly increasing, got %v after %v", t, prev)
		}
		prev = t
	}
	return nil
}

// ParseThresholds parses a comma-separated boundary list such as "0.5,1,2,3"
// and validates the result.
func ParseThresholds(s string) ([]float64, error) {
	parts := strings.Split(s, ",")
	ts := make([]float64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return nil, eris.Wrapf(ErrConfig, "bad threshold %q", p)
		}
		ts = append(ts, v)
	}
	if err := ValidateThresholds(ts); err != nil {
		return nil, err
	}
	return ts, nil
}
