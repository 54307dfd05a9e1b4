package zonal

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Band is one classified depth interval. Lower is exclusive and Upper
// inclusive, except the overflow band whose Upper is +Inf.
type Band struct {
	Lower float64
	Upper float64
	Label string
}

// MakeBands derives the band table from validated boundaries. Thresholds
// [0.5, 1, 2, 3] yield labels "0-0.5 m", "0.5-1.0 m", "1.0-2.0 m",
// "2.0-3.0 m", ">3.0 m".
func MakeBands(thresholds []float64) []Band {
	bands := make([]Band, 0, len(thresholds)+1)
	lower := 0.0
	for _, t := range thresholds {
		bands = append(bands, Band{
			Lower: lower,
			Upper: t,
			Label: fmt.Sprintf("%s-%s m", formatDepth(lower), formatDepth(t)),
		})
		lower = t
	}
	bands = append(bands, Band{
		Lower: lower,
		Upper: math.Inf(1),
		Label: fmt.Sprintf(">%s m", formatDepth(lower)),
	})
	return bands
}

// formatDepth renders a boundary for a label. Whole numbers keep one decimal
// ("1" reads as "1.0") so labels line up across runs; zero stays bare.
func formatDepth(v float64) string {
	if v == 0 {
		return "0"
	}
	s := strconv.FormatFloat(v, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}
