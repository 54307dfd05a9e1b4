package zonal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseUnit(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    Unit
		wantErr bool
	}{
		{name: "square meters", in: "m2", want: UnitSquareMeter},
		{name: "square kilometers", in: "km2", want: UnitSquareKilometer},
		{name: "hectare", in: "hectare", want: UnitHectare},
		{name: "hectare shorthand", in: "ha", want: UnitHectare},
		{name: "rai", in: "rai", want: UnitRai},
		{name: "case insensitive", in: "KM2", want: UnitSquareKilometer},
		{name: "surrounding whitespace", in: " rai ", want: UnitRai},
		{name: "unknown", in: "acre", wantErr: true},
		{name: "empty", in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			u, err := ParseUnit(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, u)
		})
	}
}

func TestUnitDivisor(t *testing.T) {
	assert.Equal(t, 1.0, UnitSquareMeter.Divisor())
	assert.Equal(t, 1e6, UnitSquareKilometer.Divisor())
	assert.Equal(t, 1e4, UnitHectare.Divisor())
	assert.Equal(t, 1600.0, UnitRai.Divisor())
	assert.Equal(t, 0.0, Unit("acre").Divisor())
}
