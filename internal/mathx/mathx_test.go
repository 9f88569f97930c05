package mathx

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSafeDiv(t *testing.T) {
	tests := []struct {
		name     string
		num, den float64
		want     float64
	}{
		{"regular", 6, 3, 2},
		{"zero denominator", 1, 0, 0},
		{"below floor", 1, 1e-12, 0},
		{"negative below floor", 1, -1e-12, 0},
		{"nan denominator", 1, math.NaN(), 0},
		{"negative", -4, 2, -2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SafeDiv(tt.num, tt.den, Epsilon))
		})
	}
}

func TestFloorLog(t *testing.T) {
	assert.InDelta(t, math.Log(1e-10), FloorLog(0, 1e-10), 1e-12)
	assert.InDelta(t, math.Log(0.5), FloorLog(0.5, 1e-10), 1e-12)
	assert.False(t, math.IsInf(FloorLog(0, 1e-10), -1))
}

func TestBin(t *testing.T) {
	assert.Equal(t, 0, Bin(-0.5, 0, 0.25, 4))
	assert.Equal(t, 0, Bin(0.1, 0, 0.25, 4))
	assert.Equal(t, 1, Bin(0.25, 0, 0.25, 4))
	assert.Equal(t, 3, Bin(1.0, 0, 0.25, 4))
	assert.Equal(t, 3, Bin(7, 0, 0.25, 4))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0, ClampInt(-3, 0, 9))
	assert.Equal(t, 9, ClampInt(12, 0, 9))
	assert.Equal(t, 1.0, Clamp(1.5, 0, 1))
	assert.Equal(t, 0.0, Clamp(-0.5, 0, 1))
}
