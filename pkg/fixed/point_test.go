package fixed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoint_FromInt64(t *testing.T) {
	tests := []struct {
		name  string
		value int64
		scale int
		want  string
	}{
		{"zero", 0, 0, "0"},
		{"positive", 123, 0, "123"},
		{"negative", -456, 0, "-456"},
		{"with scale", 123, 2, "1.23"},
		{"negative with scale", -456, 3, "-0.456"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromInt64(tt.value, tt.scale)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestPoint_Arithmetic(t *testing.T) {
	a := FromFloat64(100.5)
	b := FromFloat64(0.5)

	assert.Equal(t, "101", a.Add(b).String())
	assert.Equal(t, "100", a.Sub(b).String())
	assert.Equal(t, "50.25", a.Mul(b).String())
	assert.Equal(t, "201", a.Div(b).String())
	assert.Equal(t, "-100.5", a.Neg().String())
	assert.Equal(t, "100.5", a.Neg().Abs().String())
}

func TestPoint_AddBps(t *testing.T) {
	tests := []struct {
		name  string
		value float64
		bps   float64
		want  string
	}{
		{"five bps up", 100.00, 5, "100.05"},
		{"five bps down", 100.00, -5, "99.95"},
		{"zero bps", 100.00, 0, "100"},
		{"hundred bps", 50.00, 100, "50.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromFloat64(tt.value).AddBps(FromFloat64(tt.bps))
			assert.True(t, got.Eq(mustParse(t, tt.want)), "got %s want %s", got, tt.want)
		})
	}
}

func TestPoint_Comparisons(t *testing.T) {
	a := FromInt(1, 0)
	b := FromInt(2, 0)

	assert.True(t, a.Lt(b))
	assert.True(t, b.Gt(a))
	assert.True(t, a.Lte(a))
	assert.True(t, a.Gte(a))
	assert.True(t, a.Eq(FromInt(10, 1)))
	assert.True(t, Zero.IsZero())
	assert.True(t, a.Neg().IsNeg())
	assert.Equal(t, a, a.Min(b))
	assert.Equal(t, b, a.Max(b))
}

func TestPoint_TextRoundTrip(t *testing.T) {
	p := FromFloat64(123.456)
	text, err := p.MarshalText()
	require.NoError(t, err)

	var back Point
	require.NoError(t, back.UnmarshalText(text))
	assert.True(t, p.Eq(back))
}

func TestMaxDrawdown(t *testing.T) {
	curve := []Point{
		FromInt(100, 0),
		FromInt(120, 0),
		FromInt(90, 0),
		FromInt(110, 0),
		FromInt(105, 0),
	}
	// Peak 120 to trough 90 is a 25% decline.
	assert.True(t, MaxDrawdown(curve).Eq(FromFloat64(0.25)))
	assert.True(t, MaxDrawdown(nil).IsZero())
	assert.True(t, MaxDrawdown([]Point{FromInt(1, 0), FromInt(2, 0)}).IsZero())
}

func TestMeanStdDev(t *testing.T) {
	points := []Point{FromInt(1, 0), FromInt(2, 0), FromInt(3, 0)}
	assert.True(t, Mean(points).Eq(FromInt(2, 0)))
	assert.True(t, StdDev(nil, Zero).IsZero())
	assert.False(t, StdDev(points, Mean(points)).IsZero())
}

func mustParse(t *testing.T, s string) Point {
	t.Helper()
	p, err := Parse(s)
	require.NoError(t, err)
	return p
}
