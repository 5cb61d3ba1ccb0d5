package common

import (
	"testing"

	"github.com/chewxy/math32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tol = 1.0e-6

func assertMatInTol(t *testing.T, want, got []float32) {
	t.Helper()
	require.Len(t, got, 16)
	for i := range want {
		assert.InDelta(t, want[i], got[i], tol, "element %d", i)
	}
}

func TestIdentity(t *testing.T) {
	m := make([]float32, 16)
	for i := range m {
		m[i] = float32(i)
	}
	Identity(m)
	assertMatInTol(t, []float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}, m)
}

func TestMul4Identity(t *testing.T) {
	id := make([]float32, 16)
	Identity(id)

	m := []float32{
		1, 2, 3, 4,
		5, 6, 7, 8,
		9, 10, 11, 12,
		13, 14, 15, 16,
	}
	out := make([]float32, 16)
	Mul4(out, id, m)
	assertMatInTol(t, m, out)
	Mul4(out, m, id)
	assertMatInTol(t, m, out)
}

func TestMul4InPlace(t *testing.T) {
	// out aliasing an operand must still produce the correct product
	a := make([]float32, 16)
	Translation(a, 1, 2, 3)
	b := make([]float32, 16)
	Translation(b, 10, 20, 30)

	Mul4(a, a, b)
	want := make([]float32, 16)
	Translation(want, 11, 22, 33)
	assertMatInTol(t, want, a)
}

func TestPerspectiveDeterministic(t *testing.T) {
	a := make([]float32, 16)
	b := make([]float32, 16)
	fov := float32(80.0 * math32.Pi / 180.0)
	Perspective(a, fov, 16.0/9.0, 1, 100)
	Perspective(b, fov, 16.0/9.0, 1, 100)
	assert.Equal(t, a, b, "same inputs must yield bit-identical matrices")
}

func TestPerspectiveShape(t *testing.T) {
	m := make([]float32, 16)
	Perspective(m, math32.Pi/2, 1, 1, 100)
	// fovY of 90 degrees with aspect 1 gives f = 1
	assert.InDelta(t, 1.0, m[0], tol)
	assert.InDelta(t, 1.0, m[5], tol)
	assert.InDelta(t, -1.0, m[11], tol)
	assert.Zero(t, m[15])
}

func TestTranslation(t *testing.T) {
	m := make([]float32, 16)
	Translation(m, 0, 0, -6)
	assert.Equal(t, float32(-6), m[14])
	assert.Equal(t, float32(1), m[0])
	assert.Equal(t, float32(1), m[15])
}

func TestRotationEulerZeroIsIdentity(t *testing.T) {
	m := make([]float32, 16)
	RotationEuler(m, 0, 0, 0)
	id := make([]float32, 16)
	Identity(id)
	assertMatInTol(t, id, m)
}

func TestRotationEulerPureAxes(t *testing.T) {
	a := float32(0.5)
	ca := math32.Cos(a)
	sa := math32.Sin(a)

	tests := []struct {
		name       string
		rx, ry, rz float32
		want       []float32
	}{
		{
			name: "pitch only",
			rx:   a,
			want: []float32{
				1, 0, 0, 0,
				0, ca, sa, 0,
				0, -sa, ca, 0,
				0, 0, 0, 1,
			},
		},
		{
			name: "yaw only",
			ry:   a,
			want: []float32{
				ca, 0, -sa, 0,
				0, 1, 0, 0,
				sa, 0, ca, 0,
				0, 0, 0, 1,
			},
		},
		{
			name: "roll only",
			rz:   a,
			want: []float32{
				ca, sa, 0, 0,
				-sa, ca, 0, 0,
				0, 0, 1, 0,
				0, 0, 0, 1,
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := make([]float32, 16)
			RotationEuler(m, tt.rx, tt.ry, tt.rz)
			assertMatInTol(t, tt.want, m)
		})
	}
}

func TestRotationEulerComposesXThenYThenZ(t *testing.T) {
	rx, ry, rz := float32(0.3), float32(-0.4), float32(0.7)

	mx := make([]float32, 16)
	my := make([]float32, 16)
	mz := make([]float32, 16)
	RotationEuler(mx, rx, 0, 0)
	RotationEuler(my, 0, ry, 0)
	RotationEuler(mz, 0, 0, rz)

	want := make([]float32, 16)
	Mul4(want, mz, my)
	Mul4(want, want, mx)

	got := make([]float32, 16)
	RotationEuler(got, rx, ry, rz)
	assertMatInTol(t, want, got)
}

func TestSliceToBytes(t *testing.T) {
	assert.Nil(t, SliceToBytes([]float32(nil)))

	data := []uint16{0x0102, 0x0304}
	b := SliceToBytes(data)
	require.Len(t, b, 4)
	// little-endian layout on all supported targets
	assert.Equal(t, byte(0x02), b[0])
	assert.Equal(t, byte(0x01), b[1])

	f := []float32{1, 2, 3}
	assert.Len(t, SliceToBytes(f), 12)
}
