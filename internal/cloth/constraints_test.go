package cloth

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestClampVelocities(t *testing.T) {
	v := []mgl64.Vec3{{10, 0, 0}, {0, 3, 4}, {0, 0, 1}}
	ClampVelocities(v, 5.0)

	if v[0] != (mgl64.Vec3{5, 0, 0}) {
		t.Errorf("clamped velocity = %v, want exactly (5, 0, 0)", v[0])
	}
	if v[1] != (mgl64.Vec3{0, 3, 4}) {
		t.Errorf("velocity at the limit changed: %v", v[1])
	}
	if v[2] != (mgl64.Vec3{0, 0, 1}) {
		t.Errorf("slow velocity changed: %v", v[2])
	}
}

func TestLimitStretch(t *testing.T) {
	spring := []Spring{{P1: 0, P2: 1, RestLength: 1}}

	tests := []struct {
		name   string
		pinned []bool
		want   []mgl64.Vec3
	}{
		{"both free share", []bool{false, false}, []mgl64.Vec3{{0.5, 0, 0}, {1.5, 0, 0}}},
		{"first pinned", []bool{true, false}, []mgl64.Vec3{{0, 0, 0}, {1, 0, 0}}},
		{"second pinned", []bool{false, true}, []mgl64.Vec3{{1, 0, 0}, {2, 0, 0}}},
		{"both pinned", []bool{true, true}, []mgl64.Vec3{{0, 0, 0}, {2, 0, 0}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := []mgl64.Vec3{{0, 0, 0}, {2, 0, 0}}
			LimitStretch(x, spring, tt.pinned, 1.0)
			for i := range x {
				if !x[i].ApproxEqualThreshold(tt.want[i], 1e-12) {
					t.Errorf("x[%d] = %v, want %v", i, x[i], tt.want[i])
				}
			}
		})
	}
}

func TestLimitStretchLeavesShortSprings(t *testing.T) {
	spring := []Spring{{P1: 0, P2: 1, RestLength: 1}}
	x := []mgl64.Vec3{{0, 0, 0}, {1.05, 0, 0}}
	LimitStretch(x, spring, []bool{false, false}, 1.1)
	if x[1] != (mgl64.Vec3{1.05, 0, 0}) {
		t.Errorf("spring within the limit was corrected: %v", x[1])
	}
}
