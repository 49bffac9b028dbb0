package cloth

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// Collider pushes points out of a solid.
type Collider interface {
	// Project returns the corrected position of p and whether p was
	// inside the solid.
	Project(p mgl64.Vec3) (mgl64.Vec3, bool)
}

// Ellipsoid is the image of the unit sphere under Transform.
type Ellipsoid struct {
	transform mgl64.Mat4
	inverse   mgl64.Mat4
}

// NewEllipsoid builds an axis-aligned ellipsoid.
func NewEllipsoid(center, radii mgl64.Vec3) (*Ellipsoid, error) {
	for _, r := range radii {
		if !(r > 0) || math.IsInf(r, 0) {
			return nil, fmt.Errorf("ellipsoid radii %v: %w", radii, dynamo.ErrParameterBounds)
		}
	}
	m := mgl64.Translate3D(center[0], center[1], center[2]).Mul4(mgl64.Scale3D(radii[0], radii[1], radii[2]))
	return NewEllipsoidTransform(m)
}

// NewEllipsoidTransform builds an ellipsoid from an arbitrary affine
// transform of the unit sphere.
func NewEllipsoidTransform(m mgl64.Mat4) (*Ellipsoid, error) {
	if math.Abs(m.Det()) < 1e-12 {
		return nil, fmt.Errorf("singular ellipsoid transform: %w", dynamo.ErrParameterBounds)
	}
	return &Ellipsoid{transform: m, inverse: m.Inv()}, nil
}

// Transform returns the local-to-world matrix.
func (e *Ellipsoid) Transform() mgl64.Mat4 {
	return e.transform
}

func (e *Ellipsoid) Project(p mgl64.Vec3) (mgl64.Vec3, bool) {
	local := e.inverse.Mul4x1(p.Vec4(1)).Vec3()
	r := local.Len()
	if r >= 1 {
		return p, false
	}
	if r < degenerateLength {
		local = mgl64.Vec3{0, 1, 0}
	} else {
		local = local.Mul(1 / r)
	}
	return e.transform.Mul4x1(local.Vec4(1)).Vec3(), true
}

// Plane is the half-space below Height on the Y axis.
type Plane struct {
	Height float64
}

func (pl Plane) Project(p mgl64.Vec3) (mgl64.Vec3, bool) {
	if p[1] >= pl.Height {
		return p, false
	}
	return mgl64.Vec3{p[0], pl.Height, p[2]}, true
}
