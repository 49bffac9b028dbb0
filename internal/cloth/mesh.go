package cloth

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/dynamo"
)

// Mesh is the undeformed grid: (NumX+1)*(NumY+1) row-major positions and
// the springs between them.
type Mesh struct {
	NumX, NumY int
	Spacing    float64
	Positions  []mgl64.Vec3
	Springs    []Spring
}

// Index returns the particle index of a grid cell corner.
func (m *Mesh) Index(row, col int) int {
	return row*(m.NumX+1) + col
}

// BuildMesh lays a flat grid in the X-Z plane (y = 0, z grows negative
// with the row) and generates structural, shear and bend springs. Springs
// take their coefficients from coeffs by category.
func BuildMesh(numX, numY int, spacing float64, coeffs [numSpringTypes]Coefficients) (*Mesh, error) {
	if numX < 0 || numY < 0 {
		return nil, fmt.Errorf("grid %dx%d: %w", numX, numY, dynamo.ErrInvalidConfig)
	}
	if spacing < 0 || math.IsNaN(spacing) || math.IsInf(spacing, 0) {
		return nil, fmt.Errorf("spacing=%g: %w", spacing, dynamo.ErrInvalidConfig)
	}
	if spacing == 0 && numX+numY > 0 {
		return nil, fmt.Errorf("zero spacing for a %dx%d grid: %w", numX, numY, dynamo.ErrInvalidConfig)
	}

	m := &Mesh{
		NumX:      numX,
		NumY:      numY,
		Spacing:   spacing,
		Positions: make([]mgl64.Vec3, (numX+1)*(numY+1)),
	}

	for row := 0; row <= numY; row++ {
		for col := 0; col <= numX; col++ {
			m.Positions[m.Index(row, col)] = mgl64.Vec3{float64(col) * spacing, 0, -float64(row) * spacing}
		}
	}

	counts := SpringCounts(numX, numY)
	m.Springs = make([]Spring, 0, counts[Structure]+counts[Shear]+counts[Bend])

	// structural: horizontal then vertical
	for row := 0; row <= numY; row++ {
		for col := 0; col < numX; col++ {
			m.addSpring(m.Index(row, col), m.Index(row, col+1), Structure, coeffs)
		}
	}
	for col := 0; col <= numX; col++ {
		for row := 0; row < numY; row++ {
			m.addSpring(m.Index(row, col), m.Index(row+1, col), Structure, coeffs)
		}
	}

	for row := 0; row < numY; row++ {
		for col := 0; col < numX; col++ {
			m.addSpring(m.Index(row, col), m.Index(row+1, col+1), Shear, coeffs)
			m.addSpring(m.Index(row, col+1), m.Index(row+1, col), Shear, coeffs)
		}
	}

	for row := 0; row <= numY; row++ {
		for col := 0; col+2 <= numX; col++ {
			m.addSpring(m.Index(row, col), m.Index(row, col+2), Bend, coeffs)
		}
	}
	for col := 0; col <= numX; col++ {
		for row := 0; row+2 <= numY; row++ {
			m.addSpring(m.Index(row, col), m.Index(row+2, col), Bend, coeffs)
		}
	}

	return m, nil
}

func (m *Mesh) addSpring(p1, p2 int, t SpringType, coeffs [numSpringTypes]Coefficients) {
	m.Springs = append(m.Springs, Spring{
		P1:         p1,
		P2:         p2,
		RestLength: m.Positions[p1].Sub(m.Positions[p2]).Len(),
		Stiffness:  coeffs[t].Stiffness,
		Damping:    coeffs[t].Damping,
		Type:       t,
	})
}
