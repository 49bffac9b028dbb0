package cloth

import "fmt"

// SpringType is the topological category of a spring.
type SpringType int

const (
	Structure SpringType = iota
	Shear
	Bend

	numSpringTypes
)

func (t SpringType) String() string {
	switch t {
	case Structure:
		return "structure"
	case Shear:
		return "shear"
	case Bend:
		return "bend"
	}
	return fmt.Sprintf("spring(%d)", int(t))
}

// SpringTypes lists the categories in declaration order.
func SpringTypes() []SpringType {
	return []SpringType{Structure, Shear, Bend}
}

// Coefficients are the stiffness and damping shared by one category.
type Coefficients struct {
	Stiffness float64
	Damping   float64
}

// Spring is a spring-damper between particles P1 and P2. It keeps its own
// copy of the category coefficients; the cloth re-syncs them when the
// category parameter changes.
type Spring struct {
	P1, P2     int
	RestLength float64
	Stiffness  float64
	Damping    float64
	Type       SpringType
}

// SpringCounts returns the number of springs of each category a grid of
// numX by numY cells produces.
func SpringCounts(numX, numY int) map[SpringType]int {
	return map[SpringType]int{
		Structure: numX*(numY+1) + numY*(numX+1),
		Shear:     2 * numX * numY,
		Bend:      max(numX-1, 0)*(numY+1) + max(numY-1, 0)*(numX+1),
	}
}
