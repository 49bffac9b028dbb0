package integrators

import (
	"fmt"
	"strings"

	"github.com/san-kum/clothsim/internal/dynamo"
)

// Method selects an integration scheme.
type Method int

const (
	ExplicitEuler Method = iota
	RK4
	Verlet
)

var methodNames = map[Method]string{
	ExplicitEuler: "euler",
	RK4:           "rk4",
	Verlet:        "verlet",
}

func (m Method) String() string {
	if name, ok := methodNames[m]; ok {
		return name
	}
	return fmt.Sprintf("method(%d)", int(m))
}

// ParseMethod maps a name such as "rk4" to a Method.
func ParseMethod(name string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "euler", "explicit_euler", "explicit-euler":
		return ExplicitEuler, nil
	case "rk4", "runge_kutta", "runge-kutta":
		return RK4, nil
	case "verlet":
		return Verlet, nil
	}
	return 0, fmt.Errorf("unknown integrator: %s: %w", name, dynamo.ErrInvalidConfig)
}

// Valid reports whether m names a known scheme.
func (m Method) Valid() bool {
	_, ok := methodNames[m]
	return ok
}

// Methods lists all schemes in declaration order.
func Methods() []Method {
	return []Method{ExplicitEuler, RK4, Verlet}
}

// New returns a fresh integrator for the method. Callers validate m first;
// unknown methods get explicit Euler.
func New(m Method) dynamo.Integrator {
	switch m {
	case RK4:
		return NewRK4()
	case Verlet:
		return NewVerlet()
	default:
		return NewEuler()
	}
}
