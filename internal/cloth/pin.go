package cloth

import (
	"fmt"
	"strings"

	"github.com/san-kum/clothsim/internal/dynamo"
)

// PinMode selects which grid corners are held fixed.
type PinMode int

const (
	PinNone PinMode = iota
	PinFourCorners
	PinTopCorners
)

func (p PinMode) String() string {
	switch p {
	case PinNone:
		return "none"
	case PinFourCorners:
		return "four_corners"
	case PinTopCorners:
		return "top_corners"
	}
	return fmt.Sprintf("pin(%d)", int(p))
}

// ParsePinMode maps a name such as "top_corners" to a PinMode.
func ParsePinMode(name string) (PinMode, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "-", "_") {
	case "", "none":
		return PinNone, nil
	case "four_corners", "corners", "four":
		return PinFourCorners, nil
	case "top_corners", "top":
		return PinTopCorners, nil
	}
	return 0, fmt.Errorf("unknown pin mode: %s: %w", name, dynamo.ErrInvalidConfig)
}

// cornerPins returns the pin flags for a (numX+1) x (numY+1) grid. Row 0 is
// the top edge.
func cornerPins(mode PinMode, numX, numY int) []bool {
	pinned := make([]bool, (numX+1)*(numY+1))
	switch mode {
	case PinFourCorners:
		if numX == 0 || numY == 0 {
			break
		}
		bottomLeft := numY * (numX + 1)
		pinned[0] = true
		pinned[numX] = true
		pinned[bottomLeft] = true
		pinned[bottomLeft+numX] = true
	case PinTopCorners:
		pinned[0] = true
		pinned[numX] = true
	}
	return pinned
}
