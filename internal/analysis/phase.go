package analysis

import (
	"fmt"
	"strings"

	"github.com/san-kum/clothsim/internal/dynamo"
	"github.com/san-kum/clothsim/internal/sim"
)

// Point is one phase-plane sample.
type Point struct{ X, Y float64 }

// PhasePortrait2D holds data for a 2D phase space plot
type PhasePortrait2D struct {
	Particle int
	Axis     int
	Points   []Point
}

// ParticlePortrait builds a position/velocity portrait of one coordinate
// of one particle from recorded frames. Velocities are central differences
// between neighbouring frames, so the first and last frame are dropped.
func ParticlePortrait(frames []sim.Snapshot, particle, axis int) (*PhasePortrait2D, error) {
	if axis < 0 || axis > 2 {
		return nil, fmt.Errorf("axis %d: %w", axis, dynamo.ErrInvalidConfig)
	}
	if len(frames) < 3 {
		return nil, fmt.Errorf("need at least 3 frames, have %d: %w", len(frames), dynamo.ErrInvalidConfig)
	}
	for _, f := range frames {
		if particle < 0 || particle >= len(f.Positions) {
			return nil, fmt.Errorf("particle %d of %d: %w", particle, len(f.Positions), dynamo.ErrInvalidConfig)
		}
	}

	portrait := &PhasePortrait2D{Particle: particle, Axis: axis, Points: make([]Point, 0, len(frames)-2)}
	for i := 1; i < len(frames)-1; i++ {
		prev, next := frames[i-1], frames[i+1]
		span := next.Time - prev.Time
		if span <= 0 {
			continue
		}
		portrait.Points = append(portrait.Points, Point{
			X: frames[i].Positions[particle][axis],
			Y: (next.Positions[particle][axis] - prev.Positions[particle][axis]) / span,
		})
	}
	return portrait, nil
}

// PhasePortraitToASCII converts phase portrait to ASCII art
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	minX, maxX := portrait.Points[0].X, portrait.Points[0].X
	minY, maxY := portrait.Points[0].Y, portrait.Points[0].Y
	for _, p := range portrait.Points {
		minX, maxX = min(minX, p.X), max(maxX, p.X)
		minY, maxY = min(minY, p.Y), max(maxY, p.Y)
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	// zero velocity line
	if minY <= 0 && maxY >= 0 {
		row := height - 1 - int((0-minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			canvas[row][col] = '─'
		}
	}

	n := len(portrait.Points)
	for i, p := range portrait.Points {
		col := int((p.X - minX) / rangeX * float64(width-1))
		row := height - 1 - int((p.Y-minY)/rangeY*float64(height-1))
		if row < 0 || row >= height || col < 0 || col >= width {
			continue
		}
		switch {
		case i < n/3:
			canvas[row][col] = '.'
		case i < 2*n/3:
			canvas[row][col] = 'o'
		default:
			canvas[row][col] = '•'
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
