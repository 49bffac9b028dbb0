package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/viz"
)

const svgHeader = `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`

// CanvasToSVG draws each lit Braille dot as a circle.
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}
	w, h := canvas.DotSize()

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, int(float64(w)*scale), int(float64(h)*scale), int(float64(w)*scale), int(float64(h)*scale))
	sb.WriteString(`<g fill="#00ff00">` + "\n")

	r := scale * 0.4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if canvas.IsSet(x, y) {
				fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>`+"\n",
					float64(x)*scale+scale/2, float64(y)*scale+scale/2, r)
			}
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

var springColors = map[cloth.SpringType]string{
	cloth.Structure: "#00ffff",
	cloth.Shear:     "#ff00ff",
	cloth.Bend:      "#ffaa00",
}

// ClothToSVG draws a cloth frame as line segments seen through cam.
// Shear and bend springs are included only when all is set. Pinned
// particles are marked with a dot.
func ClothToSVG(w io.Writer, cam *viz.Camera, positions []mgl64.Vec3, springs []cloth.Spring, pinned []bool, width, height int, all bool) error {
	proj := cam.Frame(positions, width, height)

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, width, height, width, height)
	sb.WriteString(`<g stroke-width="1" stroke-linecap="round">` + "\n")
	for _, s := range springs {
		if s.Type != cloth.Structure && !all {
			continue
		}
		x0, y0 := proj.Project(positions[s.P1])
		x1, y1 := proj.Project(positions[s.P2])
		fmt.Fprintf(&sb, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="%s"/>`+"\n", x0, y0, x1, y1, springColors[s.Type])
	}
	sb.WriteString("</g>\n")

	for i, p := range pinned {
		if p && i < len(positions) {
			x, y := proj.Project(positions[i])
			fmt.Fprintf(&sb, `<circle cx="%d" cy="%d" r="3" fill="#ff4444"/>`+"\n", x, y)
		}
	}
	sb.WriteString("</svg>\n")

	_, err := io.WriteString(w, sb.String())
	return err
}

// SeriesToSVG plots y against x as a polyline.
func SeriesToSVG(xs, ys []float64, width, height int, strokeColor string) string {
	n := min(len(xs), len(ys))
	if n < 2 {
		return ""
	}

	minX, maxX := xs[0], xs[0]
	minY, maxY := ys[0], ys[0]
	for i := 0; i < n; i++ {
		minX, maxX = min(minX, xs[i]), max(maxX, xs[i])
		minY, maxY = min(minY, ys[i]), max(maxY, ys[i])
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
	minY -= rangeY * 0.1
	rangeX *= 1.2
	rangeY *= 1.2

	var sb strings.Builder
	fmt.Fprintf(&sb, svgHeader, width, height, width, height)
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)

	for i := 0; i < n; i++ {
		x := (xs[i] - minX) / rangeX * float64(width)
		y := float64(height) - (ys[i]-minY)/rangeY*float64(height)
		if i == 0 {
			fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
		} else {
			fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
