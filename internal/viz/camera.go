package viz

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/cloth"
)

// Camera is an orthographic view that orbits the cloth's bounding box.
type Camera struct {
	Yaw, Pitch float64
	Zoom       float64
}

func NewCamera() *Camera {
	return &Camera{Yaw: -math.Pi / 6, Pitch: math.Pi / 8, Zoom: 1}
}

func (c *Camera) Orbit(dYaw, dPitch float64) {
	c.Yaw += dYaw
	c.Pitch = mgl64.Clamp(c.Pitch+dPitch, -math.Pi/2, math.Pi/2)
}

func (c *Camera) ZoomIn()  { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut() { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// rotation maps world directions into view space.
func (c *Camera) rotation() mgl64.Mat4 {
	return mgl64.HomogRotate3DX(c.Pitch).Mul4(mgl64.HomogRotate3DY(c.Yaw))
}

// Projector maps world points to canvas dots for one frame.
type Projector struct {
	view          mgl64.Mat4
	scale         float64
	cx, cy        float64
	width, height int
}

// Frame fits the given points into a w by h dot area.
func (c *Camera) Frame(points []mgl64.Vec3, w, h int) Projector {
	rot := c.rotation()
	center, radius := bounds(points)
	view := rot.Mul4(mgl64.Translate3D(-center[0], -center[1], -center[2]))

	scale := 1.0
	if radius > 0 {
		// leave a margin and let zoom push past it
		scale = 0.45 * math.Min(float64(w), float64(h)) / radius * c.Zoom
	}
	return Projector{view: view, scale: scale, cx: float64(w) / 2, cy: float64(h) / 2, width: w, height: h}
}

// Project returns the dot coordinates of p. Y grows downward on screen.
func (p Projector) Project(v mgl64.Vec3) (int, int) {
	local := mgl64.TransformCoordinate(v, p.view)
	return int(math.Round(p.cx + local[0]*p.scale)), int(math.Round(p.cy - local[1]*p.scale))
}

func bounds(points []mgl64.Vec3) (mgl64.Vec3, float64) {
	if len(points) == 0 {
		return mgl64.Vec3{}, 0
	}
	lo, hi := points[0], points[0]
	for _, p := range points[1:] {
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], p[k])
			hi[k] = math.Max(hi[k], p[k])
		}
	}
	return lo.Add(hi).Mul(0.5), hi.Sub(lo).Len() / 2
}

// DrawCloth renders the structural springs of a cloth as a wireframe.
// Bend and shear springs are skipped to keep the mesh readable.
func DrawCloth(cv *Canvas, cam *Camera, positions []mgl64.Vec3, springs []cloth.Spring) {
	cv.Clear()
	w, h := cv.DotSize()
	proj := cam.Frame(positions, w, h)

	if len(springs) == 0 {
		for _, p := range positions {
			cv.Set(proj.Project(p))
		}
		return
	}
	for _, s := range springs {
		if s.Type != cloth.Structure {
			continue
		}
		x0, y0 := proj.Project(positions[s.P1])
		x1, y1 := proj.Project(positions[s.P2])
		cv.DrawLine(x0, y0, x1, y1)
	}
}
