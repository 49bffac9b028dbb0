package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/viz"
)

func TestCanvasToSVG(t *testing.T) {
	if CanvasToSVG(nil, 1) != "" {
		t.Error("nil canvas should render nothing")
	}

	c := viz.NewCanvas(2, 1)
	c.Set(0, 0)
	c.Set(3, 3)
	svg := CanvasToSVG(c, 2)
	if got := strings.Count(svg, "<circle"); got != 2 {
		t.Errorf("got %d dots, want 2", got)
	}
	if !strings.Contains(svg, `width="8" height="8"`) {
		t.Error("size not scaled")
	}
	if !strings.HasSuffix(svg, "</svg>") {
		t.Error("svg not closed")
	}
}

func TestClothToSVG(t *testing.T) {
	c, err := cloth.New(2, 2, 0.1, 1, cloth.WithPinMode(cloth.PinTopCorners))
	if err != nil {
		t.Fatal(err)
	}
	pinned := make([]bool, c.NumParticles())
	for i := range pinned {
		pinned[i] = c.Pinned(i)
	}

	var buf bytes.Buffer
	if err := ClothToSVG(&buf, viz.NewCamera(), c.Positions(), c.Springs(), pinned, 200, 200, false); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(buf.String(), "<line"); got != 12 {
		t.Errorf("structural lines = %d, want 12", got)
	}
	if got := strings.Count(buf.String(), "<circle"); got != 2 {
		t.Errorf("pin markers = %d, want 2", got)
	}

	buf.Reset()
	if err := ClothToSVG(&buf, viz.NewCamera(), c.Positions(), c.Springs(), nil, 200, 200, true); err != nil {
		t.Fatal(err)
	}
	if got := strings.Count(buf.String(), "<line"); got != c.NumSprings() {
		t.Errorf("all lines = %d, want %d", got, c.NumSprings())
	}
}

func TestSeriesToSVG(t *testing.T) {
	if SeriesToSVG([]float64{1}, []float64{1}, 10, 10, "#fff") != "" {
		t.Error("single point should render nothing")
	}
	svg := SeriesToSVG([]float64{0, 1, 2}, []float64{5, 5, 5}, 100, 50, "#00ff00")
	if strings.Count(svg, " L") != 2 {
		t.Errorf("path segments wrong: %s", svg)
	}
	if !strings.Contains(svg, `stroke="#00ff00"`) {
		t.Error("stroke color missing")
	}
}
