package storage

import (
	"encoding/json"
	"io"
	"os"

	"github.com/san-kum/clothsim/internal/sim"
)

type ExportData struct {
	Run     RunMetadata        `json:"run"`
	Series  []ExportPoint      `json:"series"`
	Frames  []ExportFrame      `json:"frames,omitempty"`
	Metrics map[string]float64 `json:"metrics"`
}

type ExportPoint struct {
	Step          int     `json:"step"`
	Time          float64 `json:"time"`
	Kinetic       float64 `json:"kinetic"`
	Gravitational float64 `json:"gravitational"`
	Elastic       float64 `json:"elastic"`
	Total         float64 `json:"total"`
	MaxStretch    float64 `json:"max_stretch"`
	Unstable      bool    `json:"unstable"`
}

// ExportFrame packs positions as x0, y0, z0, x1, ... so a consumer can
// rebuild the grid from Run.Width and Run.Height.
type ExportFrame struct {
	Step      int       `json:"step"`
	Time      float64   `json:"time"`
	Positions []float64 `json:"positions"`
}

func NewExportData(meta RunMetadata, samples []sim.Sample, frames []sim.Snapshot) ExportData {
	data := ExportData{
		Run:     meta,
		Series:  make([]ExportPoint, len(samples)),
		Metrics: meta.Metrics,
	}

	for i, s := range samples {
		data.Series[i] = ExportPoint{
			Step:          s.Step,
			Time:          s.Time,
			Kinetic:       s.KineticEnergy,
			Gravitational: s.GravitationalEnergy,
			Elastic:       s.ElasticEnergy,
			Total:         s.TotalEnergy(),
			MaxStretch:    s.MaxStretch,
			Unstable:      s.Unstable,
		}
	}

	for _, f := range frames {
		flat := make([]float64, 0, 3*len(f.Positions))
		for _, p := range f.Positions {
			flat = append(flat, p[0], p[1], p[2])
		}
		data.Frames = append(data.Frames, ExportFrame{Step: f.Step, Time: f.Time, Positions: flat})
	}

	return data
}

func WriteJSON(w io.Writer, data ExportData) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}

func ExportJSON(path string, data ExportData) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteJSON(file, data); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Export loads a saved run and assembles its export document.
func (s *Store) Export(runID string, withFrames bool) (ExportData, error) {
	meta, err := s.Load(runID)
	if err != nil {
		return ExportData{}, err
	}
	samples, err := s.LoadSeries(runID)
	if err != nil {
		return ExportData{}, err
	}

	var frames []sim.Snapshot
	if withFrames {
		if frames, err = s.LoadFrames(runID); err != nil {
			return ExportData{}, err
		}
	}
	return NewExportData(*meta, samples, frames), nil
}
