package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/sim"
)

const (
	metadataFile = "metadata.json"
	configFile   = "config.yaml"
	seriesFile   = "series.csv"
	framesFile   = "frames.csv"
)

var seriesHeader = []string{"step", "time", "kinetic", "gravitational", "elastic", "total", "max_stretch", "unstable"}

var framesHeader = []string{"step", "time", "particle", "x", "y", "z"}

type Store struct {
	baseDir string
	now     func() time.Time
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir, now: time.Now}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Name          string             `json:"name"`
	Timestamp     time.Time          `json:"timestamp"`
	NumX          int                `json:"num_x"`
	NumY          int                `json:"num_y"`
	Width         int                `json:"width"`
	Height        int                `json:"height"`
	Dt            float64            `json:"dt"`
	Duration      float64            `json:"duration"`
	Integrator    string             `json:"integrator"`
	PinMode       string             `json:"pin_mode"`
	Steps         int                `json:"steps"`
	Samples       int                `json:"samples"`
	Frames        int                `json:"frames"`
	Instabilities int                `json:"instabilities"`
	Metrics       map[string]float64 `json:"metrics"`
	Errors        []string           `json:"errors,omitempty"`
}

// Save writes a run directory holding the metadata, the config that
// produced the run, the sampled series and, when recorded, the frames.
func (s *Store) Save(name string, cfg *config.Config, result *sim.Result) (string, error) {
	if err := s.Init(); err != nil {
		return "", err
	}

	now := s.now()
	runID, runDir, err := s.reserve(fmt.Sprintf("%s_%d", name, now.Unix()))
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:            runID,
		Name:          name,
		Timestamp:     now,
		NumX:          cfg.NumX,
		NumY:          cfg.NumY,
		Width:         result.Width,
		Height:        result.Height,
		Dt:            cfg.Dt,
		Duration:      cfg.Duration,
		Integrator:    cfg.Integrator,
		PinMode:       cfg.PinMode,
		Steps:         result.StepsTaken,
		Samples:       len(result.Samples),
		Frames:        len(result.Frames),
		Instabilities: len(result.Instabilities),
		Metrics:       result.Metrics,
	}
	for _, e := range result.Errors {
		meta.Errors = append(meta.Errors, e.Error())
	}

	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	if err := writeFile(filepath.Join(runDir, seriesFile), func(w io.Writer) error {
		return WriteSeriesCSV(w, result.Samples)
	}); err != nil {
		return "", err
	}
	if len(result.Frames) > 0 {
		if err := writeFile(filepath.Join(runDir, framesFile), func(w io.Writer) error {
			return WriteFramesCSV(w, result.Frames)
		}); err != nil {
			return "", err
		}
	}

	return runID, nil
}

// reserve creates a fresh run directory, suffixing the id when a run with
// the same name was saved within the same second.
func (s *Store) reserve(base string) (string, string, error) {
	id := base
	for i := 2; ; i++ {
		dir := filepath.Join(s.baseDir, id)
		err := os.Mkdir(dir, 0755)
		if err == nil {
			return id, dir, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return "", "", err
		}
		id = fmt.Sprintf("%s_%d", base, i)
	}
}

// List returns all readable runs, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}

		runs = append(runs, *meta)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}

	return &meta, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

func (s *Store) LoadSeries(runID string) ([]sim.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, seriesFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return ReadSeriesCSV(file)
}

// LoadFrames returns the recorded snapshots, or none when the run was
// saved without frames.
func (s *Store) LoadFrames(runID string) ([]sim.Snapshot, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, framesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return []sim.Snapshot{}, nil
		}
		return nil, err
	}
	defer file.Close()

	return ReadFramesCSV(file)
}

func WriteSeriesCSV(out io.Writer, samples []sim.Sample) error {
	w := csv.NewWriter(out)

	if err := w.Write(seriesHeader); err != nil {
		return err
	}
	for _, smp := range samples {
		row := []string{
			strconv.Itoa(smp.Step),
			formatFloat(smp.Time),
			formatFloat(smp.KineticEnergy),
			formatFloat(smp.GravitationalEnergy),
			formatFloat(smp.ElasticEnergy),
			formatFloat(smp.TotalEnergy()),
			formatFloat(smp.MaxStretch),
			strconv.FormatBool(smp.Unstable),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func ReadSeriesCSV(in io.Reader) ([]sim.Sample, error) {
	records, err := readRecords(in, len(seriesHeader))
	if err != nil {
		return nil, err
	}

	samples := make([]sim.Sample, 0, len(records))
	for line, record := range records {
		var p fieldParser
		smp := sim.Sample{
			Step:                p.integer(record[0]),
			Time:                p.float(record[1]),
			KineticEnergy:       p.float(record[2]),
			GravitationalEnergy: p.float(record[3]),
			ElasticEnergy:       p.float(record[4]),
			MaxStretch:          p.float(record[6]),
			Unstable:            p.boolean(record[7]),
		}
		if p.err != nil {
			return nil, fmt.Errorf("%s line %d: %w", seriesFile, line+2, p.err)
		}
		samples = append(samples, smp)
	}
	return samples, nil
}

// WriteFramesCSV writes one row per particle per snapshot.
func WriteFramesCSV(out io.Writer, frames []sim.Snapshot) error {
	w := csv.NewWriter(out)

	if err := w.Write(framesHeader); err != nil {
		return err
	}
	for _, f := range frames {
		step, t := strconv.Itoa(f.Step), formatFloat(f.Time)
		for i, p := range f.Positions {
			row := []string{step, t, strconv.Itoa(i), formatFloat(p[0]), formatFloat(p[1]), formatFloat(p[2])}
			if err := w.Write(row); err != nil {
				return err
			}
		}
	}

	w.Flush()
	return w.Error()
}

func ReadFramesCSV(in io.Reader) ([]sim.Snapshot, error) {
	records, err := readRecords(in, len(framesHeader))
	if err != nil {
		return nil, err
	}

	frames := make([]sim.Snapshot, 0)
	for line, record := range records {
		var p fieldParser
		step := p.integer(record[0])
		t := p.float(record[1])
		idx := p.integer(record[2])
		pos := mgl64.Vec3{p.float(record[3]), p.float(record[4]), p.float(record[5])}
		if p.err != nil {
			return nil, fmt.Errorf("%s line %d: %w", framesFile, line+2, p.err)
		}

		if len(frames) == 0 || frames[len(frames)-1].Step != step {
			frames = append(frames, sim.Snapshot{Step: step, Time: t})
		}
		cur := &frames[len(frames)-1]
		if idx != len(cur.Positions) {
			return nil, fmt.Errorf("%s line %d: particle %d out of order", framesFile, line+2, idx)
		}
		cur.Positions = append(cur.Positions, pos)
	}
	return frames, nil
}

// readRecords returns the data rows after the header.
func readRecords(in io.Reader, fields int) ([][]string, error) {
	r := csv.NewReader(in)
	r.FieldsPerRecord = fields

	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return [][]string{}, nil
	}
	return records[1:], nil
}

// fieldParser keeps the first parse error so a row can be decoded without
// checking every field.
type fieldParser struct {
	err error
}

func (p *fieldParser) float(s string) float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *fieldParser) integer(s string) int {
	v, err := strconv.Atoi(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func (p *fieldParser) boolean(s string) bool {
	v, err := strconv.ParseBool(s)
	if err != nil && p.err == nil {
		p.err = err
	}
	return v
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func writeJSON(path string, v any) error {
	return writeFile(path, func(w io.Writer) error {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	})
}

func writeFile(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
