// Package audio turns recorded run series into sound. A series drives the
// pitch of a soft triangle tone, so a settling cloth is heard as a glide
// toward a steady note and an instability as a jump to the top of the range.
package audio

import (
	"errors"
	"io"
	"math"
	"time"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/effects"
	"github.com/gopxl/beep/wav"
)

const SampleRate = beep.SampleRate(44100)

var ErrEmptySeries = errors.New("audio: empty series")

// Options shape the rendered tone.
type Options struct {
	Duration time.Duration
	LowHz    float64
	HighHz   float64
	Volume   float64 // linear gain in (0, 1]
	Fade     time.Duration
}

func DefaultOptions() Options {
	return Options{
		Duration: 4 * time.Second,
		LowHz:    110,
		HighHz:   880,
		Volume:   0.5,
		Fade:     50 * time.Millisecond,
	}
}

// follower plays a triangle wave whose frequency tracks a normalized series.
type follower struct {
	levels   []float64
	low      float64
	ratio    float64
	phase    float64
	pos      int
	total    int
	fade     int
	rate     beep.SampleRate
	smoothed float64
}

func (f *follower) Stream(samples [][2]float64) (n int, ok bool) {
	for i := range samples {
		if f.pos >= f.total {
			return i, i > 0
		}
		// position in the series, linearly interpolated
		x := float64(f.pos) / float64(f.total) * float64(len(f.levels)-1)
		j := int(x)
		level := f.levels[j]
		if j+1 < len(f.levels) {
			level += (f.levels[j+1] - level) * (x - float64(j))
		}
		f.smoothed += (level - f.smoothed) * 0.002

		freq := f.low * math.Pow(f.ratio, f.smoothed)
		val := triangle(f.phase) * f.gain()
		samples[i][0] = val
		samples[i][1] = val

		f.phase += freq / float64(f.rate)
		f.phase -= math.Floor(f.phase)
		f.pos++
	}
	return len(samples), true
}

func (f *follower) Err() error { return nil }

func (f *follower) gain() float64 {
	if f.fade <= 0 {
		return 1
	}
	if f.pos < f.fade {
		return float64(f.pos) / float64(f.fade)
	}
	if rem := f.total - f.pos; rem < f.fade {
		return float64(rem) / float64(f.fade)
	}
	return 1
}

func triangle(phase float64) float64 {
	return 4*math.Abs(phase-0.5) - 1
}

// normalize maps a series onto [0, 1]. Non-finite values pin to the top.
func normalize(series []float64) []float64 {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, v := range series {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			continue
		}
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	out := make([]float64, len(series))
	for i, v := range series {
		switch {
		case math.IsNaN(v) || math.IsInf(v, 0):
			out[i] = 1
		case hi > lo:
			out[i] = (v - lo) / (hi - lo)
		}
	}
	return out
}

// Sonify returns a stereo streamer of opts.Duration that follows series.
func Sonify(series []float64, opts Options) (beep.Streamer, error) {
	if len(series) == 0 {
		return nil, ErrEmptySeries
	}
	if opts.Duration <= 0 || opts.LowHz <= 0 || opts.HighHz < opts.LowHz {
		return nil, errors.New("audio: invalid options")
	}
	levels := normalize(series)
	f := &follower{
		levels:   levels,
		low:      opts.LowHz,
		ratio:    opts.HighHz / opts.LowHz,
		total:    SampleRate.N(opts.Duration),
		fade:     SampleRate.N(opts.Fade),
		rate:     SampleRate,
		smoothed: levels[0],
	}
	return withVolume(f, opts.Volume), nil
}

// math.Log2(0) is -Inf, so zero volume becomes a silent stream.
func withVolume(s beep.Streamer, vol float64) beep.Streamer {
	if vol <= 0 {
		return &effects.Volume{Streamer: s, Base: 2, Silent: true}
	}
	return &effects.Volume{Streamer: s, Base: 2, Volume: math.Log2(math.Min(vol, 1))}
}

// WriteWAV renders series as a 16-bit stereo WAV file.
func WriteWAV(w io.WriteSeeker, series []float64, opts Options) error {
	s, err := Sonify(series, opts)
	if err != nil {
		return err
	}
	format := beep.Format{SampleRate: SampleRate, NumChannels: 2, Precision: 2}
	return wav.Encode(w, s, format)
}
