package viz

import (
	"fmt"
	"math"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/clothsim/internal/cloth"
	"github.com/san-kum/clothsim/internal/config"
	"github.com/san-kum/clothsim/internal/integrators"
	"github.com/san-kum/clothsim/internal/sim"
)

const (
	frameRate    = 60
	historyLen   = 120
	maxFrameTime = 0.25
)

// TickMsg drives the frame loop.
type TickMsg time.Time

func tick() tea.Cmd {
	return tea.Tick(time.Second/frameRate, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// param is one tunable shown in the side panel.
type param struct {
	name  string
	floor float64 // first value when raising from zero
	get   func(*sim.Driver) float64
	set   func(*sim.Driver, float64) error
}

func springParams(t cloth.SpringType) []param {
	return []param{
		{
			name:  t.String() + " k",
			floor: 0.1,
			get:   func(d *sim.Driver) float64 { return d.Cloth().Coefficients(t).Stiffness },
			set:   func(d *sim.Driver, v float64) error { return d.Cloth().SetStiffness(t, v) },
		},
		{
			name:  t.String() + " c",
			floor: 0.001,
			get:   func(d *sim.Driver) float64 { return d.Cloth().Coefficients(t).Damping },
			set:   func(d *sim.Driver, v float64) error { return d.Cloth().SetDamping(t, v) },
		},
	}
}

func defaultParams() []param {
	var ps []param
	for _, t := range cloth.SpringTypes() {
		ps = append(ps, springParams(t)...)
	}
	return append(ps,
		param{
			name:  "gravity",
			floor: -0.001,
			get:   func(d *sim.Driver) float64 { return d.Cloth().Gravity().Y() },
			set: func(d *sim.Driver, v float64) error {
				g := d.Cloth().Gravity()
				g[1] = v
				return d.Cloth().SetGravity(g)
			},
		},
		param{
			name:  "mass",
			floor: 0.1,
			get:   func(d *sim.Driver) float64 { return d.Cloth().Mass() },
			set:   func(d *sim.Driver, v float64) error { return d.Cloth().SetMass(v) },
		},
		param{
			name:  "max speed",
			floor: 0.1,
			get:   func(d *sim.Driver) float64 { return d.Cloth().MaxSpeed() },
			set:   func(d *sim.Driver, v float64) error { return d.Cloth().SetMaxSpeed(v) },
		},
		param{
			name:  "dt",
			floor: 0.001,
			get:   func(d *sim.Driver) float64 { return d.Dt() },
			set:   func(d *sim.Driver, v float64) error { return d.SetDt(v) },
		},
	)
}

// Model is the watch dashboard.
type Model struct {
	name   string
	driver *sim.Driver
	canvas *Canvas
	camera *Camera

	params   []param
	selected int
	theme    int
	speed    float64

	energy   []float64
	kinetic  []float64
	lastTick time.Time
	status   string
	showHelp bool

	width, height int
}

// NewModel builds the cloth described by cfg and wraps it in a dashboard.
func NewModel(name string, cfg *config.Config) (*Model, error) {
	c, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	d, err := sim.NewDriver(c, cfg.Dt)
	if err != nil {
		return nil, err
	}
	d.SetPauseOnInstability(cfg.PauseOnInstability)

	m := &Model{
		name:   name,
		driver: d,
		canvas: NewCanvas(60, 22),
		camera: NewCamera(),
		params: defaultParams(),
		speed:  1,
		width:  120,
		height: 36,
	}
	m.record()
	return m, nil
}

func (m *Model) Driver() *sim.Driver { return m.driver }
func (m *Model) Speed() float64      { return m.speed }
func (m *Model) Status() string      { return m.status }
func (m *Model) Theme() Theme        { return Themes[m.theme] }

func (m *Model) SetTheme(name string) { m.theme = ThemeIndex(name) }

func (m *Model) Init() tea.Cmd {
	return tick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m, m.handleKey(msg.String())
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.canvas.Resize(max(20, m.width-44), max(8, m.height-8))
	case TickMsg:
		m.advance(time.Time(msg))
		return m, tick()
	}
	return m, nil
}

func (m *Model) handleKey(key string) tea.Cmd {
	switch key {
	case "q", "ctrl+c":
		return tea.Quit
	case " ":
		m.driver.Toggle()
		m.status = ""
	case "n", ".":
		if m.driver.Paused() {
			m.fail(m.driver.StepOnce())
			m.record()
		}
	case "r":
		m.driver.Reset()
		m.energy, m.kinetic = m.energy[:0], m.kinetic[:0]
		m.record()
		m.status = "reset"
	case "tab":
		m.selected = (m.selected + 1) % len(m.params)
	case "shift+tab":
		m.selected = (m.selected + len(m.params) - 1) % len(m.params)
	case "up", "k":
		m.adjust(1.1)
	case "down", "j":
		m.adjust(1 / 1.1)
	case "i":
		m.cycleIntegrator()
	case "p":
		m.cyclePinMode()
	case "u":
		m.driver.SetPauseOnInstability(!m.driver.PauseOnInstability())
	case ">":
		m.speed = math.Min(8, m.speed*2)
	case "<":
		m.speed = math.Max(0.125, m.speed/2)
	case "h", "left":
		m.camera.Orbit(-0.1, 0)
	case "l", "right":
		m.camera.Orbit(0.1, 0)
	case "w":
		m.camera.Orbit(0, 0.1)
	case "s":
		m.camera.Orbit(0, -0.1)
	case "+", "=":
		m.camera.ZoomIn()
	case "-", "_":
		m.camera.ZoomOut()
	case "t":
		m.theme = (m.theme + 1) % len(Themes)
	case "?":
		m.showHelp = !m.showHelp
	}
	return nil
}

// advance feeds the wall time since the previous tick into the driver.
func (m *Model) advance(now time.Time) {
	elapsed := 0.0
	if !m.lastTick.IsZero() {
		elapsed = math.Min(now.Sub(m.lastTick).Seconds(), maxFrameTime)
	}
	m.lastTick = now

	wasPaused := m.driver.Paused()
	n, err := m.driver.Advance(elapsed * m.speed)
	if err != nil {
		m.driver.Pause()
		m.fail(err)
	}
	if n > 0 {
		m.record()
	}
	if !wasPaused && m.driver.Paused() && err == nil {
		m.status = "paused: instability detected"
	}
}

func (m *Model) adjust(factor float64) {
	p := m.params[m.selected]
	v := p.get(m.driver)
	next := v * factor
	if v == 0 {
		if factor < 1 {
			return
		}
		next = p.floor
	}
	if err := p.set(m.driver, next); err != nil {
		m.fail(err)
		return
	}
	m.status = fmt.Sprintf("%s = %.4g", p.name, next)
}

func (m *Model) cycleIntegrator() {
	methods := integrators.Methods()
	c := m.driver.Cloth()
	for i, meth := range methods {
		if meth == c.Method() {
			if err := c.SetIntegrator(methods[(i+1)%len(methods)]); err != nil {
				m.fail(err)
				return
			}
			break
		}
	}
	m.status = "integrator: " + c.Method().String()
}

func (m *Model) cyclePinMode() {
	modes := []cloth.PinMode{cloth.PinNone, cloth.PinFourCorners, cloth.PinTopCorners}
	c := m.driver.Cloth()
	next := modes[(int(c.PinMode())+1)%len(modes)]
	if err := c.SetPinMode(next); err != nil {
		m.fail(err)
		return
	}
	m.status = "pins: " + next.String()
}

func (m *Model) fail(err error) {
	if err != nil {
		m.status = "error: " + err.Error()
	}
}

func (m *Model) record() {
	c := m.driver.Cloth()
	ke := c.KineticEnergy()
	m.kinetic = appendBounded(m.kinetic, ke)
	m.energy = appendBounded(m.energy, ke+c.GravitationalEnergy()+c.ElasticEnergy())
}

func appendBounded(xs []float64, v float64) []float64 {
	if len(xs) >= historyLen {
		copy(xs, xs[1:])
		xs = xs[:len(xs)-1]
	}
	return append(xs, v)
}

func (m *Model) View() string {
	st := Themes[m.theme].styles()
	c := m.driver.Cloth()

	DrawCloth(m.canvas, m.camera, c.Positions(), c.Springs())
	canvasView := st.canvas.Render(m.canvas.String())

	numX, numY := c.Dimensions()
	var s strings.Builder
	s.WriteString(st.header.Render(fmt.Sprintf("CLOTH %s  %dx%d", strings.ToUpper(m.name), numX, numY)) + "\n")

	switch {
	case m.driver.Paused():
		s.WriteString(st.paused.Render("PAUSED"))
	default:
		s.WriteString(st.running.Render("RUNNING"))
	}
	s.WriteString(fmt.Sprintf("  x%g\n\n", m.speed))

	row := func(label, value string) {
		s.WriteString(st.label.Render(label) + st.value.Render(value) + "\n")
	}
	row("time", fmt.Sprintf("%.2fs", m.driver.SimTime()))
	row("steps", fmt.Sprintf("%d", c.Steps()))
	row("integrator", c.Method().String())
	row("pins", c.PinMode().String())
	row("kinetic", fmt.Sprintf("%.4g", last(m.kinetic)))
	row("total", fmt.Sprintf("%.4g", last(m.energy)))

	ratio := c.MaxStretchRatio()
	limit := c.Thresholds().MaxExtensionRatio
	fill := 0.0
	if limit > 1 {
		fill = (ratio - 1) / (limit - 1)
	}
	row("stretch", fmt.Sprintf("%s %.3f", Gauge(fill, 10), ratio))

	stab := m.driver.LastStability()
	flag := func(name string, bad bool) string {
		if bad {
			return st.alarm.Render(name)
		}
		return st.hint.Render(name)
	}
	row("stability", flag("springs", stab.Overextended)+" "+flag("velocity", stab.VelocityJump))
	row("unstable", fmt.Sprintf("%d steps", m.driver.UnstableSteps()))
	if m.driver.PauseOnInstability() {
		row("on unstable", "pause")
	} else {
		row("on unstable", "continue")
	}

	s.WriteString("\n")
	for i, p := range m.params {
		line := fmt.Sprintf("%-11s %10.4g", p.name, p.get(m.driver))
		if i == m.selected {
			s.WriteString(st.selected.Render("> "+line) + "\n")
		} else {
			s.WriteString("  " + line + "\n")
		}
	}

	if len(m.energy) > 1 {
		chart := asciigraph.Plot(m.energy, asciigraph.Height(4), asciigraph.Width(30), asciigraph.Caption("total energy"))
		s.WriteString("\n" + chart + "\n")
	}
	s.WriteString(Sparkline(m.kinetic, 30) + "\n")

	if m.status != "" {
		s.WriteString("\n" + st.hint.Render(m.status) + "\n")
	}

	statsView := st.panel.Render(s.String())
	view := lipgloss.JoinHorizontal(lipgloss.Top, canvasView, " ", statsView)

	if m.showHelp {
		view += "\n" + st.hint.Render(helpText)
	} else {
		view += "\n" + st.hint.Render("space pause  n step  r reset  tab/up/down tune  i integrator  p pins  ? help  q quit")
	}
	return view
}

const helpText = `space pause/resume   n step   r reset
tab/shift+tab select parameter   up/down adjust by 10%
i integrator   p pin mode   u pause on instability
< > playback speed   h/l w/s orbit   + - zoom
t theme   ? help   q quit`

func last(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return xs[len(xs)-1]
}

// Run starts the dashboard on the terminal and blocks until it exits.
func Run(name string, cfg *config.Config, theme string) error {
	m, err := NewModel(name, cfg)
	if err != nil {
		return err
	}
	m.SetTheme(theme)
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}
