// Package autolevel drives probing sessions and applies their height map to
// the loaded program.
package autolevel

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/mastercactapus/alevel/coord"
	"github.com/mastercactapus/alevel/gcode"
	"github.com/mastercactapus/alevel/machine"
	"github.com/mastercactapus/alevel/machine/grbl"
	"github.com/mastercactapus/alevel/meshlevel"
	"go.uber.org/zap"
)

var (
	ErrNoProgram             = errors.New("no program loaded")
	ErrInsufficientProbeData = errors.New("not enough probe points")
	ErrSessionActive         = errors.New("probing session already active")
	ErrNoArea                = errors.New("no probing area")
	ErrSinkUnavailable       = errors.New("probe file unavailable")
)

// OutputPrefix marks programs produced by leveling. Loading one does not
// replace the source program.
const OutputPrefix = "#AL:"

// wcoTolerance is the largest WCO Z drift ignored by SyncContext.
const wcoTolerance = 1e-5

// Channel is the connection to the machine front end. Calls are made
// while the Controller holds its lock, so implementations must not call
// back into the Controller synchronously.
type Channel interface {
	// SendGcode queues text to be run by the machine.
	SendGcode(text string) error

	// LoadProgram replaces the program shown to the operator.
	LoadProgram(name, text string) error
}

type Config struct {
	Channel Channel

	// Defaults apply to options a command does not set.
	Defaults Options

	// ProbeFile records accepted points. Empty disables recording.
	ProbeFile string

	// OutDir receives a copy of every leveled program. Empty disables it.
	OutDir string

	Logger *zap.Logger
}

// Program is the program currently loaded by the operator.
type Program struct {
	Name   string
	Text   string
	Bounds *coord.Bounds
}

// Controller owns the probing session state and reacts to machine output.
type Controller struct {
	mx sync.Mutex

	cfg Config
	ch  Channel
	log *zap.Logger

	stream grbl.ProbeStream
	wco    coord.Point

	program *Program
	session *Session
	sink    *sink

	points []coord.Point
	step   float64
}

func NewController(cfg Config) *Controller {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Defaults.Step <= 0 {
		cfg.Defaults = DefaultOptions()
	}
	return &Controller{
		cfg:  cfg,
		ch:   cfg.Channel,
		log:  cfg.Logger,
		step: cfg.Defaults.Step,
	}
}

var commentSafe = strings.NewReplacer("(", "[", ")", "]", "\n", " ")

// msg sends an operator message as a comment line.
func (c *Controller) msg(format string, args ...interface{}) {
	text := commentSafe.Replace(fmt.Sprintf(format, args...))
	c.log.Info(text)
	if err := c.ch.SendGcode("(AL: " + text + ")"); err != nil {
		c.log.Error("send message", zap.Error(err))
	}
}

// Start parses cmd and begins a probing session. ctx supplies the area
// when neither the command nor the loaded program does; it may be nil.
func (c *Controller) Start(cmd string, ctx *coord.Bounds) error {
	c.mx.Lock()
	defer c.mx.Unlock()

	if c.session != nil {
		c.msg("probing already in progress, %d/%d points", len(c.session.Points), c.session.Planned)
		return ErrSessionActive
	}

	opts, err := ParseCommand(cmd, c.cfg.Defaults)
	if err != nil {
		c.msg("ignored options: %v", err)
	}

	var progBounds *coord.Bounds
	if c.program == nil {
		c.msg("no gcode loaded")
		if !opts.ProbeOnly {
			return ErrNoProgram
		}
	} else {
		progBounds = c.program.Bounds
	}

	area, err := ResolveArea(opts, progBounds, ctx)
	if err != nil {
		c.msg("no probing area, set X and Y")
		return err
	}

	plan, err := machine.GridOptions{
		ProbeOptions: machine.ProbeOptions{
			TravelHeight: opts.TravelHeight,
			FeedRate:     opts.Feed,
		},
		Area:   area,
		Margin: opts.EffectiveMargin(),
		Step:   opts.Step,
		Count:  opts.Grid,
	}.Plan()
	if err != nil {
		c.msg("cannot plan probing: %v", err)
		return err
	}

	c.stream = grbl.ProbeStream{}
	c.session = newSession(plan.Count(), opts)
	c.step = opts.Step

	c.msg("auto-leveling started")
	c.openSink()

	c.log.Info("probing started",
		zap.Stringer("session", c.session.ID),
		zap.Int("points", plan.Count()),
		zap.Stringer("options", opts),
	)
	if err := c.ch.SendGcode(plan.Program.String()); err != nil {
		c.log.Error("send probing program", zap.Error(err))
		c.closeSink()
		c.session = nil
		return err
	}
	return nil
}

func (c *Controller) openSink() {
	if c.cfg.ProbeFile == "" || c.sink != nil {
		return
	}
	s, err := openSink(c.cfg.ProbeFile)
	if err != nil {
		c.log.Warn("probe file", zap.Error(err))
		c.msg("Could not open probe file %s", c.cfg.ProbeFile)
		return
	}
	c.sink = s
	c.msg("Opened probe file %s", c.cfg.ProbeFile)
}

func (c *Controller) closeSink() {
	if c.sink == nil {
		return
	}
	if err := c.sink.Close(); err != nil {
		c.log.Error("close probe file", zap.String("path", c.sink.path), zap.Error(err))
	}
	c.sink = nil
}

// Cancel abandons the active session. Points already probed are dropped.
func (c *Controller) Cancel() bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.session == nil {
		return false
	}
	c.log.Info("probing cancelled", zap.Stringer("session", c.session.ID))
	c.msg("probing cancelled after %d/%d points", len(c.session.Points), c.session.Planned)
	c.closeSink()
	c.session = nil
	c.wco = coord.Point{}
	return true
}

// Active reports whether a probing session is running.
func (c *Controller) Active() bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.session != nil
}

// HandleData consumes controller output. Probe records are only used
// while a session is active.
func (c *Controller) HandleData(data []byte) {
	c.mx.Lock()
	defer c.mx.Unlock()

	c.stream.Write(data)
	for {
		res, err := c.stream.Next()
		if errors.Is(err, grbl.ErrNoRecord) {
			return
		}
		if err != nil {
			c.log.Warn("probe record dropped", zap.Error(err))
			continue
		}
		c.record(*res)
	}
}

func (c *Controller) record(res machine.ProbeResult) {
	s := c.session
	if s == nil {
		c.log.Debug("probe result outside session", zap.Float64("x", res.X), zap.Float64("y", res.Y), zap.Float64("z", res.Z))
		return
	}

	p := res.Point.Sub(c.wco)
	if !res.Valid {
		c.msg("warning: probe %d did not make contact", len(s.Points)+1)
	}
	s.Add(p)
	if c.sink != nil {
		if err := c.sink.Write(p); err != nil {
			c.log.Error("write probe file", zap.Error(err))
			c.closeSink()
		}
	}
	c.msg("PROBED %.3f %.3f %.3f", p.X, p.Y, p.Z)

	if !s.Done() {
		return
	}

	min, max, avg := s.Summary()
	c.msg("dz_min=%.3f, dz_max=%.3f, dz_avg=%.3f", min, max, avg)
	c.log.Info("probing finished", zap.Stringer("session", s.ID), zap.Int("points", len(s.Points)))
	c.closeSink()
	c.points = s.Points
	c.session = nil
	c.wco = coord.Point{}

	if s.ProbeOnly {
		c.msg("finished")
		return
	}
	if err := c.apply(); err != nil {
		c.log.Warn("leveling skipped", zap.Error(err))
	}
}

// Reapply levels the loaded program again using the last probed points.
func (c *Controller) Reapply() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.apply()
}

func (c *Controller) apply() error {
	if c.program == nil {
		c.msg("no gcode loaded")
		return ErrNoProgram
	}
	if len(c.points) < 3 {
		c.msg("no previous autolevel points")
		return ErrInsufficientProbeData
	}
	mesh, err := meshlevel.NewMesh(c.points)
	if err != nil {
		c.msg("cannot build mesh: %v", err)
		return fmt.Errorf("%w: %v", ErrInsufficientProbeData, err)
	}

	prog := *c.program
	c.msg("applying mesh to %s ...", prog.Name)
	res := meshlevel.New(meshlevel.Config{
		ZOffsetter:  mesh,
		Granularity: c.step / 2,
		Report:      func(s string) { c.msg("%s", s) },
		Logger:      c.log.Named("meshlevel"),
	}).Level(prog.Text)
	if res.Faults > 0 {
		c.msg("%d lines passed through without leveling", res.Faults)
	}

	name := OutputPrefix + prog.Name
	c.msg("loading new gcode %s ...", name)
	if err := c.ch.LoadProgram(name, res.Program); err != nil {
		c.log.Error("load leveled program", zap.String("name", name), zap.Error(err))
		c.msg("could not load %s: %v", name, err)
		return err
	}

	if c.cfg.OutDir != "" {
		path := filepath.Join(c.cfg.OutDir, name)
		if err := os.WriteFile(path, []byte(res.Program), 0644); err != nil {
			c.log.Error("write leveled program", zap.String("path", path), zap.Error(err))
			c.msg("could not write output file %s", path)
		} else {
			c.msg("output file written to %s", path)
		}
	}

	c.log.Info("program leveled",
		zap.String("name", name),
		zap.Int("lines", res.Lines),
		zap.Int("faults", res.Faults),
		zap.Int("points", len(c.points)),
	)
	c.msg("finished")
	return nil
}

// DumpMesh reports the last probed points and their statistics.
func (c *Controller) DumpMesh() error {
	c.mx.Lock()
	defer c.mx.Unlock()

	if len(c.points) == 0 {
		c.msg("no mesh data")
		return ErrInsufficientProbeData
	}
	c.msg("dumping mesh start")
	for _, p := range c.points {
		c.msg("PROBED %.3f %.3f %.3f", p.X, p.Y, p.Z)
	}
	st := ComputeStats(c.points)
	c.msg("points=%d, z_min=%.3f, z_max=%.3f, z_mean=%.3f, z_stddev=%.3f", st.Count, st.Min, st.Max, st.Mean, st.StdDev)
	c.msg("finished")
	return nil
}

// Points returns a copy of the last probed points.
func (c *Controller) Points() []coord.Point {
	c.mx.Lock()
	defer c.mx.Unlock()
	return append([]coord.Point(nil), c.points...)
}

// LoadSession replaces the retained points with a recording read from r.
func (c *Controller) LoadSession(r io.Reader) (int, error) {
	points, err := ReadPoints(r)
	if err != nil {
		return 0, err
	}

	c.mx.Lock()
	defer c.mx.Unlock()
	c.points = points
	c.log.Info("probe points loaded", zap.Int("points", len(points)))
	return len(points), nil
}

// ProgramLoaded records the operator's program. Programs named with
// OutputPrefix are our own output and are ignored.
func (c *Controller) ProgramLoaded(name, text string) {
	if strings.HasPrefix(name, OutputPrefix) {
		return
	}
	b, err := gcode.ProgramBounds(strings.NewReader(text))
	if err != nil {
		c.log.Warn("program bounds", zap.String("name", name), zap.Error(err))
		b = nil
	}

	c.mx.Lock()
	defer c.mx.Unlock()
	c.program = &Program{Name: name, Text: text, Bounds: b}
	if b != nil {
		c.log.Info("program loaded", zap.String("name", name),
			zap.Float64("xmin", b.Min.X), zap.Float64("xmax", b.Max.X),
			zap.Float64("ymin", b.Min.Y), zap.Float64("ymax", b.Max.Y),
		)
	} else {
		c.log.Info("program loaded without XY bounds", zap.String("name", name))
	}
}

func (c *Controller) ProgramUnloaded() {
	c.mx.Lock()
	defer c.mx.Unlock()
	c.program = nil
}

// Program returns the loaded program, or nil.
func (c *Controller) Program() *Program {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.program == nil {
		return nil
	}
	p := *c.program
	return &p
}

// UpdateState stores the current work coordinate offset.
func (c *Controller) UpdateState(wco coord.Point) {
	c.mx.Lock()
	c.wco = wco
	c.mx.Unlock()
}

// SyncContext corrects the stored WCO Z from a machine and work Z pair
// reported by the front end.
func (c *Controller) SyncContext(mposZ, posZ float64) {
	c.mx.Lock()
	defer c.mx.Unlock()
	z := mposZ - posZ
	if c.wco.Z == 0 || math.Abs(c.wco.Z-z) <= wcoTolerance {
		return
	}
	c.log.Warn("WCO Z out of sync, using the reported value", zap.Float64("stored", c.wco.Z), zap.Float64("reported", z))
	c.wco.Z = z
}
