package meshlevel

import (
	"fmt"
	"strings"

	"github.com/mastercactapus/alevel/coord"
	"github.com/mastercactapus/alevel/gcode"
	"go.uber.org/zap"
)

// DefaultProgressInterval is how many source lines pass between progress
// reports.
const DefaultProgressInterval = 1000

type Config struct {
	ZOffsetter ZOffsetter

	// Granularity is the longest straight segment emitted for a linear
	// move, in mm. Usually half the probing step.
	Granularity float64

	// ArcSegment is the longest chord used to linearize an arc, in mm.
	ArcSegment float64

	// ProgressInterval is the number of lines between progress reports.
	ProgressInterval int

	// Report receives operator-facing messages. It may be nil.
	Report func(msg string)

	Logger *zap.Logger
}

// MeshLeveler rewrites a program so every move follows the probed surface.
type MeshLeveler struct {
	cfg Config
	log *zap.Logger

	vm *gcode.VM

	warnedRelative bool
	unknown        int
}

// Result is the outcome of a leveling pass.
type Result struct {
	Program string

	// Lines is the number of source lines read.
	Lines int

	// Faults counts lines that could not be rewritten and were passed
	// through as-is.
	Faults int

	// Unknown counts XY moves passed through because their start or
	// target position was not known.
	Unknown int
}

func New(cfg Config) *MeshLeveler {
	if cfg.ZOffsetter == nil {
		cfg.ZOffsetter = dummyOffsetter{}
	}
	if cfg.ArcSegment <= 0 {
		cfg.ArcSegment = ArcSegmentLength
	}
	if cfg.ProgressInterval <= 0 {
		cfg.ProgressInterval = DefaultProgressInterval
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &MeshLeveler{
		cfg: cfg,
		log: cfg.Logger,
		vm:  gcode.NewVM(),
	}
}

func (l *MeshLeveler) report(format string, args ...interface{}) {
	if l.cfg.Report == nil {
		return
	}
	l.cfg.Report(fmt.Sprintf(format, args...))
}

// Level rewrites program. A line that fails is passed through unchanged
// and counted in Result.Faults; the rest of the program is still leveled.
func (l *MeshLeveler) Level(program string) Result {
	l.vm = gcode.NewVM()
	l.warnedRelative = false
	l.unknown = 0

	lines := strings.Split(program, "\n")
	res := Result{Lines: len(lines)}
	out := make([]string, 0, len(lines))
	for i, raw := range lines {
		if i%l.cfg.ProgressInterval == 0 {
			l.report("progress ...  %d/%d", i, len(lines))
		}
		raw = strings.TrimSuffix(raw, "\r")
		rewritten, err := l.levelLine(raw)
		if err != nil {
			res.Faults++
			l.log.Warn("line not leveled", zap.Int("line", i+1), zap.String("text", raw), zap.Error(err))
			l.report("error on line %d: %v", i+1, err)
			out = append(out, raw)
			continue
		}
		out = append(out, rewritten...)
	}
	if l.unknown > 0 {
		l.report("warning: %d moves from an unknown position were not leveled", l.unknown)
	}
	res.Unknown = l.unknown
	res.Program = strings.Join(out, "\n")
	return res
}

func (l *MeshLeveler) levelLine(raw string) (out []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			out = nil
			err = fmt.Errorf("internal error: %v", r)
		}
	}()

	ln, err := gcode.ParseLine(raw)
	if err != nil {
		return nil, err
	}
	if ln.Empty() {
		if ln.Comment != "" && ln.Code() == "" {
			return []string{strings.TrimSpace(raw)}, nil
		}
		return []string{raw}, nil
	}

	b := ln.Block
	prev := l.vm.Pos()
	anchored := l.vm.Initialized()
	prevCS := l.vm.CoordinateSystem()

	t, err := l.vm.Run(b)
	if err != nil {
		return nil, err
	}
	pass := []string{raw}

	switch {
	case b.Has('G', 28) || b.Has('G', 30):
		// returns through reference points; position is unknown afterwards
		l.vm.ForgetAll()
		return pass, nil
	case b.Has('G', 53):
		// machine coordinates; the work position is not tracked
		l.vm.Forget(t.Named)
		return pass, nil
	case b.Has('G', 10):
		l.setOffset(b)
		return pass, nil
	case b.Has('G', 92):
		l.vm.Sync(b)
		return pass, nil
	case b.Has('G', 92.1) || b.Has('G', 92.2) || b.Has('G', 92.3):
		l.vm.ForgetAll()
		return pass, nil
	case l.vm.CoordinateSystem() != prevCS:
		l.vm.ForgetAll()
		if !l.vm.RelativeMotion() {
			l.vm.Sync(b)
		}
		return pass, nil
	case b.Has('G', 4) || b.HasLetter('M') || b.HasLetter('T'):
		l.vm.Commit(t)
		return pass, nil
	}

	if !t.Moves() {
		return pass, nil
	}

	motion := l.vm.Motion()
	switch motion {
	case gcode.MotionRapid, gcode.MotionLinear, gcode.MotionArcCW, gcode.MotionArcCCW:
	case gcode.MotionProbe:
		// the probe stops wherever it touches
		l.vm.Forget(t.Named)
		return pass, nil
	default:
		// canned cycles end at a retract height we don't model
		l.vm.Commit(t)
		l.vm.Forget([3]bool{false, false, true})
		return pass, nil
	}

	defer l.vm.Commit(t)

	if l.vm.RelativeMotion() {
		l.log.Debug("relative move not leveled", zap.String("text", raw))
		if !l.warnedRelative {
			l.warnedRelative = true
			l.report("warning: relative (G91) moves are passed through without compensation")
		}
		return pass, nil
	}
	if !t.FullyKnown() {
		l.log.Debug("move from unknown position not leveled", zap.String("text", raw))
		if t.Named[0] || t.Named[1] {
			l.unknown++
		}
		return pass, nil
	}

	if motion == gcode.MotionArcCW || motion == gcode.MotionArcCCW {
		if !anchored {
			l.log.Debug("arc without start point not leveled", zap.String("text", raw))
			l.unknown++
			return pass, nil
		}
		if l.vm.Plane() != 17 {
			l.log.Debug("arc outside XY plane not leveled", zap.String("text", raw))
			return pass, nil
		}
		words := b.Filter(func(w gcode.Word) bool {
			return w.IsAxis() || w.IsArcParam() || w.ModalGroup() == gcode.ModalGroupMotion
		})
		words = append(gcode.Block{{W: 'G', Arg: 1}}, words...)

		arc, err := l.arc(b, prev.Point, t.Point, motion == gcode.MotionArcCW)
		if err != nil {
			l.report("warning: %v, using a straight line: %s", err, strings.TrimSpace(raw))
			return l.emit(words, "", l.split(prev.Point, t.Point, anchored)), nil
		}
		return l.emit(words, motion.String()+" ", arc.Points(l.cfg.ArcSegment)), nil
	}

	words := b.Filter(func(w gcode.Word) bool { return w.IsAxis() })
	return l.emit(words, "", l.split(prev.Point, t.Point, anchored)), nil
}

func (l *MeshLeveler) split(from, to coord.Point, anchored bool) []coord.Point {
	if !anchored {
		return []coord.Point{to}
	}
	pts := from.SplitMax(to, l.cfg.Granularity)
	if len(pts) == 0 {
		// zero-length; keep the line for its other words
		return []coord.Point{to}
	}
	return pts
}

func (l *MeshLeveler) arc(b gcode.Block, from, to coord.Point, cw bool) (Arc, error) {
	u := l.vm.Units()
	if ok, r := b.Arg('R'); ok {
		return NewArcRadius(from, to, u.ToMM(r), cw)
	}
	hasI, i := b.Arg('I')
	hasJ, j := b.Arg('J')
	if !hasI && !hasJ {
		return Arc{}, ErrArcGeometry
	}
	i, j = u.ToMM(i), u.ToMM(j)
	if l.vm.AbsoluteArcs() {
		if !hasI {
			i = from.X
		}
		if !hasJ {
			j = from.Y
		}
		return NewArcCenter(from, to, i, j, cw), nil
	}
	return NewArcCenter(from, to, from.X+i, from.Y+j, cw), nil
}

// emit formats one line per point, with the height under it added to Z.
// The uncompensated Z is kept in a trailing comment.
func (l *MeshLeveler) emit(words gcode.Block, note string, pts []coord.Point) []string {
	u := l.vm.Units()
	prefix := words.String()
	if prefix != "" {
		prefix += " "
	}

	out := make([]string, len(pts))
	for i, p := range pts {
		_, dz := l.cfg.ZOffsetter.OffsetZ(p.X, p.Y)
		out[i] = fmt.Sprintf("%s%s %s %s ; %s%s",
			prefix,
			gcode.Word{W: 'X', Arg: u.FromMM(p.X)}.Fixed(3),
			gcode.Word{W: 'Y', Arg: u.FromMM(p.Y)}.Fixed(3),
			gcode.Word{W: 'Z', Arg: u.FromMM(p.Z + dz)}.Fixed(3),
			note,
			gcode.Word{W: 'Z', Arg: u.FromMM(p.Z)}.Fixed(3),
		)
	}
	return out
}

// setOffset tracks G10. L20 declares the current position of the active
// coordinate system; other forms change an offset under the tool.
func (l *MeshLeveler) setOffset(b gcode.Block) {
	_, lv := b.Arg('L')
	_, p := b.Arg('P')
	active := p == 0 || p == l.vm.CoordinateSystem()-53
	switch {
	case !active:
	case lv == 20:
		l.vm.Sync(b)
	default:
		var named [3]bool
		for _, w := range b {
			switch w.W {
			case 'X':
				named[0] = true
			case 'Y':
				named[1] = true
			case 'Z':
				named[2] = true
			}
		}
		l.vm.Forget(named)
	}
}
