package autolevel

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/google/shlex"
	"github.com/mastercactapus/alevel/coord"
)

// Options control a probing run. They are parsed from operator commands
// such as "#autolevel D5 H3 F40 P1".
type Options struct {
	// Step is the probe spacing in mm (D).
	Step float64

	// Grid is the number of points per axis (GRID). It overrides Step.
	Grid int

	// TravelHeight is the safe Z between probes (H).
	TravelHeight float64

	// Feed is the probing feed rate (F).
	Feed float64

	// Margin is kept clear on each edge of the area (M). When unset it is
	// a quarter of Step.
	Margin    float64
	HasMargin bool

	// SizeX and SizeY give an explicit area starting at 0,0 (X, Y).
	SizeX, SizeY float64

	// ProbeOnly skips leveling the loaded program (P).
	ProbeOnly bool
}

// DefaultOptions returns the options used when a command sets nothing.
func DefaultOptions() Options {
	return Options{
		Step:         10,
		TravelHeight: 2,
		Feed:         50,
	}
}

// EffectiveMargin returns Margin, or Step/4 when no margin was given.
func (o Options) EffectiveMargin() float64 {
	if o.HasMargin {
		return o.Margin
	}
	return o.Step / 4
}

func (o Options) String() string {
	return fmt.Sprintf("STEP: %g mm HEIGHT: %g mm FEED: %g MARGIN: %g mm PROBE ONLY: %t GRID: %d AREA: %gx%g",
		o.Step, o.TravelHeight, o.Feed, o.EffectiveMargin(), o.ProbeOnly, o.Grid, o.SizeX, o.SizeY)
}

// stripVerb drops a leading "#autolevel"-style word. shlex reads a word
// starting with '#' as a comment to the end of the line.
func stripVerb(cmd string) string {
	cmd = strings.TrimSpace(cmd)
	if !strings.HasPrefix(cmd, "#") {
		return cmd
	}
	i := strings.IndexAny(cmd, " \t")
	if i < 0 {
		return ""
	}
	return cmd[i:]
}

// ParseCommand applies the options in cmd on top of base. Tokens are
// case-insensitive; unknown tokens and leading "#..." verbs are ignored.
// Tokens with a bad value are skipped and reported in the returned error,
// the remaining options are still applied.
func ParseCommand(cmd string, base Options) (Options, error) {
	opts := base
	tokens, err := shlex.Split(stripVerb(cmd))
	if err != nil {
		return opts, fmt.Errorf("parse command: %w", err)
	}

	var errs []error
	num := func(tok, s string) (float64, bool) {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			errs = append(errs, fmt.Errorf("invalid value in %q", tok))
			return 0, false
		}
		return v, true
	}

	for _, tok := range tokens {
		if strings.HasPrefix(tok, "#") {
			continue
		}
		up := strings.ToUpper(tok)
		if strings.HasPrefix(up, "GRID") {
			if v, ok := num(tok, up[4:]); ok {
				opts.Grid = int(math.Round(v))
			}
			continue
		}
		if len(up) < 2 {
			continue
		}
		switch up[0] {
		case 'D':
			if v, ok := num(tok, up[1:]); ok {
				if v <= 0 {
					errs = append(errs, fmt.Errorf("step must be positive: %q", tok))
					continue
				}
				opts.Step = v
			}
		case 'H':
			if v, ok := num(tok, up[1:]); ok {
				opts.TravelHeight = v
			}
		case 'F':
			if v, ok := num(tok, up[1:]); ok {
				opts.Feed = v
			}
		case 'M':
			if v, ok := num(tok, up[1:]); ok {
				opts.Margin = v
				opts.HasMargin = true
			}
		case 'X':
			if v, ok := num(tok, up[1:]); ok {
				opts.SizeX = v
			}
		case 'Y':
			if v, ok := num(tok, up[1:]); ok {
				opts.SizeY = v
			}
		case 'P':
			if v, ok := num(tok, up[1:]); ok {
				opts.ProbeOnly = v != 0
			}
		}
	}

	return opts, errors.Join(errs...)
}

// ResolveArea picks the rectangle to probe, per axis: an explicit size
// from the options, then the program's bounds, then the caller's bounds.
func ResolveArea(opts Options, program, context *coord.Bounds) (coord.Bounds, error) {
	var area coord.Bounds
	pick := func(size float64, min, max func(b *coord.Bounds) float64) (float64, float64, bool) {
		switch {
		case size > 0:
			return 0, size, true
		case program != nil:
			return min(program), max(program), true
		case context != nil:
			return min(context), max(context), true
		}
		return 0, 0, false
	}

	var okX, okY bool
	area.Min.X, area.Max.X, okX = pick(opts.SizeX,
		func(b *coord.Bounds) float64 { return b.Min.X },
		func(b *coord.Bounds) float64 { return b.Max.X })
	area.Min.Y, area.Max.Y, okY = pick(opts.SizeY,
		func(b *coord.Bounds) float64 { return b.Min.Y },
		func(b *coord.Bounds) float64 { return b.Max.Y })
	if !okX || !okY {
		return area, ErrNoArea
	}
	return area, nil
}
