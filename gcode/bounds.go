package gcode

import (
	"errors"
	"io"

	"github.com/mastercactapus/alevel/coord"
)

// ProgramBounds scans a program for the XY extent of its absolute-mode
// moves, in millimeters. Lines that probe, set offsets or move in machine
// coordinates are skipped.
//
// A nil result means the program never set both X and Y.
func ProgramBounds(r io.Reader) (*coord.Bounds, error) {
	p := NewParser(r)
	vm := NewVM()
	b := coord.EmptyBounds()
	var seenX, seenY bool
	for {
		l, err := p.ReadLine()
		if err == io.EOF {
			break
		}
		if errors.Is(err, ErrSyntax) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if l.Empty() || skipBounds(l.Block) {
			continue
		}
		t, err := vm.Run(l.Block)
		if err != nil {
			continue
		}
		if vm.RelativeMotion() {
			continue
		}
		u := vm.Units()
		for _, w := range l.Block {
			switch w.W {
			case 'X':
				b.ExtendX(u.ToMM(w.Arg))
				seenX = true
			case 'Y':
				b.ExtendY(u.ToMM(w.Arg))
				seenY = true
			}
		}
		vm.Commit(t)
	}
	if !seenX || !seenY {
		return nil, nil
	}
	return &b, nil
}

var skipCodes = []float64{10, 28, 30, 38.2, 38.3, 38.4, 38.5, 53, 92, 92.1, 92.2, 92.3}

func skipBounds(b Block) bool {
	for _, c := range skipCodes {
		if b.Has('G', c) {
			return true
		}
	}
	return false
}
