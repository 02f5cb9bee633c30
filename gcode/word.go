package gcode

import (
	"strconv"
	"strings"
)

type Word struct {
	W   byte
	Arg float64
}

func (w Word) IsAxis() bool {
	switch w.W {
	case 'X', 'Y', 'Z': // maybe someday 'A', 'B', 'C', 'U', 'V', 'W':
		return true
	}
	return false
}

// IsArcParam reports whether w describes arc geometry (center offset or radius).
func (w Word) IsArcParam() bool {
	switch w.W {
	case 'I', 'J', 'K', 'R':
		return true
	}
	return false
}

func (w Word) IsValid() bool {
	return w.W >= 'A' && w.W <= 'Z'
}

// Is reports whether w is the exact code, e.g. w.Is('G', 38.2).
func (w Word) Is(letter byte, arg float64) bool {
	return w.W == letter && w.Arg == arg
}

func formatFloat(f float64, prec int) string {
	s := strconv.FormatFloat(f, 'f', prec, 64)
	if strings.ContainsRune(s, '.') {
		s = strings.TrimRight(s, "0")
	}
	s = strings.TrimRight(s, ".")
	if s == "-0" {
		return "0"
	}
	return s
}

func (w Word) String() string {
	return string(w.W) + formatFloat(w.Arg, 4)
}

// Fixed formats w with exactly prec decimals, e.g. X10.000.
func (w Word) Fixed(prec int) string {
	s := strconv.FormatFloat(w.Arg, 'f', prec, 64)
	if strings.Trim(s, "-0.") == "" {
		s = strings.TrimPrefix(s, "-")
	}
	return string(w.W) + s
}
