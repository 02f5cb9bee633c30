package grbl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mastercactapus/alevel/coord"
	"github.com/mastercactapus/alevel/machine"
)

// parseCoords reads "x,y,z" or "x,y,z,a"; a fourth axis is ignored.
func parseCoords(data string) (p coord.Point, err error) {
	parts := strings.Split(data, ",")
	if len(parts) != 3 && len(parts) != 4 {
		return p, errors.New("invalid number of elements")
	}
	var v [4]float64
	for i, s := range parts {
		v[i], err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return p, err
		}
	}
	return coord.Point{X: v[0], Y: v[1], Z: v[2]}, nil
}

// parseProbe reads a probe record such as "[PRB:1.000,2.000,-3.100:1]".
func parseProbe(data string) (*machine.ProbeResult, error) {
	data = strings.TrimSpace(data)
	data = strings.TrimPrefix(data, "[")
	data = strings.TrimSuffix(data, "]")
	parts := strings.Split(data, ":")
	if parts[0] != "PRB" {
		return nil, errors.New("unknown PUSH message: " + data)
	}
	if len(parts) != 3 {
		return nil, fmt.Errorf("%w: %q", ErrMalformedProbe, data)
	}
	p, err := parseCoords(parts[1])
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrMalformedProbe, data, err)
	}

	var res machine.ProbeResult
	res.Point = p
	switch strings.TrimSpace(parts[2]) {
	case "1":
		res.Valid = true
	case "0":
	default:
		return nil, fmt.Errorf("%w: bad status in %q", ErrMalformedProbe, data)
	}
	return &res, nil
}

func parseStatus(stat machine.State, data string) (*machine.State, error) {
	data = strings.TrimSpace(data)
	data = strings.TrimPrefix(data, "<")
	data = strings.TrimSuffix(data, ">")
	parts := strings.Split(data, "|")
	stat.Status = parts[0]
	var (
		err      error
		wpos     coord.Point
		haveWPos bool
		haveMPos bool
	)
	for _, s := range parts[1:] {
		sParts := strings.SplitN(s, ":", 2)
		if len(sParts) != 2 {
			continue
		}
		switch sParts[0] {
		case "MPos":
			stat.MPos, err = parseCoords(sParts[1])
			haveMPos = true
		case "WPos":
			wpos, err = parseCoords(sParts[1])
			haveWPos = true
		case "WCO":
			stat.WCO, err = parseCoords(sParts[1])
		}
		if err != nil {
			return nil, err
		}
	}
	if haveWPos && !haveMPos {
		// grbl reports one of the two
		stat.MPos = wpos.Add(stat.WCO)
	}
	return &stat, nil
}
