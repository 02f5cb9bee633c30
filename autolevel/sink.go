package autolevel

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mastercactapus/alevel/coord"
)

// DefaultProbeFile is the name of the session recording in the data
// directory.
const DefaultProbeFile = "__last_Z_probe.txt"

// sink records accepted probe points, one per line, in the
// "x y z 0 0 0 0 0 0" layout other probing tools read.
type sink struct {
	path string
	f    *os.File
	w    *bufio.Writer
}

func openSink(path string) (*sink, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSinkUnavailable, err)
	}
	return &sink{path: path, f: f, w: bufio.NewWriter(f)}, nil
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func (s *sink) Write(p coord.Point) error {
	_, err := fmt.Fprintf(s.w, "%s %s %s 0 0 0 0 0 0\n", formatFloat(p.X), formatFloat(p.Y), formatFloat(p.Z))
	if err != nil {
		return err
	}
	return s.w.Flush()
}

func (s *sink) Close() error {
	err := s.w.Flush()
	if cErr := s.f.Close(); err == nil {
		err = cErr
	}
	return err
}

// ReadPoints parses a session recording. Lines with fewer than three
// fields, or with non-numeric coordinates, are skipped.
func ReadPoints(r io.Reader) ([]coord.Point, error) {
	var points []coord.Point
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		f := strings.Fields(sc.Text())
		if len(f) < 3 {
			continue
		}
		var v [3]float64
		ok := true
		for i := range v {
			var err error
			v[i], err = strconv.ParseFloat(f[i], 64)
			if err != nil {
				ok = false
				break
			}
		}
		if !ok {
			continue
		}
		points = append(points, coord.Point{X: v[0], Y: v[1], Z: v[2]})
	}
	return points, sc.Err()
}
