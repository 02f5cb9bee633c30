package gcode

import (
	"io"
	"strings"
)

// Parse returns the blocks of every non-empty line in data.
func Parse(data string) ([]Block, error) {
	r := NewParser(strings.NewReader(data))
	var b []Block
	for {
		l, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		b = append(b, l.Block)
	}
	return b, nil
}
