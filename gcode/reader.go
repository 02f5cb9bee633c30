package gcode

import (
	"io"
	"strings"
)

type Reader interface {
	Read() (Line, error)
}

// LinesReader serves a fixed set of lines, e.g. a generated program.
type LinesReader struct {
	Lines []Line
	n     int
}

func (b *LinesReader) Read() (Line, error) {
	if b.n == len(b.Lines) {
		return Line{}, io.EOF
	}

	b.n++
	return b.Lines[b.n-1], nil
}

// Program is a generated sequence of lines.
type Program []Line

// Comment appends a comment-only line.
func (p *Program) Comment(text string) {
	*p = append(*p, Line{Comment: text})
}

// Add appends a line built from words.
func (p *Program) Add(words ...Word) {
	*p = append(*p, Line{Block: Block(words)})
}

func (p Program) String() string {
	var sb strings.Builder
	for i, l := range p {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(l.String())
	}
	return sb.String()
}
