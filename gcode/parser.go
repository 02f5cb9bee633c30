package gcode

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Parser reads program lines from a text stream.
type Parser struct {
	br *bufio.Reader
	n  int
}

func NewParser(r io.Reader) *Parser {
	if br, ok := r.(*bufio.Reader); ok {
		return &Parser{br: br}
	}

	return &Parser{br: bufio.NewReader(r)}
}

// LineNumber returns the 1-based number of the last line read.
func (p *Parser) LineNumber() int { return p.n }

// ReadLine returns the next line, including blank and comment-only lines.
//
// A line that fails to tokenize is still returned (with Raw set) along
// with the error, so callers may pass it through untouched.
func (p *Parser) ReadLine() (Line, error) {
	s, err := p.br.ReadString('\n')
	if err == io.EOF && s != "" {
		err = nil
	}
	if err != nil {
		return Line{}, err
	}
	p.n++
	s = strings.TrimRight(s, "\r\n")

	l, err := ParseLine(s)
	if err != nil {
		return l, fmt.Errorf("line %d: %w", p.n, err)
	}
	return l, nil
}

// Read implements Reader, skipping lines that carry no words.
func (p *Parser) Read() (Line, error) {
	for {
		l, err := p.ReadLine()
		if err != nil {
			return l, err
		}
		if !l.Empty() {
			return l, nil
		}
	}
}
