package gcode

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrSyntax is wrapped by every tokenizer error.
var ErrSyntax = errors.New("syntax error")

// Line is a single program line. Block holds the parsed words with
// comments removed; Raw keeps the text exactly as it was read.
type Line struct {
	Raw     string
	Comment string
	Block   Block
}

// Empty reports whether the line has no words, i.e. it is blank or
// only a comment.
func (l Line) Empty() bool { return len(l.Block) == 0 }

// Code returns the raw text with comments removed and surrounding
// space trimmed.
func (l Line) Code() string {
	code, _ := splitComments(l.Raw)
	return strings.TrimSpace(code)
}

func (l Line) String() string {
	switch {
	case len(l.Block) == 0 && l.Comment == "":
		return ""
	case len(l.Block) == 0:
		return "(" + l.Comment + ")"
	case l.Comment == "":
		return l.Block.String()
	}
	return l.Block.String() + " ; " + l.Comment
}

// splitComments separates code from parenthesized and semicolon comments.
// An unterminated parenthesis runs to the end of the line.
func splitComments(s string) (code, comment string) {
	var c, cm strings.Builder
	addComment := func(txt string) {
		txt = strings.TrimSpace(txt)
		if txt == "" {
			return
		}
		if cm.Len() > 0 {
			cm.WriteByte(' ')
		}
		cm.WriteString(txt)
	}
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(':
			end := strings.IndexByte(s[i+1:], ')')
			if end < 0 {
				addComment(s[i+1:])
				return c.String(), cm.String()
			}
			addComment(s[i+1 : i+1+end])
			c.WriteByte(' ')
			i += end + 1
		case ';':
			addComment(s[i+1:])
			return c.String(), cm.String()
		default:
			c.WriteByte(s[i])
		}
	}
	return c.String(), cm.String()
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\r' || b == '\n'
}

func isNumberByte(b byte) bool {
	return (b >= '0' && b <= '9') || b == '.' || b == '-' || b == '+'
}

// ParseLine tokenizes one line of a program. Letters are case-insensitive
// and spaces between or inside words are allowed, so "g1x10 y 2" parses
// the same as "G1 X10 Y2". A '%' tape marker is ignored.
func ParseLine(s string) (Line, error) {
	l := Line{Raw: s}
	code, comment := splitComments(s)
	l.Comment = comment

	i := 0
	next := func() {
		for i < len(code) && (isSpace(code[i]) || code[i] == '%') {
			i++
		}
	}
	for next(); i < len(code); next() {
		c := code[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if c < 'A' || c > 'Z' {
			return l, fmt.Errorf("%w: unexpected character %q at column %d", ErrSyntax, code[i], i+1)
		}
		i++
		for i < len(code) && isSpace(code[i]) {
			i++
		}

		var num strings.Builder
		for i < len(code) && (isNumberByte(code[i]) || isSpace(code[i])) {
			if !isSpace(code[i]) {
				num.WriteByte(code[i])
			}
			i++
		}
		if num.Len() == 0 {
			return l, fmt.Errorf("%w: missing value for %c", ErrSyntax, c)
		}
		v, err := strconv.ParseFloat(num.String(), 64)
		if err != nil {
			return l, fmt.Errorf("%w: invalid value for %c: %q", ErrSyntax, c, num.String())
		}
		l.Block = append(l.Block, Word{W: c, Arg: v})
	}

	return l, nil
}
