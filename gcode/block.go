package gcode

import (
	"errors"
	"fmt"
	"strings"
)

type Block []Word

func (b Block) Arg(w byte) (bool, float64) {
	for _, g := range b {
		if g.W == w {
			return true, g.Arg
		}
	}
	return false, 0
}

// Has reports whether the block carries the exact code (e.g. G 38.2).
func (b Block) Has(w byte, arg float64) bool {
	for _, g := range b {
		if g.Is(w, arg) {
			return true
		}
	}
	return false
}

// HasLetter reports whether any word in b uses the letter w.
func (b Block) HasLetter(w byte) bool {
	ok, _ := b.Arg(w)
	return ok
}

// Filter returns a copy of b without the words for which drop returns true.
func (b Block) Filter(drop func(Word) bool) Block {
	res := make(Block, 0, len(b))
	for _, g := range b {
		if !drop(g) {
			res = append(res, g)
		}
	}
	return res
}

func (b Block) Validate() error {
	var checkWord [256]bool
	var checkModal [256]bool

	var m ModalGroup
	for _, g := range b {
		if !g.IsValid() {
			return errors.New("invalid word in block")
		}
		if g.W != 'G' && g.W != 'M' && checkWord[g.W] {
			return errors.New("word was repeated in a block: " + string(g.W))
		}
		checkWord[g.W] = true
		m = g.ModalGroup()
		if m.Modal() && checkModal[m] {
			return fmt.Errorf("multiple words from the %s modal group: %s", m, g)
		}
		checkModal[m] = true
	}

	return nil
}

func (b Block) String() string {
	parts := make([]string, len(b))
	for i, w := range b {
		parts[i] = w.String()
	}
	return strings.Join(parts, " ")
}
