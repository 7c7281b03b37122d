package gammon

import (
	"bytes"
	"fmt"
)

// ASCII rendering of a State snapshot, for plain-text clients. White
// checkers render as "o", Black as "x". The board is drawn from the
// perspective of pov, with that side's bar in the lower half.

var boardTopBlack = []byte("+13-14-15-16-17-18-+---+19-20-21-22-23-24-+")
var boardBottomBlack = []byte("+12-11-10--9--8--7-+---+-6--5--4--3--2--1-+")

var boardTopWhite = []byte("+24-23-22-21-20-19-+---+18-17-16-15-14-13-+")
var boardBottomWhite = []byte("+-1--2--3--4--5--6-+---+-7--8--9-10-11-12-+")

const verticalBar = '│' // │

var topOrderBlack = [12]int8{13, 14, 15, 16, 17, 18, 19, 20, 21, 22, 23, 24}
var bottomOrderBlack = [12]int8{12, 11, 10, 9, 8, 7, 6, 5, 4, 3, 2, 1}

var topOrderWhite = [12]int8{24, 23, 22, 21, 20, 19, 18, 17, 16, 15, 14, 13}
var bottomOrderWhite = [12]int8{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}

func checkerGlyph(s Side) byte {
	if s == White {
		return 'o'
	}
	return 'x'
}

// renderCell draws one three-character cell of a checker stack. Stacks
// deeper than five show their count in the innermost cells.
func renderCell(s Side, count uint8, depth int) []byte {
	var ch byte = ' '
	c := int(count)
	switch {
	case c == 0 || depth > 5:
	case c >= 10:
		switch depth {
		case 4:
			ch = '1'
		case 5:
			ch = byte('0' + c - 10)
		default:
			ch = checkerGlyph(s)
		}
	case c > 5:
		if depth == 5 {
			ch = byte('0' + c)
		} else {
			ch = checkerGlyph(s)
		}
	default:
		if depth <= c {
			ch = checkerGlyph(s)
		}
	}
	return []byte{' ', ch, ' '}
}

// RenderState draws the board snapshot as fixed-width ASCII art. A pov of
// None renders from Black's perspective.
func RenderState(s State, pov Side) []byte {
	if pov != White {
		pov = Black
	}

	top, bottom := topOrderBlack, bottomOrderBlack
	header, footer := boardTopBlack, boardBottomBlack
	topBarSide, bottomBarSide := White, Black
	topBar, bottomBar := s.WhiteBar, s.BlackBar
	if pov == White {
		top, bottom = topOrderWhite, bottomOrderWhite
		header, footer = boardTopWhite, boardBottomWhite
		topBarSide, bottomBarSide = Black, White
		topBar, bottomBar = s.BlackBar, s.WhiteBar
	}

	var t bytes.Buffer
	t.Write(header)
	t.WriteByte('\n')

	for row := 0; row < 11; row++ {
		gap := row == 5
		depth := row + 1
		order := top
		barSide, bar := topBarSide, topBar
		if row > 5 {
			depth = 11 - row
			order = bottom
			barSide, bar = bottomBarSide, bottomBar
		}

		t.WriteRune(verticalBar)
		for col := 0; col < 12; col++ {
			if gap {
				t.WriteString("   ")
			} else {
				p := s.Points[order[col]-1]
				t.Write(renderCell(p.Side, p.Count, depth))
			}
			if col == 5 {
				t.WriteRune(verticalBar)
				if gap {
					t.WriteString("   ")
				} else {
					t.Write(renderCell(barSide, bar, depth))
				}
				t.WriteRune(verticalBar)
			}
		}
		t.WriteRune(verticalBar)
		t.WriteByte('\n')
	}

	t.Write(footer)
	t.WriteByte('\n')
	fmt.Fprintf(&t, "o off %d  x off %d  cube %d\n", s.WhiteOff, s.BlackOff, s.Cube)
	return t.Bytes()
}
