package gammon

import (
	"bytes"
	"testing"
)

func TestRenderStartingPosition(t *testing.T) {
	b := NewBoard()
	out := RenderState(b.State(), Black)
	lines := bytes.Split(bytes.TrimRight(out, "\n"), []byte("\n"))

	if len(lines) != 14 {
		t.Fatalf("%d lines, want 14", len(lines))
	}
	if !bytes.Equal(lines[0], boardTopBlack) {
		t.Errorf("header %q", lines[0])
	}
	if !bytes.Equal(lines[12], boardBottomBlack) {
		t.Errorf("footer %q", lines[12])
	}
	if !bytes.Equal(lines[13], []byte("o off 0  x off 0  cube 1")) {
		t.Errorf("status line %q", lines[13])
	}

	// Every starting stack is five or fewer, so all thirty checkers render
	// in the grid above the footer.
	grid := bytes.Join(lines[1:12], []byte("\n"))
	if n := bytes.Count(grid, []byte("o")); n != 15 {
		t.Errorf("%d o glyphs, want 15", n)
	}
	if n := bytes.Count(grid, []byte("x")); n != 15 {
		t.Errorf("%d x glyphs, want 15", n)
	}
}

func TestRenderWhitePerspective(t *testing.T) {
	b := NewBoard()
	out := RenderState(b.State(), White)
	lines := bytes.Split(out, []byte("\n"))

	if !bytes.Equal(lines[0], boardTopWhite) {
		t.Errorf("header %q", lines[0])
	}
	if !bytes.Equal(lines[12], boardBottomWhite) {
		t.Errorf("footer %q", lines[12])
	}
}

func TestRenderDeepStacks(t *testing.T) {
	var s State
	s.Cube = 1
	s.Points[0] = PointState{Side: White, Count: 7}
	s.Points[23] = PointState{Side: Black, Count: 12}

	out := RenderState(s, Black)
	if !bytes.Contains(out, []byte("7")) {
		t.Error("a stack of seven must show its count")
	}
	// Twelve renders as a 1 and a 2 in the innermost cells.
	if !bytes.Contains(out, []byte("2")) {
		t.Error("a stack of twelve must show its count digits")
	}
}

func TestRenderBarAndOff(t *testing.T) {
	var s State
	s.Cube = 4
	s.WhiteBar = 2
	s.BlackOff = 3

	out := RenderState(s, Black)
	if !bytes.Contains(out, []byte("o off 0  x off 3  cube 4")) {
		t.Errorf("status line missing from:\n%s", out)
	}
	// The two barred white checkers render in the bar column.
	lines := bytes.Split(out, []byte("\n"))
	grid := bytes.Join(lines[1:12], []byte("\n"))
	if n := bytes.Count(grid, []byte("o")); n != 2 {
		t.Errorf("%d o glyphs, want 2", n)
	}
}
