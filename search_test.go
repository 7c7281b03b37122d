package gammon

import (
	"testing"
)

func TestMaxPlayableFromStart(t *testing.T) {
	b := NewBoard()
	pos := b.livePosition()

	if n := maxPlayableDice(pos, White, []int8{6, 5}); n != 2 {
		t.Errorf("white 6-5 from the start plays %d dice, want 2", n)
	}
	if n := maxPlayableDice(pos, Black, []int8{6, 5}); n != 2 {
		t.Errorf("black 6-5 from the start plays %d dice, want 2", n)
	}
	if n := maxPlayableDice(pos, White, []int8{3, 3, 3, 3}); n != 4 {
		t.Errorf("white double 3s from the start plays %d dice, want 4", n)
	}
	if n := maxPlayableDice(pos, White, nil); n != 0 {
		t.Errorf("no dice plays %d, want 0", n)
	}
}

func TestMaxPlayableClosedEntry(t *testing.T) {
	var pos position
	pos.whiteBar = 2
	pos.white[13] = 13
	for p := 19; p <= 24; p++ {
		pos.black[p] = 2
	}
	pos.black[1] = 3

	if n := maxPlayableDice(pos, White, []int8{3, 3, 3, 3}); n != 0 {
		t.Errorf("entry against a closed board plays %d dice, want 0", n)
	}
	if n := maxPlayableDice(pos, White, []int8{6, 2}); n != 0 {
		t.Errorf("entry against a closed board plays %d dice, want 0", n)
	}
}

func TestMaxPlayableSingleDie(t *testing.T) {
	// One white checker on 24. 18 and 13 are blocked, so only the 5 plays
	// and no continuation exists.
	var pos position
	pos.white[24] = 1
	pos.whiteOff = 14
	pos.black[18] = 2
	pos.black[13] = 2
	pos.black[1] = 11

	if n := maxPlayableDice(pos, White, []int8{6, 5}); n != 1 {
		t.Errorf("plays %d dice, want 1", n)
	}
}

func TestMaxPlayablePrefersLongerSequence(t *testing.T) {
	// 24/18 is blocked, so leading with the 6 plays only one die. Leading
	// with the 5 plays both: 24/19 then 19/13.
	var pos position
	pos.white[24] = 1
	pos.whiteOff = 14
	pos.black[18] = 2
	pos.black[1] = 13
	if n := maxPlayableDice(pos, White, []int8{6, 5}); n != 2 {
		t.Errorf("plays %d dice, want 2 via the 5-first ordering", n)
	}
}

func TestMaxPlayableBearOff(t *testing.T) {
	var pos position
	pos.white[2] = 1
	pos.white[1] = 1
	pos.whiteOff = 13
	pos.black[19] = 15

	if n := maxPlayableDice(pos, White, []int8{6, 6, 6, 6}); n != 2 {
		t.Errorf("bearing off the last two checkers plays %d dice, want 2", n)
	}
}

func TestPositionValueSemantics(t *testing.T) {
	b := NewBoard()
	pos := b.livePosition()

	next := pos.apply(White, 24, 18, false)
	if next == pos {
		t.Fatal("apply must not alias the receiver")
	}
	if pos.white[24] != 2 || pos.white[18] != 0 {
		t.Error("apply mutated the original position")
	}
	if next.white[24] != 1 || next.white[18] != 1 {
		t.Error("apply result incorrect")
	}
	if b.livePosition() != pos {
		t.Error("livePosition must be repeatable")
	}
}

func TestPositionApplyHit(t *testing.T) {
	var pos position
	pos.white[24] = 1
	pos.white[13] = 14
	pos.black[21] = 1
	pos.black[1] = 14

	to, hit, ok := pos.legalStep(White, 24, 3)
	if !ok || !hit || to != 21 {
		t.Fatalf("24/21* legality = (%d, %v, %v)", to, hit, ok)
	}
	next := pos.apply(White, 24, to, hit)
	if next.black[21] != 0 || next.blackBar != 1 || next.white[21] != 1 {
		t.Error("apply must send the blot to the bar")
	}
}

func TestHasAnyLegalStep(t *testing.T) {
	b := NewBoard()
	if b.HasAnyLegalStep() {
		t.Error("no legal step exists before the opening resolves")
	}
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}
	if !b.HasAnyLegalStep() {
		t.Error("the opening position always has a legal step")
	}

	// Dance: white on the bar against a closed home board.
	placeCheckers(b,
		[checkersPerSide]int8{0, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13, 13},
		[checkersPerSide]int8{19, 19, 20, 20, 21, 21, 22, 22, 23, 23, 24, 24, 1, 1, 1})
	if b.HasAnyLegalStep() {
		t.Error("entry against a closed board has no legal step")
	}
}
