package gammon

import (
	"testing"
)

func TestApplyStepOpening(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}
	if b.SideToMove() != White {
		t.Fatalf("side to move %s, want white", b.SideToMove())
	}

	if err := b.ApplyStep(24, 6); err != nil {
		t.Fatalf("24/18: %s", err)
	}
	if err := b.ApplyStep(18, 5); err != nil {
		t.Fatalf("18/13: %s", err)
	}
	checkInvariants(t, b)

	if b.CountAt(White, 24) != 1 || b.CountAt(White, 13) != 6 {
		t.Error("lover's leap must leave one checker on 24 and six on 13")
	}
	if len(b.DiceRemaining()) != 0 {
		t.Errorf("dice remaining %v, want none", b.DiceRemaining())
	}
}

func TestApplyStepBlocked(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}

	// 24/19 lands on five black checkers.
	if err := b.ApplyStep(24, 5); err == nil {
		t.Fatal("moving onto a blocked point must fail")
	}
	if b.LastError() == "" {
		t.Error("rule violations must record a last error")
	}
	if b.CountAt(White, 24) != 2 || len(b.DiceRemaining()) != 2 {
		t.Error("a rejected step must leave the board untouched")
	}
	checkInvariants(t, b)
}

func TestApplyStepPipNotAvailable(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}

	err := b.ApplyStep(24, 4)
	if err == nil {
		t.Fatal("a pip that was not rolled must be rejected")
	}
	if ge, ok := err.(*Error); !ok || ge.Protocol {
		t.Errorf("want a rule error, got %v", err)
	}
}

func TestApplyStepNoCheckerAtSource(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}

	if err := b.ApplyStep(20, 5); err == nil {
		t.Error("moving from an empty point must fail")
	}
	if err := b.ApplyStep(19, 5); err == nil {
		t.Error("moving an opponent checker must fail")
	}
	if err := b.ApplyStep(30, 5); err == nil {
		t.Error("moving from outside the board must fail")
	}
}

func TestBarEntryPriority(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}

	id, ok := b.popFromPoint(24)
	if !ok {
		t.Fatal("no checker on 24")
	}
	b.pushToBar(White, id)

	if err := b.ApplyStep(13, 6); err == nil {
		t.Fatal("with a checker on the bar, other moves must be rejected")
	}
	if err := b.ApplyStep(SpaceBar, 5); err != nil {
		t.Fatalf("bar entry on the open 20 point: %s", err)
	}
	if b.CountBar(White) != 0 || b.CountAt(White, 20) != 1 {
		t.Error("bar entry must relocate the checker to the entry point")
	}
	checkInvariants(t, b)

	// Bar now empty, the rest of the board may move.
	if err := b.ApplyStep(13, 6); err != nil {
		t.Fatalf("13/7 after entering: %s", err)
	}
}

func TestBarEntryBlocked(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}

	id, _ := b.popFromPoint(24)
	b.pushToBar(White, id)

	// White enters on 25-pip; 19 holds five black checkers.
	if err := b.ApplyStep(SpaceBar, 6); err == nil {
		t.Error("entry onto a blocked point must fail")
	}
	if b.CountBar(White) != 1 {
		t.Error("a rejected entry must leave the bar untouched")
	}
}

func TestHitSendsBlotToBar(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(5, 3); err != nil {
		t.Fatal(err)
	}

	// Expose a lone black checker on 21.
	id, _ := b.popFromPoint(19)
	b.pushToPoint(21, id)

	if err := b.ApplyStep(24, 3); err != nil {
		t.Fatalf("24/21*: %s", err)
	}
	if b.CountBar(Black) != 1 {
		t.Errorf("black bar %d, want 1", b.CountBar(Black))
	}
	if b.CountAt(White, 21) != 1 || b.CountAt(Black, 21) != 0 {
		t.Error("the hit point must hold only the attacker")
	}
	checkInvariants(t, b)

	if !b.UndoStep() {
		t.Fatal("undo after a hit")
	}
	if b.CountBar(Black) != 0 || b.CountAt(Black, 21) != 1 || b.CountAt(White, 24) != 2 {
		t.Error("undo must restore the hit blot from the bar")
	}
	if len(b.DiceRemaining()) != 2 {
		t.Errorf("undo must return the consumed die, have %v", b.DiceRemaining())
	}
	checkInvariants(t, b)
}

func TestBearOffExact(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}
	placeCheckers(b,
		[checkersPerSide]int8{6, 6, 6, 6, 6, 5, 5, 5, 5, 5, 4, 4, 4, 4, 4},
		initBlack)

	if err := b.ApplyStep(6, 6); err != nil {
		t.Fatalf("bearing off 6 with a 6: %s", err)
	}
	if err := b.ApplyStep(5, 5); err != nil {
		t.Fatalf("bearing off 5 with a 5: %s", err)
	}
	if b.CountOff(White) != 2 {
		t.Errorf("white off %d, want 2", b.CountOff(White))
	}
	checkInvariants(t, b)
}

func TestBearOffOverage(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}
	placeCheckers(b,
		[checkersPerSide]int8{4, 4, 4, 4, 4, 3, 3, 3, 3, 3, 2, 2, 2, 2, 2},
		initBlack)

	// No checker sits farther than 4, so larger rolls bear off from it.
	if err := b.ApplyStep(4, 6); err != nil {
		t.Fatalf("bearing off 4 with a 6: %s", err)
	}
	if err := b.ApplyStep(4, 5); err != nil {
		t.Fatalf("bearing off 4 with a 5: %s", err)
	}
	if b.CountOff(White) != 2 {
		t.Errorf("white off %d, want 2", b.CountOff(White))
	}
}

func TestBearOffRequiresExactWhileFartherCheckerExists(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}
	placeCheckers(b,
		[checkersPerSide]int8{6, 6, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2, 2},
		initBlack)

	// A 5 cannot lift the 2 point while checkers remain on 6.
	if err := b.ApplyStep(2, 5); err == nil {
		t.Error("overage bear-off with a farther checker must fail")
	}
	if err := b.ApplyStep(6, 6); err != nil {
		t.Fatalf("exact bear-off from 6: %s", err)
	}
}

func TestBearOffRequiresAllInHome(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}

	if err := b.ApplyStep(6, 6); err == nil {
		t.Error("bearing off with checkers outside home must fail")
	}
}

func TestBearOffUndo(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}
	placeCheckers(b,
		[checkersPerSide]int8{6, 6, 6, 6, 6, 5, 5, 5, 5, 5, 4, 4, 4, 4, 4},
		initBlack)

	if err := b.ApplyStep(6, 6); err != nil {
		t.Fatal(err)
	}
	if !b.UndoStep() {
		t.Fatal("undo after bear-off")
	}
	if b.CountOff(White) != 0 || b.CountAt(White, 6) != 5 {
		t.Error("undo must return the borne-off checker to its point")
	}
	checkInvariants(t, b)
}

func TestBlackMovesUpward(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(1, 2); err != nil {
		t.Fatal(err)
	}
	if b.SideToMove() != Black {
		t.Fatalf("side to move %s, want black", b.SideToMove())
	}

	if err := b.ApplyStep(1, 2); err != nil {
		t.Fatalf("1/3: %s", err)
	}
	if b.CountAt(Black, 3) != 1 {
		t.Error("black must advance toward 24")
	}
	// 12/13 lands on five white checkers.
	if err := b.ApplyStep(12, 1); err == nil {
		t.Error("black moving onto a white point must fail")
	}
	if err := b.ApplyStep(17, 1); err != nil {
		t.Fatalf("17/18: %s", err)
	}
	checkInvariants(t, b)
}

func TestUndoStepLIFO(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}
	before := b.livePosition()

	if err := b.ApplyStep(24, 6); err != nil {
		t.Fatal(err)
	}
	if err := b.ApplyStep(18, 5); err != nil {
		t.Fatal(err)
	}
	if !b.UndoStep() || !b.UndoStep() {
		t.Fatal("both steps must undo")
	}
	if b.UndoStep() {
		t.Error("undo with no steps applied must report false")
	}

	if b.livePosition() != before {
		t.Error("undoing every step must restore the exact position")
	}
	if len(b.DiceRemaining()) != 2 {
		t.Errorf("dice remaining %v, want two", b.DiceRemaining())
	}
	checkInvariants(t, b)
}

func TestUndoOutsideMoving(t *testing.T) {
	b := NewBoard()
	if b.UndoStep() {
		t.Error("undo before the opening resolves must report false")
	}
}
