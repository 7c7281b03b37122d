package gammon

import (
	"testing"
)

// playFullTurn commits a prepared two-step turn for the current actor.
func playFullTurn(t *testing.T, b *Board, moves [][2]int8) {
	t.Helper()
	for _, m := range moves {
		if err := b.ApplyStep(m[0], m[1]); err != nil {
			t.Fatalf("%d/%d: %s", m[0], m[1], err)
		}
	}
	if err := b.CommitTurn(); err != nil {
		t.Fatalf("commit: %s", err)
	}
}

func TestCubeOfferTake(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(1, 2); err != nil {
		t.Fatal(err)
	}
	playFullTurn(t, b, [][2]int8{{1, 2}, {17, 1}})

	// White, to roll on a centered cube, may offer.
	if err := b.OfferCube(); err != nil {
		t.Fatalf("offer: %s", err)
	}
	if b.Phase() != PhaseCubeOffered {
		t.Fatalf("phase %s, want cubeoffered", b.Phase())
	}
	if _, _, err := b.RollDice(); err == nil {
		t.Error("rolling must wait for the cube response")
	}

	if err := b.TakeCube(); err != nil {
		t.Fatalf("take: %s", err)
	}
	if b.CubeValue() != 2 {
		t.Errorf("cube %d after take, want 2", b.CubeValue())
	}
	if b.CubeHolder() != Black {
		t.Errorf("holder %s, want the taker", b.CubeHolder())
	}
	if b.Phase() != PhaseAwaitingRoll || b.SideToMove() != White {
		t.Error("after a take the offerer is still to roll")
	}

	// The cube is now black's; white may not redouble.
	if err := b.OfferCube(); err == nil {
		t.Error("offering without owning the cube must fail")
	}
}

func TestCubeDrop(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(1, 2); err != nil {
		t.Fatal(err)
	}
	playFullTurn(t, b, [][2]int8{{1, 2}, {17, 1}})

	if err := b.OfferCube(); err != nil {
		t.Fatal(err)
	}
	if err := b.DropCube(); err != nil {
		t.Fatal(err)
	}

	if !b.GameOver() {
		t.Fatal("dropping the cube ends the game")
	}
	r := b.Result()
	if r.Winner != White {
		t.Errorf("winner %s, want the offerer", r.Winner)
	}
	if r.FinalCube != 1 {
		t.Errorf("final cube %d, want the pre-double value 1", r.FinalCube)
	}
	if !r.Resigned {
		t.Error("a dropped cube is a resignation")
	}

	// Nothing moves after the game ends.
	if _, _, err := b.RollDice(); err == nil {
		t.Error("rolling after the game must fail")
	}
	if err := b.ApplyStep(24, 6); err == nil {
		t.Error("stepping after the game must fail")
	}
	if err := b.OfferCube(); err == nil {
		t.Error("offering after the game must fail")
	}
}

func TestCubeRedoubleStakes(t *testing.T) {
	b := NewBoard()
	if _, err := b.SetOpeningDice(1, 2); err != nil {
		t.Fatal(err)
	}
	playFullTurn(t, b, [][2]int8{{1, 2}, {17, 1}})

	// White doubles to 2, black takes and owns the cube.
	if err := b.OfferCube(); err != nil {
		t.Fatal(err)
	}
	if err := b.TakeCube(); err != nil {
		t.Fatal(err)
	}

	if err := b.SetDice(3, 1); err != nil {
		t.Fatal(err)
	}
	playFullTurn(t, b, [][2]int8{{24, 3}, {24, 1}})

	// Black, cube owner and to roll, redoubles. White drops: black wins
	// the stake in effect before the redouble.
	if err := b.OfferCube(); err != nil {
		t.Fatalf("redouble: %s", err)
	}
	if err := b.DropCube(); err != nil {
		t.Fatal(err)
	}
	r := b.Result()
	if r.Winner != Black || r.FinalCube != 2 {
		t.Errorf("winner %s at cube %d, want black at 2", r.Winner, r.FinalCube)
	}
}

func TestCubeWrongPhase(t *testing.T) {
	b := NewBoard()
	if err := b.OfferCube(); err == nil {
		t.Error("offering before the opening resolves must fail")
	}
	if err := b.TakeCube(); err == nil {
		t.Error("taking with no offer pending must fail")
	}
	if err := b.DropCube(); err == nil {
		t.Error("dropping with no offer pending must fail")
	}

	if _, err := b.SetOpeningDice(6, 5); err != nil {
		t.Fatal(err)
	}
	if err := b.OfferCube(); err != nil {
		// Offering is only legal before rolling; the opening roll counts
		// as rolled.
		if ge, ok := err.(*Error); !ok || ge.Protocol {
			t.Errorf("want a rule error, got %v", err)
		}
	} else {
		t.Error("offering while dice are live must fail")
	}
}
