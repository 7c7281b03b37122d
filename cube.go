package gammon

// CubeValue is the current cube value (1, 2, 4, ...).
func (b *Board) CubeValue() int {
	return b.cube
}

// CubeHolder is the side owning the cube, None while centered.
func (b *Board) CubeHolder() Side {
	return b.cubeHolder
}

// OfferCube offers the doubling cube. Only the side to move may offer, only
// before rolling, and only when the cube is centered or already theirs.
func (b *Board) OfferCube() error {
	if b.result.Over {
		return b.ruleError("offercube: game over")
	}
	if b.phase != PhaseAwaitingRoll {
		return b.ruleError("offercube: only before rolling")
	}
	if b.cubePendingFrom != None {
		return b.ruleError("offercube: offer already pending")
	}
	if b.cubeHolder != None && b.cubeHolder != b.actor {
		return b.ruleError("offercube: you do not own the cube")
	}

	b.cubePendingFrom = b.actor
	b.phase = PhaseCubeOffered
	b.lastErr = ""
	return nil
}

// TakeCube accepts a pending offer: the cube value doubles, the taker
// becomes its holder, and the offerer is still to roll.
func (b *Board) TakeCube() error {
	if b.result.Over {
		return b.ruleError("takecube: game over")
	}
	if b.phase != PhaseCubeOffered {
		return b.ruleError("takecube: no offer pending")
	}

	b.cube <<= 1
	b.cubeHolder = b.cubePendingFrom.Opponent()
	b.cubePendingFrom = None
	b.phase = PhaseAwaitingRoll
	b.lastErr = ""
	return nil
}

// DropCube declines a pending offer, resigning the game. The offerer wins
// at the cube value in effect when the offer was made, not the doubled
// value.
func (b *Board) DropCube() error {
	if b.result.Over {
		return b.ruleError("dropcube: game over")
	}
	if b.phase != PhaseCubeOffered {
		return b.ruleError("dropcube: no offer pending")
	}

	b.result = GameResult{
		Over:      true,
		Winner:    b.cubePendingFrom,
		FinalCube: b.cube,
		Resigned:  true,
	}
	b.cubePendingFrom = None
	b.lastErr = ""
	return nil
}
