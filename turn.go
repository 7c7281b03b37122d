package gammon

// snapshotTurnStart freezes the position, dice and actor at the moment dice
// become fixed for a turn. CommitTurn validates against this snapshot so the
// maximum-dice obligation is judged independently of partial progress.
func (b *Board) snapshotTurnStart() {
	b.turnStart = b.livePosition()
	b.turnStartDice = append([]int8(nil), b.diceLeft...)
	b.turnStartActor = b.actor
}

func (b *Board) beginTurn(dice []int8) {
	b.diceLeft = append(b.diceLeft[:0], dice...)
	b.phase = PhaseMoving
	b.lastErr = ""
	b.steps = b.steps[:0]
	b.snapshotTurnStart()
}

// NeedsRoll reports whether a dice roll is required before steps can be
// applied.
func (b *Board) NeedsRoll() bool {
	return b.phase == PhaseAwaitingRoll && !b.result.Over
}

// RollOpening performs the opening roll internally, one die per side,
// rerolling (and auto-doubling, under that policy) until the dice differ.
// The higher roller becomes the actor and plays both dice. Returns the
// resolved white and black dice.
func (b *Board) RollOpening() (int8, int8, error) {
	if b.phase != PhaseOpeningRoll {
		return 0, 0, protocolErrorf("rollopening: not in opening roll phase")
	}

	for {
		w, bl := b.rollDie(), b.rollDie()
		if w != bl {
			b.resolveOpening(w, bl)
			return w, bl, nil
		}
		b.openingDoubles()
	}
}

// SetOpeningDice supplies an external opening throw. It reports whether the
// opening resolved; false means doubles were processed and another throw is
// needed.
func (b *Board) SetOpeningDice(whiteDie int8, blackDie int8) (bool, error) {
	if b.phase != PhaseOpeningRoll {
		return false, protocolErrorf("setopeningdice: not in opening roll phase")
	}
	if whiteDie < 1 || whiteDie > 6 || blackDie < 1 || blackDie > 6 {
		return false, protocolErrorf("setopeningdice: dice out of range")
	}
	if whiteDie != blackDie {
		b.resolveOpening(whiteDie, blackDie)
		return true, nil
	}
	b.openingDoubles()
	return false, nil
}

func (b *Board) resolveOpening(whiteDie int8, blackDie int8) {
	if whiteDie > blackDie {
		b.actor = White
		b.beginTurn([]int8{whiteDie, blackDie})
	} else {
		b.actor = Black
		b.beginTurn([]int8{blackDie, whiteDie})
	}
}

func (b *Board) openingDoubles() {
	if b.rules.OpeningDoublePolicy != OpeningAutoDouble {
		return
	}
	if b.rules.MaxOpeningAutoDoubles == 0 || b.openingAutoDoubles < b.rules.MaxOpeningAutoDoubles {
		b.cube <<= 1
		b.openingAutoDoubles++
	}
}

// RollDice rolls two dice internally and begins a new turn. Doubles expand
// to four pips. Returns the dice as rolled.
func (b *Board) RollDice() (int8, int8, error) {
	if b.result.Over {
		return 0, 0, protocolErrorf("rolldice: game over")
	}
	if b.phase != PhaseAwaitingRoll {
		return 0, 0, protocolErrorf("rolldice: not in awaiting roll phase")
	}
	d1, d2 := b.rollDie(), b.rollDie()
	b.setTurnDice(d1, d2)
	return d1, d2, nil
}

// SetDice provides an external roll, for deterministic operation.
func (b *Board) SetDice(d1 int8, d2 int8) error {
	if b.result.Over {
		return protocolErrorf("setdice: game over")
	}
	if b.phase != PhaseAwaitingRoll {
		return protocolErrorf("setdice: not in awaiting roll phase")
	}
	if d1 < 1 || d1 > 6 || d2 < 1 || d2 > 6 {
		return protocolErrorf("setdice: dice out of range")
	}
	b.setTurnDice(d1, d2)
	return nil
}

func (b *Board) setTurnDice(d1 int8, d2 int8) {
	if d1 == d2 {
		b.beginTurn([]int8{d1, d1, d1, d1})
	} else {
		b.beginTurn([]int8{d1, d2})
	}
}

// CommitTurn finalizes the turn. The applied steps must consume the maximum
// number of dice any legal sequence could, judged against the turn-start
// snapshot; when only one die of a non-double roll is playable it must be
// the higher one. An empty commit passes the turn only when no legal move
// existed at all. On success the dice and steps are cleared and the opponent
// is to roll.
func (b *Board) CommitTurn() error {
	if b.result.Over {
		return b.ruleError("committurn: game over")
	}
	if b.phase != PhaseMoving {
		return b.ruleError("committurn: not in moving phase")
	}

	maxUse := maxPlayableDice(b.turnStart, b.turnStartActor, b.turnStartDice)

	if len(b.steps) == 0 {
		if maxUse > 0 {
			return b.ruleError("committurn: at least one legal move exists")
		}
		b.endTurn()
		return nil
	}

	if len(b.steps) < maxUse {
		return b.ruleError("committurn: must use maximum number of dice")
	}
	if maxUse == 1 && len(b.turnStartDice) == 2 && b.turnStartDice[0] != b.turnStartDice[1] {
		hi := b.turnStartDice[0]
		if b.turnStartDice[1] > hi {
			hi = b.turnStartDice[1]
		}
		if b.steps[0].pip != hi {
			return b.ruleError("committurn: only one die playable; must use the higher die")
		}
	}

	b.endTurn()
	return nil
}

func (b *Board) endTurn() {
	b.diceLeft = b.diceLeft[:0]
	b.steps = b.steps[:0]
	b.phase = PhaseAwaitingRoll
	b.actor = b.actor.Opponent()
	b.lastErr = ""
}
