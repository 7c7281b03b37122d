package gammon

// allInHome reports whether every one of s's checkers is in its home board
// or already borne off, with none on the bar.
func (b *Board) allInHome(s Side) bool {
	switch s {
	case White:
		if b.whiteBar > 0 {
			return false
		}
		var inHome uint8
		for p := int8(1); p <= 6; p++ {
			inHome += b.sidePointCount(White, p)
		}
		return inHome+b.whiteOff == checkersPerSide
	case Black:
		if b.blackBar > 0 {
			return false
		}
		var inHome uint8
		for p := int8(19); p <= 24; p++ {
			inHome += b.sidePointCount(Black, p)
		}
		return inHome+b.blackOff == checkersPerSide
	}
	return false
}

// anyFartherFromHome reports whether s has a checker farther from bearing
// off than from.
func (b *Board) anyFartherFromHome(s Side, from int8) bool {
	if s == White {
		for p := from + 1; p <= 24; p++ {
			if b.sidePointCount(White, p) > 0 {
				return true
			}
		}
		return false
	}
	for p := int8(1); p < from; p++ {
		if b.sidePointCount(Black, p) > 0 {
			return true
		}
	}
	return false
}

// ApplyStep attempts one per-die move from a location, consuming one
// remaining die. Use from 0 to enter from the bar. Per-step legality is
// enforced here; global obligations (maximum dice usage, higher die) are
// validated at CommitTurn. A non-nil return leaves the board untouched.
func (b *Board) ApplyStep(from int8, pip int8) error {
	if b.result.Over {
		return b.ruleError("applystep: game over")
	}
	if b.phase != PhaseMoving {
		return b.ruleError("applystep: not in moving phase")
	}
	if len(b.diceLeft) == 0 {
		return b.ruleError("applystep: no dice remaining")
	}

	die := -1
	for i, d := range b.diceLeft {
		if d == pip {
			die = i
			break
		}
	}
	if die == -1 {
		return b.ruleError("applystep: pip not available")
	}

	if b.CountBar(b.actor) > 0 && from != SpaceBar {
		return b.ruleError("applystep: must enter from bar first")
	}

	if from == SpaceBar {
		if b.CountBar(b.actor) == 0 {
			return b.ruleError("applystep: bar empty")
		}
	} else {
		if !inBoard(from) {
			return b.ruleError("applystep: invalid source point")
		}
		if b.sidePointCount(b.actor, from) == 0 {
			return b.ruleError("applystep: no checker at source")
		}
	}

	to := destPoint(b.actor, from, pip)
	var borne, hit bool

	if inBoard(to) {
		if s := b.pointSide(to); s != None && s != b.actor && b.pointCount(to) >= 2 {
			return b.ruleError("applystep: destination blocked")
		}
	} else {
		if !b.allInHome(b.actor) {
			return b.ruleError("applystep: cannot bear off, not all checkers in home")
		}
		exact := from == pip
		if b.actor == Black {
			exact = from == 25-pip
		}
		if !exact && b.anyFartherFromHome(b.actor, from) {
			return b.ruleError("applystep: must use exact roll or bear off highest checker")
		}
		borne = true
	}

	st := step{from: from, to: to, pip: pip, borneOff: borne, entered: from == SpaceBar}

	var mover uint8
	var ok bool
	if from == SpaceBar {
		mover, ok = b.popFromBar(b.actor)
		if !ok {
			return b.ruleError("applystep: internal bar underflow")
		}
	} else {
		mover, _ = b.popFromPoint(from)
	}

	if !borne && inBoard(to) {
		if s := b.pointSide(to); s != None && s != b.actor && b.pointCount(to) == 1 {
			hit = true
			hitID, _ := b.popFromPoint(to)
			b.pushToBar(s, hitID)
			st.hitChecker = hitID
		}
	}

	if borne {
		b.pushOff(b.actor, mover)
	} else {
		b.pushToPoint(to, mover)
	}

	st.moved = mover
	st.hit = hit
	b.steps = append(b.steps, st)

	b.diceLeft = append(b.diceLeft[:die], b.diceLeft[die+1:]...)
	b.lastErr = ""
	return nil
}

// UndoStep reverses the most recently applied step of this turn, restoring
// position, dice and bar/off counts exactly. It reports whether anything was
// undone.
func (b *Board) UndoStep() bool {
	if b.result.Over || b.phase != PhaseMoving || len(b.steps) == 0 {
		return false
	}

	st := b.steps[len(b.steps)-1]
	b.steps = b.steps[:len(b.steps)-1]

	if st.borneOff {
		if b.actor == White {
			if b.whiteOff > 0 {
				b.whiteOff--
			}
		} else {
			if b.blackOff > 0 {
				b.blackOff--
			}
		}
		b.pushToPoint(st.from, st.moved)
	} else {
		if inBoard(st.to) {
			b.removeFromPoint(st.to, st.moved)
		}
		if st.hit {
			hitSide := b.checkers[st.hitChecker].side
			if hitSide == White {
				if b.whiteBar > 0 {
					b.whiteBar--
				}
			} else {
				if b.blackBar > 0 {
					b.blackBar--
				}
			}
			b.pushToPoint(st.to, st.hitChecker)
		}
		if st.entered {
			b.pushToBar(b.actor, st.moved)
		} else {
			b.pushToPoint(st.from, st.moved)
		}
	}

	b.diceLeft = append(b.diceLeft, st.pip)
	b.lastErr = ""
	return true
}
