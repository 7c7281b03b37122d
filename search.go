package gammon

// position is a plain-value board snapshot used by the max-play search.
// Copies are cheap (a struct assignment) and two positions compare with ==,
// which the tests rely on. Index 0 of the point arrays is unused.
type position struct {
	white, black       [25]uint8
	whiteBar, blackBar uint8
	whiteOff, blackOff uint8
}

// livePosition snapshots the current board into a search position.
func (b *Board) livePosition() position {
	var pos position
	for p := int8(1); p <= 24; p++ {
		stack := b.points[p-1]
		if len(stack) == 0 {
			continue
		}
		if b.checkers[stack[0]].side == White {
			pos.white[p] = uint8(len(stack))
		} else {
			pos.black[p] = uint8(len(stack))
		}
	}
	pos.whiteBar, pos.blackBar = b.whiteBar, b.blackBar
	pos.whiteOff, pos.blackOff = b.whiteOff, b.blackOff
	return pos
}

func (pos *position) owner(p int8) Side {
	if !inBoard(p) {
		return None
	}
	if pos.white[p] > 0 {
		return White
	}
	if pos.black[p] > 0 {
		return Black
	}
	return None
}

func (pos *position) count(p int8) uint8 {
	if !inBoard(p) {
		return 0
	}
	if pos.white[p] > 0 {
		return pos.white[p]
	}
	return pos.black[p]
}

func (pos *position) bar(s Side) uint8 {
	if s == White {
		return pos.whiteBar
	}
	return pos.blackBar
}

func (pos *position) allInHome(s Side) bool {
	if s == White {
		if pos.whiteBar > 0 {
			return false
		}
		var inHome uint8
		for p := 1; p <= 6; p++ {
			inHome += pos.white[p]
		}
		return inHome+pos.whiteOff == checkersPerSide
	}
	if pos.blackBar > 0 {
		return false
	}
	var inHome uint8
	for p := 19; p <= 24; p++ {
		inHome += pos.black[p]
	}
	return inHome+pos.blackOff == checkersPerSide
}

func (pos *position) anyFarther(s Side, from int8) bool {
	if s == White {
		for p := from + 1; p <= 24; p++ {
			if pos.white[p] > 0 {
				return true
			}
		}
		return false
	}
	for p := int8(1); p < from; p++ {
		if pos.black[p] > 0 {
			return true
		}
	}
	return false
}

// legalStep decides whether actor may move from with pip, mirroring the
// rules ApplyStep enforces on the live board.
func (pos *position) legalStep(actor Side, from int8, pip int8) (to int8, hit bool, ok bool) {
	to = destPoint(actor, from, pip)
	if inBoard(to) {
		owner := pos.owner(to)
		if owner != None && owner != actor {
			if pos.count(to) >= 2 {
				return to, false, false
			}
			return to, true, true
		}
		return to, false, true
	}

	if !pos.allInHome(actor) {
		return to, false, false
	}
	exact := from == pip
	if actor == Black {
		exact = from == 25-pip
	}
	if !exact && pos.anyFarther(actor, from) {
		return to, false, false
	}
	return to, false, true
}

// apply performs a step known to be legal on a copy of the position.
func (pos position) apply(actor Side, from int8, to int8, hit bool) position {
	dec := func(v *uint8) {
		if *v > 0 {
			*v--
		}
	}

	if from == SpaceBar {
		if actor == White {
			dec(&pos.whiteBar)
		} else {
			dec(&pos.blackBar)
		}
	} else {
		if actor == White {
			dec(&pos.white[from])
		} else {
			dec(&pos.black[from])
		}
	}

	if inBoard(to) {
		if hit {
			if actor == White {
				dec(&pos.black[to])
				pos.blackBar++
			} else {
				dec(&pos.white[to])
				pos.whiteBar++
			}
		}
		if actor == White {
			pos.white[to]++
		} else {
			pos.black[to]++
		}
	} else {
		if actor == White {
			pos.whiteOff++
		} else {
			pos.blackOff++
		}
	}
	return pos
}

// dfsMax exhaustively tries every unused die against every legal origin,
// recursing on a copy of the position, and returns the largest number of
// dice any sequence can consume. The search space is bounded by four dice
// and at most twenty-five origins per ply, so no memoization is needed.
func dfsMax(pos position, actor Side, dice []int8, used uint) int {
	best := 0
	for i, pip := range dice {
		if used&(1<<uint(i)) != 0 {
			continue
		}

		// Checkers on the bar must enter before anything else moves.
		var froms []int8
		if pos.bar(actor) > 0 {
			froms = append(froms, SpaceBar)
		} else {
			for p := int8(1); p <= 24; p++ {
				if actor == White && pos.white[p] > 0 || actor == Black && pos.black[p] > 0 {
					froms = append(froms, p)
				}
			}
		}

		for _, from := range froms {
			to, hit, ok := pos.legalStep(actor, from, pip)
			if !ok {
				continue
			}
			next := pos.apply(actor, from, to, hit)
			if n := 1 + dfsMax(next, actor, dice, used|1<<uint(i)); n > best {
				best = n
			}
		}
	}
	return best
}

// maxPlayableDice is the authority for turn completion: the maximum number
// of the rolled dice that any legal sequence of steps can consume from pos.
func maxPlayableDice(pos position, actor Side, dice []int8) int {
	if len(dice) == 0 {
		return 0
	}
	return dfsMax(pos, actor, dice, 0)
}

// HasAnyLegalStep reports whether any legal step exists with the current
// dice against the live board. It does not mutate state and returns false
// outside the moving phase.
func (b *Board) HasAnyLegalStep() bool {
	if b.result.Over || b.phase != PhaseMoving || len(b.diceLeft) == 0 {
		return false
	}
	return maxPlayableDice(b.livePosition(), b.actor, b.diceLeft) > 0
}
