package gammon

import (
	"bytes"
	"crypto/rand"
	"fmt"
	"math/big"
)

// Location encoding used throughout: 1-24 are board points, 0 is the bar and
// anything greater than 24 (canonically 25) is borne off.
const (
	SpaceBar int8 = 0
	SpaceOff int8 = 25
)

const checkersPerSide = 15

// Phase is the coarse turn-control state.
type Phase int8

const (
	PhaseOpeningRoll Phase = iota
	PhaseAwaitingRoll
	PhaseMoving
	PhaseCubeOffered
)

func (p Phase) String() string {
	switch p {
	case PhaseOpeningRoll:
		return "opening"
	case PhaseAwaitingRoll:
		return "awaitingroll"
	case PhaseMoving:
		return "moving"
	case PhaseCubeOffered:
		return "cubeoffered"
	}
	return "unknown"
}

// Standard starting layout, by point number.
var (
	initWhite = [checkersPerSide]int8{24, 24, 13, 13, 13, 13, 13, 8, 8, 8, 6, 6, 6, 6, 6}
	initBlack = [checkersPerSide]int8{1, 1, 12, 12, 12, 12, 12, 17, 17, 17, 19, 19, 19, 19, 19}
)

// checker is one of the thirty checkers owned by the board. Checkers are
// never created or destroyed after StartGame, only relocated.
type checker struct {
	side Side
	pos  int8
}

// step records one applied move of the current turn, stored LIFO for undo.
type step struct {
	from, to, pip int8
	entered       bool
	hit           bool
	borneOff      bool
	moved         uint8
	hitChecker    uint8
}

// GameResult describes a finished game. Resigned is set when the game ended
// via DropCube; FinalCube is the stake that applies to the result.
type GameResult struct {
	Over      bool
	Winner    Side
	FinalCube int
	Resigned  bool
}

// PointState is one entry of a State snapshot.
type PointState struct {
	Side  Side
	Count uint8
}

// State is the board snapshot handed to rendering and network collaborators.
// It is the only surface they consume; no other board internals are exposed.
type State struct {
	Points   [24]PointState
	Cube     int
	WhiteBar uint8
	BlackBar uint8
	WhiteOff uint8
	BlackOff uint8
}

// Board is the authoritative state of one backgammon game: checkers, cube,
// dice and turn control. All mutation goes through its methods; the zero
// value is not usable, construct with NewBoard.
//
// A Board is not safe for concurrent use. When shared between connections
// the owner must serialize access, typically with one mutex per match.
type Board struct {
	// checkers[0:15] are White, checkers[15:30] are Black. Points store
	// indexes into this array; nothing outside the board ever holds a
	// checker reference.
	checkers [2 * checkersPerSide]checker
	points   [24][]uint8

	whiteBar, blackBar uint8
	whiteOff, blackOff uint8

	cube       int
	cubeHolder Side

	rules              Rules
	phase              Phase
	actor              Side
	diceLeft           []int8
	openingAutoDoubles int
	lastErr            string

	cubePendingFrom Side
	result          GameResult

	steps []step

	turnStart      position
	turnStartDice  []int8
	turnStartActor Side

	rollDie func() int8
}

// NewBoard returns a board in the standard starting position with default
// rules, ready for the opening roll.
func NewBoard() *Board {
	b := &Board{
		rollDie: rollDie,
	}
	b.StartGame(Rules{})
	return b
}

// SetDieRoller replaces the source of internally rolled dice. The supplied
// func must return values in 1-6. Dice supplied via SetDice or
// SetOpeningDice bypass the roller entirely; internal and external dice feed
// the same transitions.
func (b *Board) SetDieRoller(f func() int8) {
	b.rollDie = f
}

// StartGame resets to the initial position, centers the cube and clears all
// turn state and any previous result. After the call the phase is
// PhaseOpeningRoll and no dice are set.
func (b *Board) StartGame(rules Rules) {
	for i := 0; i < checkersPerSide; i++ {
		b.checkers[i] = checker{side: White, pos: initWhite[i]}
		b.checkers[checkersPerSide+i] = checker{side: Black, pos: initBlack[i]}
	}
	b.rebuildPoints()

	b.cube = 1
	b.cubeHolder = None
	b.cubePendingFrom = None
	b.rules = rules
	b.phase = PhaseOpeningRoll
	b.actor = None
	b.diceLeft = b.diceLeft[:0]
	b.openingAutoDoubles = 0
	b.lastErr = ""
	b.steps = b.steps[:0]
	b.turnStart = position{}
	b.turnStartDice = nil
	b.turnStartActor = None
	b.result = GameResult{}
}

// rebuildPoints derives the point stacks and bar/off counters from checker
// positions.
func (b *Board) rebuildPoints() {
	for i := range b.points {
		b.points[i] = b.points[i][:0]
	}
	b.whiteBar, b.blackBar, b.whiteOff, b.blackOff = 0, 0, 0, 0

	for id := range b.checkers {
		c := &b.checkers[id]
		switch {
		case inBoard(c.pos):
			b.points[c.pos-1] = append(b.points[c.pos-1], uint8(id))
		case c.pos == SpaceBar:
			if c.side == White {
				b.whiteBar++
			} else {
				b.blackBar++
			}
		default:
			if c.side == White {
				b.whiteOff++
			} else {
				b.blackOff++
			}
		}
	}
}

func inBoard(p int8) bool {
	return p >= 1 && p <= 24
}

// destPoint is the standard projection of a move. From the bar, White enters
// on 25-pip and Black on pip.
func destPoint(s Side, from int8, pip int8) int8 {
	if s == White {
		if from == SpaceBar {
			return 25 - pip
		}
		return from - pip
	}
	if from == SpaceBar {
		return pip
	}
	return from + pip
}

// ===== Point and bar primitives =====

func (b *Board) pointCount(p int8) uint8 {
	if !inBoard(p) {
		return 0
	}
	return uint8(len(b.points[p-1]))
}

func (b *Board) pointSide(p int8) Side {
	if !inBoard(p) {
		return None
	}
	stack := b.points[p-1]
	if len(stack) == 0 {
		return None
	}
	return b.checkers[stack[0]].side
}

func (b *Board) sidePointCount(s Side, p int8) uint8 {
	if b.pointSide(p) != s {
		return 0
	}
	return b.pointCount(p)
}

// popFromPoint removes the top checker from p. It fails soft rather than
// corrupting state when p is empty.
func (b *Board) popFromPoint(p int8) (uint8, bool) {
	if !inBoard(p) || len(b.points[p-1]) == 0 {
		return 0, false
	}
	stack := b.points[p-1]
	id := stack[len(stack)-1]
	b.points[p-1] = stack[:len(stack)-1]
	return id, true
}

func (b *Board) pushToPoint(p int8, id uint8) {
	b.checkers[id].pos = p
	b.points[p-1] = append(b.points[p-1], id)
}

// popFromBar removes one of s's checkers from the bar.
func (b *Board) popFromBar(s Side) (uint8, bool) {
	if s == White && b.whiteBar == 0 || s == Black && b.blackBar == 0 || s == None {
		return 0, false
	}
	lo, hi := checkerRange(s)
	for id := lo; id < hi; id++ {
		if b.checkers[id].pos == SpaceBar {
			if s == White {
				b.whiteBar--
			} else {
				b.blackBar--
			}
			return uint8(id), true
		}
	}
	return 0, false
}

func (b *Board) pushToBar(s Side, id uint8) {
	b.checkers[id].pos = SpaceBar
	if s == White {
		b.whiteBar++
	} else {
		b.blackBar++
	}
}

func (b *Board) pushOff(s Side, id uint8) {
	b.checkers[id].pos = SpaceOff
	if s == White {
		b.whiteOff++
	} else {
		b.blackOff++
	}
}

// removeFromPoint removes a specific checker from a point stack, used only
// by undo.
func (b *Board) removeFromPoint(p int8, id uint8) {
	stack := b.points[p-1]
	for i := range stack {
		if stack[i] == id {
			b.points[p-1] = append(stack[:i], stack[i+1:]...)
			return
		}
	}
}

func checkerRange(s Side) (int, int) {
	if s == White {
		return 0, checkersPerSide
	}
	return checkersPerSide, 2 * checkersPerSide
}

// ===== Queries =====

// Phase is the current coarse phase of play.
func (b *Board) Phase() Phase {
	return b.phase
}

// SideToMove is the acting side. None during an unresolved opening.
func (b *Board) SideToMove() Side {
	return b.actor
}

// GameOver reports whether the game has ended (via cube drop).
func (b *Board) GameOver() bool {
	return b.result.Over
}

// Result is the final result descriptor, valid when GameOver is true.
func (b *Board) Result() GameResult {
	return b.result
}

// DiceRemaining returns the unused pip values of the current turn.
func (b *Board) DiceRemaining() []int8 {
	dice := make([]int8, len(b.diceLeft))
	copy(dice, b.diceLeft)
	return dice
}

// LastError returns the reason of the most recent rule violation.
func (b *Board) LastError() string {
	return b.lastErr
}

// OpeningAutoDoubles is the number of opening auto-doubles applied so far.
func (b *Board) OpeningAutoDoubles() int {
	return b.openingAutoDoubles
}

// CountAt returns the number of s's checkers on a point.
func (b *Board) CountAt(s Side, point int8) uint8 {
	return b.sidePointCount(s, point)
}

// CountBar returns the number of s's checkers on the bar.
func (b *Board) CountBar(s Side) uint8 {
	switch s {
	case White:
		return b.whiteBar
	case Black:
		return b.blackBar
	}
	return 0
}

// CountOff returns the number of s's checkers borne off.
func (b *Board) CountOff(s Side) uint8 {
	switch s {
	case White:
		return b.whiteOff
	case Black:
		return b.blackOff
	}
	return 0
}

// State fills a snapshot of the current board.
func (b *Board) State() State {
	var s State
	for i := range b.points {
		stack := b.points[i]
		s.Points[i].Count = uint8(len(stack))
		if len(stack) != 0 {
			s.Points[i].Side = b.checkers[stack[0]].side
		}
	}
	s.WhiteBar = b.whiteBar
	s.BlackBar = b.blackBar
	s.WhiteOff = b.whiteOff
	s.BlackOff = b.blackOff
	s.Cube = b.cube
	return s
}

// String is a human-readable summary of the occupied points.
func (b *Board) String() string {
	var buf bytes.Buffer
	buf.WriteString("Board\nPoint ")
	for i := range b.points {
		stack := b.points[i]
		if len(stack) == 0 {
			continue
		}
		label := "W"
		if b.checkers[stack[0]].side == Black {
			label = "B"
		}
		fmt.Fprintf(&buf, "%d %s%d ", i+1, label, len(stack))
		if i == 11 {
			buf.WriteString("\nPoint ")
		}
	}
	buf.WriteByte('\n')
	return buf.String()
}

// rollDie returns a fair die value from the process-wide generator.
func rollDie() int8 {
	return int8(randInt(6) + 1)
}

func randInt(max int) int {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(err)
	}
	return int(i.Int64())
}
