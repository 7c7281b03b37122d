package gammon

// OpeningDoublePolicy selects how an opening throw of doubles is resolved.
type OpeningDoublePolicy int8

const (
	// OpeningReroll rerolls until the dice differ. The cube is unchanged.
	OpeningReroll OpeningDoublePolicy = iota
	// OpeningAutoDouble doubles the cube on each opening doubles throw
	// before rerolling, up to MaxOpeningAutoDoubles.
	OpeningAutoDouble
)

// Rules are the game options fixed at StartGame.
type Rules struct {
	OpeningDoublePolicy OpeningDoublePolicy

	// MaxOpeningAutoDoubles caps the automatic doubles applied during the
	// opening under OpeningAutoDouble. 0 means unlimited.
	MaxOpeningAutoDoubles int
}
