package gammon

// Side identifies a player. White advances from point 24 toward 1, Black
// advances from point 1 toward 24. None marks empty points, a centered cube
// and the unresolved opening.
type Side int8

const (
	None Side = iota
	White
	Black
)

func (s Side) Opponent() Side {
	switch s {
	case White:
		return Black
	case Black:
		return White
	}
	return None
}

func (s Side) String() string {
	switch s {
	case White:
		return "white"
	case Black:
		return "black"
	}
	return "none"
}
