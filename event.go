package gammon

// Events are always sent from the server to clients. The Type field is
// assigned by the sender immediately before marshalling.

const (
	EventTypeWelcome      = "welcome"
	EventTypeHelp         = "help"
	EventTypePing         = "ping"
	EventTypeNotice       = "notice"
	EventTypeSay          = "say"
	EventTypeList         = "list"
	EventTypeJoined       = "joined"
	EventTypeFailedJoin   = "failedjoin"
	EventTypeLeft         = "left"
	EventTypeBoard        = "board"
	EventTypeRolled       = "rolled"
	EventTypeFailedRoll   = "failedroll"
	EventTypeMoved        = "moved"
	EventTypeFailedMove   = "failedmove"
	EventTypeUndone       = "undone"
	EventTypeFailedUndo   = "failedundo"
	EventTypeCommitted    = "committed"
	EventTypeFailedCommit = "failedcommit"
	EventTypeCubeOffered  = "cubeoffered"
	EventTypeCubeTaken    = "cubetaken"
	EventTypeCubeDropped  = "cubedropped"
	EventTypeFailedCube   = "failedcube"
	EventTypeWin          = "win"
)

type Event struct {
	Type   string
	Player string
}

type EventWelcome struct {
	Event
	PlayerName string
	Clients    int
	Matches    int
}

type EventHelp struct {
	Event
	Message string
}

type EventPing struct {
	Event
	Message string
}

type EventNotice struct {
	Event
	Message string
}

type EventSay struct {
	Event
	Message string
}

// MatchListing is one entry of a list event.
type MatchListing struct {
	ID       int
	Password bool
	Players  int8
	Name     string
}

type EventList struct {
	Event
	Matches []MatchListing
}

type EventJoined struct {
	Event
	MatchID int
	Side    Side
}

type EventFailedJoin struct {
	Event
	Reason string
}

type EventLeft struct {
	Event
}

// BoardState is the wire snapshot handed to every client after a mutation.
// Point indexes follow the engine convention: White moves 24 toward 1,
// Black 1 toward 24. Renderers flip the visual perspective per side.
type BoardState struct {
	State
	Phase         Phase
	SideToMove    Side
	CubeHolder    Side
	DiceRemaining []int8
}

type EventBoard struct {
	Event
	BoardState
}

type EventRolled struct {
	Event
	Die1    int8
	Die2    int8
	Opening bool
}

type EventFailedRoll struct {
	Event
	Reason string
}

type EventMoved struct {
	Event
	From int8
	Pip  int8
}

type EventFailedMove struct {
	Event
	From   int8
	Pip    int8
	Reason string
}

type EventUndone struct {
	Event
}

type EventFailedUndo struct {
	Event
	Reason string
}

type EventCommitted struct {
	Event
	NextToMove Side
}

type EventFailedCommit struct {
	Event
	Reason string
}

type EventCubeOffered struct {
	Event
	// Value is the stake if the offer is taken.
	Value int
}

type EventCubeTaken struct {
	Event
	Value  int
	Holder Side
}

type EventCubeDropped struct {
	Event
	Winner    Side
	FinalCube int
}

type EventFailedCube struct {
	Event
	Reason string
}

type EventWin struct {
	Event
	Points   int
	Resigned bool
}
