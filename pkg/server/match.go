package server

import (
	"bufio"
	"bytes"
	"log"
	"sync"
	"time"

	"codeberg.org/anbt/gammon"
)

// serverMatch pairs two seated clients (and any spectators) with one engine
// board. The board is not safe for concurrent use; mu serializes every
// access, held by the command loop, the pruning ticker and the disconnect
// path.
type serverMatch struct {
	id       int
	name     []byte
	password []byte
	created  int64
	active   int64
	started  time.Time
	ended    time.Time

	client1 *serverClient // White seat.
	client2 *serverClient // Black seat.
	player1 string
	player2 string

	account1 int
	account2 int

	spectators []*serverClient

	winner   gammon.Side
	points   int
	recorded bool

	mu    sync.Mutex
	board *gammon.Board
}

func newServerMatch(id int, name []byte, password []byte, rules gammon.Rules) *serverMatch {
	now := time.Now().Unix()
	m := &serverMatch{
		id:       id,
		name:     name,
		password: password,
		created:  now,
		active:   now,
		board:    gammon.NewBoard(),
	}
	m.board.StartGame(rules)
	return m
}

func (m *serverMatch) playerCount() int {
	count := 0
	if m.client1 != nil {
		count++
	}
	if m.client2 != nil {
		count++
	}
	return count
}

// terminated reports whether no connection remains in the match.
func (m *serverMatch) terminated() bool {
	return m.client1 == nil && m.client2 == nil && len(m.spectators) == 0
}

func (m *serverMatch) eachClient(f func(c *serverClient)) {
	if m.client1 != nil {
		f(m.client1)
	}
	if m.client2 != nil {
		f(m.client2)
	}
	for _, spec := range m.spectators {
		f(spec)
	}
}

func (m *serverMatch) opponent(c *serverClient) *serverClient {
	switch c {
	case m.client1:
		return m.client2
	case m.client2:
		return m.client1
	}
	return nil
}

// addClient seats the joining client, or adds a spectator when both seats
// are taken. The first player is seated randomly.
func (m *serverMatch) addClient(c *serverClient) {
	switch {
	case m.client1 == nil && m.client2 == nil:
		if RandInt(2) == 0 {
			m.client1 = c
			c.side = gammon.White
		} else {
			m.client2 = c
			c.side = gammon.Black
		}
	case m.client1 == nil:
		m.client1 = c
		c.side = gammon.White
	case m.client2 == nil:
		m.client2 = c
		c.side = gammon.Black
	default:
		c.side = gammon.None
		m.spectators = append(m.spectators, c)
	}

	switch c {
	case m.client1:
		m.player1 = string(c.name)
		m.account1 = c.accountID
	case m.client2:
		m.player2 = string(c.name)
		m.account2 = c.accountID
	}
	m.active = time.Now().Unix()

	joined := &gammon.EventJoined{
		MatchID: m.id,
		Side:    c.side,
	}
	joined.Player = string(c.name)
	m.eachClient(func(sc *serverClient) {
		sc.sendEvent(joined)
	})
	m.sendBoard(c)

	if m.client1 != nil && m.client2 != nil && m.started.IsZero() {
		m.started = time.Now()
	}
}

func (m *serverMatch) removeClient(c *serverClient) {
	var removed bool
	switch c {
	case m.client1:
		m.client1 = nil
		removed = true
	case m.client2:
		m.client2 = nil
		removed = true
	default:
		for i, spec := range m.spectators {
			if spec == c {
				m.spectators = append(m.spectators[:i], m.spectators[i+1:]...)
				removed = true
				break
			}
		}
	}
	if !removed {
		return
	}
	c.side = gammon.None
	m.active = time.Now().Unix()

	left := &gammon.EventLeft{}
	left.Player = string(c.name)
	c.sendEvent(left)
	m.eachClient(func(sc *serverClient) {
		sc.sendEvent(left)
	})
}

func (m *serverMatch) listing() *gammon.MatchListing {
	return &gammon.MatchListing{
		ID:       m.id,
		Password: len(m.password) != 0,
		Players:  int8(m.playerCount()),
		Name:     string(m.name),
	}
}

func (m *serverMatch) boardState() gammon.BoardState {
	return gammon.BoardState{
		State:         m.board.State(),
		Phase:         m.board.Phase(),
		SideToMove:    m.board.SideToMove(),
		CubeHolder:    m.board.CubeHolder(),
		DiceRemaining: m.board.DiceRemaining(),
	}
}

// sendBoard sends the current board to one client: a structured event for
// JSON clients, rendered rows as notices for everyone else.
func (m *serverMatch) sendBoard(c *serverClient) {
	if c.json {
		ev := &gammon.EventBoard{
			BoardState: m.boardState(),
		}
		c.sendEvent(ev)
		return
	}

	scanner := bufio.NewScanner(bytes.NewReader(gammon.RenderState(m.board.State(), c.side)))
	for scanner.Scan() {
		c.sendNotice(string(scanner.Bytes()))
	}
}

func (m *serverMatch) sendBoardAll() {
	m.eachClient(func(c *serverClient) {
		m.sendBoard(c)
	})
}

// gameResult reports whether the game has ended, either by cube drop or by
// bearing off all fifteen checkers, and at what stake.
func (m *serverMatch) gameResult() (winner gammon.Side, points int, over bool) {
	if m.board.GameOver() {
		r := m.board.Result()
		return r.Winner, r.FinalCube, true
	}
	if m.board.CountOff(gammon.White) == 15 {
		return gammon.White, m.board.CubeValue(), true
	}
	if m.board.CountOff(gammon.Black) == 15 {
		return gammon.Black, m.board.CubeValue(), true
	}
	return gammon.None, 0, false
}

// handleGameEnd records and announces the result when the game is over. It
// reports whether the game ended.
func (m *serverMatch) handleGameEnd() bool {
	winner, points, over := m.gameResult()
	if !over || m.recorded {
		return over
	}
	m.winner = winner
	m.points = points
	m.ended = time.Now()
	m.recorded = true

	var winnerName string
	switch winner {
	case gammon.White:
		winnerName = m.player1
	case gammon.Black:
		winnerName = m.player2
	}

	win := &gammon.EventWin{
		Points:   points,
		Resigned: m.board.GameOver() && m.board.Result().Resigned,
	}
	win.Player = winnerName
	m.eachClient(func(sc *serverClient) {
		sc.sendEvent(win)
	})

	err := recordMatchResult(m)
	if err != nil {
		log.Printf("failed to record match result: %s", err)
	}
	return true
}
