package server

import (
	"bytes"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"
	"time"

	"codeberg.org/anbt/gammon"
	"codeberg.org/tslocum/gotext"
)

// engineErrorReason unwraps an engine failure for the client. Protocol
// errors should never escape correct command sequencing; log them as server
// bugs before relaying.
func engineErrorReason(err error) string {
	if err == nil {
		return ""
	}
	if ge, ok := err.(*gammon.Error); ok && ge.Protocol {
		log.Printf("engine protocol error: %s", ge.Reason)
	}
	return err.Error()
}

func (s *server) handleCommands() {
	var cmd serverCommand
	for cmd = range s.commands {
		if cmd.client == nil {
			log.Panicf("received command %s with no client", cmd.command)
		}
		cmd.client.active = time.Now().Unix()
		s.handleCommand(cmd)
	}
}

func (s *server) handleCommand(cmd serverCommand) {
	c := cmd.client
	command := bytes.TrimSpace(cmd.command)
	if len(command) == 0 {
		return
	}

	params := bytes.Fields(command)
	keyword := strings.ToLower(string(params[0]))
	params = params[1:]

	if len(c.name) == 0 {
		s.handleFirstCommand(c, keyword, params)
		return
	}

	switch keyword {
	case gammon.CommandHelp, "h":
		if len(params) > 0 {
			command := strings.ToLower(string(params[0]))
			text, ok := gammon.HelpText[command]
			if !ok {
				c.sendNotice(fmt.Sprintf("Unknown command: %s", command))
				return
			}
			c.sendEvent(&gammon.EventHelp{
				Message: fmt.Sprintf("%s %s", command, text),
			})
			return
		}
		c.sendEvent(&gammon.EventHelp{
			Message: strings.Join(s.sortedCommands, ", "),
		})
	case gammon.CommandList, "ls":
		ev := &gammon.EventList{}
		s.matchesLock.RLock()
		for _, m := range s.matches {
			ev.Matches = append(ev.Matches, *m.listing())
		}
		s.matchesLock.RUnlock()
		sort.Slice(ev.Matches, func(i, j int) bool { return ev.Matches[i].ID < ev.Matches[j].ID })
		c.sendEvent(ev)
	case gammon.CommandCreate, "c":
		s.handleCreateMatch(c, params)
	case gammon.CommandJoin, "j":
		s.handleJoinMatch(c, params)
	case gammon.CommandLeave, "l":
		m := s.matchByClient(c)
		if m == nil {
			c.sendNotice(gotext.GetD(c.language, "You are not in a match."))
			return
		}
		m.mu.Lock()
		m.removeClient(c)
		m.mu.Unlock()
	case gammon.CommandBoard, "b":
		m := s.matchByClient(c)
		if m == nil {
			c.sendNotice(gotext.GetD(c.language, "You are not in a match."))
			return
		}
		m.mu.Lock()
		m.sendBoard(c)
		m.mu.Unlock()
	case gammon.CommandRoll, "r":
		s.handleRoll(c)
	case gammon.CommandMove, "m", "mv":
		s.handleMove(c, params)
	case gammon.CommandUndo, "u":
		s.handleUndo(c)
	case gammon.CommandOk, "k":
		s.handleCommit(c)
	case gammon.CommandDouble, "d":
		s.handleDouble(c)
	case gammon.CommandTake:
		s.handleCubeResponse(c, true)
	case gammon.CommandPass:
		s.handleCubeResponse(c, false)
	case gammon.CommandSay, "s":
		s.handleSay(c, command, params)
	case gammon.CommandSetDice:
		s.handleSetDice(c, params)
	case gammon.CommandPong:
		// Already noted as activity.
	case gammon.CommandDisconnect:
		c.Terminate("Client disconnected")
	default:
		c.sendNotice(fmt.Sprintf("Unknown command: %s", keyword))
	}
}

// handleFirstCommand handles login and registration, the only commands
// available before a name is assigned.
func (s *server) handleFirstCommand(c *serverClient, keyword string, params [][]byte) {
	// The client identifier sent by JSON clients carries the preferred
	// language as its final dash-separated segment.
	readClientIdentifier := func() {
		c.json = true
		if len(params) > 0 {
			split := bytes.Split(params[0], []byte("-"))
			if len(split) > 1 {
				c.language = "gammon-" + string(s.matchLanguage(split[len(split)-1]))
			}
			params = params[1:]
		}
	}

	switch keyword {
	case gammon.CommandLogin, gammon.CommandLoginJSON, "l", "lj":
		if keyword == gammon.CommandLoginJSON || keyword == "lj" {
			readClientIdentifier()
		}

		var username []byte
		var password []byte
		if len(params) > 0 {
			username = params[0]
		}
		if len(params) > 1 {
			password = bytes.Join(params[1:], []byte(" "))
		}

		if len(password) > 0 {
			a, err := loginAccount(s.passwordSalt, username, password)
			if err != nil || a == nil {
				c.Terminate(gotext.GetD(c.language, "Incorrect username or password."))
				return
			}
			c.account = a
			c.accountID = a.id
			username = a.username
		} else if len(bytes.TrimSpace(username)) == 0 {
			username = s.randomUsername()
		} else if !s.nameAllowed(username) {
			c.Terminate(gotext.GetD(c.language, "Guest usernames are assigned automatically."))
			return
		} else if usernameRegistered(username) {
			c.Terminate(gotext.GetD(c.language, "That username is registered. Please specify a password."))
			return
		}

		s.clientsLock.Lock()
		if existing := s.clientByUsername(username); existing != nil && existing != c {
			s.clientsLock.Unlock()
			c.Terminate(gotext.GetD(c.language, "That username is already in use."))
			return
		}
		c.name = username
		s.clientsLock.Unlock()

		c.sendEvent(&gammon.EventWelcome{
			PlayerName: string(c.name),
			Clients:    len(s.clients),
			Matches:    len(s.matches),
		})

		log.Printf("Client %d logged in as %s", c.id, c.name)
	case gammon.CommandRegister, gammon.CommandRegisterJSON, "rj":
		if keyword == gammon.CommandRegisterJSON || keyword == "rj" {
			readClientIdentifier()
		}
		if len(params) < 3 {
			c.Terminate(gotext.GetD(c.language, "Please enter an email, username and password."))
			return
		}

		a := &account{
			email:    params[0],
			username: params[1],
			password: bytes.Join(params[2:], []byte(" ")),
		}
		err := registerAccount(s.passwordSalt, a)
		if err != nil {
			c.Terminate(err.Error())
			return
		}

		logged, err := loginAccount(s.passwordSalt, a.username, a.password)
		if err != nil {
			c.Terminate(gotext.GetD(c.language, "Incorrect username or password."))
			return
		}
		if logged != nil {
			c.account = logged
			c.accountID = logged.id
		}

		s.clientsLock.Lock()
		c.name = a.username
		s.clientsLock.Unlock()

		c.sendEvent(&gammon.EventWelcome{
			PlayerName: string(c.name),
			Clients:    len(s.clients),
			Matches:    len(s.matches),
		})

		log.Printf("Client %d registered as %s", c.id, c.name)
	case gammon.CommandResetPassword:
		if len(params) == 0 {
			c.Terminate(gotext.GetD(c.language, "Please enter an email address."))
			return
		}
		err := resetAccount(s.mailServer, s.resetSalt, params[0])
		if err != nil {
			log.Printf("failed to reset password: %s", err)
		}
		c.Terminate(gotext.GetD(c.language, "If an account was found, a password reset email has been sent."))
	default:
		c.Terminate(gotext.GetD(c.language, "You must login before using other commands."))
	}
}

func (s *server) handleCreateMatch(c *serverClient, params [][]byte) {
	if s.matchByClient(c) != nil {
		c.sendEvent(&gammon.EventFailedJoin{
			Reason: gotext.GetD(c.language, "Please leave your current match first."),
		})
		return
	}

	var name []byte
	var password []byte
	if len(params) > 0 {
		name = params[0]
	}
	if len(params) > 1 {
		password = params[1]
	}

	m := newServerMatch(<-s.newMatchIDs, name, password, gammon.Rules{})

	s.matchesLock.Lock()
	s.matches = append(s.matches, m)
	s.matchesLock.Unlock()

	m.mu.Lock()
	m.addClient(c)
	m.mu.Unlock()
}

func (s *server) handleJoinMatch(c *serverClient, params [][]byte) {
	failedJoin := func(reason string) {
		c.sendEvent(&gammon.EventFailedJoin{
			Reason: reason,
		})
	}

	if s.matchByClient(c) != nil {
		failedJoin(gotext.GetD(c.language, "Please leave your current match first."))
		return
	}
	if len(params) == 0 || !onlyNumbers.Match(params[0]) {
		failedJoin(gotext.GetD(c.language, "Please specify the match id."))
		return
	}
	id, err := strconv.Atoi(string(params[0]))
	if err != nil || id <= 0 {
		failedJoin(gotext.GetD(c.language, "Please specify the match id."))
		return
	}

	var m *serverMatch
	s.matchesLock.RLock()
	for _, match := range s.matches {
		if match.id == id {
			m = match
			break
		}
	}
	s.matchesLock.RUnlock()

	if m == nil {
		failedJoin(gotext.GetD(c.language, "Match not found."))
		return
	}

	m.mu.Lock()
	if len(m.password) != 0 && (len(params) < 2 || !bytes.Equal(m.password, params[1])) {
		m.mu.Unlock()
		failedJoin(gotext.GetD(c.language, "Incorrect password."))
		return
	}
	m.addClient(c)
	m.mu.Unlock()
}

func (s *server) handleRoll(c *serverClient) {
	failedRoll := func(reason string) {
		c.sendEvent(&gammon.EventFailedRoll{
			Reason: reason,
		})
	}

	m := s.matchByClient(c)
	if m == nil {
		failedRoll(gotext.GetD(c.language, "You are not in a match."))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.board.Phase() {
	case gammon.PhaseOpeningRoll:
		if c.side == gammon.None {
			failedRoll(gotext.GetD(c.language, "Spectators cannot roll."))
			return
		}
		if m.playerCount() != 2 {
			failedRoll(gotext.GetD(c.language, "Both players must join before rolling."))
			return
		}
		w, bl, err := m.board.RollOpening()
		if err != nil {
			failedRoll(engineErrorReason(err))
			return
		}
		ev := &gammon.EventRolled{
			Die1:    w,
			Die2:    bl,
			Opening: true,
		}
		ev.Player = string(c.name)
		m.eachClient(func(sc *serverClient) {
			sc.sendEvent(ev)
		})
		m.sendBoardAll()
	case gammon.PhaseAwaitingRoll:
		if c.side != m.board.SideToMove() {
			failedRoll(gotext.GetD(c.language, "It is not your turn to roll."))
			return
		}
		d1, d2, err := m.board.RollDice()
		if err != nil {
			failedRoll(engineErrorReason(err))
			return
		}
		ev := &gammon.EventRolled{
			Die1: d1,
			Die2: d2,
		}
		ev.Player = string(c.name)
		m.eachClient(func(sc *serverClient) {
			sc.sendEvent(ev)
		})
		m.sendBoardAll()
	default:
		failedRoll(gotext.GetD(c.language, "You cannot roll dice right now."))
	}
}

func (s *server) handleMove(c *serverClient, params [][]byte) {
	failedMove := func(from int8, pip int8, reason string) {
		c.sendEvent(&gammon.EventFailedMove{
			From:   from,
			Pip:    pip,
			Reason: reason,
		})
	}

	m := s.matchByClient(c)
	if m == nil {
		failedMove(0, 0, gotext.GetD(c.language, "You are not in a match."))
		return
	}

	// Accept either "move 24 6" or "move 24/6".
	if len(params) == 1 {
		if i := bytes.IndexByte(params[0], '/'); i != -1 {
			params = [][]byte{params[0][:i], params[0][i+1:]}
		}
	}
	if len(params) != 2 {
		failedMove(0, 0, gotext.GetD(c.language, "Please specify a source point and die value."))
		return
	}
	from, err1 := strconv.ParseInt(string(params[0]), 10, 8)
	pip, err2 := strconv.ParseInt(string(params[1]), 10, 8)
	if err1 != nil || err2 != nil {
		failedMove(0, 0, gotext.GetD(c.language, "Please specify a source point and die value."))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c.side != m.board.SideToMove() {
		failedMove(int8(from), int8(pip), gotext.GetD(c.language, "It is not your turn to move."))
		return
	}
	err := m.board.ApplyStep(int8(from), int8(pip))
	if err != nil {
		failedMove(int8(from), int8(pip), engineErrorReason(err))
		return
	}

	ev := &gammon.EventMoved{
		From: int8(from),
		Pip:  int8(pip),
	}
	ev.Player = string(c.name)
	m.eachClient(func(sc *serverClient) {
		sc.sendEvent(ev)
	})
	m.sendBoardAll()
}

func (s *server) handleUndo(c *serverClient) {
	failedUndo := func(reason string) {
		c.sendEvent(&gammon.EventFailedUndo{
			Reason: reason,
		})
	}

	m := s.matchByClient(c)
	if m == nil {
		failedUndo(gotext.GetD(c.language, "You are not in a match."))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c.side != m.board.SideToMove() {
		failedUndo(gotext.GetD(c.language, "It is not your turn."))
		return
	}
	if !m.board.UndoStep() {
		failedUndo(gotext.GetD(c.language, "Nothing to undo."))
		return
	}

	ev := &gammon.EventUndone{}
	ev.Player = string(c.name)
	m.eachClient(func(sc *serverClient) {
		sc.sendEvent(ev)
	})
	m.sendBoardAll()
}

func (s *server) handleCommit(c *serverClient) {
	failedCommit := func(reason string) {
		c.sendEvent(&gammon.EventFailedCommit{
			Reason: reason,
		})
	}

	m := s.matchByClient(c)
	if m == nil {
		failedCommit(gotext.GetD(c.language, "You are not in a match."))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c.side != m.board.SideToMove() {
		failedCommit(gotext.GetD(c.language, "It is not your turn."))
		return
	}
	err := m.board.CommitTurn()
	if err != nil {
		failedCommit(engineErrorReason(err))
		return
	}

	ev := &gammon.EventCommitted{
		NextToMove: m.board.SideToMove(),
	}
	ev.Player = string(c.name)
	m.eachClient(func(sc *serverClient) {
		sc.sendEvent(ev)
	})

	if !m.handleGameEnd() {
		m.sendBoardAll()
	}
}

func (s *server) handleDouble(c *serverClient) {
	failedCube := func(reason string) {
		c.sendEvent(&gammon.EventFailedCube{
			Reason: reason,
		})
	}

	m := s.matchByClient(c)
	if m == nil {
		failedCube(gotext.GetD(c.language, "You are not in a match."))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if c.side == gammon.None || c.side != m.board.SideToMove() {
		failedCube(gotext.GetD(c.language, "Only the player to roll may double."))
		return
	}
	err := m.board.OfferCube()
	if err != nil {
		failedCube(engineErrorReason(err))
		return
	}

	ev := &gammon.EventCubeOffered{
		Value: m.board.CubeValue() * 2,
	}
	ev.Player = string(c.name)
	m.eachClient(func(sc *serverClient) {
		sc.sendEvent(ev)
	})
}

func (s *server) handleCubeResponse(c *serverClient, take bool) {
	failedCube := func(reason string) {
		c.sendEvent(&gammon.EventFailedCube{
			Reason: reason,
		})
	}

	m := s.matchByClient(c)
	if m == nil {
		failedCube(gotext.GetD(c.language, "You are not in a match."))
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	// The actor remains the offerer while an offer is pending; only their
	// opponent may respond.
	if m.board.Phase() == gammon.PhaseCubeOffered && c.side != m.board.SideToMove().Opponent() {
		failedCube(gotext.GetD(c.language, "Only the opponent may respond to a double."))
		return
	}

	if take {
		err := m.board.TakeCube()
		if err != nil {
			failedCube(engineErrorReason(err))
			return
		}
		ev := &gammon.EventCubeTaken{
			Value:  m.board.CubeValue(),
			Holder: m.board.CubeHolder(),
		}
		ev.Player = string(c.name)
		m.eachClient(func(sc *serverClient) {
			sc.sendEvent(ev)
		})
		m.sendBoardAll()
		return
	}

	err := m.board.DropCube()
	if err != nil {
		failedCube(engineErrorReason(err))
		return
	}
	r := m.board.Result()
	ev := &gammon.EventCubeDropped{
		Winner:    r.Winner,
		FinalCube: r.FinalCube,
	}
	ev.Player = string(c.name)
	m.eachClient(func(sc *serverClient) {
		sc.sendEvent(ev)
	})
	m.handleGameEnd()
}

func (s *server) handleSay(c *serverClient, command []byte, params [][]byte) {
	if len(params) == 0 {
		return
	}

	m := s.matchByClient(c)
	if m == nil {
		c.sendNotice(gotext.GetD(c.language, "Message not sent. You are not currently in a match."))
		return
	}

	ev := &gammon.EventSay{
		Message: string(bytes.TrimSpace(command[bytes.Index(command, params[0]):])),
	}
	ev.Player = string(c.name)
	m.eachClient(func(sc *serverClient) {
		if sc != c {
			sc.sendEvent(ev)
		}
	})
}

func (s *server) handleSetDice(c *serverClient, params [][]byte) {
	if !allowDebugCommands {
		c.sendNotice(gotext.GetD(c.language, "You are not allowed to use that command."))
		return
	}

	failedRoll := func(reason string) {
		c.sendEvent(&gammon.EventFailedRoll{
			Reason: reason,
		})
	}

	m := s.matchByClient(c)
	if m == nil {
		failedRoll(gotext.GetD(c.language, "You are not in a match."))
		return
	}
	if len(params) != 2 {
		failedRoll("Specify two dice: setdice <die1> <die2>")
		return
	}
	d1, err1 := strconv.ParseInt(string(params[0]), 10, 8)
	d2, err2 := strconv.ParseInt(string(params[1]), 10, 8)
	if err1 != nil || err2 != nil {
		failedRoll("Specify two dice: setdice <die1> <die2>")
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	opening := m.board.Phase() == gammon.PhaseOpeningRoll
	if opening {
		_, err := m.board.SetOpeningDice(int8(d1), int8(d2))
		if err != nil {
			failedRoll(engineErrorReason(err))
			return
		}
	} else {
		err := m.board.SetDice(int8(d1), int8(d2))
		if err != nil {
			failedRoll(engineErrorReason(err))
			return
		}
	}

	ev := &gammon.EventRolled{
		Die1:    int8(d1),
		Die2:    int8(d2),
		Opening: opening,
	}
	ev.Player = string(c.name)
	m.eachClient(func(sc *serverClient) {
		sc.sendEvent(ev)
	})
	m.sendBoardAll()
}
