package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"codeberg.org/anbt/gammon"
	"codeberg.org/tslocum/gotext"
)

type serverClient struct {
	id          int
	json        bool
	name        []byte
	language    string
	account     *account
	accountID   int
	connected   int64
	active      int64
	lastPing    int64
	commands    chan []byte
	side        gammon.Side
	terminating bool
	gammon.Client
}

func (c *serverClient) sendEvent(e interface{}) {
	// JSON formatted messages.
	if c.json {
		switch ev := e.(type) {
		case *gammon.EventWelcome:
			ev.Type = gammon.EventTypeWelcome
		case *gammon.EventHelp:
			ev.Type = gammon.EventTypeHelp
		case *gammon.EventPing:
			ev.Type = gammon.EventTypePing
		case *gammon.EventNotice:
			ev.Type = gammon.EventTypeNotice
		case *gammon.EventSay:
			ev.Type = gammon.EventTypeSay
		case *gammon.EventList:
			ev.Type = gammon.EventTypeList
		case *gammon.EventJoined:
			ev.Type = gammon.EventTypeJoined
		case *gammon.EventFailedJoin:
			ev.Type = gammon.EventTypeFailedJoin
		case *gammon.EventLeft:
			ev.Type = gammon.EventTypeLeft
		case *gammon.EventBoard:
			ev.Type = gammon.EventTypeBoard
		case *gammon.EventRolled:
			ev.Type = gammon.EventTypeRolled
		case *gammon.EventFailedRoll:
			ev.Type = gammon.EventTypeFailedRoll
		case *gammon.EventMoved:
			ev.Type = gammon.EventTypeMoved
		case *gammon.EventFailedMove:
			ev.Type = gammon.EventTypeFailedMove
		case *gammon.EventUndone:
			ev.Type = gammon.EventTypeUndone
		case *gammon.EventFailedUndo:
			ev.Type = gammon.EventTypeFailedUndo
		case *gammon.EventCommitted:
			ev.Type = gammon.EventTypeCommitted
		case *gammon.EventFailedCommit:
			ev.Type = gammon.EventTypeFailedCommit
		case *gammon.EventCubeOffered:
			ev.Type = gammon.EventTypeCubeOffered
		case *gammon.EventCubeTaken:
			ev.Type = gammon.EventTypeCubeTaken
		case *gammon.EventCubeDropped:
			ev.Type = gammon.EventTypeCubeDropped
		case *gammon.EventFailedCube:
			ev.Type = gammon.EventTypeFailedCube
		case *gammon.EventWin:
			ev.Type = gammon.EventTypeWin
		default:
			log.Panicf("unknown event type %+v", ev)
		}

		buf, err := json.Marshal(e)
		if err != nil {
			panic(err)
		}
		c.Write(buf)
		return
	}

	// Human-readable messages.
	switch ev := e.(type) {
	case *gammon.EventWelcome:
		c.Write([]byte(fmt.Sprintf("welcome %s there are %d clients playing %d matches.", ev.PlayerName, ev.Clients, ev.Matches)))
	case *gammon.EventHelp:
		c.Write([]byte("helpstart Help text:"))
		c.Write([]byte(fmt.Sprintf("help %s", ev.Message)))
		c.Write([]byte("helpend End of help text."))
	case *gammon.EventPing:
		c.Write([]byte(fmt.Sprintf("ping %s", ev.Message)))
	case *gammon.EventNotice:
		c.Write([]byte(fmt.Sprintf("notice %s", ev.Message)))
	case *gammon.EventSay:
		c.Write([]byte(fmt.Sprintf("say %s %s", ev.Player, ev.Message)))
	case *gammon.EventList:
		c.Write([]byte("liststart Matches list:"))
		for _, m := range ev.Matches {
			password := 0
			if m.Password {
				password = 1
			}
			name := "(No name)"
			if m.Name != "" {
				name = m.Name
			}
			c.Write([]byte(fmt.Sprintf("match %d %d %d %s", m.ID, password, m.Players, name)))
		}
		c.Write([]byte("listend End of matches list."))
	case *gammon.EventJoined:
		c.Write([]byte(fmt.Sprintf("joined %d %s %s", ev.MatchID, ev.Side, ev.Player)))
	case *gammon.EventFailedJoin:
		c.Write([]byte(fmt.Sprintf("failedjoin %s", ev.Reason)))
	case *gammon.EventLeft:
		c.Write([]byte(fmt.Sprintf("left %s", ev.Player)))
	case *gammon.EventRolled:
		if ev.Opening {
			c.Write([]byte(fmt.Sprintf("rolled %s %d %d opening", ev.Player, ev.Die1, ev.Die2)))
		} else {
			c.Write([]byte(fmt.Sprintf("rolled %s %d %d", ev.Player, ev.Die1, ev.Die2)))
		}
	case *gammon.EventFailedRoll:
		c.Write([]byte(fmt.Sprintf("failedroll %s", ev.Reason)))
	case *gammon.EventMoved:
		c.Write([]byte(fmt.Sprintf("moved %s %d/%d", ev.Player, ev.From, ev.Pip)))
	case *gammon.EventFailedMove:
		c.Write([]byte(fmt.Sprintf("failedmove %d/%d %s", ev.From, ev.Pip, ev.Reason)))
	case *gammon.EventUndone:
		c.Write([]byte(fmt.Sprintf("undone %s", ev.Player)))
	case *gammon.EventFailedUndo:
		c.Write([]byte(fmt.Sprintf("failedundo %s", ev.Reason)))
	case *gammon.EventCommitted:
		c.Write([]byte(fmt.Sprintf("committed %s %s", ev.Player, ev.NextToMove)))
	case *gammon.EventFailedCommit:
		c.Write([]byte(fmt.Sprintf("failedcommit %s", ev.Reason)))
	case *gammon.EventCubeOffered:
		c.Write([]byte(fmt.Sprintf("cubeoffered %s %d", ev.Player, ev.Value)))
	case *gammon.EventCubeTaken:
		c.Write([]byte(fmt.Sprintf("cubetaken %s %d %s", ev.Player, ev.Value, ev.Holder)))
	case *gammon.EventCubeDropped:
		c.Write([]byte(fmt.Sprintf("cubedropped %s %d", ev.Winner, ev.FinalCube)))
	case *gammon.EventFailedCube:
		c.Write([]byte(fmt.Sprintf("failedcube %s", ev.Reason)))
	case *gammon.EventWin:
		c.Write([]byte(fmt.Sprintf("win %s wins %d points!", ev.Player, ev.Points)))
	case *gammon.EventBoard:
		// Plain clients receive the rendered board via notices instead.
	default:
		log.Printf("warning: skipped sending unknown event to non-json client: %+v", ev)
	}
}

func (c *serverClient) sendNotice(message string) {
	c.sendEvent(&gammon.EventNotice{
		Message: message,
	})
}

func (c *serverClient) sendBroadcast(message string) {
	c.sendEvent(&gammon.EventNotice{
		Message: gotext.GetD(c.language, "SERVER BROADCAST:") + " " + message,
	})
}

func (c *serverClient) label() string {
	if len(c.name) > 0 {
		return string(c.name)
	}
	return strconv.Itoa(c.id)
}

func (c *serverClient) Terminate(reason string) {
	if c.Terminated() || c.terminating {
		return
	}
	c.terminating = true

	var extra string
	if reason != "" {
		extra = ": " + reason
	}
	c.sendNotice("Connection terminated" + extra)

	go func() {
		time.Sleep(time.Second)
		c.Client.Terminate(reason)
	}()
}

func logClientRead(msg []byte) {
	msgLower := bytes.ToLower(msg)
	loginJSON := bytes.HasPrefix(msgLower, []byte("loginjson ")) || bytes.HasPrefix(msgLower, []byte("lj "))
	if bytes.HasPrefix(msgLower, []byte("login ")) || bytes.HasPrefix(msgLower, []byte("l ")) || loginJSON {
		split := bytes.Split(msg, []byte(" "))
		var clientName []byte
		var username []byte
		var password []byte
		l := len(split)
		if l > 1 {
			if loginJSON {
				clientName = split[1]
			} else {
				username = split[1]
			}
			if l > 2 {
				if loginJSON {
					username = split[2]
				} else {
					password = []byte("*******")
				}
				if l > 3 {
					if loginJSON {
						password = []byte("*******")
					}
				}
			}
		}
		if len(clientName) == 0 {
			clientName = []byte("unspecified")
		}
		log.Printf("<- %s %s %s %s", split[0], clientName, username, password)
	} else if !bytes.HasPrefix(msgLower, []byte("list")) && !bytes.HasPrefix(msgLower, []byte("ls")) && !bytes.HasPrefix(msgLower, []byte("pong")) {
		log.Printf("<- %s", msg)
	}
}
