package server

import (
	"bytes"
	"fmt"
	"strings"
	"sync"
	"testing"

	"codeberg.org/anbt/gammon"
)

// testConn records writes in place of a real transport. The real transports
// hand messages to a channel, so Write must tolerate concurrent callers.
type testConn struct {
	mu         sync.Mutex
	writes     [][]byte
	terminated bool
}

func (c *testConn) Address() string {
	return "test"
}

func (c *testConn) HandleReadWrite() {
}

func (c *testConn) Write(message []byte) {
	buf := make([]byte, len(message))
	copy(buf, message)
	c.mu.Lock()
	c.writes = append(c.writes, buf)
	c.mu.Unlock()
}

func (c *testConn) Terminate(reason string) {
	c.mu.Lock()
	c.terminated = true
	c.mu.Unlock()
}

func (c *testConn) Terminated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.terminated
}

func newTestClient(name string) (*serverClient, *testConn) {
	conn := &testConn{}
	return &serverClient{
		name:      []byte(name),
		language:  "gammon-en",
		accountID: -1,
		commands:  make(chan []byte, 8),
		Client:    conn,
	}, conn
}

func TestMatchSeating(t *testing.T) {
	m := newServerMatch(1, []byte("casual"), nil, gammon.Rules{})

	c1, _ := newTestClient("alice")
	m.addClient(c1)
	if c1.side == gammon.None {
		t.Error("first client was not seated")
	}
	if m.playerCount() != 1 {
		t.Errorf("playerCount = %d, want 1", m.playerCount())
	}
	if !m.started.IsZero() {
		t.Error("match started with one player")
	}

	c2, _ := newTestClient("bob")
	m.addClient(c2)
	if c2.side == gammon.None || c2.side == c1.side {
		t.Errorf("second client seated as %s, first as %s", c2.side, c1.side)
	}
	if m.playerCount() != 2 {
		t.Errorf("playerCount = %d, want 2", m.playerCount())
	}
	if m.started.IsZero() {
		t.Error("match did not start with both players seated")
	}

	c3, _ := newTestClient("carol")
	m.addClient(c3)
	if c3.side != gammon.None {
		t.Errorf("third client seated as %s, want spectator", c3.side)
	}
	if len(m.spectators) != 1 {
		t.Errorf("spectators = %d, want 1", len(m.spectators))
	}

	white, black := m.client1, m.client2
	if white.side != gammon.White || black.side != gammon.Black {
		t.Errorf("seats hold %s and %s", white.side, black.side)
	}

	m.removeClient(c1)
	m.removeClient(c2)
	if m.terminated() {
		t.Error("match terminated while a spectator remains")
	}
	m.removeClient(c3)
	if !m.terminated() {
		t.Error("match not terminated after all clients left")
	}
}

func TestMatchRejoinKeepsSeat(t *testing.T) {
	m := newServerMatch(1, []byte("casual"), nil, gammon.Rules{})

	c1, _ := newTestClient("alice")
	c2, _ := newTestClient("bob")
	m.addClient(c1)
	m.addClient(c2)

	side := c2.side
	m.removeClient(c2)
	if c2.side != gammon.None {
		t.Errorf("removed client still seated as %s", c2.side)
	}

	c3, _ := newTestClient("bob")
	m.addClient(c3)
	if c3.side != side {
		t.Errorf("rejoining client seated as %s, want %s", c3.side, side)
	}
}

func TestRemoveClientDuringBroadcast(t *testing.T) {
	s := &server{}
	m := newServerMatch(1, []byte("casual"), nil, gammon.Rules{})
	s.matches = append(s.matches, m)

	c1, _ := newTestClient("alice")
	c2, _ := newTestClient("bob")
	m.addClient(c1)
	m.addClient(c2)

	var spectators []*serverClient
	for i := 0; i < 8; i++ {
		c, _ := newTestClient(fmt.Sprintf("watcher_%d", i))
		s.clients = append(s.clients, c)
		m.addClient(c)
		spectators = append(spectators, c)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			m.mu.Lock()
			m.eachClient(func(sc *serverClient) {})
			m.mu.Unlock()
		}
	}()

	var wg sync.WaitGroup
	for _, c := range spectators {
		wg.Add(1)
		go func(c *serverClient) {
			defer wg.Done()
			s.removeClient(c)
		}(c)
	}
	wg.Wait()
	<-done

	if len(m.spectators) != 0 {
		t.Errorf("spectators = %d, want 0", len(m.spectators))
	}
	if len(s.clients) != 0 {
		t.Errorf("clients = %d, want 0", len(s.clients))
	}
}

func TestMatchListing(t *testing.T) {
	m := newServerMatch(7, []byte("private game"), []byte("hunter2"), gammon.Rules{})
	c1, _ := newTestClient("alice")
	m.addClient(c1)

	l := m.listing()
	if l.ID != 7 {
		t.Errorf("ID = %d, want 7", l.ID)
	}
	if !l.Password {
		t.Error("Password = false, want true")
	}
	if l.Players != 1 {
		t.Errorf("Players = %d, want 1", l.Players)
	}
	if l.Name != "private game" {
		t.Errorf("Name = %q, want %q", l.Name, "private game")
	}
}

func TestSendBoardPlainText(t *testing.T) {
	m := newServerMatch(1, []byte("casual"), nil, gammon.Rules{})
	c, conn := newTestClient("alice")
	m.addClient(c)

	var boardRows int
	for _, w := range conn.writes {
		if bytes.HasPrefix(w, []byte("notice ")) {
			boardRows++
		}
	}
	if boardRows != 14 {
		t.Errorf("plain client received %d board rows, want 14", boardRows)
	}
}

func TestSendBoardJSON(t *testing.T) {
	m := newServerMatch(1, []byte("casual"), nil, gammon.Rules{})
	c, conn := newTestClient("alice")
	c.json = true
	m.addClient(c)

	var found bool
	for _, w := range conn.writes {
		if bytes.HasPrefix(w, []byte(`{"Type":"board"`)) {
			found = true
		}
	}
	if !found {
		t.Error("JSON client did not receive a board event")
	}
}

func TestHashIP(t *testing.T) {
	s := &server{ipSalt: "pepper"}

	a := s.hashIP("127.0.0.1:51234")
	b := s.hashIP("127.0.0.1:51235")
	if a != b {
		t.Error("hash differs for the same IP with different ports")
	}

	c := s.hashIP("[::1]:51234")
	d := s.hashIP("[::1]:51235")
	if c != d {
		t.Error("hash differs for the same IPv6 address with different ports")
	}
	if a == c {
		t.Error("hash matches for different addresses")
	}

	s2 := &server{ipSalt: "salt"}
	if a == s2.hashIP("127.0.0.1:51234") {
		t.Error("hash matches across different salts")
	}
}

func TestMatchLanguage(t *testing.T) {
	s := &server{}
	s.loadLocales()

	cases := []struct {
		identifier string
		want       string
	}{
		{"", "en"},
		{"en", "en"},
		{"en-US", "en"},
		{"de", "de"},
		{"de-DE", "de"},
		{"fr", "en"},
		{"not a language", "en"},
	}
	for _, c := range cases {
		got := s.matchLanguage([]byte(c.identifier))
		if string(got) != c.want {
			t.Errorf("matchLanguage(%q) = %s, want %s", c.identifier, got, c.want)
		}
	}
}

func TestNameAllowed(t *testing.T) {
	s := &server{}
	for _, name := range []string{"alice", "Guest", "guest_", "guestly_1"} {
		if !s.nameAllowed([]byte(name)) {
			t.Errorf("nameAllowed(%q) = false, want true", name)
		}
	}
	for _, name := range []string{"guest_1", "Guest_123", "GUEST_9"} {
		if s.nameAllowed([]byte(name)) {
			t.Errorf("nameAllowed(%q) = true, want false", name)
		}
	}
}

func TestRandomUsername(t *testing.T) {
	s := &server{}
	name := s.randomUsername()
	if !guestName.Match(bytes.ToLower(name)) {
		t.Errorf("randomUsername() = %s, want guest name", name)
	}
}

func TestEngineErrorReason(t *testing.T) {
	reason := engineErrorReason(&gammon.Error{Reason: "it is not your turn"})
	if reason != "it is not your turn" {
		t.Errorf("reason = %q", reason)
	}

	reason = engineErrorReason(&gammon.Error{Protocol: true, Reason: "no game in progress"})
	if reason != "no game in progress" {
		t.Errorf("reason = %q", reason)
	}
}

func TestFirst70(t *testing.T) {
	if got := first70("short"); got != "short" {
		t.Errorf("first70 = %q", got)
	}
	long := strings.Repeat("a", 100)
	if got := first70(long); len(got) != 69 {
		t.Errorf("len(first70) = %d, want 69", len(got))
	}
}

func TestRandomAlphanumeric(t *testing.T) {
	pw := randomAlphanumeric(7)
	if len(pw) != 7 {
		t.Errorf("len = %d, want 7", len(pw))
	}
	for _, r := range pw {
		if !strings.ContainsRune(string(letters), r) {
			t.Errorf("unexpected rune %q", r)
		}
	}
}
