package server

//go:generate xgotext -no-locations -default gammon -in . -out locales

import (
	"bytes"
	"crypto/rand"
	"embed"
	"fmt"
	"log"
	"math/big"
	"net"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"codeberg.org/anbt/gammon"
	"codeberg.org/tslocum/gotext"
	"golang.org/x/crypto/sha3"
	"golang.org/x/text/language"
)

const clientTimeout = 40 * time.Second

// Empty matches are pruned after this many seconds without activity.
const idleMatchLimit = 600

var allowDebugCommands bool

var (
	onlyNumbers            = regexp.MustCompile(`^[0-9]+$`)
	guestName              = regexp.MustCompile(`^guest_[0-9]+$`)
	alphaNumericUnderscore = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
)

//go:embed locales
var assetFS embed.FS

var englishIdentifier = []byte("en")

func init() {
	gotext.SetDomain("gammon-en")
}

type serverCommand struct {
	client  *serverClient
	command []byte
}

type Options struct {
	TZ            string
	DataSource    string
	MailServer    string
	PasswordSalt  string
	ResetSalt     string
	IPAddressSalt string
	CertFile      string
	CertKey       string
	Verbose       bool
	AllowDebug    bool
}

type server struct {
	clients      []*serverClient
	matches      []*serverMatch
	listeners    []net.Listener
	newMatchIDs  chan int
	newClientIDs chan int
	commands     chan serverCommand
	welcome      []byte

	matchesLock sync.RWMutex
	clientsLock sync.Mutex

	matchesCache     []byte
	matchesCacheTime time.Time
	matchesCacheLock sync.Mutex

	leaderboardCache     []byte
	leaderboardCacheTime time.Time
	leaderboardCacheLock sync.Mutex

	sortedCommands []string

	mailServer   string
	passwordSalt string
	resetSalt    string
	ipSalt       string

	certFile string
	certKey  string

	tz            *time.Location
	languageTags  []language.Tag
	languageNames [][]byte

	verbose bool
}

func NewServer(op *Options) *server {
	const bufferSize = 10
	s := &server{
		newMatchIDs:  make(chan int),
		newClientIDs: make(chan int),
		commands:     make(chan serverCommand, bufferSize),
		welcome:      []byte("hello Welcome to the gammon server! Please log in by sending the 'login' command. You may specify a username, otherwise you will be assigned a random username. If you specify a username, you may also specify a password. Have fun!"),
		mailServer:   op.MailServer,
		passwordSalt: op.PasswordSalt,
		resetSalt:    op.ResetSalt,
		ipSalt:       op.IPAddressSalt,
		certFile:     op.CertFile,
		certKey:      op.CertKey,
		verbose:      op.Verbose,
	}
	s.loadLocales()

	for command := range gammon.HelpText {
		s.sortedCommands = append(s.sortedCommands, command)
	}
	sort.Slice(s.sortedCommands, func(i, j int) bool { return s.sortedCommands[i] < s.sortedCommands[j] })

	if op.TZ != "" {
		var err error
		s.tz, err = time.LoadLocation(op.TZ)
		if err != nil {
			log.Fatalf("failed to parse timezone %s: %s", op.TZ, err)
		}
	} else {
		s.tz = time.UTC
	}

	if op.DataSource != "" {
		err := connectDB(op.DataSource)
		if err != nil {
			log.Fatalf("failed to connect to database: %s", err)
		}

		err = testDBConnection()
		if err != nil {
			log.Fatalf("failed to test database connection: %s", err)
		}

		initDB()

		log.Println("Connected to database successfully")
	}

	allowDebugCommands = op.AllowDebug

	go s.handleNewMatchIDs()
	go s.handleNewClientIDs()
	go s.handleCommands()
	go s.handleMatches()
	return s
}

func (s *server) loadLocales() {
	entries, err := assetFS.ReadDir("locales")
	if err != nil {
		log.Fatalf("failed to list files in locales directory: %s", err)
	}

	var availableTags = []language.Tag{
		language.MustParse("en_US"),
	}
	var availableNames = [][]byte{
		[]byte("en"),
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		availableTags = append(availableTags, language.MustParse(entry.Name()))
		availableNames = append(availableNames, []byte(entry.Name()))

		b, err := assetFS.ReadFile(fmt.Sprintf("locales/%s/%s.po", entry.Name(), entry.Name()))
		if err != nil {
			log.Fatalf("failed to read locale %s: %s", entry.Name(), err)
		}

		po := gotext.NewPo()
		po.Parse(b)
		gotext.GetStorage().AddTranslator(fmt.Sprintf("gammon-%s", entry.Name()), po)
	}
	s.languageTags = availableTags
	s.languageNames = availableNames
}

func (s *server) matchLanguage(identifier []byte) []byte {
	if len(identifier) == 0 {
		return englishIdentifier
	}

	tag, err := language.Parse(string(identifier))
	if err != nil {
		return englishIdentifier
	}
	var preferred = []language.Tag{tag}

	useLanguage, index, _ := language.NewMatcher(s.languageTags).Match(preferred...)
	useLanguageCode := useLanguage.String()
	if index < 0 || useLanguageCode == "" || strings.HasPrefix(useLanguageCode, "en") {
		return englishIdentifier
	}
	return s.languageNames[index]
}

func (s *server) Listen(network string, address string) {
	if strings.ToLower(network) == "ws" {
		go s.listenWebSocket(address)
		return
	}

	log.Printf("Listening for %s connections on %s...", strings.ToUpper(network), address)
	listener, err := net.Listen(network, address)
	if err != nil {
		log.Fatalf("failed to listen on %s: %s", address, err)
	}
	go s.handleListener(listener)
	s.listeners = append(s.listeners, listener)
}

func (s *server) handleListener(listener net.Listener) {
	for {
		conn, err := listener.Accept()
		if err != nil {
			log.Fatalf("failed to accept connection: %s", err)
		}
		go s.handleConnection(conn)
	}
}

func (s *server) ListenLocal() chan net.Conn {
	conns := make(chan net.Conn)
	go s.handleLocal(conns)
	return conns
}

func (s *server) handleLocal(conns chan net.Conn) {
	for {
		local, remote := net.Pipe()

		conns <- local
		go s.handleConnection(remote)
	}
}

func (s *server) nameAllowed(username []byte) bool {
	return !guestName.Match(bytes.ToLower(username))
}

func (s *server) clientByUsername(username []byte) *serverClient {
	lower := bytes.ToLower(username)
	for _, c := range s.clients {
		if bytes.Equal(bytes.ToLower(c.name), lower) {
			return c
		}
	}
	return nil
}

func (s *server) addClient(c *serverClient) {
	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()

	s.clients = append(s.clients, c)
}

func (s *server) removeClient(c *serverClient) {
	m := s.matchByClient(c)
	if m != nil {
		m.mu.Lock()
		m.removeClient(c)
		m.mu.Unlock()
	}
	c.Terminate("")

	close(c.commands)

	s.clientsLock.Lock()
	defer s.clientsLock.Unlock()

	for i, sc := range s.clients {
		if sc == c {
			s.clients = append(s.clients[:i], s.clients[i+1:]...)
			return
		}
	}
}

// handleMatches prunes matches that have ended or sat empty too long.
func (s *server) handleMatches() {
	t := time.NewTicker(time.Minute)
	for range t.C {
		s.matchesLock.Lock()

		now := time.Now().Unix()
		i := 0
		for _, m := range s.matches {
			m.mu.Lock()
			keep := !m.terminated() || (now-m.active < idleMatchLimit && !m.board.GameOver())
			m.mu.Unlock()
			if keep {
				s.matches[i] = m
				i++
			}
		}
		for j := i; j < len(s.matches); j++ {
			s.matches[j] = nil // Allow memory to be deallocated.
		}
		s.matches = s.matches[:i]

		s.matchesLock.Unlock()
	}
}

func (s *server) handleClient(c *serverClient) {
	s.addClient(c)

	log.Printf("Client %s connected", c.label())

	go s.handlePingClient(c)
	go s.handleClientCommands(c)

	c.HandleReadWrite()

	s.removeClient(c)

	log.Printf("Client %s disconnected", c.label())
}

func (s *server) handleConnection(conn net.Conn) {
	const bufferSize = 8
	commands := make(chan []byte, bufferSize)
	events := make(chan []byte, bufferSize)

	now := time.Now().Unix()

	c := &serverClient{
		id:        <-s.newClientIDs,
		language:  "gammon-en",
		accountID: -1,
		connected: now,
		active:    now,
		commands:  commands,
		Client:    newSocketClient(conn, commands, events, s.hashIP(conn.RemoteAddr().String()), s.verbose),
	}
	s.sendWelcome(c)
	s.handleClient(c)
}

func (s *server) handlePingClient(c *serverClient) {
	t := time.NewTicker(30 * time.Second)
	for {
		<-t.C

		if c.Terminated() {
			t.Stop()
			return
		}

		if len(c.name) == 0 {
			c.Terminate("User did not send login command within 30 seconds.")
			t.Stop()
			return
		}

		c.lastPing = time.Now().Unix()
		c.sendEvent(&gammon.EventPing{
			Message: fmt.Sprintf("%d", c.lastPing),
		})
	}
}

func (s *server) handleClientCommands(c *serverClient) {
	var command []byte
	for command = range c.commands {
		s.commands <- serverCommand{
			client:  c,
			command: command,
		}
	}
}

func (s *server) handleNewMatchIDs() {
	matchID := 1
	for {
		s.newMatchIDs <- matchID
		matchID++
	}
}

func (s *server) handleNewClientIDs() {
	clientID := 1
	for {
		s.newClientIDs <- clientID
		clientID++
	}
}

// randomUsername returns a random guest username, and assumes clients are
// already locked.
func (s *server) randomUsername() []byte {
	for {
		name := []byte(fmt.Sprintf("Guest_%d", 100+RandInt(900)))

		if s.clientByUsername(name) == nil {
			return name
		}
	}
}

func (s *server) sendWelcome(c *serverClient) {
	if c.json {
		return
	}
	c.Write(s.welcome)
}

func (s *server) matchByClient(c *serverClient) *serverMatch {
	s.matchesLock.RLock()
	defer s.matchesLock.RUnlock()

	for _, m := range s.matches {
		m.mu.Lock()
		found := m.client1 == c || m.client2 == c
		for _, spec := range m.spectators {
			if spec == c {
				found = true
				break
			}
		}
		m.mu.Unlock()
		if found {
			return m
		}
	}
	return nil
}

func (s *server) hashIP(address string) string {
	leftBracket, rightBracket := strings.IndexByte(address, '['), strings.IndexByte(address, ']')
	if leftBracket != -1 && rightBracket != -1 && rightBracket > leftBracket {
		address = address[1:rightBracket]
	} else if strings.IndexByte(address, '.') != -1 {
		colon := strings.IndexByte(address, ':')
		if colon != -1 {
			address = address[:colon]
		}
	}

	buf := []byte(address + s.ipSalt)
	h := make([]byte, 64)
	sha3.ShakeSum256(h, buf)
	return fmt.Sprintf("%x", h)
}

func RandInt(max int) int {
	i, err := rand.Int(rand.Reader, big.NewInt(int64(max)))
	if err != nil {
		panic(err)
	}
	return int(i.Int64())
}

type ratingPlayer struct {
	r       float64
	rd      float64
	sigma   float64
	outcome float64
}

func (p ratingPlayer) R() float64 {
	return p.r
}

func (p ratingPlayer) RD() float64 {
	return p.rd
}

func (p ratingPlayer) Sigma() float64 {
	return p.sigma
}

func (p ratingPlayer) SJ() float64 {
	return p.outcome
}
