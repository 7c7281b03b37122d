package server

import (
	"bytes"
	"context"
	"crypto/sha256"
	"fmt"
	"io"
	"log"
	"math/rand"
	"mime/multipart"
	"net/smtp"
	"net/textproto"
	"strconv"
	"strings"
	"sync"
	"time"

	"codeberg.org/anbt/gammon"
	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5"
	"github.com/jlouis/glicko2"
	"github.com/matcornic/hermes/v2"
)

// All database access is optional: when no data source is configured every
// function is a no-op, and the server runs with guest players only.

const databaseSchema = `
CREATE TABLE account (
	id       serial PRIMARY KEY,
	created  bigint NOT NULL,
	active   bigint NOT NULL,
	reset    bigint NOT NULL DEFAULT 0,
	email    text NOT NULL,
	username text NOT NULL,
	password text NOT NULL,
	rating   integer NOT NULL DEFAULT 150000
);
CREATE TABLE match (
	id       serial PRIMARY KEY,
	started  bigint NOT NULL,
	ended    bigint NOT NULL,
	player1  text NOT NULL,
	account1 integer NOT NULL,
	player2  text NOT NULL,
	account2 integer NOT NULL,
	points   integer NOT NULL,
	winner   integer NOT NULL,
	resigned integer NOT NULL
);
`

var (
	db     *pgx.Conn
	dbLock = &sync.Mutex{}
)

var passwordArgon2id = &argon2id.Params{
	Memory:      128 * 1024,
	Iterations:  16,
	Parallelism: 4,
	SaltLength:  16,
	KeyLength:   64,
}

type leaderboardEntry struct {
	User   string
	Rating int
}

type leaderboardResult struct {
	Leaderboard []*leaderboardEntry
}

func connectDB(dataSource string) error {
	var err error
	db, err = pgx.Connect(context.Background(), dataSource)
	return err
}

func begin() (pgx.Tx, error) {
	tx, err := db.Begin(context.Background())
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(context.Background(), "SET SCHEMA 'gammon'")
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func testDBConnection() error {
	_, err := db.Exec(context.Background(), "SELECT 1=1")
	return err
}

func initDB() {
	tx, err := begin()
	if err != nil {
		log.Fatalf("failed to initialize database: %s", err)
	}
	defer tx.Commit(context.Background())

	var result int
	err = tx.QueryRow(context.Background(), "SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'gammon' AND table_name = 'match'").Scan(&result)
	if err != nil {
		log.Fatal(err)
	} else if result > 0 {
		return // Database has been initialized.
	}

	_, err = tx.Exec(context.Background(), databaseSchema)
	if err != nil {
		log.Fatalf("failed to initialize database: %s", err)
	}
	log.Println("Initialized database schema")
}

func registerAccount(passwordSalt string, a *account) error {
	dbLock.Lock()
	defer dbLock.Unlock()

	if db == nil {
		return nil
	} else if len(bytes.TrimSpace(a.username)) == 0 {
		return fmt.Errorf("please enter a username")
	} else if len(bytes.TrimSpace(a.email)) == 0 {
		return fmt.Errorf("please enter an email address")
	} else if len(bytes.TrimSpace(a.password)) == 0 {
		return fmt.Errorf("please enter a password")
	} else if !bytes.ContainsRune(a.email, '@') || !bytes.ContainsRune(a.email, '.') {
		return fmt.Errorf("please enter a valid email address")
	} else if !alphaNumericUnderscore.Match(a.username) {
		return fmt.Errorf("please enter a username containing only letters, numbers and underscores")
	} else if bytes.HasPrefix(bytes.ToLower(a.username), []byte("guest_")) {
		return fmt.Errorf("please enter a valid username")
	}

	tx, err := begin()
	if err != nil {
		return err
	}
	defer tx.Commit(context.Background())

	var result int
	err = tx.QueryRow(context.Background(), "SELECT COUNT(*) FROM account WHERE email = $1", bytes.ToLower(bytes.TrimSpace(a.email))).Scan(&result)
	if err != nil {
		log.Fatal(err)
	} else if result > 0 {
		return fmt.Errorf("email address already in use")
	}

	err = tx.QueryRow(context.Background(), "SELECT COUNT(*) FROM account WHERE username = $1", bytes.ToLower(bytes.TrimSpace(a.username))).Scan(&result)
	if err != nil {
		log.Fatal(err)
	} else if result > 0 {
		return fmt.Errorf("username already in use")
	}

	passwordHash, err := argon2id.CreateHash(string(a.password)+passwordSalt, passwordArgon2id)
	if err != nil {
		return err
	}

	timestamp := time.Now().Unix()
	_, err = tx.Exec(context.Background(), "INSERT INTO account (created, active, email, username, password) VALUES ($1, $2, $3, $4, $5)", timestamp, timestamp, bytes.ToLower(bytes.TrimSpace(a.email)), bytes.ToLower(bytes.TrimSpace(a.username)), passwordHash)
	return err
}

func usernameRegistered(username []byte) bool {
	dbLock.Lock()
	defer dbLock.Unlock()

	if db == nil {
		return false
	}

	tx, err := begin()
	if err != nil {
		return false
	}
	defer tx.Commit(context.Background())

	var result int
	err = tx.QueryRow(context.Background(), "SELECT COUNT(*) FROM account WHERE username = $1", bytes.ToLower(bytes.TrimSpace(username))).Scan(&result)
	return err == nil && result > 0
}

func loginAccount(passwordSalt string, username []byte, password []byte) (*account, error) {
	dbLock.Lock()
	defer dbLock.Unlock()

	if db == nil {
		return nil, nil
	} else if len(bytes.TrimSpace(username)) == 0 {
		return nil, fmt.Errorf("please enter a username")
	} else if len(bytes.TrimSpace(password)) == 0 {
		return nil, fmt.Errorf("please enter a password")
	}

	tx, err := begin()
	if err != nil {
		return nil, err
	}
	defer tx.Commit(context.Background())

	a := &account{}
	err = tx.QueryRow(context.Background(), "SELECT id, email, username, password, rating FROM account WHERE username = $1 OR email = $2", bytes.ToLower(bytes.TrimSpace(username)), bytes.ToLower(bytes.TrimSpace(username))).Scan(&a.id, &a.email, &a.username, &a.password, &a.rating)
	if err != nil {
		return nil, nil
	} else if len(a.password) == 0 {
		return nil, fmt.Errorf("account disabled")
	}

	match, err := argon2id.ComparePasswordAndHash(string(password)+passwordSalt, string(a.password))
	if err != nil {
		return nil, err
	} else if !match {
		return nil, nil
	}

	timestamp := time.Now().Unix()
	_, _ = tx.Exec(context.Background(), "UPDATE account SET active = $1 WHERE id = $2", timestamp, a.id)
	return a, nil
}

func resetAccount(mailServer string, resetSalt string, email []byte) error {
	dbLock.Lock()
	defer dbLock.Unlock()

	if db == nil {
		return nil
	} else if len(bytes.TrimSpace(email)) == 0 {
		return fmt.Errorf("please enter an email address")
	}

	tx, err := begin()
	if err != nil {
		return err
	}
	defer tx.Commit(context.Background())

	var result int
	err = tx.QueryRow(context.Background(), "SELECT COUNT(*) FROM account WHERE email = $1", bytes.ToLower(bytes.TrimSpace(email))).Scan(&result)
	if err != nil {
		return err
	} else if result == 0 {
		return nil
	}

	var (
		id           int
		reset        int64
		accountEmail []byte
		passwordHash []byte
	)
	err = tx.QueryRow(context.Background(), "SELECT id, reset, email, password FROM account WHERE email = $1", bytes.ToLower(bytes.TrimSpace(email))).Scan(&id, &reset, &accountEmail, &passwordHash)
	if err != nil {
		return err
	} else if id == 0 || len(passwordHash) == 0 {
		return nil
	}

	const resetTimeout = 86400 // 24 hours.
	if time.Now().Unix()-reset >= resetTimeout {
		timestamp := time.Now().Unix()

		h := sha256.New()
		h.Write([]byte(fmt.Sprintf("%d/%d", id, timestamp) + resetSalt))
		hash := fmt.Sprintf("%x", h.Sum(nil))[0:16]

		emailConfig := hermes.Hermes{
			Product: hermes.Product{
				Name:      "gammon",
				Link:      " ",
				Copyright: " ",
			},
		}

		resetEmail := hermes.Email{
			Body: hermes.Body{
				Greeting: "Hello",
				Intros: []string{
					"You are receiving this email because you (or someone else) requested to reset your password.",
				},
				Actions: []hermes.Action{
					{
						Instructions: "Click to reset your password:",
						Button: hermes.Button{
							Color: "#DC4D2F",
							Text:  "Reset your password",
							Link:  "https://gammon.example.com/reset/" + strconv.Itoa(id) + "/" + hash,
						},
					},
				},
				Outros: []string{
					"If you did not request to reset your password, no further action is required on your part.",
				},
				Signature: "Ciao",
			},
		}
		emailPlain, err := emailConfig.GeneratePlainText(resetEmail)
		if err != nil {
			return nil
		}

		emailHTML, err := emailConfig.GenerateHTML(resetEmail)
		if err != nil {
			return nil
		}

		if sendEmail(mailServer, string(accountEmail), "Reset your password", emailPlain, emailHTML) {
			_, err = tx.Exec(context.Background(), "UPDATE account SET reset = $1 WHERE id = $2", timestamp, id)
		}
		return err
	}
	return nil
}

func confirmResetAccount(resetSalt string, passwordSalt string, id int, key string) (string, string, error) {
	dbLock.Lock()
	defer dbLock.Unlock()

	if db == nil {
		return "", "", nil
	} else if id == 0 {
		return "", "", fmt.Errorf("no id provided")
	} else if len(strings.TrimSpace(key)) == 0 {
		return "", "", fmt.Errorf("no reset key provided")
	}

	tx, err := begin()
	if err != nil {
		return "", "", err
	}
	defer tx.Commit(context.Background())

	var reset int64
	var username string
	err = tx.QueryRow(context.Background(), "SELECT reset, username FROM account WHERE id = $1 AND reset != 0", id).Scan(&reset, &username)
	if err != nil {
		return "", "", nil
	}

	h := sha256.New()
	h.Write([]byte(fmt.Sprintf("%d/%d", id, reset) + resetSalt))
	hash := fmt.Sprintf("%x", h.Sum(nil))[0:16]
	if key != hash {
		return "", "", nil
	}

	newPassword := randomAlphanumeric(7)

	passwordHash, err := argon2id.CreateHash(newPassword+passwordSalt, passwordArgon2id)
	if err != nil {
		return "", "", err
	}

	_, err = tx.Exec(context.Background(), "UPDATE account SET password = $1, reset = reset - 1 WHERE id = $2", passwordHash, id)
	return username, newPassword, err
}

// recordMatchResult stores a finished game and updates both players'
// Glicko-2 ratings. Ratings are stored multiplied by 100.
func recordMatchResult(m *serverMatch) error {
	dbLock.Lock()
	defer dbLock.Unlock()

	if db == nil || m.started.IsZero() || m.winner == gammon.None {
		return nil
	}

	ended := m.ended
	if ended.IsZero() {
		ended = time.Now()
	}

	tx, err := begin()
	if err != nil {
		return err
	}
	defer tx.Commit(context.Background())

	winner := 1
	if m.winner == gammon.Black {
		winner = 2
	}
	resigned := 0
	if m.board.GameOver() && m.board.Result().Resigned {
		resigned = 1
	}
	_, err = tx.Exec(context.Background(), "INSERT INTO match (started, ended, player1, account1, player2, account2, points, winner, resigned) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)", m.started.Unix(), ended.Unix(), m.player1, m.account1, m.player2, m.account2, m.points, winner, resigned)
	if err != nil {
		return err
	}

	if m.account1 <= 0 || m.account2 <= 0 || m.account1 == m.account2 {
		return nil
	}

	var rating1i int
	err = tx.QueryRow(context.Background(), "SELECT rating FROM account WHERE id = $1", m.account1).Scan(&rating1i)
	if err != nil {
		return err
	}
	rating1 := float64(rating1i) / 100

	var rating2i int
	err = tx.QueryRow(context.Background(), "SELECT rating FROM account WHERE id = $1", m.account2).Scan(&rating2i)
	if err != nil {
		return err
	}
	rating2 := float64(rating2i) / 100

	outcome1, outcome2 := 1.0, 0.0
	if winner == 2 {
		outcome1, outcome2 = 0.0, 1.0
	}
	rating1New, _, _ := glicko2.Rank(rating1, 50, 0.06, []glicko2.Opponent{ratingPlayer{rating2, 30, 0.06, outcome1}}, 0.6)
	rating2New, _, _ := glicko2.Rank(rating2, 50, 0.06, []glicko2.Opponent{ratingPlayer{rating1, 30, 0.06, outcome2}}, 0.6)

	_, err = tx.Exec(context.Background(), "UPDATE account SET rating = $1 WHERE id = $2", int(rating1New*100), m.account1)
	if err != nil {
		return err
	}

	_, err = tx.Exec(context.Background(), "UPDATE account SET rating = $1 WHERE id = $2", int(rating2New*100), m.account2)
	return err
}

type matchRecord struct {
	ID       int
	Started  int64
	Ended    int64
	Player1  string
	Player2  string
	Points   int
	Winner   int
	Resigned bool
}

func matchInfo(id int) (*matchRecord, error) {
	dbLock.Lock()
	defer dbLock.Unlock()

	if db == nil {
		return nil, nil
	}

	tx, err := begin()
	if err != nil {
		return nil, err
	}
	defer tx.Commit(context.Background())

	r := &matchRecord{}
	var resigned int
	err = tx.QueryRow(context.Background(), "SELECT id, started, ended, player1, player2, points, winner, resigned FROM match WHERE id = $1", id).Scan(&r.ID, &r.Started, &r.Ended, &r.Player1, &r.Player2, &r.Points, &r.Winner, &resigned)
	if err != nil {
		return nil, nil
	}
	r.Resigned = resigned == 1
	return r, nil
}

func getLeaderboard() (*leaderboardResult, error) {
	dbLock.Lock()
	defer dbLock.Unlock()

	result := &leaderboardResult{}
	if db == nil {
		return result, nil
	}

	tx, err := begin()
	if err != nil {
		return nil, err
	}
	defer tx.Commit(context.Background())

	rows, err := tx.Query(context.Background(), "SELECT username, rating FROM account ORDER BY rating DESC LIMIT 100")
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		entry := &leaderboardEntry{}
		err = rows.Scan(&entry.User, &entry.Rating)
		if err != nil {
			continue
		}
		entry.Rating /= 100
		result.Leaderboard = append(result.Leaderboard, entry)
	}
	return result, nil
}

func sendEmail(mailServer string, emailAddress string, emailSubject string, emailPlain string, emailHTML string) bool {
	mixedContent := &bytes.Buffer{}
	mixedWriter := multipart.NewWriter(mixedContent)
	var newBoundary = "RELATED-" + mixedWriter.Boundary()
	mixedWriter.SetBoundary(first70("MIXED-" + mixedWriter.Boundary()))
	relatedWriter, newBoundary := nestedMultipart(mixedWriter, "multipart/related", newBoundary)
	altWriter, newBoundary := nestedMultipart(relatedWriter, "multipart/alternative", "ALTERNATIVE-"+newBoundary)

	var childContent io.Writer
	childContent, _ = altWriter.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/plain"}})
	childContent.Write([]byte(emailPlain))
	childContent, _ = altWriter.CreatePart(textproto.MIMEHeader{"Content-Type": {"text/html"}})
	childContent.Write([]byte(emailHTML))

	altWriter.Close()
	relatedWriter.Close()
	mixedWriter.Close()

	if mailServer == "" {
		fmt.Print(`From: gammon <noreply@localhost>
	To: <` + emailAddress + `>
	Subject: ` + emailSubject + `
	MIME-Version: 1.0
	Content-Type: multipart/mixed; boundary=`)
		fmt.Print(mixedWriter.Boundary(), "\n\n")
		fmt.Println(mixedContent.String())
		return true
	}

	c, err := smtp.Dial(mailServer)
	if err != nil {
		return false
	}
	defer c.Close()

	c.Mail("noreply@localhost")
	c.Rcpt(emailAddress)

	wc, err := c.Data()
	if err != nil {
		return false
	}
	defer wc.Close()

	fmt.Fprint(wc, `From: gammon <noreply@localhost>
To: `+emailAddress+`
Subject: `+emailSubject+`
MIME-Version: 1.0
Content-Type: multipart/mixed; boundary=`)
	fmt.Fprint(wc, mixedWriter.Boundary(), "\n\n")
	fmt.Fprintln(wc, mixedContent.String())
	return true
}

func nestedMultipart(enclosingWriter *multipart.Writer, contentType, boundary string) (nestedWriter *multipart.Writer, newBoundary string) {
	var contentBuffer io.Writer
	var err error

	boundary = first70(boundary)
	contentWithBoundary := contentType + "; boundary=\"" + boundary + "\""
	contentBuffer, err = enclosingWriter.CreatePart(textproto.MIMEHeader{"Content-Type": {contentWithBoundary}})
	if err != nil {
		log.Fatal(err)
	}

	nestedWriter = multipart.NewWriter(contentBuffer)
	newBoundary = nestedWriter.Boundary()
	nestedWriter.SetBoundary(boundary)
	return
}

func first70(str string) string {
	if len(str) > 70 {
		return string(str[0:69])
	}
	return str
}

var letters = []rune("abcdefghkmnpqrstwxyzABCDEFGHJKMNPQRSTWXYZ23456789")

func randomAlphanumeric(n int) string {
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}
