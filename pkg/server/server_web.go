package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"codeberg.org/anbt/gammon"
	"github.com/gorilla/mux"
)

func (s *server) listenWebSocket(address string) {
	log.Printf("Listening for WebSocket connections on %s...", address)

	m := mux.NewRouter()
	m.HandleFunc("/reset/{id:[0-9]+}/{key:[A-Za-z0-9]+}", s.handleResetPassword)
	m.HandleFunc("/match/{id:[0-9]+}", s.handleMatchInfo)
	m.HandleFunc("/matches", s.handleListMatches)
	m.HandleFunc("/leaderboard", s.handleLeaderboard)
	m.HandleFunc("/", s.handleWebSocket)

	var err error
	if s.certFile != "" && s.certKey != "" {
		err = http.ListenAndServeTLS(address, s.certFile, s.certKey, m)
	} else {
		err = http.ListenAndServe(address, m)
	}
	log.Fatalf("failed to listen on %s: %s", address, err)
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	const bufferSize = 8
	commands := make(chan []byte, bufferSize)
	events := make(chan []byte, bufferSize)

	wsClient := newWebSocketClient(r, w, commands, events, s.hashIP(r.RemoteAddr), s.verbose)
	if wsClient == nil {
		return
	}

	now := time.Now().Unix()

	c := &serverClient{
		id:        <-s.newClientIDs,
		language:  "gammon-en",
		accountID: -1,
		connected: now,
		active:    now,
		commands:  commands,
		Client:    wsClient,
	}
	s.sendWelcome(c)
	s.handleClient(c)
}

func (s *server) cachedMatches() []byte {
	s.matchesCacheLock.Lock()
	defer s.matchesCacheLock.Unlock()

	if time.Since(s.matchesCacheTime) < 5*time.Second {
		return s.matchesCache
	}

	var matches []*gammon.MatchListing
	s.matchesLock.RLock()
	for _, m := range s.matches {
		m.mu.Lock()
		if !m.terminated() {
			matches = append(matches, m.listing())
		}
		m.mu.Unlock()
	}
	s.matchesLock.RUnlock()

	s.matchesCacheTime = time.Now()
	if len(matches) == 0 {
		s.matchesCache = []byte("[]")
		return s.matchesCache
	}

	buf, err := json.Marshal(matches)
	if err != nil {
		log.Fatalf("failed to marshal %+v: %s", matches, err)
	}
	s.matchesCache = buf
	return s.matchesCache
}

func (s *server) handleMatchInfo(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	if err != nil || id <= 0 {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	record, err := matchInfo(id)
	if err != nil {
		log.Printf("failed to fetch match %d: %s", id, err)
	}
	if record == nil {
		http.Error(w, "Not found", http.StatusNotFound)
		return
	}

	info := struct {
		*matchRecord
		Date string
	}{
		matchRecord: record,
		Date:        time.Unix(record.Started, 0).In(s.tz).Format("2006-01-02 15:04"),
	}

	buf, err := json.Marshal(info)
	if err != nil {
		log.Fatalf("failed to marshal %+v: %s", info, err)
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(buf)
}

func (s *server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.cachedMatches())
}

func (s *server) cachedLeaderboard() []byte {
	s.leaderboardCacheLock.Lock()
	defer s.leaderboardCacheLock.Unlock()

	if time.Since(s.leaderboardCacheTime) < 5*time.Minute {
		return s.leaderboardCache
	}

	result, err := getLeaderboard()
	if err != nil {
		log.Printf("failed to fetch leaderboard: %s", err)
		return s.leaderboardCache
	}

	s.leaderboardCacheTime = time.Now()
	buf, err := json.Marshal(result)
	if err != nil {
		log.Fatalf("failed to marshal %+v: %s", result, err)
	}
	s.leaderboardCache = buf
	return s.leaderboardCache
}

func (s *server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write(s.cachedLeaderboard())
}

func (s *server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	id, err := strconv.Atoi(vars["id"])
	key := vars["key"]
	if err != nil || id <= 0 || key == "" {
		return
	}

	username, newPassword, err := confirmResetAccount(s.resetSalt, s.passwordSalt, id, key)
	if err != nil {
		log.Printf("failed to reset password: %s", err)
	}

	w.Header().Set("Content-Type", "text/html")
	if username != "" && newPassword != "" {
		w.Write([]byte(fmt.Sprintf("<!DOCTYPE html><html><body><h1>gammon</h1>Your password was reset successfully.<br><br>Username: %s<br>Password: %s</body></html>", username, newPassword)))
		return
	}
	w.Write([]byte("<!DOCTYPE html><html><body><h1>gammon</h1>Invalid or expired password reset link.</body></html>"))
}
