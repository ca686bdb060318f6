package main

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
)

func fakeClient(playerID string) *client {
	return &client{
		send:     make(chan any, 64),
		playerID: playerID,
	}
}

func drainClient(c *client) []any {
	var msgs []any
	for {
		select {
		case m := <-c.send:
			msgs = append(msgs, m)
		default:
			return msgs
		}
	}
}

// createTestRoom creates a room through the manager and returns its code.
func createTestRoom(t *testing.T, rm *roomManager, c *client) string {
	t.Helper()

	rm.createRoom(c)

	for _, m := range drainClient(c) {
		if status, ok := m.(RoomStatusMessage); ok && status.Type == "game_created" {
			return status.GameID
		}
	}
	t.Fatal("no game_created message received")
	return ""
}

func TestCreateRoom(t *testing.T) {
	rm := newRoomManager(&Config{})
	c := fakeClient("creator")

	rm.createRoom(c)

	msgs := drainClient(c)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}

	status, ok := msgs[0].(RoomStatusMessage)
	if !ok || status.Type != "game_created" {
		t.Fatalf("got %#v, want game_created", msgs[0])
	}
	if status.PlayerID != 1 {
		t.Errorf("creator seat = %d, want 1", status.PlayerID)
	}
	if status.PlayerCount != 1 {
		t.Errorf("player count = %d, want 1", status.PlayerCount)
	}

	code, err := strconv.Atoi(status.GameID)
	if err != nil || code < 1000 || code > 9999 {
		t.Errorf("game code = %q, want a four-digit number", status.GameID)
	}

	if _, err := rm.lookup(status.GameID); err != nil {
		t.Errorf("lookup of fresh room: %v", err)
	}
}

func TestJoinUnknownRoom(t *testing.T) {
	rm := newRoomManager(&Config{})

	if err := rm.joinRoom(fakeClient("p"), "0000"); !errors.Is(err, errRoomNotFound) {
		t.Errorf("error = %v, want %v", err, errRoomNotFound)
	}
}

func TestJoinAssignsSequentialSeats(t *testing.T) {
	rm := newRoomManager(&Config{})
	creator := fakeClient("p1")
	code := createTestRoom(t, rm, creator)

	for i := 2; i <= 4; i++ {
		c := fakeClient("p" + strconv.Itoa(i))
		if err := rm.joinRoom(c, code); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}

		var seated int
		for _, m := range drainClient(c) {
			if status, ok := m.(RoomStatusMessage); ok && status.Type == "joined_game" {
				seated = status.PlayerID
			}
		}
		if seated != i {
			t.Errorf("join %d got seat %d", i, seated)
		}
	}

	// Earlier players hear about every later arrival.
	joined := 0
	for _, m := range drainClient(creator) {
		if _, ok := m.(PlayerJoinedMessage); ok {
			joined++
		}
	}
	if joined != 3 {
		t.Errorf("creator saw %d player_joined broadcasts, want 3", joined)
	}
}

func TestJoinTwiceRejected(t *testing.T) {
	rm := newRoomManager(&Config{})
	creator := fakeClient("p1")
	code := createTestRoom(t, rm, creator)

	if err := rm.joinRoom(creator, code); !errors.Is(err, errAlreadyJoined) {
		t.Errorf("error = %v, want %v", err, errAlreadyJoined)
	}
}

func TestJoinFullRoom(t *testing.T) {
	rm := newRoomManager(&Config{})
	code := createTestRoom(t, rm, fakeClient("p1"))

	for i := 2; i <= maxPlayers; i++ {
		if err := rm.joinRoom(fakeClient("p"+strconv.Itoa(i)), code); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
	}

	if err := rm.joinRoom(fakeClient("p11"), code); !errors.Is(err, errRoomFull) {
		t.Errorf("error = %v, want %v", err, errRoomFull)
	}
}

func TestAutoStart(t *testing.T) {
	rm := newRoomManager(&Config{autoStartThreshold: 5})

	clients := make([]*client, 5)
	clients[0] = fakeClient("p1")
	code := createTestRoom(t, rm, clients[0])

	for i := 1; i < 5; i++ {
		clients[i] = fakeClient("p" + strconv.Itoa(i+1))
		if err := rm.joinRoom(clients[i], code); err != nil {
			t.Fatalf("join %d: %v", i+1, err)
		}
	}

	r, err := rm.lookup(code)
	if err != nil {
		t.Fatal(err)
	}
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		t.Fatal("room did not start at the threshold")
	}

	// Every client gets exactly one role_info, addressed to its own seat.
	for i, c := range clients {
		roles, starts := 0, 0
		for _, m := range drainClient(c) {
			switch msg := m.(type) {
			case RoleInfoMessage:
				roles++
				if msg.PlayerNumber != i+1 {
					t.Errorf("client %d got role_info for seat %d", i+1, msg.PlayerNumber)
				}
				if msg.Role == "" || roleCamps[msg.Role] == "" {
					t.Errorf("client %d got role %q", i+1, msg.Role)
				}
			case GameStartedMessage:
				starts++
			}
		}
		if roles != 1 {
			t.Errorf("client %d got %d role_info messages, want 1", i+1, roles)
		}
		if starts != 1 {
			t.Errorf("client %d got %d game_started messages, want 1", i+1, starts)
		}
	}
}

func TestManualStart(t *testing.T) {
	rm := newRoomManager(&Config{})
	creator := fakeClient("p1")
	code := createTestRoom(t, rm, creator)

	if err := rm.startGameManually(fakeClient("stranger"), code); !errors.Is(err, errNotInRoom) {
		t.Errorf("stranger start error = %v, want %v", err, errNotInRoom)
	}

	if err := rm.startGameManually(creator, code); !errors.Is(err, errTooFewPlayers) {
		t.Errorf("undersized start error = %v, want %v", err, errTooFewPlayers)
	}

	for i := 2; i <= 6; i++ {
		if err := rm.joinRoom(fakeClient("p"+strconv.Itoa(i)), code); err != nil {
			t.Fatal(err)
		}
	}

	if err := rm.startGameManually(creator, code); err != nil {
		t.Fatalf("manual start with 6 players: %v", err)
	}

	if err := rm.startGameManually(creator, code); !errors.Is(err, errGameAlreadyStarted) {
		t.Errorf("second start error = %v, want %v", err, errGameAlreadyStarted)
	}
}

func TestJoinAfterStart(t *testing.T) {
	rm := newRoomManager(&Config{autoStartThreshold: 5})
	code := createTestRoom(t, rm, fakeClient("p1"))

	for i := 2; i <= 5; i++ {
		if err := rm.joinRoom(fakeClient("p"+strconv.Itoa(i)), code); err != nil {
			t.Fatal(err)
		}
	}

	if err := rm.joinRoom(fakeClient("p6"), code); !errors.Is(err, errGameAlreadyStarted) {
		t.Errorf("error = %v, want %v", err, errGameAlreadyStarted)
	}
}

func TestRejoinBeforeStart(t *testing.T) {
	rm := newRoomManager(&Config{})
	code := createTestRoom(t, rm, fakeClient("p1"))

	second := fakeClient("p2")
	if err := rm.joinRoom(second, code); err != nil {
		t.Fatal(err)
	}

	rm.onDisconnect(second)

	r, _ := rm.lookup(code)
	r.mu.Lock()
	seats := len(r.seats)
	r.mu.Unlock()
	if seats != 2 {
		t.Fatalf("seat count after disconnect = %d, want 2", seats)
	}

	// Same identity, new connection: rebinds to the old seat.
	replacement := fakeClient("p2")
	if err := rm.joinRoom(replacement, code); err != nil {
		t.Fatalf("rejoin: %v", err)
	}

	var seated int
	for _, m := range drainClient(replacement) {
		if status, ok := m.(RoomStatusMessage); ok && status.Type == "joined_game" {
			seated = status.PlayerID
		}
	}
	if seated != 2 {
		t.Errorf("rejoin got seat %d, want 2", seated)
	}
}

func TestDisconnectKeepsSeatNumbers(t *testing.T) {
	rm := newRoomManager(&Config{})
	creator := fakeClient("p1")
	code := createTestRoom(t, rm, creator)

	second := fakeClient("p2")
	third := fakeClient("p3")
	for _, c := range []*client{second, third} {
		if err := rm.joinRoom(c, code); err != nil {
			t.Fatal(err)
		}
	}
	drainClient(creator)

	rm.onDisconnect(second)

	var left *PlayerLeftMessage
	for _, m := range drainClient(creator) {
		if msg, ok := m.(PlayerLeftMessage); ok {
			left = &msg
		}
	}
	if left == nil {
		t.Fatal("no player_left broadcast")
	}
	if left.PlayerID != 2 {
		t.Errorf("player_left seat = %d, want 2", left.PlayerID)
	}
	for _, n := range left.ConnectedPlayers {
		if n == 2 {
			t.Error("disconnected seat still listed as connected")
		}
	}

	r, _ := rm.lookup(code)
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.seats[2].number != 3 {
		t.Errorf("third seat renumbered to %d", r.seats[2].number)
	}
}

func TestVotesWithoutVote(t *testing.T) {
	rm := newRoomManager(&Config{})
	c := fakeClient("p1")
	code := createTestRoom(t, rm, c)

	if err := rm.teamVote(c, code, nil); !errors.Is(err, errMissingVote) {
		t.Errorf("team vote error = %v, want %v", err, errMissingVote)
	}
	if err := rm.questVote(c, code, nil); !errors.Is(err, errMissingVote) {
		t.Errorf("quest vote error = %v, want %v", err, errMissingVote)
	}
}

func TestActionsBeforeStart(t *testing.T) {
	rm := newRoomManager(&Config{})
	c := fakeClient("p1")
	code := createTestRoom(t, rm, c)

	vote := true
	if err := rm.teamVote(c, code, &vote); !errors.Is(err, errGameNotStarted) {
		t.Errorf("error = %v, want %v", err, errGameNotStarted)
	}
	if err := rm.proposeTeam(c, code, []int{1, 2}); !errors.Is(err, errGameNotStarted) {
		t.Errorf("error = %v, want %v", err, errGameNotStarted)
	}
}

func TestValidateGame(t *testing.T) {
	rm := newRoomManager(&Config{})
	creator := fakeClient("p1")
	code := createTestRoom(t, rm, creator)

	probe := fakeClient("probe")
	rm.validateGame(probe, code)

	msgs := drainClient(probe)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	valid, ok := msgs[0].(GameValidatedMessage)
	if !ok || !valid.Valid {
		t.Fatalf("got %#v, want a valid game_validated", msgs[0])
	}
	if valid.PlayerCount != 1 {
		t.Errorf("player count = %d, want 1", valid.PlayerCount)
	}

	rm.validateGame(probe, "0000")
	msgs = drainClient(probe)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if invalid, ok := msgs[0].(GameValidatedMessage); !ok || invalid.Valid {
		t.Fatalf("got %#v, want an invalid game_validated", msgs[0])
	}
}

// ---- End-to-end over real websockets ----

type wsPlayer struct {
	conn   *websocket.Conn
	seat   int
	role   string
	gameID string
}

func dialPlayer(t *testing.T, wsURL string) *wsPlayer {
	t.Helper()

	header := http.Header{}
	header.Set("Cookie", playerCookieName+"="+uuid.NewString())

	conn, _, err := websocket.DefaultDialer.Dial(wsURL, header)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return &wsPlayer{conn: conn}
}

func (p *wsPlayer) sendMessage(t *testing.T, msg ClientMessage) {
	t.Helper()
	if err := p.conn.WriteJSON(msg); err != nil {
		t.Fatalf("write %s: %v", msg.Type, err)
	}
}

// readUntil skips broadcasts until a message of the wanted type arrives.
// An error message from the server fails the test immediately.
func (p *wsPlayer) readUntil(t *testing.T, want string) map[string]any {
	t.Helper()

	deadline := time.Now().Add(5 * time.Second)
	_ = p.conn.SetReadDeadline(deadline)

	for {
		var msg map[string]any
		if err := p.conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}

		switch msg["type"] {
		case want:
			return msg
		case "error":
			t.Fatalf("waiting for %s, server said: %v", want, msg["message"])
		}
	}
}

func intField(msg map[string]any, key string) int {
	f, _ := msg[key].(float64)
	return int(f)
}

func TestFullGameOverWebsocket(t *testing.T) {
	cfg := &Config{autoStartThreshold: 5}
	mux := httprouter.New()
	registerAvalonGame(cfg, "/avalon", mux)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/avalon/ws"

	players := make([]*wsPlayer, 5)
	for i := range players {
		players[i] = dialPlayer(t, wsURL)
	}

	// Seat 1 creates; 2-5 join. The fifth join trips the auto-start.
	players[0].sendMessage(t, ClientMessage{Type: "create_game"})
	created := players[0].readUntil(t, "game_created")
	gameID, _ := created["game_id"].(string)
	if gameID == "" {
		t.Fatal("empty game id")
	}
	players[0].seat = intField(created, "player_id")

	for _, p := range players[1:] {
		p.sendMessage(t, ClientMessage{Type: "join_game", GameID: gameID})
		joined := p.readUntil(t, "joined_game")
		p.seat = intField(joined, "player_id")
		p.gameID = gameID
	}

	// Everyone gets exactly one role_info, for their own seat, before the
	// start signal.
	bySeat := make(map[int]*wsPlayer, 5)
	var merlinSeat, assassinSeat int
	for _, p := range players {
		info := p.readUntil(t, "role_info")
		if got := intField(info, "player_number"); got != p.seat {
			t.Fatalf("seat %d got role_info for seat %d", p.seat, got)
		}
		p.role, _ = info["role"].(string)
		bySeat[p.seat] = p

		switch p.role {
		case roleMerlin:
			merlinSeat = p.seat
		case roleAssassin:
			assassinSeat = p.seat
		}
	}
	if merlinSeat == 0 || assassinSeat == 0 {
		t.Fatal("deal is missing Merlin or the Assassin")
	}

	leader := 0
	for _, p := range players {
		started := p.readUntil(t, "game_started")
		leader = intField(started, "leader")
	}

	// Three quests, each proposed by the current leader, approved
	// unanimously, and played clean.
	for quest := 0; quest < 3; quest++ {
		size, err := questTeamSize(5, quest)
		if err != nil {
			t.Fatal(err)
		}
		team := make([]int, size)
		for i := range team {
			team[i] = i + 1
		}

		bySeat[leader].sendMessage(t, ClientMessage{
			Type:   "propose_team",
			GameID: gameID,
			Team:   team,
		})

		approve := true
		for _, p := range players {
			p.readUntil(t, "team_proposed")
			p.sendMessage(t, ClientMessage{
				Type:   "team_vote",
				GameID: gameID,
				Vote:   &approve,
			})
		}

		for _, p := range players {
			result := p.readUntil(t, "team_vote_result")
			if ok, _ := result["success"].(bool); !ok {
				t.Fatalf("quest %d: unanimous team vote rejected", quest+1)
			}
		}

		success := true
		for _, n := range team {
			bySeat[n].sendMessage(t, ClientMessage{
				Type:   "quest_vote",
				GameID: gameID,
				Vote:   &success,
			})
		}

		for _, p := range players {
			result := p.readUntil(t, "quest_vote_result")
			if ok, _ := result["success"].(bool); !ok {
				t.Fatalf("quest %d failed with an all-good team", quest+1)
			}

			state := p.readUntil(t, "game_state")
			leader = intField(state, "leader")
		}
	}

	// Good won three quests; the Assassin gets one shot and takes it.
	bySeat[assassinSeat].sendMessage(t, ClientMessage{
		Type:   "assassinate",
		GameID: gameID,
		Target: merlinSeat,
	})

	for _, p := range players {
		result := p.readUntil(t, "assassination_result")
		if hit, _ := result["success"].(bool); !hit {
			t.Fatal("assassinating Merlin's seat reported a miss")
		}
		msg, _ := result["message"].(string)
		if !strings.Contains(msg, "Evil wins") {
			t.Errorf("result message = %q", msg)
		}
	}
}

func TestAssassinateRequiresAssassin(t *testing.T) {
	cfg := &Config{autoStartThreshold: 5}
	mux := httprouter.New()
	registerAvalonGame(cfg, "/avalon", mux)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/avalon/ws"

	players := make([]*wsPlayer, 5)
	for i := range players {
		players[i] = dialPlayer(t, wsURL)
	}

	players[0].sendMessage(t, ClientMessage{Type: "create_game"})
	created := players[0].readUntil(t, "game_created")
	gameID, _ := created["game_id"].(string)

	for _, p := range players[1:] {
		p.sendMessage(t, ClientMessage{Type: "join_game", GameID: gameID})
		p.readUntil(t, "joined_game")
	}

	var notAssassin *wsPlayer
	for _, p := range players {
		info := p.readUntil(t, "role_info")
		if role, _ := info["role"].(string); role != roleAssassin {
			notAssassin = p
		}
	}

	// Premature and unauthorized in one: the game is still in the
	// proposal phase, and the sender is not the Assassin.
	notAssassin.sendMessage(t, ClientMessage{
		Type:   "assassinate",
		GameID: gameID,
		Target: 1,
	})

	deadline := time.Now().Add(5 * time.Second)
	_ = notAssassin.conn.SetReadDeadline(deadline)
	for {
		var msg map[string]any
		if err := notAssassin.conn.ReadJSON(&msg); err != nil {
			t.Fatalf("waiting for error: %v", err)
		}
		if msg["type"] == "error" {
			if m, _ := msg["message"].(string); m == "" {
				t.Error("error message is empty")
			}
			return
		}
	}
}

func TestGamePagesServed(t *testing.T) {
	cfg := &Config{}
	mux := httprouter.New()
	registerAvalonGame(cfg, "/avalon", mux)

	srv := httptest.NewServer(mux)
	defer srv.Close()

	for _, path := range []string{"/avalon", "/avalon/game/1234", "/avalon/game/1234/qr"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s: status %d", path, resp.StatusCode)
		}
	}

	resp, err := http.Get(srv.URL + "/avalon/game/1234/qr")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "image/png" {
		t.Errorf("QR content type = %q, want image/png", ct)
	}
}
