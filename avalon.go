// Avalon
//
// A hidden-role deduction game for 5-10 players. Each player is secretly
// assigned a role from the standard deck for the table size. Good wins by
// succeeding three quests and protecting Merlin through the final
// assassination; evil wins by failing three quests, forcing five
// consecutive team rejections, or assassinating Merlin.
//
// Features:
// - One WebSocket endpoint at /avalon/ws; rooms are addressed by a
//   four-digit code carried in each message
// - The connection that creates a room is seated as player 1
// - Rooms auto-start at a configurable player count (default 5), or the
//   table can wait and start manually with 5-10 players
// - Players identified by cookie (playerID); seat numbers are stable for
//   the lifetime of the room, even across disconnects
// - Role-scoped info (Merlin's sight, Percival's sight, mutual evil
//   sight) is only ever unicast to the entitled seat
// - Rooms auto-reaped after configurable idle timeout
// - Random 4-digit room codes with server-side collision check
// - In-browser QR button to share the current room, backed by go-qrcode

package main

import (
	crand "crypto/rand"
	_ "embed"
	"errors"
	"log"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

var (
	errRoomNotFound       = errors.New("no game with that code exists")
	errRoomFull           = errors.New("the game is full")
	errAlreadyJoined      = errors.New("you are already in this game")
	errGameAlreadyStarted = errors.New("the game has already started")
	errGameNotStarted     = errors.New("the game has not started yet")
	errNotInRoom          = errors.New("you are not in this game")
	errTooFewPlayers      = errors.New("at least 5 players are needed to start")
	errTooManyPlayers     = errors.New("at most 10 players are supported")
	errNotAssassin        = errors.New("only the Assassin may choose a target")
	errMissingVote        = errors.New("missing vote")
)

// Messages coming from clients
type ClientMessage struct {
	Type     string `json:"type"`                // "create_game", "join_game", "start_game_manual", "propose_team", "team_vote", "quest_vote", "assassinate", "validate_game"
	GameID   string `json:"game_id,omitempty"`   // all but create_game
	Team     []int  `json:"team,omitempty"`      // propose_team, 1-based seats
	Vote     *bool  `json:"vote,omitempty"`      // team_vote / quest_vote
	PlayerID int    `json:"player_id,omitempty"` // advisory; the seat is resolved from the connection
	Target   int    `json:"target,omitempty"`    // assassinate, 1-based seat
}

// ErrorMessage is sent only to the acting connection when a request is
// rejected; room and game state are left unchanged.
type ErrorMessage struct {
	Type    string `json:"type"` // "error"
	Message string `json:"message"`
}

// RoomStatusMessage acknowledges room creation or joining to the acting
// connection ("game_created" / "joined_game").
type RoomStatusMessage struct {
	Type             string `json:"type"`
	GameID           string `json:"game_id"`
	PlayerID         int    `json:"player_id"` // this connection's seat, 1-based
	PlayerCount      int    `json:"player_count"`
	ConnectedPlayers []int  `json:"connected_players"`
}

// PlayerJoinedMessage is broadcast to a room when a seat is filled.
type PlayerJoinedMessage struct {
	Type             string `json:"type"` // "player_joined"
	PlayerID         int    `json:"player_id"`
	ConnectedPlayers []int  `json:"connected_players"`
	PlayerCount      int    `json:"player_count"`
}

// PlayerLeftMessage is broadcast when a connection drops. The seat and its
// number survive; only the presence changes.
type PlayerLeftMessage struct {
	Type             string `json:"type"` // "player_left"
	PlayerID         int    `json:"player_id"`
	ConnectedPlayers []int  `json:"connected_players"`
}

// RoleInfoMessage carries one seat's secret role and everything that role
// is entitled to see. It is only ever unicast.
type RoleInfoMessage struct {
	Type               string   `json:"type"` // "role_info"
	Role               string   `json:"role"`
	Camp               string   `json:"camp"`
	PlayerNumber       int      `json:"player_number"`
	EvilPlayers        []int    `json:"evil_players,omitempty"`
	EvilRoles          []string `json:"evil_roles,omitempty"`
	MerlinMorgana      []int    `json:"merlin_morgana,omitempty"`
	MerlinMorganaRoles []string `json:"merlin_morgana_roles,omitempty"`
}

// GameStateMessage is the public snapshot broadcast after every resolved
// round. Camps are public; roles are not.
type GameStateMessage struct {
	Type            string         `json:"type"`          // "game_state"
	CurrentQuest    int            `json:"current_quest"` // 1-based
	QuestResults    []string       `json:"quest_results"`
	RequiredPlayers int            `json:"required_players"`
	Leader          int            `json:"leader"` // 1-based
	VoteTrack       int            `json:"vote_track"`
	PlayerCount     int            `json:"player_count"`
	Camps           map[int]string `json:"camps"`
}

// GameStartedMessage tells clients to switch from the lobby to the table.
type GameStartedMessage struct {
	Type        string `json:"type"` // "game_started"
	Leader      int    `json:"leader"`
	PlayerCount int    `json:"player_count"`
}

type TeamProposedMessage struct {
	Type        string `json:"type"` // "team_proposed"
	Team        []int  `json:"team"`
	PlayerCount int    `json:"player_count"`
}

type TeamVoteResultMessage struct {
	Type      string       `json:"type"`    // "team_vote_result"
	Success   bool         `json:"success"` // team approved
	Votes     map[int]bool `json:"votes"`
	Team      []int        `json:"team"`
	VoteTrack int          `json:"vote_track"`
	GameOver  bool         `json:"game_over"`
	Message   string       `json:"message,omitempty"`
}

type QuestVoteResultMessage struct {
	Type      string    `json:"type"`    // "quest_vote_result"
	Success   bool      `json:"success"` // quest succeeded
	VoteCount voteCount `json:"vote_count"`
	GameOver  bool      `json:"game_over"`
	Message   string    `json:"message,omitempty"`
}

type voteCount struct {
	Success int `json:"success"`
	Fail    int `json:"fail"`
}

type AssassinationResultMessage struct {
	Type    string `json:"type"`    // "assassination_result"
	Success bool   `json:"success"` // the Assassin found Merlin
	Message string `json:"message"`
}

// GameValidatedMessage answers a validate_game probe, used by clients to
// check a code before showing the join screen.
type GameValidatedMessage struct {
	Type             string `json:"type"` // "game_validated"
	Valid            bool   `json:"valid"`
	PlayerCount      int    `json:"player_count,omitempty"`
	ConnectedPlayers []int  `json:"connected_players,omitempty"`
	Message          string `json:"message,omitempty"`
}

type client struct {
	conn     *websocket.Conn
	send     chan any
	playerID string
	closed   sync.Once
}

func (c *client) close() {
	c.closed.Do(func() {
		close(c.send)
	})
}

// seat binds a stable player identity to a 1-based player number. The
// number is assigned at join time and never reassigned or compacted; a
// disconnect only clears the connection binding.
type seat struct {
	playerID string
	number   int
	client   *client // nil while disconnected
}

// room owns one table: its seats, and the game once started. All
// mutations of a room go through its mutex, so two votes arriving
// concurrently can never race on a tally.
type room struct {
	code string

	mu         sync.Mutex
	seats      []*seat
	started    bool
	game       *game
	createdAt  time.Time
	lastActive time.Time
}

func (r *room) connectedLocked() []int {
	connected := make([]int, 0, len(r.seats))
	for _, s := range r.seats {
		if s.client != nil {
			connected = append(connected, s.number)
		}
	}
	return connected
}

func (r *room) seatForLocked(playerID string) *seat {
	for _, s := range r.seats {
		if s.playerID == playerID {
			return s
		}
	}
	return nil
}

// broadcastLocked fans a message out to every connected seat. A seat
// whose send buffer is full is treated as gone.
func (r *room) broadcastLocked(msg any) {
	for _, s := range r.seats {
		if s.client == nil {
			continue
		}
		select {
		case s.client.send <- msg:
		default:
			s.client.close()
			s.client = nil
		}
	}
}

func trySend(c *client, msg any) {
	select {
	case c.send <- msg:
	default:
	}
}

func sendError(c *client, err error) {
	trySend(c, ErrorMessage{
		Type:    "error",
		Message: err.Error(),
	})
}

// newRNG seeds a fast shuffling source from the kernel.
func newRNG() *rand.Rand {
	var seed [32]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("crypto/rand failure: " + err.Error())
	}
	return rand.New(rand.NewChaCha8(seed))
}

// roomManager holds every active room keyed by code, so the four-digit
// codes are unique among live rooms.
type roomManager struct {
	cfg         *Config
	mu          sync.Mutex
	rooms       map[string]*room
	rng         *rand.Rand
	idleTimeout time.Duration
}

func newRoomManager(cfg *Config) *roomManager {
	rm := &roomManager{
		cfg:         cfg,
		rooms:       make(map[string]*room),
		rng:         newRNG(),
		idleTimeout: cfg.sessionTimeout,
	}
	if rm.idleTimeout > 0 {
		go rm.reaperLoop()
	}
	return rm
}

// newRoomCodeLocked picks a random four-digit code, retrying until it
// does not collide with a currently active room. Callers hold rm.mu.
func (rm *roomManager) newRoomCodeLocked() string {
	for {
		code := strconv.Itoa(1000 + rm.rng.IntN(9000))
		if _, exists := rm.rooms[code]; !exists {
			return code
		}
	}
}

func (rm *roomManager) lookup(code string) (*room, error) {
	rm.mu.Lock()
	defer rm.mu.Unlock()

	r, ok := rm.rooms[code]
	if !ok {
		return nil, errRoomNotFound
	}
	return r, nil
}

// createRoom allocates a room and seats the requester as player 1.
func (rm *roomManager) createRoom(c *client) {
	now := time.Now()

	rm.mu.Lock()
	code := rm.newRoomCodeLocked()
	r := &room{
		code:       code,
		createdAt:  now,
		lastActive: now,
	}
	r.seats = append(r.seats, &seat{
		playerID: c.playerID,
		number:   1,
		client:   c,
	})
	rm.rooms[code] = r
	rm.mu.Unlock()

	logf(rm.cfg, "GAMES: Created game %s", code)

	trySend(c, RoomStatusMessage{
		Type:             "game_created",
		GameID:           code,
		PlayerID:         1,
		PlayerCount:      1,
		ConnectedPlayers: []int{1},
	})
}

const maxPlayers = 10

// joinRoom seats a connection in an existing room. A player whose
// connection dropped before the game started is rebound to their old
// seat instead of being given a new one.
func (rm *roomManager) joinRoom(c *client, code string) error {
	r, err := rm.lookup(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	var s *seat
	if existing := r.seatForLocked(c.playerID); existing != nil {
		if existing.client != nil {
			return errAlreadyJoined
		}
		if r.started {
			return errGameAlreadyStarted
		}
		existing.client = c
		s = existing
	} else {
		if r.started {
			return errGameAlreadyStarted
		}
		if len(r.seats) >= maxPlayers {
			return errRoomFull
		}
		s = &seat{
			playerID: c.playerID,
			number:   len(r.seats) + 1,
			client:   c,
		}
		r.seats = append(r.seats, s)
	}

	connected := r.connectedLocked()

	trySend(c, RoomStatusMessage{
		Type:             "joined_game",
		GameID:           code,
		PlayerID:         s.number,
		PlayerCount:      len(r.seats),
		ConnectedPlayers: connected,
	})

	r.broadcastLocked(PlayerJoinedMessage{
		Type:             "player_joined",
		PlayerID:         s.number,
		ConnectedPlayers: connected,
		PlayerCount:      len(r.seats),
	})

	logf(rm.cfg, "GAMES: Player %d joined %s", s.number, code)

	if rm.cfg.autoStartThreshold > 0 && len(r.seats) == rm.cfg.autoStartThreshold {
		return rm.startLocked(r)
	}

	return nil
}

// startGameManually starts a waiting room with 5-10 seated players.
func (rm *roomManager) startGameManually(c *client, code string) error {
	r, err := rm.lookup(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	if r.seatForLocked(c.playerID) == nil {
		return errNotInRoom
	}
	if r.started {
		return errGameAlreadyStarted
	}
	if len(r.seats) < 5 {
		return errTooFewPlayers
	}
	if len(r.seats) > maxPlayers {
		return errTooManyPlayers
	}

	return rm.startLocked(r)
}

// startLocked assigns roles and runs the start sequence: a role_info
// unicast per seat, then the public game_state snapshot, then the
// game_started signal.
func (rm *roomManager) startLocked(r *room) error {
	g, err := newGame(len(r.seats))
	if err != nil {
		return err
	}
	if err := g.assignRoles(newRNG()); err != nil {
		return err
	}

	r.started = true
	r.game = g

	logf(rm.cfg, "GAMES: Started game %s with %d players", r.code, g.playerCount)

	for _, s := range r.seats {
		if s.client == nil {
			continue
		}
		trySend(s.client, roleInfoFor(g, s.number-1))
	}

	r.broadcastLocked(gameStateMessage(g))
	r.broadcastLocked(GameStartedMessage{
		Type:        "game_started",
		Leader:      g.leaderIndex + 1,
		PlayerCount: g.playerCount,
	})

	return nil
}

// roleInfoFor builds one seat's secret payload from the role sight rules.
func roleInfoFor(g *game, seatIndex int) RoleInfoMessage {
	role := g.roles[seatIndex]
	msg := RoleInfoMessage{
		Type:         "role_info",
		Role:         role,
		Camp:         roleCamps[role],
		PlayerNumber: seatIndex + 1,
	}

	for _, entry := range roleSight(g.roles, seatIndex) {
		if role == rolePercival {
			msg.MerlinMorgana = append(msg.MerlinMorgana, entry.seat)
			msg.MerlinMorganaRoles = append(msg.MerlinMorganaRoles, entry.label)
		} else {
			msg.EvilPlayers = append(msg.EvilPlayers, entry.seat)
			msg.EvilRoles = append(msg.EvilRoles, entry.label)
		}
	}

	return msg
}

func gameStateMessage(g *game) GameStateMessage {
	results := make([]string, len(g.questResults))
	for i, r := range g.questResults {
		if r {
			results[i] = "Success"
		} else {
			results[i] = "Fail"
		}
	}

	return GameStateMessage{
		Type:            "game_state",
		CurrentQuest:    g.currentQuest + 1,
		QuestResults:    results,
		RequiredPlayers: g.requiredTeamSize(),
		Leader:          g.leaderIndex + 1,
		VoteTrack:       g.voteTrack,
		PlayerCount:     g.playerCount,
		Camps:           g.camps(),
	}
}

// gameAction resolves a room and the acting connection's seat, requiring
// a started game. The room lock is held for the duration of fn, so every
// action against one room is serialized.
func (rm *roomManager) gameAction(c *client, code string, fn func(r *room, s *seat) error) error {
	r, err := rm.lookup(code)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.lastActive = time.Now()

	s := r.seatForLocked(c.playerID)
	if s == nil {
		return errNotInRoom
	}
	if !r.started {
		return errGameNotStarted
	}

	return fn(r, s)
}

func (rm *roomManager) proposeTeam(c *client, code string, team []int) error {
	return rm.gameAction(c, code, func(r *room, s *seat) error {
		indexes := make([]int, len(team))
		for i, n := range team {
			indexes[i] = n - 1
		}

		if err := r.game.proposeTeam(s.number-1, indexes); err != nil {
			return err
		}

		r.broadcastLocked(TeamProposedMessage{
			Type:        "team_proposed",
			Team:        team,
			PlayerCount: r.game.playerCount,
		})

		return nil
	})
}

func (rm *roomManager) teamVote(c *client, code string, vote *bool) error {
	if vote == nil {
		return errMissingVote
	}

	return rm.gameAction(c, code, func(r *room, s *seat) error {
		out, err := r.game.castTeamVote(s.number-1, *vote)
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}

		r.broadcastLocked(TeamVoteResultMessage{
			Type:      "team_vote_result",
			Success:   out.approved,
			Votes:     out.votes,
			Team:      out.team,
			VoteTrack: out.voteTrack,
			GameOver:  out.gameOver,
			Message:   out.message,
		})
		r.broadcastLocked(gameStateMessage(r.game))

		return nil
	})
}

func (rm *roomManager) questVote(c *client, code string, vote *bool) error {
	if vote == nil {
		return errMissingVote
	}

	return rm.gameAction(c, code, func(r *room, s *seat) error {
		out, err := r.game.castQuestVote(s.number-1, *vote)
		if err != nil {
			return err
		}
		if out == nil {
			return nil
		}

		r.broadcastLocked(QuestVoteResultMessage{
			Type:    "quest_vote_result",
			Success: out.succeeded,
			VoteCount: voteCount{
				Success: out.successVotes,
				Fail:    out.failVotes,
			},
			GameOver: out.gameOver,
			Message:  out.message,
		})
		r.broadcastLocked(gameStateMessage(r.game))

		return nil
	})
}

func (rm *roomManager) assassinate(c *client, code string, target int) error {
	return rm.gameAction(c, code, func(r *room, s *seat) error {
		if s.number-1 != r.game.seatWithRole(roleAssassin) {
			return errNotAssassin
		}

		hit, err := r.game.assassinate(target - 1)
		if err != nil {
			return err
		}

		_, message := r.game.checkGameState()
		r.broadcastLocked(AssassinationResultMessage{
			Type:    "assassination_result",
			Success: hit,
			Message: message,
		})

		logf(rm.cfg, "GAMES: Game %s over: %s", r.code, message)

		return nil
	})
}

func (rm *roomManager) validateGame(c *client, code string) {
	r, err := rm.lookup(code)
	if err != nil {
		trySend(c, GameValidatedMessage{
			Type:    "game_validated",
			Valid:   false,
			Message: err.Error(),
		})
		return
	}

	r.mu.Lock()
	msg := GameValidatedMessage{
		Type:             "game_validated",
		Valid:            true,
		PlayerCount:      len(r.seats),
		ConnectedPlayers: r.connectedLocked(),
	}
	r.mu.Unlock()

	trySend(c, msg)
}

// onDisconnect clears the dropped connection's seat binding in whichever
// room holds it. The seat itself is kept, so an in-progress game is never
// renumbered; it simply stalls until the room is reaped.
func (rm *roomManager) onDisconnect(c *client) {
	rm.mu.Lock()
	rooms := make([]*room, 0, len(rm.rooms))
	for _, r := range rm.rooms {
		rooms = append(rooms, r)
	}
	rm.mu.Unlock()

	for _, r := range rooms {
		r.mu.Lock()
		for _, s := range r.seats {
			if s.client != c {
				continue
			}
			s.client = nil
			r.lastActive = time.Now()
			r.broadcastLocked(PlayerLeftMessage{
				Type:             "player_left",
				PlayerID:         s.number,
				ConnectedPlayers: r.connectedLocked(),
			})
			logf(rm.cfg, "GAMES: Player %d left %s", s.number, r.code)
		}
		r.mu.Unlock()
	}
}

// closeAll disconnects every client of a room (used by the reaper).
func (r *room) closeAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.seats {
		if s.client == nil {
			continue
		}
		s.client.close()
		_ = s.client.conn.Close()
		s.client = nil
	}
}

// reaperLoop periodically removes rooms idle longer than the timeout.
// There is no other room-deletion path: finished and abandoned rooms
// alike are bounded by this.
func (rm *roomManager) reaperLoop() {
	ticker := time.NewTicker(rm.idleTimeout / 2)
	for range ticker.C {
		cutoff := time.Now().Add(-rm.idleTimeout)

		rm.mu.Lock()
		for code, r := range rm.rooms {
			r.mu.Lock()
			last := r.lastActive
			r.mu.Unlock()

			if last.Before(cutoff) {
				delete(rm.rooms, code)
				logf(rm.cfg, "GAMES: Reaped idle game %s", code)
				go r.closeAll()
			}
		}
		rm.mu.Unlock()
	}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

const playerCookieName = "avalon_id"

func getOrSetPlayerID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(playerCookieName); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()

	http.SetCookie(w, &http.Cookie{
		Name:     playerCookieName,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return id
}

// serveWS upgrades a connection and pumps its messages into the room
// manager until it drops.
func serveWS(cfg *Config, rm *roomManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		playerID := getOrSetPlayerID(w, r)
		if playerID == "" {
			http.Error(w, "unable to assign player id", http.StatusInternalServerError)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Println("upgrade error:", err)
			return
		}

		c := &client{
			conn:     conn,
			send:     make(chan any, 16),
			playerID: playerID,
		}

		go c.writePump()
		c.readPump(rm)
	}
}

func (c *client) readPump(rm *roomManager) {
	defer func() {
		rm.onDisconnect(c)
		c.close()
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		var err error
		switch msg.Type {
		case "create_game":
			rm.createRoom(c)
		case "join_game":
			err = rm.joinRoom(c, msg.GameID)
		case "start_game_manual":
			err = rm.startGameManually(c, msg.GameID)
		case "propose_team":
			err = rm.proposeTeam(c, msg.GameID, msg.Team)
		case "team_vote":
			err = rm.teamVote(c, msg.GameID, msg.Vote)
		case "quest_vote":
			err = rm.questVote(c, msg.GameID, msg.Vote)
		case "assassinate":
			err = rm.assassinate(c, msg.GameID, msg.Target)
		case "validate_game":
			rm.validateGame(c, msg.GameID)
		default:
			// ignore unknown types
		}

		if err != nil {
			sendError(c, err)
		}
	}
}

func (c *client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}

// QR handler: generates a PNG QR code for a room's join URL.
func qrHandler(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	gameID := ps.ByName("gameid")
	if gameID == "" {
		http.Error(w, "missing game id", http.StatusBadRequest)
		return
	}

	// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}

	// We are at /avalon/game/:gameid/qr; strip the trailing "/qr" to get
	// the join URL.
	path := strings.TrimSuffix(r.URL.Path, "/qr")

	url := scheme + "://" + r.Host + path

	const qrSize = 320 // mobile-friendly size
	png, err := qrcode.Encode(url, qrcode.Medium, qrSize)
	if err != nil {
		http.Error(w, "qr generation failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(png)
}

// ---- Static file paths ----

//go:embed avalon/index.html
var indexHTML []byte

//go:embed avalon/app.css
var avalonCSS []byte

//go:embed avalon/app.js
var avalonJS []byte

func getIndexHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_ = getOrSetPlayerID(w, r)

		_, _ = w.Write(indexHTML)
	}
}

func getCssHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/css; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(avalonCSS)
	}
}

func getJsHandler(cfg *Config) func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		securityHeaders(cfg, w)

		_, _ = w.Write(avalonJS)
	}
}

// registerAvalonGame sets up routes so that:
//   - $path                 → HTML client (create, or join by code)
//   - $path/ws              → WebSocket shared by all rooms
//   - $path/game/:gameid    → HTML client, pre-filled with the code
//   - $path/game/:gameid/qr → PNG QR code for that join URL
func registerAvalonGame(cfg *Config, path string, mux *httprouter.Router) *roomManager {
	rm := newRoomManager(cfg)

	mux.GET(cfg.prefix+path, getIndexHandler(cfg))

	// Shared assets (no gameid in route)
	mux.GET(cfg.prefix+"/assets/avalon/app.css", getCssHandler(cfg))
	mux.GET(cfg.prefix+"/assets/avalon/app.js", getJsHandler(cfg))

	// Shared websocket; rooms are addressed per-message
	mux.GET(cfg.prefix+path+"/ws", serveWS(cfg, rm))

	// Per-game join page and QR code
	mux.GET(cfg.prefix+path+"/game/:gameid", getIndexHandler(cfg))
	mux.GET(cfg.prefix+path+"/game/:gameid/qr", qrHandler)

	return rm
}
