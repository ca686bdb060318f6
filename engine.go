package main

import (
	"errors"
	"math/rand/v2"
)

var (
	errAlreadyAssigned  = errors.New("roles have already been assigned")
	errInvalidProposal  = errors.New("invalid team proposal")
	errNoVoteInProgress = errors.New("no vote is in progress")
	errAlreadyVoted     = errors.New("you have already voted this round")
	errNotOnQuestTeam   = errors.New("you are not on the quest team")
	errNoAssassination  = errors.New("the assassination phase is not active")
	errInvalidTarget    = errors.New("invalid assassination target")
)

type gamePhase int

const (
	phaseRoleAssignment gamePhase = iota
	phaseProposing
	phaseTeamVoting
	phaseQuestVoting
	phaseAssassination
	phaseGameOver
)

// ballot accumulates one vote per expected voter into fixed-size arrays,
// indexed by voter position. A round resolves exactly once, when every
// expected vote has been cast; missing votes are never defaulted.
type ballot struct {
	votes []bool
	cast  []bool
	count int
}

func newBallot(n int) *ballot {
	return &ballot{
		votes: make([]bool, n),
		cast:  make([]bool, n),
	}
}

func (b *ballot) record(i int, vote bool) error {
	if b.cast[i] {
		return errAlreadyVoted
	}

	b.votes[i] = vote
	b.cast[i] = true
	b.count++

	return nil
}

func (b *ballot) complete() bool {
	return b.count == len(b.votes)
}

func (b *ballot) approvals() int {
	n := 0
	for _, v := range b.votes {
		if v {
			n++
		}
	}
	return n
}

// game is the authoritative state machine for a single started room. It
// has no notion of connections; the room layer resolves identities and
// serializes all calls into it.
type game struct {
	playerCount int
	roles       []string // indexed by player number - 1
	phase       gamePhase

	currentQuest int
	questResults []bool
	leaderIndex  int
	voteTrack    int

	proposal  []int // candidate team, 0-based seats
	questTeam []int // accepted team for the quest in progress

	teamVotes  *ballot
	questVotes *ballot

	winner string
	reason string
}

func newGame(playerCount int) (*game, error) {
	if playerCount < 5 || playerCount > 10 {
		return nil, errInvalidPlayerCount
	}

	return &game{
		playerCount: playerCount,
	}, nil
}

// assignRoles deals the role deck and picks the first leader. It may only
// be called once per game.
func (g *game) assignRoles(rng *rand.Rand) error {
	if g.phase != phaseRoleAssignment {
		return errAlreadyAssigned
	}

	roles, err := assignRoles(g.playerCount, rng)
	if err != nil {
		return err
	}

	g.roles = roles
	g.leaderIndex = rng.IntN(g.playerCount)
	g.phase = phaseProposing

	return nil
}

// requiredTeamSize returns the team size for the quest in progress.
func (g *game) requiredTeamSize() int {
	size, err := questTeamSize(g.playerCount, g.currentQuest)
	if err != nil {
		return 0
	}
	return size
}

// proposeTeam stores the leader's candidate team and opens the team vote.
// A malformed proposal (wrong proposer, wrong size, duplicate or
// out-of-range seats) leaves the game untouched.
func (g *game) proposeTeam(leader int, team []int) error {
	if g.phase != phaseProposing || leader != g.leaderIndex {
		return errInvalidProposal
	}
	if len(team) != g.requiredTeamSize() {
		return errInvalidProposal
	}

	seen := make(map[int]bool, len(team))
	for _, seat := range team {
		if seat < 0 || seat >= g.playerCount || seen[seat] {
			return errInvalidProposal
		}
		seen[seat] = true
	}

	g.proposal = append([]int(nil), team...)
	g.teamVotes = newBallot(g.playerCount)
	g.phase = phaseTeamVoting

	return nil
}

// teamVoteOutcome describes a fully resolved team vote.
type teamVoteOutcome struct {
	approved  bool
	votes     map[int]bool // 1-based player number -> vote
	team      []int        // 1-based, only set when approved
	voteTrack int
	gameOver  bool
	message   string
}

// castTeamVote records one player's vote on the proposed team. It returns
// a nil outcome while votes are still outstanding; once every seated
// player has voted the round resolves: a strict majority of approvals
// accepts the team, anything else (ties included) rejects it. The fifth
// consecutive rejection ends the game in evil's favor.
func (g *game) castTeamVote(voter int, approve bool) (*teamVoteOutcome, error) {
	if g.phase != phaseTeamVoting {
		return nil, errNoVoteInProgress
	}
	if voter < 0 || voter >= g.playerCount {
		return nil, errInvalidTarget
	}

	if err := g.teamVotes.record(voter, approve); err != nil {
		return nil, err
	}
	if !g.teamVotes.complete() {
		return nil, nil
	}

	return g.resolveTeamVote(), nil
}

func (g *game) resolveTeamVote() *teamVoteOutcome {
	out := &teamVoteOutcome{
		votes: make(map[int]bool, g.playerCount),
	}
	for i, v := range g.teamVotes.votes {
		out.votes[i+1] = v
	}

	out.approved = g.teamVotes.approvals()*2 > g.playerCount
	g.teamVotes = nil

	if out.approved {
		g.questTeam = g.proposal
		g.proposal = nil
		g.voteTrack = 0
		g.questVotes = newBallot(len(g.questTeam))
		g.phase = phaseQuestVoting

		out.team = make([]int, len(g.questTeam))
		for i, seat := range g.questTeam {
			out.team[i] = seat + 1
		}
	} else {
		g.proposal = nil
		g.voteTrack++
		g.advanceLeader()

		if g.voteTrack >= 5 {
			g.endGame(campEvil, "Five team proposals were rejected in a row. Evil wins!")
		} else {
			g.phase = phaseProposing
		}
	}

	out.voteTrack = g.voteTrack
	out.gameOver, out.message = g.checkGameState()

	return out
}

// questVoteOutcome describes a fully resolved quest.
type questVoteOutcome struct {
	succeeded    bool
	successVotes int
	failVotes    int
	gameOver     bool
	message      string
}

// castQuestVote records one team member's quest card. Only members of the
// accepted team may vote. Once the whole team has voted the quest
// resolves: one fail vote fails it, or two on the double-fail quest.
func (g *game) castQuestVote(voter int, success bool) (*questVoteOutcome, error) {
	if g.phase != phaseQuestVoting {
		return nil, errNoVoteInProgress
	}

	slot := -1
	for i, seat := range g.questTeam {
		if seat == voter {
			slot = i
			break
		}
	}
	if slot < 0 {
		return nil, errNotOnQuestTeam
	}

	if err := g.questVotes.record(slot, success); err != nil {
		return nil, err
	}
	if !g.questVotes.complete() {
		return nil, nil
	}

	return g.resolveQuestVote(), nil
}

func (g *game) resolveQuestVote() *questVoteOutcome {
	out := &questVoteOutcome{
		successVotes: g.questVotes.approvals(),
	}
	out.failVotes = len(g.questVotes.votes) - out.successVotes

	needed := 1
	if questNeedsTwoFails(g.playerCount, g.currentQuest) {
		needed = 2
	}
	out.succeeded = out.failVotes < needed

	g.questResults = append(g.questResults, out.succeeded)
	g.questTeam = nil
	g.questVotes = nil

	successes, failures := 0, 0
	for _, r := range g.questResults {
		if r {
			successes++
		} else {
			failures++
		}
	}

	switch {
	case successes >= 3:
		g.phase = phaseAssassination
	case failures >= 3:
		g.endGame(campEvil, "Evil has sabotaged three quests. Evil wins!")
	default:
		g.currentQuest++
		g.advanceLeader()
		g.phase = phaseProposing
	}

	out.gameOver, out.message = g.checkGameState()

	return out
}

// checkGameState reports whether the game has ended, with a human-readable
// reason. It never mutates state.
func (g *game) checkGameState() (bool, string) {
	switch g.phase {
	case phaseGameOver:
		return true, g.reason
	case phaseAssassination:
		return false, "Good has won three quests. The Assassin must now find Merlin."
	default:
		return false, ""
	}
}

// assassinate resolves the Assassin's single attempt at identifying
// Merlin. A correct guess wins the game for evil, anything else for good.
func (g *game) assassinate(target int) (bool, error) {
	if g.phase != phaseAssassination {
		return false, errNoAssassination
	}
	if target < 0 || target >= g.playerCount {
		return false, errInvalidTarget
	}

	hit := g.roles[target] == roleMerlin
	if hit {
		g.endGame(campEvil, "The Assassin found Merlin! Evil wins!")
	} else {
		g.endGame(campGood, "The Assassin guessed wrong! Good wins!")
	}

	return hit, nil
}

func (g *game) endGame(winner, reason string) {
	g.phase = phaseGameOver
	g.winner = winner
	g.reason = reason
}

func (g *game) advanceLeader() {
	g.leaderIndex = (g.leaderIndex + 1) % g.playerCount
}

// seatWithRole returns the 0-based seat holding the given role, or -1.
func (g *game) seatWithRole(role string) int {
	for i, r := range g.roles {
		if r == role {
			return i
		}
	}
	return -1
}

// camps returns the public per-seat camp list, indexed by player number.
func (g *game) camps() map[int]string {
	camps := make(map[int]string, g.playerCount)
	for i, role := range g.roles {
		camps[i+1] = roleCamps[role]
	}
	return camps
}
